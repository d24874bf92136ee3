package core

import (
	"strings"
)

// ScriptOptions are the scheduler-neutral settings of a rendered batch
// script. Empty fields are left out of the script.
type ScriptOptions struct {
	JobName     string
	Partition   string
	Account     string
	Time        string
	Memory      string
	CpusPerTask int
	// LogDir holds the scheduler's own per-task stdout/stderr files
	LogDir string
	Chdir  string
	Shell  string
	// Command is the argv run by every array task. The renderer appends
	// the task index when the scheduler cannot number tasks from Plan's base.
	Command []string
}

// ProfileScriptOptions fills options from a config profile.
func ProfileScriptOptions(p Profile) ScriptOptions {
	return ScriptOptions{
		Partition:   p.Partition,
		Account:     p.Account,
		Time:        p.Time,
		Memory:      p.Memory,
		CpusPerTask: p.CpusPerTask,
		Shell:       p.Shell,
	}
}

// ShellQuote quotes s for POSIX sh unless it only holds characters that
// need no quoting.
func ShellQuote(s string) string {
	if len(s) == 0 {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("@%+=:,./-_", r)
}

// JoinCommand quotes and joins argv for a script line.
func JoinCommand(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}
