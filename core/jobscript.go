package core

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Data for a batch job script
/*
#!/bin/bash
#SBATCH --job-name=align    # Job name
#SBATCH --array=1-791%20
array-hpc run ...
*/
type JobScript struct {
	Shell string
	// Args parsed from directive lines, in order
	Args   []string
	Script []byte
}

// ReadJobScript opens filename and parses it with ParseJobScript.
func ReadJobScript(directive, filename string) (JobScript, error) {
	file, err := os.Open(filename)
	if err != nil {
		return JobScript{}, ioError(filename, err, "open job script")
	}
	defer file.Close()
	return ParseJobScript(directive, file, filename)
}

// ParseJobScript splits a job script into shell, directive arguments and
// body. Directives are read from the block of "#<directive>" lines that
// precedes the first command, which is where schedulers stop looking too.
// Trailing "# comments" on directive lines are dropped.
func ParseJobScript(directive string, r io.Reader, name string) (JobScript, error) {
	var js JobScript
	prefix := "#" + directive
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	first := true
	parsed := false
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			if strings.HasPrefix(line, "#!") {
				js.Shell = strings.TrimSpace(line[2:])
				continue
			}
		}
		trimmed := strings.TrimSpace(line)
		if !parsed {
			if strings.HasPrefix(trimmed, prefix) {
				js.Args = append(js.Args, directiveArgs(trimmed[len(prefix):])...)
				continue
			}
			if len(trimmed) > 0 && trimmed[0] != '#' {
				parsed = true
			}
		}
		js.Script = append(js.Script, line...)
		js.Script = append(js.Script, '\n')
	}
	if err := scanner.Err(); err != nil {
		return JobScript{}, ioError(name, err, "read job script")
	}
	if len(js.Shell) == 0 {
		js.Shell = "/bin/sh"
	}
	return js, nil
}

func directiveArgs(rest string) []string {
	var args []string
	for _, field := range strings.Fields(rest) {
		if strings.HasPrefix(field, "#") {
			break
		}
		args = append(args, field)
	}
	return args
}
