package task

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	core "arrayhpc.io/core"
	logger "arrayhpc.io/logger"
)

// State of one task invocation. Succeeded, Failed and CommandError are
// final.
type State int

const (
	Pending State = iota
	Resolving
	Running
	Succeeded
	Failed
	CommandError
)

var stateNames = [...]string{"Pending", "Resolving", "Running", "Succeeded", "Failed", "CommandError"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s State) Final() bool { return s >= Succeeded }

// TaskResult records one finished invocation. A non-zero exit is reported
// here as data, not as an error.
type TaskResult struct {
	Index      int       `json:"index"`
	ArrayID    string    `json:"array_id"`
	State      State     `json:"state"`
	ExitCode   int       `json:"exit_code"`
	Command    string    `json:"command,omitempty"`
	StdoutPath string    `json:"stdout"`
	StderrPath string    `json:"stderr"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	// Err is the CommandError message, if any
	Err string `json:"error,omitempty"`
}

func (r TaskResult) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Environment variables set for every task command
const (
	EnvIndex       = core.TaskIndexEnv
	EnvArrayID     = core.ArrayIDEnv
	EnvFieldPrefix = "ARRAY_HPC_FIELD_"
)

// Invocation is one task: a work unit, its array index and the command
// template to run for it. Env nil means the runner's process environment.
type Invocation struct {
	Unit     core.WorkUnit
	Index    int
	Template string
	Env      []string
}

// Runner executes task commands for one array submission.
type Runner struct {
	ArrayID string
	// OutDir receives <JobName>.<ArrayID>.<index>.out and .err
	OutDir string
	// WorkDir is the command's working directory; empty means the current one
	WorkDir string
	JobName string
	Shell   string
	// Raw disables shell quoting of substituted values
	Raw bool
	// OnState observes every state transition
	OnState func(index int, s State)
}

// NewRunner validates arrayID and creates outDir.
func NewRunner(arrayID, outDir string) (*Runner, error) {
	if err := core.ValidateArrayID(arrayID); err != nil {
		return nil, err
	}
	if len(outDir) == 0 {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, core.Errorf(core.KindIO, "").WithPath(outDir).Wrap(errors.Wrap(err, "create output dir"))
	}
	return &Runner{
		ArrayID: arrayID,
		OutDir:  outDir,
		JobName: "task",
		Shell:   "/bin/sh",
	}, nil
}

// OutputPaths names the stdout and stderr files of index. Distinct
// (ArrayID, index) pairs never share a path: ArrayID holds no separator
// and the index is the all-digit last component.
func (r *Runner) OutputPaths(index int) (string, string) {
	base := filepath.Join(r.OutDir, fmt.Sprintf("%s.%s.%d", r.JobName, r.ArrayID, index))
	return base + ".out", base + ".err"
}

func (r *Runner) transition(res *TaskResult, s State) {
	res.State = s
	logger.DebugPrintf("task %s:%d %s", r.ArrayID, res.Index, s)
	if r.OnState != nil {
		r.OnState(res.Index, s)
	}
}

// RunIndex resolves index in m and runs it.
func (r *Runner) RunIndex(ctx context.Context, m *core.Manifest, index int, base core.IndexBase,
	tmpl string, env []string) (TaskResult, error) {

	res := TaskResult{Index: index, ArrayID: r.ArrayID}
	r.transition(&res, Pending)
	r.transition(&res, Resolving)
	unit, err := core.Resolve(m, index, base)
	if err != nil {
		res.ExitCode = -1
		res.Err = err.Error()
		r.transition(&res, CommandError)
		return res, err
	}
	return r.run(ctx, &res, Invocation{Unit: unit, Index: index, Template: tmpl, Env: env})
}

// Run substitutes inv.Unit into inv.Template and runs the command with sh
// -c, capturing output to the index's files.
func (r *Runner) Run(ctx context.Context, inv Invocation) (TaskResult, error) {
	res := TaskResult{Index: inv.Index, ArrayID: r.ArrayID}
	r.transition(&res, Pending)
	r.transition(&res, Resolving)
	return r.run(ctx, &res, inv)
}

func (r *Runner) run(ctx context.Context, res *TaskResult, inv Invocation) (TaskResult, error) {
	res.StdoutPath, res.StderrPath = r.OutputPaths(inv.Index)
	fail := func(err *core.Error) (TaskResult, error) {
		res.ExitCode = -1
		res.Finished = time.Now()
		err = err.WithIndex(inv.Index)
		res.Err = err.Error()
		r.transition(res, CommandError)
		return *res, err
	}

	tmpl, err := ParseTemplate(inv.Template)
	if err != nil {
		return fail(err.(*core.Error))
	}
	command, err := tmpl.Expand(inv.Unit, inv.Index, r.ArrayID, r.Raw)
	if err != nil {
		return fail(err.(*core.Error))
	}
	res.Command = command

	stdout, err := newPending(res.StdoutPath)
	if err != nil {
		return fail(core.Errorf(core.KindIO, "").WithPath(res.StdoutPath).Wrap(err))
	}
	defer stdout.discard()
	stderr, err := newPending(res.StderrPath)
	if err != nil {
		return fail(core.Errorf(core.KindIO, "").WithPath(res.StderrPath).Wrap(err))
	}
	defer stderr.discard()

	cmd := exec.CommandContext(ctx, r.Shell, "-c", command)
	cmd.Dir = r.WorkDir
	cmd.Env = r.environ(inv)
	cmd.Stdout = stdout.f
	cmd.Stderr = stderr.f
	setProcessGroup(cmd)

	res.Started = time.Now()
	if err := cmd.Start(); err != nil {
		return fail(core.Errorf(core.KindCommand, "start %s", r.Shell).Wrap(err))
	}
	r.transition(res, Running)
	waitErr := cmd.Wait()
	res.Finished = time.Now()

	if ctx.Err() != nil {
		return fail(core.Errorf(core.KindCommand, "cancelled").Wrap(ctx.Err()))
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return fail(core.Errorf(core.KindCommand, "wait").Wrap(waitErr))
		}
		res.ExitCode = exitCode(exitErr)
	}
	// Publish output even on failure: the files are complete
	if err := stdout.commit(); err != nil {
		return fail(core.Errorf(core.KindIO, "").WithPath(res.StdoutPath).Wrap(err))
	}
	if err := stderr.commit(); err != nil {
		return fail(core.Errorf(core.KindIO, "").WithPath(res.StderrPath).Wrap(err))
	}
	if res.ExitCode == 0 {
		r.transition(res, Succeeded)
	} else {
		r.transition(res, Failed)
	}
	return *res, nil
}

func (r *Runner) environ(inv Invocation) []string {
	env := inv.Env
	if env == nil {
		env = os.Environ()
	}
	env = append([]string(nil), env...)
	env = append(env,
		EnvIndex+"="+strconv.Itoa(inv.Index),
		EnvArrayID+"="+r.ArrayID,
	)
	fields, values := inv.Unit.Fields(), inv.Unit.Values()
	for i, name := range fields {
		env = append(env, FieldEnv(name)+"="+values[i])
	}
	return env
}

// FieldEnv names the environment variable that carries field name:
// ARRAY_HPC_FIELD_ plus the name upper-cased, other characters as '_'.
func FieldEnv(name string) string {
	return EnvFieldPrefix + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}

// pendingFile is written under a unique temporary name and renamed into
// place by commit, so a killed task never leaves a half-written final file.
type pendingFile struct {
	f    *os.File
	tmp  string
	dest string
	done bool
}

func newPending(dest string) (*pendingFile, error) {
	tmp := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "create temporary output")
	}
	return &pendingFile{f: f, tmp: tmp, dest: dest}, nil
}

func (p *pendingFile) commit() error {
	if err := p.f.Sync(); err != nil {
		return errors.Wrap(err, "sync output")
	}
	if err := p.f.Close(); err != nil {
		return errors.Wrap(err, "close output")
	}
	if err := os.Rename(p.tmp, p.dest); err != nil {
		return errors.Wrap(err, "publish output")
	}
	p.done = true
	return nil
}

func (p *pendingFile) discard() {
	if p.done {
		return
	}
	p.f.Close()
	os.Remove(p.tmp)
}
