package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	core "arrayhpc.io/core"
	logger "arrayhpc.io/logger"
	task "arrayhpc.io/task"
)

// TaskFlags configure the task runner; unset values come from the profile.
type TaskFlags struct {
	Template string `short:"T" long:"template" description:"command template, e.g. 'bwa mem {1} {2} > {3}'" required:"true"`
	OutDir   string `short:"o" long:"out-dir" description:"directory for task stdout and stderr files"`
	WorkDir  string `short:"w" long:"workdir" description:"working directory of the task command"`
	JobName  string `short:"J" long:"job-name" description:"prefix of the task output files" default:"task"`
	Shell    string `long:"shell" description:"shell running the command" default:"/bin/sh"`
	Raw      bool   `long:"raw" description:"substitute values without shell quoting"`
	ArrayID  string `long:"array-id" description:"array submission id (default: from the scheduler environment)"`
}

// runner builds the task runner. arrayID overrides the scheduler's id.
func (f *TaskFlags) runner(profile core.Profile, arrayID string) (*task.Runner, error) {
	r, err := task.NewRunner(arrayID, firstNonEmpty(f.OutDir, profile.OutDir, "."))
	if err != nil {
		return nil, err
	}
	r.WorkDir = f.WorkDir
	r.JobName = f.JobName
	r.Shell = f.Shell
	r.Raw = f.Raw
	return r, nil
}

func (f *TaskFlags) arrayID() (string, error) {
	if len(f.ArrayID) > 0 {
		return f.ArrayID, nil
	}
	env, err := core.ReadEnvFunc(lookupEnv)
	if err != nil {
		return "", err
	}
	logger.DebugPrintf("array id %s from %s", env.ArrayID, env.Source)
	return env.ArrayID, nil
}

// signalContext is cancelled by SIGINT or SIGTERM, which the scheduler
// sends when a task is cancelled or hits its time limit.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type RunCommand struct {
	Help        bool          `short:"h" long:"help" description:"Show this help message"`
	Manifest    ManifestFlags `group:"Manifest Options"`
	Profile     ProfileFlags  `group:"Profile Options"`
	Task        TaskFlags     `group:"Task Options"`
	Index       string        `short:"i" long:"index" description:"array task index (default: SLURM_ARRAY_TASK_ID or SGE_TASK_ID)"`
	Digest      string        `long:"digest" description:"fail unless the manifest still has this SHA-256 digest"`
	NoPropagate bool          `long:"no-propagate" description:"exit 0 when the command fails"`
}

func (x *RunCommand) Execute(args []string) error {
	if x.Help {
		return createHelpErr()
	}
	profile, err := x.Profile.load()
	if err != nil {
		return err
	}
	base, err := x.Profile.indexBase(profile)
	if err != nil {
		return err
	}
	arrayID, err := x.Task.arrayID()
	if err != nil {
		return err
	}
	index, err := taskIndex(x.Index)
	if err != nil {
		return err
	}
	logger.SetTask(arrayID, index)

	m, err := x.Manifest.load()
	if err != nil {
		return err
	}
	if len(x.Digest) > 0 && x.Digest != m.Digest() {
		return core.Errorf(core.KindManifestChanged, "digest is %s, the job was planned for %s",
			m.Digest(), x.Digest).WithPath(m.Path()).WithIndex(index)
	}
	r, err := x.Task.runner(profile, arrayID)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	res, err := r.RunIndex(ctx, m, index, base, x.Task.Template, nil)
	if err != nil {
		return err
	}
	logger.InfoObj("result", res)
	if res.State == task.Failed {
		logger.WarningPrintf("command exited %d, output in %s", res.ExitCode, res.StderrPath)
		if !x.NoPropagate {
			return &exitError{code: res.ExitCode}
		}
	}
	return nil
}

func init() {
	addCommand("run",
		"Run the command of one array task",
		"The run command resolves the task's manifest entry, substitutes it into the "+
			"command template and runs it with sh -c. Output goes to "+
			"<out-dir>/<job-name>.<array-id>.<index>.out and .err. The command's exit "+
			"code becomes the task's exit code unless --no-propagate is set.",
		func() interface{} { return &RunCommand{} })
}
