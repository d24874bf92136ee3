package main

import (
	"fmt"
	"path/filepath"

	core "arrayhpc.io/core"
	logger "arrayhpc.io/logger"
	sge "arrayhpc.io/sge"
	slurm "arrayhpc.io/slurm"
	task "arrayhpc.io/task"
)

const (
	schedulerSlurm = "slurm"
	schedulerSge   = "sge"
	binaryName     = "array-hpc"
)

// ScriptFlags are the batch script settings; unset values come from the
// profile.
type ScriptFlags struct {
	JobName     string `short:"J" long:"job-name" description:"job name"`
	Partition   string `short:"p" long:"partition" description:"partition (SLURM) or queue (SGE)"`
	Account     string `short:"A" long:"account" description:"account (SLURM) or project (SGE)"`
	Time        string `short:"t" long:"time" description:"time limit hours:minutes:seconds"`
	Memory      string `long:"mem" description:"memory per task, e.g. 8G"`
	CpusPerTask int    `short:"c" long:"cpus-per-task" description:"cpus per task"`
	LogDir      string `long:"log-dir" description:"directory for the scheduler's per-task logs"`
	Chdir       string `short:"D" long:"chdir" description:"working directory of the job"`
	Shell       string `long:"shell" description:"script interpreter"`
}

func (f *ScriptFlags) options(profile core.Profile) core.ScriptOptions {
	opts := core.ProfileScriptOptions(profile)
	opts.JobName = firstNonEmpty(f.JobName, opts.JobName)
	opts.Partition = firstNonEmpty(f.Partition, opts.Partition)
	opts.Account = firstNonEmpty(f.Account, opts.Account)
	opts.Time = firstNonEmpty(f.Time, opts.Time)
	opts.Memory = firstNonEmpty(f.Memory, opts.Memory)
	opts.CpusPerTask = firstPositive(f.CpusPerTask, opts.CpusPerTask)
	opts.LogDir = firstNonEmpty(f.LogDir, opts.LogDir)
	opts.Chdir = firstNonEmpty(f.Chdir, opts.Chdir)
	opts.Shell = firstNonEmpty(f.Shell, opts.Shell)
	return opts
}

type PlanCommand struct {
	Help        bool          `short:"h" long:"help" description:"Show this help message"`
	Manifest    ManifestFlags `group:"Manifest Options"`
	Profile     ProfileFlags  `group:"Profile Options"`
	Script      ScriptFlags   `group:"Script Options"`
	Count       int           `long:"count" description:"number of tasks, when there is no manifest"`
	Concurrency int           `short:"k" long:"concurrency" description:"maximum tasks running at once"`
	Scheduler   string        `short:"s" long:"scheduler" description:"scheduler directive syntax" choice:"slurm" choice:"sge"`
	Render      bool          `long:"script" description:"render a complete batch script instead of the array directive"`
	Template    string        `short:"T" long:"template" description:"command template run by every task (with --script)"`
	OutDir      string        `short:"o" long:"out-dir" description:"task output directory (with --script)"`
}

func (x *PlanCommand) Execute(args []string) error {
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
	scheduler := firstNonEmpty(x.Scheduler, profile.Scheduler, schedulerSlurm)
	concurrency := x.Concurrency
	if concurrency == 0 {
		concurrency = profile.Concurrency
	}

	var m *core.Manifest
	count := x.Count
	if len(x.Manifest.Manifest) > 0 {
		if count > 0 {
			return core.Errorf(core.KindConfig, "--count and --manifest are exclusive")
		}
		if m, err = x.Manifest.load(); err != nil {
			return err
		}
		count = m.Len()
	}
	plan, err := core.NewPlan(count, concurrency, base)
	if err != nil {
		return err
	}
	logger.InfoObj("plan", plan)

	if !x.Render {
		switch scheduler {
		case schedulerSge:
			for _, line := range sge.ArrayDirectives(plan) {
				fmt.Fprintln(stdout, line)
			}
		default:
			fmt.Fprintln(stdout, slurm.ArrayDirective(plan))
		}
		return nil
	}

	if m == nil || m.Path() == stdinName {
		return core.Errorf(core.KindConfig, "--script needs a --manifest file for the run line")
	}
	if len(x.Template) == 0 {
		return core.Errorf(core.KindConfig, "--script needs --template")
	}
	if err := task.ValidateTemplate(x.Template, m.Schema()); err != nil {
		return err
	}
	opts := x.Script.options(profile)
	opts.Command, err = x.runLine(m, base, profile, opts.JobName)
	if err != nil {
		return err
	}

	var script string
	switch scheduler {
	case schedulerSge:
		script, err = sge.RenderScript(plan, opts)
	default:
		script, err = slurm.RenderScript(plan, opts)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, script)
	return nil
}

// runLine is the task command of the batch script. The manifest digest is
// pinned so an edited manifest fails loudly instead of shifting indexes.
func (x *PlanCommand) runLine(m *core.Manifest, base core.IndexBase, profile core.Profile,
	jobName string) ([]string, error) {
	path, err := filepath.Abs(m.Path())
	if err != nil {
		return nil, core.Errorf(core.KindIO, "").WithPath(m.Path()).Wrap(err)
	}
	argv := []string{binaryName, "run"}
	argv = append(argv, x.Manifest.args(path)...)
	argv = append(argv, "--base", base.String(), "--template", x.Template, "--digest", m.Digest())
	if outDir := firstNonEmpty(x.OutDir, profile.OutDir); len(outDir) > 0 {
		argv = append(argv, "--out-dir", outDir)
	}
	if len(jobName) > 0 {
		argv = append(argv, "--job-name", jobName)
	}
	return argv, nil
}

func init() {
	addCommand("plan",
		"Render array directives for a manifest",
		"The plan command sizes an array job to a manifest (or --count) and prints the "+
			"scheduler's array directive. With --script it renders a complete batch script "+
			"whose tasks call 'array-hpc run'.",
		func() interface{} { return &PlanCommand{} })
}
