package sge

import (
	"fmt"
	"path"
	"strings"

	core "arrayhpc.io/core"
)

// ArrayDirectives renders the plan as "-t" and "-tc" lines. SGE task ids
// start at 1, so a 0-based plan is submitted as 1..N and the task command
// subtracts one (see RenderScript).
func ArrayDirectives(plan core.DispatchPlan) []string {
	p := plan.Shift(core.BaseOne)
	return []string{
		fmt.Sprintf("#%s -t %d-%d", DirectivePrefix, p.First(), p.Last()),
		fmt.Sprintf("#%s -tc %d", DirectivePrefix, p.ConcurrencyLimit),
	}
}

// OutputPatterns uses the qsub pseudo variables so each task of each
// submission gets its own files.
func OutputPatterns(logDir, jobName string) (string, string) {
	base := path.Join(logDir, jobName+".$JOB_ID.$TASK_ID")
	return base + ".out", base + ".err"
}

// IndexExpr is the shell expression for the manifest index of the running
// task under plan.
func IndexExpr(plan core.DispatchPlan) string {
	if plan.IndexBase == core.BaseOne {
		return `"$SGE_TASK_ID"`
	}
	return `"$((SGE_TASK_ID - 1))"`
}

// RenderScript renders a complete qsub script for plan.
func RenderScript(plan core.DispatchPlan, opts core.ScriptOptions) (string, error) {
	if len(opts.JobName) == 0 {
		opts.JobName = "array"
	}
	if len(opts.LogDir) == 0 {
		opts.LogDir = "."
	}
	shell := opts.Shell
	if len(shell) == 0 {
		shell = "/bin/bash"
	}
	output, errput := OutputPatterns(opts.LogDir, opts.JobName)

	var b strings.Builder
	line := func(format string, a ...interface{}) {
		fmt.Fprintf(&b, "#"+DirectivePrefix+" "+format+"\n", a...)
	}
	fmt.Fprintf(&b, "#!%s\n", shell)
	line("-S %s", shell)
	line("-N %s", opts.JobName)
	for _, d := range ArrayDirectives(plan) {
		b.WriteString(d + "\n")
	}
	line("-o %s", output)
	line("-e %s", errput)
	if len(opts.Chdir) > 0 {
		line("-wd %s", opts.Chdir)
	} else {
		line("-cwd")
	}
	if len(opts.Partition) > 0 {
		line("-q %s", opts.Partition)
	}
	if len(opts.Account) > 0 {
		line("-P %s", opts.Account)
	}
	if len(opts.Time) > 0 {
		line("-l h_rt=%s", opts.Time)
	}
	if len(opts.Memory) > 0 {
		line("-l h_vmem=%s", opts.Memory)
	}
	if opts.CpusPerTask > 0 {
		line("-pe smp %d", opts.CpusPerTask)
	}
	b.WriteString("\n")
	b.WriteString(core.JoinCommand(opts.Command))
	b.WriteString(" --index " + IndexExpr(plan) + "\n")
	return b.String(), nil
}
