package slurm

import (
	"bytes"
	"path"
	"text/template"

	core "arrayhpc.io/core"
)

// The following values are available to the script template:
//
// Plan        the dispatch plan
// Opts        scheduler-neutral script options
// Command     the quoted task command line
// Output      per-task stdout pattern
// Error       per-task stderr pattern
var scriptTemplate = template.Must(template.New("sbatch").Parse(`#!{{.Shell}}
#SBATCH --job-name={{.Opts.JobName}}
{{.ArrayDirective}}
#SBATCH --output={{.Output}}
#SBATCH --error={{.Error}}
{{if .Opts.Partition -}}
#SBATCH --partition={{.Opts.Partition}}
{{end -}}
{{if .Opts.Account -}}
#SBATCH --account={{.Opts.Account}}
{{end -}}
{{if .Opts.Time -}}
#SBATCH --time={{.Opts.Time}}
{{end -}}
{{if .Opts.Memory -}}
#SBATCH --mem={{.Opts.Memory}}
{{end -}}
{{if ne .Opts.CpusPerTask 0 -}}
#SBATCH --cpus-per-task={{.Opts.CpusPerTask}}
{{end -}}
{{if .Opts.Chdir -}}
#SBATCH --chdir={{.Opts.Chdir}}
{{end}}
{{.Command}}
`))

// ArrayDirective renders the plan as an sbatch range-and-throttle line.
func ArrayDirective(plan core.DispatchPlan) string {
	return "#" + DirectivePrefix + " --array=" + plan.Range()
}

// OutputPatterns returns the per-task stdout and stderr patterns. %A and
// %a keep every task of every submission in its own file.
func OutputPatterns(logDir, jobName string) (string, string) {
	base := path.Join(logDir, jobName+"_%A_%a")
	return base + ".out", base + ".err"
}

// RenderScript renders a complete sbatch script for plan. SLURM numbers
// tasks from the plan's own base, so the command needs no index argument:
// the task reads SLURM_ARRAY_TASK_ID.
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
	var buf bytes.Buffer
	err := scriptTemplate.Execute(&buf, struct {
		Shell          string
		Opts           core.ScriptOptions
		ArrayDirective string
		Output         string
		Error          string
		Command        string
	}{shell, opts, ArrayDirective(plan), output, errput, core.JoinCommand(opts.Command)})
	if err != nil {
		return "", core.Errorf(core.KindTemplate, "render sbatch script: %v", err)
	}
	return buf.String(), nil
}
