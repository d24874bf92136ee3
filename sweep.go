package main

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"

	logger "arrayhpc.io/logger"
	task "arrayhpc.io/task"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	succeededStyle = cellStyle.Foreground(lipgloss.Color("#4CAF50"))
	failedStyle    = cellStyle.Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	pendingStyle   = cellStyle.Foreground(lipgloss.Color("#999999"))
)

func stateStyle(s task.State) lipgloss.Style {
	switch s {
	case task.Succeeded:
		return succeededStyle
	case task.Failed, task.CommandError:
		return failedStyle
	}
	return pendingStyle
}

// resultTable renders one row per task result.
func resultTable(results []task.TaskResult) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("INDEX", "STATE", "EXIT", "TIME", "STDOUT")
	for _, res := range results {
		elapsed := ""
		if !res.Started.IsZero() {
			elapsed = res.Duration().Round(time.Millisecond).String()
		}
		t.Row(strconv.Itoa(res.Index), res.State.String(), strconv.Itoa(res.ExitCode), elapsed, res.StdoutPath)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 1 && row >= 0 && row < len(results) {
			return stateStyle(results[row].State)
		}
		return cellStyle
	})
	return t.String()
}

type SweepCommand struct {
	Help     bool          `short:"h" long:"help" description:"Show this help message"`
	Manifest ManifestFlags `group:"Manifest Options"`
	Profile  ProfileFlags  `group:"Profile Options"`
	Task     TaskFlags     `group:"Task Options"`
	Jobs     int           `short:"j" long:"jobs" description:"tasks running at once (default: profile concurrency, else CPU count)"`
}

func (x *SweepCommand) Execute(args []string) error {
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
	m, err := x.Manifest.load()
	if err != nil {
		return err
	}
	arrayID := x.Task.ArrayID
	if len(arrayID) == 0 {
		// local sweeps get their own id so reruns never overwrite output
		arrayID = "local-" + uuid.NewString()[:8]
	}
	r, err := x.Task.runner(profile, arrayID)
	if err != nil {
		return err
	}
	jobs := firstPositive(x.Jobs, profile.Concurrency, runtime.NumCPU())

	ctx, cancel := signalContext()
	defer cancel()
	results, err := task.Sweep(ctx, r, m, base, x.Task.Template, jobs)
	if results != nil {
		fmt.Fprintln(stdout, resultTable(results))
	}
	if err != nil {
		return err
	}
	failed := task.FailedCount(results)
	fmt.Fprintf(stdout, "%s: %d of %d tasks succeeded\n", arrayID, len(results)-failed, len(results))
	if failed > 0 {
		logger.WarningPrintf("%d tasks failed", failed)
		return &exitError{code: 1}
	}
	return nil
}

func init() {
	addCommand("sweep",
		"Run every array task on this host",
		"The sweep command runs the command template for every manifest entry, "+
			"at most --jobs at a time, and prints a summary table. A failing task "+
			"does not stop the others.",
		func() interface{} { return &SweepCommand{} })
}
