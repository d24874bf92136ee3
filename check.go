package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"

	core "arrayhpc.io/core"
	sge "arrayhpc.io/sge"
	slurm "arrayhpc.io/slurm"
)

type CheckCommand struct {
	Help      bool          `short:"h" long:"help" description:"Show this help message"`
	Manifest  ManifestFlags `group:"Manifest Options"`
	Base      string        `short:"b" long:"base" description:"index base of the manifest (SLURM scripts)" default:"1"`
	Scheduler string        `short:"s" long:"scheduler" description:"directive syntax (default: detected)" choice:"slurm" choice:"sge"`
	Args      struct {
		Script string `positional-arg-name:"jobscript" description:"batch script to check"`
	} `positional-args:"true" required:"1"`
}

// detectScheduler picks the directive syntax the script uses.
func detectScheduler(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", core.Errorf(core.KindIO, "").WithPath(filename).Wrap(errors.Wrap(err, "read job script"))
	}
	if bytes.Contains(data, []byte("\n#"+sge.DirectivePrefix+" ")) {
		return schedulerSge, nil
	}
	return schedulerSlurm, nil
}

func (x *CheckCommand) Execute(args []string) error {
	if x.Help {
		return createHelpErr()
	}
	filename := x.Args.Script
	scheduler := x.Scheduler
	if len(scheduler) == 0 {
		var err error
		if scheduler, err = detectScheduler(filename); err != nil {
			return err
		}
	}
	var m *core.Manifest
	if len(x.Manifest.Manifest) > 0 {
		var err error
		if m, err = x.Manifest.load(); err != nil {
			return err
		}
	}

	var problems, warnings []string
	switch scheduler {
	case schedulerSge:
		d, err := sge.ReadDirectives(filename)
		if err != nil {
			return err
		}
		problems = sge.CheckArrayOutputs(d)
		if m != nil {
			found, err := sge.CheckArrayRange(d, m.Len())
			if err != nil {
				return err
			}
			problems = append(problems, found...)
		}
		for _, opt := range d.Unsupported {
			warnings = append(warnings, "-"+opt+" not checked")
		}
	default:
		d, err := slurm.ReadDirectives(filename)
		if err != nil {
			return err
		}
		findings := slurm.CheckArrayOutputs(d)
		if m != nil {
			base, err := core.ParseIndexBase(x.Base)
			if err != nil {
				return err
			}
			found, err := slurm.CheckArrayRange(d, m.Len(), base)
			if err != nil {
				return err
			}
			findings = append(findings, found...)
		}
		for _, f := range findings {
			if f.Severity == slurm.SeverityError {
				problems = append(problems, f.String())
			} else {
				warnings = append(warnings, f.String())
			}
		}
		for _, opt := range d.Unsupported {
			warnings = append(warnings, "--"+opt+" not checked")
		}
	}

	for _, w := range warnings {
		fmt.Fprintf(stdout, "%s: %s\n", filename, w)
	}
	for _, p := range problems {
		fmt.Fprintf(stdout, "%s: %s\n", filename, p)
	}
	if len(problems) > 0 {
		return &exitError{code: 1}
	}
	fmt.Fprintf(stdout, "%s: ok\n", filename)
	return nil
}

func init() {
	addCommand("check",
		"Check a batch script's array directives",
		"The check command reads the #SBATCH or #$ block of a batch script and reports "+
			"output patterns that every array task would share. With --manifest it also "+
			"checks that the array range covers the manifest exactly.",
		func() interface{} { return &CheckCommand{} })
}
