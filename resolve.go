package main

import (
	"fmt"
	"strconv"
	"strings"

	core "arrayhpc.io/core"
	task "arrayhpc.io/task"
)

type ResolveCommand struct {
	Help     bool          `short:"h" long:"help" description:"Show this help message"`
	Manifest ManifestFlags `group:"Manifest Options"`
	Profile  ProfileFlags  `group:"Profile Options"`
	Index    string        `short:"i" long:"index" description:"array task index (default: SLURM_ARRAY_TASK_ID or SGE_TASK_ID)"`
	Format   string        `long:"format" description:"output format" choice:"tsv" choice:"env" choice:"region" default:"tsv"`
}

// taskIndex parses flag, falling back to the scheduler's task id.
func taskIndex(flag string) (int, error) {
	if len(flag) > 0 {
		index, err := strconv.Atoi(flag)
		if err != nil {
			return 0, core.Errorf(core.KindConfig, "invalid --index %q", flag)
		}
		return index, nil
	}
	index, ok, err := core.TaskIndexFunc(lookupEnv)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, core.Errorf(core.KindConfig, "no task index: pass --index or run inside an array job")
	}
	return index, nil
}

func (x *ResolveCommand) Execute(args []string) error {
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
	index, err := taskIndex(x.Index)
	if err != nil {
		return err
	}
	m, err := x.Manifest.load()
	if err != nil {
		return err
	}
	unit, err := core.Resolve(m, index, base)
	if err != nil {
		return err
	}

	switch x.Format {
	case "env":
		fields, values := unit.Fields(), unit.Values()
		for i := range fields {
			fmt.Fprintf(stdout, "%s=%s\n", task.FieldEnv(fields[i]), core.ShellQuote(values[i]))
		}
	case "region":
		iv, ok := unit.Interval()
		if !ok {
			return core.Errorf(core.KindFormat, "entry is not an interval; use --bed with a chrom,start,stop manifest").
				WithPath(m.Path()).WithLine(unit.Line())
		}
		fmt.Fprintln(stdout, iv.Region())
	default:
		fmt.Fprintln(stdout, strings.Join(unit.Values(), "\t"))
	}
	return nil
}

func init() {
	addCommand("resolve",
		"Print the manifest entry of an array task",
		"The resolve command maps an array task index to its manifest entry. "+
			"The index base is never guessed: pass --base or set index_base in the profile.",
		func() interface{} { return &ResolveCommand{} })
}
