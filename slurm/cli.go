package slurm

import (
	"io/ioutil"
	"strings"

	flag "github.com/juju/gnuflag"

	core "arrayhpc.io/core"
)

// Option descriptions
const (
	sBatchArrayDesc       = `Submit a job array. Indexes are a comma separated list and/or "-" ranges, with an optional ":step" and a "%limit" on simultaneously running tasks, e.g. "0-15:4%4".`
	sBatchAccountDesc     = `Charge resources used by this job to specified account.`
	sBatchChdirDesc       = `Set the working directory of the batch script before it is executed.`
	sBatchCpusPerTaskDesc = `Number of processors per task.`
	sBatchErrorDesc       = `Connect the batch script's standard error directly to the file name specified in the "filename pattern".`
	sBatchJobNameDesc     = `Specify a name for the job allocation.`
	sBatchMemDesc         = `Specify the real memory required per node. Default units are megabytes. Different units can be specified using the suffix [K|M|G|T].`
	sBatchNodesDesc       = `Request that a minimum of nodes be allocated to this job.`
	sBatchNtasksDesc      = `Number of tasks to launch.`
	sBatchOutputDesc      = `Connect the batch script's standard output directly to the file name specified in the "filename pattern". %A is the array master job id, %a the array task id, %j the job id.`
	sBatchPartitionDesc   = `Request a specific partition for the resource allocation.`
	sBatchTimeDesc        = `Set a limit on the total run time of the job allocation.`
)

// Slurm uses Short and Long command line options
// Save both with golang flag
type gnuFlag struct {
	Short string
	Long  string
	Value *string
}

// Use map to set command line options. map key is the same as Long option
type gnuFlags map[string]gnuFlag

// Check if either Long or Short flag is used
func lookupGnuArg(name string, spec gnuFlags) (string, bool) {
	for k, v := range spec {
		if name == k || (len(v.Short) > 0 && name == v.Short) {
			return k, true
		}
	}
	return "", false
}

// Slurm support Short and Long command line options
// Register both with the same Golang flag
func setFlagString(flags *flag.FlagSet, options gnuFlags, short, long, usage string) {
	flagVar := new(string)
	if len(short) > 0 {
		flags.StringVar(flagVar, short, "", usage)
	}
	flags.StringVar(flagVar, long, "", usage)
	options[long] = gnuFlag{Short: short, Long: long, Value: flagVar}
}

func newSBatchFlags() (*flag.FlagSet, gnuFlags) {
	flags := flag.NewFlagSet("sbatch", flag.ContinueOnError)
	flags.SetOutput(ioutil.Discard)
	options := make(gnuFlags)
	setFlagString(flags, options, "a", "array", sBatchArrayDesc)
	setFlagString(flags, options, "A", "account", sBatchAccountDesc)
	setFlagString(flags, options, "D", "chdir", sBatchChdirDesc)
	setFlagString(flags, options, "c", "cpus-per-task", sBatchCpusPerTaskDesc)
	setFlagString(flags, options, "e", "error", sBatchErrorDesc)
	setFlagString(flags, options, "J", "job-name", sBatchJobNameDesc)
	setFlagString(flags, options, "", "mem", sBatchMemDesc)
	setFlagString(flags, options, "N", "nodes", sBatchNodesDesc)
	setFlagString(flags, options, "n", "ntasks", sBatchNtasksDesc)
	setFlagString(flags, options, "o", "output", sBatchOutputDesc)
	setFlagString(flags, options, "p", "partition", sBatchPartitionDesc)
	setFlagString(flags, options, "t", "time", sBatchTimeDesc)
	return flags, options
}

// splitSupported drops options sbatch accepts but this tool does not
// inspect, so gnuflag does not fail on them. Dropped option names are
// returned for reporting.
func splitSupported(args []string, options gnuFlags) (kept, unsupported []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var name string
		inline := false
		switch {
		case strings.HasPrefix(arg, "--"):
			name = strings.TrimPrefix(arg, "--")
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				name, inline = name[:eq], true
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			name = arg[1:2]
			inline = len(arg) > 2
		default:
			kept = append(kept, arg)
			continue
		}
		if _, ok := lookupGnuArg(name, options); ok {
			kept = append(kept, arg)
			continue
		}
		unsupported = append(unsupported, name)
		// skip a separate value argument
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return kept, unsupported
}

// parseSBatchArgs parses sbatch options into a long-name keyed map of the
// options that were set.
func parseSBatchArgs(args []string) (map[string]string, []string, error) {
	flags, options := newSBatchFlags()
	kept, unsupported := splitSupported(args, options)
	if err := flags.Parse(true, kept); err != nil {
		return nil, nil, core.Errorf(core.KindFormat, "sbatch options: %v", err)
	}
	set := make(map[string]string)
	flags.Visit(func(f *flag.Flag) {
		if key, ok := lookupGnuArg(f.Name, options); ok {
			set[key] = *options[key].Value
		}
	})
	return set, unsupported, nil
}
