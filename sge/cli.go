package sge

import (
	"flag"
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	core "arrayhpc.io/core"
)

const DirectivePrefix = "$"

type arrayFlags []string

func (i *arrayFlags) String() string {
	return strings.Join(*i, " ")
}

func (i *arrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

// Directives are the "#$" options of a job script that matter for array
// dispatch.
type Directives struct {
	Tasks       string
	TaskLimit   string
	Output      string
	Error       string
	JobName     string
	Queue       string
	Project     string
	Join        string
	Cwd         bool
	Resources   []string
	Unsupported []string
}

// SGE options are single-dash words (-tc, -cwd), which GNU style parsers
// would split into letters, so the Go flag package is used here.
func newQSubFlags(d *Directives) *flag.FlagSet {
	flags := flag.NewFlagSet("qsub", flag.ContinueOnError)
	flags.SetOutput(ioutil.Discard)
	flags.StringVar(&d.Tasks, "t", "", "Array task range n[-m[:s]]")
	flags.StringVar(&d.TaskLimit, "tc", "", "Max concurrently running tasks")
	flags.StringVar(&d.Output, "o", "", "Output path")
	flags.StringVar(&d.Error, "e", "", "Error path")
	flags.StringVar(&d.JobName, "N", "", "Job name")
	flags.StringVar(&d.Queue, "q", "", "Submit queue")
	flags.StringVar(&d.Project, "P", "", "Project")
	flags.StringVar(&d.Join, "j", "", "Merge stderr into stdout y/n")
	flags.BoolVar(&d.Cwd, "cwd", false, "Current working directory")
	flags.Var((*arrayFlags)(&d.Resources), "l", "Resource request")
	return flags
}

// qsub options that are not inspected, by how many values they take.
// Any other option takes one.
var optionValues = map[string]int{
	"clear":  0,
	"h":      0,
	"hard":   0,
	"help":   0,
	"notify": 0,
	"soft":   0,
	"terse":  0,
	"V":      0,
	"verify": 0,
	"pe":     2,
}

// ParseDirectives parses qsub arguments, skipping options that are not
// inspected together with their values.
func ParseDirectives(args []string) (Directives, error) {
	var d Directives
	flags := newQSubFlags(&d)
	var kept []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name := strings.TrimLeft(arg, "-")
		if !strings.HasPrefix(arg, "-") || flags.Lookup(name) != nil {
			kept = append(kept, arg)
			continue
		}
		n, ok := optionValues[name]
		if !ok {
			n = 1
		}
		if i+n >= len(args) {
			return Directives{}, core.Errorf(core.KindFormat, "qsub option -%s needs %d values", name, n)
		}
		d.Unsupported = append(d.Unsupported, name)
		i += n
	}
	if err := flags.Parse(kept); err != nil {
		return Directives{}, core.Errorf(core.KindFormat, "qsub options: %v", err)
	}
	return d, nil
}

// ReadDirectives parses the "#$" block of a job script.
func ReadDirectives(filename string) (Directives, error) {
	js, err := core.ReadJobScript(DirectivePrefix, filename)
	if err != nil {
		return Directives{}, err
	}
	d, err := ParseDirectives(js.Args)
	if err != nil {
		if e, ok := err.(*core.Error); ok {
			e.WithPath(filename)
		}
		return Directives{}, err
	}
	return d, nil
}

// CheckArrayOutputs reports -o/-e paths that every array task shares. A
// path ending in "/" is a directory and gets SGE's per-task default names.
func CheckArrayOutputs(d Directives) []string {
	if len(d.Tasks) == 0 {
		return nil
	}
	var problems []string
	for _, o := range [][2]string{{"o", d.Output}, {"e", d.Error}} {
		opt, p := o[0], o[1]
		if len(p) == 0 || strings.HasSuffix(p, "/") {
			continue
		}
		if !strings.Contains(p, "$TASK_ID") {
			problems = append(problems, "-"+opt+" "+p+" is shared by every array task; add $TASK_ID")
		}
	}
	return problems
}

// TaskRange parses the -t value n[-m[:s]].
func TaskRange(tasks string) (first, last, step int, err error) {
	bad := func() (int, int, int, error) {
		return 0, 0, 0, core.Errorf(core.KindFormat, "invalid -t range %q", tasks)
	}
	rng, stepStr, hasStep := strings.Cut(tasks, ":")
	step = 1
	if hasStep {
		if step, err = strconv.Atoi(stepStr); err != nil || step < 1 {
			return bad()
		}
	}
	lo, hi, hasHi := strings.Cut(rng, "-")
	if first, err = strconv.Atoi(lo); err != nil || first < 1 {
		return bad()
	}
	last = first
	if hasHi {
		if last, err = strconv.Atoi(hi); err != nil || last < first {
			return bad()
		}
	}
	return first, last, step, nil
}

// CheckArrayRange reports a -t range that does not cover task ids 1..count
// exactly. Plans are always submitted from task id 1 (see ArrayDirectives).
func CheckArrayRange(d Directives, count int) ([]string, error) {
	if len(d.Tasks) == 0 {
		return []string{"script is not an array job"}, nil
	}
	first, last, step, err := TaskRange(d.Tasks)
	if err != nil {
		return nil, err
	}
	if last > count {
		return []string{fmt.Sprintf("-t %s runs task ids past the manifest's %d entries", d.Tasks, count)}, nil
	}
	if first != 1 || last != count || step != 1 {
		return []string{fmt.Sprintf("-t %s does not submit every one of the %d manifest entries", d.Tasks, count)}, nil
	}
	return nil, nil
}
