package slurm

import (
	"fmt"
	"strconv"
	"strings"

	core "arrayhpc.io/core"
)

const DirectivePrefix = "SBATCH"

// Slurm's default output pattern for array jobs
const defaultArrayOutput = "slurm-%A_%a.out"

// Directives are the #SBATCH options of a job script that matter for array
// dispatch.
type Directives struct {
	Array       string
	Output      string
	Error       string
	JobName     string
	Partition   string
	Account     string
	Time        string
	Mem         string
	Chdir       string
	CpusPerTask string
	// Unsupported lists options that were present but not inspected
	Unsupported []string
}

// ReadDirectives parses the #SBATCH block of a job script.
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

// ParseDirectives parses sbatch arguments, such as those collected from a
// script's directive lines.
func ParseDirectives(args []string) (Directives, error) {
	set, unsupported, err := parseSBatchArgs(args)
	if err != nil {
		return Directives{}, err
	}
	return Directives{
		Array:       set["array"],
		Output:      set["output"],
		Error:       set["error"],
		JobName:     set["job-name"],
		Partition:   set["partition"],
		Account:     set["account"],
		Time:        set["time"],
		Mem:         set["mem"],
		Chdir:       set["chdir"],
		CpusPerTask: set["cpus-per-task"],
		Unsupported: unsupported,
	}, nil
}

// MaxArrayIndex is the largest array index SLURM accepts: MaxArraySize is
// capped at 4000001 and indexes stay below it.
const MaxArrayIndex = 4000000

// ArraySpec is a parsed --array value.
type ArraySpec struct {
	Indexes []int
	// Limit is the "%N" throttle, 0 when absent
	Limit int
}

func (a ArraySpec) Min() int {
	min := a.Indexes[0]
	for _, i := range a.Indexes {
		if i < min {
			min = i
		}
	}
	return min
}

func (a ArraySpec) Max() int {
	max := a.Indexes[0]
	for _, i := range a.Indexes {
		if i > max {
			max = i
		}
	}
	return max
}

// ParseArray parses "0-15", "0,6,16-32", "0-15:4" and "1-791%20".
func ParseArray(spec string) (ArraySpec, error) {
	var a ArraySpec
	bad := func(format string, args ...interface{}) (ArraySpec, error) {
		return ArraySpec{}, core.Errorf(core.KindFormat, "--array=%s: %s", spec, fmt.Sprintf(format, args...))
	}
	list := spec
	if pct := strings.IndexByte(spec, '%'); pct >= 0 {
		limit, err := strconv.Atoi(spec[pct+1:])
		if err != nil || limit < 1 {
			return bad("invalid limit %q", spec[pct+1:])
		}
		a.Limit = limit
		list = spec[:pct]
	}
	if len(list) == 0 {
		return bad("no indexes")
	}
	var seen []bool
	expanded := 0
	for _, part := range strings.Split(list, ",") {
		step := 1
		if colon := strings.IndexByte(part, ':'); colon >= 0 {
			s, err := strconv.Atoi(part[colon+1:])
			if err != nil || s < 1 {
				return bad("invalid step %q", part[colon+1:])
			}
			step, part = s, part[:colon]
		}
		lo, hi := part, part
		if dash := strings.IndexByte(part, '-'); dash >= 0 {
			lo, hi = part[:dash], part[dash+1:]
		}
		first, err1 := strconv.Atoi(lo)
		last, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil || first < 0 || last < first {
			return bad("invalid range %q", part)
		}
		if last > MaxArrayIndex {
			return bad("index %d is above %d", last, MaxArrayIndex)
		}
		expanded += (last-first)/step + 1
		if expanded > MaxArrayIndex+1 {
			return bad("more than %d indexes", MaxArrayIndex+1)
		}
		if last >= len(seen) {
			seen = append(seen, make([]bool, last+1-len(seen))...)
		}
		for i := first; i <= last; i += step {
			if !seen[i] {
				seen[i] = true
				a.Indexes = append(a.Indexes, i)
			}
		}
	}
	return a, nil
}

// Severity of a Finding
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

type Finding struct {
	Severity string
	Option   string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: --%s: %s", f.Severity, f.Option, f.Message)
}

// CheckArrayOutputs reports output patterns that let array tasks overwrite
// each other. Without %a or %j every task of the array writes one file;
// without %A or %j a resubmitted array overwrites the previous run's logs.
func CheckArrayOutputs(d Directives) []Finding {
	if len(d.Array) == 0 {
		return nil
	}
	var findings []Finding
	check := func(option, pattern string) {
		if len(pattern) == 0 {
			return
		}
		perTask := strings.Contains(pattern, "%a") || strings.Contains(pattern, "%j")
		perArray := strings.Contains(pattern, "%A") || strings.Contains(pattern, "%j")
		switch {
		case !perTask:
			findings = append(findings, Finding{SeverityError, option,
				fmt.Sprintf("%q is shared by every array task; add %%a", pattern)})
		case !perArray:
			findings = append(findings, Finding{SeverityWarning, option,
				fmt.Sprintf("%q is reused by every submission; add %%A", pattern)})
		}
	}
	output := d.Output
	if len(output) == 0 {
		output = defaultArrayOutput
	}
	check("output", output)
	check("error", d.Error)
	if len(d.Error) > 0 && d.Error == output {
		findings = append(findings, Finding{SeverityWarning, "error",
			"same pattern as --output; stdout and stderr interleave in one file"})
	}
	return findings
}

// CheckArrayRange reports array indexes outside the manifest range
// [base, base+count).
func CheckArrayRange(d Directives, count int, base core.IndexBase) ([]Finding, error) {
	if len(d.Array) == 0 {
		return []Finding{{SeverityError, "array", "script is not an array job"}}, nil
	}
	spec, err := ParseArray(d.Array)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	first, last := int(base), int(base)+count-1
	if spec.Min() < first || spec.Max() > last {
		findings = append(findings, Finding{SeverityError, "array",
			fmt.Sprintf("indexes %d-%d fall outside the manifest range %d-%d",
				spec.Min(), spec.Max(), first, last)})
	} else if len(spec.Indexes) < count {
		findings = append(findings, Finding{SeverityWarning, "array",
			fmt.Sprintf("%d of %d manifest entries are not submitted", count-len(spec.Indexes), count)})
	}
	return findings, nil
}
