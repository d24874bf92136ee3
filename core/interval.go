package core

import (
	"fmt"
	"strconv"
)

// Interval is a half-open range [Start, Stop) on a named sequence, stored
// 0-based like BED.
type Interval struct {
	Sequence string
	Start    int64
	Stop     int64
}

func (iv Interval) Len() int64 { return iv.Stop - iv.Start }

// Region renders the 1-based closed form "seq:start-stop" expected by
// samtools, bcftools and GATK.
func (iv Interval) Region() string {
	return fmt.Sprintf("%s:%d-%d", iv.Sequence, iv.Start+1, iv.Stop)
}

// BED renders the 0-based half-open 3-column form.
func (iv Interval) BED() string {
	return fmt.Sprintf("%s\t%d\t%d", iv.Sequence, iv.Start, iv.Stop)
}

func (iv Interval) values() []string {
	return []string{
		iv.Sequence,
		strconv.FormatInt(iv.Start, 10),
		strconv.FormatInt(iv.Stop, 10),
	}
}

func parseInterval(values []string) (Interval, *Error) {
	if len(values) != 3 {
		return Interval{}, newError(KindFormat, "interval needs 3 columns, found %d", len(values))
	}
	start, err := strconv.ParseInt(values[1], 10, 64)
	if err != nil || start < 0 {
		return Interval{}, newError(KindFormat, "invalid start %q", values[1])
	}
	stop, err := strconv.ParseInt(values[2], 10, 64)
	if err != nil {
		return Interval{}, newError(KindFormat, "invalid stop %q", values[2])
	}
	if stop <= start {
		return Interval{}, newError(KindFormat, "stop %d not after start %d", stop, start)
	}
	return Interval{Sequence: values[0], Start: start, Stop: stop}, nil
}
