package core

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SequenceLength is one row of a length table such as a samtools .fai index.
type SequenceLength struct {
	Name   string
	Length int64
}

// LoadLengths reads a whitespace-delimited table whose first two columns
// are sequence name and length. Extra columns are ignored so .fai files
// work as is.
func LoadLengths(path string) ([]SequenceLength, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError(path, err, "open lengths")
	}
	defer f.Close()
	return ParseLengths(f, path)
}

func ParseLengths(r io.Reader, name string) ([]SequenceLength, error) {
	var lengths []SequenceLength
	seen := make(map[string]int)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < 2 {
			return nil, newError(KindFormat, "expected name and length").WithPath(name).WithLine(lineNo)
		}
		length, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return nil, newError(KindFormat, "invalid length %q", cols[1]).WithPath(name).WithLine(lineNo)
		}
		if prev, ok := seen[cols[0]]; ok {
			return nil, newError(KindFormat, "sequence %q already listed on line %d", cols[0], prev).
				WithPath(name).WithLine(lineNo)
		}
		seen[cols[0]] = lineNo
		lengths = append(lengths, SequenceLength{Name: cols[0], Length: length})
	}
	if err := scanner.Err(); err != nil {
		return nil, ioError(name, err, "read lengths")
	}
	if len(lengths) == 0 {
		return nil, newError(KindEmptyManifest, "no sequences").WithPath(name)
	}
	return lengths, nil
}

// GenerateWindows splits every sequence, in input order, into consecutive
// windows [k*size, min((k+1)*size, length)). The last window of a sequence
// is shorter when its length is not a multiple of size.
func GenerateWindows(lengths []SequenceLength, size int64) (*Manifest, error) {
	if size <= 0 {
		return nil, newError(KindInvalidWindowSize, "window size must be positive, got %d", size)
	}
	for _, seq := range lengths {
		if seq.Length <= 0 {
			return nil, newError(KindInvalidLength, "sequence %q has length %d", seq.Name, seq.Length)
		}
	}
	if len(lengths) == 0 {
		return nil, newError(KindEmptyManifest, "no sequences to window")
	}

	var rows [][]string
	hash := sha256.New()
	for _, seq := range lengths {
		for start := int64(0); start < seq.Length; {
			// compared as a difference: start+size may not fit an int64
			stop := seq.Length
			if size < seq.Length-start {
				stop = start + size
			}
			iv := Interval{Sequence: seq.Name, Start: start, Stop: stop}
			rows = append(rows, iv.values())
			fmt.Fprintln(hash, iv.BED())
			start = stop
		}
	}
	return newManifest("windows", bedSchema, rows, hex.EncodeToString(hash.Sum(nil))), nil
}

// Intervals returns every unit of a BED-schema manifest as an Interval.
func (m *Manifest) Intervals() ([]Interval, error) {
	out := make([]Interval, 0, len(m.units))
	for _, u := range m.units {
		iv, ok := u.Interval()
		if !ok {
			return nil, newError(KindFormat, "not an interval manifest").WithPath(m.path).WithLine(u.line)
		}
		out = append(out, iv)
	}
	return out, nil
}

// WriteBED writes an interval manifest as 3-column BED. The bytes written
// hash to m.Digest().
func WriteBED(w io.Writer, m *Manifest) error {
	intervals, err := m.Intervals()
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, iv := range intervals {
		if _, err := fmt.Fprintln(bw, iv.BED()); err != nil {
			return ioError(m.path, err, "write BED")
		}
	}
	if err := bw.Flush(); err != nil {
		return ioError(m.path, err, "write BED")
	}
	return nil
}
