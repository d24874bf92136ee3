package core

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestGenerateWindowsShortTail(t *testing.T) {
	m, err := GenerateWindows([]SequenceLength{{Name: "chr1", Length: 250000}}, 100000)
	if err != nil {
		t.Fatalf("GenerateWindows: %v", err)
	}
	got, err := m.Intervals()
	if err != nil {
		t.Fatal(err)
	}
	want := []Interval{
		{"chr1", 0, 100000},
		{"chr1", 100000, 200000},
		{"chr1", 200000, 250000},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("intervals = %v, want %v", got, want)
	}
}

func TestGenerateWindowsCoverage(t *testing.T) {
	lengths := []SequenceLength{
		{Name: "chr2", Length: 1},
		{Name: "chr1", Length: 999},
		{Name: "chrM", Length: 16569},
		{Name: "chrX", Length: 3000},
	}
	for _, size := range []int64{1, 7, 1000, 20000} {
		m, err := GenerateWindows(lengths, size)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		intervals, _ := m.Intervals()
		total := map[string]int64{}
		var order []string
		for i, iv := range intervals {
			if iv.Stop <= iv.Start {
				t.Fatalf("size %d: empty interval %v", size, iv)
			}
			if iv.Len() > size {
				t.Fatalf("size %d: interval %v longer than window", size, iv)
			}
			if i > 0 && intervals[i-1].Sequence == iv.Sequence && intervals[i-1].Stop != iv.Start {
				t.Fatalf("size %d: gap or overlap between %v and %v", size, intervals[i-1], iv)
			}
			if i == 0 || intervals[i-1].Sequence != iv.Sequence {
				if iv.Start != 0 {
					t.Fatalf("size %d: %s does not start at 0", size, iv.Sequence)
				}
				order = append(order, iv.Sequence)
			}
			total[iv.Sequence] += iv.Len()
		}
		for i, seq := range lengths {
			if total[seq.Name] != seq.Length {
				t.Errorf("size %d: %s covered %d, want %d", size, seq.Name, total[seq.Name], seq.Length)
			}
			if order[i] != seq.Name {
				t.Errorf("size %d: sequence order %v", size, order)
			}
		}
	}
}

func TestGenerateWindowsErrors(t *testing.T) {
	if _, err := GenerateWindows([]SequenceLength{{"chr1", 10}}, 0); !errors.Is(err, ErrInvalidWindowSize) {
		t.Errorf("size 0: err = %v", err)
	}
	if _, err := GenerateWindows([]SequenceLength{{"chr1", 10}}, -5); !errors.Is(err, ErrInvalidWindowSize) {
		t.Errorf("size -5: err = %v", err)
	}
	if _, err := GenerateWindows([]SequenceLength{{"chr1", 10}, {"chr2", 0}}, 5); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("length 0: err = %v", err)
	}
}

func TestGenerateWindowsNearMaxLength(t *testing.T) {
	const size = math.MaxInt64 - 1
	m, err := GenerateWindows([]SequenceLength{{"chrU", math.MaxInt64}}, size)
	if err != nil {
		t.Fatalf("GenerateWindows: %v", err)
	}
	got, _ := m.Intervals()
	want := []Interval{
		{"chrU", 0, size},
		{"chrU", size, math.MaxInt64},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("intervals = %v, want %v", got, want)
	}
}

func TestParseLengthsFai(t *testing.T) {
	fai := "chr1\t248956422\t112\t70\t71\nchr2\t242193529\t252513167\t70\t71\n"
	lengths, err := ParseLengths(strings.NewReader(fai), "ref.fa.fai")
	if err != nil {
		t.Fatalf("ParseLengths: %v", err)
	}
	want := []SequenceLength{{"chr1", 248956422}, {"chr2", 242193529}}
	if !reflect.DeepEqual(lengths, want) {
		t.Fatalf("lengths = %v, want %v", lengths, want)
	}

	if _, err := ParseLengths(strings.NewReader("chr1 10\nchr1 20\n"), "dup"); !errors.Is(err, ErrFormat) {
		t.Errorf("duplicate name: err = %v", err)
	}
	if _, err := ParseLengths(strings.NewReader("chr1 ten\n"), "bad"); !errors.Is(err, ErrFormat) {
		t.Errorf("bad length: err = %v", err)
	}
}

func TestWriteBEDRoundTrip(t *testing.T) {
	m, err := GenerateWindows([]SequenceLength{{"chr1", 25}, {"chr2", 10}}, 10)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteBED(&buf, m); err != nil {
		t.Fatalf("WriteBED: %v", err)
	}
	want := "chr1\t0\t10\nchr1\t10\t20\nchr1\t20\t25\nchr2\t0\t10\n"
	if buf.String() != want {
		t.Fatalf("BED = %q, want %q", buf.String(), want)
	}
	loaded, err := ParseManifest(&buf, "windows.bed", LoadOptions{BED: true})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Digest() != m.Digest() {
		t.Error("reloaded BED digest differs from generated manifest")
	}
}

func TestIntervalRendering(t *testing.T) {
	iv := Interval{Sequence: "chr1", Start: 0, Stop: 100000}
	if got := iv.Region(); got != "chr1:1-100000" {
		t.Errorf("Region() = %q", got)
	}
	if got := iv.BED(); got != "chr1\t0\t100000" {
		t.Errorf("BED() = %q", got)
	}
}
