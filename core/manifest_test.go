package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadManifestSkipsCommentsAndBlanks(t *testing.T) {
	path := writeFile(t, "pairs.tsv", "a\tb\n#comment\n\nc\td\ne\tf\n")

	m, err := LoadManifest(path, LoadOptions{Columns: 2})
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}}
	for i, w := range want {
		u, ok := m.At(i)
		if !ok {
			t.Fatalf("At(%d) missing", i)
		}
		if got := strings.Join(u.Values(), ","); got != strings.Join(w, ",") {
			t.Errorf("At(%d) = %s, want %s", i, got, strings.Join(w, ","))
		}
	}
	if u, _ := m.At(1); u.Line() != 4 {
		t.Errorf("second unit line = %d, want 4", u.Line())
	}
	if u, ok := m.Line(1); !ok || u.Values()[0] != "a" {
		t.Errorf("Line(1) = %v, %v", u.Values(), ok)
	}
	if _, ok := m.Line(0); ok {
		t.Error("Line(0) should not exist")
	}
}

func TestLoadManifestNamedFields(t *testing.T) {
	m, err := ParseManifest(strings.NewReader("r1.fq r2.fq out.bam\n"), "pairs",
		LoadOptions{Fields: []string{"read1", "read2", "output"}})
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	u, _ := m.At(0)
	if v, ok := u.Get("read2"); !ok || v != "r2.fq" {
		t.Errorf("Get(read2) = %q, %v", v, ok)
	}
	if v, ok := u.Get("3"); !ok || v != "out.bam" {
		t.Errorf("Get(3) = %q, %v", v, ok)
	}
	if _, ok := u.Get("read3"); ok {
		t.Error("Get(read3) should fail")
	}
	if got := u.Map()["read1"]; got != "r1.fq" {
		t.Errorf("Map()[read1] = %q", got)
	}
}

func TestLoadManifestInfersColumns(t *testing.T) {
	m, err := ParseManifest(strings.NewReader("# header\nx y z\n1 2 3\n"), "inferred", LoadOptions{})
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if got := strings.Join(m.Schema(), ","); got != "1,2,3" {
		t.Errorf("Schema() = %s, want 1,2,3", got)
	}
}

func TestLoadManifestTabKeepsSpaces(t *testing.T) {
	m, err := ParseManifest(strings.NewReader("my file.fq\t\tout\n"), "tab", LoadOptions{Columns: 3, Tab: true})
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	u, _ := m.At(0)
	vals := u.Values()
	if vals[0] != "my file.fq" || vals[1] != "" || vals[2] != "out" {
		t.Errorf("Values() = %q", vals)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    LoadOptions
		want    error
		line    int
	}{
		{"wrong columns", "a b\nc d e\n", LoadOptions{Columns: 2}, ErrFormat, 2},
		{"inferred mismatch", "a b\n\nc\n", LoadOptions{}, ErrFormat, 3},
		{"empty", "# only comments\n\n", LoadOptions{Columns: 1}, ErrEmptyManifest, 0},
		{"bad bed start", "chr1 x 10\n", LoadOptions{BED: true}, ErrFormat, 1},
		{"bed stop before start", "chr1 10 10\n", LoadOptions{BED: true}, ErrFormat, 1},
		{"duplicate fields", "a b\n", LoadOptions{Fields: []string{"x", "x"}}, ErrConfig, 0},
		{"fields and columns disagree", "a b\n", LoadOptions{Fields: []string{"x"}, Columns: 2}, ErrConfig, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(tt.content), "m.txt", tt.opts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("err is %T, want *Error", err)
			}
			if e.Path != "m.txt" {
				t.Errorf("Path = %q, want m.txt", e.Path)
			}
			if e.Line != tt.line {
				t.Errorf("Line = %d, want %d", e.Line, tt.line)
			}
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.txt"), LoadOptions{})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("err = %v, want IOError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("underlying cause lost: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "IOError ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestManifestDigest(t *testing.T) {
	a, err := ParseManifest(strings.NewReader("a b\n"), "a", LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseManifest(strings.NewReader("a b\n"), "b", LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	c, err := ParseManifest(strings.NewReader("a c\n"), "c", LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest() != b.Digest() {
		t.Error("identical content should share a digest")
	}
	if a.Digest() == c.Digest() {
		t.Error("different content should change the digest")
	}
	if len(a.Digest()) != 64 {
		t.Errorf("digest %q is not hex SHA-256", a.Digest())
	}
}

func TestBEDManifestIntervals(t *testing.T) {
	m, err := ParseManifest(strings.NewReader("chr1\t0\t100000\nchr2\t5\t9\n"), "regions.bed", LoadOptions{BED: true})
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	u, _ := m.At(0)
	iv, ok := u.Interval()
	if !ok {
		t.Fatal("Interval() not available for BED manifest")
	}
	if iv.Region() != "chr1:1-100000" {
		t.Errorf("Region() = %q", iv.Region())
	}
	if v, _ := u.Get(FieldStop); v != "100000" {
		t.Errorf("Get(stop) = %q", v)
	}
}
