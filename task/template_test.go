package task

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	core "arrayhpc.io/core"
)

func loadUnits(t *testing.T, content string, opts core.LoadOptions) *core.Manifest {
	t.Helper()
	m, err := core.ParseManifest(strings.NewReader(content), "test.tsv", opts)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	return m
}

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		tmpl  string
		names []string
	}{
		{"echo hello", nil},
		{"bwa mem {1} {2} > {3}", []string{"1", "2", "3"}},
		{"cp {sample} {sample}.bak", []string{"sample"}},
		{"awk '{{print $1}}' {file}", []string{"file"}},
		{"echo ${HOME}/{index}", []string{"index"}},
	}
	for _, tt := range tests {
		tm, err := ParseTemplate(tt.tmpl)
		if err != nil {
			t.Errorf("ParseTemplate(%q): %v", tt.tmpl, err)
			continue
		}
		if got := tm.Names(); !reflect.DeepEqual(got, tt.names) {
			t.Errorf("Names(%q) = %v, want %v", tt.tmpl, got, tt.names)
		}
	}
	for _, bad := range []string{"echo {", "echo }", "echo {}", "echo {a b}", "echo ${HOME"} {
		if _, err := ParseTemplate(bad); !errors.Is(err, core.ErrTemplate) {
			t.Errorf("ParseTemplate(%q) err = %v, want TemplateError", bad, err)
		}
	}
}

func TestExpand(t *testing.T) {
	m := loadUnits(t, "r1.fq r2.fq out.bam\n", core.LoadOptions{Columns: 3})
	u, _ := m.At(0)
	tm, _ := ParseTemplate("bwa mem {1} {2} > {3} # {index} {array_id}")

	got, err := tm.Expand(u, 1, "4242", false)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if want := "bwa mem r1.fq r2.fq > out.bam # 1 4242"; got != want {
		t.Errorf("Expand = %q, want %q", got, want)
	}

	tab := loadUnits(t, "my file.fq\tb.fq\n", core.LoadOptions{Fields: []string{"r1", "r2"}, Tab: true})
	u, _ = tab.At(0)
	tm, _ = ParseTemplate("cat {r1} {2}")
	if got, _ := tm.Expand(u, 0, "1", false); got != "cat 'my file.fq' b.fq" {
		t.Errorf("quoted Expand = %q", got)
	}
	if got, _ := tm.Expand(u, 0, "1", true); got != "cat my file.fq b.fq" {
		t.Errorf("raw Expand = %q", got)
	}

	tm, _ = ParseTemplate("echo {missing}")
	if _, err := tm.Expand(u, 7, "1", false); !errors.Is(err, core.ErrTemplate) {
		t.Errorf("unknown placeholder err = %v", err)
	} else if e := err.(*core.Error); !e.HasIndex() || e.Index != 7 {
		t.Errorf("error lacks index: %v", err)
	}
}

func TestRegionPlaceholder(t *testing.T) {
	m, err := core.GenerateWindows([]core.SequenceLength{{Name: "chr1", Length: 250000}}, 100000)
	if err != nil {
		t.Fatal(err)
	}
	u, _ := m.At(0)
	tm, _ := ParseTemplate("caller --region {region} --chrom {chrom}")
	got, err := tm.Expand(u, 0, "9", false)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "caller --region chr1:1-100000 --chrom chr1" {
		t.Errorf("Expand = %q", got)
	}
}

func TestValidateTemplate(t *testing.T) {
	schema := core.Schema{"sample", "reads"}
	if err := ValidateTemplate("align {sample} {reads} {2} {index} {array_id}", schema); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}
	for _, bad := range []string{"align {sample} {region}", "align {3}", "align {other}"} {
		if err := ValidateTemplate(bad, schema); !errors.Is(err, core.ErrTemplate) {
			t.Errorf("ValidateTemplate(%q) err = %v, want TemplateError", bad, err)
		}
	}
	if err := ValidateTemplate("call {region}", core.Schema{"chrom", "start", "stop"}); err != nil {
		t.Errorf("region on BED schema rejected: %v", err)
	}
}

func TestFieldShadowsBuiltin(t *testing.T) {
	m := loadUnits(t, "x\n", core.LoadOptions{Fields: []string{"index"}})
	u, _ := m.At(0)
	tm, _ := ParseTemplate("echo {index}")
	if got, _ := tm.Expand(u, 5, "1", false); got != "echo x" {
		t.Errorf("Expand = %q, want field value", got)
	}
}
