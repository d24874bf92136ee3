package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func sampleManifest(t *testing.T, n int) *Manifest {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "unit%d\tvalue%d\n", i, i)
	}
	m, err := ParseManifest(strings.NewReader(b.String()), "sample", LoadOptions{Columns: 2})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestResolveInRange(t *testing.T) {
	m := sampleManifest(t, 5)
	for _, base := range []IndexBase{BaseZero, BaseOne} {
		for index := int(base); index < int(base)+m.Len(); index++ {
			u, err := Resolve(m, index, base)
			if err != nil {
				t.Fatalf("base %d index %d: %v", base, index, err)
			}
			want := fmt.Sprintf("unit%d", index-int(base))
			if got := u.Values()[0]; got != want {
				t.Errorf("base %d index %d = %s, want %s", base, index, got, want)
			}
			if IndexOf(u, base) != index {
				t.Errorf("IndexOf = %d, want %d", IndexOf(u, base), index)
			}
		}
	}
}

func TestResolveOutOfRange(t *testing.T) {
	m := sampleManifest(t, 5)
	tests := []struct {
		base  IndexBase
		index int
	}{
		{BaseZero, -1},
		{BaseZero, 5},
		{BaseOne, 0},
		{BaseOne, 6},
		{BaseOne, 1000},
	}
	for _, tt := range tests {
		_, err := Resolve(m, tt.index, tt.base)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("base %d index %d: err = %v", tt.base, tt.index, err)
			continue
		}
		var e *Error
		errors.As(err, &e)
		if !e.HasIndex() || e.Index != tt.index || e.Path != "sample" {
			t.Errorf("missing context in %v", e)
		}
	}
}

func TestResolveRejectsUnknownBase(t *testing.T) {
	m := sampleManifest(t, 2)
	if _, err := Resolve(m, 1, IndexBase(2)); !errors.Is(err, ErrConfig) {
		t.Errorf("err = %v, want ConfigError", err)
	}
	if _, err := ParseIndexBase("2"); !errors.Is(err, ErrConfig) {
		t.Errorf("ParseIndexBase(2) err = %v", err)
	}
}

func TestNewPlan(t *testing.T) {
	p, err := NewPlan(791, 20, BaseOne)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if p.Range() != "1-791%20" {
		t.Errorf("Range() = %q", p.Range())
	}
	p0, _ := NewPlan(791, 20, BaseZero)
	if p0.Range() != "0-790%20" {
		t.Errorf("Range() = %q", p0.Range())
	}
	if _, err := NewPlan(3, 50, BaseOne); err != nil {
		t.Errorf("limit above count should be accepted: %v", err)
	}
	if _, err := NewPlan(0, 20, BaseOne); !errors.Is(err, ErrEmptyPlan) {
		t.Errorf("NewPlan(0, 20) err = %v", err)
	}
	if _, err := NewPlan(10, 0, BaseOne); !errors.Is(err, ErrInvalidConcurrency) {
		t.Errorf("NewPlan(10, 0) err = %v", err)
	}
}

func TestKindOf(t *testing.T) {
	_, err := NewPlan(0, 1, BaseOne)
	if KindOf(err) != KindEmptyPlan || KindOf(err).String() != "EmptyPlanError" {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("plain errors have no kind")
	}
}
