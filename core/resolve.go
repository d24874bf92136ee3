package core

import (
	"strconv"
)

// IndexBase is the number assigned to the first manifest entry. SLURM
// ranges are commonly written 1-N to match line numbers, but 0-N-1 is just
// as common, so the base is always explicit.
type IndexBase int

const (
	BaseZero IndexBase = 0
	BaseOne  IndexBase = 1
)

func ParseIndexBase(s string) (IndexBase, error) {
	switch s {
	case "0":
		return BaseZero, nil
	case "1":
		return BaseOne, nil
	}
	return 0, newError(KindConfig, "index base must be 0 or 1, got %q", s)
}

func (b IndexBase) String() string { return strconv.Itoa(int(b)) }

// Resolve maps an array task index to its work unit. Valid indexes are
// [base, base+m.Len()).
func Resolve(m *Manifest, index int, base IndexBase) (WorkUnit, error) {
	if base != BaseZero && base != BaseOne {
		return WorkUnit{}, newError(KindConfig, "index base must be 0 or 1, got %d", base)
	}
	u, ok := m.At(index - int(base))
	if !ok {
		return WorkUnit{}, newError(KindIndexOutOfRange, "valid range is %d-%d",
			int(base), int(base)+m.Len()-1).WithPath(m.path).WithIndex(index)
	}
	return u, nil
}

// IndexOf is the inverse of Resolve: the array index of u under base.
func IndexOf(u WorkUnit, base IndexBase) int {
	return u.position + int(base)
}
