package core

import (
	"fmt"
)

// DispatchPlan is the array size and throttle handed to a scheduler. The
// concurrency limit is advisory; it may exceed TaskCount and the scheduler
// clamps it.
type DispatchPlan struct {
	TaskCount        int
	ConcurrencyLimit int
	IndexBase        IndexBase
}

func NewPlan(taskCount, concurrencyLimit int, base IndexBase) (DispatchPlan, error) {
	if taskCount < 1 {
		return DispatchPlan{}, newError(KindEmptyPlan, "task count must be at least 1, got %d", taskCount)
	}
	if concurrencyLimit < 1 {
		return DispatchPlan{}, newError(KindInvalidConcurrency,
			"concurrency limit must be at least 1, got %d", concurrencyLimit)
	}
	if base != BaseZero && base != BaseOne {
		return DispatchPlan{}, newError(KindConfig, "index base must be 0 or 1, got %d", base)
	}
	return DispatchPlan{
		TaskCount:        taskCount,
		ConcurrencyLimit: concurrencyLimit,
		IndexBase:        base,
	}, nil
}

// PlanManifest sizes a plan to cover every unit of m.
func PlanManifest(m *Manifest, concurrencyLimit int, base IndexBase) (DispatchPlan, error) {
	return NewPlan(m.Len(), concurrencyLimit, base)
}

func (p DispatchPlan) First() int { return int(p.IndexBase) }

func (p DispatchPlan) Last() int { return int(p.IndexBase) + p.TaskCount - 1 }

// Range renders "first-last%limit", the SLURM --array value.
func (p DispatchPlan) Range() string {
	return fmt.Sprintf("%d-%d%%%d", p.First(), p.Last(), p.ConcurrencyLimit)
}

// Shift returns the plan renumbered to start at base, for schedulers whose
// task ids have a fixed origin.
func (p DispatchPlan) Shift(base IndexBase) DispatchPlan {
	p.IndexBase = base
	return p
}
