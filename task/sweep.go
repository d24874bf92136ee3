package task

import (
	"context"

	"golang.org/x/sync/errgroup"

	core "arrayhpc.io/core"
	logger "arrayhpc.io/logger"
)

// Sweep runs every index of m on this host, at most limit at a time. A
// failing task does not stop the others. Results are in index order; the
// returned error is only ever the context's.
func Sweep(ctx context.Context, r *Runner, m *core.Manifest, base core.IndexBase,
	tmpl string, limit int) ([]TaskResult, error) {

	plan, err := core.PlanManifest(m, limit, base)
	if err != nil {
		return nil, err
	}
	if err := ValidateTemplate(tmpl, m.Schema()); err != nil {
		return nil, err
	}

	results := make([]TaskResult, m.Len())
	for i, unit := range m.Units() {
		results[i] = TaskResult{Index: core.IndexOf(unit, base), ArrayID: r.ArrayID, State: Pending}
	}
	g := new(errgroup.Group)
	g.SetLimit(plan.ConcurrencyLimit)
	logger.InfoPrintf("sweep %s: %d tasks, %d at a time", r.ArrayID, plan.TaskCount, plan.ConcurrencyLimit)

	for i, unit := range m.Units() {
		if ctx.Err() != nil {
			break
		}
		i, unit := i, unit
		g.Go(func() error {
			index := results[i].Index
			res, err := r.Run(ctx, Invocation{Unit: unit, Index: index, Template: tmpl})
			if err != nil {
				logger.WarningPrintf("task %d: %v", index, err)
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return results, core.Errorf(core.KindCommand, "sweep cancelled").Wrap(err)
	}
	return results, nil
}

// FailedCount counts results that did not succeed.
func FailedCount(results []TaskResult) int {
	n := 0
	for _, res := range results {
		if res.State != Succeeded {
			n++
		}
	}
	return n
}
