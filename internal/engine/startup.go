package engine

import (
	"context"
	"fmt"
	"io"
	"slices"
)

// progressStep is the smallest change in pull percentage worth printing.
const progressStep = 10

// EnsureReady fails with ErrUnavailable when e cannot be reached. Backends
// that host models locally (ModelManager) pull any of models they lack,
// writing progress lines to w.
func EnsureReady(ctx context.Context, e Engine, models []string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("%w: check the base URL and credentials", ErrUnavailable)
	}
	mm, ok := e.(ModelManager)
	if !ok {
		return nil
	}

	for _, model := range uniqueModels(models) {
		if mm.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: ready\n", model)
			continue
		}
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		if err := mm.PullModel(ctx, model, progressPrinter(w)); err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}
	return nil
}

func uniqueModels(models []string) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m != "" && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// progressPrinter prints a line whenever the status changes or the
// percentage advances by progressStep, so layer downloads do not flood w.
func progressPrinter(w io.Writer) func(PullProgress) {
	lastStatus, lastPct := "", -progressStep
	return func(p PullProgress) {
		if p.Total <= 0 {
			if p.Status != lastStatus {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
			lastStatus, lastPct = p.Status, -progressStep
			return
		}
		pct := int(p.Completed * 100 / p.Total)
		if p.Status == lastStatus && pct-lastPct < progressStep && pct != 100 {
			return
		}
		if p.Status == lastStatus && pct == lastPct {
			return
		}
		fmt.Fprintf(w, "  %s %d%%\n", p.Status, pct)
		lastStatus, lastPct = p.Status, pct
	}
}
