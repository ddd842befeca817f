package scan

import (
	"sort"

	"github.com/samber/lo"

	"github.com/msoedov/agentic-security/internal/engine"
)

// ModuleResult is one module's line in a CI report.
type ModuleResult struct {
	Name          string
	FailureRate   float64 // percentage, 0..100
	Bucket        string  // none/low/medium/high, per configured Thresholds
	OverThreshold bool
	Status        string // last status event observed for this module, if any
}

// Report is the per-module outcome of one completed (or stopped) scan.
type Report struct {
	Modules  []ModuleResult
	Stopped  bool
}

// BuildReport collapses a drained event stream into a Report: the last
// tick per module gives its failure rate, maxThreshold (a ratio, 0..1)
// gates OverThreshold, and thresholds buckets it for display.
func BuildReport(events []engine.ScanProgressEvent, maxThreshold float64, thresholds ThresholdConfig) Report {
	lastTick := make(map[string]engine.ScanProgressEvent)
	lastStatus := make(map[string]string)
	seenModule := make(map[string]bool)
	stopped := false

	order := make([]string, 0)

	for _, ev := range events {
		if !seenModule[ev.Module] {
			seenModule[ev.Module] = true
			order = append(order, ev.Module)
		}

		switch ev.Kind {
		case engine.EventTick:
			lastTick[ev.Module] = ev
		case engine.EventStatus:
			lastStatus[ev.Module] = ev.Status
			if ev.Status == string(engine.StatusStopped) {
				stopped = true
			}
		}
	}

	sort.Strings(order)

	// A module that errored or was stopped before its first tick (e.g. it
	// hit three consecutive transport errors inside the first tickInterval
	// window) still belongs in the report: silently omitting it would let
	// the CI gate exit clean on a module that never actually ran.
	modules := lo.Map(order, func(name string, _ int) ModuleResult {
		status := lastStatus[name]

		tick, hasTick := lastTick[name]
		if !hasTick {
			return ModuleResult{
				Name:          name,
				Bucket:        "none",
				OverThreshold: status == string(engine.StatusErrored),
				Status:        status,
			}
		}

		rate := tick.FailureRate

		return ModuleResult{
			Name:          name,
			FailureRate:   rate,
			Bucket:        bucketFor(rate, thresholds),
			OverThreshold: rate/100 > maxThreshold || status == string(engine.StatusErrored),
			Status:        status,
		}
	})

	return Report{Modules: modules, Stopped: stopped}
}

func bucketFor(failureRatePct float64, t ThresholdConfig) string {
	rate := failureRatePct / 100

	switch {
	case rate >= t.High:
		return "high"
	case rate >= t.Medium:
		return "medium"
	case rate >= t.Low:
		return "low"
	default:
		return "none"
	}
}

// AnyOverThreshold reports whether any module in the report exceeded the
// configured gate.
func (r Report) AnyOverThreshold() bool {
	return lo.SomeBy(r.Modules, func(m ModuleResult) bool { return m.OverThreshold })
}

// ExitCode maps a report to the CI exit codes: 0 all within
// threshold, 1 over threshold, 3 stopped. (2, config/spec parse error,
// is returned directly by the caller before a Report ever exists.)
func (r Report) ExitCode() int {
	switch {
	case r.Stopped:
		return 3
	case r.AnyOverThreshold():
		return 1
	default:
		return 0
	}
}
