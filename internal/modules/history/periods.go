package history

const (
	// blocksPerHour is the chain's approximate production rate, used to
	// translate hours into block spans.
	blocksPerHour = 3200

	// minBlockHeight is the safety floor for sampled heights. Queries below
	// roughly this height reliably fail with 422 on public endpoints.
	minBlockHeight = 1_000_000
)

// Periods is the fixed set of sampling windows, in response order.
var Periods = []PeriodConfig{
	{Period: "1H", Value: 1.0 / 6, Interval: 6},
	{Period: "1D", Value: 1, Interval: 12},
	{Period: "1W", Value: 24, Interval: 8},
	{Period: "1M", Value: 24 * 2, Interval: 15},
	{Period: "1Y", Value: 24 * 30, Interval: 12},
	{Period: "All", Value: 24 * 365, Interval: 10},
}

// archivalPeriods marks the windows that reach back far enough to need the
// archival endpoint pool.
var archivalPeriods = map[string]bool{
	"1W":  true,
	"1M":  true,
	"1Y":  true,
	"All": true,
}

// RequiresArchival reports whether a period label must use archival nodes.
// Unknown labels (the single-period endpoint accepts a raw hours value) fall
// back to the step size: a day or more per step reaches beyond recent state.
func RequiresArchival(cfg PeriodConfig) bool {
	if archivalPeriods[cfg.Period] {
		return true
	}
	if _, known := Known(cfg.Period); known {
		return false
	}
	return cfg.Value >= 24
}

// Known returns the configuration for one of the fixed period labels.
func Known(label string) (PeriodConfig, bool) {
	for _, p := range Periods {
		if p.Period == label {
			return p, true
		}
	}
	return PeriodConfig{}, false
}

// blockSpan converts a period's hours-per-step into a block count.
func blockSpan(cfg PeriodConfig) uint64 {
	return uint64(blocksPerHour * cfg.Value)
}

// sampleHeights computes the candidate heights endBlock - span*i for
// i in 0..interval-1, most recent first, dropping anything at or below the
// safety floor.
func sampleHeights(endBlock uint64, cfg PeriodConfig) []uint64 {
	span := blockSpan(cfg)
	heights := make([]uint64, 0, cfg.Interval)
	for i := 0; i < cfg.Interval; i++ {
		offset := span * uint64(i)
		if offset >= endBlock {
			break
		}
		h := endBlock - offset
		if h <= minBlockHeight {
			continue
		}
		heights = append(heights, h)
	}
	return heights
}
