// Package history reconstructs token balance time series by sampling chain
// state at computed block heights through the RPC gateway.
package history

// BalancePoint is a single sample of a balance history series.
type BalancePoint struct {
	// Timestamp is epoch milliseconds, interpolated between two known block
	// timestamps rather than fetched per block.
	Timestamp int64 `json:"timestamp" msgpack:"timestamp"`

	// Date is the human-readable label for the point, formatted according
	// to the period's step size.
	Date string `json:"date" msgpack:"date"`

	// Balance is the converted decimal amount with two fractional digits.
	Balance string `json:"balance" msgpack:"balance"`
}

// PeriodConfig parameterizes how far back and how densely to sample.
type PeriodConfig struct {
	// Period is the label, e.g. "1W".
	Period string `json:"period"`

	// Value is hours per step.
	Value float64 `json:"value"`

	// Interval is the number of samples.
	Interval int `json:"interval"`
}

// Summary holds descriptive statistics over a period's converted balances.
// Exposed through the system status endpoint for observability; never part
// of the balance history response itself.
type Summary struct {
	Period string  `json:"period"`
	Points int     `json:"points"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}
