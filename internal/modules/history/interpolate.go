package history

import (
	"errors"
	"math"
)

// ErrTooFewSteps is returned when interpolation is asked for fewer than two
// points. With one point there is no line to interpolate along; this is a
// programming error at the call site.
var ErrTooFewSteps = errors.New("number of steps must be at least 2 for interpolation")

const tenMinutesMillis = 600_000

// InterpolateTimestamps returns steps values linearly spaced from start to
// end (both in epoch millis), each rounded to the nearest millisecond.
func InterpolateTimestamps(start, end int64, steps int) ([]int64, error) {
	if steps < 2 {
		return nil, ErrTooFewSteps
	}

	stepSize := float64(end-start) / float64(steps-1)
	out := make([]int64, steps)
	for i := range out {
		out[i] = int64(math.Round(float64(start) + float64(i)*stepSize))
	}
	return out, nil
}

// InterpolateTimestampsToTenMinutes is InterpolateTimestamps with each value
// additionally rounded to the nearest 10-minute boundary. Bucketed timestamps
// are stable cache keys and read cleanly on charts; the precision loss is at
// most five minutes per sample.
func InterpolateTimestampsToTenMinutes(start, end int64, steps int) ([]int64, error) {
	values, err := InterpolateTimestamps(start, end, steps)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = int64(math.Round(float64(v)/tenMinutesMillis)) * tenMinutesMillis
	}
	return values, nil
}
