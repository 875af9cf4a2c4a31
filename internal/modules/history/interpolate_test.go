package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateTimestamps(t *testing.T) {
	t.Run("endpoints are exact", func(t *testing.T) {
		out, err := InterpolateTimestamps(1_000, 10_000, 10)
		require.NoError(t, err)
		require.Len(t, out, 10)
		assert.Equal(t, int64(1_000), out[0])
		assert.Equal(t, int64(10_000), out[9])
	})

	t.Run("values are non-decreasing", func(t *testing.T) {
		out, err := InterpolateTimestamps(0, 7_777_777, 13)
		require.NoError(t, err)
		for i := 1; i < len(out); i++ {
			assert.GreaterOrEqual(t, out[i], out[i-1])
		}
	})

	t.Run("even spacing", func(t *testing.T) {
		out, err := InterpolateTimestamps(0, 900, 4)
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 300, 600, 900}, out)
	})

	t.Run("fewer than two steps fails", func(t *testing.T) {
		_, err := InterpolateTimestamps(0, 100, 1)
		assert.ErrorIs(t, err, ErrTooFewSteps)

		_, err = InterpolateTimestamps(0, 100, 0)
		assert.ErrorIs(t, err, ErrTooFewSteps)
	})
}

func TestInterpolateTimestampsToTenMinutes(t *testing.T) {
	t.Run("all values on ten minute boundaries", func(t *testing.T) {
		out, err := InterpolateTimestampsToTenMinutes(1_700_000_123_456, 1_700_086_523_456, 12)
		require.NoError(t, err)
		for _, v := range out {
			assert.Zero(t, v%tenMinutesMillis, "timestamp %d not bucketed", v)
		}
	})

	t.Run("rounding moves at most five minutes", func(t *testing.T) {
		start, end := int64(1_700_000_123_456), int64(1_700_086_523_456)
		raw, err := InterpolateTimestamps(start, end, 12)
		require.NoError(t, err)
		bucketed, err := InterpolateTimestampsToTenMinutes(start, end, 12)
		require.NoError(t, err)
		for i := range raw {
			diff := bucketed[i] - raw[i]
			if diff < 0 {
				diff = -diff
			}
			assert.LessOrEqual(t, diff, int64(tenMinutesMillis/2))
		}
	})

	t.Run("propagates step validation", func(t *testing.T) {
		_, err := InterpolateTimestampsToTenMinutes(0, 100, 1)
		assert.ErrorIs(t, err, ErrTooFewSteps)
	})
}
