package blocking

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawDuration_StaysInInclusiveRange(t *testing.T) {
	bounds := [][2]int{{0, 1}, {10, 20}, {1000, 1005}, {100, 5000}}
	for _, b := range bounds {
		minMs, maxMs := b[0], b[1]
		sawMax, sawMin := false, false
		draws := 10_000
		if maxMs-minMs > 100 {
			// wide ranges need more draws before the max shows up
			draws = 200_000
		}
		for i := 0; i < draws; i++ {
			got := DrawDuration(minMs, maxMs, rand.IntN)
			require.GreaterOrEqual(t, got, minMs)
			require.LessOrEqual(t, got, maxMs)
			sawMax = sawMax || got == maxMs
			sawMin = sawMin || got == minMs
		}
		assert.True(t, sawMax, "max %d never drawn", maxMs)
		assert.True(t, sawMin, "min %d never drawn", minMs)
	}
}

func TestDrawDuration_DegenerateBoundsReturnMin(t *testing.T) {
	panicky := func(int) int { panic("no randomness expected") }
	assert.Equal(t, 200, DrawDuration(200, 200, panicky))
	assert.Equal(t, 500, DrawDuration(500, 100, panicky))
	assert.Equal(t, 0, DrawDuration(0, 0, panicky))
}

func TestDrawDuration_UsesOffsetFromMin(t *testing.T) {
	var gotN int
	intN := func(n int) int {
		gotN = n
		return n - 1
	}
	assert.Equal(t, 20, DrawDuration(10, 20, intN))
	assert.Equal(t, 11, gotN)
}

func TestDrawDuration_HugeBoundsAreClamped(t *testing.T) {
	for i := 0; i < 1000; i++ {
		got := DrawDuration(0, math.MaxInt, rand.IntN)
		require.GreaterOrEqual(t, got, 0)
		require.LessOrEqual(t, got, MaxBlockPeriodMs)
	}

	panicky := func(int) int { panic("no randomness expected") }
	assert.Equal(t, MaxBlockPeriodMs, DrawDuration(10_000_000_000_000, 10_000_000_000_000, panicky))
	assert.Equal(t, MaxBlockPeriodMs, DrawDuration(math.MaxInt, math.MinInt, panicky))
	assert.Equal(t, 0, DrawDuration(math.MinInt, 0, panicky))
}

func TestClampBlockPeriod(t *testing.T) {
	assert.Equal(t, 0, ClampBlockPeriod(-1))
	assert.Equal(t, 1500, ClampBlockPeriod(1500))
	assert.Equal(t, MaxBlockPeriodMs, ClampBlockPeriod(MaxBlockPeriodMs))
	assert.Equal(t, MaxBlockPeriodMs, ClampBlockPeriod(math.MaxInt))
	assert.Positive(t, millis(MaxBlockPeriodMs))
}
