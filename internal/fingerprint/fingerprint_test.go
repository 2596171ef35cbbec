package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"soundmark/internal/peaks"
)

// Hash round-trip, spec §8 invariant 1.
func TestPackUnpackRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f1 := rapid.IntRange(0, 1023).Draw(t, "f1")
		f2 := rapid.IntRange(0, 1023).Draw(t, "f2")
		dt := rapid.IntRange(0, 255).Draw(t, "dt")

		h := Pack(f1, f2, dt)
		gotF1, gotF2, gotDT := Unpack(h)

		assert.Equal(t, f1, gotF1)
		assert.Equal(t, f2, gotF2)
		assert.Equal(t, dt, gotDT)
	})
}

// Hash range, spec §8 invariant 3: every emitted hash occupies at most 28
// bits (f1 and f2 are 10 bits each, dt is 8, for 28 total).
func TestPackStaysWithin28Bits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f1 := rapid.IntRange(0, 1023).Draw(t, "f1")
		f2 := rapid.IntRange(0, 1023).Draw(t, "f2")
		dt := rapid.IntRange(0, 255).Draw(t, "dt")

		h := Pack(f1, f2, dt)
		assert.LessOrEqual(t, h, Hash(1<<28-1))
	})
}

func TestGenerateDeterministic(t *testing.T) {
	pks := []peaks.Peak{
		{Bin: 10, Frame: 0}, {Bin: 20, Frame: 2}, {Bin: 5, Frame: 5},
		{Bin: 30, Frame: 8}, {Bin: 15, Frame: 40},
	}

	a := Generate(pks)
	b := Generate(pks)
	require.Equal(t, a, b)
}

// Pair-window, spec §8 invariant 4: no emitted pair has dt < MinDT or
// dt > MaxDT.
func TestGenerateRespectsDeltaWindow(t *testing.T) {
	pks := make([]peaks.Peak, 0, 50)
	for f := 0; f < 50; f++ {
		pks = append(pks, peaks.Peak{Bin: f % 7, Frame: f})
	}

	fps := Generate(pks)
	require.NotEmpty(t, fps)
	for _, fp := range fps {
		_, _, dt := Unpack(fp.Hash)
		assert.GreaterOrEqual(t, dt, MinDT)
		assert.LessOrEqual(t, dt, MaxDT)
	}
}

func TestGenerateBoundsFanPerAnchor(t *testing.T) {
	pks := make([]peaks.Peak, 0, 25)
	for f := 0; f < 25; f++ {
		pks = append(pks, peaks.Peak{Bin: 1, Frame: f})
	}

	fps := Generate(pks)
	counts := make(map[int]int)
	for _, fp := range fps {
		counts[fp.AnchorFrame]++
	}
	for anchor, count := range counts {
		assert.LessOrEqualf(t, count, Fan, "anchor frame %d exceeded fan %d", anchor, Fan)
	}
}

func TestGenerateOutOfOrderInputSortsFirst(t *testing.T) {
	ordered := []peaks.Peak{{Bin: 1, Frame: 0}, {Bin: 2, Frame: 3}, {Bin: 3, Frame: 6}}
	shuffled := []peaks.Peak{{Bin: 2, Frame: 3}, {Bin: 3, Frame: 6}, {Bin: 1, Frame: 0}}

	require.Equal(t, Generate(ordered), Generate(shuffled))
}

func TestGenerateEmptyInput(t *testing.T) {
	assert.Empty(t, Generate(nil))
}

func TestGenerateSingleAnchorHasNoPairs(t *testing.T) {
	assert.Empty(t, Generate([]peaks.Peak{{Bin: 1, Frame: 0}}))
}
