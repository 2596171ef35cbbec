package spectrogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBinCount(t *testing.T) {
	x := make([]float32, NFFT*4)
	s := Build(x)
	assert.Equal(t, Bins, len(s.Data))
}

// Number of time frames under centered framing, per spec §4.2:
// ceil((len(x) - N_FFT) / HOP) + 1.
func TestBuildFrameCountMatchesFormula(t *testing.T) {
	cases := []int{NFFT, NFFT + Hop, NFFT + Hop*3, NFFT * 5}
	for _, n := range cases {
		x := make([]float32, n)
		s := Build(x)
		want := int(math.Ceil(float64(n-NFFT)/float64(Hop))) + 1
		assert.Equal(t, want, s.Frames, "frame count mismatch for n=%d", n)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	s := Build(nil)
	assert.Equal(t, 0, s.Frames)
}

func TestBuildSilenceFloorsAtMinusEighty(t *testing.T) {
	x := make([]float32, NFFT*3)
	s := Build(x)
	for _, row := range s.Data {
		for _, v := range row {
			assert.Equal(t, FloorDB, v)
		}
	}
}

// A pure tone's dB magnitude never exceeds 0 (its own reference maximum).
func TestBuildReferencedToOwnMaximum(t *testing.T) {
	const sr = 44100.0
	n := NFFT * 4
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / sr))
	}
	s := Build(x)
	require.NotZero(t, s.Frames)
	for _, row := range s.Data {
		for _, v := range row {
			assert.LessOrEqual(t, v, 0.0)
			assert.GreaterOrEqual(t, v, FloorDB)
		}
	}
}

func TestFrameRate(t *testing.T) {
	assert.InDelta(t, 107.04, FrameRate(44100), 0.01)
}
