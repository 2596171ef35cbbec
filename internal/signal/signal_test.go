package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeakNormalizeScalesToUnity(t *testing.T) {
	x := []Sample{0.1, -0.5, 0.25, -0.125}
	out := PeakNormalize(x)

	var peak float32
	for _, v := range out {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	assert.InDelta(t, 1.0, peak, 1e-6)
}

func TestPeakNormalizeLeavesSilenceUntouched(t *testing.T) {
	x := []Sample{0, 0, 0}
	out := PeakNormalize(x)
	assert.Equal(t, x, out)
}

func TestToMonoAveragesChannels(t *testing.T) {
	left := []float32{1, 1, 1}
	right := []float32{-1, -1, -1}
	out := ToMono([][]float32{left, right})
	for _, v := range out {
		assert.InDelta(t, 0, v, 1e-6)
	}
}

func TestToMonoSingleChannelPassthrough(t *testing.T) {
	ch := []float32{0.5, -0.5}
	out := ToMono([][]float32{ch})
	assert.Equal(t, ch, out)
}

// TrimSilence keeps only the interval whose short-window RMS clears peak
// - 20dB, per spec §4.1.
func TestTrimSilenceDropsLeadingAndTrailingQuiet(t *testing.T) {
	const sr = 44100
	loud := make([]Sample, rmsWindow*4)
	for i := range loud {
		loud[i] = Sample(math.Sin(2 * math.Pi * 440 * float64(i) / sr))
	}
	silence := make([]Sample, rmsWindow*4)

	x := append(append(append([]Sample{}, silence...), loud...), silence...)
	out := TrimSilence(x, sr)

	require.NotEmpty(t, out)
	assert.Less(t, len(out), len(x))
	// the trimmed region should be dominated by the loud signal's energy
	var sumSq float64
	for _, v := range out {
		sumSq += float64(v) * float64(v)
	}
	assert.Greater(t, sumSq, 0.0)
}

func TestTrimSilenceAllSilentReturnsEmpty(t *testing.T) {
	x := make([]Sample, rmsWindow*3)
	out := TrimSilence(x, 44100)
	assert.Empty(t, out)
}

func TestResamplePreservesLengthRatio(t *testing.T) {
	x := make([]float32, 44100)
	for i := range x {
		x[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}
	out := Resample(x, 44100, 22050)
	assert.InDelta(t, len(x)/2, len(out), 2)
}

func TestResampleNoopWhenRatesMatch(t *testing.T) {
	x := []float32{0.1, 0.2, 0.3}
	out := Resample(x, 44100, 44100)
	assert.Equal(t, x, out)
}

func TestBandpassFilterPassesMidBandEnergy(t *testing.T) {
	const sr = 44100.0
	n := 4096
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / sr))
	}
	out := BandpassFilter(x, 200, 5000, sr, 5)
	require.Len(t, out, n)

	var inEnergy, outEnergy float64
	for i := range x {
		inEnergy += float64(x[i]) * float64(x[i])
		outEnergy += float64(out[i]) * float64(out[i])
	}
	// a 1kHz tone sits well inside [200,5000]Hz; energy shouldn't collapse
	assert.Greater(t, outEnergy, inEnergy*0.1)
}

func TestBandpassFilterAttenuatesOutOfBand(t *testing.T) {
	const sr = 44100.0
	n := 4096
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(math.Sin(2 * math.Pi * 50 * float64(i) / sr)) // well below the 200Hz low cutoff
	}
	out := BandpassFilter(x, 200, 5000, sr, 5)

	var inEnergy, outEnergy float64
	for i := range x {
		inEnergy += float64(x[i]) * float64(x[i])
		outEnergy += float64(out[i]) * float64(out[i])
	}
	assert.Less(t, outEnergy, inEnergy*0.5)
}
