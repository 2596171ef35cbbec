// Package signal implements the signal conditioner of spec §4.1: decode to
// mono at a fixed sample rate, peak-normalize, trim silence, and apply a
// Butterworth bandpass. Mirrors the teacher's low-pass/downsample style in
// shazam/spectrogram.go (hand-rolled DSP, no external DSP library) but
// implements the fuller pipeline spec.md requires.
package signal

import (
	"math"
	"path/filepath"
	"strings"

	"soundmark/internal/apperr"
	"soundmark/internal/wav"
)

// Sample is a single normalized audio sample, per spec's semantic type.
type Sample = float32

const (
	// LowCutoffHz is the Butterworth bandpass's low cutoff.
	LowCutoffHz = 200.0
	// MaxHighCutoffHz is the nominal high cutoff before the SR clamp.
	MaxHighCutoffHz = 5000.0
	// FilterOrder is the Butterworth filter order.
	FilterOrder = 5
	// silenceThresholdDB is how far below peak RMS counts as silence.
	silenceThresholdDB = 20.0
	// rmsWindow is the short window (in samples) used for the trim's
	// energy envelope.
	rmsWindow = 512
)

// Condition runs the full signal-conditioning pipeline on an audio file
// (mp3 or WAV, see decode) and returns mono PCM at targetSR.
func Condition(path string, targetSR int) ([]Sample, error) {
	info, err := decode(path)
	if err != nil {
		return nil, apperr.New(apperr.KindDecodeFailed, "failed to decode audio source", err)
	}
	if len(info.Samples) == 0 || len(info.Samples[0]) == 0 {
		return nil, apperr.New(apperr.KindDecodeFailed, "decoded audio contains no samples", nil)
	}

	mono := ToMono(info.Samples)

	if info.SampleRate != targetSR {
		mono = Resample(mono, info.SampleRate, targetSR)
	}

	mono = PeakNormalize(mono)

	trimmed := TrimSilence(mono, targetSR)
	if len(trimmed) == 0 {
		return nil, apperr.New(apperr.KindEmptyAfterTrim, "signal is empty after silence trim", nil)
	}

	high := MaxHighCutoffHz
	if nyquistLimit := 0.999 * float64(targetSR) / 2; high > nyquistLimit {
		high = nyquistLimit
	}
	filtered := BandpassFilter(trimmed, LowCutoffHz, high, float64(targetSR), FilterOrder)

	return filtered, nil
}

// decode picks the container reader by file extension: the transcoder's
// canonical output is mp3 (spec §6.4), but Condition also accepts a bare
// WAV path directly, which the test fixtures and wav.WriteFile use.
func decode(path string) (*wav.Info, error) {
	if strings.ToLower(filepath.Ext(path)) == ".mp3" {
		return wav.ReadMP3File(path)
	}
	return wav.ReadFile(path)
}

// ToMono averages all channels down to one, matching spec's "averaging
// channels" contract for multichannel sources.
func ToMono(channels [][]float32) []Sample {
	if len(channels) == 1 {
		out := make([]Sample, len(channels[0]))
		copy(out, channels[0])
		return out
	}
	n := len(channels[0])
	out := make([]Sample, n)
	inv := float32(1) / float32(len(channels))
	for _, ch := range channels {
		for i := 0; i < n && i < len(ch); i++ {
			out[i] += ch[i] * inv
		}
	}
	return out
}

// PeakNormalize divides by max(|x|) if nonzero, per spec's peak-normalize
// contract; a silent signal is left untouched.
func PeakNormalize(x []Sample) []Sample {
	var peak float32
	for _, v := range x {
		av := v
		if av < 0 {
			av = -av
		}
		if av > peak {
			peak = av
		}
	}
	out := make([]Sample, len(x))
	if peak == 0 {
		copy(out, x)
		return out
	}
	for i, v := range x {
		out[i] = v / peak
	}
	return out
}

// TrimSilence keeps the interval between the first and last frames whose
// short-window RMS energy exceeds peak - 20dB, per spec's standard "trim"
// semantics.
func TrimSilence(x []Sample, sampleRate int) []Sample {
	if len(x) == 0 {
		return x
	}

	windows := (len(x) + rmsWindow - 1) / rmsWindow
	rms := make([]float64, windows)
	var peakRMS float64
	for w := 0; w < windows; w++ {
		start := w * rmsWindow
		end := start + rmsWindow
		if end > len(x) {
			end = len(x)
		}
		var sumSq float64
		for _, v := range x[start:end] {
			sumSq += float64(v) * float64(v)
		}
		r := math.Sqrt(sumSq / float64(end-start))
		rms[w] = r
		if r > peakRMS {
			peakRMS = r
		}
	}
	if peakRMS == 0 {
		return nil
	}

	threshold := peakRMS * dbToLinear(-silenceThresholdDB)

	first, last := -1, -1
	for w, r := range rms {
		if r > threshold {
			if first == -1 {
				first = w
			}
			last = w
		}
	}
	if first == -1 {
		return nil
	}

	start := first * rmsWindow
	end := (last + 1) * rmsWindow
	if end > len(x) {
		end = len(x)
	}
	out := make([]Sample, end-start)
	copy(out, x[start:end])
	return out
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
