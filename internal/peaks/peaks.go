// Package peaks extracts sparse constellation points from a spectrogram
// via a 2-D maximum filter and an adaptive amplitude threshold, per spec
// §4.3. Grounded on the local-maximum neighborhood check in
// himanishpuri-AcousticDNA's internal/fingerprint/peaks.go, generalized
// from per-frame frequency bands to the full rectangular neighborhood the
// spec requires.
package peaks

import "soundmark/internal/spectrogram"

// NeighborhoodFreq and NeighborhoodTime are the 2-D max-filter's
// rectangular neighborhood size (frequency x time), per spec §4.3.
const (
	NeighborhoodFreq = 19
	NeighborhoodTime = 19
)

// Peak is one (bin, frame) constellation point.
type Peak struct {
	Bin   int
	Frame int
}

// Extract finds every cell that is locally maximal within a
// (NeighborhoodFreq x NeighborhoodTime) reflect-bounded neighborhood and
// whose magnitude is at least the mean dB value over all such locally
// maximal cells.
func Extract(s spectrogram.Spectrogram) []Peak {
	bins := len(s.Data)
	if bins == 0 || s.Frames == 0 {
		return nil
	}
	frames := s.Frames

	halfFreq := NeighborhoodFreq / 2
	halfTime := NeighborhoodTime / 2

	candidates := make([]Peak, 0, bins*frames/8)
	var sum float64

	for b := 0; b < bins; b++ {
		for f := 0; f < frames; f++ {
			v := s.Data[b][f]
			if isLocalMax(s, b, f, halfFreq, halfTime) {
				candidates = append(candidates, Peak{Bin: b, Frame: f})
				sum += v
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}
	threshold := sum / float64(len(candidates))

	out := make([]Peak, 0, len(candidates))
	for _, p := range candidates {
		if s.Data[p.Bin][p.Frame] >= threshold {
			out = append(out, p)
		}
	}
	return out
}

func isLocalMax(s spectrogram.Spectrogram, b, f, halfFreq, halfTime int) bool {
	v := s.Data[b][f]
	bins := len(s.Data)
	frames := s.Frames

	for db := -halfFreq; db <= halfFreq; db++ {
		bb := reflect(b+db, bins)
		for dt := -halfTime; dt <= halfTime; dt++ {
			ff := reflect(f+dt, frames)
			if s.Data[bb][ff] > v {
				return false
			}
		}
	}
	return true
}

// reflect implements "reflect" boundary handling: indices past the edge
// mirror back into range about the edge sample, which is not repeated
// (-1 maps to 1, n maps to n-2).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
