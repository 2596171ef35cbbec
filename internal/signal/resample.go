package signal

import "math"

// Resample converts x from srcRate to dstRate using a windowed-sinc
// (Lanczos) interpolation kernel, a practical stand-in for a polyphase
// resampler: same idea (band-limited interpolation against a finite
// kernel) without precomputing per-phase filter banks.
func Resample(x []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(x) == 0 {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}

	ratio := float64(dstRate) / float64(srcRate)
	outLen := int(math.Round(float64(len(x)) * ratio))
	if outLen <= 0 {
		return nil
	}

	const a = 4 // kernel half-width in source samples
	out := make([]float32, outLen)
	for n := 0; n < outLen; n++ {
		srcPos := float64(n) / ratio
		center := int(math.Floor(srcPos))

		var sum, weightSum float64
		for k := center - a + 1; k <= center+a; k++ {
			if k < 0 || k >= len(x) {
				continue
			}
			d := srcPos - float64(k)
			w := lanczos(d, a)
			sum += w * float64(x[k])
			weightSum += w
		}
		if weightSum != 0 {
			out[n] = float32(sum / weightSum)
		}
	}
	return out
}

func lanczos(x float64, a int) float64 {
	if x == 0 {
		return 1
	}
	fa := float64(a)
	if x < -fa || x > fa {
		return 0
	}
	piX := math.Pi * x
	return fa * math.Sin(piX) * math.Sin(piX/fa) / (piX * piX)
}
