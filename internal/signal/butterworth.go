package signal

import (
	"math"
	"math/cmplx"
)

// biquad is one second-order section in Direct Form II Transposed,
// normalized so a0 == 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// onePole is a first-order section, used when an odd filter order leaves
// one unpaired real pole.
type onePole struct {
	b0, b1 float64
	a1     float64
}

// sections is a cascade of biquad and (optionally) one onePole stage, in
// the order they should be applied.
type sections struct {
	biquads []biquad
	tail    *onePole
}

// butterworthPrototype returns the N poles of the order-N analog
// Butterworth lowpass prototype normalized to unit cutoff, ordered so that
// poles[k-1] and poles[N-k] (1-indexed k, N-k+1) are complex conjugates of
// each other -- a direct consequence of the symmetric angle spacing used
// by the standard Butterworth pole formula.
func butterworthPrototype(order int) []complex128 {
	poles := make([]complex128, order)
	for k := 1; k <= order; k++ {
		theta := math.Pi * float64(2*k+order-1) / float64(2*order)
		poles[k-1] = cmplx.Exp(complex(0, theta))
	}
	return poles
}

// designButterworth builds a digital Butterworth filter of the given
// order and cutoff (Hz) at sampleRate (Hz), as either a lowpass or
// highpass, via the standard prewarp + bilinear-transform recipe:
// scale/invert the analog unit-cutoff prototype poles, bilinear-transform
// each to the z-plane, and pair conjugates into biquads.
func designButterworth(order int, cutoffHz, sampleRate float64, highpass bool) sections {
	wc := 2 * sampleRate * math.Tan(math.Pi*cutoffHz/sampleRate)
	proto := butterworthPrototype(order)

	analogPoles := make([]complex128, order)
	for i, p := range proto {
		if highpass {
			analogPoles[i] = complex(wc, 0) / p
		} else {
			analogPoles[i] = complex(wc, 0) * p
		}
	}

	twoFs := 2 * sampleRate
	zPoles := make([]complex128, order)
	for i, p := range analogPoles {
		zPoles[i] = (complex(twoFs, 0) + p) / (complex(twoFs, 0) - p)
	}

	out := sections{}
	i := 1
	for i <= order {
		j := order - i + 1
		if i == j {
			// unpaired real pole (odd order)
			p := real(zPoles[i-1])
			out.tail = &onePole{a1: -p}
			i++
			continue
		}
		p1, p2 := zPoles[i-1], zPoles[j-1]
		a1 := -real(p1 + p2)
		a2 := real(p1 * p2)
		out.biquads = append(out.biquads, biquad{a1: a1, a2: a2})
		i++
	}

	setButterworthGains(&out, highpass)
	return out
}

// setButterworthGains fills in numerator coefficients so the cascade has
// unity gain at DC (lowpass) or Nyquist (highpass); Butterworth lowpass
// zeros are N-fold at z=-1 ((1+z^-1) per section), highpass zeros are
// N-fold at z=+1 ((1-z^-1) per section).
func setButterworthGains(s *sections, highpass bool) {
	sign := 1.0
	if highpass {
		sign = -1.0
	}

	// raw (unnormalized, unity numerator-coefficient) response at the
	// reference frequency: z=1 for lowpass DC gain, z=-1 for highpass
	// Nyquist gain.
	evalPoint := complex(1, 0)
	if highpass {
		evalPoint = complex(-1, 0)
	}

	total := complex(1, 0)
	for _, bq := range s.biquads {
		num := (1 + sign*evalPoint) * (1 + sign*evalPoint)
		den := 1 + complex(bq.a1, 0)*evalPoint + complex(bq.a2, 0)*evalPoint*evalPoint
		total *= num / den
	}
	if s.tail != nil {
		num := 1 + sign*evalPoint
		den := 1 + complex(s.tail.a1, 0)*evalPoint
		total *= num / den
	}

	mag := cmplx.Abs(total)
	if mag == 0 {
		mag = 1
	}
	gainPerStage := math.Pow(1/mag, 1/float64(len(s.biquads)+boolToInt(s.tail != nil)))
	if len(s.biquads) == 0 && s.tail == nil {
		gainPerStage = 1
	}

	for k := range s.biquads {
		s.biquads[k].b0 = gainPerStage * 1
		s.biquads[k].b1 = gainPerStage * 2 * sign
		s.biquads[k].b2 = gainPerStage * 1
	}
	if s.tail != nil {
		s.tail.b0 = gainPerStage * 1
		s.tail.b1 = gainPerStage * sign
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// apply runs x through the cascade in Direct Form II Transposed,
// section by section; each stage writes its output to a fresh slice.
func (s sections) apply(x []float32) []float32 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	for _, bq := range s.biquads {
		out = bq.apply(out)
	}
	if s.tail != nil {
		out = s.tail.apply(out)
	}
	result := make([]float32, len(out))
	for i, v := range out {
		result[i] = float32(v)
	}
	return result
}

func (bq biquad) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	var z1, z2 float64
	for i, xi := range x {
		yi := bq.b0*xi + z1
		z1 = bq.b1*xi - bq.a1*yi + z2
		z2 = bq.b2*xi - bq.a2*yi
		y[i] = yi
	}
	return y
}

func (p onePole) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	var z1 float64
	for i, xi := range x {
		yi := p.b0*xi + z1
		z1 = p.b1*xi - p.a1*yi
		y[i] = yi
	}
	return y
}

// BandpassFilter applies a 5th-order Butterworth bandpass, realized (per
// spec §9's guidance to keep DSP stages simple and composable) as a
// 5th-order highpass at lowHz cascaded with a 5th-order lowpass at highHz.
func BandpassFilter(x []float32, lowHz, highHz, sampleRate float64, order int) []float32 {
	hp := designButterworth(order, lowHz, sampleRate, true)
	lp := designButterworth(order, highHz, sampleRate, false)
	return lp.apply(hp.apply(x))
}
