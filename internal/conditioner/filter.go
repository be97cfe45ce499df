package conditioner

import "math"

// biquad is a second-order IIR section in normalized form (a0 == 1),
// evaluated in direct form II transposed.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// butterLowpass designs a second-order Butterworth low-pass section via the
// bilinear transform.
func butterLowpass(cutoffHz, fs float64) biquad {
	k := math.Tan(math.Pi * cutoffHz / fs)
	k2 := k * k
	norm := 1 / (1 + math.Sqrt2*k + k2)
	return biquad{
		b0: k2 * norm,
		b1: 2 * k2 * norm,
		b2: k2 * norm,
		a1: 2 * (k2 - 1) * norm,
		a2: (1 - math.Sqrt2*k + k2) * norm,
	}
}

// butterHighpass designs a second-order Butterworth high-pass section via
// the bilinear transform.
func butterHighpass(cutoffHz, fs float64) biquad {
	k := math.Tan(math.Pi * cutoffHz / fs)
	k2 := k * k
	norm := 1 / (1 + math.Sqrt2*k + k2)
	return biquad{
		b0: norm,
		b1: -2 * norm,
		b2: norm,
		a1: 2 * (k2 - 1) * norm,
		a2: (1 - math.Sqrt2*k + k2) * norm,
	}
}

// notch designs a narrow band-reject section at the given frequency with
// quality factor q (RBJ cookbook form).
func notch(freqHz, q, fs float64) biquad {
	w := 2 * math.Pi * freqHz / fs
	alpha := math.Sin(w) / (2 * q)
	cosw := math.Cos(w)
	a0 := 1 + alpha
	return biquad{
		b0: 1 / a0,
		b1: -2 * cosw / a0,
		b2: 1 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

// lfilter runs the section causally over x with initial state (z1, z2),
// writing the result into out. out may alias x.
func (bq biquad) lfilter(x, out []float64, z1, z2 float64) {
	for i, v := range x {
		y := bq.b0*v + z1
		z1 = bq.b1*v - bq.a1*y + z2
		z2 = bq.b2*v - bq.a2*y
		out[i] = y
	}
}

// dcGain is the section's steady-state response to a constant input.
func (bq biquad) dcGain() float64 {
	return (bq.b0 + bq.b1 + bq.b2) / (1 + bq.a1 + bq.a2)
}

// stateForStep returns the internal state that makes the filter already
// settled on a constant input of amplitude x0, which suppresses the startup
// transient of each forward/backward pass.
func (bq biquad) stateForStep(x0 float64) (z1, z2 float64) {
	gain := bq.dcGain()
	z2 = (bq.b2 - bq.a2*gain) * x0
	z1 = (bq.b1 + bq.b2 - (bq.a1+bq.a2)*gain) * x0
	return z1, z2
}

// padlen is the odd-extension length used by filtfilt: three times the
// section order plus one on each side.
const padlen = 9

// filtfilt applies the section forward and backward for zero phase
// distortion. The input is extended on both ends by odd reflection so the
// filter state can settle before it reaches real data. Inputs of padlen
// samples or fewer return nil.
func (bq biquad) filtfilt(x []float64) []float64 {
	n := len(x)
	if n <= padlen {
		return nil
	}

	ext := make([]float64, n+2*padlen)
	for i := 0; i < padlen; i++ {
		ext[i] = 2*x[0] - x[padlen-i]
		ext[n+padlen+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[padlen:], x)

	// Forward pass.
	z1, z2 := bq.stateForStep(ext[0])
	bq.lfilter(ext, ext, z1, z2)

	// Backward pass over the reversed signal.
	reverse(ext)
	z1, z2 = bq.stateForStep(ext[0])
	bq.lfilter(ext, ext, z1, z2)
	reverse(ext)

	out := make([]float64, n)
	copy(out, ext[padlen:n+padlen])
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// FilterConfig selects the cutoff frequencies of a FilterBank. Zero or
// negative values disable the corresponding stage.
type FilterConfig struct {
	Fs         float64 // sampling rate in Hz (required)
	HighpassHz float64 // drift removal cutoff (default 0.5)
	LowpassHz  float64 // anti-noise cutoff (default 50)
	NotchHz    float64 // mains frequency (default 60)
	NotchQ     float64 // notch quality factor (default 30)
}

// FilterBank is the standard EEG conditioning chain: high-pass to remove
// drift, low-pass to remove high-frequency noise, and a mains notch. All
// stages run zero-phase. Sections are designed once at construction; Apply
// is read-only on the bank and safe to call from multiple goroutines.
type FilterBank struct {
	stages []biquad
}

// NewFilterBank designs the filter sections for the given configuration.
func NewFilterBank(cfg FilterConfig) *FilterBank {
	if cfg.HighpassHz == 0 {
		cfg.HighpassHz = 0.5
	}
	if cfg.LowpassHz == 0 {
		cfg.LowpassHz = 50.0
	}
	if cfg.NotchHz == 0 {
		cfg.NotchHz = 60.0
	}
	if cfg.NotchQ <= 0 {
		cfg.NotchQ = 30.0
	}

	fb := &FilterBank{}
	nyq := cfg.Fs / 2
	if cfg.HighpassHz > 0 && cfg.HighpassHz < nyq {
		fb.stages = append(fb.stages, butterHighpass(cfg.HighpassHz, cfg.Fs))
	}
	if cfg.LowpassHz > 0 && cfg.LowpassHz < nyq {
		fb.stages = append(fb.stages, butterLowpass(cfg.LowpassHz, cfg.Fs))
	}
	if cfg.NotchHz > 0 && cfg.NotchHz < nyq {
		fb.stages = append(fb.stages, notch(cfg.NotchHz, cfg.NotchQ, cfg.Fs))
	}
	return fb
}

// Apply runs the full chain over x and returns the filtered copy. Inputs
// shorter than MinFilterSamples return nil; the zero-phase passes need
// room for their reflection padding.
func (fb *FilterBank) Apply(x []float64) []float64 {
	if len(x) < MinFilterSamples {
		return nil
	}
	y := x
	for _, bq := range fb.stages {
		y = bq.filtfilt(y)
		if y == nil {
			return nil
		}
	}
	if len(fb.stages) == 0 {
		y = make([]float64, len(x))
		copy(y, x)
	}
	return y
}

// MinFilterSamples is the shortest window the zero-phase chain accepts.
const MinFilterSamples = padlen + 1

// StreamFilter runs the bank's chain causally, one sample at a time, with
// persistent state across calls. Streaming consumers use it where the
// zero-phase passes are impossible because future samples do not exist yet.
// The first sample primes every section as if the input had held that value
// forever, so a signal with a DC offset starts without a settling transient.
type StreamFilter struct {
	stages []biquad
	z1, z2 []float64
	primed bool
}

// NewStream returns a fresh causal instance of the bank's chain. Instances
// are independent; one per channel.
func (fb *FilterBank) NewStream() *StreamFilter {
	return &StreamFilter{
		stages: fb.stages,
		z1:     make([]float64, len(fb.stages)),
		z2:     make([]float64, len(fb.stages)),
	}
}

// Process filters one sample through the chain.
func (sf *StreamFilter) Process(v float64) float64 {
	if !sf.primed {
		u := v
		for i, bq := range sf.stages {
			sf.z1[i], sf.z2[i] = bq.stateForStep(u)
			u *= bq.dcGain()
		}
		sf.primed = true
	}
	for i, bq := range sf.stages {
		y := bq.b0*v + sf.z1[i]
		sf.z1[i] = bq.b1*v - bq.a1*y + sf.z2[i]
		sf.z2[i] = bq.b2*v - bq.a2*y
		v = y
	}
	return v
}
