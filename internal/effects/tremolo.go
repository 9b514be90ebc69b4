package effects

import "math"

// Tremolo waveforms.
const (
	WaveSaw      = 0
	WaveSquare   = 1
	WaveTriangle = 2
	WaveRandom   = 3
)

var tremoloKind = kind{
	name:     "Tremolo",
	category: "Modulation",
	params: []paramSpec{
		{name: "depth", def: 0.5, min: 0, max: 1},
		{name: "rate_hz", def: 5, min: 0.1, max: 20},
		{name: "waveform", def: WaveTriangle, min: WaveSaw, max: WaveRandom},
	},
	build: func(sampleRate int, p []float64) Effector {
		return NewTremolo(sampleRate, p[0], p[1], int(math.Round(p[2])))
	},
}

// Tremolo modulates amplitude with a low-frequency oscillator.
type Tremolo struct {
	osc        oscillator
	depth      float64
	sampleRate float64
}

// NewTremolo creates a tremolo effect.
// depth: 0..1, how far the gain dips at the bottom of the cycle
// rateHz: oscillator rate
// waveform: one of WaveSaw, WaveSquare, WaveTriangle, WaveRandom
func NewTremolo(sampleRate int, depth, rateHz float64, waveform int) *Tremolo {
	t := &Tremolo{depth: unit(depth), sampleRate: float64(sampleRate)}
	t.osc.set(rateHz, waveform)
	return t
}

// ProcessBlock maps the oscillator's [-1, 1] onto a gain in [1-depth, 1].
func (t *Tremolo) ProcessBlock(left, right []float64) {
	for i := range left {
		g := 1 - t.depth*(0.5+0.5*t.osc.sample(t.sampleRate))
		left[i] *= g
		right[i] *= g
	}
}

func (t *Tremolo) Reset() {
	t.osc.reset()
}

// oscillator produces a unit-amplitude waveform, one value per sample.
type oscillator struct {
	rateHz   float64
	waveform int
	phase    float64 // [0, 1)
	held     float64 // sample-and-hold value for WaveRandom
}

func (o *oscillator) set(rateHz float64, waveform int) {
	o.rateHz = rateHz
	if waveform < WaveSaw || waveform > WaveRandom {
		waveform = WaveTriangle
	}
	o.waveform = waveform
}

func (o *oscillator) sample(sampleRate float64) float64 {
	if o.rateHz == 0 || sampleRate == 0 {
		return 0
	}
	var v float64
	switch o.waveform {
	case WaveSaw:
		v = 1.0 - 2.0*o.phase
	case WaveSquare:
		if o.phase < 0.5 {
			v = 1.0
		} else {
			v = -1.0
		}
	case WaveRandom:
		v = o.held
	default:
		if o.phase < 0.5 {
			v = 4.0*o.phase - 1.0
		} else {
			v = 3.0 - 4.0*o.phase
		}
	}

	prev := o.phase
	o.phase += o.rateHz / sampleRate
	for o.phase >= 1.0 {
		o.phase -= 1.0
	}
	if o.waveform == WaveRandom && o.phase < prev {
		// Deterministic hash so renders are reproducible.
		h := math.Sin(o.phase*12345.6789+o.held*67890.1234) * 2.0
		h -= math.Floor(h)
		o.held = h*2.0 - 1.0
	}
	return v
}

func (o *oscillator) reset() {
	o.phase = 0
	o.held = 0
}
