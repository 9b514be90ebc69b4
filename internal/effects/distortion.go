package effects

import "math"

var distortionKind = kind{
	name:     "Distortion",
	category: "Distortion",
	params: []paramSpec{
		{name: "pre_gain", def: 4, min: 0, max: 50},
		{name: "post_gain", def: 0.5, min: 0, max: 2},
		{name: "lpf_hz", def: 8000, min: 0, max: 20000},
	},
	build: func(sampleRate int, p []float64) Effector {
		return NewDistortion(sampleRate, p[0], p[1], p[2])
	},
}

// Distortion drives a tanh soft clipper and optionally darkens the result.
// A tone of 0, or one at or above Nyquist, leaves the clipped signal unfiltered.
type Distortion struct {
	drive    float64
	level    float64
	tone     [2]onePole
	filtered bool
}

func NewDistortion(sampleRate int, drive, level, toneHz float64) *Distortion {
	d := &Distortion{drive: drive, level: level}
	sr := float64(sampleRate)
	if toneHz > 0 && toneHz < sr/2 {
		d.tone = [2]onePole{newOnePole(sr, toneHz), newOnePole(sr, toneHz)}
		d.filtered = true
	}
	return d
}

func (d *Distortion) ProcessBlock(left, right []float64) {
	for ch, buf := range [2][]float64{left, right} {
		for i, x := range buf {
			y := math.Tanh(x*d.drive) * d.level
			if d.filtered {
				y = d.tone[ch].lowpass(y)
			}
			buf[i] = y
		}
	}
}

func (d *Distortion) Reset() {
	d.tone[0].reset()
	d.tone[1].reset()
}
