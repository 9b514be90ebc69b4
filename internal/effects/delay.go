package effects

var delayKind = kind{
	name:     "Delay",
	category: "Delay",
	params: []paramSpec{
		{name: "time_ms", def: 250, min: 1, max: 2000},
		{name: "feedback", def: 0.4, min: 0, max: 0.95},
		{name: "cross", def: 0.2, min: 0, max: 1},
		{name: "wet", def: 0.3, min: 0, max: 1},
	},
	build: func(sampleRate int, p []float64) Effector {
		return NewDelay(sampleRate, p[0], p[1], p[2], p[3])
	},
}

// Delay is a stereo echo. cross sends that share of each channel's feedback to
// the other channel.
type Delay struct {
	lines    [2]ring
	feedback float64
	cross    float64
	wet      float64
}

func NewDelay(sampleRate int, delayMs, feedback, cross, wet float64) *Delay {
	n := int(delayMs * float64(sampleRate) / 1000)
	return &Delay{
		lines:    [2]ring{newRing(n), newRing(n)},
		feedback: max(0, min(feedback, 0.95)),
		cross:    unit(cross),
		wet:      unit(wet),
	}
}

func (d *Delay) ProcessBlock(left, right []float64) {
	straight := d.feedback * (1 - d.cross)
	crossed := d.feedback * d.cross
	for i := range left {
		dl, dr := d.lines[0].read(), d.lines[1].read()
		d.lines[0].write(left[i] + dl*straight + dr*crossed)
		d.lines[1].write(right[i] + dr*straight + dl*crossed)
		left[i] = mix(left[i], dl, d.wet)
		right[i] = mix(right[i], dr, d.wet)
	}
}

func (d *Delay) Reset() {
	d.lines[0].clear()
	d.lines[1].clear()
}
