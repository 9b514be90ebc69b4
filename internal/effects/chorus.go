package effects

import "math"

var chorusKind = kind{
	name:     "Chorus",
	category: "Modulation",
	params: []paramSpec{
		{name: "delay_ms", def: 15, min: 1, max: 50},
		{name: "feedback", def: 0.3, min: 0, max: 0.9},
		{name: "depth_ms", def: 3, min: 0, max: 20},
		{name: "rate_hz", def: 1.5, min: 0.01, max: 10},
		{name: "wet", def: 0.4, min: 0, max: 1},
	},
	build: func(sampleRate int, p []float64) Effector {
		return NewChorus(sampleRate, p[0], p[1], p[2], p[3], p[4])
	},
}

// Chorus reads a delay line at a position swept by a sine. Short delays with
// feedback turn it into a flanger.
type Chorus struct {
	lines    [2]ring
	center   float64 // samples
	depth    float64 // samples
	phase    float64
	step     float64 // radians per sample
	feedback float64
	wet      float64
}

func NewChorus(sampleRate int, delayMs, feedback, depthMs, rateHz, wet float64) *Chorus {
	sr := float64(sampleRate)
	depth := depthMs * sr / 1000
	center := max(delayMs*sr/1000, depth+1)
	size := int(center+depth) + 2
	return &Chorus{
		lines:    [2]ring{newRing(size), newRing(size)},
		center:   center,
		depth:    depth,
		step:     2 * math.Pi * rateHz / sr,
		feedback: max(0, min(feedback, 0.9)),
		wet:      unit(wet),
	}
}

func (c *Chorus) ProcessBlock(left, right []float64) {
	for i := range left {
		delay := c.center + c.depth*math.Sin(c.phase)
		c.phase = math.Mod(c.phase+c.step, 2*math.Pi)

		dl := c.lines[0].tap(delay)
		dr := c.lines[1].tap(delay)
		c.lines[0].write(left[i] + dl*c.feedback)
		c.lines[1].write(right[i] + dr*c.feedback)
		left[i] = mix(left[i], dl, c.wet)
		right[i] = mix(right[i], dr, c.wet)
	}
}

func (c *Chorus) Reset() {
	c.lines[0].clear()
	c.lines[1].clear()
	c.phase = 0
}
