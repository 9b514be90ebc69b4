package effects

import "math"

var compressorKind = kind{
	name:     "Compressor",
	category: "Dynamics",
	params: []paramSpec{
		{name: "threshold_db", def: -20, min: -60, max: 0},
		{name: "ratio", def: 4, min: 1, max: 20},
		{name: "attack_ms", def: 5, min: 0.1, max: 200},
		{name: "release_ms", def: 100, min: 1, max: 2000},
		{name: "makeup_db", def: 6, min: 0, max: 24},
	},
	build: func(sampleRate int, p []float64) Effector {
		return NewCompressor(sampleRate, p[0], p[1], p[2], p[3], p[4])
	},
}

// Compressor follows each channel's peak envelope and turns down whatever
// rises above the threshold.
type Compressor struct {
	threshold float64
	exponent  float64 // 1/ratio - 1
	makeup    float64
	attack    float64
	release   float64
	env       [2]float64
}

func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	sr := float64(sampleRate)
	return &Compressor{
		threshold: dbToGain(thresholdDB),
		exponent:  1/max(ratio, 1) - 1,
		makeup:    dbToGain(makeupDB),
		attack:    smoothing(attackMs, sr),
		release:   smoothing(releaseMs, sr),
	}
}

func (c *Compressor) ProcessBlock(left, right []float64) {
	for ch, buf := range [2][]float64{left, right} {
		env := c.env[ch]
		for i, x := range buf {
			level := math.Abs(x)
			coef := c.release
			if level > env {
				coef = c.attack
			}
			env += coef * (level - env)

			g := c.makeup
			if env > c.threshold {
				g *= math.Pow(env/c.threshold, c.exponent)
			}
			buf[i] = x * g
		}
		c.env[ch] = env
	}
}

func (c *Compressor) Reset() {
	c.env = [2]float64{}
}
