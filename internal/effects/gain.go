package effects

import "github.com/cwbudde/algo-vecmath"

var gainKind = kind{
	name:     "Gain",
	category: "Utility",
	params: []paramSpec{
		{name: "gain_db", def: 0, min: -60, max: 24},
	},
	build: func(_ int, p []float64) Effector {
		return NewGain(p[0])
	},
}

// Gain is a static level trim.
type Gain struct {
	factor float64
}

func NewGain(gainDB float64) *Gain {
	return &Gain{factor: dbToGain(gainDB)}
}

func (g *Gain) ProcessBlock(left, right []float64) {
	vecmath.ScaleBlock(left, left, g.factor)
	vecmath.ScaleBlock(right, right, g.factor)
}

func (g *Gain) Reset() {}
