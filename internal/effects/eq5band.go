package effects

var eq5Crossovers = [4]float64{200, 800, 2500, 8000}

var eq5Kind = kind{
	name:     "EQ5",
	category: "EQ",
	params: []paramSpec{
		{name: "band_low", def: 1, min: 0, max: 4},
		{name: "band_low_mid", def: 1, min: 0, max: 4},
		{name: "band_mid", def: 1, min: 0, max: 4},
		{name: "band_high_mid", def: 1, min: 0, max: 4},
		{name: "band_high", def: 1, min: 0, max: 4},
	},
	build: func(sampleRate int, p []float64) Effector {
		return NewEQ5Band(sampleRate, [5]float64(p))
	},
}

// EQ5Band is a five band equalizer. Each crossover peels its lowpass off the
// remainder of the one before, so at unity the bands sum back to the input.
type EQ5Band struct {
	gains [5]float64
	split [2][4]onePole
}

func NewEQ5Band(sampleRate int, gains [5]float64) *EQ5Band {
	eq := &EQ5Band{gains: gains}
	for b, hz := range eq5Crossovers {
		f := newOnePole(float64(sampleRate), hz)
		eq.split[0][b] = f
		eq.split[1][b] = f
	}
	return eq
}

func (eq *EQ5Band) ProcessBlock(left, right []float64) {
	for ch, buf := range [2][]float64{left, right} {
		bands := &eq.split[ch]
		for i, x := range buf {
			var y float64
			for b := range bands {
				lo := bands[b].lowpass(x)
				y += lo * eq.gains[b]
				x -= lo
			}
			buf[i] = y + x*eq.gains[4]
		}
	}
}

func (eq *EQ5Band) Reset() {
	for ch := range eq.split {
		for b := range eq.split[ch] {
			eq.split[ch][b].reset()
		}
	}
}
