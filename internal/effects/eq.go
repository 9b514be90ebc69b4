package effects

var eqKind = kind{
	name:     "EQ",
	category: "EQ",
	params: []paramSpec{
		{name: "low_gain", def: 1, min: 0, max: 4},
		{name: "mid_gain", def: 1, min: 0, max: 4},
		{name: "high_gain", def: 1, min: 0, max: 4},
		{name: "low_hz", def: 300, min: 20, max: 2000},
		{name: "high_hz", def: 3000, min: 1000, max: 16000},
	},
	build: func(sampleRate int, p []float64) Effector {
		return NewEQ3Band(sampleRate, p[0], p[1], p[2], p[3], p[4])
	},
}

// EQ3Band splits each channel at two crossovers and scales the bands.
// The mid band is whatever the low and high bands leave behind.
type EQ3Band struct {
	low, mid, high float64
	lp, hp         [2]onePole
}

func NewEQ3Band(sampleRate int, low, mid, high, lowHz, highHz float64) *EQ3Band {
	sr := float64(sampleRate)
	lp := newOnePole(sr, lowHz)
	hp := newOnePole(sr, highHz)
	return &EQ3Band{
		low:  low,
		mid:  mid,
		high: high,
		lp:   [2]onePole{lp, lp},
		hp:   [2]onePole{hp, hp},
	}
}

func (eq *EQ3Band) ProcessBlock(left, right []float64) {
	for ch, buf := range [2][]float64{left, right} {
		for i, x := range buf {
			lo := eq.lp[ch].lowpass(x)
			hi := x - eq.hp[ch].lowpass(x)
			buf[i] = lo*eq.low + (x-lo-hi)*eq.mid + hi*eq.high
		}
	}
}

func (eq *EQ3Band) Reset() {
	for ch := range eq.lp {
		eq.lp[ch].reset()
		eq.hp[ch].reset()
	}
}
