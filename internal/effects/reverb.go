package effects

var reverbKind = kind{
	name:     "Reverb",
	category: "Reverb",
	params: []paramSpec{
		{name: "room_size", def: 0.5, min: 0, max: 1},
		{name: "feedback", def: 0.7, min: 0, max: 0.95},
		{name: "wet", def: 0.25, min: 0, max: 1},
	},
	build: func(sampleRate int, p []float64) Effector {
		return NewReverb(sampleRate, p[0], p[1], p[2])
	},
}

// Comb and allpass lengths relative to the room size, in thousandths.
var (
	combScale    = [4]int{1000, 1117, 1271, 1437}
	diffuseScale = [2]int{347, 213}
)

// Reverb is a Schroeder reverb: parallel feedback combs over the mono sum,
// then two allpass diffusers. The tail is mixed into both channels.
type Reverb struct {
	combs    [4]ring
	diffuse  [2]ring
	feedback float64
	wet      float64
}

func NewReverb(sampleRate int, roomSize, feedback, wet float64) *Reverb {
	base := max(int(float64(sampleRate)*roomSize*0.05), 10)
	r := &Reverb{feedback: max(0, min(feedback, 0.95)), wet: unit(wet)}
	for i, s := range combScale {
		r.combs[i] = newRing(base * s / 1000)
	}
	for i, s := range diffuseScale {
		r.diffuse[i] = newRing(base * s / 1000)
	}
	return r
}

func (r *Reverb) ProcessBlock(left, right []float64) {
	for i := range left {
		in := 0.5 * (left[i] + right[i])
		var tail float64
		for c := range r.combs {
			y := r.combs[c].read()
			r.combs[c].write(in + y*r.feedback)
			tail += y
		}
		tail *= 0.25
		for a := range r.diffuse {
			y := r.diffuse[a].read()
			r.diffuse[a].write(tail + y*0.5)
			tail = y - tail
		}
		left[i] = mix(left[i], tail, r.wet)
		right[i] = mix(right[i], tail, r.wet)
	}
}

func (r *Reverb) Reset() {
	for c := range r.combs {
		r.combs[c].clear()
	}
	for a := range r.diffuse {
		r.diffuse[a].clear()
	}
}
