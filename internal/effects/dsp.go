package effects

import "math"

// ring is a circular delay line. pos is the next slot to be written, which is
// also the oldest sample held.
type ring struct {
	buf []float64
	pos int
}

func newRing(n int) ring {
	return ring{buf: make([]float64, max(n, 1))}
}

// read returns the oldest sample, len(buf) samples behind the next write.
func (r *ring) read() float64 {
	return r.buf[r.pos]
}

func (r *ring) write(v float64) {
	r.buf[r.pos] = v
	r.pos++
	if r.pos == len(r.buf) {
		r.pos = 0
	}
}

// tap reads delay samples back from the next write with linear interpolation.
func (r *ring) tap(delay float64) float64 {
	n := len(r.buf)
	p := float64(r.pos) - delay
	for p < 0 {
		p += float64(n)
	}
	i := int(p)
	frac := p - float64(i)
	j := i + 1
	if j >= n {
		j = 0
	}
	return r.buf[i]*(1-frac) + r.buf[j]*frac
}

func (r *ring) clear() {
	clear(r.buf)
	r.pos = 0
}

// onePole is an RC style lowpass.
type onePole struct {
	alpha float64
	z     float64
}

func newOnePole(sampleRate, cutoffHz float64) onePole {
	rc := 1 / (2 * math.Pi * cutoffHz)
	dt := 1 / sampleRate
	return onePole{alpha: dt / (rc + dt)}
}

func (p *onePole) lowpass(x float64) float64 {
	p.z += p.alpha * (x - p.z)
	return p.z
}

func (p *onePole) reset() { p.z = 0 }

func mix(dry, wet, amount float64) float64 {
	return dry*(1-amount) + wet*amount
}

func unit(v float64) float64 {
	return max(0, min(v, 1))
}

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// smoothing is the per-sample coefficient of an exponential follower with the
// given time constant.
func smoothing(ms, sampleRate float64) float64 {
	return 1 - math.Exp(-1/(ms*sampleRate/1000))
}
