package audio

import "math"

// BlockProcessor runs planar stereo blocks in place. graph.Builder implements it.
type BlockProcessor interface {
	Process(left, right []float64)
}

// InputSource produces the signal fed into the graph's INPUT node.
type InputSource interface {
	Fill(left, right []float64)
}

// Silence feeds zeros.
type Silence struct{}

func (Silence) Fill(left, right []float64) {
	clear(left)
	clear(right)
}

// Tone is a sine test signal on both channels.
type Tone struct {
	freq       float64
	amplitude  float64
	sampleRate float64
	phase      float64
}

func NewTone(sampleRate int, freqHz, amplitude float64) *Tone {
	return &Tone{freq: freqHz, amplitude: amplitude, sampleRate: float64(sampleRate)}
}

func (t *Tone) Fill(left, right []float64) {
	step := 2 * math.Pi * t.freq / t.sampleRate
	for i := range left {
		v := t.amplitude * math.Sin(t.phase)
		left[i] = v
		if i < len(right) {
			right[i] = v
		}
		t.phase += step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
}

// GraphSource pulls from an InputSource through a BlockProcessor, one block at
// a time, and interleaves the result for the device.
type GraphSource struct {
	input     InputSource
	proc      BlockProcessor
	blockSize int
	left      []float64
	right     []float64
}

func NewGraphSource(input InputSource, proc BlockProcessor, blockSize int) *GraphSource {
	if input == nil {
		input = Silence{}
	}
	if blockSize <= 0 {
		blockSize = 512
	}
	return &GraphSource{
		input:     input,
		proc:      proc,
		blockSize: blockSize,
		left:      make([]float64, blockSize),
		right:     make([]float64, blockSize),
	}
}

func (s *GraphSource) Process(dst []float32) {
	frames := len(dst) / 2
	for start := 0; start < frames; start += s.blockSize {
		n := min(s.blockSize, frames-start)
		left, right := s.left[:n], s.right[:n]
		s.input.Fill(left, right)
		s.proc.Process(left, right)
		out := dst[start*2 : (start+n)*2]
		for i := 0; i < n; i++ {
			out[i*2] = float32(left[i])
			out[i*2+1] = float32(right[i])
		}
	}
}
