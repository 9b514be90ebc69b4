// Package audio connects the live graph to the output device. The INPUT node
// is fed from an InputSource and the result is streamed to ebiten's audio
// player as interleaved float32 stereo.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// FrameSource fills dst with interleaved stereo frames.
type FrameSource interface {
	Process(dst []float32)
}

const bytesPerFrame = 2 * 4

// StreamReader is the io.Reader an ebiten player pulls from. Each Read renders
// as many whole frames as fit in p; a trailing partial frame is not written.
type StreamReader struct {
	mu      sync.Mutex
	source  FrameSource
	scratch []float32
}

func NewStreamReader(source FrameSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := len(p) / bytesPerFrame * 2
	if samples == 0 {
		return 0, nil
	}
	r.scratch = slices.Grow(r.scratch[:0], samples)[:samples]
	r.source.Process(r.scratch)
	out := p[:0]
	for _, v := range r.scratch {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return len(out), nil
}

// Output plays a FrameSource on the default device.
type Output struct {
	player *ebitaudio.Player
}

var (
	deviceOnce sync.Once
	device     *ebitaudio.Context
	deviceRate int
)

// audioContext returns the process wide ebiten context. ebiten allows only one,
// so every Output has to run at the rate of the first.
func audioContext(sampleRate int) (*ebitaudio.Context, error) {
	deviceOnce.Do(func() {
		deviceRate = sampleRate
		device = ebitaudio.NewContext(sampleRate)
	})
	if deviceRate != sampleRate {
		return nil, fmt.Errorf("audio device already running at %d Hz, cannot open at %d Hz", deviceRate, sampleRate)
	}
	return device, nil
}

// Open prepares an Output; nothing is heard until Play.
func Open(sampleRate int, source FrameSource) (*Output, error) {
	ctx, err := audioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(NewStreamReader(source))
	if err != nil {
		return nil, fmt.Errorf("open output player: %w", err)
	}
	return &Output{player: pl}, nil
}

func (o *Output) Play() { o.player.Play() }

func (o *Output) Close() error {
	o.player.Pause()
	return o.player.Close()
}
