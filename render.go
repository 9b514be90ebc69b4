package fxhost

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"

	intaudio "github.com/cbegin/fxhost-go/internal/audio"
)

// Render runs the configured input through the current chain for the given
// duration without touching the audio device, returning interleaved stereo.
// It shares the chain with live playback, so render while stopped.
func (h *Host) Render(seconds float64) ([]float32, error) {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, errors.New("render length must be a finite, non-negative number of seconds")
	}
	frames := int(float64(h.cfg.sampleRate) * seconds)
	out := make([]float32, frames*2)
	intaudio.NewGraphSource(h.cfg.input, h.builder, h.cfg.blockSize).Process(out)
	return out, nil
}

// wavHeader is the canonical 44 byte RIFF header for IEEE float PCM.
type wavHeader struct {
	RIFF       [4]byte
	RIFFSize   uint32
	WAVE       [4]byte
	Fmt        [4]byte
	FmtSize    uint32
	Format     uint16
	Channels   uint16
	SampleRate uint32
	ByteRate   uint32
	BlockAlign uint16
	Bits       uint16
	Data       [4]byte
	DataSize   uint32
}

const wavFormatIEEEFloat = 3

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAVE_FORMAT_IEEE_FLOAT file.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := uint32(len(samples) * 4)
	hdr := wavHeader{
		RIFF:       [4]byte{'R', 'I', 'F', 'F'},
		RIFFSize:   36 + dataSize,
		WAVE:       [4]byte{'W', 'A', 'V', 'E'},
		Fmt:        [4]byte{'f', 'm', 't', ' '},
		FmtSize:    16,
		Format:     wavFormatIEEEFloat,
		Channels:   uint16(channels),
		SampleRate: uint32(sampleRate),
		ByteRate:   uint32(sampleRate * channels * 4),
		BlockAlign: uint16(channels * 4),
		Bits:       32,
		Data:       [4]byte{'d', 'a', 't', 'a'},
		DataSize:   dataSize,
	}
	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, hdr)
	_ = binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}
