package effects

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// State blob layout, little endian:
//
//	magic "FXHOST" | version uint32 | count uint32 | count x (id uint32, value float64)
const (
	stateMagic   = "FXHOST"
	stateVersion = uint32(1)
)

var errInvalidState = errors.New("invalid effect state")

func encodeState(values []float64) []byte {
	var buf bytes.Buffer
	buf.WriteString(stateMagic)
	_ = binary.Write(&buf, binary.LittleEndian, stateVersion)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(values)))
	for i, v := range values {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(i+1))
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

// decodeState parses data against k. Parameters missing from the blob take their
// defaults; unknown IDs are ignored so older hosts can read newer states.
func decodeState(k *kind, data []byte) ([]float64, error) {
	r := bytes.NewReader(data)
	header := make([]byte, len(stateMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidState, err)
	}
	if string(header) != stateMagic {
		return nil, fmt.Errorf("%w: bad header", errInvalidState)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidState, err)
	}
	if version > stateVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d", errInvalidState, version, stateVersion)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidState, err)
	}
	// Each entry takes 12 bytes; reject counts the payload cannot hold.
	if uint64(count)*12 != uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d entries do not fit %d bytes", errInvalidState, count, r.Len())
	}

	values := k.defaults()
	for i := uint32(0); i < count; i++ {
		var id uint32
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidState, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidState, err)
		}
		if id == 0 || int(id) > len(k.params) {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: parameter %d is not finite", errInvalidState, id)
		}
		values[id-1] = k.params[id-1].clamp(v)
	}
	return values, nil
}
