package effects

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cbegin/fxhost-go/internal/plugin"
)

// Instance is a live built-in effect. Parameter changes rebuild the underlying
// Effector on the control goroutine and publish it with an atomic store, so the
// audio goroutine never sees a half-configured effect.
type Instance struct {
	desc       plugin.Descriptor
	kind       *kind
	sampleRate int

	mu     sync.Mutex // guards values
	values []float64

	fx atomic.Pointer[effectorBox]
}

type effectorBox struct {
	Effector
}

func newInstance(d plugin.Descriptor, k *kind, sampleRate int) *Instance {
	inst := &Instance{desc: d, kind: k, sampleRate: sampleRate, values: k.defaults()}
	inst.publish()
	return inst
}

func (in *Instance) publish() {
	in.fx.Store(&effectorBox{in.kind.build(in.sampleRate, append([]float64(nil), in.values...))})
}

func (in *Instance) Descriptor() plugin.Descriptor { return in.desc }

func (in *Instance) Process(left, right []float64) {
	n := min(len(left), len(right))
	in.fx.Load().ProcessBlock(left[:n], right[:n])
}

// Reset returns every parameter to its default and clears the DSP state.
func (in *Instance) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.values = in.kind.defaults()
	in.publish()
}

func (in *Instance) State() ([]byte, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return encodeState(in.values), nil
}

func (in *Instance) SetState(data []byte) error {
	values, err := decodeState(in.kind, data)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.values = values
	in.publish()
	return nil
}

func (in *Instance) Params() []plugin.Param {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]plugin.Param, len(in.kind.params))
	for i, p := range in.kind.params {
		out[i] = plugin.Param{
			ID:      uint32(i + 1),
			Name:    p.name,
			Min:     p.min,
			Max:     p.max,
			Default: p.def,
			Value:   in.values[i],
		}
	}
	return out
}

// SetParam clamps value into the parameter's range.
func (in *Instance) SetParam(name string, value float64) error {
	i := in.kind.paramIndex(name)
	if i < 0 {
		return fmt.Errorf("%s has no parameter %q", in.kind.name, name)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.values[i] = in.kind.params[i].clamp(value)
	in.publish()
	return nil
}

// Param returns the current value of the named parameter.
func (in *Instance) Param(name string) (float64, bool) {
	i := in.kind.paramIndex(name)
	if i < 0 {
		return 0, false
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.values[i], true
}
