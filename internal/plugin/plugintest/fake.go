// Package plugintest provides an in-memory plugin format for tests. Instances
// carry an opaque state blob and a gain so wiring and state restore are observable.
package plugintest

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/cbegin/fxhost-go/internal/plugin"
)

const FormatName = "Fake"

// CorruptPrefix marks state blobs that SetState rejects.
var CorruptPrefix = []byte("corrupt")

var errMissing = errors.New("plugin binary not found")

// Descriptor returns a stereo descriptor of the fake format.
func Descriptor(name string) plugin.Descriptor {
	return plugin.Descriptor{
		Name:              name,
		Version:           "1.0.0",
		Format:            FormatName,
		Manufacturer:      "Test",
		NumInputChannels:  2,
		NumOutputChannels: 2,
	}
}

type Format struct {
	mu          sync.Mutex
	descriptors []plugin.Descriptor
	failing     map[string]bool
	instances   []*Processor
	scanErr     error
}

func NewFormat(ds ...plugin.Descriptor) *Format {
	return &Format{descriptors: ds, failing: map[string]bool{}}
}

// SetFailing makes instantiation of the named plugin fail until reset.
func (f *Format) SetFailing(name string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[name] = failing
}

func (f *Format) SetScanError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanErr = err
}

func (f *Format) Name() string { return FormatName }

func (f *Format) Scan(context.Context) ([]plugin.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return append([]plugin.Descriptor(nil), f.descriptors...), nil
}

func (f *Format) Instantiate(_ context.Context, d plugin.Descriptor, _ float64, _ int) (plugin.Processor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[d.Name] {
		return nil, errMissing
	}
	p := &Processor{desc: d, Gain: 1}
	f.instances = append(f.instances, p)
	return p, nil
}

// Latest returns the most recently created instance of the named plugin.
func (f *Format) Latest(name string) *Processor {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.instances) - 1; i >= 0; i-- {
		if f.instances[i].desc.Name == name {
			return f.instances[i]
		}
	}
	return nil
}

// Instances returns every instance created so far.
func (f *Format) Instances() []*Processor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Processor(nil), f.instances...)
}

// Processor scales its input by Gain and keeps whatever state it is given.
type Processor struct {
	desc   plugin.Descriptor
	Gain   float64
	state  []byte
	Closed bool
	Resets int
}

func (p *Processor) Descriptor() plugin.Descriptor { return p.desc }

func (p *Processor) Process(left, right []float64) {
	for i := range left {
		left[i] *= p.Gain
	}
	for i := range right {
		right[i] *= p.Gain
	}
}

func (p *Processor) Reset() {
	p.Resets++
	p.state = nil
}

func (p *Processor) State() ([]byte, error) {
	return append([]byte(nil), p.state...), nil
}

func (p *Processor) SetState(data []byte) error {
	if bytes.HasPrefix(data, CorruptPrefix) {
		return errors.New("unreadable state")
	}
	p.state = append([]byte(nil), data...)
	return nil
}

// SetLiveState simulates the user tweaking the plugin.
func (p *Processor) SetLiveState(data string) {
	p.state = []byte(data)
}

func (p *Processor) LiveState() string {
	return string(p.state)
}

func (p *Processor) Close() error {
	p.Closed = true
	return nil
}
