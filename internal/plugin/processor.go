package plugin

// Processor is a live plugin instance. Process works in place on planar stereo
// blocks and runs on the audio goroutine; the other methods run on the control
// goroutine.
type Processor interface {
	Descriptor() Descriptor
	Process(left, right []float64)
	Reset()

	// State returns the instance's serialized processing state. An empty result
	// means there is nothing worth persisting.
	State() ([]byte, error)
	// SetState replaces the processing state. Implementations must leave the
	// instance unchanged when data cannot be parsed.
	SetState(data []byte) error
}

// Param describes one automatable parameter of a processor.
type Param struct {
	ID      uint32
	Name    string
	Min     float64
	Max     float64
	Default float64
	Value   float64
}

// Parameterized is implemented by processors that expose their parameters.
// The generic editor is built on top of it.
type Parameterized interface {
	Params() []Param
	SetParam(name string, value float64) error
}

// Editor is a plugin-provided editor UI. Rendering is outside this module; the
// host only tracks its lifetime.
type Editor interface {
	Title() string
	Close() error
}

// EditorProvider is implemented by processors that ship their own editor.
type EditorProvider interface {
	CreateEditor() (Editor, error)
}
