package plugin

import "fmt"

// Descriptor identifies a plugin type as reported by discovery. It is treated as
// immutable once obtained.
type Descriptor struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Format            string `json:"format"`
	Manufacturer      string `json:"manufacturer,omitempty"`
	Category          string `json:"category,omitempty"`
	NumInputChannels  int    `json:"numInputChannels"`
	NumOutputChannels int    `json:"numOutputChannels"`
}

// StableKey is the identity used for every persisted lookup. Two descriptors with
// the same name, version and format share a key even if their channel layouts differ.
// The parts are joined without a separator, so ("Rev", "1.0") and ("Rev1", ".0")
// collide. Settings files already written depend on this exact form; keep it.
func (d Descriptor) StableKey() string {
	return d.Name + d.Version + d.Format
}

// Same reports whether d and o refer to the same plugin for storage purposes.
func (d Descriptor) Same(o Descriptor) bool {
	return d.StableKey() == o.StableKey()
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Name, d.Version, d.Format)
}
