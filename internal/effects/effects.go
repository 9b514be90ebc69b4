// Package effects is the host's built-in plugin format: stereo DSP effects with
// named parameters and a persistable state blob.
package effects

// Effector processes one planar stereo block in place. Both channels have the
// same length.
type Effector interface {
	ProcessBlock(left, right []float64)
	Reset()
}

// paramSpec declares one parameter of an effect kind. IDs are 1-based positions
// in kind.params and are what the state blob records.
type paramSpec struct {
	name     string
	def      float64
	min, max float64
}

func (p paramSpec) clamp(v float64) float64 {
	if v < p.min {
		return p.min
	}
	if v > p.max {
		return p.max
	}
	return v
}

// kind is one effect type offered by the built-in format.
type kind struct {
	name     string
	category string
	params   []paramSpec
	build    func(sampleRate int, p []float64) Effector
}

func (k *kind) defaults() []float64 {
	out := make([]float64, len(k.params))
	for i, p := range k.params {
		out[i] = p.def
	}
	return out
}

func (k *kind) paramIndex(name string) int {
	for i, p := range k.params {
		if p.name == name {
			return i
		}
	}
	return -1
}

var kinds = []*kind{
	&delayKind,
	&reverbKind,
	&chorusKind,
	&distortionKind,
	&eqKind,
	&eq5Kind,
	&compressorKind,
	&tremoloKind,
	&gainKind,
}

func lookupKind(name string) *kind {
	for _, k := range kinds {
		if k.name == name {
			return k
		}
	}
	return nil
}
