package effects

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/cbegin/fxhost-go/internal/plugin"
)

const (
	FormatName   = "Builtin"
	Manufacturer = "fxhost"
	Version      = "1.0.0"
)

var (
	errUnknownEffect = errors.New("unknown built-in effect")
	errIncompatible  = errors.New("incompatible plugin version")
)

// Format exposes the built-in effects as a plugin format.
type Format struct{}

func NewFormat() *Format { return &Format{} }

func (*Format) Name() string { return FormatName }

// Descriptors lists every built-in effect.
func Descriptors() []plugin.Descriptor {
	out := make([]plugin.Descriptor, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, descriptorFor(k))
	}
	return out
}

func descriptorFor(k *kind) plugin.Descriptor {
	return plugin.Descriptor{
		Name:              k.name,
		Version:           Version,
		Format:            FormatName,
		Manufacturer:      Manufacturer,
		Category:          k.category,
		NumInputChannels:  2,
		NumOutputChannels: 2,
	}
}

func (*Format) Scan(context.Context) ([]plugin.Descriptor, error) {
	return Descriptors(), nil
}

// Instantiate accepts descriptors saved by any release with the same major version.
func (*Format) Instantiate(_ context.Context, d plugin.Descriptor, sampleRate float64, _ int) (plugin.Processor, error) {
	k := lookupKind(d.Name)
	if k == nil {
		return nil, fmt.Errorf("%w: %q", errUnknownEffect, d.Name)
	}
	if err := checkCompatible(d.Version); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	return newInstance(d, k, int(sampleRate)), nil
}

func checkCompatible(version string) error {
	want := semver.MustParse(Version)
	got, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", errIncompatible, version, err)
	}
	if got.Major() != want.Major() {
		return fmt.Errorf("%w: %s, host provides %s", errIncompatible, got, want)
	}
	return nil
}
