package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"
)

// ErrInstantiation marks a plugin that could not be created, e.g. because its
// binary is missing or incompatible. Callers treat it as a soft failure.
var ErrInstantiation = errors.New("plugin instantiation failed")

var errUnknownFormat = errors.New("unknown plugin format")

// Format is one plugin format backend (the host's counterpart of VST or AU
// loading). Scanning and loading machinery live behind it.
type Format interface {
	Name() string
	Scan(ctx context.Context) ([]Descriptor, error)
	Instantiate(ctx context.Context, d Descriptor, sampleRate float64, blockSize int) (Processor, error)
}

// FormatManager dispatches scanning and instantiation to registered formats.
type FormatManager struct {
	formats []Format
}

func NewFormatManager(formats ...Format) *FormatManager {
	m := &FormatManager{}
	for _, f := range formats {
		m.Add(f)
	}
	return m
}

// Add registers f. A later format with the same name replaces the earlier one.
func (m *FormatManager) Add(f Format) {
	for i, existing := range m.formats {
		if existing.Name() == f.Name() {
			m.formats[i] = f
			return
		}
	}
	m.formats = append(m.formats, f)
}

func (m *FormatManager) Formats() []Format {
	return append([]Format(nil), m.formats...)
}

func (m *FormatManager) lookup(name string) Format {
	for _, f := range m.formats {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// Instantiate creates a processor for d. Every failure is wrapped in
// ErrInstantiation so callers can test for it with errors.Is.
func (m *FormatManager) Instantiate(ctx context.Context, d Descriptor, sampleRate float64, blockSize int) (Processor, error) {
	f := m.lookup(d.Format)
	if f == nil {
		return nil, fmt.Errorf("%w: %s: %w %q", ErrInstantiation, d, errUnknownFormat, d.Format)
	}
	p, err := f.Instantiate(ctx, d, sampleRate, blockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstantiation, d, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s: format returned no instance", ErrInstantiation, d)
	}
	return p, nil
}

// Scan collects descriptors from all formats. A failing format is logged and
// skipped so one broken backend does not hide the others.
func (m *FormatManager) Scan(ctx context.Context) []Descriptor {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", "plugin"))
	var found []Descriptor
	for _, f := range m.formats {
		ds, err := f.Scan(ctx)
		if err != nil {
			logger.WarnContext(ctx, "plugin format scan failed", slog.String("format", f.Name()), slog.String("error", err.Error()))
			continue
		}
		logger.DebugContext(ctx, "scanned plugin format", slog.String("format", f.Name()), slog.Int("count", len(ds)))
		found = append(found, ds...)
	}
	return found
}
