// Package window tracks the editor windows opened for live graph nodes.
//
// The registry never owns a node. A window only records the ID of the node it
// was opened for, so the graph builder can close everything bound to a node
// before that node is released.
package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/cbegin/fxhost-go/internal/plugin"
)

// Kind selects which editor a window shows.
type Kind int

const (
	Normal Kind = iota
	Generic
	Programs
	Parameters
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "Normal"
	case Generic:
		return "Generic"
	case Programs:
		return "Programs"
	case Parameters:
		return "Parameters"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrNoEditor is returned when neither the plugin nor the host can provide an
// editor of the requested kind.
var ErrNoEditor = errors.New("no editor available")

// Window is one open editor.
type Window struct {
	ID     uuid.UUID
	Owner  uint32
	Kind   Kind
	Editor plugin.Editor
}

func (w *Window) Title() string {
	return w.Editor.Title()
}

// Registry is the process-wide list of open windows. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	windows []*Window
}

func NewRegistry() *Registry {
	return &Registry{}
}

// OpenFor returns the window of the given kind for owner, creating it from p
// when none is open. A Normal request falls back to the generic editor when
// the plugin has no editor of its own.
func (r *Registry) OpenFor(ctx context.Context, owner uint32, kind Kind, p plugin.Processor) (*Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.windows {
		if w.Owner == owner && w.Kind == kind {
			return w, nil
		}
	}

	editor, actual, err := createEditor(p, kind)
	if err != nil {
		return nil, err
	}
	if actual != kind {
		// The fallback may already be open.
		for _, w := range r.windows {
			if w.Owner == owner && w.Kind == actual {
				_ = editor.Close()
				return w, nil
			}
		}
	}

	w := &Window{ID: uuid.New(), Owner: owner, Kind: actual, Editor: editor}
	r.windows = append(r.windows, w)
	slogcontext.FromCtx(ctx).With(slog.String("realm", "window")).Debug("opened editor",
		slog.String("title", w.Title()), slog.String("kind", actual.String()), slog.Any("owner", owner))
	return w, nil
}

func createEditor(p plugin.Processor, kind Kind) (plugin.Editor, Kind, error) {
	if p == nil {
		return nil, kind, ErrNoEditor
	}
	if kind == Normal {
		if ep, ok := p.(plugin.EditorProvider); ok {
			e, err := ep.CreateEditor()
			if err != nil {
				return nil, kind, fmt.Errorf("creating editor for %s: %w", p.Descriptor().Name, err)
			}
			if e != nil {
				return e, Normal, nil
			}
		}
		kind = Generic
	}
	switch kind {
	case Generic, Parameters:
		if pp, ok := p.(plugin.Parameterized); ok {
			return NewGenericEditor(p.Descriptor().Name, pp), kind, nil
		}
	}
	return nil, kind, fmt.Errorf("%w: %s has no %s editor", ErrNoEditor, p.Descriptor().Name, kind)
}

// Close closes the window with the given ID, as the window's close button does.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.windows, func(w *Window) bool { return w.ID == id })
	if i < 0 {
		return nil
	}
	w := r.windows[i]
	r.windows = slices.Delete(r.windows, i, i+1)
	return w.Editor.Close()
}

// CloseAllFor closes every window bound to owner.
func (r *Registry) CloseAllFor(owner uint32) error {
	return r.closeWhere(func(w *Window) bool { return w.Owner == owner })
}

// CloseAll closes every open window.
func (r *Registry) CloseAll() error {
	return r.closeWhere(func(*Window) bool { return true })
}

func (r *Registry) closeWhere(match func(*Window) bool) error {
	r.mu.Lock()
	var closing []*Window
	r.windows = slices.DeleteFunc(r.windows, func(w *Window) bool {
		if match(w) {
			closing = append(closing, w)
			return true
		}
		return false
	})
	r.mu.Unlock()

	var errs []error
	for _, w := range closing {
		if err := w.Editor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", w.Title(), err))
		}
	}
	return errors.Join(errs...)
}

// ContainsActive reports whether any window is open.
func (r *Registry) ContainsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows) > 0
}

// Windows returns the open windows in opening order.
func (r *Registry) Windows() []*Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.windows)
}
