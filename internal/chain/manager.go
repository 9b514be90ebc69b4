package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/cbegin/fxhost-go/internal/graph"
	"github.com/cbegin/fxhost-go/internal/plugin"
	"github.com/cbegin/fxhost-go/internal/settings"
)

var (
	ErrAlreadyActive   = errors.New("plugin is already in the chain")
	ErrIndexOutOfRange = errors.New("chain index out of range")
)

// Entry is one resolved chain member as shown to the user.
type Entry struct {
	Descriptor plugin.Descriptor `json:"descriptor"`
	Position   int               `json:"position"`
	Bypassed   bool              `json:"bypassed"`
	// Live is false when the plugin failed to instantiate in the current graph.
	Live bool `json:"live"`
}

// Manager applies chain mutations. Each one captures the live plugin states,
// persists its change, then rebuilds the graph. Calls are serialized.
type Manager struct {
	mu sync.Mutex

	store   *settings.Store
	active  *plugin.Catalog
	order   *OrderStore
	bypass  *BypassFlags
	states  *StateStore
	builder *graph.Builder
}

// NewManager restores the active catalog from store. An unreadable snapshot is
// logged and leaves the chain empty. The graph is not built until Load.
func NewManager(ctx context.Context, store *settings.Store, builder *graph.Builder) *Manager {
	m := &Manager{
		store:   store,
		active:  plugin.NewCatalog(),
		order:   NewOrderStore(store),
		bypass:  NewBypassFlags(store),
		states:  NewStateStore(store),
		builder: builder,
	}
	if raw, ok := store.Value(ActiveListKey); ok {
		if err := m.active.UnmarshalSnapshot([]byte(raw)); err != nil {
			m.logger(ctx).Warn("discarding unreadable active plugin list", slog.Any("error", err))
			m.active.Clear()
		}
	}
	return m
}

func (m *Manager) logger(ctx context.Context) *slog.Logger {
	return slogcontext.FromCtx(ctx).With(slog.String("realm", "chain"))
}

// Load builds the graph for the persisted chain.
func (m *Manager) Load(ctx context.Context) *graph.Graph {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuild(ctx)
}

// Add appends d to the end of the chain.
func (m *Manager) Add(ctx context.Context, d plugin.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active.Contains(d) {
		// A member without a position is unreachable by index, e.g. after a
		// Delete whose flush failed. Adding it again gives it a place.
		if _, placed := m.order.PositionOf(d.StableKey()); placed {
			return fmt.Errorf("%w: %s", ErrAlreadyActive, d)
		}
		m.logger(ctx).Warn("placing active plugin that has no position", slog.String("plugin", d.String()))
	}
	if err := m.captureStates(ctx); err != nil {
		return err
	}
	if err := m.order.SetPosition(d.StableKey(), m.order.MaxPosition()+1); err != nil {
		return err
	}
	m.active.Add(d)
	if err := m.persistActive(); err != nil {
		return err
	}
	m.logger(ctx).Info("added plugin", slog.String("plugin", d.String()))
	m.rebuild(ctx)
	return nil
}

// Delete removes the entry at index along with its position, bypass flag and state.
func (m *Manager) Delete(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.at(ctx, index)
	if err != nil {
		return err
	}
	if err := m.captureStates(ctx); err != nil {
		return err
	}
	key := d.StableKey()
	if err := m.order.RemovePosition(key); err != nil {
		return err
	}
	if err := m.bypass.Remove(key); err != nil {
		return err
	}
	if err := m.states.Delete(key); err != nil {
		return err
	}
	m.active.Remove(d)
	if err := m.persistActive(); err != nil {
		return err
	}
	m.logger(ctx).Info("removed plugin", slog.String("plugin", d.String()))
	m.rebuild(ctx)
	return nil
}

// ToggleBypass flips the bypass flag of the entry at index.
func (m *Manager) ToggleBypass(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.at(ctx, index)
	if err != nil {
		return err
	}
	if err := m.captureStates(ctx); err != nil {
		return err
	}
	bypassed, err := m.bypass.Toggle(d.StableKey())
	if err != nil {
		return err
	}
	m.logger(ctx).Info("toggled bypass", slog.String("plugin", d.String()), slog.Bool("bypassed", bypassed))
	m.rebuild(ctx)
	return nil
}

// MoveUp swaps the entry at index with the one before it. It does nothing
// for the first entry.
func (m *Manager) MoveUp(ctx context.Context, index int) error {
	return m.move(ctx, index, -1)
}

// MoveDown swaps the entry at index with the one after it. It does nothing
// for the last entry.
func (m *Manager) MoveDown(ctx context.Context, index int) error {
	return m.move(ctx, index, 1)
}

func (m *Manager) move(ctx context.Context, index, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resolved := Resolve(ctx, m.active, m.order)
	if index < 0 || index >= len(resolved) {
		return fmt.Errorf("%w: %d (chain has %d entries)", ErrIndexOutOfRange, index, len(resolved))
	}
	other := index + delta
	if other < 0 || other >= len(resolved) {
		return nil
	}
	if err := m.captureStates(ctx); err != nil {
		return err
	}
	resolved[index], resolved[other] = resolved[other], resolved[index]

	// Renumber densely so the new order has no ties left over.
	positions := make(map[string]int, len(resolved))
	for rank, d := range resolved {
		positions[d.StableKey()] = rank + 1
	}
	if err := m.order.SetPositions(positions); err != nil {
		return err
	}
	m.rebuild(ctx)
	return nil
}

// SaveStates persists the current state of every live plugin.
func (m *Manager) SaveStates(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureStates(ctx)
}

// ClearStates deletes every saved state and rebuilds the chain at defaults.
func (m *Manager) ClearStates(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.states.DeleteAll(); err != nil {
		return err
	}
	m.rebuild(ctx)
	return nil
}

// Resolve returns the active plugins in chain order.
func (m *Manager) Resolve(ctx context.Context) []plugin.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Resolve(ctx, m.active, m.order)
}

// Entries describes the resolved chain for display.
func (m *Manager) Entries(ctx context.Context) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.builder.Current()
	resolved := Resolve(ctx, m.active, m.order)
	out := make([]Entry, len(resolved))
	for i, d := range resolved {
		pos, _ := m.order.PositionOf(d.StableKey())
		e := Entry{Descriptor: d, Position: pos, Bypassed: m.bypass.IsBypassed(d.StableKey())}
		if g != nil {
			_, e.Live = g.Node(graph.NodeID(i + 1))
		}
		out[i] = e
	}
	return out
}

// Verify logs and returns the stable keys whose metadata is inconsistent:
// positions without an active member and active members without a position.
func (m *Manager) Verify(ctx context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger := m.logger(ctx)
	var bad []string
	for _, key := range orphanPositions(m.active, m.order) {
		logger.Warn("position without active plugin", slog.String("key", key))
		bad = append(bad, key)
	}
	for _, d := range m.active.Types() {
		if _, ok := m.order.PositionOf(d.StableKey()); !ok {
			logger.Warn("active plugin has no position", slog.String("plugin", d.String()))
			bad = append(bad, d.StableKey())
		}
	}
	return bad
}

func (m *Manager) at(ctx context.Context, index int) (plugin.Descriptor, error) {
	resolved := Resolve(ctx, m.active, m.order)
	if index < 0 || index >= len(resolved) {
		return plugin.Descriptor{}, fmt.Errorf("%w: %d (chain has %d entries)", ErrIndexOutOfRange, index, len(resolved))
	}
	return resolved[index], nil
}

func (m *Manager) captureStates(ctx context.Context) error {
	g := m.builder.Current()
	if g == nil {
		return nil
	}
	return m.states.SaveAll(g.States(ctx))
}

func (m *Manager) persistActive() error {
	data, err := m.active.MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("encode active plugin list: %w", err)
	}
	m.store.SetValue(ActiveListKey, string(data))
	return flush(m.store)
}

func (m *Manager) rebuild(ctx context.Context) *graph.Graph {
	resolved := Resolve(ctx, m.active, m.order)
	slots := make([]graph.Slot, len(resolved))
	for i, d := range resolved {
		slots[i] = graph.Slot{Descriptor: d, Bypassed: m.bypass.IsBypassed(d.StableKey())}
	}
	return m.builder.Rebuild(ctx, slots)
}
