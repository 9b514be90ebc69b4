// Package chain manages the active plugin chain: which plugins are in it, in
// what order, whether they are bypassed, and their saved states. Every
// mutation is persisted to the settings store before the live graph is rebuilt.
package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/cbegin/fxhost-go/internal/settings"
)

// Settings keys.
const (
	orderPrefix  = "plugin-order-"
	bypassPrefix = "plugin-bypass-"
	statePrefix  = "plugin-state-"

	// ActiveListKey holds the snapshot of the active catalog.
	ActiveListKey = "pluginListActive"
	// KnownListKey holds the snapshot of every discovered plugin.
	KnownListKey = "pluginList"
)

var (
	// ErrStoreWrite wraps a failure to make a chain change durable.
	ErrStoreWrite = errors.New("chain store write failed")
	// ErrCorruptState marks a saved state blob that cannot be decoded. It is
	// logged, never returned from a mutation.
	ErrCorruptState = errors.New("corrupt plugin state")
)

func flush(s *settings.Store) error {
	if err := s.SaveIfNeeded(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return nil
}

// OrderStore maps stable keys to sparse integer positions. Positions are only
// ever compared; gaps and negative values are allowed.
type OrderStore struct {
	store *settings.Store
}

func NewOrderStore(s *settings.Store) *OrderStore {
	return &OrderStore{store: s}
}

func (o *OrderStore) PositionOf(key string) (int, bool) {
	raw, ok := o.store.Value(orderPrefix + key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (o *OrderStore) SetPosition(key string, pos int) error {
	o.store.SetInt(orderPrefix+key, pos)
	return flush(o.store)
}

// SetPositions writes a batch of positions with a single flush.
func (o *OrderStore) SetPositions(positions map[string]int) error {
	for key, pos := range positions {
		o.store.SetInt(orderPrefix+key, pos)
	}
	return flush(o.store)
}

func (o *OrderStore) RemovePosition(key string) error {
	o.store.RemoveValue(orderPrefix + key)
	return flush(o.store)
}

// MaxPosition returns the largest stored position, or 0 when there is none.
func (o *OrderStore) MaxPosition() int {
	maxPos, found := 0, false
	for _, key := range o.Keys() {
		pos, ok := o.PositionOf(key)
		if !ok {
			continue
		}
		if !found || pos > maxPos {
			maxPos, found = pos, true
		}
	}
	return maxPos
}

// Keys returns the stable keys that have a position.
func (o *OrderStore) Keys() []string {
	return trimPrefix(o.store.Keys(orderPrefix), orderPrefix)
}

func trimPrefix(keys []string, prefix string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strings.TrimPrefix(k, prefix)
	}
	return out
}

// BypassFlags records which chain entries are bypassed. Missing means active.
type BypassFlags struct {
	store *settings.Store
}

func NewBypassFlags(s *settings.Store) *BypassFlags {
	return &BypassFlags{store: s}
}

func (b *BypassFlags) IsBypassed(key string) bool {
	return b.store.BoolValue(bypassPrefix+key, false)
}

func (b *BypassFlags) Set(key string, bypassed bool) error {
	b.store.SetBool(bypassPrefix+key, bypassed)
	return flush(b.store)
}

// Toggle flips the flag and returns the new value.
func (b *BypassFlags) Toggle(key string) (bool, error) {
	v := !b.IsBypassed(key)
	return v, b.Set(key, v)
}

func (b *BypassFlags) Remove(key string) error {
	b.store.RemoveValue(bypassPrefix + key)
	return flush(b.store)
}

// StateStore keeps each plugin's serialized state, base64 encoded.
type StateStore struct {
	store *settings.Store
}

func NewStateStore(s *settings.Store) *StateStore {
	return &StateStore{store: s}
}

// Load returns the saved state for key. Empty or undecodable blobs are
// reported as absent so the plugin starts from its defaults.
func (s *StateStore) Load(ctx context.Context, key string) ([]byte, bool) {
	raw, ok := s.store.Value(statePrefix + key)
	if !ok {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err == nil && len(data) == 0 {
		err = errors.New("empty blob")
	}
	if err != nil {
		slogcontext.FromCtx(ctx).With(slog.String("realm", "chain")).Warn("ignoring saved plugin state",
			slog.String("key", key), slog.Any("error", fmt.Errorf("%w: %w", ErrCorruptState, err)))
		return nil, false
	}
	return data, true
}

// SaveAll stores every non-empty blob with a single flush. Keys missing from
// states keep what was saved before.
func (s *StateStore) SaveAll(states map[string][]byte) error {
	for key, data := range states {
		if len(data) == 0 {
			continue
		}
		s.store.SetValue(statePrefix+key, base64.StdEncoding.EncodeToString(data))
	}
	return flush(s.store)
}

func (s *StateStore) Delete(key string) error {
	s.store.RemoveValue(statePrefix + key)
	return flush(s.store)
}

// DeleteAll removes every saved state.
func (s *StateStore) DeleteAll() error {
	for _, k := range s.store.Keys(statePrefix) {
		s.store.RemoveValue(k)
	}
	return flush(s.store)
}

func (s *StateStore) Keys() []string {
	return trimPrefix(s.store.Keys(statePrefix), statePrefix)
}
