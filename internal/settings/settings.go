// Package settings is the host's durable key/value store. Values are strings on
// disk with typed accessors on top; the file is a flat YAML mapping rewritten
// atomically by SaveIfNeeded.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"sigs.k8s.io/yaml"
)

// ErrWrite is returned when pending changes could not be made durable. The
// in-memory values are kept, so a later successful save catches up.
var ErrWrite = errors.New("settings write failed")

const fileSuffix = "settings"

type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	dirty  bool
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("settings path is required")
	}
	s := &Store{path: path, values: map[string]string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s, nil
}

// NewMemory returns a store that is never written to disk.
func NewMemory() *Store {
	return &Store{values: map[string]string{}}
}

// DefaultPath places the settings file in the user's config directory. A
// non-empty instance name gives each concurrently running host its own file.
func DefaultPath(app, instance string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	name := app + "." + fileSuffix
	if instance != "" {
		name = app + "." + instance + "." + fileSuffix
	}
	return filepath.Join(dir, app, name), nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) ContainsKey(key string) bool {
	_, ok := s.Value(key)
	return ok
}

func (s *Store) SetValue(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.values[key]; ok && old == value {
		return
	}
	s.values[key] = value
	s.dirty = true
}

func (s *Store) RemoveValue(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// IntValue returns def when the key is missing or not an integer.
func (s *Store) IntValue(key string, def int) int {
	v, ok := s.Value(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func (s *Store) SetInt(key string, value int) {
	s.SetValue(key, strconv.Itoa(value))
}

// BoolValue accepts "1"/"0" as well as the strconv spellings.
func (s *Store) BoolValue(key string, def bool) bool {
	v, ok := s.Value(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func (s *Store) SetBool(key string, value bool) {
	s.SetValue(key, strconv.FormatBool(value))
}

// SetObject stores v as a YAML document under key.
func (s *Store) SetObject(key string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.SetValue(key, string(data))
	return nil
}

// Object decodes the YAML document under key into v and reports whether the key
// was present.
func (s *Store) Object(key string, v any) (bool, error) {
	raw, ok := s.Value(key)
	if !ok {
		return false, nil
	}
	if err := yaml.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Keys returns the keys starting with prefix in lexical order.
func (s *Store) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// NeedsSave reports whether there are changes not yet written.
func (s *Store) NeedsSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SaveIfNeeded writes pending changes. Memory stores only clear the dirty flag.
func (s *Store) SaveIfNeeded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if s.path == "" {
		s.dirty = false
		return nil
	}
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWrite, err)
	}
	if err := writeFileAtomicDurable(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	s.dirty = false
	return nil
}
