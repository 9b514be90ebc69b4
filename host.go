// Package fxhost is a background effects host. It keeps a user-ordered chain of
// plugins, runs audio through it and persists the chain across restarts.
package fxhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	intaudio "github.com/cbegin/fxhost-go/internal/audio"
	"github.com/cbegin/fxhost-go/internal/chain"
	intfx "github.com/cbegin/fxhost-go/internal/effects"
	"github.com/cbegin/fxhost-go/internal/graph"
	"github.com/cbegin/fxhost-go/internal/plugin"
	"github.com/cbegin/fxhost-go/internal/settings"
	"github.com/cbegin/fxhost-go/internal/window"
)

// AppName names the settings directory and file.
const AppName = "fxhost"

var (
	ErrNotFound = errors.New("no matching plugin")
	// ErrNotLive is returned for chain entries that have no node in the current
	// graph, usually because the plugin failed to load.
	ErrNotLive = errors.New("plugin is not live")
)

// Re-exported so callers outside the module can match mutation errors.
var (
	ErrAlreadyActive   = chain.ErrAlreadyActive
	ErrIndexOutOfRange = chain.ErrIndexOutOfRange
	ErrStoreWrite      = chain.ErrStoreWrite
)

type (
	Descriptor  = plugin.Descriptor
	Entry       = chain.Entry
	Format      = plugin.Format
	InputSource = intaudio.InputSource
	Window      = window.Window
	WindowKind  = window.Kind
)

type HostOption func(*hostConfig)

type hostConfig struct {
	sampleRate   int
	blockSize    int
	settingsPath string
	instance     string
	formats      []plugin.Format
	input        intaudio.InputSource
	minChannels  int
	sampleTap    func([]float32)
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		sampleRate:  44100,
		blockSize:   512,
		input:       intaudio.Silence{},
		minChannels: 2,
	}
}

func WithSampleRate(rate int) HostOption {
	return func(cfg *hostConfig) {
		cfg.sampleRate = rate
	}
}

func WithBlockSize(frames int) HostOption {
	return func(cfg *hostConfig) {
		cfg.blockSize = frames
	}
}

// WithSettingsPath overrides the settings file location.
func WithSettingsPath(path string) HostOption {
	return func(cfg *hostConfig) {
		cfg.settingsPath = path
	}
}

// WithInstance keeps a separate settings file per named instance so several
// hosts can run side by side.
func WithInstance(name string) HostOption {
	return func(cfg *hostConfig) {
		cfg.instance = name
	}
}

// WithFormats registers plugin formats in addition to the built-in effects.
func WithFormats(formats ...Format) HostOption {
	return func(cfg *hostConfig) {
		cfg.formats = append(cfg.formats, formats...)
	}
}

// WithInput sets the signal fed into the chain.
func WithInput(input InputSource) HostOption {
	return func(cfg *hostConfig) {
		if input != nil {
			cfg.input = input
		}
	}
}

// WithSampleTap installs a callback invoked with each processed stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) HostOption {
	return func(cfg *hostConfig) {
		cfg.sampleTap = tap
	}
}

// Host owns the settings store, the plugin catalogs, the chain and the audio output.
type Host struct {
	mu      sync.Mutex
	cfg     hostConfig
	store   *settings.Store
	formats *plugin.FormatManager
	known   *plugin.Catalog
	windows *window.Registry
	builder *graph.Builder
	chain   *chain.Manager
	player  *intaudio.Output
}

// NewHost opens the settings store and builds the persisted chain.
func NewHost(ctx context.Context, opts ...HostOption) (*Host, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if cfg.blockSize <= 0 {
		return nil, errors.New("blockSize must be positive")
	}

	path := cfg.settingsPath
	if path == "" {
		var err error
		if path, err = settings.DefaultPath(AppName, cfg.instance); err != nil {
			return nil, err
		}
	}
	store, err := settings.Open(path)
	if err != nil {
		return nil, err
	}

	formats := plugin.NewFormatManager(intfx.NewFormat())
	for _, f := range cfg.formats {
		formats.Add(f)
	}
	windows := window.NewRegistry()
	builder := graph.NewBuilder(formats,
		graph.WithSampleRate(float64(cfg.sampleRate)),
		graph.WithBlockSize(cfg.blockSize),
		graph.WithStates(chain.NewStateStore(store)),
		graph.WithWindows(windows),
	)

	h := &Host{
		cfg:     cfg,
		store:   store,
		formats: formats,
		known:   plugin.NewCatalog(),
		windows: windows,
		builder: builder,
		chain:   chain.NewManager(ctx, store, builder),
	}
	if raw, ok := store.Value(chain.KnownListKey); ok {
		if err := h.known.UnmarshalSnapshot([]byte(raw)); err != nil {
			h.logger(ctx).Warn("discarding unreadable plugin list", slog.Any("error", err))
			h.known.Clear()
		}
	}
	h.chain.Verify(ctx)
	g := h.chain.Load(ctx)
	h.logger(ctx).Info("host ready",
		slog.String("settings", path),
		slog.Int("plugins", len(g.PluginNodes())),
		slog.Int("missing", len(g.Missing())))
	return h, nil
}

func (h *Host) logger(ctx context.Context) *slog.Logger {
	return slogcontext.FromCtx(ctx).With(slog.String("realm", "host"))
}

func (h *Host) SettingsPath() string { return h.store.Path() }

func (h *Host) SampleRate() int { return h.cfg.sampleRate }

// Scan rediscovers plugins from every format, drops those that cannot take a
// stereo signal and persists the result.
func (h *Host) Scan(ctx context.Context) ([]Descriptor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.known.Clear()
	for _, d := range h.formats.Scan(ctx) {
		h.known.Add(d)
	}
	for _, d := range h.known.RemoveLackingInputOutput(h.cfg.minChannels) {
		h.logger(ctx).Info("skipping plugin without stereo i/o", slog.String("plugin", d.String()))
	}
	data, err := h.known.MarshalSnapshot()
	if err != nil {
		return nil, fmt.Errorf("encode plugin list: %w", err)
	}
	h.store.SetValue(chain.KnownListKey, string(data))
	if err := h.store.SaveIfNeeded(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return h.known.Sorted(), nil
}

// Available returns the discovered plugins, optionally filtered by a glob on
// the plugin name. An empty pattern matches everything.
func (h *Host) Available(pattern string) ([]Descriptor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if pattern == "" {
		return h.known.Sorted(), nil
	}
	return h.known.Match(pattern)
}

func (h *Host) Resolve(ctx context.Context) []Descriptor {
	return h.chain.Resolve(ctx)
}

func (h *Host) Entries(ctx context.Context) []Entry {
	return h.chain.Entries(ctx)
}

func (h *Host) Add(ctx context.Context, d Descriptor) error {
	return h.chain.Add(ctx, d)
}

// AddByName adds the newest discovered plugin whose name matches pattern.
func (h *Host) AddByName(ctx context.Context, pattern string) (Descriptor, error) {
	h.mu.Lock()
	d, ok, err := h.known.Latest(pattern)
	h.mu.Unlock()
	if err != nil {
		return Descriptor{}, err
	}
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrNotFound, pattern)
	}
	return d, h.chain.Add(ctx, d)
}

func (h *Host) Delete(ctx context.Context, index int) error {
	return h.chain.Delete(ctx, index)
}

func (h *Host) ToggleBypass(ctx context.Context, index int) error {
	return h.chain.ToggleBypass(ctx, index)
}

func (h *Host) MoveUp(ctx context.Context, index int) error {
	return h.chain.MoveUp(ctx, index)
}

func (h *Host) MoveDown(ctx context.Context, index int) error {
	return h.chain.MoveDown(ctx, index)
}

// ClearStates forgets every saved plugin state and reloads the chain at defaults.
func (h *Host) ClearStates(ctx context.Context) error {
	return h.chain.ClearStates(ctx)
}

func (h *Host) SaveStates(ctx context.Context) error {
	return h.chain.SaveStates(ctx)
}

// EditorWindowFor opens, or returns the already open, editor window for the
// chain entry at index. Only entries live in the current graph have editors.
func (h *Host) EditorWindowFor(ctx context.Context, index int, kind WindowKind) (*Window, error) {
	entries := h.chain.Entries(ctx)
	if index < 0 || index >= len(entries) {
		return nil, fmt.Errorf("%w: %d (chain has %d entries)", ErrIndexOutOfRange, index, len(entries))
	}
	g := h.builder.Current()
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotLive, entries[index].Descriptor)
	}
	// The installed graph lags the stored order when a write failure skipped
	// the rebuild, so the node at this rank may be another plugin.
	node, ok := g.Node(graph.NodeID(index + 1))
	if !ok || !node.Descriptor.Same(entries[index].Descriptor) {
		return nil, fmt.Errorf("%w: %s", ErrNotLive, entries[index].Descriptor)
	}
	return h.windows.OpenFor(ctx, uint32(node.ID), kind, node.Processor)
}

// SetParam changes a parameter of the chain entry at index through its
// generic editor. The change is persisted with the next state save.
func (h *Host) SetParam(ctx context.Context, index int, name string, value float64) error {
	w, err := h.EditorWindowFor(ctx, index, window.Parameters)
	if err != nil {
		return err
	}
	ge, ok := w.Editor.(*window.GenericEditor)
	if !ok {
		return fmt.Errorf("%w: %s has no parameter editor", window.ErrNoEditor, w.Title())
	}
	return ge.Set(name, value)
}

// Params lists the parameters of the chain entry at index.
func (h *Host) Params(ctx context.Context, index int) ([]plugin.Param, error) {
	w, err := h.EditorWindowFor(ctx, index, window.Parameters)
	if err != nil {
		return nil, err
	}
	ge, ok := w.Editor.(*window.GenericEditor)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no parameter editor", window.ErrNoEditor, w.Title())
	}
	return ge.Params(), nil
}

type tapSource struct {
	intaudio.FrameSource
	tap func([]float32)
}

func (s tapSource) Process(dst []float32) {
	s.FrameSource.Process(dst)
	s.tap(dst)
}

// Start streams the chain to the default output device.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.player != nil {
		return nil
	}
	var src intaudio.FrameSource = intaudio.NewGraphSource(h.cfg.input, h.builder, h.cfg.blockSize)
	if h.cfg.sampleTap != nil {
		src = tapSource{FrameSource: src, tap: h.cfg.sampleTap}
	}
	pl, err := intaudio.Open(h.cfg.sampleRate, src)
	if err != nil {
		return err
	}
	pl.Play()
	h.player = pl
	return nil
}

func (h *Host) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.player == nil {
		return nil
	}
	err := h.player.Close()
	h.player = nil
	return err
}

// Close stops playback, saves every plugin state and releases the graph.
func (h *Host) Close(ctx context.Context) error {
	errs := []error{h.Stop()}
	if err := h.chain.SaveStates(ctx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, h.builder.Close())
	return errors.Join(errs...)
}
