package graph

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/cbegin/fxhost-go/internal/plugin"
	"github.com/cbegin/fxhost-go/internal/window"
)

// Instantiator creates plugin processors. plugin.FormatManager implements it.
type Instantiator interface {
	Instantiate(ctx context.Context, d plugin.Descriptor, sampleRate float64, blockSize int) (plugin.Processor, error)
}

// StateLoader returns the saved state for a stable key. A missing, empty or
// undecodable blob reports false.
type StateLoader interface {
	Load(ctx context.Context, key string) ([]byte, bool)
}

type builderConfig struct {
	sampleRate float64
	blockSize  int
	states     StateLoader
	windows    *window.Registry
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderConfig)

func WithSampleRate(rate float64) BuilderOption {
	return func(c *builderConfig) {
		if rate > 0 {
			c.sampleRate = rate
		}
	}
}

func WithBlockSize(n int) BuilderOption {
	return func(c *builderConfig) {
		if n > 0 {
			c.blockSize = n
		}
	}
}

// WithStates sets where saved plugin states are read from during a rebuild.
func WithStates(s StateLoader) BuilderOption {
	return func(c *builderConfig) {
		c.states = s
	}
}

// WithWindows sets the editor windows closed before each rebuild.
func WithWindows(r *window.Registry) BuilderOption {
	return func(c *builderConfig) {
		c.windows = r
	}
}

// Builder turns a resolved chain into a live Graph and installs it for the
// audio goroutine.
type Builder struct {
	formats Instantiator
	cfg     builderConfig

	// mu is held by Process for a whole block and by Rebuild only for the swap.
	mu   sync.Mutex
	live *Graph

	current atomic.Pointer[Graph]
}

func NewBuilder(formats Instantiator, opts ...BuilderOption) *Builder {
	cfg := builderConfig{sampleRate: 44100, blockSize: 512}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.windows == nil {
		cfg.windows = window.NewRegistry()
	}
	return &Builder{formats: formats, cfg: cfg}
}

func (b *Builder) SampleRate() float64 { return b.cfg.sampleRate }

func (b *Builder) BlockSize() int { return b.cfg.blockSize }

func (b *Builder) Windows() *window.Registry { return b.cfg.windows }

// Rebuild discards the current graph and builds a new one from slots. The
// result always connects INPUT to OUTPUT on both channels: failed plugins are
// skipped and bypassed plugins are instantiated but left unwired.
func (b *Builder) Rebuild(ctx context.Context, slots []Slot) *Graph {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", "graph"))

	// Editors reference nodes of the old graph and must go first.
	if err := b.cfg.windows.CloseAll(); err != nil {
		logger.Warn("closing editor windows", slog.Any("error", err))
	}

	g := newGraph()
	g.addNode(&Node{ID: InputNodeID})

	prev := InputNodeID
	for rank, s := range slots {
		p, err := b.formats.Instantiate(ctx, s.Descriptor, b.cfg.sampleRate, b.cfg.blockSize)
		if err != nil {
			logger.Warn("plugin missing from chain", slog.String("plugin", s.Descriptor.String()), slog.Any("error", err))
			g.missing = append(g.missing, s.Descriptor)
			continue
		}
		b.restore(ctx, logger, p, s.Descriptor)

		n := &Node{ID: NodeID(rank + 1), Descriptor: s.Descriptor, Bypassed: s.Bypassed, Processor: p}
		g.addNode(n)
		if s.Bypassed {
			continue
		}
		g.connect(prev, n.ID)
		prev = n.ID
	}

	g.addNode(&Node{ID: OutputNodeID})
	g.connect(prev, OutputNodeID)

	b.install(g)
	logger.Debug("graph rebuilt",
		slog.Int("nodes", len(g.nodes)-2), slog.Int("missing", len(g.missing)))
	return g
}

func (b *Builder) restore(ctx context.Context, logger *slog.Logger, p plugin.Processor, d plugin.Descriptor) {
	if b.cfg.states == nil {
		return
	}
	data, ok := b.cfg.states.Load(ctx, d.StableKey())
	if !ok {
		return
	}
	if err := p.SetState(data); err != nil {
		logger.Warn("discarding unreadable plugin state", slog.String("plugin", d.String()), slog.Any("error", err))
		p.Reset()
	}
}

func (b *Builder) install(g *Graph) {
	b.mu.Lock()
	old := b.live
	b.live = g
	b.mu.Unlock()
	b.current.Store(g)
	release(old)
}

func release(g *Graph) {
	if g == nil {
		return
	}
	for _, n := range g.PluginNodes() {
		if c, ok := n.Processor.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

// Current returns the installed graph, or nil before the first rebuild.
func (b *Builder) Current() *Graph {
	return b.current.Load()
}

// Process runs one block through the installed graph. Without a graph the
// block passes through unchanged.
func (b *Builder) Process(left, right []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.live == nil {
		return
	}
	b.live.Process(left, right)
}

// Close closes all editor windows and releases the installed graph.
func (b *Builder) Close() error {
	err := b.cfg.windows.CloseAll()
	b.mu.Lock()
	old := b.live
	b.live = nil
	b.mu.Unlock()
	b.current.Store(nil)
	release(old)
	return err
}
