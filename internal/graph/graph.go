// Package graph holds the live processing graph: an INPUT node, an OUTPUT node
// and one node per instantiated plugin, wired as a single linear chain.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-vecmath"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/cbegin/fxhost-go/internal/plugin"
)

// NodeID identifies a node within one graph. Plugin nodes use their rank in the
// resolved chain plus one, so the editor lookup by chain index maps directly.
type NodeID uint32

const (
	InputNodeID  NodeID = 1000000
	OutputNodeID NodeID = 1000001
)

// Channels is the number of audio channels every connection set carries.
const Channels = 2

// Slot is one resolved chain entry handed to the builder.
type Slot struct {
	Descriptor plugin.Descriptor
	Bypassed   bool
}

// Node is a vertex of the graph. Processor is nil for INPUT and OUTPUT.
type Node struct {
	ID         NodeID
	Descriptor plugin.Descriptor
	Bypassed   bool
	Processor  plugin.Processor
}

func (n *Node) String() string {
	switch n.ID {
	case InputNodeID:
		return "INPUT"
	case OutputNodeID:
		return "OUTPUT"
	}
	return fmt.Sprintf("%d:%s", n.ID, n.Descriptor.Name)
}

type Endpoint struct {
	Node    NodeID
	Channel int
}

type Connection struct {
	Source Endpoint
	Dest   Endpoint
}

// Graph is immutable once built, apart from the scratch buffers Process uses.
// Process must not run concurrently with itself; the Builder serializes it.
type Graph struct {
	nodes    []*Node // INPUT, plugin nodes in chain order, OUTPUT
	byID     map[NodeID]*Node
	conns    []Connection
	incoming map[NodeID][]Connection
	missing  []plugin.Descriptor

	bufs map[NodeID]*[Channels][]float64
}

func newGraph() *Graph {
	g := &Graph{
		byID:     map[NodeID]*Node{},
		incoming: map[NodeID][]Connection{},
		bufs:     map[NodeID]*[Channels][]float64{},
	}
	return g
}

func (g *Graph) addNode(n *Node) {
	g.nodes = append(g.nodes, n)
	g.byID[n.ID] = n
	g.bufs[n.ID] = &[Channels][]float64{}
}

// connect wires every channel of src into the same channel of dst.
func (g *Graph) connect(src, dst NodeID) {
	for ch := 0; ch < Channels; ch++ {
		c := Connection{Source: Endpoint{src, ch}, Dest: Endpoint{dst, ch}}
		g.conns = append(g.conns, c)
		g.incoming[dst] = append(g.incoming[dst], c)
	}
}

// Nodes returns every node in processing order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// PluginNodes returns the instantiated plugin nodes in chain order, bypassed
// ones included.
func (g *Graph) PluginNodes() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Processor != nil {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

func (g *Graph) Connections() []Connection {
	return append([]Connection(nil), g.conns...)
}

// Missing lists the chain entries that failed to instantiate in this build.
func (g *Graph) Missing() []plugin.Descriptor {
	return append([]plugin.Descriptor(nil), g.missing...)
}

// HasPath reports whether OUTPUT is reachable from INPUT on channel.
func (g *Graph) HasPath(channel int) bool {
	seen := map[NodeID]bool{}
	frontier := []NodeID{InputNodeID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		if id == OutputNodeID {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, c := range g.conns {
			if c.Source.Node == id && c.Source.Channel == channel && c.Dest.Channel == channel {
				frontier = append(frontier, c.Dest.Node)
			}
		}
	}
	return false
}

// States captures the current state of every plugin node, keyed by stable key.
// Plugins reporting an empty state or an error are left out.
func (g *Graph) States(ctx context.Context) map[string][]byte {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", "graph"))
	out := map[string][]byte{}
	for _, n := range g.PluginNodes() {
		data, err := n.Processor.State()
		if err != nil {
			logger.Warn("could not capture plugin state", slog.String("plugin", n.Descriptor.String()), slog.Any("error", err))
			continue
		}
		if len(data) == 0 {
			continue
		}
		out[n.Descriptor.StableKey()] = data
	}
	return out
}

// Process runs one planar stereo block through the graph in place. Nodes with
// no incoming connection (bypassed plugins) are not run.
func (g *Graph) Process(left, right []float64) {
	n := min(len(left), len(right))
	for _, nd := range g.nodes {
		buf := g.bufs[nd.ID]
		for ch := range buf {
			if cap(buf[ch]) < n {
				buf[ch] = make([]float64, n)
			}
			buf[ch] = buf[ch][:n]
		}
		if nd.ID == InputNodeID {
			copy(buf[0], left)
			copy(buf[1], right)
			continue
		}
		clear(buf[0])
		clear(buf[1])
		in := g.incoming[nd.ID]
		for _, c := range in {
			vecmath.AddBlockInPlace(buf[c.Dest.Channel], g.bufs[c.Source.Node][c.Source.Channel][:n])
		}
		if len(in) == 0 || nd.Processor == nil {
			continue
		}
		nd.Processor.Process(buf[0], buf[1])
	}
	out := g.bufs[OutputNodeID]
	copy(left, out[0])
	copy(right, out[1])
}
