package chain

import (
	"context"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/cbegin/fxhost-go/internal/plugin"
)

type candidate struct {
	d     plugin.Descriptor
	pos   int
	index int // registry order, breaks position ties
}

func (c candidate) above(floor candidate) bool {
	if c.pos != floor.pos {
		return c.pos > floor.pos
	}
	return c.index > floor.index
}

// Resolve returns the active plugins in ascending position order. Members
// without a stored position are skipped and logged. Equal positions keep
// registry order so every positioned member appears exactly once.
func Resolve(ctx context.Context, active *plugin.Catalog, order *OrderStore) []plugin.Descriptor {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", "chain"))

	var cands []candidate
	for i, d := range active.Types() {
		pos, ok := order.PositionOf(d.StableKey())
		if !ok {
			logger.Warn("active plugin has no position", slog.String("plugin", d.String()))
			continue
		}
		cands = append(cands, candidate{d: d, pos: pos, index: i})
	}

	// Repeated floor selection: take the smallest candidate above the last one taken.
	out := make([]plugin.Descriptor, 0, len(cands))
	var floor candidate
	haveFloor := false
	for {
		best := -1
		for i, c := range cands {
			if haveFloor && !c.above(floor) {
				continue
			}
			if best < 0 || cands[best].above(c) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		floor, haveFloor = cands[best], true
		out = append(out, floor.d)
	}
	return out
}

// orphanPositions lists positioned keys that are not active members.
func orphanPositions(active *plugin.Catalog, order *OrderStore) []string {
	var out []string
	for _, key := range order.Keys() {
		if _, ok := active.Lookup(key); !ok {
			out = append(out, key)
		}
	}
	return out
}
