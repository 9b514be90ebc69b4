package plugin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"sigs.k8s.io/yaml"
)

// Catalog is an ordered set of descriptors keyed by StableKey. The host keeps two:
// the discovered plugins and the active chain membership. A Catalog is not safe
// for concurrent use; its owner serializes access.
type Catalog struct {
	types []Descriptor
}

type catalogSnapshot struct {
	Plugins []Descriptor `json:"plugins"`
}

func NewCatalog(ds ...Descriptor) *Catalog {
	c := &Catalog{}
	for _, d := range ds {
		c.Add(d)
	}
	return c
}

// Add appends d unless a descriptor with the same key is present. It reports
// whether the catalog changed.
func (c *Catalog) Add(d Descriptor) bool {
	if c.indexOf(d.StableKey()) >= 0 {
		return false
	}
	c.types = append(c.types, d)
	return true
}

// Remove drops the descriptor sharing d's key and reports whether one was found.
func (c *Catalog) Remove(d Descriptor) bool {
	i := c.indexOf(d.StableKey())
	if i < 0 {
		return false
	}
	c.types = append(c.types[:i], c.types[i+1:]...)
	return true
}

func (c *Catalog) Contains(d Descriptor) bool {
	return c.indexOf(d.StableKey()) >= 0
}

// Lookup returns the member with the given stable key.
func (c *Catalog) Lookup(key string) (Descriptor, bool) {
	i := c.indexOf(key)
	if i < 0 {
		return Descriptor{}, false
	}
	return c.types[i], true
}

func (c *Catalog) Len() int { return len(c.types) }

// Types returns a copy of the members in insertion order.
func (c *Catalog) Types() []Descriptor {
	return append([]Descriptor(nil), c.types...)
}

// Clear removes every member.
func (c *Catalog) Clear() {
	c.types = nil
}

func (c *Catalog) indexOf(key string) int {
	for i, d := range c.types {
		if d.StableKey() == key {
			return i
		}
	}
	return -1
}

// Sorted returns the members ordered by manufacturer, then name, then version.
func (c *Catalog) Sorted() []Descriptor {
	out := c.Types()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !strings.EqualFold(a.Manufacturer, b.Manufacturer) {
			return strings.ToLower(a.Manufacturer) < strings.ToLower(b.Manufacturer)
		}
		if !strings.EqualFold(a.Name, b.Name) {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return compareVersions(a.Version, b.Version) < 0
	})
	return out
}

// RemoveLackingInputOutput drops plugins that cannot take part in a stereo chain
// and returns them.
func (c *Catalog) RemoveLackingInputOutput(minChannels int) []Descriptor {
	var kept, removed []Descriptor
	for _, d := range c.types {
		if d.NumInputChannels < minChannels || d.NumOutputChannels < minChannels {
			removed = append(removed, d)
			continue
		}
		kept = append(kept, d)
	}
	c.types = kept
	return removed
}

// Match returns the members whose name matches the glob pattern, compared
// case-insensitively.
func (c *Catalog) Match(pattern string) ([]Descriptor, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid plugin pattern %q: %w", pattern, err)
	}
	var out []Descriptor
	for _, d := range c.types {
		if g.Match(strings.ToLower(d.Name)) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Latest returns the highest-versioned member matching pattern. Versions that are
// not semantic versions rank below those that are.
func (c *Catalog) Latest(pattern string) (Descriptor, bool, error) {
	matches, err := c.Match(pattern)
	if err != nil {
		return Descriptor{}, false, err
	}
	if len(matches) == 0 {
		return Descriptor{}, false, nil
	}
	best := matches[0]
	for _, d := range matches[1:] {
		if compareVersions(d.Version, best.Version) > 0 {
			best = d
		}
	}
	return best, true, nil
}

func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// MarshalSnapshot serializes the catalog for the settings store.
func (c *Catalog) MarshalSnapshot() ([]byte, error) {
	return yaml.Marshal(catalogSnapshot{Plugins: c.Types()})
}

// UnmarshalSnapshot replaces the catalog's members with a stored snapshot.
func (c *Catalog) UnmarshalSnapshot(data []byte) error {
	var snap catalogSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("invalid plugin list snapshot: %w", err)
	}
	c.types = nil
	for _, d := range snap.Plugins {
		c.Add(d)
	}
	return nil
}
