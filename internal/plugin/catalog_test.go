package plugin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/fxhost-go/internal/plugin"
	"github.com/cbegin/fxhost-go/internal/plugin/plugintest"
)

func TestStableKeyIgnoresChannels(t *testing.T) {
	a := plugintest.Descriptor("Delay")
	b := a
	b.NumInputChannels = 1
	assert.Equal(t, "Delay1.0.0Fake", a.StableKey())
	assert.True(t, a.Same(b))

	c := a
	c.Version = "1.0.1"
	assert.False(t, a.Same(c))
}

func TestStableKeyKeepsPersistedForm(t *testing.T) {
	d := plugin.Descriptor{Name: "Rev", Version: "1.0", Format: "VST3"}
	assert.Equal(t, "Rev1.0VST3", d.StableKey())
	assert.True(t, d.Same(plugin.Descriptor{Name: "Rev1", Version: ".0", Format: "VST3"}))
}

func TestCatalogDeduplicatesByKey(t *testing.T) {
	c := plugin.NewCatalog()
	assert.True(t, c.Add(plugintest.Descriptor("A")))
	assert.False(t, c.Add(plugintest.Descriptor("A")))
	assert.True(t, c.Add(plugintest.Descriptor("B")))
	assert.Equal(t, 2, c.Len())

	assert.True(t, c.Remove(plugintest.Descriptor("A")))
	assert.False(t, c.Remove(plugintest.Descriptor("A")))
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "B", c.Types()[0].Name)
}

func TestCatalogRemoveLackingInputOutput(t *testing.T) {
	mono := plugintest.Descriptor("Mono")
	mono.NumOutputChannels = 1
	sidechainOnly := plugintest.Descriptor("Analyzer")
	sidechainOnly.NumInputChannels = 0
	c := plugin.NewCatalog(plugintest.Descriptor("Stereo"), mono, sidechainOnly)

	removed := c.RemoveLackingInputOutput(2)
	assert.Len(t, removed, 2)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "Stereo", c.Types()[0].Name)
}

func TestCatalogMatchAndLatest(t *testing.T) {
	old := plugintest.Descriptor("Reverb")
	old.Version = "1.2.0"
	newer := plugintest.Descriptor("Reverb")
	newer.Version = "1.10.0"
	odd := plugintest.Descriptor("Reverb")
	odd.Version = "beta"
	c := plugin.NewCatalog(old, odd, newer, plugintest.Descriptor("Delay"))

	matches, err := c.Match("rev*")
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	best, ok, err := c.Latest("Reverb")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.10.0", best.Version)

	_, ok, err = c.Latest("Chorus")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogSortedByManufacturer(t *testing.T) {
	a := plugintest.Descriptor("Zeta")
	a.Manufacturer = "acme"
	b := plugintest.Descriptor("Alpha")
	b.Manufacturer = "Zulu"
	c := plugin.NewCatalog(b, a)
	sorted := c.Sorted()
	assert.Equal(t, "Zeta", sorted[0].Name)
	assert.Equal(t, "Alpha", sorted[1].Name)
}

func TestCatalogSnapshotRestoresMembers(t *testing.T) {
	c := plugin.NewCatalog(plugintest.Descriptor("A"), plugintest.Descriptor("B"))
	data, err := c.MarshalSnapshot()
	require.NoError(t, err)

	restored := plugin.NewCatalog(plugintest.Descriptor("stale"))
	require.NoError(t, restored.UnmarshalSnapshot(data))
	assert.Equal(t, c.Types(), restored.Types())

	assert.Error(t, restored.UnmarshalSnapshot([]byte("plugins: [")))
}

func TestFormatManagerWrapsInstantiationFailures(t *testing.T) {
	ctx := context.Background()
	fake := plugintest.NewFormat(plugintest.Descriptor("A"))
	m := plugin.NewFormatManager(fake)

	p, err := m.Instantiate(ctx, plugintest.Descriptor("A"), 48000, 256)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Descriptor().Name)

	fake.SetFailing("A", true)
	_, err = m.Instantiate(ctx, plugintest.Descriptor("A"), 48000, 256)
	assert.ErrorIs(t, err, plugin.ErrInstantiation)

	unknown := plugintest.Descriptor("A")
	unknown.Format = "VST3"
	_, err = m.Instantiate(ctx, unknown, 48000, 256)
	assert.ErrorIs(t, err, plugin.ErrInstantiation)
}

func TestFormatManagerScanSkipsBrokenFormats(t *testing.T) {
	ctx := context.Background()
	good := plugintest.NewFormat(plugintest.Descriptor("A"), plugintest.Descriptor("B"))
	m := plugin.NewFormatManager(good)
	assert.Len(t, m.Scan(ctx), 2)

	good.SetScanError(errors.New("disk unplugged"))
	assert.Empty(t, m.Scan(ctx))
}
