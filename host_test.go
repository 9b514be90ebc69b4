package fxhost

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intaudio "github.com/cbegin/fxhost-go/internal/audio"
	"github.com/cbegin/fxhost-go/internal/plugin/plugintest"
	"github.com/cbegin/fxhost-go/internal/window"
)

func newTestHost(t *testing.T, path string, opts ...HostOption) *Host {
	t.Helper()
	opts = append([]HostOption{WithSettingsPath(path), WithSampleRate(48000), WithBlockSize(64)}, opts...)
	h, err := NewHost(context.Background(), opts...)
	require.NoError(t, err)
	return h
}

func peak(samples []float32) float64 {
	var m float64
	for _, s := range samples {
		m = math.Max(m, math.Abs(float64(s)))
	}
	return m
}

func TestScanFiltersAndAddByName(t *testing.T) {
	ctx := context.Background()
	mono := plugintest.Descriptor("Mono")
	mono.NumInputChannels = 1
	h := newTestHost(t, filepath.Join(t.TempDir(), "fxhost.settings"),
		WithFormats(plugintest.NewFormat(mono, plugintest.Descriptor("Widener"))))

	found, err := h.Scan(ctx)
	require.NoError(t, err)
	var names []string
	for _, d := range found {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "Delay")
	assert.Contains(t, names, "Widener")
	assert.NotContains(t, names, "Mono")

	matched, err := h.Available("*verb")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Reverb", matched[0].Name)

	d, err := h.AddByName(ctx, "delay")
	require.NoError(t, err)
	assert.Equal(t, "Delay", d.Name)
	_, err = h.AddByName(ctx, "delay")
	assert.ErrorIs(t, err, ErrAlreadyActive)
	_, err = h.AddByName(ctx, "vocoder")
	assert.ErrorIs(t, err, ErrNotFound)

	require.Len(t, h.Resolve(ctx), 1)
	require.NoError(t, h.Close(ctx))
}

func TestRestartRestoresChainAndParams(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fxhost.settings")

	h := newTestHost(t, path)
	_, err := h.Scan(ctx)
	require.NoError(t, err)
	_, err = h.AddByName(ctx, "Gain")
	require.NoError(t, err)
	_, err = h.AddByName(ctx, "Delay")
	require.NoError(t, err)
	require.NoError(t, h.SetParam(ctx, 0, "gain_db", -6))
	require.NoError(t, h.MoveDown(ctx, 0))
	require.NoError(t, h.Close(ctx))

	h = newTestHost(t, path)
	var order []string
	for _, e := range h.Entries(ctx) {
		order = append(order, e.Descriptor.Name)
		assert.True(t, e.Live)
	}
	assert.Equal(t, []string{"Delay", "Gain"}, order)
	params, err := h.Params(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, -6.0, params[0].Value)

	avail, err := h.Available("")
	require.NoError(t, err)
	assert.NotEmpty(t, avail, "discovered plugins are persisted")
	require.NoError(t, h.Close(ctx))
}

func TestRenderRunsInputThroughChain(t *testing.T) {
	ctx := context.Background()
	h := newTestHost(t, filepath.Join(t.TempDir(), "fxhost.settings"),
		WithInput(intaudio.NewTone(48000, 1000, 0.5)))
	t.Cleanup(func() { _ = h.Close(ctx) })

	out, err := h.Render(0.05)
	require.NoError(t, err)
	require.Len(t, out, 2*2400)
	assert.InDelta(t, 0.5, peak(out), 1e-3, "empty chain passes through")

	_, err = h.Scan(ctx)
	require.NoError(t, err)
	_, err = h.AddByName(ctx, "Gain")
	require.NoError(t, err)
	require.NoError(t, h.SetParam(ctx, 0, "gain_db", -6.0206))
	out, err = h.Render(0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, peak(out), 1e-3)

	require.NoError(t, h.ToggleBypass(ctx, 0))
	out, err = h.Render(0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, peak(out), 1e-3, "bypassed gain is skipped")

	_, err = h.Render(math.NaN())
	assert.Error(t, err)
}

func TestEditorWindowScopedToLiveNodes(t *testing.T) {
	ctx := context.Background()
	fake := plugintest.NewFormat(plugintest.Descriptor("Broken"))
	fake.SetFailing("Broken", true)
	h := newTestHost(t, filepath.Join(t.TempDir(), "fxhost.settings"), WithFormats(fake))
	t.Cleanup(func() { _ = h.Close(ctx) })

	_, err := h.Scan(ctx)
	require.NoError(t, err)
	_, err = h.AddByName(ctx, "Chorus")
	require.NoError(t, err)
	_, err = h.AddByName(ctx, "Broken")
	require.NoError(t, err)

	w, err := h.EditorWindowFor(ctx, 0, window.Normal)
	require.NoError(t, err)
	again, err := h.EditorWindowFor(ctx, 0, window.Normal)
	require.NoError(t, err)
	assert.Same(t, w, again)

	_, err = h.EditorWindowFor(ctx, 1, window.Normal)
	assert.ErrorIs(t, err, ErrNotLive)
	_, err = h.EditorWindowFor(ctx, 2, window.Normal)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	require.NoError(t, h.ToggleBypass(ctx, 0))
	assert.True(t, w.Editor.(*window.GenericEditor).Closed(), "rebuild closes editors")
	fresh, err := h.EditorWindowFor(ctx, 0, window.Normal)
	require.NoError(t, err)
	assert.NotEqual(t, w.ID, fresh.ID)
}

func TestEditorWindowRejectsStaleGraph(t *testing.T) {
	ctx := context.Background()
	a, b := plugintest.Descriptor("A"), plugintest.Descriptor("B")
	dir := filepath.Join(t.TempDir(), "config")
	h := newTestHost(t, filepath.Join(dir, "fxhost.settings"), WithFormats(plugintest.NewFormat(a, b)))
	t.Cleanup(func() { _ = h.Close(ctx) })
	require.NoError(t, h.Add(ctx, a))
	require.NoError(t, h.Add(ctx, b))

	_, err := h.EditorWindowFor(ctx, 0, window.Normal)
	assert.ErrorIs(t, err, window.ErrNoEditor)

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o644))
	assert.ErrorIs(t, h.MoveDown(ctx, 0), ErrStoreWrite)
	assert.Equal(t, "B", h.Entries(ctx)[0].Descriptor.Name, "order changed in memory")
	_, err = h.EditorWindowFor(ctx, 0, window.Normal)
	assert.ErrorIs(t, err, ErrNotLive, "graph still has A first")

	require.NoError(t, os.Remove(dir))
	require.NoError(t, h.MoveDown(ctx, 0))
	assert.Equal(t, "A", h.Entries(ctx)[0].Descriptor.Name)
	_, err = h.EditorWindowFor(ctx, 0, window.Normal)
	assert.ErrorIs(t, err, window.ErrNoEditor)
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	wav := EncodeWAVFloat32LE([]float32{0.5, -0.5, 1, 0}, 48000, 2)
	require.Len(t, wav, 44+16)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(wav[20:]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[24:]))
	assert.Equal(t, uint32(48000*8), binary.LittleEndian.Uint32(wav[28:]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(wav[40:]))
	assert.Equal(t, float32(-0.5), math.Float32frombits(binary.LittleEndian.Uint32(wav[48:])))
}

func TestNewHostRejectsBadConfig(t *testing.T) {
	_, err := NewHost(context.Background(), WithSettingsPath(filepath.Join(t.TempDir(), "x")), WithSampleRate(0))
	assert.Error(t, err)
}
