package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/fxhost-go"
)

func execute(t *testing.T, settings string, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--settings", settings, "--loglevel", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func chainNames(t *testing.T, settings string) []string {
	t.Helper()
	out, err := execute(t, settings, "chain", "-o", "json")
	require.NoError(t, err)
	var entries []fxhost.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Descriptor.Name)
	}
	return names
}

func TestChainCommands(t *testing.T) {
	settings := filepath.Join(t.TempDir(), "fxhost.settings")

	_, err := execute(t, settings, "add", "delay")
	assert.ErrorIs(t, err, fxhost.ErrNotFound, "nothing is known before a scan")

	out, err := execute(t, settings, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "Compressor")

	out, err = execute(t, settings, "available", "--filter", "eq*", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: EQ5")
	assert.NotContains(t, out, "Delay")

	for _, name := range []string{"delay", "reverb", "gain"} {
		_, err = execute(t, settings, "add", name)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"Delay", "Reverb", "Gain"}, chainNames(t, settings))

	_, err = execute(t, settings, "move-down", "0")
	require.NoError(t, err)
	_, err = execute(t, settings, "move-up", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reverb", "Gain", "Delay"}, chainNames(t, settings))

	_, err = execute(t, settings, "bypass", "1")
	require.NoError(t, err)
	out, err = execute(t, settings, "chain", "-o", "json")
	require.NoError(t, err)
	var entries []fxhost.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Equal(t, []bool{false, true, false}, []bool{entries[0].Bypassed, entries[1].Bypassed, entries[2].Bypassed})

	out, err = execute(t, settings, "chain")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Reverb")

	_, err = execute(t, settings, "set", "2", "time_ms", "400")
	require.NoError(t, err)
	out, err = execute(t, settings, "params", "2", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Value": 400`)

	_, err = execute(t, settings, "delete", "0")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gain", "Delay"}, chainNames(t, settings))

	_, err = execute(t, settings, "delete", "7")
	assert.ErrorIs(t, err, fxhost.ErrIndexOutOfRange)
	_, err = execute(t, settings, "delete", "x")
	assert.Error(t, err)

	_, err = execute(t, settings, "clear-states")
	require.NoError(t, err)
	out, err = execute(t, settings, "params", "1", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Value": 250`)
}

func TestRenderCommandWritesWAV(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "fxhost.settings")
	wav := filepath.Join(dir, "out.wav")

	_, err := execute(t, settings, "render", "--seconds", "0.1", "--sample-rate", "8000", "--out", wav)
	require.NoError(t, err)
	data, err := os.ReadFile(wav)
	require.NoError(t, err)
	assert.Len(t, data, 44+800*2*4)
	assert.Equal(t, "RIFF", string(data[:4]))

	_, err = execute(t, settings, "render")
	assert.Error(t, err)
}

func TestInvalidOutputFormat(t *testing.T) {
	settings := filepath.Join(t.TempDir(), "fxhost.settings")
	_, err := execute(t, settings, "chain", "-o", "xml")
	assert.Error(t, err)
}
