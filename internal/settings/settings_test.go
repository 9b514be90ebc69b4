package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreTypedAccessors(t *testing.T) {
	s := NewMemory()
	assert.Equal(t, 7, s.IntValue("missing", 7))
	assert.True(t, s.BoolValue("missing", true))

	s.SetInt("plugin-order-A", 12)
	s.SetBool("plugin-bypass-A", true)
	s.SetValue("garbage", "twelve")

	assert.Equal(t, 12, s.IntValue("plugin-order-A", 0))
	assert.True(t, s.BoolValue("plugin-bypass-A", false))
	assert.Equal(t, 3, s.IntValue("garbage", 3))
	assert.False(t, s.BoolValue("garbage", false))

	s.SetValue("legacy", "1")
	assert.True(t, s.BoolValue("legacy", false))

	assert.Equal(t, []string{"plugin-bypass-A", "plugin-order-A"}, s.Keys("plugin-"))
	s.RemoveValue("plugin-order-A")
	assert.False(t, s.ContainsKey("plugin-order-A"))
}

func TestStoreDirtyTracking(t *testing.T) {
	s := NewMemory()
	assert.False(t, s.NeedsSave())
	s.SetInt("k", 1)
	assert.True(t, s.NeedsSave())
	require.NoError(t, s.SaveIfNeeded())
	assert.False(t, s.NeedsSave())

	s.SetInt("k", 1)
	assert.False(t, s.NeedsSave(), "rewriting an identical value is not a change")
	s.RemoveValue("absent")
	assert.False(t, s.NeedsSave())
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host", "fxhost.settings")
	s, err := Open(path)
	require.NoError(t, err)
	s.SetInt("plugin-order-Delay1.0.0builtin", 3)
	s.SetValue("plugin-state-Delay1.0.0builtin", "AAEC")
	require.NoError(t, s.SetObject("pluginList", map[string][]string{"plugins": {"a", "b"}}))
	require.NoError(t, s.SaveIfNeeded())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.IntValue("plugin-order-Delay1.0.0builtin", 0))
	v, ok := reopened.Value("plugin-state-Delay1.0.0builtin")
	require.True(t, ok)
	assert.Equal(t, "AAEC", v)

	var list map[string][]string
	found, err := reopened.Object("pluginList", &list)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"a", "b"}, list["plugins"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStoreWriteFailureKeepsChanges(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	s, err := Open(filepath.Join(blocker, "fxhost.settings"))
	require.NoError(t, err)
	// The parent directory turns into a regular file after opening.
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	s.SetInt("k", 1)
	err = s.SaveIfNeeded()
	require.ErrorIs(t, err, ErrWrite)
	assert.True(t, s.NeedsSave())
	assert.Equal(t, 1, s.IntValue("k", 0))
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fxhost.settings")
	require.NoError(t, os.WriteFile(path, []byte("key: [unterminated"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.settings")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	s, err := Open(empty)
	require.NoError(t, err)
	assert.Empty(t, s.Keys(""))
}

func TestDefaultPathUsesInstanceName(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	single, err := DefaultPath("fxhost", "")
	require.NoError(t, err)
	multi, err := DefaultPath("fxhost", "studio")
	require.NoError(t, err)
	assert.Equal(t, "fxhost.settings", filepath.Base(single))
	assert.Equal(t, "fxhost.studio.settings", filepath.Base(multi))
}
