package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhiramiramadas/minibot/internal/store"
)

func newSettings(t *testing.T) (*Settings, store.Storer) {
	t.Helper()
	kv, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return New(kv), kv
}

func TestDefaults(t *testing.T) {
	s, _ := newSettings(t)

	theme, err := s.Theme()
	require.NoError(t, err)
	assert.Equal(t, "light", theme)

	font, err := s.Font()
	require.NoError(t, err)
	assert.Equal(t, "'Courier New', monospace", font)

	custom, err := s.CustomTheme()
	require.NoError(t, err)
	assert.Equal(t, CustomTheme{}, custom)

	tts, err := s.TTSEnabled()
	require.NoError(t, err)
	assert.False(t, tts)

	stt, err := s.STTEnabled()
	require.NoError(t, err)
	assert.False(t, stt)
}

func TestRoundTrip(t *testing.T) {
	s, kv := newSettings(t)

	require.NoError(t, s.SetTheme("light"))
	require.NoError(t, s.SetFont("mono"))
	require.NoError(t, s.SetTTSEnabled(true))

	theme, err := s.Theme()
	require.NoError(t, err)
	assert.Equal(t, "light", theme)

	// A fresh Settings over the same store sees the persisted values.
	reopened := New(kv)
	font, err := reopened.Font()
	require.NoError(t, err)
	assert.Equal(t, "mono", font)

	tts, err := reopened.TTSEnabled()
	require.NoError(t, err)
	assert.True(t, tts)
}

func TestCustomThemeSwitchesActiveTheme(t *testing.T) {
	s, kv := newSettings(t)

	require.NoError(t, s.SetTheme("light"))
	require.NoError(t, s.SetCustomTheme(CustomTheme{
		MainColor: "#ff8800",
		BgColor:   "#101010",
		FontURL:   "https://fonts.example/inconsolata.css",
		FontName:  "Inconsolata",
	}))

	// Saving a custom theme activates it.
	theme, err := s.Theme()
	require.NoError(t, err)
	assert.Equal(t, "custom", theme)

	// Values persist under their own keys.
	reopened := New(kv)
	custom, err := reopened.CustomTheme()
	require.NoError(t, err)
	assert.Equal(t, "#ff8800", custom.MainColor)
	assert.Equal(t, "#101010", custom.BgColor)
	assert.Equal(t, "https://fonts.example/inconsolata.css", custom.FontURL)
	assert.Equal(t, "Inconsolata", custom.FontName)
}

func TestEmptyValuesRejected(t *testing.T) {
	s, _ := newSettings(t)

	assert.Error(t, s.SetTheme(""))
	assert.Error(t, s.SetFont(""))
}

func TestGarbageBoolReadsFalse(t *testing.T) {
	s, kv := newSettings(t)

	require.NoError(t, kv.Set("ttsEnabled", "yes please"))

	tts, err := s.TTSEnabled()
	require.NoError(t, err)
	assert.False(t, tts)
}
