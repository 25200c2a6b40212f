package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDefaults(t *testing.T) {
	assert := assert_.New(t)
	s := NewSettingsStore(t.TempDir())
	settings, err := s.Load()
	require.NoError(t, err)
	assert.Equal(DefaultSettings(), settings)
	assert.Equal("%(title)s", settings.FilenameTemplate)
	assert.Equal("dark", settings.Theme)
	assert.Equal("tr", settings.Language)
	assert.True(settings.Notifications)
	assert.False(settings.AutoFolder)
}

func TestSettingsRoundTrip(t *testing.T) {
	assert := assert_.New(t)
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewSettingsStore(dir)
	settings, err := s.Load()
	require.NoError(t, err)

	settings.DownloadPath = "/media/downloads"
	settings.AutoFolder = true
	settings.Notifications = false
	settings.InstagramUsername = "someone"
	require.NoError(t, s.Save(settings))

	loaded, err := NewSettingsStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(settings, loaded)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal("/media/downloads", raw["download_path"])
	assert.Equal(true, raw["auto_folder"])
}

func TestSettingsPartialFile(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile),
		[]byte(`{"theme": "light", "notifications": false, "window_size": "800x600"}`), 0o644))
	s := NewSettingsStore(dir)
	settings, err := s.Load()
	require.NoError(t, err)
	assert.Equal("light", settings.Theme)
	assert.False(settings.Notifications)
	assert.Equal("tr", settings.Language)
	assert.Equal(DefaultDownloadPath(), settings.DownloadPath)

	require.NoError(t, s.Save(settings))
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(string(data), "window_size")
}

func TestSettingsCorruptFile(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte("{{{"), 0o644))
	settings, err := NewSettingsStore(dir).Load()
	assert.Error(err)
	assert.Equal(DefaultSettings(), settings)
}

func TestSettingsGetSet(t *testing.T) {
	assert := assert_.New(t)
	settings := DefaultSettings()
	require.NoError(t, settings.Set(KeyAutoFolder, "true"))
	assert.True(settings.AutoFolder)
	require.NoError(t, settings.Set(KeyLanguage, "en"))
	assert.Equal("en", settings.Language)
	assert.Error(settings.Set(KeyNotifications, "maybe"))
	assert.ErrorIs(settings.Set("volume", "11"), ErrUnknownSetting)

	value, err := settings.Get(KeyAutoFolder)
	require.NoError(t, err)
	assert.Equal("true", value)
	_, err = settings.Get("volume")
	assert.ErrorIs(err, ErrUnknownSetting)
	for _, key := range Keys() {
		_, err := settings.Get(key)
		assert.NoError(err, key)
	}
}
