package social

import (
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepTargets(t *testing.T) {
	assert := assert_.New(t)
	home, work := t.TempDir(), t.TempDir()
	engineDir := filepath.Join(home, ".config", "instaloader")
	require.NoError(t, os.MkdirAll(engineDir, 0755))
	for _, p := range []string{
		filepath.Join(home, "bob"),
		filepath.Join(engineDir, "session-bob"),
		filepath.Join(engineDir, "session-alice"),
		filepath.Join(work, "bob_session"),
		filepath.Join(work, "bob-notes.txt"),
	} {
		require.NoError(t, os.WriteFile(p, nil, 0600))
	}

	targets := SweepTargets(SweepLocations{HomeDir: home, WorkDir: work}, "bob")
	assert.ElementsMatch([]string{
		filepath.Join(home, "bob"),
		filepath.Join(engineDir, "session-bob"),
		filepath.Join(work, "bob_session"),
	}, targets)

	assert.Nil(SweepTargets(SweepLocations{HomeDir: home}, ""))

	removed, err := Sweep(SweepLocations{HomeDir: home, WorkDir: work}, "bob")
	assert.NoError(err)
	assert.Len(removed, 3)
	assert.FileExists(filepath.Join(engineDir, "session-alice"))
	assert.Empty(SweepTargets(SweepLocations{HomeDir: home, WorkDir: work}, "bob"))
	assert.FileExists(filepath.Join(work, "bob-notes.txt"))
}

func TestSweepTargetsKeepsAppFiles(t *testing.T) {
	assert := assert_.New(t)
	app := t.TempDir()
	keep := []string{
		filepath.Join(app, "settings.json"),
		filepath.Join(app, "history.json"),
		filepath.Join(app, "sessions.db"),
	}
	for _, p := range append(keep, filepath.Join(app, "tin-cookies")) {
		require.NoError(t, os.WriteFile(p, nil, 0600))
	}
	loc := SweepLocations{AppDir: app, Keep: keep}

	assert.Equal([]string{filepath.Join(app, "tin-cookies")}, SweepTargets(loc, "tin"))
	for _, username := range []string{"story", "ion", "s"} {
		assert.Empty(SweepTargets(loc, username), username)
	}
	// Without the keep list the same names would be swept.
	assert.NotEmpty(SweepTargets(SweepLocations{AppDir: app}, "ion"))
}

func TestSweepTargetsLiteralDir(t *testing.T) {
	assert := assert_.New(t)
	downloads := filepath.Join(t.TempDir(), "[bob]*")
	require.NoError(t, os.Mkdir(downloads, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(downloads, "bob-cookies.txt"), nil, 0600))
	assert.Equal([]string{filepath.Join(downloads, "bob-cookies.txt")}, SweepTargets(SweepLocations{DownloadDir: downloads}, "bob"))
}
