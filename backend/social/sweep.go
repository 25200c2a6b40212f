package social

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// SweepLocations are the directories searched for session artifacts on logout. Empty fields are skipped.
type SweepLocations struct {
	HomeDir     string
	DownloadDir string
	AppDir      string
	WorkDir     string
	// Keep lists files that are never swept, such as the application's own settings, history and session store.
	Keep []string
}

// entriesContaining returns the paths of entries in dir whose names contain substr, ignoring case if fold is set.
// dir is used literally, never as a pattern.
func entriesContaining(dir string, substr string, fold bool) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	if fold {
		substr = strings.ToLower(substr)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if fold {
			name = strings.ToLower(name)
		}
		if strings.Contains(name, substr) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths
}

// SweepTargets lists the existing paths that look like session artifacts for username. Where the session engine
// keeps its files is not a documented contract, so the list is a best guess covering every location it has been
// seen to use. Media files and loc.Keep are never included even when their name contains the username.
func SweepTargets(loc SweepLocations, username string) []string {
	if username == "" {
		return nil
	}
	seen := make(map[string]bool)
	for _, path := range loc.Keep {
		if path != "" {
			seen[filepath.Clean(path)] = true
		}
	}
	var targets []string
	add := func(path string) {
		path = filepath.Clean(path)
		if seen[path] {
			return
		}
		if _, err := os.Lstat(path); err != nil {
			return
		}
		seen[path] = true
		targets = append(targets, path)
	}
	scan := func(dir string) {
		for _, path := range entriesContaining(dir, username, true) {
			if !isMediaFile(path) {
				add(path)
			}
		}
	}

	sessionNames := []string{".instaloader-session-" + username, username + "_session", "." + username + "_session"}
	if loc.HomeDir != "" {
		for _, name := range append(sessionNames, username) {
			add(filepath.Join(loc.HomeDir, name))
		}
		scan(filepath.Join(loc.HomeDir, "AppData", "Local", "Instaloader"))
		scan(filepath.Join(loc.HomeDir, "AppData", "Roaming", "Instaloader"))
		scan(filepath.Join(loc.HomeDir, ".config", "instaloader"))
	}
	scan(loc.DownloadDir)
	scan(loc.AppDir)
	// The working directory can be anything, so only exact session file names are taken from it.
	if loc.WorkDir != "" {
		for _, name := range sessionNames {
			add(filepath.Join(loc.WorkDir, name))
		}
	}
	return targets
}

// Sweep removes every path from SweepTargets, continuing past failures.
func Sweep(loc SweepLocations, username string) (removed []string, err error) {
	for _, path := range SweepTargets(loc, username) {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			err = multierror.Append(err, rmErr)
		} else {
			removed = append(removed, path)
		}
	}
	return removed, err
}

var (
	videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".webm": true, ".mkv": true}
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true}
)

func isMediaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return videoExtensions[ext] || imageExtensions[ext]
}
