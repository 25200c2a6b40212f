// Package transcode locates the local ffmpeg binary used for audio extraction, stream merging and subtitle
// embedding.
package transcode

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const versionCheckTimeout = 5 * time.Second

// Tool describes a detected transcoder. The zero value means no transcoder is available.
type Tool struct {
	Path    string
	Version string
}

func (t Tool) Available() bool {
	return t.Path != ""
}

// Candidates returns the locations checked by Detect, in order.
func Candidates() []string {
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name = "ffmpeg.exe"
	}
	candidates := []string{name}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "windows" {
			candidates = append(candidates, filepath.Join(home, "AppData", "Local", "yt-dlp", name))
		} else {
			candidates = append(candidates, filepath.Join(home, ".local", "bin", name))
		}
	}
	if runtime.GOOS == "darwin" {
		candidates = append(candidates, "/opt/homebrew/bin/ffmpeg", "/usr/local/bin/ffmpeg")
	}
	return candidates
}

// Detect returns the first candidate that answers a version check.
func Detect(ctx context.Context) Tool {
	return DetectFrom(ctx, Candidates()...)
}

func DetectFrom(ctx context.Context, candidates ...string) Tool {
	log := zap.S().Named("transcode")
	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		if version, err := versionCheck(ctx, path); err != nil {
			log.Debugf("%s failed version check: %v", path, err)
		} else {
			log.Debugf("found transcoder %s: %s", path, version)
			return Tool{Path: path, Version: version}
		}
	}
	log.Debug("no transcoder found")
	return Tool{}
}

func versionCheck(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", err
	}
	for i, b := range out {
		if b == '\n' {
			return string(out[:i]), nil
		}
	}
	return string(out), nil
}
