// Package extractor implements the Backend for platforms served by a generic extraction engine (yt-dlp), with a
// native YouTube engine as fallback.
package extractor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

var (
	ErrUnsupported = errors.New("not supported by this engine")
	ErrNoFormats   = errors.New("no downloadable formats")
)

// Options is the bag of settings passed to an Engine for one download.
type Options struct {
	OutputTemplate     string
	Format             string
	MaxHeight          int
	ExtractAudio       bool
	AudioFormat        string
	AudioQuality       string
	MergeOutputFormat  string
	WriteSubtitles     bool
	WriteAutoSubtitles bool
	SubtitleLangs      []string
	EmbedSubtitles     bool
	TranscoderLocation string
}

// Progress event statuses.
const (
	StatusDownloading = "downloading"
	StatusFinished    = "finished"
)

type ProgressEvent struct {
	Status             string
	DownloadedBytes    int64
	TotalBytes         int64
	TotalBytesEstimate int64
	// Speed in bytes per second, 0 if unknown.
	Speed    float64
	Filename string
	Title    string
}

// Total is the best known size of the file being downloaded.
func (e ProgressEvent) Total() int64 {
	if e.TotalBytes > 0 {
		return e.TotalBytes
	}
	return e.TotalBytesEstimate
}

type Format struct {
	ID     string
	Height int
}

// Info is the metadata an Engine reports about a URL.
type Info struct {
	ID             string
	Title          string
	Uploader       string
	Channel        string
	Thumbnail      string
	Duration       float64
	ViewCount      int64
	Formats        []Format
	FileSize       int64
	FileSizeApprox int64
	// Filename of the (last) file written by Download, empty for Probe.
	Filename string
}

// An Engine extracts and downloads media. Hook may be called from any goroutine.
type Engine interface {
	Download(ctx context.Context, url string, opts Options, hook func(ProgressEvent)) (*Info, error)
	Probe(ctx context.Context, url string) (*Info, error)
}

// IsMissingExecutable reports whether err means the engine's external executable could not be found.
func IsMissingExecutable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, exec.ErrNotFound) || strings.Contains(err.Error(), "executable file not found")
}
