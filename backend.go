package media_downloader

import (
	"context"
	"errors"
)

// Social content-type hints.
const (
	ContentAuto  = "auto"
	ContentPost  = "post"
	ContentReel  = "reel"
	ContentStory = "story"
)

// Social media-mode hints.
const (
	MediaAuto  = "auto"
	MediaVideo = "video"
	MediaImage = "image"
)

// DefaultFilenameTemplate is the extractor output template used when none is configured.
const DefaultFilenameTemplate = "%(title)s"

// A DownloadRequest describes one download, from the moment the user asks for it until a Backend consumes it.
type DownloadRequest struct {
	URL              string
	Platform         PlatformID
	Quality          Quality
	AsAudio          bool
	Subtitles        bool
	ContentType      string
	MediaMode        string
	FilenameTemplate string
	// TargetDir is resolved by the caller before the request reaches a Backend.
	TargetDir string
}

// WantSubtitles applies the rule that subtitles are never fetched for audio-only downloads.
func (r DownloadRequest) WantSubtitles() bool {
	return r.Subtitles && !r.AsAudio
}

// Template returns the filename template, falling back to DefaultFilenameTemplate.
func (r DownloadRequest) Template() string {
	if r.FilenameTemplate == "" {
		return DefaultFilenameTemplate
	}
	return r.FilenameTemplate
}

// Hints returns the social content-type and media-mode hints with empty values defaulted to "auto".
func (r DownloadRequest) Hints() (contentType string, mediaMode string) {
	contentType, mediaMode = r.ContentType, r.MediaMode
	if contentType == "" {
		contentType = ContentAuto
	}
	if mediaMode == "" {
		mediaMode = MediaAuto
	}
	return contentType, mediaMode
}

// MediaInfo is the result of a metadata probe. A failed probe has Error set and the other fields zero.
type MediaInfo struct {
	Title       string
	Uploader    string
	Duration    float64
	Thumbnail   string
	ViewCount   int64
	Qualities   []string
	FileSize    int64
	ContentType string
	MediaModes  []string
	Error       string
}

func InfoError(err error) *MediaInfo {
	return &MediaInfo{Error: err.Error()}
}

func (i *MediaInfo) Err() error {
	if i == nil || i.Error == "" {
		return nil
	}
	return errors.New(i.Error)
}

// DownloadResult is produced exactly once per Backend.Download call.
type DownloadResult struct {
	Success   bool
	Filename  string
	Filepath  string
	FileSize  int64
	Error     string
	Platform  PlatformID
	SourceURL string
}

func Failed(req DownloadRequest, err error) *DownloadResult {
	return &DownloadResult{
		Error:     err.Error(),
		Platform:  req.Platform,
		SourceURL: req.URL,
	}
}

func Succeeded(req DownloadRequest, path string, size int64) *DownloadResult {
	return &DownloadResult{
		Success:   true,
		Filename:  filepathBase(path),
		Filepath:  path,
		FileSize:  size,
		Platform:  req.Platform,
		SourceURL: req.URL,
	}
}

// A Backend downloads media for one family of platforms. Neither method returns a Go error: failure is reported
// through MediaInfo.Error and DownloadResult.Error so that callers never see an unhandled fault.
type Backend interface {
	GetInfo(ctx context.Context, url string) *MediaInfo
	Download(ctx context.Context, req DownloadRequest, progress *ProgressReporter) *DownloadResult
}
