package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/internal/transcode"
)

var ErrOutputNotFound = errors.New("downloaded file not found")

// Platforms handled by the extractor Backend.
var Platforms = []media_downloader.PlatformID{
	media_downloader.PlatformYouTube,
	media_downloader.PlatformTikTok,
	media_downloader.PlatformFacebook,
	media_downloader.PlatformTwitter,
	media_downloader.PlatformVimeo,
	media_downloader.PlatformDailymotion,
	media_downloader.PlatformTwitch,
}

type Backend struct {
	platform    media_downloader.PlatformID
	downloadDir string
	engine      Engine
	transcoder  transcode.Tool
	detect      bool
	log         *zap.SugaredLogger
}

type Option func(*Backend)

func WithEngine(engine Engine) Option {
	return func(b *Backend) {
		b.engine = engine
	}
}

func WithTranscoder(tool transcode.Tool) Option {
	return func(b *Backend) {
		b.transcoder = tool
		b.detect = false
	}
}

// New creates a Backend. Without WithTranscoder, ffmpeg is detected immediately; without WithEngine, yt-dlp is used
// with a native fallback for YouTube.
func New(platform media_downloader.PlatformID, downloadDir string, opts ...Option) *Backend {
	b := &Backend{
		platform:    platform,
		downloadDir: downloadDir,
		detect:      true,
		log:         zap.S().Named("extractor").With("platform", platform),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.detect {
		b.transcoder = transcode.Detect(context.Background())
	}
	if b.engine == nil {
		b.engine = DefaultEngine(platform)
	}
	return b
}

// DefaultEngine is yt-dlp, falling back to the native engine for YouTube when yt-dlp is not installed.
func DefaultEngine(platform media_downloader.PlatformID) Engine {
	primary := NewYtDlpEngine()
	if platform != media_downloader.PlatformYouTube {
		return primary
	}
	return &FallbackEngine{Primary: primary, Secondary: NewYouTubeEngine()}
}

func (b *Backend) Platform() media_downloader.PlatformID {
	return b.platform
}

func (b *Backend) GetInfo(ctx context.Context, url string) *media_downloader.MediaInfo {
	info, err := b.engine.Probe(ctx, url)
	if err != nil {
		b.log.Debugf("probe failed for %s: %v", url, err)
		return media_downloader.InfoError(err)
	}
	uploader := info.Uploader
	if uploader == "" {
		uploader = info.Channel
	}
	size := info.FileSize
	if size == 0 {
		size = info.FileSizeApprox
	}
	return &media_downloader.MediaInfo{
		Title:     info.Title,
		Uploader:  uploader,
		Duration:  info.Duration,
		Thumbnail: info.Thumbnail,
		ViewCount: info.ViewCount,
		Qualities: QualityBuckets(info.Formats),
		FileSize:  size,
	}
}

func (b *Backend) Download(ctx context.Context, req media_downloader.DownloadRequest, progress *media_downloader.ProgressReporter) *media_downloader.DownloadResult {
	if req.Platform == media_downloader.PlatformNone {
		req.Platform = b.platform
	}
	dir := req.TargetDir
	if dir == "" {
		dir = b.downloadDir
	}
	opts, err := BuildOptions(req, dir, b.transcoder.Path)
	if err != nil {
		return media_downloader.Failed(req, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return media_downloader.Failed(req, fmt.Errorf("failed to create download dir: %w", err))
	}

	progress.Update(10, "Connecting...", "")
	tracker := &progressTracker{progress: progress, percent: 10}
	b.log.Infof("downloading %s (format %q)", req.URL, opts.Format)
	info, err := b.engine.Download(ctx, req.URL, opts, tracker.hook)
	if err != nil {
		b.log.Warnf("download of %s failed: %v", req.URL, err)
		return media_downloader.Failed(req, err)
	}

	filename := tracker.filename()
	if info != nil && info.Filename != "" {
		filename = info.Filename
	}
	path, err := resolveOutput(filename, opts)
	if err != nil {
		return media_downloader.Failed(req, err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return media_downloader.Failed(req, fmt.Errorf("%w: %v", ErrOutputNotFound, err))
	}
	progress.Update(100, "Completed", "")
	b.log.Infof("downloaded %s to %s", req.URL, path)
	return media_downloader.Succeeded(req, path, stat.Size())
}

// progressTracker converts engine events into a non-decreasing percentage in [10, 99]. Merged downloads fetch more
// than one stream, each of which starts again from zero bytes.
type progressTracker struct {
	mu       sync.Mutex
	progress *media_downloader.ProgressReporter
	percent  float64
	last     string
}

func (t *progressTracker) hook(e ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.Filename != "" {
		t.last = e.Filename
	}
	switch e.Status {
	case StatusDownloading:
		if total := e.Total(); total > 0 {
			p := 10 + float64(e.DownloadedBytes)/float64(total)*89
			t.percent = min(max(p, t.percent), 99)
		}
		t.progress.Update(t.percent, "Downloading...", media_downloader.FormatSpeed(e.Speed))
	case StatusFinished:
		t.progress.Update(t.percent, "Processing...", "")
	}
}

func (t *progressTracker) filename() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

var formatSuffix = regexp.MustCompile(`\.f[0-9a-zA-Z_-]+$`)

// resolveOutput finds the file left behind after post-processing, which may have a different extension than the
// file the engine reported (audio extraction, stream merging).
func resolveOutput(filename string, opts Options) (string, error) {
	if filename == "" {
		return "", ErrOutputNotFound
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	var candidates []string
	switch {
	case opts.ExtractAudio:
		candidates = append(candidates, stem+"."+opts.AudioFormat)
	case opts.MergeOutputFormat != "":
		candidates = append(candidates, formatSuffix.ReplaceAllString(stem, "")+"."+opts.MergeOutputFormat, stem+"."+opts.MergeOutputFormat)
	}
	candidates = append(candidates, filename)
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOutputNotFound, filepath.Base(filename))
}

func init() {
	media_downloader.DefaultBackendRegistry.MustAdd(media_downloader.Factory{
		Name:      "extractor",
		Platforms: Platforms,
		New: func(platform media_downloader.PlatformID, downloadDir string) (media_downloader.Backend, error) {
			return New(platform, downloadDir), nil
		},
	})
}
