package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/media-downloader"
)

// YouTubeEngine downloads pre-muxed YouTube streams without any external executable. It cannot extract audio,
// merge streams or fetch subtitles.
type YouTubeEngine struct {
	client youtube.Client
}

func NewYouTubeEngine() *YouTubeEngine {
	return &YouTubeEngine{}
}

func (e *YouTubeEngine) Probe(ctx context.Context, url string) (*Info, error) {
	video, err := e.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	info := &Info{
		ID:        video.ID,
		Title:     video.Title,
		Uploader:  video.Author,
		Duration:  video.Duration.Seconds(),
		ViewCount: int64(video.Views),
	}
	if n := len(video.Thumbnails); n > 0 {
		info.Thumbnail = video.Thumbnails[n-1].URL
	}
	for _, f := range video.Formats {
		info.Formats = append(info.Formats, Format{ID: fmt.Sprint(f.ItagNo), Height: f.Height})
	}
	if f := pickFormat(video.Formats.WithAudioChannels(), 0); f != nil {
		info.FileSize = f.ContentLength
	}
	return info, nil
}

func (e *YouTubeEngine) Download(ctx context.Context, url string, opts Options, hook func(ProgressEvent)) (*Info, error) {
	if opts.ExtractAudio {
		return nil, fmt.Errorf("audio extraction: %w", ErrUnsupported)
	}
	video, err := e.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	format := pickFormat(video.Formats.WithAudioChannels(), opts.MaxHeight)
	if format == nil {
		return nil, ErrNoFormats
	}
	stream, size, err := e.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	target := renderTemplate(opts.OutputTemplate, map[string]string{
		"id":       video.ID,
		"title":    video.Title,
		"uploader": video.Author,
		"ext":      extensionFromMimeType(format.MimeType),
	})
	started := time.Now()
	emit := func(status string, downloaded int64) {
		if hook == nil {
			return
		}
		event := ProgressEvent{Status: status, DownloadedBytes: downloaded, TotalBytes: size, Filename: target, Title: video.Title}
		if elapsed := time.Since(started).Seconds(); elapsed > 0 {
			event.Speed = float64(downloaded) / elapsed
		}
		hook(event)
	}
	written, err := media_downloader.SaveStream(ctx, target, stream, size, func(downloaded, _ int64) {
		emit(StatusDownloading, downloaded)
	})
	if err != nil {
		return nil, err
	}
	emit(StatusFinished, written)
	return &Info{ID: video.ID, Title: video.Title, Uploader: video.Author, Filename: target, FileSize: written}, nil
}

// pickFormat returns the tallest format no taller than maxHeight (0 for no limit), preferring mp4 at equal height.
func pickFormat(formats youtube.FormatList, maxHeight int) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.Height == 0 || (maxHeight > 0 && f.Height > maxHeight) {
			continue
		}
		if best == nil || f.Height > best.Height ||
			(f.Height == best.Height && strings.Contains(f.MimeType, "video/mp4") && !strings.Contains(best.MimeType, "video/mp4")) {
			best = f
		}
	}
	if best == nil && len(formats) > 0 && maxHeight > 0 {
		// Nothing small enough, so take the smallest available.
		for i := range formats {
			if f := &formats[i]; f.Height > 0 && (best == nil || f.Height < best.Height) {
				best = f
			}
		}
	}
	return best
}

func extensionFromMimeType(mimeType string) string {
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if parts := strings.SplitN(mimeType, "/", 2); len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "mp4"
}

var (
	templateField  = regexp.MustCompile(`%\(([a-z_]+)\)s`)
	unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

// renderTemplate fills the %(field)s placeholders of an output template. Unknown fields render as "NA", matching
// yt-dlp.
func renderTemplate(template string, fields map[string]string) string {
	dir, name := filepath.Split(template)
	name = templateField.ReplaceAllStringFunc(name, func(m string) string {
		key := templateField.FindStringSubmatch(m)[1]
		value, ok := fields[key]
		if !ok || value == "" {
			value = "NA"
		}
		return strings.TrimSpace(unsafeFilename.ReplaceAllString(value, "_"))
	})
	return filepath.Join(dir, name)
}
