package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// YtDlpEngine drives the yt-dlp executable.
type YtDlpEngine struct {
	ProgressInterval time.Duration
}

func NewYtDlpEngine() *YtDlpEngine {
	return &YtDlpEngine{ProgressInterval: 500 * time.Millisecond}
}

func (e *YtDlpEngine) command(opts Options) *ytdlp.Command {
	// PrintJSON reports the final info document, including the output filename, on stdout once the download is done.
	cmd := ytdlp.New().
		NoPlaylist().
		PrintJSON().
		Output(opts.OutputTemplate).
		Format(opts.Format)
	if opts.TranscoderLocation != "" {
		cmd.FFmpegLocation(opts.TranscoderLocation)
	}
	if opts.ExtractAudio {
		cmd.ExtractAudio().AudioFormat(opts.AudioFormat).AudioQuality(opts.AudioQuality)
	}
	if opts.MergeOutputFormat != "" {
		cmd.MergeOutputFormat(opts.MergeOutputFormat)
	}
	if opts.WriteSubtitles {
		cmd.WriteSubs()
	}
	if opts.WriteAutoSubtitles {
		cmd.WriteAutoSubs()
	}
	if len(opts.SubtitleLangs) > 0 {
		cmd.SubLangs(strings.Join(opts.SubtitleLangs, ","))
	}
	if opts.EmbedSubtitles {
		cmd.EmbedSubs()
	}
	return cmd
}

func (e *YtDlpEngine) Download(ctx context.Context, url string, opts Options, hook func(ProgressEvent)) (*Info, error) {
	cmd := e.command(opts)
	if hook != nil {
		cmd.ProgressFunc(e.ProgressInterval, func(update ytdlp.ProgressUpdate) {
			event := ProgressEvent{
				Status:          string(update.Status),
				DownloadedBytes: int64(update.DownloadedBytes),
				TotalBytes:      int64(update.TotalBytes),
				Filename:        update.Filename,
			}
			if !update.Started.IsZero() {
				if elapsed := time.Since(update.Started).Seconds(); elapsed > 0 {
					event.Speed = float64(update.DownloadedBytes) / elapsed
				}
			}
			if update.Info != nil && update.Info.Title != nil {
				event.Title = *update.Info.Title
			}
			hook(event)
		})
	}
	result, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}
	info := &Info{}
	if extracted, err := result.GetExtractedInfo(); err == nil && len(extracted) > 0 {
		last := extracted[len(extracted)-1]
		if last.Title != nil {
			info.Title = *last.Title
		}
		if last.Filename != nil {
			info.Filename = *last.Filename
		}
	}
	return info, nil
}

var installYtDlp = ytdlp.Install

// UpdateYtDlp installs the yt-dlp release these bindings were built against into the user cache, ignoring any copy
// already on PATH, and returns where it lives.
func UpdateYtDlp(ctx context.Context) (executable string, version string, err error) {
	resolved, err := installYtDlp(ctx, &ytdlp.InstallOptions{DisableSystem: true})
	if err != nil {
		return "", "", fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return resolved.Executable, resolved.Version, nil
}

func (e *YtDlpEngine) Probe(ctx context.Context, url string) (*Info, error) {
	result, err := ytdlp.New().
		NoPlaylist().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}
	return parseInfoJSON([]byte(result.Stdout))
}

// infoJSON is the subset of the yt-dlp info document the Backend reads.
type infoJSON struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Uploader       string   `json:"uploader"`
	Channel        string   `json:"channel"`
	Thumbnail      string   `json:"thumbnail"`
	Duration       float64  `json:"duration"`
	ViewCount      *float64 `json:"view_count"`
	FileSize       *float64 `json:"filesize"`
	FileSizeApprox *float64 `json:"filesize_approx"`
	Filename       string   `json:"_filename"`
	Formats        []struct {
		FormatID string   `json:"format_id"`
		Height   *float64 `json:"height"`
	} `json:"formats"`
}

func parseInfoJSON(data []byte) (*Info, error) {
	var doc infoJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse info: %w", err)
	}
	info := &Info{
		ID:             doc.ID,
		Title:          doc.Title,
		Uploader:       doc.Uploader,
		Channel:        doc.Channel,
		Thumbnail:      doc.Thumbnail,
		Duration:       doc.Duration,
		ViewCount:      int64OrZero(doc.ViewCount),
		FileSize:       int64OrZero(doc.FileSize),
		FileSizeApprox: int64OrZero(doc.FileSizeApprox),
		Filename:       doc.Filename,
	}
	for _, f := range doc.Formats {
		info.Formats = append(info.Formats, Format{ID: f.FormatID, Height: int(int64OrZero(f.Height))})
	}
	return info, nil
}

func int64OrZero(v *float64) int64 {
	if v == nil {
		return 0
	}
	return int64(*v)
}
