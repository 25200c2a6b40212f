package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/backend/social"
	"github.com/alanbriolat/media-downloader/internal/queue"
	"github.com/alanbriolat/media-downloader/internal/store"
)

// consoleView prints the Controller's state to a terminal, drawing a progress bar while downloads run. The hooks
// let each command decide when it is done.
type consoleView struct {
	out io.Writer
	bar *progressbar.ProgressBar

	succeeded int
	failed    int

	onFinished func(result *media_downloader.DownloadResult)
	onDrained  func()
	onInfo     func(url string, info *media_downloader.MediaInfo)
	onAuth     func(state social.AuthState, username string, err error)
	onDetected func(url string, platform media_downloader.PlatformID, ok bool)
}

func newConsoleView(out io.Writer) *consoleView {
	return &consoleView{out: out}
}

func (v *consoleView) progressBar() *progressbar.ProgressBar {
	if v.bar == nil {
		v.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(v.out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionThrottle(50*time.Millisecond),
		)
	}
	return v.bar
}

func (v *consoleView) clearBar() {
	if v.bar != nil {
		_ = v.bar.Clear()
		v.bar = nil
	}
}

func (v *consoleView) Progress(u media_downloader.ProgressUpdate) {
	bar := v.progressBar()
	status := u.Status
	if u.Speed != "" {
		status += " • " + u.Speed
	}
	bar.Describe(status)
	_ = bar.Set(int(u.Percent))
}

func (v *consoleView) InfoLoaded(url string, info *media_downloader.MediaInfo) {
	if v.onInfo != nil {
		v.onInfo(url, info)
	}
}

func (v *consoleView) PlatformDetected(url string, platform media_downloader.PlatformID, ok bool) {
	if v.onDetected != nil {
		v.onDetected(url, platform, ok)
	}
}

func (v *consoleView) DownloadFinished(result *media_downloader.DownloadResult) {
	v.clearBar()
	if result.Success {
		v.succeeded++
		fmt.Fprintf(v.out, "Saved %s (%s)\n", result.Filepath, media_downloader.FormatSize(result.FileSize))
	} else {
		v.failed++
	}
	if v.onFinished != nil {
		v.onFinished(result)
	}
}

func (v *consoleView) QueueChanged([]queue.Item) {}

func (v *consoleView) QueueDrained() {
	v.clearBar()
	if v.onDrained != nil {
		v.onDrained()
	}
}

func (v *consoleView) HistoryChanged([]store.HistoryRecord) {}

func (v *consoleView) AuthChanged(state social.AuthState, username string, err error) {
	if v.onAuth != nil {
		v.onAuth(state, username, err)
	}
}

func (v *consoleView) Notify(title string, message string) {
	v.clearBar()
	fmt.Fprintf(v.out, "%s: %s\n", title, message)
}

func (v *consoleView) ShowError(title string, err error) {
	v.clearBar()
	fmt.Fprintf(v.out, "%s: %v\n", title, err)
}

func printInfo(out io.Writer, url string, info *media_downloader.MediaInfo) {
	fmt.Fprintf(out, "URL:       %s\n", url)
	fmt.Fprintf(out, "Title:     %s\n", info.Title)
	if info.Uploader != "" {
		fmt.Fprintf(out, "Uploader:  %s\n", info.Uploader)
	}
	if info.Duration > 0 {
		fmt.Fprintf(out, "Duration:  %s\n", time.Duration(info.Duration*float64(time.Second)).Round(time.Second))
	}
	if info.ViewCount > 0 {
		fmt.Fprintf(out, "Views:     %d\n", info.ViewCount)
	}
	if info.FileSize > 0 {
		fmt.Fprintf(out, "Size:      %s\n", media_downloader.FormatSize(info.FileSize))
	}
	if len(info.Qualities) > 0 {
		fmt.Fprintf(out, "Qualities: %s\n", strings.Join(info.Qualities, ", "))
	}
	if info.ContentType != "" {
		fmt.Fprintf(out, "Content:   %s\n", info.ContentType)
	}
	if len(info.MediaModes) > 0 {
		fmt.Fprintf(out, "Media:     %s\n", strings.Join(info.MediaModes, ", "))
	}
}
