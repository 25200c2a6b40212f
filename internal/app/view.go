package app

import (
	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/backend/social"
	"github.com/alanbriolat/media-downloader/internal/queue"
	"github.com/alanbriolat/media-downloader/internal/store"
)

// A View presents the Controller's state. Every method is called from the goroutine running Controller.Run, never
// from a worker.
type View interface {
	// Progress updates the status line of the download in progress.
	Progress(update media_downloader.ProgressUpdate)
	InfoLoaded(url string, info *media_downloader.MediaInfo)
	// PlatformDetected reports the result of a URL preview. url is normalized, and empty when the input was cleared.
	PlatformDetected(url string, platform media_downloader.PlatformID, ok bool)
	DownloadFinished(result *media_downloader.DownloadResult)
	QueueChanged(items []queue.Item)
	// QueueDrained is called once the queue worker has run out of pending items.
	QueueDrained()
	HistoryChanged(records []store.HistoryRecord)
	AuthChanged(state social.AuthState, username string, err error)
	Notify(title string, message string)
	ShowError(title string, err error)
}

// NopView ignores everything. Embed it to implement only part of View.
type NopView struct{}

func (NopView) Progress(media_downloader.ProgressUpdate) {}
func (NopView) InfoLoaded(string, *media_downloader.MediaInfo) {}
func (NopView) PlatformDetected(string, media_downloader.PlatformID, bool) {}
func (NopView) DownloadFinished(*media_downloader.DownloadResult) {}
func (NopView) QueueChanged([]queue.Item) {}
func (NopView) QueueDrained() {}
func (NopView) HistoryChanged([]store.HistoryRecord) {}
func (NopView) AuthChanged(social.AuthState, string, error) {}
func (NopView) Notify(string, string) {}
func (NopView) ShowError(string, error) {}
