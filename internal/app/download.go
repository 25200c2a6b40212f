package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/internal/queue"
)

// statusErrorLength is how much of an error fits in the status line; the full text goes to View.ShowError.
const statusErrorLength = 50

func (c *Controller) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// resolve normalizes and detects the request URL and fills in everything taken from the current settings. Options
// that only apply to some platforms are cleared for the others.
func (c *Controller) resolve(req media_downloader.DownloadRequest) (media_downloader.DownloadRequest, error) {
	req.URL = media_downloader.NormalizeURL(req.URL)
	if req.URL == "" {
		return req, ErrEmptyURL
	}
	platform, ok := media_downloader.DetectPlatform(req.URL)
	if !ok {
		return req, fmt.Errorf("%w: %s", media_downloader.ErrUnknownPlatform, req.URL)
	}
	req.Platform = platform
	if req.Quality == "" {
		req.Quality = media_downloader.QualityBest
	}
	if platform != media_downloader.PlatformYouTube || req.AsAudio {
		req.Subtitles = false
	}
	if platform != c.config.SessionPlatform {
		req.ContentType = media_downloader.ContentAuto
		req.MediaMode = media_downloader.MediaAuto
	}
	if req.FilenameTemplate == "" {
		req.FilenameTemplate = c.settings.FilenameTemplate
	}
	if req.TargetDir == "" {
		dir, err := media_downloader.PlatformDownloadDir(c.settings.DownloadPath, platform, c.settings.AutoFolder)
		if err != nil {
			return req, fmt.Errorf("failed to create download folder: %w", err)
		}
		req.TargetDir = dir
	}
	return req, nil
}

// sessionBackend returns the cached session backend, creating it on first use, retargeted at dir.
func (c *Controller) sessionBackend(dir string) (SessionBackend, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.session == nil {
		backend, err := c.config.NewSessionBackend(dir, c.config.ConfigDir)
		if err != nil {
			return nil, err
		}
		c.session = backend
	} else if dir != "" {
		c.session.SetDownloadDir(dir)
	}
	return c.session, nil
}

// backend returns the Backend for platform. The session backend is shared; every other platform gets a fresh one.
func (c *Controller) backend(platform media_downloader.PlatformID, dir string) (media_downloader.Backend, error) {
	if platform == c.config.SessionPlatform {
		return c.sessionBackend(dir)
	}
	return c.config.Registry.Create(platform, dir)
}

// download runs one request to completion on the calling goroutine. It never returns nil.
func (c *Controller) download(ctx context.Context, req media_downloader.DownloadRequest, progress *media_downloader.ProgressReporter) (result *media_downloader.DownloadResult) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("download of %s panicked: %v", req.URL, r)
			result = media_downloader.Failed(req, fmt.Errorf("internal error: %v", r))
		}
	}()
	backend, err := c.backend(req.Platform, req.TargetDir)
	if err != nil {
		return media_downloader.Failed(req, err)
	}
	c.log.Infof("downloading %s to %s", req.URL, req.TargetDir)
	result = backend.Download(ctx, req, progress)
	if result == nil {
		result = media_downloader.Failed(req, fmt.Errorf("no result from %s backend", req.Platform))
	}
	return result
}

// progressReporter forwards backend progress to the View. Intermediate updates are throttled to
// Config.ProgressInterval; an update that changes the status text, and the final one, always get through.
func (c *Controller) progressReporter(prefix string) *media_downloader.ProgressReporter {
	var throttle *rate.Sometimes
	if c.config.ProgressInterval > 0 {
		throttle = &rate.Sometimes{Interval: c.config.ProgressInterval}
	}
	var lastStatus string
	return media_downloader.NewProgressReporter(func(u media_downloader.ProgressUpdate) {
		if prefix != "" {
			u.Status = prefix + u.Status
		}
		show := func() {
			c.post(func() { c.view.Progress(u) })
		}
		if throttle == nil || u.Percent >= 100 || u.Status != lastStatus {
			lastStatus = u.Status
			show()
			return
		}
		throttle.Do(show)
	})
}

func statusLine(err string) string {
	return "Error: " + media_downloader.Truncate(strings.TrimSpace(err), statusErrorLength)
}

// recordResult updates the status line and history for a finished download. Foreground only.
func (c *Controller) recordResult(result *media_downloader.DownloadResult) {
	if !result.Success {
		c.view.Progress(media_downloader.ProgressUpdate{Percent: 0, Status: statusLine(result.Error)})
		return
	}
	c.view.Progress(media_downloader.ProgressUpdate{Percent: 100, Status: "Completed"})
	if _, err := c.history.Add(result); err != nil {
		c.log.Warnf("failed to save history: %v", err)
	}
	c.view.HistoryChanged(c.history.Records())
}

// FetchInfo probes url in the background and passes the result to View.InfoLoaded. A probe failure arrives as a
// MediaInfo with Error set.
func (c *Controller) FetchInfo(url string) error {
	req, err := c.resolve(media_downloader.DownloadRequest{URL: url})
	if err != nil {
		return err
	}
	c.spawn(func(ctx context.Context) {
		info := c.fetchInfo(ctx, req)
		c.post(func() {
			if info.Error != "" {
				c.view.ShowError("Could not get video info", info.Err())
			}
			c.view.InfoLoaded(req.URL, info)
		})
	})
	return nil
}

func (c *Controller) fetchInfo(ctx context.Context, req media_downloader.DownloadRequest) (info *media_downloader.MediaInfo) {
	defer func() {
		if r := recover(); r != nil {
			info = media_downloader.InfoError(fmt.Errorf("internal error: %v", r))
		}
	}()
	backend, err := c.backend(req.Platform, req.TargetDir)
	if err != nil {
		return media_downloader.InfoError(err)
	}
	if info = backend.GetInfo(ctx, req.URL); info == nil {
		info = media_downloader.InfoError(fmt.Errorf("no info from %s backend", req.Platform))
	}
	return info
}

// Download starts a single download outside the queue. It fails with queue.ErrQueueBusy while any download, queued
// or not, is running. The result is passed to View.DownloadFinished.
func (c *Controller) Download(req media_downloader.DownloadRequest) error {
	if c.isClosed() {
		return ErrClosed
	}
	req, err := c.resolve(req)
	if err != nil {
		return err
	}
	if !c.queue.TryAcquire() {
		return fmt.Errorf("cannot start %s: %w", req.URL, queue.ErrQueueBusy)
	}
	c.view.Progress(media_downloader.ProgressUpdate{Percent: 0, Status: "Starting..."})
	progress := c.progressReporter("")
	c.spawn(func(ctx context.Context) {
		result := c.download(ctx, req, progress)
		c.queue.Release()
		c.post(func() { c.finishDownload(result) })
	})
	return nil
}

func (c *Controller) finishDownload(result *media_downloader.DownloadResult) {
	c.log.Infof("download of %s finished: success=%v", result.SourceURL, result.Success)
	c.recordResult(result)
	if result.Success {
		if c.settings.Notifications {
			c.view.Notify("Download complete", result.Filename)
		}
	} else {
		c.view.ShowError("Download failed", errors.New(result.Error))
	}
	c.view.DownloadFinished(result)
}

func (c *Controller) IsDownloading() bool {
	return c.queue.IsDownloading()
}
