package app

import (
	"context"
	"fmt"

	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/internal/queue"
)

// Enqueue adds a request to the queue without starting it. Its download folder is fixed now, from the current
// settings.
func (c *Controller) Enqueue(req media_downloader.DownloadRequest, title string) (queue.ItemID, error) {
	req, err := c.resolve(req)
	if err != nil {
		return "", err
	}
	item := queue.NewItem(req)
	item.Title = title
	if err := c.queue.Add(item); err != nil {
		return "", err
	}
	c.view.QueueChanged(c.queue.Items())
	return item.ID, nil
}

// ImportBatch queues every supported URL in text, one per line, with the other options taken from defaults. It
// returns how many were added; unsupported lines and duplicates are skipped.
func (c *Controller) ImportBatch(text string, defaults media_downloader.DownloadRequest) int {
	var items []*queue.Item
	for _, url := range media_downloader.ExtractURLs(text) {
		req := defaults
		req.URL = url
		req, err := c.resolve(req)
		if err != nil {
			c.log.Debugf("skipping %s: %v", url, err)
			continue
		}
		items = append(items, queue.NewItem(req))
	}
	added := c.queue.AddAll(items)
	c.log.Infof("imported %d of %d URLs", added, len(items))
	if added > 0 {
		c.view.QueueChanged(c.queue.Items())
	}
	return added
}

// StartQueue begins downloading pending items in order. It fails with queue.ErrQueueEmpty if there is nothing to do,
// or queue.ErrQueueBusy if a download is already running.
func (c *Controller) StartQueue() error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.queue.Start(c.ctx); err != nil {
		return err
	}
	c.view.QueueChanged(c.queue.Items())
	return nil
}

// RemoveFromQueue drops a pending item.
func (c *Controller) RemoveFromQueue(id queue.ItemID) bool {
	removed := c.queue.Remove(id)
	if removed {
		c.view.QueueChanged(c.queue.Items())
	}
	return removed
}

// ClearQueue drops every item except the one downloading.
func (c *Controller) ClearQueue() int {
	removed := c.queue.Clear()
	c.view.QueueChanged(c.queue.Items())
	return removed
}

func (c *Controller) Queue() []queue.Item {
	return c.queue.Items()
}

func (c *Controller) runQueueItem(ctx context.Context, item queue.Item, progress *media_downloader.ProgressReporter) *media_downloader.DownloadResult {
	return c.download(ctx, item.Request, progress)
}

func (c *Controller) onQueueItemStarted(item queue.Item) {
	c.post(func() {
		c.view.Progress(media_downloader.ProgressUpdate{Percent: 0, Status: fmt.Sprintf("%s: Starting...", c.queueLabel(item))})
		c.view.QueueChanged(c.queue.Items())
	})
}

// onQueueItemProgress relays progress through one throttled reporter per item, labelled with the item's name.
func (c *Controller) onQueueItemProgress(item queue.Item, update media_downloader.ProgressUpdate) {
	if c.queueProgressID != item.ID {
		c.queueProgressID = item.ID
		c.queueProgress = c.progressReporter(c.queueLabel(item) + ": ")
	}
	c.queueProgress.Update(update.Percent, update.Status, update.Speed)
}

func (c *Controller) queueLabel(item queue.Item) string {
	return media_downloader.Truncate(item.DisplayName(), 40)
}

func (c *Controller) onQueueItemFinished(item queue.Item, result *media_downloader.DownloadResult) {
	c.post(func() {
		c.recordResult(result)
		c.view.QueueChanged(c.queue.Items())
		c.view.DownloadFinished(result)
	})
}

func (c *Controller) onQueueDrained() {
	c.post(func() {
		counts := c.queue.Counts()
		c.log.Infof("queue drained: %d completed, %d failed", counts[queue.StatusCompleted], counts[queue.StatusError])
		c.view.Progress(media_downloader.ProgressUpdate{Percent: 0, Status: "Ready"})
		c.view.QueueChanged(c.queue.Items())
		if c.settings.Notifications {
			c.view.Notify("Queue complete", fmt.Sprintf("%d completed, %d failed",
				counts[queue.StatusCompleted], counts[queue.StatusError]))
		}
		c.view.QueueDrained()
	})
}
