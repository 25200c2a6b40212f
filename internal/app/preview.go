package app

import (
	"strings"

	"github.com/alanbriolat/media-downloader"
)

// URLChanged previews text once it has stopped changing for Config.DebounceWindow: the platform is detected and
// reported through View.PlatformDetected, and for a supported URL its info is fetched. Clearing the text reports an
// empty URL straight away.
func (c *Controller) URLChanged(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		c.preview.Cancel()
		c.view.PlatformDetected("", media_downloader.PlatformNone, false)
		return
	}
	c.preview.Trigger(func() {
		c.post(func() { c.previewURL(text) })
	})
}

func (c *Controller) previewURL(text string) {
	url := media_downloader.NormalizeURL(text)
	platform, ok := media_downloader.DetectPlatform(url)
	c.view.PlatformDetected(url, platform, ok)
	if !ok {
		return
	}
	if err := c.FetchInfo(url); err != nil {
		c.log.Debugf("no preview for %s: %v", url, err)
	}
}
