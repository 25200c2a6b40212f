package app

import (
	"github.com/r3labs/diff/v3"

	"github.com/alanbriolat/media-downloader/internal/store"
)

// History returns up to limit records matching term, newest first. See store.HistoryStore.Search.
func (c *Controller) History(term string, limit int) []store.HistoryRecord {
	return c.history.Search(term, limit)
}

func (c *Controller) HistoryStats() store.HistoryStats {
	return c.history.Stats()
}

func (c *Controller) ClearHistory() error {
	err := c.history.Clear()
	c.view.HistoryChanged(c.history.Records())
	return err
}

func (c *Controller) Settings() store.Settings {
	return c.settings
}

// SaveSettings applies and persists new settings. The cached session backend follows a changed download path.
func (c *Controller) SaveSettings(settings store.Settings) error {
	if changes, err := diff.Diff(c.settings, settings); err != nil {
		c.log.Errorf("failed to diff settings: %v", err)
	} else {
		for _, change := range changes {
			c.log.Debugf("setting %v: %v -> %v", change.Path, change.From, change.To)
		}
	}
	old := c.settings
	c.settings = settings
	if settings.DownloadPath != old.DownloadPath {
		c.sessionMu.Lock()
		if c.session != nil {
			c.session.SetDownloadDir(settings.DownloadPath)
		}
		c.sessionMu.Unlock()
	}
	return c.settingsStore.Save(settings)
}
