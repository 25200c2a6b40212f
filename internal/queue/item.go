package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/alanbriolat/media-downloader"
)

type ItemID string

func NewItemID() ItemID {
	return ItemID(uuid.NewString())
}

type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// IsActive returns true for statuses that block an identical request from being queued again.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusDownloading
}

func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusError
}

// An Item is one queued request. The request never changes once queued; Status, Error and Result are only written
// by the Processor that owns the item.
type Item struct {
	ID      ItemID
	Request media_downloader.DownloadRequest
	// Title is for display only, e.g. from a previous info probe.
	Title   string
	AddedAt time.Time

	Status Status
	Error  string
	Result *media_downloader.DownloadResult
}

func NewItem(req media_downloader.DownloadRequest) *Item {
	return &Item{
		ID:      NewItemID(),
		Request: req,
		AddedAt: time.Now(),
		Status:  StatusPending,
	}
}

// Matches reports whether two items ask for the same download. Status, error, title and identity are ignored.
func (i *Item) Matches(other *Item) bool {
	if i == nil || other == nil {
		return false
	}
	a, b := i.Request, other.Request
	aType, aMode := a.Hints()
	bType, bMode := b.Hints()
	return a.URL == b.URL &&
		a.AsAudio == b.AsAudio &&
		qualityOrBest(a.Quality) == qualityOrBest(b.Quality) &&
		a.Subtitles == b.Subtitles &&
		aType == bType &&
		aMode == bMode
}

func qualityOrBest(q media_downloader.Quality) media_downloader.Quality {
	if q == "" {
		return media_downloader.QualityBest
	}
	return q
}

// DisplayName is the title if known, otherwise the URL.
func (i *Item) DisplayName() string {
	if i.Title != "" {
		return i.Title
	}
	return i.Request.URL
}
