package queue

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/media-downloader"
)

func TestItemMatches(t *testing.T) {
	assert := assert_.New(t)
	req := media_downloader.DownloadRequest{
		URL:         "https://www.instagram.com/p/ABC/",
		Quality:     "720",
		AsAudio:     false,
		Subtitles:   true,
		ContentType: media_downloader.ContentPost,
		MediaMode:   media_downloader.MediaImage,
	}
	a, b := NewItem(req), NewItem(req)
	b.Status = StatusError
	b.Error = "boom"
	b.Title = "different title"
	assert.True(a.Matches(b))
	assert.True(b.Matches(a))
	assert.NotEqual(a.ID, b.ID)

	variants := []func(r *media_downloader.DownloadRequest){
		func(r *media_downloader.DownloadRequest) { r.URL = "https://www.instagram.com/p/XYZ/" },
		func(r *media_downloader.DownloadRequest) { r.Quality = "1080" },
		func(r *media_downloader.DownloadRequest) { r.AsAudio = true },
		func(r *media_downloader.DownloadRequest) { r.Subtitles = false },
		func(r *media_downloader.DownloadRequest) { r.ContentType = media_downloader.ContentReel },
		func(r *media_downloader.DownloadRequest) { r.MediaMode = media_downloader.MediaVideo },
	}
	for i, change := range variants {
		other := req
		change(&other)
		assert.False(a.Matches(NewItem(other)), "variant %d", i)
	}

	// Empty hints and quality mean their defaults.
	plain := NewItem(media_downloader.DownloadRequest{URL: "u"})
	explicit := NewItem(media_downloader.DownloadRequest{URL: "u", Quality: media_downloader.QualityBest, ContentType: "auto", MediaMode: "auto"})
	assert.True(plain.Matches(explicit))
	assert.False(plain.Matches(nil))
}

func TestStatus(t *testing.T) {
	assert := assert_.New(t)
	assert.True(StatusPending.IsActive())
	assert.True(StatusDownloading.IsActive())
	assert.False(StatusCompleted.IsActive())
	assert.False(StatusError.IsActive())
	assert.True(StatusCompleted.IsFinished())
	assert.True(StatusError.IsFinished())
	assert.False(StatusPending.IsFinished())
}

func TestDisplayName(t *testing.T) {
	item := NewItem(media_downloader.DownloadRequest{URL: "https://vimeo.com/1"})
	assert_.Equal(t, "https://vimeo.com/1", item.DisplayName())
	item.Title = "A title"
	assert_.Equal(t, "A title", item.DisplayName())
}
