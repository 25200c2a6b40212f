package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/media-downloader"
)

func result(n int, platform media_downloader.PlatformID) *media_downloader.DownloadResult {
	return &media_downloader.DownloadResult{
		Success:   true,
		Filename:  fmt.Sprintf("video-%d.mp4", n),
		Filepath:  fmt.Sprintf("/dl/video-%d.mp4", n),
		FileSize:  int64(n) * 1024 * 1024,
		Platform:  platform,
		SourceURL: fmt.Sprintf("https://vimeo.com/%d", n),
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	s := NewHistoryStore(dir)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	require.NoError(t, s.Load())
	assert.Empty(s.Records())

	for i := 1; i <= MaxHistory+5; i++ {
		_, err := s.Add(result(i, media_downloader.PlatformVimeo))
		require.NoError(t, err)
	}
	records := s.Records()
	require.Len(t, records, MaxHistory)
	assert.Equal("video-55.mp4", records[0].Filename)
	assert.Equal("video-6.mp4", records[MaxHistory-1].Filename)
	assert.Equal("55.0 MB", records[0].Size)
	assert.Equal("2024-05-01T12:30:00.000000", records[0].Date)
	assert.Equal("https://vimeo.com/55", records[0].SourceURL)

	reloaded := NewHistoryStore(dir)
	require.NoError(t, reloaded.Load())
	assert.Equal(records, reloaded.Records())
}

func TestHistoryIgnoresFailures(t *testing.T) {
	assert := assert_.New(t)
	s := NewHistoryStore(t.TempDir())
	_, err := s.Add(&media_downloader.DownloadResult{Error: "boom"})
	assert.NoError(err)
	_, err = s.Add(nil)
	assert.NoError(err)
	assert.Empty(s.Records())
	_, err = os.Stat(s.Path())
	assert.ErrorIs(err, os.ErrNotExist)
}

func TestHistoryLoadCorrupt(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, HistoryFile), []byte("{not json"), 0o644))
	s := NewHistoryStore(dir)
	assert.Error(s.Load())
	assert.Empty(s.Records())
}

func TestHistoryLoadOlderFormat(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	data := `[{"filename": "a.mp4", "platform": "youtube", "size": "1.5 MB", "filepath": "/dl/a.mp4",
		"date": "2024-01-01T00:00:00", "source_url": "https://youtu.be/a"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, HistoryFile), []byte(data), 0o644))
	s := NewHistoryStore(dir)
	require.NoError(t, s.Load())
	require.Len(t, s.Records(), 1)
	assert.Equal(int64(1.5*1024*1024), s.Records()[0].SizeBytes())
}

func TestHistorySearchAndStats(t *testing.T) {
	assert := assert_.New(t)
	s := NewHistoryStore(t.TempDir())
	for i := 1; i <= 3; i++ {
		_, err := s.Add(result(i, media_downloader.PlatformYouTube))
		require.NoError(t, err)
	}
	r := result(4, media_downloader.PlatformInstagram)
	r.Filename = "Holiday.jpg"
	_, err := s.Add(r)
	require.NoError(t, err)

	assert.Len(s.Search("", 0), 4)
	assert.Len(s.Search("", 2), 2)
	found := s.Search("YOUTUBE", 0)
	require.Len(t, found, 3)
	assert.Equal("video-3.mp4", found[0].Filename)
	found = s.Search("holiday", 0)
	require.Len(t, found, 1)
	assert.Equal("instagram", found[0].Platform)
	assert.Empty(s.Search("nothing", 0))

	stats := s.Stats()
	assert.Equal(4, stats.Count)
	assert.Equal(int64(10*1024*1024), stats.TotalBytes)
	assert.Equal(map[string]int{"youtube": 3, "instagram": 1}, stats.Platforms)
	assert.Equal([]string{"youtube"}, stats.TopPlatforms(1))

	require.NoError(t, s.Clear())
	assert.Empty(s.Records())
	assert.Equal(0, s.Stats().Count)
	reloaded := NewHistoryStore(filepath.Dir(s.Path()))
	require.NoError(t, reloaded.Load())
	assert.Empty(reloaded.Records())
}

func TestParseSize(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal(int64(512), parseSize("512 B"))
	assert.Equal(int64(1536), parseSize("1.5 KB"))
	assert.Equal(int64(2*1024*1024*1024), parseSize("2.00 GB"))
	assert.Equal(int64(0), parseSize("huge"))
	assert.Equal(int64(0), parseSize(""))
}
