package media_downloader

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("0 B", FormatSize(0))
	assert.Equal("500 B", FormatSize(500))
	assert.Equal("1.0 KB", FormatSize(1024))
	assert.Equal("1.5 KB", FormatSize(1536))
	assert.Equal("1.0 MB", FormatSize(1048576))
	assert.Equal("1.00 GB", FormatSize(1073741824))
	assert.Equal("2.50 GB", FormatSize(2684354560))
}

func TestFormatSpeed(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("", FormatSpeed(0))
	assert.Equal("2.0 MB/s", FormatSpeed(2*1024*1024))
}

func TestParseQuality(t *testing.T) {
	assert := assert_.New(t)

	q, err := ParseQuality("")
	assert.NoError(err)
	assert.True(q.IsBest())

	q, err = ParseQuality("best")
	assert.NoError(err)
	assert.Equal(QualityBest, q)

	q, err = ParseQuality("720p")
	assert.NoError(err)
	assert.Equal(720, q.Height())
	assert.False(q.IsBest())

	_, err = ParseQuality("hd")
	assert.ErrorIs(err, ErrInvalidQuality)
	_, err = ParseQuality("-1")
	assert.ErrorIs(err, ErrInvalidQuality)
}

func TestTruncate(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("short", Truncate("short", 10))
	assert.Equal("abc...", Truncate("abcdef", 3))
	assert.Equal("çağ...", Truncate("çağrı", 3))
}
