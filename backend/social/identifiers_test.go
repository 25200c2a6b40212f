package social

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/media-downloader"
)

func TestParseShortcode(t *testing.T) {
	assert := assert_.New(t)
	cases := map[string]string{
		"https://www.instagram.com/p/ABCdef123/":        "ABCdef123",
		"https://www.instagram.com/reel/ABCD-ef_1/?x=y": "ABCD-ef_1",
		"https://www.instagram.com/reels/ABCD-ef_1/":    "ABCD-ef_1",
		"https://instagram.com/tv/XyZ":                  "XyZ",
	}
	for url, expected := range cases {
		code, ok := ParseShortcode(url)
		assert.True(ok, url)
		assert.Equal(expected, code, url)
	}
	_, ok := ParseShortcode("https://www.instagram.com/someuser/")
	assert.False(ok)
}

func TestParseStory(t *testing.T) {
	assert := assert_.New(t)

	user, id, ok := ParseStory("https://www.instagram.com/stories/testuser/3456789012345678901/")
	assert.True(ok)
	assert.Equal("testuser", user)
	assert.Equal("3456789012345678901", id)

	user, id, ok = ParseStory("https://www.instagram.com/stories/test.user/3456789012345678901?utm_source=ig_story_item_share")
	assert.True(ok)
	assert.Equal("test.user", user)
	assert.Equal("3456789012345678901", id)

	_, _, ok = ParseStory("https://www.instagram.com/stories/testuser/")
	assert.False(ok)
}

func TestParseTarget(t *testing.T) {
	assert := assert_.New(t)

	target, err := ParseTarget("https://www.instagram.com/p/ABC/")
	assert.NoError(err)
	assert.Equal(Target{Kind: media_downloader.ContentPost, Shortcode: "ABC"}, target)
	assert.Equal("ABC", target.ID())

	target, err = ParseTarget("https://www.instagram.com/reels/ABC/")
	assert.NoError(err)
	assert.Equal(media_downloader.ContentReel, target.Kind)

	target, err = ParseTarget("https://www.instagram.com/stories/someone/123/?p=/p/XYZ/")
	assert.NoError(err)
	assert.Equal(Target{Kind: media_downloader.ContentStory, Username: "someone", StoryID: "123"}, target)
	assert.Equal("123", target.ID())

	_, err = ParseTarget("https://www.instagram.com/someone/")
	assert.ErrorIs(err, ErrUnsupportedURL)
}

func TestShortcodeMediaID(t *testing.T) {
	assert := assert_.New(t)

	id, err := ShortcodeToMediaID("B")
	assert.NoError(err)
	assert.Equal("1", id)
	id, err = ShortcodeToMediaID("BA")
	assert.NoError(err)
	assert.Equal("64", id)

	for _, code := range []string{"CvQbdJ9I2xa", "DAbc-_1234z", "B"} {
		id, err := ShortcodeToMediaID(code)
		assert.NoError(err)
		back, err := MediaIDToShortcode(id)
		assert.NoError(err)
		assert.Equal(code, back)
	}

	code, err := MediaIDToShortcode("64_12345")
	assert.NoError(err)
	assert.Equal("BA", code)

	_, err = ShortcodeToMediaID("bad!")
	assert.Error(err)
	_, err = ShortcodeToMediaID("")
	assert.Error(err)
	_, err = MediaIDToShortcode("abc")
	assert.Error(err)
}
