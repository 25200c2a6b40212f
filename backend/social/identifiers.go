package social

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/alanbriolat/media-downloader"
)

var ErrUnsupportedURL = errors.New("unsupported Instagram URL")

var (
	storyPattern     = regexp.MustCompile(`(?i)instagram\.com/stories/([^/?#]+)/([^/?#]+)`)
	shortcodePattern = regexp.MustCompile(`(?i)instagram\.com/(p|reel|reels|tv)/([A-Za-z0-9_-]+)`)
)

// Target is what an Instagram URL points at.
type Target struct {
	// Kind is media_downloader.ContentPost, ContentReel or ContentStory.
	Kind      string
	Shortcode string
	Username  string
	StoryID   string
}

// ID is the identifier downloaded files are named after.
func (t Target) ID() string {
	if t.Kind == media_downloader.ContentStory {
		return t.StoryID
	}
	return t.Shortcode
}

// ParseShortcode extracts the shortcode of a post, reel or tv URL.
func ParseShortcode(url string) (string, bool) {
	m := shortcodePattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// ParseStory extracts the username and story media ID of a story URL.
func ParseStory(url string) (username string, storyID string, ok bool) {
	m := storyPattern.FindStringSubmatch(url)
	if m == nil || m[1] == "" || m[2] == "" {
		return "", "", false
	}
	return m[1], m[2], true
}

// ParseTarget classifies an Instagram URL. The story shape wins over anything else in the URL.
func ParseTarget(url string) (Target, error) {
	if username, storyID, ok := ParseStory(url); ok {
		return Target{Kind: media_downloader.ContentStory, Username: username, StoryID: storyID}, nil
	}
	m := shortcodePattern.FindStringSubmatch(url)
	if m == nil {
		return Target{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}
	kind := media_downloader.ContentPost
	switch strings.ToLower(m[1]) {
	case "reel", "reels", "tv":
		kind = media_downloader.ContentReel
	}
	return Target{Kind: kind, Shortcode: m[2]}, nil
}

const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// ShortcodeToMediaID decodes a shortcode, which is the media ID written in base 64 with a URL-safe alphabet.
func ShortcodeToMediaID(shortcode string) (string, error) {
	if shortcode == "" {
		return "", fmt.Errorf("empty shortcode")
	}
	id := new(big.Int)
	base := big.NewInt(64)
	for _, r := range shortcode {
		i := strings.IndexRune(shortcodeAlphabet, r)
		if i < 0 {
			return "", fmt.Errorf("invalid shortcode %q", shortcode)
		}
		id.Mul(id, base).Add(id, big.NewInt(int64(i)))
	}
	return id.String(), nil
}

// MediaIDToShortcode is the inverse of ShortcodeToMediaID. Story media IDs may carry a "_<owner id>" suffix, which
// is ignored.
func MediaIDToShortcode(mediaID string) (string, error) {
	mediaID, _, _ = strings.Cut(mediaID, "_")
	id, ok := new(big.Int).SetString(mediaID, 10)
	if !ok || id.Sign() < 0 {
		return "", fmt.Errorf("invalid media ID %q", mediaID)
	}
	if id.Sign() == 0 {
		return shortcodeAlphabet[:1], nil
	}
	base := big.NewInt(64)
	mod := new(big.Int)
	var out []byte
	for id.Sign() > 0 {
		id.DivMod(id, base, mod)
		out = append(out, shortcodeAlphabet[mod.Int64()])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}
