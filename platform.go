package media_downloader

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PlatformID identifies a media hosting platform, determined purely from URL text.
type PlatformID string

const (
	PlatformNone        PlatformID = ""
	PlatformYouTube     PlatformID = "youtube"
	PlatformTikTok      PlatformID = "tiktok"
	PlatformInstagram   PlatformID = "instagram"
	PlatformFacebook    PlatformID = "facebook"
	PlatformTwitter     PlatformID = "twitter"
	PlatformVimeo       PlatformID = "vimeo"
	PlatformDailymotion PlatformID = "dailymotion"
	PlatformTwitch      PlatformID = "twitch"
)

// Platforms lists every supported platform in detection order.
var Platforms = []PlatformID{
	PlatformYouTube,
	PlatformTikTok,
	PlatformInstagram,
	PlatformFacebook,
	PlatformTwitter,
	PlatformVimeo,
	PlatformDailymotion,
	PlatformTwitch,
}

func (p PlatformID) String() string {
	if p == PlatformNone {
		return "none"
	}
	return string(p)
}

// Title is the display form of the platform, also used as the per-platform folder name.
func (p PlatformID) Title() string {
	s := string(p)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// hostPattern matches any of the given domains on a host boundary, so that e.g. "netflix.com" is not "x.com".
func hostPattern(domains ...string) *regexp.Regexp {
	quoted := make([]string, len(domains))
	for i, d := range domains {
		quoted[i] = regexp.QuoteMeta(d)
	}
	return regexp.MustCompile(`(?i)(?:^|[/.@])(?:` + strings.Join(quoted, "|") + `)(?:[/:?#]|$)`)
}

var platformPatterns = map[PlatformID]*regexp.Regexp{
	PlatformYouTube:     hostPattern("youtube.com", "youtu.be"),
	PlatformTikTok:      hostPattern("tiktok.com"),
	PlatformInstagram:   hostPattern("instagram.com", "instagr.am"),
	PlatformFacebook:    hostPattern("facebook.com", "fb.watch", "fb.com"),
	PlatformTwitter:     hostPattern("twitter.com", "x.com"),
	PlatformVimeo:       hostPattern("vimeo.com"),
	PlatformDailymotion: hostPattern("dailymotion.com", "dai.ly"),
	PlatformTwitch:      hostPattern("twitch.tv"),
}

// DetectPlatform classifies a URL by host pattern. It never touches the network.
func DetectPlatform(rawURL string) (PlatformID, bool) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return PlatformNone, false
	}
	for _, p := range Platforms {
		if platformPatterns[p].MatchString(s) {
			return p, true
		}
	}
	return PlatformNone, false
}

// Query parameters preserved by NormalizeURL, in output order.
var keptQueryParams = map[PlatformID][]string{
	PlatformYouTube:   {"v", "list", "index", "t"},
	PlatformInstagram: {"img_index"},
	PlatformFacebook:  {"v"},
}

// NormalizeURL strips tracking parameters and the fragment from a media URL, keeping only the query parameters that
// address the resource on that platform. Input without a scheme or host is returned trimmed but otherwise unchanged.
func NormalizeURL(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}
	platform, _ := DetectPlatform(s)
	query := u.Query()
	var kept []string
	for _, key := range keptQueryParams[platform] {
		for _, value := range query[key] {
			kept = append(kept, url.QueryEscape(key)+"="+url.QueryEscape(value))
		}
	}
	u.RawQuery = strings.Join(kept, "&")
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// ExtractURLs picks supported media URLs out of free text, one candidate per line. Blank lines and lines starting
// with "#" are skipped.
func ExtractURLs(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := DetectPlatform(line); !ok {
			continue
		}
		urls = append(urls, NormalizeURL(line))
	}
	return urls
}

// PlatformDownloadDir resolves (and creates) the directory downloads for a platform should be saved into.
func PlatformDownloadDir(base string, platform PlatformID, autoFolder bool) (string, error) {
	dir := base
	if autoFolder && platform != PlatformNone {
		dir = filepath.Join(base, platform.Title())
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	return dir, nil
}
