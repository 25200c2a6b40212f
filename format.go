package media_downloader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FormatSize renders a byte count in human-readable binary units.
func FormatSize(n int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case n < kb:
		return fmt.Sprintf("%d B", n)
	case n < mb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	case n < gb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/gb)
	}
}

// FormatSpeed renders a transfer rate given in bytes per second.
func FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f MB/s", bytesPerSecond/(1024*1024))
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

var ErrInvalidQuality = errors.New("invalid quality")

// Quality is either QualityBest or a maximum video height in pixels.
type Quality string

const QualityBest Quality = "best"

// QualityLadder is the fixed set of video heights that available streams are bucketed into.
var QualityLadder = []int{2160, 1080, 720, 480, 360}

func ParseQuality(s string) (Quality, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "p")
	if s == "" || s == string(QualityBest) {
		return QualityBest, nil
	}
	if h, err := strconv.Atoi(s); err != nil || h <= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	} else {
		return Quality(strconv.Itoa(h)), nil
	}
}

// Height is the height ceiling, or 0 for QualityBest.
func (q Quality) Height() int {
	if h, err := strconv.Atoi(string(q)); err == nil && h > 0 {
		return h
	}
	return 0
}

func (q Quality) IsBest() bool {
	return q.Height() == 0
}
