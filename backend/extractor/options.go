package extractor

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/alanbriolat/media-downloader"
)

var ErrTranscoderRequired = errors.New("FFmpeg is required for MP3 conversion")

const (
	FormatAudio        = "bestaudio/best"
	FormatMergedBest   = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best"
	FormatPremuxed     = "22/18/best[vcodec!=none][acodec!=none]/best"
	formatMergedCapped = "bestvideo[height<=%[1]d][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=%[1]d]+bestaudio/best[height<=%[1]d]/best"
)

// SubtitleLangs is the subtitle language preference order.
var SubtitleLangs = []string{"tr", "en", ".*"}

// BuildOptions chooses the engine options for req. Audio without a transcoder is refused, since the MP3 conversion
// cannot happen; video without a transcoder falls back to a single pre-muxed stream.
func BuildOptions(req media_downloader.DownloadRequest, dir string, transcoderPath string) (Options, error) {
	hasTranscoder := transcoderPath != ""
	opts := Options{
		OutputTemplate:     filepath.Join(dir, req.Template()+".%(ext)s"),
		TranscoderLocation: transcoderPath,
	}
	switch {
	case req.AsAudio:
		if !hasTranscoder {
			return Options{}, ErrTranscoderRequired
		}
		opts.Format = FormatAudio
		opts.ExtractAudio = true
		opts.AudioFormat = "mp3"
		opts.AudioQuality = "320"
	case hasTranscoder:
		if h := req.Quality.Height(); h > 0 {
			opts.Format = fmt.Sprintf(formatMergedCapped, h)
			opts.MaxHeight = h
		} else {
			opts.Format = FormatMergedBest
		}
		opts.MergeOutputFormat = "mp4"
	default:
		opts.Format = FormatPremuxed
		opts.MaxHeight = req.Quality.Height()
	}
	if req.WantSubtitles() {
		opts.WriteSubtitles = true
		opts.WriteAutoSubtitles = true
		opts.SubtitleLangs = SubtitleLangs
		opts.EmbedSubtitles = hasTranscoder
	}
	return opts, nil
}

// QualityBuckets maps stream heights onto media_downloader.QualityLadder, highest first. Heights below the lowest
// rung are ignored, and with no usable heights the only choice is "best".
func QualityBuckets(formats []Format) []string {
	seen := make(map[int]bool)
	for _, f := range formats {
		for _, rung := range media_downloader.QualityLadder {
			if f.Height >= rung {
				seen[rung] = true
				break
			}
		}
	}
	if len(seen) == 0 {
		return []string{string(media_downloader.QualityBest)}
	}
	heights := make([]int, 0, len(seen))
	for h := range seen {
		heights = append(heights, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))
	buckets := make([]string, len(heights))
	for i, h := range heights {
		buckets[i] = strconv.Itoa(h)
	}
	return buckets
}
