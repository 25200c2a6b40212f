// Package social implements the Backend for Instagram, which needs a logged-in session for most content.
package social

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/alanbriolat/media-downloader"
)

var (
	ErrContentTypeMismatch = errors.New("content type mismatch")
	ErrStoryNotFound       = errors.New("story not found or expired")
	ErrFileNotFound        = errors.New("downloaded file not found")
)

type Backend struct {
	client Client
	store  SessionStore
	log    *zap.SugaredLogger

	mu          sync.Mutex
	downloadDir string
	appDir      string
	homeDir     string
	keep        []string
	state       AuthState
	username    string
}

type Option func(*Backend)

func WithClient(client Client) Option {
	return func(b *Backend) {
		b.client = client
	}
}

func WithSessionStore(store SessionStore) Option {
	return func(b *Backend) {
		b.store = store
	}
}

// WithAppDir sets the application's own directory, holding the session store and swept on logout.
func WithAppDir(dir string) Option {
	return func(b *Backend) {
		b.appDir = dir
	}
}

// WithKeepFiles protects paths from the logout sweep. The session store's own file is always protected.
func WithKeepFiles(paths ...string) Option {
	return func(b *Backend) {
		b.keep = append(b.keep, paths...)
	}
}

func WithHomeDir(dir string) Option {
	return func(b *Backend) {
		b.homeDir = dir
	}
}

// DefaultAppDir is the per-user configuration directory of the application.
func DefaultAppDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "media-downloader")
	}
	return ".media-downloader"
}

func New(downloadDir string, opts ...Option) *Backend {
	b := &Backend{
		downloadDir: downloadDir,
		log:         zap.S().Named("social"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.appDir == "" {
		b.appDir = DefaultAppDir()
	}
	if b.homeDir == "" {
		b.homeDir, _ = os.UserHomeDir()
	}
	if b.client == nil {
		b.client = NewWebClient()
	}
	if b.store == nil {
		b.store = NewBoltSessionStore(filepath.Join(b.appDir, "sessions.db"))
	}
	return b
}

func (b *Backend) DownloadDir() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.downloadDir
}

// SetDownloadDir retargets a Backend that is being reused for another download.
func (b *Backend) SetDownloadDir(dir string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.downloadDir = dir
}

func (b *Backend) GetInfo(ctx context.Context, url string) *media_downloader.MediaInfo {
	target, err := ParseTarget(url)
	if err != nil {
		return media_downloader.InfoError(err)
	}
	if target.Kind == media_downloader.ContentStory {
		return &media_downloader.MediaInfo{
			Title:       "Story • @" + target.Username,
			Uploader:    target.Username,
			Qualities:   []string{string(media_downloader.QualityBest)},
			ContentType: media_downloader.ContentStory,
			MediaModes:  []string{media_downloader.MediaAuto, media_downloader.MediaVideo, media_downloader.MediaImage},
		}
	}
	post, err := b.client.PostByShortcode(ctx, target.Shortcode)
	if err != nil {
		b.log.Debugf("info for %s failed: %v", target.Shortcode, err)
		return media_downloader.InfoError(err)
	}
	title := strings.TrimSpace(post.Caption)
	if title == "" {
		title = post.Shortcode
	} else {
		title = media_downloader.Truncate(strings.Join(strings.Fields(title), " "), 50)
	}
	contentType := target.Kind
	if post.ProductType == "clips" {
		contentType = media_downloader.ContentReel
	}
	modes := []string{media_downloader.MediaAuto}
	if post.HasVideo() {
		modes = append(modes, media_downloader.MediaVideo)
	}
	if post.HasImage() {
		modes = append(modes, media_downloader.MediaImage)
	}
	return &media_downloader.MediaInfo{
		Title:       title,
		Uploader:    post.Owner,
		Thumbnail:   post.Thumbnail,
		Qualities:   []string{string(media_downloader.QualityBest)},
		ContentType: contentType,
		MediaModes:  modes,
	}
}

func (b *Backend) Download(ctx context.Context, req media_downloader.DownloadRequest, progress *media_downloader.ProgressReporter) *media_downloader.DownloadResult {
	req.Platform = media_downloader.PlatformInstagram
	contentType, mediaMode := req.Hints()
	target, err := ParseTarget(req.URL)
	if err != nil {
		return media_downloader.Failed(req, err)
	}
	if contentType != media_downloader.ContentAuto && contentType != target.Kind {
		return media_downloader.Failed(req, fmt.Errorf("%w: the URL is a %s but %s was selected", ErrContentTypeMismatch, target.Kind, contentType))
	}
	dir := req.TargetDir
	if dir == "" {
		dir = b.DownloadDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return media_downloader.Failed(req, fmt.Errorf("failed to create download dir: %w", err))
	}

	progress.Update(10, "Connecting...", "")
	if target.Kind == media_downloader.ContentStory {
		err = b.downloadStory(ctx, target, dir, progress)
	} else {
		err = b.downloadPost(ctx, target, dir, progress)
	}
	if err != nil {
		b.log.Warnf("download of %s failed: %v", req.URL, err)
		return media_downloader.Failed(req, err)
	}

	path, err := FindOutput(dir, target.ID(), mediaMode)
	if err != nil {
		return media_downloader.Failed(req, err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return media_downloader.Failed(req, fmt.Errorf("%w: %v", ErrFileNotFound, err))
	}
	progress.Update(100, "Completed", "")
	b.log.Infof("downloaded %s to %s", req.URL, path)
	return media_downloader.Succeeded(req, path, stat.Size())
}

func (b *Backend) downloadPost(ctx context.Context, target Target, dir string, progress *media_downloader.ProgressReporter) error {
	progress.Update(30, "Fetching post info...", "")
	post, err := b.client.PostByShortcode(ctx, target.Shortcode)
	if err != nil {
		return err
	}
	progress.Update(50, "Downloading...", "")
	return b.client.DownloadPost(ctx, post, dir)
}

func (b *Backend) downloadStory(ctx context.Context, target Target, dir string, progress *media_downloader.ProgressReporter) error {
	progress.Update(30, "Fetching story info...", "")
	profile, err := b.client.ProfileByUsername(ctx, target.Username)
	if err != nil {
		return err
	}
	if profile.IsPrivate && !profile.FollowedByViewer {
		return ErrPrivateProfile
	}
	items, err := b.client.Stories(ctx, profile.ID)
	if err != nil {
		return err
	}
	var found *StoryItem
	for i := range items {
		if id, _, _ := strings.Cut(items[i].MediaID, "_"); id == target.StoryID {
			found = &items[i]
			break
		}
	}
	if found == nil {
		return ErrStoryNotFound
	}
	progress.Update(60, "Downloading story...", "")
	return b.client.DownloadStoryItem(ctx, found, dir)
}

// FindOutput locates the newest file in dir whose name contains id, restricted to video or image files by mode.
func FindOutput(dir string, id string, mode string) (string, error) {
	matches := entriesContaining(dir, id, false)
	var newest string
	var newestMod int64
	for _, m := range matches {
		ext := strings.ToLower(filepath.Ext(m))
		switch mode {
		case media_downloader.MediaVideo:
			if !videoExtensions[ext] {
				continue
			}
		case media_downloader.MediaImage:
			if !imageExtensions[ext] {
				continue
			}
		}
		stat, err := os.Stat(m)
		if err != nil || stat.IsDir() {
			continue
		}
		if mod := stat.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: no %s file for %s", ErrFileNotFound, mode, id)
	}
	return newest, nil
}

func init() {
	media_downloader.DefaultBackendRegistry.MustAdd(media_downloader.Factory{
		Name:      "social",
		Platforms: []media_downloader.PlatformID{media_downloader.PlatformInstagram},
		New: func(_ media_downloader.PlatformID, downloadDir string) (media_downloader.Backend, error) {
			return New(downloadDir), nil
		},
	})
}
