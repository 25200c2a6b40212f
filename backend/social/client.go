package social

import (
	"context"
	"errors"
)

var (
	ErrBadCredentials     = errors.New("invalid username or password")
	ErrTwoFactorRequired  = errors.New("2FA_REQUIRED")
	ErrCheckpointRequired = errors.New("checkpoint required: confirm this login in the Instagram app, then try again")
	ErrLoginRequired      = errors.New("login required to access this content")
	ErrPrivateProfile     = errors.New("this profile is private")
	ErrNotFound           = errors.New("content not found")
	ErrConnection         = errors.New("connection error")
)

// Media is one downloadable photo or video.
type Media struct {
	IsVideo bool
	URL     string
}

type Post struct {
	Shortcode   string
	MediaID     string
	Caption     string
	Owner       string
	ProductType string
	Thumbnail   string
	Items       []Media
}

func (p *Post) HasVideo() bool {
	for _, m := range p.Items {
		if m.IsVideo {
			return true
		}
	}
	return false
}

func (p *Post) HasImage() bool {
	for _, m := range p.Items {
		if !m.IsVideo {
			return true
		}
	}
	return false
}

type Profile struct {
	ID               string
	Username         string
	IsPrivate        bool
	FollowedByViewer bool
}

type StoryItem struct {
	MediaID string
	Owner   string
	Media   Media
}

// Client is the session-based engine the Backend drives. Login reports ErrBadCredentials, ErrTwoFactorRequired or
// ErrCheckpointRequired, anything else being a connection problem. Fetches report ErrLoginRequired, ErrNotFound or
// ErrPrivateProfile where they apply.
type Client interface {
	Login(ctx context.Context, username string, password string) error
	TwoFactorLogin(ctx context.Context, code string) error
	ExportSession() ([]byte, error)
	ImportSession(data []byte) error
	ClearSession()

	PostByShortcode(ctx context.Context, shortcode string) (*Post, error)
	ProfileByUsername(ctx context.Context, username string) (*Profile, error)
	Stories(ctx context.Context, userID string) ([]StoryItem, error)

	// DownloadPost writes "<shortcode>.<ext>" into dir, or "<shortcode>_<n>.<ext>" for each item of a carousel.
	DownloadPost(ctx context.Context, post *Post, dir string) error
	// DownloadStoryItem writes "<media id>.<ext>" into dir.
	DownloadStoryItem(ctx context.Context, item *StoryItem, dir string) error
}
