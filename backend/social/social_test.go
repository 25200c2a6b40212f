package social

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/media-downloader"
)

// fakeClient serves canned posts, profiles and stories, "downloading" by writing small files.
type fakeClient struct {
	posts    map[string]*Post
	profiles map[string]*Profile
	stories  map[string][]StoryItem
	fetchErr error

	loginErr     error
	twoFactorErr error
	logins       int
	twoFactors   int
	session      []byte
	cleared      int
}

func (c *fakeClient) Login(context.Context, string, string) error {
	c.logins++
	if c.loginErr == nil {
		c.session = []byte(`[{"name":"sessionid","value":"x"}]`)
	}
	return c.loginErr
}

func (c *fakeClient) TwoFactorLogin(context.Context, string) error {
	c.twoFactors++
	if c.twoFactorErr == nil {
		c.session = []byte(`[{"name":"sessionid","value":"2fa"}]`)
	}
	return c.twoFactorErr
}

func (c *fakeClient) ExportSession() ([]byte, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.session, nil
}

func (c *fakeClient) ImportSession(data []byte) error {
	c.session = data
	return nil
}

func (c *fakeClient) ClearSession() {
	c.cleared++
	c.session = nil
}

func (c *fakeClient) PostByShortcode(_ context.Context, shortcode string) (*Post, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	if p, ok := c.posts[shortcode]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (c *fakeClient) ProfileByUsername(_ context.Context, username string) (*Profile, error) {
	if p, ok := c.profiles[username]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (c *fakeClient) Stories(_ context.Context, userID string) ([]StoryItem, error) {
	return c.stories[userID], nil
}

func (c *fakeClient) DownloadPost(_ context.Context, post *Post, dir string) error {
	for i, m := range post.Items {
		ext := ".jpg"
		if m.IsVideo {
			ext = ".mp4"
		}
		name := post.Shortcode
		if len(post.Items) > 1 {
			name += "_" + string(rune('1'+i))
		}
		if err := os.WriteFile(filepath.Join(dir, name+ext), []byte(m.URL), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeClient) DownloadStoryItem(_ context.Context, item *StoryItem, dir string) error {
	ext := ".jpg"
	if item.Media.IsVideo {
		ext = ".mp4"
	}
	return os.WriteFile(filepath.Join(dir, item.MediaID+ext), []byte(item.Media.URL), 0644)
}

type memoryStore map[string][]byte

func (s memoryStore) Load(username string) ([]byte, error) {
	if data, ok := s[username]; ok {
		return data, nil
	}
	return nil, ErrNoSession
}

func (s memoryStore) Save(username string, data []byte) error {
	s[username] = data
	return nil
}

func (s memoryStore) Delete(username string) error {
	delete(s, username)
	return nil
}

func newTestBackend(t *testing.T, client *fakeClient) (*Backend, string) {
	dir := t.TempDir()
	return New(dir, WithClient(client), WithSessionStore(memoryStore{}), WithAppDir(t.TempDir()), WithHomeDir(t.TempDir())), dir
}

func collect(percents *[]float64) *media_downloader.ProgressReporter {
	return media_downloader.NewProgressReporter(func(u media_downloader.ProgressUpdate) {
		*percents = append(*percents, u.Percent)
	})
}

func TestDownloadPost(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{posts: map[string]*Post{
		"ABC": {Shortcode: "ABC", Items: []Media{{URL: "photo"}, {IsVideo: true, URL: "video"}}},
	}}
	b, dir := newTestBackend(t, client)

	var percents []float64
	res := b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/p/ABC/", MediaMode: media_downloader.MediaVideo}, collect(&percents))
	require.True(t, res.Success, res.Error)
	assert.Equal(filepath.Join(dir, "ABC_2.mp4"), res.Filepath)
	assert.Equal(int64(len("video")), res.FileSize)
	assert.Equal(media_downloader.PlatformInstagram, res.Platform)
	assert.Equal([]float64{10, 30, 50, 100}, percents)

	res = b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/p/ABC/", MediaMode: media_downloader.MediaImage}, nil)
	require.True(t, res.Success, res.Error)
	assert.Equal("ABC_1.jpg", res.Filename)
}

func TestDownloadContentTypeMismatch(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{}
	b, _ := newTestBackend(t, client)

	res := b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/p/ABC/", ContentType: media_downloader.ContentStory}, nil)
	assert.False(res.Success)
	assert.Contains(res.Error, ErrContentTypeMismatch.Error())

	res = b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/stories/u/1/", ContentType: media_downloader.ContentReel}, nil)
	assert.False(res.Success)
	assert.Contains(res.Error, "the URL is a story")

	res = b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/u/"}, nil)
	assert.False(res.Success)
	assert.Contains(res.Error, ErrUnsupportedURL.Error())
}

func TestDownloadStory(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{
		profiles: map[string]*Profile{
			"testuser": {ID: "42", Username: "testuser"},
			"secret":   {ID: "7", Username: "secret", IsPrivate: true},
		},
		stories: map[string][]StoryItem{
			"42": {
				{MediaID: "111_42", Media: Media{URL: "a"}},
				{MediaID: "3456789012345678901_42", Media: Media{IsVideo: true, URL: "story"}},
			},
		},
	}
	b, dir := newTestBackend(t, client)

	var percents []float64
	res := b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/stories/testuser/3456789012345678901/?igsh=x"}, collect(&percents))
	require.True(t, res.Success, res.Error)
	assert.Equal(filepath.Join(dir, "3456789012345678901_42.mp4"), res.Filepath)
	assert.Equal([]float64{10, 30, 60, 100}, percents)

	res = b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/stories/testuser/999/"}, nil)
	assert.False(res.Success)
	assert.Equal(ErrStoryNotFound.Error(), res.Error)

	res = b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/stories/secret/1/"}, nil)
	assert.False(res.Success)
	assert.Equal(ErrPrivateProfile.Error(), res.Error)
}

func TestDownloadLoginRequired(t *testing.T) {
	client := &fakeClient{fetchErr: ErrLoginRequired}
	b, _ := newTestBackend(t, client)
	res := b.Download(context.Background(), media_downloader.DownloadRequest{URL: "https://www.instagram.com/reel/ABC/"}, nil)
	assert_.False(t, res.Success)
	assert_.Equal(t, ErrLoginRequired.Error(), res.Error)
}

func TestGetInfo(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{posts: map[string]*Post{
		"ABC":   {Shortcode: "ABC", Owner: "owner", Caption: "  A rather long caption that goes on and on and on about nothing at all  ", Items: []Media{{IsVideo: true}}, ProductType: "clips"},
		"PLAIN": {Shortcode: "PLAIN", Items: []Media{{}}},
	}}
	b, _ := newTestBackend(t, client)

	info := b.GetInfo(context.Background(), "https://www.instagram.com/p/ABC/")
	assert.NoError(info.Err())
	assert.Equal("A rather long caption that goes on and on and on a...", info.Title)
	assert.Equal("owner", info.Uploader)
	assert.Equal(media_downloader.ContentReel, info.ContentType)
	assert.Equal([]string{"auto", "video"}, info.MediaModes)
	assert.Equal([]string{"best"}, info.Qualities)

	info = b.GetInfo(context.Background(), "https://www.instagram.com/p/PLAIN/")
	assert.Equal("PLAIN", info.Title)
	assert.Equal(media_downloader.ContentPost, info.ContentType)
	assert.Equal([]string{"auto", "image"}, info.MediaModes)

	info = b.GetInfo(context.Background(), "https://www.instagram.com/stories/someone/1/")
	assert.Equal("Story • @someone", info.Title)
	assert.Equal(media_downloader.ContentStory, info.ContentType)

	info = b.GetInfo(context.Background(), "https://www.instagram.com/p/MISSING/")
	assert.Equal(ErrNotFound.Error(), info.Error)
}

func TestFindOutput(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	write := func(name string, age time.Duration) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0644))
		mod := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	write("XYZ_1.jpg", 3*time.Minute)
	write("XYZ_2.mp4", 2*time.Minute)
	write("XYZ_3.png", 1*time.Minute)
	write("XYZ.json", 0)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "XYZ_dir"), 0755))

	path, err := FindOutput(dir, "XYZ", media_downloader.MediaVideo)
	assert.NoError(err)
	assert.Equal("XYZ_2.mp4", filepath.Base(path))

	path, err = FindOutput(dir, "XYZ", media_downloader.MediaImage)
	assert.NoError(err)
	assert.Equal("XYZ_3.png", filepath.Base(path))

	path, err = FindOutput(dir, "XYZ", media_downloader.MediaAuto)
	assert.NoError(err)
	assert.Equal("XYZ.json", filepath.Base(path))

	_, err = FindOutput(dir, "NOPE", media_downloader.MediaAuto)
	assert.ErrorIs(err, ErrFileNotFound)
}

func TestFindOutputLiteralDir(t *testing.T) {
	assert := assert_.New(t)
	dir := filepath.Join(t.TempDir(), "[IG]")
	require.NoError(t, os.Mkdir(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ABCdef123.mp4"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abcdef123.jpg"), nil, 0644))

	path, err := FindOutput(dir, "ABCdef123", media_downloader.MediaAuto)
	assert.NoError(err)
	assert.Equal(filepath.Join(dir, "ABCdef123.mp4"), path)

	_, err = FindOutput(dir, "ABCdef123", media_downloader.MediaImage)
	assert.ErrorIs(err, ErrFileNotFound, "shortcodes are case-sensitive")
}

func TestRegistered(t *testing.T) {
	b, err := media_downloader.CreateBackend(media_downloader.PlatformInstagram, t.TempDir())
	assert_.NoError(t, err)
	assert_.IsType(t, &Backend{}, b)
}
