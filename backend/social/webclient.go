package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/util"
)

const (
	instagramURL = "https://www.instagram.com"
	webAppID     = "936619743392459"
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// WebClient talks to the Instagram web API with a cookie-based session.
type WebClient struct {
	base    *neturl.URL
	timeout time.Duration
	log     *zap.SugaredLogger

	mu        sync.Mutex
	http      *http.Client
	twoFactor twoFactorPending
}

type twoFactorPending struct {
	username   string
	identifier string
}

type WebClientOption func(*WebClient)

// WithBaseURL points the client at another server, e.g. a test server.
func WithBaseURL(base string) WebClientOption {
	return func(c *WebClient) {
		if u, err := neturl.Parse(base); err == nil {
			c.base = u
		}
	}
}

func WithTimeout(d time.Duration) WebClientOption {
	return func(c *WebClient) {
		c.timeout = d
	}
}

func NewWebClient(opts ...WebClientOption) *WebClient {
	base, _ := neturl.Parse(instagramURL)
	c := &WebClient{
		base:    base,
		timeout: 30 * time.Second,
		log:     zap.S().Named("instagram"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = c.newHTTPClient()
	return c
}

func (c *WebClient) newHTTPClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar:     jar,
		Timeout: c.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if strings.HasPrefix(req.URL.Path, "/accounts/login") || strings.HasPrefix(req.URL.Path, "/challenge") {
				return ErrLoginRequired
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

func (c *WebClient) client() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.http
}

func (c *WebClient) endpoint(path string, query neturl.Values) string {
	u := *c.base
	u.Path = path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *WebClient) csrfToken() string {
	for _, cookie := range c.client().Jar.Cookies(c.base) {
		if cookie.Name == "csrftoken" {
			return cookie.Value
		}
	}
	return ""
}

func (c *WebClient) newRequest(ctx context.Context, method string, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-IG-App-ID", webAppID)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.base.String()+"/")
	if token := c.csrfToken(); token != "" {
		req.Header.Set("X-CSRFToken", token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

// do executes req and decodes a JSON response into v. Error statuses are only an error when the body is not a JSON
// document, since login endpoints report their outcome in a JSON body with status 400.
func (c *WebClient) do(req *http.Request, v any) (int, error) {
	resp, err := c.client().Do(req)
	if err != nil {
		if errors.Is(err, ErrLoginRequired) {
			return 0, ErrLoginRequired
		}
		return 0, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if jsonErr := json.Unmarshal(data, v); jsonErr != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return resp.StatusCode, ErrLoginRequired
		case http.StatusNotFound:
			return resp.StatusCode, ErrNotFound
		}
		if resp.StatusCode >= 300 {
			return resp.StatusCode, fmt.Errorf("%w: %s", ErrConnection, resp.Status)
		}
		return resp.StatusCode, fmt.Errorf("%w: unexpected response: %v", ErrConnection, jsonErr)
	}
	return resp.StatusCode, nil
}

type apiStatus struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	RequireLogin bool   `json:"require_login"`
}

func (s apiStatus) err(code int) error {
	switch {
	case s.RequireLogin || s.Message == "login_required" || code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrLoginRequired
	case code == http.StatusNotFound:
		return ErrNotFound
	case s.Status == "fail" || code >= 300:
		if s.Message == "" {
			s.Message = http.StatusText(code)
		}
		return fmt.Errorf("%w: %s", ErrConnection, s.Message)
	}
	return nil
}

func (c *WebClient) getAPI(ctx context.Context, path string, query neturl.Values, v any) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return err
	}
	var raw json.RawMessage
	code, err := c.do(req, &raw)
	if err != nil {
		return err
	}
	var status apiStatus
	_ = json.Unmarshal(raw, &status)
	if err := status.err(code); err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

type loginResponse struct {
	apiStatus
	Authenticated     bool   `json:"authenticated"`
	User              bool   `json:"user"`
	UserID            string `json:"userId"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	TwoFactorInfo     struct {
		Identifier string `json:"two_factor_identifier"`
	} `json:"two_factor_info"`
	CheckpointURL string `json:"checkpoint_url"`
	ErrorType     string `json:"error_type"`
}

func (c *WebClient) Login(ctx context.Context, username string, password string) error {
	// Picks up the csrftoken cookie.
	if req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("/accounts/login/", nil), nil); err != nil {
		return err
	} else if resp, err := c.client().Do(req); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	} else {
		resp.Body.Close()
	}

	form := neturl.Values{
		"username":      {username},
		"enc_password":  {fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password)},
		"queryParams":   {"{}"},
		"optIntoOneTap": {"false"},
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/api/v1/web/accounts/login/ajax/", nil), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	var resp loginResponse
	code, err := c.do(req, &resp)
	if err != nil {
		return err
	}
	switch {
	case resp.Authenticated:
		c.log.Debugf("logged in as %s (%s)", username, resp.UserID)
		return nil
	case resp.TwoFactorRequired:
		c.mu.Lock()
		c.twoFactor = twoFactorPending{username: username, identifier: resp.TwoFactorInfo.Identifier}
		c.mu.Unlock()
		return ErrTwoFactorRequired
	case resp.CheckpointURL != "" || resp.Message == "checkpoint_required":
		return ErrCheckpointRequired
	case code < 300 || resp.ErrorType == "UserInvalidCredentials" || resp.ErrorType == "bad_password":
		return ErrBadCredentials
	default:
		return resp.apiStatus.err(code)
	}
}

func (c *WebClient) TwoFactorLogin(ctx context.Context, code string) error {
	c.mu.Lock()
	pending := c.twoFactor
	c.mu.Unlock()
	if pending.identifier == "" {
		return fmt.Errorf("%w: no two-factor login in progress", ErrConnection)
	}
	form := neturl.Values{
		"username":         {pending.username},
		"verificationCode": {code},
		"identifier":       {pending.identifier},
		"queryParams":      {"{}"},
		"trust_signal":     {"true"},
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/api/v1/web/accounts/login/ajax/two_factor/", nil), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	var resp loginResponse
	status, err := c.do(req, &resp)
	if err != nil {
		return err
	}
	if resp.Authenticated {
		c.mu.Lock()
		c.twoFactor = twoFactorPending{}
		c.mu.Unlock()
		return nil
	}
	if status >= 500 {
		return resp.apiStatus.err(status)
	}
	return ErrInvalidCode
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (c *WebClient) ExportSession() ([]byte, error) {
	var cookies []savedCookie
	for _, cookie := range c.client().Jar.Cookies(c.base) {
		cookies = append(cookies, savedCookie{Name: cookie.Name, Value: cookie.Value})
	}
	if len(cookies) == 0 {
		return nil, ErrNoSession
	}
	return json.Marshal(cookies)
}

func (c *WebClient) ImportSession(data []byte) error {
	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.ClearSession()
	c.client().Jar.SetCookies(c.base, cookies)
	return nil
}

func (c *WebClient) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.http = c.newHTTPClient()
	c.twoFactor = twoFactorPending{}
}

type imageCandidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type mediaItem struct {
	PK          json.Number `json:"pk"`
	Code        string      `json:"code"`
	MediaType   int         `json:"media_type"`
	ProductType string      `json:"product_type"`
	Caption     *struct {
		Text string `json:"text"`
	} `json:"caption"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	ImageVersions2 struct {
		Candidates []imageCandidate `json:"candidates"`
	} `json:"image_versions2"`
	VideoVersions []imageCandidate `json:"video_versions"`
	CarouselMedia []mediaItem      `json:"carousel_media"`
}

const mediaTypeVideo = 2

func largest(candidates []imageCandidate) string {
	best := -1
	for i, c := range candidates {
		if best < 0 || c.Width*c.Height > candidates[best].Width*candidates[best].Height {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return candidates[best].URL
}

func (m *mediaItem) media() Media {
	if m.MediaType == mediaTypeVideo && len(m.VideoVersions) > 0 {
		return Media{IsVideo: true, URL: largest(m.VideoVersions)}
	}
	return Media{URL: largest(m.ImageVersions2.Candidates)}
}

func (m *mediaItem) post() *Post {
	p := &Post{
		Shortcode:   m.Code,
		MediaID:     m.PK.String(),
		Owner:       m.User.Username,
		ProductType: m.ProductType,
	}
	if m.Caption != nil {
		p.Caption = m.Caption.Text
	}
	if len(m.CarouselMedia) > 0 {
		for i := range m.CarouselMedia {
			p.Items = append(p.Items, m.CarouselMedia[i].media())
		}
	} else {
		p.Items = []Media{m.media()}
	}
	if len(m.ImageVersions2.Candidates) > 0 {
		p.Thumbnail = largest(m.ImageVersions2.Candidates)
	} else if len(m.CarouselMedia) > 0 {
		p.Thumbnail = largest(m.CarouselMedia[0].ImageVersions2.Candidates)
	}
	return p
}

func (c *WebClient) PostByShortcode(ctx context.Context, shortcode string) (*Post, error) {
	mediaID, err := ShortcodeToMediaID(shortcode)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Items []mediaItem `json:"items"`
	}
	if err := c.getAPI(ctx, "/api/v1/media/"+mediaID+"/info/", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrNotFound
	}
	post := resp.Items[0].post()
	if post.Shortcode == "" {
		post.Shortcode = shortcode
	}
	return post, nil
}

func (c *WebClient) ProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	var resp struct {
		Data struct {
			User *struct {
				ID               string `json:"id"`
				Username         string `json:"username"`
				IsPrivate        bool   `json:"is_private"`
				FollowedByViewer bool   `json:"followed_by_viewer"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := c.getAPI(ctx, "/api/v1/users/web_profile_info/", neturl.Values{"username": {username}}, &resp); err != nil {
		return nil, err
	}
	u := resp.Data.User
	if u == nil || u.ID == "" {
		return nil, fmt.Errorf("%w: profile %s", ErrNotFound, username)
	}
	return &Profile{ID: u.ID, Username: u.Username, IsPrivate: u.IsPrivate, FollowedByViewer: u.FollowedByViewer}, nil
}

func (c *WebClient) Stories(ctx context.Context, userID string) ([]StoryItem, error) {
	var resp struct {
		Reels map[string]struct {
			Items []mediaItem `json:"items"`
		} `json:"reels"`
	}
	if err := c.getAPI(ctx, "/api/v1/feed/reels_media/", neturl.Values{"reel_ids": {userID}}, &resp); err != nil {
		return nil, err
	}
	reel, ok := resp.Reels[userID]
	if !ok {
		return nil, nil
	}
	items := make([]StoryItem, 0, len(reel.Items))
	for i := range reel.Items {
		m := &reel.Items[i]
		items = append(items, StoryItem{MediaID: m.PK.String(), Owner: m.User.Username, Media: m.media()})
	}
	return items, nil
}

func (c *WebClient) DownloadPost(ctx context.Context, post *Post, dir string) error {
	if len(post.Items) == 0 {
		return ErrNotFound
	}
	for i, m := range post.Items {
		name := post.Shortcode
		if len(post.Items) > 1 {
			name += "_" + strconv.Itoa(i+1)
		}
		if err := c.save(ctx, m, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *WebClient) DownloadStoryItem(ctx context.Context, item *StoryItem, dir string) error {
	id, _, _ := strings.Cut(item.MediaID, "_")
	return c.save(ctx, item.Media, filepath.Join(dir, id))
}

// save downloads m to stem plus an extension taken from the media URL.
func (c *WebClient) save(ctx context.Context, m Media, stem string) error {
	if m.URL == "" {
		return ErrNotFound
	}
	ext := util.ExtensionFromURL(m.URL)
	if !videoExtensions[ext] && !imageExtensions[ext] {
		ext = ".jpg"
		if m.IsVideo {
			ext = ".mp4"
		}
	}
	req, err := http.NewRequest(http.MethodGet, m.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	if _, err := media_downloader.SaveHTTPRequest(ctx, c.client(), stem+ext, req, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}
