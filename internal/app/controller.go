// Package app is the application core shared by every front end. A Controller owns the queue, history, settings and
// the reusable social backend; front ends drive it through its methods and observe it through a View.
//
// All View calls, and all changes to history and settings, happen on the goroutine running Controller.Run. Download
// workers hand their results back by posting closures to that goroutine.
package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/backend/social"
	"github.com/alanbriolat/media-downloader/internal/debounce"
	"github.com/alanbriolat/media-downloader/internal/queue"
	"github.com/alanbriolat/media-downloader/internal/store"
)

var (
	ErrEmptyURL = errors.New("no URL given")
	ErrClosed   = errors.New("controller closed")
)

// A SessionBackend is a Backend that keeps an account session between downloads.
type SessionBackend interface {
	media_downloader.Backend
	Login(ctx context.Context, username string, password string) error
	LoginWithTwoFactor(ctx context.Context, username string, password string, code string) error
	SaveSession() error
	LoadSession(username string) error
	Logout()
	State() social.AuthState
	Username() string
	SetDownloadDir(dir string)
}

type NewSessionBackendFunc = func(downloadDir string, configDir string) (SessionBackend, error)

func newSocialBackend(downloadDir string, configDir string) (SessionBackend, error) {
	return social.New(downloadDir,
		social.WithAppDir(configDir),
		social.WithKeepFiles(filepath.Join(configDir, store.SettingsFile), filepath.Join(configDir, store.HistoryFile)),
	), nil
}

type Config struct {
	// ConfigDir holds settings.json, history.json and the session database.
	ConfigDir string
	Registry  *media_downloader.BackendRegistry
	// NewSessionBackend creates the backend for the platform that needs an account session.
	NewSessionBackend NewSessionBackendFunc
	SessionPlatform   media_downloader.PlatformID
	View              View
	// Quiet period before a changed URL is previewed.
	DebounceWindow time.Duration
	// Minimum interval between intermediate progress updates sent to the View.
	ProgressInterval time.Duration
}

// DefaultConfigDir is the media-downloader directory under the user configuration directory.
func DefaultConfigDir() string {
	return social.DefaultAppDir()
}

var DefaultConfig = Config{
	ConfigDir:         DefaultConfigDir(),
	Registry:          &media_downloader.DefaultBackendRegistry,
	NewSessionBackend: newSocialBackend,
	SessionPlatform:   media_downloader.PlatformInstagram,
	View:              NopView{},
	DebounceWindow:    400 * time.Millisecond,
	ProgressInterval:  100 * time.Millisecond,
}

type Controller struct {
	config    Config
	ctx       context.Context
	ctxCancel context.CancelFunc
	log       *zap.SugaredLogger
	view      View

	tasks     chan func()
	closed    chan struct{}
	closeOnce sync.Once
	workers   sync.WaitGroup

	queue   *queue.Processor
	preview *debounce.Debouncer

	// Only touched by the queue worker.
	queueProgressID queue.ItemID
	queueProgress   *media_downloader.ProgressReporter

	// Only touched from the foreground.
	settingsStore *store.SettingsStore
	settings      store.Settings
	history       *store.HistoryStore

	sessionMu sync.Mutex
	session   SessionBackend
}

// New loads settings and history from config.ConfigDir and restores the saved account session, if any. Failures to
// read either file are logged and leave the defaults in place.
func New(config Config, ctx context.Context) (*Controller, error) {
	if config.ConfigDir == "" {
		config.ConfigDir = DefaultConfig.ConfigDir
	}
	if config.Registry == nil {
		config.Registry = DefaultConfig.Registry
	}
	if config.NewSessionBackend == nil {
		config.NewSessionBackend = DefaultConfig.NewSessionBackend
	}
	if config.SessionPlatform == media_downloader.PlatformNone {
		config.SessionPlatform = DefaultConfig.SessionPlatform
	}
	if config.View == nil {
		config.View = NopView{}
	}
	if err := os.MkdirAll(config.ConfigDir, 0o755); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		config:    config,
		ctx:       ctx,
		ctxCancel: cancel,
		log:       media_downloader.Logger(ctx).Sugar().Named("app"),
		view:      config.View,

		tasks:  make(chan func(), 64),
		closed: make(chan struct{}),

		preview:       debounce.New(config.DebounceWindow),
		settingsStore: store.NewSettingsStore(config.ConfigDir),
		history:       store.NewHistoryStore(config.ConfigDir),
	}
	c.queue = queue.NewProcessor(c.runQueueItem, queue.Hooks{
		OnStarted:  c.onQueueItemStarted,
		OnProgress: c.onQueueItemProgress,
		OnFinished: c.onQueueItemFinished,
		OnDrained:  c.onQueueDrained,
	})

	var err error
	if c.settings, err = c.settingsStore.Load(); err != nil {
		c.log.Warnf("using default settings: %v", err)
	}
	if err := c.history.Load(); err != nil {
		c.log.Warnf("starting with empty history: %v", err)
	}
	c.restoreSession()
	c.log.Debugf("config dir %s, download path %s", config.ConfigDir, c.settings.DownloadPath)
	return c, nil
}

func (c *Controller) restoreSession() {
	username := c.settings.InstagramUsername
	if username == "" {
		return
	}
	backend, err := c.sessionBackend(c.settings.DownloadPath)
	if err != nil {
		c.log.Warnf("failed to create %s backend: %v", c.config.SessionPlatform, err)
		return
	}
	if err := backend.LoadSession(username); err != nil {
		c.log.Warnf("failed to restore session for %s: %v", username, err)
		return
	}
	c.log.Infof("restored %s session for %s", c.config.SessionPlatform, username)
}

// Run executes the closures posted by workers until ctx is done or Close is called, and then closes the Controller.
func (c *Controller) Run(ctx context.Context) error {
	defer c.Close()
	for {
		select {
		case f := <-c.tasks:
			f()
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		}
	}
}

// post hands f to the foreground. After Close it is dropped.
func (c *Controller) post(f func()) {
	select {
	case c.tasks <- f:
	case <-c.closed:
	}
}

// Close stops the foreground loop and cancels running downloads. It does not wait for workers; see Wait.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.preview.Cancel()
		close(c.closed)
		c.ctxCancel()
	})
}

// Wait blocks until every worker started by the Controller has returned.
func (c *Controller) Wait() {
	c.workers.Wait()
	c.queue.Wait()
}

// Do runs f on the foreground, for front ends that need to act from their own goroutines.
func (c *Controller) Do(f func()) {
	c.post(f)
}

// spawn runs f on a worker goroutine tied to the Controller's lifetime.
func (c *Controller) spawn(f func(ctx context.Context)) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		f(c.ctx)
	}()
}

func (c *Controller) ConfigDir() string {
	return c.config.ConfigDir
}
