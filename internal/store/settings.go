package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/alanbriolat/media-downloader"
)

const SettingsFile = "settings.json"

const (
	KeyDownloadPath      = "download_path"
	KeyFilenameTemplate  = "filename_template"
	KeyTheme             = "theme"
	KeyLanguage          = "language"
	KeyAutoFolder        = "auto_folder"
	KeyNotifications     = "notifications"
	KeyAutoUpdateCheck   = "auto_update_check"
	KeyInstagramUsername = "instagram_username"
)

var ErrUnknownSetting = errors.New("unknown setting")

type Settings struct {
	DownloadPath      string `mapstructure:"download_path"`
	FilenameTemplate  string `mapstructure:"filename_template"`
	Theme             string `mapstructure:"theme"`
	Language          string `mapstructure:"language"`
	AutoFolder        bool   `mapstructure:"auto_folder"`
	Notifications     bool   `mapstructure:"notifications"`
	AutoUpdateCheck   bool   `mapstructure:"auto_update_check"`
	InstagramUsername string `mapstructure:"instagram_username"`
}

// DefaultDownloadPath is ~/Downloads/MediaDownloader, or a relative directory of the same name if the home directory
// is unknown.
func DefaultDownloadPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "MediaDownloader"
	}
	return filepath.Join(home, "Downloads", "MediaDownloader")
}

func DefaultSettings() Settings {
	return Settings{
		DownloadPath:     DefaultDownloadPath(),
		FilenameTemplate: media_downloader.DefaultFilenameTemplate,
		Theme:            "dark",
		Language:         "tr",
		AutoFolder:       false,
		Notifications:    true,
		AutoUpdateCheck:  true,
	}
}

func (s Settings) values() map[string]interface{} {
	return map[string]interface{}{
		KeyDownloadPath:      s.DownloadPath,
		KeyFilenameTemplate:  s.FilenameTemplate,
		KeyTheme:             s.Theme,
		KeyLanguage:          s.Language,
		KeyAutoFolder:        s.AutoFolder,
		KeyNotifications:     s.Notifications,
		KeyAutoUpdateCheck:   s.AutoUpdateCheck,
		KeyInstagramUsername: s.InstagramUsername,
	}
}

// Keys lists every known setting in display order.
func Keys() []string {
	return []string{
		KeyDownloadPath,
		KeyFilenameTemplate,
		KeyTheme,
		KeyLanguage,
		KeyAutoFolder,
		KeyNotifications,
		KeyAutoUpdateCheck,
		KeyInstagramUsername,
	}
}

// Get returns the value of one setting formatted as text.
func (s Settings) Get(key string) (string, error) {
	value, ok := s.values()[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return fmt.Sprint(value), nil
}

// Set parses value for the named setting.
func (s *Settings) Set(key string, value string) error {
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		*dst = b
		return nil
	}
	switch key {
	case KeyDownloadPath:
		s.DownloadPath = value
	case KeyFilenameTemplate:
		s.FilenameTemplate = value
	case KeyTheme:
		s.Theme = value
	case KeyLanguage:
		s.Language = value
	case KeyAutoFolder:
		return parseBool(&s.AutoFolder)
	case KeyNotifications:
		return parseBool(&s.Notifications)
	case KeyAutoUpdateCheck:
		return parseBool(&s.AutoUpdateCheck)
	case KeyInstagramUsername:
		s.InstagramUsername = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return nil
}

// SettingsStore reads and writes settings.json. Keys it does not know about are preserved across a Load and Save.
type SettingsStore struct {
	path string
	v    *viper.Viper
	log  *zap.SugaredLogger
}

func NewSettingsStore(dir string) *SettingsStore {
	return &SettingsStore{
		path: filepath.Join(dir, SettingsFile),
		log:  zap.S().Named("store"),
	}
}

func (s *SettingsStore) Path() string {
	return s.path
}

func (s *SettingsStore) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	for key, value := range DefaultSettings().values() {
		v.SetDefault(key, value)
	}
	return v
}

// Load returns the stored settings with defaults filled in for missing keys. A missing file gives the defaults. An
// unreadable file also gives the defaults, along with the error.
func (s *SettingsStore) Load() (Settings, error) {
	s.v = s.newViper()
	var loadErr error
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			loadErr = fmt.Errorf("failed to read settings %s: %w", s.path, err)
			s.v = s.newViper()
		}
	}
	var settings Settings
	if err := s.v.Unmarshal(&settings); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to decode settings: %w", err)
	}
	if strings.TrimSpace(settings.DownloadPath) == "" {
		settings.DownloadPath = DefaultDownloadPath()
	}
	if settings.FilenameTemplate == "" {
		settings.FilenameTemplate = media_downloader.DefaultFilenameTemplate
	}
	s.log.Debugf("loaded settings from %s", s.path)
	return settings, loadErr
}

// Save writes every setting to the file, creating its directory if needed.
func (s *SettingsStore) Save(settings Settings) error {
	if s.v == nil {
		s.v = s.newViper()
	}
	for key, value := range settings.values() {
		s.v.Set(key, value)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
