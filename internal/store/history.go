package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/media-downloader"
)

const (
	HistoryFile = "history.json"
	// MaxHistory is how many records are kept; older ones are dropped as new ones arrive.
	MaxHistory = 50
	// DefaultSearchLimit is how many records a search shows when no limit is given.
	DefaultSearchLimit = 10
)

// A HistoryRecord describes one successful download.
type HistoryRecord struct {
	Filename  string `json:"filename"`
	Platform  string `json:"platform"`
	Size      string `json:"size"`
	Filepath  string `json:"filepath"`
	Date      string `json:"date"`
	SourceURL string `json:"source_url"`
	// Bytes is the exact size; older files only have the human-readable Size.
	Bytes int64 `json:"bytes,omitempty"`
}

func (r HistoryRecord) SizeBytes() int64 {
	if r.Bytes > 0 {
		return r.Bytes
	}
	return parseSize(r.Size)
}

type HistoryStats struct {
	Count      int
	TotalBytes int64
	Platforms  map[string]int
}

// TopPlatforms returns up to n platforms ordered by record count, most first.
func (s HistoryStats) TopPlatforms(n int) []string {
	platforms := make([]string, 0, len(s.Platforms))
	for p := range s.Platforms {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool {
		a, b := s.Platforms[platforms[i]], s.Platforms[platforms[j]]
		if a != b {
			return a > b
		}
		return platforms[i] < platforms[j]
	})
	if len(platforms) > n {
		platforms = platforms[:n]
	}
	return platforms
}

// HistoryStore keeps the most recent download records, newest first, and writes the whole list back to disk after
// every change. It is not safe for concurrent use; the application controller only touches it from its foreground
// loop.
type HistoryStore struct {
	path    string
	records []HistoryRecord
	now     func() time.Time
	log     *zap.SugaredLogger
}

func NewHistoryStore(dir string) *HistoryStore {
	return &HistoryStore{
		path: filepath.Join(dir, HistoryFile),
		now:  time.Now,
		log:  zap.S().Named("store"),
	}
}

func (s *HistoryStore) Path() string {
	return s.path
}

// Load replaces the in-memory records with the file contents. A missing file is an empty history. An unreadable file
// also leaves the history empty, but the error is returned so the caller can report it.
func (s *HistoryStore) Load() error {
	s.records = nil
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	var records []HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse history %s: %w", s.path, err)
	}
	if len(records) > MaxHistory {
		records = records[:MaxHistory]
	}
	s.records = records
	s.log.Debugf("loaded %d history records from %s", len(records), s.path)
	return nil
}

func (s *HistoryStore) save() error {
	records := s.records
	if records == nil {
		records = []HistoryRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Add records a successful result at the front of the history and persists it. Failed results are ignored. The
// in-memory history is updated even if writing the file fails.
func (s *HistoryStore) Add(result *media_downloader.DownloadResult) (HistoryRecord, error) {
	if result == nil || !result.Success {
		return HistoryRecord{}, nil
	}
	record := HistoryRecord{
		Filename:  result.Filename,
		Platform:  string(result.Platform),
		Size:      media_downloader.FormatSize(result.FileSize),
		Filepath:  result.Filepath,
		Date:      s.now().Format("2006-01-02T15:04:05.000000"),
		SourceURL: result.SourceURL,
		Bytes:     result.FileSize,
	}
	records := make([]HistoryRecord, 0, MaxHistory)
	records = append(records, record)
	records = append(records, s.records...)
	if len(records) > MaxHistory {
		records = records[:MaxHistory]
	}
	s.records = records
	return record, s.save()
}

func (s *HistoryStore) Clear() error {
	s.records = nil
	return s.save()
}

// Records returns a copy of every record, newest first.
func (s *HistoryStore) Records() []HistoryRecord {
	return append([]HistoryRecord(nil), s.records...)
}

// Search returns up to limit records whose filename or platform contains term, ignoring case. An empty term matches
// everything; a limit of zero or less uses DefaultSearchLimit.
func (s *HistoryStore) Search(term string, limit int) []HistoryRecord {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	term = strings.ToLower(strings.TrimSpace(term))
	var found []HistoryRecord
	for _, r := range s.records {
		if len(found) >= limit {
			break
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(r.Filename), term) &&
			!strings.Contains(strings.ToLower(r.Platform), term) {
			continue
		}
		found = append(found, r)
	}
	return found
}

func (s *HistoryStore) Stats() HistoryStats {
	stats := HistoryStats{Platforms: make(map[string]int)}
	for _, r := range s.records {
		stats.Count++
		stats.TotalBytes += r.SizeBytes()
		platform := r.Platform
		if platform == "" {
			platform = "unknown"
		}
		stats.Platforms[platform]++
	}
	return stats
}

var sizeUnits = map[string]float64{
	"B":  1,
	"KB": 1024,
	"MB": 1024 * 1024,
	"GB": 1024 * 1024 * 1024,
}

// parseSize approximately reverses media_downloader.FormatSize.
func parseSize(s string) int64 {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return 0
	}
	value, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	multiplier, ok := sizeUnits[strings.ToUpper(parts[1])]
	if !ok {
		multiplier = 1
	}
	return int64(value * multiplier)
}
