package media_downloader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrDuplicateBackend = errors.New("duplicate backend for platform")
	ErrInvalidBackend   = errors.New("invalid backend factory")
	ErrUnknownPlatform  = errors.New("unknown platform")
)

type NewBackendFunc = func(platform PlatformID, downloadDir string) (Backend, error)

// A Factory creates Backend instances for a set of platforms.
type Factory struct {
	Name      string
	Platforms []PlatformID
	New       NewBackendFunc
}

// A BackendRegistry maps each PlatformID to the Factory that handles it.
type BackendRegistry struct {
	mu        sync.RWMutex
	factories map[PlatformID]*Factory
}

// Add registers a Factory for each of its platforms. Factory.Name and Factory.New must be set, and no platform may
// already be registered; every conflicting platform is reported.
func (r *BackendRegistry) Add(f Factory) error {
	if f.Name == "" || f.New == nil || len(f.Platforms) == 0 {
		return ErrInvalidBackend
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[PlatformID]*Factory)
	}
	var result error
	for _, p := range f.Platforms {
		if existing, ok := r.factories[p]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: %v (%v)", ErrDuplicateBackend, p, existing.Name))
		}
	}
	if result != nil {
		return multierror.Prefix(result, fmt.Sprintf("[%v]", f.Name))
	}
	for _, p := range f.Platforms {
		r.factories[p] = &f
	}
	return nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *BackendRegistry) MustAdd(f Factory) {
	if err := r.Add(f); err != nil {
		panic(err)
	}
}

// Create returns a new Backend for platform that saves into downloadDir.
func (r *BackendRegistry) Create(platform PlatformID, downloadDir string) (Backend, error) {
	r.mu.RLock()
	f, ok := r.factories[platform]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPlatform, platform)
	}
	return f.New(platform, downloadDir)
}

// Platforms returns the registered platforms in sorted order.
func (r *BackendRegistry) Platforms() []PlatformID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	platforms := make([]PlatformID, 0, len(r.factories))
	for p := range r.factories {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}

var DefaultBackendRegistry BackendRegistry

// CreateBackend is a shortcut for DefaultBackendRegistry.Create.
func CreateBackend(platform PlatformID, downloadDir string) (Backend, error) {
	return DefaultBackendRegistry.Create(platform, downloadDir)
}

func filepathBase(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
