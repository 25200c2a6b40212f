// Package debounce delays an action until input has been quiet for a window, so that only the last of a burst of
// triggers runs.
package debounce

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

type Debouncer struct {
	mu       sync.Mutex
	debounce func(f func())
}

func New(window time.Duration) *Debouncer {
	return &Debouncer{debounce: debounce.New(window)}
}

// Trigger schedules f to run once the window has passed with no further Trigger or Cancel. f runs on its own
// goroutine.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.debounce(f)
}

// Cancel drops any pending action.
func (d *Debouncer) Cancel() {
	d.Trigger(func() {})
}
