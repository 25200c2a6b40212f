package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/alanbriolat/media-downloader"
)

var (
	ErrAlreadyQueued = errors.New("already in the queue")
	ErrQueueBusy     = errors.New("a download is already in progress")
	ErrQueueEmpty    = errors.New("no pending items in the queue")
)

// A Runner performs the download for one item. It is called from the Processor's worker goroutine.
type Runner func(ctx context.Context, item Item, progress *media_downloader.ProgressReporter) *media_downloader.DownloadResult

// Hooks are called from the worker goroutine with snapshots of the item concerned. Any of them may be nil.
type Hooks struct {
	OnStarted  func(item Item)
	OnProgress func(item Item, update media_downloader.ProgressUpdate)
	OnFinished func(item Item, result *media_downloader.DownloadResult)
	// OnDrained is called once no pending items remain, after the downloading flag has been cleared.
	OnDrained func()
}

// A Processor owns an ordered list of items and downloads pending ones strictly one at a time, in insertion order.
// The same "downloading" flag also guards single downloads made outside the queue (see TryAcquire), so at most one
// download of either kind is ever running.
type Processor struct {
	runner Runner
	hooks  Hooks
	log    *zap.SugaredLogger

	mu          sync.Mutex
	items       []*Item
	downloading bool
	wg          sync.WaitGroup
}

func NewProcessor(runner Runner, hooks Hooks) *Processor {
	return &Processor{
		runner: runner,
		hooks:  hooks,
		log:    zap.S().Named("queue"),
	}
}

// Add appends item unless an identical request is already pending or downloading. Finished items never block a
// new identical request, so failed downloads can be re-queued.
func (p *Processor) Add(item *Item) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.items {
		if existing.Status.IsActive() && existing.Matches(item) {
			return fmt.Errorf("%w: %s", ErrAlreadyQueued, item.Request.URL)
		}
	}
	item.Status = StatusPending
	item.Error = ""
	item.Result = nil
	p.items = append(p.items, item)
	p.log.Debugf("added %s: %s", item.ID, item.Request.URL)
	return nil
}

// AddAll adds each item in order, skipping duplicates, and returns how many were added.
func (p *Processor) AddAll(items []*Item) (added int) {
	for _, item := range items {
		if err := p.Add(item); err == nil {
			added++
		}
	}
	return added
}

// Remove drops a pending item. Items that have started cannot be removed, since downloads cannot be cancelled part
// way through.
func (p *Processor) Remove(id ItemID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, item := range p.items {
		if item.ID == id {
			if item.Status != StatusPending {
				return false
			}
			p.items = append(p.items[:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every item that is not currently downloading, returning how many were removed.
func (p *Processor) Clear() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.items[:0]
	for _, item := range p.items {
		if item.Status == StatusDownloading {
			kept = append(kept, item)
		}
	}
	removed := len(p.items) - len(kept)
	for i := len(kept); i < len(p.items); i++ {
		p.items[i] = nil
	}
	p.items = kept
	return removed
}

// Items returns snapshots of every item in queue order.
func (p *Processor) Items() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]Item, len(p.items))
	for i, item := range p.items {
		items[i] = *item
	}
	return items
}

// Get returns a snapshot of one item.
func (p *Processor) Get(id ItemID) (Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.items {
		if item.ID == id {
			return *item, true
		}
	}
	return Item{}, false
}

// Counts returns how many items are in each status.
func (p *Processor) Counts() map[Status]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	counts := make(map[Status]int)
	for _, item := range p.items {
		counts[item.Status]++
	}
	return counts
}

func (p *Processor) IsDownloading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.downloading
}

// TryAcquire claims the downloading flag for a download made outside the queue. It returns false if any download is
// already running; otherwise the caller must call Release when done.
func (p *Processor) TryAcquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.downloading {
		return false
	}
	p.downloading = true
	return true
}

func (p *Processor) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloading = false
}

// Start launches the worker that drains pending items. The first pending item is marked downloading before Start
// returns; items added while the worker runs are picked up in turn.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.downloading {
		return ErrQueueBusy
	}
	item := p.nextPendingLocked()
	if item == nil {
		return ErrQueueEmpty
	}
	p.downloading = true
	item.Status = StatusDownloading
	p.wg.Add(1)
	go p.run(ctx, item, *item)
	return nil
}

// Wait blocks until the current worker, if any, has drained the queue.
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) nextPendingLocked() *Item {
	for _, item := range p.items {
		if item.Status == StatusPending {
			return item
		}
	}
	return nil
}

// next marks the first pending item as downloading and returns a snapshot of it. With nothing pending it clears
// the downloading flag in the same critical section, so a concurrent Start either sees the worker still running or
// starts a new one.
func (p *Processor) next() (*Item, Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item := p.nextPendingLocked()
	if item == nil {
		p.downloading = false
		return nil, Item{}, false
	}
	item.Status = StatusDownloading
	return item, *item, true
}

func (p *Processor) finish(item *Item, result *media_downloader.DownloadResult) Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	item.Result = result
	if result.Success {
		item.Status = StatusCompleted
		item.Error = ""
	} else {
		item.Status = StatusError
		item.Error = result.Error
	}
	return *item
}

// stop puts a claimed but unstarted item back to pending and clears the downloading flag.
func (p *Processor) stop(item *Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item.Status = StatusPending
	p.downloading = false
}

// run downloads item, then each following pending item, until none remain or ctx is done. Items left over when ctx
// is done stay pending.
func (p *Processor) run(ctx context.Context, item *Item, snapshot Item) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			p.stop(item)
			p.log.Debugf("queue stopped: %v", ctx.Err())
			return
		}
		p.log.Infof("starting %s: %s", snapshot.ID, snapshot.Request.URL)
		if p.hooks.OnStarted != nil {
			p.hooks.OnStarted(snapshot)
		}
		result := p.runOne(ctx, snapshot)
		finished := p.finish(item, result)
		p.log.Infof("finished %s: %s", finished.ID, finished.Status)
		if p.hooks.OnFinished != nil {
			p.hooks.OnFinished(finished, result)
		}

		var ok bool
		if item, snapshot, ok = p.next(); !ok {
			p.log.Debug("queue drained")
			if p.hooks.OnDrained != nil {
				p.hooks.OnDrained()
			}
			return
		}
	}
}

// runOne calls the Runner, converting a panic or a nil result into a failed result so that one bad item cannot stop
// the queue.
func (p *Processor) runOne(ctx context.Context, item Item) (result *media_downloader.DownloadResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("download of %s panicked: %v", item.Request.URL, r)
			result = media_downloader.Failed(item.Request, fmt.Errorf("internal error: %v", r))
		}
	}()
	var progress *media_downloader.ProgressReporter
	if p.hooks.OnProgress != nil {
		progress = media_downloader.NewProgressReporter(func(u media_downloader.ProgressUpdate) {
			p.hooks.OnProgress(item, u)
		})
	}
	result = p.runner(ctx, item, progress)
	if result == nil {
		result = media_downloader.Failed(item.Request, errors.New("no result"))
	}
	return result
}
