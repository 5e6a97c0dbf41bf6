// Package watch bridges filesystem notifications into workspace mutations.
// Raw fsnotify events are debounced per path and flushed as one batch, so
// editor save storms collapse into single model updates.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/cbl/internal/debug"
	"github.com/standardbeagle/cbl/internal/project"
	"github.com/standardbeagle/cbl/internal/types"
)

// eventKind classifies a debounced filesystem event.
type eventKind int

const (
	eventCreate eventKind = iota
	eventWrite
	eventRemove
)

// Watcher monitors a directory tree and feeds admitted changes into the
// workspace. Filters come from the scanner, so watch-time membership
// matches scan-time membership.
type Watcher struct {
	watcher   *fsnotify.Watcher
	scanner   *project.Scanner
	workspace *project.Workspace
	debouncer *eventDebouncer
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
	statsMu         sync.RWMutex
}

// NewWatcher creates a watcher delivering into ws. A non-positive debounce
// falls back to the default.
func NewWatcher(sc *project.Scanner, ws *project.Workspace, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = types.DefaultWatchDebounceMs * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:   fsw,
		scanner:   sc,
		workspace: ws,
		debouncer: newEventDebouncer(debounce),
		ctx:       ctx,
		cancel:    cancel,
	}
	w.debouncer.deliver = w.deliverBatch
	return w, nil
}

// Start adds watches for every directory under root and begins processing.
func (w *Watcher) Start(root string) error {
	debug.LogWatch("starting watcher for %s\n", root)

	if err := w.addWatches(root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents()

	w.wg.Add(1)
	go w.debouncer.run(w.ctx, &w.wg)

	return nil
}

// Stop halts event processing and releases the fsnotify handle. Events
// still pending in the debouncer are dropped; the model is being torn down
// anyway.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	debug.LogWatch("watcher stopped\n")
	return err
}

// addWatches walks root and watches every admitted directory. Symlink
// cycles are broken by tracking resolved paths.
func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		real, realErr := filepath.EvalSymlinks(path)
		if realErr != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if path != root && w.scanner.SkipDir(path) {
			return filepath.SkipDir
		}

		if addErr := w.watcher.Add(path); addErr != nil {
			debug.Warnf("WATCH", "failed to watch %s: %v\n", path, addErr)
			w.incrementStats(0, 1)
		}
		return nil
	})
}

// processEvents drains the fsnotify channels until shutdown.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			debug.Warnf("WATCH", "watch error: %v\n", err)
			w.incrementStats(0, 1)
		}
	}
}

// handleEvent classifies one raw event and hands it to the debouncer.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogWatch("event %v for %s\n", event.Op, path)

	info, err := os.Stat(path)
	if err != nil {
		// Gone already: removes and rename-aways both end up here
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.scanner.AllowPath(path) {
			w.debouncer.addEvent(path, eventRemove)
		}
		return
	}

	if info.IsDir() {
		w.handleDirectoryEvent(event, path)
		return
	}

	if info.Size() > w.scanner.MaxFileSize() {
		debug.LogWatch("skipping oversized %s (%d bytes)\n", path, info.Size())
		return
	}
	if !w.scanner.AllowPath(path) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.debouncer.addEvent(path, eventCreate)
	case event.Op&fsnotify.Write != 0:
		w.debouncer.addEvent(path, eventWrite)
	case event.Op&fsnotify.Rename != 0:
		w.debouncer.addEvent(path, eventWrite)
	}
}

// handleDirectoryEvent starts watching directories created after Start.
func (w *Watcher) handleDirectoryEvent(event fsnotify.Event, path string) {
	if event.Op&fsnotify.Create == 0 {
		return
	}
	if w.scanner.SkipDir(path) {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		debug.Warnf("WATCH", "failed to watch new directory %s: %v\n", path, err)
		w.incrementStats(0, 1)
	} else {
		debug.LogWatch("watching new directory %s\n", path)
	}
}

// deliverBatch applies one debounced batch to the workspace: removals
// first, then writes, then creates, so a rename observed as remove+create
// lands in a sane order.
func (w *Watcher) deliverBatch(events map[string]eventKind) {
	var creates, removes, changes []string
	for path, kind := range events {
		switch kind {
		case eventCreate:
			creates = append(creates, path)
		case eventRemove:
			removes = append(removes, path)
		case eventWrite:
			changes = append(changes, path)
		}
	}

	for _, path := range removes {
		w.workspace.RemoveFile(path)
		w.incrementStats(1, 0)
	}
	for _, path := range changes {
		w.workspace.ChangeFile(path)
		w.incrementStats(1, 0)
	}
	for _, path := range creates {
		w.workspace.AddFile(path)
		w.incrementStats(1, 0)
	}
}

// incrementStats updates watch statistics.
func (w *Watcher) incrementStats(events, errors int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.eventsProcessed += events
	w.errorCount += errors
	w.lastEventTime = time.Now()
}

// Stats returns current watch statistics.
func (w *Watcher) Stats() WatchStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return WatchStats{
		EventsProcessed: w.eventsProcessed,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.ctx.Err() == nil,
	}
}

// WatchStats describes watcher activity.
type WatchStats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}

// eventDebouncer coalesces events per path and delivers them as one batch
// after a quiet period. Flushes are serialized so the model only ever sees
// one mutation batch at a time.
type eventDebouncer struct {
	mutex    sync.Mutex
	events   map[string]eventKind
	debounce time.Duration
	timer    *time.Timer
	closed   bool
	flushMu  sync.Mutex
	deliver  func(map[string]eventKind)
}

func newEventDebouncer(debounce time.Duration) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]eventKind),
		debounce: debounce,
	}
}

// addEvent records the latest event for a path and re-arms the flush timer.
func (d *eventDebouncer) addEvent(path string, kind eventKind) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.events[path] = kind

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

// run keeps the debouncer alive until shutdown. Pending events are not
// flushed on the way out: delivery mutates the workspace, and teardown must
// not race it.
func (d *eventDebouncer) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	<-ctx.Done()

	d.mutex.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mutex.Unlock()
}

// flush hands the accumulated batch to the delivery callback.
func (d *eventDebouncer) flush() {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return
	}
	events := d.events
	d.events = make(map[string]eventKind)
	d.mutex.Unlock()

	if len(events) == 0 {
		return
	}

	d.flushMu.Lock()
	defer d.flushMu.Unlock()
	debug.LogWatch("flushing %d debounced events\n", len(events))
	d.deliver(events)
}
