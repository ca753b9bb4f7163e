// Package watcher reports changes to a candidate source file so the picker
// can reload it. It uses fsnotify where the filesystem supports it and falls
// back to polling on remote filesystems or when PICK_FORCE_POLL is set.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/pick/pkg/debug"
)

var (
	// ErrFileRemoved is the Err of an Event sent when the watched file
	// disappears.
	ErrFileRemoved = errors.New("source file was removed")
	// ErrPermission is returned or sent when the file cannot be read.
	ErrPermission = errors.New("permission denied")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("watcher already started")
)

// DefaultPollInterval is the stat interval in polling mode.
const DefaultPollInterval = 2 * time.Second

// Event is one notification about the watched file. Err is nil for a
// content change.
type Event struct {
	Path string
	Err  error
}

// Removed reports whether the event says the file is gone.
func (e Event) Removed() bool {
	return errors.Is(e.Err, ErrFileRemoved)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the window in which fsnotify events are merged.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.window = d }
}

// WithPollInterval sets the stat interval used when polling.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithPolling forces polling even where fsnotify would work.
func WithPolling(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// fileStamp is what a stat tells us about the content.
type fileStamp struct {
	mtime time.Time
	size  int64
}

func (s fileStamp) equal(o fileStamp) bool {
	return s.size == o.size && s.mtime.Equal(o.mtime)
}

func statStamp(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{mtime: info.ModTime(), size: info.Size()}, nil
}

// Watcher sends an Event on Events whenever the file changes, disappears or
// cannot be inspected. Events that find the channel full are dropped; the
// next one still describes the current state of the file.
type Watcher struct {
	path      string
	window    time.Duration
	interval  time.Duration
	forcePoll bool
	debounce  *Debouncer
	events    chan Event

	mu      sync.Mutex
	running bool
	polling bool
	cancel  context.CancelFunc
	fsw     *fsnotify.Watcher
	present bool
	stamp   fileStamp
	failing string
}

// New creates a watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	w := &Watcher{
		path:     abs,
		interval: DefaultPollInterval,
		events:   make(chan Event, 4),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debounce = NewDebouncer(w.window)
	return w, nil
}

// Start begins watching. A file that does not exist yet is reported as a
// change once it appears.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyStarted
	}

	stamp, err := statStamp(w.path)
	switch {
	case err == nil:
		w.present, w.stamp = true, stamp
	case os.IsPermission(err):
		return fmt.Errorf("%s: %w", w.path, ErrPermission)
	default:
		w.present = false
	}

	fsType := DetectFilesystemType(w.path)
	w.polling = w.forcePoll || envBool("PICK_FORCE_POLL") || isRemoteFilesystem(fsType)

	ctx, cancel := context.WithCancel(context.Background())
	if !w.polling {
		fsw, err := w.notifier()
		if err != nil {
			debug.Log("watcher: fsnotify unavailable for %s: %v", w.path, err)
			w.polling = true
		} else {
			w.fsw = fsw
			go w.runNotify(ctx, fsw)
		}
	}
	if w.polling {
		go w.runPolling(ctx)
	}

	w.cancel = cancel
	w.running = true
	w.failing = ""
	debug.Log("watcher: %s (fs=%s, polling=%v)", w.path, fsType, w.polling)
	return nil
}

// notifier watches the parent directory, so a file replaced by rename keeps
// being seen.
func (w *Watcher) notifier() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return fsw, nil
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.cancel()
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
	w.debounce.Cancel()
	w.running = false
}

// Polling reports whether the watcher stats the file instead of using
// fsnotify. Meaningful after Start.
func (w *Watcher) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// Events returns the channel events are sent on. It is never closed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) runNotify(ctx context.Context, fsw *fsnotify.Watcher) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			// Editors often remove or rename before writing, so the
			// outcome is decided once the burst is over.
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.debounce.Trigger(func() { w.check(true) })
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.emit(Event{Path: w.path, Err: fmt.Errorf("watching %s: %w", w.path, err)})
		}
	}
}

func (w *Watcher) runPolling(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(false)
		}
	}
}

// check compares the file with what was last seen and sends at most one
// event. touched means fsnotify saw a write, so an existing file counts as
// changed even when its stamp is unchanged.
func (w *Watcher) check(touched bool) {
	stamp, err := statStamp(w.path)

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	var ev *Event
	switch {
	case err == nil:
		changed := touched || !w.present || !stamp.equal(w.stamp)
		w.present, w.stamp, w.failing = true, stamp, ""
		if changed {
			ev = &Event{Path: w.path}
		}
	case os.IsNotExist(err):
		if w.present {
			ev = &Event{Path: w.path, Err: ErrFileRemoved}
		}
		w.present = false
	default:
		if os.IsPermission(err) {
			err = fmt.Errorf("%s: %w", w.path, ErrPermission)
		}
		// A persistent failure is reported once.
		if err.Error() != w.failing {
			ev = &Event{Path: w.path, Err: err}
		}
		w.failing = err.Error()
	}
	w.mu.Unlock()

	if ev != nil {
		w.emit(*ev)
	}
}

func (w *Watcher) emit(ev Event) {
	if ev.Err != nil {
		debug.Log("watcher: %v", ev.Err)
	} else {
		debug.Log("watcher: %s changed", ev.Path)
	}
	select {
	case w.events <- ev:
	default:
		debug.Log("watcher: dropped event for %s", ev.Path)
	}
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
