// Package watcher turns fsnotify notifications for a set of watch targets
// into a stream of ChangeEvent values consumable as a channel.Source.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conneroisu/docpack/internal/channel"
	"github.com/conneroisu/docpack/internal/config"
	"github.com/conneroisu/docpack/internal/errors"
	"github.com/conneroisu/docpack/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay groups bursts of editor writes into one event.
const DefaultDebounceDelay = 50 * time.Millisecond

// EventKind is the kind of a filesystem change.
type EventKind int

const (
	EventCreated EventKind = iota
	EventModified
	EventRemoved
	EventOther
)

// String returns the string representation of the EventKind
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "other"
	}
}

// ChangeEvent reports one kind of change for one or more paths.
type ChangeEvent struct {
	Kind  EventKind
	Paths []string
}

// FileFilter determines if a path should produce events.
type FileFilter func(path string) bool

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDebounce sets the debounce delay. Zero emits every notification as
// soon as it arrives.
func WithDebounce(d time.Duration) Option {
	return func(fw *FileWatcher) { fw.delay = d }
}

// WithFilter adds a filter. All filters must accept a path.
func WithFilter(filter FileFilter) Option {
	return func(fw *FileWatcher) { fw.filters = append(fw.filters, filter) }
}

// WithLogger sets the logger used for watch errors.
func WithLogger(logger logging.Logger) Option {
	return func(fw *FileWatcher) { fw.logger = logger.WithComponent("watcher") }
}

// FileWatcher observes one WatchTarget and implements
// channel.Source[ChangeEvent].
type FileWatcher struct {
	target    config.WatchTarget
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	delay     time.Duration
	logger    logging.Logger
	out       *channel.Channel[ChangeEvent]
	stopOnce  sync.Once
	done      chan struct{}
}

// New creates a watcher for target. The default filters skip VCS metadata,
// node_modules and editor swap files.
func New(target config.WatchTarget, opts ...Option) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewIOError(target.Path, "creating file watcher", err)
	}

	fw := &FileWatcher{
		target:  target,
		watcher: w,
		filters: []FileFilter{NoGitFilter, NoNodeModulesFilter, NoEditorTempFilter},
		delay:   DefaultDebounceDelay,
		logger:  logging.Discard(),
		out:     channel.New[ChangeEvent](),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}
	fw.debouncer = NewDebouncer(fw.delay, fw.emit)

	return fw, nil
}

// Watch creates and starts a watcher for target.
func Watch(ctx context.Context, target config.WatchTarget, opts ...Option) (*FileWatcher, error) {
	fw, err := New(target, opts...)
	if err != nil {
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	return fw, nil
}

// WatchAll starts one watcher per target and merges their streams. The
// returned channel closes once ctx is cancelled and every watcher has
// drained. Recursive and non-recursive targets get separate watchers.
func WatchAll(ctx context.Context, targets []config.WatchTarget, opts ...Option) (*channel.Channel[ChangeEvent], error) {
	sources := make([]channel.Source[ChangeEvent], 0, len(targets))
	started := make([]*FileWatcher, 0, len(targets))

	for _, target := range targets {
		fw, err := Watch(ctx, target, opts...)
		if err != nil {
			for _, s := range started {
				_ = s.Stop()
			}
			return nil, err
		}
		started = append(started, fw)
		sources = append(sources, fw)
	}

	return channel.Merge(ctx, sources...), nil
}

// Start registers the target with fsnotify and begins forwarding events.
// The watcher stops when ctx is cancelled.
func (fw *FileWatcher) Start(ctx context.Context) error {
	info, err := os.Stat(fw.target.Path)
	if err != nil {
		return errors.NewIOError(fw.target.Path, "watch target is not accessible", err)
	}

	if fw.target.Recursive && info.IsDir() {
		err = fw.addRecursive(fw.target.Path)
	} else {
		err = fw.watcher.Add(fw.target.Path)
	}
	if err != nil {
		return errors.NewIOError(fw.target.Path, "adding watch", err)
	}

	go fw.watchLoop(ctx)
	return nil
}

// Next returns the next change event. It reports false once the watcher has
// stopped and every pending event has been received.
func (fw *FileWatcher) Next(ctx context.Context) (ChangeEvent, bool) {
	return fw.out.Receive(ctx)
}

// Stop releases the fsnotify handle and ends the event stream. Pending
// debounced events are flushed first.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.done)
		err = fw.watcher.Close()
		fw.debouncer.Flush()
		fw.out.Close()
	})
	return err
}

// Target returns the watched target.
func (fw *FileWatcher) Target() config.WatchTarget {
	return fw.target
}

// addRecursive adds root and all subdirectories to watch
func (fw *FileWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !fw.accepts(path) {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	defer fw.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			fw.logger.Warn(ctx, err, "File watcher error", "target", fw.target.Path)
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	if !fw.accepts(event.Name) {
		return
	}

	kind := kindOf(event.Op)

	// New directories inside a recursive target need their own watch.
	if kind == EventCreated && fw.target.Recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.addRecursive(event.Name); err != nil {
				fw.logger.Warn(ctx, err, "Failed to watch new directory", "path", event.Name)
			}
		}
	}

	fw.debouncer.Add(kind, event.Name)
}

func (fw *FileWatcher) accepts(path string) bool {
	for _, filter := range fw.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) emit(event ChangeEvent) {
	if err := fw.out.Send(event); err != nil {
		fw.logger.Debug(context.Background(), "Dropping change event after stop",
			"kind", event.Kind.String(), "paths", event.Paths)
	}
}

func kindOf(op fsnotify.Op) EventKind {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreated
	case op.Has(fsnotify.Write):
		return EventModified
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return EventRemoved
	default:
		return EventOther
	}
}

func (fw *FileWatcher) String() string {
	mode := "shallow"
	if fw.target.Recursive {
		mode = "recursive"
	}
	return fmt.Sprintf("watcher(%s, %s)", fw.target.Path, mode)
}
