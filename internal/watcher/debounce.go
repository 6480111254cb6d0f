package watcher

import (
	"sync"
	"time"
)

// Debouncer groups rapid file changes together. When the delay elapses
// without new input, pending changes are emitted as one ChangeEvent per
// kind, in the order each kind was first seen, with duplicate paths removed.
type Debouncer struct {
	delay   time.Duration
	emit    func(ChangeEvent)
	timer   *time.Timer
	pending []pendingChange
	mutex   sync.Mutex

	// emitMu is taken before mutex and held for a whole batch so batches
	// never interleave.
	emitMu sync.Mutex
}

type pendingChange struct {
	kind EventKind
	path string
}

// NewDebouncer creates a debouncer that hands grouped events to emit.
func NewDebouncer(delay time.Duration, emit func(ChangeEvent)) *Debouncer {
	return &Debouncer{delay: delay, emit: emit}
}

// Add records one change.
func (d *Debouncer) Add(kind EventKind, path string) {
	if d.delay <= 0 {
		d.emitMu.Lock()
		defer d.emitMu.Unlock()
		d.emit(ChangeEvent{Kind: kind, Paths: []string{path}})
		return
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, pendingChange{kind: kind, path: path})

	// Reset timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.Flush)
}

// Flush emits everything pending immediately.
func (d *Debouncer) Flush() {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mutex.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	events := group(d.pending)
	d.pending = nil
	d.mutex.Unlock()

	for _, event := range events {
		d.emit(event)
	}
}

func group(pending []pendingChange) []ChangeEvent {
	if len(pending) == 0 {
		return nil
	}

	var events []ChangeEvent
	index := make(map[EventKind]int)
	seen := make(map[EventKind]map[string]bool)

	for _, p := range pending {
		i, ok := index[p.kind]
		if !ok {
			i = len(events)
			index[p.kind] = i
			seen[p.kind] = make(map[string]bool)
			events = append(events, ChangeEvent{Kind: p.kind})
		}
		if seen[p.kind][p.path] {
			continue
		}
		seen[p.kind][p.path] = true
		events[i].Paths = append(events[i].Paths, p.path)
	}

	return events
}
