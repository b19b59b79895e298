// Package notify provides change notification for settings cells.
//
// A Signal holds an ordered list of observers. Emit delivers to a snapshot
// of the observers registered when it starts, in registration order, and
// skips any observer whose subscription was disposed in the meantime.
package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/livesettings/internal/settings/document"
)

// Source identifies what caused a change.
type Source int

const (
	// SourceSet indicates an explicit write to a single path.
	SourceSet Source = iota

	// SourceLoad indicates the document was replaced by a bulk load.
	SourceLoad

	// SourceOnConnect indicates a replay of the current value to an
	// observer that just connected.
	SourceOnConnect

	// SourcePatch indicates a JSON Patch was applied to the document.
	SourcePatch

	// SourceRemove indicates a path was removed. Only store-wide observers
	// see it, since the removed cells are gone.
	SourceRemove
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceSet:
		return "set"
	case SourceLoad:
		return "load"
	case SourceOnConnect:
		return "on-connect"
	case SourcePatch:
		return "patch"
	case SourceRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Args is the metadata passed along with every notification.
type Args struct {
	// Source is what caused the change.
	Source Source

	// Path is the canonical pointer of the cell being notified.
	Path string

	// Origin is free-form caller context, such as "user", "watcher" or
	// the file a load came from.
	Origin string

	// Batch is shared by every notification produced by one store
	// operation. Empty for on-connect replays.
	Batch string

	// Time is when the operation was committed.
	Time time.Time
}

// Observer receives the node now at the cell's path and the change metadata.
// The node does not exist when the path no longer resolves.
type Observer func(n document.Node, args Args)

type entry struct {
	fn    Observer
	alive atomic.Bool
}

// Signal is an ordered set of observers.
// The zero value is ready to use.
type Signal struct {
	mu      sync.Mutex
	entries []*entry
}

// Subscribe appends an observer. Observers added while an Emit is in
// progress are not called by that Emit.
func (s *Signal) Subscribe(fn Observer) *Subscription {
	e := &entry{fn: fn}
	e.alive.Store(true)

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	return &Subscription{signal: s, entry: e}
}

// Emit calls every live observer with n and args.
func (s *Signal) Emit(n document.Node, args Args) {
	s.mu.Lock()
	snapshot := make([]*entry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	// Call observers outside the lock so they may subscribe or unsubscribe.
	for _, e := range snapshot {
		if e.alive.Load() {
			e.fn(n, args)
		}
	}
}

// Len returns the number of registered observers.
func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset disposes every subscription.
func (s *Signal) Reset() {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	for _, e := range entries {
		e.alive.Store(false)
	}
}

func (s *Signal) remove(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, other := range s.entries {
		if other == e {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return
		}
	}
}

// Subscription represents an active observer registration.
type Subscription struct {
	signal *Signal
	entry  *entry
}

// Unsubscribe removes exactly this observer. It is safe to call more than
// once, on a nil Subscription, and from inside an observer.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.entry == nil {
		return
	}
	if s.entry.alive.Swap(false) {
		s.signal.remove(s.entry)
	}
}

// Active reports whether the subscription has not been disposed.
func (s *Subscription) Active() bool {
	return s != nil && s.entry != nil && s.entry.alive.Load()
}

// Group collects subscriptions so they can be disposed together.
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add adds subscriptions to the group. Nil subscriptions are ignored.
func (g *Group) Add(subs ...*Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range subs {
		if s != nil {
			g.subs = append(g.subs, s)
		}
	}
}

// Len returns the number of subscriptions held.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Close unsubscribes everything in the group.
func (g *Group) Close() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}
