// Package settings binds typed Go values to paths in a JSON document.
//
// A Store owns the document and a registry of cells, one per path that
// has been accessed. A Setting is a typed, cached handle onto one cell.
// Writes through a Setting go to the Store, which updates the document,
// bumps the cell's update iteration and notifies the cell's observers.
// Settings compare their cached iteration with the cell's to decide
// whether a read needs to decode the document again.
//
// Removing a path drops its cell and every cell below it. Settings bound
// to a dropped cell keep working against their local cache and default
// but can no longer write to the document.
//
// Observers run synchronously, after the store lock has been released
// and before the mutating call returns. An observer must not mutate the
// path it is observing; doing so recurses without bound.
package settings

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/dshills/livesettings/internal/settings/document"
	"github.com/dshills/livesettings/internal/settings/notify"
	"github.com/dshills/livesettings/internal/settings/watcher"
)

// DefaultFileName is the file a store loads and saves when no other path
// has been given.
const DefaultFileName = "settings.json"

// Store owns a settings document and its path registry.
type Store struct {
	mu sync.Mutex

	doc    *document.Document
	cells  map[string]*cell
	closed bool

	// Default file for Load and Save
	path string

	saveMethod SaveMethod
	indent     string

	// Live reload
	autoReload bool
	debounce   time.Duration
	watcher    *watcher.Watcher

	// Bytes last read from or written to the default file, so the
	// watcher does not reload our own saves.
	lastSync []byte

	// Observers of every change in the store
	changed notify.Signal
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		doc:      document.New(),
		cells:    make(map[string]*cell),
		path:     DefaultFileName,
		indent:   "  ",
		debounce: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.autoReload {
		s.startWatcher()
	}

	return s
}

// OnChange registers an observer that sees every notification the store
// delivers to its cells, plus removals.
func (s *Store) OnChange(fn notify.Observer) *notify.Subscription {
	return s.changed.Subscribe(fn)
}

// Get resolves path. An absent value or a malformed path reports false.
func (s *Store) Get(path string) (document.Node, bool) {
	p, err := parsePath(path)
	if err != nil {
		return document.Node{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return document.Node{}, false
	}
	return s.doc.Get(p)
}

// Set writes the raw JSON value at path, creating intermediate objects
// and arrays as needed, and notifies the path's cell.
func (s *Store) Set(path string, raw []byte, args notify.Args) error {
	p, err := parsePath(path)
	if err != nil {
		return err
	}
	_, err = s.set(p, raw, args)
	return err
}

// set is the single write path. It returns the target cell's iteration
// after the write.
func (s *Store) set(p document.Pointer, raw []byte, args notify.Args) (int64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}

	concrete, err := s.doc.Set(p, raw)
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("set %s: %w", p, err)
	}

	b := s.newBatch()
	iter := s.changedLocked(concrete, b, args, s.cellLocked(concrete))
	s.mu.Unlock()

	glog.V(1).Infof("[store] set %s", concrete)
	b.Commit()
	s.autoSave()
	return iter, nil
}

// Append adds the raw JSON value to the end of the array at path and
// notifies the array's cell. A missing array is created; a value of
// another shape is replaced by a new array.
func (s *Store) Append(path string, raw []byte, args notify.Args) error {
	p, err := parsePath(path)
	if err != nil {
		return err
	}
	return s.appendAt(p, raw, args)
}

func (s *Store) appendAt(p document.Pointer, raw []byte, args notify.Args) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	if n, ok := s.doc.Get(p); ok && !n.IsArray() {
		if _, err := s.doc.Set(p, []byte("[]")); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("append %s: %w", p, err)
		}
	}
	concrete, err := s.doc.Set(p.Child("-"), raw)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("append %s: %w", p, err)
	}

	b := s.newBatch()
	s.changedLocked(concrete, b, args, s.cellLocked(concrete.Parent()))
	s.mu.Unlock()

	glog.V(1).Infof("[store] append %s", concrete)
	b.Commit()
	s.autoSave()
	return nil
}

// Remove deletes the value at path. The cells for path and every path
// below it are dropped, which expires the settings bound to them. It
// reports false when nothing existed at path.
func (s *Store) Remove(path string) bool {
	p, err := parsePath(path)
	if err != nil {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	parent, _ := s.doc.Get(p.Parent())
	if !s.doc.Delete(p) {
		s.mu.Unlock()
		return false
	}
	s.expireLocked(p)

	// Ancestors hold a different value now. Removing an array element
	// shifts its siblings, so everything under that array is stale too.
	for _, c := range s.cells {
		if c.ptr.IsAncestorOf(p) || (!p.IsRoot() && parent.IsArray() && p.Parent().IsAncestorOf(c.ptr)) {
			c.bump()
		}
	}
	s.mu.Unlock()

	glog.V(1).Infof("[store] remove %s", p)
	s.emitRemoved(p)
	s.autoSave()
	return true
}

// RemoveArrayValue removes element index of the array at path. The last
// element is truncated; any other is replaced with null so the indices of
// the remaining elements do not move. It reports false when path is not
// an array or index is out of range.
func (s *Store) RemoveArrayValue(path string, index int) bool {
	p, err := parsePath(path)
	if err != nil {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	n, ok := s.doc.Get(p)
	size := s.doc.Len(p)
	if !ok || !n.IsArray() || index < 0 || index >= size {
		s.mu.Unlock()
		return false
	}

	elem := p.Child(strconv.Itoa(index))
	b := s.newBatch()
	truncated := index == size-1
	if truncated {
		s.doc.Delete(elem)
		s.expireLocked(elem)
		s.changedLocked(elem, b, notify.Args{}, s.cells[p.String()])
	} else {
		if _, err := s.doc.Set(elem, []byte("null")); err != nil {
			s.mu.Unlock()
			glog.Warningf("[store] remove %s[%d]: %v", p, index, err)
			return false
		}
		s.changedLocked(elem, b, notify.Args{}, s.cells[p.String()], s.cells[elem.String()])
	}
	s.mu.Unlock()

	glog.V(1).Infof("[store] remove %s[%d] (truncated: %v)", p, index, truncated)
	b.Commit()
	if truncated {
		s.emitRemoved(elem)
	}
	s.autoSave()
	return true
}

// ObjectKeys returns the member names of the object at path in document
// order, or nil when path is not an object.
func (s *Store) ObjectKeys(path string) []string {
	p, err := parsePath(path)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Keys(p)
}

// ArraySize returns the length of the array at path, or 0 when path is
// not an array.
func (s *Store) ArraySize(path string) int {
	p, err := parsePath(path)
	if err != nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Len(p)
}

// Clear empties the document. Cells stay registered, so bound settings
// fall back to their caches and defaults until the paths are written
// again.
func (s *Store) Clear() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.doc = document.New()
	for _, c := range s.cells {
		c.bump()
	}
	s.mu.Unlock()

	glog.V(1).Infof("[store] cleared")
	s.emitRemoved(document.Pointer{})
	s.autoSave()
}

// Bytes returns a compact copy of the document.
func (s *Store) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone().Bytes()
}

// PrettyPrint writes the indented document to w.
func (s *Store) PrettyPrint(w io.Writer) error {
	s.mu.Lock()
	data := s.doc.Pretty(s.indent)
	s.mu.Unlock()

	_, err := w.Write(data)
	return err
}

// Paths returns the sorted paths of the registered cells.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.cells))
}

// Close tears the store down. It saves first if the save method asks for
// it, then expires every cell. Further mutations fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	var err error
	if s.saveMethod.has(saveOnCloseFlag) {
		err = s.saveLocked(s.path)
	}

	s.closed = true
	for _, c := range s.cells {
		c.expire()
	}
	clear(s.cells)
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	// The watcher's handler takes s.mu, so stop it unlocked.
	if w != nil {
		w.Stop()
	}
	glog.Infof("[store] closed")
	return err
}

// cellLocked returns the cell for p, creating it on first use.
func (s *Store) cellLocked(p document.Pointer) *cell {
	key := p.String()
	if c, ok := s.cells[key]; ok {
		return c
	}
	c := newCell(s, p)
	s.cells[key] = c
	return c
}

// bind returns the cell a setting on p should attach to.
func (s *Store) bind(p document.Pointer) (*cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.cellLocked(p), nil
}

// read returns the node at c's path together with c's iteration, both
// taken under the lock so they agree.
func (s *Store) read(c *cell) (document.Node, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return document.Node{}, 0, false
	}
	n, ok := s.doc.Get(c.ptr)
	return n, c.currentIteration(), ok
}

// changedLocked records a change to the value at changed. Every other
// registered cell whose path is an ancestor or descendant of changed is
// bumped so cached reads through it are refreshed. Each non-nil target
// is bumped and queued for notification. It returns the iteration of the
// first target.
func (s *Store) changedLocked(changed document.Pointer, b *notify.Batch, args notify.Args, targets ...*cell) int64 {
	for _, c := range s.cells {
		if slices.Contains(targets, c) {
			continue
		}
		if c.ptr.Equal(changed) || c.ptr.IsAncestorOf(changed) || changed.IsAncestorOf(c.ptr) {
			c.bump()
		}
	}

	var first int64
	for i, c := range targets {
		if c == nil {
			continue
		}
		n, _ := s.doc.Get(c.ptr)
		iter := c.notify(b, n, args)
		if i == 0 {
			first = iter
		}
	}
	return first
}

// expireLocked drops the cells for p and everything below it.
func (s *Store) expireLocked(p document.Pointer) {
	for key, c := range s.cells {
		if c.ptr.Equal(p) || p.IsAncestorOf(c.ptr) {
			c.expire()
			delete(s.cells, key)
		}
	}
}

func (s *Store) newBatch() *notify.Batch {
	b := notify.NewBatch()
	b.OnDelivery(s.changed.Emit)
	return b
}

// emitRemoved tells store-wide observers that p is gone.
func (s *Store) emitRemoved(p document.Pointer) {
	b := notify.NewBatch()
	b.Add(&s.changed, document.Node{}, notify.Args{Source: notify.SourceRemove, Path: p.String()})
	b.Commit()
}

func (s *Store) autoSave() {
	if !s.saveMethod.has(saveOnChangeFlag) {
		return
	}
	if err := s.SaveAs(""); err != nil {
		glog.Warningf("[store] autosave: %v", err)
	}
}

func parsePath(path string) (document.Pointer, error) {
	p, err := document.ParsePointer(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPath, path, err)
	}
	return p, nil
}
