package settings

import (
	"slices"
	"sync/atomic"

	"github.com/dshills/livesettings/internal/settings/codec"
	"github.com/dshills/livesettings/internal/settings/document"
	"github.com/dshills/livesettings/internal/settings/notify"
)

// cell is the registry entry for one path. The store's registry holds the
// only strong reference to it; settings hold weak ones.
type cell struct {
	ptr   document.Pointer
	path  string
	store *Store

	// Bumped on every change that may affect the value at ptr. Never
	// decremented. Starts at 0.
	iteration atomic.Int64

	expired atomic.Bool

	updated notify.Signal
}

func newCell(s *Store, p document.Pointer) *cell {
	p = slices.Clone(p)
	return &cell{ptr: p, path: p.String(), store: s}
}

func (c *cell) bump() int64 {
	return c.iteration.Add(1)
}

func (c *cell) currentIteration() int64 {
	return c.iteration.Load()
}

// notify bumps the iteration and queues n for the cell's observers on b.
func (c *cell) notify(b *notify.Batch, n document.Node, args notify.Args) int64 {
	iter := c.bump()
	args.Path = c.path
	b.Add(&c.updated, n, args)
	return iter
}

func (c *cell) subscribe(fn notify.Observer) *notify.Subscription {
	return c.updated.Subscribe(fn)
}

// expire marks the cell dead and drops its observers.
func (c *cell) expire() {
	c.expired.Store(true)
	c.updated.Reset()
}

func (c *cell) isExpired() bool {
	return c.expired.Load()
}

// marshalJSON writes raw at the cell's path and returns the iteration the
// write produced.
func (c *cell) marshalJSON(raw []byte, args notify.Args) (int64, error) {
	if c.isExpired() {
		return 0, ErrExpired
	}
	return c.store.set(c.ptr, raw, args)
}

// marshal encodes v and writes it at the cell's path.
func marshal[T any](c *cell, cd codec.Codec[T], v T, args notify.Args) (int64, error) {
	raw, err := cd.Encode(v)
	if err != nil {
		return 0, err
	}
	return c.marshalJSON(raw, args)
}

// unmarshal decodes the value at the cell's path. It also returns the
// iteration the value was read at.
func unmarshal[T any](c *cell, cd codec.Codec[T]) (T, int64, bool) {
	var zero T
	n, iter, ok := c.store.read(c)
	if !ok {
		return zero, iter, false
	}
	v, ok := cd.Decode(n)
	if !ok {
		return zero, iter, false
	}
	return v, iter, true
}
