package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/livesettings/internal/settings/document"
)

type delivery struct {
	signal *Signal
	node   document.Node
	args   Args
}

// Batch collects notifications while a store operation holds its lock and
// delivers them once the lock is released. Every delivery in a batch
// shares one Batch id and Time.
type Batch struct {
	mu         sync.Mutex
	id         string
	pending    []delivery
	onDelivery func(document.Node, Args)
}

// NewBatch creates an empty batch with a fresh id.
func NewBatch() *Batch {
	return &Batch{id: uuid.NewString()}
}

// ID returns the batch id.
func (b *Batch) ID() string {
	return b.id
}

// OnDelivery sets a hook called after each delivery, in the same order.
func (b *Batch) OnDelivery(fn func(document.Node, Args)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDelivery = fn
}

// Add queues a notification for s.
func (b *Batch) Add(s *Signal, n document.Node, args Args) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, delivery{signal: s, node: n, args: args})
}

// Commit delivers the queued notifications in the order they were added.
func (b *Batch) Commit() {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	hook := b.onDelivery
	b.mu.Unlock()

	now := time.Now()
	for _, d := range pending {
		d.args.Batch = b.id
		d.args.Time = now
		d.signal.Emit(d.node, d.args)
		if hook != nil {
			hook(d.node, d.args)
		}
	}
}

// Discard drops the queued notifications.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}

// Len returns the number of queued notifications.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
