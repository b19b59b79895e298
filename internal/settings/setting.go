package settings

import (
	"fmt"
	"slices"
	"time"
	"weak"

	"github.com/golang/glog"

	"github.com/dshills/livesettings/internal/settings/codec"
	"github.com/dshills/livesettings/internal/settings/document"
	"github.com/dshills/livesettings/internal/settings/notify"
)

type bindState uint8

const (
	stateUnbound bindState = iota
	stateBound
	stateExpired
)

// Setting is a typed handle onto one path of a Store.
//
// A Setting caches the last value it decoded together with the cell
// iteration it was read at, and only decodes again once the iteration
// moves. Each Setting has its own default, returned while the path is
// absent or does not decode as a T.
//
// A Setting is not safe for concurrent use. Observers registered with
// Connect may run on any goroutine that mutates the store.
type Setting[T any] struct {
	store *Store
	ptr   document.Pointer
	path  string
	codec codec.Codec[T]
	flags Flag
	def   T

	// Set for paths that can never bind
	invalid bool

	state bindState
	cell  weak.Pointer[cell]

	value     T
	hasValue  bool
	iteration int64

	managed notify.Group
}

// NewSetting returns a setting for path in s. A nil store means Default().
//
// The setting binds to the path's cell right away, creating it if needed;
// the path does not have to exist in the document. A malformed path, or
// one containing the append token "-", never binds: such a setting only
// ever returns its default and cache.
func NewSetting[T any](s *Store, path string, def T, opts ...Option) *Setting[T] {
	if s == nil {
		s = Default()
	}

	var o settingOptions
	for _, opt := range opts {
		opt(&o)
	}

	h := &Setting[T]{
		store:     s,
		path:      path,
		codec:     codec.For[T](),
		flags:     o.flags,
		def:       def,
		iteration: -1,
	}
	if o.codec != nil {
		c, ok := o.codec.(codec.Codec[T])
		if !ok {
			panic(fmt.Sprintf("settings: codec %T does not handle %T", o.codec, def))
		}
		h.codec = c
	}

	p, err := parsePath(path)
	if err != nil {
		glog.Warningf("[setting] %v", err)
		h.invalid = true
		return h
	}
	if slices.Contains(p, "-") {
		glog.Warningf("[setting] %s: append token cannot be bound", path)
		h.invalid = true
		return h
	}
	h.ptr = p
	h.path = p.String()
	h.bind()
	return h
}

func (h *Setting[T]) bind() {
	if h.invalid {
		return
	}
	c, err := h.store.bind(h.ptr)
	if err != nil {
		return
	}
	h.cell = weak.Make(c)
	h.state = stateBound
}

// locked returns the live cell, or nil when the setting is unbound or
// expired. The first time it finds the cell gone it moves the setting to
// the expired state and releases its managed subscriptions. The cached
// value is kept.
func (h *Setting[T]) locked() *cell {
	switch h.state {
	case stateExpired:
		return nil
	case stateUnbound:
		h.bind()
		if h.state != stateBound {
			return nil
		}
	}

	c := h.cell.Value()
	if c == nil || c.isExpired() {
		h.state = stateExpired
		h.cell = weak.Pointer[cell]{}
		h.managed.Close()
		return nil
	}
	return c
}

func (h *Setting[T]) cachedOrDefault() T {
	if h.hasValue {
		return h.value
	}
	return h.def
}

// Get returns the current value. It decodes the document only when the
// cell has changed since the last read; if the path is absent or the
// value does not decode, the cached value is returned, or the default
// when nothing is cached.
func (h *Setting[T]) Get() T {
	c := h.locked()
	if c == nil {
		return h.cachedOrDefault()
	}
	if h.iteration == c.currentIteration() {
		return h.cachedOrDefault()
	}

	v, iter, ok := unmarshal(c, h.codec)
	if !ok {
		return h.cachedOrDefault()
	}
	h.value, h.hasValue, h.iteration = v, true, iter
	return v
}

// Set writes v. See SetWithArgs.
func (h *Setting[T]) Set(v T) error {
	return h.SetWithArgs(v, notify.Args{})
}

// SetWithArgs writes v, passing args to the cell's observers.
//
// The cached value is updated first, so Get returns v even when the
// write does not reach the document. With DoNotPersist the document is
// left alone and nil is returned. An expired setting returns ErrExpired.
func (h *Setting[T]) SetWithArgs(v T, args notify.Args) error {
	c := h.locked()
	h.value, h.hasValue = v, true

	if h.flags&DoNotPersist != 0 {
		if c != nil {
			h.iteration = c.currentIteration()
		}
		return nil
	}

	if c == nil {
		if h.state == stateExpired {
			return ErrExpired
		}
		if h.invalid {
			return fmt.Errorf("%w %q", ErrInvalidPath, h.path)
		}
		return ErrUnbound
	}

	iter, err := marshal(c, h.codec, v, args)
	if err != nil {
		return fmt.Errorf("set %s: %w", h.path, err)
	}
	h.iteration = iter
	return nil
}

// ResetToDefault writes the default value.
func (h *Setting[T]) ResetToDefault() error {
	return h.Set(h.def)
}

// IsDefault reports whether the current value equals the default.
func (h *Setting[T]) IsDefault() bool {
	return h.codec.Equal(h.Get(), h.def)
}

// Default returns this setting's default value.
func (h *Setting[T]) Default() T {
	return h.def
}

// SetDefault changes this setting's default. Other settings on the same
// path keep their own.
func (h *Setting[T]) SetDefault(v T) {
	h.def = v
}

// Path returns the setting's path.
func (h *Setting[T]) Path() string {
	return h.path
}

// IsValid reports whether the setting is bound to a live cell. It may
// update the binding: an unbound setting tries to bind, and a setting
// whose cell is gone becomes expired and releases the subscriptions made
// through Connect.
func (h *Setting[T]) IsValid() bool {
	return h.locked() != nil
}

// Remove removes the setting's path from the store. The setting itself
// stays usable against its cache and default.
func (h *Setting[T]) Remove() bool {
	if h.invalid {
		return false
	}
	return h.store.Remove(h.path)
}

// Connect registers cb for changes to the setting's path. The node is
// decoded into a T first; when it does not decode, cb is not called for
// that change. With autoInvoke, cb is called once with the current value
// and notify.SourceOnConnect before Connect returns.
//
// The subscription is also held by the setting and released by Close.
// Connect returns nil when the setting is not bound.
func (h *Setting[T]) Connect(cb func(T, notify.Args), autoInvoke bool) *notify.Subscription {
	c := h.locked()
	if c == nil {
		return nil
	}

	cd, path := h.codec, h.path
	sub := c.subscribe(func(n document.Node, args notify.Args) {
		v, ok := cd.Decode(n)
		if !ok {
			glog.V(2).Infof("[setting] %s: %s notification dropped, value does not decode", path, args.Source)
			return
		}
		cb(v, args)
	})
	h.managed.Add(sub)

	if autoInvoke {
		cb(h.Get(), h.onConnectArgs())
	}
	return sub
}

// ConnectJSON is like Connect but passes the raw node. The on-connect
// call gets the node currently at the path, which may not exist.
func (h *Setting[T]) ConnectJSON(cb func(document.Node, notify.Args), autoInvoke bool) *notify.Subscription {
	c := h.locked()
	if c == nil {
		return nil
	}

	sub := c.subscribe(cb)
	h.managed.Add(sub)

	if autoInvoke {
		n, _, _ := h.store.read(c)
		cb(n, h.onConnectArgs())
	}
	return sub
}

// ConnectSimple is like Connect for callbacks that only need to know
// that something changed.
func (h *Setting[T]) ConnectSimple(cb func(notify.Args), autoInvoke bool) *notify.Subscription {
	c := h.locked()
	if c == nil {
		return nil
	}

	sub := c.subscribe(func(_ document.Node, args notify.Args) { cb(args) })
	h.managed.Add(sub)

	if autoInvoke {
		cb(h.onConnectArgs())
	}
	return sub
}

func (h *Setting[T]) onConnectArgs() notify.Args {
	return notify.Args{Source: notify.SourceOnConnect, Path: h.path, Time: time.Now()}
}

// Close releases every subscription made through this setting.
func (h *Setting[T]) Close() {
	h.managed.Close()
}

// Get reads path from s once, returning the zero value when it is absent.
// A nil store means Default().
func Get[T any](s *Store, path string) T {
	var zero T
	return NewSetting(s, path, zero).Get()
}

// Set writes v at path in s once. A nil store means Default().
func Set[T any](s *Store, path string, v T) error {
	var zero T
	return NewSetting(s, path, zero).Set(v)
}
