package settings

import (
	"fmt"
	"slices"

	"github.com/dshills/livesettings/internal/settings/codec"
	"github.com/dshills/livesettings/internal/settings/notify"
)

// List is a Setting holding a JSON array, with element-level writes.
type List[E any] struct {
	*Setting[[]E]
	elem codec.Codec[E]
}

// NewList returns a list setting for path in s. Elements use the codec
// registered for E unless WithCodec supplies one for []E.
func NewList[E any](s *Store, path string, def []E, opts ...Option) *List[E] {
	elem := codec.For[E]()
	opts = append([]Option{WithCodec(codec.Slice(elem))}, opts...)
	return &List[E]{
		Setting: NewSetting(s, path, def, opts...),
		elem:    elem,
	}
}

// Append adds e to the end of the array in the document without
// rewriting the rest of it. With DoNotPersist, or once the list has
// expired, only the cached value grows.
func (l *List[E]) Append(e E) error {
	return l.AppendWithArgs(e, notify.Args{})
}

// AppendWithArgs is Append with change metadata for the observers.
func (l *List[E]) AppendWithArgs(e E, args notify.Args) error {
	c := l.locked()

	if l.flags&DoNotPersist != 0 || c == nil {
		l.value = append(slices.Clone(l.cachedOrDefault()), e)
		l.hasValue = true
		if c != nil {
			l.iteration = c.currentIteration()
			return nil
		}
		if l.flags&DoNotPersist != 0 {
			return nil
		}
		if l.state == stateExpired {
			return ErrExpired
		}
		return ErrUnbound
	}

	raw, err := l.elem.Encode(e)
	if err != nil {
		return fmt.Errorf("append %s: %w", l.path, err)
	}
	return c.store.appendAt(c.ptr, raw, args)
}

// Len returns the number of elements.
func (l *List[E]) Len() int {
	return len(l.Get())
}

// RemoveAt removes element i from the array in the document; see
// Store.RemoveArrayValue.
func (l *List[E]) RemoveAt(i int) bool {
	if l.invalid {
		return false
	}
	return l.store.RemoveArrayValue(l.path, i)
}
