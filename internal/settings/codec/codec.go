// Package codec converts between typed Go values and document nodes.
//
// Every value type a setting can hold is served by a Codec. Codecs for the
// common scalar and container types are registered at init time; For looks
// one up generically and falls back to an encoding/json based codec for
// anything else, so struct-typed settings work without registration.
package codec

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/dshills/livesettings/internal/settings/document"
)

// Codec encodes and decodes values of type T.
type Codec[T any] interface {
	// Encode returns the raw JSON for v.
	Encode(v T) ([]byte, error)

	// Decode converts a node into a T. It reports false when the node is
	// absent or does not hold a T.
	Decode(n document.Node) (T, bool)

	// Equal reports whether two values are the same setting value.
	Equal(a, b T) bool
}

var (
	mu       sync.RWMutex
	registry = make(map[reflect.Type]any)
)

func init() {
	Register(Bool())
	Register(Int())
	Register(Int64())
	Register(Float64())
	Register(Float32())
	Register(String())
	Register(Duration())
	Register(Any())
	Register(Slice(String()))
	Register(Slice(Int()))
	Register(Slice(Float64()))
	Register(Slice(Any()))
	Register(Map(String()))
	Register(Map(Any()))
}

// Register makes c the codec returned by For[T]. It replaces any codec
// previously registered for T.
func Register[T any](c Codec[T]) {
	if c == nil {
		panic(fmt.Sprintf("codec: nil codec for %s", typeOf[T]()))
	}
	mu.Lock()
	defer mu.Unlock()
	registry[typeOf[T]()] = c
}

// For returns the codec registered for T, or JSON[T]() when none is.
func For[T any]() Codec[T] {
	if c, ok := Lookup[T](); ok {
		return c
	}
	return JSON[T]()
}

// Lookup returns the codec registered for T.
func Lookup[T any]() (Codec[T], bool) {
	mu.RLock()
	c, ok := registry[typeOf[T]()]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	typed, ok := c.(Codec[T])
	return typed, ok
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
