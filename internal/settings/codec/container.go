package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/dshills/livesettings/internal/settings/document"
)

type sliceCodec[E any] struct {
	elem Codec[E]
}

// Slice returns a codec for []E built on the element codec. Decoding fails
// if any element fails to decode.
func Slice[E any](elem Codec[E]) Codec[[]E] {
	return sliceCodec[E]{elem: elem}
}

func (c sliceCodec[E]) Encode(v []E) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, e := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		raw, err := c.elem.Encode(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		b.Write(raw)
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func (c sliceCodec[E]) Decode(n document.Node) ([]E, bool) {
	if !n.IsArray() {
		return nil, false
	}
	out := make([]E, 0)
	ok := true
	n.ForEach(func(_, v gjson.Result) bool {
		e, good := c.elem.Decode(v)
		if !good {
			ok = false
			return false
		}
		out = append(out, e)
		return true
	})
	if !ok {
		return nil, false
	}
	return out, true
}

func (c sliceCodec[E]) Equal(a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !c.elem.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

type mapCodec[V any] struct {
	elem Codec[V]
}

// Map returns a codec for string-keyed maps. Keys are written in sorted
// order so encoding is deterministic.
func Map[V any](elem Codec[V]) Codec[map[string]V] {
	return mapCodec[V]{elem: elem}
}

func (c mapCodec[V]) Encode(v map[string]V) ([]byte, error) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		raw, err := c.elem.Encode(v[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(raw)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (c mapCodec[V]) Decode(n document.Node) (map[string]V, bool) {
	if !n.IsObject() {
		return nil, false
	}
	out := make(map[string]V)
	ok := true
	n.ForEach(func(k, v gjson.Result) bool {
		e, good := c.elem.Decode(v)
		if !good {
			ok = false
			return false
		}
		out[k.String()] = e
		return true
	})
	if !ok {
		return nil, false
	}
	return out, true
}

func (c mapCodec[V]) Equal(a, b map[string]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !c.elem.Equal(av, bv) {
			return false
		}
	}
	return true
}

type jsonCodec[T any] struct{}

// JSON returns a codec that goes through encoding/json. It is the fallback
// for types with no registered codec, typically structs. JSON null never
// decodes.
func JSON[T any]() Codec[T] { return jsonCodec[T]{} }

func (jsonCodec[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec[T]) Decode(n document.Node) (T, bool) {
	var v T
	if !n.Exists() || n.Type == gjson.Null {
		return v, false
	}
	if err := json.Unmarshal([]byte(n.Raw), &v); err != nil {
		return v, false
	}
	return v, true
}

func (jsonCodec[T]) Equal(a, b T) bool { return reflect.DeepEqual(a, b) }

// Funcs adapts plain functions to a Codec. A nil EqualFunc falls back to
// reflect.DeepEqual.
type Funcs[T any] struct {
	EncodeFunc func(T) ([]byte, error)
	DecodeFunc func(document.Node) (T, bool)
	EqualFunc  func(a, b T) bool
}

// Encode calls EncodeFunc.
func (f Funcs[T]) Encode(v T) ([]byte, error) { return f.EncodeFunc(v) }

// Decode calls DecodeFunc.
func (f Funcs[T]) Decode(n document.Node) (T, bool) { return f.DecodeFunc(n) }

// Equal calls EqualFunc.
func (f Funcs[T]) Equal(a, b T) bool {
	if f.EqualFunc == nil {
		return reflect.DeepEqual(a, b)
	}
	return f.EqualFunc(a, b)
}
