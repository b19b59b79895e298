// Package document provides the JSON document backing a settings store.
//
// A Document holds raw JSON bytes and is addressed with JSON Pointers.
// Reads resolve pointers token by token with gjson; writes splice new raw
// values into the document with sjson, building any missing intermediate
// objects and arrays on the way. Object key order is preserved.
//
// Document is not safe for concurrent use; the settings store serializes
// all access to it.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Node is a resolved JSON value. A Node whose Exists method reports false
// stands for an absent value.
type Node = gjson.Result

// MaxArrayPadding bounds how many null elements a single Set may insert
// to reach an array index past the end.
const MaxArrayPadding = 1 << 16

// Document is a mutable JSON document.
type Document struct {
	data []byte
}

// New returns an empty document ({}).
func New() *Document {
	return &Document{data: []byte("{}")}
}

// Parse validates data and returns a document holding a compacted copy.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return &Document{data: pretty.Ugly(data)}, nil
}

// Bytes returns the compact JSON form of the document. The returned slice
// must not be modified.
func (d *Document) Bytes() []byte {
	return d.data
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	return &Document{data: bytes.Clone(d.data)}
}

// Pretty returns an indented rendering of the document ending in a newline.
func (d *Document) Pretty(indent string) []byte {
	return pretty.PrettyOptions(d.data, &pretty.Options{
		Width:  80,
		Indent: indent,
	})
}

// Get resolves p. Absence is reported through the boolean, never an error.
func (d *Document) Get(p Pointer) (Node, bool) {
	n := d.resolve(p)
	return n, n.Exists()
}

// Keys returns the member names of the object at p in document order.
// It returns nil when p does not resolve to an object.
func (d *Document) Keys(p Pointer) []string {
	n := d.resolve(p)
	if !n.IsObject() {
		return nil
	}
	var keys []string
	n.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// Len returns the number of elements of the array at p, or 0 when p does
// not resolve to an array.
func (d *Document) Len(p Pointer) int {
	n := d.resolve(p)
	if !n.IsArray() {
		return 0
	}
	return arrayLen(n)
}

// Set writes raw at p and returns the concrete pointer that was written,
// with any "-" token replaced by the index it resolved to.
//
// Missing intermediates are created: a token that is an array index (or
// "-") creates an array padded with nulls, any other token creates an
// object. A value of the wrong shape standing in the way is replaced.
func (d *Document) Set(p Pointer, raw []byte) (Pointer, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: value for %s", ErrInvalidJSON, p)
	}
	raw = pretty.Ugly(raw)

	if p.IsRoot() {
		d.data = raw
		return p, nil
	}

	cur := gjson.ParseBytes(d.data)
	for i, tok := range p {
		switch {
		case cur.IsObject():
			next := cur.Get(escapePathComponent(tok))
			if !next.Exists() {
				frag, tail, err := build(p[i+1:], raw)
				if err != nil {
					return nil, err
				}
				if err := d.replace(p[:i], appendMember(cur, tok, frag)); err != nil {
					return nil, err
				}
				return join(p[:i], Pointer{tok}, tail), nil
			}
			cur = next

		case cur.IsArray():
			n := arrayLen(cur)
			idx, ok := arrayIndex(tok, n)
			if !ok {
				return d.rebuild(p, i, raw)
			}
			if idx >= n {
				if idx-n > MaxArrayPadding {
					return nil, fmt.Errorf("%w: index %d at %s", ErrIndexOutOfRange, idx, p)
				}
				frag, tail, err := build(p[i+1:], raw)
				if err != nil {
					return nil, err
				}
				if err := d.replace(p[:i], extendArray(cur, idx, frag)); err != nil {
					return nil, err
				}
				return join(p[:i], Pointer{strconv.Itoa(idx)}, tail), nil
			}
			cur = cur.Get(strconv.Itoa(idx))

		default:
			return d.rebuild(p, i, raw)
		}
	}

	if err := d.replace(p, raw); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the node at p. It reports false when nothing exists
// there. Deleting the root resets the document to an empty object.
func (d *Document) Delete(p Pointer) bool {
	if p.IsRoot() {
		d.data = []byte("{}")
		return true
	}
	if _, ok := d.Get(p); !ok {
		return false
	}
	out, err := sjson.DeleteBytes(d.data, p.path())
	if err != nil {
		return false
	}
	d.data = out
	return true
}

// rebuild replaces the value at p[:i] with a fresh structure leading to raw.
func (d *Document) rebuild(p Pointer, i int, raw []byte) (Pointer, error) {
	frag, tail, err := build(p[i:], raw)
	if err != nil {
		return nil, err
	}
	if err := d.replace(p[:i], frag); err != nil {
		return nil, err
	}
	return join(p[:i], tail), nil
}

// replace overwrites the existing value at p with raw.
func (d *Document) replace(p Pointer, raw []byte) error {
	if p.IsRoot() {
		d.data = raw
		return nil
	}
	out, err := sjson.SetRawBytes(d.data, p.path(), raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", p, err)
	}
	d.data = out
	return nil
}

func (d *Document) resolve(p Pointer) gjson.Result {
	cur := gjson.ParseBytes(d.data)
	for _, tok := range p {
		switch {
		case cur.IsObject():
			cur = cur.Get(escapePathComponent(tok))
		case cur.IsArray():
			n := arrayLen(cur)
			idx, ok := arrayIndex(tok, n)
			if !ok || idx >= n {
				return gjson.Result{}
			}
			cur = cur.Get(strconv.Itoa(idx))
		default:
			return gjson.Result{}
		}
		if !cur.Exists() {
			return gjson.Result{}
		}
	}
	return cur
}

// build returns the raw JSON for a fresh structure in which raw sits at
// rest, along with the concrete tokens used.
func build(rest Pointer, raw []byte) ([]byte, Pointer, error) {
	if len(rest) == 0 {
		return raw, nil, nil
	}
	child, tail, err := build(rest[1:], raw)
	if err != nil {
		return nil, nil, err
	}

	tok := rest[0]
	var b bytes.Buffer
	if idx, ok := arrayIndex(tok, 0); ok {
		if idx > MaxArrayPadding {
			return nil, nil, fmt.Errorf("%w: index %d", ErrIndexOutOfRange, idx)
		}
		b.WriteByte('[')
		for i := 0; i < idx; i++ {
			b.WriteString("null,")
		}
		b.Write(child)
		b.WriteByte(']')
		return b.Bytes(), append(Pointer{strconv.Itoa(idx)}, tail...), nil
	}

	b.WriteByte('{')
	b.Write(quote(tok))
	b.WriteByte(':')
	b.Write(child)
	b.WriteByte('}')
	return b.Bytes(), append(Pointer{tok}, tail...), nil
}

// appendMember returns obj with key:value added as its last member.
func appendMember(obj gjson.Result, key string, value []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('{')
	first := true
	obj.ForEach(func(k, v gjson.Result) bool {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(k.Raw)
		b.WriteByte(':')
		b.WriteString(v.Raw)
		return true
	})
	if !first {
		b.WriteByte(',')
	}
	b.Write(quote(key))
	b.WriteByte(':')
	b.Write(value)
	b.WriteByte('}')
	return b.Bytes()
}

// extendArray returns arr grown with nulls so that value lands at idx.
func extendArray(arr gjson.Result, idx int, value []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('[')
	n := 0
	arr.ForEach(func(_, v gjson.Result) bool {
		if n > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.Raw)
		n++
		return true
	})
	for ; n < idx; n++ {
		if n > 0 {
			b.WriteByte(',')
		}
		b.WriteString("null")
	}
	if n > 0 {
		b.WriteByte(',')
	}
	b.Write(value)
	b.WriteByte(']')
	return b.Bytes()
}

func arrayLen(arr gjson.Result) int {
	return int(arr.Get("#").Int())
}

func quote(s string) []byte {
	// Marshalling a string cannot fail.
	out, _ := json.Marshal(s)
	return out
}

func join(parts ...Pointer) Pointer {
	n := 0
	for _, part := range parts {
		n += len(part)
	}
	out := make(Pointer, 0, n)
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}
