package codec

import (
	"encoding/json"
	"reflect"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/livesettings/internal/settings/document"
)

type boolCodec struct{}

// Bool returns the codec for bool. Only JSON true and false decode.
func Bool() Codec[bool] { return boolCodec{} }

func (boolCodec) Encode(v bool) ([]byte, error) {
	return strconv.AppendBool(nil, v), nil
}

func (boolCodec) Decode(n document.Node) (bool, bool) {
	switch n.Type {
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	default:
		return false, false
	}
}

func (boolCodec) Equal(a, b bool) bool { return a == b }

type intCodec struct{}

// Int returns the codec for int. Fractional numbers are truncated.
func Int() Codec[int] { return intCodec{} }

func (intCodec) Encode(v int) ([]byte, error) {
	return strconv.AppendInt(nil, int64(v), 10), nil
}

func (intCodec) Decode(n document.Node) (int, bool) {
	if n.Type != gjson.Number {
		return 0, false
	}
	return int(n.Int()), true
}

func (intCodec) Equal(a, b int) bool { return a == b }

type int64Codec struct{}

// Int64 returns the codec for int64. Integers beyond 2^53 decode exactly.
func Int64() Codec[int64] { return int64Codec{} }

func (int64Codec) Encode(v int64) ([]byte, error) {
	return strconv.AppendInt(nil, v, 10), nil
}

func (int64Codec) Decode(n document.Node) (int64, bool) {
	if n.Type != gjson.Number {
		return 0, false
	}
	return n.Int(), true
}

func (int64Codec) Equal(a, b int64) bool { return a == b }

type float64Codec struct{}

// Float64 returns the codec for float64. NaN and infinities cannot be
// encoded.
func Float64() Codec[float64] { return float64Codec{} }

func (float64Codec) Encode(v float64) ([]byte, error) {
	return json.Marshal(v)
}

func (float64Codec) Decode(n document.Node) (float64, bool) {
	if n.Type != gjson.Number {
		return 0, false
	}
	return n.Float(), true
}

func (float64Codec) Equal(a, b float64) bool { return a == b }

type float32Codec struct{}

// Float32 returns the codec for float32.
func Float32() Codec[float32] { return float32Codec{} }

func (float32Codec) Encode(v float32) ([]byte, error) {
	return json.Marshal(v)
}

func (float32Codec) Decode(n document.Node) (float32, bool) {
	if n.Type != gjson.Number {
		return 0, false
	}
	return float32(n.Float()), true
}

func (float32Codec) Equal(a, b float32) bool { return a == b }

type stringCodec struct{}

// String returns the codec for string.
func String() Codec[string] { return stringCodec{} }

func (stringCodec) Encode(v string) ([]byte, error) {
	return json.Marshal(v)
}

func (stringCodec) Decode(n document.Node) (string, bool) {
	if n.Type != gjson.String {
		return "", false
	}
	return n.Str, true
}

func (stringCodec) Equal(a, b string) bool { return a == b }

type durationCodec struct{}

// Duration returns the codec for time.Duration. Durations are written as
// strings ("1m30s"); a duration string or a number of milliseconds is
// accepted on read.
func Duration() Codec[time.Duration] { return durationCodec{} }

func (durationCodec) Encode(v time.Duration) ([]byte, error) {
	return json.Marshal(v.String())
}

func (durationCodec) Decode(n document.Node) (time.Duration, bool) {
	switch n.Type {
	case gjson.String:
		d, err := time.ParseDuration(n.Str)
		if err != nil {
			return 0, false
		}
		return d, true
	case gjson.Number:
		return time.Duration(n.Int()) * time.Millisecond, true
	default:
		return 0, false
	}
}

func (durationCodec) Equal(a, b time.Duration) bool { return a == b }

type anyCodec struct{}

// Any returns the codec for dynamically typed values. Decoded objects are
// map[string]any, arrays []any, numbers float64 and null is nil.
func Any() Codec[any] { return anyCodec{} }

func (anyCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (anyCodec) Decode(n document.Node) (any, bool) {
	if !n.Exists() {
		return nil, false
	}
	return n.Value(), true
}

func (anyCodec) Equal(a, b any) bool { return reflect.DeepEqual(a, b) }
