// Copyright 2024 The original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package payload contains code that maps metadata values to their
corresponding structpb.Value values, for use as the JSON payload of a Cloud
Logging entry.
*/
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	spb "google.golang.org/protobuf/types/known/structpb"
)

var (
	timePool = sync.Pool{
		New: func() any {
			const prefixLen = len(time.RFC3339Nano) + 1
			b := make([]byte, 0, prefixLen)
			return &b
		},
	}

	NilValue = &spb.Value{Kind: &spb.Value_NullValue{NullValue: spb.NullValue_NULL_VALUE}}
)

// FromMap converts m into a spb.Struct.  Values that cannot be represented,
// including values that refer back to one of their containers, are dropped.
func FromMap(m map[string]any) *spb.Struct {
	c := converter{seen: make(map[uintptr]bool)}
	if m != nil {
		c.seen[reflect.ValueOf(m).Pointer()] = true
	}
	return c.fromMap(m)
}

// ToValue converts a single value.  The following precedence is used.
//
//   - nil maps to a null value.
//   - If of type builtin.error and does not implement json.Marshaler, the
//     Error() string is used.
//   - Strings, booleans, numbers, durations and times are mapped directly.
//   - Maps keyed by strings and slices are converted element by element.
//   - proto messages are mapped through their protojson form.
//   - If the value can be converted into a JSON object, that JSON object is
//     translated to its corresponding spb.Value.
//   - Otherwise ok is false.
func ToValue(a any) (val *spb.Value, ok bool) {
	c := converter{seen: make(map[uintptr]bool)}
	return c.toValue(a)
}

type converter struct {
	seen map[uintptr]bool
}

func (c converter) fromMap(m map[string]any) *spb.Struct {
	p := &spb.Struct{Fields: make(map[string]*spb.Value, len(m))}
	for k, v := range m {
		if val, ok := c.toValue(v); ok {
			p.Fields[k] = val
		}
	}
	return p
}

func (c converter) toValue(a any) (*spb.Value, bool) {
	if a == nil {
		return NilValue, true
	}
	if rv := reflect.ValueOf(a); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return NilValue, true
	}

	_, jm := a.(json.Marshaler)
	if err, ok := a.(error); ok && !jm {
		return NewStringValue(err.Error()), true
	}

	switch v := a.(type) {
	case *spb.Value:
		return v, true
	case *spb.Struct:
		return spb.NewStructValue(v), true
	case string:
		return NewStringValue(v), true
	case bool:
		return NewBoolValue(v), true
	case time.Time:
		return NewTimeValue(v), true
	case time.Duration:
		return NewNumberValue(float64(v)), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return NewStringValue(v.String()), true
		}
		return NewNumberValue(f), true
	case proto.Message:
		return c.fromProto(v)
	}

	if jm {
		return AsJson(a)
	}
	if s, ok := a.(fmt.Stringer); ok {
		return NewStringValue(s.String()), true
	}

	rv := reflect.ValueOf(a)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewNumberValue(float64(rv.Int())), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return NewNumberValue(float64(rv.Uint())), true
	case reflect.Float32, reflect.Float64:
		return NewNumberValue(rv.Float()), true
	case reflect.String:
		return NewStringValue(rv.String()), true
	case reflect.Bool:
		return NewBoolValue(rv.Bool()), true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return AsJson(a)
		}
		if rv.IsNil() {
			return NilValue, true
		}
		return c.visit(rv.Pointer(), func() *spb.Value {
			p := &spb.Struct{Fields: make(map[string]*spb.Value, rv.Len())}
			iter := rv.MapRange()
			for iter.Next() {
				if val, ok := c.toValue(iter.Value().Interface()); ok {
					p.Fields[iter.Key().String()] = val
				}
			}
			return spb.NewStructValue(p)
		})
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.Type().Elem().Kind() == reflect.Uint8 {
				return AsJson(a)
			}
			if rv.IsNil() {
				return NilValue, true
			}
			if rv.Len() > 0 {
				return c.visit(rv.Pointer(), func() *spb.Value { return c.list(rv) })
			}
		}
		return c.list(rv), true
	}

	return AsJson(a)
}

// visit guards against values that contain themselves.
func (c converter) visit(ptr uintptr, convert func() *spb.Value) (*spb.Value, bool) {
	if c.seen[ptr] {
		return nil, false
	}
	c.seen[ptr] = true
	defer delete(c.seen, ptr)

	return convert(), true
}

func (c converter) list(rv reflect.Value) *spb.Value {
	l := &spb.ListValue{Values: make([]*spb.Value, 0, rv.Len())}
	for i := 0; i < rv.Len(); i++ {
		if val, ok := c.toValue(rv.Index(i).Interface()); ok {
			l.Values = append(l.Values, val)
		}
	}
	return spb.NewListValue(l)
}

func (c converter) fromProto(m proto.Message) (*spb.Value, bool) {
	b, err := protojson.Marshal(m)
	if err != nil {
		return nil, false
	}

	var result any
	if err = json.Unmarshal(b, &result); err != nil {
		return nil, false
	}

	nv, err := spb.NewValue(result)
	if err != nil {
		return nil, false
	}

	return nv, true
}

func NewStringValue(str string) *spb.Value {
	return &spb.Value{Kind: &spb.Value_StringValue{StringValue: str}}
}

func NewNumberValue(val float64) *spb.Value {
	return &spb.Value{Kind: &spb.Value_NumberValue{NumberValue: val}}
}

func NewBoolValue(b bool) *spb.Value {
	return &spb.Value{Kind: &spb.Value_BoolValue{BoolValue: b}}
}

func NewTimeValue(t time.Time) *spb.Value {
	return &spb.Value{Kind: &spb.Value_StringValue{StringValue: AppendRFC3339Millis(t)}}
}

// AsJson attempts to convert a to a corresponding spb.Value by first
// converting it to a JSON object and then mapping that JSON object to a
// corresponding spb.Value.  The function returns false for ok if a cannot
// be encoded as JSON, as is the case for cyclic values.
func AsJson(a any) (value *spb.Value, ok bool) {
	if a == nil {
		return NilValue, true
	}

	a, err := ToJson(a)
	if err != nil {
		return nil, false
	}

	nv, err := spb.NewValue(a)
	if err != nil {
		return nil, false
	}

	return nv, true
}

func ToJson(a any) (any, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(a); err != nil {
		return nil, err
	}

	var result any
	_ = json.Unmarshal(buf.Bytes(), &result)

	return result, nil
}

// AppendRFC3339Millis formats t as RFC 3339 with exactly millisecond
// resolution.
func AppendRFC3339Millis(t time.Time) string {
	ptr := timePool.Get().(*[]byte)
	buf := *ptr
	buf = buf[0:0]
	defer func() {
		*ptr = buf
		timePool.Put(ptr)
	}()

	// Format according to time.RFC3339Nano since it is highly optimized,
	// but truncate it to use millisecond resolution.
	// Unfortunately, that format trims trailing 0s, so add 1/10 millisecond
	// to guarantee that there are exactly 4 digits after the period.
	const prefixLen = len("2006-01-02T15:04:05.000")
	t = t.Truncate(time.Millisecond).Add(time.Millisecond / 10)
	buf = t.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf[:prefixLen], buf[prefixLen+1:]...) // drop the 4th digit

	return string(buf)
}
