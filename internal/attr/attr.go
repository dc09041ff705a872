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
Package attr contains code that maps slog.Attr attributes to their
corresponding metadata values.
*/
package attr

import (
	"log/slog"
)

// Mapper is called to rewrite each non-group attribute before it is placed
// in the metadata.
type Mapper func(groups []string, a slog.Attr) slog.Attr

// WrapAttrMapper will wrap an mapper with empty group checks to ensure they
// are properly elided.
func WrapAttrMapper(mapper func(groups []string, a slog.Attr) slog.Attr) func(groups []string, a slog.Attr) slog.Attr {
	if mapper == nil {
		return nil
	}

	var wrapped func(groups []string, a slog.Attr) slog.Attr

	wrapped = func(groups []string, a slog.Attr) slog.Attr {
		if a.Value.Kind() == slog.KindGroup {
			var attrs []any
			for _, ga := range a.Value.Group() {
				ma := wrapped(append(groups, a.Key), ga)

				// elide empty attributes
				if ma.Key == "" && ma.Value.Any() == nil {
					continue
				}

				attrs = append(attrs, ma)
			}

			if len(attrs) == 0 {
				return slog.Attr{}
			}

			return slog.Group(a.Key, attrs...)
		}

		return mapper(groups, a)
	}

	return wrapped
}

// DecorateWith will add the attribute to the metadata map m.  Empty
// attributes and empty groups are ignored, and the members of a group with
// an empty key are inlined into m.
func DecorateWith(m map[string]any, a slog.Attr) {
	rv := a.Value.Resolve()
	if a.Key == "" && rv.Any() == nil {
		return
	}

	if rv.Kind() == slog.KindGroup {
		group := rv.Group()
		if len(group) == 0 {
			return
		}
		if a.Key == "" {
			for _, ga := range group {
				DecorateWith(m, ga)
			}
			return
		}

		sub, ok := m[a.Key].(map[string]any)
		if !ok {
			sub = make(map[string]any, len(group))
		}
		for _, ga := range group {
			DecorateWith(sub, ga)
		}
		m[a.Key] = sub
		return
	}

	m[a.Key] = ToAny(rv)
}

// ToAny returns the Go value held by v, with groups expanded into nested
// maps.
func ToAny(v slog.Value) any {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration()
	case slog.KindTime:
		return v.Time()
	case slog.KindGroup:
		m := make(map[string]any, len(v.Group()))
		for _, a := range v.Group() {
			DecorateWith(m, a)
		}
		return m
	default:
		return v.Any()
	}
}
