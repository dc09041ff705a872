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

package gcleveled

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"

	logpb "cloud.google.com/go/logging/apiv2/loggingpb"

	"m4o.io/gcleveled/internal/attr"
	"m4o.io/gcleveled/internal/level"
	"m4o.io/gcleveled/internal/options"
)

// Handler is a slog handler that logs through an Adapter.  A record's level
// is mapped to the most severe level name of the adapter that does not
// exceed it, and its attributes become the metadata of the call.
type Handler struct {
	adapter *Adapter
	level   slog.Leveler

	// addSource causes the handler to compute the source code position
	// of the log statement and add it to the entry.
	addSource   bool
	replaceAttr func(groups []string, a slog.Attr) slog.Attr

	metadata Metadata
	groups   []string
}

var _ slog.Handler = &Handler{}

// NewHandler creates a slog handler that logs through adapter.  Only the
// level, source and attribute options are taken into account.
func NewHandler(adapter *Adapter, opts ...options.OptionProcessor) *Handler {
	if adapter == nil {
		panic("adapter is nil")
	}
	o := options.ApplyOptions(opts...)

	return &Handler{
		adapter: adapter,
		level:   o.Level,

		addSource:   o.AddSource,
		replaceAttr: attr.WrapAttrMapper(o.ReplaceAttr),

		metadata: make(Metadata),
	}
}

// WithLeveler returns a copy of the handler, provisioned with the supplied
// leveler.
func (h *Handler) WithLeveler(leveler slog.Leveler) *Handler {
	if leveler == nil {
		panic("Leveler is nil")
	}

	h2 := h.clone()
	h2.level = leveler

	return h2
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.level.Level() <= level
}

// Handle translates the record into a call to the adapter.  Write failures
// are reported on stderr since the caller has long returned by the time an
// asynchronous write completes.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	md := cloneMetadata(h.metadata)

	setAndClean(h.groups, md, func(m map[string]any) {
		record.Attrs(func(a slog.Attr) bool {
			if h.replaceAttr != nil {
				a = h.replaceAttr(h.groups, a)
			}
			attr.DecorateWith(m, a)
			return true
		})
	})

	if _, ok := md[TimestampKey]; !ok && !record.Time.IsZero() {
		md[TimestampKey] = record.Time.UTC()
	}
	if h.addSource && record.PC != 0 {
		md[SourceLocationKey] = sourceLocation(record.PC)
	}

	name := level.FromSlog(record.Level, h.adapter.HasLevel)
	msg := record.Message

	return h.adapter.Log(ctx, name, msg, md, func(err error) {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error logging: %s\n%s\n", msg, err)
		}
	})
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()

	current := fromPath(h2.metadata, h2.groups)

	for _, a := range attrs {
		if h.replaceAttr != nil {
			a = h.replaceAttr(h.groups, a)
		}
		attr.DecorateWith(current, a)
	}

	return h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()

	current := fromPath(h2.metadata, h2.groups)
	current[name] = make(map[string]any)

	h2.groups = append(h2.groups, name)

	return h2
}

func (h *Handler) clone() *Handler {
	return &Handler{
		adapter: h.adapter,
		level:   h.level,

		addSource:   h.addSource,
		replaceAttr: h.replaceAttr,

		metadata: cloneMetadata(h.metadata),
		groups:   slices.Clip(h.groups),
	}
}

func sourceLocation(pc uintptr) *logpb.LogEntrySourceLocation {
	fs := runtime.CallersFrames([]uintptr{pc})
	f, _ := fs.Next()

	return &logpb.LogEntrySourceLocation{
		File:     f.File,
		Line:     int64(f.Line),
		Function: f.Function,
	}
}

// cloneMetadata copies m along with the group maps nested in it.
func cloneMetadata(m map[string]any) Metadata {
	c := make(Metadata, len(m))
	for k, v := range m {
		if g, ok := v.(map[string]any); ok {
			v = map[string]any(cloneMetadata(g))
		}
		c[k] = v
	}
	return c
}

func fromPath(m map[string]any, path []string) map[string]any {
	for _, k := range path {
		g, ok := m[k].(map[string]any)
		if !ok {
			g = make(map[string]any)
			m[k] = g
		}
		m = g
	}
	return m
}

// setAndClean decorates the group found at the end of groups, then drops
// the groups that were left empty.
func setAndClean(groups []string, m map[string]any, decorate func(m map[string]any)) {
	if len(groups) == 0 {
		decorate(m)
		return
	}

	g := groups[0]

	s, ok := m[g].(map[string]any)
	if !ok {
		s = make(map[string]any)
		m[g] = s
	}
	setAndClean(groups[1:], s, decorate)

	if len(s) == 0 {
		delete(m, g)
	}
}
