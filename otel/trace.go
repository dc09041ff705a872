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
Package otel connects OpenTelemetry to gcleveled: the span stored in a
context identifies the trace of the entries logged with it, and the baggage
it carries can be logged as labels.

Placing the options in a separate package minimizes the dependencies pulled in
by those who do not need OpenTelemetry.
*/
package otel

import (
	"context"
	"log/slog"
	"sync"

	"cloud.google.com/go/compute/metadata"
	"go.opentelemetry.io/otel/trace"

	"m4o.io/gcleveled"
)

// TraceAgent is a gcleveled.TraceAgent that reads the trace of the
// OpenTelemetry span stored in the context.
type TraceAgent struct {
	projectID string

	detectOnce sync.Once
	detected   string
}

var _ gcleveled.TraceAgent = (*TraceAgent)(nil)

// NewTraceAgent returns a TraceAgent that qualifies traces with projectID.
// When projectID is empty, the project is looked up once from the GCE
// metadata server, if there is one.
func NewTraceAgent(projectID string) *TraceAgent {
	return &TraceAgent{projectID: projectID}
}

// Install registers a TraceAgent for projectID with gcleveled and returns it.
func Install(projectID string) *TraceAgent {
	a := NewTraceAgent(projectID)
	gcleveled.SetTraceAgent(a)

	return a
}

// CurrentContextID returns the hex trace ID of the span in ctx.
func (a *TraceAgent) CurrentContextID(ctx context.Context) (string, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return "", false
	}

	return sc.TraceID().String(), true
}

// WriterProjectID returns the project that traces belong to.
func (a *TraceAgent) WriterProjectID(ctx context.Context) (string, bool) {
	if a.projectID != "" {
		return a.projectID, true
	}

	a.detectOnce.Do(func() {
		if !metadata.OnGCE() {
			return
		}

		id, err := metadata.ProjectIDWithContext(ctx)
		if err != nil {
			slog.Warn("Unable to detect project", "error", err)
			return
		}
		a.detected = id
	})

	return a.detected, a.detected != ""
}

// TraceMetadata returns metadata carrying the trace, span and sampling
// decision of the span in ctx, for merging into the metadata of a log call.
// Unlike the agent, which only supplies the trace, it lets the entry link to
// the span.  Nil is returned when ctx holds no span or no project is known.
func (a *TraceAgent) TraceMetadata(ctx context.Context) gcleveled.Metadata {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return nil
	}
	projectID, ok := a.WriterProjectID(ctx)
	if !ok {
		return nil
	}

	md := gcleveled.Metadata{
		gcleveled.TraceKey:   gcleveled.FormatTraceResource(projectID, sc.TraceID().String()),
		gcleveled.SampledKey: "0",
	}
	if sc.HasSpanID() {
		md[gcleveled.SpanKey] = sc.SpanID().String()
	}
	if sc.IsSampled() {
		md[gcleveled.SampledKey] = "1"
	}

	return md
}
