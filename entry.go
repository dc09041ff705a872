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
	"time"

	"cloud.google.com/go/logging"
	logpb "cloud.google.com/go/logging/apiv2/loggingpb"
	mrpb "google.golang.org/genproto/googleapis/api/monitoredres"

	"m4o.io/gcleveled/internal/options"
)

// Metadata keys with special meaning.  Values stored under these keys are
// promoted out of the payload and into the entry itself.
const (
	// StackKey marks metadata as describing an error.  Its value is the
	// stack trace of the error, appended to the message.
	StackKey = "stack"
	// HTTPRequestKey holds a *logging.HTTPRequest or logging.HTTPRequest.
	HTTPRequestKey = "httpRequest"
	// TimestampKey holds a time.Time or *time.Time.
	TimestampKey = "timestamp"
	// LabelsKey holds a map[string]string or map[string]any of per-call
	// labels.
	LabelsKey = "labels"
	// SourceLocationKey holds a *loggingpb.LogEntrySourceLocation.
	SourceLocationKey = "logging.googleapis.com/sourceLocation"

	// TraceKey holds the fully qualified trace name, that is
	// "projects/PROJECT_ID/traces/TRACE_ID".
	TraceKey = "logging.googleapis.com/trace"
	// SpanKey holds the hex span ID.
	SpanKey = "logging.googleapis.com/spanId"
	// SampledKey holds the sampling decision, "1" meaning sampled.
	SampledKey = "logging.googleapis.com/trace_sampled"
)

// Field names of the JSON payload.
const (
	MessageKey        = "message"
	MetadataKey       = "metadata"
	ServiceContextKey = "serviceContext"
)

// Metadata is the structured data accompanying a log call.
type Metadata map[string]any

// ServiceContext identifies the service that produced an error so that Cloud
// Error Reporting can group it.
type ServiceContext = options.ServiceContext

// EntryMetadata holds the routing fields of an entry.  Zero values are
// absent from the written entry.
type EntryMetadata struct {
	Resource       *mrpb.MonitoredResource
	HTTPRequest    *logging.HTTPRequest
	Timestamp      time.Time
	Labels         map[string]string
	Trace          string
	SpanID         string
	TraceSampled   *bool
	SourceLocation *logpb.LogEntrySourceLocation
}

// EntryData holds the payload of an entry.  ServiceContext is only set for
// errors.
type EntryData struct {
	Message        string
	Metadata       Metadata
	ServiceContext *ServiceContext

	// Diagnostic, when set, is written as the whole payload in place of the
	// other fields.
	Diagnostic map[string]any
}

// Entry is one unit handed to a Sink.  Entries are not modified once built.
type Entry struct {
	Metadata EntryMetadata
	Data     EntryData
}

// NewEntry pairs meta and data into an Entry.
func NewEntry(meta EntryMetadata, data EntryData) Entry {
	return Entry{Metadata: meta, Data: data}
}

// payloadFields returns the entry data as the fields of a JSON payload.
func (d EntryData) payloadFields() map[string]any {
	if d.Diagnostic != nil {
		return d.Diagnostic
	}

	md := map[string]any(d.Metadata)
	if md == nil {
		md = map[string]any{}
	}

	fields := map[string]any{
		MessageKey:  d.Message,
		MetadataKey: md,
	}
	if d.ServiceContext != nil {
		fields[ServiceContextKey] = map[string]any{
			"service": d.ServiceContext.Service,
			"version": d.ServiceContext.Version,
		}
	}

	return fields
}
