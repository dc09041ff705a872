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
	"fmt"
	"time"

	"cloud.google.com/go/logging"
	logpb "cloud.google.com/go/logging/apiv2/loggingpb"
	"github.com/davecgh/go-spew/spew"
)

// inspector renders metadata values when metadata inspection is enabled.
var inspector = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Inspect returns the textual debug representation of v.
func Inspect(v any) string {
	return inspector.Sprintf("%v", v)
}

// promoted holds the metadata values that are lifted out of the payload and
// into the entry.
type promoted struct {
	httpRequest    *logging.HTTPRequest
	timestamp      time.Time
	sourceLocation *logpb.LogEntrySourceLocation
	labels         map[string]string

	traced       bool
	trace        string
	spanID       string
	traceSampled *bool
}

// normalized is the result of splitting a log call's metadata into the
// payload that is stored and the fields that are promoted.
type normalized struct {
	promoted

	message  string
	isError  bool
	metadata Metadata
}

// normalize never modifies md.  Error metadata, identified by StackKey, is
// kept as is; only its labels and trace keys are read.  Any other metadata
// is copied, optionally inspected, and stripped of the promoted keys.
func normalize(message string, md Metadata, inspect bool) normalized {
	n := normalized{message: message}

	if stack, ok := stackOf(md); ok {
		n.isError = true
		n.metadata = md
		if message == "" {
			n.message = stack
		} else {
			n.message = message + " " + stack
		}

		n.labels, _ = labelsOf(md[LabelsKey])
		n.promoteTrace(md)

		return n
	}

	residual := make(Metadata, len(md))
	for k, v := range md {
		if inspect {
			v = Inspect(v)
		}
		residual[k] = v
	}

	if r, ok := httpRequestOf(md[HTTPRequestKey]); ok {
		n.httpRequest = r
		delete(residual, HTTPRequestKey)
	}
	if ts, ok := timestampOf(md[TimestampKey]); ok {
		n.timestamp = ts
		delete(residual, TimestampKey)
	}
	if sl, ok := md[SourceLocationKey].(*logpb.LogEntrySourceLocation); ok && sl != nil {
		n.sourceLocation = sl
		delete(residual, SourceLocationKey)
	}
	if l, ok := labelsOf(md[LabelsKey]); ok {
		n.labels = l
		delete(residual, LabelsKey)
	}

	n.promoteTrace(md)
	n.metadata = residual

	return n
}

func stackOf(md Metadata) (string, bool) {
	v, ok := md[StackKey]
	if !ok || v == nil {
		return "", false
	}

	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}

	return s, s != ""
}

func httpRequestOf(v any) (*logging.HTTPRequest, bool) {
	switch r := v.(type) {
	case *logging.HTTPRequest:
		return r, r != nil
	case logging.HTTPRequest:
		return &r, true
	default:
		return nil, false
	}
}

func timestampOf(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}

func labelsOf(v any) (map[string]string, bool) {
	switch l := v.(type) {
	case map[string]string:
		return l, true
	case map[string]any:
		return stringify(l), true
	case Metadata:
		return stringify(l), true
	default:
		return nil, false
	}
}

func stringify(m map[string]any) map[string]string {
	labels := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			labels[k] = s
		} else {
			labels[k] = fmt.Sprint(v)
		}
	}
	return labels
}

// promoteTrace copies the prefixed trace keys, each independently of the
// others.
func (p *promoted) promoteTrace(md Metadata) {
	if v, ok := md[TraceKey]; ok && v != nil {
		p.traced = true
		p.trace = fmt.Sprint(v)
	}
	if v, ok := md[SpanKey]; ok && v != nil {
		p.traced = true
		p.spanID = fmt.Sprint(v)
	}
	if v, ok := md[SampledKey]; ok && v != nil {
		p.traced = true
		sampled := isSampled(v)
		p.traceSampled = &sampled
	}
}

func isSampled(v any) bool {
	switch s := v.(type) {
	case string:
		return s == "1"
	case bool:
		return s
	default:
		return false
	}
}
