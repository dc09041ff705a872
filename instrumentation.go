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
	"sync/atomic"
)

const (
	// DiagnosticInfoKey is the payload key of the instrumentation entry.
	DiagnosticInfoKey = "logging.googleapis.com/diagnostic"
	// InstrumentationSourceKey lists the libraries writing to Cloud Logging.
	InstrumentationSourceKey = "instrumentation_source"
	// InstrumentationSourceName identifies this library.
	InstrumentationSourceName = "go-gcleveled"
)

// instrumentationSent is shared by every Adapter in the process.  It is set
// once an instrumentation entry has been handed to a sink, and cleared again
// only when that sink rejects the write.
var instrumentationSent atomic.Bool

// claimInstrumentation reports whether the caller is the one to send the
// instrumentation entry.
func claimInstrumentation() bool {
	return instrumentationSent.CompareAndSwap(false, true)
}

func releaseInstrumentation() {
	instrumentationSent.Store(false)
}

func diagnosticData() EntryData {
	return EntryData{
		Diagnostic: map[string]any{
			DiagnosticInfoKey: map[string]any{
				InstrumentationSourceKey: []any{
					map[string]any{
						"name":    InstrumentationSourceName,
						"version": Version,
					},
				},
			},
		},
	}
}
