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

package otel_test

import (
	"context"
	"sync"

	"cloud.google.com/go/logging"

	"m4o.io/gcleveled"
)

// recordingSink keeps the first entry of every write.
type recordingSink struct {
	mu      sync.Mutex
	entries []gcleveled.Entry
}

func (s *recordingSink) Entry(meta gcleveled.EntryMetadata, data gcleveled.EntryData) gcleveled.Entry {
	return gcleveled.NewEntry(meta, data)
}

func (s *recordingSink) Write(_ context.Context, _ logging.Severity, entries []gcleveled.Entry, callback gcleveled.Callback) {
	s.mu.Lock()
	s.entries = append(s.entries, entries[0])
	s.mu.Unlock()

	callback(nil)
}

func (s *recordingSink) last() gcleveled.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[len(s.entries)-1]
}
