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

package gcleveled_test

import (
	"context"
	"sync"

	"cloud.google.com/go/logging"

	"m4o.io/gcleveled"
)

type write struct {
	severity logging.Severity
	entries  []gcleveled.Entry
}

// recordingSink keeps every write and answers callbacks with err.
type recordingSink struct {
	mu     sync.Mutex
	writes []write
	err    error
}

func (s *recordingSink) Entry(meta gcleveled.EntryMetadata, data gcleveled.EntryData) gcleveled.Entry {
	return gcleveled.NewEntry(meta, data)
}

func (s *recordingSink) Write(_ context.Context, severity logging.Severity, entries []gcleveled.Entry, callback gcleveled.Callback) {
	s.mu.Lock()
	s.writes = append(s.writes, write{severity: severity, entries: entries})
	err := s.err
	s.mu.Unlock()

	callback(err)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func (s *recordingSink) last() write {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.writes) == 0 {
		return write{}
	}
	return s.writes[len(s.writes)-1]
}

func (s *recordingSink) all() []write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]write(nil), s.writes...)
}

// Got is a Logger that keeps what it is handed.
type Got struct {
	mu sync.Mutex

	LogEntries     []logging.Entry
	SyncLogEntries []logging.Entry
	Flushes        int

	FlushErr error
	SyncErr  error
}

func (g *Got) Log(e logging.Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.LogEntries = append(g.LogEntries, e)
}

func (g *Got) LogSync(_ context.Context, e logging.Entry) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SyncLogEntries = append(g.SyncLogEntries, e)
	return g.SyncErr
}

func (g *Got) Flush() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Flushes++
	return g.FlushErr
}

func (g *Got) logged() []logging.Entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]logging.Entry(nil), g.LogEntries...)
}

func (g *Got) flushes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Flushes
}
