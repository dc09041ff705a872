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
	"sync"

	"cloud.google.com/go/logging"
	"github.com/google/uuid"
	spb "google.golang.org/protobuf/types/known/structpb"

	"m4o.io/gcleveled/internal/options"
	"m4o.io/gcleveled/internal/payload"
)

// maxDrain bounds how many queued writes the batched sink folds into one
// flush.
const maxDrain = 64

// Callback is notified once the entries of a write have been delivered, or
// have failed to be.
type Callback func(err error)

func noop(error) {}

// Sink builds entries and writes them, in order, at a given severity.
type Sink interface {
	Entry(meta EntryMetadata, data EntryData) Entry
	Write(ctx context.Context, severity logging.Severity, entries []Entry, callback Callback)
}

// toLoggingEntry translates e into the form accepted by the Cloud Logging
// client.
func toLoggingEntry(severity logging.Severity, e Entry, p any) logging.Entry {
	m := e.Metadata

	le := logging.Entry{
		Severity:       severity,
		Payload:        p,
		Timestamp:      m.Timestamp,
		Labels:         m.Labels,
		InsertID:       uuid.NewString(),
		HTTPRequest:    m.HTTPRequest,
		Resource:       m.Resource,
		Trace:          m.Trace,
		SpanID:         m.SpanID,
		SourceLocation: m.SourceLocation,
	}
	if m.TraceSampled != nil {
		le.TraceSampled = *m.TraceSampled
	}

	return le
}

type batch struct {
	entries  []logging.Entry
	callback Callback
}

// BatchedSink writes entries asynchronously.  Writes are queued and a single
// worker hands them to the Logger, flushing once per group of queued writes.
// The flush result is reported to every callback of the group.
type BatchedSink struct {
	log   Logger
	queue chan batch
	done  sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ Sink = (*BatchedSink)(nil)

// NewBatchedSink starts a BatchedSink around l.  Values of queueSize less
// than one select the default size.
func NewBatchedSink(l Logger, queueSize int) *BatchedSink {
	if l == nil {
		panic("logger is nil")
	}
	if queueSize < 1 {
		queueSize = options.DefaultQueueSize
	}

	s := &BatchedSink{
		log:   l,
		queue: make(chan batch, queueSize),
	}

	s.done.Add(1)
	go s.run()

	return s
}

func (s *BatchedSink) Entry(meta EntryMetadata, data EntryData) Entry {
	return NewEntry(meta, data)
}

// Write never blocks.  When the queue is full the callback receives
// ErrQueueFull before Write returns.
func (s *BatchedSink) Write(_ context.Context, severity logging.Severity, entries []Entry, callback Callback) {
	if callback == nil {
		callback = noop
	}

	b := batch{
		entries:  make([]logging.Entry, 0, len(entries)),
		callback: callback,
	}
	for _, e := range entries {
		b.entries = append(b.entries, toLoggingEntry(severity, e, payload.FromMap(e.Data.payloadFields())))
	}

	if err := s.enqueue(b); err != nil {
		callback(err)
	}
}

func (s *BatchedSink) enqueue(b batch) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	select {
	case s.queue <- b:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting writes and waits until every queued write has been
// flushed.
func (s *BatchedSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	s.done.Wait()

	return nil
}

func (s *BatchedSink) run() {
	defer s.done.Done()

	for b := range s.queue {
		pending := s.drain(b)

		for _, p := range pending {
			for _, e := range p.entries {
				s.log.Log(e)
			}
		}

		err := s.log.Flush()

		for _, p := range pending {
			p.callback(err)
		}
	}
}

func (s *BatchedSink) drain(first batch) []batch {
	pending := []batch{first}

	for len(pending) < maxDrain {
		select {
		case b, ok := <-s.queue:
			if !ok {
				return pending
			}
			pending = append(pending, b)
		default:
			return pending
		}
	}

	return pending
}

// ImmediateSink writes entries synchronously; the callback is invoked before
// Write returns.  It is meant for a Logger redirected to stdout.  The payload
// is always a JSON object: by default the entry data fields form the payload
// itself, and with useMessageField they are nested under a message field.
// Instrumentation entries are never nested.
type ImmediateSink struct {
	log             LogSync
	useMessageField bool
}

var _ Sink = (*ImmediateSink)(nil)

// NewImmediateSink returns an ImmediateSink around l.
func NewImmediateSink(l LogSync, useMessageField bool) *ImmediateSink {
	if l == nil {
		panic("logger is nil")
	}

	return &ImmediateSink{log: l, useMessageField: useMessageField}
}

func (s *ImmediateSink) Entry(meta EntryMetadata, data EntryData) Entry {
	return NewEntry(meta, data)
}

// Write writes every entry, reporting the first failure to the callback.
func (s *ImmediateSink) Write(ctx context.Context, severity logging.Severity, entries []Entry, callback Callback) {
	if callback == nil {
		callback = noop
	}

	var err error
	for _, e := range entries {
		werr := s.log.LogSync(ctx, toLoggingEntry(severity, e, s.render(e.Data)))
		if werr != nil && err == nil {
			err = werr
		}
	}

	callback(err)
}

func (s *ImmediateSink) render(d EntryData) *spb.Struct {
	fields := d.payloadFields()
	if s.useMessageField && d.Diagnostic == nil {
		fields = map[string]any{MessageKey: fields}
	}

	return payload.FromMap(fields)
}
