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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	spb "google.golang.org/protobuf/types/known/structpb"

	"m4o.io/gcleveled"
)

// blockingLogger holds the worker of a batched sink in Log until released.
type blockingLogger struct {
	Got

	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingLogger() *blockingLogger {
	return &blockingLogger{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (l *blockingLogger) Log(e logging.Entry) {
	l.once.Do(func() { close(l.entered) })
	<-l.release
	l.Got.Log(e)
}

func diagnosticEntry() gcleveled.Entry {
	return gcleveled.NewEntry(gcleveled.EntryMetadata{}, gcleveled.EntryData{
		Diagnostic: map[string]any{
			gcleveled.DiagnosticInfoKey: map[string]any{"instrumentation_source": []any{}},
		},
	})
}

func testEntry(message string, md gcleveled.Metadata) gcleveled.Entry {
	return gcleveled.NewEntry(gcleveled.EntryMetadata{}, gcleveled.EntryData{Message: message, Metadata: md})
}

var _ = Describe("Batched sink", func() {
	var ctx context.Context
	var got *Got
	var sink *gcleveled.BatchedSink

	BeforeEach(func() {
		ctx = context.Background()
		got = &Got{}
	})

	JustBeforeEach(func() {
		sink = gcleveled.NewBatchedSink(got, 16)
	})

	AfterEach(func() {
		Ω(sink.Close()).Should(Succeed())
	})

	When("entries are written", func() {
		It("they are logged in order, flushed and acknowledged", func() {
			done := make(chan error, 1)
			sink.Write(ctx, logging.Warning, []gcleveled.Entry{
				testEntry("first", nil),
				testEntry("second", nil),
			}, func(err error) { done <- err })

			Eventually(done).Should(Receive(BeNil()))

			logged := got.logged()
			Ω(logged).Should(HaveLen(2))
			Ω(logged[0].Severity).Should(Equal(logging.Warning))
			Ω(logged[0].Payload.(*spb.Struct).Fields["message"].GetStringValue()).Should(Equal("first"))
			Ω(logged[1].Payload.(*spb.Struct).Fields["message"].GetStringValue()).Should(Equal("second"))
			Ω(logged[0].InsertID).ShouldNot(BeEmpty())
			Ω(logged[0].InsertID).ShouldNot(Equal(logged[1].InsertID))
			Ω(got.flushes()).Should(BeNumerically(">=", 1))
		})
	})

	When("the flush fails", func() {
		flushErr := errors.New("flush failed")

		BeforeEach(func() {
			got.FlushErr = flushErr
		})

		It("the error is passed verbatim to the callback", func() {
			done := make(chan error, 1)
			sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("m", nil)}, func(err error) { done <- err })

			Eventually(done).Should(Receive(BeIdenticalTo(flushErr)))
		})
	})

	When("the sink is closed", func() {
		It("pending writes are flushed first", func() {
			for i := 0; i < 10; i++ {
				sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("m", nil)}, nil)
			}

			Ω(sink.Close()).Should(Succeed())
			Ω(got.logged()).Should(HaveLen(10))
		})

		It("later writes fail with ErrClosed", func() {
			Ω(sink.Close()).Should(Succeed())

			var werr error
			sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("m", nil)}, func(err error) { werr = err })

			Ω(werr).Should(BeIdenticalTo(gcleveled.ErrClosed))
		})
	})
})

var _ = Describe("Batched sink queue", func() {
	It("rejects writes once full, without blocking", func() {
		ctx := context.Background()
		l := newBlockingLogger()
		sink := gcleveled.NewBatchedSink(l, 1)

		sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("taken", nil)}, nil)
		Eventually(l.entered).Should(BeClosed())

		sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("queued", nil)}, nil)

		var rejected error
		sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("rejected", nil)}, func(err error) { rejected = err })
		Ω(rejected).Should(BeIdenticalTo(gcleveled.ErrQueueFull))

		close(l.release)
		Ω(sink.Close()).Should(Succeed())
		Ω(l.logged()).Should(HaveLen(2))
	})
})

var _ = Describe("Immediate sink", func() {
	var ctx context.Context
	var got *Got
	var useMessageField bool
	var sink *gcleveled.ImmediateSink

	BeforeEach(func() {
		ctx = context.Background()
		got = &Got{}
		useMessageField = false
	})

	JustBeforeEach(func() {
		sink = gcleveled.NewImmediateSink(got, useMessageField)
	})

	It("calls back before Write returns", func() {
		called := false
		sink.Write(ctx, logging.Error, []gcleveled.Entry{testEntry("m", nil)}, func(err error) {
			Ω(err).ShouldNot(HaveOccurred())
			called = true
		})

		Ω(called).Should(BeTrue())
		Ω(got.SyncLogEntries).Should(HaveLen(1))
		Ω(got.SyncLogEntries[0].Severity).Should(Equal(logging.Error))
	})

	When("the write fails", func() {
		syncErr := errors.New("write failed")

		BeforeEach(func() {
			got.SyncErr = syncErr
		})

		It("the error is passed verbatim to the callback", func() {
			var err error
			sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("m", nil)}, func(e error) { err = e })

			Ω(err).Should(BeIdenticalTo(syncErr))
		})
	})

	When("the message field is not used", func() {
		It("the entry data fields form the JSON payload", func() {
			e := gcleveled.NewEntry(gcleveled.EntryMetadata{}, gcleveled.EntryData{
				Message:        "hello",
				Metadata:       gcleveled.Metadata{"a": "b"},
				ServiceContext: &gcleveled.ServiceContext{Service: "svc", Version: "1.0"},
			})
			sink.Write(ctx, logging.Info, []gcleveled.Entry{e}, nil)

			p, ok := got.SyncLogEntries[0].Payload.(*spb.Struct)
			Ω(ok).Should(BeTrue())
			Ω(p.AsMap()).Should(Equal(map[string]any{
				"message":        "hello",
				"metadata":       map[string]any{"a": "b"},
				"serviceContext": map[string]any{"service": "svc", "version": "1.0"},
			}))
		})

		It("the instrumentation payload is written as is", func() {
			sink.Write(ctx, logging.Info, []gcleveled.Entry{diagnosticEntry()}, nil)

			p, ok := got.SyncLogEntries[0].Payload.(*spb.Struct)
			Ω(ok).Should(BeTrue())
			Ω(p.Fields).Should(HaveKey(gcleveled.DiagnosticInfoKey))
			Ω(p.Fields).ShouldNot(HaveKey("message"))
		})
	})

	When("the message field is used", func() {
		BeforeEach(func() {
			useMessageField = true
		})

		It("the entry data is nested under the message field", func() {
			sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("hello", gcleveled.Metadata{"a": 1})}, nil)

			p, ok := got.SyncLogEntries[0].Payload.(*spb.Struct)
			Ω(ok).Should(BeTrue())
			Ω(p.Fields).Should(HaveLen(1))
			Ω(p.AsMap()).Should(Equal(map[string]any{
				"message": map[string]any{
					"message":  "hello",
					"metadata": map[string]any{"a": 1.0},
				},
			}))
		})

		It("the instrumentation payload is not nested", func() {
			sink.Write(ctx, logging.Info, []gcleveled.Entry{diagnosticEntry()}, nil)

			p, ok := got.SyncLogEntries[0].Payload.(*spb.Struct)
			Ω(ok).Should(BeTrue())
			Ω(p.Fields).Should(HaveKey(gcleveled.DiagnosticInfoKey))
			Ω(p.Fields).ShouldNot(HaveKey("message"))
		})
	})

	It("writes every entry and reports the first failure", func() {
		got.SyncErr = errors.New("write failed")

		var err error
		sink.Write(ctx, logging.Info, []gcleveled.Entry{testEntry("a", nil), testEntry("b", nil)}, func(e error) { err = e })

		Ω(got.SyncLogEntries).Should(HaveLen(2))
		Ω(err).Should(BeIdenticalTo(got.SyncErr))
	})
})

var _ = Describe("Entries", func() {
	It("carry the routing fields", func() {
		got := &Got{}
		sink := gcleveled.NewImmediateSink(got, true)
		sampled := true

		e := gcleveled.NewEntry(gcleveled.EntryMetadata{
			Labels:       map[string]string{"a": "1"},
			Trace:        "projects/p/traces/t",
			SpanID:       "s",
			TraceSampled: &sampled,
		}, gcleveled.EntryData{Message: "m"})
		sink.Write(context.Background(), logging.Notice, []gcleveled.Entry{e}, nil)

		le := got.SyncLogEntries[0]
		Ω(le.Severity).Should(Equal(logging.Notice))
		Ω(le.Labels).Should(Equal(map[string]string{"a": "1"}))
		Ω(le.Trace).Should(Equal("projects/p/traces/t"))
		Ω(le.SpanID).Should(Equal("s"))
		Ω(le.TraceSampled).Should(BeTrue())
		Ω(le.InsertID).ShouldNot(BeEmpty())
	})

	It("drop values that refer back to themselves", func() {
		got := &Got{}
		sink := gcleveled.NewImmediateSink(got, false)

		md := gcleveled.Metadata{"a": "b"}
		md["self"] = map[string]any(md)
		sink.Write(context.Background(), logging.Info, []gcleveled.Entry{testEntry("m", md)}, nil)

		p := got.SyncLogEntries[0].Payload.(*spb.Struct)
		Ω(p.Fields["metadata"].GetStructValue().Fields).Should(HaveKey("a"))
		Ω(p.Fields["metadata"].GetStructValue().Fields).ShouldNot(HaveKey("self"))
	})
})
