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
	"io"
	"maps"
	"os"
	"sync/atomic"

	"cloud.google.com/go/logging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	mrpb "google.golang.org/genproto/googleapis/api/monitoredres"

	"m4o.io/gcleveled/internal/level"
	"m4o.io/gcleveled/internal/options"
)

const (
	// MaxEntrySize is the largest entry, in bytes, accepted by the Cloud
	// Logging client.
	MaxEntrySize = 250000

	// placeholderProject is used for the parent of a client whose logger
	// only writes to stdout and thus never calls the API.
	placeholderProject = "-"
)

// Adapter translates leveled log calls into Cloud Logging entries and hands
// them to its Sink.  An Adapter is safe for concurrent use.
type Adapter struct {
	sink   Sink
	client *logging.Client

	levels         atomic.Pointer[map[string]int]
	resource       *mrpb.MonitoredResource
	serviceContext *ServiceContext
	labels         map[string]string
	prefix         string
	inspect        atomic.Bool
	augmentors     []options.LabelAugmentor
}

// New creates an Adapter backed by a Cloud Logging client.  When redirecting
// to stdout, entries are written synchronously as JSON lines; otherwise they
// are sent asynchronously in batches.
//
// The Cloud Logging client writes its own instrumentation entry once per
// process, naming itself "go".  The adapter's instrumentation entry, naming
// InstrumentationSourceName, is written in addition to it.
func New(ctx context.Context, opts ...options.OptionProcessor) (*Adapter, error) {
	o := options.ApplyOptions(opts...)

	client, err := newClient(ctx, o)
	if err != nil {
		return nil, err
	}

	loggerOpts := []logging.LoggerOption{logging.EntryByteLimit(MaxEntrySize)}
	if o.Resource != nil {
		loggerOpts = append(loggerOpts, logging.CommonResource(o.Resource))
	}

	var sink Sink
	if o.RedirectToStdout {
		loggerOpts = append(loggerOpts, logging.RedirectAsJSON(o.RedirectWriter))
		sink = NewImmediateSink(client.Logger(o.LogName, loggerOpts...), o.UseMessageField)
	} else {
		sink = NewBatchedSink(client.Logger(o.LogName, loggerOpts...), o.QueueSize)
	}

	a := newAdapter(sink, o)
	a.client = client

	return a, nil
}

func newClient(ctx context.Context, o *options.Options) (*logging.Client, error) {
	parent := o.ProjectID
	clientOpts := []option.ClientOption{option.WithScopes(o.Scopes...)}

	if o.RedirectToStdout {
		clientOpts = append(clientOpts, option.WithoutAuthentication())
		if parent == "" {
			parent = placeholderProject
		}
	} else if parent == "" {
		parent = logging.DetectProjectID
	}
	clientOpts = append(clientOpts, o.ClientOptions...)

	client, err := logging.NewClient(ctx, parent, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating cloud logging client")
	}
	client.OnError = func(err error) {
		_, _ = fmt.Fprintf(os.Stderr, "error logging: %s\n", err)
	}

	return client, nil
}

// NewWithSink creates an Adapter that writes to sink.
func NewWithSink(sink Sink, opts ...options.OptionProcessor) *Adapter {
	if sink == nil {
		panic("sink is nil")
	}

	return newAdapter(sink, options.ApplyOptions(opts...))
}

func newAdapter(sink Sink, o *options.Options) *Adapter {
	a := &Adapter{
		sink: sink,

		resource:       o.Resource,
		serviceContext: o.ServiceContext,
		labels:         maps.Clone(o.Labels),
		prefix:         o.Prefix,
		augmentors:     o.LabelAugmentors,
	}
	a.SetLevels(o.Levels)
	a.SetInspectMetadata(o.InspectMetadata)

	return a
}

// SetLevels replaces the level table.  An empty table selects the default
// levels.  Calls already in progress keep the table they started with.
func (a *Adapter) SetLevels(levels map[string]int) {
	if len(levels) == 0 {
		levels = options.DefaultLevels()
	} else {
		levels = maps.Clone(levels)
	}
	a.levels.Store(&levels)
}

// SetInspectMetadata turns the rendering of metadata values as text on or
// off for later calls.
func (a *Adapter) SetInspectMetadata(inspect bool) {
	a.inspect.Store(inspect)
}

func (a *Adapter) code(name string) (int, bool) {
	code, ok := (*a.levels.Load())[name]
	return code, ok
}

// HasLevel reports whether name is in the adapter's level table.
func (a *Adapter) HasLevel(name string) bool {
	_, ok := a.code(name)
	return ok
}

// Log builds an entry from the call and writes it at the severity that the
// level maps to.  The first call in the process also writes an
// instrumentation entry after it; if the sink rejects that write with
// ErrQueueFull or ErrClosed, the next call tries again.
//
// An unknown level is reported as an *UnknownLevelError before anything is
// written, in which case callback is never invoked.  Otherwise the outcome
// of the write is reported to callback, possibly before Log returns.
func (a *Adapter) Log(ctx context.Context, levelName, message string, md Metadata, callback Callback) error {
	code, ok := a.code(levelName)
	if !ok {
		return errors.WithStack(&UnknownLevelError{Level: levelName})
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if callback == nil {
		callback = noop
	}

	n := normalize(message, md, a.inspect.Load())

	meta := EntryMetadata{
		Resource:       a.resource,
		HTTPRequest:    n.httpRequest,
		Timestamp:      n.timestamp,
		Labels:         a.mergeLabels(ctx, n.labels),
		SourceLocation: n.sourceLocation,
	}
	if n.traced {
		meta.Trace = n.trace
		meta.SpanID = n.spanID
		meta.TraceSampled = n.traceSampled
	} else if trace, ok := agentTrace(ctx); ok {
		meta.Trace = trace
	}

	msg := n.message
	if a.prefix != "" {
		msg = "[" + a.prefix + "] " + msg
	}

	data := EntryData{
		Message:  msg,
		Metadata: n.metadata,
	}
	if n.isError {
		data.ServiceContext = a.serviceContext
	}

	entries := []Entry{a.sink.Entry(meta, data)}
	if claimInstrumentation() {
		entries = append(entries, a.sink.Entry(EntryMetadata{Resource: a.resource}, diagnosticData()))
		callback = releaseOnRejection(callback)
	}

	a.sink.Write(ctx, level.ToSeverity(code), entries, callback)

	return nil
}

// releaseOnRejection gives the instrumentation claim back when the sink
// refuses the write, so that a later call sends the entry instead.
func releaseOnRejection(callback Callback) Callback {
	return func(err error) {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrClosed) {
			releaseInstrumentation()
		}
		callback(err)
	}
}

// mergeLabels layers the configured labels, the augmentor and context
// labels, and the call's labels, later layers winning.  Nil is returned when
// there are none.
func (a *Adapter) mergeLabels(ctx context.Context, call map[string]string) map[string]string {
	labels := make(map[string]string, len(a.labels)+len(call))
	maps.Copy(labels, a.labels)

	for _, augment := range a.augmentors {
		augment(ctx, labels)
	}
	maps.Copy(labels, ExtractLabels(ctx))
	maps.Copy(labels, call)

	if len(labels) == 0 {
		return nil
	}

	return labels
}

// Close waits for pending writes and releases the Cloud Logging client, if
// the adapter owns one.
func (a *Adapter) Close() error {
	var err error
	if c, ok := a.sink.(io.Closer); ok {
		err = c.Close()
	}
	if a.client != nil {
		if cerr := a.client.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing cloud logging client")
		}
	}

	return err
}
