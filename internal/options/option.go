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
Package options holds the options handling code.

The Options struct is held in this internal package to button down access.
*/
package options

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"

	"cloud.google.com/go/logging"
	"google.golang.org/api/option"
	mrpb "google.golang.org/genproto/googleapis/api/monitoredres"
)

const (
	// DefaultLogName is the Cloud Logging log ID used when none is given.
	DefaultLogName = "gcleveled_log"

	// DefaultQueueSize is the capacity of the batched sink's queue.
	DefaultQueueSize = 1024
)

var (
	levelUnknown = slog.Level(math.MaxInt)
)

// LabelAugmentor adds labels to the set being assembled for an entry.
// Augmentors run after the configured labels are applied and before the
// per-call labels, so the latter win on collision.
type LabelAugmentor func(ctx context.Context, labels map[string]string)

// ServiceContext identifies the service that produced an error so that Cloud
// Error Reporting can group it.
type ServiceContext struct {
	Service string
	Version string
}

// Options holds information needed to construct an Adapter and its slog
// Handler front end.
type Options struct {
	LogName   string
	ProjectID string

	// Levels maps level names to syslog style codes, 0 being the most
	// severe.
	Levels map[string]int

	Resource       *mrpb.MonitoredResource
	ServiceContext *ServiceContext
	Labels         map[string]string
	Prefix         string

	// InspectMetadata replaces every metadata value by its textual
	// representation before it is logged.
	InspectMetadata bool

	// RedirectToStdout selects the synchronous sink, which writes entries
	// as JSON lines to RedirectWriter instead of calling the API.
	RedirectToStdout bool
	RedirectWriter   io.Writer
	UseMessageField  bool

	Scopes        []string
	ClientOptions []option.ClientOption
	QueueSize     int

	LabelAugmentors []LabelAugmentor

	ExplicitLogLevel slog.Leveler
	EnvVarLogLevel   slog.Level
	DefaultLogLevel  slog.Leveler

	// AddSource causes the handler to compute the source code position
	// of the log statement and add it to the entry.
	AddSource bool

	// Level reports the minimum record level that will be logged.
	// The handler discards records with lower levels.
	// If Level is nil, the handler assumes LevelInfo.
	// The handler calls Level.Level() for each record processed;
	// to adjust the minimum level dynamically, use a LevelVar.
	Level slog.Leveler

	// ReplaceAttr is called to rewrite each non-group attribute before it is
	// placed in the metadata.  If ReplaceAttr returns a zero Attr, the
	// attribute is discarded.
	ReplaceAttr func(groups []string, a slog.Attr) slog.Attr
}

// DefaultLevels returns a fresh copy of the level table used when none is
// configured.
func DefaultLevels() map[string]int {
	return map[string]int{
		"error":   3,
		"warn":    4,
		"info":    6,
		"http":    6,
		"verbose": 7,
		"debug":   7,
		"silly":   7,
	}
}

type OptionProcessor func(o *Options)

func ApplyOptions(opts ...OptionProcessor) *Options {
	o := &Options{
		LogName:          DefaultLogName,
		RedirectWriter:   os.Stdout,
		Scopes:           []string{logging.WriteScope},
		QueueSize:        DefaultQueueSize,
		EnvVarLogLevel:   levelUnknown,
		ExplicitLogLevel: levelUnknown,
		DefaultLogLevel:  levelUnknown,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.Levels == nil {
		o.Levels = DefaultLevels()
	}
	if len(o.Scopes) == 0 {
		o.Scopes = []string{logging.WriteScope}
	}

	o.Level = o.DefaultLogLevel
	if o.EnvVarLogLevel != levelUnknown {
		o.Level = o.EnvVarLogLevel
	}
	if o.ExplicitLogLevel != levelUnknown {
		o.Level = o.ExplicitLogLevel
	}
	if o.Level == levelUnknown {
		o.Level = slog.LevelInfo
	}

	return o
}
