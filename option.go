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
	"io"
	"log/slog"
	"maps"
	"os"
	"strconv"

	"google.golang.org/api/option"
	mrpb "google.golang.org/genproto/googleapis/api/monitoredres"

	"m4o.io/gcleveled/internal/options"
)

// DefaultLogName is the log ID used when none is configured.
const DefaultLogName = options.DefaultLogName

// DefaultLevels returns the level table used when none is configured.
func DefaultLevels() map[string]int {
	return options.DefaultLevels()
}

// WithLogName returns an option that specifies the Cloud Logging log ID.
func WithLogName(name string) options.OptionProcessor {
	return func(o *options.Options) {
		o.LogName = name
	}
}

// WithProjectID returns an option that specifies the project logged to.
// When omitted, the project is detected from the environment.
func WithProjectID(projectID string) options.OptionProcessor {
	return func(o *options.Options) {
		o.ProjectID = projectID
	}
}

// WithLevels returns an option that replaces the level table.  Codes follow
// the syslog convention, 0 being the most severe and 7 the least.
func WithLevels(levels map[string]int) options.OptionProcessor {
	return func(o *options.Options) {
		o.Levels = maps.Clone(levels)
	}
}

// WithResource returns an option that specifies the monitored resource
// attached to every entry.
func WithResource(resource *mrpb.MonitoredResource) options.OptionProcessor {
	return func(o *options.Options) {
		o.Resource = resource
	}
}

// WithServiceContext returns an option that specifies the service context
// attached to error entries for Cloud Error Reporting.
func WithServiceContext(service, version string) options.OptionProcessor {
	return func(o *options.Options) {
		o.ServiceContext = &ServiceContext{Service: service, Version: version}
	}
}

// WithCommonLabels returns an option that specifies labels added to every
// entry.
func WithCommonLabels(labels map[string]string) options.OptionProcessor {
	return func(o *options.Options) {
		if o.Labels == nil {
			o.Labels = make(map[string]string, len(labels))
		}
		maps.Copy(o.Labels, labels)
	}
}

// WithPrefix returns an option that prepends "[prefix] " to every message.
func WithPrefix(prefix string) options.OptionProcessor {
	return func(o *options.Options) {
		o.Prefix = prefix
	}
}

// WithInspectMetadata returns an option that replaces every metadata value
// by its textual representation.  Error metadata is left untouched.
func WithInspectMetadata() options.OptionProcessor {
	return func(o *options.Options) {
		o.InspectMetadata = true
	}
}

// WithRedirectToStdout returns an option that writes entries synchronously
// as JSON lines on stdout, where an agent such as the one of Cloud Run or
// GKE picks them up, instead of calling the Cloud Logging API.
func WithRedirectToStdout() options.OptionProcessor {
	return func(o *options.Options) {
		o.RedirectToStdout = true
	}
}

// WithRedirectWriter returns an option that writes entries synchronously as
// JSON lines on w.
func WithRedirectWriter(w io.Writer) options.OptionProcessor {
	if w == nil {
		panic("writer is nil")
	}

	return func(o *options.Options) {
		o.RedirectToStdout = true
		o.RedirectWriter = w
	}
}

// WithMessageField returns an option that, when redirecting, nests the entry
// data under the message field of the JSON payload rather than spreading its
// fields over the payload.
func WithMessageField() options.OptionProcessor {
	return func(o *options.Options) {
		o.UseMessageField = true
	}
}

// WithScopes returns an option that specifies the OAuth scopes requested by
// the Cloud Logging client.
func WithScopes(scopes ...string) options.OptionProcessor {
	return func(o *options.Options) {
		o.Scopes = scopes
	}
}

// WithClientOptions returns an option that passes opts to the Cloud Logging
// client.
func WithClientOptions(opts ...option.ClientOption) options.OptionProcessor {
	return func(o *options.Options) {
		o.ClientOptions = append(o.ClientOptions, opts...)
	}
}

// WithQueueSize returns an option that specifies how many writes the
// asynchronous sink queues before rejecting them.
func WithQueueSize(size int) options.OptionProcessor {
	return func(o *options.Options) {
		o.QueueSize = size
	}
}

// WithLogLeveler returns an option that specifies the slog.Leveler for logging.
// Explicitly setting the log level here takes precedence over the other
// options.
func WithLogLeveler(logLevel slog.Leveler) options.OptionProcessor {
	return func(o *options.Options) {
		o.ExplicitLogLevel = logLevel
	}
}

// WithLogLevelFromEnvVar returns an option that specifies the log level
// for logging comes from tne environmental variable specified by the key.
func WithLogLevelFromEnvVar(key string) options.OptionProcessor {
	if key == "" {
		panic("Env var key is empty")
	}

	var envVarLogLevel slog.Level

	setLogLevel := func(o *options.Options) {
		o.EnvVarLogLevel = envVarLogLevel
	}

	s, ok := os.LookupEnv(key)
	if !ok {
		return func(o *options.Options) {}
	}
	i, err := strconv.Atoi(s)
	if err == nil {
		envVarLogLevel = slog.Level(i)
		return setLogLevel
	}

	switch s {
	case "DEBUG":
		envVarLogLevel = slog.LevelDebug
	case "INFO":
		envVarLogLevel = slog.LevelInfo
	case "WARN":
		envVarLogLevel = slog.LevelWarn
	case "ERROR":
		envVarLogLevel = slog.LevelError
	default:
		envVarLogLevel = slog.LevelInfo
	}

	return setLogLevel
}

// WithDefaultLogLeveler returns an option that specifies the default
// slog.Leveler for logging.
func WithDefaultLogLeveler(defaultLogLevel slog.Leveler) options.OptionProcessor {
	return func(o *options.Options) {
		o.DefaultLogLevel = defaultLogLevel
	}
}

// WithSourceAdded returns an option that causes the handler to compute the
// source code position of the log statement and add it to the entry.
func WithSourceAdded() options.OptionProcessor {
	return func(o *options.Options) {
		o.AddSource = true
	}
}

// WithReplaceAttr returns an option that specifies an attribute mapper used to
// rewrite each non-group attribute before it is logged.
func WithReplaceAttr(replaceAttr AttrMapper) options.OptionProcessor {
	return func(o *options.Options) {
		o.ReplaceAttr = replaceAttr
	}
}
