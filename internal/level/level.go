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

// Package level contains code that maps leveled-logger level codes and
// slog.Level levels to logging.Severity values and level names.
package level

import (
	"log/slog"

	"cloud.google.com/go/logging"
)

// thresholds is indexed by the syslog style level code, 0 being the most
// severe.
var thresholds = [...]logging.Severity{
	logging.Emergency,
	logging.Alert,
	logging.Critical,
	logging.Error,
	logging.Warning,
	logging.Notice,
	logging.Info,
	logging.Debug,
}

// ToSeverity converts a level code to a logging.Severity.  The last
// threshold whose code is less than or equal to code is selected; codes
// below every threshold map to logging.Emergency.
func ToSeverity(code int) logging.Severity {
	severity := thresholds[0]
	for c, s := range thresholds {
		if c > code {
			break
		}
		severity = s
	}

	return severity
}

const (
	slogNotice    = slog.Level(2)
	slogCritical  = slog.Level(12)
	slogAlert     = slog.Level(16)
	slogEmergency = slog.Level(20)
)

type named struct {
	level slog.Level
	name  string
}

// names is ordered from most to least severe.
var names = []named{
	{slogEmergency, "emergency"},
	{slogAlert, "alert"},
	{slogCritical, "critical"},
	{slog.LevelError, "error"},
	{slog.LevelWarn, "warn"},
	{slogNotice, "notice"},
	{slog.LevelInfo, "info"},
	{slog.LevelDebug, "debug"},
}

// Silly is the name used for slog levels below slog.LevelDebug.
const Silly = "silly"

// FromSlog returns the name of the most severe level whose slog.Level is
// less than or equal to l and for which known reports true.  When no such
// name is known, the name of the nearest level is returned regardless.
func FromSlog(l slog.Level, known func(name string) bool) string {
	nearest := ""
	for _, n := range names {
		if n.level > l {
			continue
		}
		if nearest == "" {
			nearest = n.name
		}
		if known(n.name) {
			return n.name
		}
	}

	if known(Silly) || nearest == "" {
		return Silly
	}

	return nearest
}
