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
	"log/slog"

	"cloud.google.com/go/logging"

	"m4o.io/gcleveled/internal/level"
)

// Extra slog levels, filling the gaps between the built-in ones so that every
// Cloud Logging severity can be reached from a slog.Logger.
const (
	// LevelNotice means normal but significant events, such as start up,
	// shut down, or configuration.
	LevelNotice = slog.Level(2)
	// LevelCritical means events that cause more severe problems or brief
	// outages.
	LevelCritical = slog.Level(12)
	// LevelAlert means a person must take an action immediately.
	LevelAlert = slog.Level(16)
	// LevelEmergency means one or more systems are unusable.
	LevelEmergency = slog.Level(20)
)

// SeverityOf converts a syslog style level code, 0 being the most severe, to
// a logging.Severity.
func SeverityOf(code int) logging.Severity {
	return level.ToSeverity(code)
}

// Severity returns the logging.Severity that entries logged at the named
// level are written with.  The boolean is false for an unknown level.
func (a *Adapter) Severity(levelName string) (logging.Severity, bool) {
	code, ok := a.code(levelName)
	if !ok {
		return logging.Default, false
	}

	return level.ToSeverity(code), true
}
