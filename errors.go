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
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrQueueFull is passed to the callback when the batched sink cannot
	// accept more entries.
	ErrQueueFull = errors.New("gcleveled: queue full")
	// ErrClosed is passed to the callback when writing to a closed sink.
	ErrClosed = errors.New("gcleveled: sink closed")
)

// UnknownLevelError is returned by Log when the level is not in the
// adapter's level table.
type UnknownLevelError struct {
	Level string
}

func (e *UnknownLevelError) Error() string {
	return fmt.Sprintf("Unknown log level: %s", e.Level)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorMetadata returns metadata describing err.  The stack is the
// "%+v" rendering of err, which carries the stack trace of errors created or
// wrapped by github.com/pkg/errors.  A nil err yields nil.
func ErrorMetadata(err error) Metadata {
	if err == nil {
		return nil
	}

	md := Metadata{"error": err.Error()}
	if _, ok := err.(stackTracer); ok {
		md[StackKey] = fmt.Sprintf("%+v", err)
	} else {
		md[StackKey] = err.Error()
	}

	return md
}
