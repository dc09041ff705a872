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
	"sync/atomic"
)

// TraceAgent exposes the trace context of the process's tracing agent.  Both
// methods report false when no value is available.
type TraceAgent interface {
	// CurrentContextID returns the ID of the trace active in ctx.
	CurrentContextID(ctx context.Context) (string, bool)
	// WriterProjectID returns the project that owns the traces.
	WriterProjectID(ctx context.Context) (string, bool)
}

type agentHolder struct {
	agent TraceAgent
}

var traceAgent atomic.Pointer[agentHolder]

// SetTraceAgent registers the process-wide trace agent consulted by every
// Adapter when a log call carries no trace keys.  A nil agent unregisters
// the current one.
func SetTraceAgent(agent TraceAgent) {
	if agent == nil {
		traceAgent.Store(nil)
		return
	}
	traceAgent.Store(&agentHolder{agent: agent})
}

func currentTraceAgent() TraceAgent {
	h := traceAgent.Load()
	if h == nil {
		return nil
	}
	return h.agent
}

// FormatTraceResource returns a fully-qualified Cloud Trace resource name:
//
//	projects/<projectID>/traces/<traceID>
func FormatTraceResource(projectID, traceID string) string {
	return fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)
}

// agentTrace asks the registered agent for the current trace.  Nothing is
// returned unless both the context ID and the project ID resolve.
func agentTrace(ctx context.Context) (string, bool) {
	agent := currentTraceAgent()
	if agent == nil {
		return "", false
	}

	id, ok := agent.CurrentContextID(ctx)
	if !ok || id == "" {
		return "", false
	}
	project, ok := agent.WriterProjectID(ctx)
	if !ok || project == "" {
		return "", false
	}

	return FormatTraceResource(project, id), true
}
