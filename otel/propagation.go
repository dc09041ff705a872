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

package otel

import (
	"context"
	"net/http"

	gcppropagator "github.com/GoogleCloudPlatform/opentelemetry-operations-go/propagator"
	"go.opentelemetry.io/otel/propagation"
)

// Propagator accepts Google Cloud's X-Cloud-Trace-Context header as well as
// the W3C trace context and baggage headers.  The latter win when both are
// present.
var Propagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
	gcppropagator.CloudTraceOneWayPropagator{},
	propagation.TraceContext{},
	propagation.Baggage{},
)

// ContextFromRequest returns the request's context augmented with the remote
// span and baggage carried by its headers.
func ContextFromRequest(r *http.Request) context.Context {
	return Propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}
