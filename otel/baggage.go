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

	"go.opentelemetry.io/otel/baggage"

	"m4o.io/gcleveled/internal/options"
)

// noinspection GoNameStartsWithPackageName.
const (
	// OtelBaggageKey is the prefix for labels obtained from the OpenTelemetry
	// Baggage to mitigate collision with other labels.
	OtelBaggageKey = "otel-baggage/"
)

// WithOtelBaggage returns an option that adds the OpenTelemetry baggage
// found in the context, if any, to the labels of every entry.
//
// Each member becomes a label whose key is the member key prefixed with
// "otel-baggage/".  Each member property becomes a label whose key is the
// member's label key followed by ";" and the property key; a property with no
// value maps to an empty label value.
//
// Baggage labels take precedence over the adapter's configured labels, and
// give way to context and per-call labels.
//
// For example, "a=one,b=two;p1;p2=val2" would map to
//
//	otel-baggage/a=one
//	otel-baggage/b=two
//	otel-baggage/b;p1=
//	otel-baggage/b;p2=val2
func WithOtelBaggage() options.OptionProcessor {
	return func(o *options.Options) {
		o.LabelAugmentors = append(o.LabelAugmentors, addBaggage)
	}
}

// MustParse wraps baggage.Parse to alleviate needless error checking
// when it's known, a priori, that an error can never happen.
func MustParse(bStr string) baggage.Baggage {
	bag, err := baggage.Parse(bStr)
	if err != nil {
		panic(err)
	}

	return bag
}

func addBaggage(ctx context.Context, labels map[string]string) {
	bag := baggage.FromContext(ctx)

	for _, m := range bag.Members() {
		key := OtelBaggageKey + m.Key()
		labels[key] = m.Value()

		for _, prop := range m.Properties() {
			val, _ := prop.Value()
			labels[key+";"+prop.Key()] = val
		}
	}
}
