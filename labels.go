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
	"log/slog"

	"m4o.io/gcleveled/internal/options"
)

const (
	maxLabels = 64
)

// LabelPair represents a key-value string pair.
type LabelPair struct {
	valid  bool
	ignore bool
	key    string
	val    string
}

// IsIgnored indicates if there's something wrong with the label pair and that it
// will not be passed in the logging record.
func (lp LabelPair) IsIgnored() bool {
	return lp.ignore
}

// LogValue returns the slog.Value of the label pair.
func (lp LabelPair) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("key", lp.key),
		slog.String("value", lp.val))
}

// Label returns a new LabelPair from a key and a value.
func Label(key, value string) LabelPair {
	return LabelPair{valid: true, ignore: false, key: key, val: value}
}

type labelsKey struct{}

func doNothing(context.Context, map[string]string) {}

// WithLabels returns a new Context with labels to be used in the entries
// logged using that context.  Context labels take precedence over the
// adapter's configured labels, but not over the labels of a log call.
func WithLabels(ctx context.Context, labelPairs ...LabelPair) context.Context {
	parentLabelClosure := labelsAugmentorFrom(ctx)

	return context.WithValue(ctx, labelsKey{},
		options.LabelAugmentor(func(ctx context.Context, labels map[string]string) {
			parentLabelClosure(ctx, labels)

			for _, labelPair := range labelPairs {
				if labelPair.ignore {
					continue
				}

				if !labelPair.valid {
					panic("invalid label passed to WithLabels()")
				}

				if _, ok := labels[labelPair.key]; !ok && len(labels) >= maxLabels {
					slog.Error("Too many labels", "ignored", labelPair)

					continue
				}

				labels[labelPair.key] = labelPair.val
			}
		}),
	)
}

// ExtractLabels extracts labels from the ctx.  These labels were associated
// with the context using WithLabels.
func ExtractLabels(ctx context.Context) map[string]string {
	labels := make(map[string]string)
	labelsAugmentorFrom(ctx)(ctx, labels)

	return labels
}

// labelsAugmentorFrom extracts the latest label closure from the context.
func labelsAugmentorFrom(ctx context.Context) options.LabelAugmentor {
	v, ok := ctx.Value(labelsKey{}).(options.LabelAugmentor)
	if !ok {
		return doNothing
	}

	return v
}
