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
Package k8s contains options for labelling entries with the labels of the
Kubernetes Pod they are logged from, as published by the Downward API.

Placing the options in a separate package minimizes the dependencies pulled in
by those who do not need labels from the Kubernetes Downward API.
*/
package k8s

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/magiconair/properties"

	"m4o.io/gcleveled/internal/options"
)

const (
	// PodPrefix is the prefix for labels obtained from the Kubernetes
	// Downward API podinfo labels file.
	PodPrefix = "k8s-pod/"

	labelsFile = "labels"
)

// WithPodinfoLabels returns an option that adds the labels of the Kubernetes
// Downward API podinfo labels file to every entry.  The labels file is
// expected to be found in the directory specified by root and MUST be named
// "labels", per the Kubernetes Downward API for Pods.
//
// The file is read once, when the option is applied.  A missing or
// malformed file is reported with slog and otherwise ignored.
//
// The labels are prefixed with "k8s-pod/" to adhere to the Google Cloud
// Logging conventions for Kubernetes Pod labels.
func WithPodinfoLabels(root string) options.OptionProcessor {
	return func(o *options.Options) {
		o.LabelAugmentors = append(o.LabelAugmentors, podinfoAugmentor(root))
	}
}

// LoadPodinfoLabels reads the podinfo labels file found in root and returns
// its labels, prefixed.
func LoadPodinfoLabels(root string) (map[string]string, error) {
	props, err := properties.LoadFile(filepath.Join(root, labelsFile), properties.UTF8)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, props.Len())
	for key, val := range props.Map() {
		labels[PodPrefix+key] = unquote(val)
	}

	return labels, nil
}

func podinfoAugmentor(root string) options.LabelAugmentor {
	labels, err := LoadPodinfoLabels(root)
	if err != nil {
		path := filepath.Join(root, labelsFile)
		if os.IsNotExist(err) {
			slog.Warn("Podinfo file does not exist", "path", path)
		} else {
			slog.Warn("Unable to load podinfo labels", "path", path, "error", err)
		}

		return func(context.Context, map[string]string) {}
	}

	return func(_ context.Context, l map[string]string) {
		maps.Copy(l, labels)
	}
}

// unquote strips the double quotes the Downward API wraps values in.
func unquote(val string) string {
	if len(val) >= 2 && strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
		return val[1 : len(val)-1]
	}
	return val
}
