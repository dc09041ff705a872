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
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
	mrpb "google.golang.org/genproto/googleapis/api/monitoredres"

	"m4o.io/gcleveled/internal/options"
)

// Configuration keys recognized by WithProperties.  Keys ending with a dot
// are prefixes; the remainder of the key names the label or level.
const (
	ConfigLogName          = "log_name"
	ConfigProjectID        = "project_id"
	ConfigPrefix           = "prefix"
	ConfigInspectMetadata  = "inspect_metadata"
	ConfigRedirectToStdout = "redirect_to_stdout"
	ConfigUseMessageField  = "use_message_field"
	ConfigQueueSize        = "queue_size"
	ConfigScopes           = "scopes"
	ConfigServiceName      = "service.name"
	ConfigServiceVersion   = "service.version"
	ConfigResourceType     = "resource.type"
	ConfigResourceLabels   = "resource.labels."
	ConfigLabels           = "labels."
	ConfigLevels           = "levels."
)

// WithConfigFile returns an option that applies the settings of the
// properties file found at path.  A missing or malformed file is reported
// with slog and otherwise ignored, leaving the other options in effect.
func WithConfigFile(path string) options.OptionProcessor {
	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Config file does not exist", "path", path)
		} else {
			slog.Warn("Unable to load config file", "path", path, "error", err)
		}

		return func(*options.Options) {}
	}

	return WithProperties(props)
}

// WithProperties returns an option that applies the settings held by props.
// Settings absent from props are left as they are.  Level codes that are
// not integers are reported with slog and skipped; any valid level replaces
// the whole level table.
func WithProperties(props *properties.Properties) options.OptionProcessor {
	return func(o *options.Options) {
		o.LogName = props.GetString(ConfigLogName, o.LogName)
		o.ProjectID = props.GetString(ConfigProjectID, o.ProjectID)
		o.Prefix = props.GetString(ConfigPrefix, o.Prefix)
		o.InspectMetadata = props.GetBool(ConfigInspectMetadata, o.InspectMetadata)
		o.RedirectToStdout = props.GetBool(ConfigRedirectToStdout, o.RedirectToStdout)
		o.UseMessageField = props.GetBool(ConfigUseMessageField, o.UseMessageField)
		o.QueueSize = props.GetInt(ConfigQueueSize, o.QueueSize)

		if s, ok := props.Get(ConfigScopes); ok {
			o.Scopes = splitList(s)
		}

		if name, ok := props.Get(ConfigServiceName); ok {
			o.ServiceContext = &ServiceContext{
				Service: name,
				Version: props.GetString(ConfigServiceVersion, ""),
			}
		}

		if t, ok := props.Get(ConfigResourceType); ok {
			o.Resource = &mrpb.MonitoredResource{
				Type:   t,
				Labels: props.FilterStripPrefix(ConfigResourceLabels).Map(),
			}
		}

		if labels := props.FilterStripPrefix(ConfigLabels).Map(); len(labels) > 0 {
			if o.Labels == nil {
				o.Labels = make(map[string]string, len(labels))
			}
			maps.Copy(o.Labels, labels)
		}

		if levels := levelsOf(props.FilterStripPrefix(ConfigLevels)); len(levels) > 0 {
			o.Levels = levels
		}
	}
}

func levelsOf(props *properties.Properties) map[string]int {
	levels := make(map[string]int, props.Len())
	for name, v := range props.Map() {
		code, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			slog.Warn("Ignoring level with bad code", "level", name, "code", v)
			continue
		}
		levels[name] = code
	}
	return levels
}

func splitList(s string) []string {
	var l []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			l = append(l, v)
		}
	}
	return l
}
