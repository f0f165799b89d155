// Copyright 2026 The ocppnode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package journal

import (
	"io"
	"time"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
	"github.com/gridlink/ocppnode/pkg/private/util"
	"github.com/gridlink/ocppnode/private/config"
)

const (
	DefaultRetention     = 7 * 24 * time.Hour
	DefaultCleanInterval = 10 * time.Minute
)

const journalSample = `
# Path to the sqlite database of the decision journal. If not set, no
# journal is kept. (default "")
path = ""
# Age after which journal entries are deleted. (default 7d)
retention = "7d"
# Interval of the journal cleaner. (default 10m)
clean_interval = "10m"
`

var _ config.Config = (*Config)(nil)

// Config configures the decision journal.
type Config struct {
	Path          string       `toml:"path,omitempty"`
	Retention     util.DurWrap `toml:"retention,omitempty"`
	CleanInterval util.DurWrap `toml:"clean_interval,omitempty"`
}

func (cfg *Config) InitDefaults() {
	if cfg.Retention.Duration == 0 {
		cfg.Retention.Duration = DefaultRetention
	}
	if cfg.CleanInterval.Duration == 0 {
		cfg.CleanInterval.Duration = DefaultCleanInterval
	}
}

func (cfg *Config) Validate() error {
	if cfg.Retention.Duration < 0 || cfg.CleanInterval.Duration < 0 {
		return serrors.New("durations must not be negative",
			"retention", cfg.Retention, "clean_interval", cfg.CleanInterval)
	}
	return nil
}

func (cfg *Config) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, journalSample)
}

func (cfg *Config) ConfigName() string {
	return "journal"
}

// Enabled returns whether a journal should be kept.
func (cfg *Config) Enabled() bool {
	return cfg.Path != ""
}
