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

package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var durationRegexp = regexp.MustCompile(`^(-?[0-9]+)(w|d|h|m|s|ms|us|µs|ns)$`)

var durationUnits = map[string]time.Duration{
	"w":  week,
	"d":  day,
	"h":  time.Hour,
	"m":  time.Minute,
	"s":  time.Second,
	"ms": time.Millisecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ns": time.Nanosecond,
}

// ParseDuration parses a duration consisting of an integer and a single unit
// (w, d, h, m, s, ms, us, ns), e.g. "30s" or "7d". Compound durations in Go
// syntax (e.g. "1m30s") are accepted as well.
func ParseDuration(durationStr string) (time.Duration, error) {
	matches := durationRegexp.FindStringSubmatch(durationStr)
	if len(matches) != 3 {
		d, err := time.ParseDuration(durationStr)
		if err != nil {
			return 0, serrors.New("invalid duration", "duration", durationStr)
		}
		return d, nil
	}
	n, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, serrors.Wrap("parsing duration value", err, "duration", durationStr)
	}
	return time.Duration(n) * durationUnits[matches[2]], nil
}

// FmtDuration formats d with the largest unit that represents it exactly.
func FmtDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	for _, unit := range []string{"w", "d", "h", "m", "s", "ms", "us"} {
		if d%durationUnits[unit] == 0 {
			return fmt.Sprintf("%d%s", d/durationUnits[unit], unit)
		}
	}
	return strings.TrimSpace(fmt.Sprintf("%dns", int64(d)))
}
