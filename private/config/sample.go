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

package config

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// CtxMap holds values substituted into samples, e.g. the node id under ID.
type CtxMap map[string]string

const sampleIndent = "    "

// WriteSample writes the samples of all blocks to dst. Blocks implementing
// TableSampler are written under their own [path.name] header, with their
// body indented; other samplers are written verbatim. It panics if dst fails.
func WriteSample(dst io.Writer, path Path, ctx CtxMap, samplers ...Sampler) {
	for _, s := range samplers {
		ts, ok := s.(TableSampler)
		if !ok {
			s.Sample(dst, path, ctx)
			continue
		}
		sub := path.Extend(ts.ConfigName())
		var body bytes.Buffer
		ts.Sample(&body, sub, ctx)
		WriteString(dst, "\n["+sub.String()+"]")
		WriteString(dst, indent(body.String()))
	}
}

// indent prefixes every non-empty line of s with the sample indentation.
func indent(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	var b strings.Builder
	for _, l := range lines {
		if l != "" {
			b.WriteString(sampleIndent)
			b.WriteString(l)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteString writes s to dst. It panics if dst fails.
func WriteString(dst io.Writer, s string) {
	if _, err := io.WriteString(dst, s); err != nil {
		panic(fmt.Sprintf("writing sample: %v", err))
	}
}
