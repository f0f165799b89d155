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

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/node/config"
	"github.com/gridlink/ocppnode/node/policy"
)

func TestListOperations(t *testing.T) {
	testCases := map[string]struct {
		modify  func(cfg *config.Config)
		policy  string
		filters string
	}{
		"defaults": {
			modify:  func(*config.Config) {},
			policy:  "forward",
			filters: "loop_guard",
		},
		"acl and reject": {
			modify: func(cfg *config.Config) {
				cfg.Forwarding.DefaultPolicy = "reject"
				cfg.Policy.ACL = []policy.Rule{{Action: "Get*", Verdict: policy.Accept}}
			},
			policy:  "reject",
			filters: "loop_guard,acl",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var cfg config.Config
			cfg.General.ID = "n1"
			tc.modify(&cfg)
			cfg.InitDefaults()
			require.NoError(t, cfg.Validate())

			var out bytes.Buffer
			require.NoError(t, listOperations(&out, &cfg))
			assert.Contains(t, out.String(), "Default policy: "+tc.policy)

			var rows int
			for _, line := range strings.Split(out.String(), "\n") {
				fields := strings.Fields(line)
				if len(fields) != 3 || fields[0] == "ACTION" || fields[0] == "Default" {
					continue
				}
				rows++
				assert.Equal(t, tc.filters, fields[2], line)
			}
			assert.Equal(t, 9, rows)
			assert.Contains(t, out.String(), "GetCRL")
			assert.Contains(t, out.String(), "InstallCertificate")
		})
	}
}
