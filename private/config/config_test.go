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

package config_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/private/config"
)

type table struct {
	Name  string `toml:"name,omitempty"`
	Limit int    `toml:"limit,omitempty"`
}

func TestWriteSample(t *testing.T) {
	var buf bytes.Buffer
	config.WriteSample(&buf, config.Path{"node"}, nil,
		config.StringSampler{Text: "\nname = \"n1\"\n\nlimit = 3\n", Name: "table"},
	)
	assert.Equal(t, "\n[node.table]\n    name = \"n1\"\n\n    limit = 3\n", buf.String())

	var parsed struct {
		Node struct {
			Table table `toml:"table"`
		} `toml:"node"`
	}
	require.NoError(t, config.Decode(buf.Bytes(), &parsed))
	assert.Equal(t, table{Name: "n1", Limit: 3}, parsed.Node.Table)
}

func TestDecodeUnknownField(t *testing.T) {
	var cfg table
	assert.Error(t, config.Decode([]byte("unknown = 1\n"), &cfg))
}

func TestPathExtend(t *testing.T) {
	p := config.Path{"a"}
	q := p.Extend("b")
	assert.Equal(t, config.Path{"a"}, p)
	assert.Equal(t, config.Path{"a", "b"}, q)
}

type failing struct {
	config.NoDefaulter
	config.StringSampler
}

func (failing) Validate() error { return assert.AnError }

func TestValidateAllNamesBlock(t *testing.T) {
	err := config.ValidateAll(
		config.NoValidator{},
		failing{StringSampler: config.StringSampler{Name: "transport"}},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "block=transport")
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "transport.uplink", config.Path{"transport", "uplink"}.String())
}
