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

// Package config provides a unified pattern for configuration structs.
//
// Every configuration block implements the Config interface, which consists of
// three parts: initialization (InitDefaults fills in unset fields), validation
// (Validate recursively checks the values) and sample generation (Sample writes
// a commented TOML sample). Each block should have a unit test checking that
// its sample parses and agrees with the defaults.
//
// Sample is allowed to panic if an error occurs during sample generation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// ID is the key of the node id in the sample context map.
const ID = "id"

// Config is the interface that config structs should implement to allow for
// streamlined initialization, validation and sample generation.
type Config interface {
	Sampler
	Validator
	Defaulter
}

// Validator defines the validation part of Config.
type Validator interface {
	// Validate recursively checks that all fields contain valid values.
	Validate() error
}

// Defaulter defines the initialization part of Config.
type Defaulter interface {
	// InitDefaults recursively initializes the default values of all
	// uninitialized fields.
	InitDefaults()
}

// Sampler defines the sample generation part of Config.
type Sampler interface {
	// Sample writes a sample config to dst. Ctx provides additional
	// information. Sample is allowed to panic if an error occurs.
	Sample(dst io.Writer, path Path, ctx CtxMap)
}

// TableSampler is a Sampler for a named TOML table.
type TableSampler interface {
	Sampler
	// ConfigName returns the name of the config block.
	ConfigName() string
}

// Path is the table header of a config block, e.g. {"transport", "uplink"}
// for [transport.uplink].
type Path []string

// Extend returns a copy of the path with name appended.
func (p Path) Extend(name string) Path {
	ext := make(Path, len(p), len(p)+1)
	copy(ext, p)
	return append(ext, name)
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// NoValidator can be embedded by blocks without validation.
type NoValidator struct{}

func (NoValidator) Validate() error { return nil }

// NoDefaulter can be embedded by blocks without defaults.
type NoDefaulter struct{}

func (NoDefaulter) InitDefaults() {}

// StringSampler is a TableSampler with a static sample.
type StringSampler struct {
	Text string
	Name string
}

func (s StringSampler) Sample(dst io.Writer, _ Path, _ CtxMap) {
	WriteString(dst, s.Text)
}

func (s StringSampler) ConfigName() string {
	return s.Name
}

// ValidateAll validates the blocks in order and returns the first error.
// The error names the failing block.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return serrors.Wrap("invalid configuration", err, "block", blockName(v))
		}
	}
	return nil
}

func blockName(v any) string {
	if ts, ok := v.(TableSampler); ok {
		return ts.ConfigName()
	}
	return fmt.Sprintf("%T", v)
}

// InitAll initializes the blocks in order.
func InitAll(defaulters ...Defaulter) {
	for _, d := range defaulters {
		d.InitDefaults()
	}
}

// Decode decodes a raw TOML document into cfg. Unknown keys are an error, so
// that typos in the configuration do not go unnoticed.
func Decode(raw []byte, cfg any) error {
	dec := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return serrors.New("unknown configuration keys", "details", strict.String())
		}
		return serrors.Wrap("decoding TOML", err)
	}
	return nil
}

// LoadFile decodes the TOML file into cfg.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return serrors.Wrap("reading configuration", err, "file", file)
	}
	return Decode(raw, cfg)
}
