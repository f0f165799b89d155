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

// Package command contains cobra commands shared by the node binaries.
package command

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gridlink/ocppnode/private/config"
	"github.com/gridlink/ocppnode/private/env"
)

// Pather returns the path to a command.
type Pather interface {
	CommandPath() string
}

// NewSample creates a command that prints a sample configuration for the
// given config to stdout.
func NewSample(pather Pather, id string, cfg config.Sampler) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Display sample configuration",
		Example: fmt.Sprintf("  %[1]s sample > config.toml\n"+
			"  %[1]s --config config.toml", pather.CommandPath()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			WriteSample(cmd.OutOrStdout(), id, cfg)
			return nil
		},
	}
	return cmd
}

// WriteSample writes the sample configuration of cfg to w.
func WriteSample(w io.Writer, id string, cfg config.Sampler) {
	config.WriteSample(w, nil, config.CtxMap{config.ID: id}, cfg)
}

// NewVersion creates a command that displays the version of the binary.
func NewVersion(pather Pather) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show the version information",
		Example: fmt.Sprintf("  %s version", pather.CommandPath()),
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), env.VersionInfo())
		},
	}
}
