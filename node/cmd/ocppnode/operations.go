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
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gridlink/ocppnode/node/config"
	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
	"github.com/gridlink/ocppnode/private/app/command"
	libconfig "github.com/gridlink/ocppnode/private/config"
)

func newOperations(pather command.Pather) *cobra.Command {
	var flags struct {
		config string
	}
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the forwarded operations and the filters installed on them",
		Example: fmt.Sprintf("  %[1]s operations\n  %[1]s operations --config node.toml",
			pather.CommandPath()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			log.Discard()
			if flags.config != "" {
				if err := libconfig.LoadFile(flags.config, &globalCfg); err != nil {
					return serrors.Wrap("loading config", err, "file", flags.config)
				}
			}
			globalCfg.InitDefaults()
			if globalCfg.General.ID == "" {
				globalCfg.General.ID = "ocppnode"
			}
			if err := globalCfg.Validate(); err != nil {
				return err
			}
			return listOperations(cmd.OutOrStdout(), &globalCfg)
		},
	}
	cmd.Flags().StringVar(&flags.config, "config", "", "Configuration file")
	return cmd
}

func listOperations(w io.Writer, cfg *config.Config) error {
	p, err := cfg.Forwarding.Policy()
	if err != nil {
		return err
	}
	adapter, err := newAdapter(envelope.NodeID(cfg.General.ID), p, cfg.Policy, nil, nil)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(adapter.Actions()))
	for _, op := range adapter.Operations() {
		binary := "no"
		if op.AllowBinary {
			binary = "yes"
		}
		rows = append(rows, []string{
			op.Action,
			binary,
			strings.Join(op.Subscribers[forwarding.EventRequestFilter], ","),
		})
	}
	fmt.Fprintf(w, "Default policy: %s\n\n", p)
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"ACTION", "BINARY", "FILTERS"})
	table.AppendBulk(rows)
	table.Render()
	return nil
}
