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

package policy

import (
	"context"

	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
)

// LoopGuard rejects requests that already passed through the local node and
// requests addressed to the local node itself.
type LoopGuard struct {
	Local envelope.NodeID
}

func (LoopGuard) Name() string { return "loop_guard" }

func (g LoopGuard) Filter(
	_ context.Context,
	info forwarding.FilterInfo,
) (forwarding.Verdict, error) {

	path := info.Header.NetworkPath
	// The last hop is the local node itself.
	if i := path.Index(g.Local); i >= 0 && i < len(path)-1 {
		return reject("routing loop"), nil
	}
	if info.Header.Destination.ID == g.Local {
		return reject("addressed to networking node"), nil
	}
	return abstain, nil
}
