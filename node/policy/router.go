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
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Route rewrites the destination Match to Target, optionally relayed via the
// given nodes.
type Route struct {
	Match  envelope.NodeID   `toml:"match"`
	Target envelope.NodeID   `toml:"target"`
	Via    []envelope.NodeID `toml:"via,omitempty"`
}

// Validate checks that the route is complete.
func (r Route) Validate() error {
	if r.Match == "" || r.Target == "" {
		return serrors.New("route requires match and target", "match", r.Match,
			"target", r.Target)
	}
	return nil
}

// Router rewrites destinations according to static routes. Requests that
// already carry an explicit via path are not rerouted.
type Router struct {
	routes map[envelope.NodeID]Route
}

// NewRouter creates a router. For duplicate matches the last route wins.
func NewRouter(routes []Route) *Router {
	m := make(map[envelope.NodeID]Route, len(routes))
	for _, r := range routes {
		m[r.Match] = r
	}
	return &Router{routes: m}
}

func (*Router) Name() string { return "router" }

func (r *Router) Filter(_ context.Context, info forwarding.FilterInfo) (forwarding.Verdict, error) {
	dst := info.Header.Destination
	route, ok := r.routes[dst.ID]
	if !ok || len(dst.Via) > 0 {
		return abstain, nil
	}
	return forwarding.Verdict{
		Result:      forwarding.ResultReplace,
		Reason:      "static route",
		Destination: envelope.Destination{ID: route.Target, Via: route.Via},
	}, nil
}
