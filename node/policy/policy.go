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

// Package policy contains the built-in filter subscribers of the node.
//
// Policies only look at the routing header of a request and therefore apply
// to every operation. They are installed into the filter chain in order; the
// first policy that decides wins, a policy that abstains lets the next one
// decide.
package policy

import (
	"context"

	"github.com/gridlink/ocppnode/pkg/forwarding"
)

// Policy is a filter subscriber.
type Policy interface {
	Name() string
	Filter(ctx context.Context, info forwarding.FilterInfo) (forwarding.Verdict, error)
}

// Install subscribes the policies in order to the filter chain of all
// operations registered with a.
func Install(a *forwarding.Adapter, policies ...Policy) (forwarding.Subscription, error) {
	subs := make([]forwarding.Subscription, 0, len(policies))
	for _, p := range policies {
		sub, err := a.SubscribeFilter(p.Name(), p.Filter)
		if err != nil {
			forwarding.JoinSubscriptions(subs...).Unsubscribe()
			return forwarding.Subscription{}, err
		}
		subs = append(subs, sub)
	}
	return forwarding.JoinSubscriptions(subs...), nil
}

func reject(reason string) forwarding.Verdict {
	return forwarding.Verdict{Result: forwarding.ResultReject, Reason: reason}
}

var abstain = forwarding.Verdict{}
