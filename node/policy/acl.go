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
	"fmt"
	"path"

	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Verdicts of ACL rules.
const (
	Accept = "accept"
	Deny   = "reject"
)

// Rule is an access control rule. The patterns use path.Match syntax; an
// empty pattern matches everything.
type Rule struct {
	Action      string `toml:"action,omitempty"`
	Source      string `toml:"source,omitempty"`
	Destination string `toml:"destination,omitempty"`
	Verdict     string `toml:"verdict"`
}

// Validate checks the patterns and the verdict of the rule.
func (r Rule) Validate() error {
	for _, p := range []string{r.Action, r.Source, r.Destination} {
		if _, err := path.Match(p, ""); err != nil {
			return serrors.Wrap("invalid pattern", err, "pattern", p)
		}
	}
	if r.Verdict != Accept && r.Verdict != Deny {
		return serrors.New("invalid verdict", "verdict", r.Verdict)
	}
	return nil
}

func (r Rule) matches(info forwarding.FilterInfo) bool {
	return match(r.Action, info.Header.Action) &&
		match(r.Source, string(info.Header.Origin())) &&
		match(r.Destination, string(info.Header.Destination.ID))
}

func match(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	ok, _ := path.Match(pattern, s)
	return ok
}

// ACL applies the first matching rule. Accepting abstains, so that later
// policies and the default policy still apply to accepted requests.
type ACL struct {
	Rules []Rule
}

func (ACL) Name() string { return "acl" }

func (a ACL) Filter(_ context.Context, info forwarding.FilterInfo) (forwarding.Verdict, error) {
	for i, r := range a.Rules {
		if !r.matches(info) {
			continue
		}
		if r.Verdict == Deny {
			return reject(fmt.Sprintf("acl rule %d", i)), nil
		}
		return abstain, nil
	}
	return abstain, nil
}
