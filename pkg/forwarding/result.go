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

package forwarding

import (
	"strings"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Result is the verdict of a forwarding decision.
type Result int

const (
	// ResultUnknown is the zero value. A filter returning it abstains.
	ResultUnknown Result = iota
	// ResultForward forwards the request unchanged.
	ResultForward
	// ResultReplace forwards a rewritten request.
	ResultReplace
	// ResultReject answers the request with a rejection response.
	ResultReject
)

func (r Result) String() string {
	switch r {
	case ResultForward:
		return "forward"
	case ResultReplace:
		return "replace"
	case ResultReject:
		return "reject"
	default:
		return "unknown"
	}
}

// IsForwarding returns whether the request leaves the node downstream.
func (r Result) IsForwarding() bool {
	return r == ResultForward || r == ResultReplace
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	if r == ResultUnknown {
		return nil, serrors.New("cannot marshal unknown result")
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "forward":
		*r = ResultForward
	case "replace":
		*r = ResultReplace
	case "reject":
		*r = ResultReject
	default:
		return serrors.New("unknown forwarding result", "value", string(b))
	}
	return nil
}

// ParseDefaultPolicy parses the default policy of an adapter. Only forward
// and reject are valid policies.
func ParseDefaultPolicy(s string) (Result, error) {
	var r Result
	if err := r.UnmarshalText([]byte(s)); err != nil {
		return ResultUnknown, err
	}
	if r != ResultForward && r != ResultReject {
		return ResultUnknown, serrors.New("default policy must be forward or reject",
			"value", s)
	}
	return r, nil
}
