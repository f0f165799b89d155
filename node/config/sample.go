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

package config

const forwardingSample = `
# The policy applied to requests no filter decided on, either "forward" or
# "reject". (default "forward")
default_policy = "forward"
# The number of recently seen requests remembered to drop duplicates.
# (default 4096)
dedup_cache_size = 4096
# The timeout of requests that carry no timeout of their own. (default 30s)
default_timeout = "30s"
# The timeout of a single send to a neighbour. (default 10s)
send_timeout = "10s"
# The interval between sweeps of expired pending requests. (default 1s)
sweep_interval = "1s"
`
