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

package env

const generalSample = `
# Identity of this networking node, at most 48 characters without "/", "?",
# "#" or spaces. Every message routed through the node carries it in its
# network path. (required)
id = "%s"
`

const metricsSample = `
# Address serving prometheus metrics on /metrics, e.g. ":9090". Metrics are
# not exported if empty. (default "")
prometheus = ""
`

const tracingSample = `
# Report traces to a jaeger agent. (default false)
enabled = false
# Report every trace. (default false)
debug = false
# Fraction of traces reported if debug is off. (default 0.01)
sample_rate = 0.01
# UDP address of the jaeger agent. (default "localhost:6831")
agent = "localhost:6831"
`

const apiSample = `
# Address of the management API, e.g. "127.0.0.1:8081". The API is disabled
# if empty. (default "")
addr = ""
`
