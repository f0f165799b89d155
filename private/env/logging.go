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

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gridlink/ocppnode/pkg/log"
)

// StartupVersion is the version string reported by the binaries. It is
// overridden at link time with -ldflags "-X ...env.StartupVersion=...".
var StartupVersion = "dev"

// VersionInfo returns a human readable multi-line version description.
func VersionInfo() string {
	parts := []string{
		fmt.Sprintf("  Version:    %s", StartupVersion),
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		parts = append(parts, fmt.Sprintf("  Go version: %s", info.GoVersion))
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision", "vcs.time", "vcs.modified":
				parts = append(parts, fmt.Sprintf("  %s: %s", s.Key, s.Value))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// LogAppStarted should be called by applications as soon as logging is
// initialized.
func LogAppStarted(svcType, elemID string) error {
	inDocker, err := RunsInDocker()
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("=====================> Service started %s %s\n%s  %s",
		svcType, elemID, VersionInfo(), fmt.Sprintf("In docker:  %v", inDocker)))
	return nil
}

// LogAppStopped should be called by applications just before they exit.
func LogAppStopped(svcType, elemID string) {
	log.Info(fmt.Sprintf("=====================> Service stopped %s %s", svcType, elemID))
}

// RunsInDocker returns whether the current binary is run in a docker
// container.
func RunsInDocker() (bool, error) {
	_, err := os.Stat("/.dockerenv")
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
