// Copyright 2025 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package servercfg

import (
	"fmt"
	"os"
	"regexp"
)

var envPlaceholderRegex = regexp.MustCompile(`\$\$|\$\{([^}]*)\}`)

var envVarNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// interpolateEnv expands environment variable placeholders in |data|.
//
// Supported syntax:
// - ${VAR}            : VAR's value; an error if unset or empty
// - ${VAR:-default}   : VAR's value if set and non-empty, otherwise default
// - $$                : a literal '$'
func interpolateEnv(data []byte) ([]byte, error) {
	var firstErr error
	out := envPlaceholderRegex.ReplaceAllFunc(data, func(m []byte) []byte {
		if string(m) == "$$" {
			return []byte("$")
		}

		expr := string(m[2 : len(m)-1])
		name, def, hasDefault := expr, "", false
		for i := 0; i+1 < len(expr); i++ {
			if expr[i] == ':' && expr[i+1] == '-' {
				name, def, hasDefault = expr[:i], expr[i+2:], true
				break
			}
		}

		if !envVarNameRegex.MatchString(name) {
			if firstErr == nil {
				firstErr = fmt.Errorf("invalid environment variable name %q", name)
			}
			return m
		}
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return []byte(val)
		}
		if hasDefault {
			return []byte(def)
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("environment variable %q is not set", name)
		}
		return m
	})

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
