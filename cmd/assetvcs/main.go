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

package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/dolthub/assetvcs/cmd/assetvcs/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(color.Error, "error: "+err.Error())
		os.Exit(1)
	}
}
