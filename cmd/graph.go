// Copyright 2020 Fugue, Inc.
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
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pier-build/pier/engine"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the recorded build-hash dependency graph as Graphviz DOT",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := storeRoot(getPierOptions())
		if err != nil {
			return err
		}
		g, err := engine.LoadGraphLog(root)
		if err != nil {
			return err
		}
		if g.Count() == 0 {
			fmt.Fprintln(os.Stderr, "No dependency edges recorded yet.")
			return nil
		}
		os.Stdout.Write(g.ExportDOT())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
