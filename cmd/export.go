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

	"github.com/spf13/cobra"

	"github.com/pier-build/pier/artifact"
	"github.com/pier-build/pier/zip"
)

var exportCmd = &cobra.Command{
	Use:   "export <hash> <dest.zip>",
	Short: "Zip a published artifact's result directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := getPierOptions()
		e, err := newEngine(opts)
		if err != nil {
			return err
		}

		hash, dest := args[0], args[1]
		ok, err := e.DoesArtifactExist(artifact.Built(hash, "."))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("pier: no published artifact with hash %q", hash)
		}
		if err := zip.Zip(e.ArtifactDir(hash), dest); err != nil {
			return fmt.Errorf("pier: failed to export %s: %w", hash, err)
		}
		fmt.Println("Exported", hash, "to", dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
