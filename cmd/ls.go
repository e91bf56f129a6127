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

	"github.com/pier-build/pier/format"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List artifacts published in the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := getPierOptions()
		e, err := newEngine(opts)
		if err != nil {
			return err
		}

		hashes, err := e.ListPublished()
		if err != nil {
			return err
		}
		if len(hashes) == 0 {
			fmt.Println("No published artifacts.")
			return nil
		}

		rows := make([]interface{}, 0, len(hashes))
		for _, h := range hashes {
			size, count, modified, err := format.DirSize(e.ArtifactDir(h))
			if err != nil {
				continue
			}
			rows = append(rows, format.ArtifactRow{
				Hash:      h,
				Size:      format.HumanSize(size),
				FileCount: count,
				Modified:  format.Unix(modified),
			})
		}

		lines, err := format.Table(format.TableOpts{
			Rows:       rows,
			Columns:    []string{"Hash", "Size", "FileCount", "Modified"},
			ShowHeader: true,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(os.Stdout, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
