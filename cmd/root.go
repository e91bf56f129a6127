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

// Package cmd implements the pier CLI: a thin administrative layer over
// the engine package for inspecting and exporting a local content-addressed
// store. Command construction itself (the CommandQ/Output graph a build
// actually runs) is a Go API concern, not a CLI/config-file concern — see
// SPEC_FULL.md §1's non-goals.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "pier",
	Short: "Inspect and export a pier content-addressed artifact store",
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("store-dir", "d", ".", "Project/store root directory")
	rootCmd.PersistentFlags().String("shared-cache", "", "Optional read-through shared cache directory")
	rootCmd.PersistentFlags().Int("workers", 4, "Maximum concurrent builds")
	rootCmd.PersistentFlags().Bool("keep-temp", false, "Keep sandbox temp directories after a build")
	rootCmd.PersistentFlags().String("verbosity", "normal", "Logging verbosity (quiet | normal | loud)")

	viper.BindPFlag("store-dir", rootCmd.PersistentFlags().Lookup("store-dir"))
	viper.BindPFlag("shared-cache", rootCmd.PersistentFlags().Lookup("shared-cache"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("keep-temp", rootCmd.PersistentFlags().Lookup("keep-temp"))
	viper.BindPFlag("verbosity", rootCmd.PersistentFlags().Lookup("verbosity"))
}

func initConfig() {
	viper.SetEnvPrefix("pier")
	viper.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName(".pier")
	viper.ReadInConfig()
}
