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
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pier-build/pier/engine"
	"github.com/pier-build/pier/store/filesystem"
)

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

// pierOptions mirrors the global flags every subcommand reads, bound
// through viper so PIER_* environment variables and a config file both
// work.
type pierOptions struct {
	StoreDir    string
	SharedCache string
	Workers     int
	KeepTemp    bool
	Verbosity   string
}

func getPierOptions() pierOptions {
	return pierOptions{
		StoreDir:    viper.GetString("store-dir"),
		SharedCache: viper.GetString("shared-cache"),
		Workers:     viper.GetInt("workers"),
		KeepTemp:    viper.GetBool("keep-temp"),
		Verbosity:   viper.GetString("verbosity"),
	}
}

func verbosityFromString(s string) engine.Verbosity {
	switch s {
	case "quiet":
		return engine.Quiet
	case "loud":
		return engine.Loud
	default:
		return engine.Normal
	}
}

// newEngine constructs an Engine from the process-wide flags, for
// subcommands that need the full engine rather than just the raw store
// directory layout (ls and export, which look up published artifacts
// through it).
func newEngine(opts pierOptions) (*engine.Engine, error) {
	engineOpts := []engine.Option{
		engine.WithWorkers(opts.Workers),
		engine.WithVerbosity(verbosityFromString(opts.Verbosity)),
	}
	if opts.KeepTemp {
		engineOpts = append(engineOpts, engine.WithTempPolicy(engine.KeepTemps))
	}
	if opts.SharedCache != "" {
		engineOpts = append(engineOpts, engine.WithSharedCache(filesystem.New(opts.SharedCache)))
	}
	return engine.New(opts.StoreDir, opts.StoreDir, engineOpts...)
}

// storeRoot returns the absolute `_pier` directory for opts, without
// constructing a full Engine (used by graph, which only reads the graph log).
func storeRoot(opts pierOptions) (string, error) {
	abs, err := filepath.Abs(opts.StoreDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(abs, "_pier"), nil
}
