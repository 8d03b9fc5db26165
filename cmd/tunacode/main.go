// Copyright 2025 Kadir Pekel
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

// Command tunacode is the headless CLI surface for the orchestration
// core (spec §6).
//
// Usage:
//
//	tunacode run "<prompt>" [--auto-approve] [--output-json] [--timeout SECS] [--cwd PATH] [--model provider:model]
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface, following the teacher's
// kong.Kong-driven CLI struct pattern (cmd/hector/main.go).
type CLI struct {
	Run RunCmd `cmd:"" help:"Run one turn headlessly and exit."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("tunacode"),
		kong.Description("Headless runner for the tunacode orchestration core."),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tunacode: logger init:", err)
		os.Exit(1)
	}
	defer cleanup()

	err = ctx.Run(&cli)
	var exit *exitError
	if err != nil {
		fmt.Fprintln(os.Stderr, "tunacode:", err)
		if ok := asExitError(err, &exit); ok {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

// exitError carries a specific process exit code out of a Cmd's Run
// method, since kong's convention only distinguishes error/no-error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func asExitError(err error, target **exitError) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*exitError); ok {
			*target = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
