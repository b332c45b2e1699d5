// Copyright (c) 2026 John Earle
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

// Congressional Submission Engine: Operator Command
//
// Generates per-recipient submission artifacts for all 535 members of
// Congress, tracks manual submission status and prints the submission
// schedule.
//
// Usage:
//
//	go run ./cmd/submit/ generate [--ranks 1-50] [--tier champions] [--stance HOSTILE]
//	go run ./cmd/submit/ preview 9
//	go run ./cmd/submit/ mark H-NY-14 --channel web_form --status SUBMITTED
//	go run ./cmd/submit/ status
//	go run ./cmd/submit/ workflow
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	exitOK      = 0
	exitHard    = 1
	exitPartial = 2
)

// errPartial marks a run that completed with per-recipient failures.
var errPartial = errors.New("partial failure")

type options struct {
	configPath string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command tree and maps the outcome to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPartial):
		slog.Warn("run finished with failures", "error", err)
		return exitPartial
	default:
		slog.Error("command failed", "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitHard
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "submit",
		Short:         "Generate and track congressional submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Structured JSON logging. stdout carries reports, so logs go to stderr.
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $SUBMIT_CONFIG or config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newGenerateCmd(opts),
		newPreviewCmd(opts),
		newPlanCmd(opts),
		newStatusCmd(opts),
		newMarkCmd(opts),
		newWorkflowCmd(opts),
	)
	return root
}
