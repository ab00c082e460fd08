// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/viper"
)

func init() {
	// Plain text regardless of the terminal running the tests.
	lipgloss.SetColorProfile(termenv.Ascii)
}

// execute runs the root command with args and returns its stdout. HOME is
// pointed at a temp dir so config bootstrap never touches the real one, and
// the global viper is reset around each run.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}
