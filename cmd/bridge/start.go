// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bridge-ai/bridge/internal/config"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bridge gateway",
		Long:  "Load configuration, connect the remote provider and local engine, and serve the HTTP API.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return bridgeerr.Wrapf(err, bridgeerr.CodeCLISetupFailure, "loading config")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Wire(ctx, cfg)
	if err != nil {
		return bridgeerr.Wrapf(err, bridgeerr.CodeCLISetupFailure, "wiring gateway")
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("closing gateway", "error", err)
		}
	}()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Bridge %s listening on http://%s\n", version, cfg.Networking.Listen)
	slog.Info("gateway starting",
		"listen", cfg.Networking.Listen,
		"remote_provider", cfg.Remote.Provider,
		"remote_model", cfg.Remote.Model,
		"local_endpoint", cfg.Local.Endpoint,
	)

	if err := app.Start(ctx); err != nil {
		return err
	}
	slog.Info("gateway stopped")
	return nil
}
