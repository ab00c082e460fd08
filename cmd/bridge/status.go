// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"fmt"

	"github.com/bridge-ai/bridge/internal/server"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gateway status",
		Long:  "Query the running gateway for connectivity, remote provider health and session counts.",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr := gatewayAddress(cmd)
	out := cmd.OutOrStdout()

	var body server.StatusBody
	if err := newGatewayClient(addr).getJSON(cmd.Context(), "/api/v1/status", &body); err != nil {
		if bridgeerr.HasCode(err, bridgeerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Gateway at %s: %s (version %s)\n", addr, body.Status, body.Version)
	_, _ = fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("network: "), onOff(body.Connectivity.Online, "online", "offline"))

	if r := body.Remote; r != nil {
		state := onOff(body.Connectivity.ProviderAvailable, "available", "unavailable")
		if !r.Configured {
			state = errorStyle.Render("unconfigured: " + r.Reason)
		}
		_, _ = fmt.Fprintf(out, "  %s %s/%s %s\n", labelStyle.Render("remote:  "), r.Provider, r.Model, state)
		if h := r.Health; h != nil {
			_, _ = fmt.Fprintf(out, "  %s %d ok, %d failed\n", labelStyle.Render("calls:   "), h.SuccessCount, h.FailureCount)
		}
	}

	_, _ = fmt.Fprintf(out, "  %s %d\n", labelStyle.Render("sessions:"), body.Sessions)
	if u := body.Usage; u != nil {
		_, _ = fmt.Fprintf(out, "  %s %d calls, %d tokens\n", labelStyle.Render("usage:   "), u.Calls, u.TotalTokens)
	}
	return nil
}
