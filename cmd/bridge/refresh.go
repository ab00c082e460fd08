// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"fmt"

	"github.com/bridge-ai/bridge/pkg/health"
	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a connectivity re-check",
		Long:  "Ask the running gateway to probe the network and the remote provider now, bypassing its cache.",
		RunE:  runRefresh,
	}
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	var st health.Status
	if err := newGatewayClient(gatewayAddress(cmd)).postJSON(cmd.Context(), "/refresh-network", nil, &st); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "network %s, remote provider %s (checked %s)\n",
		onOff(st.Online, "online", "offline"),
		onOff(st.ProviderAvailable, "available", "unavailable"),
		st.CheckedAt.Local().Format("15:04:05"),
	)
	return nil
}
