// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"fmt"
	"net/url"

	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a session's conversation history",
		RunE:  runClear,
	}

	cmd.Flags().StringP("session", "s", "", "session id to clear (required)")

	return cmd
}

func runClear(cmd *cobra.Command, _ []string) error {
	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		return bridgeerr.New(bridgeerr.CodeCLIInputInvalid, "--session is required")
	}

	if err := clearSession(cmd, newGatewayClient(gatewayAddress(cmd)), sessionID); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared session %s\n", sessionID)
	return nil
}

func clearSession(cmd *cobra.Command, gw *gatewayClient, sessionID string) error {
	var body struct {
		Status string `json:"status"`
	}
	return gw.postJSON(cmd.Context(), "/api/chat/clear/"+url.PathEscape(sessionID), nil, &body)
}
