// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/bridge-ai/bridge/internal/usage"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newUsageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recorded remote token usage",
		Long:  "Read the usage ledger at usage.db_path and print totals and the most recent remote calls.",
		RunE:  runUsage,
	}

	cmd.Flags().IntP("limit", "n", 10, "number of recent calls to show")

	return cmd
}

func runUsage(cmd *cobra.Command, _ []string) error {
	path := viper.GetString("usage.db_path")
	if path == "" {
		return bridgeerr.New(bridgeerr.CodeCLISetupFailure, "usage ledger is disabled (usage.db_path is empty)")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	ledger, err := usage.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	ctx := cmd.Context()
	totals, err := ledger.Totals(ctx)
	if err != nil {
		return err
	}
	recent, err := ledger.Recent(ctx, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s %d calls, %d prompt + %d completion = %d tokens\n",
		labelStyle.Render("total:"), totals.Calls, totals.InputTokens, totals.OutputTokens, totals.TotalTokens)
	if len(recent) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tSESSION\tPROVIDER\tMODEL\tPROMPT\tCOMPLETION\tTOTAL")
	for _, r := range recent {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), shortID(r.SessionID), r.Provider, r.Model,
			r.InputTokens, r.OutputTokens, r.TotalTokens)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
