// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/bridge-ai/bridge/internal/secrets"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/cobra"
)

// secretStoreFactory creates a secrets.Store. It is a package-level variable
// so tests can substitute a mock implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: "Store, read, list and delete secrets kept under the bridge service in the operating\n" +
			"system keyring. Reference one from config as keyring://bridge/<name>.",
	}

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Print a stored secret (masked unless --show)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretGet,
	}
	get.Flags().Bool("show", false, "print the secret in clear text")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <name> [value]",
			Short: "Store a secret; the value is read from stdin when omitted",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  runSecretSet,
		},
		get,
		&cobra.Command{
			Use:   "list",
			Short: "List all stored secret names",
			RunE:  runSecretList,
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a secret by name",
			Args:  cobra.ExactArgs(1),
			RunE:  runSecretDelete,
		},
	)

	return cmd
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	var value string
	if len(args) == 2 {
		value = strings.TrimSpace(args[1])
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return bridgeerr.Errorf(bridgeerr.CodeCLIInputInvalid, "reading secret from stdin: %w", err)
		}
		value = strings.TrimSpace(line)
	}
	if value == "" {
		return bridgeerr.New(bridgeerr.CodeCLIInputInvalid, "secret value must not be empty")
	}

	if err := secretStoreFactory().Set(secrets.DefaultService, name, value); err != nil {
		return bridgeerr.Wrapf(err, bridgeerr.CodeSecretStoreFailure, "storing secret %q", name)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s. Reference it as %s\n",
		name, secrets.Ref(secrets.DefaultService, name))
	return nil
}

func runSecretGet(cmd *cobra.Command, args []string) error {
	name := args[0]

	value, err := secretStoreFactory().Get(secrets.DefaultService, name)
	if err != nil {
		if bridgeerr.IsNotFound(err) {
			return bridgeerr.Errorf(bridgeerr.CodeSecretNotFound, "secret %q not found", name)
		}
		return err
	}

	if show, _ := cmd.Flags().GetBool("show"); !show {
		value = mask(value)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	keys, err := secretStoreFactory().List(secrets.DefaultService)
	if err != nil {
		return bridgeerr.Errorf(bridgeerr.CodeSecretListFailure, "listing secrets: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(out, "No secrets stored.")
		return nil
	}

	for _, k := range keys {
		_, _ = fmt.Fprintln(out, k)
	}
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := secretStoreFactory().Delete(secrets.DefaultService, name); err != nil {
		if bridgeerr.HasCode(err, bridgeerr.CodeSecretNotFound) {
			return bridgeerr.Errorf(bridgeerr.CodeSecretNotFound, "secret %q not found", name)
		}
		return bridgeerr.Errorf(bridgeerr.CodeSecretDeleteFailure, "deleting secret %q: %w", name, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
	return nil
}

// mask keeps the last four characters of longer secrets.
func mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
