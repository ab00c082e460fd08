// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"errors"
	"log/slog"

	"github.com/bridge-ai/bridge/internal/config"
	"github.com/bridge-ai/bridge/internal/secrets"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root bridge command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bridge",
		Short: "Bridge: hybrid online/offline chat gateway",
		Long: "Bridge answers chat queries with a remote inference provider when the network allows it\n" +
			"and falls back to a local inference engine when it does not.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("address", "", "gateway address for client commands (default: networking.listen)")

	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newRefreshCmd(),
		newChatCmd(),
		newClearCmd(),
		newConfigCmd(),
		newSecretCmd(),
		newUsageCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return bridgeerr.Errorf(bridgeerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is left unset: with it, viper also tries the bare
		// name, which collides with a ./bridge binary.
		v.SetConfigName("bridge")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/bridge")
		v.AddConfigPath("/etc/bridge")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return bridgeerr.Errorf(bridgeerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return bridgeerr.Errorf(bridgeerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return bridgeerr.Errorf(bridgeerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	level := v.GetString("logging.level")
	if v.GetBool("verbose") {
		level = "debug"
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), level, v.GetString("logging.format")))

	config.WarnInsecurePermissions(v.ConfigFileUsed())

	if failed := secrets.ResolveViper(v, secretStoreFactory()); len(failed) > 0 {
		slog.Warn("some keyring references could not be resolved", "keys", failed)
	}

	return nil
}
