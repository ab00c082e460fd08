// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package secrets

import (
	"log/slog"
	"strings"

	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/viper"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI splits keyring://service/key into its parts.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", bridgeerr.Errorf(bridgeerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	service, key, ok := strings.Cut(strings.TrimPrefix(uri, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", bridgeerr.Errorf(bridgeerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return service, key, nil
}

// Resolve returns the secret a keyring:// value points at. Any other value
// is returned unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Get(service, key)
	if err != nil {
		return "", bridgeerr.Wrapf(err, bridgeerr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}

	return secret, nil
}

// ResolveViper replaces every keyring:// string held by v with the secret it
// references. Keys that fail to resolve are set to "" so the consumer sees
// an absent credential rather than a URI, and are returned for reporting.
func ResolveViper(v *viper.Viper, store Store) []string {
	var failed []string
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}

		resolved, err := Resolve(store, val)
		if err != nil {
			slog.Warn("could not resolve keyring reference", "config_key", key, "error", err)
			failed = append(failed, key)
			v.Set(key, "")
			continue
		}

		v.Set(key, resolved)
	}
	return failed
}
