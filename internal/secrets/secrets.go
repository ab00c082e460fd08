// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

// Package secrets keeps provider credentials out of plain-text config by
// storing them in the OS keyring and resolving keyring:// references.
package secrets

const (
	// DefaultService is the keyring service used by the CLI.
	DefaultService = "bridge"
	// RemoteAPIKey is the key name conventionally holding remote.api_key.
	RemoteAPIKey = "remote"
)

// Store provides secret storage operations.
type Store interface {
	// Set saves value under service/key, replacing any previous value.
	Set(service, key, value string) error

	// Get fetches the value for service/key. A missing entry yields an error
	// carrying CodeSecretNotFound.
	Get(service, key string) (string, error)

	// Delete removes service/key. A missing entry yields CodeSecretNotFound.
	Delete(service, key string) error

	// List returns the key names stored under service, sorted.
	List(service string) ([]string, error)
}

// Ref returns the keyring:// reference for service/key.
func Ref(service, key string) string {
	return keyringScheme + service + "/" + key
}
