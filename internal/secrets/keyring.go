// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/zalando/go-keyring"
)

// go-keyring cannot enumerate entries, so each service keeps a JSON list of
// its key names under this suffix.
const indexSuffix = "::index"

// KeyringStore implements Store on the OS keyring (Keychain, Secret Service
// or Windows Credential Manager).
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func checkRef(op, service, key string) error {
	if service == "" {
		return bridgeerr.Errorf(bridgeerr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return bridgeerr.Errorf(bridgeerr.CodeSecretInvalidInput, "secret %s: key must not be empty", op)
	}
	return nil
}

func (s *KeyringStore) Set(service, key, value string) error {
	if err := checkRef("set", service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, value); err != nil {
		return bridgeerr.Wrapf(err, bridgeerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	keys, err := s.List(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return s.saveIndex(service, append(keys, key))
}

func (s *KeyringStore) Get(service, key string) (string, error) {
	if err := checkRef("get", service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", bridgeerr.Errorf(bridgeerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return "", bridgeerr.Wrapf(err, bridgeerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}

	err := keyring.Delete(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return bridgeerr.Errorf(bridgeerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return bridgeerr.Wrapf(err, bridgeerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	keys, err := s.List(service)
	if err != nil {
		return err
	}
	return s.saveIndex(service, slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}

func (s *KeyringStore) List(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+indexSuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, bridgeerr.Wrapf(err, bridgeerr.CodeSecretListFailure, "loading key index for %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, bridgeerr.Wrapf(err, bridgeerr.CodeSecretListFailure, "decoding key index for %s", service)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *KeyringStore) saveIndex(service string, keys []string) error {
	indexKey := service + indexSuffix

	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("failed to drop empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return bridgeerr.Wrapf(err, bridgeerr.CodeSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return bridgeerr.Wrapf(err, bridgeerr.CodeSecretListFailure, "saving key index for %s", service)
	}
	return nil
}
