// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package secrets_test

import (
	"testing"

	"github.com/bridge-ai/bridge/internal/secrets"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func init() {
	keyring.MockInit()
}

func TestKeyringStore_SetAndGet(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set("set-get", "remote", "sk-123"))

	val, err := ks.Get("set-get", "remote")
	require.NoError(t, err)
	assert.Equal(t, "sk-123", val)

	require.NoError(t, ks.Set("set-get", "remote", "sk-456"))
	val, err = ks.Get("set-get", "remote")
	require.NoError(t, err)
	assert.Equal(t, "sk-456", val)
}

func TestKeyringStore_GetNotFound(t *testing.T) {
	_, err := secrets.NewKeyringStore().Get("no-such-service", "no-key")
	require.Error(t, err)
	assert.True(t, bridgeerr.HasCode(err, bridgeerr.CodeSecretNotFound))
}

func TestKeyringStore_EmptyInputs(t *testing.T) {
	ks := secrets.NewKeyringStore()

	assert.True(t, bridgeerr.IsInvalidInput(ks.Set("", "k", "v")))
	assert.True(t, bridgeerr.IsInvalidInput(ks.Set("svc", "", "v")))
	_, err := ks.Get("", "k")
	assert.True(t, bridgeerr.IsInvalidInput(err))
	assert.True(t, bridgeerr.IsInvalidInput(ks.Delete("svc", "")))
}

func TestKeyringStore_ListTracksKeys(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "list-test"

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, ks.Set(svc, "remote", "a"))
	require.NoError(t, ks.Set(svc, "anthropic", "b"))
	require.NoError(t, ks.Set(svc, "remote", "c"))

	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "remote"}, keys)

	require.NoError(t, ks.Delete(svc, "anthropic"))
	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote"}, keys)

	require.NoError(t, ks.Delete(svc, "remote"))
	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringStore_DeleteNotFound(t *testing.T) {
	err := secrets.NewKeyringStore().Delete("delete-test", "missing")
	require.Error(t, err)
	assert.True(t, bridgeerr.HasCode(err, bridgeerr.CodeSecretNotFound))
}
