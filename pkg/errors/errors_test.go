// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := bridgeerr.New(
		bridgeerr.CodeConfigValidateInvalidValue,
		"invalid remote configuration",
		bridgeerr.FieldSessionID("sess-123"),
		bridgeerr.Field("provider", "openai"),
	)

	require.Error(t, err)
	assert.Equal(t, bridgeerr.CodeConfigValidateInvalidValue, bridgeerr.CodeOf(err))
	assert.True(t, bridgeerr.HasCode(err, bridgeerr.CodeConfigValidateInvalidValue))

	fields := bridgeerr.FieldsOf(err)
	assert.Equal(t, "sess-123", fields["session_id"])
	assert.Equal(t, "openai", fields["provider"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("connection refused")
	err := bridgeerr.Errorf(bridgeerr.CodeEngineUpstreamFailure, "posting to %s: %w", "local", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, bridgeerr.CodeEngineUpstreamFailure, bridgeerr.CodeOf(err))
	assert.Contains(t, err.Error(), "posting to local")
}

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("no such key")
	err := bridgeerr.Wrap(root, bridgeerr.CodeSecretNotFound, "reading secret",
		bridgeerr.FieldProvider("openai"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, bridgeerr.IsNotFound(err))
	assert.Equal(t, "openai", bridgeerr.FieldsOf(err)["provider"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, bridgeerr.Wrap(nil, bridgeerr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, bridgeerr.Wrapf(nil, bridgeerr.CodeServerInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, bridgeerr.With(nil, bridgeerr.FieldSource("online")))
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := bridgeerr.With(stderrors.New("something broke"), bridgeerr.FieldEndpoint("https://1.1.1.1"))

	require.Error(t, enriched)
	assert.Equal(t, bridgeerr.CodeServerInternalFailure, bridgeerr.CodeOf(enriched))
	assert.Equal(t, "https://1.1.1.1", bridgeerr.FieldsOf(enriched)["endpoint"])
}

func TestWithKeepsExistingCode(t *testing.T) {
	base := bridgeerr.New(bridgeerr.CodeProviderUpstreamFailure, "stream broke")
	withCtx := bridgeerr.With(base, bridgeerr.FieldSource("online"))

	assert.Equal(t, bridgeerr.CodeProviderUpstreamFailure, bridgeerr.CodeOf(withCtx))
	assert.Equal(t, "online", bridgeerr.FieldsOf(withCtx)["source"])
}

func TestCodeOfReturnsInnermostCode(t *testing.T) {
	inner := bridgeerr.New(bridgeerr.CodeConfigMissingCredential, "no api key")
	outer := bridgeerr.Wrap(inner, bridgeerr.CodeProviderUpstreamFailure, "chat")

	assert.Equal(t, bridgeerr.CodeConfigMissingCredential, bridgeerr.CodeOf(outer))
	assert.True(t, bridgeerr.IsMissingCredential(outer))
	assert.Equal(t, bridgeerr.Code(""), bridgeerr.CodeOf(nil))
	assert.Equal(t, bridgeerr.Code(""), bridgeerr.CodeOf(stderrors.New("plain")))
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := bridgeerr.New(bridgeerr.CodeUsageStoreFailure, "insert",
		bridgeerr.Field("", "dropped"),
		bridgeerr.FieldProvider("kept"),
	)
	fields := bridgeerr.FieldsOf(err)
	assert.Equal(t, "kept", fields["provider"])
	assert.NotContains(t, fields, "")
}

func TestErrorIsWithWrappedChain(t *testing.T) {
	sentinel := stderrors.New("root cause")
	outer := bridgeerr.Wrap(fmt.Errorf("mid: %w", sentinel), bridgeerr.CodeServerInternalFailure, "handler")
	assert.ErrorIs(t, outer, sentinel)
}

func TestClassificationAndStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   bridgeerr.Code
		status int
		check  func(error) bool
	}{
		{name: "secret not found", code: bridgeerr.CodeSecretNotFound, status: 404, check: bridgeerr.IsNotFound},
		{name: "invalid value", code: bridgeerr.CodeConfigValidateInvalidValue, status: 400, check: bridgeerr.IsInvalidInput},
		{name: "invalid format", code: bridgeerr.CodeConfigParseInvalidFormat, status: 400, check: bridgeerr.IsInvalidInput},
		{name: "gateway request", code: bridgeerr.CodeGatewayRequestInvalid, status: 400, check: bridgeerr.IsInvalidInput},
		{name: "session append", code: bridgeerr.CodeSessionAppendInvalid, status: 400, check: bridgeerr.IsInvalidInput},
		{name: "rate limited", code: bridgeerr.CodeServerRateLimited, status: 429, check: bridgeerr.IsRateLimited},
		{name: "missing credential", code: bridgeerr.CodeConfigMissingCredential, status: 503, check: bridgeerr.IsMissingCredential},
		{name: "stream timeout", code: bridgeerr.CodeProviderStreamTimeout, status: 504, check: bridgeerr.IsTimeout},
		{name: "provider upstream", code: bridgeerr.CodeProviderUpstreamFailure, status: 502, check: bridgeerr.IsUpstreamFailure},
		{name: "engine upstream", code: bridgeerr.CodeEngineUpstreamFailure, status: 502, check: bridgeerr.IsUpstreamFailure},
		{name: "internal", code: bridgeerr.CodeServerInternalFailure, status: 500, check: func(err error) bool { return !bridgeerr.IsNotFound(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bridgeerr.New(tt.code, "boom")
			assert.Equal(t, tt.status, bridgeerr.HTTPStatus(err))
			assert.True(t, tt.check(err))
		})
	}
}

func TestClassificationOnNilAndPlainErrors(t *testing.T) {
	for _, err := range []error{nil, stderrors.New("plain")} {
		assert.False(t, bridgeerr.IsNotFound(err))
		assert.False(t, bridgeerr.IsInvalidInput(err))
		assert.False(t, bridgeerr.IsRateLimited(err))
		assert.False(t, bridgeerr.IsMissingCredential(err))
		assert.False(t, bridgeerr.IsTimeout(err))
		assert.False(t, bridgeerr.IsUpstreamFailure(err))
		assert.Equal(t, http.StatusInternalServerError, bridgeerr.HTTPStatus(err))
	}
}

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := bridgeerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, bridgeerr.CodeServerInternalFailure, bridgeerr.CodeOf(joined))
}
