// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package anthropic

import (
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/bridge-ai/bridge/internal/provider"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(model string, req provider.ChatRequest) (anthropicsdk.MessageNewParams, error) {
	return buildParams(model, req)
}
