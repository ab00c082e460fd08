// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package openai

import (
	"github.com/bridge-ai/bridge/internal/provider"
	openaisdk "github.com/openai/openai-go"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(model string, req provider.ChatRequest) (openaisdk.ChatCompletionNewParams, error) {
	return buildParams(model, req)
}
