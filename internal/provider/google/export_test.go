// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package google

import (
	"github.com/bridge-ai/bridge/internal/provider"
	"google.golang.org/genai"
)

var (
	BuildConfig     = buildConfig
	ConvertMessages = func(msgs []provider.Message) ([]*genai.Content, error) { return convertMessages(msgs) }
)
