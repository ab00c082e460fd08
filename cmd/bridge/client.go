// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bridge-ai/bridge/internal/gateway"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultHTTPClient is used for short JSON calls. Overridden in tests.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// streamHTTPClient has no overall timeout; a chat answer may take minutes.
var streamHTTPClient = &http.Client{}

// maxFrameSize bounds a single NDJSON line read from the gateway.
const maxFrameSize = 1 << 20

// gatewayClient provides HTTP access to a running Bridge gateway.
type gatewayClient struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
}

// newGatewayClient creates a client targeting the given host:port address
// or base URL.
func newGatewayClient(addr string) *gatewayClient {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &gatewayClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    defaultHTTPClient,
		stream:  streamHTTPClient,
	}
}

// gatewayAddress returns the --address flag, or networking.listen.
func gatewayAddress(cmd *cobra.Command) string {
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		return addr
	}
	return viper.GetString("networking.listen")
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *gatewayClient) getJSON(ctx context.Context, path string, dest any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, dest)
}

// postJSON performs a POST with an optional JSON body.
func (c *gatewayClient) postJSON(ctx context.Context, path string, body, dest any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, dest)
}

func (c *gatewayClient) doJSON(ctx context.Context, method, path string, body, dest any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return requestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return bridgeerr.Errorf(bridgeerr.CodeCLIResponseInvalid, "invalid response: %w", err)
	}
	return nil
}

// streamChat posts a chat request and calls fn for each decoded frame until
// the done frame, the end of the body, or an error from fn.
func (c *gatewayClient) streamChat(ctx context.Context, body any, fn func(gateway.Event) error) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat", body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.stream.Do(req)
	if err != nil {
		return requestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev gateway.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return bridgeerr.Errorf(bridgeerr.CodeCLIResponseInvalid, "invalid frame %q: %w", line, err)
		}
		if err := fn(ev); err != nil {
			return err
		}
		if ev.Kind == gateway.EventDone {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return requestError(err)
	}

	return bridgeerr.New(bridgeerr.CodeCLIResponseInvalid, "stream ended without a done frame")
}

func (c *gatewayClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, bridgeerr.Errorf(bridgeerr.CodeCLIInputInvalid, "encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, bridgeerr.Errorf(bridgeerr.CodeCLIInputInvalid, "building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return bridgeerr.Errorf(bridgeerr.CodeCLIRequestFailure, "gateway returned status %d: %s",
		resp.StatusCode, strings.TrimSpace(string(body)))
}

func requestError(err error) error {
	if isDialError(err) {
		return bridgeerr.Errorf(bridgeerr.CodeCLIGatewayNotRunning, "gateway is not running (connection refused): %w", err)
	}
	return bridgeerr.Errorf(bridgeerr.CodeCLIRequestFailure, "request failed: %w", err)
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
