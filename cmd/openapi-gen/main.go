// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bridge-ai/bridge/internal/gateway"
	"github.com/bridge-ai/bridge/internal/server"
	"github.com/bridge-ai/bridge/internal/session"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/bridge-ai/bridge/pkg/health"
)

func main() {
	doc, err := generateDocument()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/openapi.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, doc, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing document: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI document written to %s\n", outPath)
}

// generateDocument builds a server with every route registered and returns the
// OpenAPI document huma derives from the handler types.
func generateDocument() ([]byte, error) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, &server.Services{
		Chat:         stubChat{},
		Sessions:     stubSessions{},
		Connectivity: stubConnectivity{},
	})
	if err != nil {
		return nil, bridgeerr.Errorf(bridgeerr.CodeCLISetupFailure, "creating server: %w", err)
	}

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// Handlers are never invoked while generating the document.

type stubChat struct{}

func (stubChat) Stream(context.Context, gateway.Request) <-chan gateway.Event { return nil }

type stubSessions struct{}

func (stubSessions) Snapshot(string) session.Snapshot { return session.Snapshot{} }
func (stubSessions) Clear(string)                     {}
func (stubSessions) Len() int                         { return 0 }

type stubConnectivity struct{}

func (stubConnectivity) Status(context.Context, bool) health.Status { return health.Status{} }
