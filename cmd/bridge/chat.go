// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bridge-ai/bridge/internal/gateway"
	"github.com/bridge-ai/bridge/internal/provider"
	"github.com/bridge-ai/bridge/internal/server"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat through the gateway",
		Long: "Send a message to the running gateway and stream the answer. Starts an interactive\n" +
			"session if no message is provided. Type /help inside a session for commands.",
		RunE: runChat,
	}

	cmd.Flags().StringP("session", "s", "", "resume an existing session by id")
	cmd.Flags().Bool("offline", false, "force the local engine")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	offline, _ := cmd.Flags().GetBool("offline")

	c := &chatSession{
		cmd:       cmd,
		gw:        newGatewayClient(gatewayAddress(cmd)),
		out:       cmd.OutOrStdout(),
		sessionID: sessionID,
		online:    !offline,
	}

	if len(args) > 0 {
		return c.ask(strings.Join(args, " "))
	}
	return c.interactive(cmd.InOrStdin())
}

type chatSession struct {
	cmd       *cobra.Command
	gw        *gatewayClient
	out       io.Writer
	sessionID string
	online    bool
}

const chatHelp = `Commands:
  /online    prefer the remote provider
  /offline   use the local engine only
  /clear     forget this session's history
  /session   print the session id
  /exit      leave`

func (c *chatSession) interactive(in io.Reader) error {
	_, _ = fmt.Fprintln(c.out, dimStyle.Render("session "+c.sessionID+" (/help for commands)"))

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(c.out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(c.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/help":
			_, _ = fmt.Fprintln(c.out, chatHelp)
		case "/online":
			c.online = true
			_, _ = fmt.Fprintln(c.out, dimStyle.Render("online mode"))
		case "/offline":
			c.online = false
			_, _ = fmt.Fprintln(c.out, dimStyle.Render("offline mode"))
		case "/session":
			_, _ = fmt.Fprintln(c.out, c.sessionID)
		case "/clear":
			if err := clearSession(c.cmd, c.gw, c.sessionID); err != nil {
				_, _ = fmt.Fprintln(c.out, errorStyle.Render(err.Error()))
				continue
			}
			_, _ = fmt.Fprintln(c.out, dimStyle.Render("history cleared"))
		default:
			if err := c.ask(line); err != nil {
				_, _ = fmt.Fprintln(c.out, errorStyle.Render(err.Error()))
			}
		}
	}
}

// ask streams one answer to the output, tagging each source change.
func (c *chatSession) ask(query string) error {
	online := c.online
	req := server.ChatRequest{SessionID: c.sessionID, Query: query, Online: &online}

	var current provider.Source
	return c.gw.streamChat(c.cmd.Context(), req, func(ev gateway.Event) error {
		switch ev.Kind {
		case gateway.EventContent:
			if ev.Source != current {
				current = ev.Source
				_, _ = fmt.Fprint(c.out, sourceTag(current)+" ")
			}
			_, _ = fmt.Fprint(c.out, ev.Text)
		case gateway.EventFallback:
			if current != "" {
				_, _ = fmt.Fprintln(c.out)
			}
			current = ""
			_, _ = fmt.Fprintln(c.out, fallbackTag.Render("switching to "+string(ev.Source)+"..."))
		case gateway.EventError:
			if current != "" {
				_, _ = fmt.Fprintln(c.out)
			}
			_, _ = fmt.Fprintln(c.out, errorStyle.Render(ev.Text))
			current = ""
		case gateway.EventDone:
			if current != "" {
				_, _ = fmt.Fprintln(c.out)
			}
		}
		return nil
	})
}

func sourceTag(src provider.Source) string {
	if src == provider.SourceOnline {
		return onlineTag.Render("[online]")
	}
	return offlineTag.Render("[offline]")
}
