// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import "github.com/charmbracelet/lipgloss"

var (
	onlineTag   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	offlineTag  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	fallbackTag = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
)

// onOff renders a reachability flag.
func onOff(ok bool, yes, no string) string {
	if ok {
		return onlineTag.Render(yes)
	}
	return offlineTag.Render(no)
}
