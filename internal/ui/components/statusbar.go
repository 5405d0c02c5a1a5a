// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/usage"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the bottom line: model, queue depth and token counters on
// the left, a transient message on the right.
type StatusBar struct {
	Provider string
	Model    string
	Pending  int

	// Token counters from the last usage event.
	Current int64
	Today   int64
	Total   int64

	// Message replaces the key hints while set.
	Message string
	IsError bool
	seq     int

	theme *styles.Theme
}

// NewStatusBar creates a StatusBar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// Show sets the message and returns a token for Clear.
func (s *StatusBar) Show(msg string, isError bool) int {
	s.seq++
	s.Message = msg
	s.IsError = isError
	return s.seq
}

// Clear hides the message set by the Show call that returned seq. A newer
// message stays.
func (s *StatusBar) Clear(seq int) {
	if seq != s.seq {
		return
	}
	s.Message = ""
	s.IsError = false
}

// Usage formats the token counters the way the chat window shows them.
func (s *StatusBar) Usage() string {
	return fmt.Sprintf("Tokens: %s | Today: %s | Total: %s",
		usage.FormatNumber(s.Current), usage.FormatNumber(s.Today), usage.FormatNumber(s.Total))
}

// View renders the bar to exactly width columns. hints is shown on the
// right when there is no message.
func (s *StatusBar) View(width int, hints string) string {
	var left []string
	if s.Model != "" {
		model := provider.DisplayModelName(s.Model)
		if s.Provider != "" {
			model = s.Provider + ": " + model
		}
		left = append(left, model)
	}
	if s.Pending > 0 {
		left = append(left, fmt.Sprintf("%d pending", s.Pending))
	}
	left = append(left, s.Usage())
	leftText := strings.Join(left, " | ")

	right := s.theme.Help.Render(hints)
	rightWidth := util.StringWidth(hints)
	if s.Message != "" {
		style := s.theme.Notice
		if s.IsError {
			style = s.theme.Warning
		}
		right = style.Render(s.Message)
		rightWidth = util.StringWidth(s.Message)
	}

	inner := width - 2 // StatusBar padding
	if inner < 1 {
		inner = 1
	}
	gap := inner - util.StringWidth(leftText) - rightWidth
	if gap < 1 {
		// Drop the right side before cutting the model and counters.
		return s.theme.StatusBar.Render(util.PadRight(util.TruncateWidth(leftText, inner), inner))
	}
	return s.theme.StatusBar.Render(leftText + strings.Repeat(" ", gap) + right)
}
