package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/validation"
)

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	muted lipgloss.Style
	pass  lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	skip  lipgloss.Style
}

func newStyles() styles {
	badge := lipgloss.NewStyle().Bold(true).Width(6)
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		muted: lipgloss.NewStyle().Faint(true),
		pass:  badge.Foreground(lipgloss.Color("10")),
		warn:  badge.Foreground(lipgloss.Color("11")),
		fail:  badge.Foreground(lipgloss.Color("9")),
		skip:  badge.Foreground(lipgloss.Color("8")),
	}
}

func (s styles) status(st validation.Status) string {
	text := strings.ToUpper(string(st))
	switch st {
	case validation.StatusPass:
		return s.pass.Render(text)
	case validation.StatusWarn:
		return s.warn.Render(text)
	case validation.StatusFail:
		return s.fail.Render(text)
	}
	return s.skip.Render(text)
}

func (s styles) violation(v compliance.Violation) string {
	if v.Blocked {
		return s.fail.Render("BLOCK")
	}
	return s.warn.Render("WARN")
}

func (s styles) severity(sev compliance.Severity) string {
	switch sev {
	case compliance.SeverityStrict:
		return s.fail.Width(9).Render(string(sev))
	case compliance.SeverityEnforced:
		return s.warn.Width(9).Render(string(sev))
	}
	return s.skip.Width(9).Render(string(sev))
}

// row lays cells out in fixed-width columns; the last cell is unbounded.
func row(widths []int, cells ...string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		if i < len(widths) && i < len(cells)-1 {
			parts[i] = lipgloss.NewStyle().Width(widths[i]).MaxWidth(widths[i]).Render(c)
			continue
		}
		parts[i] = c
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// markdownRenderer honours GLAMOUR_STYLE, then the -style flag; "auto" picks
// a style from the terminal and plain output when not attached to one.
func markdownRenderer(style string, width int) (*glamour.TermRenderer, error) {
	if env := os.Getenv("GLAMOUR_STYLE"); env != "" {
		style = env
	}

	opt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		opt = glamour.WithStandardStyle(style)
	}
	return glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
}
