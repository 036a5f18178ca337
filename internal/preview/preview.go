// Package preview renders compiled rules in a terminal, each scope drawn in
// its own color.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jsvensson/tokentheme/internal/color"
	"github.com/jsvensson/tokentheme/internal/scope"
)

// Muted styles the columns describing each rule.
var Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))

// RuleStyle returns the lipgloss style a rule is drawn with. Colors that do
// not parse as hex (unresolved references) render unstyled.
func RuleStyle(r scope.Rule) lipgloss.Style {
	st := r.Style()
	style := lipgloss.NewStyle()
	if c, err := color.ParseHex(st.Color); err == nil {
		style = style.Foreground(lipgloss.Color(c.Hex()[:7]))
	}
	for _, fs := range strings.Fields(st.FontStyle) {
		switch fs {
		case "italic":
			style = style.Italic(true)
		case "bold":
			style = style.Bold(true)
		case "underline":
			style = style.Underline(true)
		case "strikethrough":
			style = style.Strikethrough(true)
		}
	}
	return style
}

// Render writes one line per scope selector of every rule:
//
//	source.env comment  #cc8a00 italic
//
// Selectors are padded to a common width so the descriptions line up.
func Render(w io.Writer, rules []scope.Rule) error {
	width := 0
	for _, r := range rules {
		for _, s := range r.Scopes {
			width = max(width, lipgloss.Width(s))
		}
	}

	for _, r := range rules {
		style := RuleStyle(r).Width(width)
		desc := strings.TrimSpace(r.Foreground + " " + r.FontStyle)
		if r.Name != "" {
			desc += " (" + r.Name + ")"
		}
		for _, s := range r.Scopes {
			if _, err := fmt.Fprintf(w, "%s  %s\n", style.Render(s), Muted.Render(desc)); err != nil {
				return err
			}
		}
	}
	return nil
}
