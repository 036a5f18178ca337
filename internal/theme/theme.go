package theme

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jsvensson/tokentheme/internal/scope"
)

// Appearance is the base UI type of a theme.
type Appearance string

const (
	Dark  Appearance = "dark"
	Light Appearance = "light"
)

// Validate reports an error unless a is dark or light.
func (a Appearance) Validate() error {
	switch a {
	case Dark, Light:
		return nil
	}
	return fmt.Errorf("invalid theme type %q (valid: dark, light)", string(a))
}

// Theme is the editor color theme document written by a build.
type Theme struct {
	Name        string            `json:"name"`
	Type        Appearance        `json:"type"`
	Colors      map[string]string `json:"colors"`
	TokenColors []scope.Rule      `json:"tokenColors"`
}

// Encode writes the theme as indented JSON followed by a newline.
func (t *Theme) Encode(w io.Writer) error {
	doc := *t
	if doc.Colors == nil {
		doc.Colors = map[string]string{}
	}
	if doc.TokenColors == nil {
		doc.TokenColors = []scope.Rule{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding theme: %w", err)
	}
	return nil
}

// Decode reads a theme document written by Encode. It is used to check
// built output.
func Decode(r io.Reader) (*Theme, error) {
	var t Theme
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decoding theme: %w", err)
	}
	return &t, nil
}
