package color

import (
	"fmt"
	"strings"
)

// Color represents an RGBA color literal as written in a theme. The R, G, B, A
// uint8 fields are the source of truth; all output formats are derived from them.
type Color struct {
	R, G, B, A uint8
}

// ParseHex parses a hex color literal as accepted by editor themes:
// "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa". The leading "#" is required.
func ParseHex(s string) (Color, error) {
	if !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("invalid hex color %q: must start with #", s)
	}
	digits := s[1:]

	switch len(digits) {
	case 3, 4:
		var b strings.Builder
		for _, r := range digits {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		digits = b.String()
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid hex color %q: must be 3, 4, 6 or 8 hex digits", s)
	}

	for _, r := range digits {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return Color{}, fmt.Errorf("invalid hex color %q: %q is not a hex digit", s, r)
		}
	}

	c := Color{A: 0xff}
	var err error
	if len(digits) == 8 {
		_, err = fmt.Sscanf(digits, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	} else {
		_, err = fmt.Sscanf(digits, "%02x%02x%02x", &c.R, &c.G, &c.B)
	}
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c, nil
}

// Validate reports whether s is a hex color literal accepted by ParseHex.
func Validate(s string) error {
	_, err := ParseHex(s)
	return err
}

// Opaque reports whether the color has no transparency.
func (c Color) Opaque() bool {
	return c.A == 0xff
}

// Hex returns the color as "#rrggbb", or "#rrggbbaa" when it is translucent.
func (c Color) Hex() string {
	if c.Opaque() {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// RGB returns the color as an rgb() or rgba() string, e.g. "rgb(235, 111, 146)".
func (c Color) RGB() string {
	if c.Opaque() {
		return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", c.R, c.G, c.B, float64(c.A)/255.0)
}
