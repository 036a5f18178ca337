package config

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/jsvensson/tokentheme/internal/color"
	"github.com/jsvensson/tokentheme/internal/theme"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
)

// DefaultPath is the manifest file name looked up when none is given.
const DefaultPath = "theme.hcl"

// Manifest describes one theme build: its metadata, the palette tables shared
// by all scope documents, the workbench colors and the ordered source list.
type Manifest struct {
	Name    string
	Type    theme.Appearance
	Output  string
	Sources []string
	Palette *Palette
	Colors  map[string]string

	// Dir is the directory holding the manifest. Output and Sources are
	// relative to it.
	Dir string
}

// rawManifest captures the palette block first (no EvalContext needed).
type rawManifest struct {
	Palette *paletteBlock `hcl:"palette,block"`
	Remain  hcl.Body      `hcl:",remain"`
}

type paletteBlock struct {
	Entries hcl.Body `hcl:",remain"`
}

// resolvedManifest decodes the attributes that may reference palette.
type resolvedManifest struct {
	Name    string            `hcl:"name"`
	Type    string            `hcl:"type,optional"`
	Output  string            `hcl:"output"`
	Sources []string          `hcl:"sources"`
	Colors  map[string]string `hcl:"colors,optional"`
}

// Load reads and parses the manifest at path.
func Load(fs afero.Fs, path string) (*Manifest, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(src, path)
	if err != nil {
		return nil, err
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// Parse parses manifest source. Dir is left empty.
func Parse(src []byte, filename string) (*Manifest, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing HCL: %s", diags.Error())
	}

	// First pass: extract palette (literal values, no context needed)
	var raw rawManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decoding palette: %s", diags.Error())
	}

	palette := NewPalette()
	if raw.Palette != nil {
		body, ok := raw.Palette.Entries.(*hclsyntax.Body)
		if !ok {
			return nil, fmt.Errorf("palette block is not an hclsyntax.Body")
		}
		if err := parsePaletteBody(body, "palette", palette); err != nil {
			return nil, fmt.Errorf("parsing palette: %w", err)
		}
	}

	// Second pass: everything else, evaluated against the palette
	var resolved resolvedManifest
	if diags := gohcl.DecodeBody(raw.Remain, palette.EvalContext(), &resolved); diags.HasErrors() {
		return nil, fmt.Errorf("decoding manifest: %s", diags.Error())
	}

	m := &Manifest{
		Name:    resolved.Name,
		Type:    theme.Appearance(resolved.Type),
		Output:  resolved.Output,
		Sources: resolved.Sources,
		Palette: palette,
		Colors:  resolved.Colors,
	}
	if m.Type == "" {
		m.Type = theme.Dark
	}
	if m.Colors == nil {
		m.Colors = make(map[string]string)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if err := m.Type.Validate(); err != nil {
		return err
	}
	if m.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	if len(m.Sources) == 0 {
		return fmt.Errorf("sources must list at least one scope document")
	}
	for name, value := range m.Colors {
		if err := color.Validate(value); err != nil {
			return fmt.Errorf("colors.%s: %w", name, err)
		}
	}
	return nil
}

// parsePaletteBody parses a palette block body:
// - Direct color attributes: key = "#hex"
// - Nested groups: key { sub = "#hex" }
// Palette entries are literals; they cannot reference each other.
func parsePaletteBody(body *hclsyntax.Body, prefix string, dest *Palette) error {
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("evaluating %s.%s: %s", prefix, name, diags.Error())
		}
		if val.IsNull() || !val.Type().Equals(cty.String) {
			return fmt.Errorf("%s.%s: expected a color string, got %s", prefix, name, val.Type().FriendlyName())
		}
		hex := val.AsString()
		if err := color.Validate(hex); err != nil {
			return fmt.Errorf("%s.%s: %w", prefix, name, err)
		}
		dest.Colors[name] = hex
	}

	for _, block := range body.Blocks {
		if len(block.Labels) > 0 {
			return fmt.Errorf("%s.%s: palette groups take no labels", prefix, block.Type)
		}
		if _, dup := dest.Colors[block.Type]; dup {
			return fmt.Errorf("%s.%s: defined both as a color and a group", prefix, block.Type)
		}
		if _, dup := dest.Groups[block.Type]; dup {
			return fmt.Errorf("%s.%s: group defined twice", prefix, block.Type)
		}
		group := NewPalette()
		dest.Groups[block.Type] = group
		if err := parsePaletteBody(block.Body, prefix+"."+block.Type, group); err != nil {
			return err
		}
	}

	return nil
}
