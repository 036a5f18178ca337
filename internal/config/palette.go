package config

import (
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Palette is a named color table. Groups nest, so "dim.red" names the color
// red inside the group dim.
type Palette struct {
	Colors map[string]string
	Groups map[string]*Palette
}

// NewPalette returns an empty palette.
func NewPalette() *Palette {
	return &Palette{
		Colors: make(map[string]string),
		Groups: make(map[string]*Palette),
	}
}

// Lookup resolves a dot-separated name such as "dim.red" to its color.
func (p *Palette) Lookup(name string) (string, bool) {
	if p == nil || name == "" {
		return "", false
	}
	parts := strings.Split(name, ".")
	current := p
	for _, part := range parts[:len(parts)-1] {
		group, ok := current.Groups[part]
		if !ok {
			return "", false
		}
		current = group
	}
	hex, ok := current.Colors[parts[len(parts)-1]]
	return hex, ok
}

// Names returns every color name in the palette, fully qualified and sorted.
func (p *Palette) Names() []string {
	var names []string
	var walk func(prefix string, p *Palette)
	walk = func(prefix string, p *Palette) {
		for name := range p.Colors {
			names = append(names, prefix+name)
		}
		for name, group := range p.Groups {
			walk(prefix+name+".", group)
		}
	}
	if p != nil {
		walk("", p)
	}
	sort.Strings(names)
	return names
}

// Value converts the palette to a cty object for HCL evaluation.
func (p *Palette) Value() cty.Value {
	if p == nil {
		return cty.EmptyObjectVal
	}

	vals := make(map[string]cty.Value, len(p.Colors)+len(p.Groups))

	// Sort keys for deterministic output
	keys := make([]string, 0, len(p.Colors))
	for k := range p.Colors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals[k] = cty.StringVal(p.Colors[k])
	}
	for name, group := range p.Groups {
		vals[name] = group.Value()
	}

	return cty.ObjectVal(vals)
}

// EvalContext exposes the palette as the "palette" variable.
func (p *Palette) EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"palette": p.Value(),
		},
	}
}
