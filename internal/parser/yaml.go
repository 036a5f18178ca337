package parser

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/jsvensson/tokentheme/internal/color"
	"github.com/jsvensson/tokentheme/internal/scope"
	"gopkg.in/yaml.v3"
)

// PaletteRefPrefix marks a YAML string as a palette reference: "$dark.red".
const PaletteRefPrefix = "$"

type yamlRule struct {
	Name       string   `yaml:"name"`
	Scope      []string `yaml:"scope"`
	Foreground string   `yaml:"foreground"`
	FontStyle  string   `yaml:"fontStyle"`
}

type yamlParser struct {
	filename string
	opts     Options
	doc      *Document
	diags    hcl.Diagnostics
}

// ParseYAML parses a YAML or JSON scope document. Mapping order is preserved
// by walking the yaml.Node tree instead of decoding into Go maps.
func ParseYAML(src []byte, filename string, opts Options) (*Document, hcl.Diagnostics) {
	p := &yamlParser{
		filename: filename,
		opts:     opts,
		doc:      &Document{Filename: filename, Scopes: &scope.Node{}},
	}

	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid YAML",
			Detail:   err.Error(),
			Subject:  &hcl.Range{Filename: filename, Start: hcl.Pos{Line: 1, Column: 1}, End: hcl.Pos{Line: 1, Column: 1}},
		}}
	}

	// An empty file has no document node
	if root.Kind == 0 || len(root.Content) == 0 {
		return p.doc, nil
	}

	top := resolveAlias(root.Content[0])
	if top.Kind != yaml.MappingNode {
		p.errorf(top, "Invalid scope document", "The document must be a mapping with scopes and rules.")
		return p.doc, p.diags
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		k, v := top.Content[i], resolveAlias(top.Content[i+1])
		switch k.Value {
		case "scopes":
			if v.ShortTag() == "!!null" {
				continue
			}
			if v.Kind != yaml.MappingNode {
				p.errorf(v, "Invalid scopes", "scopes must be a mapping of scope keys.")
				continue
			}
			p.doc.Scopes = p.mapping(v, "")
		case "rules":
			p.rules(v)
		default:
			p.errorf(k, "Unsupported argument", fmt.Sprintf("An argument named %q is not expected here (valid: scopes, rules).", k.Value))
		}
	}

	return p.doc, p.diags
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// rangeOf covers the node as written. Quoted scalars start at the opening
// quote, so the range includes both quotes as HCL string ranges do.
func (p *yamlParser) rangeOf(n *yaml.Node) hcl.Range {
	end := n.Column + len(n.Value)
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		end += 2
	}
	return hcl.Range{
		Filename: p.filename,
		Start:    hcl.Pos{Line: n.Line, Column: n.Column},
		End:      hcl.Pos{Line: n.Line, Column: end},
	}
}

func (p *yamlParser) errorf(n *yaml.Node, summary, detail string) {
	rng := p.rangeOf(n)
	p.diags = append(p.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  &rng,
	})
}

func (p *yamlParser) mapping(m *yaml.Node, parent string) *scope.Node {
	node := &scope.Node{}
	seen := make(map[string]int, len(m.Content)/2)

	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], resolveAlias(m.Content[i+1])
		if k.Kind != yaml.ScalarNode {
			p.errorf(k, "Invalid scope key", "Scope keys must be strings.")
			continue
		}

		key := k.Value
		if line, dup := seen[key]; dup {
			p.errorf(k, "Duplicate scope key", fmt.Sprintf("The key %q was already defined on line %d.", key, line))
			continue
		}
		seen[key] = k.Line

		path := scope.Join(parent, key)
		if key == scope.DefaultKey {
			path = parent
		}
		idx := len(p.doc.Keys)
		p.doc.Keys = append(p.doc.Keys, Key{Range: p.rangeOf(k), Key: key, Parent: parent, Path: path})

		value, detail := p.value(v, key, path)
		if detail != "" {
			p.diags = append(p.diags, leafDiag(p.rangeOf(v), parent, key, detail))
			continue
		}
		p.doc.Keys[idx].Value = value
		node.Set(key, value)
	}

	return node
}

func (p *yamlParser) value(v *yaml.Node, key, path string) (scope.Value, string) {
	switch v.Kind {
	case yaml.MappingNode:
		if key == scope.DefaultKey {
			return nil, scope.DefaultKey + " must be a color or [color, fontStyle]"
		}
		return p.mapping(v, path), ""

	case yaml.ScalarNode:
		if v.ShortTag() != "!!str" {
			return nil, fmt.Sprintf("expected a color, [color, fontStyle] or nested scopes, got %s", v.ShortTag())
		}
		c, detail := p.color(v)
		if detail != "" {
			return nil, detail
		}
		return scope.Color(c), ""

	case yaml.SequenceNode:
		if len(v.Content) < 1 || len(v.Content) > 2 {
			return nil, fmt.Sprintf("a styled color is [color] or [color, fontStyle], got %d elements", len(v.Content))
		}
		for _, elem := range v.Content {
			if elem.Kind != yaml.ScalarNode || elem.ShortTag() != "!!str" {
				return nil, "a styled color holds strings only"
			}
		}
		c, detail := p.color(v.Content[0])
		if detail != "" {
			return nil, detail
		}
		styled := scope.StyledColor{Color: c}
		if len(v.Content) == 2 {
			styled.FontStyle = v.Content[1].Value
		}
		return styled, ""
	}

	return nil, "expected a color, [color, fontStyle] or nested scopes"
}

// color resolves "$name" palette references and validates literals.
func (p *yamlParser) color(n *yaml.Node) (string, string) {
	s := n.Value
	name, isRef := strings.CutPrefix(s, PaletteRefPrefix)
	if !isRef {
		if err := color.Validate(s); err != nil {
			return "", err.Error()
		}
		p.recordColor(n, s, false)
		return s, ""
	}

	hex, ok := p.opts.Palette.Lookup(name)
	if !ok {
		if p.opts.AllowUnresolved {
			p.recordColor(n, s, true)
			return s, ""
		}
		return "", fmt.Sprintf("unknown palette color %q", name)
	}
	p.recordColor(n, hex, true)
	return hex, ""
}

func (p *yamlParser) recordColor(n *yaml.Node, hex string, isRef bool) {
	p.doc.Colors = append(p.doc.Colors, ColorLiteral{Range: p.rangeOf(n), Hex: hex, IsRef: isRef})
}

func (p *yamlParser) rules(seq *yaml.Node) {
	if seq.ShortTag() == "!!null" {
		return
	}
	if seq.Kind != yaml.SequenceNode {
		p.errorf(seq, "Invalid rules", "rules must be a list.")
		return
	}

	for _, item := range seq.Content {
		var r yamlRule
		if err := item.Decode(&r); err != nil {
			p.errorf(item, "Invalid rule", err.Error())
			continue
		}
		if r.Name == "" {
			p.errorf(item, "Invalid rule", "rules need a name.")
			continue
		}

		foreground := r.Foreground
		if fg := mappingValue(item, "foreground"); fg != nil && foreground != "" {
			c, detail := p.color(fg)
			if detail != "" {
				p.errorf(item, "Invalid rule foreground", fmt.Sprintf("rule %q: %s", r.Name, detail))
				continue
			}
			foreground = c
		}

		rule, err := staticRule(r.Name, r.Scope, foreground, r.FontStyle)
		if err != nil {
			p.errorf(item, "Invalid rule", fmt.Sprintf("rule %q: %s", r.Name, err))
			continue
		}
		p.doc.Static = append(p.doc.Static, rule)
	}
}

// mappingValue returns the value node stored under key in mapping m.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolveAlias(m.Content[i+1])
		}
	}
	return nil
}
