package parser

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/jsvensson/tokentheme/internal/color"
	"github.com/jsvensson/tokentheme/internal/scope"
	"github.com/zclconf/go-cty/cty"
)

// ruleSchema describes a rule "name" { ... } block.
var ruleSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "scope", Required: true},
		{Name: "foreground"},
		{Name: "font_style"},
	},
}

type hclParser struct {
	src   []byte
	opts  Options
	ctx   *hcl.EvalContext
	doc   *Document
	diags hcl.Diagnostics
}

// ParseHCL parses an HCL scope document. Scope keys are read in source order
// from the object constructor assigned to "scopes".
func ParseHCL(src []byte, filename string, opts Options) (*Document, hcl.Diagnostics) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "internal error: parsed body is not *hclsyntax.Body",
		}}
	}

	p := &hclParser{
		src:  src,
		opts: opts,
		ctx:  evalContext(opts),
		doc:  &Document{Filename: filename, Scopes: &scope.Node{}},
	}

	var locals *hclsyntax.Block
	var rules []*hclsyntax.Block
	for _, block := range body.Blocks {
		switch block.Type {
		case "locals":
			if locals != nil {
				p.errorf(block.DefRange(), "Duplicate locals block", "Only one locals block is allowed per scope document.")
				continue
			}
			locals = block
		case "rule":
			rules = append(rules, block)
		default:
			p.errorf(block.DefRange(), "Unsupported block type", fmt.Sprintf("Blocks of type %q are not expected here (valid: locals, rule).", block.Type))
		}
	}

	// Locals must be known before scopes and rules reference them
	if locals != nil {
		p.locals(locals)
	}

	names := make([]string, 0, len(body.Attributes))
	for name := range body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attr := body.Attributes[name]
		if name != "scopes" {
			p.errorf(attr.NameRange, "Unsupported argument", fmt.Sprintf("An argument named %q is not expected here (valid: scopes).", name))
			continue
		}
		obj, ok := attr.Expr.(*hclsyntax.ObjectConsExpr)
		if !ok {
			p.errorf(attr.Expr.Range(), "Invalid scopes", "scopes must be an object of scope keys, written inline.")
			continue
		}
		p.doc.Scopes = p.object(obj, "")
	}

	for _, block := range rules {
		p.rule(block)
	}

	return p.doc, p.diags
}

// evalContext exposes palette and local to scope documents.
func evalContext(opts Options) *hcl.EvalContext {
	palette := cty.EmptyObjectVal
	switch {
	case opts.Palette != nil:
		palette = opts.Palette.Value()
	case opts.AllowUnresolved:
		palette = cty.DynamicVal
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"palette": palette,
			"local":   cty.EmptyObjectVal,
		},
	}
}

func (p *hclParser) errorf(rng hcl.Range, summary, detail string) {
	p.diags = append(p.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng.Ptr(),
	})
}

func (p *hclParser) locals(block *hclsyntax.Block) {
	for _, nested := range block.Body.Blocks {
		p.errorf(nested.DefRange(), "Unsupported block type", "locals takes attributes only.")
	}

	vals := make(map[string]cty.Value, len(block.Body.Attributes))
	for name, attr := range block.Body.Attributes {
		val, diags := attr.Expr.Value(p.ctx)
		if diags.HasErrors() {
			p.diags = append(p.diags, diags...)
			continue
		}
		// Locals may hold font styles too, so only record what parses as a color.
		if val.IsKnown() && !val.IsNull() && val.Type().Equals(cty.String) {
			if color.Validate(val.AsString()) == nil {
				p.recordColor(attr.Expr, val.AsString())
			}
		}
		vals[name] = val
	}
	p.ctx.Variables["local"] = cty.ObjectVal(vals)
}

// object converts an object constructor into a scope node rooted at parent.
func (p *hclParser) object(obj *hclsyntax.ObjectConsExpr, parent string) *scope.Node {
	node := &scope.Node{}
	seen := make(map[string]hcl.Range, len(obj.Items))

	for _, item := range obj.Items {
		keyRange := item.KeyExpr.Range()
		kv, diags := item.KeyExpr.Value(p.ctx)
		if diags.HasErrors() {
			p.diags = append(p.diags, diags...)
			continue
		}
		if kv.IsNull() || !kv.IsKnown() || !kv.Type().Equals(cty.String) {
			p.errorf(keyRange, "Invalid scope key", "Scope keys must be strings.")
			continue
		}

		key := kv.AsString()
		if first, dup := seen[key]; dup {
			p.errorf(keyRange, "Duplicate scope key", fmt.Sprintf("The key %q was already defined at %s.", key, first))
			continue
		}
		seen[key] = keyRange

		path := scope.Join(parent, key)
		if key == scope.DefaultKey {
			path = parent
		}
		idx := len(p.doc.Keys)
		p.doc.Keys = append(p.doc.Keys, Key{Range: keyRange, Key: key, Parent: parent, Path: path})

		value, ok := p.value(item.ValueExpr, parent, key, path)
		if !ok {
			continue
		}
		p.doc.Keys[idx].Value = value
		node.Set(key, value)
	}

	return node
}

func (p *hclParser) value(expr hclsyntax.Expression, parent, key, path string) (scope.Value, bool) {
	if obj, ok := expr.(*hclsyntax.ObjectConsExpr); ok {
		if key == scope.DefaultKey {
			p.diags = append(p.diags, leafDiag(expr.Range(), parent, key, scope.DefaultKey+" must be a color or [color, fontStyle]"))
			return nil, false
		}
		return p.object(obj, path), true
	}

	val, diags := expr.Value(p.ctx)
	if diags.HasErrors() {
		p.diags = append(p.diags, diags...)
		return nil, false
	}

	leaf, detail := p.leaf(val, expr)
	if detail != "" {
		p.diags = append(p.diags, leafDiag(expr.Range(), parent, key, detail))
		return nil, false
	}
	return leaf, true
}

// leaf converts an evaluated value into a style leaf. A non-empty detail
// explains why the value is malformed.
func (p *hclParser) leaf(val cty.Value, expr hclsyntax.Expression) (scope.Value, string) {
	if val.IsNull() {
		return nil, "expected a color, [color, fontStyle] or nested scopes, got null"
	}
	if !val.IsKnown() || val.Type().Equals(cty.String) {
		c, detail := p.color(val, expr)
		if detail != "" {
			return nil, detail
		}
		return scope.Color(c), ""
	}

	ty := val.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		if ty.IsObjectType() || ty.IsMapType() {
			return nil, "nested scopes must be written inline as an object"
		}
		return nil, fmt.Sprintf("expected a color, [color, fontStyle] or nested scopes, got %s", ty.FriendlyName())
	}

	elems := val.AsValueSlice()
	if len(elems) < 1 || len(elems) > 2 {
		return nil, fmt.Sprintf("a styled color is [color] or [color, fontStyle], got %d elements", len(elems))
	}

	var colorExpr hcl.Expression = expr
	if tuple, ok := expr.(*hclsyntax.TupleConsExpr); ok && len(tuple.Exprs) == len(elems) {
		colorExpr = tuple.Exprs[0]
	}
	c, detail := p.color(elems[0], colorExpr)
	if detail != "" {
		return nil, detail
	}

	styled := scope.StyledColor{Color: c}
	if len(elems) == 2 {
		fs := elems[1]
		if !fs.IsKnown() || fs.IsNull() || !fs.Type().Equals(cty.String) {
			return nil, "font style must be a string"
		}
		styled.FontStyle = fs.AsString()
	}
	return styled, ""
}

// color resolves a color value. Unknown values come from unresolved
// references and are replaced by their source text when allowed.
func (p *hclParser) color(val cty.Value, expr hcl.Expression) (string, string) {
	if !val.IsKnown() {
		if !p.opts.AllowUnresolved {
			return "", "color is not known"
		}
		text := string(expr.Range().SliceBytes(p.src))
		p.recordColor(expr, text)
		return text, ""
	}
	if val.IsNull() || !val.Type().Equals(cty.String) {
		return "", fmt.Sprintf("expected a color string, got %s", val.Type().FriendlyName())
	}
	hex := val.AsString()
	if err := color.Validate(hex); err != nil {
		return "", err.Error()
	}
	p.recordColor(expr, hex)
	return hex, ""
}

func (p *hclParser) recordColor(expr hcl.Expression, hex string) {
	p.doc.Colors = append(p.doc.Colors, ColorLiteral{
		Range: expr.Range(),
		Hex:   hex,
		IsRef: isReferenceExpr(expr),
	})
}

func (p *hclParser) rule(block *hclsyntax.Block) {
	if len(block.Labels) != 1 {
		p.errorf(block.DefRange(), "Invalid rule block", "rule blocks take exactly one label: the rule name.")
		return
	}
	name := block.Labels[0]

	content, diags := block.Body.Content(ruleSchema)
	p.diags = append(p.diags, diags...)
	if diags.HasErrors() {
		return
	}

	var scopes []string
	if diags := gohcl.DecodeExpression(content.Attributes["scope"].Expr, p.ctx, &scopes); diags.HasErrors() {
		p.diags = append(p.diags, diags...)
		return
	}

	var foreground, fontStyle string
	if attr, ok := content.Attributes["foreground"]; ok {
		val, diags := attr.Expr.Value(p.ctx)
		if diags.HasErrors() {
			p.diags = append(p.diags, diags...)
			return
		}
		c, detail := p.color(val, attr.Expr)
		if detail != "" {
			p.errorf(attr.Expr.Range(), "Invalid rule foreground", fmt.Sprintf("rule %q: %s", name, detail))
			return
		}
		foreground = c
	}
	if attr, ok := content.Attributes["font_style"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, p.ctx, &fontStyle); diags.HasErrors() {
			p.diags = append(p.diags, diags...)
			return
		}
	}

	r, err := staticRule(name, scopes, foreground, fontStyle)
	if err != nil {
		p.errorf(block.DefRange(), "Invalid rule", fmt.Sprintf("rule %q: %s", name, err))
		return
	}
	p.doc.Static = append(p.doc.Static, r)
}

// isReferenceExpr returns true if the expression is a scope traversal
// (e.g. palette.red) rather than a literal value.
func isReferenceExpr(expr hcl.Expression) bool {
	switch expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		return true
	case *hclsyntax.RelativeTraversalExpr:
		return true
	default:
		return false
	}
}
