package lsp

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/jsvensson/tokentheme/internal/color"
	"github.com/jsvensson/tokentheme/internal/config"
	"github.com/jsvensson/tokentheme/internal/parser"
	"github.com/jsvensson/tokentheme/internal/scope"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	DiagError   = protocol.DiagnosticSeverityError
	DiagWarning = protocol.DiagnosticSeverityWarning
)

const diagSource = "tokentheme"

// AnalysisResult holds all information produced by analyzing a scope document.
type AnalysisResult struct {
	Diagnostics []protocol.Diagnostic
	// Document is nil when the file could not be parsed at all.
	Document *parser.Document
	// Palette is the manifest palette, nil when no manifest was found.
	Palette *config.Palette
	// Symbols maps "local.tag" or "palette.dim.red" to its definition.
	Symbols map[string]protocol.Location
	Colors  []ColorLocation
}

// ColorLocation records a resolved color at a specific source position.
type ColorLocation struct {
	Range protocol.Range
	Color color.Color
	IsRef bool // true if this is a palette or local reference (not a hex literal)
}

// hclPosToLSP converts an HCL position to an LSP position.
// HCL positions are 1-based; LSP positions are 0-based.
func hclPosToLSP(pos hcl.Pos) protocol.Position {
	return protocol.Position{
		Line:      uint32(max(pos.Line-1, 0)),
		Character: uint32(max(pos.Column-1, 0)),
	}
}

// hclRangeToLSP converts an HCL range to an LSP range.
func hclRangeToLSP(r hcl.Range) protocol.Range {
	return protocol.Range{
		Start: hclPosToLSP(r.Start),
		End:   hclPosToLSP(r.End),
	}
}

// Analyze parses a scope document from memory and produces diagnostics,
// symbols and color locations. When m is nil, palette references cannot be
// checked and are accepted as written.
//
// Parse problems are all reported. Compile errors are only looked for once
// the document parses, and the first one is placed on the key it names.
func Analyze(filename, content string, m *Manifest) *AnalysisResult {
	result := &AnalysisResult{
		Symbols: make(map[string]protocol.Location),
	}

	opts := parser.Options{AllowUnresolved: true}
	if m != nil {
		opts = parser.Options{Palette: m.Palette}
		result.Palette = m.Palette
		for name, loc := range m.Symbols {
			result.Symbols[name] = loc
		}
	}

	doc, diags := parser.ParseDocument([]byte(content), filename, opts)
	for _, d := range diags {
		result.Diagnostics = append(result.Diagnostics, hclDiagToLSP(d))
	}
	if doc == nil {
		return result
	}
	result.Document = doc

	for _, c := range doc.Colors {
		parsed, err := color.ParseHex(c.Hex)
		if err != nil {
			// Unresolved reference text
			continue
		}
		result.Colors = append(result.Colors, ColorLocation{
			Range: hclRangeToLSP(c.Range),
			Color: parsed,
			IsRef: c.IsRef,
		})
	}

	if strings.EqualFold(filepath.Ext(filename), ".hcl") {
		result.collectLocals(filename, content)
	}

	if diags.HasErrors() {
		return result
	}
	if _, err := doc.Rules(); err != nil {
		result.addCompileError(doc, err)
	}

	return result
}

// AnalyzeManifest checks a theme manifest. Manifest errors carry no position,
// so they are reported at the top of the file.
func AnalyzeManifest(filename, content string) *AnalysisResult {
	result := &AnalysisResult{
		Symbols: make(map[string]protocol.Location),
	}
	if _, err := config.Parse([]byte(content), filename); err != nil {
		result.addError(hcl.Range{Start: hcl.Pos{Line: 1, Column: 1}, End: hcl.Pos{Line: 1, Column: 1}}, err.Error())
	}
	return result
}

// addCompileError places a compile error on the key it names, or at the top
// of the file when the key cannot be found.
func (r *AnalysisResult) addCompileError(doc *parser.Document, err error) {
	rng := hcl.Range{Start: hcl.Pos{Line: 1, Column: 1}, End: hcl.Pos{Line: 1, Column: 1}}
	msg := err.Error()

	var serr *scope.Error
	if errors.As(err, &serr) {
		msg = serr.Error()
		if k, ok := doc.KeyAt(serr.Path, serr.Key); ok {
			rng = k.Range
		}
	}
	r.addError(rng, msg)
}

// collectLocals records the definition range of every local.
func (r *AnalysisResult) collectLocals(filename, content string) {
	file, diags := hclsyntax.ParseConfig([]byte(content), filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return
	}

	for _, block := range body.Blocks {
		if block.Type != "locals" {
			continue
		}
		for name, attr := range block.Body.Attributes {
			// The URI is left empty: it is the analyzed document itself.
			r.Symbols["local."+name] = protocol.Location{
				Range: hclRangeToLSP(attr.SrcRange),
			}
		}
	}
}

// hclDiagToLSP converts an HCL diagnostic to an LSP diagnostic.
func hclDiagToLSP(d *hcl.Diagnostic) protocol.Diagnostic {
	sev := DiagError
	if d.Severity == hcl.DiagWarning {
		sev = DiagWarning
	}

	diag := protocol.Diagnostic{
		Severity: &sev,
		Message:  d.Summary,
		Source:   strPtr(diagSource),
	}

	if d.Detail != "" {
		diag.Message = d.Summary + ": " + d.Detail
	}

	if d.Subject != nil {
		diag.Range = hclRangeToLSP(*d.Subject)
	}

	return diag
}

// addError adds an error-level diagnostic at the given range.
func (r *AnalysisResult) addError(rng hcl.Range, msg string) {
	r.Diagnostics = append(r.Diagnostics, protocol.Diagnostic{
		Range:    hclRangeToLSP(rng),
		Severity: &DiagError,
		Source:   strPtr(diagSource),
		Message:  msg,
	})
}

func strPtr(s string) *string {
	return &s
}

// keyAt returns the scope key whose source range holds pos.
func (r *AnalysisResult) keyAt(pos protocol.Position) (parser.Key, bool) {
	if r == nil || r.Document == nil {
		return parser.Key{}, false
	}
	for _, k := range r.Document.Keys {
		if posInRange(pos, hclRangeToLSP(k.Range)) {
			return k, true
		}
	}
	return parser.Key{}, false
}
