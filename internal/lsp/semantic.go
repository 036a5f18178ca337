package lsp

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/jsvensson/tokentheme/internal/scope"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Semantic token types we'll use (indices 0-7)
var semanticTokenTypes = []string{
	"keyword",    // 0: block names (locals, rule) and _default
	"property",   // 1: attribute names
	"variable",   // 2: reference segments after the namespace
	"namespace",  // 3: the "palette" and "local" namespaces, root scope keys
	"string",     // 4: hex color literals
	"type",       // 5: dot keys refining the parent scope
	"operator",   // 6: space keys adding a descendant selector
	"enumMember", // 7: font styles
}

// Semantic token modifiers (bit flags)
var semanticTokenModifiers = []string{
	"declaration", // bit 0: defining a new symbol
}

// refRoots are the variables scope documents may reference.
var refRoots = map[string]bool{
	"palette": true,
	"local":   true,
}

// tokenTypeIndices maps type names to their indices for fast lookup
var tokenTypeIndices map[string]uint32

func init() {
	tokenTypeIndices = make(map[string]uint32, len(semanticTokenTypes))
	for i, t := range semanticTokenTypes {
		tokenTypeIndices[t] = uint32(i)
	}
}

// SemanticToken represents a single token with its metadata
type SemanticToken struct {
	Line      uint32 // 0-based line number
	StartChar uint32 // 0-based character offset
	Length    uint32
	Type      uint32 // index into semanticTokenTypes
	Modifiers uint32 // bit flags
}

// encodeTokens converts tokens to LSP format (5 integers per token)
// Uses delta encoding for line numbers and character positions
func encodeTokens(tokens []SemanticToken) []uint32 {
	if len(tokens) == 0 {
		return []uint32{}
	}

	// Sort tokens by position
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].Line != tokens[j].Line {
			return tokens[i].Line < tokens[j].Line
		}
		return tokens[i].StartChar < tokens[j].StartChar
	})

	data := make([]uint32, 0, len(tokens)*5)

	var prevLine uint32 = 0
	var prevChar uint32 = 0

	for _, tok := range tokens {
		deltaLine := tok.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = tok.StartChar - prevChar
		} else {
			deltaStart = tok.StartChar
		}

		data = append(data,
			deltaLine,
			deltaStart,
			tok.Length,
			tok.Type,
			tok.Modifiers,
		)

		prevLine = tok.Line
		prevChar = tok.StartChar
	}

	return data
}

// semanticTokensFull generates semantic tokens for an analyzed document.
// Scope keys come from the analysis; HCL documents additionally get their
// blocks, attributes and references tokenized from the syntax tree.
func semanticTokensFull(result *AnalysisResult, filename, content string) []uint32 {
	if result == nil || result.Document == nil {
		return []uint32{}
	}

	var tokens []SemanticToken
	for _, k := range result.Document.Keys {
		tokens = append(tokens, keyToken(k.Key, k.Range))
	}

	if !strings.EqualFold(filepath.Ext(filename), ".hcl") {
		for _, c := range result.Document.Colors {
			typ := tokenTypeIndices["string"]
			if c.IsRef {
				typ = tokenTypeIndices["variable"]
			}
			tokens = append(tokens, rangeToken(c.Range, typ))
		}
		return encodeTokens(tokens)
	}

	file, diags := hclsyntax.ParseConfig([]byte(content), filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return encodeTokens(tokens)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return encodeTokens(tokens)
	}

	w := &tokenWalker{tokens: tokens}
	w.body(body)
	return encodeTokens(w.tokens)
}

// keyToken classifies a scope key by how it joins its parent path.
func keyToken(key string, rng hcl.Range) SemanticToken {
	typ := tokenTypeIndices["namespace"]
	switch {
	case key == scope.DefaultKey:
		typ = tokenTypeIndices["keyword"]
	case scope.Classify(key) == scope.DotKey:
		typ = tokenTypeIndices["type"]
	case scope.Classify(key) == scope.SpaceKey:
		typ = tokenTypeIndices["operator"]
	}
	tok := rangeToken(rng, typ)
	tok.Modifiers = 1 // declaration bit
	return tok
}

func rangeToken(rng hcl.Range, typ uint32) SemanticToken {
	length := 0
	if rng.End.Line == rng.Start.Line {
		length = rng.End.Column - rng.Start.Column
	}
	return SemanticToken{
		Line:      uint32(max(rng.Start.Line-1, 0)),
		StartChar: uint32(max(rng.Start.Column-1, 0)),
		Length:    uint32(max(length, 0)),
		Type:      typ,
	}
}

type tokenWalker struct {
	tokens []SemanticToken
}

// body extracts tokens from an HCL body
func (w *tokenWalker) body(body *hclsyntax.Body) {
	for _, block := range body.Blocks {
		w.tokens = append(w.tokens, SemanticToken{
			Line:      uint32(block.DefRange().Start.Line - 1),
			StartChar: uint32(block.DefRange().Start.Column - 1),
			Length:    uint32(len(block.Type)),
			Type:      tokenTypeIndices["keyword"],
		})
		w.body(block.Body)
	}

	for name, attr := range body.Attributes {
		w.tokens = append(w.tokens, SemanticToken{
			Line:      uint32(attr.SrcRange.Start.Line - 1),
			StartChar: uint32(attr.SrcRange.Start.Column - 1),
			Length:    uint32(len(name)),
			Type:      tokenTypeIndices["property"],
			Modifiers: 1, // declaration bit
		})
		w.expr(attr.Expr)
	}
}

// expr extracts tokens from an HCL expression
func (w *tokenWalker) expr(expr hclsyntax.Expression) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		// Keys are tokenized from the analysis
		for _, item := range e.Items {
			w.expr(item.ValueExpr)
		}
	case *hclsyntax.TupleConsExpr:
		for i, elem := range e.Exprs {
			if i == 1 {
				w.fontStyle(elem)
				continue
			}
			w.expr(elem)
		}
	case *hclsyntax.TemplateExpr:
		w.literal(e)
	case *hclsyntax.ScopeTraversalExpr:
		w.traversal(e)
	case *hclsyntax.RelativeTraversalExpr:
		w.expr(e.Source)
	}
}

// literal marks quoted hex colors.
func (w *tokenWalker) literal(e *hclsyntax.TemplateExpr) {
	if !e.IsStringLiteral() {
		return
	}
	val, diags := e.Value(nil)
	if diags.HasErrors() || !strings.HasPrefix(val.AsString(), "#") {
		return
	}
	w.tokens = append(w.tokens, rangeToken(e.SrcRange, tokenTypeIndices["string"]))
}

// fontStyle marks the second element of a [color, fontStyle] pair.
func (w *tokenWalker) fontStyle(expr hclsyntax.Expression) {
	if t, ok := expr.(*hclsyntax.TemplateExpr); ok && t.IsStringLiteral() {
		w.tokens = append(w.tokens, rangeToken(t.SrcRange, tokenTypeIndices["enumMember"]))
		return
	}
	w.expr(expr)
}

// traversal handles references like palette.dim.red or local.tag
func (w *tokenWalker) traversal(expr *hclsyntax.ScopeTraversalExpr) {
	if len(expr.Traversal) == 0 {
		return
	}

	first, ok := expr.Traversal[0].(hcl.TraverseRoot)
	if !ok || !refRoots[first.Name] {
		return
	}

	w.tokens = append(w.tokens, SemanticToken{
		Line:      uint32(first.SrcRange.Start.Line - 1),
		StartChar: uint32(first.SrcRange.Start.Column - 1),
		Length:    uint32(len(first.Name)),
		Type:      tokenTypeIndices["namespace"],
	})

	for _, t := range expr.Traversal[1:] {
		if seg, ok := t.(hcl.TraverseAttr); ok {
			w.tokens = append(w.tokens, SemanticToken{
				Line:      uint32(seg.SrcRange.Start.Line - 1),
				StartChar: uint32(seg.SrcRange.Start.Column - 1),
				Length:    uint32(len(seg.Name)),
				Type:      tokenTypeIndices["variable"],
			})
		}
	}
}

// textDocumentSemanticTokensFull handles textDocument/semanticTokens/full requests.
func (s *Server) textDocumentSemanticTokensFull(_ *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	uri := string(params.TextDocument.URI)
	content, result, ok := s.docs.Get(uri)
	if !ok {
		return &protocol.SemanticTokens{Data: []protocol.UInteger{}}, nil
	}
	return &protocol.SemanticTokens{Data: semanticTokensFull(result, uriToPath(uri), content)}, nil
}
