package lsp

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/jsvensson/tokentheme/internal/config"
	"github.com/jsvensson/tokentheme/internal/parser"
	"github.com/jsvensson/tokentheme/internal/scope"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// splitLines splits content into lines, preserving empty trailing lines.
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

// blockContext represents the kind of block the cursor is in.
type blockContext int

const (
	contextRoot   blockContext = iota
	contextLocals              // inside locals {}
	contextScopes              // inside the scopes object, at any depth
	contextRule                // inside rule "name" {}
)

// ruleAttributes are the valid attributes inside a rule block.
var ruleAttributes = []string{"scope", "foreground", "font_style"}

// fontStyles are the font styles editors understand.
var fontStyles = []string{"italic", "bold", "underline", "strikethrough"}

// complete produces completion items given an analysis result, document content,
// and cursor position. This is the core logic, decoupled from the LSP protocol
// handler for testability.
func complete(result *AnalysisResult, filename, content string, pos protocol.Position) []protocol.CompletionItem {
	lines := splitLines(content)
	if int(pos.Line) >= len(lines) {
		return nil
	}

	line := lines[pos.Line]
	charPos := min(int(pos.Character), len(line))
	textBeforeCursor := line[:charPos]

	if !strings.EqualFold(filepath.Ext(filename), ".hcl") {
		return yamlCompletions(result, textBeforeCursor)
	}

	if items := tryPaletteCompletion(result, textBeforeCursor); items != nil {
		return items
	}
	if items := tryLocalCompletion(result, textBeforeCursor); items != nil {
		return items
	}

	ctx := determineBlockContext(lines, int(pos.Line))

	if isValuePosition(textBeforeCursor) {
		if ctx == contextRule && attributeBeforeCursor(textBeforeCursor) == "font_style" {
			return fontStyleCompletions()
		}
		return valueCompletions()
	}

	switch ctx {
	case contextRule:
		return ruleCompletions(lines, int(pos.Line))
	case contextScopes:
		return scopeKeyCompletions(lines, int(pos.Line))
	case contextRoot:
		return topLevelCompletions()
	}

	return nil
}

// referencePath extracts the segments before the last dot of a reference
// ending the text before the cursor:
//
//	"palette."         -> nil
//	"palette.dim."     -> ["dim"]
//	"palette.dim.re"   -> ["dim"] (the client filters "re")
func referencePath(textBeforeCursor, root string) ([]string, bool) {
	idx := strings.LastIndex(textBeforeCursor, root+".")
	if idx == -1 {
		return nil, false
	}
	// "mypalette." is not a reference
	if idx > 0 && isIdentChar(textBeforeCursor[idx-1]) {
		return nil, false
	}

	pathStr := textBeforeCursor[idx+len(root)+1:]
	for i := 0; i < len(pathStr); i++ {
		if !isIdentChar(pathStr[i]) && pathStr[i] != '.' {
			return nil, false
		}
	}

	parts := strings.Split(pathStr, ".")
	return parts[:len(parts)-1], true
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// tryPaletteCompletion checks if the text before the cursor ends with a palette
// path prefix (e.g., "palette." or "palette.dim.") and returns completion
// items for the entries of that palette group.
func tryPaletteCompletion(result *AnalysisResult, textBeforeCursor string) []protocol.CompletionItem {
	if result == nil || result.Palette == nil {
		return nil
	}
	segments, ok := referencePath(textBeforeCursor, "palette")
	if !ok {
		return nil
	}

	group := result.Palette
	for _, seg := range segments {
		next, ok := group.Groups[seg]
		if !ok {
			return nil
		}
		group = next
	}

	return paletteGroupItems(group)
}

// paletteGroupItems converts a palette group's entries into completion items.
func paletteGroupItems(group *config.Palette) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(group.Colors)+len(group.Groups))

	for _, name := range sortedKeys(group.Colors) {
		hex := group.Colors[name]
		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   completionKindPtr(protocol.CompletionItemKindColor),
			Detail: &hex,
		})
	}
	for _, name := range sortedKeys(group.Groups) {
		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   completionKindPtr(protocol.CompletionItemKindModule),
			Detail: strPtr("color group"),
		})
	}

	return items
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// tryLocalCompletion offers the locals of the document after "local.".
func tryLocalCompletion(result *AnalysisResult, textBeforeCursor string) []protocol.CompletionItem {
	if result == nil {
		return nil
	}
	segments, ok := referencePath(textBeforeCursor, "local")
	if !ok || len(segments) > 0 {
		return nil
	}

	items := []protocol.CompletionItem{}
	for _, name := range sortedKeys(result.Symbols) {
		local, ok := strings.CutPrefix(name, "local.")
		if !ok {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label: local,
			Kind:  completionKindPtr(protocol.CompletionItemKindVariable),
		})
	}
	return items
}

// yamlCompletions offers palette names after "$" in YAML and JSON documents.
func yamlCompletions(result *AnalysisResult, textBeforeCursor string) []protocol.CompletionItem {
	if result == nil || result.Palette == nil {
		return nil
	}
	idx := strings.LastIndex(textBeforeCursor, parser.PaletteRefPrefix)
	if idx == -1 {
		return nil
	}
	for i := idx + 1; i < len(textBeforeCursor); i++ {
		if c := textBeforeCursor[i]; !isIdentChar(c) && c != '.' {
			return nil
		}
	}

	var items []protocol.CompletionItem
	for _, name := range result.Palette.Names() {
		hex, _ := result.Palette.Lookup(name)
		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   completionKindPtr(protocol.CompletionItemKindColor),
			Detail: &hex,
		})
	}
	return items
}

// isValuePosition returns true if the text before the cursor indicates we are
// at a value position (after an "=" sign with nothing meaningful following it).
func isValuePosition(textBeforeCursor string) bool {
	trimmed := strings.TrimSpace(textBeforeCursor)
	eqIdx := strings.LastIndex(trimmed, "=")
	if eqIdx == -1 {
		return false
	}
	afterEq := strings.TrimSpace(trimmed[eqIdx+1:])
	return afterEq == ""
}

// attributeBeforeCursor returns the name assigned on the cursor line.
func attributeBeforeCursor(textBeforeCursor string) string {
	name, _, ok := strings.Cut(textBeforeCursor, "=")
	if !ok {
		return ""
	}
	return strings.TrimSpace(name)
}

// valueCompletions returns completion items for a value position: the
// reference namespaces and a styled color snippet.
func valueCompletions() []protocol.CompletionItem {
	snippetFormat := protocol.InsertTextFormatSnippet

	paletteSnippet := "palette."
	localSnippet := "local."
	styledSnippet := "[${1:color}, \"${2|italic,bold,underline,strikethrough|}\"]"

	return []protocol.CompletionItem{
		{
			Label:      "palette",
			Kind:       completionKindPtr(protocol.CompletionItemKindVariable),
			Detail:     strPtr("palette reference"),
			InsertText: &paletteSnippet,
		},
		{
			Label:      "local",
			Kind:       completionKindPtr(protocol.CompletionItemKindVariable),
			Detail:     strPtr("local reference"),
			InsertText: &localSnippet,
		},
		{
			Label:            "styled",
			Kind:             completionKindPtr(protocol.CompletionItemKindSnippet),
			Detail:           strPtr("[color, fontStyle]"),
			InsertText:       &styledSnippet,
			InsertTextFormat: &snippetFormat,
		},
	}
}

func fontStyleCompletions() []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(fontStyles))
	for _, name := range fontStyles {
		insert := `"` + name + `"`
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       completionKindPtr(protocol.CompletionItemKindEnumMember),
			InsertText: &insert,
		})
	}
	return items
}

// determineBlockContext scans from the top of the file down to the cursor line
// to determine which block the cursor is in, using brace nesting.
func determineBlockContext(lines []string, cursorLine int) blockContext {
	var stack []string

	for i := 0; i <= cursorLine; i++ {
		line := strings.TrimSpace(lines[i])

		opens := strings.Count(line, "{")
		closes := strings.Count(line, "}")

		// The block or attribute name is the first word on the line
		if opens > 0 {
			name := ""
			if parts := strings.Fields(line); len(parts) > 0 {
				name = strings.TrimSuffix(parts[0], "=")
			}
			for i := 0; i < opens; i++ {
				stack = append(stack, name)
			}
		}

		for i := 0; i < closes; i++ {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) == 0 {
		return contextRoot
	}

	// Nested scope objects are named by their keys; the outermost frame
	// tells where we are.
	switch stack[0] {
	case "locals":
		return contextLocals
	case "scopes":
		return contextScopes
	case "rule":
		return contextRule
	}
	return contextRoot
}

// ruleCompletions returns rule attribute completions, excluding attributes
// already defined in the current rule block.
func ruleCompletions(lines []string, cursorLine int) []protocol.CompletionItem {
	defined := findDefinedAttributes(lines, cursorLine)

	var items []protocol.CompletionItem
	for _, name := range ruleAttributes {
		if !defined[name] {
			items = append(items, protocol.CompletionItem{
				Label: name,
				Kind:  completionKindPtr(protocol.CompletionItemKindProperty),
			})
		}
	}

	return items
}

// scopeKeyCompletions offers _default inside a nested scope object that has
// none yet.
func scopeKeyCompletions(lines []string, cursorLine int) []protocol.CompletionItem {
	if strings.Count(lines[cursorLine], "{") > 0 || scopeDepth(lines, cursorLine) < 2 {
		return nil
	}
	if findDefinedAttributes(lines, cursorLine)[scope.DefaultKey] {
		return nil
	}

	insert := scope.DefaultKey + " = "
	return []protocol.CompletionItem{{
		Label:      scope.DefaultKey,
		Kind:       completionKindPtr(protocol.CompletionItemKindKeyword),
		Detail:     strPtr("style of the enclosing scope itself"),
		InsertText: &insert,
	}}
}

// scopeDepth counts the open braces at the cursor line.
func scopeDepth(lines []string, cursorLine int) int {
	depth := 0
	for i := 0; i <= cursorLine; i++ {
		depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
	}
	return depth
}

// findDefinedAttributes scans the current block (from the nearest opening brace
// before cursorLine to cursorLine) and returns attribute names already defined
// (lines containing "name = ...").
func findDefinedAttributes(lines []string, cursorLine int) map[string]bool {
	defined := make(map[string]bool)

	// Scan backwards to find the opening brace of the current block
	startLine := 0
	depth := 0
	for i := cursorLine; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		closes := strings.Count(line, "}")
		opens := strings.Count(line, "{")
		depth += closes - opens
		if depth < 0 {
			startLine = i + 1
			break
		}
	}

	// Scan forward from startLine to cursorLine, collecting attribute names
	// of this block only
	depth = 0
	for i := startLine; i <= cursorLine; i++ {
		line := strings.TrimSpace(lines[i])
		atBlock := depth == 0
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if !atBlock {
			continue
		}
		if eqIdx := strings.Index(line, "="); eqIdx > 0 {
			name := strings.TrimSpace(line[:eqIdx])
			if !strings.Contains(name, " ") && !strings.Contains(name, "{") {
				defined[name] = true
			}
		}
	}

	return defined
}

// topLevelCompletions returns snippets for the top-level blocks and the
// scopes attribute.
func topLevelCompletions() []protocol.CompletionItem {
	snippetFormat := protocol.InsertTextFormatSnippet
	kind := protocol.CompletionItemKindSnippet

	snippets := []struct{ label, body string }{
		{"locals", "locals {\n  $0\n}"},
		{"scopes", "scopes = {\n  \"${1:source.lang}\" = {\n    $0\n  }\n}"},
		{"rule", "rule \"${1:name}\" {\n  scope      = [\"$2\"]\n  foreground = $0\n}"},
	}

	items := make([]protocol.CompletionItem, 0, len(snippets))
	for _, s := range snippets {
		body := s.body
		items = append(items, protocol.CompletionItem{
			Label:            s.label,
			Kind:             &kind,
			InsertText:       &body,
			InsertTextFormat: &snippetFormat,
		})
	}

	return items
}

// completionKindPtr returns a pointer to a CompletionItemKind.
func completionKindPtr(k protocol.CompletionItemKind) *protocol.CompletionItemKind {
	return &k
}

// textDocumentCompletion is the LSP handler for textDocument/completion requests.
func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := string(params.TextDocument.URI)

	content, result, ok := s.docs.Get(uri)
	if !ok || result == nil {
		return nil, nil
	}

	return complete(result, uriToPath(uri), content, params.Position), nil
}
