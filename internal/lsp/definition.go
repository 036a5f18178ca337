package lsp

import (
	"strings"

	"github.com/jsvensson/tokentheme/internal/parser"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// refAtCursor extracts the reference path up to the cursor position.
// For example, if cursor is on "palette" in "palette.dim.red", it returns
// "palette". If cursor is on "dim", it returns "palette.dim".
// A YAML reference "$dim.red" is read as "palette.dim.red".
// Returns "" if the cursor is not on a reference.
func refAtCursor(line string, character uint32) string {
	col := int(character)
	if col >= len(line) {
		return ""
	}

	isRefChar := func(b byte) bool { return isIdentChar(b) || b == '.' }

	end := col
	for end < len(line) && isRefChar(line[end]) {
		end++
	}
	start := col
	for start > 0 && isRefChar(line[start-1]) {
		start--
	}
	if start == end {
		return ""
	}

	word := line[start:end]
	cursorInWord := col - start
	if start > 0 && line[start-1] == parser.PaletteRefPrefix[0] {
		word = "palette." + word
		cursorInWord += len("palette.")
	}

	parts := strings.Split(word, ".")
	if !refRoots[parts[0]] || len(parts) < 2 {
		return ""
	}

	// Keep the segments that start at or before the cursor
	var resultParts []string
	currentPos := 0
	for _, part := range parts {
		if currentPos <= cursorInWord {
			resultParts = append(resultParts, part)
		}
		currentPos += len(part) + 1
	}

	return strings.Join(resultParts, ".")
}

// definition returns the definition location for a palette or local reference
// at the given cursor position. Returns nil if the cursor is not on a reference
// or if the symbol is not found.
func definition(result *AnalysisResult, content string, uri string, pos protocol.Position) *protocol.Location {
	if result == nil {
		return nil
	}

	lines := strings.Split(content, "\n")
	lineIdx := int(pos.Line)
	if lineIdx >= len(lines) {
		return nil
	}

	ref := refAtCursor(lines[lineIdx], pos.Character)
	if ref == "" {
		return nil
	}

	loc, ok := result.Symbols[ref]
	if !ok {
		return nil
	}
	// Locals live in the document itself
	if loc.URI == "" {
		loc.URI = protocol.DocumentUri(uri)
	}
	return &loc
}

// textDocumentDefinition handles textDocument/definition requests.
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := string(params.TextDocument.URI)

	content, result, ok := s.docs.Get(uri)
	if !ok || result == nil {
		return nil, nil
	}

	return definition(result, content, uri, params.Position), nil
}
