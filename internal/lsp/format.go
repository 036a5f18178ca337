package lsp

import (
	"strings"

	"github.com/jsvensson/tokentheme/internal/format"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// formatting returns the edit that replaces the whole document with its
// formatted form, or no edits when it is already formatted.
//
// HCL formats even while the user is still typing; YAML and JSON documents
// that do not parse are left alone.
func formatting(filename, content string) ([]protocol.TextEdit, error) {
	formatted, err := format.Format(filename, content)
	if err != nil {
		return nil, err
	}
	if formatted == content {
		return []protocol.TextEdit{}, nil
	}
	return []protocol.TextEdit{{
		Range:   protocol.Range{End: documentEnd(content)},
		NewText: formatted,
	}}, nil
}

// documentEnd returns the position just past the last character.
func documentEnd(content string) protocol.Position {
	lines := splitLines(content)
	last := lines[len(lines)-1]
	return protocol.Position{
		Line:      uint32(len(lines) - 1),
		Character: uint32(len(strings.TrimSuffix(last, "\r"))),
	}
}

// textDocumentFormatting handles textDocument/formatting requests.
func (s *Server) textDocumentFormatting(_ *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	uri := string(params.TextDocument.URI)
	content, _, ok := s.docs.Get(uri)
	if !ok {
		return nil, nil
	}

	edits, err := formatting(uriToPath(uri), content)
	if err != nil {
		log.Debugf("not formatting %s: %s", uri, err)
		return nil, nil
	}
	return edits, nil
}
