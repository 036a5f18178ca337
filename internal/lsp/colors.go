package lsp

import (
	"math"
	"strings"

	"github.com/jsvensson/tokentheme/internal/color"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// colorToLSP converts an internal color.Color (uint8 RGBA) to a protocol.Color (float32 0.0-1.0).
func colorToLSP(c color.Color) protocol.Color {
	return protocol.Color{
		Red:   float32(c.R) / 255.0,
		Green: float32(c.G) / 255.0,
		Blue:  float32(c.B) / 255.0,
		Alpha: float32(c.A) / 255.0,
	}
}

// colorFromLSP converts a picked color back, rounding each channel.
func colorFromLSP(c protocol.Color) color.Color {
	channel := func(f float32) uint8 {
		return uint8(math.Round(float64(min(max(f, 0), 1)) * 255))
	}
	return color.Color{R: channel(c.Red), G: channel(c.Green), B: channel(c.Blue), A: channel(c.Alpha)}
}

// documentColors converts the analysis result's color locations into LSP ColorInformation items.
func documentColors(result *AnalysisResult) []protocol.ColorInformation {
	if result == nil {
		return []protocol.ColorInformation{}
	}

	infos := make([]protocol.ColorInformation, 0, len(result.Colors))
	for _, cl := range result.Colors {
		infos = append(infos, protocol.ColorInformation{
			Range: cl.Range,
			Color: colorToLSP(cl.Color),
		})
	}
	return infos
}

// colorPresentation produces color presentation options for a given color and range.
// For hex literals (text starting with `"` or `#`), it returns a presentation with a TextEdit
// to replace the old value. References (`palette.x`, `local.x`, `$x`) get an empty slice so
// they are never replaced with literal values.
func colorPresentation(content string, params *protocol.ColorPresentationParams) []protocol.ColorPresentation {
	hexStr := colorFromLSP(params.Color).Hex()

	// Extract the text at the given range to determine if this is a hex literal or a reference
	text := extractText(content, params.Range)

	for _, prefix := range []string{"palette.", "local.", "\"$", "$"} {
		if strings.HasPrefix(text, prefix) {
			return []protocol.ColorPresentation{}
		}
	}

	if strings.HasPrefix(text, "\"") || strings.HasPrefix(text, "'") || strings.HasPrefix(text, "#") {
		// Keep the quoting of the original
		newText := hexStr
		if q := text[:1]; q == "\"" || q == "'" {
			newText = q + hexStr + q
		}

		return []protocol.ColorPresentation{
			{
				Label: hexStr,
				TextEdit: &protocol.TextEdit{
					Range:   params.Range,
					NewText: newText,
				},
			},
		}
	}

	// Unknown format, return empty
	return []protocol.ColorPresentation{}
}

// textDocumentDocumentColor handles textDocument/documentColor requests.
func (s *Server) textDocumentDocumentColor(_ *glsp.Context, params *protocol.DocumentColorParams) ([]protocol.ColorInformation, error) {
	_, result, _ := s.docs.Get(string(params.TextDocument.URI))
	return documentColors(result), nil
}

// textDocumentColorPresentation handles textDocument/colorPresentation requests.
func (s *Server) textDocumentColorPresentation(_ *glsp.Context, params *protocol.ColorPresentationParams) ([]protocol.ColorPresentation, error) {
	content, _, ok := s.docs.Get(string(params.TextDocument.URI))
	if !ok {
		return []protocol.ColorPresentation{}, nil
	}
	return colorPresentation(content, params), nil
}
