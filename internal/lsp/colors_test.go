package lsp

import (
	"testing"

	"github.com/jsvensson/tokentheme/internal/color"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestColorToLSP(t *testing.T) {
	tests := []struct {
		name  string
		input color.Color
		want  protocol.Color
	}{
		{
			name:  "pure red",
			input: color.Color{R: 255, G: 0, B: 0, A: 255},
			want:  protocol.Color{Red: 1.0, Green: 0.0, Blue: 0.0, Alpha: 1.0},
		},
		{
			name:  "white",
			input: color.Color{R: 255, G: 255, B: 255, A: 255},
			want:  protocol.Color{Red: 1.0, Green: 1.0, Blue: 1.0, Alpha: 1.0},
		},
		{
			name:  "mid gray",
			input: color.Color{R: 128, G: 128, B: 128, A: 255},
			want:  protocol.Color{Red: float32(128) / 255.0, Green: float32(128) / 255.0, Blue: float32(128) / 255.0, Alpha: 1.0},
		},
		{
			name:  "translucent black",
			input: color.Color{A: 0},
			want:  protocol.Color{Alpha: 0.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := colorToLSP(tt.input)
			if got != tt.want {
				t.Errorf("colorToLSP() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestColorFromLSP(t *testing.T) {
	for _, hex := range []string{"#191724", "#ff2a6d", "#05d9e780", "#000000"} {
		c, err := color.ParseHex(hex)
		if err != nil {
			t.Fatal(err)
		}
		if got := colorFromLSP(colorToLSP(c)).Hex(); got != hex {
			t.Errorf("round trip of %s = %s", hex, got)
		}
	}
}

func TestDocumentColors(t *testing.T) {
	red, _ := color.ParseHex("#ff0000")
	green, _ := color.ParseHex("#00ff00")

	result := &AnalysisResult{
		Colors: []ColorLocation{
			{
				Range: protocol.Range{
					Start: protocol.Position{Line: 1, Character: 10},
					End:   protocol.Position{Line: 1, Character: 19},
				},
				Color: red,
			},
			{
				Range: protocol.Range{
					Start: protocol.Position{Line: 2, Character: 10},
					End:   protocol.Position{Line: 2, Character: 23},
				},
				Color: green,
				IsRef: true,
			},
		},
	}

	infos := documentColors(result)
	if len(infos) != 2 {
		t.Fatalf("expected 2 ColorInformation items, got %d", len(infos))
	}
	if infos[0].Color != (protocol.Color{Red: 1, Alpha: 1}) {
		t.Errorf("item 0: expected red, got %+v", infos[0].Color)
	}
	if infos[0].Range.Start.Line != 1 || infos[0].Range.Start.Character != 10 {
		t.Errorf("item 0: unexpected range start")
	}
	if infos[1].Color != (protocol.Color{Green: 1, Alpha: 1}) {
		t.Errorf("item 1: expected green, got %+v", infos[1].Color)
	}
}

func TestDocumentColors_NilResult(t *testing.T) {
	infos := documentColors(nil)
	if infos == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(infos) != 0 {
		t.Errorf("expected 0 items, got %d", len(infos))
	}
}

func TestColorPresentation(t *testing.T) {
	red := protocol.Color{Red: 1.0, Alpha: 1.0}

	tests := []struct {
		name     string
		content  string
		rng      protocol.Range
		wantText string // empty when no presentation is expected
	}{
		{
			name:     "quoted hex literal",
			content:  "scopes = {\n  a = \"#191724\"\n}\n",
			rng:      lspRange(1, 6, 1, 15),
			wantText: `"#ff0000"`,
		},
		{
			name:     "single quoted yaml literal",
			content:  "scopes:\n  a: '#191724'\n",
			rng:      lspRange(1, 5, 1, 14),
			wantText: `'#ff0000'`,
		},
		{
			name:     "bare hash",
			content:  "scopes:\n  a: #191724\n",
			rng:      lspRange(1, 5, 1, 12),
			wantText: "#ff0000",
		},
		{
			name:    "palette reference",
			content: "scopes = {\n  a = palette.base\n}\n",
			rng:     lspRange(1, 6, 1, 18),
		},
		{
			name:    "local reference",
			content: "scopes = {\n  a = local.tag\n}\n",
			rng:     lspRange(1, 6, 1, 15),
		},
		{
			name:    "yaml palette reference",
			content: "scopes:\n  a: $base\n",
			rng:     lspRange(1, 5, 1, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := &protocol.ColorPresentationParams{Color: red, Range: tt.rng}
			presentations := colorPresentation(tt.content, params)

			if tt.wantText == "" {
				if len(presentations) != 0 {
					t.Errorf("expected no presentations, got %d", len(presentations))
				}
				return
			}

			if len(presentations) != 1 {
				t.Fatalf("expected 1 presentation, got %d", len(presentations))
			}
			p := presentations[0]
			if p.Label != "#ff0000" {
				t.Errorf("Label = %q, want #ff0000", p.Label)
			}
			if p.TextEdit == nil {
				t.Fatal("expected non-nil TextEdit")
			}
			if p.TextEdit.NewText != tt.wantText {
				t.Errorf("NewText = %q, want %q", p.TextEdit.NewText, tt.wantText)
			}
			if p.TextEdit.Range != tt.rng {
				t.Errorf("TextEdit range = %+v, want %+v", p.TextEdit.Range, tt.rng)
			}
		})
	}
}

func TestColorPresentation_Integration(t *testing.T) {
	content := `locals {
  tag = "#89b4fa"
}

scopes = {
  "source.env" = {
    " comment" = local.tag
    " keyword" = "#ff0000"
  }
}
`
	result := Analyze("env.hcl", content, nil)

	infos := documentColors(result)
	if len(infos) != 3 {
		t.Fatalf("expected 3 colors from analysis, got %d", len(infos))
	}

	for i, cl := range result.Colors {
		params := &protocol.ColorPresentationParams{
			Color: infos[i].Color,
			Range: infos[i].Range,
		}

		presentations := colorPresentation(content, params)

		if cl.IsRef {
			if len(presentations) != 0 {
				t.Errorf("color %d (ref=%v): expected 0 presentations, got %d", i, cl.IsRef, len(presentations))
			}
		} else if len(presentations) != 1 {
			t.Errorf("color %d (ref=%v): expected 1 presentation, got %d", i, cl.IsRef, len(presentations))
		}
	}
}

func lspRange(startLine, startChar, endLine, endChar uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: startLine, Character: startChar},
		End:   protocol.Position{Line: endLine, Character: endChar},
	}
}
