package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jsvensson/tokentheme/internal/theme"
	"github.com/spf13/afero"
)

const sampleManifest = `
name   = "Zeit Theme Dark"
type   = "dark"
output = "dist/zeit-theme-dark.json"

sources = [
  "src/vue.hcl",
  "src/*.yaml",
]

palette {
  red    = "#ff2a6d"
  leon   = "#05d9e7"
  orange = "#ffae00"

  dark {
    red    = "#cc2055"
    orange = "#cc8a00"
  }
}

colors = {
  "editor.background"  = "#111827"
  "sideBar.background" = palette.dark.red
}
`

func writeManifest(t *testing.T, content string) (afero.Fs, string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	path := "/themes/theme.hcl"
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return fs, path
}

func TestLoad(t *testing.T) {
	fs, path := writeManifest(t, sampleManifest)
	m, err := Load(fs, path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if m.Name != "Zeit Theme Dark" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Type != theme.Dark {
		t.Errorf("Type = %q", m.Type)
	}
	if m.Output != "dist/zeit-theme-dark.json" {
		t.Errorf("Output = %q", m.Output)
	}
	if m.Dir != "/themes" {
		t.Errorf("Dir = %q", m.Dir)
	}
	if diff := cmp.Diff([]string{"src/vue.hcl", "src/*.yaml"}, m.Sources); diff != "" {
		t.Errorf("Sources mismatch (-want +got):\n%s", diff)
	}

	wantColors := map[string]string{
		"editor.background":  "#111827",
		"sideBar.background": "#cc2055",
	}
	if diff := cmp.Diff(wantColors, m.Colors); diff != "" {
		t.Errorf("Colors mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPalette(t *testing.T) {
	fs, path := writeManifest(t, sampleManifest)
	m, err := Load(fs, path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := map[string]string{
		"red":         "#ff2a6d",
		"dark.orange": "#cc8a00",
	}
	for name, want := range tests {
		got, ok := m.Palette.Lookup(name)
		if !ok || got != want {
			t.Errorf("Lookup(%q) = %q, %v; want %q", name, got, ok, want)
		}
	}
	if _, ok := m.Palette.Lookup("dark"); ok {
		t.Error("Lookup(dark) should not resolve a group")
	}
	if _, ok := m.Palette.Lookup("missing.red"); ok {
		t.Error("Lookup(missing.red) should fail")
	}

	wantNames := []string{"dark.orange", "dark.red", "leon", "orange", "red"}
	if diff := cmp.Diff(wantNames, m.Palette.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaults(t *testing.T) {
	fs, path := writeManifest(t, `
name    = "Minimal"
output  = "out.json"
sources = ["a.hcl"]
`)
	m, err := Load(fs, path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Type != theme.Dark {
		t.Errorf("Type = %q, want dark", m.Type)
	}
	if m.Colors == nil || len(m.Colors) != 0 {
		t.Errorf("Colors = %v, want empty map", m.Colors)
	}
	if len(m.Palette.Names()) != 0 {
		t.Errorf("Palette = %v, want empty", m.Palette.Names())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: `output = "o.json"` + "\n" + `sources = ["a.hcl"]`,
			wantErr: "name",
		},
		{
			name: "bad type",
			content: `name = "x"
type = "sepia"
output = "o.json"
sources = ["a.hcl"]`,
			wantErr: "invalid theme type",
		},
		{
			name: "no sources",
			content: `name = "x"
output = "o.json"
sources = []`,
			wantErr: "sources",
		},
		{
			name: "bad palette color",
			content: `name = "x"
output = "o.json"
sources = ["a.hcl"]
palette {
  red = "not-a-color"
}`,
			wantErr: "palette.red",
		},
		{
			name: "palette reference inside palette",
			content: `name = "x"
output = "o.json"
sources = ["a.hcl"]
palette {
  red = "#ff0000"
  also = palette.red
}`,
			wantErr: "palette.also",
		},
		{
			name: "bad workbench color",
			content: `name = "x"
output = "o.json"
sources = ["a.hcl"]
colors = {
  "editor.background" = "blue"
}`,
			wantErr: "colors.editor.background",
		},
		{
			name: "unknown palette reference",
			content: `name = "x"
output = "o.json"
sources = ["a.hcl"]
colors = {
  "editor.background" = palette.nope
}`,
			wantErr: "decoding manifest",
		},
		{
			name:    "syntax error",
			content: `name = `,
			wantErr: "parsing HCL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, path := writeManifest(t, tt.content)
			_, err := Load(fs, path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/nope/theme.hcl")
	if err == nil || !strings.Contains(err.Error(), "reading manifest") {
		t.Errorf("expected reading error, got %v", err)
	}
}
