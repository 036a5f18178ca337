package lsp

import (
	"net/url"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/jsvensson/tokentheme/internal/config"
	"github.com/spf13/afero"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Manifest is the part of a theme manifest the server needs to check
// palette references.
type Manifest struct {
	Path    string
	Palette *config.Palette
	// Symbols maps "palette.dim.red" to its definition in the manifest.
	Symbols map[string]protocol.Location
}

// findManifest walks up from dir looking for the default manifest file.
func findManifest(fs afero.Fs, dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, config.DefaultPath)
		if ok, _ := afero.Exists(fs, candidate); ok {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// loadManifest reads the manifest at path along with the location of every
// palette entry.
func loadManifest(fs afero.Fs, path string) (*Manifest, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	m, err := config.Parse(src, path)
	if err != nil {
		return nil, err
	}

	result := &Manifest{
		Path:    path,
		Palette: m.Palette,
		Symbols: make(map[string]protocol.Location),
	}

	file, diags := hclsyntax.ParseConfig(src, path, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return result, nil
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return result, nil
	}

	uri := pathToURI(path)
	for _, block := range body.Blocks {
		if block.Type == "palette" {
			paletteSymbols(block.Body, "palette", uri, result.Symbols)
		}
	}
	return result, nil
}

func paletteSymbols(body *hclsyntax.Body, prefix string, uri protocol.DocumentUri, dest map[string]protocol.Location) {
	for name, attr := range body.Attributes {
		dest[prefix+"."+name] = protocol.Location{URI: uri, Range: hclRangeToLSP(attr.SrcRange)}
	}
	for _, block := range body.Blocks {
		dest[prefix+"."+block.Type] = protocol.Location{URI: uri, Range: hclRangeToLSP(block.DefRange())}
		paletteSymbols(block.Body, prefix+"."+block.Type, uri, dest)
	}
}

// uriToPath converts a file:// URI to a filesystem path. Other URIs are
// returned as they are.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}

func pathToURI(path string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return protocol.DocumentUri(u.String())
}
