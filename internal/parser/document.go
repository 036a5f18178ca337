// Package parser decodes scope documents: nested scope trees written in HCL,
// YAML or JSON, optionally followed by named static rules.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/jsvensson/tokentheme/internal/config"
	"github.com/jsvensson/tokentheme/internal/scope"
	"github.com/spf13/afero"
)

// Document is one parsed scope document.
type Document struct {
	Filename string
	Scopes   *scope.Node
	Static   []scope.Rule

	// Keys lists every scope key in source order with its resolved path.
	Keys []Key
	// Colors lists the color expressions found in the document.
	Colors []ColorLiteral
}

// Key records where a scope key was written and what path it resolves to.
type Key struct {
	Range  hcl.Range
	Key    string
	Parent string
	Path   string
	// Value is the leaf or node stored under the key.
	Value scope.Value
}

// ColorLiteral records a color expression at a source position. Hex holds
// the reference text instead when the reference was left unresolved.
type ColorLiteral struct {
	Range hcl.Range
	Hex   string
	IsRef bool // true for palette or local references
}

// Options controls how documents are evaluated.
type Options struct {
	Palette *config.Palette
	// AllowUnresolved accepts references the palette cannot resolve. Their
	// source text is used as the color. Editors use this when no manifest is
	// known.
	AllowUnresolved bool
}

// Error reports every problem found in a document.
type Error struct {
	Diags hcl.Diagnostics
}

func (e *Error) Error() string {
	return e.Diags.Error()
}

// Unwrap exposes structural scope errors attached to the diagnostics.
func (e *Error) Unwrap() []error {
	var errs []error
	for _, d := range e.Diags {
		if err, ok := d.Extra.(error); ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// Rules compiles the scope tree and appends the static rules.
func (d *Document) Rules() ([]scope.Rule, error) {
	rules, err := scope.Compile(d.Scopes)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", d.Filename, err)
	}
	return append(rules, d.Static...), nil
}

// KeyAt returns the entry written as key in the node resolved to parent.
func (d *Document) KeyAt(parent, key string) (Key, bool) {
	for _, k := range d.Keys {
		if k.Parent == parent && k.Key == key {
			return k, true
		}
	}
	return Key{}, false
}

// Load reads and parses the document at path.
func Load(fs afero.Fs, path string, opts Options) (*Document, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading scope document: %w", err)
	}
	return Parse(src, path, opts)
}

// Parse parses a document, choosing the syntax from the file extension.
func Parse(src []byte, filename string, opts Options) (*Document, error) {
	doc, diags := ParseDocument(src, filename, opts)
	if diags.HasErrors() {
		return nil, &Error{Diags: diags}
	}
	return doc, nil
}

// ParseDocument is Parse returning raw diagnostics. The document may be
// non-nil even when diags has errors, holding whatever parsed cleanly.
func ParseDocument(src []byte, filename string, opts Options) (*Document, hcl.Diagnostics) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".hcl":
		return ParseHCL(src, filename, opts)
	case ".yaml", ".yml", ".json":
		return ParseYAML(src, filename, opts)
	default:
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported scope document",
			Detail:   fmt.Sprintf("%s: unsupported scope document extension %q (valid: %s)", filename, ext, strings.Join(Extensions, ", ")),
		}}
	}
}

// Extensions lists the file extensions Parse accepts.
var Extensions = []string{".hcl", ".yaml", ".yml", ".json"}

// leafDiag describes a malformed leaf under key.
func leafDiag(rng hcl.Range, parent, key, detail string) *hcl.Diagnostic {
	err := &scope.Error{Path: parent, Key: key, Kind: scope.ErrMalformedLeaf, Detail: detail}
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Malformed scope leaf",
		Detail:   err.Error(),
		Subject:  rng.Ptr(),
		Extra:    err,
	}
}

// staticRule builds and validates a named rule written by hand. The
// foreground has already been resolved by the caller.
func staticRule(name string, scopes []string, foreground, fontStyle string) (scope.Rule, error) {
	if len(scopes) == 0 {
		return scope.Rule{}, errors.New("scope must list at least one selector")
	}
	for _, s := range scopes {
		if strings.TrimSpace(s) == "" {
			return scope.Rule{}, errors.New("scope selectors must not be empty")
		}
	}
	if foreground == "" && fontStyle == "" {
		return scope.Rule{}, errors.New("rule needs a foreground or a font style")
	}
	return scope.Rule{
		Name:       name,
		Scopes:     scopes,
		Foreground: foreground,
		FontStyle:  fontStyle,
	}, nil
}
