// Package engine assembles a theme from a manifest and its scope documents.
package engine

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/jsvensson/tokentheme/internal/config"
	"github.com/jsvensson/tokentheme/internal/parser"
	"github.com/jsvensson/tokentheme/internal/scope"
	"github.com/jsvensson/tokentheme/internal/theme"
	"github.com/spf13/afero"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("tokentheme.engine")

// Engine builds theme files. Every path it reads or writes goes through Fs.
type Engine struct {
	Fs afero.Fs

	// KeepGoing skips documents that fail to load or compile instead of
	// aborting the build. The failures are returned together.
	KeepGoing bool

	// Notify, when set, is called by Watch after every build with the
	// output path and the build error.
	Notify func(output string, err error)
}

// New returns an engine reading and writing through fs.
func New(fs afero.Fs) *Engine {
	return &Engine{Fs: fs}
}

// LoadManifest reads the manifest at path. Its Dir is made absolute so that
// sources resolve the same way regardless of the working directory.
func (e *Engine) LoadManifest(path string) (*config.Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest path: %w", err)
	}
	m, err := config.Load(e.Fs, abs)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}
	return m, nil
}

// Build loads the manifest at path and compiles its sources into a theme.
//
// Documents are compiled independently and their rules concatenated in
// source order. With KeepGoing a non-nil theme may come back together with
// an error listing the skipped documents.
func (e *Engine) Build(path string) (*theme.Theme, error) {
	m, err := e.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return e.BuildManifest(m)
}

// BuildManifest compiles the sources of an already loaded manifest.
func (e *Engine) BuildManifest(m *config.Manifest) (*theme.Theme, error) {
	sources, err := e.Sources(m)
	if err != nil {
		return nil, err
	}

	th := &theme.Theme{
		Name:        m.Name,
		Type:        m.Type,
		Colors:      m.Colors,
		TokenColors: []scope.Rule{},
	}
	opts := parser.Options{Palette: m.Palette}

	var errs *multierror.Error
	for _, src := range sources {
		rules, err := e.CompileDocument(src, opts)
		if err != nil {
			if !e.KeepGoing {
				return nil, err
			}
			log.Warningf("skipping %s: %s", src, err)
			errs = multierror.Append(errs, err)
			continue
		}
		log.Debugf("compiled %s: %d rules", src, len(rules))
		th.TokenColors = append(th.TokenColors, rules...)
	}

	return th, errs.ErrorOrNil()
}

// CompileDocument loads one scope document and compiles it at the empty
// prefix, followed by its static rules.
func (e *Engine) CompileDocument(path string, opts parser.Options) ([]scope.Rule, error) {
	doc, err := parser.Load(e.Fs, path, opts)
	if err != nil {
		return nil, err
	}
	return doc.Rules()
}

// Run builds the theme and writes it to the manifest's output path, which
// is returned. A KeepGoing build that skipped documents still writes the
// theme and reports the skipped documents as the error.
func (e *Engine) Run(path string) (string, error) {
	m, err := e.LoadManifest(path)
	if err != nil {
		return "", err
	}

	th, buildErr := e.BuildManifest(m)
	if th == nil {
		return "", buildErr
	}

	out := OutputPath(m)
	if err := e.write(out, th); err != nil {
		return "", err
	}
	log.Infof("wrote %s (%d rules)", out, len(th.TokenColors))
	return out, buildErr
}

// OutputPath resolves the manifest's output against its directory.
func OutputPath(m *config.Manifest) string {
	if filepath.IsAbs(m.Output) {
		return m.Output
	}
	return filepath.Join(m.Dir, m.Output)
}

func (e *Engine) write(path string, th *theme.Theme) error {
	var buf bytes.Buffer
	if err := th.Encode(&buf); err != nil {
		return fmt.Errorf("encoding theme: %w", err)
	}
	if err := e.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := afero.WriteFile(e.Fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing theme %s: %w", path, err)
	}
	return nil
}
