package engine

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jsvensson/tokentheme/internal/config"
	"github.com/spf13/afero"
)

// Sources expands the manifest's source list into document paths.
//
// Plain entries keep their listed position. Glob entries expand to their
// matches in lexical order, and a glob matching nothing is an error. A path
// reached twice is kept at its first position only.
func (e *Engine) Sources(m *config.Manifest) ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(e.Fs, m.Dir))

	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if seen[p] {
			log.Debugf("source %s listed twice, keeping the first", p)
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	for _, src := range m.Sources {
		if !isGlob(src) {
			p := src
			if !filepath.IsAbs(p) {
				p = filepath.Join(m.Dir, p)
			}
			add(filepath.Clean(p))
			continue
		}

		pattern := path.Clean(filepath.ToSlash(src))
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("source %q: invalid glob pattern", src)
		}
		if path.IsAbs(pattern) || pattern == ".." || strings.HasPrefix(pattern, "../") {
			return nil, fmt.Errorf("source %q: glob patterns must stay inside the manifest directory", src)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding source %q: %w", src, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("source %q matched no files", src)
		}
		sort.Strings(matches)
		for _, match := range matches {
			add(filepath.Join(m.Dir, filepath.FromSlash(match)))
		}
	}

	return out, nil
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
