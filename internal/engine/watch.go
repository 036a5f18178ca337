package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/jsvensson/tokentheme/internal/parser"
	"github.com/tliron/commonlog"
)

var watchLog = commonlog.GetLogger("tokentheme.watch")

// Debounce is how long Watch waits for further changes before rebuilding.
var Debounce = 150 * time.Millisecond

// Watch runs the build once and then again whenever the manifest or one of
// the directories holding its sources changes. Rebuilds never overlap and
// their errors are logged, not returned. Watch returns when ctx is done.
//
// fsnotify watches the real filesystem, so Fs should be backed by the OS.
func (e *Engine) Watch(ctx context.Context, path string) error {
	manifest, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving manifest path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	var output string
	rebuild := func() {
		out, err := e.Run(manifest)
		if err != nil {
			watchLog.Errorf("build failed: %s", err)
		}
		if out != "" {
			output = out
		}
		e.watchDirs(watcher, manifest)
		if e.Notify != nil {
			e.Notify(out, err)
		}
	}
	rebuild()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, manifest, output) {
				continue
			}
			watchLog.Debugf("%s: %s", ev.Op, ev.Name)
			if timer == nil {
				timer = time.NewTimer(Debounce)
			} else {
				timer.Reset(Debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			watchLog.Errorf("watcher: %s", err)

		case <-fire:
			fire = nil
			rebuild()
		}
	}
}

// watchDirs adds the manifest directory, the directory of every resolved
// source and the static base of every glob pattern.
func (e *Engine) watchDirs(w *fsnotify.Watcher, manifest string) {
	dirs := []string{filepath.Dir(manifest)}

	if m, err := e.LoadManifest(manifest); err == nil {
		for _, src := range m.Sources {
			if isGlob(src) {
				base, _ := doublestar.SplitPattern(filepath.ToSlash(src))
				dirs = append(dirs, filepath.Join(m.Dir, filepath.FromSlash(base)))
			}
		}
		if sources, err := e.Sources(m); err == nil {
			for _, src := range sources {
				dirs = append(dirs, filepath.Dir(src))
			}
		}
	}

	watched := w.WatchList()
	for _, dir := range dirs {
		if slices.Contains(watched, dir) {
			continue
		}
		if err := w.Add(dir); err != nil {
			watchLog.Warningf("cannot watch %s: %s", dir, err)
			continue
		}
		watched = append(watched, dir)
		watchLog.Debugf("watching %s", dir)
	}
}

// relevant reports whether an event should trigger a rebuild.
func relevant(ev fsnotify.Event, manifest, output string) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(ev.Name)
	if name == manifest {
		return true
	}
	if output != "" && name == output {
		return false
	}
	return slices.Contains(parser.Extensions, strings.ToLower(filepath.Ext(name)))
}
