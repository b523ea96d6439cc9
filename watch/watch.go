// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package watch implements the poll/event-based re-run loop from spec
// §4.9: a directory snapshot diff as a portable fallback, an
// fsnotify-driven event stream as the primary signal, debounce, and
// exclude patterns, directly grounded on the teacher's
// internal/pathwatcher (CreatePathWatcher, getWatchPaths) and the
// cmd/test.go watch loop's event-masking/debounce-by-rerun discipline.
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/greggh/firmo/ferror"
)

// Change is one observed filesystem change.
type Change struct {
	Path string
	Op   string // "created", "modified", "removed"
}

// Snapshot maps a watched path to its last-seen mtime/size, the
// portable poll-based fallback used when fsnotify is unavailable or
// as the source of truth for the periodic reconciliation tick.
type Snapshot map[string]fileStat

type fileStat struct {
	modTime time.Time
	size    int64
}

// Walk builds a Snapshot of every regular file under roots, skipping
// paths matched by exclude.
func Walk(roots []string, exclude []glob.Glob) (Snapshot, error) {
	snap := Snapshot{}
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if matchesAny(path, exclude) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			snap[path] = fileStat{modTime: info.ModTime(), size: info.Size()}
			return nil
		})
		if err != nil {
			return nil, ferror.Wrap(ferror.IO, err, "watch: failed to walk %s", root)
		}
	}
	return snap, nil
}

// Diff compares old against cur, returning every created/modified/
// removed path as a Change, sorted for determinism.
func Diff(old, cur Snapshot) []Change {
	var changes []Change
	for path, st := range cur {
		prev, existed := old[path]
		if !existed {
			changes = append(changes, Change{Path: path, Op: "created"})
			continue
		}
		if !prev.modTime.Equal(st.modTime) || prev.size != st.size {
			changes = append(changes, Change{Path: path, Op: "modified"})
		}
	}
	for path := range old {
		if _, ok := cur[path]; !ok {
			changes = append(changes, Change{Path: path, Op: "removed"})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

func matchesAny(path string, patterns []glob.Glob) bool {
	for _, g := range patterns {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, ferror.Wrap(ferror.Validation, err, "watch: invalid exclude pattern %q", p)
		}
		out = append(out, g)
	}
	return out, nil
}

// Options configures a Watcher.
type Options struct {
	// Roots are the directories to watch.
	Roots []string
	// Exclude is a list of glob patterns removed from both the
	// snapshot and any change set, per spec §4.9.
	Exclude []string
	// PollInterval is the poll tick period; spec's default is 1.0s.
	PollInterval time.Duration
	// Debounce coalesces rapid-fire changes; spec's default is 0.5s.
	Debounce time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	return o
}

// Watcher drives the poll-and-debounce loop described in spec §4.9,
// preferring fsnotify events when available and always falling back
// to the periodic snapshot diff (covers network filesystems and
// editors that replace-on-save in ways fsnotify sometimes misses).
type Watcher struct {
	opts    Options
	exclude []glob.Glob
	fsw     *fsnotify.Watcher
}

// New constructs a Watcher over opts.Roots. It attempts to install an
// fsnotify watch on every root directory; failure to do so is
// non-fatal, since the poll fallback still covers the same ground.
func New(opts Options) (*Watcher, error) {
	opts = opts.withDefaults()
	excl, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}
	w := &Watcher{opts: opts, exclude: excl}

	if fsw, err := fsnotify.NewWatcher(); err == nil {
		for _, root := range opts.Roots {
			_ = fsw.Add(root) // best-effort; poll fallback covers misses
		}
		w.fsw = fsw
	}
	return w, nil
}

// Close releases the underlying fsnotify watcher, if any.
func (w *Watcher) Close() error {
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// Run drives the debounced poll loop until stop is closed, invoking
// onChange with the accumulated, deduplicated change set once the
// debounce window elapses with no further activity. Run blocks until
// stop closes.
func (w *Watcher) Run(stop <-chan struct{}, onChange func([]Change)) error {
	snap, err := Walk(w.opts.Roots, w.exclude)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var pending map[string]Change
	flush := func() {
		if len(pending) == 0 {
			return
		}
		changes := make([]Change, 0, len(pending))
		for _, c := range pending {
			changes = append(changes, c)
		}
		sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
		pending = nil
		onChange(changes)
	}

	queue := func(c Change) {
		if pending == nil {
			pending = map[string]Change{}
		}
		pending[c.Path] = c
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(w.opts.Debounce, flush)
	}

	var fsEvents <-chan fsnotify.Event
	if w.fsw != nil {
		fsEvents = w.fsw.Events
	}

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			cur, err := Walk(w.opts.Roots, w.exclude)
			if err != nil {
				continue
			}
			for _, c := range Diff(snap, cur) {
				queue(c)
			}
			snap = cur
		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if matchesAny(ev.Name, w.exclude) {
				continue
			}
			queue(fsnotifyToChange(ev))
		}
	}
}

func fsnotifyToChange(ev fsnotify.Event) Change {
	switch {
	case ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0:
		return Change{Path: ev.Name, Op: "removed"}
	case ev.Op&fsnotify.Create != 0:
		return Change{Path: ev.Name, Op: "created"}
	default:
		return Change{Path: ev.Name, Op: "modified"}
	}
}
