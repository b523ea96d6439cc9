// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package orchestrator wires every core package into the single
// end-to-end run described by spec §4.10: discover files, build the
// runner plus coverage/quality instrumentation, execute (sequentially,
// in parallel, or under a watch loop), grade quality, normalize and
// auto-save reports, and compute one composite success bit. Directly
// grounded on the teacher's cmd.opaTest / compileAndSetupTests /
// runTests sequence (load → compile/build runner+reporter → run N
// times → watch-or-exit).
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gobwas/glob"

	"github.com/greggh/firmo/assert"
	"github.com/greggh/firmo/coverage"
	"github.com/greggh/firmo/ferror"
	fconfig "github.com/greggh/firmo/internal/config"
	"github.com/greggh/firmo/internal/logging"
	"github.com/greggh/firmo/parallel"
	"github.com/greggh/firmo/quality"
	"github.com/greggh/firmo/registry"
	"github.com/greggh/firmo/report"
	"github.com/greggh/firmo/runner"
	"github.com/greggh/firmo/watch"
)

// Options is the fully-parsed form of the CLI surface in spec §6, the
// record cmd/ builds from flags and hands to RunOnce or RunWatch.
type Options struct {
	Paths          []string
	Pattern        string
	Filter         registry.Filter
	BaseTestDir    string

	Coverage        bool
	CoverageDebug   bool
	CoverageInclude []string
	CoverageExclude []string
	Threshold       float64
	StatsFile       string

	Quality      bool
	QualityLevel quality.Level

	Watch       bool
	Interactive bool
	WatchRoots  []string
	WatchExclude []string

	Parallel        bool
	ParallelWorkers int
	ParallelCommand parallel.CommandBuilder

	ReportDir     string
	ReportFormats []string
	ConsoleFormat string
	JSON          bool
	Verbose       bool

	ConfigPath string
	Extra      map[string]string

	Timeout time.Duration
}

// Result is what one end-to-end run produces: the per-file outcomes,
// the normalized reports keyed by type, and a single composite
// success bit (spec §8's "passes + errors + skipped = total_runnable"
// invariant holds within Files; Success additionally folds in
// coverage threshold and report-write failures).
type Result struct {
	Files       []*runner.FileResult
	Reports     map[report.Type]*report.Normalized
	Quality     *quality.Report
	WrittenPaths []string
	Success     bool
}

// FileLoaders is the process-wide map from a discovered file path to
// the runner.Loader that populates the registry for that file. Since
// firmo is a compiled Go binary rather than an interpreter, there is
// no runtime "load this source file" step the way the original
// dynamically-typed host has; a test file instead registers its own
// loader here from an init() function, and Discover intersects the
// registered set against the filesystem walk so paths that exist on
// disk but were never compiled in are reported rather than silently
// skipped.
var FileLoaders = map[string]runner.Loader{}

// RegisterFile installs loader as the entry point for path. Generated
// or hand-written test files call this from init().
func RegisterFile(path string, loader runner.Loader) {
	FileLoaders[path] = loader
}

// Discover walks roots (files or directories) collecting every
// registered file path whose basename matches pattern (a glob, default
// "*_test.*"), sorted for deterministic run order. A root that names a
// file is included when registered, whatever its basename.
func Discover(roots []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*_test.*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, ferror.Wrap(ferror.Validation, err, "orchestrator: invalid pattern %q", pattern)
	}

	seen := map[string]struct{}{}
	var out []string
	add := func(path string) {
		if _, ok := FileLoaders[path]; !ok {
			logging.Global().Warnf("orchestrator: %s has no registered loader; skipping it", path)
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, ferror.Wrap(ferror.IO, err, "orchestrator: cannot stat %s", root)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if g.Match(filepath.Base(path)) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, ferror.Wrap(ferror.IO, err, "orchestrator: failed to walk %s", root)
		}
	}
	sort.Strings(out)
	return out, nil
}

// multiInstrumentation fans a runner.Instrumentation call out to every
// installed observer (coverage tracker, quality collector), since
// runner.Runner only holds a single Instrumentation slot.
type multiInstrumentation struct {
	observers []runner.Instrumentation
}

func (m multiInstrumentation) StartTest(path string) {
	for _, o := range m.observers {
		o.StartTest(path)
	}
}

func (m multiInstrumentation) StopTest(path string, result *runner.Result) {
	for _, o := range m.observers {
		o.StopTest(path, result)
	}
}

// RunOnce executes opts.Paths exactly once (no watch loop) and returns
// the full Result. This is the seven-step sequence from spec §4.10:
// load config, build coverage/quality, discover files, run, stop
// coverage, grade quality, auto-save reports.
func RunOnce(ctx context.Context, opts Options) (*Result, error) {
	store := fconfig.New()
	if opts.ConfigPath != "" {
		if err := fconfig.LoadFile(store, opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	for k, v := range opts.Extra {
		fconfig.Set(store, k, v)
	}

	log := logging.Global()
	if opts.Verbose {
		_ = log.SetLevel("debug")
	}

	files, err := Discover(opts.Paths, opts.Pattern)
	if err != nil {
		return nil, err
	}

	var tracker *coverage.Tracker
	if opts.Coverage {
		var covErr error
		tracker, covErr = coverage.NewTracker(opts.CoverageInclude, opts.CoverageExclude)
		if covErr != nil {
			// Coverage-init failure is non-fatal (spec §4.10 step 2): log it
			// and continue the run with coverage simply omitted.
			log.Warnf("orchestrator: coverage disabled, failed to initialize tracker: %v", covErr)
			tracker = nil
		} else if opts.StatsFile != "" {
			_ = tracker.LoadStats(opts.StatsFile)
		}
	}

	var collector *quality.Collector
	if opts.Quality {
		collector = quality.NewCollector()
		collector.TargetLevel = opts.QualityLevel
		assert.SetDefaultRecorder(collector.Recorder())
	}

	observers := make([]runner.Instrumentation, 0, 2)
	if tracker != nil {
		observers = append(observers, tracker)
	}
	if collector != nil {
		observers = append(observers, collector)
	}
	var instrumentation runner.Instrumentation
	if len(observers) > 0 {
		instrumentation = multiInstrumentation{observers: observers}
	}

	var fileResults []*runner.FileResult
	if opts.Parallel && opts.ParallelCommand != nil {
		fileResults = runParallel(ctx, files, opts)
	} else {
		fileResults = runSequential(files, opts, instrumentation, collector)
	}

	if tracker != nil && opts.StatsFile != "" {
		if err := tracker.SaveStats(opts.StatsFile); err != nil {
			log.Warnf("orchestrator: failed to save coverage stats: %v", err)
		}
	}

	res := &Result{Files: fileResults, Reports: map[report.Type]*report.Normalized{}, Success: true}

	now := time.Now()
	resultsReport := report.NormalizeResults(fileResults, now)
	res.Reports[report.TypeResults] = resultsReport

	for _, fr := range fileResults {
		if !fr.Success() {
			res.Success = false
		}
	}

	if tracker != nil {
		covRep := tracker.Report()
		res.Reports[report.TypeCoverage] = report.NormalizeCoverage(covRep, now)
		if opts.Threshold > 0 {
			if err := covRep.CheckThreshold(opts.Threshold); err != nil {
				res.Success = false
				log.Warn(err.Error())
			}
		}
	}

	if collector != nil {
		qr := collector.Report()
		res.Quality = &qr
		res.Reports[report.TypeQuality] = report.NormalizeQuality(qr, now)
	}

	if opts.ReportDir != "" && len(opts.ReportFormats) > 0 {
		writer := report.NewWriter(opts.ReportDir)
		reg := report.NewDefaultRegistry()
		written, err := report.AutoSave(writer, reg, res.Reports, opts.ReportFormats, now)
		if err != nil {
			res.Success = false
			return res, err
		}
		res.WrittenPaths = written
	}

	return res, nil
}

func runSequential(files []string, opts Options, instrumentation runner.Instrumentation, collector *quality.Collector) []*runner.FileResult {
	results := make([]*runner.FileResult, 0, len(files))
	for _, file := range files {
		// Loaders register against registry.Default (the package-level
		// Describe/It forwarding functions have no way to target an
		// arbitrary instance), so the Runner driving them must read/reset
		// that same instance rather than a fresh one.
		reg := registry.Default
		r := &runner.Runner{Registry: reg, Timeout: opts.Timeout, Filter: opts.Filter, Instrumentation: instrumentation}
		load := FileLoaders[file]
		wrapped := runner.Loader(func() error {
			if err := load(); err != nil {
				return err
			}
			if collector != nil {
				collector.Observe(reg)
			}
			return nil
		})
		results = append(results, r.RunFile(file, wrapped))
	}
	return results
}

func runParallel(ctx context.Context, files []string, opts Options) []*runner.FileResult {
	workers := opts.ParallelWorkers
	if workers <= 0 {
		workers = 4
	}
	wire := parallel.Run(ctx, files, workers, opts.ParallelCommand)
	results := make([]*runner.FileResult, len(wire))
	for i, w := range wire {
		results[i] = wireToFileResult(files[i], w)
	}
	return results
}

func wireToFileResult(file string, w *parallel.WorkerResult) *runner.FileResult {
	fr := &runner.FileResult{File: file}
	if w.Wire == nil {
		fr.LoadErr = ferror.New(ferror.Execution, "parallel: worker for %s produced no parseable result", file)
		return fr
	}
	for _, t := range w.Wire.Results {
		fr.Results = append(fr.Results, &runner.Result{
			Path:       registry.Path{t.Path},
			Name:       t.Name,
			Status:     runner.Status(t.Status),
			Duration:   time.Duration(t.DurationS * float64(time.Second)),
			SkipReason: t.SkipReason,
		})
	}
	if w.ExitErr != nil && fr.Success() {
		// exit failure takes precedence even when every parsed test
		// reports pass, per spec §4.9/§8 scenario 8.
		fr.Results = append(fr.Results, &runner.Result{Status: runner.Error, Name: "worker process", Err: w.ExitErr})
	}
	return fr
}

// RunWatch drives RunOnce repeatedly under watch.Watcher, re-running
// on every filesystem change until stop closes or a keyboard "q" is
// read (when commands is non-nil). onResult is
// invoked after every run, including the first.
func RunWatch(ctx context.Context, opts Options, stop <-chan struct{}, commands <-chan watch.Command, onResult func(*Result, error)) error {
	run := func() {
		res, err := RunOnce(ctx, opts)
		onResult(res, err)
	}
	run()

	w, err := watch.New(watch.Options{Roots: opts.WatchRoots, Exclude: opts.WatchExclude})
	if err != nil {
		return err
	}
	defer w.Close()

	innerStop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(innerStop, func(changes []watch.Change) {
			if len(changes) == 0 {
				return
			}
			run()
		})
	}()

	for {
		select {
		case <-stop:
			close(innerStop)
			<-done
			return nil
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			switch cmd {
			case watch.CommandQuit:
				close(innerStop)
				<-done
				return nil
			case watch.CommandRerunAll, watch.CommandRerunFailed:
				run()
			}
		}
	}
}
