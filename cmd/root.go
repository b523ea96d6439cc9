// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cmd is firmo's thin Cobra front-end: it parses the flags
// from spec §6 into an orchestrator.Options record and calls
// orchestrator.RunOnce (or RunWatch), reimplementing none of the flag-parsing logic
// itself (cobra/pflag do that), directly grounded on the teacher's
// cmd.Command/cmd/test.go factory-and-flags pattern.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	fconfig "github.com/greggh/firmo/internal/config"
	"github.com/greggh/firmo/internal/flagutil"
	"github.com/greggh/firmo/internal/logging"
	"github.com/greggh/firmo/orchestrator"
	"github.com/greggh/firmo/quality"
	"github.com/greggh/firmo/registry"
	"github.com/greggh/firmo/watch"
)

const (
	consoleFormatDefault = "default"
	consoleFormatDot     = "dot"
	consoleFormatSummary = "summary"
	consoleFormatJSON    = "json_dump_internal"
)

// params holds every flag value, mirroring the teacher's
// testCommandParams struct.
type params struct {
	coverage        bool
	coverageDebug   bool
	quality         bool
	qualityLevel    int
	threshold       float64
	watchMode       bool
	interactive     bool
	parallel        bool
	report          bool
	jsonOutput      bool
	verbose         bool
	version         bool
	createConfig    bool
	pattern         string
	filter          string
	configPath      string
	reportDir       string
	reportFormats   string
	consoleFormat   *flagutil.EnumFlag
	extra           []string
}

// Version is the build-time version string, set via -ldflags the way
// the teacher's internal/version package is populated.
var Version = "dev"

// Command builds firmo's root *cobra.Command. rootCommand, if non-nil,
// is reused and extended rather than replaced, the same
// reuse-or-construct pattern as the teacher's cmd.Command(rootCommand,
// brand).
func Command(rootCommand *cobra.Command) *cobra.Command {
	if rootCommand == nil {
		rootCommand = &cobra.Command{
			Use:   "firmo [path ...]",
			Short: "Firmo BDD test runner",
			Long:  "Firmo discovers and runs BDD-style test suites, with optional coverage, quality grading, and multi-format reporting.",
		}
	}

	p := &params{
		consoleFormat: flagutil.NewEnumFlag(consoleFormatDefault, []string{
			consoleFormatDefault, consoleFormatDot, consoleFormatSummary, consoleFormatJSON,
		}),
	}

	rootCommand.RunE = func(c *cobra.Command, args []string) error {
		if p.version {
			fmt.Fprintln(c.OutOrStdout(), Version)
			return nil
		}
		code, err := run(args, p)
		if err != nil {
			fmt.Fprintln(c.ErrOrStderr(), err)
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	}

	flags := rootCommand.Flags()
	flags.BoolVarP(&p.coverage, "coverage", "c", false, "track and report line coverage")
	flags.BoolVar(&p.coverageDebug, "coverage-debug", false, "record a coverage-debug request in the run options (no extra diagnostics are printed)")
	flags.BoolVarP(&p.quality, "quality", "q", false, "grade test quality")
	flags.IntVar(&p.qualityLevel, "quality-level", int(quality.LevelComplete), "target quality level (1-5)")
	flags.Float64Var(&p.threshold, "threshold", 0, "minimum coverage percent; run fails below it")
	flags.BoolVarP(&p.watchMode, "watch", "w", false, "re-run on file changes")
	flags.BoolVarP(&p.interactive, "interactive", "i", false, "enable watch-mode keyboard commands (r/f/q)")
	flags.BoolVarP(&p.parallel, "parallel", "p", false, "run files in separate worker processes")
	flags.BoolVarP(&p.report, "report", "r", false, "write report files to --report-dir")
	flags.BoolVar(&p.jsonOutput, "json", false, "format log output as JSON (test results are not printed as JSON)")
	flags.BoolVarP(&p.verbose, "verbose", "v", false, "enable debug-level logging")
	flags.BoolVarP(&p.version, "version", "V", false, "print the version and exit")
	flags.BoolVar(&p.createConfig, "create-config", false, "write a default config file and exit")
	flags.StringVar(&p.pattern, "pattern", "", "glob matched against discovered file basenames")
	flags.StringVar(&p.filter, "filter", "", "regular expression narrowing which test names run")
	flags.StringVar(&p.configPath, "config", "", "path to a firmo config file")
	flags.StringVar(&p.reportDir, "report-dir", "./firmo-reports", "directory report files are written under")
	flags.StringVar(&p.reportFormats, "report-formats", "json", "comma-separated list of report formats")
	flags.VarP(p.consoleFormat, "console-format", "", "console output style (validated and recorded in the run options; output does not vary with it)")
	// --set is the Go rendering of "arbitrary --key=value sets the
	// central-config path key to value": cobra/pflag require every flag
	// to be declared up front, so a genuinely unregistered --anything=value
	// isn't possible. One repeatable, registered flag carries the same
	// arbitrary-key/arbitrary-value semantics instead.
	flags.StringArrayVar(&p.extra, "set", nil, "arbitrary key=value central-config override (repeatable)")

	return rootCommand
}

// run parses args/params into orchestrator.Options and executes the
// run, returning the process exit code (0 success, 1 any failure),
// per spec §6.
func run(args []string, p *params) (int, error) {
	if p.createConfig {
		store := fconfig.New()
		if err := fconfig.Save(store, defaultConfigPath(p.configPath)); err != nil {
			return 1, err
		}
		return 0, nil
	}

	if p.verbose {
		_ = logging.Global().SetLevel("debug")
	}
	if p.jsonOutput {
		logging.Global().SetJSONFormatter()
	}

	opts := orchestrator.Options{
		Paths:         normalizePaths(args),
		Pattern:       p.pattern,
		Coverage:      p.coverage,
		CoverageDebug: p.coverageDebug,
		Threshold:     p.threshold,
		Quality:       p.quality,
		QualityLevel:  quality.Level(p.qualityLevel),
		Watch:         p.watchMode,
		Interactive:   p.interactive,
		Parallel:      p.parallel,
		ConsoleFormat: p.consoleFormat.String(),
		JSON:          p.jsonOutput,
		Verbose:       p.verbose,
		ConfigPath:    p.configPath,
		Extra:         parseExtra(p.extra),
	}
	if len(opts.Paths) > 0 {
		opts.BaseTestDir = opts.Paths[0]
		opts.WatchRoots = opts.Paths
	}
	if p.filter != "" {
		re, err := regexp.Compile(p.filter)
		if err != nil {
			return 1, fmt.Errorf("invalid --filter: %w", err)
		}
		opts.Filter = registry.Filter{NameMatches: func(path string) bool { return re.MatchString(path) }}
	}
	if p.report {
		opts.ReportDir = p.reportDir
		opts.ReportFormats = strings.Split(p.reportFormats, ",")
	}

	ctx, stop := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		stop()
	}()

	if opts.Watch {
		var commands chan watch.Command
		if p.interactive {
			commands = make(chan watch.Command)
			go watch.ReadKeyboard(os.Stdin, commands)
		}
		failed := false
		err := orchestrator.RunWatch(ctx, opts, ctx.Done(), commands, func(res *orchestrator.Result, err error) {
			if err != nil || res == nil || !res.Success {
				failed = true
			}
		})
		if err != nil {
			return 1, err
		}
		if failed {
			return 1, nil
		}
		return 0, nil
	}

	res, err := orchestrator.RunOnce(ctx, opts)
	if err != nil {
		return 1, err
	}
	if !res.Success {
		return 1, nil
	}
	return 0, nil
}

func normalizePaths(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

func defaultConfigPath(configured string) string {
	if configured != "" {
		return configured
	}
	return "firmo.yaml"
}

// parseExtra turns a list of "key=value" strings (repeated --set
// flags, spec §6's "arbitrary --key=value sets the central-config
// path") into a map. Malformed pairs (no "=") are dropped.
func parseExtra(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
