// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package report

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/greggh/firmo/ferror"
)

// DefaultTemplate is spec §6's default filename template.
const DefaultTemplate = "{report_dir}/{type}-report{suffix}.{format}"

// Writer renders Normalized reports through a Registry and writes the
// resulting bytes to disk using path templates, atomically.
type Writer struct {
	// Dir fills the {report_dir} placeholder.
	Dir string
	// Templates overrides DefaultTemplate per report type; a missing
	// entry falls back to DefaultTemplate.
	Templates map[Type]string
}

// NewWriter returns a Writer rooted at dir with no per-type overrides.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

func (w *Writer) template(rt Type) string {
	if t, ok := w.Templates[rt]; ok && t != "" {
		return t
	}
	return DefaultTemplate
}

// Path expands a report type's filename template given a formatter,
// an optional suffix, the current time, and (for per-file reports) a
// slug of the source test file.
func (w *Writer) Path(rt Type, formatName, suffix string, now time.Time, testFileSlug string) string {
	tmpl := w.template(rt)
	replacer := strings.NewReplacer(
		"{report_dir}", w.Dir,
		"{type}", string(rt),
		"{format}", formatName,
		"{date}", now.Format("2006-01-02"),
		"{datetime}", now.Format("2006-01-02T15-04-05"),
		"{suffix}", suffix,
		"{test_file_slug}", testFileSlug,
	)
	return filepath.Clean(replacer.Replace(tmpl))
}

// Write renders n with formatter and writes it to the templated path,
// atomically: a temp file is written first and renamed over the
// destination only once the full render succeeds, so a formatter
// failure never partially overwrites a pre-existing file (spec §4.8).
func (w *Writer) Write(rt Type, formatter Formatter, n *Normalized, suffix string, now time.Time, testFileSlug string) (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	data, err := formatter.Format(n)
	if err != nil {
		return "", ferror.Wrap(ferror.Validation, err, "report: formatter %q failed", formatter.Name())
	}

	path := w.Path(rt, formatter.Extension(), suffix, now, testFileSlug)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ferror.Wrap(ferror.IO, err, "report: failed to create report directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return "", ferror.Wrap(ferror.IO, err, "report: failed to create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", ferror.Wrap(ferror.IO, err, "report: failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", ferror.Wrap(ferror.IO, err, "report: failed to close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", ferror.Wrap(ferror.IO, err, "report: failed to rename temp file to %s", path)
	}
	return path, nil
}

// AutoSave generates one file per requested format for every report
// type present in reports, per spec §4.8 "Auto-save". A formatter
// failure for one (type, format) pair aborts the whole AutoSave call,
// marking the run as failed, per spec's "Report generation failure
// marks the run as failed".
func AutoSave(w *Writer, reg *Registry, reports map[Type]*Normalized, formats []string, now time.Time) ([]string, error) {
	var written []string
	for rt, n := range reports {
		if n == nil {
			continue
		}
		for _, name := range formats {
			formatter, err := reg.Get(rt, name)
			if err != nil {
				// Not every format applies to every report type (e.g. "junit"
				// has no coverage variant); skip rather than fail the run.
				continue
			}
			path, err := w.Write(rt, formatter, n, "", now, "")
			if err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}
