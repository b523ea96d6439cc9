// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"text/template"
)

// builtinFormatters returns every formatter from spec §4.8. Non-HTML
// formatters write their output directly, with fmt.Fprintf or the
// encoding/json, encoding/xml and encoding/csv encoders, matching the teacher's own tester/reporter.go, which
// never reaches for a templating library either (see DESIGN.md);
// HTML is the one formatter complex enough to earn text/template.
func builtinFormatters() []Formatter {
	var out []Formatter
	for _, t := range []Type{TypeResults, TypeCoverage, TypeQuality} {
		out = append(out, textFormatter{rt: t}, jsonFormatter{rt: t}, markdownFormatter{rt: t}, htmlFormatter{rt: t})
	}
	out = append(out, lcovFormatter{}, coberturaFormatter{})
	out = append(out, junitFormatter{}, tapFormatter{}, csvFormatter{rt: TypeResults})
	out = append(out, csvFormatter{rt: TypeCoverage})
	return out
}

// --- text ---

type textFormatter struct{ rt Type }

func (f textFormatter) Name() string       { return "text" }
func (f textFormatter) ReportType() Type   { return f.rt }
func (f textFormatter) Extension() string  { return "txt" }

func (f textFormatter) Format(n *Normalized) ([]byte, error) {
	var buf bytes.Buffer
	switch n.ReportType {
	case TypeResults:
		for _, t := range n.Tests {
			fmt.Fprintf(&buf, "%-6s %s (%s, %.3fs)\n", t.Status, t.Path, t.FilePath, t.DurationS)
			if t.Error != "" {
				fmt.Fprintf(&buf, "  %s\n", t.Error)
			}
		}
		fmt.Fprintln(&buf, "---")
		fmt.Fprintf(&buf, "PASS: %d/%d\n", n.Summary.Passed, n.Summary.Total)
		fmt.Fprintf(&buf, "FAIL: %d/%d\n", n.Summary.Failed, n.Summary.Total)
		fmt.Fprintf(&buf, "SKIP: %d/%d\n", n.Summary.Skipped, n.Summary.Total)
	case TypeCoverage:
		paths := sortedFileKeys(n.Files)
		for _, p := range paths {
			fr := n.Files[p]
			fmt.Fprintf(&buf, "%-40s %6.2f%% (%d/%d)\n", p, fr.Coverage, fr.CoveredLines, fr.ExecutableLines)
		}
		fmt.Fprintf(&buf, "TOTAL: %.2f%% (%d/%d)\n", n.Summary.CoveragePercent, n.Summary.TotalCovered, n.Summary.TotalExecutable)
	case TypeQuality:
		if n.Quality != nil {
			for _, pt := range n.Quality.PerTest {
				fmt.Fprintf(&buf, "%-50s level=%s issues=%d\n", pt.Path, pt.Achieved, len(pt.Issues))
			}
		}
		fmt.Fprintf(&buf, "ACHIEVED LEVEL: %d/%d\n", n.Summary.AchievedLevel, n.Summary.TargetLevel)
	}
	return buf.Bytes(), nil
}

// --- json ---

type jsonFormatter struct{ rt Type }

func (f jsonFormatter) Name() string      { return "json" }
func (f jsonFormatter) ReportType() Type  { return f.rt }
func (f jsonFormatter) Extension() string { return "json" }

func (f jsonFormatter) Format(n *Normalized) ([]byte, error) {
	return json.MarshalIndent(n, "", "  ")
}

// --- markdown ---

type markdownFormatter struct{ rt Type }

func (f markdownFormatter) Name() string      { return "markdown" }
func (f markdownFormatter) ReportType() Type  { return f.rt }
func (f markdownFormatter) Extension() string { return "md" }

func (f markdownFormatter) Format(n *Normalized) ([]byte, error) {
	var buf bytes.Buffer
	switch n.ReportType {
	case TypeResults:
		fmt.Fprintln(&buf, "| Test | File | Status | Duration (s) |")
		fmt.Fprintln(&buf, "|---|---|---|---|")
		for _, t := range n.Tests {
			fmt.Fprintf(&buf, "| %s | %s | %s | %.3f |\n", t.Path, t.FilePath, t.Status, t.DurationS)
		}
	case TypeCoverage:
		fmt.Fprintln(&buf, "| File | Covered | Executable | Coverage |")
		fmt.Fprintln(&buf, "|---|---|---|---|")
		for _, p := range sortedFileKeys(n.Files) {
			fr := n.Files[p]
			fmt.Fprintf(&buf, "| %s | %d | %d | %.2f%% |\n", p, fr.CoveredLines, fr.ExecutableLines, fr.Coverage)
		}
	case TypeQuality:
		fmt.Fprintln(&buf, "| Test | Level | Issues |")
		fmt.Fprintln(&buf, "|---|---|---|")
		if n.Quality != nil {
			for _, pt := range n.Quality.PerTest {
				fmt.Fprintf(&buf, "| %s | %s | %d |\n", pt.Path, pt.Achieved, len(pt.Issues))
			}
		}
	}
	return buf.Bytes(), nil
}

// --- html ---

const htmlResultsTemplate = `<!DOCTYPE html>
<html><head><title>Test Results</title></head><body>
<h1>Test Results</h1>
<p>{{.Summary.Passed}}/{{.Summary.Total}} passed, {{.Summary.Failed}} failed, {{.Summary.Skipped}} skipped</p>
<table border="1">
<tr><th>Path</th><th>File</th><th>Status</th><th>Duration (s)</th></tr>
{{range .Tests}}<tr><td>{{.Path}}</td><td>{{.FilePath}}</td><td>{{.Status}}</td><td>{{printf "%.3f" .DurationS}}</td></tr>
{{end}}</table>
</body></html>
`

const htmlCoverageTemplate = `<!DOCTYPE html>
<html><head><title>Coverage Report</title></head><body>
<h1>Coverage Report</h1>
<p>{{printf "%.2f" .Summary.CoveragePercent}}% overall ({{.Summary.TotalCovered}}/{{.Summary.TotalExecutable}})</p>
<table border="1">
<tr><th>File</th><th>Covered</th><th>Executable</th><th>Coverage</th></tr>
{{range $path, $fr := .Files}}<tr><td>{{$path}}</td><td>{{$fr.CoveredLines}}</td><td>{{$fr.ExecutableLines}}</td><td>{{printf "%.2f" $fr.Coverage}}%</td></tr>
{{end}}</table>
</body></html>
`

const htmlQualityTemplate = `<!DOCTYPE html>
<html><head><title>Quality Report</title></head><body>
<h1>Quality Report</h1>
<p>Achieved level {{.Summary.AchievedLevel}} of target {{.Summary.TargetLevel}}</p>
<table border="1">
<tr><th>Path</th><th>Level</th><th>Issues</th></tr>
{{if .Quality}}{{range .Quality.PerTest}}<tr><td>{{.Path}}</td><td>{{.Achieved}}</td><td>{{len .Issues}}</td></tr>
{{end}}{{end}}</table>
</body></html>
`

type htmlFormatter struct{ rt Type }

func (f htmlFormatter) Name() string      { return "html" }
func (f htmlFormatter) ReportType() Type  { return f.rt }
func (f htmlFormatter) Extension() string { return "html" }

func (f htmlFormatter) Format(n *Normalized) ([]byte, error) {
	var tmplSrc string
	switch n.ReportType {
	case TypeResults:
		tmplSrc = htmlResultsTemplate
	case TypeCoverage:
		tmplSrc = htmlCoverageTemplate
	case TypeQuality:
		tmplSrc = htmlQualityTemplate
	}
	tmpl, err := template.New("report").Parse(tmplSrc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- lcov (coverage only) ---

type lcovFormatter struct{}

func (f lcovFormatter) Name() string      { return "lcov" }
func (f lcovFormatter) ReportType() Type  { return TypeCoverage }
func (f lcovFormatter) Extension() string { return "lcov" }

func (f lcovFormatter) Format(n *Normalized) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range sortedFileKeys(n.Files) {
		fr := n.Files[p]
		fmt.Fprintf(&buf, "SF:%s\n", p)
		fmt.Fprintf(&buf, "LF:%d\n", fr.ExecutableLines)
		fmt.Fprintf(&buf, "LH:%d\n", fr.CoveredLines)
		fmt.Fprintln(&buf, "end_of_record")
	}
	return buf.Bytes(), nil
}

// --- cobertura xml (coverage only) ---

type coberturaClass struct {
	XMLName        xml.Name `xml:"class"`
	Name           string   `xml:"name,attr"`
	Filename       string   `xml:"filename,attr"`
	LineRate       float64  `xml:"line-rate,attr"`
}

type coberturaPackage struct {
	XMLName  xml.Name         `xml:"package"`
	Name     string           `xml:"name,attr"`
	LineRate float64          `xml:"line-rate,attr"`
	Classes  []coberturaClass `xml:"classes>class"`
}

type coberturaCoverage struct {
	XMLName    xml.Name           `xml:"coverage"`
	LineRate   float64            `xml:"line-rate,attr"`
	Packages   []coberturaPackage `xml:"packages>package"`
}

type coberturaFormatter struct{}

func (f coberturaFormatter) Name() string      { return "cobertura" }
func (f coberturaFormatter) ReportType() Type  { return TypeCoverage }
func (f coberturaFormatter) Extension() string { return "xml" }

func (f coberturaFormatter) Format(n *Normalized) ([]byte, error) {
	cov := coberturaCoverage{LineRate: n.Summary.CoveragePercent / 100}
	pkg := coberturaPackage{Name: "firmo", LineRate: n.Summary.CoveragePercent / 100}
	for _, p := range sortedFileKeys(n.Files) {
		fr := n.Files[p]
		pkg.Classes = append(pkg.Classes, coberturaClass{Name: p, Filename: p, LineRate: fr.Coverage / 100})
	}
	cov.Packages = []coberturaPackage{pkg}
	body, err := xml.MarshalIndent(cov, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// --- junit xml (results only) ---

type junitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *struct{}     `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

type junitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	TestCases []junitTestCase `xml:"testcase"`
}

type junitFormatter struct{}

func (f junitFormatter) Name() string      { return "junit" }
func (f junitFormatter) ReportType() Type  { return TypeResults }
func (f junitFormatter) Extension() string { return "xml" }

func (f junitFormatter) Format(n *Normalized) ([]byte, error) {
	suite := junitTestSuite{Name: "firmo", Tests: n.Summary.Total, Failures: n.Summary.Failed + n.Summary.Errored, Skipped: n.Summary.Skipped}
	for _, t := range n.Tests {
		tc := junitTestCase{Name: t.Path, Classname: t.FilePath, Time: t.DurationS}
		suite.Time += t.DurationS
		if t.Status == "fail" || t.Status == "error" {
			tc.Failure = &junitFailure{Message: t.Error, Body: t.Error}
		}
		if t.Status == "skip" {
			tc.Skipped = &struct{}{}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}
	body, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// --- tap (results only) ---

type tapFormatter struct{}

func (f tapFormatter) Name() string      { return "tap" }
func (f tapFormatter) ReportType() Type  { return TypeResults }
func (f tapFormatter) Extension() string { return "tap" }

func (f tapFormatter) Format(n *Normalized) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "1..%d\n", len(n.Tests))
	for i, t := range n.Tests {
		switch t.Status {
		case "pass":
			fmt.Fprintf(&buf, "ok %d - %s\n", i+1, t.Path)
		case "skip":
			fmt.Fprintf(&buf, "ok %d - %s # SKIP %s\n", i+1, t.Path, t.SkipReason)
		default:
			fmt.Fprintf(&buf, "not ok %d - %s\n", i+1, t.Path)
			if t.Error != "" {
				fmt.Fprintf(&buf, "  ---\n  message: %q\n  ...\n", t.Error)
			}
		}
	}
	return buf.Bytes(), nil
}

// --- csv (results or coverage) ---

type csvFormatter struct{ rt Type }

func (f csvFormatter) Name() string      { return "csv" }
func (f csvFormatter) ReportType() Type  { return f.rt }
func (f csvFormatter) Extension() string { return "csv" }

func (f csvFormatter) Format(n *Normalized) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	switch n.ReportType {
	case TypeResults:
		w.Write([]string{"path", "file", "status", "duration_s", "error"})
		for _, t := range n.Tests {
			w.Write([]string{t.Path, t.FilePath, t.Status, fmt.Sprintf("%.6f", t.DurationS), t.Error})
		}
	case TypeCoverage:
		w.Write([]string{"file", "covered", "executable", "coverage_percent"})
		for _, p := range sortedFileKeys(n.Files) {
			fr := n.Files[p]
			w.Write([]string{p, fmt.Sprint(fr.CoveredLines), fmt.Sprint(fr.ExecutableLines), fmt.Sprintf("%.2f", fr.Coverage)})
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func sortedFileKeys(m map[string]FileSummary) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
