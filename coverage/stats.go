// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package coverage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/greggh/firmo/ferror"
)

// statsVersion is the stats file's format version, bumped whenever the
// on-disk shape changes incompatibly.
const statsVersion = 1

// statsFile is the versioned, length-prefix-free JSON shape persisted
// to disk, mirroring the teacher's bundle manifest
// write-temp-then-rename discipline rather than any custom binary
// format (spec §6 allows either "binary-neutral text").
type statsFile struct {
	Version int                    `json:"version"`
	Files   map[string]statsEntry  `json:"files"`
}

type statsEntry struct {
	Hits    map[string]uint64 `json:"hits"` // line number, stringified for JSON object keys
	MaxLine int               `json:"max_line"`
}

// SaveStats flushes the tracker's current hit counts to path,
// atomically: write to a temp file in the same directory, then
// os.Rename over the destination, so a reader never observes a
// partially-written stats file.
func (t *Tracker) SaveStats(path string) error {
	t.mu.Lock()
	out := statsFile{Version: statsVersion, Files: map[string]statsEntry{}}
	for file, hits := range t.hits {
		entry := statsEntry{Hits: map[string]uint64{}}
		maxLine := 0
		for line, count := range hits {
			entry.Hits[itoa(line)] = count
			if line > maxLine {
				maxLine = line
			}
		}
		for line := range t.total[file] {
			if line > maxLine {
				maxLine = line
			}
		}
		entry.MaxLine = maxLine
		out.Files[file] = entry
	}
	t.mu.Unlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return ferror.Wrap(ferror.IO, err, "coverage: failed to marshal stats")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ferror.Wrap(ferror.IO, err, "coverage: failed to create stats directory %s", dir)
		}
	}
	tmp, err := os.CreateTemp(dir, ".coverage-stats-*.tmp")
	if err != nil {
		return ferror.Wrap(ferror.IO, err, "coverage: failed to create temp stats file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return ferror.Wrap(ferror.IO, err, "coverage: failed to write temp stats file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return ferror.Wrap(ferror.IO, err, "coverage: failed to close temp stats file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return ferror.Wrap(ferror.IO, err, "coverage: failed to rename temp stats file to %s", path)
	}
	return nil
}

// LoadStats reads path and merges its hit counts additively into t,
// so accumulating stats across repeated runs is commutative (spec §8:
// "load+merge is associative"). A missing file is not an error; it
// means "no prior stats".
func (t *Tracker) LoadStats(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return ferror.Wrap(ferror.IO, err, "coverage: failed to read stats file %s", path)
	}

	var in statsFile
	if err := json.Unmarshal(data, &in); err != nil {
		return ferror.Wrap(ferror.IO, err, "coverage: failed to parse stats file %s", path)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for file, entry := range in.Files {
		if !t.shouldTrack(file) {
			continue
		}
		hits, ok := t.hits[file]
		if !ok {
			hits = map[int]uint64{}
			t.hits[file] = hits
		}
		for lineStr, count := range entry.Hits {
			line := atoiOrZero(lineStr)
			if line > 0 {
				hits[line] += count
			}
		}
	}
	return nil
}

// TickFlush flushes stats to path every step executed lines (spec
// §4.6 "on every N executed lines if tick=true with step
// savestepsize"). Call it once per Hit when tick mode is enabled; it
// tracks its own internal counter and is a no-op between steps.
type TickFlush struct {
	Path string
	Step int

	count int
}

// Tick increments the internal counter and flushes t's stats to f.Path
// once f.Step hits have accumulated since the last flush.
func (f *TickFlush) Tick(t *Tracker) error {
	if f.Step <= 0 {
		return nil
	}
	f.count++
	if f.count < f.Step {
		return nil
	}
	f.count = 0
	return t.SaveStats(f.Path)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func atoiOrZero(s string) int {
	n := 0
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}
