// Copyright © 2025 The MON authors

// Package montest holds helpers shared by the tests of the MON packages.
package montest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/position"
)

// Files maps slash-separated paths to file contents.
type Files map[string]string

// Paths returns the paths of fs, sorted.
func (fs Files) Paths() []string {
	out := make([]string, 0, len(fs))
	for p := range fs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Loader serves fs from memory.
func (fs Files) Loader() *analysis.MapLoader {
	return analysis.NewMapLoader(fs)
}

// WriteDir writes fs under a fresh temporary directory and returns its
// path. Leading slashes of the keys are ignored.
func (fs Files) WriteDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	for _, p := range fs.Paths() {
		full := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(p, "/")))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", full, err)
		}
		if err := os.WriteFile(full, []byte(fs[p]), 0o600); err != nil {
			t.Fatalf("write %s: %v", full, err)
		}
	}
	return dir
}

// PosOf returns the position of the n-th (zero-based) occurrence of needle
// in src. The test fails when there is no such occurrence.
func PosOf(t testing.TB, src, needle string, n int) position.Position {
	t.Helper()
	off := 0
	for i := 0; ; i++ {
		j := strings.Index(src[off:], needle)
		if j < 0 {
			t.Fatalf("occurrence %d of %q not found", n, needle)
		}
		if i == n {
			off += j
			break
		}
		off += j + len(needle)
	}
	return position.NewIndex(src).MustPosition(off)
}
