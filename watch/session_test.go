// Copyright © 2025 The MON authors

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/montest"
	"github.com/monlang/mon/service"
)

var project = montest.Files{
	"/lib.mon":      `{ &port: 8080 }`,
	"/main.mon":     `import { &port } from "./lib.mon"` + "\n" + `{ p: *port }`,
	"/other.mon":    `{ x: 1 }`,
	"/gen/skip.mon": `{ a: `,
}

func newSession(t *testing.T, dir string, opts ...SessionOption) *Session {
	t.Helper()
	svc := service.New(service.WithLogger(montest.Logger(t)))
	base := []SessionOption{WithLogger(montest.Logger(t)), WithExcludes("**/gen/**")}
	s, err := NewSession(svc, lint.DefaultConfig(), []string{dir}, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func codes(r *service.Result) []diagnostic.Code {
	var out []diagnostic.Code
	for _, d := range r.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func TestSessionScan(t *testing.T) {
	dir := project.WriteDir(t)
	s := newSession(t, dir)

	snap, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "lib.mon"),
		filepath.Join(dir, "main.mon"),
		filepath.Join(dir, "other.mon"),
	}, snap.Paths())
	assert.Empty(t, snap.Errors)
	assert.False(t, snap.HasErrors())
	assert.Same(t, snap, s.Snapshot())
}

func TestSessionApplyReanalyzesDependents(t *testing.T) {
	dir := project.WriteDir(t)
	reg := prometheus.NewRegistry()
	s := newSession(t, dir, WithMetrics(reg))
	first, err := s.Scan(context.Background())
	require.NoError(t, err)

	lib := filepath.Join(dir, "lib.mon")
	main := filepath.Join(dir, "main.mon")
	other := filepath.Join(dir, "other.mon")
	require.NoError(t, os.WriteFile(lib, []byte(`{ &host: "x" }`), 0o600))

	next, err := s.Apply(context.Background(), []string{lib})
	require.NoError(t, err)
	assert.Equal(t, []string{lib, main}, next.Changed)
	assert.Contains(t, codes(next.Results[main]), diagnostic.UndefinedNamespaceMember)
	assert.True(t, next.HasErrors())

	// Files outside the change keep their result; the previous snapshot is
	// left as it was.
	assert.Same(t, first.Results[other], next.Results[other])
	assert.NotContains(t, codes(first.Results[main]), diagnostic.UndefinedNamespaceMember)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.runs))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.files))
}

func TestSessionApplyRemovedFile(t *testing.T) {
	dir := project.WriteDir(t)
	s := newSession(t, dir)
	_, err := s.Scan(context.Background())
	require.NoError(t, err)

	lib := filepath.Join(dir, "lib.mon")
	main := filepath.Join(dir, "main.mon")
	require.NoError(t, os.Remove(lib))

	snap, err := s.Apply(context.Background(), []string{lib})
	require.NoError(t, err)
	assert.NotContains(t, snap.Paths(), lib)
	assert.Equal(t, []string{main}, snap.Changed)
	assert.Contains(t, codes(snap.Results[main]), diagnostic.ImportNotFound)
}

func TestSessionApplyIgnoresExcluded(t *testing.T) {
	dir := project.WriteDir(t)
	s := newSession(t, dir)
	_, err := s.Scan(context.Background())
	require.NoError(t, err)

	snap, err := s.Apply(context.Background(), []string{
		filepath.Join(dir, "gen", "skip.mon"),
		filepath.Join(t.TempDir(), "elsewhere.mon"),
	})
	require.NoError(t, err)
	assert.Empty(t, snap.Changed)
	assert.Len(t, snap.Paths(), 3)
}

func TestSessionRun(t *testing.T) {
	dir := project.WriteDir(t)
	var (
		mu    sync.Mutex
		snaps []*Snapshot
	)
	s := newSession(t, dir, WithDebounce(20*time.Millisecond), WithReport(func(snap *Snapshot) {
		mu.Lock()
		snaps = append(snaps, snap)
		mu.Unlock()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Give the watcher time to register the directories.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.mon"), []byte(`{ x: 1, x: 2 }`), 0o600))
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		r := snap.Results[filepath.Join(dir, "other.mon")]
		return r != nil && r.HasErrors()
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
