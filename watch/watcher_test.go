// Copyright © 2025 The MON authors

package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monlang/mon/montest"
)

// batches records the batches delivered by a watcher.
type batches struct {
	mu   sync.Mutex
	seen map[string]int
	n    int
}

func (b *batches) add(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seen == nil {
		b.seen = make(map[string]int)
	}
	b.n++
	for _, p := range paths {
		b.seen[filepath.Base(p)]++
	}
}

func (b *batches) has(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen[name] > 0
}

func (b *batches) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func startWatcher(t *testing.T, dir string, excludes ...string) *batches {
	t.Helper()
	b := &batches{}
	w, err := NewWatcher(20*time.Millisecond, excludes, b.add, montest.Logger(t))
	require.NoError(t, err)
	require.NoError(t, w.Watch([]string{dir}))
	t.Cleanup(func() { assert.NoError(t, w.Close()) })
	return b
}

func write(t *testing.T, path, src string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
}

func TestWatcherBatchesChanges(t *testing.T) {
	dir := t.TempDir()
	b := startWatcher(t, dir)

	write(t, filepath.Join(dir, "a.mon"), `{ a: 1 }`)
	write(t, filepath.Join(dir, "b.mon"), `{ b: 1 }`)
	require.Eventually(t, func() bool {
		return b.has("a.mon") && b.has("b.mon")
	}, 5*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, b.count(), 2)
}

func TestWatcherFilters(t *testing.T) {
	dir := t.TempDir()
	b := startWatcher(t, dir, "skip_*.mon", "**/vendor/**")

	write(t, filepath.Join(dir, "notes.txt"), `text`)
	write(t, filepath.Join(dir, "skip_me.mon"), `{}`)
	write(t, filepath.Join(dir, "keep.mon"), `{}`)
	require.Eventually(t, func() bool { return b.has("keep.mon") }, 5*time.Second, 10*time.Millisecond)
	assert.False(t, b.has("notes.txt"))
	assert.False(t, b.has("skip_me.mon"))
}

func TestWatcherNewDirectory(t *testing.T) {
	dir := t.TempDir()
	b := startWatcher(t, dir)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Files created right after the directory may predate its watch; they
	// are picked up by the scan of the new directory.
	write(t, filepath.Join(sub, "inner.mon"), `{}`)
	require.Eventually(t, func() bool { return b.has("inner.mon") }, 5*time.Second, 10*time.Millisecond)
}

func TestNewWatcherRejectsBadInput(t *testing.T) {
	_, err := NewWatcher(0, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewWatcher(0, []string{"[unclosed"}, func([]string) {}, nil)
	assert.ErrorContains(t, err, "exclude pattern")
}

func TestExcludeSet(t *testing.T) {
	es, err := compileExcludes([]string{"*.gen.mon", "**/build/**"})
	require.NoError(t, err)
	assert.True(t, es.match("/w/x.gen.mon"))
	assert.True(t, es.match("/w/build/out.mon"))
	assert.False(t, es.match("/w/main.mon"))
}
