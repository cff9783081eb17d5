// Copyright © 2025 The MON authors

package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/service"
)

// Snapshot is the analysis of every MON file under the watched roots. A
// snapshot is never modified; each run builds a new one.
type Snapshot struct {
	// Results holds the analysis of each file that could be analyzed,
	// keyed by canonical path.
	Results map[string]*service.Result
	// Errors holds the fatal error of each file whose analysis failed.
	Errors map[string]error
	// Changed lists the files analyzed by the run that built the snapshot.
	Changed []string
}

// Paths returns every analyzed path, sorted.
func (s *Snapshot) Paths() []string {
	out := make([]string, 0, len(s.Results)+len(s.Errors))
	for p := range s.Results {
		out = append(out, p)
	}
	for p := range s.Errors {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasErrors reports whether any file failed or has error diagnostics.
func (s *Snapshot) HasErrors() bool {
	if len(s.Errors) > 0 {
		return true
	}
	for _, r := range s.Results {
		if r.HasErrors() {
			return true
		}
	}
	return false
}

// Session keeps the analysis of the MON files under a set of root
// directories up to date as files change.
type Session struct {
	svc         *service.Service
	cfg         *lint.Config
	roots       []string
	logger      *slog.Logger
	report      func(*Snapshot)
	concurrency int
	debounce    time.Duration
	excludes    []string
	exclude     excludeSet
	metrics     *sessionMetrics

	mu     sync.RWMutex
	spaces []*analysis.Workspace
	snap   *Snapshot
}

type sessionMetrics struct {
	events prometheus.Counter
	runs   prometheus.Counter
	files  prometheus.Gauge
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session's logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithReport sets a function called with the snapshot built by each run.
func WithReport(fn func(*Snapshot)) SessionOption {
	return func(s *Session) { s.report = fn }
}

// WithConcurrency bounds the number of files analyzed at once.
func WithConcurrency(n int) SessionOption {
	return func(s *Session) { s.concurrency = n }
}

// WithDebounce sets the quiet period used by Run.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debounce = d }
}

// WithExcludes sets glob patterns of files and directories to ignore.
func WithExcludes(patterns ...string) SessionOption {
	return func(s *Session) { s.excludes = append(s.excludes, patterns...) }
}

// WithMetrics registers the session's collectors with reg.
func WithMetrics(reg prometheus.Registerer) SessionOption {
	return func(s *Session) {
		f := promauto.With(reg)
		s.metrics = &sessionMetrics{
			events: f.NewCounter(prometheus.CounterOpts{
				Name: "mon_watch_events_total",
				Help: "File system events received",
			}),
			runs: f.NewCounter(prometheus.CounterOpts{
				Name: "mon_watch_runs_total",
				Help: "Analysis runs triggered by changes",
			}),
			files: f.NewGauge(prometheus.GaugeOpts{
				Name: "mon_watch_files",
				Help: "Files in the current snapshot",
			}),
		}
	}
}

// NewSession creates a session analyzing the files under roots with svc.
// It fails when an exclude pattern is not a valid glob.
func NewSession(svc *service.Service, cfg *lint.Config, roots []string, opts ...SessionOption) (*Session, error) {
	s := &Session{
		svc:         svc,
		cfg:         cfg,
		roots:       roots,
		concurrency: 8,
		snap:        &Snapshot{Results: map[string]*service.Result{}, Errors: map[string]error{}},
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	exclude, err := compileExcludes(s.excludes)
	if err != nil {
		return nil, err
	}
	s.exclude = exclude
	return s, nil
}

// Snapshot returns the current snapshot.
func (s *Session) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Scan indexes the roots and analyzes every file in them.
func (s *Session) Scan(ctx context.Context) (*Snapshot, error) {
	var spaces []*analysis.Workspace
	var paths []string
	for _, root := range s.roots {
		ws, err := analysis.ScanWorkspace(ctx, root, analysis.WorkspaceOptions{
			Concurrency: s.concurrency,
			Logger:      s.logger,
		})
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, ws)
		for p := range ws.Files {
			if !s.excluded(p) {
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)

	s.mu.Lock()
	s.spaces = spaces
	s.mu.Unlock()

	next := &Snapshot{Results: map[string]*service.Result{}, Errors: map[string]error{}}
	if err := s.analyzeInto(ctx, next, paths); err != nil {
		return nil, err
	}
	s.publish(next)
	return next, nil
}

// Apply re-analyzes the changed files and every file importing them,
// directly or not. Removed files leave the snapshot.
func (s *Session) Apply(ctx context.Context, changed []string) (*Snapshot, error) {
	affected := make(map[string]bool)
	var removed []string

	s.mu.RLock()
	spaces := s.spaces
	prev := s.snap
	s.mu.RUnlock()

	for _, p := range changed {
		p, err := filepath.Abs(p)
		if err != nil || s.excluded(p) {
			continue
		}
		ws := workspaceFor(spaces, p)
		if ws == nil {
			continue
		}
		ws.Update(p, nil)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			removed = append(removed, p)
		} else {
			affected[p] = true
		}
		for _, d := range ws.Dependents(p) {
			if !s.excluded(d) {
				affected[d] = true
			}
		}
	}

	next := &Snapshot{
		Results: make(map[string]*service.Result, len(prev.Results)),
		Errors:  make(map[string]error, len(prev.Errors)),
	}
	for p, r := range prev.Results {
		next.Results[p] = r
	}
	for p, err := range prev.Errors {
		next.Errors[p] = err
	}
	for _, p := range removed {
		delete(next.Results, p)
		delete(next.Errors, p)
	}

	paths := make([]string, 0, len(affected))
	for p := range affected {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if err := s.analyzeInto(ctx, next, paths); err != nil {
		return nil, err
	}
	s.publish(next)
	return next, nil
}

func (s *Session) analyzeInto(ctx context.Context, snap *Snapshot, paths []string) error {
	results := make([]*service.Result, len(paths))
	errs := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.concurrency))
	for i, p := range paths {
		g.Go(func() error {
			results[i], errs[i] = s.svc.AnalyzeFile(gctx, p, s.cfg)
			if errors.Is(errs[i], context.Canceled) {
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, p := range paths {
		delete(snap.Results, p)
		delete(snap.Errors, p)
		if errs[i] != nil {
			snap.Errors[p] = errs[i]
			s.logger.Debug("analysis failed", "path", p, "error", errs[i])
			continue
		}
		snap.Results[p] = results[i]
	}
	snap.Changed = paths
	return nil
}

func (s *Session) publish(snap *Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.runs.Inc()
		s.metrics.files.Set(float64(len(snap.Results) + len(snap.Errors)))
	}
	s.logger.Info("analysis updated", "changed", len(snap.Changed), "files", len(snap.Results)+len(snap.Errors))
	if s.report != nil {
		s.report(snap)
	}
}

// Run scans the roots and then re-analyzes on every batch of changes until
// ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if _, err := s.Scan(ctx); err != nil {
		return err
	}
	w, err := NewWatcher(s.debounce, s.excludes, func(paths []string) {
		if _, err := s.Apply(ctx, paths); err != nil && ctx.Err() == nil {
			s.logger.Error("re-analysis failed", "error", err)
		}
	}, s.logger)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		w.events = s.metrics.events
	}
	if err := w.Watch(s.roots); err != nil {
		_ = w.Close()
		return err
	}
	<-ctx.Done()
	return w.Close()
}

func (s *Session) excluded(path string) bool {
	return s.exclude.match(path)
}

func workspaceFor(spaces []*analysis.Workspace, path string) *analysis.Workspace {
	for _, ws := range spaces {
		if path == ws.Root || strings.HasPrefix(path, ws.Root+string(filepath.Separator)) {
			return ws
		}
	}
	return nil
}
