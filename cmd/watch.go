// Copyright © 2025 The MON authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/service"
	"github.com/monlang/mon/watch"
)

func (a *app) watchCommand() *cobra.Command {
	var (
		excludes    []string
		debounce    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch [dirs...]",
		Short: "Re-check MON files as they change",
		Long: `Analyze every MON file under the given directories (default ".") and
re-analyze whenever files change. A change to a file also re-checks the
files that import it, directly or indirectly.

Diagnostics of the re-checked files are printed after each run. With
--metrics-addr, Prometheus metrics are served at /metrics.

Examples:
  mon watch
  mon watch config/ --exclude '**/generated/**'
  mon watch . --metrics-addr localhost:9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := a.lintConfig(ctx, ".")
			if err != nil {
				return fatal(err)
			}

			svcOpts := a.serviceOptions()
			sessOpts := []watch.SessionOption{
				watch.WithLogger(a.logger),
				watch.WithDebounce(debounce),
				watch.WithExcludes(excludes...),
			}
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				svcOpts = append(svcOpts, service.WithMetrics(reg))
				sessOpts = append(sessOpts, watch.WithMetrics(reg))
				srv := a.serveMetrics(metricsAddr, reg)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}
			svc := service.New(svcOpts...)
			render := a.newRenderer(ctx, svc)
			sessOpts = append(sessOpts, watch.WithReport(func(snap *watch.Snapshot) {
				a.report(cmd.OutOrStdout(), render, snap)
			}))

			sess, err := watch.NewSession(svc, cfg, args, sessOpts...)
			if err != nil {
				return fatal(err)
			}
			if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fatal(err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "ignore files matching a glob pattern (repeatable)")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a batch of changes is analyzed")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func (a *app) serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		a.logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// report prints the diagnostics of the files a run re-analyzed.
func (a *app) report(w io.Writer, r *diagnostic.Renderer, snap *watch.Snapshot) {
	var nerr int
	for _, path := range snap.Changed {
		if err, ok := snap.Errors[path]; ok {
			nerr++
			fmt.Fprintf(w, "%s: %v\n\n", path, err)
			continue
		}
		res, ok := snap.Results[path]
		if !ok || len(res.Diagnostics) == 0 {
			continue
		}
		nerr += countErrors(res.Diagnostics)
		if err := r.RenderAll(w, withFile(res.Diagnostics, path)); err != nil {
			a.logger.Error("write diagnostics", "error", err)
			return
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "[%s] %s re-checked, %s\n",
		time.Now().Format(time.TimeOnly), plural(len(snap.Changed), "file"), plural(nerr, "error"))
}
