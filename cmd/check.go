// Copyright © 2025 The MON authors

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/service"
)

func (a *app) checkCommand() *cobra.Command {
	var (
		jsonOut  bool
		disable  []string
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "check [flags] [files...]",
		Short: "Report problems in MON files",
		Long: `Analyze MON files and report diagnostics.

Arguments may be files, directories, "dir/..." for a recursive walk (which
honours .gitignore), or glob patterns including "**". With no arguments the
current directory is checked recursively.

Exit status is 0 when no errors were found, 1 when any file has error
diagnostics and 2 when a file could not be analyzed at all.

Examples:
  mon check config.mon
  mon check ./...
  mon check 'services/**/*.mon' --exclude '**/testdata/**'
  mon check --json . > report.json
  mon check --disable MagicNumber,LINT3002 .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				args = []string{"./..."}
			}
			files, err := expandArgs(args, excludes)
			if err != nil {
				return fatal(err)
			}
			if len(files) == 0 {
				return fatal(errNoFiles)
			}

			cfg, err := a.lintConfig(ctx, ".")
			if err != nil {
				return fatal(err)
			}
			for _, d := range disable {
				cfg.DisabledRules = append(cfg.DisabledRules, splitList(d)...)
			}
			cfg.KeepSuppressed = a.v.GetBool("verbose")
			if err := cfg.Validate(); err != nil {
				return fatal(err)
			}

			svc := service.New(a.serviceOptions()...)
			reports, err := checkFiles(ctx, svc, files, cfg)
			if err != nil {
				return fatal(err)
			}

			if jsonOut {
				err = writeJSONReports(cmd.OutOrStdout(), reports)
			} else {
				err = a.writeTextReports(ctx, cmd.OutOrStdout(), svc, reports)
			}
			if err != nil {
				return fatal(err)
			}
			return exitStatus(reports)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the diagnostics as JSON")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "disable diagnostic codes by ID or name (repeatable)")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "skip files matching a glob pattern (repeatable)")
	return cmd
}

// checkFiles analyzes files concurrently. Reports keep the order of files.
func checkFiles(ctx context.Context, svc *service.Service, files []string, cfg *lint.Config) ([]fileReport, error) {
	reports := make([]fileReport, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			reports[i] = checkFile(gctx, svc, path, cfg)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func writeJSONReports(w io.Writer, reports []fileReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func (a *app) writeTextReports(ctx context.Context, w io.Writer, svc *service.Service, reports []fileReport) error {
	r := a.newRenderer(ctx, svc)
	var nerr, nwarn, nfatal int
	for _, rep := range reports {
		if rep.fatal != nil {
			nfatal++
			fmt.Fprintf(a.stderr, "mon: %s: %v\n", rep.Path, rep.fatal)
			continue
		}
		if len(rep.Diagnostics) == 0 {
			continue
		}
		if err := r.RenderAll(w, rep.Diagnostics); err != nil {
			return err
		}
		fmt.Fprintln(w)
		nerr += countErrors(rep.Diagnostics)
		nwarn += len(rep.Diagnostics) - countErrors(rep.Diagnostics)
	}
	a.logger.Debug("check finished", "files", len(reports), "errors", nerr, "others", nwarn, "failed", nfatal)
	_, err := fmt.Fprintf(w, "%s checked: %s, %s\n",
		plural(len(reports), "file"), plural(nerr, "error"), plural(nwarn, "other diagnostic"))
	return err
}

func exitStatus(reports []fileReport) error {
	code := ExitOK
	for _, rep := range reports {
		if rep.fatal != nil {
			return &ExitError{Code: ExitFatal}
		}
		if countErrors(rep.Diagnostics) > 0 {
			code = ExitProblems
		}
	}
	if code != ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
