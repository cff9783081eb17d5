// Copyright © 2025 The MON authors

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/monlang/mon/export"
	"github.com/monlang/mon/service"
)

// compileFormats are the accepted values of compile --to.
var compileFormats = []string{"json", "yaml", "toml", "schema"}

func (a *app) compileCommand() *cobra.Command {
	var (
		format   string
		output   string
		tomlNull string
	)

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Print a resolved MON document as JSON, YAML, TOML or JSON Schema",
		Long: `Resolve a MON file, with its imports, anchors, spreads and struct
defaults applied, and print the result.

The schema format prints a JSON Schema describing the document, using its
struct and enum types where values are annotated with them.

TOML has no null; null values are dropped unless --toml-null names a
non-empty replacement string.

If the document has errors they are printed and nothing is written.

Examples:
  mon compile app.mon
  mon compile app.mon --to yaml -o app.yaml
  mon compile app.mon --to toml --toml-null none
  mon compile app.mon --to schema`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !slices.Contains(compileFormats, format) {
				return fatal(fmt.Errorf("unknown output format %q (want one of %v)", format, compileFormats))
			}
			cfg, err := a.lintConfig(ctx, ".")
			if err != nil {
				return fatal(err)
			}

			svc := service.New(a.serviceOptions()...)
			rep := checkFile(ctx, svc, args[0], cfg)
			if rep.fatal != nil {
				return fatal(rep.fatal)
			}
			if len(rep.Diagnostics) > 0 {
				if err := a.newRenderer(ctx, svc).RenderAll(a.stderr, rep.Diagnostics); err != nil {
					return fatal(err)
				}
				fmt.Fprintln(a.stderr)
			}
			if countErrors(rep.Diagnostics) > 0 {
				return &ExitError{Code: ExitProblems, Err: fmt.Errorf("%s has errors", rep.Path)}
			}
			if rep.result == nil {
				// Cycles are reported as diagnostics but leave nothing to print.
				return fatal(fmt.Errorf("%s could not be resolved", rep.Path))
			}
			out, err := a.render(rep.result, format, tomlNull)
			if err != nil {
				return fatal(err)
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(out)
			} else {
				err = os.WriteFile(output, out, 0o644) //nolint:gosec // output file is user-specified
			}
			if err != nil {
				return fatal(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "to", "json", `output format: "json", "yaml", "toml" or "schema"`)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().StringVar(&tomlNull, "toml-null", "", "string that replaces null values in TOML output")
	return cmd
}

func (a *app) render(res *service.Result, format, tomlNull string) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch format {
	case "json":
		out, err = res.ToJSON()
	case "yaml":
		out, err = res.ToYAML()
	case "toml":
		if tomlNull == "" {
			if n := export.CountNulls(res.Value()); n > 0 {
				a.logger.Warn("null values dropped from TOML output", "count", n)
			}
		}
		out, err = res.ToTOML(export.TOMLOptions{NullValue: tomlNull})
	case "schema":
		s, serr := export.JSONSchema(res.Document)
		if serr != nil {
			return nil, serr
		}
		out, err = export.MarshalSchema(s)
	}
	if err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}
	return out, nil
}
