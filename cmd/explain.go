// Copyright © 2025 The MON authors

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/monlang/mon/diagnostic"
)

func explainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe diagnostic codes",
		Long: `Without arguments, list every diagnostic code. With a code ID such as
LINT2002 or a name such as DuplicateKey, describe that code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listCodes(cmd.OutOrStdout())
			}
			code, ok := diagnostic.ParseCode(args[0])
			if !ok {
				return fatal(fmt.Errorf("unknown diagnostic code %q", args[0]))
			}
			return describeCode(cmd.OutOrStdout(), code)
		},
	}
}

func listCodes(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tSEVERITY\tTITLE")
	for _, c := range diagnostic.Codes() {
		sev := c.DefaultSeverity().String()
		if c.AlwaysOn() {
			sev += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID(), c.Name(), sev, c.Title())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\n* cannot be disabled or overridden")
	return err
}

func describeCode(w io.Writer, c diagnostic.Code) error {
	fmt.Fprintf(w, "%s %s: %s\n\n", c.ID(), c.Name(), c.Title())
	fmt.Fprintf(w, "  category: %s\n", c.Category())
	fmt.Fprintf(w, "  severity: %s\n", c.DefaultSeverity())
	switch {
	case c.AlwaysOn():
		fmt.Fprintln(w, "  always on: cannot be disabled or overridden")
	case c.ConfigKey() != "":
		fmt.Fprintf(w, "  setting:  %s\n", c.ConfigKey())
	}
	_, err := fmt.Fprintf(w, "\n%s\n", indent.String(wordwrap.String(c.Description(), 70), 2))
	return err
}
