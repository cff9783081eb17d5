// Copyright © 2025 The MON authors

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/lint"
)

// configTemplates are the starting points offered by mon init.
var configTemplates = map[string]func() *lint.Config{
	"default": lint.DefaultConfig,
	"strict": func() *lint.Config {
		cfg := lint.DefaultConfig()
		cfg.MaxNestingDepth = 3
		cfg.MaxObjectMembers = 15
		cfg.MaxArrayItems = 50
		cfg.MaxSpreads = 2
		cfg.WarnMagicNumbers = true
		cfg.SuggestTypeValidation = true
		return cfg
	},
	"lenient": func() *lint.Config {
		cfg := lint.DefaultConfig()
		cfg.MaxNestingDepth = 6
		cfg.MaxObjectMembers = 50
		cfg.MaxArrayItems = 500
		cfg.MaxSpreads = 5
		cfg.MaxImportChainDepth = 4
		cfg.WarnUnusedAnchors = false
		cfg.EnforceConsistentNaming = false
		cfg.WarnEmptyStructures = false
		return cfg
	},
}

// templateKeys is the order settings are written in.
var templateKeys = []string{
	"max_nesting_depth",
	"max_object_members",
	"max_array_items",
	"max_spreads",
	"max_import_chain_depth",
	"warn_unused_anchors",
	"warn_magic_numbers",
	"suggest_type_validation",
	"enforce_consistent_naming",
	"warn_empty_structures",
	"warn_unused_imports",
}

func initCommand() *cobra.Command {
	var (
		template string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a .moncfg.mon lint configuration",
		Long: `Write a .moncfg.mon file holding every lint setting, typed against the
LintConfig schema from mon:types/linter.

Templates:
  default   the settings used when no configuration is found
  strict    lower limits, magic numbers and type suggestions enabled
  lenient   higher limits, style rules disabled`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mk, ok := configTemplates[template]
			if !ok {
				return fatal(fmt.Errorf("unknown template %q (want default, strict or lenient)", template))
			}
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path := filepath.Join(dir, configNames[0])
			if _, err := os.Stat(path); err == nil && !force {
				return fatal(fmt.Errorf("%s already exists (use --force to overwrite)", path))
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fatal(err)
			}

			src, err := renderConfig(mk(), template)
			if err != nil {
				return fatal(err)
			}
			if err := os.WriteFile(path, src, 0o644); err != nil { //nolint:gosec // config files are meant to be shared
				return fatal(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s template)\n", path, template)
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "default", `settings to start from: "default", "strict" or "lenient"`)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing .moncfg.mon")
	return cmd
}

// renderConfig writes cfg as a MON document annotated with LintConfig.
func renderConfig(cfg *lint.Config, template string) ([]byte, error) {
	settings := make(map[string]any)
	if err := mapstructure.Decode(cfg, &settings); err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "// Lint configuration for mon check (%s template).\n", template)
	fmt.Fprintf(&b, "import { LintConfig } from %q\n\n", analysis.LinterSchemaPath)
	b.WriteString("{\n    lint :: LintConfig = {\n")
	for _, key := range templateKeys {
		fmt.Fprintf(&b, "        %s: %v,\n", key, settings[key])
	}
	b.WriteString("    },\n}\n")
	return []byte(b.String()), nil
}
