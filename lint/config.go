// Copyright © 2025 The MON authors

package lint

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/export"
)

// Config holds the thresholds and switches of the lint rules together with
// the severity policy applied to every diagnostic.
type Config struct {
	MaxNestingDepth     int `mapstructure:"max_nesting_depth"`
	MaxObjectMembers    int `mapstructure:"max_object_members"`
	MaxArrayItems       int `mapstructure:"max_array_items"`
	MaxSpreads          int `mapstructure:"max_spreads"`
	MaxImportChainDepth int `mapstructure:"max_import_chain_depth"`

	WarnUnusedAnchors       bool `mapstructure:"warn_unused_anchors"`
	WarnMagicNumbers        bool `mapstructure:"warn_magic_numbers"`
	SuggestTypeValidation   bool `mapstructure:"suggest_type_validation"`
	EnforceConsistentNaming bool `mapstructure:"enforce_consistent_naming"`
	WarnEmptyStructures     bool `mapstructure:"warn_empty_structures"`
	WarnUnusedImports       bool `mapstructure:"warn_unused_imports"`

	// DisabledRules lists codes, by identifier or name, whose diagnostics
	// are dropped. Always-on codes cannot be disabled.
	DisabledRules []string `mapstructure:"disabled_rules"`
	// RuleOverrides maps a code to the severity it is reported with, or to
	// "off" to disable it.
	RuleOverrides map[string]string `mapstructure:"rule_overrides"`

	// KeepSuppressed keeps diagnostics silenced by an inline directive,
	// marked Suppressed, instead of dropping them.
	KeepSuppressed bool `mapstructure:"-"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		MaxNestingDepth:         4,
		MaxObjectMembers:        20,
		MaxArrayItems:           100,
		MaxSpreads:              3,
		MaxImportChainDepth:     2,
		WarnUnusedAnchors:       true,
		EnforceConsistentNaming: true,
		WarnEmptyStructures:     true,
		WarnUnusedImports:       true,
	}
}

// deprecatedKeys maps old spellings of configuration keys to the current
// ones. An old key only applies when the current one is absent.
var deprecatedKeys = map[string]string{
	"max_array_elements":     "max_array_items",
	"max_spreads_per_object": "max_spreads",
}

// ConfigFromMap overlays settings onto the defaults. Values are converted
// leniently, so a number read from a MON document or an environment string
// both decode into an int field. Unknown keys are ignored.
func ConfigFromMap(settings map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	in := make(map[string]any, len(settings))
	for k, v := range settings {
		in[k] = v
	}
	for old, current := range deprecatedKeys {
		if v, ok := in[old]; ok {
			if _, set := in[current]; !set {
				in[current] = v
			}
			delete(in, old)
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("lint config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML, TOML or JSON configuration file, chosen by the
// file extension.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("lint config %s: %w", path, err)
	}
	cfg, err := ConfigFromMap(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ConfigFromValue reads a configuration from the resolved root of a MON
// document, such as a .moncfg.mon file. When the root has a "lint" object
// the settings are taken from it.
func ConfigFromValue(root ast.Value) (*Config, error) {
	m, ok := export.Value(root).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("lint config: expected an object, found %T", export.Value(root))
	}
	if nested, ok := m["lint"].(map[string]any); ok {
		m = nested
	}
	return ConfigFromMap(m)
}

// Validate reports every invalid setting: unknown codes, unknown
// severities and negative limits.
func (c *Config) Validate() error {
	var errs []error
	limits := []struct {
		key string
		val int
	}{
		{"max_nesting_depth", c.MaxNestingDepth},
		{"max_object_members", c.MaxObjectMembers},
		{"max_array_items", c.MaxArrayItems},
		{"max_spreads", c.MaxSpreads},
		{"max_import_chain_depth", c.MaxImportChainDepth},
	}
	for _, l := range limits {
		if l.val < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", l.key, l.val))
		}
	}
	for _, name := range c.DisabledRules {
		if _, ok := diagnostic.ParseCode(name); !ok {
			errs = append(errs, fmt.Errorf("disabled_rules: unknown code %q", name))
		}
	}
	for name, sev := range c.RuleOverrides {
		if _, ok := diagnostic.ParseCode(name); !ok {
			errs = append(errs, fmt.Errorf("rule_overrides: unknown code %q", name))
		}
		if isOff(sev) {
			continue
		}
		if _, err := diagnostic.ParseSeverity(sev); err != nil {
			errs = append(errs, fmt.Errorf("rule_overrides[%s]: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func isOff(sev string) bool {
	return sev == "off" || sev == "none"
}
