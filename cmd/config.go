// Copyright © 2025 The MON authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/service"
)

// configNames are the lint configuration files looked up in the working
// directory, in order.
var configNames = []string{".moncfg.mon", ".moncfg.yaml", ".moncfg.yml", ".moncfg.toml", ".moncfg.json"}

// lintConfig loads the lint configuration: the --config file or the first
// configuration file found in dir, overlaid with MON_ environment
// variables.
func (a *app) lintConfig(ctx context.Context, dir string) (*lint.Config, error) {
	path := a.v.GetString("config")
	if path == "" {
		for _, name := range configNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	cfg := lint.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = a.loadConfigFile(ctx, path); err != nil {
			return nil, err
		}
		a.logger.Debug("lint config loaded", "path", path)
	}
	return a.overlayEnv(cfg)
}

// loadConfigFile reads a configuration file. A .mon file is analyzed like
// any other document and its resolved root mapped onto the settings.
func (a *app) loadConfigFile(ctx context.Context, path string) (*lint.Config, error) {
	if filepath.Ext(path) != ".mon" {
		return lint.LoadConfig(path)
	}
	svc := service.New(a.serviceOptions()...)
	res, err := svc.AnalyzeFile(ctx, path, lint.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("lint config %s: %w", path, err)
	}
	if errs := res.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("lint config %s: %s", path, errs[0])
	}
	cfg, err := lint.ConfigFromValue(res.Document.Root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// overlayEnv applies MON_<KEY> environment variables to cfg. List settings
// are comma-separated.
func (a *app) overlayEnv(cfg *lint.Config) (*lint.Config, error) {
	settings := make(map[string]any)
	if err := mapstructure.Decode(cfg, &settings); err != nil {
		return nil, err
	}
	changed := false
	for key := range settings {
		if err := a.v.BindEnv(key); err != nil {
			return nil, err
		}
		if !a.v.IsSet(key) {
			continue
		}
		changed = true
		val := a.v.Get(key)
		if s, ok := val.(string); ok && key == "disabled_rules" {
			val = splitList(s)
		}
		settings[key] = val
	}
	if !changed {
		return cfg, nil
	}
	out, err := lint.ConfigFromMap(settings)
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	out.KeepSuppressed = cfg.KeepSuppressed
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// errNoFiles is returned when the arguments expand to no MON files.
var errNoFiles = errors.New("no .mon files to check")
