// Copyright © 2025 The MON authors

package cmd

import (
	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/service"
)

// Option configures the command tree built by NewRootCommand.
type Option func(*cmdConfig)

type cmdConfig struct {
	registry *analysis.Registry
	loader   analysis.FileLoader
	svcOpts  []service.Option
}

// WithRegistry replaces the builtin schemas available to mon: imports.
// Embedders use it to ship their own schemas alongside the defaults.
func WithRegistry(reg *analysis.Registry) Option {
	return func(c *cmdConfig) { c.registry = reg }
}

// WithLoader sets how files are read. The default reads the local file
// system.
func WithLoader(l analysis.FileLoader) Option {
	return func(c *cmdConfig) { c.loader = l }
}

// WithServiceOptions passes further options to the analysis service.
func WithServiceOptions(opts ...service.Option) Option {
	return func(c *cmdConfig) { c.svcOpts = append(c.svcOpts, opts...) }
}

// serviceOptions returns the options for a service built by a command.
func (a *app) serviceOptions(extra ...service.Option) []service.Option {
	opts := []service.Option{service.WithLogger(a.logger)}
	if a.cfg.registry != nil {
		opts = append(opts, service.WithRegistry(a.cfg.registry))
	}
	if a.cfg.loader != nil {
		opts = append(opts, service.WithLoader(a.cfg.loader))
	}
	opts = append(opts, a.cfg.svcOpts...)
	return append(opts, extra...)
}
