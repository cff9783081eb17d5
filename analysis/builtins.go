// Copyright © 2025 The MON authors

package analysis

import (
	"sort"
	"strings"
)

// BuiltinScheme prefixes import paths served by a Registry instead of the
// file system.
const BuiltinScheme = "mon:"

// IsBuiltinPath reports whether path names a builtin schema.
func IsBuiltinPath(path string) bool {
	return strings.HasPrefix(path, BuiltinScheme)
}

// Registry holds the source of the builtin schemas. It is immutable once
// constructed and may be shared by concurrent analyses. Schemas are parsed
// per analysis through the same path as ordinary files, so every analysis
// owns its trees.
type Registry struct {
	sources map[string]string
}

// NewRegistry returns a registry serving sources, keyed by builtin path
// ("mon:types/linter"). The map is copied.
func NewRegistry(sources map[string]string) *Registry {
	r := &Registry{sources: make(map[string]string, len(sources))}
	for k, v := range sources {
		r.sources[k] = v
	}
	return r
}

// EmptyRegistry returns a registry with no schemas.
func EmptyRegistry() *Registry {
	return NewRegistry(nil)
}

// DefaultRegistry returns the registry of schemas shipped with MON.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]string{
		LinterSchemaPath: linterSchema,
	})
}

// Lookup returns the source of the schema at path.
func (r *Registry) Lookup(path string) (string, bool) {
	if r == nil {
		return "", false
	}
	src, ok := r.sources[path]
	return src, ok
}

// Paths returns the registered paths in sorted order.
func (r *Registry) Paths() []string {
	if r == nil {
		return nil
	}
	paths := make([]string, 0, len(r.sources))
	for p := range r.sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// LinterSchemaPath is the import path of the lint configuration schema.
const LinterSchemaPath = "mon:types/linter"

const linterSchema = `// Lint configuration schema.
{
    /// Severity of a diagnostic.
    Severity: #enum { Error, Warning, Info },

    /// Configuration read from .moncfg.mon by mon check.
    LintConfig: #struct {
        max_nesting_depth(Number) = 4,
        max_object_members(Number) = 20,
        max_array_items(Number) = 100,
        max_spreads(Number) = 3,
        max_import_chain_depth(Number) = 2,
        warn_unused_anchors(Boolean) = true,
        warn_magic_numbers(Boolean) = false,
        suggest_type_validation(Boolean) = false,
        enforce_consistent_naming(Boolean) = true,
        warn_empty_structures(Boolean) = true,
        warn_unused_imports(Boolean) = true,
        disabled_rules([String]) = [],
        rule_overrides(Object) = {},
        ...
    },
}
`
