// Copyright © 2025 The MON authors

package lint

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/position"
)

// RuleMaxNestingDepth reports a document whose values nest deeper than
// max_nesting_depth. It reports once, at the first of the deepest values.
var RuleMaxNestingDepth = &Rule{
	Code: diagnostic.MaxNestingDepth,
	Run: func(pass *Pass) error {
		var deepest Node
		Walk(pass.Doc.Root, func(n Node) {
			if n.Depth > deepest.Depth {
				deepest = n
			}
		})
		limit := pass.Config.MaxNestingDepth
		switch {
		case deepest.Depth > limit+2:
			pass.Reportf(deepest.Head(), "Maximum nesting depth of %d exceeds limit of %d by more than 2 levels", deepest.Depth, limit)
		case deepest.Depth > limit:
			pass.Reportf(deepest.Head(), "Maximum nesting depth of %d exceeds recommended limit of %d", deepest.Depth, limit)
		}
		return nil
	},
}

// RuleMaxObjectMembers reports objects with more members than
// max_object_members. Type definitions are not counted.
var RuleMaxObjectMembers = &Rule{
	Code: diagnostic.MaxObjectMembers,
	Run: func(pass *Pass) error {
		WalkObjects(pass.Doc.Root, func(obj *ast.Object, n Node) {
			if count := regularMembers(obj); count > pass.Config.MaxObjectMembers {
				pass.Reportf(n.Head(), "Object at depth %d has %d members, exceeds recommended limit of %d",
					n.Depth, count, pass.Config.MaxObjectMembers)
			}
		})
		return nil
	},
}

// RuleMaxArrayItems reports arrays with more items than max_array_items.
// Items are counted as written, before spreads are spliced in.
var RuleMaxArrayItems = &Rule{
	Code: diagnostic.MaxArrayItems,
	Run: func(pass *Pass) error {
		Walk(pass.Doc.Root, func(n Node) {
			arr, ok := n.Value.(*ast.Array)
			if ok && len(arr.Items) > pass.Config.MaxArrayItems {
				pass.Reportf(n.Head(), "Array at depth %d has %d items, exceeds recommended limit of %d",
					n.Depth, len(arr.Items), pass.Config.MaxArrayItems)
			}
		})
		return nil
	},
}

// RuleUnusedAnchor reports anchors of the document that nothing references,
// in this file or in any file of the analysis.
var RuleUnusedAnchor = &Rule{
	Code:    diagnostic.UnusedAnchor,
	Enabled: func(cfg *Config) bool { return cfg.WarnUnusedAnchors },
	Run: func(pass *Pass) error {
		if pass.Symbols == nil {
			return nil
		}
		for _, sym := range pass.Symbols.SymbolsIn(pass.File) {
			if sym.Kind == analysis.SymAnchor && pass.Symbols.IsUnused(sym) {
				pass.Reportf(sym.Range, "Anchor '%s' is defined but never used", sym.Name)
			}
		}
		return nil
	},
}

// RuleDuplicateKey reports a literal key written twice in one object. Keys
// brought in by spreads override and are never duplicates.
var RuleDuplicateKey = &Rule{
	Code: diagnostic.DuplicateKey,
	Run: func(pass *Pass) error {
		WalkObjects(pass.Doc.Root, func(obj *ast.Object, _ Node) {
			seen := make(map[string]*ast.Pair)
			for _, p := range obj.Pairs() {
				first, ok := seen[p.Key]
				if !ok {
					seen[p.Key] = p
					continue
				}
				pass.ReportRelated(p.KeySpan.Range(), []diagnostic.Related{{
					Location: position.Location{URI: pass.File, Range: first.KeySpan.Range()},
					Message:  "first defined here",
				}}, "Duplicate key '%s' in object", p.Key)
			}
		})
		return nil
	},
}

// RuleExcessiveSpreads reports objects with more spreads than max_spreads.
var RuleExcessiveSpreads = &Rule{
	Code: diagnostic.ExcessiveSpreads,
	Run: func(pass *Pass) error {
		WalkObjects(pass.Doc.Root, func(obj *ast.Object, n Node) {
			if count := countSpreads(obj); count > pass.Config.MaxSpreads {
				pass.Reportf(n.Head(), "Object has %d spreads, consider simplifying", count)
			}
		})
		return nil
	},
}

// RuleMagicNumber reports numeric literals other than 0, ±1, 10, 100 and
// 1000. An anchored number is already a named constant and is exempt.
var RuleMagicNumber = &Rule{
	Code:    diagnostic.MagicNumber,
	Enabled: func(cfg *Config) bool { return cfg.WarnMagicNumbers },
	Run: func(pass *Pass) error {
		Walk(pass.Doc.Root, func(n Node) {
			num, ok := n.Value.(*ast.Number)
			if !ok || (n.Pair != nil && n.Pair.Anchored) {
				return
			}
			switch abs := math.Abs(num.Value); abs {
			case 10, 100, 1000:
				return
			default:
				if abs <= 1 {
					return
				}
			}
			text := num.Text
			if text == "" {
				text = strconv.FormatFloat(num.Value, 'g', -1, 64)
			}
			pass.Reportf(num.Range(), "Consider extracting magic number %s into a named constant", text)
		})
		return nil
	},
}

// RuleMissingTypeValidation suggests a type annotation for top-level
// objects that are not checked against any type.
var RuleMissingTypeValidation = &Rule{
	Code:    diagnostic.MissingTypeValidation,
	Enabled: func(cfg *Config) bool { return cfg.SuggestTypeValidation },
	Run: func(pass *Pass) error {
		root, ok := pass.Doc.Root.(*ast.Object)
		if !ok {
			return nil
		}
		for _, p := range root.Pairs() {
			if _, isObj := p.Value.(*ast.Object); !isObj || p.Type != nil || p.Anchored {
				continue
			}
			pass.Reportf(p.KeySpan.Range(), "Consider adding a type annotation to '%s' (key :: Type = value)", p.Key)
		}
		return nil
	},
}

// RuleInconsistentNaming reports objects mixing snake_case and camelCase
// keys.
var RuleInconsistentNaming = &Rule{
	Code:    diagnostic.InconsistentNaming,
	Enabled: func(cfg *Config) bool { return cfg.EnforceConsistentNaming },
	Run: func(pass *Pass) error {
		WalkObjects(pass.Doc.Root, func(obj *ast.Object, n Node) {
			snake, camel := 0, 0
			for _, p := range obj.Pairs() {
				switch {
				case strings.Contains(p.Key, "_"):
					snake++
				case strings.IndexFunc(p.Key, unicode.IsUpper) >= 0:
					camel++
				}
			}
			if snake > 0 && camel > 0 {
				pass.Reportf(n.Head(), "Object has mixed naming styles (%d snake_case, %d camelCase)", snake, camel)
			}
		})
		return nil
	},
}

// RuleEmptyObject reports empty objects and arrays.
var RuleEmptyObject = &Rule{
	Code:    diagnostic.EmptyObject,
	Enabled: func(cfg *Config) bool { return cfg.WarnEmptyStructures },
	Run: func(pass *Pass) error {
		Walk(pass.Doc.Root, func(n Node) {
			switch v := n.Value.(type) {
			case *ast.Object:
				if len(v.Members) == 0 {
					pass.Reportf(v.Range(), "Empty object found - verify this is intentional")
				}
			case *ast.Array:
				if len(v.Items) == 0 {
					pass.Reportf(v.Range(), "Empty array found - verify this is intentional")
				}
			}
		})
		return nil
	},
}

// RuleDeepImportChain reports references that reach their definition
// through more imports than max_import_chain_depth, and files that lean on
// many namespaced references.
var RuleDeepImportChain = &Rule{
	Code: diagnostic.DeepImportChain,
	Run: func(pass *Pass) error {
		if pass.Symbols == nil {
			return nil
		}
		limit := pass.Config.MaxImportChainDepth
		namespaced := 0
		for _, ref := range pass.Symbols.ReferencesIn(pass.File) {
			if ref.Dangling() || ref.RefKind == analysis.RefImport || ref.Kind == analysis.SymEnumVariant {
				continue
			}
			if ref.RefKind == analysis.RefNamespaceMember {
				namespaced++
			}
			if ref.ChainDepth <= limit {
				continue
			}
			var related []diagnostic.Related
			if sym, ok := pass.Symbols.FindSymbolIn(ref.DefFile, ref.Name, ref.Kind); ok {
				related = append(related, diagnostic.Related{Location: sym.Location(), Message: "defined here"})
			}
			pass.ReportRelated(ref.Range, related,
				"Reference to '%s' goes through %d imports, exceeds recommended limit of %d", ref.Name, ref.ChainDepth, limit)
		}
		if namespaced > limit*3 {
			for _, imp := range pass.Doc.Imports {
				if imp.Kind == ast.ImportNamespace {
					pass.Reportf(imp.NsSpan.Range(), "File has %d namespaced references, consider simplifying imports", namespaced)
					break
				}
			}
		}
		return nil
	},
}

// RuleCircularDependency reports an import cycle through the document. The
// analysis treats a cycle as fatal; this rule surfaces it in contexts that
// must still report something, such as an editor, at the import statement
// that enters the cycle.
var RuleCircularDependency = &Rule{
	Code: diagnostic.CircularDependency,
	Run: func(pass *Pass) error {
		cycle := pass.Cycle
		if len(cycle) < 2 || pass.Doc == nil {
			return nil
		}
		target := cycle[0]
		if target == pass.File {
			target = cycle[1]
		}
		var at *ast.Import
		for _, imp := range pass.Doc.Imports {
			if pass.Loader == nil {
				break
			}
			if t, err := pass.Loader.Resolve(pass.File, imp.Path); err == nil && t == target {
				at = imp
				break
			}
		}
		if at == nil && len(pass.Doc.Imports) > 0 {
			at = pass.Doc.Imports[0]
		}
		var rng position.Range
		if at != nil {
			rng = at.PathSpan.Range()
		}
		var related []diagnostic.Related
		for i := 0; i+1 < len(cycle); i++ {
			if cycle[i] == pass.File {
				continue
			}
			related = append(related, diagnostic.Related{
				Location: position.Location{URI: cycle[i]},
				Message:  "imports " + cycle[i+1],
			})
		}
		pass.ReportRelated(rng, related, "Circular dependency detected: %s", strings.Join(cycle, " -> "))
		return nil
	},
}

// RuleUnusedImport reports imports of the document whose bindings are never
// referenced.
var RuleUnusedImport = &Rule{
	Code:    diagnostic.UnusedImport,
	Enabled: func(cfg *Config) bool { return cfg.WarnUnusedImports },
	Run: func(pass *Pass) error {
		if pass.Symbols == nil {
			return nil
		}
		for _, sym := range pass.Symbols.SymbolsIn(pass.File) {
			if !pass.Symbols.IsUnused(sym) {
				continue
			}
			switch {
			case sym.Kind == analysis.SymNamespace:
				pass.Reportf(sym.Range, "Namespace import '%s' is never used", sym.Name)
			case sym.Kind == analysis.SymImport && analysis.IsWildcardImport(sym):
				pass.Reportf(sym.Range, "Nothing imported from '%s' is used", sym.Name)
			case sym.Kind == analysis.SymImport:
				pass.Reportf(sym.Range, "Import '%s' is never used", sym.Name)
			}
		}
		return nil
	},
}
