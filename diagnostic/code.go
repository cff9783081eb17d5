// Copyright © 2025 The MON authors

package diagnostic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code is a stable diagnostic identifier. Codes are never renumbered;
// tooling filters and suppresses diagnostics by them across releases.
type Code int

const (
	codeInvalid Code = iota

	// Complexity (LINT1xxx)
	MaxNestingDepth
	MaxObjectMembers
	MaxArrayItems

	// Code smells (LINT2xxx)
	UnusedAnchor
	DuplicateKey
	ExcessiveSpreads
	MagicNumber

	// Best practices (LINT3xxx)
	MissingTypeValidation
	InconsistentNaming
	EmptyObject

	// Import analysis (LINT4xxx)
	DeepImportChain
	CircularDependency
	UnusedImport

	// Resolution and type checking (LINT5xxx)
	UndefinedAnchor
	UndefinedType
	TypeMismatch
	MissingField
	UnexpectedField
	SpreadOnNonObject
	SpreadOnNonArray
	CircularAnchorReference
	UndefinedEnumVariant
	UndefinedNamespaceMember
	AmbiguousImport
	ImportNotFound
	ImportParseError

	numCodes
)

// Category groups codes by the kind of problem they report.
type Category int

const (
	CategoryComplexity Category = iota + 1
	CategoryCodeSmell
	CategoryBestPractice
	CategoryImports
	CategoryResolution
)

func (c Category) String() string {
	switch c {
	case CategoryComplexity:
		return "complexity"
	case CategoryCodeSmell:
		return "code-smell"
	case CategoryBestPractice:
		return "best-practice"
	case CategoryImports:
		return "imports"
	case CategoryResolution:
		return "resolution"
	default:
		return "unknown"
	}
}

type codeInfo struct {
	id          string
	name        string
	category    Category
	severity    Severity
	alwaysOn    bool
	tags        []Tag
	title       string
	description string
	configKey   string
}

var codeTable = [numCodes]codeInfo{
	MaxNestingDepth: {
		id: "LINT1001", name: "MaxNestingDepth", category: CategoryComplexity, severity: SeverityWarning,
		title:       "Excessive nesting depth",
		description: "Deeply nested structures are hard to read and maintain. Consider flattening or extracting nested parts.",
		configKey:   "max_nesting_depth",
	},
	MaxObjectMembers: {
		id: "LINT1002", name: "MaxObjectMembers", category: CategoryComplexity, severity: SeverityWarning,
		title:       "Too many object members",
		description: "Large objects with many members are difficult to understand. Consider splitting into smaller, focused objects.",
		configKey:   "max_object_members",
	},
	MaxArrayItems: {
		id: "LINT1003", name: "MaxArrayItems", category: CategoryComplexity, severity: SeverityWarning,
		title:       "Too many array items",
		description: "Very large arrays may indicate the need for pagination or chunking. Consider restructuring your data.",
		configKey:   "max_array_items",
	},
	UnusedAnchor: {
		id: "LINT2001", name: "UnusedAnchor", category: CategoryCodeSmell, severity: SeverityWarning,
		tags:        []Tag{TagUnnecessary},
		title:       "Unused anchor definition",
		description: "An anchor is defined but never referenced. Remove it or use it with an alias (*anchor) or spread (...*anchor).",
		configKey:   "warn_unused_anchors",
	},
	DuplicateKey: {
		id: "LINT2002", name: "DuplicateKey", category: CategoryCodeSmell, severity: SeverityError, alwaysOn: true,
		title:       "Duplicate object key",
		description: "Object has duplicate keys. Duplicate literal keys are an error rather than an override; keys brought in by a spread may be overridden freely.",
		configKey:   "N/A (always enabled)",
	},
	ExcessiveSpreads: {
		id: "LINT2003", name: "ExcessiveSpreads", category: CategoryCodeSmell, severity: SeverityWarning,
		title:       "Too many spread operators",
		description: "Too many spread operators in a single object make it hard to track the final shape. Consider simplifying.",
		configKey:   "max_spreads",
	},
	MagicNumber: {
		id: "LINT2004", name: "MagicNumber", category: CategoryCodeSmell, severity: SeverityInfo,
		title:       "Magic number literal",
		description: "Literal numbers without context are hard to understand. Extract them as named constants with descriptive names.",
		configKey:   "warn_magic_numbers",
	},
	MissingTypeValidation: {
		id: "LINT3001", name: "MissingTypeValidation", category: CategoryBestPractice, severity: SeverityInfo,
		title:       "Missing type validation",
		description: "Data lacks type validation. Add type constraints (:: TypeName) to ensure data integrity.",
		configKey:   "suggest_type_validation",
	},
	InconsistentNaming: {
		id: "LINT3002", name: "InconsistentNaming", category: CategoryBestPractice, severity: SeverityInfo,
		title:       "Inconsistent naming convention",
		description: "Keys use inconsistent naming conventions (camelCase vs snake_case). Choose one style for consistency.",
		configKey:   "enforce_consistent_naming",
	},
	EmptyObject: {
		id: "LINT3003", name: "EmptyObject", category: CategoryBestPractice, severity: SeverityInfo,
		title:       "Empty object or array",
		description: "Empty objects or arrays may indicate incomplete data or unnecessary structure. Verify this is intentional.",
		configKey:   "warn_empty_structures",
	},
	DeepImportChain: {
		id: "LINT4001", name: "DeepImportChain", category: CategoryImports, severity: SeverityWarning,
		title:       "Deep import chain",
		description: "Anchor or type is imported through multiple levels. This creates tight coupling and makes refactoring difficult.",
		configKey:   "max_import_chain_depth",
	},
	CircularDependency: {
		id: "LINT4002", name: "CircularDependency", category: CategoryImports, severity: SeverityError, alwaysOn: true,
		title:       "Circular dependency detected",
		description: "Files import each other in a cycle. This can cause issues and indicates poor module organization.",
		configKey:   "N/A (always enabled)",
	},
	UnusedImport: {
		id: "LINT4003", name: "UnusedImport", category: CategoryImports, severity: SeverityWarning,
		tags:        []Tag{TagUnnecessary},
		title:       "Unused import",
		description: "Import statement brings in items that are never used. Remove to keep code clean.",
		configKey:   "warn_unused_imports",
	},
	UndefinedAnchor: {
		id: "LINT5001", name: "UndefinedAnchor", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Undefined anchor",
		description: "An alias or spread names an anchor that is neither defined in this file nor imported. Define the anchor with &name or import it.",
		configKey:   "N/A (always enabled)",
	},
	UndefinedType: {
		id: "LINT5002", name: "UndefinedType", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Undefined type",
		description: "A type annotation names a type that is neither builtin, defined in this file, nor imported.",
		configKey:   "N/A (always enabled)",
	},
	TypeMismatch: {
		id: "LINT5003", name: "TypeMismatch", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Type mismatch",
		description: "A value does not have the type its annotation or struct field declares.",
		configKey:   "N/A (always enabled)",
	},
	MissingField: {
		id: "LINT5004", name: "MissingField", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Missing required field",
		description: "A struct field without a default value is absent from a value annotated with the struct.",
		configKey:   "N/A (always enabled)",
	},
	UnexpectedField: {
		id: "LINT5005", name: "UnexpectedField", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Unexpected field",
		description: "A value annotated with a struct has a key the struct does not declare. Add the field to the struct or mark the struct open with '...'.",
		configKey:   "N/A (always enabled)",
	},
	SpreadOnNonObject: {
		id: "LINT5006", name: "SpreadOnNonObject", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Spread of a non-object",
		description: "Only objects can be spread into an object.",
		configKey:   "N/A (always enabled)",
	},
	SpreadOnNonArray: {
		id: "LINT5007", name: "SpreadOnNonArray", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Spread of a non-array",
		description: "Only arrays can be spread into an array.",
		configKey:   "N/A (always enabled)",
	},
	CircularAnchorReference: {
		id: "LINT5008", name: "CircularAnchorReference", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Circular anchor reference",
		description: "An anchor refers to itself through a chain of aliases or spreads, so its value can never be computed.",
		configKey:   "N/A (always enabled)",
	},
	UndefinedEnumVariant: {
		id: "LINT5009", name: "UndefinedEnumVariant", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Undefined enum variant",
		description: "An enum value names an enum or variant that does not exist.",
		configKey:   "N/A (always enabled)",
	},
	UndefinedNamespaceMember: {
		id: "LINT5010", name: "UndefinedNamespaceMember", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Undefined namespace member",
		description: "A namespace-qualified reference names a namespace that is not imported or a member the imported file does not define.",
		configKey:   "N/A (always enabled)",
	},
	AmbiguousImport: {
		id: "LINT5011", name: "AmbiguousImport", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Ambiguous import",
		description: "The same name is imported from more than one source. Rename one of the bindings or import it through a namespace.",
		configKey:   "N/A (always enabled)",
	},
	ImportNotFound: {
		id: "LINT5012", name: "ImportNotFound", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Import not found",
		description: "An imported file does not exist or cannot be read.",
		configKey:   "N/A (always enabled)",
	},
	ImportParseError: {
		id: "LINT5013", name: "ImportParseError", category: CategoryResolution, severity: SeverityError, alwaysOn: true,
		title:       "Imported file has syntax errors",
		description: "An imported file could not be parsed, so none of its definitions are available.",
		configKey:   "N/A (always enabled)",
	},
}

func (c Code) info() codeInfo {
	if c <= codeInvalid || c >= numCodes {
		return codeInfo{id: "LINT0000", name: "Unknown"}
	}
	return codeTable[c]
}

// ID returns the stable identifier, e.g. "LINT2002".
func (c Code) ID() string { return c.info().id }

// Name returns the code's name, e.g. "DuplicateKey".
func (c Code) Name() string { return c.info().name }

// Title returns a short human-readable summary.
func (c Code) Title() string { return c.info().title }

// Description explains the problem and how to fix it.
func (c Code) Description() string { return c.info().description }

// ConfigKey names the configuration option that controls the code.
func (c Code) ConfigKey() string { return c.info().configKey }

// Category returns the group the code belongs to.
func (c Code) Category() Category { return c.info().category }

// DefaultSeverity returns the severity used when no override applies.
func (c Code) DefaultSeverity() Severity { return c.info().severity }

// AlwaysOn reports whether the code ignores disabling and severity
// overrides.
func (c Code) AlwaysOn() bool { return c.info().alwaysOn }

// DefaultTags returns the tags attached to every diagnostic with the code.
func (c Code) DefaultTags() []Tag {
	tags := c.info().tags
	if len(tags) == 0 {
		return nil
	}
	return append([]Tag(nil), tags...)
}

func (c Code) String() string { return c.ID() }

func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ID())
}

func (c *Code) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	code, ok := ParseCode(str)
	if !ok {
		return fmt.Errorf("unknown diagnostic code: %q", str)
	}
	*c = code
	return nil
}

// ParseCode looks up a code by identifier ("LINT2002") or name
// ("DuplicateKey"), ignoring case.
func ParseCode(s string) (Code, bool) {
	s = strings.TrimSpace(s)
	for c := codeInvalid + 1; c < numCodes; c++ {
		info := codeTable[c]
		if strings.EqualFold(s, info.id) || strings.EqualFold(s, info.name) {
			return c, true
		}
	}
	return codeInvalid, false
}

// Codes returns every defined code in identifier order.
func Codes() []Code {
	codes := make([]Code, 0, numCodes-1)
	for c := codeInvalid + 1; c < numCodes; c++ {
		codes = append(codes, c)
	}
	return codes
}
