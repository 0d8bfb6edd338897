// Package pynames turns proto identifiers and type references into
// Python identifiers and import statements.
//
// TypeManager is the Go counterpart of the plugin's own TypeManager:
// one instance per output package, responsible for resolving a fully
// qualified proto type name into the Python expression a generated
// file should use to reference it, inserting whatever relative or
// absolute import that expression requires along the way.
package pynames

import (
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// wrapperScalar names the Python scalar a google.protobuf.*Value
// wrapper unwraps to once `Optional[...]` is applied.
var wrapperScalar = map[string]string{
	".google.protobuf.DoubleValue": "float",
	".google.protobuf.FloatValue":  "float",
	".google.protobuf.Int32Value":  "int",
	".google.protobuf.Int64Value":  "int",
	".google.protobuf.UInt32Value": "int",
	".google.protobuf.UInt64Value": "int",
	".google.protobuf.BoolValue":   "bool",
	".google.protobuf.StringValue": "str",
	".google.protobuf.BytesValue":  "bytes",
}

// pythonKeywords is the set of reserved words that cannot be used as a
// Python identifier; a trailing underscore is appended on conflict,
// matching the convention generated Python code already uses for
// fields shadowing a keyword (e.g. "from" -> "from_").
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
	"self": true, "cls": true,
}

// PythonizeClassName converts a dotted proto type name into a dotted
// PascalCase Python class reference, one segment at a time, so that
// "outer.inner_msg" becomes "Outer.InnerMsg".
func PythonizeClassName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = strcase.ToCamel(p)
	}
	return strings.Join(parts, ".")
}

// PythonizeFieldName converts a proto field name into a safe
// snake_case Python identifier.
func PythonizeFieldName(name string) string { return safeSnakeCase(name) }

// PythonizeMethodName converts a proto method name into a safe
// snake_case Python identifier.
func PythonizeMethodName(name string) string { return safeSnakeCase(name) }

func safeSnakeCase(name string) string {
	s := strcase.ToSnake(name)
	if pythonKeywords[s] {
		return s + "_"
	}
	if s == "" {
		return "_"
	}
	return s
}

// TypeManager resolves proto type references into Python source
// expressions for a single output package, tracking whichever import
// statements those expressions required along the way.
type TypeManager struct {
	pkg []string // the proto package this TypeManager is rendering, dot-split

	plainImports map[string]bool            // "import x" / "import x as y"
	fromImports  map[string]map[string]bool // module -> set of names imported
}

// NewTypeManager returns a TypeManager for the given dotted proto
// package (may be empty for the default package).
func NewTypeManager(pkg string) *TypeManager {
	tm := &TypeManager{
		plainImports: make(map[string]bool),
		fromImports:  make(map[string]map[string]bool),
	}
	if pkg != "" {
		tm.pkg = strings.Split(pkg, ".")
	}
	return tm
}

// ImportLines returns the deterministic, sorted list of import
// statements this TypeManager's references required.
func (tm *TypeManager) ImportLines() []string {
	var lines []string
	for imp := range tm.plainImports {
		lines = append(lines, imp)
	}
	sort.Strings(lines)

	var modules []string
	for m := range tm.fromImports {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		names := make([]string, 0, len(tm.fromImports[m]))
		for n := range tm.fromImports[m] {
			names = append(names, n)
		}
		sort.Strings(names)
		lines = append(lines, "from "+m+" import "+strings.Join(names, ", "))
	}
	return lines
}

func (tm *TypeManager) fromImport(module, name string) string {
	set := tm.fromImports[module]
	if set == nil {
		set = make(map[string]bool)
		tm.fromImports[module] = set
	}
	set[name] = true
	return name
}

func (tm *TypeManager) typingImport(name string) string { return tm.fromImport("typing", name) }

// Typing registers a bare "from typing import name" without wrapping
// it around another type, for call sites that need a typing name in
// raw code (e.g. a streaming RPC's Iterable/AsyncIterable) rather than
// as a generic applied to a resolved type reference.
func (tm *TypeManager) Typing(name string) string { return tm.typingImport(name) }

// Plain registers a raw import statement verbatim, for concerns
// outside type resolution (e.g. "import grpc", "from dataclasses
// import dataclass").
func (tm *TypeManager) Plain(line string) { tm.plainImports[line] = true }

// FromImport registers "from module import name" verbatim.
func (tm *TypeManager) FromImport(module, name string) { tm.fromImport(module, name) }

// OptionalOf, ListOf, DictOf, IterableOf, IteratorOf and AwaitableOf
// wrap a rendered type expression in the corresponding typing
// generic, registering the "from typing import X" it needs.
func (tm *TypeManager) OptionalOf(t string) string  { return tm.typingImport("Optional") + "[" + t + "]" }
func (tm *TypeManager) ListOf(t string) string      { return tm.typingImport("List") + "[" + t + "]" }
func (tm *TypeManager) DictOf(k, v string) string   { return tm.typingImport("Dict") + "[" + k + ", " + v + "]" }
func (tm *TypeManager) IterableOf(t string, aio bool) string {
	name := "Iterable"
	if aio {
		name = "AsyncIterable"
	}
	return tm.typingImport(name) + "[" + t + "]"
}
func (tm *TypeManager) IteratorOf(t string, aio bool) string {
	name := "Iterator"
	if aio {
		name = "AsyncIterator"
	}
	return tm.typingImport(name) + "[" + t + "]"
}
func (tm *TypeManager) AwaitableOf(t string) string {
	return tm.typingImport("Awaitable") + "[" + t + "]"
}

// runtimePackage is the dotted Python package the embedded runtime
// library (internal/pyruntime) installs under; bare references to
// google.protobuf well-known types are rewritten to live there, the
// way the plugin rewrites them into its own vendored library tree.
var runtimePackage = []string{"cbiproto_runtime", "lib"}

// GetTypeReference is the single entry point: given a fully-qualified
// proto type name (leading-dot form, e.g. ".google.protobuf.Timestamp"
// or ".pkg.sub.Message"), it returns the Python expression to use and
// records any import that expression requires.
func (tm *TypeManager) GetTypeReference(sourceType string, unwrap bool) string {
	if unwrap {
		if scalar, ok := wrapperScalar[sourceType]; ok {
			return tm.OptionalOf(scalar)
		}
		switch sourceType {
		case ".google.protobuf.Duration":
			tm.fromImport("datetime", "timedelta")
			return "timedelta"
		case ".google.protobuf.Timestamp":
			tm.fromImport("datetime", "datetime")
			return "datetime"
		}
	}

	sourcePkg, sourceName := parseSourceTypeName(sourceType)
	pyPkg := []string{}
	if sourcePkg != "" {
		pyPkg = strings.Split(sourcePkg, ".")
	}
	pyType := PythonizeClassName(sourceName)

	compilingGoogleProtobuf := equalPath(tm.pkg, []string{"google", "protobuf"})
	importingGoogleProtobuf := equalPath(pyPkg, []string{"google", "protobuf"})
	if importingGoogleProtobuf && !compilingGoogleProtobuf {
		pyPkg = append(append([]string{}, runtimePackage...), pyPkg...)
	}

	switch {
	case len(pyPkg) > 0 && pyPkg[0] == runtimePackage[0]:
		return tm.referenceAbsolute(pyPkg, pyType)
	case equalPath(pyPkg, tm.pkg):
		return tm.referenceSibling(pyType)
	case hasPrefix(pyPkg, tm.pkg):
		return tm.referenceDescendent(pyPkg, pyType)
	case hasPrefix(tm.pkg, pyPkg):
		return tm.referenceAncestor(pyPkg, pyType)
	default:
		return tm.referenceCousin(pyPkg, pyType)
	}
}

func (tm *TypeManager) referenceAbsolute(pyPkg []string, pyType string) string {
	dotted := strings.Join(pyPkg, ".")
	alias := safeSnakeCase(strings.Join(pyPkg, "_"))
	tm.plainImports["import "+dotted+" as "+alias] = true
	return alias + "." + pyType
}

func (tm *TypeManager) referenceSibling(pyType string) string { return pyType }

func (tm *TypeManager) referenceDescendent(pyPkg []string, pyType string) string {
	rel := pyPkg[len(tm.pkg):]
	if len(rel) > 1 {
		from := strings.Join(rel[:len(rel)-1], ".")
		name := rel[len(rel)-1]
		alias := strings.Join(rel, "_")
		tm.plainImports["from ."+from+" import "+name+" as "+alias] = true
		return alias + "." + pyType
	}
	name := rel[0]
	tm.plainImports["from . import "+name] = true
	return name + "." + pyType
}

func (tm *TypeManager) referenceAncestor(pyPkg []string, pyType string) string {
	distanceUp := len(tm.pkg) - len(pyPkg)
	if len(pyPkg) > 0 {
		name := pyPkg[len(pyPkg)-1]
		alias := "_" + strings.Repeat("_", distanceUp) + name
		from := ".." + strings.Repeat(".", distanceUp)
		tm.plainImports["from "+from+" import "+name+" as "+alias] = true
		return alias + "." + pyType
	}
	alias := strings.Repeat("_", distanceUp) + pyType
	tm.plainImports["from ."+strings.Repeat(".", distanceUp)+" import "+pyType+" as "+alias] = true
	return alias
}

func (tm *TypeManager) referenceCousin(pyPkg []string, pyType string) string {
	shared := commonPrefixLen(tm.pkg, pyPkg)
	distanceUp := len(tm.pkg) - shared
	from := "." + strings.Repeat(".", distanceUp) + strings.Join(pyPkg[shared:len(pyPkg)-1], ".")
	name := pyPkg[len(pyPkg)-1]
	alias := strings.Repeat("_", distanceUp) + safeSnakeCase(strings.Join(pyPkg[shared:], "."))
	tm.plainImports["from "+from+" import "+name+" as "+alias] = true
	return alias + "." + pyType
}

func equalPath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasPrefix(full, prefix []string) bool {
	if len(prefix) > len(full) {
		return false
	}
	return equalPath(full[:len(prefix)], prefix)
}

func commonPrefixLen(a, b []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// parseSourceTypeName splits a leading-dot fully-qualified proto type
// name into its package and bare type name, mirroring
// parse_source_type_name: the package is every lowercase-led dotted
// segment before the first segment that starts an uppercase type name.
func parseSourceTypeName(name string) (pkg string, typ string) {
	name = strings.TrimPrefix(name, ".")
	parts := strings.Split(name, ".")
	i := 0
	for i < len(parts)-1 && parts[i] != "" && isLowerFirst(parts[i]) {
		i++
	}
	return strings.Join(parts[:i], "."), strings.Join(parts[i:], ".")
}

func isLowerFirst(s string) bool {
	if s == "" {
		return true
	}
	c := s[0]
	return !(c >= 'A' && c <= 'Z')
}
