package pygen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cbi-systems/protoc-gen-cbiproto/internal/descriptor"
	"github.com/cbi-systems/protoc-gen-cbiproto/internal/pynames"
	"google.golang.org/protobuf/types/descriptorpb"
)

// builtinNames is the subset of Python's builtins module whose name
// colliding with a generated field or message name forces a
// "builtins.x" qualified annotation rather than a bare one, matching
// FieldCompiler.use_builtins. Not exhaustive - just the identifiers a
// proto field is plausibly named after.
var builtinNames = map[string]bool{
	"bool": true, "bytes": true, "dict": true, "float": true, "int": true,
	"list": true, "object": true, "set": true, "str": true, "tuple": true,
	"type": true, "id": true, "len": true, "map": true, "filter": true,
	"property": true, "range": true, "super": true, "format": true,
	"hash": true, "input": true, "print": true, "vars": true,
}

var wrapRe = regexp.MustCompile(`^\.google\.protobuf\.(Double|Float|Int32|Int64|UInt32|UInt64|Bool|String|Bytes|Enum)Value$`)

// fieldWraps returns the "wraps=cbiproto.TYPE_X" field argument for a
// field whose declared type is a google.protobuf.*Value wrapper, or
// "" if the field isn't a wrapper.
func fieldWraps(f *descriptor.ProtoField) string {
	m := wrapRe.FindStringSubmatch(f.Proto.GetTypeName())
	if m == nil {
		return ""
	}
	return "cbiproto.TYPE_" + strings.ToUpper(m[1])
}

// FieldRenderer renders one message field as a dataclass attribute
// line, registering whatever imports its annotation or field-type
// requires on the enclosing FileRenderer.
type FieldRenderer struct {
	Field *descriptor.ProtoField
	File  *FileRenderer
}

func (r *FieldRenderer) isMap() bool { return r.Field.IsMap }

func (r *FieldRenderer) repeated() bool {
	return r.Field.IsRepeated() && !r.isMap()
}

func (r *FieldRenderer) optional() bool { return r.Field.Proto.GetProto3Optional() }

func (r *FieldRenderer) pyName() string { return pynames.PythonizeFieldName(r.Field.Name()) }

// fieldTypeTag is the "x" in "cbiproto.x_field(...)"; map fields use
// the literal tag "map", matching MapEntryCompiler.field_type.
func (r *FieldRenderer) fieldTypeTag() string {
	if r.isMap() {
		return "map"
	}
	return fieldTypeName(r.Field.Proto.GetType())
}

func (r *FieldRenderer) packed() bool {
	return r.repeated() && packedTypes[r.Field.Proto.GetType()]
}

// pyType resolves the bare (unannotated) Python type this field's
// scalar values take, including a TypeManager-resolved reference for
// message/enum fields.
func (r *FieldRenderer) pyType() string {
	t := r.Field.Proto.GetType()
	switch {
	case floatTypes[t]:
		return "float"
	case intTypes[t]:
		return "int"
	case boolTypes[t]:
		return "bool"
	case strTypes[t]:
		return "str"
	case bytesTypes[t]:
		return "bytes"
	case msgTypes[t]:
		name := r.Field.Proto.GetTypeName()
		return r.File.Types.GetTypeReference(name, true)
	default:
		return "object"
	}
}

func (r *FieldRenderer) useBuiltins(messageBuiltins map[string]bool) bool {
	name := r.pyType()
	return messageBuiltins[name] || (name == r.pyName() && builtinNames[r.pyName()])
}

func (r *FieldRenderer) annotation(messageBuiltins map[string]bool) string {
	t := r.pyType()
	if r.useBuiltins(messageBuiltins) {
		t = "builtins." + t
	}
	switch {
	case r.isMap():
		keyField := &FieldRenderer{Field: r.Field.MapKey, File: r.File}
		valField := &FieldRenderer{Field: r.Field.MapValue, File: r.File}
		return r.File.Types.DictOf(keyField.pyType(), valField.pyType())
	case r.repeated():
		return r.File.Types.ListOf(t)
	case r.optional():
		return r.File.Types.OptionalOf(t)
	default:
		return t
	}
}

// registerImports records the "builtins" module import this field
// needs when its bare type name shadows a Python builtin; datetime and
// typing imports are registered directly by TypeManager as part of
// resolving the field's annotation.
func (r *FieldRenderer) registerImports(messageBuiltins map[string]bool) {
	if r.useBuiltins(messageBuiltins) {
		r.File.builtinsUsed = true
	}
}

// cbiprotoFieldArgs renders the extra keyword arguments inside
// cbiproto.X_field(N, ...): wraps=... for wrapper types, optional=True
// for proto3-optional scalars, and group="..." for oneof members (the
// OneOfFieldCompiler specialization).
func (r *FieldRenderer) cbiprotoFieldArgs() []string {
	var args []string
	if r.isMap() {
		args = append(args,
			"cbiproto."+r.Field.MapKey.Proto.GetType().String(),
			"cbiproto."+r.Field.MapValue.Proto.GetType().String(),
		)
		return args
	}
	if w := fieldWraps(r.Field); w != "" {
		args = append(args, "wraps="+w)
	}
	if r.optional() {
		args = append(args, "optional=True")
	}
	if r.Field.OneOf != nil {
		args = append(args, fmt.Sprintf("group=%q", r.Field.OneOf.Name()))
	}
	return args
}

// Render produces the field's dataclass attribute line, including its
// trailing docstring comment if the source carried one.
func (r *FieldRenderer) Render(messageBuiltins map[string]bool) string {
	ann := r.annotation(messageBuiltins)
	r.registerImports(messageBuiltins)

	argParts := r.cbiprotoFieldArgs()
	args := ""
	if len(argParts) > 0 {
		args = ", " + strings.Join(argParts, ", ")
	}
	fieldExpr := fmt.Sprintf("cbiproto.%s_field(%d%s)", r.fieldTypeTag(), r.Field.Number(), args)

	if builtinNames[r.pyName()] {
		messageBuiltins[r.pyName()] = true
	}

	return fmt.Sprintf("%s: %s = %s%s", r.pyName(), ann, fieldExpr, fieldComment(r.Field.Comment))
}

// defaultValueString mirrors FieldCompiler.default_value_string; it is
// not itself emitted by any render() method (the dataclass relies on
// cbiproto's field descriptors to supply defaults at runtime) but is
// kept, and tested, as a documented building block for tooling that
// wants to print a field's effective default.
func (r *FieldRenderer) defaultValueString() string {
	switch {
	case r.repeated():
		return "[]"
	case r.optional():
		return "None"
	}
	switch r.pyTypeBare() {
	case "int":
		return "0"
	case "float":
		return "0.0"
	case "bool":
		return "False"
	case "str":
		return `""`
	case "bytes":
		return `b""`
	}
	if r.Field.Proto.GetType() == descriptorpb.FieldDescriptorProto_TYPE_ENUM && r.Field.EnumType != nil && len(r.Field.EnumType.Values) > 0 {
		return fmt.Sprint(r.Field.EnumType.Values[0].Number())
	}
	return "None"
}

// pyTypeBare is pyType() without the message/enum TypeManager
// resolution, used only to classify scalar defaults.
func (r *FieldRenderer) pyTypeBare() string {
	t := r.Field.Proto.GetType()
	switch {
	case floatTypes[t]:
		return "float"
	case intTypes[t]:
		return "int"
	case boolTypes[t]:
		return "bool"
	case strTypes[t]:
		return "str"
	case bytesTypes[t]:
		return "bytes"
	default:
		return ""
	}
}
