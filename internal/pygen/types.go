package pygen

import (
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"
)

type fdType = descriptorpb.FieldDescriptorProto_Type

// Proto type categories, grouped the same way the plugin's
// PROTO_*_TYPES tuples group them for py_type/default_value_string/
// packed decisions.
var (
	floatTypes = map[fdType]bool{
		descriptorpb.FieldDescriptorProto_TYPE_DOUBLE: true,
		descriptorpb.FieldDescriptorProto_TYPE_FLOAT:  true,
	}
	intTypes = map[fdType]bool{
		descriptorpb.FieldDescriptorProto_TYPE_INT64:    true,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64:   true,
		descriptorpb.FieldDescriptorProto_TYPE_INT32:    true,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  true,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  true,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32:   true,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: true,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: true,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32:   true,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64:   true,
	}
	boolTypes = map[fdType]bool{descriptorpb.FieldDescriptorProto_TYPE_BOOL: true}
	strTypes   = map[fdType]bool{descriptorpb.FieldDescriptorProto_TYPE_STRING: true}
	bytesTypes = map[fdType]bool{descriptorpb.FieldDescriptorProto_TYPE_BYTES: true}
	msgTypes   = map[fdType]bool{
		descriptorpb.FieldDescriptorProto_TYPE_MESSAGE: true,
		descriptorpb.FieldDescriptorProto_TYPE_ENUM:    true,
	}
	packedTypes = map[fdType]bool{
		descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   true,
		descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    true,
		descriptorpb.FieldDescriptorProto_TYPE_INT64:    true,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64:   true,
		descriptorpb.FieldDescriptorProto_TYPE_INT32:    true,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  true,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  true,
		descriptorpb.FieldDescriptorProto_TYPE_BOOL:     true,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32:   true,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: true,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: true,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32:   true,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64:   true,
	}
)

// fieldTypeName renders the "x" in "cbiproto.x_field(...)": the proto
// type's enum member name, lowercased, with its "type_" prefix
// stripped (TYPE_INT64 -> "int64", TYPE_MESSAGE -> "message").
func fieldTypeName(t fdType) string {
	return strings.ToLower(strings.TrimPrefix(t.String(), "TYPE_"))
}
