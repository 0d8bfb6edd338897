package pygen

import (
	"testing"

	"github.com/cbi-systems/protoc-gen-cbiproto/internal/descriptor"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func strPtr(s string) *string { return &s }
func i32Ptr(i int32) *int32   { return &i }

func fieldProto(name string, num int32, t descriptorpb.FieldDescriptorProto_Type, repeated bool) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if repeated {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}
	return &descriptorpb.FieldDescriptorProto{
		Name:   strPtr(name),
		Number: i32Ptr(num),
		Type:   t.Enum(),
		Label:  label.Enum(),
	}
}

func TestMessageRendererSimpleFields(t *testing.T) {
	msg := &descriptor.ProtoMessage{
		Proto:    &descriptorpb.DescriptorProto{Name: strPtr("Widget")},
		Qualname: "demo.Widget",
	}
	msg.Fields = []*descriptor.ProtoField{
		{Proto: fieldProto("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64, false), Parent: msg},
		{Proto: fieldProto("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING, false), Parent: msg},
		{Proto: fieldProto("tags", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING, true), Parent: msg},
	}

	fr := NewFileRenderer("demo", "sync")
	out := (&MessageRenderer{Message: msg, File: fr}).Render()

	require.Contains(t, out, "@dataclass(eq=False, repr=False)")
	require.Contains(t, out, "class Widget(cbiproto.Message):")
	require.Contains(t, out, "id: int = cbiproto.int64_field(1)")
	require.Contains(t, out, "name: str = cbiproto.string_field(2)")
	require.Contains(t, out, "tags: List[str] = cbiproto.string_field(3)")
}

func TestMessageRendererNoFieldsGetsPass(t *testing.T) {
	msg := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Empty")}}
	fr := NewFileRenderer("demo", "sync")
	out := (&MessageRenderer{Message: msg, File: fr}).Render()
	require.Contains(t, out, "pass")
}

func TestFieldRendererOptionalAndWraps(t *testing.T) {
	msg := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Widget")}}
	p := fieldProto("nickname", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, false)
	p.Proto3Optional = proto.Bool(true)
	f := &descriptor.ProtoField{Proto: p, Parent: msg}

	fr := NewFileRenderer("demo", "sync")
	out := (&FieldRenderer{Field: f, File: fr}).Render(map[string]bool{})
	require.Contains(t, out, "nickname: Optional[str] = cbiproto.string_field(1, optional=True)")
}

func TestFieldRendererDeprecatedMessage(t *testing.T) {
	msg := &descriptor.ProtoMessage{
		Proto: &descriptorpb.DescriptorProto{
			Name:    strPtr("Old"),
			Options: &descriptorpb.MessageOptions{Deprecated: proto.Bool(true)},
		},
	}
	fr := NewFileRenderer("demo", "sync")
	out := (&MessageRenderer{Message: msg, File: fr}).Render()
	require.Contains(t, out, "def __post_init__(self) -> None:")
	require.Contains(t, out, "warnings.warn('Old is deprecated', DeprecationWarning)")
	require.True(t, fr.hasDeprecated)
}

func TestEnumRendererWithComment(t *testing.T) {
	enum := &descriptor.ProtoEnum{
		Proto:   &descriptorpb.EnumDescriptorProto{Name: strPtr("Color")},
		Comment: descriptor.Comment{Leading: "the color of a thing"},
	}
	enum.Values = []*descriptor.EnumEntry{
		{Proto: &descriptorpb.EnumValueDescriptorProto{Name: strPtr("RED"), Number: i32Ptr(0)}, Parent: enum},
		{Proto: &descriptorpb.EnumValueDescriptorProto{Name: strPtr("BLUE"), Number: i32Ptr(1)}, Parent: enum},
	}

	fr := NewFileRenderer("demo", "sync")
	out := (&EnumRenderer{Enum: enum, File: fr}).Render()
	require.Contains(t, out, `class Color(cbiproto.Enum):`)
	require.Contains(t, out, `"""the color of a thing"""`)
	require.Contains(t, out, "RED = 0")
	require.Contains(t, out, "BLUE = 1")
}

func TestMapFieldRenderer(t *testing.T) {
	parent := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Config")}}
	entry := &descriptor.ProtoMessage{
		Proto:      &descriptorpb.DescriptorProto{Name: strPtr("TagsEntry")},
		IsMapEntry: true,
	}
	mapField := &descriptor.ProtoField{
		Proto:       fieldProto("tags", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, true),
		Parent:      parent,
		MessageType: entry,
		IsMap:       true,
		MapKey:      &descriptor.ProtoField{Proto: fieldProto("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, false)},
		MapValue:    &descriptor.ProtoField{Proto: fieldProto("value", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING, false)},
	}
	parent.Fields = []*descriptor.ProtoField{mapField}

	fr := NewFileRenderer("demo", "sync")
	out := (&MessageRenderer{Message: parent, File: fr}).Render()
	require.Contains(t, out, "tags: Dict[str, str] = cbiproto.map_field(1, cbiproto.TYPE_STRING, cbiproto.TYPE_STRING)")
}

func TestOneofFieldRendererAddsGroupArg(t *testing.T) {
	parent := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Choice")}}
	oneof := &descriptor.ProtoOneOf{Proto: &descriptorpb.OneofDescriptorProto{Name: strPtr("kind")}, Parent: parent}
	f := &descriptor.ProtoField{
		Proto:  fieldProto("a", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64, false),
		Parent: parent,
		OneOf:  oneof,
	}

	fr := NewFileRenderer("demo", "sync")
	out := (&FieldRenderer{Field: f, File: fr}).Render(map[string]bool{})
	require.Contains(t, out, `group="kind"`)
}

func TestServiceRendererClientAndServer(t *testing.T) {
	file := &descriptor.ProtoFile{Name: "demo.proto", PackageName: "demo"}
	input := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Req")}, Qualname: "demo.Req", File: file}
	output := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Resp")}, Qualname: "demo.Resp", File: file}

	svc := &descriptor.ProtoService{Proto: &descriptorpb.ServiceDescriptorProto{Name: strPtr("Widgets")}, File: file}
	method := &descriptor.ProtoMethod{
		Proto:      &descriptorpb.MethodDescriptorProto{Name: strPtr("GetWidget")},
		Parent:     svc,
		InputType:  input,
		OutputType: output,
	}
	svc.Methods = []*descriptor.ProtoMethod{method}

	fr := NewFileRenderer("demo", "sync")
	sr := &ServiceRenderer{Service: svc, File: fr}
	client := sr.RenderClient()
	server := sr.RenderServer()

	require.Contains(t, client, "class Widgets(cbiproto.ServiceStub):")
	require.Contains(t, client, "def get_widget(self, request: Req")
	require.Contains(t, client, `return self._unary_unary("/demo.Widgets/GetWidget", request, Resp, timeout=timeout, metadata=metadata)`)

	require.Contains(t, server, "class WidgetsBase(ServiceBase):")
	require.Contains(t, server, "raise cbiproto.runtime.GRPCError(cbiproto.runtime.Status.UNIMPLEMENTED)")
	require.Contains(t, server, "def __mapping__(self) -> Dict[str, cbiproto.runtime.Handler]:")
	require.Contains(t, server, "'/demo.Widgets/GetWidget': cbiproto.runtime.Handler(self.get_widget, cbiproto.runtime.Cardinality.UNARY_UNARY, Req, Resp),")
}

func TestStreamingMethodWrapsIterable(t *testing.T) {
	file := &descriptor.ProtoFile{Name: "demo.proto", PackageName: "demo"}
	input := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Req")}, Qualname: "demo.Req", File: file}
	output := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Resp")}, Qualname: "demo.Resp", File: file}
	svc := &descriptor.ProtoService{Proto: &descriptorpb.ServiceDescriptorProto{Name: strPtr("Widgets")}, File: file}
	method := &descriptor.ProtoMethod{
		Proto: &descriptorpb.MethodDescriptorProto{
			Name:            strPtr("Watch"),
			ServerStreaming: proto.Bool(true),
		},
		Parent:     svc,
		InputType:  input,
		OutputType: output,
	}
	svc.Methods = []*descriptor.ProtoMethod{method}

	fr := NewFileRenderer("demo", "sync")
	client := (&ServiceRenderer{Service: svc, File: fr}).RenderClient()
	require.Contains(t, client, "def watch(self, request: Req, *, timeout: Optional[float] = None")
	require.Contains(t, client, "-> Iterable[Resp]:")
}

func TestFileRendererAssemblesSections(t *testing.T) {
	msg := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Widget")}}
	msg.Fields = []*descriptor.ProtoField{
		{Proto: fieldProto("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64, false), Parent: msg},
	}
	enum := &descriptor.ProtoEnum{Proto: &descriptorpb.EnumDescriptorProto{Name: strPtr("Color")}}
	enum.Values = []*descriptor.EnumEntry{
		{Proto: &descriptorpb.EnumValueDescriptorProto{Name: strPtr("RED"), Number: i32Ptr(0)}, Parent: enum},
	}

	fr := NewFileRenderer("demo", "sync")
	fr.RenderEnum(enum)
	fr.RenderMessage(msg)
	out := fr.Render()

	require.Contains(t, out, "# Code generated by protoc-gen-cbiproto. DO NOT EDIT.")
	require.Contains(t, out, "from __future__ import annotations")
	require.Contains(t, out, "import cbiproto")
	require.Contains(t, out, "class Color(cbiproto.Enum):")
	require.Contains(t, out, "class Widget(cbiproto.Message):")
	require.True(t, indexOf(out, "class Color") < indexOf(out, "class Widget"), "enums render before messages")
}

func TestFieldDefaultValueString(t *testing.T) {
	msg := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Widget")}}
	fr := NewFileRenderer("demo", "sync")

	cases := []struct {
		proto *descriptorpb.FieldDescriptorProto
		want  string
	}{
		{fieldProto("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64, false), "0"},
		{fieldProto("ratio", 2, descriptorpb.FieldDescriptorProto_TYPE_FLOAT, false), "0.0"},
		{fieldProto("ok", 3, descriptorpb.FieldDescriptorProto_TYPE_BOOL, false), "False"},
		{fieldProto("name", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING, false), `""`},
		{fieldProto("raw", 5, descriptorpb.FieldDescriptorProto_TYPE_BYTES, false), `b""`},
		{fieldProto("tags", 6, descriptorpb.FieldDescriptorProto_TYPE_STRING, true), "[]"},
	}
	for _, tc := range cases {
		f := &FieldRenderer{Field: &descriptor.ProtoField{Proto: tc.proto, Parent: msg}, File: fr}
		require.Equal(t, tc.want, f.defaultValueString())
	}
}

func TestFieldPackedClassifiesRepeatedScalars(t *testing.T) {
	msg := &descriptor.ProtoMessage{Proto: &descriptorpb.DescriptorProto{Name: strPtr("Widget")}}
	fr := NewFileRenderer("demo", "sync")

	packedField := &FieldRenderer{
		Field: &descriptor.ProtoField{Proto: fieldProto("scores", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32, true), Parent: msg},
		File:  fr,
	}
	require.True(t, packedField.packed())

	unpackedField := &FieldRenderer{
		Field: &descriptor.ProtoField{Proto: fieldProto("names", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING, true), Parent: msg},
		File:  fr,
	}
	require.False(t, unpackedField.packed())
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
