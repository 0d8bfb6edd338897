// Package descriptor builds a traversable model of a protoc
// CodeGeneratorRequest: files, messages, fields, enums and services,
// with cross-file type references resolved and comments attached.
//
// The shape mirrors protogen.Plugin from the Go protobuf toolchain,
// generalized so that a field's resolved type is itself part of this
// model rather than a protoreflect descriptor — callers never need to
// touch descriptorpb again once a Set has been built.
package descriptor

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"
)

// Field numbers from descriptor.proto, used to build SourceCodeInfo
// paths the same way protoc itself does.
const (
	fileMessageTypeField = 4
	fileEnumTypeField    = 5
	fileServiceField     = 6
	fileExtensionField   = 7

	messageFieldField         = 2
	messageNestedTypeField    = 3
	messageEnumTypeField      = 4
	messageExtensionField     = 6
	messageOneofDeclField     = 8

	enumValueField = 2

	serviceMethodField = 2
)

// Comment holds the dedented leading comment text attached to a
// descriptor location, joined into a single block.
type Comment struct {
	Leading string
}

// Empty reports whether the comment carries no text.
func (c Comment) Empty() bool { return c.Leading == "" }

// A Location identifies a path within a FileDescriptorProto, used to
// look up SourceCodeInfo.
type Location struct {
	SourceFile string
	Path       []int32
}

func (loc Location) appendPath(a ...int32) Location {
	n := make([]int32, 0, len(loc.Path)+len(a))
	n = append(n, loc.Path...)
	n = append(n, a...)
	return Location{SourceFile: loc.SourceFile, Path: n}
}

type pathKey struct{ s string }

func newPathKey(path []int32) pathKey {
	buf := make([]byte, 4*len(path))
	for i, x := range path {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(x))
	}
	return pathKey{string(buf)}
}

// ProtoFile describes a single .proto source file.
type ProtoFile struct {
	Proto       *descriptorpb.FileDescriptorProto
	Name        string // the .proto path, e.g. "a/b/c.proto"
	PackageName string // dotted proto package, may be empty

	Messages   []*ProtoMessage
	Enums      []*ProtoEnum
	Extensions []*ProtoField
	Services   []*ProtoService

	// Generate is true if protoc asked for this file to be generated
	// (it appears in CodeGeneratorRequest.FileToGenerate), as opposed
	// to being present only because something else imports it.
	Generate bool

	sourceInfo map[pathKey][]*descriptorpb.SourceCodeInfo_Location
}

func (f *ProtoFile) location(path ...int32) Location {
	return Location{SourceFile: f.Name, Path: path}
}

func (f *ProtoFile) comment(loc Location) Comment {
	for _, info := range f.sourceInfo[newPathKey(loc.Path)] {
		if info.LeadingComments == nil {
			continue
		}
		return Comment{Leading: dedent(info.GetLeadingComments())}
	}
	return Comment{}
}

// dedent implements the comment-block dedent rule: each line loses
// (leading_spaces % 4) leading spaces, preserving relative indentation
// produced by protoc's own C++-style comment formatting.
func dedent(s string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		n := 0
		for n < len(line) && line[n] == ' ' {
			n++
		}
		lines[i] = line[n%4:]
	}
	return strings.Join(lines, "\n")
}

// ProtoMessage describes a message type.
type ProtoMessage struct {
	Proto    *descriptorpb.DescriptorProto
	Qualname string // fully dotted proto name, e.g. "pkg.Outer.Inner"
	File     *ProtoFile
	Parent   *ProtoMessage // nil for top-level messages

	Fields     []*ProtoField
	OneOfs     []*ProtoOneOf
	Messages   []*ProtoMessage // excludes synthetic map-entry messages
	Enums      []*ProtoEnum
	Extensions []*ProtoField

	IsMapEntry bool
	Comment    Comment
	Location   Location
}

// Name is the message's unqualified proto name.
func (m *ProtoMessage) Name() string { return m.Proto.GetName() }

// ProtoField describes a message field (or a top-level/nested extension).
type ProtoField struct {
	Proto    *descriptorpb.FieldDescriptorProto
	Parent   *ProtoMessage // nil only for a top-level extension
	Extendee *ProtoMessage // non-nil for extension fields

	MessageType *ProtoMessage // set if this field's type is a message/group
	EnumType    *ProtoEnum    // set if this field's type is an enum

	OneOf *ProtoOneOf // non-nil if this field is part of a oneof

	// IsMap is true when this field is a repeated message field whose
	// type is a synthetic map-entry message; MapKey/MapValue describe
	// the entry's two synthesized fields in that case.
	IsMap    bool
	MapKey   *ProtoField
	MapValue *ProtoField

	Comment  Comment
	Location Location
}

func (f *ProtoField) Name() string   { return f.Proto.GetName() }
func (f *ProtoField) Number() int32  { return f.Proto.GetNumber() }
func (f *ProtoField) IsRepeated() bool {
	return f.Proto.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED
}
func (f *ProtoField) IsOptional() bool {
	return f.Proto.GetProto3Optional() || (f.Proto.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL && f.OneOf == nil)
}

// ProtoOneOf describes a oneof group within a message.
type ProtoOneOf struct {
	Proto    *descriptorpb.OneofDescriptorProto
	Parent   *ProtoMessage
	Index    int
	Fields   []*ProtoField
	Location Location
}

func (o *ProtoOneOf) Name() string { return o.Proto.GetName() }

// ProtoEnum describes an enum type.
type ProtoEnum struct {
	Proto    *descriptorpb.EnumDescriptorProto
	Qualname string
	File     *ProtoFile
	Parent   *ProtoMessage // nil for top-level enums

	Values   []*EnumEntry
	Comment  Comment
	Location Location
}

func (e *ProtoEnum) Name() string { return e.Proto.GetName() }

// EnumEntry describes a single value within an enum.
type EnumEntry struct {
	Proto    *descriptorpb.EnumValueDescriptorProto
	Parent   *ProtoEnum
	Comment  Comment
	Location Location
}

func (v *EnumEntry) Name() string  { return v.Proto.GetName() }
func (v *EnumEntry) Number() int32 { return v.Proto.GetNumber() }

// ProtoService describes an RPC service.
type ProtoService struct {
	Proto    *descriptorpb.ServiceDescriptorProto
	Qualname string
	File     *ProtoFile

	Methods  []*ProtoMethod
	Comment  Comment
	Location Location
}

func (s *ProtoService) Name() string { return s.Proto.GetName() }

// ProtoMethod describes a single RPC method.
type ProtoMethod struct {
	Proto  *descriptorpb.MethodDescriptorProto
	Parent *ProtoService

	InputType  *ProtoMessage
	OutputType *ProtoMessage

	Comment  Comment
	Location Location
}

func (m *ProtoMethod) Name() string            { return m.Proto.GetName() }
func (m *ProtoMethod) ClientStreaming() bool    { return m.Proto.GetClientStreaming() }
func (m *ProtoMethod) ServerStreaming() bool    { return m.Proto.GetServerStreaming() }

// Set is the fully-resolved model of everything in a
// CodeGeneratorRequest: every file it names plus every file those
// files import, in the order protoc supplied them.
type Set struct {
	Request *pluginpb.CodeGeneratorRequest
	Files   []*ProtoFile
	Log     *logrus.Logger

	filesByName    map[string]*ProtoFile
	messagesByName map[string]*ProtoMessage
	enumsByName    map[string]*ProtoEnum
}

// FileByName returns the file with the given .proto path.
func (s *Set) FileByName(name string) (*ProtoFile, bool) {
	f, ok := s.filesByName[name]
	return f, ok
}

// MessageByName returns the message with the given fully-qualified
// dotted proto name (no leading dot).
func (s *Set) MessageByName(name string) (*ProtoMessage, bool) {
	m, ok := s.messagesByName[name]
	return m, ok
}

// Build constructs a Set from a CodeGeneratorRequest. It mirrors
// protogen.New's two-pass strategy: first every file's tree of
// messages, enums and services is built so that every type has a
// global fully-qualified-name entry, then a second pass resolves
// field, extension and method type references against that global
// table.
func Build(req *pluginpb.CodeGeneratorRequest, log *logrus.Logger) (*Set, error) {
	s := &Set{
		Request:        req,
		Log:            log,
		filesByName:    make(map[string]*ProtoFile),
		messagesByName: make(map[string]*ProtoMessage),
		enumsByName:    make(map[string]*ProtoEnum),
	}

	for _, fdesc := range req.GetProtoFile() {
		if s.filesByName[fdesc.GetName()] != nil {
			return nil, fmt.Errorf("%w: duplicate file name %q", ErrMalformedDescriptor, fdesc.GetName())
		}
		f := s.newFile(fdesc)
		s.Files = append(s.Files, f)
		s.filesByName[f.Name] = f
	}

	for _, f := range s.Files {
		if err := s.initFile(f); err != nil {
			return nil, err
		}
	}

	generate := make(map[string]bool, len(req.GetFileToGenerate()))
	for _, name := range req.GetFileToGenerate() {
		if _, ok := s.filesByName[name]; !ok {
			return nil, fmt.Errorf("%w: no descriptor for generated file: %v", ErrMalformedDescriptor, name)
		}
		generate[name] = true
	}
	for _, f := range s.Files {
		f.Generate = generate[f.Name]
	}

	return s, nil
}

func (s *Set) newFile(p *descriptorpb.FileDescriptorProto) *ProtoFile {
	f := &ProtoFile{
		Proto:       p,
		Name:        p.GetName(),
		PackageName: p.GetPackage(),
		sourceInfo:  make(map[pathKey][]*descriptorpb.SourceCodeInfo_Location),
	}
	for _, loc := range p.GetSourceCodeInfo().GetLocation() {
		key := newPathKey(loc.Path)
		f.sourceInfo[key] = append(f.sourceInfo[key], loc)
	}
	for i, md := range p.GetMessageType() {
		f.Messages = append(f.Messages, s.newMessage(f, nil, md, f.location(fileMessageTypeField, int32(i))))
	}
	for i, ed := range p.GetEnumType() {
		f.Enums = append(f.Enums, s.newEnum(f, nil, ed, f.location(fileEnumTypeField, int32(i))))
	}
	for i, xd := range p.GetExtension() {
		f.Extensions = append(f.Extensions, s.newField(f, nil, xd, f.location(fileExtensionField, int32(i))))
	}
	for i, sd := range p.GetService() {
		f.Services = append(f.Services, s.newService(f, sd, f.location(fileServiceField, int32(i))))
	}
	return f
}

func qualify(pkg, parent, name string) string {
	if parent != "" {
		return parent + "." + name
	}
	if pkg != "" {
		return pkg + "." + name
	}
	return name
}

func (s *Set) newMessage(f *ProtoFile, parent *ProtoMessage, p *descriptorpb.DescriptorProto, loc Location) *ProtoMessage {
	parentQual := ""
	if parent != nil {
		parentQual = parent.Qualname
	}
	m := &ProtoMessage{
		Proto:      p,
		Qualname:   qualify(f.PackageName, parentQual, p.GetName()),
		File:       f,
		Parent:     parent,
		IsMapEntry: p.GetOptions().GetMapEntry(),
		Location:   loc,
	}
	m.Comment = f.comment(loc)
	s.messagesByName[m.Qualname] = m

	for i, nd := range p.GetNestedType() {
		nloc := loc.appendPath(messageNestedTypeField, int32(i))
		nested := s.newMessage(f, m, nd, nloc)
		if nested.IsMapEntry {
			// Map-entry messages are synthesized by protoc; they are
			// reachable via their containing field's type but never
			// rendered as a user-visible type.
			continue
		}
		m.Messages = append(m.Messages, nested)
	}
	for i, ed := range p.GetEnumType() {
		m.Enums = append(m.Enums, s.newEnum(f, m, ed, loc.appendPath(messageEnumTypeField, int32(i))))
	}
	for i, od := range p.GetOneofDecl() {
		m.OneOfs = append(m.OneOfs, &ProtoOneOf{
			Proto:    od,
			Parent:   m,
			Index:    i,
			Location: loc.appendPath(messageOneofDeclField, int32(i)),
		})
	}
	for i, fd := range p.GetField() {
		field := s.newField(f, m, fd, loc.appendPath(messageFieldField, int32(i)))
		if fd.OneofIndex != nil {
			oo := m.OneOfs[fd.GetOneofIndex()]
			field.OneOf = oo
			oo.Fields = append(oo.Fields, field)
		}
		m.Fields = append(m.Fields, field)
	}
	for i, xd := range p.GetExtension() {
		m.Extensions = append(m.Extensions, s.newField(f, m, xd, loc.appendPath(messageExtensionField, int32(i))))
	}
	return m
}

func (s *Set) newField(f *ProtoFile, parent *ProtoMessage, p *descriptorpb.FieldDescriptorProto, loc Location) *ProtoField {
	field := &ProtoField{
		Proto:    p,
		Parent:   parent,
		Location: loc,
	}
	field.Comment = f.comment(loc)
	return field
}

func (s *Set) newEnum(f *ProtoFile, parent *ProtoMessage, p *descriptorpb.EnumDescriptorProto, loc Location) *ProtoEnum {
	parentQual := ""
	if parent != nil {
		parentQual = parent.Qualname
	}
	e := &ProtoEnum{
		Proto:    p,
		Qualname: qualify(f.PackageName, parentQual, p.GetName()),
		File:     f,
		Parent:   parent,
		Location: loc,
	}
	e.Comment = f.comment(loc)
	s.enumsByName[e.Qualname] = e
	for i, vd := range p.GetValue() {
		vloc := loc.appendPath(enumValueField, int32(i))
		e.Values = append(e.Values, &EnumEntry{
			Proto:    vd,
			Parent:   e,
			Comment:  f.comment(vloc),
			Location: vloc,
		})
	}
	return e
}

func (s *Set) newService(f *ProtoFile, p *descriptorpb.ServiceDescriptorProto, loc Location) *ProtoService {
	svc := &ProtoService{
		Proto:    p,
		Qualname: qualify(f.PackageName, "", p.GetName()),
		File:     f,
		Location: loc,
	}
	svc.Comment = f.comment(loc)
	for i, md := range p.GetMethod() {
		mloc := loc.appendPath(serviceMethodField, int32(i))
		svc.Methods = append(svc.Methods, &ProtoMethod{
			Proto:    md,
			Parent:   svc,
			Comment:  f.comment(mloc),
			Location: mloc,
		})
	}
	return svc
}

// initFile resolves every field/extension/method type reference in f
// against the set's global name tables. It must run only after every
// file in the request has had its top-level tree built, since a field
// may reference a type defined in another file.
func (s *Set) initFile(f *ProtoFile) error {
	for _, m := range f.Messages {
		if err := s.initMessage(m); err != nil {
			return err
		}
	}
	for _, field := range f.Extensions {
		if err := s.initField(field); err != nil {
			return err
		}
		if err := s.spliceExtension(field); err != nil {
			return err
		}
	}
	for _, svc := range f.Services {
		for _, method := range svc.Methods {
			if err := s.initMethod(method); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Set) initMessage(m *ProtoMessage) error {
	for _, nested := range m.Messages {
		if err := s.initMessage(nested); err != nil {
			return err
		}
	}
	for _, field := range m.Fields {
		if err := s.initField(field); err != nil {
			return err
		}
		s.resolveMapField(field)
	}
	for _, field := range m.Extensions {
		if err := s.initField(field); err != nil {
			return err
		}
		if err := s.spliceExtension(field); err != nil {
			return err
		}
	}
	return nil
}

func trimLeadingDot(name string) string { return strings.TrimPrefix(name, ".") }

// initField resolves field's message/enum/extendee type reference. A
// reference that cannot be resolved against this request's descriptor
// set is logged as a diagnostic and left unset rather than treated as
// fatal (spec: "missing type reference" is a logged diagnostic, not a
// hard error) - the unresolved name surfaces later, at Python import
// time, instead of aborting the whole generator invocation.
func (s *Set) initField(field *ProtoField) error {
	p := field.Proto
	switch p.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		name := trimLeadingDot(p.GetTypeName())
		m, ok := s.messagesByName[name]
		if !ok {
			if s.Log != nil {
				s.Log.WithField("field", fieldDebugName(field)).WithField("type", name).
					Warn("no descriptor for message type, leaving reference unresolved")
			}
			break
		}
		field.MessageType = m
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		name := trimLeadingDot(p.GetTypeName())
		e, ok := s.enumsByName[name]
		if !ok {
			if s.Log != nil {
				s.Log.WithField("field", fieldDebugName(field)).WithField("type", name).
					Warn("no descriptor for enum type, leaving reference unresolved")
			}
			break
		}
		field.EnumType = e
	}
	if p.Extendee != nil {
		name := trimLeadingDot(p.GetExtendee())
		m, ok := s.messagesByName[name]
		if !ok {
			if s.Log != nil {
				s.Log.WithField("extension", fieldDebugName(field)).WithField("extendee", name).
					Warn("extendee not present in this descriptor set, dropping extension")
			}
			return nil
		}
		field.Extendee = m
	}
	return nil
}

func (s *Set) resolveMapField(field *ProtoField) {
	if field.MessageType == nil || !field.MessageType.IsMapEntry || !field.IsRepeated() {
		return
	}
	entry := field.MessageType.Proto
	if len(entry.GetField()) != 2 {
		return
	}
	field.IsMap = true
	field.MapKey = &ProtoField{Proto: entry.GetField()[0], Parent: field.MessageType}
	field.MapValue = &ProtoField{Proto: entry.GetField()[1], Parent: field.MessageType}
	if field.MapValue.Proto.GetType() == descriptorpb.FieldDescriptorProto_TYPE_MESSAGE {
		name := trimLeadingDot(field.MapValue.Proto.GetTypeName())
		field.MapValue.MessageType = s.messagesByName[name]
	}
	if field.MapValue.Proto.GetType() == descriptorpb.FieldDescriptorProto_TYPE_ENUM {
		name := trimLeadingDot(field.MapValue.Proto.GetTypeName())
		field.MapValue.EnumType = s.enumsByName[name]
	}
}

// spliceExtension appends an extension field to its extendee's Fields
// list so downstream code can treat declared and extension fields
// uniformly, the way betterproto's plugin folds extensions back into
// the class they extend. If the extendee was not part of this
// request's descriptor set, the extension is dropped with a warning
// rather than treated as a hard error: a plugin invocation may only
// see a subset of the types an extension refers to.
func (s *Set) spliceExtension(field *ProtoField) error {
	if field.Extendee == nil {
		return nil
	}
	field.Extendee.Fields = append(field.Extendee.Fields, field)
	return nil
}

// initMethod resolves method's input/output message types, logging
// and leaving the reference unresolved rather than failing the whole
// request if either type isn't present in this descriptor set (see
// initField).
func (s *Set) initMethod(method *ProtoMethod) error {
	p := method.Proto
	inName := trimLeadingDot(p.GetInputType())
	in, ok := s.messagesByName[inName]
	if !ok {
		if s.Log != nil {
			s.Log.WithField("method", method.Name()).WithField("type", inName).
				Warn("no descriptor for input type, leaving reference unresolved")
		}
	} else {
		method.InputType = in
	}

	outName := trimLeadingDot(p.GetOutputType())
	out, ok := s.messagesByName[outName]
	if !ok {
		if s.Log != nil {
			s.Log.WithField("method", method.Name()).WithField("type", outName).
				Warn("no descriptor for output type, leaving reference unresolved")
		}
	} else {
		method.OutputType = out
	}
	return nil
}

func fieldDebugName(f *ProtoField) string {
	if f.Parent != nil {
		return f.Parent.Qualname + "." + f.Name()
	}
	return f.Name()
}
