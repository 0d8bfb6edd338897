package wire

// FieldMetadata describes one field of a message schema: enough
// information for Encode/Decode/ToDict/FromDict to process it without
// any generated code, the same role ProtoClassMetadata's per-field
// FieldMetadata plays for the embedded Python runtime.
type FieldMetadata struct {
	Name      string
	Number    int32
	ProtoType ProtoType
	Repeated  bool

	// Group is the containing oneof's name, or "" if this field is not
	// part of one. Proto3 optional scalar fields are modeled as a
	// synthetic single-field oneof here, exactly as protoc itself
	// represents them.
	Group string

	// Wraps is set when this field's declared type is one of the
	// google.protobuf.*Value wrapper messages; HasWraps reports
	// whether Wraps should be consulted.
	HasWraps bool
	Wraps    ProtoType

	// NestedSchema is the schema of this field's message type; set
	// whenever ProtoType is TypeMessage (including the synthesized
	// Timestamp/Duration/wrapper messages) or TypeMap.
	NestedSchema *Schema

	// MapKeyType/MapValueType are populated when ProtoType is TypeMap.
	MapKeyType   ProtoType
	MapValueType ProtoType
	// MapValueSchema is set when the map's value type is itself a
	// message.
	MapValueSchema *Schema
}

// Schema is the ordered field list of a message type.
type Schema struct {
	Name     string
	Fields   []*FieldMetadata
	byNumber map[int32]*FieldMetadata
	byName   map[string]*FieldMetadata
}

// NewSchema builds a Schema from its fields, indexing them by both
// wire number and field name.
func NewSchema(name string, fields ...*FieldMetadata) *Schema {
	s := &Schema{
		Name:     name,
		Fields:   fields,
		byNumber: make(map[int32]*FieldMetadata, len(fields)),
		byName:   make(map[string]*FieldMetadata, len(fields)),
	}
	for _, f := range fields {
		s.byNumber[f.Number] = f
		s.byName[f.Name] = f
	}
	return s
}

func (s *Schema) FieldByNumber(n int32) (*FieldMetadata, bool) {
	f, ok := s.byNumber[n]
	return f, ok
}

func (s *Schema) FieldByName(name string) (*FieldMetadata, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// DynamicMessage is a schema-driven protobuf message value: the
// run-time analogue of a generated dataclass instance, addressed by
// field name rather than by Go struct field.
type DynamicMessage struct {
	Schema *Schema

	// Values holds one entry per field that has been explicitly set,
	// keyed by field name. A repeated field's value is a []any; a map
	// field's value is a map[any]any; a singular message field's value
	// is a *DynamicMessage; everything else is the corresponding Go
	// scalar (bool, int64, uint64, float64, string, []byte).
	Values map[string]any

	// GroupCurrent records, for each oneof group name, which field in
	// that group is presently set (or is absent from the map if none
	// is).
	GroupCurrent map[string]string

	// UnknownFields holds the raw bytes of any field number with no
	// matching schema entry, concatenated in wire order, round-tripped
	// verbatim on re-encode.
	UnknownFields []byte

	// SerializedOnWire mirrors _serialized_on_wire: true once a
	// message has been populated by decoding bytes, so that an
	// explicitly-received empty submessage is still re-serialized
	// rather than treated as absent.
	SerializedOnWire bool
}

// NewDynamicMessage returns a zero-valued message for the given schema.
func NewDynamicMessage(schema *Schema) *DynamicMessage {
	return &DynamicMessage{
		Schema:       schema,
		Values:       make(map[string]any),
		GroupCurrent: make(map[string]string),
	}
}

// Get returns the value currently set for a field, or nil (and false)
// if it has never been assigned.
func (m *DynamicMessage) Get(name string) (any, bool) {
	v, ok := m.Values[name]
	return v, ok
}

// Set assigns a field's value. If the field belongs to a oneof group,
// every sibling field in that group is cleared first, matching the
// "last write wins" semantics a generated dataclass's property setters
// implement for oneof members.
func (m *DynamicMessage) Set(name string, value any) {
	field, ok := m.Schema.FieldByName(name)
	if ok && field.Group != "" {
		for _, sibling := range m.Schema.Fields {
			if sibling.Group == field.Group && sibling.Name != name {
				delete(m.Values, sibling.Name)
			}
		}
		m.GroupCurrent[field.Group] = name
	}
	m.Values[name] = value
}

// WhichOneOf reports which field (if any) of a oneof group is
// currently selected, mirroring which_one_of.
func (m *DynamicMessage) WhichOneOf(group string) (string, any) {
	name, ok := m.GroupCurrent[group]
	if !ok {
		return "", nil
	}
	return name, m.Values[name]
}

// zeroValue returns the default (wire-omitted) value for a field,
// used to decide whether Encode must serialize it at all.
func zeroValue(f *FieldMetadata) any {
	if f.Repeated {
		return nil // empty/absent slice, compared by length in Encode
	}
	switch f.ProtoType {
	case TypeBool:
		return false
	case TypeString:
		return ""
	case TypeBytes:
		return []byte(nil)
	case TypeFloat, TypeDouble:
		return 0.0
	case TypeMessage, TypeMap:
		return nil
	default:
		return int64(0)
	}
}
