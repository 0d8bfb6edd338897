package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// parsedField is one tag-delimited unit read off the wire: its field
// number, wire type, and the raw (still wire-typed) value bytes.
type parsedField struct {
	number   int32
	wireType WireType
	raw      []byte
	value    []byte // the bytes consumed for this field's value, len/fixed-width slice or varint bytes
	full     []byte // number+wiretype key plus value, for unknown-field passthrough
}

// parseFields walks a byte buffer yielding one parsedField per
// top-level wire entry, mirroring parse_fields.
func parseFields(data []byte) ([]parsedField, error) {
	var out []parsedField
	i := 0
	for i < len(data) {
		start := i
		keyVal, next, err := decodeVarint(data, i)
		if err != nil {
			return nil, err
		}
		i = next
		number := int32(keyVal >> 3)
		wt := WireType(keyVal & 0x7)

		var valueBytes []byte
		switch wt {
		case WireVarint:
			_, next, err := decodeVarint(data, i)
			if err != nil {
				return nil, err
			}
			valueBytes = data[i:next]
			i = next
		case WireFixed64:
			if i+8 > len(data) {
				return nil, ErrTruncated
			}
			valueBytes = data[i : i+8]
			i += 8
		case WireLenDelim:
			length, next, err := decodeVarint(data, i)
			if err != nil {
				return nil, err
			}
			i = next
			if i+int(length) > len(data) {
				return nil, ErrTruncated
			}
			valueBytes = data[i : i+int(length)]
			i += int(length)
		case WireFixed32:
			if i+4 > len(data) {
				return nil, ErrTruncated
			}
			valueBytes = data[i : i+4]
			i += 4
		default:
			return nil, fmt.Errorf("%w: tag %d", ErrUnknownWireType, wt)
		}
		out = append(out, parsedField{
			number:   number,
			wireType: wt,
			value:    valueBytes,
			full:     data[start:i],
		})
	}
	return out, nil
}

// Decode parses wire-format bytes into a DynamicMessage conforming to
// schema, following deserialize_from_bytes: fields with no matching
// schema entry are preserved verbatim in UnknownFields, packed
// repeated scalars are unpacked element by element, and repeated
// message/map fields accumulate rather than overwrite.
func Decode(schema *Schema, data []byte) (*DynamicMessage, error) {
	m := NewDynamicMessage(schema)
	m.SerializedOnWire = true

	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	for _, pf := range fields {
		field, ok := schema.FieldByNumber(pf.number)
		if !ok {
			m.UnknownFields = append(m.UnknownFields, pf.full...)
			continue
		}

		if field.ProtoType == TypeMap {
			entry, err := decodeMapEntry(field, pf.value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			cur, _ := m.Values[field.Name].(map[any]any)
			if cur == nil {
				cur = make(map[any]any)
			}
			cur[entry.key] = entry.value
			m.Values[field.Name] = cur
			continue
		}

		if field.Repeated && pf.wireType == WireLenDelim && isPacked(field.ProtoType) {
			items, err := decodePacked(field, pf.value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			existing, _ := m.Values[field.Name].([]any)
			m.Values[field.Name] = append(existing, items...)
			continue
		}

		decoded, err := postprocessSingle(field, pf.wireType, pf.value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if field.Repeated {
			existing, _ := m.Values[field.Name].([]any)
			m.Values[field.Name] = append(existing, decoded)
		} else {
			if field.Group != "" {
				m.GroupCurrent[field.Group] = field.Name
			}
			m.Values[field.Name] = decoded
		}
	}
	return m, nil
}

type mapEntry struct {
	key   any
	value any
}

func decodeMapEntry(field *FieldMetadata, raw []byte) (mapEntry, error) {
	entrySchema := NewSchema(field.Name+"Entry",
		&FieldMetadata{Name: "key", Number: 1, ProtoType: field.MapKeyType},
		&FieldMetadata{Name: "value", Number: 2, ProtoType: field.MapValueType, NestedSchema: field.MapValueSchema},
	)
	dm, err := Decode(entrySchema, raw)
	if err != nil {
		return mapEntry{}, err
	}
	k := dm.Values["key"]
	if k == nil {
		k = zeroValue(entrySchema.byName["key"])
	}
	v := dm.Values["value"]
	if v == nil {
		v = zeroValue(entrySchema.byName["value"])
	}
	return mapEntry{key: k, value: v}, nil
}

func decodePacked(field *FieldMetadata, raw []byte) ([]any, error) {
	var out []any
	pos := 0
	for pos < len(raw) {
		switch wireTypeOf(field.ProtoType) {
		case WireFixed32:
			if pos+4 > len(raw) {
				return nil, ErrTruncated
			}
			v, err := postprocessSingle(field, WireFixed32, raw[pos:pos+4])
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			pos += 4
		case WireFixed64:
			if pos+8 > len(raw) {
				return nil, ErrTruncated
			}
			v, err := postprocessSingle(field, WireFixed64, raw[pos:pos+8])
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			pos += 8
		default:
			_, next, err := decodeVarint(raw, pos)
			if err != nil {
				return nil, err
			}
			v, err := postprocessSingle(field, WireVarint, raw[pos:next])
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			pos = next
		}
	}
	return out, nil
}

// postprocessSingle turns raw wire bytes for one field occurrence into
// its Go-typed value, mirroring _postprocess_single.
func postprocessSingle(field *FieldMetadata, wt WireType, raw []byte) (any, error) {
	switch wt {
	case WireVarint:
		u, _, err := decodeVarint(raw, 0)
		if err != nil {
			return nil, err
		}
		switch field.ProtoType {
		case TypeInt32:
			return signExtend(u, 32), nil
		case TypeInt64:
			return signExtend(u, 64), nil
		case TypeSint32:
			return int64(zigzagDecode32(uint32(u))), nil
		case TypeSint64:
			return zigzagDecode64(u), nil
		case TypeBool:
			return u > 0, nil
		case TypeUint32, TypeUint64, TypeEnum:
			return u, nil
		default:
			return u, nil
		}
	case WireFixed32:
		if len(raw) != 4 {
			return nil, ErrTruncated
		}
		bits := binary.LittleEndian.Uint32(raw)
		switch field.ProtoType {
		case TypeFloat:
			return float64(math.Float32frombits(bits)), nil
		case TypeSfixed32:
			return int64(int32(bits)), nil
		default:
			return uint64(bits), nil
		}
	case WireFixed64:
		if len(raw) != 8 {
			return nil, ErrTruncated
		}
		bits := binary.LittleEndian.Uint64(raw)
		switch field.ProtoType {
		case TypeDouble:
			return math.Float64frombits(bits), nil
		case TypeSfixed64:
			return int64(bits), nil
		default:
			return bits, nil
		}
	case WireLenDelim:
		switch field.ProtoType {
		case TypeString:
			return string(raw), nil
		case TypeBytes:
			out := make([]byte, len(raw))
			copy(out, raw)
			return out, nil
		case TypeMessage:
			schema := field.NestedSchema
			if schema == nil {
				return &DynamicMessage{UnknownFields: append([]byte{}, raw...)}, nil
			}
			return Decode(schema, raw)
		default:
			return raw, nil
		}
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownWireType, wt)
	}
}
