package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes a DynamicMessage to its canonical binary wire
// form, following serialize_to_bytes field by field: a field whose
// current value equals its zero value is omitted unless it is the
// active member of a oneof group or is a submessage that was itself
// received on the wire (SerializedOnWire), and any bytes this message
// received for unrecognized field numbers are appended verbatim at the
// end so decode(encode(m)) round-trips byte for byte modulo field
// reordering.
func Encode(m *DynamicMessage) ([]byte, error) {
	var out []byte
	for _, field := range m.Schema.Fields {
		value, has := m.Values[field.Name]
		if !has || value == nil {
			continue
		}
		selectedInGroup := field.Group != "" && m.GroupCurrent[field.Group] == field.Name

		if field.Repeated {
			enc, err := encodeRepeated(field, value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			out = append(out, enc...)
			continue
		}
		if field.ProtoType == TypeMap {
			enc, err := encodeMap(field, value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			out = append(out, enc...)
			continue
		}

		serializeEmpty := selectedInGroup
		if dm, ok := value.(*DynamicMessage); ok && dm.SerializedOnWire {
			serializeEmpty = true
		}
		if isZeroScalar(field.ProtoType, value) && !serializeEmpty {
			continue
		}
		enc, err := serializeSingle(field.Number, field.ProtoType, value, serializeEmpty || field.HasWraps)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		out = append(out, enc...)
	}
	out = append(out, m.UnknownFields...)
	return out, nil
}

func isZeroScalar(t ProtoType, value any) bool {
	switch t {
	case TypeBool:
		return value == false
	case TypeString:
		return value == ""
	case TypeBytes:
		b, _ := value.([]byte)
		return len(b) == 0
	case TypeFloat, TypeDouble:
		f, _ := value.(float64)
		return f == 0
	case TypeMessage:
		dm, ok := value.(*DynamicMessage)
		return !ok || dm == nil
	default:
		return toInt64(value) == 0
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case uint32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case int64:
		return uint64(n)
	case int32:
		return uint64(n)
	case int:
		return uint64(n)
	default:
		return 0
	}
}

// preprocessSingle turns a Go value into the raw payload bytes for its
// wire type, before the field key and (for length-delimited types)
// the length prefix are attached.
func preprocessSingle(t ProtoType, value any) ([]byte, error) {
	switch t {
	case TypeBool:
		v, _ := value.(bool)
		u := uint64(0)
		if v {
			u = 1
		}
		return encodeVarintUnsigned(nil, u), nil
	case TypeEnum, TypeUint32, TypeUint64:
		return encodeVarintUnsigned(nil, toUint64(value)), nil
	case TypeInt32, TypeInt64:
		return encodeVarint(nil, toInt64(value)), nil
	case TypeSint32:
		return encodeVarintUnsigned(nil, uint64(zigzagEncode32(int32(toInt64(value))))), nil
	case TypeSint64:
		return encodeVarintUnsigned(nil, zigzagEncode64(toInt64(value))), nil
	case TypeFixed32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(toUint64(value)))
		return buf, nil
	case TypeFixed64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, toUint64(value))
		return buf, nil
	case TypeSfixed32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(toInt64(value)))
		return buf, nil
	case TypeSfixed64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(toInt64(value)))
		return buf, nil
	case TypeFloat:
		f, _ := value.(float64)
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		return buf, nil
	case TypeDouble:
		f, _ := value.(float64)
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil
	case TypeString:
		s, _ := value.(string)
		return []byte(s), nil
	case TypeBytes:
		b, _ := value.([]byte)
		return b, nil
	case TypeMessage:
		dm, ok := value.(*DynamicMessage)
		if !ok || dm == nil {
			return nil, nil
		}
		return Encode(dm)
	default:
		return nil, fmt.Errorf("%w: proto type %d", ErrUnknownWireType, t)
	}
}

// serializeSingle encodes one non-repeated field: tag, then (for
// length-delimited types) a varint length, then the payload. An empty
// length-delimited payload is omitted unless serializeEmpty is set,
// matching _serialize_single's `if len(value) or serialize_empty or wraps`.
func serializeSingle(number int32, t ProtoType, value any, serializeEmpty bool) ([]byte, error) {
	payload, err := preprocessSingle(t, value)
	if err != nil {
		return nil, err
	}
	var out []byte
	switch wireTypeOf(t) {
	case WireVarint:
		out = encodeVarint(out, int64(number)<<3)
		out = append(out, payload...)
	case WireFixed32:
		out = encodeVarint(out, (int64(number)<<3)|5)
		out = append(out, payload...)
	case WireFixed64:
		out = encodeVarint(out, (int64(number)<<3)|1)
		out = append(out, payload...)
	case WireLenDelim:
		if len(payload) == 0 && !serializeEmpty {
			return nil, nil
		}
		out = encodeVarint(out, (int64(number)<<3)|2)
		out = encodeVarintUnsigned(out, uint64(len(payload)))
		out = append(out, payload...)
	}
	return out, nil
}

// encodeRepeated handles a repeated field's value, which is stored as
// a []any. Packable scalar types are packed into one length-delimited
// entry; strings, bytes and messages emit one wire entry per element.
func encodeRepeated(field *FieldMetadata, value any) ([]byte, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("repeated field value is %T, not []any", value)
	}
	if len(items) == 0 {
		return nil, nil
	}
	if isPacked(field.ProtoType) {
		var buf []byte
		for _, item := range items {
			enc, err := preprocessSingle(field.ProtoType, item)
			if err != nil {
				return nil, err
			}
			buf = append(buf, enc...)
		}
		return serializeSingle(field.Number, TypeBytes, buf, false)
	}
	var out []byte
	for _, item := range items {
		enc, err := serializeSingle(field.Number, field.ProtoType, item, true)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// encodeMap serializes a map field. Each key/value pair becomes its
// own synthetic two-field message (key=1, value=2) length-delimited
// under the map field's own number, exactly as protoc desugars
// `map<K, V>` into a repeated MapEntry message.
func encodeMap(field *FieldMetadata, value any) ([]byte, error) {
	entries, ok := value.(map[any]any)
	if !ok {
		return nil, fmt.Errorf("map field value is %T, not map[any]any", value)
	}
	var out []byte
	for k, v := range entries {
		keyBytes, err := serializeSingle(1, field.MapKeyType, k, false)
		if err != nil {
			return nil, err
		}
		var valBytes []byte
		if field.MapValueType == TypeMessage {
			dm, _ := v.(*DynamicMessage)
			valBytes, err = serializeSingle(2, TypeMessage, dm, true)
		} else {
			valBytes, err = serializeSingle(2, field.MapValueType, v, false)
		}
		if err != nil {
			return nil, err
		}
		entry := append(append([]byte{}, keyBytes...), valBytes...)
		// The entry is already the serialized MapEntry submessage
		// body; encode it as TypeBytes (same LEN_DELIM wire type) so
		// this doesn't loop back through Encode on a schema-less
		// DynamicMessage.
		enc, err := serializeSingle(field.Number, TypeBytes, entry, true)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}
