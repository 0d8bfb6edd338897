package wire

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"github.com/iancoleman/strcase"
)

// EnumNamer resolves an enum field's numeric value to its symbolic
// name for ToDict, and back for FromDict. Callers that don't care
// about enums (no enum fields in the schema being projected) may pass
// nil.
type EnumNamer interface {
	Name(fieldQualifiedEnum string, value int64) (string, bool)
	Value(fieldQualifiedEnum string, name string) (int64, bool)
}

func applyCasing(casing Casing, name string) string {
	switch casing {
	case CasingCamel:
		return strcase.ToLowerCamel(name)
	case CasingPascal:
		return strcase.ToCamel(name)
	default:
		return name
	}
}

// ToDict projects a DynamicMessage into a JSON-ready map, following
// the protobuf JSON mapping betterproto's serialize_to_dict
// implements: int64-family scalars become decimal strings, bytes
// become base64, enums become their member name, non-finite floats
// become the strings "Infinity"/"-Infinity"/"NaN", and a field whose
// value equals its zero value is omitted unless includeDefaults is
// set or it is the active member of a oneof.
func ToDict(m *DynamicMessage, casing Casing, includeDefaults bool, enums EnumNamer) (map[string]any, error) {
	out := make(map[string]any)
	for _, field := range m.Schema.Fields {
		value, has := m.Values[field.Name]
		casedName := applyCasing(casing, field.Name)
		selected := field.Group != "" && m.GroupCurrent[field.Group] == field.Name

		if !has || value == nil {
			if includeDefaults {
				out[casedName] = nil
			}
			continue
		}

		if field.ProtoType == TypeMap {
			entries, _ := value.(map[any]any)
			if len(entries) == 0 && !includeDefaults {
				continue
			}
			projected := make(map[string]any, len(entries))
			for k, v := range entries {
				key := fmt.Sprint(k)
				if dm, ok := v.(*DynamicMessage); ok {
					sub, err := ToDict(dm, casing, includeDefaults, enums)
					if err != nil {
						return nil, err
					}
					projected[key] = sub
				} else {
					projected[key] = v
				}
			}
			out[casedName] = projected
			continue
		}

		if field.Repeated {
			items, _ := value.([]any)
			if len(items) == 0 && !includeDefaults {
				continue
			}
			projected, err := projectRepeated(field, items, casing, includeDefaults, enums)
			if err != nil {
				return nil, err
			}
			out[casedName] = projected
			continue
		}

		if field.ProtoType == TypeMessage {
			dm, ok := value.(*DynamicMessage)
			if !ok || dm == nil {
				continue
			}
			sub, err := ToDict(dm, casing, includeDefaults, enums)
			if err != nil {
				return nil, err
			}
			out[casedName] = sub
			continue
		}

		if isZeroScalar(field.ProtoType, value) && !includeDefaults && !selected {
			continue
		}
		projected, err := projectScalar(field, value, enums)
		if err != nil {
			return nil, err
		}
		out[casedName] = projected
	}
	return out, nil
}

func projectRepeated(field *FieldMetadata, items []any, casing Casing, includeDefaults bool, enums EnumNamer) (any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if field.ProtoType == TypeMessage {
			dm, _ := item.(*DynamicMessage)
			sub, err := ToDict(dm, casing, includeDefaults, enums)
			if err != nil {
				return nil, err
			}
			out = append(out, sub)
			continue
		}
		projected, err := projectScalar(field, item, enums)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

func projectScalar(field *FieldMetadata, value any, enums EnumNamer) (any, error) {
	switch {
	case isInt64Family(field.ProtoType):
		return strconv.FormatInt(toInt64(value), 10), nil
	case field.ProtoType == TypeUint32 || field.ProtoType == TypeInt32:
		return toInt64(value), nil
	case field.ProtoType == TypeBytes:
		b, _ := value.([]byte)
		return base64.StdEncoding.EncodeToString(b), nil
	case field.ProtoType == TypeEnum:
		n := toInt64(value)
		if enums != nil {
			if name, ok := enums.Name(field.Name, n); ok {
				return name, nil
			}
		}
		return n, nil
	case field.ProtoType == TypeFloat || field.ProtoType == TypeDouble:
		f, _ := value.(float64)
		return dumpFloat(f), nil
	default:
		return value, nil
	}
}

func dumpFloat(f float64) any {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	default:
		return f
	}
}

func parseFloat(v any) (float64, error) {
	if s, ok := v.(string); ok {
		switch s {
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		case "NaN":
			return math.NaN(), nil
		default:
			return strconv.ParseFloat(s, 64)
		}
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("cannot parse float from %T", v)
	}
	return f, nil
}

// FromDict is the inverse of ToDict: it populates a new DynamicMessage
// from a JSON-shaped map, reversing every casing/string/base64/enum
// projection ToDict applied. Unknown keys are ignored rather than
// rejected, matching deserialize_from_dict's forward-compatible
// behavior.
func FromDict(schema *Schema, dict map[string]any, enums EnumNamer) (*DynamicMessage, error) {
	m := NewDynamicMessage(schema)
	m.SerializedOnWire = true
	for key, raw := range dict {
		fieldName := strcase.ToSnake(key)
		field, ok := schema.FieldByName(fieldName)
		if !ok || raw == nil {
			continue
		}

		if field.ProtoType == TypeMap {
			srcMap, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			entries := make(map[any]any, len(srcMap))
			for k, v := range srcMap {
				if field.MapValueType == TypeMessage {
					sub, ok := v.(map[string]any)
					if !ok {
						continue
					}
					dm, err := FromDict(field.MapValueSchema, sub, enums)
					if err != nil {
						return nil, err
					}
					entries[k] = dm
				} else {
					val, err := unprojectScalar(&FieldMetadata{ProtoType: field.MapValueType}, v, enums)
					if err != nil {
						return nil, err
					}
					entries[k] = val
				}
			}
			m.Values[field.Name] = entries
			continue
		}

		if field.Repeated {
			items, ok := raw.([]any)
			if !ok {
				continue
			}
			values := make([]any, 0, len(items))
			for _, item := range items {
				if field.ProtoType == TypeMessage {
					sub, ok := item.(map[string]any)
					if !ok {
						continue
					}
					dm, err := FromDict(field.NestedSchema, sub, enums)
					if err != nil {
						return nil, err
					}
					values = append(values, dm)
					continue
				}
				val, err := unprojectScalar(field, item, enums)
				if err != nil {
					return nil, err
				}
				values = append(values, val)
			}
			m.Values[field.Name] = values
			continue
		}

		if field.ProtoType == TypeMessage {
			sub, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			dm, err := FromDict(field.NestedSchema, sub, enums)
			if err != nil {
				return nil, err
			}
			m.Set(field.Name, dm)
			continue
		}

		val, err := unprojectScalar(field, raw, enums)
		if err != nil {
			return nil, err
		}
		m.Set(field.Name, val)
	}
	return m, nil
}

func unprojectScalar(field *FieldMetadata, raw any, enums EnumNamer) (any, error) {
	switch {
	case isInt64Family(field.ProtoType):
		s, ok := raw.(string)
		if !ok {
			return toInt64(raw), nil
		}
		return strconv.ParseInt(s, 10, 64)
	case field.ProtoType == TypeBytes:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string, got %T", raw)
		}
		return base64.StdEncoding.DecodeString(s)
	case field.ProtoType == TypeEnum:
		if s, ok := raw.(string); ok && enums != nil {
			if n, ok := enums.Value(field.Name, s); ok {
				return n, nil
			}
		}
		return toInt64(raw), nil
	case field.ProtoType == TypeFloat || field.ProtoType == TypeDouble:
		return parseFloat(raw)
	default:
		return raw, nil
	}
}
