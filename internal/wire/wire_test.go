package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func widgetSchema() *Schema {
	return NewSchema("Widget",
		&FieldMetadata{Name: "id", Number: 1, ProtoType: TypeInt64},
		&FieldMetadata{Name: "name", Number: 2, ProtoType: TypeString},
		&FieldMetadata{Name: "tags", Number: 3, ProtoType: TypeString, Repeated: true},
		&FieldMetadata{Name: "scores", Number: 4, ProtoType: TypeInt32, Repeated: true},
	)
}

func TestVarintRoundTripFullRange(t *testing.T) {
	values := []int64{0, 1, -1, 127, 128, -128, math.MaxInt64, math.MinInt64, 300, -300}
	for _, v := range values {
		buf := encodeVarint(nil, v)
		got, n, err := decodeVarint(buf, 0)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, uint64(v), got)
	}
}

func TestZigzagRoundTrip32(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 2, -2, math.MaxInt32, math.MinInt32} {
		require.Equal(t, v, zigzagDecode32(zigzagEncode32(v)))
	}
}

func TestZigzagRoundTrip64(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 2, -2, math.MaxInt64, math.MinInt64} {
		require.Equal(t, v, zigzagDecode64(zigzagEncode64(v)))
	}
}

func TestDecodeVarintRejectsOverrun(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := decodeVarint(buf, 0)
	require.ErrorIs(t, err, ErrVarintOverrun)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	schema := widgetSchema()
	m := NewDynamicMessage(schema)
	m.Set("id", int64(42))
	m.Set("name", "gadget")
	m.Set("tags", []any{"a", "b"})
	m.Set("scores", []any{int64(1), int64(2), int64(3)})

	encoded, err := Encode(m)
	require.NoError(t, err)

	decoded, err := Decode(schema, encoded)
	require.NoError(t, err)
	require.Equal(t, int64(42), decoded.Values["id"])
	require.Equal(t, "gadget", decoded.Values["name"])
	require.Equal(t, []any{"a", "b"}, decoded.Values["tags"])

	reencoded, err := Encode(decoded)
	require.NoError(t, err)
	require.Equal(t, encoded, reencoded, "canonical re-encode must be byte-identical")
}

func TestDefaultValuesAreOmitted(t *testing.T) {
	schema := widgetSchema()
	m := NewDynamicMessage(schema)
	m.Set("id", int64(0))
	m.Set("name", "")

	encoded, err := Encode(m)
	require.NoError(t, err)
	require.Empty(t, encoded, "zero-valued fields must not appear on the wire")
}

func TestPackedRepeatedScalarsAreSingleEntry(t *testing.T) {
	schema := widgetSchema()
	m := NewDynamicMessage(schema)
	m.Set("scores", []any{int64(1), int64(2), int64(3)})

	encoded, err := Encode(m)
	require.NoError(t, err)

	fields, err := parseFields(encoded)
	require.NoError(t, err)
	require.Len(t, fields, 1, "packed repeated scalars must occupy exactly one wire entry")
	require.Equal(t, WireLenDelim, fields[0].wireType)
}

func TestOneofLastWriteWins(t *testing.T) {
	schema := NewSchema("Choice",
		&FieldMetadata{Name: "a", Number: 1, ProtoType: TypeInt64, Group: "choice"},
		&FieldMetadata{Name: "b", Number: 2, ProtoType: TypeString, Group: "choice"},
	)
	m := NewDynamicMessage(schema)
	m.Set("a", int64(5))
	m.Set("b", "hello")

	_, hasA := m.Values["a"]
	require.False(t, hasA, "setting b must clear sibling oneof member a")
	name, val := m.WhichOneOf("choice")
	require.Equal(t, "b", name)
	require.Equal(t, "hello", val)
}

func TestOneofZeroValueStillSerializes(t *testing.T) {
	schema := NewSchema("Choice",
		&FieldMetadata{Name: "a", Number: 1, ProtoType: TypeInt64, Group: "choice"},
	)
	m := NewDynamicMessage(schema)
	m.Set("a", int64(0))

	encoded, err := Encode(m)
	require.NoError(t, err)
	require.NotEmpty(t, encoded, "the active oneof member must serialize even at its zero value")

	decoded, err := Decode(schema, encoded)
	require.NoError(t, err)
	name, _ := decoded.WhichOneOf("choice")
	require.Equal(t, "a", name)
}

func TestMapEntryEncoding(t *testing.T) {
	schema := NewSchema("Config",
		&FieldMetadata{Name: "tags", Number: 1, ProtoType: TypeMap, MapKeyType: TypeString, MapValueType: TypeString},
	)
	m := NewDynamicMessage(schema)
	m.Set("tags", map[any]any{"env": "prod", "tier": "gold"})

	encoded, err := Encode(m)
	require.NoError(t, err)
	decoded, err := Decode(schema, encoded)
	require.NoError(t, err)

	got, _ := decoded.Values["tags"].(map[any]any)
	require.Equal(t, "prod", got["env"])
	require.Equal(t, "gold", got["tier"])
}

func TestUnknownFieldsRoundTripVerbatim(t *testing.T) {
	schema := widgetSchema()
	m := NewDynamicMessage(schema)
	m.Set("id", int64(1))
	encoded, err := Encode(m)
	require.NoError(t, err)

	tail, err := serializeSingle(99, TypeString, "mystery", false)
	require.NoError(t, err)
	encoded = append(encoded, tail...)

	decoded, err := Decode(schema, encoded)
	require.NoError(t, err)
	require.Equal(t, tail, decoded.UnknownFields)

	reencoded, err := Encode(decoded)
	require.NoError(t, err)
	require.Equal(t, encoded, reencoded)
}

func TestNestedMessageEncoding(t *testing.T) {
	innerSchema := NewSchema("Inner", &FieldMetadata{Name: "value", Number: 1, ProtoType: TypeInt64})
	outerSchema := NewSchema("Outer", &FieldMetadata{Name: "inner", Number: 1, ProtoType: TypeMessage, NestedSchema: innerSchema})

	inner := NewDynamicMessage(innerSchema)
	inner.Set("value", int64(7))
	outer := NewDynamicMessage(outerSchema)
	outer.Set("inner", inner)

	encoded, err := Encode(outer)
	require.NoError(t, err)
	decoded, err := Decode(outerSchema, encoded)
	require.NoError(t, err)

	innerDecoded, ok := decoded.Values["inner"].(*DynamicMessage)
	require.True(t, ok)
	require.Equal(t, int64(7), innerDecoded.Values["value"])
}

func TestFloatSignedAndFixedTypes(t *testing.T) {
	schema := NewSchema("Numbers",
		&FieldMetadata{Name: "f", Number: 1, ProtoType: TypeFloat},
		&FieldMetadata{Name: "d", Number: 2, ProtoType: TypeDouble},
		&FieldMetadata{Name: "sf", Number: 3, ProtoType: TypeSfixed32},
		&FieldMetadata{Name: "sd", Number: 4, ProtoType: TypeSfixed64},
	)
	m := NewDynamicMessage(schema)
	m.Set("f", 1.5)
	m.Set("d", -2.25)
	m.Set("sf", int64(-1))
	m.Set("sd", int64(-2))

	encoded, err := Encode(m)
	require.NoError(t, err)
	decoded, err := Decode(schema, encoded)
	require.NoError(t, err)
	require.InDelta(t, 1.5, decoded.Values["f"], 1e-6)
	require.InDelta(t, -2.25, decoded.Values["d"], 1e-12)
	require.Equal(t, int64(-1), decoded.Values["sf"])
	require.Equal(t, int64(-2), decoded.Values["sd"])
}
