// Package wire is a Go-native reference implementation of the binary
// wire codec, JSON/dict projection, and service-cardinality model that
// the embedded Python runtime (internal/pyruntime) implements for
// generated message classes.
//
// It exists for two reasons: it is directly testable in Go (the
// generator itself never executes Python), and it is the algorithm
// internal/pyruntime's checked-in Python source is kept consistent
// with. DynamicMessage plays the role betterproto's own
// ProtoClassMetadata-driven Message base class plays, but operating
// over field-number-keyed maps instead of generated dataclass
// attributes, so it can be driven directly from a descriptor.Set
// without code generation.
package wire

// ProtoType identifies a field's wire-level proto type, independent of
// its Go or Python representation.
type ProtoType int

const (
	TypeInvalid ProtoType = iota
	TypeBool
	TypeEnum
	TypeInt32
	TypeInt64
	TypeUint32
	TypeUint64
	TypeSint32
	TypeSint64
	TypeFixed32
	TypeFixed64
	TypeSfixed32
	TypeSfixed64
	TypeFloat
	TypeDouble
	TypeString
	TypeBytes
	TypeMessage
	TypeMap
)

// WireType is one of the four wire-format type tags a varint field
// key encodes in its low three bits.
type WireType int

const (
	WireVarint  WireType = 0
	WireFixed64 WireType = 1
	WireLenDelim WireType = 2
	WireFixed32 WireType = 5
)

// wireTypeOf returns the wire type a given proto field type is
// serialized with. TypeMessage, TypeString, TypeBytes and TypeMap are
// all length-delimited.
func wireTypeOf(t ProtoType) WireType {
	switch t {
	case TypeInt32, TypeInt64, TypeUint32, TypeUint64, TypeSint32, TypeSint64, TypeBool, TypeEnum:
		return WireVarint
	case TypeFixed64, TypeSfixed64, TypeDouble:
		return WireFixed64
	case TypeFixed32, TypeSfixed32, TypeFloat:
		return WireFixed32
	case TypeString, TypeBytes, TypeMessage, TypeMap:
		return WireLenDelim
	default:
		return WireVarint
	}
}

// isPacked reports whether a repeated field of this type is packed
// into a single length-delimited entry rather than one wire entry per
// element (strings, bytes and messages are never packed).
func isPacked(t ProtoType) bool {
	switch t {
	case TypeString, TypeBytes, TypeMessage, TypeMap:
		return false
	default:
		return true
	}
}

// isInt64Family reports whether a scalar type is projected to a JSON
// string rather than a JSON number, per the protobuf JSON mapping.
func isInt64Family(t ProtoType) bool {
	switch t {
	case TypeInt64, TypeUint64, TypeSint64, TypeFixed64, TypeSfixed64:
		return true
	default:
		return false
	}
}

// Cardinality classifies an RPC method by which side streams.
type Cardinality int

const (
	UnaryUnary Cardinality = iota
	UnaryStream
	StreamUnary
	StreamStream
)

// CardinalityOf derives a Cardinality from the two streaming flags on a
// MethodDescriptorProto.
func CardinalityOf(clientStreaming, serverStreaming bool) Cardinality {
	switch {
	case clientStreaming && serverStreaming:
		return StreamStream
	case clientStreaming:
		return StreamUnary
	case serverStreaming:
		return UnaryStream
	default:
		return UnaryUnary
	}
}

func (c Cardinality) String() string {
	switch c {
	case UnaryUnary:
		return "UNARY_UNARY"
	case UnaryStream:
		return "UNARY_STREAM"
	case StreamUnary:
		return "STREAM_UNARY"
	case StreamStream:
		return "STREAM_STREAM"
	default:
		return "UNKNOWN"
	}
}

// Status is the gRPC status code space, carried through to the
// embedded runtime's Status enum unchanged.
type Status int

const (
	StatusOK Status = iota
	StatusCancelled
	StatusUnknown
	StatusInvalidArgument
	StatusDeadlineExceeded
	StatusNotFound
	StatusAlreadyExists
	StatusPermissionDenied
	StatusResourceExhausted
	StatusFailedPrecondition
	StatusAborted
	StatusOutOfRange
	StatusUnimplemented
	StatusInternal
	StatusUnavailable
	StatusDataLoss
	StatusUnauthenticated
)

// Casing selects the field-name casing transform used by the JSON/dict
// projection.
type Casing int

const (
	CasingCamel Casing = iota
	CasingSnake
	CasingPascal
)
