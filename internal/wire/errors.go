package wire

import "errors"

var (
	// ErrVarintOverrun is returned when a varint would require more
	// than 10 bytes (64 bits of payload) to decode, or runs past the
	// end of the buffer.
	ErrVarintOverrun = errors.New("wire: varint decoding overran buffer")

	// ErrUnknownWireType is returned when a field key's wire-type tag
	// is not one of the four defined wire types.
	ErrUnknownWireType = errors.New("wire: unknown wire type")

	// ErrTruncated is returned when a length-delimited or fixed-width
	// field's declared length runs past the end of the buffer.
	ErrTruncated = errors.New("wire: truncated field value")

	// ErrUnknownField names the "key with no matching schema entry"
	// failure kind. Nothing in this package returns it: FromDict
	// skips keys that match no field.
	ErrUnknownField = errors.New("wire: unknown field")
)
