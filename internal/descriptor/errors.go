package descriptor

import "errors"

// Sentinel errors returned (always wrapped with additional context via
// fmt.Errorf's %w verb) while building a Set from a CodeGeneratorRequest.
var (
	// ErrMalformedDescriptor indicates the request itself is
	// internally inconsistent: duplicate file names, a generated file
	// missing from the descriptor set, and similar protoc-level
	// invariant violations.
	ErrMalformedDescriptor = errors.New("malformed descriptor request")

	// ErrMissingTypeReference describes a field, extension or method
	// that refers to a message or enum type not present anywhere in
	// the request's descriptor set. Build never returns this as a
	// fatal error: initField/initMethod log it as a diagnostic and
	// leave the reference unresolved, the same as a dangling extension
	// (see Set.spliceExtension), since a plugin invocation may only
	// see a subset of the types a request's descriptors refer to. It
	// remains exported for callers that want to recognize this
	// diagnostic kind from log output or their own checks.
	ErrMissingTypeReference = errors.New("missing type reference")
)
