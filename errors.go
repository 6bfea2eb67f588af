package geoarrow

import "errors"

// Sentinel errors for the failure modes of parsers, builders and validators.
// Errors returned by this package wrap one of these sentinels together with a
// message carrying the byte offset (for parsers) or the violated constraint
// (for validators), so callers can test with errors.Is.
var (
	// ErrInvalid indicates malformed WKT, WKB or extension metadata.
	ErrInvalid = errors.New("invalid input")

	// ErrUnsupportedType indicates valid input specifying a type this
	// package does not implement (e.g., large-offset storage).
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrOutOfRange indicates a size that would overflow a 32-bit offset.
	ErrOutOfRange = errors.New("out of range")

	// ErrTooFewBytes indicates that the end of input was reached
	// mid-geometry.
	ErrTooFewBytes = errors.New("unexpected end of input")

	// ErrTooManyBytes indicates trailing bytes after a complete WKB or WKT
	// geometry. From the WKB reader this is a soft error: the parse output
	// is still populated.
	ErrTooManyBytes = errors.New("trailing bytes after geometry")

	// ErrRecursion indicates that the nesting depth cap was exceeded.
	ErrRecursion = errors.New("maximum recursion depth exceeded")
)
