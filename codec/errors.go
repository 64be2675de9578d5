package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrVarIntLimit is returned when no terminating byte appears within
	// the ten bytes a 64-bit varint may occupy.
	ErrVarIntLimit = errors.New("codec: varint exceeds 10 bytes")
	// ErrInvalidUTF8 is returned when a string field holds invalid UTF-8.
	ErrInvalidUTF8 = errors.New("codec: invalid UTF-8 in string")
	// ErrInvalidFieldNumber is returned for a tag whose field number is
	// zero or larger than MaxFieldNumber.
	ErrInvalidFieldNumber = errors.New("codec: invalid field number")
	// ErrUnexpectedEndGroup is returned for an end-group tag that has no
	// matching start-group tag.
	ErrUnexpectedEndGroup = errors.New("codec: unexpected end-group tag")
)

// UnexpectedWireTypeError indicates that a field was framed with a wire
// type other than the one its schema dictates.
type UnexpectedWireTypeError struct {
	Expected, Actual WireType
}

func (e *UnexpectedWireTypeError) Error() string {
	return fmt.Sprintf("codec: unexpected wire type: expected %v, got %v", e.Expected, e.Actual)
}

// ConversionError wraps an error raised while converting the payload of a
// nested type. Type names the nested type.
type ConversionError struct {
	Type string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("codec: converting %s: %v", e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
