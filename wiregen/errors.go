package wiregen

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// ConfigError reports an invalid Generator configuration. It is returned
// before any descriptors are examined.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid generator configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UnresolvedReferenceError reports a field whose type can be neither found
// in the external type table nor reached relatively from the field's
// package. Mapping the type with an external type entry fixes it.
type UnresolvedReferenceError struct {
	// Field is the referring field.
	Field protoreflect.FullName
	// Type is the referenced message or enum.
	Type protoreflect.FullName
	Err  error
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("field %s: cannot refer to %s: %v", e.Field, e.Type, e.Err)
}

func (e *UnresolvedReferenceError) Unwrap() error {
	return e.Err
}

// UnsupportedError reports a schema element that cannot be generated, such
// as a group field.
type UnsupportedError struct {
	Element protoreflect.FullName
	Reason  string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Element, e.Reason)
}

// FormatError is returned by Emit for a formatter failure when
// StrictFormatting is set.
type FormatError struct {
	File string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("failed to format %s: %v", e.File, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
