package record

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jhump/protoschema/codec"
)

// MissingFieldError is returned when a required field has no value: when
// decoding input that never mentions it, or when encoding a nil required
// message.
type MissingFieldError struct {
	Number codec.FieldNumber
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record: missing required field %d", e.Number)
}

// MissingOneofError is returned when none of the alternatives of a oneof
// group is set.
type MissingOneofError struct {
	Numbers []codec.FieldNumber
}

func (e *MissingOneofError) Error() string {
	nums := make([]string, len(e.Numbers))
	for i, n := range e.Numbers {
		nums[i] = fmt.Sprint(n)
	}
	return fmt.Sprintf("record: none of oneof fields [%s] is set", strings.Join(nums, ", "))
}

// UnexpectedFieldNumberError is returned when decoding input that contains
// a field number the record does not declare. Unknown fields are never
// skipped.
type UnexpectedFieldNumberError struct {
	Number codec.FieldNumber
}

func (e *UnexpectedFieldNumberError) Error() string {
	return fmt.Sprintf("record: unexpected field number %d", e.Number)
}

// SchemaError reports a Go type that cannot be used as a record: a bad
// `wire` tag, a Go type that does not fit the declared kind, or a field
// number collision.
type SchemaError struct {
	Type   reflect.Type
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record: type %v: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("record: type %v, field %s: %s", e.Type, e.Field, e.Reason)
}
