// Package grpccodec lets grpc-go carry generated record types. Importing the
// package registers a codec named "wire" with grpc's encoding registry, and
// Stub invokes methods by their full names (the FullMethodName constants
// that wiregen emits for services) using that codec.
package grpccodec

import (
	"google.golang.org/grpc/encoding"

	"github.com/jhump/protoschema/record"
)

// Name is the name the codec is registered under. It is also the content
// subtype sent on the wire ("application/grpc+wire").
const Name = "wire"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec is a grpc encoding.Codec backed by package record.
type Codec struct{}

var _ encoding.Codec = Codec{}

// Marshal returns the wire encoding of v.
func (Codec) Marshal(v any) ([]byte, error) {
	return record.Marshal(v)
}

// Unmarshal decodes data into v, which must be a pointer to a record.
func (Codec) Unmarshal(data []byte, v any) error {
	return record.Unmarshal(data, v)
}

// Name returns Name.
func (Codec) Name() string {
	return Name
}
