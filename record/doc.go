// Package record maps Go structs onto the protobuf wire format.
//
// A record is a Go struct whose fields carry a `wire` struct tag giving the
// field number, cardinality, and kind (see ParseTag for the syntax):
//
//	type Order struct {
//		ID     int64             `wire:"1,req,int64"`
//		Note   *string           `wire:"2,opt,string"`
//		Lines  []*Line           `wire:"3,rep,message"`
//		Totals map[string]int64  `wire:"4,rep,map[string]int64"`
//		Status isOrder_Status    `wire:"5|6,oneof"`
//	}
//
// Fields are encoded in declaration order. Repeated scalars are packed
// unless tagged "unpacked"; strings, bytes, and messages are never packed.
// Maps are encoded as one entry message per key, in ascending key order.
// A oneof field holds an interface registered with RegisterOneof, and
// only the field of the variant it holds is encoded.
//
// Decoding is strict. Every field number in the input must be declared by
// the record; there is no unknown-field set. Required fields and oneof
// groups that never appear are reported with MissingFieldError and
// MissingOneofError. For singular fields the last occurrence wins, and
// repeated scalars accept both packed and unpacked input.
//
// A registered oneof interface can also stand in for a whole message whose
// only content is the union. Such a value encodes to the same bytes as the
// equivalent struct with a single oneof field.
package record
