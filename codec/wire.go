package codec

import (
	"fmt"
	"math/bits"
)

// maxVarintLen is the longest legal varint encoding of a 64-bit value.
const maxVarintLen = 10

// WireType identifies how the bytes that follow a tag are framed.
type WireType int8

const (
	VarInt          WireType = 0
	Fixed64         WireType = 1
	LengthDelimited WireType = 2
	StartGroup      WireType = 3
	EndGroup        WireType = 4
	Fixed32         WireType = 5
)

func (wt WireType) String() string {
	switch wt {
	case VarInt:
		return "varint"
	case Fixed64:
		return "fixed64"
	case LengthDelimited:
		return "length-delimited"
	case StartGroup:
		return "start-group"
	case EndGroup:
		return "end-group"
	case Fixed32:
		return "fixed32"
	default:
		return fmt.Sprintf("WireType(%d)", int8(wt))
	}
}

// FieldNumber is the number that identifies a field within a record.
type FieldNumber int32

const (
	MinFieldNumber FieldNumber = 1
	MaxFieldNumber FieldNumber = 1<<29 - 1

	// Numbers in [FirstReservedNumber, LastReservedNumber] are reserved
	// for the protobuf implementation and may not be declared.
	FirstReservedNumber FieldNumber = 19000
	LastReservedNumber  FieldNumber = 19999
)

// Valid reports whether n may be declared by a record.
func (n FieldNumber) Valid() bool {
	return n >= MinFieldNumber && n <= MaxFieldNumber &&
		(n < FirstReservedNumber || n > LastReservedNumber)
}

// Tag is a field number and wire type packed as number<<3 | wiretype.
type Tag uint32

// MakeTag packs a field number and wire type into a tag.
func MakeTag(n FieldNumber, wt WireType) Tag {
	return Tag(uint32(n)<<3 | uint32(wt&7))
}

// Number returns the field number of the tag.
func (t Tag) Number() FieldNumber {
	return FieldNumber(t >> 3)
}

// WireType returns the wire type of the tag.
func (t Tag) WireType() WireType {
	return WireType(t & 7)
}

// Value is a single decoded wire value: the payload that follows one tag.
// Scalar holds varint and fixed-width payloads; Bytes holds
// length-delimited and group payloads.
type Value struct {
	Type   WireType
	Scalar uint64
	Bytes  []byte
}

// SizeVarint returns the number of bytes EncodeVarint writes for x.
func SizeVarint(x uint64) int {
	// 9/64 approximates 1/7 closely enough for every bit length 0..64.
	return int(9*uint32(bits.Len64(x))+64) / 64
}

// SizeTag returns the number of bytes EncodeTag writes for a field number.
// The wire type never changes the size.
func SizeTag(n FieldNumber) int {
	return SizeVarint(uint64(MakeTag(n, 0)))
}

// SizeBytes returns the size of a length-delimited span carrying n bytes.
func SizeBytes(n int) int {
	return SizeVarint(uint64(n)) + n
}
