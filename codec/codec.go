// Package codec contains a reader/writer type that encodes and decodes the
// primitives of the protobuf binary wire format: varints, zig-zag mapped
// signed integers, little-endian fixed-width scalars, length-delimited byte
// spans, and field tags.
//
// A Buffer is used both for reading and for writing. Writes always append
// to the end of the underlying slice; reads consume from a separate index.
// The package knows nothing about messages. The record package builds the
// field-level contract on top of it.
package codec

import (
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Buffer is a reader and a writer that wraps a slice of bytes and also
// provides API for decoding and encoding the protobuf binary format.
//
// The zero value is an empty buffer, ready to use.
type Buffer struct {
	buf   []byte
	index int
}

// NewBuffer creates a new buffer with the given slice of bytes as the
// buffer's initial contents. Writes append to buf, so a caller that
// pre-sizes the capacity of buf avoids any reallocation while encoding.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{buf: buf}
}

// Reset resets this buffer back to empty. Any subsequent writes/encodes
// to the buffer will allocate a new backing slice of bytes.
func (cb *Buffer) Reset() {
	cb.buf = nil
	cb.index = 0
}

// Bytes returns the slice of bytes remaining in the buffer. Note that
// this does not perform a copy: if the contents of the returned slice
// are modified, the modifications will be visible to subsequent reads
// via the buffer.
func (cb *Buffer) Bytes() []byte {
	return cb.buf[cb.index:]
}

// EOF returns true if there are no more bytes remaining to read.
func (cb *Buffer) EOF() bool {
	return cb.index >= len(cb.buf)
}

// Len returns the remaining number of bytes in the buffer.
func (cb *Buffer) Len() int {
	return len(cb.buf) - cb.index
}

// Skip advances the read index by count bytes. If the input has fewer
// than count bytes remaining, io.ErrUnexpectedEOF is returned and the
// buffer is unchanged.
func (cb *Buffer) Skip(count int) error {
	if count < 0 {
		return fmt.Errorf("codec: bad byte length %d", count)
	}
	newIndex := cb.index + count
	if newIndex < cb.index || newIndex > len(cb.buf) {
		return io.ErrUnexpectedEOF
	}
	cb.index = newIndex
	return nil
}

// Read implements the io.Reader interface. If there are no bytes
// remaining in the buffer, it will return 0, io.EOF. Otherwise,
// it reads min(len(dest), cb.Len()) bytes from input and copies
// them into dest.
func (cb *Buffer) Read(dest []byte) (int, error) {
	if cb.index == len(cb.buf) {
		return 0, io.EOF
	}
	copied := copy(dest, cb.buf[cb.index:])
	cb.index += copied
	return copied, nil
}

// Write implements the io.Writer interface. It always returns
// len(data), nil.
func (cb *Buffer) Write(data []byte) (int, error) {
	cb.buf = append(cb.buf, data...)
	return len(data), nil
}

var (
	_ io.Reader = (*Buffer)(nil)
	_ io.Writer = (*Buffer)(nil)
)

// DecodeVarint reads a varint-encoded integer from the Buffer. This is the
// format for the int32, int64, uint32, uint64, sint32, sint64, bool, and
// enum types.
//
// It returns ErrVarIntLimit when maxVarintLen bytes all carry the
// continuation bit and io.ErrUnexpectedEOF when the input ends first.
func (cb *Buffer) DecodeVarint() (uint64, error) {
	i := cb.index
	buf := cb.buf
	if i >= len(buf) {
		return 0, io.ErrUnexpectedEOF
	}
	if buf[i] < 0x80 {
		cb.index++
		return uint64(buf[i]), nil
	}

	var x uint64
	for shift := uint(0); shift < 7*maxVarintLen; shift += 7 {
		if i >= len(buf) {
			return 0, io.ErrUnexpectedEOF
		}
		b := buf[i]
		i++
		// bits beyond the 64th in the tenth byte are discarded
		x |= uint64(b&0x7f) << shift
		if b < 0x80 {
			cb.index = i
			return x, nil
		}
	}
	return 0, ErrVarIntLimit
}

// EncodeVarint writes a varint-encoded integer to the Buffer.
func (cb *Buffer) EncodeVarint(x uint64) {
	for x >= 1<<7 {
		cb.buf = append(cb.buf, uint8(x&0x7f|0x80))
		x >>= 7
	}
	cb.buf = append(cb.buf, uint8(x))
}

// DecodeTag decodes a field number and wire type from input. Field number
// zero is rejected with ErrInvalidFieldNumber, as are numbers that do not
// fit in 29 bits.
func (cb *Buffer) DecodeTag() (FieldNumber, WireType, error) {
	v, err := cb.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}
	if v>>3 > uint64(MaxFieldNumber) || v>>3 == 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidFieldNumber, v>>3)
	}
	t := Tag(v)
	return t.Number(), t.WireType(), nil
}

// EncodeTag encodes the given field number and wire type to the buffer.
func (cb *Buffer) EncodeTag(n FieldNumber, wt WireType) {
	cb.EncodeVarint(uint64(MakeTag(n, wt)))
}

// DecodeFixed64 reads a little-endian 64-bit integer from the Buffer. This
// is the format for the fixed64, sfixed64, and double types.
func (cb *Buffer) DecodeFixed64() (uint64, error) {
	i := cb.index + 8
	if i < 0 || i > len(cb.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	cb.index = i

	x := uint64(cb.buf[i-8])
	x |= uint64(cb.buf[i-7]) << 8
	x |= uint64(cb.buf[i-6]) << 16
	x |= uint64(cb.buf[i-5]) << 24
	x |= uint64(cb.buf[i-4]) << 32
	x |= uint64(cb.buf[i-3]) << 40
	x |= uint64(cb.buf[i-2]) << 48
	x |= uint64(cb.buf[i-1]) << 56
	return x, nil
}

// DecodeFixed32 reads a little-endian 32-bit integer from the Buffer. This
// is the format for the fixed32, sfixed32, and float types.
func (cb *Buffer) DecodeFixed32() (uint32, error) {
	i := cb.index + 4
	if i < 0 || i > len(cb.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	cb.index = i

	x := uint32(cb.buf[i-4])
	x |= uint32(cb.buf[i-3]) << 8
	x |= uint32(cb.buf[i-2]) << 16
	x |= uint32(cb.buf[i-1]) << 24
	return x, nil
}

// EncodeFixed64 writes a little-endian 64-bit integer to the Buffer.
func (cb *Buffer) EncodeFixed64(x uint64) {
	cb.buf = append(cb.buf,
		uint8(x),
		uint8(x>>8),
		uint8(x>>16),
		uint8(x>>24),
		uint8(x>>32),
		uint8(x>>40),
		uint8(x>>48),
		uint8(x>>56))
}

// EncodeFixed32 writes a little-endian 32-bit integer to the Buffer.
func (cb *Buffer) EncodeFixed32(x uint32) {
	cb.buf = append(cb.buf,
		uint8(x),
		uint8(x>>8),
		uint8(x>>16),
		uint8(x>>24))
}

// EncodeZigZag64 does zig-zag encoding to convert the given signed 64-bit
// integer into a form that can be expressed efficiently as a varint, even
// for negative values.
func EncodeZigZag64(v int64) uint64 {
	return (uint64(v) << 1) ^ uint64(v>>63)
}

// EncodeZigZag32 is EncodeZigZag64 for 32-bit values.
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// DecodeZigZag64 decodes a signed 64-bit integer from the given zig-zag
// encoded value.
func DecodeZigZag64(v uint64) int64 {
	return int64((v >> 1) ^ uint64((int64(v&1)<<63)>>63))
}

// DecodeZigZag32 decodes a signed 32-bit integer from the given zig-zag
// encoded value.
func DecodeZigZag32(v uint64) int32 {
	return int32((uint32(v) >> 1) ^ uint32((int32(v&1)<<31)>>31))
}

// DecodeRawBytes reads a count-delimited byte span from the Buffer. This
// is the format used for strings, bytes, embedded messages, map entries,
// and packed repeated fields. If alloc is false, the returned slice aliases
// the buffer.
func (cb *Buffer) DecodeRawBytes(alloc bool) ([]byte, error) {
	n, err := cb.DecodeVarint()
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt32 {
		return nil, fmt.Errorf("codec: bad byte length %d", n)
	}
	end := cb.index + int(n)
	if end < cb.index || end > len(cb.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	buf := cb.buf[cb.index:end]
	cb.index = end
	if alloc {
		buf = append([]byte(nil), buf...)
	}
	return buf, nil
}

// DecodeString reads a count-delimited string, rejecting invalid UTF-8 with
// ErrInvalidUTF8.
func (cb *Buffer) DecodeString() (string, error) {
	b, err := cb.DecodeRawBytes(false)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// EncodeRawBytes writes a count-delimited byte span to the Buffer.
func (cb *Buffer) EncodeRawBytes(b []byte) {
	cb.EncodeVarint(uint64(len(b)))
	cb.buf = append(cb.buf, b...)
}

// EncodeString is EncodeRawBytes for strings, without the conversion to
// a byte slice.
func (cb *Buffer) EncodeString(s string) {
	cb.EncodeVarint(uint64(len(s)))
	cb.buf = append(cb.buf, s...)
}

// ReadGroup reads the input until the matching "group end" tag is found
// and returns the data up to that point. Subsequent reads from the buffer
// will read data after the group end tag. If alloc is true, the data is
// copied to a new slice before being returned.
//
// Nested groups are handled: if a "group start" tag is found, then that
// group's end tag is included in the returned data.
func (cb *Buffer) ReadGroup(alloc bool) ([]byte, error) {
	groupEnd, dataEnd, err := cb.findGroupEnd()
	if err != nil {
		return nil, err
	}
	data := cb.buf[cb.index:dataEnd]
	if alloc {
		data = append([]byte(nil), data...)
	}
	cb.index = groupEnd
	return data, nil
}

// SkipGroup is like ReadGroup, except that it discards the data and just
// advances the buffer to point to the input right after the "group end"
// tag.
func (cb *Buffer) SkipGroup() error {
	groupEnd, _, err := cb.findGroupEnd()
	if err != nil {
		return err
	}
	cb.index = groupEnd
	return nil
}

func (cb *Buffer) findGroupEnd() (groupEnd int, dataEnd int, err error) {
	start := cb.index
	defer func() {
		cb.index = start
	}()
	for {
		fieldStart := cb.index
		_, wireType, err := cb.DecodeTag()
		if err != nil {
			return 0, 0, err
		}
		if wireType == EndGroup {
			return cb.index, fieldStart, nil
		}
		if err := cb.skipValue(wireType); err != nil {
			return 0, 0, err
		}
	}
}

func (cb *Buffer) skipValue(wt WireType) error {
	switch wt {
	case VarInt:
		_, err := cb.DecodeVarint()
		return err
	case Fixed32:
		return cb.Skip(4)
	case Fixed64:
		return cb.Skip(8)
	case LengthDelimited:
		_, err := cb.DecodeRawBytes(false)
		return err
	case StartGroup:
		return cb.SkipGroup()
	case EndGroup:
		return ErrUnexpectedEndGroup
	default:
		return fmt.Errorf("codec: bad wire type %d", wt)
	}
}

// DecodeValue reads the value that follows a tag with the given wire type.
// Length-delimited and group payloads alias the buffer.
func (cb *Buffer) DecodeValue(wt WireType) (Value, error) {
	v := Value{Type: wt}
	var err error
	switch wt {
	case VarInt:
		v.Scalar, err = cb.DecodeVarint()
	case Fixed32:
		var x uint32
		x, err = cb.DecodeFixed32()
		v.Scalar = uint64(x)
	case Fixed64:
		v.Scalar, err = cb.DecodeFixed64()
	case LengthDelimited:
		v.Bytes, err = cb.DecodeRawBytes(false)
	case StartGroup:
		v.Bytes, err = cb.ReadGroup(false)
	case EndGroup:
		err = ErrUnexpectedEndGroup
	default:
		err = fmt.Errorf("codec: bad wire type %d", wt)
	}
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

// EncodeValue writes the payload of v, without a tag. Group values cannot
// be encoded.
func (cb *Buffer) EncodeValue(v Value) error {
	switch v.Type {
	case VarInt:
		cb.EncodeVarint(v.Scalar)
	case Fixed32:
		cb.EncodeFixed32(uint32(v.Scalar))
	case Fixed64:
		cb.EncodeFixed64(v.Scalar)
	case LengthDelimited:
		cb.EncodeRawBytes(v.Bytes)
	default:
		return fmt.Errorf("codec: cannot encode %v value", v.Type)
	}
	return nil
}
