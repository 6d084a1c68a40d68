// Package codec implements the non-self-describing binary wire format used
// to persist values throughout embeddb: records, page directories, B-tree
// keys, and table metadata all share this one encoding. There is no type tag
// written alongside a value; the reader must already know what shape of
// value is expected, exactly as the writer did.
//
// All multi-byte integers are little-endian. Booleans are a single byte,
// either 0x00 or 0x01 — any other byte is a decode error. Length-prefixed
// values (bytes, strings, sequences, maps) carry a uint64 length ahead of
// their payload.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Error is the codec package's error kind. Every failure returned by an
// Encoder, Decoder, or Sizer method can be matched against one of these via
// errors.Is.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrUnexpectedEOF   Error = "codec: unexpected end of input"
	ErrTrailingBytes   Error = "codec: trailing bytes after top-level value"
	ErrBadBool         Error = "codec: invalid boolean byte"
	ErrBadUTF8         Error = "codec: invalid utf-8 in string"
	ErrBadRune         Error = "codec: invalid unicode scalar value"
	ErrBadOptionTag    Error = "codec: invalid option discriminant"
	ErrBadVariantTag   Error = "codec: unknown tagged-sum variant"
	ErrLengthTooLarge  Error = "codec: length prefix exceeds maximum"
	ErrNegativeLength  Error = "codec: negative length not representable"
)

// MaxLength bounds any single length-prefixed payload read by Decoder, guarding
// against a corrupted length prefix causing an enormous allocation.
const MaxLength = 1 << 32 - 1

// Encoder appends values to an in-memory byte buffer using embeddb's wire
// format. The zero value is not usable; construct with NewEncoder.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with an empty buffer, optionally
// pre-sized via capacity hint.
func NewEncoder(sizeHint int) *Encoder {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the encoded byte slice accumulated so far. The slice aliases
// the Encoder's internal buffer; callers that keep it past further writes
// should copy it.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) WriteU8(v uint8)  { e.buf = append(e.buf, v) }
func (e *Encoder) WriteI8(v int8)   { e.buf = append(e.buf, byte(v)) }

func (e *Encoder) WriteU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) WriteI16(v int16) { e.WriteU16(uint16(v)) }

func (e *Encoder) WriteU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) WriteI32(v int32) { e.WriteU32(uint32(v)) }

func (e *Encoder) WriteU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) WriteI64(v int64) { e.WriteU64(uint64(v)) }

// WriteU128 writes a 128-bit unsigned integer as two little-endian 64-bit
// words, low word first, matching the layout a 128-bit integer would have on
// a little-endian machine.
func (e *Encoder) WriteU128(lo, hi uint64) {
	e.WriteU64(lo)
	e.WriteU64(hi)
}

func (e *Encoder) WriteI128(lo uint64, hi int64) {
	e.WriteU64(lo)
	e.WriteI64(hi)
}

func (e *Encoder) WriteF32(v float32) { e.WriteU32(math.Float32bits(v)) }
func (e *Encoder) WriteF64(v float64) { e.WriteU64(math.Float64bits(v)) }

// WriteRune writes a unicode scalar value as a uint32 code point.
func (e *Encoder) WriteRune(r rune) { e.WriteU32(uint32(r)) }

// WriteLen writes a length prefix for a variable-size payload.
func (e *Encoder) WriteLen(n int) { e.WriteU64(uint64(n)) }

// WriteBytes writes a length-prefixed opaque byte payload.
func (e *Encoder) WriteBytes(b []byte) {
	e.WriteLen(len(b))
	e.buf = append(e.buf, b...)
}

// WriteRawBytes appends bytes with no length prefix, for fixed-size fields
// whose length is implied by the surrounding schema.
func (e *Encoder) WriteRawBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteString writes a length-prefixed UTF-8 string payload.
func (e *Encoder) WriteString(s string) {
	e.WriteLen(len(s))
	e.buf = append(e.buf, s...)
}

// WriteNone writes the one-byte discriminant for an absent value (0). Use
// WriteSomeTag followed by the payload to write a present value of some(v).
func (e *Encoder) WriteNone() { e.buf = append(e.buf, 0) }

// WriteSomeTag writes the one-byte discriminant for a present value; the
// caller writes the payload immediately after.
func (e *Encoder) WriteSomeTag() { e.buf = append(e.buf, 1) }

// WriteVariantTag writes the discriminant of a tagged sum type. Callers
// write the variant's payload (if any) immediately after.
func (e *Encoder) WriteVariantTag(tag uint32) { e.WriteU32(tag) }

// Decoder reads values out of a byte slice using embeddb's wire format. A
// Decoder tracks a read cursor into the underlying slice; it never copies
// the input ahead of time.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder returns a Decoder reading from b starting at offset 0.
func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

// Pos returns the current read offset.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// Done returns ErrTrailingBytes if the decoder has not consumed the entire
// input, and nil otherwise. Call this after decoding a self-contained
// top-level value to catch corrupted or truncated records.
func (d *Decoder) Done() error {
	if d.Remaining() != 0 {
		return ErrTrailingBytes
	}
	return nil
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if d.Remaining() < n {
		return nil, ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrBadBool
	}
}

func (d *Decoder) ReadU8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) ReadI8() (int8, error) {
	v, err := d.ReadU8()
	return int8(v), err
}

func (d *Decoder) ReadU16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *Decoder) ReadI16() (int16, error) {
	v, err := d.ReadU16()
	return int16(v), err
}

func (d *Decoder) ReadU32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) ReadI32() (int32, error) {
	v, err := d.ReadU32()
	return int32(v), err
}

func (d *Decoder) ReadU64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *Decoder) ReadI64() (int64, error) {
	v, err := d.ReadU64()
	return int64(v), err
}

// ReadU128 returns the low and high 64-bit words of a 128-bit unsigned
// integer.
func (d *Decoder) ReadU128() (lo, hi uint64, err error) {
	if lo, err = d.ReadU64(); err != nil {
		return 0, 0, err
	}
	if hi, err = d.ReadU64(); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func (d *Decoder) ReadI128() (lo uint64, hi int64, err error) {
	if lo, err = d.ReadU64(); err != nil {
		return 0, 0, err
	}
	if hi, err = d.ReadI64(); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func (d *Decoder) ReadF32() (float32, error) {
	v, err := d.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (d *Decoder) ReadF64() (float64, error) {
	v, err := d.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadRune decodes a unicode scalar value, rejecting surrogate code points
// and values above the Unicode ceiling.
func (d *Decoder) ReadRune() (rune, error) {
	v, err := d.ReadU32()
	if err != nil {
		return 0, err
	}
	r := rune(v)
	if !utf8.ValidRune(r) {
		return 0, ErrBadRune
	}
	return r, nil
}

func (d *Decoder) ReadLen() (int, error) {
	v, err := d.ReadU64()
	if err != nil {
		return 0, err
	}
	if v > MaxLength {
		return 0, ErrLengthTooLarge
	}
	return int(v), nil
}

// ReadBytes reads a length-prefixed opaque byte payload. The returned slice
// aliases the Decoder's input; callers that retain it should copy.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadLen()
	if err != nil {
		return nil, err
	}
	return d.take(n)
}

// ReadRawBytes reads exactly n unprefixed bytes.
func (d *Decoder) ReadRawBytes(n int) ([]byte, error) { return d.take(n) }

// ReadString reads a length-prefixed UTF-8 string payload.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrBadUTF8
	}
	return string(b), nil
}

// ReadOptionTag reads the one-byte option discriminant and reports whether a
// payload follows.
func (d *Decoder) ReadOptionTag() (present bool, err error) {
	b, err := d.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrBadOptionTag
	}
}

// ReadVariantTag reads the discriminant of a tagged sum type.
func (d *Decoder) ReadVariantTag() (uint32, error) { return d.ReadU32() }

// Sizer computes the exact byte length that an Encoder would produce for the
// same sequence of writes, without allocating or copying any payload. Every
// method here must stay in lock-step with the matching Encoder method: the
// codec's central law is that sizer and encoder always agree.
type Sizer struct {
	n int
}

// Size returns the accumulated byte count.
func (s *Sizer) Size() int { return s.n }

func (s *Sizer) AddBool()              { s.n += 1 }
func (s *Sizer) AddU8()                { s.n += 1 }
func (s *Sizer) AddI8()                { s.n += 1 }
func (s *Sizer) AddU16()               { s.n += 2 }
func (s *Sizer) AddI16()               { s.n += 2 }
func (s *Sizer) AddU32()               { s.n += 4 }
func (s *Sizer) AddI32()               { s.n += 4 }
func (s *Sizer) AddU64()               { s.n += 8 }
func (s *Sizer) AddI64()               { s.n += 8 }
func (s *Sizer) AddU128()              { s.n += 16 }
func (s *Sizer) AddI128()              { s.n += 16 }
func (s *Sizer) AddF32()               { s.n += 4 }
func (s *Sizer) AddF64()               { s.n += 8 }
func (s *Sizer) AddRune()              { s.n += 4 }
func (s *Sizer) AddLen()               { s.n += 8 }
func (s *Sizer) AddBytes(b []byte)     { s.n += 8 + len(b) }
func (s *Sizer) AddRawBytes(n int)     { s.n += n }
func (s *Sizer) AddString(str string)  { s.n += 8 + len(str) }
func (s *Sizer) AddOptionTag()         { s.n += 1 }
func (s *Sizer) AddVariantTag()        { s.n += 4 }

// SizeOfBytes reports the encoded size of a length-prefixed byte payload
// without constructing an Encoder.
func SizeOfBytes(b []byte) int { return 8 + len(b) }

// SizeOfString reports the encoded size of a length-prefixed string payload
// without constructing an Encoder.
func SizeOfString(s string) int { return 8 + len(s) }

// Must panics if err is non-nil. It exists only for use in tests and
// top-level initialization paths where a codec error indicates a
// programming mistake rather than a runtime condition; production code
// paths must not use it.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("codec: %v", err))
	}
	return v
}

var _ io.Reader = (*trailingReader)(nil)

// trailingReader adapts a Decoder's remaining bytes to io.Reader, used only
// by callers that need to hand the tail of a buffer to another decoder
// (e.g. streaming a variable-length nested payload).
type trailingReader struct{ d *Decoder }

func (t *trailingReader) Read(p []byte) (int, error) {
	if t.d.Remaining() == 0 {
		return 0, io.EOF
	}
	n := copy(p, t.d.buf[t.d.pos:])
	t.d.pos += n
	return n, nil
}

// Tail returns an io.Reader over the decoder's unread suffix.
func (d *Decoder) Tail() io.Reader { return &trailingReader{d: d} }
