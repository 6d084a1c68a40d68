package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripPrimitives(t *testing.T) {
	r := require.New(t)

	e := NewEncoder(0)
	e.WriteBool(true)
	e.WriteU8(42)
	e.WriteI8(-42)
	e.WriteU16(4242)
	e.WriteI16(-4242)
	e.WriteU32(424242)
	e.WriteI32(-424242)
	e.WriteU64(42424242424242)
	e.WriteI64(-42424242424242)
	e.WriteF32(42.42)
	e.WriteF64(42.42)
	e.WriteRune('f')
	e.WriteString("foobar")
	e.WriteBytes([]byte{31, 32, 33})

	d := NewDecoder(e.Bytes())

	b, err := d.ReadBool()
	r.NoError(err)
	r.True(b)

	u8, err := d.ReadU8()
	r.NoError(err)
	r.EqualValues(42, u8)

	i8, err := d.ReadI8()
	r.NoError(err)
	r.EqualValues(-42, i8)

	u16, err := d.ReadU16()
	r.NoError(err)
	r.EqualValues(4242, u16)

	i16, err := d.ReadI16()
	r.NoError(err)
	r.EqualValues(-4242, i16)

	u32, err := d.ReadU32()
	r.NoError(err)
	r.EqualValues(424242, u32)

	i32, err := d.ReadI32()
	r.NoError(err)
	r.EqualValues(-424242, i32)

	u64, err := d.ReadU64()
	r.NoError(err)
	r.EqualValues(42424242424242, u64)

	i64, err := d.ReadI64()
	r.NoError(err)
	r.EqualValues(-42424242424242, i64)

	f32, err := d.ReadF32()
	r.NoError(err)
	r.InDelta(42.42, f32, 0.001)

	f64, err := d.ReadF64()
	r.NoError(err)
	r.InDelta(42.42, f64, 0.0000001)

	ch, err := d.ReadRune()
	r.NoError(err)
	r.Equal('f', ch)

	str, err := d.ReadString()
	r.NoError(err)
	r.Equal("foobar", str)

	bs, err := d.ReadBytes()
	r.NoError(err)
	r.Equal([]byte{31, 32, 33}, bs)

	r.NoError(d.Done())
}

func TestSizerAgreesWithEncoder(t *testing.T) {
	r := require.New(t)

	cases := []struct {
		name   string
		encode func(*Encoder)
		size   func(*Sizer)
	}{
		{"bool", func(e *Encoder) { e.WriteBool(true) }, func(s *Sizer) { s.AddBool() }},
		{"u8", func(e *Encoder) { e.WriteU8(1) }, func(s *Sizer) { s.AddU8() }},
		{"u64", func(e *Encoder) { e.WriteU64(1) }, func(s *Sizer) { s.AddU64() }},
		{"f64", func(e *Encoder) { e.WriteF64(1.5) }, func(s *Sizer) { s.AddF64() }},
		{"string", func(e *Encoder) { e.WriteString("hello") }, func(s *Sizer) { s.AddString("hello") }},
		{"bytes", func(e *Encoder) { e.WriteBytes([]byte{1, 2, 3}) }, func(s *Sizer) { s.AddBytes([]byte{1, 2, 3}) }},
	}

	for _, c := range cases {
		e := NewEncoder(0)
		c.encode(e)
		s := &Sizer{}
		c.size(s)
		r.Equal(e.Len(), s.Size(), c.name)
	}
}

func TestStringLengthPrefixIsEightBytes(t *testing.T) {
	r := require.New(t)
	e := NewEncoder(0)
	e.WriteString("foobar")
	r.Equal(8+6, e.Len())
	r.Equal(8+6, SizeOfString("foobar"))
}

func TestReadBoolRejectsInvalidByte(t *testing.T) {
	r := require.New(t)
	d := NewDecoder([]byte{2})
	_, err := d.ReadBool()
	r.ErrorIs(err, ErrBadBool)
}

func TestDoneRejectsTrailingBytes(t *testing.T) {
	r := require.New(t)
	e := NewEncoder(0)
	e.WriteU8(1)
	e.WriteU8(2)
	d := NewDecoder(e.Bytes())
	_, err := d.ReadU8()
	r.NoError(err)
	r.ErrorIs(d.Done(), ErrTrailingBytes)
}

func TestUnexpectedEOF(t *testing.T) {
	r := require.New(t)
	d := NewDecoder([]byte{1, 2})
	_, err := d.ReadU32()
	r.ErrorIs(err, ErrUnexpectedEOF)
}

func TestOptionDiscriminant(t *testing.T) {
	r := require.New(t)

	e := NewEncoder(0)
	e.WriteSomeTag()
	e.WriteU32(99)
	d := NewDecoder(e.Bytes())
	present, err := d.ReadOptionTag()
	r.NoError(err)
	r.True(present)
	v, err := d.ReadU32()
	r.NoError(err)
	r.EqualValues(99, v)

	e2 := NewEncoder(0)
	e2.WriteNone()
	d2 := NewDecoder(e2.Bytes())
	present2, err := d2.ReadOptionTag()
	r.NoError(err)
	r.False(present2)

	d3 := NewDecoder([]byte{9})
	_, err = d3.ReadOptionTag()
	r.ErrorIs(err, ErrBadOptionTag)
}
