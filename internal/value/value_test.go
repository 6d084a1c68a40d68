package value

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embeddb/embeddb/internal/codec"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	r := require.New(t)
	e := codec.NewEncoder(0)
	r.NoError(Encode(e, v))
	r.Equal(Size(v), e.Len(), "Size must agree with Encode")

	d := codec.NewDecoder(e.Bytes())
	out, err := Decode(d)
	r.NoError(err)
	r.NoError(d.Done())
	return out
}

func TestBasicTypesRoundTrip(t *testing.T) {
	r := require.New(t)

	r.Equal(KindNull, roundTrip(t, NewNull()).Kind())

	b := roundTrip(t, NewBool(true))
	v, ok := b.Bool()
	r.True(ok)
	r.True(v)

	i := roundTrip(t, NewI64(-42))
	iv, ok := i.Int()
	r.True(ok)
	r.EqualValues(-42, iv)

	u := roundTrip(t, NewU32(42))
	uv, ok := u.Uint()
	r.True(ok)
	r.EqualValues(42, uv)

	f64, err := NewF64(42.42)
	r.NoError(err)
	f := roundTrip(t, f64)
	fv, ok := f.F64()
	r.True(ok)
	r.InDelta(42.42, fv, 0.0000001)

	s := roundTrip(t, NewString("foobar"))
	sv, ok := s.Str()
	r.True(ok)
	r.Equal("foobar", sv)

	ch := roundTrip(t, NewChar('f'))
	cv, ok := ch.Rune()
	r.True(ok)
	r.Equal('f', cv)

	bs := roundTrip(t, NewBytes([]byte{31, 32, 33}))
	bv, ok := bs.Bytes()
	r.True(ok)
	r.Equal([]byte{31, 32, 33}, bv)
}

func TestFloatRejectsNaNAndInf(t *testing.T) {
	r := require.New(t)
	_, err := NewF64(nan())
	r.Error(err)
	_, err = NewF32(float32(inf()))
	r.Error(err)
}

func nan() float64 { var z float64; return z / z }
func inf() float64 { return 1 / zero() }
func zero() float64 { var z float64; return z }

func TestOptionRoundTrip(t *testing.T) {
	r := require.New(t)

	none := roundTrip(t, NewNone())
	_, present, ok := none.Option()
	r.True(ok)
	r.False(present)

	some := roundTrip(t, NewSome(NewU32(421)))
	payload, present, ok := some.Option()
	r.True(ok)
	r.True(present)
	u, ok := payload.Uint()
	r.True(ok)
	r.EqualValues(421, u)
}

func TestSequenceRoundTrip(t *testing.T) {
	r := require.New(t)
	seq := NewSequence([]Value{NewU32(1), NewU32(2), NewU32(3)})
	out := roundTrip(t, seq)
	items, ok := out.Sequence()
	r.True(ok)
	r.Len(items, 3)
}

func TestProductRoundTrip(t *testing.T) {
	r := require.New(t)
	prod := NewProduct([]Value{NewU16(1230), NewI32(-1239), NewString("bar")})
	out := roundTrip(t, prod)
	fields, ok := out.Product()
	r.True(ok)
	r.Len(fields, 3)
}

func TestSumRoundTrip(t *testing.T) {
	r := require.New(t)

	foo := roundTrip(t, NewSum("Foo", nil))
	tag, payload, ok := foo.Sum()
	r.True(ok)
	r.Equal("Foo", tag)
	r.Nil(payload)

	withPayload := NewU32(99)
	bar := roundTrip(t, NewSum("Bar", &withPayload))
	tag2, payload2, ok := bar.Sum()
	r.True(ok)
	r.Equal("Bar", tag2)
	r.NotNil(payload2)
	u, ok := payload2.Uint()
	r.True(ok)
	r.EqualValues(99, u)
}

func TestCompareOrdering(t *testing.T) {
	r := require.New(t)
	r.Equal(-1, Compare(NewI64(1), NewI64(2)))
	r.Equal(1, Compare(NewU64(5), NewU64(1)))
	r.Equal(0, Compare(NewString("a"), NewString("a")))
	r.Equal(-1, Compare(NewString("a"), NewString("b")))
	r.Equal(-1, Compare(NewBytes([]byte{1}), NewBytes([]byte{1, 2})))
}

func TestCompareRejectsMismatchedKinds(t *testing.T) {
	r := require.New(t)
	r.Panics(func() { Compare(NewI64(1), NewU64(1)) })
}

func TestOrderableKinds(t *testing.T) {
	r := require.New(t)
	r.True(KindString.Orderable())
	r.False(KindSequence.Orderable())
	r.False(KindOption.Orderable())
}
