// Package value implements the tagged Value data model shared by every
// layer above the codec: page cells, B-tree keys, and table rows are all
// built out of Value. A Value is a closed sum type — exactly one of the
// Kind constants below — encoded with internal/codec using an explicit
// four-byte (u32) variant tag ahead of the payload.
package value

import (
	"fmt"
	"math"

	"github.com/embeddb/embeddb/internal/codec"
)

// Kind identifies which variant of Value is populated. The numeric values
// are the wire-format tag written ahead of every encoded Value and must
// never be reordered once data exists on disk in this format.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindF32
	KindF64
	KindChar
	KindString
	KindBytes
	KindOption
	KindSequence
	KindMap
	KindProduct
	KindSum
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindI128:
		return "i128"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindU128:
		return "u128"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindOption:
		return "option"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	case KindProduct:
		return "product"
	case KindSum:
		return "sum"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Int128 is a 128-bit signed integer represented as a low/high 64-bit word
// pair, matching the wire layout written by internal/codec.
type Int128 struct {
	Lo uint64
	Hi int64
}

// Uint128 is a 128-bit unsigned integer represented as a low/high 64-bit
// word pair.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

// Value is an immutable tagged union. Exactly one field corresponding to
// Kind is meaningful; all others are zero. Construct with the New*
// functions rather than building a Value literal directly.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	i128  Int128
	u     uint64
	u128  Uint128
	f32   float32
	f64   float64
	r     rune
	str   string
	bytes []byte
	opt   *Value // nil means None; non-nil points at the Some payload
	seq   []Value
	pairs []MapEntry
	prod  []Value
	sumTag string
	sumVal *Value
}

// MapEntry is one key/value pair of a KindMap Value. Maps preserve
// insertion order; embeddb never relies on hash iteration order for
// on-disk determinism.
type MapEntry struct {
	Key Value
	Val Value
}

func NewNull() Value             { return Value{kind: KindNull} }
func NewBool(v bool) Value       { return Value{kind: KindBool, b: v} }
func NewI8(v int8) Value         { return Value{kind: KindI8, i: int64(v)} }
func NewI16(v int16) Value       { return Value{kind: KindI16, i: int64(v)} }
func NewI32(v int32) Value       { return Value{kind: KindI32, i: int64(v)} }
func NewI64(v int64) Value       { return Value{kind: KindI64, i: v} }
func NewI128(v Int128) Value     { return Value{kind: KindI128, i128: v} }
func NewU8(v uint8) Value        { return Value{kind: KindU8, u: uint64(v)} }
func NewU16(v uint16) Value      { return Value{kind: KindU16, u: uint64(v)} }
func NewU32(v uint32) Value      { return Value{kind: KindU32, u: uint64(v)} }
func NewU64(v uint64) Value      { return Value{kind: KindU64, u: v} }
func NewU128(v Uint128) Value    { return Value{kind: KindU128, u128: v} }
func NewChar(v rune) Value       { return Value{kind: KindChar, r: v} }
func NewString(v string) Value   { return Value{kind: KindString, str: v} }
func NewBytes(v []byte) Value    { return Value{kind: KindBytes, bytes: v} }
func NewSequence(v []Value) Value { return Value{kind: KindSequence, seq: v} }
func NewMap(v []MapEntry) Value  { return Value{kind: KindMap, pairs: v} }
func NewProduct(v []Value) Value { return Value{kind: KindProduct, prod: v} }

// NewF32 requires a finite value: NaN and Infinity cannot serve as table
// keys or be compared with the total order the B-tree layer requires.
func NewF32(v float32) (Value, error) {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return Value{}, fmt.Errorf("value: f32 must be finite, got %v", v)
	}
	return Value{kind: KindF32, f32: v}, nil
}

func NewF64(v float64) (Value, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}, fmt.Errorf("value: f64 must be finite, got %v", v)
	}
	return Value{kind: KindF64, f64: v}, nil
}

// NewNone constructs an absent KindOption value.
func NewNone() Value { return Value{kind: KindOption, opt: nil} }

// NewSome constructs a present KindOption value wrapping v.
func NewSome(v Value) Value {
	cp := v
	return Value{kind: KindOption, opt: &cp}
}

// NewSum constructs a tagged-sum (variant) value: tag names the variant,
// payload is nil for a unit variant or points at the variant's value.
func NewSum(tag string, payload *Value) Value {
	return Value{kind: KindSum, sumTag: tag, sumVal: payload}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindI8, KindI16, KindI32, KindI64:
		return v.i, true
	default:
		return 0, false
	}
}
func (v Value) Int128() (Int128, bool)   { return v.i128, v.kind == KindI128 }
func (v Value) Uint() (uint64, bool) {
	switch v.kind {
	case KindU8, KindU16, KindU32, KindU64:
		return v.u, true
	default:
		return 0, false
	}
}
func (v Value) Uint128() (Uint128, bool) { return v.u128, v.kind == KindU128 }
func (v Value) F32() (float32, bool)     { return v.f32, v.kind == KindF32 }
func (v Value) F64() (float64, bool)     { return v.f64, v.kind == KindF64 }
func (v Value) Rune() (rune, bool)       { return v.r, v.kind == KindChar }
func (v Value) Str() (string, bool)      { return v.str, v.kind == KindString }
func (v Value) Bytes() ([]byte, bool)    { return v.bytes, v.kind == KindBytes }
func (v Value) Sequence() ([]Value, bool) { return v.seq, v.kind == KindSequence }
func (v Value) Map() ([]MapEntry, bool)  { return v.pairs, v.kind == KindMap }
func (v Value) Product() ([]Value, bool) { return v.prod, v.kind == KindProduct }

// IsNull reports whether v is the KindNull sentinel.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Option reports whether v is present, and if so returns the unwrapped
// payload. ok is false if v is not a KindOption value at all.
func (v Value) Option() (payload Value, present bool, ok bool) {
	if v.kind != KindOption {
		return Value{}, false, false
	}
	if v.opt == nil {
		return Value{}, false, true
	}
	return *v.opt, true, true
}

// Sum reports the tagged-sum's variant name and optional payload.
func (v Value) Sum() (tag string, payload *Value, ok bool) {
	if v.kind != KindSum {
		return "", nil, false
	}
	return v.sumTag, v.sumVal, true
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindI8, KindI16, KindI32, KindI64:
		return fmt.Sprintf("%d", v.i)
	case KindI128:
		return fmt.Sprintf("i128(lo=%d,hi=%d)", v.i128.Lo, v.i128.Hi)
	case KindU8, KindU16, KindU32, KindU64:
		return fmt.Sprintf("%d", v.u)
	case KindU128:
		return fmt.Sprintf("u128(lo=%d,hi=%d)", v.u128.Lo, v.u128.Hi)
	case KindF32:
		return fmt.Sprintf("%v", v.f32)
	case KindF64:
		return fmt.Sprintf("%v", v.f64)
	case KindChar:
		return fmt.Sprintf("%q", v.r)
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.bytes))
	case KindOption:
		if v.opt == nil {
			return "none"
		}
		return "some(" + v.opt.String() + ")"
	case KindSequence:
		return fmt.Sprintf("sequence(%d)", len(v.seq))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.pairs))
	case KindProduct:
		return fmt.Sprintf("product(%d)", len(v.prod))
	case KindSum:
		return "sum(" + v.sumTag + ")"
	default:
		return "?"
	}
}

// Encode appends the wire representation of v — a Kind tag followed by its
// payload — onto e.
func Encode(e *codec.Encoder, v Value) error {
	e.WriteVariantTag(uint32(v.kind))
	switch v.kind {
	case KindNull:
	case KindBool:
		e.WriteBool(v.b)
	case KindI8:
		e.WriteI8(int8(v.i))
	case KindI16:
		e.WriteI16(int16(v.i))
	case KindI32:
		e.WriteI32(int32(v.i))
	case KindI64:
		e.WriteI64(v.i)
	case KindI128:
		e.WriteI128(v.i128.Lo, v.i128.Hi)
	case KindU8:
		e.WriteU8(uint8(v.u))
	case KindU16:
		e.WriteU16(uint16(v.u))
	case KindU32:
		e.WriteU32(uint32(v.u))
	case KindU64:
		e.WriteU64(v.u)
	case KindU128:
		e.WriteU128(v.u128.Lo, v.u128.Hi)
	case KindF32:
		e.WriteF32(v.f32)
	case KindF64:
		e.WriteF64(v.f64)
	case KindChar:
		e.WriteRune(v.r)
	case KindString:
		e.WriteString(v.str)
	case KindBytes:
		e.WriteBytes(v.bytes)
	case KindOption:
		if v.opt == nil {
			e.WriteNone()
		} else {
			e.WriteSomeTag()
			if err := Encode(e, *v.opt); err != nil {
				return err
			}
		}
	case KindSequence:
		e.WriteLen(len(v.seq))
		for _, item := range v.seq {
			if err := Encode(e, item); err != nil {
				return err
			}
		}
	case KindMap:
		e.WriteLen(len(v.pairs))
		for _, entry := range v.pairs {
			if err := Encode(e, entry.Key); err != nil {
				return err
			}
			if err := Encode(e, entry.Val); err != nil {
				return err
			}
		}
	case KindProduct:
		e.WriteLen(len(v.prod))
		for _, field := range v.prod {
			if err := Encode(e, field); err != nil {
				return err
			}
		}
	case KindSum:
		e.WriteString(v.sumTag)
		if v.sumVal == nil {
			e.WriteNone()
		} else {
			e.WriteSomeTag()
			if err := Encode(e, *v.sumVal); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("value: unknown kind %d", v.kind)
	}
	return nil
}

// Decode reads a Value previously written by Encode.
func Decode(d *codec.Decoder) (Value, error) {
	tag, err := d.ReadVariantTag()
	if err != nil {
		return Value{}, err
	}
	kind := Kind(tag)
	switch kind {
	case KindNull:
		return NewNull(), nil
	case KindBool:
		b, err := d.ReadBool()
		return NewBool(b), err
	case KindI8:
		n, err := d.ReadI8()
		return NewI8(n), err
	case KindI16:
		n, err := d.ReadI16()
		return NewI16(n), err
	case KindI32:
		n, err := d.ReadI32()
		return NewI32(n), err
	case KindI64:
		n, err := d.ReadI64()
		return NewI64(n), err
	case KindI128:
		lo, hi, err := d.ReadI128()
		return NewI128(Int128{Lo: lo, Hi: hi}), err
	case KindU8:
		n, err := d.ReadU8()
		return NewU8(n), err
	case KindU16:
		n, err := d.ReadU16()
		return NewU16(n), err
	case KindU32:
		n, err := d.ReadU32()
		return NewU32(n), err
	case KindU64:
		n, err := d.ReadU64()
		return NewU64(n), err
	case KindU128:
		lo, hi, err := d.ReadU128()
		return NewU128(Uint128{Lo: lo, Hi: hi}), err
	case KindF32:
		f, err := d.ReadF32()
		if err != nil {
			return Value{}, err
		}
		v, err := NewF32(f)
		return v, err
	case KindF64:
		f, err := d.ReadF64()
		if err != nil {
			return Value{}, err
		}
		v, err := NewF64(f)
		return v, err
	case KindChar:
		r, err := d.ReadRune()
		return NewChar(r), err
	case KindString:
		s, err := d.ReadString()
		return NewString(s), err
	case KindBytes:
		b, err := d.ReadBytes()
		if err != nil {
			return Value{}, err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return NewBytes(cp), nil
	case KindOption:
		present, err := d.ReadOptionTag()
		if err != nil {
			return Value{}, err
		}
		if !present {
			return NewNone(), nil
		}
		inner, err := Decode(d)
		if err != nil {
			return Value{}, err
		}
		return NewSome(inner), nil
	case KindSequence:
		n, err := d.ReadLen()
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, n)
		for i := range items {
			items[i], err = Decode(d)
			if err != nil {
				return Value{}, err
			}
		}
		return NewSequence(items), nil
	case KindMap:
		n, err := d.ReadLen()
		if err != nil {
			return Value{}, err
		}
		pairs := make([]MapEntry, n)
		for i := range pairs {
			pairs[i].Key, err = Decode(d)
			if err != nil {
				return Value{}, err
			}
			pairs[i].Val, err = Decode(d)
			if err != nil {
				return Value{}, err
			}
		}
		return NewMap(pairs), nil
	case KindProduct:
		n, err := d.ReadLen()
		if err != nil {
			return Value{}, err
		}
		fields := make([]Value, n)
		for i := range fields {
			fields[i], err = Decode(d)
			if err != nil {
				return Value{}, err
			}
		}
		return NewProduct(fields), nil
	case KindSum:
		tagName, err := d.ReadString()
		if err != nil {
			return Value{}, err
		}
		present, err := d.ReadOptionTag()
		if err != nil {
			return Value{}, err
		}
		if !present {
			return NewSum(tagName, nil), nil
		}
		inner, err := Decode(d)
		if err != nil {
			return Value{}, err
		}
		return NewSum(tagName, &inner), nil
	default:
		return Value{}, fmt.Errorf("value: unknown kind tag %d", tag)
	}
}

// Size computes the exact encoded byte length of v without allocating,
// mirroring Encode field-for-field. This is the package's standing
// guarantee: Size(v) == len(encode(v)) for every Value ever constructed.
func Size(v Value) int {
	s := &codec.Sizer{}
	addSize(s, v)
	return s.Size()
}

func addSize(s *codec.Sizer, v Value) {
	s.AddVariantTag()
	switch v.kind {
	case KindNull:
	case KindBool:
		s.AddBool()
	case KindI8, KindU8:
		s.AddU8()
	case KindI16, KindU16:
		s.AddU16()
	case KindI32, KindU32:
		s.AddU32()
	case KindI64, KindU64:
		s.AddU64()
	case KindI128, KindU128:
		s.AddU128()
	case KindF32:
		s.AddF32()
	case KindF64:
		s.AddF64()
	case KindChar:
		s.AddRune()
	case KindString:
		s.AddString(v.str)
	case KindBytes:
		s.AddBytes(v.bytes)
	case KindOption:
		s.AddOptionTag()
		if v.opt != nil {
			addSize(s, *v.opt)
		}
	case KindSequence:
		s.AddLen()
		for _, item := range v.seq {
			addSize(s, item)
		}
	case KindMap:
		s.AddLen()
		for _, entry := range v.pairs {
			addSize(s, entry.Key)
			addSize(s, entry.Val)
		}
	case KindProduct:
		s.AddLen()
		for _, field := range v.prod {
			addSize(s, field)
		}
	case KindSum:
		s.AddString(v.sumTag)
		s.AddOptionTag()
		if v.sumVal != nil {
			addSize(s, *v.sumVal)
		}
	}
}
