// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
)

// Kind discriminates the cases of Value. The zero Kind is KindEmpty, so a
// zero Value is the Empty value rather than a degenerate integer.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindUint
	KindInt
	KindBytes
	KindList
	KindNamed
	KindToken // a bare control token (Call, EndOfData, ...) outside a list/name frame
)

// Value is the typed data tree the TCG token stream encodes: an Integer,
// a Bytes string, a List of Values, a Name/Value pair (Named), or Empty.
// It replaces an untyped slice-of-interface{} representation with one
// that makes illegal states (a list entry that is neither atom nor list)
// unrepresentable.
type Value struct {
	kind  Kind
	u     uint64
	i     int64
	bytes []byte
	list  []Value
	name  *Value
	named *Value
	token Tag
}

// Empty is the Empty atom, used where the standard demands a value be
// present but carries no information (e.g. an omitted optional column).
var Empty = Value{kind: KindEmpty}

func Uint(v uint64) Value { return Value{kind: KindUint, u: v} }
func Int(v int64) Value   { return Value{kind: KindInt, i: v} }
func Bool(v bool) Value {
	if v {
		return Uint(1)
	}
	return Uint(0)
}

func Bytes(b []byte) Value {
	return Value{kind: KindBytes, bytes: append([]byte(nil), b...)}
}

func List(vs ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), vs...)}
}

func Named(name, value Value) Value {
	n, v := name, value
	return Value{kind: KindNamed, name: &n, named: &v}
}

// Token wraps a bare control tag (Call, EndOfData, EndOfSession,
// StartTransaction, EndTransaction) as a Value so method-call framing can
// be expressed in the same tree the rest of a method's arguments live in.
func Token(t Tag) Value {
	return Value{kind: KindToken, token: t}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Uint() (uint64, bool) {
	if v.kind != KindUint {
		return 0, false
	}
	return v.u, true
}

func (v Value) Int() (int64, bool) {
	if v.kind == KindInt {
		return v.i, true
	}
	if v.kind == KindUint {
		return int64(v.u), true
	}
	return 0, false
}

func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytes, true
}

func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

func (v Value) Named() (name, value Value, ok bool) {
	if v.kind != KindNamed {
		return Value{}, Value{}, false
	}
	return *v.name, *v.named, true
}

func (v Value) Token() (Tag, bool) {
	if v.kind != KindToken {
		return 0, false
	}
	return v.token, true
}

func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// Equal reports deep structural equality, used by tests and by callers
// matching decoded responses against expected shapes.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindEmpty:
		return true
	case KindUint:
		return v.u == o.u
	case KindInt:
		return v.i == o.i
	case KindBytes:
		return bytes.Equal(v.bytes, o.bytes)
	case KindToken:
		return v.token == o.token
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindNamed:
		return v.name.Equal(*o.name) && v.named.Equal(*o.named)
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return "Empty"
	case KindUint:
		return fmt.Sprintf("%d", v.u)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindBytes:
		return fmt.Sprintf("% x", v.bytes)
	case KindToken:
		return v.token.String()
	case KindList:
		return fmt.Sprintf("%v", v.list)
	case KindNamed:
		return fmt.Sprintf("%v=%v", *v.name, *v.named)
	}
	return "?"
}

// Encode serializes v to its token-stream bytes.
func Encode(v Value) []byte {
	switch v.kind {
	case KindEmpty:
		return EncodeControl(EmptyAtom)
	case KindUint:
		return EncodeUint(v.u)
	case KindInt:
		return EncodeInt(v.i)
	case KindBytes:
		return EncodeBytes(v.bytes)
	case KindToken:
		return EncodeControl(v.token)
	case KindList:
		var buf bytes.Buffer
		buf.Write(EncodeControl(StartList))
		for _, e := range v.list {
			buf.Write(Encode(e))
		}
		buf.Write(EncodeControl(EndList))
		return buf.Bytes()
	case KindNamed:
		var buf bytes.Buffer
		buf.Write(EncodeControl(StartName))
		buf.Write(Encode(*v.name))
		buf.Write(Encode(*v.named))
		buf.Write(EncodeControl(EndName))
		return buf.Bytes()
	}
	panic("wire: invalid Value kind")
}

// EncodeSequence serializes a top-level sequence of values back-to-back,
// with no enclosing StartList/EndList (the framing method calls, and the
// session manager stream, use for their outermost argument list).
func EncodeSequence(vs []Value) []byte {
	var buf bytes.Buffer
	for _, v := range vs {
		buf.Write(Encode(v))
	}
	return buf.Bytes()
}

// Decode parses b as a flat top-level sequence of Values, recursing into
// nested List/Named structures, and returns the sequence. Truncated atoms,
// unbalanced lists/names and trailing bytes are reported as errors.
func Decode(b []byte) ([]Value, error) {
	vs, rest, err := decodeSequence(b, Tag(0))
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("wire: %d trailing bytes after decode", len(rest))
	}
	return vs, nil
}

// closeTag is the terminator a nested decodeSequence call must see before
// it is willing to return; 0 at the top level means "none, consume
// everything". A mismatched terminator (EndName closing a list opened by
// StartList, or vice versa) is rejected rather than silently accepted.
func decodeSequence(b []byte, closeTag Tag) ([]Value, []byte, error) {
	var out []Value
	for len(b) > 0 {
		a, tag, isAtom, rest, err := DecodeAtom(b)
		if err != nil {
			return nil, nil, err
		}
		if isAtom {
			out = append(out, atomToValue(a))
			b = rest
			continue
		}
		switch tag {
		case EmptyAtom:
			// "SHALL be ignored" per 3.2.2.3.1.5.
			b = rest
		case StartList:
			inner, after, err := decodeSequence(rest, EndList)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, Value{kind: KindList, list: inner})
			b = after
		case StartName:
			pair, after, err := decodeSequence(rest, EndName)
			if err != nil {
				return nil, nil, err
			}
			if len(pair) != 2 {
				return nil, nil, fmt.Errorf("wire: name frame held %d values, want 2", len(pair))
			}
			out = append(out, Named(pair[0], pair[1]))
			b = after
		case EndList, EndName:
			if tag != closeTag {
				return nil, nil, ErrUnbalancedList
			}
			return out, rest, nil
		default:
			out = append(out, Token(tag))
			b = rest
		}
	}
	if closeTag != 0 {
		return nil, nil, ErrUnbalancedList
	}
	return out, b, nil
}

func atomToValue(a Atom) Value {
	if a.IsByte {
		return Bytes(a.Data)
	}
	if a.IsSigned {
		v, err := a.Int()
		if err != nil {
			// Integer atoms wider than 64 bits are kept as a Bytes value
			// holding their raw payload; the integer/sign flags are lost.
			return Bytes(a.Data)
		}
		return Int(v)
	}
	v, err := a.Uint()
	if err != nil {
		return Bytes(a.Data)
	}
	return Uint(v)
}
