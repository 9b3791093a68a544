// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"
)

func TestValueEncodeDecodeScalars(t *testing.T) {
	cases := []struct {
		name string
		v    Value
	}{
		{"uint", Uint(42)},
		{"uint wide", Uint(1 << 20)},
		{"int negative", Int(-12345)},
		{"bytes", Bytes([]byte{1, 2, 3, 4})},
		{"empty bytes", Bytes(nil)},
		{"bool true", Bool(true)},
		{"bool false", Bool(false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := Encode(tc.v)
			got, err := Decode(enc)
			if err != nil {
				t.Fatalf("Decode(% x) error: %v", enc, err)
			}
			if len(got) != 1 {
				t.Fatalf("Decode(% x) = %d values, want 1", enc, len(got))
			}
			if !got[0].Equal(tc.v) {
				t.Errorf("round trip %v -> % x -> %v", tc.v, enc, got[0])
			}
		})
	}
}

func TestValueList(t *testing.T) {
	v := List(Uint(1), Uint(2), Bytes([]byte("hi")))
	enc := Encode(v)
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got) != 1 || !got[0].Equal(v) {
		t.Fatalf("round trip = %v, want %v", got, v)
	}
}

func TestValueNestedList(t *testing.T) {
	v := List(List(Uint(1), Uint(2)), List())
	enc := Encode(v)
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got) != 1 || !got[0].Equal(v) {
		t.Fatalf("round trip = %v, want %v", got, v)
	}
}

func TestValueNamed(t *testing.T) {
	v := Named(Uint(3), Bytes([]byte("value")))
	enc := Encode(v)
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d values", len(got))
	}
	name, value, ok := got[0].Named()
	if !ok {
		t.Fatalf("expected Named, got %v", got[0])
	}
	if n, _ := name.Uint(); n != 3 {
		t.Errorf("name = %v, want 3", name)
	}
	if b, _ := value.Bytes(); !bytes.Equal(b, []byte("value")) {
		t.Errorf("value = %v, want \"value\"", value)
	}
}

func TestValueSequenceWithControlTokens(t *testing.T) {
	// A method-call style sequence: Call <invoking id> <method id> [args] EndOfData status-list
	seq := []Value{
		Token(Call),
		Bytes([]byte{0x00, 0x00, 0x00, 0x01}),
		List(Uint(0)),
		Token(EndOfData),
		List(Uint(0), Uint(0), Uint(0)),
	}
	enc := EncodeSequence(seq)
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got) != len(seq) {
		t.Fatalf("Decode returned %d values, want %d", len(got), len(seq))
	}
	for i := range seq {
		if !got[i].Equal(seq[i]) {
			t.Errorf("value %d = %v, want %v", i, got[i], seq[i])
		}
	}
}

func TestDecodeUnbalancedList(t *testing.T) {
	if _, err := Decode([]byte{byte(EndList)}); err != ErrUnbalancedList {
		t.Errorf("Decode(bad EndList) = %v, want ErrUnbalancedList", err)
	}
	if _, err := Decode([]byte{byte(StartList)}); err == nil {
		t.Errorf("Decode(unterminated StartList) should fail")
	}
	// EndName closing a StartList frame must be rejected, not silently accepted.
	if _, err := Decode([]byte{byte(StartList), byte(EndName)}); err == nil {
		t.Errorf("Decode(mismatched terminator) should fail")
	}
}

func TestDecodeEmptyAtomIgnored(t *testing.T) {
	got, err := Decode([]byte{byte(EmptyAtom)})
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Decode(EmptyAtom) = %v, want empty sequence", got)
	}
}

func TestValueKindZeroValueIsEmpty(t *testing.T) {
	var v Value
	if v.Kind() != KindEmpty || !v.IsEmpty() {
		t.Errorf("zero Value should be Empty, got %v", v)
	}
	if !v.Equal(Empty) {
		t.Errorf("zero Value should equal Empty")
	}
}
