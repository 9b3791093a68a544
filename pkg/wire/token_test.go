// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex fixture %q: %v", s, err)
	}
	return b
}

func TestTagString(t *testing.T) {
	cases := []struct {
		tag  Tag
		want string
	}{
		{StartList, "StartList"},
		{EndList, "EndList"},
		{Call, "Call"},
		{EndOfSession, "EndOfSession"},
		{EmptyAtom, "Empty"},
		{TagShortAtom, "Atom"},
	}
	for _, c := range cases {
		if got := c.tag.String(); got != c.want {
			t.Errorf("%v.String() = %q, want %q", c.tag, got, c.want)
		}
	}
}

func TestEncodeUint(t *testing.T) {
	cases := []struct {
		name string
		in   uint64
		want []byte
	}{
		{"tiny", 32, []byte{0x20}},
		{"tiny max", 63, []byte{0x3f}},
		{"short", 32768, []byte{0x82, 0x80, 0x00}},
		{"wide", 131072, []byte{0x83, 0x02, 0x00, 0x00}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EncodeUint(tc.in)
			if !bytes.Equal(got, tc.want) {
				t.Errorf("EncodeUint(%d) = % x, want % x", tc.in, got, tc.want)
			}
		})
	}
}

func TestEncodeBytes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"null", "", "A0"},
		{"tiny byte", "2F", "A1 2F"},
		{"short byte", "8F", "A1 8F"},
		{"8 bytes", "01 02 03 04 05 06 07 08", "A8 01 02 03 04 05 06 07 08"},
		{"60 bytes",
			strings.Repeat("464f4f424152", 10),
			"d03c" + strings.Repeat("464f4f424152", 10),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := hexBytes(t, tc.in)
			want := hexBytes(t, tc.want)
			if got := EncodeBytes(in); !bytes.Equal(got, want) {
				t.Errorf("EncodeBytes(%x) = %x, want %x", in, got, want)
			}
		})
	}
}

func TestDecodeAtomRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		wantData string
		isByte   bool
		isSigned bool
	}{
		{"tiny uint", "2F", "2F", false, false},
		{"short uint", "81 8F", "8F", false, false},
		{"short byte", "A1 8F", "8F", true, false},
		{"16 bytes medium", "D0 10 01 02 03 04 05 06 07 08 01 02 03 04 05 06 07 08",
			"01 02 03 04 05 06 07 08 01 02 03 04 05 06 07 08", true, false},
		{"long byte", "E2 00 00 04 01 02 03 04", "01 02 03 04", true, false},
		{"medium signed int", "C8 02 01 00", "01 00", false, true},
		{"long signed int", "E1 00 00 02 FF 00", "FF 00", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := hexBytes(t, tc.in)
			want := hexBytes(t, tc.wantData)
			a, _, isAtom, rest, err := DecodeAtom(in)
			if err != nil {
				t.Fatalf("DecodeAtom(%x) error: %v", in, err)
			}
			if !isAtom {
				t.Fatalf("DecodeAtom(%x) returned a control token", in)
			}
			if len(rest) != 0 {
				t.Errorf("DecodeAtom(%x) left %x unconsumed", in, rest)
			}
			if !bytes.Equal(a.Data, want) {
				t.Errorf("DecodeAtom(%x).Data = %x, want %x", in, a.Data, want)
			}
			if a.IsByte != tc.isByte || a.IsSigned != tc.isSigned {
				t.Errorf("DecodeAtom(%x) flags = (byte=%v signed=%v), want (byte=%v signed=%v)",
					in, a.IsByte, a.IsSigned, tc.isByte, tc.isSigned)
			}
		})
	}
}

func TestAtomMediumLongIntegerDecode(t *testing.T) {
	// These forms are the ones an earlier, incomplete decoder in this
	// codebase's lineage rejected outright; they are ordinary TCG atoms
	// and must decode to plain integers.
	medium, _, isAtom, rest, err := DecodeAtom(hexBytes(t, "C0 02 01 F4"))
	if err != nil || !isAtom || len(rest) != 0 {
		t.Fatalf("medium integer atom: got %+v, isAtom=%v, rest=%x, err=%v", medium, isAtom, rest, err)
	}
	v, err := medium.Uint()
	if err != nil || v != 0x01F4 {
		t.Errorf("medium integer value = %d, %v; want 0x1F4", v, err)
	}

	long, _, isAtom, rest, err := DecodeAtom(hexBytes(t, "E0 00 00 02 01 00"))
	if err != nil || !isAtom || len(rest) != 0 {
		t.Fatalf("long integer atom: got %+v, isAtom=%v, rest=%x, err=%v", long, isAtom, rest, err)
	}
	v, err = long.Uint()
	if err != nil || v != 0x0100 {
		t.Errorf("long integer value = %d, %v; want 0x100", v, err)
	}
}

func TestAtomSignedRoundTrip(t *testing.T) {
	for _, want := range []int64{0, 1, -1, 63, -32, 127, -128, 32767, -32768, 1 << 40, -(1 << 40)} {
		enc := EncodeInt(want)
		a, _, isAtom, rest, err := DecodeAtom(enc)
		if err != nil || !isAtom || len(rest) != 0 {
			t.Fatalf("EncodeInt(%d) -> DecodeAtom: isAtom=%v rest=%x err=%v", want, isAtom, rest, err)
		}
		got, err := a.Int()
		if err != nil {
			t.Fatalf("Int() for %d: %v", want, err)
		}
		if got != want {
			t.Errorf("round trip %d -> % x -> %d", want, enc, got)
		}
	}
}

func TestAtomUnsignedRoundTrip(t *testing.T) {
	for _, want := range []uint64{0, 1, 63, 127, 128, 255, 65535, 1 << 30, 1 << 40} {
		enc := EncodeUint(want)
		a, _, isAtom, rest, err := DecodeAtom(enc)
		if err != nil || !isAtom || len(rest) != 0 {
			t.Fatalf("EncodeUint(%d) -> DecodeAtom: isAtom=%v rest=%x err=%v", want, isAtom, rest, err)
		}
		got, err := a.Uint()
		if err != nil {
			t.Fatalf("Uint() for %d: %v", want, err)
		}
		if got != want {
			t.Errorf("round trip %d -> % x -> %d", want, enc, got)
		}
	}
}

func TestEncodeControlPanicsOnDataTag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("EncodeControl(TagShortAtom) should have panicked")
		}
	}()
	EncodeControl(TagShortAtom)
}
