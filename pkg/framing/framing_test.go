// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package framing

import (
	"bytes"
	"testing"
)

func TestSubPacketRoundTrip(t *testing.T) {
	sp := SubPacket{Kind: SubPacketKindData, Payload: []byte{1, 2, 3}}
	b, err := sp.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	// header (12 bytes) + 3 payload bytes + 1 padding byte to reach a
	// 4-byte boundary.
	if len(b) != 12+4 {
		t.Fatalf("len(b) = %d, want 16", len(b))
	}
	got, rest, err := unmarshalSubPacket(b)
	if err != nil {
		t.Fatalf("unmarshalSubPacket: %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("leftover bytes: %x", rest)
	}
	if got.Kind != sp.Kind || !bytes.Equal(got.Payload, sp.Payload) {
		t.Errorf("got %+v, want %+v", got, sp)
	}
}

func TestPacketRoundTrip(t *testing.T) {
	p := Packet{
		TSN:       1,
		HSN:       2,
		SeqNumber: 3,
		SubPackets: []SubPacket{
			{Kind: SubPacketKindData, Payload: []byte("hello")},
			{Kind: SubPacketKindData, Payload: []byte{0xaa}},
		},
	}
	b, err := p.MarshalBinary(0)
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	got, rest, err := unmarshalPacket(b, 0)
	if err != nil {
		t.Fatalf("unmarshalPacket: %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("leftover bytes: %x", rest)
	}
	if got.TSN != p.TSN || got.HSN != p.HSN || got.SeqNumber != p.SeqNumber {
		t.Errorf("header mismatch: got %+v", got)
	}
	if len(got.SubPackets) != 2 {
		t.Fatalf("got %d subpackets, want 2", len(got.SubPackets))
	}
	if !bytes.Equal(got.SubPackets[0].Payload, []byte("hello")) {
		t.Errorf("subpacket 0 = %x", got.SubPackets[0].Payload)
	}
	if !bytes.Equal(got.SubPackets[1].Payload, []byte{0xaa}) {
		t.Errorf("subpacket 1 = %x", got.SubPackets[1].Payload)
	}
}

func TestComPacketRoundTrip(t *testing.T) {
	cp := ComPacket{
		ComID:    0x0001,
		ComIDExt: 0x0002,
		Packets: []Packet{
			{
				TSN: 10, HSN: 20,
				SubPackets: []SubPacket{{Kind: SubPacketKindData, Payload: []byte("payload")}},
			},
		},
	}
	b, err := cp.MarshalBinary(0, 0)
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(b)%512 != 0 {
		t.Errorf("ComPacket not padded to 512 bytes: len=%d", len(b))
	}
	got, err := UnmarshalComPacket(b, 0, 0)
	if err != nil {
		t.Fatalf("UnmarshalComPacket: %v", err)
	}
	if got.ComID != cp.ComID || got.ComIDExt != cp.ComIDExt {
		t.Errorf("header mismatch: got %+v", got)
	}
	if len(got.Packets) != 1 || len(got.Packets[0].SubPackets) != 1 {
		t.Fatalf("got %+v", got)
	}
	if !bytes.Equal(got.Packets[0].SubPackets[0].Payload, []byte("payload")) {
		t.Errorf("payload = %x", got.Packets[0].SubPackets[0].Payload)
	}
}

func TestMarshalComPacketRejectsOversize(t *testing.T) {
	cp := ComPacket{
		ComID: 1,
		Packets: []Packet{
			{SubPackets: []SubPacket{{Kind: SubPacketKindData, Payload: make([]byte, 64)}}},
		},
	}
	if _, err := cp.MarshalBinary(32, 0); err == nil {
		t.Fatalf("expected ErrTooLargeComPacket")
	}
}

func TestMarshalPacketRejectsOversize(t *testing.T) {
	p := Packet{SubPackets: []SubPacket{{Kind: SubPacketKindData, Payload: make([]byte, 64)}}}
	if _, err := p.MarshalBinary(16); err == nil {
		t.Fatalf("expected ErrTooLargePacket")
	}
}

func TestUnmarshalComPacketTruncated(t *testing.T) {
	if _, err := UnmarshalComPacket([]byte{0, 0, 0, 0}, 0, 0); err == nil {
		t.Fatalf("expected an error decoding a truncated buffer")
	}
}
