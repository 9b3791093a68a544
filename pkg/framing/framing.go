// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package framing implements the TCG Storage Core SubPacket/Packet/ComPacket
// binary envelope that carries a session's token-stream payload over a
// drive's security-protocol transport.
//
// Specified in TCG Storage Architecture Core Specification Version 2.01 - Rev 1.0, section 3.2.3.
package framing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrTooLargeComPacket = errors.New("framing: ComPacket exceeds the negotiated maximum size")
	ErrTooLargePacket    = errors.New("framing: Packet exceeds the negotiated maximum size")
	ErrShortBuffer       = errors.New("framing: buffer too short to hold a header")
	ErrUnsupportedKind   = errors.New("framing: only data subpackets (kind 0) are implemented")
)

// SubPacketKindData is the only SubPacket kind this module produces;
// credit-management subpackets (kind 1) are not implemented, matching the
// credit/ack-nak Non-goal carried from spec.md. Decoding does not check the
// kind: UnmarshalComPacket returns whatever Kind each header carries.
const SubPacketKindData uint16 = 0

// SubPacket carries one contiguous run of payload bytes, padded to a
// 4-byte boundary on the wire.
type SubPacket struct {
	Kind    uint16
	Payload []byte
}

// Packet is a session's transmission unit: one or more SubPackets framed
// with the session's TSN/HSN and an optional sequence number.
type Packet struct {
	TSN             uint32
	HSN             uint32
	SeqNumber       uint32
	AckType         uint16
	Acknowledgement uint32
	SubPackets      []SubPacket
}

// ComPacket is the outermost envelope exchanged over IF-SEND/IF-RECV,
// addressed to a ComID/ComIDExt pair.
type ComPacket struct {
	ComID           uint16
	ComIDExt        uint16
	OutstandingData uint32
	MinTransfer     uint32
	Packets         []Packet
}

type comPacketHeader struct {
	Reserved        uint32
	ComID           uint16
	ComIDExt        uint16
	OutstandingData uint32
	MinTransfer     uint32
	Length          uint32
}

type packetHeader struct {
	TSN             uint32
	HSN             uint32
	SeqNumber       uint32
	Reserved        uint16
	AckType         uint16
	Acknowledgement uint32
	Length          uint32
}

type subPacketHeader struct {
	Reserved [6]byte
	Kind     uint16
	Length   uint32
}

func pad4(n int) int {
	if r := n % 4; r != 0 {
		return 4 - r
	}
	return 0
}

// MarshalBinary encodes the SubPacket including its header and trailing
// zero padding to a 4-byte boundary.
func (s SubPacket) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	hdr := subPacketHeader{Kind: s.Kind, Length: uint32(len(s.Payload))}
	if err := binary.Write(&buf, binary.BigEndian, &hdr); err != nil {
		return nil, err
	}
	buf.Write(s.Payload)
	buf.Write(make([]byte, pad4(len(s.Payload))))
	return buf.Bytes(), nil
}

func (p Packet) encodedSubPackets() ([]byte, error) {
	var buf bytes.Buffer
	for _, sp := range p.SubPackets {
		b, err := sp.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// MarshalBinary encodes the Packet header followed by its SubPackets.
// maxPacketSize is the negotiated TPerProperties/HostProperties bound
// (whichever side is about to receive it); 0 disables the check.
func (p Packet) MarshalBinary(maxPacketSize uint32) ([]byte, error) {
	body, err := p.encodedSubPackets()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	hdr := packetHeader{
		TSN:             p.TSN,
		HSN:             p.HSN,
		SeqNumber:       p.SeqNumber,
		AckType:         p.AckType,
		Acknowledgement: p.Acknowledgement,
		Length:          uint32(len(body)),
	}
	if err := binary.Write(&buf, binary.BigEndian, &hdr); err != nil {
		return nil, err
	}
	buf.Write(body)
	if maxPacketSize != 0 && uint32(buf.Len()) > maxPacketSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLargePacket, buf.Len(), maxPacketSize)
	}
	return buf.Bytes(), nil
}

// MarshalBinary encodes the full ComPacket, padding the result up to the
// next 512-byte page boundary as several drive firmwares require.
// maxComPacketSize is the negotiated bound on the wire size; 0 disables
// the check.
func (c ComPacket) MarshalBinary(maxComPacketSize, maxPacketSize uint32) ([]byte, error) {
	var body bytes.Buffer
	for _, p := range c.Packets {
		b, err := p.MarshalBinary(maxPacketSize)
		if err != nil {
			return nil, err
		}
		body.Write(b)
	}
	var buf bytes.Buffer
	hdr := comPacketHeader{
		ComID:           c.ComID,
		ComIDExt:        c.ComIDExt,
		OutstandingData: c.OutstandingData,
		MinTransfer:     c.MinTransfer,
		Length:          uint32(body.Len()),
	}
	if err := binary.Write(&buf, binary.BigEndian, &hdr); err != nil {
		return nil, err
	}
	buf.Write(body.Bytes())
	if maxComPacketSize != 0 && uint32(buf.Len()) > maxComPacketSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLargeComPacket, buf.Len(), maxComPacketSize)
	}
	if pad := 512 - buf.Len()%512; pad != 512 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes(), nil
}

// UnmarshalComPacket decodes a single ComPacket, and everything nested
// inside it, from a drive IF-RECV buffer. maxComPacketSize/maxPacketSize
// are the locally negotiated bounds the peer is expected to honor; 0
// disables the corresponding check.
func UnmarshalComPacket(b []byte, maxComPacketSize, maxPacketSize uint32) (ComPacket, error) {
	r := bytes.NewReader(b)
	var hdr comPacketHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return ComPacket{}, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	if maxComPacketSize != 0 && hdr.Length > maxComPacketSize {
		return ComPacket{}, ErrTooLargeComPacket
	}
	body := make([]byte, hdr.Length)
	if _, err := io.ReadFull(r, body); err != nil {
		return ComPacket{}, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}

	cp := ComPacket{
		ComID:           hdr.ComID,
		ComIDExt:        hdr.ComIDExt,
		OutstandingData: hdr.OutstandingData,
		MinTransfer:     hdr.MinTransfer,
	}
	for len(body) > 0 {
		p, rest, err := unmarshalPacket(body, maxPacketSize)
		if err != nil {
			return ComPacket{}, err
		}
		cp.Packets = append(cp.Packets, p)
		body = rest
	}
	return cp, nil
}

func unmarshalPacket(b []byte, maxPacketSize uint32) (Packet, []byte, error) {
	r := bytes.NewReader(b)
	var hdr packetHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return Packet{}, nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	if maxPacketSize != 0 && hdr.Length > maxPacketSize {
		return Packet{}, nil, ErrTooLargePacket
	}
	headerLen := len(b) - r.Len()
	if uint32(len(b)-headerLen) < hdr.Length {
		return Packet{}, nil, ErrShortBuffer
	}
	body := b[headerLen : headerLen+int(hdr.Length)]
	rest := b[headerLen+int(hdr.Length):]

	p := Packet{
		TSN:             hdr.TSN,
		HSN:             hdr.HSN,
		SeqNumber:       hdr.SeqNumber,
		AckType:         hdr.AckType,
		Acknowledgement: hdr.Acknowledgement,
	}
	for len(body) > 0 {
		sp, after, err := unmarshalSubPacket(body)
		if err != nil {
			return Packet{}, nil, err
		}
		p.SubPackets = append(p.SubPackets, sp)
		body = after
	}
	return p, rest, nil
}

func unmarshalSubPacket(b []byte) (SubPacket, []byte, error) {
	r := bytes.NewReader(b)
	var hdr subPacketHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return SubPacket{}, nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	headerLen := len(b) - r.Len()
	if uint32(len(b)-headerLen) < hdr.Length {
		return SubPacket{}, nil, ErrShortBuffer
	}
	payload := append([]byte(nil), b[headerLen:headerLen+int(hdr.Length)]...)
	next := headerLen + int(hdr.Length) + pad4(int(hdr.Length))
	if next > len(b) {
		next = len(b)
	}
	return SubPacket{Kind: hdr.Kind, Payload: payload}, b[next:], nil
}
