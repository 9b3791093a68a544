// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"context"
	"time"

	"github.com/tcgsed/go-sedcore/pkg/core"
	"github.com/tcgsed/go-sedcore/pkg/drive"
	"github.com/tcgsed/go-sedcore/pkg/framing"
)

// receivePollInterval is how long receive waits between empty-response
// retries: a TPer that hasn't finished processing a method returns an
// empty ComPacket rather than blocking the IF-RECV call.
const receivePollInterval = 50 * time.Millisecond

// transport owns the wire-level send/receive for one ComID, framing a raw
// method payload into a ComPacket and unwrapping a TPer's response the
// same way. It is addressed by TSN/HSN per call rather than owning a
// single session, since the engine's owner goroutine multiplexes many
// sessions over one ComID.
type transport struct {
	d        drive.DriveIntf
	comID    core.ComID
	comIDExt uint16
	hp       core.HostProperties
	tp       core.TPerProperties
}

func newTransport(d drive.DriveIntf, comID core.ComID, comIDExt uint16, hp core.HostProperties, tp core.TPerProperties) *transport {
	return &transport{d: d, comID: comID, comIDExt: comIDExt, hp: hp, tp: tp}
}

// send wraps payload in a single data SubPacket/Packet/ComPacket addressed
// to tsn/hsn and issues it as an IF-SEND.
func (t *transport) send(tsn, hsn uint32, payload []byte) error {
	cp := framing.ComPacket{
		ComID:    uint16(t.comID),
		ComIDExt: t.comIDExt,
		Packets: []framing.Packet{{
			TSN: tsn,
			HSN: hsn,
			SubPackets: []framing.SubPacket{
				{Kind: framing.SubPacketKindData, Payload: payload},
			},
		}},
	}
	b, err := cp.MarshalBinary(uint32(t.hp.MaxComPacketSize), uint32(t.hp.MaxPacketSize))
	if err != nil {
		return newError(KindSend, err)
	}
	if err := t.d.IFSend(drive.SecurityProtocolTCGTPer, uint16(t.comID), b); err != nil {
		return newError(KindSend, err)
	}
	return nil
}

// receive polls the TPer for a pending response on this ComID, retrying
// while it reports an empty payload, and returns the concatenated data
// subpacket payloads once one arrives. It gives up early if ctx is done.
func (t *transport) receive(ctx context.Context, m *metrics) ([]byte, error) {
	bufSize := t.tp.MaxComPacketSize
	if bufSize == 0 {
		bufSize = t.hp.MaxComPacketSize
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, newError(KindTimeout, err)
		}
		raw := make([]byte, bufSize)
		if err := t.d.IFRecv(drive.SecurityProtocolTCGTPer, uint16(t.comID), &raw); err != nil {
			return nil, newError(KindReceive, err)
		}
		cp, err := framing.UnmarshalComPacket(raw, uint32(t.hp.MaxComPacketSize), uint32(t.hp.MaxPacketSize))
		if err != nil {
			return nil, newError(KindMalformed, err)
		}
		var buf bytes.Buffer
		for _, p := range cp.Packets {
			for _, sp := range p.SubPackets {
				buf.Write(sp.Payload)
			}
		}
		if buf.Len() > 0 {
			return buf.Bytes(), nil
		}
		if m != nil {
			m.retries.Inc()
		}
		select {
		case <-time.After(receivePollInterval):
		case <-ctx.Done():
			return nil, newError(KindTimeout, ctx.Err())
		}
	}
}
