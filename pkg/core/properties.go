// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"fmt"

	"github.com/tcgsed/go-sedcore/pkg/wire"
)

// HostProperties are the communication properties a host advertises to a
// TPer via the Properties method's HostProperties parameter.
type HostProperties struct {
	MaxMethods               uint
	MaxSubpackets            uint
	MaxPacketSize            uint
	MaxPackets               uint
	MaxComPacketSize         uint
	MaxResponseComPacketSize *uint
	MaxIndTokenSize          uint
	MaxAggTokenSize          uint
	ContinuedTokens          bool
	SequenceNumbers          bool
	AckNak                   bool
	Asynchronous             bool
}

// TPerProperties are the communication properties a TPer reports back.
type TPerProperties struct {
	MaxMethods               uint
	MaxSubpackets            uint
	MaxPacketSize            uint
	MaxPackets               uint
	MaxComPacketSize         uint
	MaxResponseComPacketSize *uint
	MaxSessions              *uint
	MaxReadSessions          *uint
	MaxIndTokenSize          uint
	MaxAggTokenSize          uint
	MaxAuthentications       *uint
	MaxTransactionLimit      *uint
	DefSessionTimeout        *uint
	MaxSessionTimeout        *uint
	MinSessionTimeout        *uint
	DefTransTimeout          *uint
	MaxTransTimeout          *uint
	MinTransTimeout          *uint
	MaxComIDTime             *uint
	ContinuedTokens          bool
	SequenceNumbers          bool
	AckNak                   bool
	Asynchronous             bool
}

// Table 168: "Communications Initial Assumptions" — the properties every
// TPer and host must assume until a Properties exchange supersedes them.
var (
	InitialTPerProperties = TPerProperties{
		MaxSubpackets:    1,
		MaxPacketSize:    1004,
		MaxPackets:       1,
		MaxComPacketSize: 1024,
		MaxIndTokenSize:  968,
		MaxAggTokenSize:  968,
		MaxMethods:       1,
	}
	InitialHostProperties = HostProperties{
		MaxSubpackets:    1,
		MaxPacketSize:    2028,
		MaxPackets:       1,
		MaxComPacketSize: 2048,
		MaxIndTokenSize:  1992,
		MaxAggTokenSize:  1992,
		MaxMethods:       1,
	}
)

// commonUint picks the smaller of two optional TPer-advertised limits,
// falling back to whichever side is actually set; used by Common to
// reconcile a restarted TPer's properties with ones already in use.
func commonUint(a, b *uint) *uint {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a < *b:
		return a
	default:
		return b
	}
}

// Common combines two TPerProperties observations (e.g. one learned from
// a ComID's control session and one just renegotiated) into the more
// conservative of the two, the way spec.md's `common(a, b)` combinator
// requires for re-negotiation support the teacher's one-shot properties()
// call never needed.
func Common(a, b TPerProperties) TPerProperties {
	min := func(x, y uint) uint {
		if x < y {
			return x
		}
		return y
	}
	return TPerProperties{
		MaxMethods:               min(a.MaxMethods, b.MaxMethods),
		MaxSubpackets:            min(a.MaxSubpackets, b.MaxSubpackets),
		MaxPacketSize:            min(a.MaxPacketSize, b.MaxPacketSize),
		MaxPackets:               min(a.MaxPackets, b.MaxPackets),
		MaxComPacketSize:         min(a.MaxComPacketSize, b.MaxComPacketSize),
		MaxResponseComPacketSize: commonUint(a.MaxResponseComPacketSize, b.MaxResponseComPacketSize),
		MaxSessions:              commonUint(a.MaxSessions, b.MaxSessions),
		MaxReadSessions:          commonUint(a.MaxReadSessions, b.MaxReadSessions),
		MaxIndTokenSize:          min(a.MaxIndTokenSize, b.MaxIndTokenSize),
		MaxAggTokenSize:          min(a.MaxAggTokenSize, b.MaxAggTokenSize),
		MaxAuthentications:       commonUint(a.MaxAuthentications, b.MaxAuthentications),
		MaxTransactionLimit:      commonUint(a.MaxTransactionLimit, b.MaxTransactionLimit),
		DefSessionTimeout:        commonUint(a.DefSessionTimeout, b.DefSessionTimeout),
		MaxSessionTimeout:        commonUint(a.MaxSessionTimeout, b.MaxSessionTimeout),
		MinSessionTimeout:        commonUint(a.MinSessionTimeout, b.MinSessionTimeout),
		DefTransTimeout:          commonUint(a.DefTransTimeout, b.DefTransTimeout),
		MaxTransTimeout:          commonUint(a.MaxTransTimeout, b.MaxTransTimeout),
		MinTransTimeout:          commonUint(a.MinTransTimeout, b.MinTransTimeout),
		MaxComIDTime:             commonUint(a.MaxComIDTime, b.MaxComIDTime),
		ContinuedTokens:          a.ContinuedTokens && b.ContinuedTokens,
		SequenceNumbers:          a.SequenceNumbers && b.SequenceNumbers,
		AckNak:                   a.AckNak && b.AckNak,
		Asynchronous:             a.Asynchronous && b.Asynchronous,
	}
}

// ParseTPerProperties fills tp from a decoded Named-pair parameter list.
func ParseTPerProperties(params []wire.Value, tp *TPerProperties) error {
	for _, p := range params {
		name, val, ok := p.Named()
		if !ok {
			continue
		}
		n, ok1 := name.Bytes()
		v, ok2 := val.Uint()
		if !ok1 || !ok2 {
			return fmt.Errorf("core: TPer properties malformed")
		}
		uv := uint(v)
		switch string(n) {
		case "MaxMethods":
			tp.MaxMethods = uv
		case "MaxSubpackets":
			tp.MaxSubpackets = uv
		case "MaxPacketSize":
			tp.MaxPacketSize = uv
		case "MaxPackets":
			tp.MaxPackets = uv
		case "MaxComPacketSize":
			tp.MaxComPacketSize = uv
		case "MaxResponseComPacketSize":
			tp.MaxResponseComPacketSize = &uv
		case "MaxSessions":
			tp.MaxSessions = &uv
		case "MaxReadSessions":
			tp.MaxReadSessions = &uv
		case "MaxIndTokenSize":
			tp.MaxIndTokenSize = uv
		case "MaxAggTokenSize":
			tp.MaxAggTokenSize = uv
		case "MaxAuthentications":
			tp.MaxAuthentications = &uv
		case "MaxTransactionLimit":
			tp.MaxTransactionLimit = &uv
		case "DefSessionTimeout":
			tp.DefSessionTimeout = &uv
		case "MaxSessionTimeout":
			tp.MaxSessionTimeout = &uv
		case "MinSessionTimeout":
			tp.MinSessionTimeout = &uv
		case "DefTransTimeout":
			tp.DefTransTimeout = &uv
		case "MaxTransTimeout":
			tp.MaxTransTimeout = &uv
		case "MinTransTimeout":
			tp.MinTransTimeout = &uv
		case "MaxComIDTime":
			tp.MaxComIDTime = &uv
		case "ContinuedTokens":
			tp.ContinuedTokens = uv > 0
		case "SequenceNumbers":
			tp.SequenceNumbers = uv > 0
		case "AckNak":
			tp.AckNak = uv > 0
		case "Asynchronous":
			tp.Asynchronous = uv > 0
		}
	}
	return nil
}

// ParseHostProperties fills hp from a decoded Named-pair parameter list.
func ParseHostProperties(params []wire.Value, hp *HostProperties) error {
	for _, p := range params {
		name, val, ok := p.Named()
		if !ok {
			continue
		}
		n, ok1 := name.Bytes()
		v, ok2 := val.Uint()
		if !ok1 || !ok2 {
			return fmt.Errorf("core: host properties malformed")
		}
		uv := uint(v)
		switch string(n) {
		case "MaxMethods":
			hp.MaxMethods = uv
		case "MaxSubpackets":
			hp.MaxSubpackets = uv
		case "MaxPacketSize":
			hp.MaxPacketSize = uv
		case "MaxPackets":
			hp.MaxPackets = uv
		case "MaxComPacketSize":
			hp.MaxComPacketSize = uv
		case "MaxResponseComPacketSize":
			hp.MaxResponseComPacketSize = &uv
		case "MaxIndTokenSize":
			hp.MaxIndTokenSize = uv
		case "MaxAggTokenSize":
			hp.MaxAggTokenSize = uv
		case "ContinuedTokens":
			hp.ContinuedTokens = uv > 0
		case "SequenceNumbers":
			hp.SequenceNumbers = uv > 0
		case "AckNak":
			hp.AckNak = uv > 0
		case "Asynchronous":
			hp.Asynchronous = uv > 0
		}
	}
	return nil
}
