// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/tcgsed/go-sedcore/pkg/method"
	"github.com/tcgsed/go-sedcore/pkg/uid"
	"github.com/tcgsed/go-sedcore/pkg/wire"
)

const (
	columnAdminCPINPIN          uint64 = 3
	columnAdminSPLifeCycleState uint64 = 6
)

// AdminMSIDPIN retrieves the factory-default MSID PIN from the Admin SP's
// C_PIN table: the credential every Opal/Enterprise drive ships
// authenticated against until an owner sets their own SID PIN.
func AdminMSIDPIN(ctx context.Context, s *Session) ([]byte, error) {
	val, err := Get(ctx, s, uid.AdminCPINMSIDRow, columnAdminCPINPIN, "PIN")
	if err != nil {
		return nil, err
	}
	pin, ok := val.Bytes()
	if !ok {
		return nil, fmt.Errorf("session: malformed PIN column")
	}
	return pin, nil
}

// SetSIDPIN replaces the Admin SP's SID authority PIN with hash, which
// the caller has already derived from the drive's serial number and the
// chosen password via pkg/hash.
func SetSIDPIN(ctx context.Context, s *Session, hash []byte) error {
	if len(hash) < 16 {
		return fmt.Errorf("session: password hash too short")
	}
	mc := NewSetCall(s, uid.AdminCPINSIDRow)
	mc.Token(wire.StartName)
	mc.Uint(columnAdminCPINPIN)
	mc.Bytes(hash)
	mc.Token(wire.EndName)
	FinishSetCall(s, mc)
	_, err := s.ExecuteMethod(ctx, mc)
	return err
}

// TPerInfo is the Admin SP's single TPerInfo object: GUDID, firmware and
// protocol versions, and the SSCs the TPer supports.
type TPerInfo struct {
	UID                     uid.UID
	Bytes                   *uint64
	GUDID                   *[12]byte
	Generation              *uint32
	FirmwareVersion         *uint32
	ProtocolVersion         *uint32
	SpaceForIssuance        *uint64
	SSC                     []string
	ProgrammaticResetEnable *bool
}

// AdminTPerInfo reads the Admin SP's TPerInfo row.
func AdminTPerInfo(ctx context.Context, s *Session) (*TPerInfo, error) {
	cols, err := GetFullRow(ctx, s, uid.AdminTPerInfoRow)
	if err != nil {
		return nil, err
	}
	info := &TPerInfo{}
	for col, v := range cols {
		switch col {
		case "0", "UID":
			b, ok := v.Bytes()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			copy(info.UID[:], b)
		case "1", "Bytes":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			info.Bytes = &n
		case "2", "GUDID":
			b, ok := v.Bytes()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			var g [12]byte
			copy(g[:], b)
			info.GUDID = &g
		case "3", "Generation":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := uint32(n)
			info.Generation = &vv
		case "4", "FirmwareVersion":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := uint32(n)
			info.FirmwareVersion = &vv
		case "5", "ProtocolVersion":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := uint32(n)
			info.ProtocolVersion = &vv
		case "6", "SpaceForIssuance":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			info.SpaceForIssuance = &n
		case "7", "SSC":
			list, ok := v.List()
			if !ok {
				list = []wire.Value{v}
			}
			for _, e := range list {
				b, ok := e.Bytes()
				if !ok {
					return nil, method.ErrMalformedResponse
				}
				info.SSC = append(info.SSC, string(b))
			}
		case "8", "ProgrammaticResetEnable":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := n > 0
			info.ProgrammaticResetEnable = &vv
		}
	}
	return info, nil
}

// LifeCycleState is the TCG Object Lifecycle Model state of an SP, as
// reported by the Admin SP row for that SP.
type LifeCycleState int

const (
	Issued LifeCycleState = iota
	IssuedDisabled
	IssuedFrozen
	IssuedDisabledFrozen
	IssuedFailed
	_
	_
	_
	ManufacturedInactive
	Manufactured
	ManufacturedDisabled
	ManufacturedFrozen
	ManufacturedDisabledFrozen
	ManufacturedFailed
)

func (l LifeCycleState) String() string {
	var s strings.Builder
	switch l {
	case Issued:
		s.WriteString("Issued")
	case IssuedDisabled:
		s.WriteString("Issued-Disabled")
	case IssuedFrozen:
		s.WriteString("Issued-Frozen")
	case IssuedDisabledFrozen:
		s.WriteString("Issued-DisabledFrozen")
	case IssuedFailed:
		s.WriteString("Issued-Failed")
	case ManufacturedInactive:
		s.WriteString("Manufactured-Inactive")
	case Manufactured:
		s.WriteString("Manufactured")
	case ManufacturedDisabled:
		s.WriteString("Manufactured-Disabled")
	case ManufacturedFrozen:
		s.WriteString("Manufactured-Frozen")
	case ManufacturedDisabledFrozen:
		s.WriteString("Manufactured-DisabledFrozen")
	case ManufacturedFailed:
		s.WriteString("Manufactured-Failed")
	default:
		s.WriteString(fmt.Sprintf("Unassigned(%d)", int(l)))
	}
	return s.String()
}

// AdminSPLifeCycleState reads the LifeCycleState column of the Admin SP
// row naming spID (e.g. uid.LockingSP).
func AdminSPLifeCycleState(ctx context.Context, s *Session, spID uid.UID) (LifeCycleState, error) {
	val, err := Get(ctx, s, spID, columnAdminSPLifeCycleState, "LifeCycleState")
	if err != nil {
		return -1, err
	}
	v, ok := val.Uint()
	if !ok {
		return -1, fmt.Errorf("session: malformed LifeCycleState column")
	}
	return LifeCycleState(v), nil
}
