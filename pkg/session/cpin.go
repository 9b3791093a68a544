// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"

	"github.com/tcgsed/go-sedcore/pkg/method"
	"github.com/tcgsed/go-sedcore/pkg/uid"
)

// CPINInfo is a row of the Credential Table Group's C_PIN object table
// (TCG Storage Architecture Core Specification 5.3.2.12).
type CPINInfo struct {
	UID         uid.UID
	Name        *string
	CommonName  *string
	PIN         []byte
	CharSet     []byte
	TryLimit    *uint32
	Tries       *uint32
	Persistence *bool
}

// SIDCPINInfo reads the Admin SP's SID C_PIN row.
func SIDCPINInfo(ctx context.Context, s *Session) (*CPINInfo, error) {
	cols, err := GetFullRow(ctx, s, uid.AdminCPINSIDRow)
	if err != nil {
		return nil, err
	}
	row := CPINInfo{}
	for col, v := range cols {
		switch col {
		case "0", "UID":
			b, ok := v.Bytes()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			copy(row.UID[:], b)
		case "1", "Name":
			b, ok := v.Bytes()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := string(b)
			row.Name = &vv
		case "2", "CommonName":
			b, ok := v.Bytes()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := string(b)
			row.CommonName = &vv
		case "3", "PIN":
			b, ok := v.Bytes()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			row.PIN = b
		case "4", "CharSet":
			b, ok := v.Bytes()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			row.CharSet = b
		case "5", "TryLimit":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := uint32(n)
			row.TryLimit = &vv
		case "6", "Tries":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := uint32(n)
			row.Tries = &vv
		case "7", "Persistence":
			n, ok := v.Uint()
			if !ok {
				return nil, method.ErrMalformedResponse
			}
			vv := n > 0
			row.Persistence = &vv
		}
	}
	return &row, nil
}
