// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/tcgsed/go-sedcore/pkg/method"
	"github.com/tcgsed/go-sedcore/pkg/uid"
)

// ErrAuthenticationFailed is returned by Authenticate when the TPer
// reports the supplied proof did not match.
var ErrAuthenticationFailed = errors.New("session: authentication failed")

// Random asks ThisSP for count bytes from the TPer's random number
// generator.
func Random(ctx context.Context, s *Session, count uint64) ([]byte, error) {
	mc := method.NewMethodCall(uid.InvokeIDThisSP, uid.MethodIDRandom, s.MethodFlags())
	mc.StartList()
	mc.Uint(count)
	mc.EndList()

	resp, err := s.ExecuteMethod(ctx, mc)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, method.ErrMalformedResponse
	}
	b, ok := resp.Results[0].Bytes()
	if !ok {
		return nil, method.ErrMalformedResponse
	}
	return b, nil
}

// Authenticate proves authority's identity to ThisSP with proof (a
// hashed PIN for password authorities), as used to take ownership of the
// Admin SP's SID authority or to open the Locking SP's BandMaster/Admin
// authorities.
func Authenticate(ctx context.Context, s *Session, authority uid.UID, proof []byte) error {
	authID := uid.MethodIDAuthenticate
	if s.IsEnterprise() {
		authID = uid.MethodIDEnterpriseAuthenticate
	}
	mc := method.NewMethodCall(uid.InvokeIDThisSP, authID, s.MethodFlags())
	mc.StartList()
	mc.Bytes(authority[:])
	mc.StartOptionalParameter(0, "Challenge")
	mc.Bytes(proof)
	mc.EndOptionalParameter()
	mc.EndList()

	resp, err := s.ExecuteMethod(ctx, mc)
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		return method.ErrMalformedResponse
	}
	if _, isChallenge := resp.Results[0].Bytes(); isChallenge {
		return fmt.Errorf("session: authenticate returned a challenge, not implemented")
	}
	success, ok := resp.Results[0].Uint()
	if !ok {
		return method.ErrMalformedResponse
	}
	if success == 0 {
		return ErrAuthenticationFailed
	}
	return nil
}
