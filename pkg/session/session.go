// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session implements the TCG Storage Core session layer: the
// control-session Properties/StartSession handshake and the SP sessions
// it opens, built entirely on top of pkg/rpc's engine rather than talking
// to a device directly.
package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tcgsed/go-sedcore/pkg/core"
	"github.com/tcgsed/go-sedcore/pkg/core/feature"
	"github.com/tcgsed/go-sedcore/pkg/method"
	"github.com/tcgsed/go-sedcore/pkg/rpc"
	"github.com/tcgsed/go-sedcore/pkg/uid"
)

// defaultReceiveTimeout bounds how long a call waits for the TPer to
// answer before its context is cancelled.
const defaultReceiveTimeout = 10 * time.Second

type options struct {
	receiveTimeout time.Duration
	hostProps      *core.HostProperties
}

// Option configures a ControlSession at construction time.
type Option func(*options)

// WithReceiveTimeout overrides the default per-call receive timeout.
func WithReceiveTimeout(d time.Duration) Option {
	return func(o *options) { o.receiveTimeout = d }
}

// WithHostProperties overrides the host communication properties
// advertised during the Properties exchange (core.InitialHostProperties
// by default).
func WithHostProperties(hp core.HostProperties) Option {
	return func(o *options) { o.hostProps = &hp }
}

// ControlSession is the session-manager conversation (TSN=HSN=0) used to
// negotiate communication Properties once per ComID and to open SP
// sessions on it (an SP session is closed through its own Session.Close).
type ControlSession struct {
	eng            *rpc.Engine
	methodFlags    method.Flag
	hostProps      core.HostProperties
	tperProps      core.TPerProperties
	receiveTimeout time.Duration
	hsnCounter     uint32
}

// NewControlSession negotiates Properties against eng and picks the
// method-argument convention (0-based index vs. the Enterprise SSC's
// string names) from the drive's primary SSC, as reported by a prior
// Level 0 Discovery.
func NewControlSession(ctx context.Context, eng *rpc.Engine, d0 *core.Level0Discovery, opts ...Option) (*ControlSession, error) {
	o := options{receiveTimeout: defaultReceiveTimeout}
	for _, f := range opts {
		f(&o)
	}
	hp := core.InitialHostProperties
	if o.hostProps != nil {
		hp = *o.hostProps
	}
	cs := &ControlSession{eng: eng, hostProps: hp, receiveTimeout: o.receiveTimeout}
	if ssc, ok := d0.PrimarySSC(); ok && ssc == feature.CodeEnterprise {
		cs.methodFlags = method.FlagOptionalAsName
	}

	tp, err := cs.negotiateProperties(ctx, hp)
	if err != nil {
		return nil, fmt.Errorf("session: properties exchange failed: %w", err)
	}
	cs.tperProps = tp
	eng.UpdateProperties(hp, tp)
	return cs, nil
}

// TPerProperties returns the properties last negotiated with the TPer.
func (cs *ControlSession) TPerProperties() core.TPerProperties { return cs.tperProps }

func (cs *ControlSession) negotiateProperties(ctx context.Context, hp core.HostProperties) (core.TPerProperties, error) {
	mc := method.NewMethodCall(uid.InvokeIDSMU, uid.MethodIDProperties, cs.methodFlags)
	mc.StartList()
	mc.StartOptionalParameter(0, "HostProperties")
	mc.StartList()
	mc.NamedUint("MaxMethods", uint64(hp.MaxMethods))
	mc.NamedUint("MaxSubpackets", uint64(hp.MaxSubpackets))
	mc.NamedUint("MaxPacketSize", uint64(hp.MaxPacketSize))
	mc.NamedUint("MaxPackets", uint64(hp.MaxPackets))
	mc.NamedUint("MaxComPacketSize", uint64(hp.MaxComPacketSize))
	mc.NamedUint("MaxIndTokenSize", uint64(hp.MaxIndTokenSize))
	mc.NamedUint("MaxAggTokenSize", uint64(hp.MaxAggTokenSize))
	mc.NamedBool("ContinuedTokens", hp.ContinuedTokens)
	mc.NamedBool("SequenceNumbers", hp.SequenceNumbers)
	mc.NamedBool("AckNak", hp.AckNak)
	mc.NamedBool("Asynchronous", hp.Asynchronous)
	mc.EndList()
	mc.EndOptionalParameter()
	mc.EndList()

	resp, err := cs.execute(ctx, mc)
	if err != nil {
		return core.TPerProperties{}, err
	}
	tp := core.InitialTPerProperties
	if len(resp.Results) == 0 {
		return tp, nil
	}
	// The TPer nests its own properties as the first optional parameter,
	// mirroring the shape of the request.
	params, ok := resp.Results[0].List()
	if !ok {
		params = resp.Results
	}
	if err := core.ParseTPerProperties(params, &tp); err != nil {
		return core.TPerProperties{}, err
	}
	return tp, nil
}

// execute submits mc on the control session's TSN/HSN (0, 0) and waits
// for its response.
func (cs *ControlSession) execute(ctx context.Context, mc *method.MethodCall) (method.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, cs.receiveTimeout)
	defer cancel()
	p, err := cs.eng.Submit(ctx, 0, 0, mc)
	if err != nil {
		return method.Response{}, err
	}
	return p.Wait(ctx)
}

// Session is an open conversation with an SP, addressed by the TSN the
// TPer assigned when the session started.
type Session struct {
	cs     *ControlSession
	tsn    uint32
	hsn    uint32
	closed int32
}

// Start opens an SP session against sp. If proof is non-empty, the
// StartSession call carries proof as HostChallenge and authority as
// HostSigningAuthority, authenticating inline rather than via a separate
// Authenticate call; with an empty proof, authority is not sent.
func (cs *ControlSession) Start(ctx context.Context, sp uid.UID, write bool, authority uid.UID, proof []byte) (*Session, error) {
	hsn := atomic.AddUint32(&cs.hsnCounter, 1)

	mc := method.NewMethodCall(uid.InvokeIDSMU, uid.MethodIDStartSession, cs.methodFlags)
	mc.Uint(uint64(hsn))
	mc.Bytes(sp[:])
	mc.Bool(write)
	if len(proof) > 0 {
		mc.StartOptionalParameter(3, "HostChallenge")
		mc.Bytes(proof)
		mc.EndOptionalParameter()
		mc.StartOptionalParameter(4, "HostSigningAuthority")
		mc.Bytes(authority[:])
		mc.EndOptionalParameter()
	}

	resp, err := cs.execute(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("session: StartSession failed: %w", err)
	}
	if len(resp.Results) < 2 {
		return nil, fmt.Errorf("session: malformed StartSession response")
	}
	rhsn, ok := resp.Results[0].Uint()
	if !ok || uint32(rhsn) != hsn {
		return nil, fmt.Errorf("session: StartSession acknowledged an unexpected HSN")
	}
	tsn, ok := resp.Results[1].Uint()
	if !ok {
		return nil, fmt.Errorf("session: StartSession response is missing SPSessionID")
	}

	s := &Session{cs: cs, tsn: uint32(tsn), hsn: hsn}
	cs.eng.RegisterSession()
	return s, nil
}

// MethodFlags reports the argument-naming convention this session's SSC
// expects (set once, at control-session construction, from discovery).
func (s *Session) MethodFlags() method.Flag { return s.cs.methodFlags }

// IsEnterprise reports whether this session's SSC is the Enterprise SSC,
// which predates Core 2.0 and uses a distinct method UID set and
// string-keyed optional parameters instead of numeric indices.
func (s *Session) IsEnterprise() bool {
	return s.cs.methodFlags&method.FlagOptionalAsName != 0
}

// ExecuteMethod submits mc on this session's TSN/HSN and waits for its
// response.
func (s *Session) ExecuteMethod(ctx context.Context, mc *method.MethodCall) (method.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cs.receiveTimeout)
	defer cancel()
	p, err := s.cs.eng.Submit(ctx, s.tsn, s.hsn, mc)
	if err != nil {
		return method.Response{}, err
	}
	return p.Wait(ctx)
}

// Close sends EndOfSession and releases the session's slot in the
// engine's session count. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	defer s.cs.eng.UnregisterSession()
	p, err := s.cs.eng.Submit(ctx, s.tsn, s.hsn, &method.EOSCall{})
	if err != nil {
		return err
	}
	_, err = p.Wait(ctx)
	return err
}
