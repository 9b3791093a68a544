// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"fmt"

	"github.com/tcgsed/go-sedcore/pkg/method"
)

// Kind classifies an Error along the send/receive axis the engine's owner
// goroutine observes a failure on, so callers can switch on it instead of
// string-matching a sentinel the way the teacher's flat errors.New values
// required.
type Kind int

const (
	KindUnknown Kind = iota
	KindSend
	KindReceive
	KindTimeout
	KindClosed
	KindAborted
	KindMalformed
	KindMethodFailed
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindReceive:
		return "receive"
	case KindTimeout:
		return "timeout"
	case KindClosed:
		return "closed"
	case KindAborted:
		return "aborted"
	case KindMalformed:
		return "malformed"
	case KindMethodFailed:
		return "method_failed"
	default:
		return "unknown"
	}
}

// Error is the one error type every rpc/session failure surfaces as, so
// callers can errors.As into it and branch on Kind (and, for
// KindMethodFailed, on Status) instead of comparing against a long list of
// package-level sentinels.
type Error struct {
	Kind   Kind
	Status method.Status // meaningful only when Kind == KindMethodFailed
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindMethodFailed {
		return fmt.Sprintf("rpc: method failed: %s", e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("rpc: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("rpc: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}

// MethodFailed wraps a non-success method Status as an Error, keeping the
// teacher's MethodStatusCodeMap-style per-status message via Status.Err().
func MethodFailed(status method.Status) *Error {
	return &Error{Kind: KindMethodFailed, Status: status, Err: status.Err()}
}

// ErrEngineClosed is returned by Submit once the engine's owner goroutine
// has exited.
var ErrEngineClosed = &Error{Kind: KindClosed, Err: fmt.Errorf("rpc: engine is closed")}
