// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package method implements TCG Storage Core method invocation: building
// a Call token stream and parsing the status-terminated token stream a
// TPer sends back.
//
// Specified in TCG Storage Architecture Core Specification Version 2.01 - Rev 1.0, section 3.2.5.
package method

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tcgsed/go-sedcore/pkg/uid"
	"github.com/tcgsed/go-sedcore/pkg/wire"
)

// Flag alters how a MethodCall encodes its optional-parameter names.
type Flag int

const (
	// FlagOptionalAsName submits optional parameters by string name
	// instead of the Core 2.0 convention of a 0-based uinteger index;
	// some SSCs predating Core 2.0 (Enterprise) require this.
	FlagOptionalAsName Flag = 1
)

var (
	ErrMalformedResponse    = errors.New("method: response was malformed")
	ErrEmptyResponse        = errors.New("method: response was empty")
	ErrListUnbalanced       = errors.New("method: argument list is unbalanced")
	ErrUnexpectedResponse   = errors.New("method: response shape was unexpected")
)

// Status is the uinteger a TPer returns in a method response's trailing
// status list, indicating success or the specific way the method failed.
type Status uint8

const (
	StatusSuccess                  Status = 0x00
	StatusNotAuthorized            Status = 0x01
	StatusObsolete                 Status = 0x02
	StatusSPBusy                   Status = 0x03
	StatusSPFailed                 Status = 0x04
	StatusSPDisabled               Status = 0x05
	StatusSPFrozen                 Status = 0x06
	StatusNoSessionsAvailable      Status = 0x07
	StatusUniquenessConflict       Status = 0x08
	StatusInsufficientSpace        Status = 0x09
	StatusInsufficientRows         Status = 0x0A
	StatusInvalidCommand           Status = 0x0B // Core Revision 0.9 Draft
	StatusInvalidParameter         Status = 0x0C
	StatusInvalidReference         Status = 0x0D // Core Revision 0.9 Draft
	StatusInvalidSecMsgProperties  Status = 0x0E // Core Revision 0.9 Draft
	StatusTPerMalfunction          Status = 0x0F
	StatusTransactionFailure       Status = 0x10
	StatusResponseOverflow         Status = 0x11
	StatusAuthorityLockedOut       Status = 0x12
	StatusFail                     Status = 0x3F
)

var statusNames = map[Status]string{
	StatusSuccess:                 "SUCCESS",
	StatusNotAuthorized:           "NOT_AUTHORIZED",
	StatusObsolete:                "OBSOLETE",
	StatusSPBusy:                  "SP_BUSY",
	StatusSPFailed:                "SP_FAILED",
	StatusSPDisabled:              "SP_DISABLED",
	StatusSPFrozen:                "SP_FROZEN",
	StatusNoSessionsAvailable:     "NO_SESSIONS_AVAILABLE",
	StatusUniquenessConflict:      "UNIQUENESS_CONFLICT",
	StatusInsufficientSpace:       "INSUFFICIENT_SPACE",
	StatusInsufficientRows:        "INSUFFICIENT_ROWS",
	StatusInvalidCommand:          "INVALID_COMMAND",
	StatusInvalidParameter:        "INVALID_PARAMETER",
	StatusInvalidReference:        "INVALID_REFERENCE",
	StatusInvalidSecMsgProperties: "INVALID_SECMSG_PROPERTIES",
	StatusTPerMalfunction:         "TPER_MALFUNCTION",
	StatusTransactionFailure:      "TRANSACTION_FAILURE",
	StatusResponseOverflow:        "RESPONSE_OVERFLOW",
	StatusAuthorityLockedOut:      "AUTHORITY_LOCKED_OUT",
	StatusFail:                    "FAIL",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS_0x%02X", uint8(s))
}

// Err returns nil for StatusSuccess, otherwise an error naming the
// status.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return fmt.Errorf("method returned status %s", s)
}

var (
	ErrNotAuthorized       = StatusNotAuthorized.Err()
	ErrSPBusy              = StatusSPBusy.Err()
	ErrNoSessionsAvailable = StatusNoSessionsAvailable.Err()
	ErrInvalidParameter    = StatusInvalidParameter.Err()
	ErrAuthorityLockedOut  = StatusAuthorityLockedOut.Err()
)

// Call is anything that can be marshaled onto a session's wire: a normal
// method invocation (MethodCall) or the fixed EndOfSession sentinel.
type Call interface {
	MarshalBinary() ([]byte, error)
	IsEOS() bool
}

// MethodCall builds a method invocation's token stream incrementally, in
// the imperative style the underlying atom codec favors: argument lists,
// named optional parameters, and raw values are appended to an internal
// buffer as they're decided, rather than built up as a static tree.
type MethodCall struct {
	buf   bytes.Buffer
	depth int // detects unbalanced Start*/End* calls
	flags Flag
}

// NewMethodCall starts a method call addressed to invokingID, naming
// methodID, and opens its argument list.
func NewMethodCall(invokingID, methodID uid.UID, flags Flag) *MethodCall {
	m := &MethodCall{flags: flags}
	m.buf.Write(wire.EncodeControl(wire.Call))
	m.Bytes(invokingID[:])
	m.Bytes(methodID[:])
	m.StartList()
	return m
}

// Clone copies the call's current state into an independent copy, useful
// for retrying a call with small per-attempt variations.
func (m *MethodCall) Clone() *MethodCall {
	mn := &MethodCall{depth: m.depth, flags: m.flags}
	mn.buf.Write(m.buf.Bytes())
	return mn
}

func (m *MethodCall) IsEOS() bool { return false }

func (m *MethodCall) StartList() {
	m.depth++
	m.buf.Write(wire.EncodeControl(wire.StartList))
}

func (m *MethodCall) EndList() {
	m.depth--
	m.buf.Write(wire.EncodeControl(wire.EndList))
}

// StartOptionalParameter opens an optional-parameter Named group. Per
// "3.2.1.2 Method Signature Pseudo-code", the Name is a 0-based uinteger
// assigned by parameter order for Core 2.0 SSCs; flags can switch that to
// the SSC's string name instead (Enterprise predates Core 2.0 and expects
// names).
func (m *MethodCall) StartOptionalParameter(id uint64, name string) {
	m.depth++
	m.buf.Write(wire.EncodeControl(wire.StartName))
	if m.flags&FlagOptionalAsName != 0 {
		m.buf.Write(wire.EncodeBytes([]byte(name)))
	} else {
		m.buf.Write(wire.EncodeUint(id))
	}
}

func (m *MethodCall) EndOptionalParameter() {
	m.depth--
	m.buf.Write(wire.EncodeControl(wire.EndName))
}

// NamedUint appends a complete Named(name, uint) pair.
func (m *MethodCall) NamedUint(name string, val uint64) {
	m.buf.Write(wire.EncodeControl(wire.StartName))
	m.buf.Write(wire.EncodeBytes([]byte(name)))
	m.buf.Write(wire.EncodeUint(val))
	m.buf.Write(wire.EncodeControl(wire.EndName))
}

// NamedBool appends a complete Named(name, bool-as-uint) pair.
func (m *MethodCall) NamedBool(name string, val bool) {
	if val {
		m.NamedUint(name, 1)
	} else {
		m.NamedUint(name, 0)
	}
}

// Token appends a raw control tag, for the rare case a caller needs one
// outside the helpers above.
func (m *MethodCall) Token(t wire.Tag) {
	m.buf.Write(wire.EncodeControl(t))
}

// Bytes appends a bytes atom.
func (m *MethodCall) Bytes(b []byte) {
	m.buf.Write(wire.EncodeBytes(b))
}

// Uint appends an unsigned integer atom.
func (m *MethodCall) Uint(v uint64) {
	m.buf.Write(wire.EncodeUint(v))
}

// Int appends a signed integer atom.
func (m *MethodCall) Int(v int64) {
	m.buf.Write(wire.EncodeInt(v))
}

// Bool appends a bool atom (encoded as uint 0/1).
func (m *MethodCall) Bool(v bool) {
	m.Uint(map[bool]uint64{true: 1, false: 0}[v])
}

// RawBytes appends pre-encoded token bytes verbatim, for callers that
// build a sub-structure with pkg/wire directly.
func (m *MethodCall) RawBytes(b []byte) {
	m.buf.Write(b)
}

// MarshalBinary finishes the call: closes the argument list, appends
// EndOfData, and appends the (always success, all-zero) status list a
// request itself carries per the method invocation grammar.
func (m *MethodCall) MarshalBinary() ([]byte, error) {
	mn := *m
	mn.EndList()
	mn.buf.Write(wire.EncodeControl(wire.EndOfData))
	mn.StartList()
	mn.buf.Write(wire.EncodeUint(uint64(StatusSuccess)))
	mn.buf.Write(wire.EncodeUint(0))
	mn.buf.Write(wire.EncodeUint(0))
	mn.EndList()
	if mn.depth != 0 {
		return nil, ErrListUnbalanced
	}
	return mn.buf.Bytes(), nil
}

// EOSCall is the fixed EndOfSession token, closing a session's
// conversation instead of invoking a method.
type EOSCall struct{}

func (m *EOSCall) MarshalBinary() ([]byte, error) {
	return wire.EncodeControl(wire.EndOfSession), nil
}

func (m *EOSCall) IsEOS() bool { return true }

// Response is a decoded method response: the invoked method's result
// list plus the status it completed with.
type Response struct {
	Results []wire.Value
	Status  Status
}

// ParseResponse decodes the token stream a TPer sends back for a method
// call: a result list, EndOfData, and a 3-element status list whose
// first element is the method status.
func ParseResponse(data []byte) (Response, error) {
	vs, err := wire.Decode(data)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(vs) == 0 {
		return Response{}, ErrEmptyResponse
	}

	eosIdx := -1
	for i, v := range vs {
		if tag, ok := v.Token(); ok && tag == wire.EndOfData {
			eosIdx = i
			break
		}
	}
	if eosIdx == -1 || eosIdx+1 >= len(vs) {
		return Response{}, fmt.Errorf("%w: missing EndOfData marker", ErrUnexpectedResponse)
	}

	statusList, ok := vs[eosIdx+1].List()
	if !ok || len(statusList) < 1 {
		return Response{}, fmt.Errorf("%w: missing status list", ErrUnexpectedResponse)
	}
	statusVal, ok := statusList[0].Uint()
	if !ok {
		return Response{}, fmt.Errorf("%w: status is not a uinteger", ErrUnexpectedResponse)
	}

	var results []wire.Value
	if eosIdx > 0 {
		if l, ok := vs[0].List(); ok {
			results = l
		} else {
			results = vs[:eosIdx]
		}
	}
	return Response{Results: results, Status: Status(statusVal)}, nil
}
