// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package method

import (
	"testing"

	"github.com/tcgsed/go-sedcore/pkg/uid"
	"github.com/tcgsed/go-sedcore/pkg/wire"
)

func TestStatusString(t *testing.T) {
	if StatusSuccess.String() != "SUCCESS" {
		t.Errorf("StatusSuccess.String() = %q", StatusSuccess.String())
	}
	if StatusNotAuthorized.Err() == nil {
		t.Errorf("StatusNotAuthorized.Err() should not be nil")
	}
	if StatusSuccess.Err() != nil {
		t.Errorf("StatusSuccess.Err() should be nil")
	}
	if got := Status(0x55).String(); got != "STATUS_0x55" {
		t.Errorf("unknown status string = %q", got)
	}
}

func TestMethodCallMarshalShape(t *testing.T) {
	iid := uid.InvokeIDSMU
	mid := uid.MethodIDGetACL
	m := NewMethodCall(iid, mid, 0)
	m.Uint(7)
	m.Bytes([]byte("arg"))
	b, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	vs, err := wire.Decode(b)
	if err != nil {
		t.Fatalf("wire.Decode(marshaled call): %v", err)
	}
	if len(vs) < 4 {
		t.Fatalf("decoded %d values, want at least 4 (Call, iid, mid, args, EndOfData, status)", len(vs))
	}
	tag, ok := vs[0].Token()
	if !ok || tag != wire.Call {
		t.Fatalf("first value = %v, want Call token", vs[0])
	}
	gotIID, ok := vs[1].Bytes()
	if !ok || string(gotIID) != string(iid[:]) {
		t.Errorf("invoking id = %x, want %x", gotIID, iid[:])
	}
	gotMID, ok := vs[2].Bytes()
	if !ok || string(gotMID) != string(mid[:]) {
		t.Errorf("method id = %x, want %x", gotMID, mid[:])
	}
	args, ok := vs[3].List()
	if !ok || len(args) != 2 {
		t.Fatalf("args = %v, want a 2-element list", vs[3])
	}
	if v, _ := args[0].Uint(); v != 7 {
		t.Errorf("args[0] = %v, want 7", args[0])
	}
}

func TestMethodCallUnbalancedListDetected(t *testing.T) {
	m := NewMethodCall(uid.InvokeIDSMU, uid.MethodIDGet, 0)
	m.StartList() // unmatched
	if _, err := m.MarshalBinary(); err != ErrListUnbalanced {
		t.Fatalf("MarshalBinary() err = %v, want ErrListUnbalanced", err)
	}
}

func TestStartOptionalParameterAsUintAndName(t *testing.T) {
	byIndex := NewMethodCall(uid.InvokeIDSMU, uid.MethodIDGet, 0)
	byIndex.StartOptionalParameter(0, "startRow")
	byIndex.Uint(5)
	byIndex.EndOptionalParameter()
	b, err := byIndex.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	vs, err := wire.Decode(b)
	if err != nil {
		t.Fatalf("wire.Decode: %v", err)
	}
	args, _ := vs[3].List()
	name, val, ok := args[0].Named()
	if !ok {
		t.Fatalf("expected Named optional parameter, got %v", args[0])
	}
	if n, _ := name.Uint(); n != 0 {
		t.Errorf("name = %v, want uint 0", name)
	}
	if v, _ := val.Uint(); v != 5 {
		t.Errorf("value = %v, want 5", val)
	}

	byName := NewMethodCall(uid.InvokeIDSMU, uid.MethodIDGet, FlagOptionalAsName)
	byName.StartOptionalParameter(0, "startRow")
	byName.Uint(5)
	byName.EndOptionalParameter()
	b2, err := byName.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	vs2, err := wire.Decode(b2)
	if err != nil {
		t.Fatalf("wire.Decode: %v", err)
	}
	args2, _ := vs2[3].List()
	name2, _, ok := args2[0].Named()
	if !ok {
		t.Fatalf("expected Named optional parameter, got %v", args2[0])
	}
	if nb, ok := name2.Bytes(); !ok || string(nb) != "startRow" {
		t.Errorf("name = %v, want bytes \"startRow\"", name2)
	}
}

func TestEOSCall(t *testing.T) {
	var c Call = &EOSCall{}
	if !c.IsEOS() {
		t.Errorf("EOSCall.IsEOS() should be true")
	}
	b, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(b) != 1 || wire.Tag(b[0]) != wire.EndOfSession {
		t.Errorf("MarshalBinary() = % x, want single EndOfSession byte", b)
	}
}

func TestParseResponse(t *testing.T) {
	resp := wire.EncodeSequence([]wire.Value{
		wire.List(wire.Uint(42), wire.Bytes([]byte("hi"))),
		wire.Token(wire.EndOfData),
		wire.List(wire.Uint(uint64(StatusSuccess)), wire.Uint(0), wire.Uint(0)),
	})
	got, err := ParseResponse(resp)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Status != StatusSuccess {
		t.Errorf("Status = %v, want Success", got.Status)
	}
	if len(got.Results) != 2 {
		t.Fatalf("Results = %v, want 2 elements", got.Results)
	}
	if v, _ := got.Results[0].Uint(); v != 42 {
		t.Errorf("Results[0] = %v, want 42", got.Results[0])
	}
}

func TestParseResponseFailureStatus(t *testing.T) {
	resp := wire.EncodeSequence([]wire.Value{
		wire.List(),
		wire.Token(wire.EndOfData),
		wire.List(wire.Uint(uint64(StatusNotAuthorized)), wire.Uint(0), wire.Uint(0)),
	})
	got, err := ParseResponse(resp)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Status != StatusNotAuthorized {
		t.Errorf("Status = %v, want NotAuthorized", got.Status)
	}
	if err := got.Status.Err(); err == nil {
		t.Errorf("Status.Err() should be non-nil for a failure status")
	}
}

func TestParseResponseMissingEndOfData(t *testing.T) {
	resp := wire.EncodeSequence([]wire.Value{wire.Uint(1)})
	if _, err := ParseResponse(resp); err == nil {
		t.Fatalf("expected an error for a response with no EndOfData marker")
	}
}
