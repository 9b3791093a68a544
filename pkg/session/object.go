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
	"github.com/tcgsed/go-sedcore/pkg/wire"
)

// ErrEmptyResult is returned when a Get/Enumerate call succeeds but its
// response carries no result, or a Get result carries no columns. An
// Enumerate of a table with no rows returns an empty slice instead.
var ErrEmptyResult = errors.New("session: empty result")

const (
	cellBlockStartColumn uint64 = 3
	cellBlockEndColumn   uint64 = 4
)

func getMethodID(s *Session) uid.UID {
	if s.IsEnterprise() {
		return uid.MethodIDEnterpriseGet
	}
	return uid.MethodIDGet
}

func setMethodID(s *Session) uid.UID {
	if s.IsEnterprise() {
		return uid.MethodIDEnterpriseSet
	}
	return uid.MethodIDSet
}

// Get retrieves a single cell from row's column. columnName is only used
// against the Enterprise SSC, which addresses columns by string name
// rather than a 0-based index.
func Get(ctx context.Context, s *Session, row uid.UID, column uint64, columnName string) (wire.Value, error) {
	vals, err := GetPartialRow(ctx, s, row, column, columnName, column, columnName)
	if err != nil {
		return wire.Value{}, err
	}
	for _, v := range vals {
		return v, nil
	}
	return wire.Value{}, ErrEmptyResult
}

// GetPartialRow retrieves the [startCol, endCol] column range of row.
func GetPartialRow(ctx context.Context, s *Session, row uid.UID, startCol uint64, startColName string, endCol uint64, endColName string) (map[string]wire.Value, error) {
	mc := method.NewMethodCall(row, getMethodID(s), s.MethodFlags())
	mc.StartList()
	mc.StartOptionalParameter(cellBlockStartColumn, "startColumn")
	if s.IsEnterprise() {
		mc.Bytes([]byte(startColName))
	} else {
		mc.Uint(startCol)
	}
	mc.EndOptionalParameter()
	mc.StartOptionalParameter(cellBlockEndColumn, "endColumn")
	if s.IsEnterprise() {
		mc.Bytes([]byte(endColName))
	} else {
		mc.Uint(endCol)
	}
	mc.EndOptionalParameter()
	mc.EndList()

	resp, err := s.ExecuteMethod(ctx, mc)
	if err != nil {
		return nil, err
	}
	return parseGetResult(resp.Results, s.IsEnterprise())
}

// GetFullRow retrieves every column of row.
func GetFullRow(ctx context.Context, s *Session, row uid.UID) (map[string]wire.Value, error) {
	mc := method.NewMethodCall(row, getMethodID(s), s.MethodFlags())
	mc.StartList()
	mc.EndList()

	resp, err := s.ExecuteMethod(ctx, mc)
	if err != nil {
		return nil, err
	}
	return parseGetResult(resp.Results, s.IsEnterprise())
}

// parseGetResult unwraps a Get response's RowValues list into a
// name-to-value map keyed by column index (as a decimal string) or
// column name, whichever the SSC used. The Enterprise SSC nests an extra
// list around the result compared to Core 2.0.
func parseGetResult(results []wire.Value, enterprise bool) (map[string]wire.Value, error) {
	if len(results) == 0 {
		return nil, ErrEmptyResult
	}
	top := results[0]
	if enterprise {
		inner, ok := top.List()
		if !ok || len(inner) == 0 {
			return nil, method.ErrMalformedResponse
		}
		top = inner[0]
	}
	rowValues, ok := top.List()
	if !ok {
		return nil, method.ErrMalformedResponse
	}
	res := map[string]wire.Value{}
	for _, v := range rowValues {
		name, val, ok := v.Named()
		if !ok {
			continue
		}
		res[columnKey(name)] = val
	}
	if len(res) == 0 {
		return nil, ErrEmptyResult
	}
	return res, nil
}

func columnKey(name wire.Value) string {
	if n, ok := name.Uint(); ok {
		return fmt.Sprintf("%d", n)
	}
	if b, ok := name.Bytes(); ok {
		return string(b)
	}
	return ""
}

// Enumerate lists every row UID in table via the Next method.
func Enumerate(ctx context.Context, s *Session, table uid.UID) ([]uid.UID, error) {
	mc := method.NewMethodCall(table, uid.MethodIDNext, s.MethodFlags())
	mc.StartList()
	mc.EndList()

	resp, err := s.ExecuteMethod(ctx, mc)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrEmptyResult
	}
	rows, ok := resp.Results[0].List()
	if !ok {
		return nil, method.ErrMalformedResponse
	}
	res := make([]uid.UID, 0, len(rows))
	for _, r := range rows {
		b, ok := r.Bytes()
		if !ok || len(b) != 8 {
			return nil, method.ErrMalformedResponse
		}
		var u uid.UID
		copy(u[:], b)
		res = append(res, u)
	}
	return res, nil
}

// NewSetCall starts a Set method invocation against row, opening the
// Values list callers append Named column/value pairs into. Pair it with
// FinishSetCall once every column has been appended.
func NewSetCall(s *Session, row uid.UID) *method.MethodCall {
	mc := method.NewMethodCall(row, setMethodID(s), s.MethodFlags())
	if s.IsEnterprise() {
		// The two leading arguments (Where, Values' outer list) are
		// required by ESet, with RowValues nested one level deeper.
		mc.StartList()
		mc.EndList()
		mc.StartList()
		mc.StartList()
	} else {
		mc.StartOptionalParameter(1, "Values")
		mc.StartList()
	}
	return mc
}

// FinishSetCall closes what NewSetCall opened.
func FinishSetCall(s *Session, mc *method.MethodCall) {
	if s.IsEnterprise() {
		mc.EndList()
		mc.EndList()
	} else {
		mc.EndList()
		mc.EndOptionalParameter()
	}
}
