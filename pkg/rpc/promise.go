// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"

	"github.com/tcgsed/go-sedcore/pkg/method"
)

// Outcome is what a submitted method eventually resolves to: either a
// parsed Response, or an Error describing how it failed.
type Outcome struct {
	Response method.Response
	Err      error
}

// Promise is returned by Engine.Submit immediately; the caller's session
// goroutine blocks on Wait (or reads the channel directly) once it needs
// the result, while the engine's owner goroutine keeps servicing other
// sessions' calls in the meantime.
type Promise chan Outcome

// Wait blocks until the promise resolves or ctx is done.
func (p Promise) Wait(ctx context.Context) (method.Response, error) {
	select {
	case o := <-p:
		return o.Response, o.Err
	case <-ctx.Done():
		return method.Response{}, newError(KindTimeout, ctx.Err())
	}
}
