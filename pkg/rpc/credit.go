// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"sync"
)

// creditSemaphore is a closeable counting semaphore guarding how many
// outstanding sub-packets the engine may have in flight when the TPer has
// negotiated AckNak/credit-based flow control (core.TPerProperties.AckNak
// && core.HostProperties.AckNak). Closing it wakes every blocked Acquire
// with an error instead of leaving them parked, per the deadlock-avoidance
// requirement on a closed engine.
type creditSemaphore struct {
	tokens chan struct{}
	closed chan struct{}
	once   sync.Once
}

func newCreditSemaphore(n int) *creditSemaphore {
	s := &creditSemaphore{
		tokens: make(chan struct{}, n),
		closed: make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

// Acquire blocks until a credit is available, ctx is done, or the
// semaphore is closed.
func (s *creditSemaphore) Acquire(ctx context.Context) error {
	select {
	case <-s.tokens:
		return nil
	case <-s.closed:
		return newError(KindClosed, nil)
	case <-ctx.Done():
		return newError(KindTimeout, ctx.Err())
	}
}

// Release returns a credit. Safe to call after Close; a credit beyond the
// semaphore's capacity is dropped.
func (s *creditSemaphore) Release() {
	select {
	case s.tokens <- struct{}{}:
	default:
	}
}

func (s *creditSemaphore) Close() {
	s.once.Do(func() { close(s.closed) })
}
