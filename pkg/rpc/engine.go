// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpc implements the method-invocation pipeline sitting between a
// session's typed API and a single device: one owner goroutine serializes
// every session's method calls over a device's ComID, matching each call
// to its response and handing the result back through a Promise. Sessions
// never touch the transport directly, so many sessions (and many
// goroutines) can share one device safely.
package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tcgsed/go-sedcore/pkg/core"
	"github.com/tcgsed/go-sedcore/pkg/drive"
	"github.com/tcgsed/go-sedcore/pkg/method"
)

// call is one session's request to invoke a method (or send EndOfSession)
// on its TSN/HSN pair, submitted to the engine's owner goroutine over
// cmdCh.
type call struct {
	tsn, hsn uint32
	method   method.Call
	ctx      context.Context
	result   chan Outcome
}

// propUpdate carries a renegotiated property pair to the owner goroutine,
// which alone is allowed to mutate the transport.
type propUpdate struct {
	hp   core.HostProperties
	tp   core.TPerProperties
	done chan struct{}
}

// Engine owns one device via a single goroutine and multiplexes every
// session sharing its ComID over that goroutine's command channel. It
// guarantees FIFO resolution of each session's own calls (a session never
// sees call N+1's response before call N's), but makes no promise about
// the relative ordering of calls submitted by different sessions.
type Engine struct {
	d        drive.DriveIntf
	comID    core.ComID
	comIDExt uint16
	hp       core.HostProperties
	tp       core.TPerProperties
	creditN  int

	transport  *transport
	credit     *creditSemaphore
	metrics    *metrics
	registerer prometheus.Registerer
	log        *logrus.Entry

	cmdCh   chan *call
	propCh  chan propUpdate
	closeCh chan struct{}
	closed  chan struct{}
	once    sync.Once

	sessionsMu sync.Mutex
	openCount  int
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

func WithComIDExt(ext uint16) EngineOption {
	return func(e *Engine) { e.comIDExt = ext }
}

func WithHostProperties(hp core.HostProperties) EngineOption {
	return func(e *Engine) { e.hp = hp }
}

func WithTPerProperties(tp core.TPerProperties) EngineOption {
	return func(e *Engine) { e.tp = tp }
}

// WithCredit sets the number of in-flight sub-packets allowed when
// AckNak flow control is negotiated by both sides (off by default,
// matching the teacher's commented-out AckNak advertisement).
func WithCredit(n int) EngineOption {
	return func(e *Engine) { e.creditN = n }
}

// WithRegisterer registers the engine's metrics against reg instead of a
// private registry, so a process running several engines can expose them
// all on one /metrics endpoint.
func WithRegisterer(reg prometheus.Registerer) EngineOption {
	return func(e *Engine) { e.registerer = reg }
}

// NewEngine starts an Engine's owner goroutine against d, addressed at
// comID, and returns once it is ready to accept Submit calls.
func NewEngine(d drive.DriveIntf, comID core.ComID, opts ...EngineOption) *Engine {
	e := &Engine{
		d:       d,
		comID:   comID,
		hp:      core.InitialHostProperties,
		tp:      core.InitialTPerProperties,
		cmdCh:   make(chan *call),
		propCh:  make(chan propUpdate),
		closeCh: make(chan struct{}),
		closed:  make(chan struct{}),
		log:     logrus.WithField("comid", comID),
	}
	for _, o := range opts {
		o(e)
	}
	e.metrics = newMetrics(e.registerer)
	e.transport = newTransport(d, comID, e.comIDExt, e.hp, e.tp)
	if e.hp.AckNak && e.tp.AckNak {
		n := e.creditN
		if n <= 0 {
			n = 1
		}
		e.credit = newCreditSemaphore(n)
	}
	go e.run()
	return e
}

// Submit hands a method call for tsn/hsn to the engine and returns a
// Promise that resolves once the call's response (or failure) is known.
// Submit does not touch the device itself, but the command channel is
// unbuffered: Submit waits until the owner goroutine takes the call, which
// happens only once the call it is processing (if any) has finished, or
// until ctx is done or the engine closes.
func (e *Engine) Submit(ctx context.Context, tsn, hsn uint32, m method.Call) (Promise, error) {
	c := &call{tsn: tsn, hsn: hsn, method: m, ctx: ctx, result: make(chan Outcome, 1)}
	e.metrics.submitted.Inc()
	select {
	case e.cmdCh <- c:
		return Promise(c.result), nil
	case <-e.closeCh:
		return nil, ErrEngineClosed
	case <-ctx.Done():
		return nil, newError(KindTimeout, ctx.Err())
	}
}

// UpdateProperties installs a renegotiated property pair, rebuilding the
// transport the owner goroutine uses for subsequent calls. The credit
// semaphore is not rebuilt: whether credit is used is fixed by NewEngine
// from the properties given as EngineOptions. It blocks until the owner
// goroutine has applied the change.
func (e *Engine) UpdateProperties(hp core.HostProperties, tp core.TPerProperties) {
	u := propUpdate{hp: hp, tp: tp, done: make(chan struct{})}
	select {
	case e.propCh <- u:
		<-u.done
	case <-e.closeCh:
	}
}

// RegisterSession/UnregisterSession track the sessionsOpen gauge; callers
// are pkg/session's ControlSession/Session constructors and Close.
func (e *Engine) RegisterSession() {
	e.sessionsMu.Lock()
	e.openCount++
	e.sessionsMu.Unlock()
	e.metrics.sessionsOpen.Inc()
}

func (e *Engine) UnregisterSession() {
	e.sessionsMu.Lock()
	e.openCount--
	e.sessionsMu.Unlock()
	e.metrics.sessionsOpen.Dec()
}

// Close stops the owner goroutine, failing any call already queued with
// ErrEngineClosed, and waits for it to exit.
func (e *Engine) Close() error {
	e.once.Do(func() {
		close(e.closeCh)
		if e.credit != nil {
			e.credit.Close()
		}
	})
	<-e.closed
	return nil
}

func (e *Engine) run() {
	defer close(e.closed)
	for {
		select {
		case c := <-e.cmdCh:
			e.process(c)
		case u := <-e.propCh:
			e.hp, e.tp = u.hp, u.tp
			e.transport = newTransport(e.d, e.comID, e.comIDExt, e.hp, e.tp)
			close(u.done)
		case <-e.closeCh:
			e.drain()
			return
		}
	}
}

// drain fails every call still queued once the engine is closing, so no
// Submit caller is left blocked on a Promise that will never resolve.
func (e *Engine) drain() {
	for {
		select {
		case c := <-e.cmdCh:
			c.result <- Outcome{Err: ErrEngineClosed}
		default:
			return
		}
	}
}

// process runs one call to completion: acquire credit (if negotiated),
// marshal and send, and — unless the call was EndOfSession — poll for
// and parse the response.
func (e *Engine) process(c *call) {
	start := time.Now()
	log := e.log.WithFields(logrus.Fields{"tsn": c.tsn, "hsn": c.hsn})

	if e.credit != nil {
		select {
		case <-e.credit.tokens:
		default:
			e.metrics.creditStalls.Inc()
			if err := e.credit.Acquire(c.ctx); err != nil {
				e.fail(c, err)
				return
			}
		}
		defer e.credit.Release()
	}

	payload, err := c.method.MarshalBinary()
	if err != nil {
		e.fail(c, newError(KindMalformed, err))
		return
	}
	if err := e.transport.send(c.tsn, c.hsn, payload); err != nil {
		log.WithError(err).Debug("send failed")
		e.fail(c, err)
		return
	}
	if c.method.IsEOS() {
		c.result <- Outcome{}
		return
	}

	raw, err := e.transport.receive(c.ctx, e.metrics)
	if err != nil {
		log.WithError(err).Debug("receive failed")
		e.fail(c, err)
		return
	}
	resp, err := method.ParseResponse(raw)
	if err != nil {
		e.fail(c, newError(KindMalformed, err))
		return
	}
	if resp.Status != method.StatusSuccess {
		e.fail(c, MethodFailed(resp.Status))
		return
	}
	e.metrics.promiseLatency.Observe(time.Since(start).Seconds())
	c.result <- Outcome{Response: resp}
}

func (e *Engine) fail(c *call, err error) {
	e.metrics.failed.Inc()
	c.result <- Outcome{Err: err}
}
