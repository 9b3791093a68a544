// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the engine's Prometheus instrumentation: session counts,
// promise latency, retry counts, and credit-wait stalls, as SPEC_FULL's
// ambient metrics stack requires. Each Engine gets its own set registered
// against the registry passed to NewEngine (or a private one if nil), so
// multiple engines/tests never collide on metric names.
type metrics struct {
	sessionsOpen    prometheus.Gauge
	promiseLatency  prometheus.Histogram
	retries         prometheus.Counter
	creditStalls    prometheus.Counter
	submitted       prometheus.Counter
	failed          prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &metrics{
		sessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sedcore_rpc_sessions_open",
			Help: "Number of sessions currently registered with the engine.",
		}),
		promiseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sedcore_rpc_promise_latency_seconds",
			Help:    "Time from the engine starting to process a method to its Promise resolving with a successful response.",
			Buckets: prometheus.DefBuckets,
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sedcore_rpc_receive_retries_total",
			Help: "Number of empty-response receive retries across all methods.",
		}),
		creditStalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sedcore_rpc_credit_stalls_total",
			Help: "Number of times a method had to wait for a credit to free up.",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sedcore_rpc_methods_submitted_total",
			Help: "Number of methods submitted to the engine.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sedcore_rpc_methods_failed_total",
			Help: "Number of methods whose Promise resolved with an error.",
		}),
	}
	reg.MustRegister(m.sessionsOpen, m.promiseLatency, m.retries, m.creditStalls, m.submitted, m.failed)
	return m
}
