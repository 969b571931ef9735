// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package metrics exports frame slot metrics to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gviegas/vstream/frameslot"
)

const namespace = "vstream"

// Frame collects frame slot metrics.
// It implements frameslot.Observer.
type Frame struct {
	InFlight  prometheus.Gauge
	Submitted prometheus.Counter
	Released  *prometheus.CounterVec
	Wait      prometheus.Histogram
}

// Release outcomes.
const (
	OutcomePresented = "presented"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

// NewFrame creates the frame metrics and registers them
// with reg.
func NewFrame(reg prometheus.Registerer) *Frame {
	f := promauto.With(reg)
	return &Frame{
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots_in_use",
			Help:      "Frame slots acquired and not yet released.",
		}),
		Submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_submitted_total",
			Help:      "Frames submitted.",
		}),
		Released: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_released_total",
			Help:      "Frame slots released, by outcome.",
		}, []string{"outcome"}),
		Wait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slot_wait_seconds",
			Help:      "Time spent waiting for a free frame slot.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// SlotAcquired implements frameslot.Observer.
func (f *Frame) SlotAcquired(_ frameslot.Slot, wait time.Duration) {
	f.InFlight.Inc()
	f.Wait.Observe(wait.Seconds())
}

// SlotSubmitted implements frameslot.Observer.
func (f *Frame) SlotSubmitted(frameslot.Slot) { f.Submitted.Inc() }

// SlotReleased implements frameslot.Observer.
func (f *Frame) SlotReleased(_ frameslot.Slot, err error) {
	f.InFlight.Dec()
	outcome := OutcomePresented
	switch {
	case errors.Is(err, frameslot.ErrDropped):
		outcome = OutcomeDropped
	case err != nil:
		outcome = OutcomeFailed
	}
	f.Released.WithLabelValues(outcome).Inc()
}

// NewServer creates a server that exposes the metrics
// gathered by g on /metrics.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
