// Package metrics exposes pricing activity as prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder groups the pricing collectors. A nil *Recorder records nothing.
type Recorder struct {
	samples       *prometheus.CounterVec
	calibrations  *prometheus.CounterVec
	skippedDates  prometheus.Counter
	failures      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	errorEstimate prometheus.Gauge
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		samples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lsmc_samples_total",
				Help: "Monte Carlo samples drawn, by phase",
			},
			[]string{"phase"},
		),
		calibrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lsmc_calibrations_total",
				Help: "Regression calibration passes, by exercise style",
			},
			[]string{"style"},
		),
		skippedDates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lsmc_calibration_skipped_dates_total",
				Help: "Exercise dates left without a regression because too few paths were in the money",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lsmc_pricing_failures_total",
				Help: "Pricing requests that failed, by reason",
			},
			[]string{"reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lsmc_pricing_duration_seconds",
				Help:    "Wall time of one pricing request",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"style"},
		),
		errorEstimate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lsmc_last_error_estimate",
				Help: "Standard error of the most recent price",
			},
		),
	}
	for _, c := range []prometheus.Collector{r.samples, r.calibrations, r.skippedDates, r.failures, r.duration, r.errorEstimate} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Samples counts samples drawn in a phase ("calibration" or "pricing").
func (r *Recorder) Samples(phase string, n int) {
	if r == nil {
		return
	}
	r.samples.WithLabelValues(phase).Add(float64(n))
}

// Calibration records one calibration pass.
func (r *Recorder) Calibration(style string, skipped int) {
	if r == nil {
		return
	}
	r.calibrations.WithLabelValues(style).Inc()
	r.skippedDates.Add(float64(skipped))
}

// Failure records a failed request.
func (r *Recorder) Failure(reason string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(reason).Inc()
}

// Priced records a successful request.
func (r *Recorder) Priced(style string, elapsed time.Duration, errorEstimate float64) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(style).Observe(elapsed.Seconds())
	r.errorEstimate.Set(errorEstimate)
}
