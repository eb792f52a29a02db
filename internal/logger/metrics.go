// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logger

import (
	"fmt"

	"github.com/matt-FFFFFF/fanout/internal/progress"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fanout"

var _ Logger = (*Metrics)(nil)

// Metrics counts run events in a prometheus registry and forwards them to the next logger.
type Metrics struct {
	next     Logger
	registry *prometheus.Registry

	itemsExpected    prometheus.Gauge
	itemsCompleted   prometheus.Counter
	itemsFailed      prometheus.Counter
	unexpectedOutput prometheus.Counter
	workersStarted   prometheus.Counter
	workersRunning   prometheus.Gauge
	workersFinished  prometheus.Counter
	configuredWorker prometheus.Gauge
}

// NewMetrics registers the run metrics in a fresh registry. A nil next logger means Nop.
func NewMetrics(next Logger) *Metrics {
	if next == nil {
		next = Nop{}
	}

	m := &Metrics{
		next:     next,
		registry: prometheus.NewRegistry(),
		itemsExpected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "items_expected",
			Help:      "Number of items the run expects to process.",
		}),
		itemsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "items_completed_total",
			Help:      "Number of items reported as completed.",
		}),
		itemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "items_failed_total",
			Help:      "Number of items whose processing failed in this process.",
		}),
		unexpectedOutput: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unexpected_output_total",
			Help:      "Number of worker output chunks that were not only progress symbols.",
		}),
		workersStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "workers_started_total",
			Help:      "Number of worker processes started.",
		}),
		workersRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "workers_running",
			Help:      "Number of worker processes currently running.",
		}),
		workersFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "workers_finished_total",
			Help:      "Number of worker processes reaped.",
		}),
		configuredWorker: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "workers_configured",
			Help:      "Worker ceiling of the run.",
		}),
	}

	m.registry.MustRegister(
		m.itemsExpected,
		m.itemsCompleted,
		m.itemsFailed,
		m.unexpectedOutput,
		m.workersStarted,
		m.workersRunning,
		m.workersFinished,
		m.configuredWorker,
	)

	return m
}

// Registry exposes the registry, for tests and for serving the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}

	return nil
}

// LogConfiguration implements Logger.
func (m *Metrics) LogConfiguration(summary progress.Summary) {
	m.configuredWorker.Set(float64(summary.Workers))
	m.next.LogConfiguration(summary)
}

// StartProgress implements Logger.
func (m *Metrics) StartProgress(total int) {
	m.itemsExpected.Set(float64(total))
	m.next.StartProgress(total)
}

// Advance implements Logger.
func (m *Metrics) Advance(steps int) {
	if steps > 0 {
		m.itemsCompleted.Add(float64(steps))
	}

	m.next.Advance(steps)
}

// Finish implements Logger.
func (m *Metrics) Finish(itemNoun string) {
	m.next.Finish(itemNoun)
}

// LogItemProcessingFailed implements Logger.
func (m *Metrics) LogItemProcessingFailed(item string, err error) {
	m.itemsFailed.Inc()
	m.next.LogItemProcessingFailed(item, err)
}

// LogUnexpectedOutput implements Logger.
func (m *Metrics) LogUnexpectedOutput(output, progressSymbol string) {
	m.unexpectedOutput.Inc()
	m.next.LogUnexpectedOutput(output, progressSymbol)
}

// LogCommandStarted implements Logger.
func (m *Metrics) LogCommandStarted(commandLine string) {
	m.workersStarted.Inc()
	m.workersRunning.Inc()
	m.next.LogCommandStarted(commandLine)
}

// LogCommandFinished implements Logger.
func (m *Metrics) LogCommandFinished() {
	m.workersFinished.Inc()
	m.workersRunning.Dec()
	m.next.LogCommandFinished()
}
