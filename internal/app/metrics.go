package app

import (
	"sync/atomic"
	"time"

	"github.com/dshills/agentdeck/internal/plugin"
)

const noMin = 1<<63 - 1

// Metrics tracks render and discovery activity.
type Metrics struct {
	// Render timing
	renderCount   atomic.Uint64
	renderErrors  atomic.Uint64
	renderTotalNs atomic.Int64
	renderMinNs   atomic.Int64
	renderMaxNs   atomic.Int64
	lastRenderNs  atomic.Int64

	// Discovery
	discoveryCount  atomic.Uint64
	lastDiscoveryNs atomic.Int64
	lastLive        atomic.Int64
	lastPlaceholder atomic.Int64
	lastSkipped     atomic.Int64

	startTime atomic.Int64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.renderMinNs.Store(noMin)
	m.startTime.Store(time.Now().UnixNano())
	return m
}

// RecordRender records one render call. Failed renders count toward
// RenderErrors as well as the timings.
func (m *Metrics) RecordRender(duration time.Duration, err error) {
	ns := duration.Nanoseconds()

	m.renderCount.Add(1)
	m.renderTotalNs.Add(ns)
	m.lastRenderNs.Store(ns)
	if err != nil {
		m.renderErrors.Add(1)
	}

	for {
		old := m.renderMinNs.Load()
		if ns >= old || m.renderMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.renderMaxNs.Load()
		if ns <= old || m.renderMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordDiscovery records a discovery pass and its outcome counts.
func (m *Metrics) RecordDiscovery(duration time.Duration, report plugin.Report) {
	m.discoveryCount.Add(1)
	m.lastDiscoveryNs.Store(duration.Nanoseconds())
	m.lastLive.Store(int64(report.Live))
	m.lastPlaceholder.Store(int64(report.Placeholders))
	m.lastSkipped.Store(int64(report.Skipped))
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	renderCount := m.renderCount.Load()

	var avgRenderNs int64
	if renderCount > 0 {
		avgRenderNs = m.renderTotalNs.Load() / int64(renderCount)
	}
	minRenderNs := m.renderMinNs.Load()
	if minRenderNs == noMin {
		minRenderNs = 0
	}

	return MetricsSnapshot{
		Uptime:          time.Since(time.Unix(0, m.startTime.Load())),
		RenderCount:     renderCount,
		RenderErrors:    m.renderErrors.Load(),
		AvgRenderNs:     avgRenderNs,
		MinRenderNs:     minRenderNs,
		MaxRenderNs:     m.renderMaxNs.Load(),
		LastRenderNs:    m.lastRenderNs.Load(),
		DiscoveryCount:  m.discoveryCount.Load(),
		LastDiscoveryNs: m.lastDiscoveryNs.Load(),
		Live:            int(m.lastLive.Load()),
		Placeholders:    int(m.lastPlaceholder.Load()),
		Skipped:         int(m.lastSkipped.Load()),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.renderCount.Store(0)
	m.renderErrors.Store(0)
	m.renderTotalNs.Store(0)
	m.renderMinNs.Store(noMin)
	m.renderMaxNs.Store(0)
	m.lastRenderNs.Store(0)
	m.discoveryCount.Store(0)
	m.lastDiscoveryNs.Store(0)
	m.lastLive.Store(0)
	m.lastPlaceholder.Store(0)
	m.lastSkipped.Store(0)
	m.startTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime          time.Duration `json:"uptime"`
	RenderCount     uint64        `json:"render_count"`
	RenderErrors    uint64        `json:"render_errors"`
	AvgRenderNs     int64         `json:"avg_render_ns"`
	MinRenderNs     int64         `json:"min_render_ns"`
	MaxRenderNs     int64         `json:"max_render_ns"`
	LastRenderNs    int64         `json:"last_render_ns"`
	DiscoveryCount  uint64        `json:"discovery_count"`
	LastDiscoveryNs int64         `json:"last_discovery_ns"`
	Live            int           `json:"live"`
	Placeholders    int           `json:"placeholders"`
	Skipped         int           `json:"skipped"`
}

// ErrorRate returns the percentage of renders that failed.
func (s MetricsSnapshot) ErrorRate() float64 {
	if s.RenderCount == 0 {
		return 0
	}
	return float64(s.RenderErrors) / float64(s.RenderCount) * 100
}

// AvgRender returns the mean render time.
func (s MetricsSnapshot) AvgRender() time.Duration {
	return time.Duration(s.AvgRenderNs)
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop returns the elapsed time and resets the timer.
func (t *Timer) Stop() time.Duration {
	elapsed := t.Elapsed()
	t.start = time.Now()
	return elapsed
}
