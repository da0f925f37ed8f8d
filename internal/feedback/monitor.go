// Package feedback implements the sender-side feedback monitor: a mirror
// of internal/tuner driven by inbound RTCP metrics rather than a locally
// measured queue depth, per spec.md section 4.11.
package feedback

import (
	"sync"
	"time"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/tuner"
)

// LatencyMetrics mirrors spec.md section 3's latency metrics struct.
type LatencyMetrics struct {
	NIQLatency  time.Duration
	NIQStalling time.Duration
	E2ELatency  time.Duration
	Jitter      time.Duration
	FractLoss   float64
	CumLoss     int64
}

// LinkMetrics carries the link-level observables accompanying a feedback
// report.
type LinkMetrics struct {
	ExtHighestSeqnum uint32
}

const defaultSourceCooldown = 50 * time.Millisecond
const defaultSourceTimeout = 1500 * time.Millisecond

// Monitor is the sender-side mirror of the latency tuner, per spec.md
// section 4.11's invariants around source-fixing and timeout.
type Monitor struct {
	mu sync.Mutex

	tuner *tuner.Tuner

	sourceID    uint32
	hasSource   bool
	lastSwitch  time.Time
	lastArrival time.Time

	cooldown time.Duration
	timeout  time.Duration
}

// NewMonitor allocates a Monitor wrapping the given tuner instance.
func NewMonitor(t *tuner.Tuner) *Monitor {
	return &Monitor{tuner: t, cooldown: defaultSourceCooldown, timeout: defaultSourceTimeout}
}

// ProcessFeedback implements the process_feedback(source_id,
// latency_metrics, link_metrics) contract.
func (m *Monitor) ProcessFeedback(sourceID uint32, lat LatencyMetrics, link LinkMetrics, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasSource && now.Sub(m.lastArrival) > m.timeout {
		m.hasSource = false
	}

	fresh := false
	if !m.hasSource {
		m.sourceID = sourceID
		m.hasSource = true
		m.lastSwitch = now
		fresh = true
	} else if sourceID != m.sourceID {
		if now.Sub(m.lastSwitch) < m.cooldown {
			return // guard against two receivers responding to one sender
		}
		m.sourceID = sourceID
		m.lastSwitch = now
	}
	elapsed := now.Sub(m.lastArrival)
	if fresh {
		elapsed = 0 // a newly fixed source starts its stream clock here
	}
	m.lastArrival = now

	if m.tuner != nil {
		_ = m.tuner.AdvanceStream(elapsed, lat.NIQLatency, lat.NIQStalling)
	}
}

// Scale returns the tuner's currently published scale factor.
func (m *Monitor) Scale() float64 {
	if m.tuner == nil {
		return 1.0
	}
	return m.tuner.Scale()
}

// ActiveSource returns the currently fixed source id, if any.
func (m *Monitor) ActiveSource() (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceID, m.hasSource
}
