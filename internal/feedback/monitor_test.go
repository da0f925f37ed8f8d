package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/tuner"
)

func newTestTuner(t *testing.T) *tuner.Tuner {
	tu := tuner.NewTuner(tuner.Config{
		TargetLatency:    100 * time.Millisecond,
		LatencyTolerance: 80 * time.Millisecond,
		ScalingInterval:  10 * time.Millisecond,
		ScalingTolerance: 0.01,
		Profile:          tuner.ProfileGradual,
		Backend:          tuner.BackendNiq,
	})
	require.NoError(t, tu.Start())
	return tu
}

func TestMonitorFixesFirstSource(t *testing.T) {
	m := NewMonitor(newTestTuner(t))
	now := time.Now()

	m.ProcessFeedback(111, LatencyMetrics{NIQLatency: 100 * time.Millisecond}, LinkMetrics{}, now)
	src, ok := m.ActiveSource()
	require.True(t, ok)
	require.Equal(t, uint32(111), src)
}

func TestMonitorIgnoresDifferentSourceDuringCooldown(t *testing.T) {
	m := NewMonitor(newTestTuner(t))
	now := time.Now()

	m.ProcessFeedback(111, LatencyMetrics{NIQLatency: 100 * time.Millisecond}, LinkMetrics{}, now)
	m.ProcessFeedback(222, LatencyMetrics{NIQLatency: 100 * time.Millisecond}, LinkMetrics{}, now.Add(10*time.Millisecond))

	src, _ := m.ActiveSource()
	require.Equal(t, uint32(111), src)
}

func TestMonitorSwitchesSourceAfterCooldown(t *testing.T) {
	m := NewMonitor(newTestTuner(t))
	now := time.Now()

	m.ProcessFeedback(111, LatencyMetrics{NIQLatency: 100 * time.Millisecond}, LinkMetrics{}, now)
	m.ProcessFeedback(222, LatencyMetrics{NIQLatency: 100 * time.Millisecond}, LinkMetrics{}, now.Add(100*time.Millisecond))

	src, _ := m.ActiveSource()
	require.Equal(t, uint32(222), src)
}

func TestMonitorResetsAfterSourceTimeout(t *testing.T) {
	m := NewMonitor(newTestTuner(t))
	m.timeout = 50 * time.Millisecond
	now := time.Now()

	m.ProcessFeedback(111, LatencyMetrics{NIQLatency: 100 * time.Millisecond}, LinkMetrics{}, now)
	m.ProcessFeedback(222, LatencyMetrics{NIQLatency: 100 * time.Millisecond}, LinkMetrics{}, now.Add(time.Second))

	src, ok := m.ActiveSource()
	require.True(t, ok)
	require.Equal(t, uint32(222), src)
}
