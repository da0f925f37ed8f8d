package tuner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTunerStateMachineForwardOnly(t *testing.T) {
	cfg := Config{
		TargetLatency:    100 * time.Millisecond,
		LatencyTolerance: 50 * time.Millisecond,
		ScalingInterval:  20 * time.Millisecond,
		ScalingTolerance: 0.01,
		Profile:          ProfileGradual,
		Backend:          BackendNiq,
	}
	tu := NewTuner(cfg)
	require.Equal(t, StateUninitialized, tu.State())

	require.NoError(t, tu.Start())
	require.Equal(t, StateRunning, tu.State())

	err := tu.Start()
	require.Error(t, err)
}

func TestTunerClampsScaleWithinTolerance(t *testing.T) {
	cfg := Config{
		TargetLatency:    100 * time.Millisecond,
		LatencyTolerance: 80 * time.Millisecond,
		ScalingInterval:  10 * time.Millisecond,
		ScalingTolerance: 0.005,
		Profile:          ProfileResponsive,
		Backend:          BackendNiq,
	}
	tu := NewTuner(cfg)
	require.NoError(t, tu.Start())

	for i := 0; i < 200; i++ {
		latency := 100*time.Millisecond + time.Duration(i%5)*time.Millisecond
		err := tu.AdvanceStream(10*time.Millisecond, latency, 0)
		require.NoError(t, err)
		scale := tu.Scale()
		require.LessOrEqual(t, scale, 1+cfg.ScalingTolerance)
		require.GreaterOrEqual(t, scale, 1-cfg.ScalingTolerance)
	}
}

func TestTunerTerminatesOutOfBounds(t *testing.T) {
	cfg := Config{
		TargetLatency:    50 * time.Millisecond,
		LatencyTolerance: 10 * time.Millisecond,
		ScalingInterval:  10 * time.Millisecond,
		ScalingTolerance: 0.01,
		Profile:          ProfileGradual,
		Backend:          BackendNiq,
	}
	tu := NewTuner(cfg)
	require.NoError(t, tu.Start())

	err := tu.AdvanceStream(10*time.Millisecond, 500*time.Millisecond, 0)
	require.Error(t, err)
	require.Equal(t, StateTerminated, tu.State())
}

func TestTunerSuspendsBoundsCheckWhenStale(t *testing.T) {
	cfg := Config{
		TargetLatency:    50 * time.Millisecond,
		LatencyTolerance: 10 * time.Millisecond,
		StaleTolerance:   5 * time.Millisecond,
		ScalingInterval:  10 * time.Millisecond,
		ScalingTolerance: 0.01,
		Profile:          ProfileGradual,
		Backend:          BackendNiq,
	}
	tu := NewTuner(cfg)
	require.NoError(t, tu.Start())

	err := tu.AdvanceStream(10*time.Millisecond, 500*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, StateRunning, tu.State())
}

func TestDeduceDefaultsSenderToleranceIsDoubled(t *testing.T) {
	recv := DeduceDefaults(Config{}, 200*time.Millisecond, false)
	send := DeduceDefaults(Config{}, 200*time.Millisecond, true)

	require.Equal(t, recv.TargetLatency, send.TargetLatency)
	require.InDelta(t, float64(recv.LatencyTolerance)*2, float64(send.LatencyTolerance), float64(time.Microsecond))
}

func TestFreqEstimatorIntactBypassesFilter(t *testing.T) {
	e := NewFreqEstimator(0.1, ProfileIntact)
	for i := 0; i < 2000; i++ {
		require.Equal(t, 1.0, e.Update(0.5))
	}
}
