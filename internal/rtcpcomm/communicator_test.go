package rtcpcomm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/feedback"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/tuner"
)

func TestCommunicatorBuildsSenderReport(t *testing.T) {
	c := NewCommunicator(RoleSender, 0)
	buf, err := c.BuildReport(LocalMetrics{
		SSRC:        1,
		CNAME:       "sender-cname",
		PacketCount: 10,
		OctetCount:  2000,
		RemoteSSRC:  2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, buf)
}

func TestCommunicatorBuildsReceiverReport(t *testing.T) {
	c := NewCommunicator(RoleReceiver, 0)
	buf, err := c.BuildReport(LocalMetrics{
		SSRC:             2,
		CNAME:            "receiver-cname",
		RemoteSSRC:       1,
		FractLoss:        5,
		CumLoss:          12,
		ExtHighestSeqnum: 1000,
		Jitter:           40,
	})
	require.NoError(t, err)
	require.NotEmpty(t, buf)
}

func TestCommunicatorRoundTripSenderToReceiver(t *testing.T) {
	sender := NewCommunicator(RoleSender, 0)
	receiver := NewCommunicator(RoleReceiver, 0)

	report, err := sender.BuildReport(LocalMetrics{SSRC: 1, CNAME: "sender", PacketCount: 5, OctetCount: 800, RemoteSSRC: 2})
	require.NoError(t, err)
	require.NoError(t, receiver.HandleInbound(report))

	report2, err := receiver.BuildReport(LocalMetrics{SSRC: 2, CNAME: "receiver", RemoteSSRC: 1, ExtHighestSeqnum: 500})
	require.NoError(t, err)
	require.NoError(t, sender.HandleInbound(report2))
}

func TestCommunicatorDrivesAttachedMonitor(t *testing.T) {
	tu := tuner.NewTuner(tuner.Config{
		TargetLatency:    100 * time.Millisecond,
		LatencyTolerance: 80 * time.Millisecond,
		ScalingInterval:  10 * time.Millisecond,
		ScalingTolerance: 0.01,
		Profile:          tuner.ProfileGradual,
		Backend:          tuner.BackendNiq,
	})
	require.NoError(t, tu.Start())
	monitor := feedback.NewMonitor(tu)

	sender := NewCommunicator(RoleSender, 0)
	sender.AttachMonitor(monitor)

	receiver := NewCommunicator(RoleReceiver, 0)
	report, err := receiver.BuildReport(LocalMetrics{
		SSRC:        2,
		CNAME:       "receiver",
		RemoteSSRC:  1,
		NIQLatency:  100 * time.Millisecond,
		NIQStalling: 0,
	})
	require.NoError(t, err)
	require.NoError(t, sender.HandleInbound(report))

	src, ok := monitor.ActiveSource()
	require.True(t, ok)
	require.Equal(t, uint32(2), src)
}

func TestShouldReportRespectsRateLimit(t *testing.T) {
	c := NewCommunicator(RoleSender, time.Hour)
	require.True(t, c.ShouldReport())
	require.False(t, c.ShouldReport())
}

func TestJitterDurationStaysWithinHalfPeriod(t *testing.T) {
	period := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		j := JitterDuration(period)
		require.GreaterOrEqual(t, j, time.Duration(0))
		require.Less(t, j, period/2)
	}
}
