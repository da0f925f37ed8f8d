package rtcpwire

import (
	"testing"
	"time"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtptime"
)

func TestExtendedReportRoundTrip(t *testing.T) {
	xr := ExtendedReport{
		SSRC: 0x11223344,
		RRTR: &RRTRBlock{NTPTimestamp: rtptime.EncodeNTP(time.Now())},
		DLRR: &DLRRBlock{Subblocks: []DLRRSubblock{
			{SSRC: 0xaabbccdd, LastRR: 0x01020304, DelayLastRR: 0x00010000},
		}},
		MeasurementInfo: &MeasurementInfoBlock{SSRC: 0x11223344, IncomingStreamTiming: 123456789},
		DelayMetrics: &DelayMetricsBlock{
			SSRC:        0x11223344,
			NIQLatency:  1000,
			NIQStalling: 0,
			E2ELatency:  5000,
		},
		QueueMetrics: &QueueMetricsBlock{
			SSRC:           0x11223344,
			ExtHighestSeq:  99,
			CumulativeLoss: -3,
			FractLossQ8:    12,
		},
	}

	buf := xr.Marshal()
	got, err := ParseExtendedReport(buf)
	require.NoError(t, err)

	require.Equal(t, xr.SSRC, got.SSRC)
	require.Equal(t, *xr.RRTR, *got.RRTR)
	require.Equal(t, *xr.DLRR, *got.DLRR)
	require.Equal(t, *xr.MeasurementInfo, *got.MeasurementInfo)
	require.Equal(t, *xr.DelayMetrics, *got.DelayMetrics)
	require.Equal(t, *xr.QueueMetrics, *got.QueueMetrics)
}

func TestCompoundMarshalParse(t *testing.T) {
	c := Compound{
		ReceiverReports: []*rtcp.ReceiverReport{{
			SSRC: 1,
			Reports: []rtcp.ReceptionReport{{
				SSRC:               2,
				FractionLost:       10,
				TotalLost:          5,
				LastSequenceNumber: 1000,
				Jitter:             42,
				LastSenderReport:   0x11112222,
				Delay:              0x00008000,
			}},
		}},
		SourceDescriptions: []*rtcp.SourceDescription{{
			Chunks: []rtcp.SourceDescriptionChunk{{
				Source: 1,
				Items: []rtcp.SourceDescriptionItem{{
					Type: rtcp.SDESCNAME,
					Text: "sender@roc",
				}},
			}},
		}},
		ExtendedReports: []ExtendedReport{{
			SSRC: 1,
			RRTR: &RRTRBlock{NTPTimestamp: rtptime.EncodeNTP(time.Now())},
		}},
	}

	buf, err := Marshal(c)
	require.NoError(t, err)

	got, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, got.ReceiverReports, 1)
	require.Len(t, got.SourceDescriptions, 1)
	require.Len(t, got.ExtendedReports, 1)
	require.Equal(t, uint32(2), got.ReceiverReports[0].Reports[0].SSRC)
	require.NotNil(t, got.ExtendedReports[0].RRTR)
}

func TestComputeRTT(t *testing.T) {
	sentAt := time.Unix(1000, 0)
	remoteDelay := 20 * time.Millisecond
	receivedAt := sentAt.Add(100*time.Millisecond + remoteDelay)

	rtt := ComputeRTT(sentAt, receivedAt, remoteDelay)
	require.InDelta(t, 100*time.Millisecond, rtt, float64(time.Millisecond))
}
