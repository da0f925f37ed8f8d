// Package rtcpcomm implements the RTCP communicator of spec.md section
// 4.12: periodic compound report generation, inbound report dispatch, a
// local participant table, and RTT computation, grounded on gortsplib's
// pkg/rtpsender/pkg/rtpreceiver for the periodic-ticker-plus-mutex shape
// and on pkg/rtcpwire for the wire model.
package rtcpcomm

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pion/rtcp"

	"github.com/roc-streaming/roc-toolkit-sub001/internal/ccr"
	"github.com/roc-streaming/roc-toolkit-sub001/internal/feedback"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtcpwire"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtptime"
)

// Role distinguishes a data-sending participant from a data-receiving one;
// either may also run XR measurement-info/delay-metrics/queue-metrics.
type Role int

// Supported roles.
const (
	RoleSender Role = iota
	RoleReceiver
)

// LocalMetrics is the snapshot of local state the communicator serializes
// into outbound reports.
type LocalMetrics struct {
	SSRC        uint32
	CNAME       string
	PacketCount uint32
	OctetCount  uint32

	RemoteSSRC       uint32 // 0 if none
	FractLoss        uint8
	CumLoss          int32
	ExtHighestSeqnum uint32
	Jitter           uint32

	NIQLatency  time.Duration
	NIQStalling time.Duration
	E2ELatency  time.Duration
}

// participant is one remote source this communicator has heard from.
type participant struct {
	ssrc        uint32
	lastSRSent  time.Time
	lastSRNTP   uint64
	lastRRTRSent time.Time
	lastRRTRNTP  uint64
}

// Communicator runs on both sender and receiver, building and consuming
// periodic compound RTCP packets on a jittered rate-limited schedule.
type Communicator struct {
	role    Role
	limiter *ccr.RateLimiter
	timeNow func() time.Time

	mu           sync.Mutex
	participants map[uint32]*participant
	monitor      *feedback.Monitor

	rttSamples map[uint32]time.Duration
}

// NewCommunicator allocates a Communicator with the given base report
// period (jitter is applied by the caller's scheduling loop, per spec.md's
// "driven by a rate limiter with jitter").
func NewCommunicator(role Role, period time.Duration) *Communicator {
	return &Communicator{
		role:         role,
		limiter:      ccr.NewRateLimiter(period),
		timeNow:      time.Now,
		participants: make(map[uint32]*participant),
		rttSamples:   make(map[uint32]time.Duration),
	}
}

// AttachMonitor wires a sender-side feedback.Monitor so inbound reports
// drive process_feedback, per spec.md section 4.12's closing sentence.
func (c *Communicator) AttachMonitor(m *feedback.Monitor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monitor = m
}

// ShouldReport reports whether it is time to build and send a report,
// consuming the rate limiter's token if so. Callers add their own jitter
// before calling this on a loop.
func (c *Communicator) ShouldReport() bool {
	return c.limiter.Allow()
}

// BuildReport assembles the compound packet appropriate to this
// communicator's role, per spec.md section 4.12.
func (c *Communicator) BuildReport(m LocalMetrics) ([]byte, error) {
	now := c.timeNow()
	c.mu.Lock()
	defer c.mu.Unlock()

	compound := rtcpwire.Compound{
		SourceDescriptions: []*rtcp.SourceDescription{{
			Chunks: []rtcp.SourceDescriptionChunk{{
				Source: m.SSRC,
				Items: []rtcp.SourceDescriptionItem{
					{Type: rtcp.SDESCNAME, Text: m.CNAME},
				},
			}},
		}},
	}

	switch c.role {
	case RoleSender:
		sr := &rtcp.SenderReport{
			SSRC:        m.SSRC,
			NTPTime:     rtptime.EncodeNTP(now),
			RTPTime:     0,
			PacketCount: m.PacketCount,
			OctetCount:  m.OctetCount,
		}
		compound.SenderReports = append(compound.SenderReports, sr)

		if p, ok := c.participants[m.RemoteSSRC]; ok {
			p.lastSRSent = now
			p.lastSRNTP = sr.NTPTime
		} else if m.RemoteSSRC != 0 {
			c.participants[m.RemoteSSRC] = &participant{ssrc: m.RemoteSSRC, lastSRSent: now, lastSRNTP: sr.NTPTime}
		}

	case RoleReceiver:
		if m.RemoteSSRC != 0 {
			rr := &rtcp.ReceiverReport{
				SSRC: m.SSRC,
				Reports: []rtcp.ReceptionReport{{
					SSRC:               m.RemoteSSRC,
					FractionLost:       m.FractLoss,
					TotalLost:          uint32(m.CumLoss),
					LastSequenceNumber: m.ExtHighestSeqnum,
					Jitter:             m.Jitter,
				}},
			}
			if p, ok := c.participants[m.RemoteSSRC]; ok && !p.lastSRSent.IsZero() {
				rr.Reports[0].LastSenderReport = rtptime.MiddleNTP(p.lastSRNTP)
				rr.Reports[0].Delay = rtptime.EncodeDelaySince(now.Sub(p.lastSRSent))
			}
			compound.ReceiverReports = append(compound.ReceiverReports, rr)
		}

		rrtrNTP := rtptime.EncodeNTP(now)
		xr := rtcpwire.ExtendedReport{
			SSRC: m.SSRC,
			RRTR: &rtcpwire.RRTRBlock{NTPTimestamp: rrtrNTP},
		}
		if p, ok := c.participants[m.RemoteSSRC]; ok {
			p.lastRRTRSent = now
			p.lastRRTRNTP = rrtrNTP
		} else if m.RemoteSSRC != 0 {
			c.participants[m.RemoteSSRC] = &participant{ssrc: m.RemoteSSRC, lastRRTRSent: now, lastRRTRNTP: rrtrNTP}
		}
		compound.ExtendedReports = append(compound.ExtendedReports, xr)
	}

	xr := rtcpwire.ExtendedReport{
		SSRC:            m.SSRC,
		MeasurementInfo: &rtcpwire.MeasurementInfoBlock{SSRC: m.SSRC, IncomingStreamTiming: rtptime.EncodeNTP(now)},
		DelayMetrics: &rtcpwire.DelayMetricsBlock{
			SSRC:        m.SSRC,
			NIQLatency:  rtptime.EncodeDelaySince(m.NIQLatency),
			NIQStalling: rtptime.EncodeDelaySince(m.NIQStalling),
			E2ELatency:  rtptime.EncodeDelaySince(m.E2ELatency),
		},
		QueueMetrics: &rtcpwire.QueueMetricsBlock{
			SSRC:           m.SSRC,
			ExtHighestSeq:  m.ExtHighestSeqnum,
			CumulativeLoss: m.CumLoss,
			FractLossQ8:    m.FractLoss,
		},
	}
	compound.ExtendedReports = append(compound.ExtendedReports, xr)

	return rtcpwire.Marshal(compound)
}

// HandleInbound parses an inbound compound packet, updates the
// participant table, computes RTT where possible, and drives the attached
// feedback monitor.
func (c *Communicator) HandleInbound(buf []byte) error {
	now := c.timeNow()
	parsed, err := rtcpwire.Parse(buf)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// For a remote sender, lastSRNTP/lastSRSent hold its report's NTP time
	// and the local arrival time, which BuildReport echoes as LSR/DLSR.
	for _, sr := range parsed.SenderReports {
		p, ok := c.participants[sr.SSRC]
		if !ok {
			p = &participant{ssrc: sr.SSRC}
			c.participants[sr.SSRC] = p
		}
		p.lastSRSent = now
		p.lastSRNTP = sr.NTPTime
	}

	for _, rr := range parsed.ReceiverReports {
		for _, block := range rr.Reports {
			p, ok := c.participants[rr.SSRC]
			if !ok || p.lastSRNTP == 0 {
				continue
			}
			sentNTPMiddle := rtptime.MiddleNTP(p.lastSRNTP)
			if sentNTPMiddle != block.LastSenderReport {
				continue
			}
			delay := rtptime.DecodeDelaySince(block.Delay)
			rtt := rtcpwire.ComputeRTT(p.lastSRSent, now, delay)
			c.rttSamples[rr.SSRC] = rtt
		}
	}

	for _, xr := range parsed.ExtendedReports {
		if xr.DLRR != nil {
			for _, sub := range xr.DLRR.Subblocks {
				p, ok := c.participants[sub.SSRC]
				if !ok || p.lastRRTRNTP == 0 {
					continue
				}
				if rtptime.MiddleNTP(p.lastRRTRNTP) != sub.LastRR {
					continue
				}
				delay := rtptime.DecodeDelaySince(sub.DelayLastRR)
				rtt := rtcpwire.ComputeRTT(p.lastRRTRSent, now, delay)
				c.rttSamples[sub.SSRC] = rtt
			}
		}

		if xr.DelayMetrics != nil && c.monitor != nil {
			c.monitor.ProcessFeedback(xr.SSRC, feedback.LatencyMetrics{
				NIQLatency:  rtptime.DecodeDelaySince(xr.DelayMetrics.NIQLatency),
				NIQStalling: rtptime.DecodeDelaySince(xr.DelayMetrics.NIQStalling),
				E2ELatency:  rtptime.DecodeDelaySince(xr.DelayMetrics.E2ELatency),
			}, feedback.LinkMetrics{}, now)
		}
	}
	return nil
}

// RTT returns the most recent round-trip-time measurement for a remote
// source, if one has been computed.
func (c *Communicator) RTT(ssrc uint32) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rtt, ok := c.rttSamples[ssrc]
	return rtt, ok
}

// JitterDuration returns a small random jitter fraction of period, for
// callers scheduling the next report per spec.md's "rate limiter with
// jitter".
func JitterDuration(period time.Duration) time.Duration {
	return time.Duration(rand.Int63n(int64(period) / 2))
}
