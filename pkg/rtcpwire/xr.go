// Package rtcpwire builds and parses the RTCP compound packets exchanged by
// the feedback loop: Sender/Receiver Reports and SDES/BYE from
// github.com/pion/rtcp, plus the XR (extended report) blocks RFC 3611
// defines for RTT measurement and the Roc-specific application blocks that
// carry latency metrics, none of which pion/rtcp models, so they are
// hand-built here directly from the wire layout.
package rtcpwire

import (
	"encoding/binary"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// XR block types, RFC 3611 section 4 plus the Roc-specific application
// block types layered on top of the same XR envelope.
const (
	XRBlockRRTR         = 4
	XRBlockDLRR         = 5
	XRBlockMeasureInfo  = 192
	XRBlockDelayMetrics = 193
	XRBlockQueueMetrics = 194
)

// xrHeaderSize is the 4-byte block type/reserved/length header shared by
// every XR block.
const xrHeaderSize = 4

// RRTRBlock is the Receiver Reference Time Report block: the reporting
// party's own NTP timestamp, from which the remote side computes RTT via a
// matching DLRR.
type RRTRBlock struct {
	NTPTimestamp uint64 // full 64-bit NTP time
}

// Marshal implements xrBlock.
func (b RRTRBlock) Marshal() []byte {
	buf := make([]byte, xrHeaderSize+8)
	buf[0] = XRBlockRRTR
	binary.BigEndian.PutUint16(buf[2:4], 2) // length in words minus one
	binary.BigEndian.PutUint32(buf[4:8], uint32(b.NTPTimestamp>>32))
	binary.BigEndian.PutUint32(buf[8:12], uint32(b.NTPTimestamp))
	return buf
}

func unmarshalRRTR(body []byte) (RRTRBlock, error) {
	if len(body) < 8 {
		return RRTRBlock{}, status.New(status.BadBuffer)
	}
	hi := binary.BigEndian.Uint32(body[0:4])
	lo := binary.BigEndian.Uint32(body[4:8])
	return RRTRBlock{NTPTimestamp: uint64(hi)<<32 | uint64(lo)}, nil
}

// DLRRSubblock mirrors one prior RRTR: the middle 32 bits of its NTP
// timestamp (LastRR), and the delay since it was received, in 1/65536
// second fixed point (DelayLastRR).
type DLRRSubblock struct {
	SSRC        uint32
	LastRR      uint32
	DelayLastRR uint32
}

// DLRRBlock carries zero or more DLRRSubblock entries, one per remote
// source being acknowledged.
type DLRRBlock struct {
	Subblocks []DLRRSubblock
}

// Marshal implements xrBlock.
func (b DLRRBlock) Marshal() []byte {
	buf := make([]byte, xrHeaderSize+12*len(b.Subblocks))
	buf[0] = XRBlockDLRR
	binary.BigEndian.PutUint16(buf[2:4], uint16(3*len(b.Subblocks)))
	off := xrHeaderSize
	for _, s := range b.Subblocks {
		binary.BigEndian.PutUint32(buf[off:off+4], s.SSRC)
		binary.BigEndian.PutUint32(buf[off+4:off+8], s.LastRR)
		binary.BigEndian.PutUint32(buf[off+8:off+12], s.DelayLastRR)
		off += 12
	}
	return buf
}

func unmarshalDLRR(body []byte) (DLRRBlock, error) {
	if len(body)%12 != 0 {
		return DLRRBlock{}, status.New(status.BadBuffer)
	}
	out := DLRRBlock{Subblocks: make([]DLRRSubblock, 0, len(body)/12)}
	for off := 0; off < len(body); off += 12 {
		out.Subblocks = append(out.Subblocks, DLRRSubblock{
			SSRC:        binary.BigEndian.Uint32(body[off : off+4]),
			LastRR:      binary.BigEndian.Uint32(body[off+4 : off+8]),
			DelayLastRR: binary.BigEndian.Uint32(body[off+8 : off+12]),
		})
	}
	return out, nil
}

// MeasurementInfoBlock conveys the common timing anchors for the metric
// blocks that follow it in the same compound packet: the local SSRC they
// describe, and the sender's capture timestamp of the last frame the
// metrics refer to, as an NTP timestamp.
type MeasurementInfoBlock struct {
	SSRC                uint32
	IncomingStreamTiming uint64 // NTP timestamp of last-seen sample
}

// Marshal implements xrBlock.
func (b MeasurementInfoBlock) Marshal() []byte {
	buf := make([]byte, xrHeaderSize+12)
	buf[0] = XRBlockMeasureInfo
	binary.BigEndian.PutUint16(buf[2:4], 3)
	binary.BigEndian.PutUint32(buf[4:8], b.SSRC)
	binary.BigEndian.PutUint32(buf[8:12], uint32(b.IncomingStreamTiming>>32))
	binary.BigEndian.PutUint32(buf[12:16], uint32(b.IncomingStreamTiming))
	return buf
}

func unmarshalMeasurementInfo(body []byte) (MeasurementInfoBlock, error) {
	if len(body) < 12 {
		return MeasurementInfoBlock{}, status.New(status.BadBuffer)
	}
	hi := binary.BigEndian.Uint32(body[4:8])
	lo := binary.BigEndian.Uint32(body[8:12])
	return MeasurementInfoBlock{
		SSRC:                binary.BigEndian.Uint32(body[0:4]),
		IncomingStreamTiming: uint64(hi)<<32 | uint64(lo),
	}, nil
}

// DelayMetricsBlock carries the end-to-end and network-incoming-queue
// latency observables of spec.md section 4, fixed-point encoded as
// 1/65536-second units.
type DelayMetricsBlock struct {
	SSRC        uint32
	NIQLatency  uint32
	NIQStalling uint32
	E2ELatency  uint32
}

// Marshal implements xrBlock.
func (b DelayMetricsBlock) Marshal() []byte {
	buf := make([]byte, xrHeaderSize+16)
	buf[0] = XRBlockDelayMetrics
	binary.BigEndian.PutUint16(buf[2:4], 4)
	binary.BigEndian.PutUint32(buf[4:8], b.SSRC)
	binary.BigEndian.PutUint32(buf[8:12], b.NIQLatency)
	binary.BigEndian.PutUint32(buf[12:16], b.NIQStalling)
	binary.BigEndian.PutUint32(buf[16:20], b.E2ELatency)
	return buf
}

func unmarshalDelayMetrics(body []byte) (DelayMetricsBlock, error) {
	if len(body) < 16 {
		return DelayMetricsBlock{}, status.New(status.BadBuffer)
	}
	return DelayMetricsBlock{
		SSRC:        binary.BigEndian.Uint32(body[0:4]),
		NIQLatency:  binary.BigEndian.Uint32(body[4:8]),
		NIQStalling: binary.BigEndian.Uint32(body[8:12]),
		E2ELatency:  binary.BigEndian.Uint32(body[12:16]),
	}, nil
}

// QueueMetricsBlock carries the jitter buffer's loss observables.
type QueueMetricsBlock struct {
	SSRC            uint32
	ExtHighestSeq   uint32
	CumulativeLoss  int32
	FractLossQ8     uint8 // fract_loss scaled by 256, per RFC 3550 RR convention
}

// Marshal implements xrBlock.
func (b QueueMetricsBlock) Marshal() []byte {
	buf := make([]byte, xrHeaderSize+12)
	buf[0] = XRBlockQueueMetrics
	binary.BigEndian.PutUint16(buf[2:4], 3)
	binary.BigEndian.PutUint32(buf[4:8], b.SSRC)
	binary.BigEndian.PutUint32(buf[8:12], b.ExtHighestSeq)
	buf[12] = b.FractLossQ8
	putInt24(buf[13:16], b.CumulativeLoss)
	return buf
}

func unmarshalQueueMetrics(body []byte) (QueueMetricsBlock, error) {
	if len(body) < 12 {
		return QueueMetricsBlock{}, status.New(status.BadBuffer)
	}
	return QueueMetricsBlock{
		SSRC:           binary.BigEndian.Uint32(body[0:4]),
		ExtHighestSeq:  binary.BigEndian.Uint32(body[4:8]),
		FractLossQ8:    body[8],
		CumulativeLoss: getInt24(body[9:12]),
	}, nil
}

func putInt24(buf []byte, v int32) {
	buf[0] = byte(v >> 16)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v)
}

func getInt24(buf []byte) int32 {
	v := int32(buf[0])<<16 | int32(buf[1])<<8 | int32(buf[2])
	if v&0x800000 != 0 {
		v |= ^0xffffff
	}
	return v
}

// ExtendedReport is one RTCP XR packet (RFC 3611): a header carrying the
// reporting party's own SSRC, and a sequence of blocks.
type ExtendedReport struct {
	SSRC   uint32
	RRTR   *RRTRBlock
	DLRR   *DLRRBlock
	MeasurementInfo *MeasurementInfoBlock
	DelayMetrics    *DelayMetricsBlock
	QueueMetrics    *QueueMetricsBlock
}

const rtcpVersion = 2
const ptXR = 207

// Marshal serializes the extended report as a full RTCP packet (header
// included).
func (r ExtendedReport) Marshal() []byte {
	var body [][]byte
	if r.RRTR != nil {
		body = append(body, r.RRTR.Marshal())
	}
	if r.DLRR != nil {
		body = append(body, r.DLRR.Marshal())
	}
	if r.MeasurementInfo != nil {
		body = append(body, r.MeasurementInfo.Marshal())
	}
	if r.DelayMetrics != nil {
		body = append(body, r.DelayMetrics.Marshal())
	}
	if r.QueueMetrics != nil {
		body = append(body, r.QueueMetrics.Marshal())
	}

	total := 8
	for _, b := range body {
		total += len(b)
	}

	buf := make([]byte, total)
	buf[0] = rtcpVersion << 6
	buf[1] = ptXR
	binary.BigEndian.PutUint16(buf[2:4], uint16(total/4-1))
	binary.BigEndian.PutUint32(buf[4:8], r.SSRC)

	off := 8
	for _, b := range body {
		copy(buf[off:], b)
		off += len(b)
	}
	return buf
}

// ParseExtendedReport parses a single RTCP XR packet.
func ParseExtendedReport(buf []byte) (ExtendedReport, error) {
	if len(buf) < 8 || buf[1] != ptXR {
		return ExtendedReport{}, status.New(status.BadProtocol)
	}
	r := ExtendedReport{SSRC: binary.BigEndian.Uint32(buf[4:8])}

	off := 8
	for off+xrHeaderSize <= len(buf) {
		blockType := buf[off]
		words := binary.BigEndian.Uint16(buf[off+2 : off+4])
		blockLen := (int(words) + 1) * 4
		if off+blockLen > len(buf) {
			return ExtendedReport{}, status.New(status.BadBuffer)
		}
		body := buf[off+xrHeaderSize : off+blockLen]

		var err error
		switch blockType {
		case XRBlockRRTR:
			var b RRTRBlock
			b, err = unmarshalRRTR(body)
			r.RRTR = &b
		case XRBlockDLRR:
			var b DLRRBlock
			b, err = unmarshalDLRR(body)
			r.DLRR = &b
		case XRBlockMeasureInfo:
			var b MeasurementInfoBlock
			b, err = unmarshalMeasurementInfo(body)
			r.MeasurementInfo = &b
		case XRBlockDelayMetrics:
			var b DelayMetricsBlock
			b, err = unmarshalDelayMetrics(body)
			r.DelayMetrics = &b
		case XRBlockQueueMetrics:
			var b QueueMetricsBlock
			b, err = unmarshalQueueMetrics(body)
			r.QueueMetrics = &b
		}
		if err != nil {
			return ExtendedReport{}, err
		}
		off += blockLen
	}
	return r, nil
}
