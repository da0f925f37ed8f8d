// Package sender implements the sender-side packet pipeline: packetizer,
// FEC writer, interleaver and router (spec.md sections 4.1-4.4), grounded
// on gortsplib's pkg/rtpsender for the mutex-protected stage shape and its
// use of pion/rtp for wire encoding.
package sender

import (
	"time"

	"github.com/pion/randutil"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtpformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

// Frame is the accumulator input: a slice of interleaved samples with a
// capture timestamp, mirroring pkg/samplespec's notion of "currency
// between audio stages".
type Frame struct {
	Samples          []float32
	CaptureTimestamp time.Time
}

// Writer is implemented by every downstream packet-pipeline stage.
type Writer interface {
	Write(p *packet.Packet) error
}

var randGen = randutil.NewMathRandomGenerator()

// Packetizer frames incoming audio into fixed-size RTP packets, per
// spec.md section 4.1.
type Packetizer struct {
	spec            samplespec.SampleSpec
	samplesPerPacket int
	payloadType     uint8
	pool            *packet.Pool
	next            Writer

	ssrc       uint32
	seqnum     uint16
	timestamp  uint32
	accum      []float32
	accumFirst time.Time
	gapPending bool
	initialized bool
}

// NewPacketizer constructs a Packetizer for the given spec and packet
// duration. payloadType comes from the caller's rtpformat.FormatMap
// lookup.
func NewPacketizer(spec samplespec.SampleSpec, packetLength time.Duration, payloadType uint8, pool *packet.Pool, next Writer) *Packetizer {
	samplesPerPacket := int(spec.SamplesPerPacket(uint64(packetLength.Nanoseconds()))) * spec.NumChannels()
	return &Packetizer{
		spec:            spec,
		samplesPerPacket: samplesPerPacket,
		payloadType:     payloadType,
		pool:            pool,
		next:            next,
		ssrc:            randGen.Uint32(),
		seqnum:          uint16(randGen.Uint32()),
		timestamp:       randGen.Uint32(),
		gapPending:      true, // marker set on first packet of the stream
	}
}

// Write implements spec.md section 4.1's packetizer contract: append
// samples, and flush exactly one packet whenever the accumulator fills.
func (p *Packetizer) Write(f Frame) error {
	if !p.initialized {
		p.accumFirst = f.CaptureTimestamp
		p.initialized = true
	}
	if len(p.accum) == 0 {
		p.accumFirst = f.CaptureTimestamp
	}

	p.accum = append(p.accum, f.Samples...)

	for len(p.accum) >= p.samplesPerPacket {
		chunk := p.accum[:p.samplesPerPacket]
		if err := p.emit(chunk); err != nil {
			return err
		}
		p.accum = append([]float32{}, p.accum[p.samplesPerPacket:]...)
	}
	return nil
}

// MarkGap signals a discontinuity in frame arrival; the next emitted
// packet will carry the marker bit.
func (p *Packetizer) MarkGap() {
	p.gapPending = true
}

func (p *Packetizer) emit(samples []float32) error {
	pk, err := p.pool.Get()
	if err != nil {
		return err
	}

	payload, err := encodeSamples(samples, p.spec)
	if err != nil {
		p.pool.Release(pk)
		return err
	}

	marker := p.gapPending
	p.gapPending = false

	pk.Flags = packet.FlagRTP | packet.FlagAudio
	pk.RTP = &packet.RTPView{
		PayloadType:      p.payloadType,
		SSRC:             p.ssrc,
		SeqNum:           p.seqnum,
		Timestamp:        p.timestamp,
		Marker:           marker,
		CaptureTimestamp: p.accumFirst,
		Payload:          payload,
	}

	p.seqnum++
	p.timestamp += uint32(len(samples) / p.spec.NumChannels())

	if err := p.next.Write(pk); err != nil {
		p.pool.Release(pk)
		return err
	}
	return nil
}

// encodeSamples converts a raw-float32 sample slice into the wire PCM
// representation selected by spec's subformat, via pkg/pcm.
func encodeSamples(samples []float32, spec samplespec.SampleSpec) ([]byte, error) {
	return rtpformat.EncodePCM(samples, spec)
}
