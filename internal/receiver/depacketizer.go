package receiver

import (
	"math"
	"time"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtpformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtptime"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

// FrameFlags mirrors spec.md section 3's frame flag bitset.
type FrameFlags uint32

// Frame flag bits.
const (
	FrameBlank FrameFlags = 1 << iota
	FrameIncomplete
	FrameDrops
	FrameRestored
)

// Frame is a writable slice of interleaved raw-float samples plus the
// metadata spec.md section 3 attaches to it.
type Frame struct {
	Samples          []float32
	Flags            FrameFlags
	CaptureTimestamp time.Time
	Duration         time.Duration
}

// maxTSJump is the default validator threshold from spec.md section 4.7.
const maxTSJump = time.Second

// Debug low-amplitude tone fill, used in place of silence when
// DebugToneFill is set, per spec.md section 4.7 item 3.
const (
	debugToneFreqHz = 440.0
	debugToneAmpl   = 0.02
)

// Depacketizer decodes queued RTP packets into requested sample ranges,
// per spec.md section 4.7.
type Depacketizer struct {
	spec          samplespec.SampleSpec
	formats       *rtpformat.FormatMap
	streamPos     uint64 // samples
	havePos       bool
	lastTimestamp uint32
	lastDropped   bool

	haveFrameStart bool
	frameStartTS   uint32 // RTP timestamp of the next sample Read will emit

	// DebugToneFill, when set, fills uncovered frame ranges with a
	// low-amplitude tone instead of silence, per spec.md section 4.7 item 3.
	DebugToneFill bool
	tonePhase     float64

	buffered []*packet.Packet // pending packets, in arrival order from the FEC reader
}

// NewDepacketizer allocates a Depacketizer for the given output spec.
func NewDepacketizer(spec samplespec.SampleSpec, formats *rtpformat.FormatMap) *Depacketizer {
	return &Depacketizer{spec: spec, formats: formats}
}

// Push enqueues a packet made available by the FEC reader / reorder queue,
// in ascending extended-seqnum order.
func (d *Depacketizer) Push(pk *packet.Packet) {
	d.buffered = append(d.buffered, pk)
}

// MarkLateDrop records that a packet was dropped as late since the last
// Read, so the next frame can carry Drops.
func (d *Depacketizer) MarkLateDrop() {
	d.lastDropped = true
}

// Read fills numSamples samples (per channel) into a new Frame, consuming
// whichever buffered packets cover the range and zero-filling the rest.
func (d *Depacketizer) Read(numSamples int) (Frame, error) {
	channels := d.spec.NumChannels()
	out := make([]float32, numSamples*channels)
	covered := make([]bool, numSamples)

	var frameFlags FrameFlags
	var captureTS time.Time
	haveCaptureTS := false
	restored := false

	// Anchor frameStartTS at the first packet's timestamp the first time
	// any packet arrives, so stream position 0 lines up with it.
	if !d.haveFrameStart {
		for _, pk := range d.buffered {
			if pk.RTP != nil {
				d.frameStartTS = pk.RTP.Timestamp
				d.haveFrameStart = true
				break
			}
		}
	}

	remaining := d.buffered[:0:0]
	for _, pk := range d.buffered {
		if pk.RTP == nil {
			continue
		}

		if d.havePos {
			delta := int64(pk.RTP.Timestamp) - int64(d.lastTimestamp)
			if delta < 0 {
				delta += 1 << 32
			}
			if !pk.RTP.Marker && time.Duration(delta)*time.Second/time.Duration(d.spec.SampleRate) > maxTSJump {
				continue // rejected by the validator; never reaches decode
			}
		}

		entry, ok := d.formats.Lookup(entryPayloadType(pk))
		if !ok {
			continue
		}
		samples, err := rtpformat.DecodePCM(pk.RTP.Payload, entry.SampleSpec)
		if err != nil {
			continue
		}

		pktSamples := len(samples) / channels

		// offset is the packet's position, in samples, relative to the
		// start of the frame currently being filled. It may be negative
		// (a packet straddling the previous frame boundary) or run past
		// numSamples (a packet straddling the next one); only the part
		// that overlaps [0, numSamples) is used on this Read.
		offset := 0
		if d.haveFrameStart {
			offset = int(rtptime.Stamp32Diff(d.frameStartTS, pk.RTP.Timestamp))
		}
		end := offset + pktSamples

		d.lastTimestamp = pk.RTP.Timestamp
		d.havePos = true

		if pk.Flags.Has(packet.FlagRestored) {
			restored = true
		}

		if end <= 0 {
			continue // entirely before this frame's range; too late, discard
		}
		if offset >= numSamples {
			remaining = append(remaining, pk) // entirely ahead; keep for a later read
			continue
		}

		startSample := 0
		if offset < 0 {
			startSample = -offset
		}
		endSample := pktSamples
		if end > numSamples {
			endSample = numSamples - offset
		}
		for s := startSample; s < endSample; s++ {
			dest := offset + s
			for c := 0; c < channels; c++ {
				out[dest*channels+c] = samples[s*channels+c]
			}
			covered[dest] = true
		}

		if !haveCaptureTS {
			subOffset := time.Duration(startSample) * time.Second / time.Duration(d.spec.SampleRate)
			captureTS = pk.RTP.CaptureTimestamp.Add(subOffset)
			haveCaptureTS = true
		}

		if end > numSamples {
			remaining = append(remaining, pk) // tail extends past this frame; keep the rest for later
		}
	}
	d.buffered = remaining

	if d.haveFrameStart {
		d.frameStartTS += uint32(numSamples)
	}

	allMissing := true
	anyMissing := false
	for s, isCovered := range covered {
		if isCovered {
			allMissing = false
			continue
		}
		anyMissing = true
		if d.DebugToneFill {
			step := 2 * math.Pi * debugToneFreqHz / float64(d.spec.SampleRate)
			sample := float32(debugToneAmpl * math.Sin(d.tonePhase))
			d.tonePhase += step
			if d.tonePhase > 2*math.Pi {
				d.tonePhase -= 2 * math.Pi
			}
			for c := 0; c < channels; c++ {
				out[s*channels+c] = sample
			}
		}
	}
	if anyMissing {
		frameFlags |= FrameIncomplete
	}
	if allMissing {
		frameFlags |= FrameBlank
	}
	if restored {
		frameFlags |= FrameRestored
	}
	if d.lastDropped {
		frameFlags |= FrameDrops
		d.lastDropped = false
	}

	d.streamPos += uint64(numSamples)

	return Frame{
		Samples:          out,
		Flags:            frameFlags,
		CaptureTimestamp: captureTS,
		Duration:         time.Duration(numSamples) * time.Second / time.Duration(d.spec.SampleRate),
	}, nil
}

// StreamPosition returns the monotonic sample index, per spec.md's
// sequence-monotonicity invariant.
func (d *Depacketizer) StreamPosition() uint64 { return d.streamPos }

// NIQLatency estimates the network incoming queue latency: the time span,
// at the stream's declared rate, between the most recently received
// packet's timestamp and the stream position about to be read next. Feeds
// the latency tuner's advance_stream, per spec.md section 4.9.
func (d *Depacketizer) NIQLatency() time.Duration {
	if !d.haveFrameStart || !d.havePos {
		return 0
	}
	diff := rtptime.Stamp32Diff(d.frameStartTS, d.lastTimestamp)
	if diff < 0 {
		diff = 0
	}
	return time.Duration(diff) * time.Second / time.Duration(d.spec.SampleRate)
}

func entryPayloadType(pk *packet.Packet) uint8 {
	if pk.RTP == nil {
		return 0
	}
	return pk.RTP.PayloadType
}
