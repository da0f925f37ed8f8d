// Package samplespec defines SampleSpec, the currency every pipeline stage
// advertises as its input/output contract, and ChannelSet, the channel
// position algebra it is built on.
package samplespec

import "fmt"

// Format distinguishes encoded PCM samples from the internal raw float
// representation every non-boundary stage operates on.
type Format int

// Supported top-level sample formats.
const (
	// FormatPcm carries samples in one of the PcmSubformat encodings.
	FormatPcm Format = iota
	// FormatRaw carries native float32 samples, the internal currency of
	// every stage that is not a protocol/device boundary.
	FormatRaw
)

// PcmSubformat enumerates the PCM wire/device encodings the PCM mapper
// (pkg/pcm) can convert between.
type PcmSubformat int

// Supported PCM subformats: integer widths with signedness/endianness/
// packing, plus IEEE float.
const (
	PcmUnknown PcmSubformat = iota
	PcmSInt8
	PcmUInt8
	PcmSInt16LE
	PcmSInt16BE
	PcmUInt16LE
	PcmUInt16BE
	PcmSInt18LE3
	PcmSInt18BE3
	PcmSInt18LE4 // padded to 4 bytes
	PcmSInt18BE4
	PcmSInt20LE3
	PcmSInt20BE3
	PcmSInt20LE4
	PcmSInt20BE4
	PcmSInt24LE3
	PcmSInt24BE3
	PcmSInt24LE4
	PcmSInt24BE4
	PcmSInt32LE
	PcmSInt32BE
	PcmSInt64LE
	PcmSInt64BE
	PcmFloat32LE
	PcmFloat32BE
	PcmFloat64LE
	PcmFloat64BE
)

// ChannelLayout distinguishes a positional surround layout from an
// unordered multitrack one.
type ChannelLayout int

// Supported channel layouts.
const (
	LayoutSurround ChannelLayout = iota
	LayoutMultitrack
)

// ChannelOrder picks the bit-position convention used to interpret a
// ChannelSet's mask for a surround layout.
type ChannelOrder int

// Supported channel orders.
const (
	OrderNone ChannelOrder = iota
	OrderSmpte
	OrderAlsa
)

// ChannelPos identifies a single surround channel position. Values follow
// the SMPTE ordering used as this module's canonical bit assignment.
// OrderAlsa is carried as metadata only; no stage remaps positions to
// ALSA's bit layout.
type ChannelPos uint

// Channel positions, bit-indexed into ChannelSet.Mask.
const (
	ChanFrontLeft ChannelPos = iota
	ChanFrontRight
	ChanFrontCenter
	ChanLowFrequency
	ChanBackLeft
	ChanBackRight
	ChanBackCenter
	ChanSideLeft
	ChanSideRight
	ChanTopFrontLeft
	ChanTopFrontRight
	ChanTopBackLeft
	ChanTopBackRight
	maxChannelPos
)

// ChannelSet is a bitset of channel positions plus the layout/order
// metadata needed to interpret it.
type ChannelSet struct {
	Layout ChannelLayout
	Order  ChannelOrder
	Mask   uint64 // bit i set means ChannelPos(i) is present (Surround), or track i present (Multitrack)
}

// NewSurround builds a surround ChannelSet from a list of positions.
func NewSurround(order ChannelOrder, positions ...ChannelPos) ChannelSet {
	cs := ChannelSet{Layout: LayoutSurround, Order: order}
	for _, p := range positions {
		cs.Mask |= 1 << uint(p)
	}
	return cs
}

// NewMultitrack builds a multitrack ChannelSet with numTracks unordered
// channels.
func NewMultitrack(numTracks int) ChannelSet {
	cs := ChannelSet{Layout: LayoutMultitrack}
	for i := 0; i < numTracks; i++ {
		cs.Mask |= 1 << uint(i)
	}
	return cs
}

// Mono is the canonical single-channel surround set.
func Mono() ChannelSet { return NewSurround(OrderSmpte, ChanFrontCenter) }

// Stereo is the canonical two-channel surround set.
func Stereo() ChannelSet {
	return NewSurround(OrderSmpte, ChanFrontLeft, ChanFrontRight)
}

// Has reports whether position p is present in the set.
func (c ChannelSet) Has(p ChannelPos) bool {
	return c.Mask&(1<<uint(p)) != 0
}

// Count returns the number of channels in the set.
func (c ChannelSet) Count() int {
	n := 0
	for m := c.Mask; m != 0; m &= m - 1 {
		n++
	}
	return n
}

// Equal reports whether two channel sets describe the same channels (the
// order field is ignored: two surround sets with the same mask are equal
// regardless of which bit-layout convention they were built with, since
// Mask is always stored in canonical SMPTE bit positions).
func (c ChannelSet) Equal(o ChannelSet) bool {
	return c.Layout == o.Layout && c.Mask == o.Mask
}

// SampleSpec is the currency between all pipeline stages: every stage
// advertises input and output specs and rejects mismatches.
type SampleSpec struct {
	Format        Format
	PcmSubformat  PcmSubformat
	SampleRate    uint32
	Channels      ChannelSet
}

// NumChannels returns the channel count of the spec.
func (s SampleSpec) NumChannels() int {
	return s.Channels.Count()
}

// BytesPerSample returns the on-wire size of one sample in one channel for
// PCM formats, or 4 for FormatRaw (float32).
func (s SampleSpec) BytesPerSample() int {
	if s.Format == FormatRaw {
		return 4
	}
	return pcmSubformatSize(s.PcmSubformat)
}

// SamplesPerPacket returns the number of samples (per channel) that fit in
// the given packet duration at this spec's sample rate.
func (s SampleSpec) SamplesPerPacket(packetLength uint64 /* ns */) uint32 {
	return uint32((uint64(s.SampleRate) * packetLength) / 1_000_000_000)
}

// Validate checks that the spec describes a usable configuration.
func (s SampleSpec) Validate() error {
	if s.SampleRate == 0 {
		return fmt.Errorf("samplespec: sample rate must be non-zero")
	}
	if s.Channels.Count() == 0 {
		return fmt.Errorf("samplespec: channel set must be non-empty")
	}
	if s.Format == FormatPcm && s.PcmSubformat == PcmUnknown {
		return fmt.Errorf("samplespec: pcm subformat must be set for FormatPcm")
	}
	return nil
}

func pcmSubformatSize(f PcmSubformat) int {
	switch f {
	case PcmSInt8, PcmUInt8:
		return 1
	case PcmSInt16LE, PcmSInt16BE, PcmUInt16LE, PcmUInt16BE:
		return 2
	case PcmSInt18LE3, PcmSInt18BE3, PcmSInt20LE3, PcmSInt20BE3, PcmSInt24LE3, PcmSInt24BE3:
		return 3
	case PcmSInt18LE4, PcmSInt18BE4, PcmSInt20LE4, PcmSInt20BE4, PcmSInt24LE4, PcmSInt24BE4,
		PcmSInt32LE, PcmSInt32BE, PcmFloat32LE, PcmFloat32BE:
		return 4
	case PcmSInt64LE, PcmSInt64BE, PcmFloat64LE, PcmFloat64BE:
		return 8
	default:
		return 0
	}
}
