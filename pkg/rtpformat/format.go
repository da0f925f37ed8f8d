// Package rtpformat wraps github.com/pion/rtp with the RTP view of
// pkg/packet.Packet and the payload-type -> (sample spec, codec) table
// spec.md section 5 calls the "format map".
package rtpformat

import (
	"fmt"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

// PayloadType values supported by this module, per spec.md section 6: the
// static L16 types plus the dynamic range used for raw-float payloads.
const (
	PayloadTypeL16Mono   uint8 = 11
	PayloadTypeL16Stereo uint8 = 10

	// DynamicRangeStart/End bound the dynamic payload-type range (96-127)
	// this module uses for raw-float and other non-static encodings.
	DynamicRangeStart uint8 = 96
	DynamicRangeEnd   uint8 = 127
)

// Codec identifies the payload encoding a format entry decodes/encodes.
type Codec int

// Supported codecs.
const (
	CodecL16 Codec = iota
	CodecRawFloat32
)

// FormatEntry binds one RTP payload type to the sample spec and codec used
// to interpret its payload.
type FormatEntry struct {
	PayloadType uint8
	Codec       Codec
	SampleSpec  samplespec.SampleSpec
}

// FormatMap is a small, mutable payload-type table. The zero value is
// empty; use NewDefaultMap for the statically-assigned defaults.
type FormatMap struct {
	byType map[uint8]FormatEntry
}

// NewFormatMap allocates an empty FormatMap.
func NewFormatMap() *FormatMap {
	return &FormatMap{byType: make(map[uint8]FormatEntry)}
}

// NewDefaultMap allocates a FormatMap pre-populated with the two static
// L16 payload types spec.md section 6 enumerates.
func NewDefaultMap() *FormatMap {
	m := NewFormatMap()
	m.Add(FormatEntry{
		PayloadType: PayloadTypeL16Mono,
		Codec:       CodecL16,
		SampleSpec: samplespec.SampleSpec{
			Format:       samplespec.FormatPcm,
			PcmSubformat: samplespec.PcmSInt16BE,
			SampleRate:   44100,
			Channels:     samplespec.Mono(),
		},
	})
	m.Add(FormatEntry{
		PayloadType: PayloadTypeL16Stereo,
		Codec:       CodecL16,
		SampleSpec: samplespec.SampleSpec{
			Format:       samplespec.FormatPcm,
			PcmSubformat: samplespec.PcmSInt16BE,
			SampleRate:   44100,
			Channels:     samplespec.Stereo(),
		},
	})
	return m
}

// Add registers or overwrites a format entry.
func (m *FormatMap) Add(e FormatEntry) {
	m.byType[e.PayloadType] = e
}

// AddDynamic registers a raw-float entry at a payload type in the dynamic
// range, as a sender/receiver pair negotiates out of band.
func (m *FormatMap) AddDynamic(pt uint8, spec samplespec.SampleSpec) error {
	if pt < DynamicRangeStart || pt > DynamicRangeEnd {
		return fmt.Errorf("rtpformat: %d is not in the dynamic payload type range", pt)
	}
	m.Add(FormatEntry{PayloadType: pt, Codec: CodecRawFloat32, SampleSpec: spec})
	return nil
}

// Lookup returns the format entry for a payload type.
func (m *FormatMap) Lookup(pt uint8) (FormatEntry, bool) {
	e, ok := m.byType[pt]
	return e, ok
}
