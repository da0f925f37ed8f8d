package rtpformat

import (
	"time"

	"github.com/pion/rtp"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// Parser decodes RTP packets received off the wire into pkg/packet.Packet,
// populating the RTP sub-view and setting FlagRTP|FlagAudio.
type Parser struct{}

// Parse decodes raw into pkt's RTP view. pkt.Bytes must already be set to
// raw (the caller typically received it directly into pkt.Bytes).
func (Parser) Parse(pkt *packet.Packet, captureTime time.Time) error {
	var hdr rtp.Packet
	if err := hdr.Unmarshal(pkt.Bytes); err != nil {
		return status.Wrap(status.BadBuffer, err)
	}

	pkt.RTP = &packet.RTPView{
		PayloadType:      hdr.PayloadType,
		SSRC:             hdr.SSRC,
		SeqNum:           hdr.SequenceNumber,
		Timestamp:        hdr.Timestamp,
		Marker:           hdr.Marker,
		CaptureTimestamp: captureTime,
		Payload:          hdr.Payload,
	}
	pkt.Flags |= packet.FlagRTP | packet.FlagAudio
	return nil
}

// Composer encodes a pkt's RTP view into pkt.Bytes and sets FlagComposed.
type Composer struct{}

// Compose serializes pkt.RTP into a newly allocated buffer and stores it
// in pkt.Bytes.
func (Composer) Compose(pkt *packet.Packet) error {
	if pkt.RTP == nil {
		return status.New(status.BadOperation)
	}

	p := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         pkt.RTP.Marker,
			PayloadType:    pkt.RTP.PayloadType,
			SequenceNumber: pkt.RTP.SeqNum,
			Timestamp:      pkt.RTP.Timestamp,
			SSRC:           pkt.RTP.SSRC,
		},
		Payload: pkt.RTP.Payload,
	}

	buf, err := p.Marshal()
	if err != nil {
		return status.Wrap(status.BadBuffer, err)
	}

	pkt.Bytes = buf
	pkt.Flags |= packet.FlagRTP | packet.FlagAudio | packet.FlagComposed
	return nil
}
