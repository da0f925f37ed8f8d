// Package fecformat implements the FEC block codec and the wire PayloadID
// header/footer the sender and receiver FEC stages exchange, for the
// Reed-Solomon-8m and LDPC-Staircase schemes of spec.md section 6.
package fecformat

import (
	"encoding/binary"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// PayloadIDSize is the wire size in bytes of a PayloadID, identical for
// both schemes this module supports: four 16-bit big-endian fields.
const PayloadIDSize = 8

// PayloadID addresses one symbol within an FEC block. The third field, k,
// is the source block length; for RS8M the fourth field is n, the block
// length N+M, and for LDPC-Staircase the same field is called n_prime. Both
// share the same wire layout; scheme-specific meaning is documented on the
// BlockLength field of packet.FECView.
type PayloadID struct {
	SBN uint16
	ESI uint16
	K   uint16 // == source block length N
	N   uint16 // == block length N+M (n_prime for LDPC repair payloads)
}

// Placement says whether a scheme's PayloadID is a header (preceding the
// payload) or a footer (following it).
type Placement int

// Supported placements.
const (
	PlacementHeader Placement = iota
	PlacementFooter
)

// PlacementFor returns the fixed header/footer placement for a scheme, per
// spec.md section 6: "The scheme, and whether the ID is header or footer,
// are fixed per endpoint protocol."
func PlacementFor(scheme packet.FECScheme) Placement {
	switch scheme {
	case packet.FECSchemeRS8M:
		return PlacementFooter
	case packet.FECSchemeLDPCStaircase:
		return PlacementHeader
	default:
		return PlacementHeader
	}
}

// EncodePayloadID writes id into buf (which must have at least
// PayloadIDSize bytes).
func EncodePayloadID(id PayloadID, buf []byte) {
	binary.BigEndian.PutUint16(buf[0:2], id.SBN)
	binary.BigEndian.PutUint16(buf[2:4], id.ESI)
	binary.BigEndian.PutUint16(buf[4:6], id.K)
	binary.BigEndian.PutUint16(buf[6:8], id.N)
}

// DecodePayloadID reads a PayloadID from buf.
func DecodePayloadID(buf []byte) (PayloadID, error) {
	if len(buf) < PayloadIDSize {
		return PayloadID{}, status.New(status.BadBuffer)
	}
	return PayloadID{
		SBN: binary.BigEndian.Uint16(buf[0:2]),
		ESI: binary.BigEndian.Uint16(buf[2:4]),
		K:   binary.BigEndian.Uint16(buf[4:6]),
		N:   binary.BigEndian.Uint16(buf[6:8]),
	}, nil
}

// SplitPayload separates a wire payload into the PayloadID and the
// underlying symbol bytes, according to the scheme's placement.
func SplitPayload(scheme packet.FECScheme, wire []byte) (PayloadID, []byte, error) {
	if len(wire) < PayloadIDSize {
		return PayloadID{}, nil, status.New(status.BadBuffer)
	}
	switch PlacementFor(scheme) {
	case PlacementHeader:
		id, err := DecodePayloadID(wire[:PayloadIDSize])
		if err != nil {
			return PayloadID{}, nil, err
		}
		return id, wire[PayloadIDSize:], nil
	default: // PlacementFooter
		n := len(wire)
		id, err := DecodePayloadID(wire[n-PayloadIDSize:])
		if err != nil {
			return PayloadID{}, nil, err
		}
		return id, wire[:n-PayloadIDSize], nil
	}
}

// JoinPayload assembles a wire payload from a PayloadID and symbol bytes,
// placing the PayloadID per the scheme's fixed placement.
func JoinPayload(scheme packet.FECScheme, id PayloadID, symbol []byte) []byte {
	out := make([]byte, len(symbol)+PayloadIDSize)
	switch PlacementFor(scheme) {
	case PlacementHeader:
		EncodePayloadID(id, out[:PayloadIDSize])
		copy(out[PayloadIDSize:], symbol)
	default:
		copy(out, symbol)
		EncodePayloadID(id, out[len(symbol):])
	}
	return out
}
