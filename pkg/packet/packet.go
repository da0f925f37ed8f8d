// Package packet implements Packet, the reference-counted tagged union
// that flows through both the sender and receiver pipelines: a UDP
// datagram, an RTP frame, an FEC symbol, or an RTCP compound, any
// combination of which may be set on the same packet (e.g. UDP|RTP|Audio).
package packet

import (
	"net"
	"sync/atomic"
	"time"
)

// Flags is a bitset of packet roles.
type Flags uint32

// Packet role flags.
const (
	FlagUDP Flags = 1 << iota
	FlagRTP
	FlagFEC
	FlagRTCP
	FlagRepair
	FlagAudio
	FlagComposed
	FlagPrepared
	FlagRestored
)

// Has reports whether all bits of mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// UDPView carries UDP-specific addressing.
type UDPView struct {
	SourceAddr      *net.UDPAddr
	DestinationAddr *net.UDPAddr
}

// RTPView carries the parsed/composed RTP header fields plus the payload
// sub-slice of Packet.Bytes.
type RTPView struct {
	PayloadType      uint8
	SSRC             uint32
	SeqNum           uint16
	Timestamp        uint32
	Marker           bool
	CaptureTimestamp time.Time
	Payload          []byte
}

// FECScheme identifies the block code used to protect/restore a block.
type FECScheme int

// Supported FEC schemes.
const (
	FECSchemeNone FECScheme = iota
	FECSchemeRS8M
	FECSchemeLDPCStaircase
)

// FECView carries FEC block addressing for a source or repair symbol.
type FECView struct {
	Scheme            FECScheme
	EncodingSymbolID  uint16 // ESI
	SourceBlockNumber uint16 // SBN
	SourceBlockLength uint16 // N
	BlockLength       uint16 // N+M (called n_prime for LDPC repair payloads)
	Payload           []byte
}

// RTCPView carries the whole RTCP compound payload.
type RTCPView struct {
	Payload []byte
}

// Packet is a reference-counted container for one network datagram's worth
// of data plus whichever typed sub-views apply to it. Once FlagComposed is
// set, Bytes is the authoritative serialization of the sub-views. Once
// FlagRestored is set, the packet was synthesized by FEC reconstruction and
// must be treated as unauthenticated.
type Packet struct {
	Bytes []byte
	Flags Flags

	UDP  *UDPView
	RTP  *RTPView
	FEC  *FECView
	RTCP *RTCPView

	refs int32
}

// New allocates a fresh Packet holding one reference. Pools call this as their
// factory; callers otherwise obtain packets from a pool (pkg is agnostic
// to which one).
func New() *Packet {
	return &Packet{refs: 1}
}

// Reset clears a Packet back to its zero state so a pool can safely reuse
// it for an unrelated datagram.
func (p *Packet) Reset() {
	p.Bytes = p.Bytes[:0]
	p.Flags = 0
	p.UDP = nil
	p.RTP = nil
	p.FEC = nil
	p.RTCP = nil
	p.refs = 1
}

// Ref increments the reference count. Call before handing the same packet
// to more than one downstream consumer.
func (p *Packet) Ref() {
	atomic.AddInt32(&p.refs, 1)
}

// Unref decrements the reference count and reports whether it reached
// zero, in which case the caller (normally a pool) should reclaim it.
func (p *Packet) Unref() (reachedZero bool) {
	return atomic.AddInt32(&p.refs, -1) == 0
}

// RefCount returns the current reference count, for diagnostics/tests.
func (p *Packet) RefCount() int32 {
	return atomic.LoadInt32(&p.refs)
}
