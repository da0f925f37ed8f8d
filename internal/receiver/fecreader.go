package receiver

import (
	"sort"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/fecformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
)

// fecBlock tracks which symbols of one FEC block have arrived.
type fecBlock struct {
	sbn       uint16
	n, m      int
	source    []*packet.Packet // len n, nil where missing
	repair    [][]byte         // len m, nil where missing
	present   int
	abandoned bool
}

// FECReader maintains a sliding window of in-flight blocks, reconstructing
// missing source packets once a block becomes decodable, per spec.md
// section 4.6.
type FECReader struct {
	scheme   packet.FECScheme
	registry fecformat.Registry
	pool     *packet.Pool

	windowSize int
	blocks     map[uint16]*fecBlock
	order      []uint16 // ascending insertion order of sbn, for tie-break

	symbolLen int
}

// NewFECReader allocates a FECReader.
func NewFECReader(scheme packet.FECScheme, registry fecformat.Registry, pool *packet.Pool, windowSize, symbolLen int) *FECReader {
	return &FECReader{
		scheme:     scheme,
		registry:   registry,
		pool:       pool,
		windowSize: windowSize,
		blocks:     make(map[uint16]*fecBlock),
		symbolLen:  symbolLen,
	}
}

// Push records one source or repair packet's arrival into its block.
// Returns any source packets the arrival made decodable (reconstructed, or
// simply forwarded if it was a source packet), plus possibly nil if the
// packet is still pending completion of its block.
func (r *FECReader) Push(pk *packet.Packet) []*packet.Packet {
	if pk.FEC == nil {
		return []*packet.Packet{pk}
	}

	sbn := pk.FEC.SourceBlockNumber
	blk, ok := r.blocks[sbn]
	if !ok {
		blk = &fecBlock{
			sbn:    sbn,
			n:      int(pk.FEC.SourceBlockLength),
			m:      int(pk.FEC.BlockLength) - int(pk.FEC.SourceBlockLength),
			source: make([]*packet.Packet, pk.FEC.SourceBlockLength),
			repair: make([][]byte, int(pk.FEC.BlockLength)-int(pk.FEC.SourceBlockLength)),
		}
		r.blocks[sbn] = blk
		r.order = append(r.order, sbn)
		r.evictOld()
	}

	esi := int(pk.FEC.EncodingSymbolID)
	if pk.Flags.Has(packet.FlagRepair) {
		if esi < len(blk.repair) && blk.repair[esi] == nil {
			blk.repair[esi] = pk.FEC.Payload
			blk.present++
		}
	} else {
		if esi < len(blk.source) && blk.source[esi] == nil {
			blk.source[esi] = pk
			blk.present++
		}
	}

	if blk.present < blk.n || blk.abandoned {
		return nil
	}

	return r.decode(blk)
}

func (r *FECReader) decode(blk *fecBlock) []*packet.Packet {
	missing := 0
	for _, s := range blk.source {
		if s == nil {
			missing++
		}
	}

	if missing > 0 {
		codec := r.registry.Lookup(r.scheme)
		if codec != nil {
			payloads := make([][]byte, blk.n)
			for i, s := range blk.source {
				if s != nil {
					payloads[i] = s.RTP.Payload
				}
			}
			if err := codec.Decode(payloads, blk.repair, blk.n, blk.m, r.symbolLen); err == nil {
				for i, s := range blk.source {
					if s == nil {
						rp, perr := r.pool.Get()
						if perr != nil {
							continue
						}
						rp.Flags = packet.FlagRTP | packet.FlagAudio | packet.FlagRestored
						rp.RTP = &packet.RTPView{Payload: payloads[i]}
						blk.source[i] = rp
					}
				}
			}
		}
	}

	out := make([]*packet.Packet, 0, blk.n)
	for _, s := range blk.source {
		if s != nil {
			out = append(out, s)
		}
	}

	delete(r.blocks, blk.sbn)
	return out
}

// evictOld abandons the oldest tracked block once the window is full,
// surfacing whatever source packets it already has (the rest remain gaps
// for the depacketizer), per spec.md's abandonment rule.
func (r *FECReader) evictOld() {
	for len(r.order) > r.windowSize {
		oldest := r.order[0]
		r.order = r.order[1:]
		if blk, ok := r.blocks[oldest]; ok {
			blk.abandoned = true
			delete(r.blocks, oldest)
		}
	}
}

// PendingInAscendingOrder returns the sbns of all in-flight blocks in
// ascending order, for the tie-break spec.md section 4.6 specifies when
// multiple blocks become decodable simultaneously.
func (r *FECReader) PendingInAscendingOrder() []uint16 {
	out := make([]uint16, 0, len(r.blocks))
	for sbn := range r.blocks {
		out = append(out, sbn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
