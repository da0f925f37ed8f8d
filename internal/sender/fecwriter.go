package sender

import (
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/fecformat"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
)

// FECWriter buffers source packets into blocks of N and emits N source
// packets followed by M repair packets per block, per spec.md section 4.2.
type FECWriter struct {
	scheme    packet.FECScheme
	n, m      int
	symbolLen int
	codec     fecformat.BlockCodec
	pool      *packet.Pool
	next      Writer

	sbn     uint16
	pending []*packet.Packet
}

// NewFECWriter constructs a FECWriter. n and m may be reconfigured between
// blocks via Reconfigure; the change takes effect at the next block
// boundary.
func NewFECWriter(scheme packet.FECScheme, n, m, symbolLen int, registry fecformat.Registry, pool *packet.Pool, next Writer) *FECWriter {
	return &FECWriter{
		scheme:    scheme,
		n:         n,
		m:         m,
		symbolLen: symbolLen,
		codec:     registry.Lookup(scheme),
		pool:      pool,
		next:      next,
	}
}

// Reconfigure changes N/M for the next block boundary.
func (w *FECWriter) Reconfigure(n, m int) {
	w.n, w.m = n, m
}

// Write implements Writer. pk must carry an RTP view; the FEC view is
// attached here.
func (w *FECWriter) Write(pk *packet.Packet) error {
	if w.codec == nil {
		return w.next.Write(pk)
	}

	pk.Flags |= packet.FlagFEC
	w.pending = append(w.pending, pk)

	if len(w.pending) < w.n {
		return nil
	}

	return w.flushBlock()
}

func (w *FECWriter) flushBlock() error {
	n, m := w.n, w.m
	source := make([][]byte, n)
	for i, pk := range w.pending {
		source[i] = pk.RTP.Payload
	}

	repair, err := w.codec.Encode(source, n, m, w.symbolLen)
	if err != nil {
		w.dropPending()
		return err
	}

	for i, pk := range w.pending {
		pk.FEC = &packet.FECView{
			Scheme:            w.scheme,
			EncodingSymbolID:  uint16(i),
			SourceBlockNumber: w.sbn,
			SourceBlockLength: uint16(n),
			BlockLength:       uint16(n + m),
			Payload:           pk.RTP.Payload,
		}
		if err := w.next.Write(pk); err != nil {
			return err
		}
	}

	for i, payload := range repair {
		rp, err := w.pool.Get()
		if err != nil {
			return err
		}
		rp.Flags = packet.FlagFEC | packet.FlagRepair
		rp.FEC = &packet.FECView{
			Scheme:            w.scheme,
			EncodingSymbolID:  uint16(i),
			SourceBlockNumber: w.sbn,
			SourceBlockLength: uint16(n),
			BlockLength:       uint16(n + m),
			Payload:           payload,
		}
		id := fecformat.PayloadID{SBN: w.sbn, ESI: uint16(i), K: uint16(n), N: uint16(n + m)}
		rp.Bytes = fecformat.JoinPayload(w.scheme, id, payload)

		if err := w.next.Write(rp); err != nil {
			w.pool.Release(rp)
			return err
		}
	}

	w.sbn++
	w.pending = w.pending[:0]
	return nil
}

func (w *FECWriter) dropPending() {
	for _, pk := range w.pending {
		w.pool.Release(pk)
	}
	w.pending = w.pending[:0]
}
