package sender

import (
	"math/rand"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
)

// Interleaver permutes transmission order within each block of B packets to
// decorrelate bursty loss, per spec.md section 4.3. Packets remain
// logically ordered by seqnum; only wire order is shuffled.
type Interleaver struct {
	blockSize int
	perm      []int
	next      Writer

	buf []*packet.Packet
}

// NewInterleaver builds an Interleaver with a permutation of [0, blockSize)
// drawn once at construction, per spec.md ("a precomputed permutation...
// drawn once at construction").
func NewInterleaver(blockSize int, next Writer) *Interleaver {
	perm := rand.Perm(blockSize)
	return &Interleaver{blockSize: blockSize, perm: perm, next: next}
}

// Write implements Writer.
func (ilv *Interleaver) Write(pk *packet.Packet) error {
	ilv.buf = append(ilv.buf, pk)
	if len(ilv.buf) < ilv.blockSize {
		return nil
	}
	return ilv.flush()
}

func (ilv *Interleaver) flush() error {
	for _, i := range ilv.perm {
		if err := ilv.next.Write(ilv.buf[i]); err != nil {
			return err
		}
	}
	ilv.buf = ilv.buf[:0]
	return nil
}

// Flush drains any partial block still buffered, in original order, for
// shutdown.
func (ilv *Interleaver) Flush() error {
	for _, pk := range ilv.buf {
		if err := ilv.next.Write(pk); err != nil {
			return err
		}
	}
	ilv.buf = ilv.buf[:0]
	return nil
}
