package packet

import "github.com/roc-streaming/roc-toolkit-sub001/internal/arena"

// estimatedSize is the accounted size of one pooled packet for the memory
// limiter: a conservative upper bound on a UDP datagram's MTU.
const estimatedSize = 1500

// Pool is a packet.Packet-typed arena.Pool.
type Pool struct {
	inner *arena.Pool[Packet]
}

// NewPool allocates a packet Pool, optionally bounded by a MemLimiter.
func NewPool(limiter *arena.MemLimiter) *Pool {
	inner := arena.NewPool[Packet](New, (*Packet).Reset, estimatedSize)
	if limiter != nil {
		inner = inner.WithLimiter(limiter)
	}
	return &Pool{inner: inner}
}

// Get returns a fresh or reclaimed Packet with a single reference, or
// status.NoMem if a limiter is attached and exhausted.
func (p *Pool) Get() (*Packet, error) {
	pkt, err := p.inner.Get()
	if err != nil {
		return nil, err
	}
	pkt.refs = 1
	return pkt, nil
}

// Release drops one reference; if it reaches zero the packet is returned
// to the pool.
func (p *Pool) Release(pkt *Packet) {
	if pkt.Unref() {
		p.inner.Put(pkt)
	}
}
