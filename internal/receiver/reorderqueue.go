// Package receiver implements the per-session receive pipeline: reorder
// queue/link meter, FEC reader, depacketizer and watchdog (spec.md
// sections 4.5-4.8), grounded on gortsplib's pkg/rtpreorderer for the
// bounded out-of-order window shape, generalized here to a priority queue
// keyed by 32-bit extended sequence number with an attached link meter.
package receiver

import (
	"container/heap"
	"time"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/rtptime"
)

// ReorderQueue is a bounded priority queue of packets keyed by extended
// sequence number. Packets older than the read cursor by more than the
// configured window are dropped as late; the queue's capacity is enforced
// in packet count only, with no bound on the stream time the buffered
// packets represent.
type ReorderQueue struct {
	capacity int
	window   int32

	heap     pqueue
	cursor   uint32 // next extended seqnum expected
	lastSeq  uint16
	lastSet  bool
	wraps    uint32

	lateCount uint64
}

// NewReorderQueue allocates a queue with the given packet-count capacity
// and reordering window (in sequence numbers).
func NewReorderQueue(capacity int, window int32) *ReorderQueue {
	return &ReorderQueue{capacity: capacity, window: window}
}

// extend converts a 16-bit wire seqnum to a monotonic 32-bit extended
// seqnum by tracking wraparounds relative to the last seen wire seqnum.
func (q *ReorderQueue) extend(seq uint16) uint32 {
	if !q.lastSet {
		q.lastSet = true
		q.lastSeq = seq
		return uint32(seq)
	}
	diff := rtptime.Seq16Diff(q.lastSeq, seq)
	if seq < q.lastSeq && diff > 0 {
		q.wraps++
	} else if seq > q.lastSeq && diff < 0 {
		q.wraps--
	}
	q.lastSeq = seq
	return q.wraps<<16 | uint32(seq)
}

// Push inserts pk, keyed by its RTP sequence number. Returns false only if
// the packet was dropped as too late. If the queue then exceeds its
// capacity, the entry with the lowest extended seqnum (possibly pk itself)
// is discarded and Push still returns true.
func (q *ReorderQueue) Push(pk *packet.Packet) bool {
	ext := q.extend(pk.RTP.SeqNum)

	if q.heap.Len() > 0 || q.cursor != 0 {
		if int32(ext-q.cursor) < -q.window {
			q.lateCount++
			return false
		}
	} else {
		q.cursor = ext
	}

	heap.Push(&q.heap, &pqItem{seq: ext, pk: pk})

	for q.heap.Len() > q.capacity {
		// drop the oldest to bound memory, per spec.md's capacity-in-packets
		// clause; the dropped entry's gap is surfaced by the FEC
		// reader/depacketizer as a missing range, not as an error here.
		item := heap.Pop(&q.heap).(*pqItem)
		_ = item
	}
	return true
}

// Pop returns the next packet in extended-seqnum order, and advances the
// read cursor past it. Returns nil if the queue is empty.
func (q *ReorderQueue) Pop() *packet.Packet {
	if q.heap.Len() == 0 {
		return nil
	}
	item := heap.Pop(&q.heap).(*pqItem)
	q.cursor = item.seq + 1
	return item.pk
}

// Len reports the number of buffered packets.
func (q *ReorderQueue) Len() int { return q.heap.Len() }

// LateCount reports the number of packets dropped for arriving too late.
func (q *ReorderQueue) LateCount() uint64 { return q.lateCount }

type pqItem struct {
	seq uint32
	pk  *packet.Packet
}

type pqueue []*pqItem

func (p pqueue) Len() int            { return len(p) }
func (p pqueue) Less(i, j int) bool  { return p[i].seq < p[j].seq }
func (p pqueue) Swap(i, j int)       { p[i], p[j] = p[j], p[i] }
func (p *pqueue) Push(x interface{}) { *p = append(*p, x.(*pqItem)) }
func (p *pqueue) Pop() interface{} {
	old := *p
	n := len(old)
	item := old[n-1]
	*p = old[:n-1]
	return item
}

// LinkMeter tracks the loss and jitter observables spec.md section 4.5
// requires, from the packets reported to it through OnPush.
type LinkMeter struct {
	clockRate uint32

	firstExt, lastExt uint32
	haveFirst         bool
	received          uint64

	prevArrival  time.Time
	prevTransit  int64
	jitter       float64

	sinceReportExpected uint32
	sinceReportReceived uint64
}

// NewLinkMeter allocates a LinkMeter for the session's RTP clock rate.
func NewLinkMeter(clockRate uint32) *LinkMeter {
	return &LinkMeter{clockRate: clockRate}
}

// OnPush records the arrival of a packet; the session reports each packet
// as it leaves the reorder queue.
func (m *LinkMeter) OnPush(ext uint32, rtpTimestamp uint32, arrival time.Time) {
	if !m.haveFirst {
		m.haveFirst = true
		m.firstExt = ext
	}
	if int32(ext-m.lastExt) > 0 || m.received == 0 {
		m.lastExt = ext
	}
	m.received++
	m.sinceReportReceived++

	if !m.prevArrival.IsZero() {
		arrivalRTP := int64(rtptime.NsTo32(arrival.Sub(m.prevArrival), m.clockRate))
		transit := arrivalRTP - int64(rtpTimestamp)
		d := transit - m.prevTransit
		if d < 0 {
			d = -d
		}
		m.jitter += (float64(d) - m.jitter) / 16
		m.prevTransit = transit
	}
	m.prevArrival = arrival
}

// ExtendedFirst and ExtendedLast return the first/last extended sequence
// numbers observed.
func (m *LinkMeter) ExtendedFirst() uint32 { return m.firstExt }
func (m *LinkMeter) ExtendedLast() uint32  { return m.lastExt }

// CumulativeLoss computes expected-minus-received over the whole session.
func (m *LinkMeter) CumulativeLoss() int64 {
	expected := int64(m.lastExt-m.firstExt) + 1
	return expected - int64(m.received)
}

// Jitter returns the current RFC 3550 interarrival jitter estimate, in RTP
// timestamp units.
func (m *LinkMeter) Jitter() float64 { return m.jitter }

// FractionLost computes loss over the interval since the previous call,
// resetting the interval counters, per the RTCP RR fraction-lost
// convention (a [0,1] ratio, encoded as a fixed-point byte by the caller).
func (m *LinkMeter) FractionLost(extentExpected uint32) float64 {
	if extentExpected == 0 {
		return 0
	}
	lost := int64(extentExpected) - int64(m.sinceReportReceived)
	if lost < 0 {
		lost = 0
	}
	frac := float64(lost) / float64(extentExpected)
	m.sinceReportReceived = 0
	return frac
}
