package scrcpy

import "sync"

// PacketQueue is the FIFO between the reader and the decode loop: single
// producer, single consumer, non-blocking enqueue, blocking dequeue.
//
// The queue is unbounded so a frame is never dropped at ingress; a sustained
// decode stall therefore grows memory. A bounded ring dropping the oldest
// non-key frame would cap memory instead, at the price of a frame-loss
// policy. See DESIGN.md.
type PacketQueue struct {
	cond   *sync.Cond
	buf    []*Packet
	closed bool
}

func NewPacketQueue() *PacketQueue {
	return &PacketQueue{cond: sync.NewCond(&sync.Mutex{})}
}

// Enqueue appends pkt without blocking. Packets enqueued after Close are
// discarded.
func (q *PacketQueue) Enqueue(pkt *Packet) {
	q.cond.L.Lock()
	if !q.closed {
		q.buf = append(q.buf, pkt)
		q.cond.Signal()
	}
	q.cond.L.Unlock()
}

// Dequeue blocks until a packet is available or the queue is closed. After
// Close it reports false immediately, buffered packets included, so the
// consumer can proceed to release its resources.
func (q *PacketQueue) Dequeue() (*Packet, bool) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	for !q.closed && len(q.buf) == 0 {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	pkt := q.buf[0]
	q.buf[0] = nil
	q.buf = q.buf[1:]
	return pkt, true
}

// Close unblocks pending and future Dequeue calls. Idempotent.
func (q *PacketQueue) Close() {
	q.cond.L.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.cond.L.Unlock()
}

// Len reports the number of buffered packets.
func (q *PacketQueue) Len() int {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	return len(q.buf)
}
