package scrcpy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacketQueueFIFO(t *testing.T) {
	q := NewPacketQueue()
	for i := 0; i < 100; i++ {
		q.Enqueue(&Packet{PTS: uint64(i)})
	}
	require.Equal(t, 100, q.Len())
	for i := 0; i < 100; i++ {
		pkt, ok := q.Dequeue()
		require.True(t, ok)
		require.Equal(t, uint64(i), pkt.PTS)
	}
}

func TestPacketQueueConcurrentOrder(t *testing.T) {
	q := NewPacketQueue()
	const n = 1000

	go func() {
		for i := 0; i < n; i++ {
			q.Enqueue(&Packet{PTS: uint64(i)})
		}
	}()

	for i := 0; i < n; i++ {
		pkt, ok := q.Dequeue()
		require.True(t, ok)
		require.Equal(t, uint64(i), pkt.PTS, "order must survive producer/consumer interleaving")
	}
}

func TestPacketQueueCloseUnblocksDequeue(t *testing.T) {
	q := NewPacketQueue()

	unblocked := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue()
		unblocked <- ok
	}()

	time.Sleep(50 * time.Millisecond)
	q.Close()

	select {
	case ok := <-unblocked:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Dequeue still blocked after Close")
	}
}

func TestPacketQueueCloseStopsConsumption(t *testing.T) {
	q := NewPacketQueue()
	q.Enqueue(&Packet{})
	q.Close()

	// buffered packets are abandoned so the consumer can release promptly
	_, ok := q.Dequeue()
	require.False(t, ok)

	// enqueue after close is discarded
	q.Enqueue(&Packet{})
	require.Equal(t, 1, q.Len())
	_, ok = q.Dequeue()
	require.False(t, ok)
}

func TestPacketQueueCloseIdempotent(t *testing.T) {
	q := NewPacketQueue()
	q.Close()
	q.Close()
	_, ok := q.Dequeue()
	require.False(t, ok)
}
