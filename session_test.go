package scrcpy

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mobcast/scrcpy/adb"
)

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	finished := make(chan struct{})
	go func() {
		s.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("session goroutines did not exit")
	}
}

func TestSessionEndOfStreamTearsDown(t *testing.T) {
	sender := &fakeSender{}
	s := newSession(adb.NewBridge("test-device"), sender, SessionOptions{})

	stream := buildHandshake("test-device", CodecH264, 640, 480)
	stream = append(stream, buildFrame(0, false, true, []byte{0, 0, 0, 1, 0x65})...)

	// EOF after one frame: the reader exits and must drag the whole
	// session down with it.
	s.startPipeline(bytes.NewReader(stream))
	waitDone(t, s)

	select {
	case <-s.done:
	default:
		t.Fatal("close signal not raised")
	}
	_, ok := s.queue.Dequeue()
	require.False(t, ok, "queue must be closed after teardown")
}

func TestSessionFallbackDoesNotAccumulatePackets(t *testing.T) {
	sender := &fakeSender{}
	s := newSession(adb.NewBridge("test-device"), sender, SessionOptions{})
	s.initDecoder = func() error { return errors.New("decoder unavailable") }

	client, server := net.Pipe()
	defer client.Close()
	s.conn = server
	s.startPipeline(server)

	// entering the fallback must close the queue, which has no consumer
	// from here on
	require.Eventually(t, func() bool {
		s.queue.cond.L.Lock()
		defer s.queue.cond.L.Unlock()
		return s.queue.closed
	}, time.Second, 5*time.Millisecond, "queue must close when the decoder cannot initialize")

	stream := buildHandshake("test-device", CodecH264, 640, 480)
	for i := 0; i < 50; i++ {
		stream = append(stream, buildFrame(uint64(i)*16000, false, i == 0, []byte{0, 0, 0, 1, 0x41})...)
	}

	wrote := make(chan struct{})
	go func() {
		_, _ = client.Write(stream)
		close(wrote)
	}()
	select {
	case <-wrote:
	case <-time.After(5 * time.Second):
		t.Fatal("reader stopped consuming the stream")
	}

	require.Zero(t, s.queue.Len(), "packets must be discarded while degraded")

	s.Close()
	waitDone(t, s)
}

func TestSessionCloseUnblocksPipeline(t *testing.T) {
	sender := &fakeSender{}
	s := newSession(adb.NewBridge("test-device"), sender, SessionOptions{})

	// a pipe that never delivers the handshake keeps the reader blocked
	// until the session closes its end
	client, server := net.Pipe()
	defer client.Close()
	s.conn = server
	s.startPipeline(server)

	time.Sleep(50 * time.Millisecond)
	s.Close()
	s.Close() // idempotent

	waitDone(t, s)
}
