package scrcpy

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fanap-infra/log"
	"github.com/google/uuid"

	"github.com/mobcast/scrcpy/adb"
	"github.com/mobcast/scrcpy/decode"
	"github.com/mobcast/scrcpy/rtpcast"
)

// SessionOptions configures device-side setup for a mirroring session.
type SessionOptions struct {
	// ServerJar is the local path of the scrcpy server jar pushed to the
	// device before launch. Empty skips the push (the jar is already
	// installed).
	ServerJar string

	// SocketName is the abstract socket the device-side server listens on.
	SocketName string

	DialTimeout time.Duration
}

func (o *SessionOptions) defaults() {
	if o.SocketName == "" {
		o.SocketName = "scrcpy"
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 5 * time.Second
	}
}

// Session is one device-to-viewer mirroring stream: a reader goroutine
// feeding the packet queue and a decode (or fallback) goroutine draining it.
// Nothing is shared across sessions.
type Session struct {
	ID     string
	bridge *adb.Bridge
	sender Sender
	opts   SessionOptions

	queue  *PacketQueue
	engine *decode.Engine
	rtp    *rtpcast.Caster
	reader *Reader

	conn   net.Conn
	server *adb.Server
	port   int

	done      chan struct{}
	onceClose sync.Once
	wg        sync.WaitGroup
	started   bool
	onClosed  func()
	lastFrame int64 // unix nanos of the last dequeued or captured frame

	// decoder acquisition, swappable in tests to force the fallback path
	initDecoder func() error
}

func newSession(bridge *adb.Bridge, sender Sender, opts SessionOptions) *Session {
	opts.defaults()
	id := uuid.New()
	s := &Session{
		ID:     id.String(),
		bridge: bridge,
		sender: sender,
		opts:   opts,
		queue:  NewPacketQueue(),
		engine: decode.NewEngine(),
		rtp:    rtpcast.NewCaster(binary.BigEndian.Uint32(id[0:4])),
		done:   make(chan struct{}),
	}
	s.initDecoder = s.engine.Init
	return s
}

// Start pushes and launches the device-side server, connects through a
// fresh port forward and spins up the pipeline goroutines.
func (s *Session) Start(ctx context.Context) error {
	port, err := adb.FreePort()
	if err != nil {
		return err
	}
	s.port = port

	if s.opts.ServerJar != "" {
		if err := s.bridge.PushServer(ctx, s.opts.ServerJar); err != nil {
			// the jar may already be on the device from a previous session
			log.Warnv("Push Scrcpy Server", "udid", s.bridge.Serial, "error", err)
		}
	}

	server, err := s.bridge.StartServer(ctx)
	if err != nil {
		_ = notifySupport(s.sender, "failed to start scrcpy server")
		return err
	}
	s.server = server

	if err := s.bridge.Forward(ctx, port, s.opts.SocketName); err != nil {
		server.Stop()
		return err
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), s.opts.DialTimeout)
	if err != nil {
		s.bridge.RemoveForward(port)
		server.Stop()
		return err
	}
	s.conn = conn

	s.startPipeline(conn)
	return nil
}

// startPipeline launches the reader and decode goroutines over an open
// stream. Split from Start so tests can drive the pipeline from any stream
// source.
func (s *Session) startPipeline(src io.Reader) {
	s.reader = NewReader(src, s.queue, s.sender)
	s.started = true
	metricActiveSessions.Inc()
	log.Infov("Scrcpy Session Opened", "session", s.ID, "udid", s.bridge.Serial)
	s.wg.Add(2)
	go s.readLoop()
	go s.decodeLoop()
}

func (s *Session) readLoop() {
	defer s.wg.Done()
	// reader exit, clean or not, terminates the decode loop and tears the
	// forward down
	defer s.Close()
	s.reader.Run()
}

func (s *Session) decodeLoop() {
	defer s.wg.Done()
	defer s.Close()
	defer s.engine.Release()

	if err := s.initDecoder(); err != nil {
		log.Errorv("Decoder Init", "session", s.ID, "error", err)
		// the fallback never dequeues, so close the queue here: the
		// reader's enqueues are discarded instead of accumulating for
		// the life of the session
		s.queue.Close()
		runFallback(s.bridge, &touchSender{s: s}, s.done)
		return
	}

	for {
		pkt, ok := s.queue.Dequeue()
		if !ok {
			return
		}
		s.touch()
		s.rtp.Cast(pkt.Data, pkt.PTS, pkt.IsConfig, pkt.IsKeyFrame)

		frame, err := s.engine.DecodeToJPEG(pkt.Data)
		if err != nil {
			metricFramesSkipped.Inc()
			log.Debugv("Decode Frame", "session", s.ID, "error", err)
			continue
		}
		if frame == nil {
			continue // codec buffered the access unit, no picture yet
		}
		if err := s.sender.SendBinary(frame); err != nil {
			metricFramesSkipped.Inc()
			log.Debugv("Send Frame", "session", s.ID, "error", err)
		}
	}
}

// RTP exposes the session's RTP fanout for elementary-stream listeners.
func (s *Session) RTP() *rtpcast.Caster {
	return s.rtp
}

// Close tears the session down: close signal, queue, socket, device-side
// server and port forward. Idempotent; both pipeline goroutines and the
// session owner all route through it.
func (s *Session) Close() {
	s.onceClose.Do(func() {
		close(s.done)
		s.queue.Close()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.rtp.Close()
		s.server.Stop()
		if s.port != 0 {
			s.bridge.RemoveForward(s.port)
		}
		if s.started {
			metricActiveSessions.Dec()
		}
		if s.onClosed != nil {
			s.onClosed()
		}
		log.Infov("Scrcpy Session Closed", "session", s.ID, "udid", s.bridge.Serial)
	})
}

// Wait blocks until both pipeline goroutines have exited.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) touch() {
	atomic.StoreInt64(&s.lastFrame, time.Now().UnixNano())
}

// stale reports whether the stream produced a frame once but has been quiet
// long enough for the provider to replace the session.
func (s *Session) stale() bool {
	last := atomic.LoadInt64(&s.lastFrame)
	return last != 0 && time.Since(time.Unix(0, last)) > 10*time.Second
}

// touchSender marks fallback frames on the session's liveness clock on
// their way to the viewer.
type touchSender struct {
	s *Session
}

func (t *touchSender) SendBinary(data []byte) error {
	t.s.touch()
	return t.s.sender.SendBinary(data)
}

func (t *touchSender) SendText(msg string) error {
	return t.s.sender.SendText(msg)
}
