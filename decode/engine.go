// Package decode turns H.264 access units from a device stream into JPEG
// frames suitable for low-latency push delivery.
package decode

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/fanap-infra/log"
)

// ErrNotInitialized is returned when an access unit is submitted to an
// engine whose decoder never opened or was already released.
var ErrNotInitialized = errors.New("decode: engine not initialized")

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateReleased
)

// Engine owns the codec context, decode buffers and color converter for one
// streaming session. It is confined to a single goroutine; no locking.
type Engine struct {
	state     state
	codecCtx  *astiav.CodecContext
	pkt       *astiav.Packet
	frame     *astiav.Frame
	converter *converter
	quality   int
}

func NewEngine() *Engine {
	return &Engine{quality: DefaultJPEGQuality}
}

// Init acquires and opens the H.264 decoder in low-delay mode. On failure
// the engine stays unusable and the caller is expected to switch to the
// screenshot fallback.
func (e *Engine) Init() error {
	if e.state != stateUninitialized {
		return fmt.Errorf("decode: init in state %d", e.state)
	}

	codec := astiav.FindDecoder(astiav.CodecIDH264)
	if codec == nil {
		return errors.New("decode: h264 decoder not found")
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return errors.New("decode: alloc codec context")
	}
	cc.SetFlags(cc.Flags().Add(astiav.CodecContextFlagLowDelay))
	cc.SetFlags2(cc.Flags2().Add(astiav.CodecContextFlag2Fast))
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return fmt.Errorf("decode: open codec: %w", err)
	}

	e.codecCtx = cc
	e.pkt = astiav.AllocPacket()
	e.frame = astiav.AllocFrame()
	e.converter = newConverter()
	e.state = stateReady
	log.Infov("H264 Decoder Initialized")
	return nil
}

// Initialized reports whether the engine can decode.
func (e *Engine) Initialized() bool {
	return e.state == stateReady
}

// DecodeToJPEG submits one access unit and returns an encoded frame. A nil
// frame with nil error means the codec needs more data before yielding a
// picture (config packets, buffered pictures); that is not an error.
func (e *Engine) DecodeToJPEG(au []byte) ([]byte, error) {
	if e.state != stateReady {
		return nil, ErrNotInitialized
	}

	if err := e.pkt.FromData(au); err != nil {
		return nil, fmt.Errorf("decode: packet from data: %w", err)
	}
	defer e.pkt.Unref()

	if err := e.codecCtx.SendPacket(e.pkt); err != nil {
		return nil, fmt.Errorf("decode: send packet: %w", err)
	}
	if err := e.codecCtx.ReceiveFrame(e.frame); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode: receive frame: %w", err)
	}
	defer e.frame.Unref()

	out, err := e.converter.ToJPEG(e.frame, e.quality)
	if err != nil {
		return nil, err
	}
	metricFramesDecoded.Inc()
	return out, nil
}

// Release frees the converter, the decoded-picture buffer, the submission
// packet and the codec context, in that order. Idempotent and safe after a
// failed Init.
func (e *Engine) Release() {
	if e.state == stateReleased {
		return
	}
	if e.converter != nil {
		e.converter.release()
		e.converter = nil
	}
	if e.frame != nil {
		e.frame.Free()
		e.frame = nil
	}
	if e.pkt != nil {
		e.pkt.Free()
		e.pkt = nil
	}
	if e.codecCtx != nil {
		e.codecCtx.Free()
		e.codecCtx = nil
	}
	if e.state == stateReady {
		log.Infov("H264 Decoder Released")
	}
	e.state = stateReleased
}
