package scrcpy

import (
	"encoding/binary"
	"io"

	"github.com/fanap-infra/log"
)

// Reader demultiplexes framed video packets from the scrcpy socket into the
// session queue. It owns the read side of the stream; the session owns the
// socket itself and closes it to interrupt a blocked read.
type Reader struct {
	src       io.Reader
	queue     *PacketQueue
	sender    Sender
	handshake *Handshake
}

func NewReader(src io.Reader, queue *PacketQueue, sender Sender) *Reader {
	return &Reader{src: src, queue: queue, sender: sender}
}

// Handshake returns the parsed stream preamble, nil until Run has read it.
func (r *Reader) Handshake() *Handshake {
	return r.handshake
}

// Run performs the stream handshake, notifies the viewer of the video size
// and then demuxes frames until the stream ends. Stream termination, clean
// or not, returns without escalating; the session's teardown runs on exit.
func (r *Reader) Run() {
	hs, err := ReadHandshake(r.src)
	if err != nil {
		log.Errorv("Scrcpy Handshake", "error", err)
		return
	}
	r.handshake = hs
	log.Infov("Scrcpy Stream Opened",
		"device", hs.DeviceName, "codec", hs.CodecID,
		"width", hs.Width, "height", hs.Height)

	if err := notifySize(r.sender, hs.Width, hs.Height); err != nil {
		log.Debugv("Scrcpy Size Notify", "error", err)
	}

	var header [frameHeaderSize]byte
	for {
		if _, err := io.ReadFull(r.src, header[:]); err != nil {
			if err != io.EOF {
				log.Debugv("Scrcpy Stream Ended", "error", err)
			}
			return
		}

		word := binary.BigEndian.Uint64(header[0:8])
		size := binary.BigEndian.Uint32(header[8:12])

		// An out-of-range size is framing noise, not a session-fatal
		// condition: no payload follows such a header, so parsing resumes
		// at the next 12 bytes.
		if size == 0 || size > MaxPacketSize {
			log.Warnv("Scrcpy Invalid Packet Size", "size", size)
			metricPacketsDropped.Inc()
			continue
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(r.src, payload); err != nil {
			log.Debugv("Scrcpy Truncated Packet", "want", size, "error", err)
			return
		}

		r.queue.Enqueue(&Packet{
			PTS:        word & ptsMask,
			IsConfig:   word&flagConfig != 0,
			IsKeyFrame: word&flagKeyFrame != 0,
			Data:       payload,
		})
		metricPacketsReceived.Inc()
	}
}
