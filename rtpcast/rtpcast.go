// Package rtpcast republishes the raw H.264 access units of a mirroring
// session as RTP packets, for consumers that want the elementary stream
// rather than JPEG frames.
package rtpcast

import (
	"sync"
	"sync/atomic"

	"github.com/fanap-infra/log"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

const (
	mtu           = 1200
	payloadType   = 96
	h264ClockRate = 90000

	// advance when the stream carries no usable PTS delta, ~30 fps
	defaultSamples = h264ClockRate / 30
)

// Listener receives packetized RTP in submission order. WritePacket reports
// whether the listener wants more; returning false detaches it.
type Listener interface {
	WritePacket(pkt *rtp.Packet) (further bool)
	WriteTrailer()
}

type listener struct {
	Listener
	started bool
}

// Caster packetizes access units and fans them out. Listeners may join
// mid-stream; they are gated until the next key frame so their decoder
// starts on a self-contained picture. Config packets always pass through.
type Caster struct {
	packetizer  rtp.Packetizer
	listeners   sync.Map
	listenersID uint32
	count       int32

	havePTS bool
	lastPTS uint64
}

func NewCaster(ssrc uint32) *Caster {
	return &Caster{
		packetizer: rtp.NewPacketizer(mtu, payloadType, ssrc,
			&codecs.H264Payloader{}, rtp.NewRandomSequencer(), h264ClockRate),
	}
}

// AddListener registers ln and returns its id.
func (c *Caster) AddListener(ln Listener) uint32 {
	id := atomic.AddUint32(&c.listenersID, 1)
	c.listeners.Store(id, &listener{Listener: ln})
	atomic.AddInt32(&c.count, 1)
	log.Debugv("RTP Add Listener", "id", id)
	return id
}

// RemoveListener detaches a listener and notifies it.
func (c *Caster) RemoveListener(id uint32) {
	if v, ok := c.listeners.LoadAndDelete(id); ok {
		atomic.AddInt32(&c.count, -1)
		v.(*listener).WriteTrailer()
		log.Debugv("RTP Remove Listener", "id", id)
	}
}

// Cast packetizes one access unit and delivers it to every active listener.
// pts is in microseconds, as carried by the stream's frame headers.
func (c *Caster) Cast(au []byte, pts uint64, isConfig, isKeyFrame bool) {
	if atomic.LoadInt32(&c.count) == 0 {
		return
	}

	samples := uint32(defaultSamples)
	if isConfig {
		samples = 0
	} else if c.havePTS && pts > c.lastPTS {
		samples = uint32((pts - c.lastPTS) * h264ClockRate / 1e6)
	}
	if !isConfig {
		c.havePTS = true
		c.lastPTS = pts
	}

	pkts := c.packetizer.Packetize(au, samples)
	c.listeners.Range(func(key, value interface{}) bool {
		ln := value.(*listener)
		if !ln.started {
			if !isKeyFrame && !isConfig {
				return true
			}
			if isKeyFrame {
				ln.started = true
			}
		}
		for _, p := range pkts {
			if !ln.WritePacket(p) {
				c.RemoveListener(key.(uint32))
				break
			}
		}
		return true
	})
}

// Close detaches all listeners.
func (c *Caster) Close() {
	c.listeners.Range(func(key, _ interface{}) bool {
		c.RemoveListener(key.(uint32))
		return true
	})
}
