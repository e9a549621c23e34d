package rtpcast

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

type fakeListener struct {
	pkts    []*rtp.Packet
	trailer int
	accept  int // packets accepted before WritePacket returns false; <0 means all
}

func newFakeListener() *fakeListener {
	return &fakeListener{accept: -1}
}

func (f *fakeListener) WritePacket(pkt *rtp.Packet) bool {
	if f.accept == 0 {
		return false
	}
	if f.accept > 0 {
		f.accept--
	}
	f.pkts = append(f.pkts, pkt)
	return true
}

func (f *fakeListener) WriteTrailer() { f.trailer++ }

func nonKeyFrame() []byte { return []byte{0, 0, 0, 1, 0x41, 0x9a, 0x00, 0x01} }
func keyFrame() []byte    { return []byte{0, 0, 0, 1, 0x65, 0x88, 0x84, 0x00} }

func TestCasterKeyFrameGate(t *testing.T) {
	c := NewCaster(0x1234)
	ln := newFakeListener()
	c.AddListener(ln)

	// a late joiner must not see pictures until a key frame arrives
	c.Cast(nonKeyFrame(), 0, false, false)
	require.Empty(t, ln.pkts)

	c.Cast(keyFrame(), 40000, false, true)
	require.NotEmpty(t, ln.pkts)

	n := len(ln.pkts)
	c.Cast(nonKeyFrame(), 80000, false, false)
	require.Greater(t, len(ln.pkts), n, "started listener receives delta frames")
}

func TestCasterTimestampAdvance(t *testing.T) {
	c := NewCaster(1)
	ln := newFakeListener()
	c.AddListener(ln)

	c.Cast(keyFrame(), 0, false, true)
	c.Cast(nonKeyFrame(), 40000, false, false) // 40 ms later
	c.Cast(nonKeyFrame(), 80000, false, false)
	require.Len(t, ln.pkts, 3)

	// the batch for the third unit starts where the second left off:
	// 40000 us at the 90 kHz clock
	delta := ln.pkts[2].Timestamp - ln.pkts[1].Timestamp
	require.Equal(t, uint32(40000*h264ClockRate/1e6), delta)
}

func TestCasterRejectingListenerDetached(t *testing.T) {
	c := NewCaster(1)
	ln := newFakeListener()
	ln.accept = 1
	id := c.AddListener(ln)

	c.Cast(keyFrame(), 0, false, true)
	c.Cast(nonKeyFrame(), 40000, false, false)

	require.Len(t, ln.pkts, 1)
	require.Equal(t, 1, ln.trailer)

	// removing again is a no-op
	c.RemoveListener(id)
	require.Equal(t, 1, ln.trailer)
}

func TestCasterCloseNotifiesAll(t *testing.T) {
	c := NewCaster(1)
	a := newFakeListener()
	b := newFakeListener()
	c.AddListener(a)
	c.AddListener(b)

	c.Close()
	require.Equal(t, 1, a.trailer)
	require.Equal(t, 1, b.trailer)

	// no listeners left: casting is a cheap no-op
	c.Cast(keyFrame(), 0, false, true)
	require.Empty(t, a.pkts)
}
