package scrcpy

import (
	"bytes"
	"errors"
	"image/jpeg"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mobcast/scrcpy/adb"
)

type fakeCapturer struct {
	fail  bool
	calls int32
}

func (f *fakeCapturer) Screenshot() (*adb.RawImage, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fail {
		return nil, errors.New("screencap unavailable")
	}
	return &adb.RawImage{
		Width:  2,
		Height: 2,
		BPP:    32,
		Pix:    bytes.Repeat([]byte{0x10, 0x20, 0x30, 0xff}, 4),
	}, nil
}

type countingSender struct {
	frames int32
}

func (c *countingSender) SendBinary([]byte) error {
	atomic.AddInt32(&c.frames, 1)
	return nil
}

func (c *countingSender) SendText(string) error { return nil }

func TestFallbackCadence(t *testing.T) {
	capture := &fakeCapturer{}
	sender := &countingSender{}
	done := make(chan struct{})

	go func() {
		time.Sleep(500 * time.Millisecond)
		close(done)
	}()
	runFallback(capture, sender, done)

	// one capture per ~200 ms period
	frames := atomic.LoadInt32(&sender.frames)
	require.GreaterOrEqual(t, frames, int32(2))
	require.LessOrEqual(t, frames, int32(4))
}

func TestFallbackSurvivesCaptureFailures(t *testing.T) {
	capture := &fakeCapturer{fail: true}
	sender := &countingSender{}
	done := make(chan struct{})

	go func() {
		time.Sleep(450 * time.Millisecond)
		close(done)
	}()
	runFallback(capture, sender, done)

	require.Zero(t, atomic.LoadInt32(&sender.frames))
	require.GreaterOrEqual(t, atomic.LoadInt32(&capture.calls), int32(2), "loop must continue past failures")
}

func TestCaptureJPEG(t *testing.T) {
	frame, err := captureJPEG(&fakeCapturer{})
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Width)
	require.Equal(t, 2, cfg.Height)
}
