package scrcpy

import (
	"bytes"
	"image/jpeg"
	"time"

	"github.com/fanap-infra/log"

	"github.com/mobcast/scrcpy/adb"
	"github.com/mobcast/scrcpy/decode"
)

// ~5 fps: sleep whatever remains of the period after each capture
const captureInterval = 200 * time.Millisecond

// ScreenCapturer is the slice of the device bridge the fallback path uses.
type ScreenCapturer interface {
	Screenshot() (*adb.RawImage, error)
}

// runFallback pushes periodic screencap JPEGs until done closes. It is the
// degraded-service path, engaged only when the decoder could not be
// initialized; frame rate and fidelity are traded for continued service.
func runFallback(capture ScreenCapturer, sender Sender, done <-chan struct{}) {
	log.Infov("Screencap Fallback Started")
	captured := 0
	for {
		select {
		case <-done:
			log.Infov("Screencap Fallback Stopped", "frames", captured)
			return
		default:
		}

		start := time.Now()
		frame, err := captureJPEG(capture)
		if err != nil {
			log.Debugv("Screencap Capture", "error", err)
		} else if err := sender.SendBinary(frame); err != nil {
			log.Debugv("Screencap Send", "error", err)
		} else {
			captured++
			metricFallbackCaptures.Inc()
		}

		if rest := captureInterval - time.Since(start); rest > 0 {
			select {
			case <-done:
				log.Infov("Screencap Fallback Stopped", "frames", captured)
				return
			case <-time.After(rest):
			}
		}
	}
}

func captureJPEG(capture ScreenCapturer) ([]byte, error) {
	raw, err := capture.Screenshot()
	if err != nil {
		return nil, err
	}
	img, err := raw.ToImage()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: decode.DefaultJPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
