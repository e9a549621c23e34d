// Package scrcpy mirrors a remote Android device's screen to a viewer
// session by consuming the scrcpy server's video socket, decoding the H.264
// elementary stream and republishing individual frames as JPEG images.
package scrcpy

// MaxPacketSize bounds a single video packet. Headers announcing more are
// treated as framing noise and dropped.
const MaxPacketSize = 10 * 1024 * 1024

const (
	flagConfig   = uint64(1) << 63
	flagKeyFrame = uint64(1) << 62
	ptsMask      = flagKeyFrame - 1
)

// Packet is one compressed access unit read off the device stream. The
// reader creates it and hands ownership to the queue; the decode loop
// consumes it.
type Packet struct {
	PTS        uint64 // microseconds, flags masked off
	IsConfig   bool   // parameter sets, yields no picture
	IsKeyFrame bool
	Data       []byte
}
