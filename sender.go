package scrcpy

import (
	"encoding/json"
	"strconv"
)

// Sender delivers binary frames and text status messages to the viewer
// session. Implementations must preserve submission order.
type Sender interface {
	SendBinary(data []byte) error
	SendText(msg string) error
}

// sizeMessage is the status payload pushed after the handshake. Width and
// height are strings for the existing viewer frontend.
type sizeMessage struct {
	Msg    string `json:"msg"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

func notifySize(s Sender, width, height uint32) error {
	b, err := json.Marshal(sizeMessage{
		Msg:    "size",
		Width:  strconv.FormatUint(uint64(width), 10),
		Height: strconv.FormatUint(uint64(height), 10),
	})
	if err != nil {
		return err
	}
	return s.SendText(string(b))
}

type supportMessage struct {
	Msg  string `json:"msg"`
	Text string `json:"text"`
}

// notifySupport tells the viewer the device-side server could not be
// started.
func notifySupport(s Sender, text string) error {
	b, err := json.Marshal(supportMessage{Msg: "support", Text: text})
	if err != nil {
		return err
	}
	return s.SendText(string(b))
}
