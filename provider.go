package scrcpy

import (
	"context"
	"fmt"
	"sync"

	"github.com/fanap-infra/log"

	"github.com/mobcast/scrcpy/adb"
)

// Provider hands out mirroring sessions keyed by device serial. A device
// carries at most one live session; a session whose stream went quiet is
// evicted and replaced on the next open.
type Provider struct {
	opts     SessionOptions
	sessions sync.Map // serial -> *Session
}

func NewProvider(opts SessionOptions) *Provider {
	opts.defaults()
	return &Provider{opts: opts}
}

// Session returns the live session for a device serial.
func (p *Provider) Session(serial string) (*Session, bool) {
	v, ok := p.sessions.Load(serial)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// claim reserves the serial for a new session: a live session rejects the
// claim, a stale one is closed and evicted.
func (p *Provider) claim(serial string) error {
	v, ok := p.sessions.Load(serial)
	if !ok {
		return nil
	}
	prev := v.(*Session)
	if !prev.stale() {
		return fmt.Errorf("scrcpy: device %s is already being mirrored", serial)
	}
	log.Infov("Evict Stale Session", "session", prev.ID, "udid", serial)
	prev.Close()
	p.sessions.Delete(serial)
	return nil
}

// OpenSession starts the mirroring session for a device and begins pushing
// frames to sender.
func (p *Provider) OpenSession(ctx context.Context, serial string, sender Sender) (*Session, error) {
	if err := p.claim(serial); err != nil {
		return nil, err
	}

	s := newSession(adb.NewBridge(serial), sender, p.opts)
	s.onClosed = func() { p.sessions.Delete(serial) }
	if err := s.Start(ctx); err != nil {
		log.Errorv("Open Scrcpy Session", "udid", serial, "error", err)
		return nil, err
	}
	p.sessions.Store(serial, s)
	return s, nil
}
