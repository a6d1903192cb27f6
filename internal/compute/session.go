package compute

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// SessionConfig selects the device a session opens.
type SessionConfig struct {
	DeviceIndex int
	// Logger receives session lifecycle events; nil disables logging.
	Logger *zerolog.Logger
}

// Session owns one device and its in-order queue. It replaces process-wide
// device/context/queue handles: every solver receives its session explicitly.
type Session struct {
	backend Backend
	device  Device
	queue   Queue
	log     zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenSession opens a device of b and creates its queue.
func OpenSession(b Backend, cfg SessionConfig) (*Session, error) {
	if b == nil {
		return nil, ErrNoBackend
	}
	if !b.Available() {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, b.Name())
	}

	dev, err := b.Open(cfg.DeviceIndex)
	if err != nil {
		return nil, err
	}
	q, err := dev.NewQueue()
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	info := dev.Info()
	log = log.With().Str("backend", b.Name()).Str("device", info.Name).Logger()
	log.Debug().Int("compute_units", info.ComputeUnits).Strs("features", info.Features).Msg("session opened")

	return &Session{backend: b, device: dev, queue: q, log: log}, nil
}

func (s *Session) Backend() Backend { return s.backend }
func (s *Session) Device() Device   { return s.device }
func (s *Session) Queue() Queue     { return s.queue }

// Observe attaches a dispatch observer when the queue supports one.
func (s *Session) Observe(o DispatchObserver) bool {
	q, ok := s.queue.(interface{ SetObserver(DispatchObserver) })
	if ok {
		q.SetObserver(o)
	}
	return ok
}

// Close drains and releases the queue, then closes the device.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(s.queue.Release(), s.device.Close())
		s.log.Debug().Err(s.closeErr).Msg("session closed")
	})
	return s.closeErr
}
