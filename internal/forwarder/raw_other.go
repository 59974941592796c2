//go:build !linux

package forwarder

import (
	"errors"
	"fmt"
)

// RawSender is only implemented on Linux. Elsewhere every send fails.
type RawSender struct{}

// NewRawSender returns a sender that fails every send.
func NewRawSender() *RawSender {
	return &RawSender{}
}

// Send always fails with ErrSend wrapping errors.ErrUnsupported.
func (s *RawSender) Send(Packet) error {
	return fmt.Errorf("%w: raw sockets: %w", ErrSend, errors.ErrUnsupported)
}

// Probe reports the same error as Send.
func (s *RawSender) Probe() error {
	return s.Send(Packet{})
}

func (s *RawSender) Close() error {
	return nil
}
