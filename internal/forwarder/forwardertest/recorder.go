// Package forwardertest provides an in-memory forwarder.Sender for tests.
package forwardertest

import (
	"sync"

	"github.com/telhawk-systems/hecrelay/internal/forwarder"
)

// Recorder keeps every packet it is asked to send. If Fail is set, it is
// consulted first and a non-nil result is returned instead of recording.
type Recorder struct {
	Fail func(p forwarder.Packet) error

	mu      sync.Mutex
	packets []forwarder.Packet
}

// Send records p unless Fail rejects it.
func (r *Recorder) Send(p forwarder.Packet) error {
	if r.Fail != nil {
		if err := r.Fail(p); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, p)
	return nil
}

// Packets returns a copy of the recorded packets in send order.
func (r *Recorder) Packets() []forwarder.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]forwarder.Packet, len(r.packets))
	copy(out, r.packets)
	return out
}

// Len returns the number of recorded packets.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.packets)
}
