//go:build linux

package forwarder

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// RawSender writes datagrams through IPPROTO_RAW sockets, one per address
// family, opened on first use. The kernel takes the IP header from the
// frame as given. Opening a raw socket needs root or CAP_NET_RAW.
type RawSender struct {
	mu     sync.Mutex
	fd4    int
	fd6    int
	closed bool
}

// NewRawSender returns a sender with no sockets open yet.
func NewRawSender() *RawSender {
	return &RawSender{fd4: -1, fd6: -1}
}

// Send serializes p and writes it to the raw socket for its family.
func (s *RawSender) Send(p Packet) error {
	frame, err := p.Serialize()
	if err != nil {
		return fmt.Errorf("%w: serialize: %v", ErrSend, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: sender closed", ErrSend)
	}

	var sa unix.Sockaddr
	var fd int
	if p.Is4() {
		fd, err = s.socket(&s.fd4, unix.AF_INET)
		sa = &unix.SockaddrInet4{Addr: p.Dst.As4()}
	} else {
		fd, err = s.socket(&s.fd6, unix.AF_INET6)
		sa = &unix.SockaddrInet6{Addr: p.Dst.As16()}
	}
	if err != nil {
		return err
	}

	if err := unix.Sendto(fd, frame, 0, sa); err != nil {
		return fmt.Errorf("%w: sendto %s: %v", ErrSend, p.Dst, err)
	}
	return nil
}

// Probe opens the IPv4 socket so that missing privileges surface at startup.
func (s *RawSender) Probe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.socket(&s.fd4, unix.AF_INET)
	return err
}

// Close releases any open sockets. Later sends fail with ErrSend.
func (s *RawSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	var errs []error
	for _, fd := range []*int{&s.fd4, &s.fd6} {
		if *fd >= 0 {
			if err := unix.Close(*fd); err != nil {
				errs = append(errs, err)
			}
			*fd = -1
		}
	}
	return errors.Join(errs...)
}

// socket returns the cached descriptor or opens a new one. Failed opens are
// not cached so that a later grant of privileges takes effect.
func (s *RawSender) socket(fd *int, family int) (int, error) {
	if *fd >= 0 {
		return *fd, nil
	}

	f, err := unix.Socket(family, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.IPPROTO_RAW)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return -1, fmt.Errorf("%w: open raw socket: %v (requires root or CAP_NET_RAW)", ErrSend, err)
		}
		return -1, fmt.Errorf("%w: open raw socket: %v", ErrSend, err)
	}
	if family == unix.AF_INET {
		if err := unix.SetsockoptInt(f, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
			unix.Close(f)
			return -1, fmt.Errorf("%w: set IP_HDRINCL: %v", ErrSend, err)
		}
	}

	*fd = f
	return f, nil
}
