// Package forwarder emits UDP datagrams whose IP source is the original
// reporting device, so that downstream collectors see the real origin.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/telhawk-systems/hecrelay/common/logging"
	"github.com/telhawk-systems/hecrelay/internal/metrics"
)

var (
	// ErrInvalidPacket means the event cannot be expressed as a datagram.
	ErrInvalidPacket = errors.New("invalid packet")
	// ErrSend means the datagram was valid but could not be transmitted.
	ErrSend = errors.New("send failed")
)

const (
	ephemeralLow  = 49152
	ephemeralHigh = 65535
)

// Sender writes one fully formed datagram to the network.
type Sender interface {
	Send(p Packet) error
}

// Options tune the datagrams built by a Forwarder.
type Options struct {
	// TTL is the IPv4 TTL or IPv6 hop limit. Zero means 64.
	TTL int
	// SourcePort pins the UDP source port. Zero draws an ephemeral port per packet.
	SourcePort int
	// Verbose logs a decoded summary of every packet before it is sent.
	Verbose bool
}

// Forwarder turns (host, vip, port, payload) into a spoofed datagram and
// hands it to a Sender.
type Forwarder struct {
	sender Sender
	logger *logging.Logger
	opts   Options
}

// New returns a Forwarder sending through sender. A TTL outside 1-255 means 64.
func New(sender Sender, logger *logging.Logger, opts Options) *Forwarder {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.TTL <= 0 || opts.TTL > 255 {
		opts.TTL = defaultTTL
	}
	return &Forwarder{sender: sender, logger: logger, opts: opts}
}

// Forward sends payload from src to dst:port. Validation failures wrap
// ErrInvalidPacket and transmission failures wrap ErrSend. A cancelled
// context is returned as is.
func (f *Forwarder) Forward(ctx context.Context, src, dst string, port int, payload []byte) error {
	pkt, err := NewPacket(src, dst, port, payload)
	if err != nil {
		return err
	}
	pkt.TTL = uint8(f.opts.TTL)
	pkt.SrcPort = f.sourcePort()

	if err := ctx.Err(); err != nil {
		return err
	}

	if f.opts.Verbose {
		f.logger.InfoContext(ctx, "sending packet",
			logging.Family(pkt.Family()),
			slog.String("packet", pkt.Summary()),
		)
	}

	if err := f.sender.Send(pkt); err != nil {
		metrics.SendErrors.WithLabelValues(pkt.Family()).Inc()
		if !errors.Is(err, ErrSend) {
			err = fmt.Errorf("%w: %w", ErrSend, err)
		}
		return err
	}

	metrics.PacketsSent.WithLabelValues(pkt.Family()).Inc()
	metrics.PacketBytes.Add(float64(len(pkt.Payload)))
	return nil
}

func (f *Forwarder) sourcePort() uint16 {
	if f.opts.SourcePort > 0 {
		return uint16(f.opts.SourcePort)
	}
	return uint16(ephemeralLow + rand.IntN(ephemeralHigh-ephemeralLow+1))
}
