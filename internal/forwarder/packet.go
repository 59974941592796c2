package forwarder

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	ipv4HeaderLen = 20
	ipv6HeaderLen = 40
	udpHeaderLen  = 8

	maxIPv4Payload = 0xffff - ipv4HeaderLen - udpHeaderLen
	maxIPv6Payload = 0xffff - udpHeaderLen

	defaultTTL = 64
)

// Packet is one spoofed-source UDP datagram. Src is the original reporting
// device, not an address of this host.
type Packet struct {
	Src     netip.Addr
	Dst     netip.Addr
	SrcPort uint16
	DstPort uint16
	TTL     uint8
	Payload []byte
}

// NewPacket validates the addresses, port and payload of a datagram.
// Errors wrap ErrInvalidPacket.
func NewPacket(src, dst string, dstPort int, payload []byte) (Packet, error) {
	srcAddr, err := parseAddr("host", src)
	if err != nil {
		return Packet{}, err
	}
	dstAddr, err := parseAddr("vip", dst)
	if err != nil {
		return Packet{}, err
	}
	if srcAddr.Is4() != dstAddr.Is4() {
		return Packet{}, fmt.Errorf("%w: host %s and vip %s are different address families", ErrInvalidPacket, srcAddr, dstAddr)
	}
	if dstPort < 1 || dstPort > 65535 {
		return Packet{}, fmt.Errorf("%w: destination port %d out of range 1-65535", ErrInvalidPacket, dstPort)
	}
	if len(payload) == 0 {
		return Packet{}, fmt.Errorf("%w: empty payload", ErrInvalidPacket)
	}

	limit := maxIPv6Payload
	if srcAddr.Is4() {
		limit = maxIPv4Payload
	}
	if len(payload) > limit {
		return Packet{}, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidPacket, len(payload), limit)
	}

	return Packet{
		Src:     srcAddr,
		Dst:     dstAddr,
		DstPort: uint16(dstPort),
		TTL:     defaultTTL,
		Payload: payload,
	}, nil
}

// parseAddr accepts IPv4 and IPv6 literals. IPv4-mapped IPv6 addresses are
// treated as IPv4; zoned addresses are rejected.
func parseAddr(field, s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s %q is not an IP address", ErrInvalidPacket, field, s)
	}
	if addr.Zone() != "" {
		return netip.Addr{}, fmt.Errorf("%w: %s %q has a zone", ErrInvalidPacket, field, s)
	}
	return addr.Unmap(), nil
}

// Is4 reports whether the packet is IPv4.
func (p Packet) Is4() bool {
	return p.Src.Is4()
}

// Family returns "ipv4" or "ipv6".
func (p Packet) Family() string {
	if p.Is4() {
		return "ipv4"
	}
	return "ipv6"
}

// Serialize renders the packet as it goes on the wire: network header, UDP
// header, payload. Lengths and checksums are computed.
func (p Packet) Serialize() ([]byte, error) {
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(p.SrcPort),
		DstPort: layers.UDPPort(p.DstPort),
	}

	var network gopacket.SerializableLayer
	if p.Is4() {
		ip := &layers.IPv4{
			Version:  4,
			TTL:      p.TTL,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP(p.Src.AsSlice()),
			DstIP:    net.IP(p.Dst.AsSlice()),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		network = ip
	} else {
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   p.TTL,
			NextHeader: layers.IPProtocolUDP,
			SrcIP:      net.IP(p.Src.AsSlice()),
			DstIP:      net.IP(p.Dst.AsSlice()),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		network = ip
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, network, udp, gopacket.Payload(p.Payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Summary is a one-line description of the packet for logs.
func (p Packet) Summary() string {
	frame, err := p.Serialize()
	if err != nil {
		return fmt.Sprintf("%s unserializable: %v", p.Family(), err)
	}
	return Describe(frame)
}

// Describe decodes a wire frame and renders its layers, e.g.
// "IPv4 10.0.0.1 > 10.0.0.2 ttl=64 / UDP 50000 > 514 / Payload 5 bytes".
func Describe(frame []byte) string {
	if len(frame) == 0 {
		return "empty frame"
	}

	first := layers.LayerTypeIPv4
	if frame[0]>>4 == 6 {
		first = layers.LayerTypeIPv6
	}
	decoded := gopacket.NewPacket(frame, first, gopacket.NoCopy)

	var parts []string
	for _, layer := range decoded.Layers() {
		switch l := layer.(type) {
		case *layers.IPv4:
			parts = append(parts, fmt.Sprintf("IPv4 %s > %s ttl=%d", l.SrcIP, l.DstIP, l.TTL))
		case *layers.IPv6:
			parts = append(parts, fmt.Sprintf("IPv6 %s > %s hlim=%d", l.SrcIP, l.DstIP, l.HopLimit))
		case *layers.UDP:
			parts = append(parts, fmt.Sprintf("UDP %d > %d", l.SrcPort, l.DstPort))
		case *gopacket.Payload:
			parts = append(parts, fmt.Sprintf("Payload %d bytes", len(l.Payload())))
		default:
			parts = append(parts, layer.LayerType().String())
		}
	}
	if errLayer := decoded.ErrorLayer(); errLayer != nil {
		parts = append(parts, fmt.Sprintf("decode error: %v", errLayer.Error()))
	}
	return strings.Join(parts, " / ")
}
