package logging

import "log/slog"

// Common field names for consistent logging across the relay.
const (
	FieldService    = "service"
	FieldIP         = "ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldHost       = "host"
	FieldVIP        = "vip"
	FieldPort       = "port"
	FieldSourcetype = "sourcetype"
	FieldEventIndex = "event_index"
	FieldFamily     = "family"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// IP returns a slog attribute for the client IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Host returns a slog attribute for the reporting host of an event.
func Host(host string) slog.Attr {
	return slog.String(FieldHost, host)
}

// VIP returns a slog attribute for the destination address of an event.
func VIP(vip string) slog.Attr {
	return slog.String(FieldVIP, vip)
}

// Port returns a slog attribute for a UDP port.
func Port(port int) slog.Attr {
	return slog.Int(FieldPort, port)
}

// Sourcetype returns a slog attribute for an event sourcetype tag.
func Sourcetype(tag string) slog.Attr {
	return slog.String(FieldSourcetype, tag)
}

// EventIndex returns a slog attribute for the position of an event in its batch.
func EventIndex(i int) slog.Attr {
	return slog.Int(FieldEventIndex, i)
}

// Family returns a slog attribute for an IP address family ("ipv4" or "ipv6").
func Family(family string) slog.Attr {
	return slog.String(FieldFamily, family)
}
