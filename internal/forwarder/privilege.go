package forwarder

import "os"

// IsElevated reports whether the process runs as root. Capabilities such as
// CAP_NET_RAW are not inspected; RawSender.Probe gives the definitive answer.
func IsElevated() bool {
	return os.Geteuid() == 0
}
