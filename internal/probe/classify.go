package probe

import "strings"

// Stable probe failure classifications surfaced to API callers.
const (
	ErrKindDNS        = "dns_error"
	ErrKindConnection = "connection_error"
	ErrKindServer     = "server_error"
)

// Classify maps a transport error to a stable failure kind. The net package
// does not expose structured kinds for every failure mode, so classification
// falls back to substring matching on the error message.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"),
		strings.Contains(msg, "dns"),
		strings.Contains(msg, "server misbehaving"):
		return ErrKindDNS
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connect"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return ErrKindConnection
	default:
		return ErrKindServer
	}
}
