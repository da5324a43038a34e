package stratum

import (
	"fmt"
	"regexp"
	"strconv"
)

var poolURLPattern = regexp.MustCompile(`^stratum\+(tcp|ssl)://([^:]+):(\d+)$`)

// Endpoint is one parsed pool address.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// ParsePoolURL parses a stratum+tcp:// or stratum+ssl:// URL.
func ParsePoolURL(raw string) (Endpoint, error) {
	m := poolURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return Endpoint{}, fmt.Errorf("stratum: invalid pool url %q", raw)
	}
	port, err := strconv.Atoi(m[3])
	if err != nil {
		return Endpoint{}, fmt.Errorf("stratum: invalid pool url %q: %w", raw, err)
	}
	return Endpoint{Scheme: m[1], Host: m[2], Port: port}, nil
}

// Address returns the host:port dial target.
func (e Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// UseTLS reports whether this endpoint requires a TLS connection.
func (e Endpoint) UseTLS() bool {
	return e.Scheme == "ssl"
}
