// Package ipchecker validates that a request's client IP falls inside the
// trusted subnet guarding the internal stats endpoint.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker extracts client IPs from requests and checks them against a
// trusted subnet. With no subnet configured the checker is disabled and
// rejects everything.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New parses trustedSubnet as CIDR notation ("192.168.1.0/24"). An empty
// string produces a disabled checker.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("parsing trusted subnet: %w", err)
	}

	return &IPChecker{trustedSubnet: allowedNet}, nil
}

// Check reports whether clientIP belongs to the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && checker.trustedSubnet.Contains(clientIP)
}

// IsDisabled reports whether the checker was built without a subnet.
func (checker *IPChecker) IsDisabled() bool {
	return checker.trustedSubnet == nil
}

// GetClientIP extracts the client IP from X-Real-IP, then the first entry
// of X-Forwarded-For, then RemoteAddr.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		return net.ParseIP(first), nil
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("splitting remote address: %w", err)
	}

	return net.ParseIP(host), nil
}
