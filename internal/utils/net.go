package utils

import (
	"net"
	"strings"
)

// IsLoopbackHost reports whether host names the local machine. Covers
// "localhost", loopback IPs and the empty host.
func IsLoopbackHost(host string) bool {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" || host == "localhost" {
		return true
	}
	if strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
