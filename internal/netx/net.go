// Package netx extracts network context from inbound requests.
package netx

import (
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
)

// ClientAddress returns the best-effort originating address of r.
//
// The first comma-separated entry of X-Forwarded-For wins when it is present
// and non-empty; otherwise the host part of the peer address is used. An empty
// string means no address could be determined.
func ClientAddress(r *http.Request) string {
	return ResolveAddress(r.RemoteAddr, r.Header.Get(common.ForwardedForHeaderName))
}

// ResolveAddress applies the ClientAddress precedence to raw values.
func ResolveAddress(remoteAddr, forwardedFor string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// no port
		return remoteAddr
	}
	return host
}
