package payments

import (
	"context"
	"net"
	"net/http"
	"net/netip"
)

type contextKey string

const peerAddrKey contextKey = "peerAddr"

// CapturePeerAddr stores the transport-level peer address in the request
// context. It must run before any middleware that rewrites RemoteAddr from
// forwarding headers; the webhook allowlist has to see the TCP peer, not a
// client-controlled header value.
func CapturePeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerAddrKey, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PeerAddr returns the address captured by CapturePeerAddr, falling back to
// RemoteAddr when the middleware did not run.
func PeerAddr(r *http.Request) string {
	if addr, ok := r.Context().Value(peerAddrKey).(string); ok {
		return addr
	}
	return r.RemoteAddr
}

// trustedSources is the provider's published webhook origin list. Notifications
// from any other address are dropped before parsing.
var trustedSources = func() []netip.Prefix {
	cidrs := []string{
		"185.71.76.0/27",
		"185.71.77.0/27",
		"77.75.153.0/25",
		"77.75.156.11/32",
		"77.75.156.35/32",
		"77.75.154.128/25",
		"2a02:5180::/32",
	}
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		prefixes = append(prefixes, netip.MustParsePrefix(c))
	}
	return prefixes
}()

// IsTrustedSource reports whether remoteAddr (a bare IP or host:port as found
// in http.Request.RemoteAddr) falls inside the provider's allowlist.
func IsTrustedSource(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trustedSources {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
