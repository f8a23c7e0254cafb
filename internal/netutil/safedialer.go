package netutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// SafeDialer is a net.Dialer that prevents connections to private, loopback,
// and link-local IP addresses.
type SafeDialer struct {
	// Timeout is the maximum amount of time a dial will wait for
	// a connect to complete.
	//
	// The default is no timeout.
	Timeout time.Duration

	// Resolver looks up host addresses. Nil means net.DefaultResolver.
	Resolver *net.Resolver
}

// DialContext connects to the address on the named network using the provided
// context. It prevents connections to private, loopback, and link-local IPs.
func (d *SafeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		host = address
		port = ""
	}

	resolver := d.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve host: %w", err)
	}

	var firstPublicIP net.IP
	for _, addr := range addrs {
		if isPrivate(addr.IP) {
			return nil, fmt.Errorf("connection to private IP %s is not allowed", addr.IP)
		}
		if firstPublicIP == nil {
			firstPublicIP = addr.IP
		}
	}

	if firstPublicIP == nil {
		return nil, fmt.Errorf("no public IP found for host: %s", host)
	}

	// Connect directly to the validated IP address to prevent TOCTOU
	dialer := &net.Dialer{Timeout: d.Timeout}
	connectAddress := firstPublicIP.String()
	if port != "" {
		connectAddress = net.JoinHostPort(connectAddress, port)
	}

	return dialer.DialContext(ctx, network, connectAddress)
}

// NewHTTPClient returns a non-shared HTTP client with the given overall
// request timeout. When allowPrivate is false every connection goes through
// a SafeDialer.
func NewHTTPClient(timeout time.Duration, allowPrivate bool) *http.Client {
	client := cleanhttp.DefaultClient()
	client.Timeout = timeout
	if !allowPrivate {
		transport := cleanhttp.DefaultTransport()
		transport.DialContext = (&SafeDialer{Timeout: 10 * time.Second}).DialContext
		client.Transport = transport
	}
	return client
}

// isPrivate checks if an IP address is private, loopback, or link-local.
func isPrivate(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
