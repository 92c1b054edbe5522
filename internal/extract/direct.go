package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/foxzi/copysmith/internal/metrics"
)

const (
	maxPageSize  = 5 << 20
	maxRedirects = 5
)

// ErrBlockedAddress is returned when a page resolves to a loopback, private,
// link-local or otherwise non-public address
var ErrBlockedAddress = errors.New("address is not publicly routable")

// carrier-grade NAT, not covered by netip's IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// DirectClient fetches the page itself and converts its HTML to Markdown
type DirectClient struct {
	httpClient *http.Client
	converter  *md.Converter
	userAgent  string

	// allowPrivate disables the public address check. Tests only.
	allowPrivate bool
}

// NewDirectClient creates a fetcher with the given request timeout. It only
// connects to public addresses, including after redirects.
func NewDirectClient(timeout time.Duration) *DirectClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &DirectClient{
		converter: md.NewConverter("", true, nil),
		userAgent: "copysmith/1.0 (+landing page analysis)",
	}

	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: c.checkDial,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	c.httpClient = &http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: c.checkRedirect,
	}
	return c
}

// checkDial runs after DNS resolution, so address is always ip:port
func (c *DirectClient) checkDial(network, address string, _ syscall.RawConn) error {
	if c.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !isPublicAddr(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func (c *DirectClient) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
	}
	if c.allowPrivate {
		return nil
	}
	// Hostnames are checked again at dial time
	if ip, err := netip.ParseAddr(req.URL.Hostname()); err == nil && !isPublicAddr(ip) {
		return fmt.Errorf("%w: redirect to %s", ErrBlockedAddress, ip)
	}
	return nil
}

// isPublicAddr reports whether ip may be fetched on behalf of a user
func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case !ip.IsValid(),
		ip.IsUnspecified(),
		ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast():
		return false
	case ip.Is4() && sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

// Extract returns the whole page as a single fragment
func (c *DirectClient) Extract(ctx context.Context, pageURL string) ([]Fragment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncExternalCalls(servicePageFetch, statusError)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		metrics.IncExternalCalls(servicePageFetch, statusError)
		return nil, fmt.Errorf("read page: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncExternalCalls(servicePageFetch, statusError)
		if len(data) > 1024 {
			data = data[:1024]
		}
		return nil, &ExternalServiceError{Service: "Page fetch", Status: resp.StatusCode, Body: string(data)}
	}
	metrics.IncExternalCalls(servicePageFetch, statusOK)

	markdown, err := c.converter.ConvertString(string(data))
	if err != nil {
		return nil, fmt.Errorf("md conversion error: %w", err)
	}

	return []Fragment{{URL: pageURL, Content: markdown}}, nil
}
