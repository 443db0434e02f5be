package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

const (
	// DefaultTimeout bounds a whole HTTP exchange
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent when Settings.UserAgent is empty
	DefaultUserAgent = "go-smp/1.0"
	// DefaultMaxResponseBytes caps the size of a response body
	DefaultMaxResponseBytes = 10 << 20
)

// ErrResponseTooLarge is returned when a body exceeds MaxResponseBytes
var ErrResponseTooLarge = errors.New("response body too large")

// Recommended TLS 1.2 cipher suites
var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// Settings contains the HTTP client settings of one query. A caller supplied
// modifier may change them before each client is built.
type Settings struct {
	UserAgent     string
	Timeout       time.Duration
	MinTLSVersion uint16
	MaxTLSVersion uint16
	CipherSuites  []uint16
	RootCAs       *x509.CertPool

	// Proxy is used for all requests when set
	Proxy *url.URL

	// TrustAllCertificates disables server certificate validation
	TrustAllCertificates bool

	// FollowRedirects lets the client follow 3xx answers. SMP lookups keep
	// it off so redirects surface as status codes.
	FollowRedirects bool

	// MaxResponseBytes caps response bodies. Defaults to DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// DefaultSettings returns the default settings
func DefaultSettings() Settings {
	return Settings{
		UserAgent:        DefaultUserAgent,
		Timeout:          DefaultTimeout,
		MinTLSVersion:    TLS12,
		MaxTLSVersion:    TLS13,
		CipherSuites:     RecommendedTLS12CipherSuites,
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

func (s *Settings) applyDefaults() {
	d := DefaultSettings()
	if s.UserAgent == "" {
		s.UserAgent = d.UserAgent
	}
	if s.Timeout <= 0 {
		s.Timeout = d.Timeout
	}
	if s.MinTLSVersion == 0 {
		s.MinTLSVersion = d.MinTLSVersion
	}
	if s.MaxTLSVersion == 0 {
		s.MaxTLSVersion = d.MaxTLSVersion
	}
	if s.CipherSuites == nil {
		s.CipherSuites = d.CipherSuites
	}
	if s.MaxResponseBytes <= 0 {
		s.MaxResponseBytes = d.MaxResponseBytes
	}
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Location returns the redirect target of a 3xx response.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// Client performs GET requests with a fixed set of settings
type Client struct {
	client   *http.Client
	settings Settings
}

// NewClient creates a new HTTP client. Every query builds its own client;
// nothing is shared between queries.
func NewClient(settings Settings) *Client {
	settings.applyDefaults()

	tlsConfig := &tls.Config{
		MinVersion:   settings.MinTLSVersion,
		MaxVersion:   settings.MaxTLSVersion,
		CipherSuites: settings.CipherSuites,
		RootCAs:      settings.RootCAs,
		// #nosec G402 -- opt-in per query, SMP certificates are often self-issued
		InsecureSkipVerify: settings.TrustAllCertificates,
	}

	transport := &http.Transport{
		TLSClientConfig:   tlsConfig,
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	}
	if settings.Proxy != nil {
		transport.Proxy = http.ProxyURL(settings.Proxy)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   settings.Timeout,
	}
	if !settings.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Client{client: client, settings: settings}
}

// Settings returns the effective settings
func (c *Client) Settings() Settings {
	return c.settings
}

// Get fetches rawURL. Any HTTP status is a Response; only network level
// failures are errors.
func (c *Client) Get(ctx context.Context, rawURL, accept string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", c.settings.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.settings.MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.settings.MaxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.settings.MaxResponseBytes)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        rawURL,
	}, nil
}
