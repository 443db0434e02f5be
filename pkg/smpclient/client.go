package smpclient

import (
	"context"
	"crypto/x509"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
	"github.com/sirosfoundation/go-smp/pkg/transport"
)

// BDXR2PathPrefix is inserted between the SMP base URL and the participant
// for OASIS SMP 2.0 requests
const BDXR2PathPrefix = "bdxr-smp-2"

// ResponseHook observes every raw SMP response
type ResponseHook func(url string, statusCode int, body []byte)

// Options configures a Client
type Options struct {
	// Settings for the HTTP client
	Settings transport.Settings

	// ValidateSchema checks the structure of every response document
	ValidateSchema bool

	// VerifySignature checks the XML signature of service metadata
	VerifySignature bool

	// SignatureTrust, when set, must contain the root of the SMP signing
	// certificate
	SignatureTrust *x509.CertPool

	// OnResponse is called with every raw response before it is parsed
	OnResponse ResponseHook

	// Logger for debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client queries one SMP in one protocol variant. The three variants share
// everything but the document types and the URL layout.
type Client struct {
	variant  registry.Variant
	endpoint string
	http     *transport.Client
	opts     Options
	logger   *slog.Logger
}

// New creates a client for the SMP at endpoint.
func New(variant registry.Variant, endpoint string, opts Options) (*Client, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("unknown protocol variant %q", variant)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid SMP endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid SMP endpoint %q: need an absolute http(s) URL", endpoint)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		variant:  variant,
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     transport.NewClient(opts.Settings),
		opts:     opts,
		logger:   logger.With("component", "smpclient", "variant", string(variant)),
	}, nil
}

// WithEndpoint returns a client with the same options for another SMP.
func (c *Client) WithEndpoint(endpoint string) (*Client, error) {
	return New(c.variant, endpoint, c.opts)
}

// Variant returns the protocol variant
func (c *Client) Variant() registry.Variant { return c.variant }

// Endpoint returns the SMP base URL without trailing slash
func (c *Client) Endpoint() string { return c.endpoint }

// Options returns the options the client was built with
func (c *Client) Options() Options { return c.opts }

// Settings returns the effective HTTP settings
func (c *Client) Settings() transport.Settings { return c.http.Settings() }

// ServiceGroupURL returns the URL of the participant's service group.
func (c *Client) ServiceGroupURL(p identifier.Participant) string {
	base := c.endpoint
	if c.variant == registry.VariantBDXR2 {
		base += "/" + BDXR2PathPrefix
	}
	return base + "/" + p.URIPercentEncoded()
}

// ServiceMetadataURL returns the URL of the service metadata of one document
// type.
func (c *Client) ServiceMetadataURL(p identifier.Participant, d identifier.DocumentType) string {
	return c.ServiceGroupURL(p) + "/services/" + d.URIPercentEncoded()
}

// GetPeppolServiceGroup retrieves a Peppol ServiceGroup.
func (c *Client) GetPeppolServiceGroup(ctx context.Context, p identifier.Participant) (*PeppolServiceGroup, error) {
	return fetch[PeppolServiceGroup](ctx, c, c.ServiceGroupURL(p), kindPeppolServiceGroup)
}

// GetPeppolServiceMetadata retrieves Peppol SignedServiceMetadata.
func (c *Client) GetPeppolServiceMetadata(ctx context.Context, p identifier.Participant, d identifier.DocumentType) (*PeppolSignedServiceMetadata, error) {
	return c.FetchPeppolServiceMetadata(ctx, c.ServiceMetadataURL(p, d))
}

// FetchPeppolServiceMetadata retrieves Peppol SignedServiceMetadata from an
// absolute URL, as found in a ServiceGroup reference or a Redirect.
func (c *Client) FetchPeppolServiceMetadata(ctx context.Context, rawURL string) (*PeppolSignedServiceMetadata, error) {
	return fetch[PeppolSignedServiceMetadata](ctx, c, rawURL, kindPeppolServiceMetadata)
}

// GetBDXR1ServiceGroup retrieves an OASIS SMP 1.0 ServiceGroup.
func (c *Client) GetBDXR1ServiceGroup(ctx context.Context, p identifier.Participant) (*BDXR1ServiceGroup, error) {
	return fetch[BDXR1ServiceGroup](ctx, c, c.ServiceGroupURL(p), kindBDXR1ServiceGroup)
}

// GetBDXR1ServiceMetadata retrieves OASIS SMP 1.0 SignedServiceMetadata.
func (c *Client) GetBDXR1ServiceMetadata(ctx context.Context, p identifier.Participant, d identifier.DocumentType) (*BDXR1SignedServiceMetadata, error) {
	return c.FetchBDXR1ServiceMetadata(ctx, c.ServiceMetadataURL(p, d))
}

// FetchBDXR1ServiceMetadata retrieves OASIS SMP 1.0 SignedServiceMetadata
// from an absolute URL.
func (c *Client) FetchBDXR1ServiceMetadata(ctx context.Context, rawURL string) (*BDXR1SignedServiceMetadata, error) {
	return fetch[BDXR1SignedServiceMetadata](ctx, c, rawURL, kindBDXR1ServiceMetadata)
}

// GetBDXR2ServiceGroup retrieves an OASIS SMP 2.0 ServiceGroup.
func (c *Client) GetBDXR2ServiceGroup(ctx context.Context, p identifier.Participant) (*BDXR2ServiceGroup, error) {
	return fetch[BDXR2ServiceGroup](ctx, c, c.ServiceGroupURL(p), kindBDXR2ServiceGroup)
}

// GetBDXR2ServiceMetadata retrieves OASIS SMP 2.0 ServiceMetadata.
func (c *Client) GetBDXR2ServiceMetadata(ctx context.Context, p identifier.Participant, d identifier.DocumentType) (*BDXR2ServiceMetadata, error) {
	return fetch[BDXR2ServiceMetadata](ctx, c, c.ServiceMetadataURL(p, d), kindBDXR2ServiceMetadata)
}

func fetch[T any](ctx context.Context, c *Client, rawURL string, kind docKind) (*T, error) {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if c.opts.ValidateSchema {
		if err := kind.validate(rawURL, body); err != nil {
			return nil, err
		}
	}
	if c.opts.VerifySignature && kind.signed {
		if err := verifySignature(rawURL, body, c.opts.SignatureTrust); err != nil {
			return nil, err
		}
	}

	var v T
	if err := xml.Unmarshal(body, &v); err != nil {
		return nil, &SchemaError{URL: rawURL, Document: kind.name, Reason: "cannot decode", Err: err}
	}
	return &v, nil
}

// get performs the request and maps the HTTP status.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.http.Get(ctx, rawURL, "application/xml")
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	c.logger.Debug("SMP response", "url", rawURL, "status", resp.StatusCode, "bytes", len(resp.Body))

	if c.opts.OnResponse != nil {
		c.opts.OnResponse(rawURL, resp.StatusCode, resp.Body)
	}

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		return resp.Body, nil
	case code == http.StatusNotFound, code == http.StatusGone, code == http.StatusNoContent:
		return nil, fmt.Errorf("%w: %s (status %d)", ErrNotFound, rawURL, code)
	case code >= 300 && code < 400:
		if c.variant == registry.VariantPeppol {
			return nil, &ProtocolViolationError{URL: rawURL, StatusCode: code, Reason: "HTTP redirect not allowed"}
		}
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: code, Location: resp.Location()}
	default:
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: code}
	}
}
