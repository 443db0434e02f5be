package smpquery

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
)

// QueryContext binds a participant to the registry it was found in and the
// SMP serving it. It is immutable; With* methods return copies.
type QueryContext struct {
	id          string
	registry    registry.Config
	participant identifier.Participant
	endpoint    *url.URL
	trustAll    bool
}

// NewQueryContext builds a context for an SMP endpoint. Certificates are
// trusted blindly for https endpoints of registries that do not pin them.
func NewQueryContext(cfg registry.Config, p identifier.Participant, endpoint *url.URL) *QueryContext {
	u := *endpoint
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return &QueryContext{
		id:          uuid.New().String(),
		registry:    cfg,
		participant: p,
		endpoint:    &u,
		trustAll:    strings.EqualFold(u.Scheme, "https") && !cfg.PinsCertificates,
	}
}

// ID correlates the log lines of one query
func (q *QueryContext) ID() string { return q.id }

// Registry returns the registry the participant was found in
func (q *QueryContext) Registry() registry.Config { return q.registry }

// Participant returns the queried participant
func (q *QueryContext) Participant() identifier.Participant { return q.participant }

// Endpoint returns the SMP base URL; it never ends with '/'.
func (q *QueryContext) Endpoint() string {
	return strings.TrimRight(q.endpoint.String(), "/")
}

// EndpointURL returns a copy of the SMP base URL
func (q *QueryContext) EndpointURL() *url.URL {
	u := *q.endpoint
	return &u
}

// TrustAllCertificates reports whether SMP TLS certificates are accepted
// without validation.
func (q *QueryContext) TrustAllCertificates() bool { return q.trustAll }

// WithTrustAllCertificates returns a copy with the flag overridden.
func (q *QueryContext) WithTrustAllCertificates(trustAll bool) *QueryContext {
	c := *q
	c.trustAll = trustAll
	return &c
}

// LogAttrs returns slog key/value pairs describing the query.
func (q *QueryContext) LogAttrs() []any {
	return []any{
		"query_id", q.id,
		"registry", q.registry.ID,
		"variant", string(q.registry.Variant),
		"participant", q.participant.URIEncoded(),
		"endpoint", q.Endpoint(),
	}
}
