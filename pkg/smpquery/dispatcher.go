package smpquery

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
	"github.com/sirosfoundation/go-smp/pkg/smpclient"
	"github.com/sirosfoundation/go-smp/pkg/transport"
)

// Operation label values
const (
	OperationListDocumentTypes  = "list_document_types"
	OperationGetServiceMetadata = "get_service_metadata"
)

// QueryOptions selects the checks applied to SMP responses
type QueryOptions struct {
	ValidateSchema  bool
	VerifySignature bool
}

// DefaultQueryOptions enables all checks.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{ValidateSchema: true, VerifySignature: true}
}

// DispatcherConfig configures a Dispatcher
type DispatcherConfig struct {
	// UserAgent of SMP requests. Defaults to transport.DefaultUserAgent.
	UserAgent string

	// ModifySettings may change the HTTP settings before each client is
	// built
	ModifySettings func(s *transport.Settings)

	// SignatureTrust restricts accepted SMP signing certificates to those
	// chaining to its roots
	SignatureTrust *x509.CertPool

	Hooks Hooks

	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// Metrics is optional
	Metrics *Metrics
}

// Dispatcher runs SMP queries in the protocol variant of the registry a
// participant was found in.
type Dispatcher struct {
	config DispatcherConfig
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		config: config,
		logger: logger.With("component", "smpquery.dispatcher"),
	}
}

// WithHooks returns a Dispatcher sharing the configuration but calling
// hooks, for callers that collect side-channel output per request.
func (d *Dispatcher) WithHooks(hooks Hooks) *Dispatcher {
	c := d.config
	c.Hooks = hooks
	return &Dispatcher{config: c, logger: d.logger}
}

// ClientSettings returns the HTTP settings for a query: defaults, the user
// agent, the trust-all flag of qc, then the caller's modifier.
func ClientSettings(qc *QueryContext, userAgent string, modify func(*transport.Settings)) transport.Settings {
	s := transport.DefaultSettings()
	if userAgent != "" {
		s.UserAgent = userAgent
	}
	s.TrustAllCertificates = qc.TrustAllCertificates()
	if modify != nil {
		modify(&s)
	}
	return s
}

// newClient builds the SMP client for qc with the settings shared by all
// variants and hands it to the OnClient hook.
func (d *Dispatcher) newClient(qc *QueryContext, opts QueryOptions) (*smpclient.Client, error) {
	c, err := smpclient.New(qc.Registry().Variant, qc.Endpoint(), smpclient.Options{
		Settings:        ClientSettings(qc, d.config.UserAgent, d.config.ModifySettings),
		ValidateSchema:  opts.ValidateSchema,
		VerifySignature: opts.VerifySignature,
		SignatureTrust:  d.config.SignatureTrust,
		OnResponse:      d.config.Hooks.OnResponse,
		Logger:          d.logger,
	})
	if err != nil {
		return nil, err
	}
	if d.config.Hooks.OnClient != nil {
		d.config.Hooks.OnClient(c)
	}
	return c, nil
}

// ListDocumentTypes fetches the service group of the participant. It returns
// nil when the SMP does not know the participant or the query failed;
// failures are passed to Hooks.OnException.
func (d *Dispatcher) ListDocumentTypes(ctx context.Context, qc *QueryContext, opts QueryOptions) *ServiceListing {
	start := time.Now()
	variant := qc.Registry().Variant
	logger := d.logger.With(qc.LogAttrs()...)

	c, err := d.newClient(qc, opts)
	if err != nil {
		d.absent(logger, qc, OperationListDocumentTypes, start, err)
		return nil
	}

	listing := NewServiceListing(qc.Participant(), qc.Registry().Family, d.config.Hooks.duplicate)
	p := qc.Participant()

	switch variant {
	case registry.VariantPeppol:
		sg, err := c.GetPeppolServiceGroup(ctx, p)
		if err != nil {
			d.absent(logger, qc, OperationListDocumentTypes, start, err)
			return nil
		}
		for _, ref := range sg.References {
			listing.Add(ref.Href)
		}
		d.config.Hooks.extensions(variant, sg.Extensions)

	case registry.VariantBDXR1:
		sg, err := c.GetBDXR1ServiceGroup(ctx, p)
		if err != nil {
			d.absent(logger, qc, OperationListDocumentTypes, start, err)
			return nil
		}
		for _, ref := range sg.References {
			listing.Add(ref.Href)
		}
		d.config.Hooks.extensions(variant, sg.Extensions)

	case registry.VariantBDXR2:
		sg, err := c.GetBDXR2ServiceGroup(ctx, p)
		if err != nil {
			d.absent(logger, qc, OperationListDocumentTypes, start, err)
			return nil
		}
		// SMP 2.0 lists document types only; build the hrefs ourselves
		base := c.ServiceGroupURL(p) + "/services/"
		for _, ref := range sg.References {
			listing.Add(base + identifier.PercentEncode(ref.ID.SchemeID+identifier.Separator+ref.ID.Value))
		}
		d.config.Hooks.extensions(variant, sg.Extensions)

	default:
		d.absent(logger, qc, OperationListDocumentTypes, start, fmt.Errorf("unknown protocol variant %q", variant))
		return nil
	}

	elapsed := time.Since(start)
	d.config.Metrics.ObserveQuery(string(variant), OperationListDocumentTypes, OutcomeOK, elapsed)
	logger.Debug("service group retrieved", "entries", listing.Len(), "duration", elapsed)
	return listing.WithTiming(start, elapsed)
}

// GetServiceMetadata fetches the service metadata of one document type. An
// SMP level redirect is followed once. It returns nil when the SMP does not
// know the document type or the query failed; failures are passed to
// Hooks.OnException.
func (d *Dispatcher) GetServiceMetadata(ctx context.Context, qc *QueryContext, docType identifier.DocumentType, opts QueryOptions) *ServiceMetadataResult {
	start := time.Now()
	variant := qc.Registry().Variant
	logger := d.logger.With(qc.LogAttrs()...).With("document_type", docType.URIEncoded())

	c, err := d.newClient(qc, opts)
	if err != nil {
		d.absent(logger, qc, OperationGetServiceMetadata, start, err)
		return nil
	}

	var (
		result   *ServiceMetadataResult
		redirect string
	)
	switch variant {
	case registry.VariantPeppol:
		result, redirect, err = d.peppolMetadata(ctx, c, qc, docType)
	case registry.VariantBDXR1:
		result, redirect, err = d.bdxr1Metadata(ctx, c, qc, docType)
	case registry.VariantBDXR2:
		result, redirect, err = d.bdxr2Metadata(ctx, c, qc, docType)
	default:
		err = fmt.Errorf("unknown protocol variant %q", variant)
	}
	if err != nil {
		d.absent(logger, qc, OperationGetServiceMetadata, start, err)
		return nil
	}

	// report the identifier that was asked for, not the SMP's rendition of it
	if requested := docType.URIEncoded(); result.DocumentTypeID != requested {
		if result.DocumentTypeID != "" {
			logger.Warn("SMP returned a different document type identifier", "returned", result.DocumentTypeID)
		}
		result.DocumentTypeID = requested
	}

	if redirect != "" {
		result.Redirect = redirect
		d.config.Hooks.Notify(LevelInfo, "The SMP redirected the query to "+redirect, nil)
	}
	d.config.Hooks.extensions(variant, result.RawExtensions)

	elapsed := time.Since(start)
	d.config.Metrics.ObserveQuery(string(variant), OperationGetServiceMetadata, OutcomeOK, elapsed)
	logger.Debug("service metadata retrieved", "endpoints", len(result.Endpoints), "duration", elapsed)
	return result.WithTiming(start, elapsed)
}

func errRedirectLoop(url string) error {
	return &smpclient.ProtocolViolationError{URL: url, Reason: "redirect target redirects again"}
}

func (d *Dispatcher) peppolMetadata(ctx context.Context, c *smpclient.Client, qc *QueryContext, docType identifier.DocumentType) (*ServiceMetadataResult, string, error) {
	ssm, err := c.GetPeppolServiceMetadata(ctx, qc.Participant(), docType)
	if err != nil {
		return nil, "", err
	}
	var redirect string
	if r := ssm.ServiceMetadata.Redirect; r != nil {
		redirect = r.Href
		d.logger.Info("following SMP redirect", "query_id", qc.ID(), "target", redirect)
		if ssm, err = c.FetchPeppolServiceMetadata(ctx, redirect); err != nil {
			return nil, "", err
		}
		if ssm.ServiceMetadata.Redirect != nil {
			return nil, "", errRedirectLoop(redirect)
		}
	}
	result, err := Normalize(registry.VariantPeppol, &ssm.ServiceMetadata)
	return result, redirect, err
}

func (d *Dispatcher) bdxr1Metadata(ctx context.Context, c *smpclient.Client, qc *QueryContext, docType identifier.DocumentType) (*ServiceMetadataResult, string, error) {
	ssm, err := c.GetBDXR1ServiceMetadata(ctx, qc.Participant(), docType)
	if err != nil {
		return nil, "", err
	}
	var redirect string
	if r := ssm.ServiceMetadata.Redirect; r != nil {
		redirect = r.Href
		d.logger.Info("following SMP redirect", "query_id", qc.ID(), "target", redirect)
		if ssm, err = c.FetchBDXR1ServiceMetadata(ctx, redirect); err != nil {
			return nil, "", err
		}
		if ssm.ServiceMetadata.Redirect != nil {
			return nil, "", errRedirectLoop(redirect)
		}
	}
	result, err := Normalize(registry.VariantBDXR1, &ssm.ServiceMetadata)
	return result, redirect, err
}

func (d *Dispatcher) bdxr2Metadata(ctx context.Context, c *smpclient.Client, qc *QueryContext, docType identifier.DocumentType) (*ServiceMetadataResult, string, error) {
	sm, err := c.GetBDXR2ServiceMetadata(ctx, qc.Participant(), docType)
	if err != nil {
		return nil, "", err
	}
	result, err := Normalize(registry.VariantBDXR2, sm)
	if err != nil || result.Redirect == "" || len(result.Endpoints) > 0 {
		return result, "", err
	}

	// the publisher URI is the base URL of the other SMP
	redirect := result.Redirect
	d.logger.Info("following SMP redirect", "query_id", qc.ID(), "target", redirect)
	target, err := c.WithEndpoint(redirect)
	if err != nil {
		return nil, "", &smpclient.ProtocolViolationError{URL: c.ServiceMetadataURL(qc.Participant(), docType), Reason: "invalid redirect target: " + err.Error()}
	}
	if sm, err = target.GetBDXR2ServiceMetadata(ctx, qc.Participant(), docType); err != nil {
		return nil, "", err
	}
	if result, err = Normalize(registry.VariantBDXR2, sm); err != nil {
		return nil, "", err
	}
	if result.Redirect != "" && len(result.Endpoints) == 0 {
		return nil, "", errRedirectLoop(redirect)
	}
	result.Redirect = ""
	return result, redirect, nil
}

// absent records a query that produced nothing. Not found is a normal
// answer; everything else goes to OnException.
func (d *Dispatcher) absent(logger *slog.Logger, qc *QueryContext, op string, start time.Time, err error) {
	variant := string(qc.Registry().Variant)
	if errors.Is(err, smpclient.ErrNotFound) {
		logger.Debug("not found on SMP", "operation", op, "error", err)
		d.config.Metrics.ObserveQuery(variant, op, OutcomeNotFound, time.Since(start))
		return
	}
	logger.Warn("SMP query failed", "operation", op, "error", err, "kind", Classify(err).String())
	d.config.Metrics.ObserveQuery(variant, op, OutcomeError, time.Since(start))
	d.config.Hooks.ReportException(err)
}
