package businesscard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirosfoundation/go-smp/pkg/smpclient"
	"github.com/sirosfoundation/go-smp/pkg/smpquery"
	"github.com/sirosfoundation/go-smp/pkg/transport"
)

// OperationGetBusinessCard is the metrics operation label of Fetch
const OperationGetBusinessCard = "get_business_card"

const msgNoBusinessCard = "No business card is available for that participant."

// FetcherConfig configures a Fetcher
type FetcherConfig struct {
	// UserAgent defaults to transport.DefaultUserAgent
	UserAgent string

	// ModifySettings may change the HTTP settings before the client is built
	ModifySettings func(s *transport.Settings)

	// Hooks receive exceptions and feedback. Only OnException and Feedback
	// are used.
	Hooks smpquery.Hooks

	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// Metrics is optional
	Metrics *smpquery.Metrics
}

// Fetcher retrieves business cards from the SMP of a query context
type Fetcher struct {
	config FetcherConfig
	logger *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(config FetcherConfig) *Fetcher {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		config: config,
		logger: logger.With("component", "businesscard"),
	}
}

// URL returns the business card URL of the participant of qc.
func URL(qc *smpquery.QueryContext) string {
	return strings.TrimRight(qc.Endpoint(), "/") + "/businesscard/" + url.PathEscape(qc.Participant().URIEncoded())
}

// Fetch retrieves and parses the business card of the participant of qc. It
// returns nil when there is no card or it could not be retrieved or parsed.
func (f *Fetcher) Fetch(ctx context.Context, qc *smpquery.QueryContext) *BusinessCard {
	start := time.Now()
	variant := string(qc.Registry().Variant)
	target := URL(qc)
	logger := f.logger.With(qc.LogAttrs()...).With("url", target)
	hooks := f.config.Hooks

	settings := smpquery.ClientSettings(qc, f.config.UserAgent, f.config.ModifySettings)
	settings.FollowRedirects = false
	client := transport.NewClient(settings)

	logger.Info("querying business card")
	resp, err := client.Get(ctx, target, "application/xml, text/xml")
	if err != nil {
		f.failed(logger, variant, start, &smpclient.TransportError{URL: target, Err: err})
		return nil
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		logger.Debug("no business card published")
		f.config.Metrics.ObserveQuery(variant, OperationGetBusinessCard, smpquery.OutcomeNotFound, time.Since(start))
		hooks.Notify(smpquery.LevelWarn, msgNoBusinessCard, nil)
		return nil
	case resp.StatusCode != http.StatusOK:
		f.failed(logger, variant, start, &smpclient.HTTPStatusError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Location:   resp.Location(),
		})
		return nil
	}

	card, err := Parse(resp.Body)
	if err != nil {
		perr := &UnparsableDocumentError{URL: target, Err: err}
		logger.Warn("business card could not be parsed", "error", err)
		f.config.Metrics.ObserveQuery(variant, OperationGetBusinessCard, smpquery.OutcomeError, time.Since(start))
		hooks.Notify(smpquery.LevelError, "Failed to parse business card:\n"+string(resp.Body), perr)
		return nil
	}

	elapsed := time.Since(start)
	f.config.Metrics.ObserveQuery(variant, OperationGetBusinessCard, smpquery.OutcomeOK, elapsed)
	logger.Debug("business card retrieved", "entities", len(card.Entities), "duration", elapsed)
	return card
}

func (f *Fetcher) failed(logger *slog.Logger, variant string, start time.Time, err error) {
	logger.Warn("business card query failed", "error", err, "kind", smpquery.Classify(err).String())
	f.config.Metrics.ObserveQuery(variant, OperationGetBusinessCard, smpquery.OutcomeError, time.Since(start))
	f.config.Hooks.ReportException(err)
	f.config.Hooks.Notify(smpquery.LevelWarn, msgNoBusinessCard, nil)
}
