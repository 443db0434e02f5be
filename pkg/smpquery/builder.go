package smpquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
)

// EndpointResolver finds the SMP of a participant in one registry.
// *discovery.Resolver implements it. A missing record is (nil, false, nil).
type EndpointResolver interface {
	ResolveRegistry(ctx context.Context, cfg registry.Config, p identifier.Participant) (*url.URL, bool, error)
}

// BuilderConfig configures a Builder
type BuilderConfig struct {
	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// Metrics is optional
	Metrics *Metrics

	// ParallelProbe probes all registries at once during auto-detection.
	// The registry order still decides between several hits.
	ParallelProbe bool
}

// Builder turns a registry choice and a participant into a QueryContext.
// It is the only place that decides whether a participant is registered.
type Builder struct {
	catalog  *registry.Catalog
	resolver EndpointResolver
	config   BuilderConfig
	logger   *slog.Logger
}

// NewBuilder creates a Builder over catalog.
func NewBuilder(catalog *registry.Catalog, resolver EndpointResolver, config BuilderConfig) *Builder {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		catalog:  catalog,
		resolver: resolver,
		config:   config,
		logger:   logger.With("component", "smpquery.builder"),
	}
}

type probe struct {
	cfg         registry.Config
	participant identifier.Participant
}

type probeResult struct {
	endpoint *url.URL
	found    bool
	err      error
}

// Build resolves the participant scheme::value in the registry registryID,
// or in all registries when registryID is the auto-detect ID. The identifier
// is validated against every candidate registry before any DNS lookup.
func (b *Builder) Build(ctx context.Context, registryID, scheme, value string) (*QueryContext, error) {
	registryID = strings.TrimSpace(registryID)
	autoDetect := registry.IsAutoDetect(registryID)

	var candidates []registry.Config
	if autoDetect {
		candidates = b.catalog.Ordered()
	} else {
		cfg, ok := b.catalog.Get(registryID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRegistry, registryID)
		}
		candidates = []registry.Config{cfg}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: the registry catalog is empty", ErrNotRegisteredInAnyRegistry)
	}

	probes, err := b.parse(candidates, scheme, value)
	if err != nil {
		return nil, err
	}

	if !autoDetect {
		pr := probes[0]
		res := b.probe(ctx, pr)
		switch {
		case res.err != nil:
			return nil, fmt.Errorf("%w: registry %s: %w", ErrTransportFailure, pr.cfg.ID, res.err)
		case !res.found:
			return nil, fmt.Errorf("%w: %s in registry %s", ErrNotRegistered, pr.participant.URIEncoded(), pr.cfg.ID)
		}
		return b.newContext(pr, res.endpoint), nil
	}

	if b.config.ParallelProbe {
		return b.autoDetectParallel(ctx, probes)
	}
	return b.autoDetect(ctx, probes)
}

// IsRegistered reports the registry a participant is registered in. A
// participant that is not registered is not an error.
func (b *Builder) IsRegistered(ctx context.Context, registryID, scheme, value string) (string, bool, error) {
	qc, err := b.Build(ctx, registryID, scheme, value)
	if err != nil {
		if errors.Is(err, ErrNotRegistered) || errors.Is(err, ErrNotRegisteredInAnyRegistry) {
			return "", false, nil
		}
		return "", false, err
	}
	return qc.Registry().ID, true, nil
}

// parse validates the identifier per candidate. Candidates whose family
// rejects it are skipped; if all reject it the identifier is invalid.
func (b *Builder) parse(candidates []registry.Config, scheme, value string) ([]probe, error) {
	type parsed struct {
		p   identifier.Participant
		err error
	}
	byFamily := map[identifier.Family]parsed{}

	var (
		probes  []probe
		lastErr error
	)
	for _, cfg := range candidates {
		res, ok := byFamily[cfg.Family]
		if !ok {
			p, err := cfg.Family.NewParticipant(scheme, value)
			res = parsed{p: p, err: err}
			byFamily[cfg.Family] = res
		}
		if res.err != nil {
			b.logger.Debug("identifier not valid for registry", "registry", cfg.ID, "family", string(cfg.Family), "error", res.err)
			lastErr = res.err
			continue
		}
		probes = append(probes, probe{cfg: cfg, participant: res.p})
	}
	if len(probes) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIdentifier, lastErr)
	}
	return probes, nil
}

func (b *Builder) probe(ctx context.Context, pr probe) probeResult {
	u, found, err := b.resolver.ResolveRegistry(ctx, pr.cfg, pr.participant)
	outcome := OutcomeAbsent
	switch {
	case err != nil:
		outcome = OutcomeError
		b.logger.Warn("registry lookup failed", "registry", pr.cfg.ID, "participant", pr.participant.URIEncoded(), "error", err)
	case found:
		outcome = OutcomeFound
		b.logger.Debug("participant found", "registry", pr.cfg.ID, "participant", pr.participant.URIEncoded(), "endpoint", u.String())
	default:
		b.logger.Debug("participant not in registry", "registry", pr.cfg.ID, "participant", pr.participant.URIEncoded())
	}
	b.config.Metrics.IncrementProbe(pr.cfg.ID, outcome)
	return probeResult{endpoint: u, found: found && err == nil, err: err}
}

func (b *Builder) autoDetect(ctx context.Context, probes []probe) (*QueryContext, error) {
	var errs []error
	for _, pr := range probes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransportFailure, err)
		}
		res := b.probe(ctx, pr)
		if res.err != nil {
			errs = append(errs, fmt.Errorf("registry %s: %w", pr.cfg.ID, res.err))
			continue
		}
		if res.found {
			return b.newContext(pr, res.endpoint), nil
		}
	}
	return nil, b.notFoundAnywhere(probes, errs)
}

func (b *Builder) autoDetectParallel(ctx context.Context, probes []probe) (*QueryContext, error) {
	results := make([]probeResult, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	for i, pr := range probes {
		g.Go(func() error {
			results[i] = b.probe(gctx, pr)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, res := range results {
		if res.found {
			return b.newContext(probes[i], res.endpoint), nil
		}
		if res.err != nil {
			errs = append(errs, fmt.Errorf("registry %s: %w", probes[i].cfg.ID, res.err))
		}
	}
	return nil, b.notFoundAnywhere(probes, errs)
}

func (b *Builder) notFoundAnywhere(probes []probe, errs []error) error {
	err := fmt.Errorf("%w: %s (%d registries probed)", ErrNotRegisteredInAnyRegistry,
		probes[0].participant.URIEncoded(), len(probes))
	if len(errs) > 0 {
		return errors.Join(append([]error{err}, errs...)...)
	}
	return err
}

func (b *Builder) newContext(pr probe, endpoint *url.URL) *QueryContext {
	qc := NewQueryContext(pr.cfg, pr.participant, endpoint)
	b.logger.Info("query context built", qc.LogAttrs()...)
	return qc
}
