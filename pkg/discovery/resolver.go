package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
)

const (
	// DefaultTimeout bounds a single DNS exchange
	DefaultTimeout = 5 * time.Second

	defaultResolvConf = "/etc/resolv.conf"
	maxCNAMEHops      = 8
)

// ErrCNAMELoop is returned when alias chasing does not terminate
var ErrCNAMELoop = errors.New("CNAME chain too long")

// DNSError is a transport level DNS failure: a timeout, a server failure
// or refusal, or a record that cannot be interpreted. A name that simply
// does not exist is not a DNSError.
type DNSError struct {
	Name  string
	Type  string
	Rcode int
	Err   error
}

func (e *DNSError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "DNS %s lookup for %s failed", e.Type, e.Name)
	if e.Rcode != dns.RcodeSuccess {
		fmt.Fprintf(&b, ": rcode=%s", dns.RcodeToString[e.Rcode])
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DNSError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout.
func (e *DNSError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ResolverConfig contains configuration for the endpoint resolver
type ResolverConfig struct {
	// DNSServer is the DNS server to use for lookups (optional)
	// Format: "ip:port" or "ip" (port 53)
	// If empty, the first server of /etc/resolv.conf is used
	DNSServer string

	// Timeout bounds each DNS exchange. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Strategies overrides the default strategy per protocol variant
	Strategies map[registry.Variant]Strategy

	// Logger for debug output. Defaults to slog.Default().
	Logger *slog.Logger

	// resolvConf is overridden in tests
	resolvConf string
}

// Resolver maps participants to SMP URLs through the DNS zone of a registry.
// It keeps no state between calls and does not cache.
type Resolver struct {
	config ResolverConfig
	udp    *dns.Client
	tcp    *dns.Client
	logger *slog.Logger
}

// NewResolver creates a new endpoint resolver
func NewResolver(config ResolverConfig) *Resolver {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.resolvConf == "" {
		config.resolvConf = defaultResolvConf
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		config: config,
		udp:    &dns.Client{Net: "udp", Timeout: config.Timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: config.Timeout},
		logger: logger.With("component", "discovery"),
	}
}

// StrategyFor returns the strategy used for a variant.
func (r *Resolver) StrategyFor(v registry.Variant) Strategy {
	if s, ok := r.config.Strategies[v]; ok && s != nil {
		return s
	}
	return DefaultStrategy(v)
}

// Resolve looks up the SMP URL of a participant in zone using the strategy
// of variant. It returns (nil, false, nil) when the participant has no
// usable record; errors are always *DNSError.
func (r *Resolver) Resolve(ctx context.Context, v registry.Variant, p identifier.Participant, zone string) (*url.URL, bool, error) {
	return r.resolveWith(ctx, r.StrategyFor(v), p, zone)
}

// ResolveRegistry resolves p in the zone of cfg, honouring cfg.Strategy.
func (r *Resolver) ResolveRegistry(ctx context.Context, cfg registry.Config, p identifier.Participant) (*url.URL, bool, error) {
	strategy := r.StrategyFor(cfg.Variant)
	if cfg.Strategy != "" {
		s, err := StrategyByName(cfg.Strategy, cfg.Variant)
		if err != nil {
			return nil, false, fmt.Errorf("registry %s: %w", cfg.ID, err)
		}
		strategy = s
	}
	return r.resolveWith(ctx, strategy, p, cfg.DNSZone)
}

func (r *Resolver) resolveWith(ctx context.Context, s Strategy, p identifier.Participant, zone string) (*url.URL, bool, error) {
	u, err := s.Resolve(ctx, r, p, zone)
	if err != nil {
		r.logger.Debug("DNS resolution failed",
			"strategy", s.Name(),
			"participant", p.URIEncoded(),
			"zone", zone,
			"error", err)
		return nil, false, err
	}
	if u == nil {
		r.logger.Debug("participant not found in DNS",
			"strategy", s.Name(),
			"participant", p.URIEncoded(),
			"zone", zone)
		return nil, false, nil
	}
	r.logger.Debug("participant resolved",
		"strategy", s.Name(),
		"participant", p.URIEncoded(),
		"zone", zone,
		"endpoint", u.String())
	return u, true, nil
}

// LookupNAPTR implements Querier.
func (r *Resolver) LookupNAPTR(ctx context.Context, name string) ([]*dns.NAPTR, error) {
	name = dns.Fqdn(name)
	for hop := 0; hop <= maxCNAMEHops; hop++ {
		resp, err := r.exchange(ctx, name, dns.TypeNAPTR)
		if err != nil {
			return nil, err
		}
		if resp.Rcode == dns.RcodeNameError {
			return nil, nil
		}

		var records []*dns.NAPTR
		var target string
		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.NAPTR:
				records = append(records, rec)
			case *dns.CNAME:
				if strings.EqualFold(rec.Hdr.Name, name) {
					target = rec.Target
				}
			}
		}
		if len(records) > 0 {
			return records, nil
		}
		if target == "" {
			return nil, nil
		}
		name = dns.Fqdn(target)
	}
	return nil, &DNSError{Name: name, Type: "NAPTR", Err: ErrCNAMELoop}
}

// LookupHost implements Querier.
func (r *Resolver) LookupHost(ctx context.Context, name string) (bool, error) {
	resp, err := r.exchange(ctx, dns.Fqdn(name), dns.TypeA)
	if err != nil {
		return false, err
	}
	if resp.Rcode == dns.RcodeNameError {
		return false, nil
	}
	for _, rr := range resp.Answer {
		switch rr.(type) {
		case *dns.A, *dns.AAAA, *dns.CNAME:
			return true, nil
		}
	}
	return false, nil
}

// exchange sends one query and retries over TCP when the UDP answer was
// truncated. NXDOMAIN is returned as a response, other non-success rcodes
// as *DNSError.
func (r *Resolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	typ := dns.TypeToString[qtype]

	server, err := r.server()
	if err != nil {
		return nil, &DNSError{Name: name, Type: typ, Err: err}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	resp, _, err := r.udp.ExchangeContext(ctx, msg, server)
	if err == nil && resp.Truncated {
		r.logger.Debug("truncated DNS answer, retrying over TCP", "name", name, "type", typ)
		resp, _, err = r.tcp.ExchangeContext(ctx, msg, server)
	}
	if err != nil {
		return nil, &DNSError{Name: name, Type: typ, Err: err}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
		return resp, nil
	}
	return nil, &DNSError{Name: name, Type: typ, Rcode: resp.Rcode}
}

// server determines the DNS server address.
func (r *Resolver) server() (string, error) {
	if s := r.config.DNSServer; s != "" {
		if _, _, err := net.SplitHostPort(s); err != nil {
			return net.JoinHostPort(s, "53"), nil
		}
		return s, nil
	}

	// Use system default - get from resolv.conf
	config, err := dns.ClientConfigFromFile(r.config.resolvConf)
	if err != nil {
		return "", fmt.Errorf("failed to read DNS config: %w", err)
	}
	if len(config.Servers) == 0 {
		return "", errors.New("no DNS servers configured")
	}
	return net.JoinHostPort(config.Servers[0], config.Port), nil
}
