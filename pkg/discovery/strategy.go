package discovery

import (
	"context"
	"fmt"
	"net/url"

	"github.com/miekg/dns"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
)

// Strategy names usable in registry.Config.Strategy
const (
	StrategyPeppolNAPTR = "peppol-naptr"
	StrategyBDXL        = "bdxl"
	StrategyLegacyCNAME = "legacy-cname"
)

// Querier is the DNS access a Strategy gets. *Resolver implements it.
type Querier interface {
	// LookupNAPTR returns the NAPTR records of name after following CNAMEs.
	// A name without records yields (nil, nil).
	LookupNAPTR(ctx context.Context, name string) ([]*dns.NAPTR, error)

	// LookupHost reports whether name has an address or alias record.
	LookupHost(ctx context.Context, name string) (bool, error)
}

// Strategy turns a participant and a registry zone into an SMP URL.
type Strategy interface {
	// Name identifies the strategy in configuration and logs
	Name() string

	// DNSName returns the owner name that is queried for the participant
	DNSName(p identifier.Participant, zone string) string

	// Resolve returns the SMP URL, or nil when the participant has no
	// usable record in the zone.
	Resolve(ctx context.Context, q Querier, p identifier.Participant, zone string) (*url.URL, error)
}

// DefaultStrategy returns the strategy normally used for a protocol variant.
func DefaultStrategy(v registry.Variant) Strategy {
	switch v {
	case registry.VariantBDXR1:
		return BDXL{Service: ServiceTypeSMP1}
	case registry.VariantBDXR2:
		return BDXL{Service: ServiceTypeSMP2}
	default:
		return PeppolNAPTR{}
	}
}

// StrategyByName returns the named strategy. The variant decides the
// preferred U-NAPTR service of the BDXL strategy.
func StrategyByName(name string, v registry.Variant) (Strategy, error) {
	switch name {
	case "":
		return DefaultStrategy(v), nil
	case StrategyPeppolNAPTR:
		return PeppolNAPTR{}, nil
	case StrategyBDXL:
		if v == registry.VariantBDXR2 {
			return BDXL{Service: ServiceTypeSMP2}, nil
		}
		return BDXL{Service: ServiceTypeSMP1}, nil
	case StrategyLegacyCNAME:
		return LegacyCNAME{}, nil
	}
	return nil, fmt.Errorf("unknown DNS resolution strategy %q", name)
}
