package discovery

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 is mandated by the legacy Peppol SML naming
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
)

// LegacyCNAME is the Peppol SML lookup used before NAPTR records:
//
//	"B-" hex(md5(lower(value))) "." scheme "." zone
//
// The name itself is the SMP host, reachable over plain HTTP. The participant
// is registered when the name has an address or alias record.
type LegacyCNAME struct{}

// Name implements Strategy.
func (LegacyCNAME) Name() string { return StrategyLegacyCNAME }

// DNSName implements Strategy.
func (LegacyCNAME) DNSName(p identifier.Participant, zone string) string {
	sum := md5.Sum([]byte(strings.ToLower(p.Value())))
	label := "B-" + hex.EncodeToString(sum[:])
	if p.HasScheme() {
		return joinName(label, p.Scheme(), zone)
	}
	return joinName(label, zone)
}

// Resolve implements Strategy.
func (s LegacyCNAME) Resolve(ctx context.Context, q Querier, p identifier.Participant, zone string) (*url.URL, error) {
	name := s.DNSName(p, zone)
	found, err := q.LookupHost(ctx, name)
	if err != nil || !found {
		return nil, err
	}
	return &url.URL{Scheme: "http", Host: strings.TrimSuffix(name, ".")}, nil
}
