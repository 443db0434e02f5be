package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/miekg/dns"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
)

// Common errors
var (
	// ErrInvalidNAPTRRecord is returned when a NAPTR record has invalid format
	ErrInvalidNAPTRRecord = errors.New("invalid NAPTR record format")
)

// ServiceType represents the type of metadata service
type ServiceType string

const (
	// ServiceTypeSMP1 is the service type for Peppol SMP and OASIS SMP 1.0 (Meta:SMP)
	ServiceTypeSMP1 ServiceType = "Meta:SMP"
	// ServiceTypeSMP2 is the service type for OASIS SMP 2.0 (oasis-bdxr-smp-2)
	ServiceTypeSMP2 ServiceType = "oasis-bdxr-smp-2"
)

// PeppolNAPTR is the Peppol SML lookup in use since 2023:
//
//	base32(sha256(lower(value))) "." scheme "." zone
//
// queried for a U-NAPTR record with service Meta:SMP.
type PeppolNAPTR struct{}

// Name implements Strategy.
func (PeppolNAPTR) Name() string { return StrategyPeppolNAPTR }

// DNSName implements Strategy.
func (PeppolNAPTR) DNSName(p identifier.Participant, zone string) string {
	label := hashLabel(strings.ToLower(p.Value()))
	if p.HasScheme() {
		return joinName(label, p.Scheme(), zone)
	}
	return joinName(label, zone)
}

// Resolve implements Strategy.
func (s PeppolNAPTR) Resolve(ctx context.Context, q Querier, p identifier.Participant, zone string) (*url.URL, error) {
	return resolveNAPTR(ctx, q, s.DNSName(p, zone), []ServiceType{ServiceTypeSMP1})
}

// BDXL is the eDelivery BDXL / OASIS BDX-Location lookup:
//
//	base32(sha256(lower(scheme "::" value))) "." zone
//
// queried for a U-NAPTR record. Service is preferred, the other SMP service
// type is accepted as a fallback.
type BDXL struct {
	Service ServiceType
}

// Name implements Strategy.
func (BDXL) Name() string { return StrategyBDXL }

// DNSName implements Strategy.
func (BDXL) DNSName(p identifier.Participant, zone string) string {
	return joinName(hashLabel(strings.ToLower(p.URIEncoded())), zone)
}

// Resolve implements Strategy.
func (s BDXL) Resolve(ctx context.Context, q Querier, p identifier.Participant, zone string) (*url.URL, error) {
	services := []ServiceType{ServiceTypeSMP2, ServiceTypeSMP1}
	if s.Service != ServiceTypeSMP2 {
		services = []ServiceType{ServiceTypeSMP1, ServiceTypeSMP2}
	}
	return resolveNAPTR(ctx, q, s.DNSName(p, zone), services)
}

// hashLabel hashes and encodes an identifier according to the BDXL spec.
// Returns a BASE32-encoded SHA256 hash with padding removed.
func hashLabel(s string) string {
	hash := sha256.Sum256([]byte(s))
	return strings.TrimRight(base32.StdEncoding.EncodeToString(hash[:]), "=")
}

// joinName joins labels into a fully qualified name.
func joinName(labels ...string) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.Trim(l, ".")
		if l != "" {
			parts = append(parts, l)
		}
	}
	return dns.Fqdn(strings.Join(parts, "."))
}

func resolveNAPTR(ctx context.Context, q Querier, name string, services []ServiceType) (*url.URL, error) {
	records, err := q.LookupNAPTR(ctx, name)
	if err != nil {
		return nil, err
	}

	best := selectBestRecord(records, services)
	if best == nil {
		return nil, nil
	}

	u, err := extractURLFromRegexp(best.Regexp)
	if err != nil {
		return nil, &DNSError{Name: name, Type: "NAPTR", Err: err}
	}
	return u, nil
}

// selectBestRecord selects the best U-NAPTR record. Records of an earlier
// service in services win; within a service lower order and then lower
// preference win.
func selectBestRecord(records []*dns.NAPTR, services []ServiceType) *dns.NAPTR {
	rank := func(service string) int {
		for i, s := range services {
			if strings.EqualFold(service, string(s)) {
				return i
			}
		}
		return -1
	}

	var best *dns.NAPTR
	bestRank := 0
	for _, record := range records {
		// U-NAPTR records have flag "U"
		if !strings.EqualFold(record.Flags, "U") {
			continue
		}
		r := rank(record.Service)
		if r < 0 {
			continue
		}

		switch {
		case best == nil, r < bestRank:
		case r > bestRank:
			continue
		case record.Order < best.Order:
		case record.Order == best.Order && record.Preference < best.Preference:
		default:
			continue
		}
		best, bestRank = record, r
	}
	return best
}

// extractURLFromRegexp extracts the URL from a NAPTR regexp field.
// NAPTR regexp format: "<d><pattern><d><replacement><d>" where <d> is the
// delimiter, normally '!'.
func extractURLFromRegexp(regexpField string) (*url.URL, error) {
	if len(regexpField) < 3 {
		return nil, fmt.Errorf("%w: regexp %q", ErrInvalidNAPTRRecord, regexpField)
	}

	delim := regexpField[:1]
	parts := strings.Split(regexpField[1:], delim)
	if len(parts) < 3 || parts[len(parts)-1] != "" && parts[len(parts)-1] != "i" {
		return nil, fmt.Errorf("%w: regexp %q", ErrInvalidNAPTRRecord, regexpField)
	}

	replacement := parts[1]
	if replacement == "" {
		return nil, fmt.Errorf("%w: empty URL in regexp %q", ErrInvalidNAPTRRecord, regexpField)
	}

	u, err := url.Parse(replacement)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q: %v", ErrInvalidNAPTRRecord, replacement, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("%w: unsupported URL scheme %q", ErrInvalidNAPTRRecord, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: URL %q has no host", ErrInvalidNAPTRRecord, replacement)
	}

	return u, nil
}
