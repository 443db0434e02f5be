// Package discovery resolves participant identifiers to SMP (Service Metadata
// Publisher) URLs through the DNS zone of an SML registry.
//
// # Strategies
//
// How the DNS name is built and which record is read depends on a Strategy:
//
//   - PeppolNAPTR: the Peppol SML scheme. The lower-cased identifier value is
//     hashed with SHA-256, BASE32 encoded without padding and combined with the
//     identifier scheme and the zone. A U-NAPTR record with service "Meta:SMP"
//     carries the SMP URL.
//
//   - BDXL: eDelivery BDXL / OASIS BDX-Location. The hash covers the whole URI
//     form "scheme::value" and is placed directly below the zone. Both
//     "Meta:SMP" and "oasis-bdxr-smp-2" services are understood.
//
//   - LegacyCNAME: the pre-NAPTR Peppol scheme, "B-" + hex(MD5(value)). The
//     name is the SMP host name itself.
//
// Each protocol variant has a default strategy; ResolverConfig.Strategies and
// registry.Config.Strategy override it.
//
// # Results
//
// A participant that is not registered is not an error: Resolve returns
// (nil, false, nil) for NXDOMAIN and for answers without a usable record.
// Timeouts, SERVFAIL/REFUSED answers and malformed NAPTR regexps are
// reported as *DNSError.
//
//	r := discovery.NewResolver(discovery.ResolverConfig{DNSServer: "8.8.8.8:53"})
//	u, found, err := r.Resolve(ctx, registry.VariantPeppol, participant, "edelivery.tech.ec.europa.eu.")
//
// # References
//
//   - eDelivery BDXL 2.0: https://ec.europa.eu/digital-building-blocks/sites/spaces/DIGITAL/pages/843612547/eDelivery+BDXL+-+2.0
//   - Peppol SML 1.3.0 (NAPTR based lookup)
//   - OASIS BDX-Location 1.0: http://docs.oasis-open.org/bdxr/BDX-Location/v1.0/
//   - RFC 4848: https://www.rfc-editor.org/rfc/rfc4848.html
package discovery
