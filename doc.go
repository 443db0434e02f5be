// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package gosmp resolves eDelivery participants to their Service Metadata
Publisher (SMP) and queries it.

# Overview

go-smp takes a participant identifier, finds the SMP that serves it through
the DNS zone of an SML or BDXL registry, and reads the participant's service
group, service metadata and Peppol Directory business card. Registries speak
one of three SMP protocol variants; the answers of all three are normalized
into the same result types.

# Specifications Implemented

  - Peppol SMP 1.x and Peppol SML 1.3.0 (NAPTR based lookup)
  - OASIS BDXR SMP 1.0: http://docs.oasis-open.org/bdxr/bdx-smp/v1.0/
  - OASIS BDXR SMP 2.0: https://docs.oasis-open.org/bdxr/bdx-smp/v2.0/
  - OASIS BDX-Location 1.0: http://docs.oasis-open.org/bdxr/BDX-Location/v1.0/
  - Peppol Policy for use of Identifiers 4.x
  - Peppol Directory business card (2016-01, 2016-11 and 2018-06 generations)
  - XML Signature Syntax and Processing: https://www.w3.org/TR/xmldsig-core1/

# Package Structure

	github.com/sirosfoundation/go-smp/pkg/identifier   - Participant, document type and process identifiers
	github.com/sirosfoundation/go-smp/pkg/registry     - Registry configurations and the catalog
	github.com/sirosfoundation/go-smp/pkg/discovery    - DNS resolution of SMP endpoints
	github.com/sirosfoundation/go-smp/pkg/transport    - HTTPS client settings with TLS 1.2/1.3
	github.com/sirosfoundation/go-smp/pkg/smpclient    - SMP clients for the three protocol variants
	github.com/sirosfoundation/go-smp/pkg/smpquery     - Query builder, dispatcher and normalized results
	github.com/sirosfoundation/go-smp/pkg/businesscard - Peppol Directory business cards

# Quick Start

	catalog, _ := registry.NewCatalog(registry.PeppolDefaults()...)
	builder := smpquery.NewBuilder(catalog, discovery.NewResolver(discovery.ResolverConfig{}), smpquery.BuilderConfig{})

	qc, err := builder.Build(ctx, registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")
	if err != nil {
	    fmt.Println(smpquery.Describe(err, false))
	    return
	}

	docType, _ := identifier.Peppol.ParseDocumentType("busdox-docid-qns::urn:...")
	d := smpquery.NewDispatcher(smpquery.DispatcherConfig{})
	result := d.GetServiceMetadata(ctx, qc, docType, smpquery.DefaultQueryOptions())

The cmd/smpquery command wraps the same calls and prints JSON. The
cmd/smpqueryd daemon serves them over a REST API with Prometheus metrics and
per-client rate limiting.

# License

BSD-2-Clause License
*/
package gosmp
