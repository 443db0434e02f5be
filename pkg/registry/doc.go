// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package registry holds the catalog of SML (Service Metadata Locator)
registries a query can be run against.

A registry is a DNS zone that maps participant identifiers to the SMP
serving them. Each registry speaks one protocol variant:

  - VariantPeppol: Peppol SMP 1.x
  - VariantBDXR1: OASIS BDXR SMP 1.0
  - VariantBDXR2: OASIS BDXR SMP 2.0

A Catalog is built once and then only read. Ordered returns the registries
in the order used for auto-detection: priority descending, production before
test, then ID ascending.

	cat, err := registry.NewCatalog(registry.PeppolDefaults()...)
	if err != nil {
	    return err
	}
	for _, r := range cat.Ordered() {
	    fmt.Println(r.ID, r.DNSZone)
	}
*/
package registry
