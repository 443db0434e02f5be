package registry

import "github.com/sirosfoundation/go-smp/pkg/identifier"

// Peppol SML registries operated by the European Commission (DIGIT)
const (
	PeppolProductionID = "digitprod"
	PeppolTestID       = "digittest"

	PeppolProductionZone = "edelivery.tech.ec.europa.eu."
	PeppolTestZone       = "acc.edelivery.tech.ec.europa.eu."
)

// PeppolDefaults returns the Peppol production and test SMLs.
func PeppolDefaults() []Config {
	return []Config{
		{
			ID:               PeppolProductionID,
			DisplayName:      "Peppol production SML",
			DNSZone:          PeppolProductionZone,
			Variant:          VariantPeppol,
			Family:           identifier.Peppol,
			Production:       true,
			Priority:         200,
			PinsCertificates: false,
		},
		{
			ID:               PeppolTestID,
			DisplayName:      "Peppol test SML",
			DNSZone:          PeppolTestZone,
			Variant:          VariantPeppol,
			Family:           identifier.Peppol,
			Production:       false,
			Priority:         100,
			PinsCertificates: false,
		},
	}
}
