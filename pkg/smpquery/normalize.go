package smpquery

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirosfoundation/go-smp/pkg/registry"
	"github.com/sirosfoundation/go-smp/pkg/smpclient"
)

// Endpoint is one access point of a ServiceMetadataResult
type Endpoint struct {
	ProcessID                     string                `json:"processID"`
	TransportProfile              string                `json:"transportProfile"`
	Address                       string                `json:"address"`
	Certificate                   string                `json:"certificate,omitempty"`
	RequireBusinessLevelSignature bool                  `json:"requireBusinessLevelSignature"`
	MinimumAuthenticationLevel    string                `json:"minimumAuthenticationLevel,omitempty"`
	ActivationDate                string                `json:"activationDate,omitempty"`
	ExpirationDate                string                `json:"expirationDate,omitempty"`
	Description                   string                `json:"description,omitempty"`
	TechnicalContactURL           string                `json:"technicalContactUrl,omitempty"`
	TechnicalInformationURL       string                `json:"technicalInformationUrl,omitempty"`
	Extensions                    []smpclient.Extension `json:"extensions,omitempty"`
}

// ServiceMetadataResult is service metadata in one shape for all protocol
// variants.
type ServiceMetadataResult struct {
	Variant        registry.Variant `json:"variant"`
	ParticipantID  string           `json:"participantID"`
	DocumentTypeID string           `json:"documentTypeID"`
	Endpoints      []Endpoint       `json:"endpoints"`

	// Redirect is the SMP the metadata was redirected to, if any
	Redirect string `json:"redirect,omitempty"`

	// RawExtensions holds document, service and process level extensions
	// verbatim
	RawExtensions []smpclient.Extension `json:"extensions,omitempty"`

	QueryDateTime       *time.Time `json:"queryDateTime,omitempty"`
	QueryDurationMillis *int64     `json:"queryDurationMillis,omitempty"`
}

// WithTiming attaches when the query started and how long it took.
func (r *ServiceMetadataResult) WithTiming(start time.Time, d time.Duration) *ServiceMetadataResult {
	t := start.UTC()
	ms := d.Milliseconds()
	r.QueryDateTime = &t
	r.QueryDurationMillis = &ms
	return r
}

// Normalize maps native service metadata of a variant into a
// ServiceMetadataResult. native must be *smpclient.PeppolServiceMetadata,
// *smpclient.BDXR1ServiceMetadata or *smpclient.BDXR2ServiceMetadata. A
// redirect document yields a result with Redirect set and no endpoints.
func Normalize(variant registry.Variant, native any) (*ServiceMetadataResult, error) {
	switch variant {
	case registry.VariantPeppol:
		sm, ok := native.(*smpclient.PeppolServiceMetadata)
		if !ok || sm == nil {
			return nil, fmt.Errorf("cannot normalize %T as %s service metadata", native, variant)
		}
		return normalizePeppol(sm)
	case registry.VariantBDXR1:
		sm, ok := native.(*smpclient.BDXR1ServiceMetadata)
		if !ok || sm == nil {
			return nil, fmt.Errorf("cannot normalize %T as %s service metadata", native, variant)
		}
		return normalizeBDXR1(sm)
	case registry.VariantBDXR2:
		sm, ok := native.(*smpclient.BDXR2ServiceMetadata)
		if !ok || sm == nil {
			return nil, fmt.Errorf("cannot normalize %T as %s service metadata", native, variant)
		}
		return normalizeBDXR2(sm), nil
	}
	return nil, fmt.Errorf("unknown protocol variant %q", variant)
}

func uriForm(scheme, value string) string {
	if scheme == "" {
		return value
	}
	return scheme + "::" + value
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true") || strings.TrimSpace(s) == "1"
}

func normalizePeppol(sm *smpclient.PeppolServiceMetadata) (*ServiceMetadataResult, error) {
	r := &ServiceMetadataResult{Variant: registry.VariantPeppol, Endpoints: []Endpoint{}}
	if sm.Redirect != nil {
		r.Redirect = sm.Redirect.Href
		r.RawExtensions = append(r.RawExtensions, sm.Redirect.Extensions...)
		return r, nil
	}
	si := sm.ServiceInformation
	if si == nil {
		return nil, fmt.Errorf("service metadata has neither ServiceInformation nor Redirect")
	}

	r.ParticipantID = uriForm(si.ParticipantIdentifier.Scheme, si.ParticipantIdentifier.Value)
	r.DocumentTypeID = uriForm(si.DocumentIdentifier.Scheme, si.DocumentIdentifier.Value)
	r.RawExtensions = append(r.RawExtensions, si.Extensions...)
	for _, p := range si.Processes {
		processID := uriForm(p.ProcessIdentifier.Scheme, p.ProcessIdentifier.Value)
		r.RawExtensions = append(r.RawExtensions, p.Extensions...)
		for _, ep := range p.Endpoints {
			r.Endpoints = append(r.Endpoints, Endpoint{
				ProcessID:                     processID,
				TransportProfile:              ep.TransportProfile,
				Address:                       strings.TrimSpace(ep.Address),
				Certificate:                   strings.TrimSpace(ep.Certificate),
				RequireBusinessLevelSignature: parseBool(ep.RequireBusinessLevelSignature),
				MinimumAuthenticationLevel:    ep.MinimumAuthenticationLevel,
				ActivationDate:                ep.ServiceActivationDate,
				ExpirationDate:                ep.ServiceExpirationDate,
				Description:                   ep.ServiceDescription,
				TechnicalContactURL:           ep.TechnicalContactURL,
				TechnicalInformationURL:       ep.TechnicalInformationURL,
				Extensions:                    ep.Extensions,
			})
		}
	}
	return r, nil
}

func normalizeBDXR1(sm *smpclient.BDXR1ServiceMetadata) (*ServiceMetadataResult, error) {
	r := &ServiceMetadataResult{Variant: registry.VariantBDXR1, Endpoints: []Endpoint{}}
	if sm.Redirect != nil {
		r.Redirect = sm.Redirect.Href
		r.RawExtensions = append(r.RawExtensions, sm.Redirect.Extensions...)
		return r, nil
	}
	si := sm.ServiceInformation
	if si == nil {
		return nil, fmt.Errorf("service metadata has neither ServiceInformation nor Redirect")
	}

	r.ParticipantID = uriForm(si.ParticipantIdentifier.Scheme, si.ParticipantIdentifier.Value)
	r.DocumentTypeID = uriForm(si.DocumentIdentifier.Scheme, si.DocumentIdentifier.Value)
	r.RawExtensions = append(r.RawExtensions, si.Extensions...)
	for _, p := range si.Processes {
		processID := uriForm(p.ProcessIdentifier.Scheme, p.ProcessIdentifier.Value)
		r.RawExtensions = append(r.RawExtensions, p.Extensions...)
		for _, ep := range p.Endpoints {
			r.Endpoints = append(r.Endpoints, Endpoint{
				ProcessID:                     processID,
				TransportProfile:              ep.TransportProfile,
				Address:                       strings.TrimSpace(ep.EndpointURI),
				Certificate:                   strings.TrimSpace(ep.Certificate),
				RequireBusinessLevelSignature: parseBool(ep.RequireBusinessLevelSignature),
				MinimumAuthenticationLevel:    ep.MinimumAuthenticationLevel,
				ActivationDate:                ep.ServiceActivationDate,
				ExpirationDate:                ep.ServiceExpirationDate,
				Description:                   ep.ServiceDescription,
				TechnicalContactURL:           ep.TechnicalContactURL,
				TechnicalInformationURL:       ep.TechnicalInformationURL,
				Extensions:                    ep.Extensions,
			})
		}
	}
	return r, nil
}

func normalizeBDXR2(sm *smpclient.BDXR2ServiceMetadata) *ServiceMetadataResult {
	r := &ServiceMetadataResult{
		Variant:        registry.VariantBDXR2,
		ParticipantID:  uriForm(sm.ParticipantID.SchemeID, sm.ParticipantID.Value),
		DocumentTypeID: uriForm(sm.ID.SchemeID, sm.ID.Value),
		Endpoints:      []Endpoint{},
	}
	r.RawExtensions = append(r.RawExtensions, sm.Extensions...)

	for _, pm := range sm.ProcessMetadata {
		r.RawExtensions = append(r.RawExtensions, pm.Extensions...)
		if pm.Redirect != nil && r.Redirect == "" {
			r.Redirect = pm.Redirect.PublisherURI
		}

		processIDs := make([]string, 0, len(pm.Processes))
		for _, p := range pm.Processes {
			processIDs = append(processIDs, uriForm(p.ID.SchemeID, p.ID.Value))
			r.RawExtensions = append(r.RawExtensions, p.Extensions...)
		}
		// an endpoint without process applies to all processes
		if len(processIDs) == 0 {
			processIDs = append(processIDs, "")
		}

		for _, processID := range processIDs {
			for _, ep := range pm.Endpoints {
				var cert string
				if len(ep.Certificates) > 0 {
					cert = strings.TrimSpace(ep.Certificates[0].ContentBinaryObject)
				}
				r.Endpoints = append(r.Endpoints, Endpoint{
					ProcessID:           processID,
					TransportProfile:    ep.TransportProfileID,
					Address:             strings.TrimSpace(ep.AddressURI),
					Certificate:         cert,
					ActivationDate:      ep.ActivationDate,
					ExpirationDate:      ep.ExpirationDate,
					Description:         ep.Description,
					TechnicalContactURL: ep.Contact,
					Extensions:          ep.Extensions,
				})
			}
		}
	}
	return r
}
