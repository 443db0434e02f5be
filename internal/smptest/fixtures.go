package smptest

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Common test identifiers
const (
	ParticipantScheme = "iso6523-actorid-upis"
	ParticipantValue  = "0208:123456"
	DocTypeScheme     = "busdox-docid-qns"
	DocTypeValue      = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2::Invoice##urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0::2.1"
	ProcessScheme     = "cenbii-procid-ubl"
	ProcessValue      = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"
	TransportProfile  = "peppol-transport-as4-v2_0"
	AccessPointURL    = "https://ap.example.test/as4"
)

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// DocType is a document type identifier of a service group
type DocType struct {
	Scheme string
	Value  string
}

// Group describes a service group
type Group struct {
	ParticipantScheme string
	ParticipantValue  string

	// Hrefs are the service metadata references (Peppol, BDXR1)
	Hrefs []string

	// DocTypes are the service references (BDXR2)
	DocTypes []DocType

	// Extension is raw extension content
	Extension string
}

func (g Group) participant() (string, string) {
	if g.ParticipantValue == "" {
		return ParticipantScheme, ParticipantValue
	}
	return g.ParticipantScheme, g.ParticipantValue
}

// Peppol renders a Peppol SMP ServiceGroup.
func (g Group) Peppol() string {
	scheme, value := g.participant()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<smp:ServiceGroup xmlns:smp="http://busdox.org/serviceMetadata/publishing/1.0/" xmlns:id="http://busdox.org/transport/identifiers/1.0/" xmlns:wsa="http://www.w3.org/2005/08/addressing">`)
	fmt.Fprintf(&b, `<id:ParticipantIdentifier scheme="%s">%s</id:ParticipantIdentifier>`, esc(scheme), esc(value))
	b.WriteString(`<smp:ServiceMetadataReferenceCollection>`)
	for _, h := range g.Hrefs {
		fmt.Fprintf(&b, `<smp:ServiceMetadataReference href="%s"/>`, esc(h))
	}
	b.WriteString(`</smp:ServiceMetadataReferenceCollection>`)
	if g.Extension != "" {
		fmt.Fprintf(&b, `<smp:Extension>%s</smp:Extension>`, g.Extension)
	}
	b.WriteString(`</smp:ServiceGroup>`)
	return b.String()
}

// BDXR1 renders an OASIS SMP 1.0 ServiceGroup.
func (g Group) BDXR1() string {
	scheme, value := g.participant()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<ServiceGroup xmlns="http://docs.oasis-open.org/bdxr/ns/SMP/2016/05">`)
	fmt.Fprintf(&b, `<ParticipantIdentifier scheme="%s">%s</ParticipantIdentifier>`, esc(scheme), esc(value))
	b.WriteString(`<ServiceMetadataReferenceCollection>`)
	for _, h := range g.Hrefs {
		fmt.Fprintf(&b, `<ServiceMetadataReference href="%s"/>`, esc(h))
	}
	b.WriteString(`</ServiceMetadataReferenceCollection>`)
	if g.Extension != "" {
		fmt.Fprintf(&b, `<Extension>%s</Extension>`, g.Extension)
	}
	b.WriteString(`</ServiceGroup>`)
	return b.String()
}

// BDXR2 renders an OASIS SMP 2.0 ServiceGroup.
func (g Group) BDXR2() string {
	scheme, value := g.participant()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<ServiceGroup xmlns="http://docs.oasis-open.org/bdxr/ns/SMP/2/ServiceGroup" xmlns:cbc="http://docs.oasis-open.org/bdxr/ns/SMP/2/BasicComponents" xmlns:cac="http://docs.oasis-open.org/bdxr/ns/SMP/2/AggregateComponents" xmlns:ext="http://docs.oasis-open.org/bdxr/ns/SMP/2/ExtensionComponents">`)
	if g.Extension != "" {
		fmt.Fprintf(&b, `<ext:SMPExtensions><ext:SMPExtension>%s</ext:SMPExtension></ext:SMPExtensions>`, g.Extension)
	}
	b.WriteString(`<cbc:SMPVersionID>2.0</cbc:SMPVersionID>`)
	fmt.Fprintf(&b, `<cbc:ParticipantID schemeID="%s">%s</cbc:ParticipantID>`, esc(scheme), esc(value))
	for _, d := range g.DocTypes {
		fmt.Fprintf(&b, `<cac:ServiceReference><cbc:ID schemeID="%s">%s</cbc:ID></cac:ServiceReference>`, esc(d.Scheme), esc(d.Value))
	}
	b.WriteString(`</ServiceGroup>`)
	return b.String()
}

// Endpoint is one endpoint of a service metadata document
type Endpoint struct {
	TransportProfile string
	Address          string
	Certificate      string
}

// Metadata describes a service metadata document
type Metadata struct {
	ParticipantScheme string
	ParticipantValue  string
	DocTypeScheme     string
	DocTypeValue      string
	ProcessScheme     string
	ProcessValue      string
	Endpoints         []Endpoint

	// Extension is raw extension content on the service information
	Extension string

	// Redirect makes this a redirect document. It is the target href
	// (Peppol, BDXR1) or the publisher URI (BDXR2).
	Redirect string
}

// DefaultMetadata returns a Peppol invoice document with one endpoint.
func DefaultMetadata() Metadata {
	return Metadata{
		ParticipantScheme: ParticipantScheme,
		ParticipantValue:  ParticipantValue,
		DocTypeScheme:     DocTypeScheme,
		DocTypeValue:      DocTypeValue,
		ProcessScheme:     ProcessScheme,
		ProcessValue:      ProcessValue,
		Endpoints: []Endpoint{{
			TransportProfile: TransportProfile,
			Address:          AccessPointURL,
			Certificate:      "MIIBdummy",
		}},
	}
}

// Peppol renders a Peppol SMP SignedServiceMetadata (without signature).
func (m Metadata) Peppol() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<smp:SignedServiceMetadata xmlns:smp="http://busdox.org/serviceMetadata/publishing/1.0/" xmlns:id="http://busdox.org/transport/identifiers/1.0/" xmlns:wsa="http://www.w3.org/2005/08/addressing">`)
	b.WriteString(`<smp:ServiceMetadata>`)
	if m.Redirect != "" {
		fmt.Fprintf(&b, `<smp:Redirect href="%s"><smp:CertificateUID>CN=redirect target</smp:CertificateUID></smp:Redirect>`, esc(m.Redirect))
	} else {
		b.WriteString(`<smp:ServiceInformation>`)
		fmt.Fprintf(&b, `<id:ParticipantIdentifier scheme="%s">%s</id:ParticipantIdentifier>`, esc(m.ParticipantScheme), esc(m.ParticipantValue))
		fmt.Fprintf(&b, `<id:DocumentIdentifier scheme="%s">%s</id:DocumentIdentifier>`, esc(m.DocTypeScheme), esc(m.DocTypeValue))
		b.WriteString(`<smp:ProcessList><smp:Process>`)
		fmt.Fprintf(&b, `<id:ProcessIdentifier scheme="%s">%s</id:ProcessIdentifier>`, esc(m.ProcessScheme), esc(m.ProcessValue))
		b.WriteString(`<smp:ServiceEndpointList>`)
		for _, ep := range m.Endpoints {
			fmt.Fprintf(&b, `<smp:Endpoint transportProfile="%s">`, esc(ep.TransportProfile))
			fmt.Fprintf(&b, `<wsa:EndpointReference><wsa:Address>%s</wsa:Address></wsa:EndpointReference>`, esc(ep.Address))
			b.WriteString(`<smp:RequireBusinessLevelSignature>false</smp:RequireBusinessLevelSignature>`)
			b.WriteString(`<smp:ServiceActivationDate>2024-01-01T00:00:00Z</smp:ServiceActivationDate>`)
			b.WriteString(`<smp:ServiceExpirationDate>2034-01-01T00:00:00Z</smp:ServiceExpirationDate>`)
			fmt.Fprintf(&b, `<smp:Certificate>%s</smp:Certificate>`, esc(ep.Certificate))
			b.WriteString(`<smp:ServiceDescription>Test access point</smp:ServiceDescription>`)
			b.WriteString(`<smp:TechnicalContactUrl>mailto:ops@example.test</smp:TechnicalContactUrl>`)
			b.WriteString(`</smp:Endpoint>`)
		}
		b.WriteString(`</smp:ServiceEndpointList></smp:Process></smp:ProcessList>`)
		if m.Extension != "" {
			fmt.Fprintf(&b, `<smp:Extension>%s</smp:Extension>`, m.Extension)
		}
		b.WriteString(`</smp:ServiceInformation>`)
	}
	b.WriteString(`</smp:ServiceMetadata>`)
	b.WriteString(`</smp:SignedServiceMetadata>`)
	return b.String()
}

// BDXR1 renders an OASIS SMP 1.0 SignedServiceMetadata (without signature).
func (m Metadata) BDXR1() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<SignedServiceMetadata xmlns="http://docs.oasis-open.org/bdxr/ns/SMP/2016/05">`)
	b.WriteString(`<ServiceMetadata>`)
	if m.Redirect != "" {
		fmt.Fprintf(&b, `<Redirect href="%s"><CertificateUID>CN=redirect target</CertificateUID></Redirect>`, esc(m.Redirect))
	} else {
		b.WriteString(`<ServiceInformation>`)
		fmt.Fprintf(&b, `<ParticipantIdentifier scheme="%s">%s</ParticipantIdentifier>`, esc(m.ParticipantScheme), esc(m.ParticipantValue))
		fmt.Fprintf(&b, `<DocumentIdentifier scheme="%s">%s</DocumentIdentifier>`, esc(m.DocTypeScheme), esc(m.DocTypeValue))
		b.WriteString(`<ProcessList><Process>`)
		fmt.Fprintf(&b, `<ProcessIdentifier scheme="%s">%s</ProcessIdentifier>`, esc(m.ProcessScheme), esc(m.ProcessValue))
		b.WriteString(`<ServiceEndpointList>`)
		for _, ep := range m.Endpoints {
			fmt.Fprintf(&b, `<Endpoint transportProfile="%s">`, esc(ep.TransportProfile))
			fmt.Fprintf(&b, `<EndpointURI>%s</EndpointURI>`, esc(ep.Address))
			b.WriteString(`<RequireBusinessLevelSignature>true</RequireBusinessLevelSignature>`)
			b.WriteString(`<MinimumAuthenticationLevel>2</MinimumAuthenticationLevel>`)
			b.WriteString(`<ServiceActivationDate>2024-01-01T00:00:00Z</ServiceActivationDate>`)
			fmt.Fprintf(&b, `<Certificate>%s</Certificate>`, esc(ep.Certificate))
			b.WriteString(`<ServiceDescription>Test access point</ServiceDescription>`)
			b.WriteString(`<TechnicalContactUrl>https://ap.example.test/contact</TechnicalContactUrl>`)
			b.WriteString(`<TechnicalInformationUrl>https://ap.example.test/info</TechnicalInformationUrl>`)
			b.WriteString(`</Endpoint>`)
		}
		b.WriteString(`</ServiceEndpointList></Process></ProcessList>`)
		if m.Extension != "" {
			fmt.Fprintf(&b, `<Extension>%s</Extension>`, m.Extension)
		}
		b.WriteString(`</ServiceInformation>`)
	}
	b.WriteString(`</ServiceMetadata>`)
	b.WriteString(`</SignedServiceMetadata>`)
	return b.String()
}

// BDXR2 renders an OASIS SMP 2.0 ServiceMetadata (without signature).
func (m Metadata) BDXR2() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<ServiceMetadata xmlns="http://docs.oasis-open.org/bdxr/ns/SMP/2/ServiceMetadata" xmlns:cbc="http://docs.oasis-open.org/bdxr/ns/SMP/2/BasicComponents" xmlns:cac="http://docs.oasis-open.org/bdxr/ns/SMP/2/AggregateComponents" xmlns:ext="http://docs.oasis-open.org/bdxr/ns/SMP/2/ExtensionComponents">`)
	if m.Extension != "" {
		fmt.Fprintf(&b, `<ext:SMPExtensions><ext:SMPExtension>%s</ext:SMPExtension></ext:SMPExtensions>`, m.Extension)
	}
	b.WriteString(`<cbc:SMPVersionID>2.0</cbc:SMPVersionID>`)
	fmt.Fprintf(&b, `<cbc:ID schemeID="%s">%s</cbc:ID>`, esc(m.DocTypeScheme), esc(m.DocTypeValue))
	fmt.Fprintf(&b, `<cbc:ParticipantID schemeID="%s">%s</cbc:ParticipantID>`, esc(m.ParticipantScheme), esc(m.ParticipantValue))
	b.WriteString(`<cac:ProcessMetadata>`)
	fmt.Fprintf(&b, `<cac:Process><cbc:ID schemeID="%s">%s</cbc:ID></cac:Process>`, esc(m.ProcessScheme), esc(m.ProcessValue))
	if m.Redirect != "" {
		fmt.Fprintf(&b, `<cac:Redirect><cbc:PublisherURI>%s</cbc:PublisherURI></cac:Redirect>`, esc(m.Redirect))
	}
	for _, ep := range m.Endpoints {
		b.WriteString(`<cac:Endpoint>`)
		fmt.Fprintf(&b, `<cbc:TransportProfileID>%s</cbc:TransportProfileID>`, esc(ep.TransportProfile))
		b.WriteString(`<cbc:Description>Test access point</cbc:Description>`)
		b.WriteString(`<cbc:Contact>ops@example.test</cbc:Contact>`)
		fmt.Fprintf(&b, `<cbc:AddressURI>%s</cbc:AddressURI>`, esc(ep.Address))
		b.WriteString(`<cbc:ActivationDate>2024-01-01</cbc:ActivationDate>`)
		b.WriteString(`<cbc:ExpirationDate>2034-01-01</cbc:ExpirationDate>`)
		fmt.Fprintf(&b, `<cac:Certificate><cbc:TypeCode>signing</cbc:TypeCode><cbc:ContentBinaryObject mimeCode="application/base64">%s</cbc:ContentBinaryObject></cac:Certificate>`, esc(ep.Certificate))
		b.WriteString(`</cac:Endpoint>`)
	}
	b.WriteString(`</cac:ProcessMetadata>`)
	b.WriteString(`</ServiceMetadata>`)
	return b.String()
}

// BusinessCardV3 renders a Peppol Directory business card of the 2018-06
// generation.
func BusinessCardV3(scheme, value, name, country string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<BusinessCard xmlns="http://www.peppol.eu/schema/pd/businesscard/20180621/">
  <ParticipantIdentifier scheme="%s">%s</ParticipantIdentifier>
  <BusinessEntity>
    <Name language="en">%s</Name>
    <CountryCode>%s</CountryCode>
    <GeographicalInformation>Main Street 1, Brussels</GeographicalInformation>
    <Identifier scheme="VAT">BE0123456789</Identifier>
    <WebsiteURI>https://www.example.test</WebsiteURI>
    <Contact type="support" name="Help desk" phonenumber="+32 2 000 00 00" email="help@example.test"/>
    <AdditionalInformation>Invoices only</AdditionalInformation>
    <RegistrationDate>2020-05-17</RegistrationDate>
  </BusinessEntity>
</BusinessCard>`, esc(scheme), esc(value), esc(name), esc(country))
}

// BusinessCardV1 renders a Peppol Directory business card of the 2016-01
// generation.
func BusinessCardV1(scheme, value, name, country string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<BusinessCard xmlns="http://www.peppol.eu/schema/pd/businesscard/20160112/">
  <ParticipantIdentifier scheme="%s">%s</ParticipantIdentifier>
  <BusinessEntity countryCode="%s">
    <Name>%s</Name>
    <Identifier scheme="GLN">5798000000001</Identifier>
  </BusinessEntity>
</BusinessCard>`, esc(scheme), esc(value), esc(country), esc(name))
}
