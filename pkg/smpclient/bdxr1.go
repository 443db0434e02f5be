package smpclient

import "encoding/xml"

// NamespaceBDXR1 is the OASIS BDXR SMP 1.0 namespace
const NamespaceBDXR1 = "http://docs.oasis-open.org/bdxr/ns/SMP/2016/05"

// BDXR1ServiceGroup is an OASIS SMP 1.0 ServiceGroup
type BDXR1ServiceGroup struct {
	XMLName               xml.Name                   `xml:"ServiceGroup"`
	ParticipantIdentifier Identifier                 `xml:"ParticipantIdentifier"`
	References            []ServiceMetadataReference `xml:"ServiceMetadataReferenceCollection>ServiceMetadataReference"`
	Extensions            []Extension                `xml:"Extension"`
}

// BDXR1SignedServiceMetadata is an OASIS SMP 1.0 SignedServiceMetadata
type BDXR1SignedServiceMetadata struct {
	XMLName         xml.Name             `xml:"SignedServiceMetadata"`
	ServiceMetadata BDXR1ServiceMetadata `xml:"ServiceMetadata"`
}

// BDXR1ServiceMetadata holds either service information or a redirect
type BDXR1ServiceMetadata struct {
	ServiceInformation *BDXR1ServiceInformation `xml:"ServiceInformation"`
	Redirect           *Redirect                `xml:"Redirect"`
}

// BDXR1ServiceInformation lists the processes of one document type
type BDXR1ServiceInformation struct {
	ParticipantIdentifier Identifier     `xml:"ParticipantIdentifier"`
	DocumentIdentifier    Identifier     `xml:"DocumentIdentifier"`
	Processes             []BDXR1Process `xml:"ProcessList>Process"`
	Extensions            []Extension    `xml:"Extension"`
}

// BDXR1Process is one process and its endpoints
type BDXR1Process struct {
	ProcessIdentifier Identifier      `xml:"ProcessIdentifier"`
	Endpoints         []BDXR1Endpoint `xml:"ServiceEndpointList>Endpoint"`
	Extensions        []Extension     `xml:"Extension"`
}

// BDXR1Endpoint is an OASIS SMP 1.0 endpoint
type BDXR1Endpoint struct {
	TransportProfile              string      `xml:"transportProfile,attr"`
	EndpointURI                   string      `xml:"EndpointURI"`
	RequireBusinessLevelSignature string      `xml:"RequireBusinessLevelSignature"`
	MinimumAuthenticationLevel    string      `xml:"MinimumAuthenticationLevel"`
	ServiceActivationDate         string      `xml:"ServiceActivationDate"`
	ServiceExpirationDate         string      `xml:"ServiceExpirationDate"`
	Certificate                   string      `xml:"Certificate"`
	ServiceDescription            string      `xml:"ServiceDescription"`
	TechnicalContactURL           string      `xml:"TechnicalContactUrl"`
	TechnicalInformationURL       string      `xml:"TechnicalInformationUrl"`
	Extensions                    []Extension `xml:"Extension"`
}
