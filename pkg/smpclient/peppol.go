package smpclient

import "encoding/xml"

// Peppol SMP 1.x namespaces
const (
	NamespacePeppolSMP = "http://busdox.org/serviceMetadata/publishing/1.0/"
	NamespacePeppolIDs = "http://busdox.org/transport/identifiers/1.0/"
	NamespaceWSA       = "http://www.w3.org/2005/08/addressing"
)

// Identifier is a scheme/value pair as used by Peppol SMP and BDXR SMP 1.0
type Identifier struct {
	Scheme string `xml:"scheme,attr" json:"scheme,omitempty"`
	Value  string `xml:",chardata" json:"value"`
}

// ServiceMetadataReference points to the service metadata of one document type
type ServiceMetadataReference struct {
	Href string `xml:"href,attr"`
}

// Redirect sends the client to another SMP
type Redirect struct {
	Href           string      `xml:"href,attr"`
	CertificateUID string      `xml:"CertificateUID"`
	Extensions     []Extension `xml:"Extension"`
}

// PeppolServiceGroup is a Peppol SMP ServiceGroup
type PeppolServiceGroup struct {
	XMLName               xml.Name                   `xml:"ServiceGroup"`
	ParticipantIdentifier Identifier                 `xml:"ParticipantIdentifier"`
	References            []ServiceMetadataReference `xml:"ServiceMetadataReferenceCollection>ServiceMetadataReference"`
	Extensions            []Extension                `xml:"Extension"`
}

// PeppolSignedServiceMetadata is a Peppol SMP SignedServiceMetadata
type PeppolSignedServiceMetadata struct {
	XMLName         xml.Name              `xml:"SignedServiceMetadata"`
	ServiceMetadata PeppolServiceMetadata `xml:"ServiceMetadata"`
}

// PeppolServiceMetadata holds either service information or a redirect
type PeppolServiceMetadata struct {
	ServiceInformation *PeppolServiceInformation `xml:"ServiceInformation"`
	Redirect           *Redirect                 `xml:"Redirect"`
}

// PeppolServiceInformation lists the processes of one document type
type PeppolServiceInformation struct {
	ParticipantIdentifier Identifier      `xml:"ParticipantIdentifier"`
	DocumentIdentifier    Identifier      `xml:"DocumentIdentifier"`
	Processes             []PeppolProcess `xml:"ProcessList>Process"`
	Extensions            []Extension     `xml:"Extension"`
}

// PeppolProcess is one process and its endpoints
type PeppolProcess struct {
	ProcessIdentifier Identifier       `xml:"ProcessIdentifier"`
	Endpoints         []PeppolEndpoint `xml:"ServiceEndpointList>Endpoint"`
	Extensions        []Extension      `xml:"Extension"`
}

// PeppolEndpoint is a Peppol SMP endpoint
type PeppolEndpoint struct {
	TransportProfile              string      `xml:"transportProfile,attr"`
	Address                       string      `xml:"EndpointReference>Address"`
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
