package smpclient

import "encoding/xml"

// OASIS BDXR SMP 2.0 namespaces
const (
	NamespaceBDXR2ServiceGroup    = "http://docs.oasis-open.org/bdxr/ns/SMP/2/ServiceGroup"
	NamespaceBDXR2ServiceMetadata = "http://docs.oasis-open.org/bdxr/ns/SMP/2/ServiceMetadata"
	NamespaceBDXR2Basic           = "http://docs.oasis-open.org/bdxr/ns/SMP/2/BasicComponents"
	NamespaceBDXR2Aggregate       = "http://docs.oasis-open.org/bdxr/ns/SMP/2/AggregateComponents"
	NamespaceBDXR2Extension       = "http://docs.oasis-open.org/bdxr/ns/SMP/2/ExtensionComponents"
)

// BDXR2Identifier is a UBL style identifier with a schemeID attribute
type BDXR2Identifier struct {
	SchemeID string `xml:"schemeID,attr" json:"scheme,omitempty"`
	Value    string `xml:",chardata" json:"value"`
}

// BDXR2ServiceGroup is an OASIS SMP 2.0 ServiceGroup
type BDXR2ServiceGroup struct {
	XMLName       xml.Name                `xml:"ServiceGroup"`
	Extensions    []Extension             `xml:"SMPExtensions>SMPExtension"`
	SMPVersionID  string                  `xml:"SMPVersionID"`
	ParticipantID BDXR2Identifier         `xml:"ParticipantID"`
	References    []BDXR2ServiceReference `xml:"ServiceReference"`
}

// BDXR2ServiceReference names one supported document type
type BDXR2ServiceReference struct {
	ID        BDXR2Identifier `xml:"ID"`
	Processes []BDXR2Process  `xml:"Process"`
}

// BDXR2ServiceMetadata is an OASIS SMP 2.0 ServiceMetadata
type BDXR2ServiceMetadata struct {
	XMLName         xml.Name               `xml:"ServiceMetadata"`
	Extensions      []Extension            `xml:"SMPExtensions>SMPExtension"`
	SMPVersionID    string                 `xml:"SMPVersionID"`
	ID              BDXR2Identifier        `xml:"ID"`
	ParticipantID   BDXR2Identifier        `xml:"ParticipantID"`
	ProcessMetadata []BDXR2ProcessMetadata `xml:"ProcessMetadata"`
}

// BDXR2ProcessMetadata binds processes to endpoints, or redirects them
type BDXR2ProcessMetadata struct {
	Extensions []Extension     `xml:"SMPExtensions>SMPExtension"`
	Processes  []BDXR2Process  `xml:"Process"`
	Endpoints  []BDXR2Endpoint `xml:"Endpoint"`
	Redirect   *BDXR2Redirect  `xml:"Redirect"`
}

// BDXR2Process is a process identifier with optional roles
type BDXR2Process struct {
	Extensions []Extension       `xml:"SMPExtensions>SMPExtension"`
	ID         BDXR2Identifier   `xml:"ID"`
	RoleIDs    []BDXR2Identifier `xml:"RoleID"`
}

// BDXR2Endpoint is an OASIS SMP 2.0 endpoint
type BDXR2Endpoint struct {
	Extensions         []Extension        `xml:"SMPExtensions>SMPExtension"`
	TransportProfileID string             `xml:"TransportProfileID"`
	Description        string             `xml:"Description"`
	Contact            string             `xml:"Contact"`
	AddressURI         string             `xml:"AddressURI"`
	ActivationDate     string             `xml:"ActivationDate"`
	ExpirationDate     string             `xml:"ExpirationDate"`
	Certificates       []BDXR2Certificate `xml:"Certificate"`
}

// BDXR2Certificate is a certificate attached to an endpoint or redirect
type BDXR2Certificate struct {
	TypeCode            string `xml:"TypeCode"`
	Description         string `xml:"Description"`
	ActivationDate      string `xml:"ActivationDate"`
	ExpirationDate      string `xml:"ExpirationDate"`
	ContentBinaryObject string `xml:"ContentBinaryObject"`
}

// BDXR2Redirect sends the client to another SMP
type BDXR2Redirect struct {
	Extensions   []Extension        `xml:"SMPExtensions>SMPExtension"`
	PublisherURI string             `xml:"PublisherURI"`
	Certificates []BDXR2Certificate `xml:"Certificate"`
}
