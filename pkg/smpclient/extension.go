package smpclient

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
)

// Extension is an SMP extension element. BDXR SMP 1.0 and 2.0 describe
// extensions with the Extension* metadata elements; Peppol SMP extensions
// carry arbitrary content only. Content always holds the inner XML as it was
// received.
type Extension struct {
	ID         string `xml:"ExtensionID" json:"id,omitempty"`
	Name       string `xml:"ExtensionName" json:"name,omitempty"`
	AgencyID   string `xml:"ExtensionAgencyID" json:"agencyId,omitempty"`
	AgencyName string `xml:"ExtensionAgencyName" json:"agencyName,omitempty"`
	AgencyURI  string `xml:"ExtensionAgencyURI" json:"agencyUri,omitempty"`
	VersionID  string `xml:"ExtensionVersionID" json:"versionId,omitempty"`
	URI        string `xml:"ExtensionURI" json:"uri,omitempty"`
	ReasonCode string `xml:"ExtensionReasonCode" json:"reasonCode,omitempty"`
	Reason     string `xml:"ExtensionReason" json:"reason,omitempty"`
	Content    string `xml:",innerxml" json:"content"`
}

// parseCertificateFromBase64 decodes and parses a base64-encoded DER
// certificate. Whitespace from pretty printed XML is ignored.
func parseCertificateFromBase64(b64 string) (*x509.Certificate, error) {
	clean := strings.Join(strings.Fields(b64), "")
	der, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to decode certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return cert, nil
}

// ParseCertificate decodes a certificate as published in SMP endpoint
// metadata (base64 DER, optionally wrapped in PEM armour).
func ParseCertificate(s string) (*x509.Certificate, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "-----BEGIN CERTIFICATE-----")
	s = strings.TrimSuffix(s, "-----END CERTIFICATE-----")
	return parseCertificateFromBase64(s)
}
