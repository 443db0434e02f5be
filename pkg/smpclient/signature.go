package smpclient

import (
	"crypto/x509"

	"github.com/beevik/etree"
	"github.com/leifj/signedxml"
)

// NamespaceXMLDSig is the XML Signature namespace
const NamespaceXMLDSig = "http://www.w3.org/2000/09/xmldsig#"

// verifySignature checks the enveloped signature of an SMP document. The
// signing certificate is taken from KeyInfo; when trust is set it must chain
// to one of its roots.
func verifySignature(url string, body []byte, trust *x509.CertPool) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return &SignatureError{URL: url, Reason: "malformed XML", Err: err}
	}

	root := doc.Root()
	if root == nil {
		return &SignatureError{URL: url, Reason: "empty document"}
	}

	var sig *etree.Element
	for _, c := range root.ChildElements() {
		if c.Tag == "Signature" && c.NamespaceURI() == NamespaceXMLDSig {
			sig = c
			break
		}
	}
	if sig == nil {
		return &SignatureError{URL: url, Reason: "document is not signed"}
	}

	certElem := findDescendant(sig, "X509Certificate")
	if certElem == nil {
		return &SignatureError{URL: url, Reason: "no X509Certificate in KeyInfo"}
	}
	cert, err := parseCertificateFromBase64(certElem.Text())
	if err != nil {
		return &SignatureError{URL: url, Reason: "unreadable signing certificate", Err: err}
	}

	if trust != nil {
		opts := x509.VerifyOptions{
			Roots:     trust,
			KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}
		if _, err := cert.Verify(opts); err != nil {
			return &SignatureError{URL: url, Reason: "untrusted signing certificate " + cert.Subject.String(), Err: err}
		}
	}

	validator, err := signedxml.NewValidator(string(body))
	if err != nil {
		return &SignatureError{URL: url, Reason: "failed to create validator", Err: err}
	}
	validator.Certificates = []x509.Certificate{*cert}

	if _, err := validator.ValidateReferences(); err != nil {
		return &SignatureError{URL: url, Reason: "signature validation failed", Err: err}
	}
	return nil
}

func findDescendant(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
		if found := findDescendant(c, tag); found != nil {
			return found
		}
	}
	return nil
}
