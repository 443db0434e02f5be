package smptest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/leifj/signedxml"
)

// Signer holds a self-signed RSA certificate for signing SMP documents.
type Signer struct {
	Key  *rsa.PrivateKey
	Cert *x509.Certificate
}

var (
	defaultSigner     *Signer
	defaultSignerErr  error
	defaultSignerOnce sync.Once
)

// NewSigner generates a fresh key and self-signed certificate.
func NewSigner(t testing.TB, commonName string) *Signer {
	t.Helper()
	s, err := newSigner(commonName)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return s
}

// DefaultSigner returns a signer shared by all tests in the binary.
func DefaultSigner(t testing.TB) *Signer {
	t.Helper()
	defaultSignerOnce.Do(func() {
		defaultSigner, defaultSignerErr = newSigner("Test SMP")
	})
	if defaultSignerErr != nil {
		t.Fatalf("failed to create signer: %v", defaultSignerErr)
	}
	return defaultSigner
}

func newSigner(commonName string) (*Signer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"Example SMP"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Signer{Key: key, Cert: cert}, nil
}

// CertificateBase64 returns the DER certificate in base64.
func (s *Signer) CertificateBase64() string {
	return base64.StdEncoding.EncodeToString(s.Cert.Raw)
}

// Pool returns a certificate pool containing only this certificate.
func (s *Signer) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(s.Cert)
	return pool
}

// Sign appends an enveloped XML signature over the whole document to its
// root element.
func (s *Signer) Sign(t testing.TB, doc string) string {
	t.Helper()

	d := etree.NewDocument()
	if err := d.ReadFromString(doc); err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	root := d.Root()

	sig := root.CreateElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", "http://www.w3.org/2000/09/xmldsig#")

	signedInfo := sig.CreateElement("ds:SignedInfo")
	signedInfo.CreateElement("ds:CanonicalizationMethod").
		CreateAttr("Algorithm", "http://www.w3.org/2001/10/xml-exc-c14n#")
	signedInfo.CreateElement("ds:SignatureMethod").
		CreateAttr("Algorithm", "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256")

	ref := signedInfo.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "")
	transforms := ref.CreateElement("ds:Transforms")
	transforms.CreateElement("ds:Transform").
		CreateAttr("Algorithm", "http://www.w3.org/2000/09/xmldsig#enveloped-signature")
	transforms.CreateElement("ds:Transform").
		CreateAttr("Algorithm", "http://www.w3.org/2001/10/xml-exc-c14n#")
	ref.CreateElement("ds:DigestMethod").
		CreateAttr("Algorithm", "http://www.w3.org/2001/04/xmlenc#sha256")
	ref.CreateElement("ds:DigestValue")

	sig.CreateElement("ds:SignatureValue")
	sig.CreateElement("ds:KeyInfo").
		CreateElement("ds:X509Data").
		CreateElement("ds:X509Certificate").
		SetText(s.CertificateBase64())

	xmlStr, err := d.WriteToString()
	if err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	signer, err := signedxml.NewSigner(xmlStr)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	signed, err := signer.Sign(s.Key)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return signed
}
