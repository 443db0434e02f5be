package smpclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-smp/internal/smptest"
	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
)

const (
	participantPath = "/iso6523-actorid-upis::0208:123456"
	metadataPath    = participantPath + "/services/" + smptest.DocTypeScheme + "::" + smptest.DocTypeValue
)

func testParticipant(t *testing.T) identifier.Participant {
	t.Helper()
	p, err := identifier.Peppol.NewParticipant(smptest.ParticipantScheme, smptest.ParticipantValue)
	require.NoError(t, err)
	return p
}

func testDocType(t *testing.T) identifier.DocumentType {
	t.Helper()
	d, err := identifier.Peppol.NewDocumentType(smptest.DocTypeScheme, smptest.DocTypeValue)
	require.NoError(t, err)
	return d
}

func newTestClient(t *testing.T, variant registry.Variant, endpoint string, opts Options) *Client {
	t.Helper()
	c, err := New(variant, endpoint, opts)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		variant  registry.Variant
		endpoint string
		wantErr  bool
	}{
		{"http", registry.VariantPeppol, "http://smp.example.test", false},
		{"https with path", registry.VariantBDXR1, "https://smp.example.test/smp/", false},
		{"unknown variant", registry.Variant("smp3"), "http://smp.example.test", true},
		{"relative", registry.VariantPeppol, "/smp", true},
		{"ftp", registry.VariantPeppol, "ftp://smp.example.test", true},
		{"no host", registry.VariantPeppol, "http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.variant, tt.endpoint, Options{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, strings.HasSuffix(c.Endpoint(), "/"))
			assert.Equal(t, tt.variant, c.Variant())
		})
	}
}

func TestServiceURLs(t *testing.T) {
	p := testParticipant(t)
	d, err := identifier.Peppol.NewDocumentType(identifier.PeppolDocTypeSchemeBusdox, "a:b#c")
	require.NoError(t, err)

	tests := []struct {
		variant      registry.Variant
		wantGroup    string
		wantMetadata string
	}{
		{
			variant:      registry.VariantPeppol,
			wantGroup:    "http://smp.example.test/iso6523-actorid-upis%3A%3A0208%3A123456",
			wantMetadata: "http://smp.example.test/iso6523-actorid-upis%3A%3A0208%3A123456/services/busdox-docid-qns%3A%3Aa%3Ab%23c",
		},
		{
			variant:      registry.VariantBDXR1,
			wantGroup:    "http://smp.example.test/iso6523-actorid-upis%3A%3A0208%3A123456",
			wantMetadata: "http://smp.example.test/iso6523-actorid-upis%3A%3A0208%3A123456/services/busdox-docid-qns%3A%3Aa%3Ab%23c",
		},
		{
			variant:      registry.VariantBDXR2,
			wantGroup:    "http://smp.example.test/bdxr-smp-2/iso6523-actorid-upis%3A%3A0208%3A123456",
			wantMetadata: "http://smp.example.test/bdxr-smp-2/iso6523-actorid-upis%3A%3A0208%3A123456/services/busdox-docid-qns%3A%3Aa%3Ab%23c",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			c := newTestClient(t, tt.variant, "http://smp.example.test/", Options{})
			assert.Equal(t, tt.wantGroup, c.ServiceGroupURL(p))
			assert.Equal(t, tt.wantMetadata, c.ServiceMetadataURL(p, d))
		})
	}
}

func TestGetPeppolServiceGroup(t *testing.T) {
	srv := smptest.NewServer(t)
	href := srv.URL + "/iso6523-actorid-upis%3A%3A0208%3A123456/services/busdox-docid-qns%3A%3Ainvoice"
	srv.Handle(participantPath, http.StatusOK, smptest.Group{Hrefs: []string{href}}.Peppol())

	c := newTestClient(t, registry.VariantPeppol, srv.URL, Options{ValidateSchema: true})
	sg, err := c.GetPeppolServiceGroup(context.Background(), testParticipant(t))
	require.NoError(t, err)

	assert.Equal(t, smptest.ParticipantScheme, sg.ParticipantIdentifier.Scheme)
	assert.Equal(t, smptest.ParticipantValue, sg.ParticipantIdentifier.Value)
	require.Len(t, sg.References, 1)
	assert.Equal(t, href, sg.References[0].Href)

	assert.Equal(t, []string{"/iso6523-actorid-upis%3A%3A0208%3A123456"}, srv.Requests())
}

func TestGetPeppolServiceMetadataSigned(t *testing.T) {
	signer := smptest.DefaultSigner(t)
	srv := smptest.NewServer(t)
	srv.Handle(metadataPath, http.StatusOK, signer.Sign(t, smptest.DefaultMetadata().Peppol()))

	c := newTestClient(t, registry.VariantPeppol, srv.URL, Options{
		ValidateSchema:  true,
		VerifySignature: true,
		SignatureTrust:  signer.Pool(),
	})
	ssm, err := c.GetPeppolServiceMetadata(context.Background(), testParticipant(t), testDocType(t))
	require.NoError(t, err)

	si := ssm.ServiceMetadata.ServiceInformation
	require.NotNil(t, si)
	assert.Nil(t, ssm.ServiceMetadata.Redirect)
	assert.Equal(t, smptest.DocTypeValue, si.DocumentIdentifier.Value)
	require.Len(t, si.Processes, 1)
	assert.Equal(t, smptest.ProcessValue, si.Processes[0].ProcessIdentifier.Value)
	require.Len(t, si.Processes[0].Endpoints, 1)

	ep := si.Processes[0].Endpoints[0]
	assert.Equal(t, smptest.TransportProfile, ep.TransportProfile)
	assert.Equal(t, smptest.AccessPointURL, ep.Address)
	assert.Equal(t, "false", ep.RequireBusinessLevelSignature)
	assert.Equal(t, "mailto:ops@example.test", ep.TechnicalContactURL)
}

func TestSignatureFailures(t *testing.T) {
	signer := smptest.DefaultSigner(t)
	other := smptest.NewSigner(t, "Other SMP")
	signed := signer.Sign(t, smptest.DefaultMetadata().Peppol())

	tests := []struct {
		name   string
		body   string
		trust  *Options
		reason string
	}{
		{
			name:   "unsigned",
			body:   smptest.DefaultMetadata().Peppol(),
			reason: "document is not signed",
		},
		{
			name:   "tampered",
			body:   strings.Replace(signed, smptest.AccessPointURL, "https://evil.example.test/as4", 1),
			reason: "signature validation failed",
		},
		{
			name:   "untrusted",
			body:   signed,
			trust:  &Options{SignatureTrust: other.Pool()},
			reason: "untrusted signing certificate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := smptest.NewServer(t)
			srv.Handle(metadataPath, http.StatusOK, tt.body)

			opts := Options{VerifySignature: true}
			if tt.trust != nil {
				opts.SignatureTrust = tt.trust.SignatureTrust
			}
			c := newTestClient(t, registry.VariantPeppol, srv.URL, opts)
			_, err := c.GetPeppolServiceMetadata(context.Background(), testParticipant(t), testDocType(t))

			var sigErr *SignatureError
			require.ErrorAs(t, err, &sigErr)
			assert.Contains(t, sigErr.Reason, tt.reason)
		})
	}
}

func TestSignatureNotCheckedOnServiceGroup(t *testing.T) {
	srv := smptest.NewServer(t)
	srv.Handle(participantPath, http.StatusOK, smptest.Group{}.Peppol())

	c := newTestClient(t, registry.VariantPeppol, srv.URL, Options{VerifySignature: true})
	_, err := c.GetPeppolServiceGroup(context.Background(), testParticipant(t))
	assert.NoError(t, err)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		variant  registry.Variant
		status   int
		location string
		check    func(t *testing.T, err error)
	}{
		{"404", registry.VariantPeppol, http.StatusNotFound, "", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNotFound)
		}},
		{"410", registry.VariantBDXR1, http.StatusGone, "", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNotFound)
		}},
		{"204", registry.VariantBDXR2, http.StatusNoContent, "", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNotFound)
		}},
		{"peppol redirect", registry.VariantPeppol, http.StatusFound, "http://elsewhere.example.test/", func(t *testing.T, err error) {
			var pv *ProtocolViolationError
			require.ErrorAs(t, err, &pv)
			assert.Equal(t, http.StatusFound, pv.StatusCode)
		}},
		{"bdxr redirect", registry.VariantBDXR1, http.StatusMovedPermanently, "http://elsewhere.example.test/", func(t *testing.T, err error) {
			var se *HTTPStatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusMovedPermanently, se.StatusCode)
			assert.Equal(t, "http://elsewhere.example.test/", se.Location)
		}},
		{"server error", registry.VariantPeppol, http.StatusInternalServerError, "", func(t *testing.T, err error) {
			var se *HTTPStatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
			assert.NotErrorIs(t, err, ErrNotFound)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := smptest.NewServer(t)
			path := participantPath
			if tt.variant == registry.VariantBDXR2 {
				path = "/bdxr-smp-2" + participantPath
			}
			if tt.location != "" {
				srv.Redirect(path, tt.status, tt.location)
			} else {
				srv.Handle(path, tt.status, "")
			}

			c := newTestClient(t, tt.variant, srv.URL, Options{})
			var err error
			switch tt.variant {
			case registry.VariantPeppol:
				_, err = c.GetPeppolServiceGroup(context.Background(), testParticipant(t))
			case registry.VariantBDXR1:
				_, err = c.GetBDXR1ServiceGroup(context.Background(), testParticipant(t))
			case registry.VariantBDXR2:
				_, err = c.GetBDXR2ServiceGroup(context.Background(), testParticipant(t))
			}
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := smptest.NewServer(t)
	endpoint := srv.URL
	srv.Close()

	c := newTestClient(t, registry.VariantPeppol, endpoint, Options{})
	_, err := c.GetPeppolServiceGroup(context.Background(), testParticipant(t))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.URL, "iso6523-actorid-upis%3A%3A0208%3A123456")
}

func TestSchemaErrors(t *testing.T) {
	incomplete := smptest.DefaultMetadata()
	incomplete.Endpoints[0].Address = ""

	tests := []struct {
		name     string
		body     string
		validate bool
		reason   string
	}{
		{"wrong root", smptest.Group{}.Peppol(), true, "unexpected root element"},
		{"wrong namespace", smptest.DefaultMetadata().BDXR1(), true, "unexpected root element"},
		{"missing address", incomplete.Peppol(), true, "Endpoint without EndpointReference/Address"},
		{"malformed", "<smp:SignedServiceMetadata", true, "malformed XML"},
		{"malformed without validation", "<SignedServiceMetadata>", false, "cannot decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := smptest.NewServer(t)
			srv.Handle(metadataPath, http.StatusOK, tt.body)

			c := newTestClient(t, registry.VariantPeppol, srv.URL, Options{ValidateSchema: tt.validate})
			_, err := c.GetPeppolServiceMetadata(context.Background(), testParticipant(t), testDocType(t))

			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Reason, tt.reason)
		})
	}
}

func TestPeppolRedirectDocument(t *testing.T) {
	target := "http://other.example.test/iso6523-actorid-upis%3A%3A0208%3A123456/services/x"
	m := smptest.DefaultMetadata()
	m.Redirect = target

	srv := smptest.NewServer(t)
	srv.Handle(metadataPath, http.StatusOK, m.Peppol())

	c := newTestClient(t, registry.VariantPeppol, srv.URL, Options{ValidateSchema: true})
	ssm, err := c.GetPeppolServiceMetadata(context.Background(), testParticipant(t), testDocType(t))
	require.NoError(t, err)
	assert.Nil(t, ssm.ServiceMetadata.ServiceInformation)
	require.NotNil(t, ssm.ServiceMetadata.Redirect)
	assert.Equal(t, target, ssm.ServiceMetadata.Redirect.Href)
	assert.Equal(t, "CN=redirect target", ssm.ServiceMetadata.Redirect.CertificateUID)
}

func TestGetBDXR1(t *testing.T) {
	signer := smptest.DefaultSigner(t)
	srv := smptest.NewServer(t)
	srv.Handle(participantPath, http.StatusOK, smptest.Group{Hrefs: []string{srv.URL + "/x"}}.BDXR1())
	srv.Handle(metadataPath, http.StatusOK, signer.Sign(t, smptest.DefaultMetadata().BDXR1()))

	c := newTestClient(t, registry.VariantBDXR1, srv.URL, Options{ValidateSchema: true, VerifySignature: true})

	sg, err := c.GetBDXR1ServiceGroup(context.Background(), testParticipant(t))
	require.NoError(t, err)
	require.Len(t, sg.References, 1)

	ssm, err := c.GetBDXR1ServiceMetadata(context.Background(), testParticipant(t), testDocType(t))
	require.NoError(t, err)
	si := ssm.ServiceMetadata.ServiceInformation
	require.NotNil(t, si)
	ep := si.Processes[0].Endpoints[0]
	assert.Equal(t, smptest.AccessPointURL, ep.EndpointURI)
	assert.Equal(t, "2", ep.MinimumAuthenticationLevel)
	assert.Equal(t, "https://ap.example.test/info", ep.TechnicalInformationURL)
}

func TestGetBDXR2(t *testing.T) {
	signer := smptest.DefaultSigner(t)
	srv := smptest.NewServer(t)
	group := smptest.Group{DocTypes: []smptest.DocType{{Scheme: smptest.DocTypeScheme, Value: smptest.DocTypeValue}}}
	srv.Handle("/bdxr-smp-2"+participantPath, http.StatusOK, group.BDXR2())
	srv.Handle("/bdxr-smp-2"+metadataPath, http.StatusOK, signer.Sign(t, smptest.DefaultMetadata().BDXR2()))

	c := newTestClient(t, registry.VariantBDXR2, srv.URL, Options{ValidateSchema: true, VerifySignature: true})

	sg, err := c.GetBDXR2ServiceGroup(context.Background(), testParticipant(t))
	require.NoError(t, err)
	assert.Equal(t, "2.0", sg.SMPVersionID)
	require.Len(t, sg.References, 1)
	assert.Equal(t, smptest.DocTypeValue, sg.References[0].ID.Value)
	assert.Equal(t, smptest.DocTypeScheme, sg.References[0].ID.SchemeID)

	sm, err := c.GetBDXR2ServiceMetadata(context.Background(), testParticipant(t), testDocType(t))
	require.NoError(t, err)
	assert.Equal(t, smptest.DocTypeValue, sm.ID.Value)
	require.Len(t, sm.ProcessMetadata, 1)
	pm := sm.ProcessMetadata[0]
	require.Len(t, pm.Processes, 1)
	assert.Equal(t, smptest.ProcessValue, pm.Processes[0].ID.Value)
	require.Len(t, pm.Endpoints, 1)
	assert.Equal(t, smptest.AccessPointURL, pm.Endpoints[0].AddressURI)
	require.Len(t, pm.Endpoints[0].Certificates, 1)
	assert.Equal(t, "signing", pm.Endpoints[0].Certificates[0].TypeCode)
}

func TestBDXR2ServiceMetadataNeedsEndpointOrRedirect(t *testing.T) {
	m := smptest.DefaultMetadata()
	m.Endpoints = nil

	srv := smptest.NewServer(t)
	srv.Handle("/bdxr-smp-2"+metadataPath, http.StatusOK, m.BDXR2())

	c := newTestClient(t, registry.VariantBDXR2, srv.URL, Options{ValidateSchema: true})
	_, err := c.GetBDXR2ServiceMetadata(context.Background(), testParticipant(t), testDocType(t))

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ProcessMetadata has neither Endpoint nor Redirect", se.Reason)
}

func TestOnResponseHook(t *testing.T) {
	srv := smptest.NewServer(t)
	body := smptest.Group{}.Peppol()
	srv.Handle(participantPath, http.StatusOK, body)

	var (
		gotURL    string
		gotStatus int
		gotBody   []byte
		calls     int
	)
	c := newTestClient(t, registry.VariantPeppol, srv.URL, Options{
		OnResponse: func(url string, statusCode int, b []byte) {
			calls++
			gotURL, gotStatus, gotBody = url, statusCode, b
		},
	})

	_, err := c.GetPeppolServiceGroup(context.Background(), testParticipant(t))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, c.ServiceGroupURL(testParticipant(t)), gotURL)
	assert.Equal(t, http.StatusOK, gotStatus)
	assert.Equal(t, body, string(gotBody))

	// also called for errors
	_, err = c.GetPeppolServiceMetadata(context.Background(), testParticipant(t), testDocType(t))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 2, calls)
	assert.Equal(t, http.StatusNotFound, gotStatus)
}

func TestWithEndpoint(t *testing.T) {
	c := newTestClient(t, registry.VariantBDXR2, "http://a.example.test", Options{ValidateSchema: true})
	c2, err := c.WithEndpoint("http://b.example.test/")
	require.NoError(t, err)
	assert.Equal(t, "http://b.example.test", c2.Endpoint())
	assert.Equal(t, registry.VariantBDXR2, c2.Variant())
	assert.True(t, c2.Options().ValidateSchema)

	_, err = c.WithEndpoint("not a url")
	assert.Error(t, err)
}

func TestExtensionContentVerbatim(t *testing.T) {
	content := `<ExtensionID>urn:example:ext</ExtensionID>` +
		`<CertificateList><Certificate type="signing">` + "\n  MIIB\n" + `</Certificate></CertificateList>`

	m := smptest.DefaultMetadata()
	m.Extension = content

	srv := smptest.NewServer(t)
	srv.Handle(metadataPath, http.StatusOK, m.BDXR1())
	c := newTestClient(t, registry.VariantBDXR1, srv.URL, Options{})
	ssm, err := c.GetBDXR1ServiceMetadata(context.Background(), testParticipant(t), testDocType(t))
	require.NoError(t, err)

	exts := ssm.ServiceMetadata.ServiceInformation.Extensions
	require.Len(t, exts, 1)
	assert.Equal(t, "urn:example:ext", exts[0].ID)
	assert.Contains(t, exts[0].Content, "<CertificateList>")
	assert.Contains(t, exts[0].Content, "\n  MIIB\n")
}

func TestParseCertificate(t *testing.T) {
	signer := smptest.DefaultSigner(t)
	b64 := signer.CertificateBase64()

	cert, err := ParseCertificate(b64)
	require.NoError(t, err)
	assert.Equal(t, signer.Cert.SerialNumber, cert.SerialNumber)

	pem := "-----BEGIN CERTIFICATE-----\n" + b64 + "\n-----END CERTIFICATE-----\n"
	cert, err = ParseCertificate(pem)
	require.NoError(t, err)
	assert.Equal(t, signer.Cert.SerialNumber, cert.SerialNumber)

	_, err = ParseCertificate("MIIB")
	assert.Error(t, err)
}
