package smpquery

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-smp/pkg/discovery"
	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
)

var _ EndpointResolver = (*discovery.Resolver)(nil)

// fakeResolver answers per registry ID and counts probes.
type fakeResolver struct {
	mu    sync.Mutex
	hits  map[string]string
	errs  map[string]error
	calls []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{hits: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeResolver) ResolveRegistry(ctx context.Context, cfg registry.Config, p identifier.Participant) (*url.URL, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cfg.ID)

	if err := f.errs[cfg.ID]; err != nil {
		return nil, false, err
	}
	raw, ok := f.hits[cfg.ID]
	if !ok {
		return nil, false, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (f *fakeResolver) probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testCatalog(t *testing.T) *registry.Catalog {
	t.Helper()
	cat, err := registry.NewCatalog(
		registry.Config{ID: "SML-TEST", DNSZone: "acc.sml.example.test.", Variant: registry.VariantPeppol, Priority: 100},
		registry.Config{ID: "SML-PROD", DNSZone: "sml.example.test.", Variant: registry.VariantPeppol, Priority: 200, Production: true},
		registry.Config{ID: "BDXR-NET", DNSZone: "bdxl.example.test.", Variant: registry.VariantBDXR1, Priority: 50},
	)
	require.NoError(t, err)
	return cat
}

func dnsFailure(name string) error {
	return &discovery.DNSError{Name: name, Type: "NAPTR", Err: context.DeadlineExceeded}
}

func TestBuildAutoDetect(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		res := newFakeResolver()
		res.hits["SML-TEST"] = "https://smp.example.test/"

		b := NewBuilder(testCatalog(t), res, BuilderConfig{ParallelProbe: parallel})
		qc, err := b.Build(context.Background(), "auto-detect", "iso6523-actorid-upis", "0208:123456")
		require.NoError(t, err)

		assert.Equal(t, "SML-TEST", qc.Registry().ID)
		assert.Equal(t, "smp.example.test", qc.EndpointURL().Host)
		assert.Equal(t, "https://smp.example.test", qc.Endpoint())
		assert.True(t, qc.TrustAllCertificates())
		assert.Equal(t, "iso6523-actorid-upis::0208:123456", qc.Participant().URIEncoded())
	}
}

func TestBuildAutoDetectNotRegistered(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		cat := testCatalog(t)
		res := newFakeResolver()

		b := NewBuilder(cat, res, BuilderConfig{ParallelProbe: parallel})
		qc, err := b.Build(context.Background(), registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")

		assert.Nil(t, qc)
		assert.ErrorIs(t, err, ErrNotRegisteredInAnyRegistry)
		assert.Equal(t, KindNotRegistered, Classify(err))
		assert.Equal(t, cat.Len(), res.probes())
	}
}

func TestBuildAutoDetectPriority(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		res := newFakeResolver()
		res.hits["SML-TEST"] = "http://test.example.test"
		res.hits["SML-PROD"] = "http://prod.example.test"
		res.hits["BDXR-NET"] = "http://bdxr.example.test"

		b := NewBuilder(testCatalog(t), res, BuilderConfig{ParallelProbe: parallel})
		for i := 0; i < 10; i++ {
			qc, err := b.Build(context.Background(), "autodetect", "iso6523-actorid-upis", "0208:123456")
			require.NoError(t, err)
			assert.Equal(t, "SML-PROD", qc.Registry().ID)
			assert.False(t, qc.TrustAllCertificates(), "http endpoints never trust blindly")
		}
	}
}

func TestBuildSequentialStopsAtFirstHit(t *testing.T) {
	res := newFakeResolver()
	res.hits["SML-PROD"] = "http://prod.example.test"

	b := NewBuilder(testCatalog(t), res, BuilderConfig{})
	_, err := b.Build(context.Background(), registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")
	require.NoError(t, err)
	assert.Equal(t, []string{"SML-PROD"}, res.calls)
}

func TestBuildAutoDetectSkipsFailingRegistry(t *testing.T) {
	res := newFakeResolver()
	res.errs["SML-PROD"] = dnsFailure("x.sml.example.test.")
	res.hits["SML-TEST"] = "https://smp.example.test"

	b := NewBuilder(testCatalog(t), res, BuilderConfig{})
	qc, err := b.Build(context.Background(), registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")
	require.NoError(t, err)
	assert.Equal(t, "SML-TEST", qc.Registry().ID)
}

func TestBuildAutoDetectJoinsProbeErrors(t *testing.T) {
	res := newFakeResolver()
	res.errs["SML-PROD"] = dnsFailure("x.sml.example.test.")

	b := NewBuilder(testCatalog(t), res, BuilderConfig{})
	_, err := b.Build(context.Background(), registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegisteredInAnyRegistry)
	var dnsErr *discovery.DNSError
	assert.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, KindNotRegistered, Classify(err))
	assert.Equal(t, 3, res.probes())
}

func TestBuildConcreteRegistry(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *fakeResolver)
		wantErr error
		kind    Kind
	}{
		{
			name:  "found",
			setup: func(r *fakeResolver) { r.hits["SML-TEST"] = "https://smp.example.test" },
		},
		{
			name:    "not registered",
			setup:   func(r *fakeResolver) { r.hits["SML-PROD"] = "https://smp.example.test" },
			wantErr: ErrNotRegistered,
			kind:    KindNotRegistered,
		},
		{
			name:    "dns failure",
			setup:   func(r *fakeResolver) { r.errs["SML-TEST"] = dnsFailure("x.acc.sml.example.test.") },
			wantErr: ErrTransportFailure,
			kind:    KindTransportFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newFakeResolver()
			tt.setup(res)

			b := NewBuilder(testCatalog(t), res, BuilderConfig{})
			qc, err := b.Build(context.Background(), "SML-TEST", "iso6523-actorid-upis", "0208:123456")
			assert.Equal(t, 1, res.probes())

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "SML-TEST", qc.Registry().ID)
				return
			}
			assert.Nil(t, qc)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.kind, Classify(err))
		})
	}
}

func TestBuildDNSFailureKeepsCause(t *testing.T) {
	res := newFakeResolver()
	res.errs["SML-TEST"] = dnsFailure("x.acc.sml.example.test.")

	b := NewBuilder(testCatalog(t), res, BuilderConfig{})
	_, err := b.Build(context.Background(), "SML-TEST", "iso6523-actorid-upis", "0208:123456")

	var dnsErr *discovery.DNSError
	require.ErrorAs(t, err, &dnsErr)
	assert.True(t, dnsErr.Timeout())
}

func TestBuildInvalidIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		registryID string
		scheme     string
		value      string
		wantErr    error
		wantProbes int
	}{
		{"control character everywhere", registry.AutoDetectID, "iso6523-actorid-upis", "0208:\x07", ErrInvalidIdentifier, 0},
		{"empty value", "SML-TEST", "iso6523-actorid-upis", "", ErrInvalidIdentifier, 0},
		{"peppol rules", "SML-TEST", "iso6523-actorid-upis", "not-a-number", ErrInvalidIdentifier, 0},
		{"unknown registry", "SML-NOPE", "iso6523-actorid-upis", "0208:123456", ErrUnknownRegistry, 0},
		// only valid for the BDXR registry, which is then the only one probed
		{"valid for one family", registry.AutoDetectID, "iso6523-actorid-upis", "not-a-number", ErrNotRegisteredInAnyRegistry, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newFakeResolver()
			b := NewBuilder(testCatalog(t), res, BuilderConfig{})
			_, err := b.Build(context.Background(), tt.registryID, tt.scheme, tt.value)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantProbes, res.probes())
		})
	}
}

func TestBuildInvalidIdentifierKind(t *testing.T) {
	b := NewBuilder(testCatalog(t), newFakeResolver(), BuilderConfig{})
	_, err := b.Build(context.Background(), "SML-TEST", "iso6523-actorid-upis", "")
	assert.Equal(t, KindInvalidIdentifier, Classify(err))
	assert.ErrorIs(t, err, identifier.ErrInvalidIdentifier)
}

func TestBuildCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newFakeResolver()
	b := NewBuilder(testCatalog(t), res, BuilderConfig{})
	_, err := b.Build(ctx, registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")

	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.probes())
}

func TestBuildEmptyCatalog(t *testing.T) {
	cat, err := registry.NewCatalog()
	require.NoError(t, err)

	b := NewBuilder(cat, newFakeResolver(), BuilderConfig{})
	_, err = b.Build(context.Background(), registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")
	assert.ErrorIs(t, err, ErrNotRegisteredInAnyRegistry)
}

func TestIsRegistered(t *testing.T) {
	res := newFakeResolver()
	res.hits["BDXR-NET"] = "https://bdxr.example.test"
	res.errs["SML-TEST"] = dnsFailure("x")

	b := NewBuilder(testCatalog(t), res, BuilderConfig{})

	id, ok, err := b.IsRegistered(context.Background(), registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "BDXR-NET", id)

	_, ok, err = b.IsRegistered(context.Background(), "SML-PROD", "iso6523-actorid-upis", "0208:123456")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = b.IsRegistered(context.Background(), "SML-TEST", "iso6523-actorid-upis", "0208:123456")
	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.False(t, ok)
}

func TestBuildMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	res := newFakeResolver()
	res.errs["SML-PROD"] = dnsFailure("x")
	res.hits["SML-TEST"] = "https://smp.example.test"

	b := NewBuilder(testCatalog(t), res, BuilderConfig{Metrics: m})
	_, err := b.Build(context.Background(), registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Probes.WithLabelValues("SML-PROD", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Probes.WithLabelValues("SML-TEST", OutcomeFound)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Probes.WithLabelValues("BDXR-NET", OutcomeAbsent)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncrementProbe("x", OutcomeFound)
	m.ObserveQuery("peppol", OperationListDocumentTypes, OutcomeOK, 0)
}
