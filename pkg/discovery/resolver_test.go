package discovery

import (
	"context"
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
)

const testZone = "sml.example.test."

// fakeZone is an authoritative test server. Names missing from records
// answer NXDOMAIN.
type fakeZone struct {
	mu       sync.Mutex
	records  map[string][]dns.RR
	rcodes   map[string]int
	truncate map[string]bool
	queries  []string
}

func newFakeZone() *fakeZone {
	return &fakeZone{
		records:  map[string][]dns.RR{},
		rcodes:   map[string]int{},
		truncate: map[string]bool{},
	}
}

func (z *fakeZone) add(t *testing.T, rr string) {
	t.Helper()
	r, err := dns.NewRR(rr)
	require.NoError(t, err)
	name := strings.ToLower(r.Header().Name)
	z.records[name] = append(z.records[name], r)
}

func (z *fakeZone) queryCount() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.queries)
}

func (z *fakeZone) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	q := req.Question[0]
	name := strings.ToLower(q.Name)

	z.mu.Lock()
	z.queries = append(z.queries, name)
	z.mu.Unlock()

	m := new(dns.Msg)
	m.SetReply(req)
	m.Authoritative = true

	if rc, ok := z.rcodes[name]; ok {
		m.Rcode = rc
		_ = w.WriteMsg(m)
		return
	}

	rrs, ok := z.records[name]
	if !ok {
		m.Rcode = dns.RcodeNameError
		_ = w.WriteMsg(m)
		return
	}

	if _, udp := w.RemoteAddr().(*net.UDPAddr); udp && z.truncate[name] {
		m.Truncated = true
		_ = w.WriteMsg(m)
		return
	}

	for _, rr := range rrs {
		if rr.Header().Rrtype == q.Qtype || rr.Header().Rrtype == dns.TypeCNAME {
			m.Answer = append(m.Answer, rr)
		}
	}
	_ = w.WriteMsg(m)
}

// startDNS serves h over UDP and TCP on the same loopback port.
func startDNS(t *testing.T, h dns.Handler) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	l, err := net.Listen("tcp", pc.LocalAddr().String())
	require.NoError(t, err)

	udpStarted := make(chan struct{})
	tcpStarted := make(chan struct{})
	udp := &dns.Server{PacketConn: pc, Handler: h, NotifyStartedFunc: func() { close(udpStarted) }}
	tcp := &dns.Server{Listener: l, Handler: h, NotifyStartedFunc: func() { close(tcpStarted) }}

	go func() { _ = udp.ActivateAndServe() }()
	go func() { _ = tcp.ActivateAndServe() }()
	<-udpStarted
	<-tcpStarted

	t.Cleanup(func() {
		_ = udp.Shutdown()
		_ = tcp.Shutdown()
	})
	return pc.LocalAddr().String()
}

func newTestResolver(t *testing.T, zone *fakeZone) *Resolver {
	addr := startDNS(t, zone)
	return NewResolver(ResolverConfig{DNSServer: addr, Timeout: 2 * time.Second})
}

func testParticipant(t *testing.T) identifier.Participant {
	return mustParticipant(t, identifier.Peppol, "iso6523-actorid-upis", "0208:123456")
}

func TestResolvePeppolNAPTR(t *testing.T) {
	zone := newFakeZone()
	p := testParticipant(t)
	name := PeppolNAPTR{}.DNSName(p, testZone)
	zone.add(t, name+` 60 IN NAPTR 100 10 "U" "Meta:SMP" "!^.*$!https://smp.example.test!" .`)

	r := newTestResolver(t, zone)
	u, found, err := r.Resolve(context.Background(), registry.VariantPeppol, p, testZone)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "smp.example.test", u.Host)
}

func TestResolveNotRegistered(t *testing.T) {
	zone := newFakeZone()
	p := testParticipant(t)

	r := newTestResolver(t, zone)
	u, found, err := r.Resolve(context.Background(), registry.VariantPeppol, p, testZone)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, u)
}

func TestResolveNoUsableRecord(t *testing.T) {
	zone := newFakeZone()
	p := testParticipant(t)
	name := PeppolNAPTR{}.DNSName(p, testZone)
	zone.add(t, name+` 60 IN NAPTR 100 10 "U" "oasis-bdxr-smp-2" "!^.*$!https://smp.example.test!" .`)
	zone.add(t, name+` 60 IN TXT "unrelated"`)

	r := newTestResolver(t, zone)
	_, found, err := r.Resolve(context.Background(), registry.VariantPeppol, p, testZone)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestResolveServerFailure(t *testing.T) {
	zone := newFakeZone()
	p := testParticipant(t)
	zone.rcodes[strings.ToLower(PeppolNAPTR{}.DNSName(p, testZone))] = dns.RcodeServerFailure

	r := newTestResolver(t, zone)
	_, found, err := r.Resolve(context.Background(), registry.VariantPeppol, p, testZone)
	assert.False(t, found)

	var dnsErr *DNSError
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, dns.RcodeServerFailure, dnsErr.Rcode)
	assert.Equal(t, "NAPTR", dnsErr.Type)
	assert.Contains(t, err.Error(), "SERVFAIL")
}

func TestResolveMalformedRegexp(t *testing.T) {
	zone := newFakeZone()
	p := testParticipant(t)
	name := PeppolNAPTR{}.DNSName(p, testZone)
	zone.add(t, name+` 60 IN NAPTR 100 10 "U" "Meta:SMP" "!^.*$!ftp://smp.example.test!" .`)

	r := newTestResolver(t, zone)
	_, _, err := r.Resolve(context.Background(), registry.VariantPeppol, p, testZone)

	var dnsErr *DNSError
	require.ErrorAs(t, err, &dnsErr)
	assert.ErrorIs(t, err, ErrInvalidNAPTRRecord)
}

func TestResolveTimeout(t *testing.T) {
	// a socket nobody answers on
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })

	r := NewResolver(ResolverConfig{DNSServer: pc.LocalAddr().String(), Timeout: 200 * time.Millisecond})
	_, found, err := r.Resolve(context.Background(), registry.VariantPeppol, testParticipant(t), testZone)
	assert.False(t, found)

	var dnsErr *DNSError
	require.ErrorAs(t, err, &dnsErr)
	assert.True(t, dnsErr.Timeout())
}

func TestResolveFollowsCNAME(t *testing.T) {
	zone := newFakeZone()
	p := testParticipant(t)
	name := PeppolNAPTR{}.DNSName(p, testZone)
	zone.add(t, name+` 60 IN CNAME alias.`+testZone)
	zone.add(t, `alias.`+testZone+` 60 IN NAPTR 100 10 "U" "Meta:SMP" "!^.*$!https://aliased.example.test/smp!" .`)

	r := newTestResolver(t, zone)
	u, found, err := r.Resolve(context.Background(), registry.VariantPeppol, p, testZone)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://aliased.example.test/smp", u.String())
}

func TestResolveCNAMELoop(t *testing.T) {
	zone := newFakeZone()
	zone.add(t, `a.`+testZone+` 60 IN CNAME b.`+testZone)
	zone.add(t, `b.`+testZone+` 60 IN CNAME a.`+testZone)

	r := newTestResolver(t, zone)
	_, err := r.LookupNAPTR(context.Background(), "a."+testZone)
	assert.ErrorIs(t, err, ErrCNAMELoop)
}

func TestResolveTruncatedRetriesOverTCP(t *testing.T) {
	zone := newFakeZone()
	p := testParticipant(t)
	name := PeppolNAPTR{}.DNSName(p, testZone)
	zone.add(t, name+` 60 IN NAPTR 100 10 "U" "Meta:SMP" "!^.*$!https://smp.example.test!" .`)
	zone.truncate[strings.ToLower(name)] = true

	r := newTestResolver(t, zone)
	u, found, err := r.Resolve(context.Background(), registry.VariantPeppol, p, testZone)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "smp.example.test", u.Host)
	assert.Equal(t, 2, zone.queryCount())
}

func TestResolveBDXL(t *testing.T) {
	zone := newFakeZone()
	p := mustParticipant(t, identifier.BDXR2, "urn:oasis:names:tc:ebcore:partyid-type:iso6523:0088", "7315458756324")
	name := BDXL{}.DNSName(p, testZone)
	zone.add(t, name+` 60 IN NAPTR 100 10 "U" "Meta:SMP" "!^.*$!https://v1.example.test!" .`)
	zone.add(t, name+` 60 IN NAPTR 200 10 "U" "oasis-bdxr-smp-2" "!^.*$!https://v2.example.test!" .`)

	r := newTestResolver(t, zone)

	u, found, err := r.Resolve(context.Background(), registry.VariantBDXR2, p, testZone)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2.example.test", u.Host)

	u, found, err = r.Resolve(context.Background(), registry.VariantBDXR1, p, testZone)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1.example.test", u.Host)
}

func TestResolveRegistryLegacyCNAME(t *testing.T) {
	zone := newFakeZone()
	p := testParticipant(t)
	name := LegacyCNAME{}.DNSName(p, testZone)
	zone.add(t, name+` 60 IN A 192.0.2.10`)

	r := newTestResolver(t, zone)
	cfg := registry.Config{ID: "legacy", DNSZone: testZone, Variant: registry.VariantPeppol, Strategy: StrategyLegacyCNAME}

	u, found, err := r.ResolveRegistry(context.Background(), cfg, p)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, strings.TrimSuffix(name, "."), u.Host)

	other := mustParticipant(t, identifier.Peppol, "iso6523-actorid-upis", "0208:999")
	_, found, err = r.ResolveRegistry(context.Background(), cfg, other)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestResolveRegistryUnknownStrategy(t *testing.T) {
	r := NewResolver(ResolverConfig{DNSServer: "127.0.0.1:1"})
	cfg := registry.Config{ID: "x", DNSZone: testZone, Variant: registry.VariantPeppol, Strategy: "srv"}
	_, _, err := r.ResolveRegistry(context.Background(), cfg, testParticipant(t))
	assert.Error(t, err)
}

type stubStrategy struct{ calls int }

func (s *stubStrategy) Name() string { return "stub" }
func (s *stubStrategy) DNSName(p identifier.Participant, zone string) string {
	return joinName("stub", zone)
}
func (s *stubStrategy) Resolve(ctx context.Context, q Querier, p identifier.Participant, zone string) (*url.URL, error) {
	s.calls++
	return nil, nil
}

func TestResolverStrategyOverride(t *testing.T) {
	stub := &stubStrategy{}
	r := NewResolver(ResolverConfig{
		DNSServer:  "127.0.0.1:1",
		Strategies: map[registry.Variant]Strategy{registry.VariantBDXR1: stub},
	})

	assert.Equal(t, stub, r.StrategyFor(registry.VariantBDXR1))
	assert.Equal(t, PeppolNAPTR{}, r.StrategyFor(registry.VariantPeppol))

	_, found, err := r.Resolve(context.Background(), registry.VariantBDXR1, testParticipant(t), testZone)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, stub.calls)
}

func TestResolverServerFromResolvConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("nameserver 192.0.2.53\n"), 0o600))

	r := NewResolver(ResolverConfig{resolvConf: path})
	server, err := r.server()
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.53:53", server)

	r = NewResolver(ResolverConfig{DNSServer: "192.0.2.1"})
	server, err = r.server()
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1:53", server)

	r = NewResolver(ResolverConfig{resolvConf: filepath.Join(t.TempDir(), "missing")})
	_, _, err = r.Resolve(context.Background(), registry.VariantPeppol, testParticipant(t), testZone)
	var dnsErr *DNSError
	assert.True(t, errors.As(err, &dnsErr))
}
