package smpquery

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
)

const servicesSegment = "/services/"

// ServiceReference is one entry of a ServiceListing
type ServiceReference struct {
	// Canonical is the href with percent-encoding decoded once
	Canonical string `json:"-"`

	// Href is the href exactly as the SMP returned it
	Href string `json:"href"`

	// DocumentType is parsed from the path after /services/; zero when the
	// segment is not a valid identifier
	DocumentType identifier.DocumentType `json:"-"`
}

// ServiceListing maps canonical hrefs to the hrefs returned by an SMP, in
// the order they were first seen. Servers are inconsistent about
// percent-encoding, so the canonical form is the key while the original is
// kept for requests back to the same server.
type ServiceListing struct {
	participant identifier.Participant
	family      identifier.Family
	onDuplicate func(canonical string)

	order []string
	refs  map[string]ServiceReference

	queryTime time.Time
	duration  time.Duration
}

// NewServiceListing creates an empty listing. Document types are parsed with
// family; onDuplicate may be nil.
func NewServiceListing(p identifier.Participant, family identifier.Family, onDuplicate func(canonical string)) *ServiceListing {
	return &ServiceListing{
		participant: p,
		family:      family,
		onDuplicate: onDuplicate,
		refs:        map[string]ServiceReference{},
	}
}

// Add inserts href. A href whose canonical form is already present is
// reported to the duplicate callback, keeps its position and replaces the
// stored original href; Add then returns false.
func (l *ServiceListing) Add(href string) bool {
	canonical := identifier.PercentDecode(href)
	if ref, ok := l.refs[canonical]; ok {
		if l.onDuplicate != nil {
			l.onDuplicate(canonical)
		}
		ref.Href = href
		l.refs[canonical] = ref
		return false
	}
	l.order = append(l.order, canonical)
	l.refs[canonical] = ServiceReference{
		Canonical:    canonical,
		Href:         href,
		DocumentType: l.documentType(canonical),
	}
	return true
}

func (l *ServiceListing) documentType(canonical string) identifier.DocumentType {
	idx := strings.LastIndex(canonical, servicesSegment)
	if idx < 0 {
		return identifier.DocumentType{}
	}
	scheme, value := identifier.SplitURI(canonical[idx+len(servicesSegment):])
	d, err := l.family.NewDocumentType(scheme, value)
	if err != nil {
		return identifier.DocumentType{}
	}
	return d
}

// Participant returns the participant the listing belongs to
func (l *ServiceListing) Participant() identifier.Participant { return l.participant }

// Len returns the number of distinct entries
func (l *ServiceListing) Len() int { return len(l.order) }

// Get returns the original href for a canonical href.
func (l *ServiceListing) Get(canonical string) (string, bool) {
	ref, ok := l.refs[canonical]
	return ref.Href, ok
}

// Canonical returns the canonical hrefs in insertion order.
func (l *ServiceListing) Canonical() []string {
	return append([]string(nil), l.order...)
}

// References returns all entries in insertion order.
func (l *ServiceListing) References() []ServiceReference {
	out := make([]ServiceReference, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, l.refs[k])
	}
	return out
}

// DocumentTypes returns the parseable document types in insertion order.
func (l *ServiceListing) DocumentTypes() []identifier.DocumentType {
	var out []identifier.DocumentType
	for _, k := range l.order {
		if d := l.refs[k].DocumentType; !d.IsZero() {
			out = append(out, d)
		}
	}
	return out
}

// WithTiming records when the query started and how long it took.
func (l *ServiceListing) WithTiming(start time.Time, d time.Duration) *ServiceListing {
	l.queryTime = start
	l.duration = d
	return l
}

type listingJSON struct {
	ParticipantID       string       `json:"participantID"`
	URLs                []listingURL `json:"urls"`
	QueryDateTime       *time.Time   `json:"queryDateTime,omitempty"`
	QueryDurationMillis *int64       `json:"queryDurationMillis,omitempty"`
}

type listingURL struct {
	Href           string `json:"href"`
	DocumentTypeID string `json:"documentTypeID,omitempty"`
}

// MarshalJSON renders the listing with one entry per distinct href.
func (l *ServiceListing) MarshalJSON() ([]byte, error) {
	out := listingJSON{
		ParticipantID: l.participant.URIEncoded(),
		URLs:          make([]listingURL, 0, len(l.order)),
	}
	for _, ref := range l.References() {
		u := listingURL{Href: ref.Href}
		if !ref.DocumentType.IsZero() {
			u.DocumentTypeID = ref.DocumentType.URIEncoded()
		}
		out.URLs = append(out.URLs, u)
	}
	if !l.queryTime.IsZero() {
		t := l.queryTime.UTC()
		ms := l.duration.Milliseconds()
		out.QueryDateTime = &t
		out.QueryDurationMillis = &ms
	}
	return json.Marshal(out)
}
