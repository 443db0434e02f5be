package identifier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Common errors
var (
	// ErrInvalidIdentifier is returned when a scheme/value pair is not valid for a family
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrUnknownFamily is returned when a family name cannot be resolved
	ErrUnknownFamily = errors.New("unknown identifier family")
)

// Separator splits scheme and value in the URI form of an identifier.
const Separator = "::"

// Kind distinguishes the three identifier taxonomies.
type Kind int

const (
	// KindParticipant identifies a network participant
	KindParticipant Kind = iota
	// KindDocumentType identifies a document type
	KindDocumentType
	// KindProcess identifies a business process
	KindProcess
)

func (k Kind) String() string {
	switch k {
	case KindParticipant:
		return "participant"
	case KindDocumentType:
		return "document type"
	case KindProcess:
		return "process"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ID is the (scheme, value) pair shared by all identifier kinds.
type ID struct {
	scheme string
	value  string
}

// Scheme returns the identifier scheme; may be empty.
func (i ID) Scheme() string { return i.scheme }

// Value returns the identifier value.
func (i ID) Value() string { return i.value }

// HasScheme reports whether a scheme is present.
func (i ID) HasScheme() bool { return i.scheme != "" }

// IsZero reports whether the identifier was never constructed.
func (i ID) IsZero() bool { return i.value == "" }

// URIEncoded returns the URI form "scheme::value". The separator is kept
// for an empty scheme ("::value") so that values containing "::" survive
// SplitURI.
func (i ID) URIEncoded() string {
	return i.scheme + Separator + i.value
}

// URIPercentEncoded returns the URI form with every byte outside the
// RFC 3986 unreserved set percent-encoded.
func (i ID) URIPercentEncoded() string {
	return PercentEncode(i.URIEncoded())
}

// String implements fmt.Stringer.
func (i ID) String() string { return i.URIEncoded() }

// Equal compares scheme and value exactly.
func (i ID) Equal(o ID) bool { return i.scheme == o.scheme && i.value == o.value }

// Participant is a participant identifier.
type Participant struct{ ID }

// DocumentType is a document type identifier.
type DocumentType struct{ ID }

// Process is a process identifier.
type Process struct{ ID }

// SplitURI splits a URI form identifier at the first "::". Document type
// values commonly contain "::" themselves, so only the first occurrence counts.
func SplitURI(uri string) (scheme, value string) {
	if idx := strings.Index(uri, Separator); idx >= 0 {
		return uri[:idx], uri[idx+len(Separator):]
	}
	return "", uri
}

// PercentEncode escapes every byte outside A-Z a-z 0-9 - . _ ~
func PercentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// PercentDecode decodes %XX sequences once. Input that is not validly
// encoded is returned unchanged. A '+' is kept as is.
func PercentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
