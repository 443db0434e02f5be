package identifier

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Family is an identifier scheme family. It decides which scheme/value
// combinations are valid.
type Family string

const (
	// Peppol follows the Peppol Policy for use of Identifiers
	Peppol Family = "peppol"
	// BDXR1 follows OASIS BDXR SMP 1.0
	BDXR1 Family = "bdxr1"
	// BDXR2 follows OASIS BDXR SMP 2.0
	BDXR2 Family = "bdxr2"
	// Simple accepts any non-empty value
	Simple Family = "simple"
)

// Well-known Peppol schemes
const (
	PeppolParticipantScheme      = "iso6523-actorid-upis"
	PeppolDocTypeSchemeBusdox    = "busdox-docid-qns"
	PeppolDocTypeSchemeWildcard  = "peppol-doctype-wildcard"
	PeppolProcessScheme          = "cenbii-procid-ubl"
	PeppolProcessSchemeTransport = "busdox-procid-transport"
)

const (
	peppolMaxParticipantSchemeLen = 25
	peppolMaxParticipantValueLen  = 50
	peppolMaxDocTypeValueLen      = 500
	peppolMaxProcessValueLen      = 200
)

var (
	peppolParticipantSchemePattern = regexp.MustCompile(`^[a-z0-9]+-[a-z0-9]+-[a-z0-9]+$`)
	iso6523ValuePattern            = regexp.MustCompile(`^[0-9]{4}:\S+$`)
)

// Families lists all supported families.
func Families() []Family {
	return []Family{Peppol, BDXR1, BDXR2, Simple}
}

// ParseFamily resolves a family name, case-insensitively.
func ParseFamily(name string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(name)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	return f, nil
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	switch f {
	case Peppol, BDXR1, BDXR2, Simple:
		return true
	}
	return false
}

// NewParticipant creates a participant identifier valid for this family.
func (f Family) NewParticipant(scheme, value string) (Participant, error) {
	id, err := f.validate(KindParticipant, scheme, value)
	if err != nil {
		return Participant{}, err
	}
	return Participant{id}, nil
}

// NewDocumentType creates a document type identifier valid for this family.
func (f Family) NewDocumentType(scheme, value string) (DocumentType, error) {
	id, err := f.validate(KindDocumentType, scheme, value)
	if err != nil {
		return DocumentType{}, err
	}
	return DocumentType{id}, nil
}

// NewProcess creates a process identifier valid for this family.
func (f Family) NewProcess(scheme, value string) (Process, error) {
	id, err := f.validate(KindProcess, scheme, value)
	if err != nil {
		return Process{}, err
	}
	return Process{id}, nil
}

// ParseParticipant parses the URI form "scheme::value".
func (f Family) ParseParticipant(uri string) (Participant, error) {
	scheme, value := SplitURI(uri)
	return f.NewParticipant(scheme, value)
}

// ParseDocumentType parses the URI form "scheme::value".
func (f Family) ParseDocumentType(uri string) (DocumentType, error) {
	scheme, value := SplitURI(uri)
	return f.NewDocumentType(scheme, value)
}

// ParseProcess parses the URI form "scheme::value".
func (f Family) ParseProcess(uri string) (Process, error) {
	scheme, value := SplitURI(uri)
	return f.NewProcess(scheme, value)
}

func (f Family) validate(kind Kind, scheme, value string) (ID, error) {
	invalid := func(reason string) (ID, error) {
		return ID{}, fmt.Errorf("%w: %s %q for family %s: %s",
			ErrInvalidIdentifier, kind, ID{scheme, value}.URIEncoded(), f, reason)
	}

	if !f.Valid() {
		return ID{}, fmt.Errorf("%w: %q", ErrUnknownFamily, string(f))
	}
	if value == "" {
		return invalid("empty value")
	}
	if strings.Contains(scheme, Separator) {
		return invalid("scheme contains '::'")
	}
	if hasControl(scheme) || hasControl(value) {
		return invalid("control characters")
	}

	switch f {
	case Peppol:
		if reason := peppolRule(kind, scheme, value); reason != "" {
			return invalid(reason)
		}
	case BDXR1, BDXR2:
		if scheme != "" && strings.TrimSpace(scheme) != scheme {
			return invalid("scheme has surrounding whitespace")
		}
		if strings.ContainsFunc(scheme, unicode.IsSpace) {
			return invalid("scheme contains whitespace")
		}
	case Simple:
	}

	return ID{scheme: scheme, value: value}, nil
}

func peppolRule(kind Kind, scheme, value string) string {
	if scheme == "" {
		return "scheme is mandatory"
	}

	switch kind {
	case KindParticipant:
		lower := strings.ToLower(scheme)
		if len(scheme) > peppolMaxParticipantSchemeLen || !peppolParticipantSchemePattern.MatchString(lower) {
			return "participant scheme does not match the Peppol scheme pattern"
		}
		if len(value) > peppolMaxParticipantValueLen {
			return fmt.Sprintf("value exceeds %d characters", peppolMaxParticipantValueLen)
		}
		if !isPrintableASCII(value) {
			return "value must be printable US-ASCII without whitespace"
		}
		if lower == PeppolParticipantScheme && !iso6523ValuePattern.MatchString(value) {
			return "value must start with a four digit ICD followed by ':'"
		}
	case KindDocumentType:
		if scheme != PeppolDocTypeSchemeBusdox && scheme != PeppolDocTypeSchemeWildcard {
			return "unsupported document type scheme"
		}
		if len(value) > peppolMaxDocTypeValueLen {
			return fmt.Sprintf("value exceeds %d characters", peppolMaxDocTypeValueLen)
		}
	case KindProcess:
		if scheme != PeppolProcessScheme && scheme != PeppolProcessSchemeTransport {
			return "unsupported process scheme"
		}
		if len(value) > peppolMaxProcessValueLen {
			return fmt.Sprintf("value exceeds %d characters", peppolMaxProcessValueLen)
		}
	}
	return ""
}

func hasControl(s string) bool {
	return strings.ContainsFunc(s, unicode.IsControl)
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= 0x20 || s[i] >= 0x7f {
			return false
		}
	}
	return true
}
