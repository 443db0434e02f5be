package businesscard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// NamespacePrefix is shared by the namespaces of all business card
// generations.
const NamespacePrefix = "http://www.peppol.eu/schema/pd/businesscard/"

// Known business card namespaces
const (
	NamespaceV1 = NamespacePrefix + "20160112/"
	NamespaceV2 = NamespacePrefix + "20161123/"
	NamespaceV3 = NamespacePrefix + "20180621/"
)

// Identifier is a scheme and value pair
type Identifier struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// Name is an entity name, optionally in a given language
type Name struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// Contact is a contact point of an entity
type Contact struct {
	Type  string `json:"type,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phoneNumber,omitempty"`
	Email string `json:"email,omitempty"`
}

// Entity is one business entity of a card
type Entity struct {
	Names                   []Name       `json:"names"`
	CountryCode             string       `json:"countryCode"`
	GeographicalInformation string       `json:"geographicalInformation,omitempty"`
	Identifiers             []Identifier `json:"identifiers,omitempty"`
	WebsiteURIs             []string     `json:"websiteURIs,omitempty"`
	Contacts                []Contact    `json:"contacts,omitempty"`
	AdditionalInformation   string       `json:"additionalInformation,omitempty"`
	RegistrationDate        string       `json:"registrationDate,omitempty"`
}

// BusinessCard is a parsed Peppol Directory business card
type BusinessCard struct {
	// Namespace is the namespace of the parsed document
	Namespace   string     `json:"-"`
	Participant Identifier `json:"participant"`
	Entities    []Entity   `json:"entities"`
}

var errNotBusinessCard = errors.New("document is not a business card")

// Parse parses a business card of any known generation.
func Parse(data []byte) (*BusinessCard, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", errNotBusinessCard)
	}
	ns := root.NamespaceURI()
	if root.Tag != "BusinessCard" || !strings.HasPrefix(ns, NamespacePrefix) {
		return nil, fmt.Errorf("%w: root element {%s}%s", errNotBusinessCard, ns, root.Tag)
	}

	card := &BusinessCard{Namespace: ns, Entities: []Entity{}}

	pid := child(root, "ParticipantIdentifier")
	if pid == nil {
		return nil, fmt.Errorf("%w: missing ParticipantIdentifier", errNotBusinessCard)
	}
	card.Participant = identifierOf(pid)
	if card.Participant.Value == "" {
		return nil, fmt.Errorf("%w: empty ParticipantIdentifier", errNotBusinessCard)
	}

	for _, el := range root.ChildElements() {
		if el.Tag != "BusinessEntity" {
			continue
		}
		e, err := parseEntity(el)
		if err != nil {
			return nil, err
		}
		card.Entities = append(card.Entities, e)
	}
	return card, nil
}

func parseEntity(el *etree.Element) (Entity, error) {
	// the 2016-01 generation carries the country as an attribute
	e := Entity{CountryCode: el.SelectAttrValue("countryCode", "")}

	for _, c := range el.ChildElements() {
		text := strings.TrimSpace(c.Text())
		switch c.Tag {
		case "Name":
			e.Names = append(e.Names, Name{Name: text, Language: c.SelectAttrValue("language", "")})
		case "CountryCode":
			e.CountryCode = text
		case "GeographicalInformation":
			e.GeographicalInformation = text
		case "Identifier":
			e.Identifiers = append(e.Identifiers, identifierOf(c))
		case "WebsiteURI":
			e.WebsiteURIs = append(e.WebsiteURIs, text)
		case "Contact":
			e.Contacts = append(e.Contacts, Contact{
				Type:  c.SelectAttrValue("type", ""),
				Name:  c.SelectAttrValue("name", ""),
				Phone: firstAttr(c, "phonenumber", "phone"),
				Email: c.SelectAttrValue("email", ""),
			})
		case "AdditionalInformation":
			e.AdditionalInformation = text
		case "RegistrationDate":
			e.RegistrationDate = text
		}
	}

	if len(e.Names) == 0 {
		return Entity{}, fmt.Errorf("%w: BusinessEntity without Name", errNotBusinessCard)
	}
	return e, nil
}

func identifierOf(el *etree.Element) Identifier {
	return Identifier{
		Scheme: el.SelectAttrValue("scheme", ""),
		Value:  strings.TrimSpace(el.Text()),
	}
}

func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func firstAttr(el *etree.Element, keys ...string) string {
	for _, k := range keys {
		if v := el.SelectAttrValue(k, ""); v != "" {
			return v
		}
	}
	return ""
}
