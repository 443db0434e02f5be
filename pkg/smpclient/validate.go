package smpclient

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// docKind describes one SMP document type and the structure it must have.
// The checks cover the elements the normalizer relies on, not the full XSD.
type docKind struct {
	name      string
	root      string
	namespace string
	signed    bool
	check     func(root *etree.Element) string
}

var (
	kindPeppolServiceGroup = docKind{
		name: "Peppol ServiceGroup", root: "ServiceGroup", namespace: NamespacePeppolSMP,
		check: checkServiceGroupV1,
	}
	kindPeppolServiceMetadata = docKind{
		name: "Peppol SignedServiceMetadata", root: "SignedServiceMetadata", namespace: NamespacePeppolSMP,
		signed: true,
		check:  func(root *etree.Element) string { return checkSignedServiceMetadataV1(root, "EndpointReference", "Address") },
	}
	kindBDXR1ServiceGroup = docKind{
		name: "BDXR1 ServiceGroup", root: "ServiceGroup", namespace: NamespaceBDXR1,
		check: checkServiceGroupV1,
	}
	kindBDXR1ServiceMetadata = docKind{
		name: "BDXR1 SignedServiceMetadata", root: "SignedServiceMetadata", namespace: NamespaceBDXR1,
		signed: true,
		check:  func(root *etree.Element) string { return checkSignedServiceMetadataV1(root, "EndpointURI") },
	}
	kindBDXR2ServiceGroup = docKind{
		name: "BDXR2 ServiceGroup", root: "ServiceGroup", namespace: NamespaceBDXR2ServiceGroup,
		check: checkServiceGroupV2,
	}
	kindBDXR2ServiceMetadata = docKind{
		name: "BDXR2 ServiceMetadata", root: "ServiceMetadata", namespace: NamespaceBDXR2ServiceMetadata,
		signed: true,
		check:  checkServiceMetadataV2,
	}
)

// validate checks the root element and the required structure of body.
func (k docKind) validate(url string, body []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return &SchemaError{URL: url, Document: k.name, Reason: "malformed XML", Err: err}
	}

	root := doc.Root()
	if root == nil {
		return &SchemaError{URL: url, Document: k.name, Reason: "empty document"}
	}
	if root.Tag != k.root || root.NamespaceURI() != k.namespace {
		return &SchemaError{URL: url, Document: k.name,
			Reason: fmt.Sprintf("unexpected root element {%s}%s", root.NamespaceURI(), root.Tag)}
	}
	if reason := k.check(root); reason != "" {
		return &SchemaError{URL: url, Document: k.name, Reason: reason}
	}
	return nil
}

// child walks down the first children with the given local names.
func child(el *etree.Element, path ...string) *etree.Element {
	for _, name := range path {
		if el == nil {
			return nil
		}
		var next *etree.Element
		for _, c := range el.ChildElements() {
			if c.Tag == name {
				next = c
				break
			}
		}
		el = next
	}
	return el
}

// children returns all direct children with the given local name.
func children(el *etree.Element, name string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == name {
			out = append(out, c)
		}
	}
	return out
}

func hasText(el *etree.Element) bool {
	return el != nil && strings.TrimSpace(el.Text()) != ""
}

func checkServiceGroupV1(root *etree.Element) string {
	if !hasText(child(root, "ParticipantIdentifier")) {
		return "missing ParticipantIdentifier"
	}
	coll := child(root, "ServiceMetadataReferenceCollection")
	if coll == nil {
		return "missing ServiceMetadataReferenceCollection"
	}
	for _, ref := range children(coll, "ServiceMetadataReference") {
		if ref.SelectAttrValue("href", "") == "" {
			return "ServiceMetadataReference without href"
		}
	}
	return ""
}

func checkSignedServiceMetadataV1(root *etree.Element, addressPath ...string) string {
	sm := child(root, "ServiceMetadata")
	if sm == nil {
		return "missing ServiceMetadata"
	}

	si := child(sm, "ServiceInformation")
	redirect := child(sm, "Redirect")
	switch {
	case si == nil && redirect == nil:
		return "ServiceMetadata has neither ServiceInformation nor Redirect"
	case si != nil && redirect != nil:
		return "ServiceMetadata has both ServiceInformation and Redirect"
	case redirect != nil:
		if redirect.SelectAttrValue("href", "") == "" {
			return "Redirect without href"
		}
		return ""
	}

	if !hasText(child(si, "ParticipantIdentifier")) {
		return "missing ParticipantIdentifier"
	}
	if !hasText(child(si, "DocumentIdentifier")) {
		return "missing DocumentIdentifier"
	}
	processes := children(child(si, "ProcessList"), "Process")
	if len(processes) == 0 {
		return "ProcessList without Process"
	}
	for _, p := range processes {
		if !hasText(child(p, "ProcessIdentifier")) {
			return "Process without ProcessIdentifier"
		}
		endpoints := children(child(p, "ServiceEndpointList"), "Endpoint")
		if len(endpoints) == 0 {
			return "ServiceEndpointList without Endpoint"
		}
		for _, ep := range endpoints {
			if ep.SelectAttrValue("transportProfile", "") == "" {
				return "Endpoint without transportProfile"
			}
			if !hasText(child(ep, addressPath...)) {
				return "Endpoint without " + strings.Join(addressPath, "/")
			}
		}
	}
	return ""
}

func checkServiceGroupV2(root *etree.Element) string {
	if !hasText(child(root, "SMPVersionID")) {
		return "missing SMPVersionID"
	}
	if !hasText(child(root, "ParticipantID")) {
		return "missing ParticipantID"
	}
	for _, ref := range children(root, "ServiceReference") {
		if !hasText(child(ref, "ID")) {
			return "ServiceReference without ID"
		}
	}
	return ""
}

func checkServiceMetadataV2(root *etree.Element) string {
	if !hasText(child(root, "SMPVersionID")) {
		return "missing SMPVersionID"
	}
	if !hasText(child(root, "ID")) {
		return "missing ID"
	}
	if !hasText(child(root, "ParticipantID")) {
		return "missing ParticipantID"
	}
	pms := children(root, "ProcessMetadata")
	if len(pms) == 0 {
		return "missing ProcessMetadata"
	}
	for _, pm := range pms {
		redirect := child(pm, "Redirect")
		endpoints := children(pm, "Endpoint")
		if redirect == nil && len(endpoints) == 0 {
			return "ProcessMetadata has neither Endpoint nor Redirect"
		}
		if redirect != nil && !hasText(child(redirect, "PublisherURI")) {
			return "Redirect without PublisherURI"
		}
		for _, ep := range endpoints {
			if !hasText(child(ep, "TransportProfileID")) {
				return "Endpoint without TransportProfileID"
			}
			if !hasText(child(ep, "AddressURI")) {
				return "Endpoint without AddressURI"
			}
		}
	}
	return ""
}
