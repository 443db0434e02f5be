package smpquery

import (
	"github.com/sirosfoundation/go-smp/pkg/registry"
	"github.com/sirosfoundation/go-smp/pkg/smpclient"
)

// ExtensionHooks receive SMP extensions per protocol variant. The extensions
// are passed on exactly as received.
type ExtensionHooks struct {
	Peppol func(exts []smpclient.Extension)
	BDXR1  func(exts []smpclient.Extension)
	BDXR2  func(exts []smpclient.Extension)
}

// Hooks are called synchronously while a query runs. Every field is
// optional.
type Hooks struct {
	// OnDuplicateHref receives the canonical form of a href seen twice
	OnDuplicateHref func(canonical string)

	// Extensions receive SMP extension blocks
	Extensions ExtensionHooks

	// OnException receives failures that make a query return nothing
	OnException func(err error)

	// Feedback receives messages for the end user
	Feedback FeedbackFunc

	// OnClient is called with every SMP client before it is used
	OnClient func(c *smpclient.Client)

	// OnResponse observes raw SMP responses
	OnResponse smpclient.ResponseHook
}

func (h Hooks) duplicate(canonical string) {
	if h.OnDuplicateHref != nil {
		h.OnDuplicateHref(canonical)
	}
}

// ReportException passes err to OnException if set.
func (h Hooks) ReportException(err error) {
	if h.OnException != nil {
		h.OnException(err)
	}
}

// Notify passes a message to Feedback if set.
func (h Hooks) Notify(level Level, msg string, err error) {
	if h.Feedback != nil {
		h.Feedback(level, msg, err)
	}
}

func (h Hooks) extensions(v registry.Variant, exts []smpclient.Extension) {
	if len(exts) == 0 {
		return
	}
	var fn func([]smpclient.Extension)
	switch v {
	case registry.VariantPeppol:
		fn = h.Extensions.Peppol
	case registry.VariantBDXR1:
		fn = h.Extensions.BDXR1
	case registry.VariantBDXR2:
		fn = h.Extensions.BDXR2
	}
	if fn != nil {
		fn(exts)
	}
}
