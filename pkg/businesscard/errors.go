package businesscard

import (
	"fmt"

	"github.com/sirosfoundation/go-smp/pkg/smpquery"
)

// UnparsableDocumentError is a business card that was received but could
// not be parsed. It matches smpquery.ErrUnparsableDocument.
type UnparsableDocumentError struct {
	URL string
	Err error
}

func (e *UnparsableDocumentError) Error() string {
	return fmt.Sprintf("unparsable business card from %s: %v", e.URL, e.Err)
}

func (e *UnparsableDocumentError) Unwrap() []error {
	return []error{smpquery.ErrUnparsableDocument, e.Err}
}
