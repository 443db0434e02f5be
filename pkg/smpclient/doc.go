// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package smpclient retrieves documents from a Service Metadata Publisher.

One Client speaks one protocol variant against one SMP base URL:

  - Peppol SMP 1.x: ServiceGroup and SignedServiceMetadata
  - OASIS BDXR SMP 1.0: ServiceGroup and SignedServiceMetadata
  - OASIS BDXR SMP 2.0: ServiceGroup and ServiceMetadata, below /bdxr-smp-2/

Identifiers are put into the URL in their percent-encoded URI form:

	{endpoint}/{participant}
	{endpoint}/{participant}/services/{document type}

# Status Handling

HTTP 200 is decoded. 404, 410 and 204 return an error wrapping ErrNotFound.
A 3xx answer is a ProtocolViolationError on Peppol SMPs and an
HTTPStatusError carrying the Location everywhere else. Network failures are
TransportErrors.

# Validation

With Options.ValidateSchema the document root, namespace and the elements
needed to evaluate the answer are checked before decoding. With
Options.VerifySignature the enveloped XML signature of service metadata is
checked against the certificate in its KeyInfo, optionally chained to
Options.SignatureTrust.

	c, err := smpclient.New(registry.VariantPeppol, "http://B-abc.iso6523-actorid-upis.edelivery.tech.ec.europa.eu", smpclient.Options{
	    VerifySignature: true,
	})
	if err != nil {
	    return err
	}
	sg, err := c.GetPeppolServiceGroup(ctx, participant)
*/
package smpclient
