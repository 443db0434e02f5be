// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport implements the HTTP(S) client used for SMP and business
card lookups.

Each query builds its own Client from a Settings value. Settings start from
DefaultSettings and may be changed by a caller supplied modifier before the
client is built.

# TLS Configuration

TLS 1.3 is preferred with fallback to TLS 1.2. For TLS 1.2, the following
cipher suites are used:
  - TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
  - TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256

SMP servers are frequently reachable only with self-issued certificates, so
TrustAllCertificates can switch off server certificate validation per query.

# Redirects

Redirects are not followed by default. A 3xx answer is returned to the
caller as a Response so the protocol layer can decide what it means.

	client := transport.NewClient(transport.Settings{
	    UserAgent: "my-tool/1.0",
	    Timeout:   10 * time.Second,
	})

	resp, err := client.Get(ctx, "https://smp.example.com/iso6523-actorid-upis%3A%3A0208%3A123456", "application/xml")

# References

  - TLS 1.3 RFC 8446: https://datatracker.ietf.org/doc/html/rfc8446
  - TLS 1.2 RFC 5246: https://datatracker.ietf.org/doc/html/rfc5246
*/
package transport
