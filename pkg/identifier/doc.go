// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

// Package identifier implements participant, document type and process
// identifiers as used by SMP (Service Metadata Publisher) networks.
//
// An identifier is a (scheme, value) pair. Its URI form is
//
//	<scheme>::<value>
//
// or just <value> when the scheme is empty. Identifiers are created through a
// [Family] which enforces the rules of one identifier scheme family:
//
//   - [Peppol]: Peppol Policy for use of Identifiers (iso6523-actorid-upis,
//     busdox-docid-qns, cenbii-procid-ubl, ...)
//   - [BDXR1], [BDXR2]: OASIS BDXR SMP 1.0 and 2.0 (scheme optional)
//   - [Simple]: any non-empty value
//
// Construction fails for invalid combinations, so every identifier value in
// circulation is valid for the family it was created by.
package identifier
