// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package businesscard fetches and parses Peppol Directory business cards
published by SMPs.

An SMP that takes part in the Peppol Directory serves the business card of
a participant at

	{smp}/businesscard/{scheme}::{value}

The three published generations of the format (2016-01, 2016-11 and
2018-06) are accepted. Elements are matched by local name, so the
namespace only has to belong to the Peppol Directory.

	f := businesscard.NewFetcher(businesscard.FetcherConfig{Hooks: hooks})
	if card := f.Fetch(ctx, qc); card != nil {
	    fmt.Println(card.Entities[0].Names[0].Name)
	}

Fetch never returns an error. A missing card yields nil and a warning
through Hooks.Feedback; other failures are passed to Hooks.OnException. A
card that cannot be parsed is reported once as an error level feedback
message carrying an *UnparsableDocumentError.
*/
package businesscard
