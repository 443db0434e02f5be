// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package smpquery resolves participants and queries their SMP in whichever
protocol variant their registry speaks.

A query runs in two steps. The Builder validates the participant identifier
and finds the SMP through DNS, either in one registry or by probing the whole
catalog in priority order (auto-detect). The result is a QueryContext. The
Dispatcher then lists the participant's document types or fetches the
service metadata of one document type, and normalizes the answer of any of
the three variants into a ServiceMetadataResult.

	builder := smpquery.NewBuilder(catalog, resolver, smpquery.BuilderConfig{})
	qc, err := builder.Build(ctx, registry.AutoDetectID, "iso6523-actorid-upis", "0208:123456")
	if err != nil {
	    return err // invalid identifier, unknown registry or not registered
	}

	d := smpquery.NewDispatcher(smpquery.DispatcherConfig{
	    Hooks: smpquery.Hooks{OnException: func(err error) { log.Println(err) }},
	})
	listing := d.ListDocumentTypes(ctx, qc, smpquery.DefaultQueryOptions())

# Failures

Only the Builder returns errors. The Dispatcher returns nil when there is
nothing to show: a 404 from the SMP is a normal answer, every other failure
is also passed to Hooks.OnException. Classify maps any error to a Kind and
Describe renders it for end users.
*/
package smpquery
