// Command smpquery resolves a participant through the SML/BDXL registries
// and queries its SMP.
//
//	smpquery -participant iso6523-actorid-upis::0208:123456
//	smpquery -registry digittest -participant iso6523-actorid-upis::0208:123456 \
//	    -doctype busdox-docid-qns::urn:oasis:names:specification:ubl:schema:xsd:Invoice-2::Invoice##...
//
// Without -doctype the document types of the participant are listed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/sirosfoundation/go-smp/internal/config"
	"github.com/sirosfoundation/go-smp/pkg/businesscard"
	"github.com/sirosfoundation/go-smp/pkg/discovery"
	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/registry"
	"github.com/sirosfoundation/go-smp/pkg/smpquery"
)

// Exit codes
const (
	exitOK            = 0
	exitFailure       = 1
	exitInvalidInput  = 2
	exitNotRegistered = 3 // also when the SMP has nothing for the query
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, newResolver)
	stop()
	os.Exit(code)
}

func newResolver(cfg discovery.ResolverConfig) smpquery.EndpointResolver {
	return discovery.NewResolver(cfg)
}

// output is printed as JSON on success
type output struct {
	QueryID         string                          `json:"queryID"`
	Registry        string                          `json:"registry"`
	SMP             string                          `json:"smp"`
	ServiceGroup    *smpquery.ServiceListing        `json:"serviceGroup,omitempty"`
	ServiceMetadata *smpquery.ServiceMetadataResult `json:"serviceMetadata,omitempty"`
	BusinessCard    *businesscard.BusinessCard      `json:"businessCard,omitempty"`
}

type options struct {
	configPath   string
	registryID   string
	participant  string
	docType      string
	businessCard bool
	noXSD        bool
	noVerify     bool
	debug        bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("smpquery", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.registryID, "registry", registry.AutoDetectID, "registry ID or auto-detect")
	fs.StringVar(&o.participant, "participant", "", "participant identifier as scheme::value")
	fs.StringVar(&o.docType, "doctype", "", "document type identifier as scheme::value; lists document types when empty")
	fs.BoolVar(&o.businessCard, "businesscard", false, "also fetch the business card")
	fs.BoolVar(&o.noXSD, "no-xsd", false, "disable schema validation of SMP responses")
	fs.BoolVar(&o.noVerify, "no-verify", false, "disable signature verification of service metadata")
	fs.BoolVar(&o.debug, "debug", false, "show technical error details")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.participant == "" {
		return nil, errors.New("-participant is required")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, resolver func(discovery.ResolverConfig) smpquery.EndpointResolver) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitInvalidInput
	}

	cfg := config.Default()
	if o.configPath != "" {
		if cfg, err = config.Load(o.configPath); err != nil {
			fmt.Fprintln(stderr, err)
			return exitInvalidInput
		}
	}
	debug := o.debug || cfg.Debug
	if o.businessCard {
		cfg.Query.BusinessCard = true
	}

	logger := cfg.NewLogger(stderr)
	catalog, err := cfg.Catalog()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalidInput
	}
	trust, err := cfg.SignatureTrust()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalidInput
	}

	var (
		exceptions []error
		hooks      = smpquery.Hooks{
			OnException:     func(err error) { exceptions = append(exceptions, err) },
			OnDuplicateHref: func(c string) { logger.Debug("duplicate service href", "href", c) },
			Feedback:        smpquery.LogFeedback(logger),
		}
	)

	builder := smpquery.NewBuilder(catalog, resolver(cfg.ResolverConfig(logger)), smpquery.BuilderConfig{
		Logger:        logger,
		ParallelProbe: cfg.Query.ParallelProbe,
	})
	scheme, value := identifier.SplitURI(o.participant)
	qc, err := builder.Build(ctx, o.registryID, scheme, value)
	if err != nil {
		fmt.Fprintln(stderr, smpquery.Describe(err, debug))
		switch smpquery.Classify(err) {
		case smpquery.KindInvalidIdentifier, smpquery.KindUnknownRegistry:
			return exitInvalidInput
		case smpquery.KindNotRegistered:
			return exitNotRegistered
		}
		return exitFailure
	}

	opts := smpquery.QueryOptions{
		ValidateSchema:  *cfg.Query.XMLSchemaValidation && !o.noXSD,
		VerifySignature: *cfg.Query.VerifySignature && !o.noVerify,
	}
	dispatcher := smpquery.NewDispatcher(smpquery.DispatcherConfig{
		UserAgent:      cfg.HTTP.UserAgent,
		ModifySettings: cfg.ModifySettings,
		SignatureTrust: trust,
		Hooks:          hooks,
		Logger:         logger,
	})

	out := output{QueryID: qc.ID(), Registry: qc.Registry().ID, SMP: qc.Endpoint()}
	if o.docType == "" {
		out.ServiceGroup = dispatcher.ListDocumentTypes(ctx, qc, opts)
	} else {
		docType, err := qc.Registry().Family.ParseDocumentType(o.docType)
		if err != nil {
			fmt.Fprintln(stderr, smpquery.Describe(fmt.Errorf("%w: %w", smpquery.ErrInvalidIdentifier, err), debug))
			return exitInvalidInput
		}
		out.ServiceMetadata = dispatcher.GetServiceMetadata(ctx, qc, docType, opts)
	}

	if out.ServiceGroup == nil && out.ServiceMetadata == nil {
		if len(exceptions) > 0 {
			fmt.Fprintln(stderr, smpquery.Describe(exceptions[0], debug))
			return exitFailure
		}
		if o.docType == "" {
			fmt.Fprintln(stderr, "No document types found for the participant.")
		} else {
			fmt.Fprintln(stderr, "No service metadata found for the document type.")
		}
		return exitNotRegistered
	}

	if cfg.Query.BusinessCard {
		fetcher := businesscard.NewFetcher(businesscard.FetcherConfig{
			UserAgent:      cfg.HTTP.UserAgent,
			ModifySettings: cfg.ModifySettings,
			Hooks:          hooks,
			Logger:         logger,
		})
		out.BusinessCard = fetcher.Fetch(ctx, qc)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("writing output", slog.Any("error", err))
		return exitFailure
	}
	return exitOK
}
