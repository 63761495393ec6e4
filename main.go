package main

import (
	"context"
	"log"
	"os"

	"f0oster/adaudit/activedirectory"
	"f0oster/adaudit/config"
	"f0oster/adaudit/credentials"
	"f0oster/adaudit/enumeration"
	"f0oster/adaudit/report"
)

func main() {
	report.PrintBanner()

	opts, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	source, err := credentialSource(opts)
	if err != nil {
		log.Fatalf("%v", err)
	}

	opener := func(cred credentials.Credential) (enumeration.Searcher, error) {
		return activedirectory.Open(opts.Endpoint(), opts.Domain, cred)
	}

	engine := enumeration.NewEngine(
		opts.Domain,
		opts.Endpoint(),
		opener,
		source,
		opts.Rotate,
		report.NewConsoleObserver(),
	)

	aggregate, err := engine.Run()
	if err != nil {
		log.Fatalf("%v", err)
	}

	report.PrintSummary(aggregate)

	xlsxPath := opts.Outfile + ".xlsx"
	if err := report.WriteXLSX(aggregate, xlsxPath); err != nil {
		log.Printf("error: %v", err)
	} else {
		log.Printf("Report saved to %s", xlsxPath)
	}

	htmlPath := opts.Outfile + ".html"
	if err := report.WriteHTML(aggregate, htmlPath); err != nil {
		log.Printf("error: %v", err)
	} else {
		log.Printf("Report saved to %s", htmlPath)
	}

	if opts.DatabaseURL != "" {
		persist(opts.DatabaseURL, aggregate)
	}
}

// credentialSource builds the per-query credential selection: a rotator
// over the userfile pool, or the single fixed credential.
func credentialSource(opts *config.Options) (enumeration.Source, error) {
	if opts.Userfile != "" {
		pool, err := credentials.LoadPool(opts.Userfile)
		if err != nil {
			return nil, err
		}
		return credentials.NewRotator(pool)
	}

	cred := credentials.Credential{
		Identifier: opts.Username,
		Secret:     opts.Password,
		Kind:       credentials.KindPassword,
	}
	if opts.Hash != "" {
		cred.Secret = opts.Hash
		cred.Kind = credentials.KindHash
	}
	return credentials.Fixed{Credential: cred}, nil
}

func persist(dsn string, aggregate *enumeration.Aggregate) {
	sink := report.NewSink(context.Background(), dsn)
	if err := sink.Connect(); err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer sink.Close()

	if err := sink.WriteRun(aggregate); err != nil {
		log.Printf("error: %v", err)
		return
	}
	log.Printf("Run %s persisted", aggregate.RunID)
}
