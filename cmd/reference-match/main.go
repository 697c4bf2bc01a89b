// Command reference-match matches canonical entities against the
// financial-reference dataset's name column and writes a verification file
// for the second human review pass. Every candidate goes to review here:
// reference identifiers are join keys, so nothing is trusted unreviewed.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joelkehle/entitymatch/internal/dictionary"
	"github.com/joelkehle/entitymatch/internal/match"
	"github.com/joelkehle/entitymatch/internal/refmatch"
	"github.com/joelkehle/entitymatch/internal/tabular"
	"github.com/joelkehle/entitymatch/internal/telemetry"
)

func main() {
	dictPath := flag.String("dict", "dictionary.db", "canonical dictionary (SQLite)")
	referencePath := flag.String("reference", "", "reference dataset file with a conm column")
	out := flag.String("out", "match_verification.xlsx", "verification output file")
	threshold := flag.Int("fuzzy-threshold", 90, "auto-accept cutoff for fuzzy scores (0-100)")
	floor := flag.Int("reject-floor", 60, "discard fuzzy candidates scoring below this")
	workers := flag.Int("workers", 0, "fuzzy-tier workers (0 = cores-1 capped, 1 = sequential)")
	otlpEndpoint := flag.String("otlp-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP/HTTP trace endpoint (empty disables tracing)")
	flag.Parse()

	if *referencePath == "" {
		log.Fatal("-reference is required")
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, *otlpEndpoint, "reference-match")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer shutdown(ctx)

	store, err := dictionary.OpenStore(*dictPath)
	if err != nil {
		log.Fatalf("open dictionary: %v", err)
	}
	defer store.Close()
	dict, err := store.Load()
	if err != nil {
		log.Fatalf("load dictionary: %v", err)
	}

	refTable, err := tabular.Read(*referencePath)
	if err != nil {
		log.Fatalf("read reference: %v", err)
	}
	ref, err := refmatch.LoadReference(refTable)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d distinct reference names from %s", len(ref.Names), *referencePath)

	cfg := match.DefaultConfig()
	cfg.FuzzyThreshold = *threshold
	cfg.RejectFloor = *floor
	cfg.Workers = *workers

	cands, err := refmatch.MatchEntities(ctx, cfg, dict.Entities(), ref)
	if err != nil {
		log.Fatalf("match: %v", err)
	}
	log.Printf("produced %d verification candidates for %d entities", len(cands), dict.EntityCount())

	if err := tabular.Write(*out, match.VerificationTable(cands)); err != nil {
		log.Fatalf("write verification file: %v", err)
	}
	log.Printf("wrote verification file to %s; review it, delete wrong rows, then run reference-merge", *out)
}
