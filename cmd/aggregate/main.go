// Command aggregate resolves patent fact records through the canonical
// dictionary and writes the per-entity per-year aggregate table, the
// unmatched-name report, and an optional run summary.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joelkehle/entitymatch/internal/aggregate"
	"github.com/joelkehle/entitymatch/internal/dictionary"
	"github.com/joelkehle/entitymatch/internal/report"
	"github.com/joelkehle/entitymatch/internal/tabular"
	"github.com/joelkehle/entitymatch/internal/telemetry"
)

func main() {
	dictPath := flag.String("dict", "dictionary.db", "canonical dictionary (SQLite)")
	factsPath := flag.String("facts", "", "patent fact file (csv or xlsx)")
	out := flag.String("out", "aggregates.xlsx", "aggregate output file")
	unmatchedOut := flag.String("unmatched-out", "unmatched.csv", "unmatched-name report file")
	reportOut := flag.String("report-out", "", "optional markdown report path")
	otlpEndpoint := flag.String("otlp-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP/HTTP trace endpoint (empty disables tracing)")
	flag.Parse()

	if *factsPath == "" {
		log.Fatal("-facts is required")
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, *otlpEndpoint, "aggregate")
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
	if dict.AliasCount() == 0 {
		log.Fatalf("dictionary %s is empty; run build-dictionary first", *dictPath)
	}
	log.Printf("dictionary holds %d aliases across %d entities", dict.AliasCount(), dict.EntityCount())

	factsTable, err := tabular.Read(*factsPath)
	if err != nil {
		log.Fatalf("read facts: %v", err)
	}
	facts, err := aggregate.ParseFacts(factsTable)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d fact records from %s", len(facts), *factsPath)

	result := aggregate.Aggregate(ctx, dict, facts)
	log.Printf("resolved %d/%d facts (%d names unmatched)",
		result.ResolvedFacts, result.TotalFacts, len(result.Unmatched))

	if err := tabular.Write(*out, aggregate.ExportTable(result, dict)); err != nil {
		log.Fatalf("write aggregates: %v", err)
	}
	log.Printf("wrote aggregates to %s", *out)

	if err := tabular.Write(*unmatchedOut, aggregate.UnmatchedTable(result)); err != nil {
		log.Fatalf("write unmatched report: %v", err)
	}
	log.Printf("wrote unmatched report to %s", *unmatchedOut)

	if *reportOut != "" {
		md := report.AggregateMarkdown(result)
		if err := os.WriteFile(*reportOut, []byte(md), 0o644); err != nil {
			log.Fatalf("write report: %v", err)
		}
		log.Printf("wrote report to %s", *reportOut)
	}
}
