// Command match runs the first pipeline stage: it matches patent assignee
// names against the acquiror list and splits the candidates into an
// auto-accepted file and a needs-review file for the human reviewer.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sort"

	"github.com/joelkehle/entitymatch/internal/aggregate"
	"github.com/joelkehle/entitymatch/internal/match"
	"github.com/joelkehle/entitymatch/internal/report"
	"github.com/joelkehle/entitymatch/internal/tabular"
	"github.com/joelkehle/entitymatch/internal/telemetry"
)

func main() {
	factsPath := flag.String("facts", "", "patent fact file (csv or xlsx) with assignee/application_year columns")
	targetsPath := flag.String("targets", "", "acquiror file with an acquiror_name column")
	reviewOut := flag.String("review-out", "manual_review.xlsx", "needs-review output file")
	autoOut := flag.String("auto-out", "auto_results.xlsx", "auto-accepted output file")
	reportOut := flag.String("report-out", "", "optional markdown report path")
	threshold := flag.Int("fuzzy-threshold", 90, "auto-accept cutoff for fuzzy scores (0-100)")
	floor := flag.Int("reject-floor", 60, "discard fuzzy candidates scoring below this")
	workers := flag.Int("workers", 0, "fuzzy-tier workers (0 = cores-1 capped, 1 = sequential)")
	otlpEndpoint := flag.String("otlp-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP/HTTP trace endpoint (empty disables tracing)")
	flag.Parse()

	if *factsPath == "" || *targetsPath == "" {
		log.Fatal("both -facts and -targets are required")
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, *otlpEndpoint, "match")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer shutdown(ctx)

	factsTable, err := tabular.Read(*factsPath)
	if err != nil {
		log.Fatalf("read facts: %v", err)
	}
	facts, err := aggregate.ParseFacts(factsTable)
	if err != nil {
		log.Fatalf("parse facts: %v", err)
	}
	log.Printf("loaded %d fact records from %s", len(facts), *factsPath)

	targetsTable, err := tabular.Read(*targetsPath)
	if err != nil {
		log.Fatalf("read targets: %v", err)
	}
	if err := targetsTable.Require("acquiror_name"); err != nil {
		log.Fatal(err)
	}
	var targets []string
	for i := range targetsTable.Rows {
		if name := targetsTable.Cell(i, "acquiror_name"); name != "" {
			targets = append(targets, name)
		}
	}
	log.Printf("loaded %d target names from %s", len(targets), *targetsPath)

	cfg := match.DefaultConfig()
	cfg.FuzzyThreshold = *threshold
	cfg.RejectFloor = *floor
	cfg.Workers = *workers

	matcher, err := match.New(cfg, targets)
	if err != nil {
		log.Fatalf("matcher: %v", err)
	}

	cands, err := matcher.Match(ctx, summarizeSources(facts))
	if err != nil {
		log.Fatalf("match: %v", err)
	}
	quality := match.Check(cands)
	for _, w := range quality.Warnings() {
		log.Printf("quality: %s", w)
	}

	reviewTable := match.ReviewTable(cands)
	if err := tabular.Write(*reviewOut, reviewTable); err != nil {
		log.Fatalf("write review file: %v", err)
	}
	log.Printf("wrote %d rows to %s", len(reviewTable.Rows), *reviewOut)

	autoTable := match.AutoAcceptTable(cands)
	if err := tabular.Write(*autoOut, autoTable); err != nil {
		log.Fatalf("write auto file: %v", err)
	}
	log.Printf("wrote %d rows to %s", len(autoTable.Rows), *autoOut)

	if *reportOut != "" {
		md := report.MatchMarkdown(cands, quality)
		if err := os.WriteFile(*reportOut, []byte(md), 0o644); err != nil {
			log.Fatalf("write report: %v", err)
		}
		log.Printf("wrote report to %s", *reportOut)
	}
}

// summarizeSources reduces fact records to one source per distinct raw
// assignee name, weighted by its patent count for workload banding.
func summarizeSources(facts []aggregate.FactRecord) []match.Source {
	counts := map[string]int{}
	for _, f := range facts {
		counts[f.RawName]++
	}
	sources := make([]match.Source, 0, len(counts))
	for raw, n := range counts {
		sources = append(sources, match.Source{Raw: raw, Weight: n})
	}
	sort.Slice(sources, func(a, b int) bool { return sources[a].Raw < sources[b].Raw })
	return sources
}
