// Command build-dictionary merges reviewed match files into the canonical
// alias dictionary. Batch files are given as arguments in processing order
// (typically chronological); the dictionary file is extended, never
// rebuilt, and conflicts are resolved most-recent-wins with a full audit
// trail.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joelkehle/entitymatch/internal/dictionary"
	"github.com/joelkehle/entitymatch/internal/match"
	"github.com/joelkehle/entitymatch/internal/report"
	"github.com/joelkehle/entitymatch/internal/tabular"
)

func main() {
	dictPath := flag.String("dict", "dictionary.db", "canonical dictionary (SQLite)")
	viewOut := flag.String("view-out", "", "optional alias->entity view file for manual inspection")
	conflictsOut := flag.String("conflicts-out", "", "optional conflict report file")
	reportOut := flag.String("report-out", "", "optional markdown build report path")
	flag.Parse()

	batchPaths := flag.Args()
	if len(batchPaths) == 0 {
		log.Fatal("usage: build-dictionary [flags] <reviewed-batch-file>... (in processing order)")
	}

	var batches []dictionary.Batch
	for _, path := range batchPaths {
		t, err := tabular.Read(path)
		if err != nil {
			log.Fatalf("read batch: %v", err)
		}
		accepted, err := match.ParseAccepted(t)
		if err != nil {
			log.Fatal(err)
		}
		batch := dictionary.Batch{Label: filepath.Base(path)}
		for _, a := range accepted {
			batch.Assertions = append(batch.Assertions, dictionary.Assertion{
				Alias:  a.SourceRaw,
				Entity: a.TargetRaw,
			})
		}
		batches = append(batches, batch)
		log.Printf("loaded %d assertions from %s", len(batch.Assertions), path)
	}

	store, err := dictionary.OpenStore(*dictPath)
	if err != nil {
		log.Fatalf("open dictionary: %v", err)
	}
	defer store.Close()

	dict, err := store.Load()
	if err != nil {
		log.Fatalf("load dictionary: %v", err)
	}
	log.Printf("dictionary holds %d aliases across %d entities", dict.AliasCount(), dict.EntityCount())

	builder := dictionary.NewBuilder(dict)
	dict, conflicts, stats, err := builder.Build(batches)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	if err := store.Save(dict); err != nil {
		log.Fatalf("save dictionary: %v", err)
	}

	log.Printf("build complete: %d aliases, %d entities, %d conflicts, %d new log entries",
		stats.TotalAliases, stats.TotalEntities, stats.TotalConflicts, stats.AppendedEntries)
	for _, batch := range stats.PerBatch {
		log.Printf("  %s: %d new, %d duplicate, %d conflict", batch.Label, batch.NewAliases, batch.Duplicates, batch.Conflicts)
	}

	if *viewOut != "" {
		if err := tabular.Write(*viewOut, viewTable(dict)); err != nil {
			log.Fatalf("write view: %v", err)
		}
		log.Printf("wrote alias view to %s", *viewOut)
	}
	if *conflictsOut != "" {
		if err := tabular.Write(*conflictsOut, conflictTable(conflicts)); err != nil {
			log.Fatalf("write conflicts: %v", err)
		}
		log.Printf("wrote %d conflicts to %s", len(conflicts), *conflictsOut)
	}
	if *reportOut != "" {
		md := report.BuildMarkdown(dict, stats, conflicts)
		if err := os.WriteFile(*reportOut, []byte(md), 0o644); err != nil {
			log.Fatalf("write report: %v", err)
		}
		log.Printf("wrote report to %s", *reportOut)
	}
}

func viewTable(dict *dictionary.Dictionary) *tabular.Table {
	t := tabular.New("alias", "entity_id", "entity_name")
	for _, e := range dict.Entities() {
		for _, alias := range e.Aliases {
			t.Append(alias, string(e.ID), e.DisplayName)
		}
	}
	return t
}

func conflictTable(conflicts []dictionary.ConflictRecord) *tabular.Table {
	t := tabular.New("alias", "existing_entity", "existing_name", "existing_batch",
		"incoming_entity", "incoming_name", "incoming_batch", "resolution")
	for _, c := range conflicts {
		t.Append(c.Alias,
			string(c.ExistingEntity), c.ExistingName, c.ExistingBatch,
			string(c.IncomingEntity), c.IncomingName, c.IncomingBatch,
			c.Resolution)
	}
	return t
}
