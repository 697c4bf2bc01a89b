// Command reference-merge applies the reviewed verification files: each
// resolved entity receives the reference dataset's identifier set
// (gvkey/cusip/cik), and the main table's identifier columns are filled
// where empty. Conflicting identifier assignments across batches abort the
// merge; identifiers are never auto-resolved.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/joelkehle/entitymatch/internal/dictionary"
	"github.com/joelkehle/entitymatch/internal/match"
	"github.com/joelkehle/entitymatch/internal/refmatch"
	"github.com/joelkehle/entitymatch/internal/tabular"
)

func main() {
	dictPath := flag.String("dict", "dictionary.db", "canonical dictionary (SQLite)")
	referencePath := flag.String("reference", "", "reference dataset file with conm/gvkey/cusip/cik columns")
	mainPath := flag.String("main", "", "main table to fill (must have an acquiror_name column)")
	out := flag.String("out", "final_outcome.xlsx", "filled output file")
	flag.Parse()

	verifiedPaths := flag.Args()
	if *referencePath == "" || *mainPath == "" || len(verifiedPaths) == 0 {
		log.Fatal("usage: reference-merge -reference <file> -main <file> [flags] <verified-file>...")
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

	refTable, err := tabular.Read(*referencePath)
	if err != nil {
		log.Fatalf("read reference: %v", err)
	}
	if err := refTable.Require(refmatch.ColGVKey, refmatch.ColCUSIP, refmatch.ColCIK); err != nil {
		log.Fatal(err)
	}
	ref, err := refmatch.LoadReference(refTable)
	if err != nil {
		log.Fatal(err)
	}

	var batches []refmatch.ReviewedBatch
	for _, path := range verifiedPaths {
		t, err := tabular.Read(path)
		if err != nil {
			log.Fatalf("read verified file: %v", err)
		}
		accepted, err := match.ParseAccepted(t)
		if err != nil {
			log.Fatal(err)
		}
		batches = append(batches, refmatch.ReviewedBatch{
			Label:    filepath.Base(path),
			Accepted: accepted,
		})
		log.Printf("loaded %d accepted rows from %s", len(accepted), path)
	}

	assignments, err := refmatch.Merge(dict, ref, batches)
	if err != nil {
		log.Fatalf("merge: %v", err)
	}
	log.Printf("assigned identifiers to %d entities", len(assignments))

	mainTable, err := tabular.Read(*mainPath)
	if err != nil {
		log.Fatalf("read main table: %v", err)
	}
	filled, touched, err := refmatch.FillTable(mainTable, "acquiror_name", assignments)
	if err != nil {
		log.Fatal(err)
	}
	if err := tabular.Write(*out, filled); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Printf("filled identifiers on %d rows; wrote %s", touched, *out)
}
