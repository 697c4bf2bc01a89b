// Command render-report converts a markdown pipeline report to PDF through
// headless Chromium, for the review binder.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joelkehle/entitymatch/internal/report"
)

func main() {
	in := flag.String("in", "", "markdown report file")
	out := flag.String("out", "report.pdf", "PDF output path")
	flag.Parse()

	if *in == "" {
		log.Fatal("-in is required")
	}

	markdown, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("read report: %v", err)
	}

	renderer := report.NewPDFRenderer()
	pdf, err := renderer.Render(context.Background(), string(markdown))
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	if err := os.WriteFile(*out, pdf, 0o644); err != nil {
		log.Fatalf("write pdf: %v", err)
	}
	log.Printf("wrote %d bytes to %s", len(pdf), *out)
}
