package match

import (
	"strings"
	"testing"
)

func reviewFixture() []Candidate {
	return []Candidate{
		{SourceRaw: "Acme Corp", SourceKey: "acme", TargetRaw: "Acme", TargetKey: "acme",
			Tier: TierExact, Score: 100, Decision: DecisionAutoAccepted, Band: BandMid},
		{SourceRaw: "Beta Industrie", SourceKey: "beta industrie", TargetRaw: "Beta Industries", TargetKey: "beta industries",
			Tier: TierFuzzy, Score: 93, Decision: DecisionNeedsReview, Band: BandMid},
		{SourceRaw: "Gamma Grp", SourceKey: "gamma grp", TargetRaw: "Gamma Group", TargetKey: "gamma",
			Tier: TierFuzzy, Score: 71, Decision: DecisionNeedsReview, Band: BandMid},
		{SourceRaw: "Delta Heavy", SourceKey: "delta heavy", TargetRaw: "Delta Heavy Industries", TargetKey: "delta heavy industries",
			Tier: TierStrict, Score: 100, Decision: DecisionNeedsReview, Band: BandHead},
	}
}

func TestReviewTableOrdersWeakestFirst(t *testing.T) {
	tbl := ReviewTable(reviewFixture())

	if len(tbl.Rows) != 3 {
		t.Fatalf("got %d rows, want 3 needs_review rows", len(tbl.Rows))
	}
	var got []string
	for i := range tbl.Rows {
		got = append(got, tbl.Cell(i, ColSourceName))
	}
	want := []string{"Gamma Grp", "Beta Industrie", "Delta Heavy"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("row order %v, want %v", got, want)
	}
}

func TestVerificationTableKeepsEverything(t *testing.T) {
	tbl := VerificationTable(reviewFixture())
	if len(tbl.Rows) != 4 {
		t.Fatalf("got %d rows, want all 4 candidates", len(tbl.Rows))
	}
	// Weakest first: the lowest fuzzy score leads, the exact hit trails.
	if got := tbl.Cell(0, ColSourceName); got != "Gamma Grp" {
		t.Errorf("first row %q, want Gamma Grp", got)
	}
	if got := tbl.Cell(3, ColTier); got != string(TierExact) {
		t.Errorf("last row tier %q, want exact", got)
	}
}

func TestAutoAcceptTableFiltersDecision(t *testing.T) {
	tbl := AutoAcceptTable(reviewFixture())
	if len(tbl.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(tbl.Rows))
	}
	if got := tbl.Cell(0, ColSourceName); got != "Acme Corp" {
		t.Errorf("row source %q, want Acme Corp", got)
	}
}

func TestParseAcceptedRoundTrip(t *testing.T) {
	tbl := ReviewTable(reviewFixture())
	accepted, err := ParseAccepted(tbl)
	if err != nil {
		t.Fatalf("ParseAccepted: %v", err)
	}
	if len(accepted) != 3 {
		t.Fatalf("got %d accepted rows, want 3", len(accepted))
	}
	if accepted[0].SourceRaw != "Gamma Grp" || accepted[0].TargetRaw != "Gamma Group" {
		t.Errorf("row 0 = %+v", accepted[0])
	}
	if accepted[0].Score != 71 || accepted[0].Tier != TierFuzzy {
		t.Errorf("row 0 provenance = %+v", accepted[0])
	}
}

func TestParseAcceptedToleratesTrimmedColumns(t *testing.T) {
	// A reviewer who hands back only the identity columns still parses.
	tbl := ReviewTable(reviewFixture())
	trimmed, err := tbl.Project(ColSourceName, ColTargetName)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	accepted, err := ParseAccepted(trimmed)
	if err != nil {
		t.Fatalf("ParseAccepted: %v", err)
	}
	if len(accepted) != 3 {
		t.Fatalf("got %d accepted rows, want 3", len(accepted))
	}
	if accepted[0].Score != 0 || accepted[0].Tier != Tier("") {
		t.Errorf("trimmed file should leave provenance zero, got %+v", accepted[0])
	}
}

func TestParseAcceptedRejectsBadScore(t *testing.T) {
	tbl := ReviewTable(reviewFixture())
	tbl.Rows[1][tbl.ColumnIndex(ColScore)] = "ninety"
	if _, err := ParseAccepted(tbl); err == nil {
		t.Fatal("bad score accepted")
	}
}

func TestParseAcceptedRequiresIdentityColumns(t *testing.T) {
	tbl := ReviewTable(reviewFixture())
	missing, err := tbl.Project(ColSourceName, ColScore)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if _, err := ParseAccepted(missing); err == nil {
		t.Fatal("table without target_name accepted")
	}
}

func TestParseAcceptedSkipsBlankRows(t *testing.T) {
	tbl := ReviewTable(reviewFixture())
	tbl.Append("", "", "", "", "", "", "", "")
	accepted, err := ParseAccepted(tbl)
	if err != nil {
		t.Fatalf("ParseAccepted: %v", err)
	}
	if len(accepted) != 3 {
		t.Fatalf("got %d accepted rows, want blank row dropped", len(accepted))
	}
}
