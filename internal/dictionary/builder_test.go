package dictionary

import (
	"reflect"
	"testing"
)

func buildOrFatal(t *testing.T, b *Builder, batches []Batch) (*Dictionary, []ConflictRecord, BuildStatistics) {
	t.Helper()
	dict, conflicts, stats, err := b.Build(batches)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return dict, conflicts, stats
}

func TestBuildAssignsSequentialEntityIDs(t *testing.T) {
	dict, _, _ := buildOrFatal(t, NewBuilder(nil), []Batch{{
		Label: "round1.csv",
		Assertions: []Assertion{
			{Alias: "Acme Corp", Entity: "Acme"},
			{Alias: "Beta Industries Inc", Entity: "Beta Industries"},
			{Alias: "ACME INC", Entity: "Acme"},
		},
	}})

	entities := dict.Entities()
	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(entities))
	}
	if entities[0].ID != "E1" || entities[0].DisplayName != "Acme" {
		t.Errorf("first entity = %s %q", entities[0].ID, entities[0].DisplayName)
	}
	if entities[1].ID != "E2" || entities[1].DisplayName != "Beta Industries" {
		t.Errorf("second entity = %s %q", entities[1].ID, entities[1].DisplayName)
	}
	if want := []string{"ACME INC", "Acme Corp"}; !reflect.DeepEqual(entities[0].Aliases, want) {
		t.Errorf("Acme aliases = %v, want %v", entities[0].Aliases, want)
	}
}

func TestResolveCollapsesSpellingVariants(t *testing.T) {
	dict, _, _ := buildOrFatal(t, NewBuilder(nil), []Batch{{
		Label:      "round1.csv",
		Assertions: []Assertion{{Alias: "Acme Corp", Entity: "Acme"}},
	}})

	// Any raw spelling that shares the canonical key resolves.
	for _, raw := range []string{"Acme Corp", "ACME CORPORATION", "acme inc.", "Acme Co"} {
		id, ok := dict.Resolve(raw)
		if !ok || id != "E1" {
			t.Errorf("Resolve(%q) = %s, %v; want E1", raw, id, ok)
		}
	}
	if _, ok := dict.Resolve("Beta Industries"); ok {
		t.Error("unknown name resolved")
	}
}

func TestConflictRecentBatchWins(t *testing.T) {
	dict, conflicts, stats := buildOrFatal(t, NewBuilder(nil), []Batch{
		{Label: "round1.csv", Assertions: []Assertion{{Alias: "Acme Corp", Entity: "Acme"}}},
		{Label: "round2.csv", Assertions: []Assertion{{Alias: "Acme Corp", Entity: "Acme Industries"}}},
	})

	id, ok := dict.Resolve("Acme Corp")
	if !ok {
		t.Fatal("alias lost during conflict resolution")
	}
	winner, _ := dict.Entity(id)
	if winner.DisplayName != "Acme Industries" {
		t.Fatalf("alias resolved to %q, want the later batch's entity", winner.DisplayName)
	}

	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	c := conflicts[0]
	if c.Alias != "Acme Corp" || c.ExistingName != "Acme" || c.IncomingName != "Acme Industries" {
		t.Errorf("conflict record = %+v", c)
	}
	if c.ExistingBatch != "round1.csv" || c.IncomingBatch != "round2.csv" {
		t.Errorf("conflict batches = %q / %q", c.ExistingBatch, c.IncomingBatch)
	}
	if c.Resolution != ResolutionRecentWins {
		t.Errorf("resolution = %q", c.Resolution)
	}

	// The losing entity keeps its registration but no longer owns the alias.
	loser, ok := dict.EntityByName("Acme")
	if !ok {
		t.Fatal("prior entity dropped from registry")
	}
	e, _ := dict.Entity(loser)
	for _, a := range e.Aliases {
		if a == "Acme Corp" {
			t.Error("loser still lists the reassigned alias")
		}
	}

	if stats.TotalConflicts != 1 || stats.PerBatch[1].Conflicts != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestConflictMovesAllSpellingsOffLoser(t *testing.T) {
	// Two spellings of one key accumulate on the first entity; when a
	// later batch reassigns the key, the loser must not keep listing
	// either spelling and the winner must list them all.
	dict, _, _ := buildOrFatal(t, NewBuilder(nil), []Batch{
		{Label: "r1.csv", Assertions: []Assertion{
			{Alias: "Acme Corp", Entity: "Old Acme"},
			{Alias: "ACME INC", Entity: "Old Acme"},
		}},
		{Label: "r2.csv", Assertions: []Assertion{
			{Alias: "Acme Co.", Entity: "New Acme"},
		}},
	})

	loserID, ok := dict.EntityByName("Old Acme")
	if !ok {
		t.Fatal("prior entity dropped from registry")
	}
	loser, _ := dict.Entity(loserID)
	if len(loser.Aliases) != 0 {
		t.Fatalf("loser still lists aliases %v after reassignment", loser.Aliases)
	}

	winnerID, ok := dict.Resolve("Acme Corp")
	if !ok {
		t.Fatal("alias lost during conflict resolution")
	}
	winner, _ := dict.Entity(winnerID)
	if winner.DisplayName != "New Acme" {
		t.Fatalf("key resolved to %q, want the later batch's entity", winner.DisplayName)
	}
	if want := []string{"ACME INC", "Acme Co.", "Acme Corp"}; !reflect.DeepEqual(winner.Aliases, want) {
		t.Fatalf("winner aliases = %v, want %v", winner.Aliases, want)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	batches := []Batch{
		{Label: "round1.csv", Assertions: []Assertion{
			{Alias: "Acme Corp", Entity: "Acme"},
			{Alias: "Beta Industries Inc", Entity: "Beta Industries"},
		}},
		{Label: "round2.csv", Assertions: []Assertion{
			{Alias: "Acme Corp", Entity: "Acme Industries"},
		}},
	}

	b := NewBuilder(nil)
	dict, conflicts1, stats1 := buildOrFatal(t, b, batches)
	logLen := dict.LogLen()

	_, conflicts2, stats2 := buildOrFatal(t, b, batches)
	if stats2.AppendedEntries != 0 {
		t.Fatalf("re-build appended %d entries", stats2.AppendedEntries)
	}
	if dict.LogLen() != logLen {
		t.Fatalf("log grew from %d to %d on re-build", logLen, dict.LogLen())
	}
	if !reflect.DeepEqual(conflicts1, conflicts2) {
		t.Fatalf("conflict report changed on re-build:\n%v\nvs\n%v", conflicts1, conflicts2)
	}
	if stats1.TotalAliases != stats2.TotalAliases || stats1.TotalEntities != stats2.TotalEntities {
		t.Fatalf("totals changed on re-build: %+v vs %+v", stats1, stats2)
	}
}

func TestAliasUniquenessAfterConflicts(t *testing.T) {
	dict, _, _ := buildOrFatal(t, NewBuilder(nil), []Batch{
		{Label: "r1.csv", Assertions: []Assertion{
			{Alias: "Acme Corp", Entity: "Acme"},
			{Alias: "ACME INC", Entity: "Acme Industries"},
		}},
		{Label: "r2.csv", Assertions: []Assertion{
			{Alias: "Acme Co.", Entity: "Acme"},
		}},
	})

	// All three raws share one canonical key; whatever the conflict
	// history, the key must resolve to exactly one entity.
	seen := map[EntityID]bool{}
	for _, raw := range []string{"Acme Corp", "ACME INC", "Acme Co."} {
		id, ok := dict.Resolve(raw)
		if !ok {
			t.Fatalf("Resolve(%q) lost", raw)
		}
		seen[id] = true
	}
	if len(seen) != 1 {
		t.Fatalf("one key resolved to %d entities", len(seen))
	}
	if dict.AliasCount() != 1 {
		t.Fatalf("AliasCount = %d, want 1", dict.AliasCount())
	}
}

func TestBuildRejectsEmptyBatchLabel(t *testing.T) {
	_, _, _, err := NewBuilder(nil).Build([]Batch{{Label: "  "}})
	if err == nil {
		t.Fatal("empty batch label accepted")
	}
}

func TestBuildSkipsBlankAssertions(t *testing.T) {
	dict, _, stats := buildOrFatal(t, NewBuilder(nil), []Batch{{
		Label: "r1.csv",
		Assertions: []Assertion{
			{Alias: "   ", Entity: "Acme"},
			{Alias: "Acme Corp", Entity: ""},
			{Alias: "Acme Corp", Entity: "Acme"},
		},
	}})
	if stats.AppendedEntries != 1 {
		t.Fatalf("appended %d entries, want 1", stats.AppendedEntries)
	}
	if dict.AliasCount() != 1 {
		t.Fatalf("AliasCount = %d, want 1", dict.AliasCount())
	}
}

func TestBatchStatsTrackContributions(t *testing.T) {
	_, _, stats := buildOrFatal(t, NewBuilder(nil), []Batch{
		{Label: "r1.csv", Assertions: []Assertion{
			{Alias: "Acme Corp", Entity: "Acme"},
			{Alias: "Beta Inc", Entity: "Beta"},
		}},
		{Label: "r2.csv", Assertions: []Assertion{
			{Alias: "Acme Corporation", Entity: "Acme"}, // duplicate by key
			{Alias: "Gamma LLC", Entity: "Gamma"},
		}},
	})

	if len(stats.PerBatch) != 2 {
		t.Fatalf("got %d per-batch entries, want 2", len(stats.PerBatch))
	}
	r1, r2 := stats.PerBatch[0], stats.PerBatch[1]
	if r1.Label != "r1.csv" || r1.NewAliases != 2 || r1.Conflicts != 0 {
		t.Errorf("r1 stats = %+v", r1)
	}
	if r2.Label != "r2.csv" || r2.NewAliases != 1 || r2.Duplicates != 1 {
		t.Errorf("r2 stats = %+v", r2)
	}
	if stats.TotalAliases != 3 || stats.TotalEntities != 3 {
		t.Errorf("totals = %+v", stats)
	}
}

func TestBuildExtendsExistingDictionary(t *testing.T) {
	b := NewBuilder(nil)
	buildOrFatal(t, b, []Batch{
		{Label: "r1.csv", Assertions: []Assertion{{Alias: "Acme Corp", Entity: "Acme"}}},
	})
	dict, _, stats := buildOrFatal(t, b, []Batch{
		{Label: "r2.csv", Assertions: []Assertion{{Alias: "Beta Inc", Entity: "Beta"}}},
	})

	if stats.AppendedEntries != 1 {
		t.Fatalf("appended %d entries, want 1", stats.AppendedEntries)
	}
	if dict.AliasCount() != 2 || dict.EntityCount() != 2 {
		t.Fatalf("dictionary = %d aliases / %d entities, want 2/2", dict.AliasCount(), dict.EntityCount())
	}
	// IDs stay stable across extension: Acme was first, so it keeps E1.
	if id, _ := dict.Resolve("Acme Corp"); id != "E1" {
		t.Errorf("Acme id = %s, want E1", id)
	}
	if id, _ := dict.Resolve("Beta Inc"); id != "E2" {
		t.Errorf("Beta id = %s, want E2", id)
	}
}
