package dictionary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joelkehle/entitymatch/internal/normalize"
)

// Builder extends a dictionary with new batches of reviewed assertions.
// Batches are processed in the caller's order; the caller is trusted to
// submit them chronologically, because the conflict policy lets the most
// recent batch win.
type Builder struct {
	dict *Dictionary
}

func NewBuilder(dict *Dictionary) *Builder {
	if dict == nil {
		dict = NewDictionary()
	}
	return &Builder{dict: dict}
}

// Build appends the batches' assertions to the log, skipping entries the
// log already holds, then re-derives the whole mapping by replay. Feeding
// the same batch list twice therefore changes nothing: no new log entries,
// an identical mapping, and an identical conflict report.
func (b *Builder) Build(batches []Batch) (*Dictionary, []ConflictRecord, BuildStatistics, error) {
	seen := map[string]bool{}
	for _, entry := range b.dict.log {
		seen[logKey(entry.Batch, entry.Alias, entry.Entity)] = true
	}

	appended := 0
	for _, batch := range batches {
		if strings.TrimSpace(batch.Label) == "" {
			return nil, nil, BuildStatistics{}, fmt.Errorf("batch with empty label")
		}
		for _, a := range batch.Assertions {
			alias := strings.TrimSpace(a.Alias)
			entity := strings.TrimSpace(a.Entity)
			if alias == "" || entity == "" {
				continue
			}
			key := logKey(batch.Label, alias, entity)
			if seen[key] {
				continue
			}
			seen[key] = true
			b.dict.log = append(b.dict.log, loggedAssertion{
				Position: len(b.dict.log),
				Batch:    batch.Label,
				Alias:    alias,
				Entity:   entity,
			})
			appended++
		}
	}

	stats := b.dict.replay()
	stats.AppendedEntries = appended
	return b.dict, b.dict.Conflicts(), stats, nil
}

func logKey(batch, alias, entity string) string {
	return batch + "\x00" + alias + "\x00" + entity
}

// replay rebuilds every derived view from the log. Entity identity is the
// exact target display string: the reference list the targets come from
// holds one spelling per company, and exact identity keeps the registry
// auditable against that list.
func (d *Dictionary) replay() BuildStatistics {
	d.aliasEntity = map[normalize.Key]EntityID{}
	d.aliasRaw = map[normalize.Key][]string{}
	d.entities = map[EntityID]*Entity{}
	d.entityByKey = map[string]EntityID{}
	d.conflicts = nil
	d.nextID = 0

	aliasBatch := map[normalize.Key]string{}
	batchStats := map[string]*BatchStats{}
	var batchOrder []string
	statsFor := func(label string) *BatchStats {
		if s, ok := batchStats[label]; ok {
			return s
		}
		s := &BatchStats{Label: label}
		batchStats[label] = s
		batchOrder = append(batchOrder, label)
		return s
	}

	for _, entry := range d.log {
		stats := statsFor(entry.Batch)
		stats.Assertions++

		key := normalize.Name(entry.Alias)
		if key == normalize.Empty {
			continue
		}
		incoming := d.entityFor(entry.Entity)

		existing, mapped := d.aliasEntity[key]
		switch {
		case !mapped:
			d.registerAlias(key, entry.Alias, incoming, entry.Batch, aliasBatch)
			stats.NewAliases++
		case existing == incoming:
			stats.Duplicates++
			// A new raw spelling of an already-mapped key is still
			// worth retaining on the entity for audit.
			d.recordSpelling(key, entry.Alias, incoming)
		default:
			prior := d.entities[existing]
			d.conflicts = append(d.conflicts, ConflictRecord{
				Alias:          entry.Alias,
				AliasKey:       key,
				ExistingEntity: existing,
				ExistingName:   prior.DisplayName,
				ExistingBatch:  aliasBatch[key],
				IncomingEntity: incoming,
				IncomingName:   entry.Entity,
				IncomingBatch:  entry.Batch,
				Resolution:     ResolutionRecentWins,
			})
			stats.Conflicts++
			// Every spelling of the key moves with it: the loser keeps
			// none, the winner lists them all.
			moved := append([]string(nil), d.aliasRaw[key]...)
			for _, raw := range moved {
				d.removeAlias(prior, raw)
			}
			d.registerAlias(key, entry.Alias, incoming, entry.Batch, aliasBatch)
			for _, raw := range moved {
				d.recordSpelling(key, raw, incoming)
			}
		}
	}

	for _, e := range d.entities {
		sort.Strings(e.Aliases)
		sort.Strings(e.Batches)
	}

	out := BuildStatistics{
		TotalAliases:   len(d.aliasEntity),
		TotalEntities:  len(d.entities),
		TotalConflicts: len(d.conflicts),
	}
	for _, label := range batchOrder {
		out.PerBatch = append(out.PerBatch, *batchStats[label])
	}
	return out
}

func (d *Dictionary) entityFor(displayName string) EntityID {
	if id, ok := d.entityByKey[displayName]; ok {
		return id
	}
	d.nextID++
	id := EntityID(fmt.Sprintf("E%d", d.nextID))
	d.entityByKey[displayName] = id
	d.entities[id] = &Entity{ID: id, DisplayName: displayName}
	return id
}

func (d *Dictionary) registerAlias(key normalize.Key, raw string, id EntityID, batch string, aliasBatch map[normalize.Key]string) {
	d.aliasEntity[key] = id
	aliasBatch[key] = batch
	d.recordSpelling(key, raw, id)
	e := d.entities[id]
	if !containsString(e.Batches, batch) {
		e.Batches = append(e.Batches, batch)
	}
}

// recordSpelling retains one raw spelling of a key on both the key's
// spelling set and the owning entity's alias list.
func (d *Dictionary) recordSpelling(key normalize.Key, raw string, id EntityID) {
	if !containsString(d.aliasRaw[key], raw) {
		d.aliasRaw[key] = append(d.aliasRaw[key], raw)
	}
	e := d.entities[id]
	if !containsString(e.Aliases, raw) {
		e.Aliases = append(e.Aliases, raw)
	}
}

func (d *Dictionary) removeAlias(e *Entity, raw string) {
	for i, a := range e.Aliases {
		if a == raw {
			e.Aliases = append(e.Aliases[:i], e.Aliases[i+1:]...)
			return
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
