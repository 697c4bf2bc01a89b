package dictionary

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store persists the dictionary's assertion log to SQLite. Only the log is
// stored; every derived view is rebuilt by replay on load, so the mapping
// round-trips exactly no matter how it got to disk. The dictionary file has
// a single writer by operational convention; the busy timeout is a
// backstop, not a coordination mechanism.
type Store struct {
	db   *sqlx.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS assertions (
	position INTEGER PRIMARY KEY,
	batch    TEXT NOT NULL,
	alias    TEXT NOT NULL,
	entity   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const formatVersion = "1"

func OpenStore(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	var version string
	err = db.Get(&version, `SELECT value FROM meta WHERE key = 'format_version'`)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec(`INSERT INTO meta (key, value) VALUES ('format_version', ?)`, formatVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("init meta: %w", err)
		}
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("read meta: %w", err)
	case version != formatVersion:
		db.Close()
		return nil, fmt.Errorf("dictionary %s has format version %s, want %s", path, version, formatVersion)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load reads the full log and derives the dictionary by replay.
func (s *Store) Load() (*Dictionary, error) {
	rows, err := s.db.Queryx(`SELECT position, batch, alias, entity FROM assertions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load assertions: %w", err)
	}
	defer rows.Close()

	dict := NewDictionary()
	for rows.Next() {
		var entry loggedAssertion
		if err := rows.Scan(&entry.Position, &entry.Batch, &entry.Alias, &entry.Entity); err != nil {
			return nil, fmt.Errorf("scan assertion: %w", err)
		}
		dict.log = append(dict.log, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load assertions: %w", err)
	}
	dict.replay()
	return dict, nil
}

// Save appends the dictionary's log entries past what the file already
// holds. The log is append-only: an entry written once is never rewritten,
// which is what lets future builds extend the dictionary rather than
// rebuild it.
func (s *Store) Save(d *Dictionary) error {
	var stored int
	if err := s.db.Get(&stored, `SELECT COUNT(*) FROM assertions`); err != nil {
		return fmt.Errorf("count assertions: %w", err)
	}
	if stored > len(d.log) {
		return fmt.Errorf("dictionary %s holds %d assertions but build produced %d; refusing to truncate", s.path, stored, len(d.log))
	}
	if stored > 0 {
		// The in-memory log must be an extension of the stored one. A
		// dictionary built from scratch rather than loaded from this
		// file can be longer yet disagree; appending its suffix would
		// corrupt the file silently.
		var last loggedAssertion
		if err := s.db.Get(&last, `SELECT position, batch, alias, entity FROM assertions ORDER BY position DESC LIMIT 1`); err != nil {
			return fmt.Errorf("read last assertion: %w", err)
		}
		if last != d.log[stored-1] {
			return fmt.Errorf("dictionary %s diverges from the stored log at position %d; refusing to append", s.path, last.Position)
		}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, entry := range d.log[stored:] {
		if _, err := tx.Exec(
			`INSERT INTO assertions (position, batch, alias, entity) VALUES (?, ?, ?, ?)`,
			entry.Position, entry.Batch, entry.Alias, entry.Entity,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert assertion %d: %w", entry.Position, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
