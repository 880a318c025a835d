package rules

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rules (
	position         INTEGER PRIMARY KEY,
	id               TEXT NOT NULL,
	name             TEXT NOT NULL,
	conditions       TEXT NOT NULL,
	actions          TEXT NOT NULL,
	enabled          INTEGER NOT NULL,
	created_at       TEXT NOT NULL,
	last_applied     TEXT NOT NULL DEFAULT '',
	emails_processed INTEGER NOT NULL DEFAULT 0
);`

// SQLiteStore keeps the rule list in a sqlite database with the same
// load-full/rewrite-full contract as FileStore. Useful when the rule list is
// shared with other local tooling.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and ensures
// the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("rules: creating %s failed: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("rules: opening sqlite store %s failed: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("rules: migrating sqlite store failed: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load() ([]Rule, error) {
	rows, err := s.db.Query(`SELECT id, name, conditions, actions, enabled, created_at, last_applied, emails_processed
		FROM rules ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("rules: querying sqlite store failed: %w", err)
	}
	defer rows.Close()

	rules := []Rule{}
	for rows.Next() {
		var (
			rule                 Rule
			conds, acts          string
			enabled              int
			createdAt, lastApplied string
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &conds, &acts, &enabled, &createdAt, &lastApplied, &rule.EmailsProcessed); err != nil {
			return nil, fmt.Errorf("rules: scanning rule row failed: %w", err)
		}
		if err := json.Unmarshal([]byte(conds), &rule.Conditions); err != nil {
			return nil, fmt.Errorf("%w: rule %s conditions: %v", ErrMalformedStore, rule.ID, err)
		}
		if err := json.Unmarshal([]byte(acts), &rule.Actions); err != nil {
			return nil, fmt.Errorf("%w: rule %s actions: %v", ErrMalformedStore, rule.ID, err)
		}
		rule.Enabled = enabled != 0
		if rule.CreatedAt, err = parseStoredTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: rule %s created_at: %v", ErrMalformedStore, rule.ID, err)
		}
		if rule.LastApplied, err = parseStoredTime(lastApplied); err != nil {
			return nil, fmt.Errorf("%w: rule %s last_applied: %v", ErrMalformedStore, rule.ID, err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rules: reading sqlite store failed: %w", err)
	}
	return rules, nil
}

func (s *SQLiteStore) Save(rules []Rule) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("rules: starting sqlite transaction failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rules`); err != nil {
		return fmt.Errorf("rules: clearing sqlite store failed: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO rules
		(position, id, name, conditions, actions, enabled, created_at, last_applied, emails_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("rules: preparing insert failed: %w", err)
	}
	defer stmt.Close()

	for i, rule := range rules {
		conds, err := json.Marshal(rule.Conditions)
		if err != nil {
			return fmt.Errorf("rules: encoding rule %s conditions failed: %w", rule.ID, err)
		}
		acts, err := json.Marshal(rule.Actions)
		if err != nil {
			return fmt.Errorf("rules: encoding rule %s actions failed: %w", rule.ID, err)
		}
		enabled := 0
		if rule.Enabled {
			enabled = 1
		}
		_, err = stmt.Exec(i, rule.ID, rule.Name, string(conds), string(acts), enabled,
			formatStoredTime(rule.CreatedAt), formatStoredTime(rule.LastApplied), rule.EmailsProcessed)
		if err != nil {
			return fmt.Errorf("rules: inserting rule %s failed: %w", rule.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rules: committing sqlite store failed: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatStoredTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseStoredTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
