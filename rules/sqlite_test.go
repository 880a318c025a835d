package rules

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "rules.db"))
	be.Err(t, err, nil)
	defer store.Close()

	in := []Rule{
		{
			ID:         "1",
			Name:       "newsletters",
			Conditions: []Condition{{Kind: CondFromContains, Value: "news"}, {Kind: CondHasAttachments, Value: "false"}},
			Actions:    []Action{{Kind: ActionMoveToFolder, Value: "Archive"}, {Kind: ActionMarkAsRead}},
			Enabled:    true,
			CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			LastApplied: time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC),
			EmailsProcessed: 42,
		},
		{
			ID:      "2",
			Name:    "spam",
			Conditions: []Condition{{Kind: CondSubjectContains, Value: "winner"}},
			Actions: []Action{{Kind: ActionDelete}},
		},
	}

	be.Err(t, store.Save(in), nil)
	out, err := store.Load()

	be.Err(t, err, nil)
	be.Equal(t, out, in)
}

func TestSQLiteStoreRewriteReplacesAll(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "rules.db"))
	be.Err(t, err, nil)
	defer store.Close()

	first := []Rule{{ID: "1", Name: "a", Conditions: sampleConditions(), Actions: sampleActions()}}
	second := []Rule{{ID: "2", Name: "b", Conditions: sampleConditions(), Actions: sampleActions()}}

	be.Err(t, store.Save(first), nil)
	be.Err(t, store.Save(second), nil)
	out, err := store.Load()

	be.Err(t, err, nil)
	be.Equal(t, len(out), 1)
	be.Equal(t, out[0].ID, "2")
}

func TestSQLiteStoreEmptyLoads(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "rules.db"))
	be.Err(t, err, nil)
	defer store.Close()

	out, err := store.Load()

	be.Err(t, err, nil)
	be.Equal(t, len(out), 0)
}

func TestSQLiteStoreWorksWithManager(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "rules.db"))
	be.Err(t, err, nil)
	defer store.Close()

	m := NewManager(store)
	created, err := m.Create("via sqlite", sampleConditions(), sampleActions(), true)
	be.Err(t, err, nil)

	listed, err := m.List()
	be.Err(t, err, nil)
	be.Equal(t, len(listed), 1)
	be.Equal(t, listed[0].ID, created.ID)
}
