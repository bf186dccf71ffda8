package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "prefs.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store, path
}

func TestGetMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	if _, ok := store.GetInt("nope"); ok {
		t.Error("GetInt on missing key returned ok")
	}
	if _, ok := store.GetString("nope"); ok {
		t.Error("GetString on missing key returned ok")
	}
	if _, ok := store.GetBool("nope"); ok {
		t.Error("GetBool on missing key returned ok")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.SetInt(KeyNumDaysUsed, 7); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := store.SetString(KeyLastUsedDate, "2026-08-24"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := store.SetBool(KeyReviewRequested, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}

	if v, ok := store.GetInt(KeyNumDaysUsed); !ok || v != 7 {
		t.Errorf("GetInt = %d, %v; want 7, true", v, ok)
	}
	if v, ok := store.GetString(KeyLastUsedDate); !ok || v != "2026-08-24" {
		t.Errorf("GetString = %q, %v; want 2026-08-24, true", v, ok)
	}
	if v, ok := store.GetBool(KeyReviewRequested); !ok || !v {
		t.Errorf("GetBool = %v, %v; want true, true", v, ok)
	}
}

func TestLazyFileCreation(t *testing.T) {
	store, path := newTestStore(t)

	// Reads alone must not create the file.
	store.GetInt(KeyNumDaysUsed)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file exists before first write")
	}

	if err := store.SetInt(KeyNumDaysUsed, 1); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file missing after write: %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	store, path := newTestStore(t)

	if err := store.SetInt(KeyNumSavedJokes, 3); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := store.SetBool(KeyTourCompleted, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if v, ok := reopened.GetInt(KeyNumSavedJokes); !ok || v != 3 {
		t.Errorf("GetInt after reopen = %d, %v; want 3, true", v, ok)
	}
	if v, ok := reopened.GetBool(KeyTourCompleted); !ok || !v {
		t.Errorf("GetBool after reopen = %v, %v; want true, true", v, ok)
	}
}

func TestRemove(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.SetInt(KeyNumDaysUsed, 5); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := store.Remove(KeyNumDaysUsed); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := store.GetInt(KeyNumDaysUsed); ok {
		t.Error("key still present after Remove")
	}

	// Removing an absent key is a no-op.
	if err := store.Remove("never-set"); err != nil {
		t.Errorf("Remove absent key: %v", err)
	}
}

func TestOverwrite(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.SetInt(KeyNumJokesViewed, 1); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := store.SetInt(KeyNumJokesViewed, 2); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if v, _ := store.GetInt(KeyNumJokesViewed); v != 2 {
		t.Errorf("GetInt = %d, want 2", v)
	}
}
