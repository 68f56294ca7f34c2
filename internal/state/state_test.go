package state

import (
	"os"
	"path/filepath"
	"testing"

	"imagegallery/internal/config"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	cfg.General.DataRoot = filepath.Join(dir, "data")
	cfg.General.InputRoot = input
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, dir
}

func TestSaveUIStateMergesPartials(t *testing.T) {
	db, _ := openTestDB(t)

	if err := db.SaveUIState("gallery", "inst-1", map[string]any{"search": "cat", "preview_size": float64(110)}); err != nil {
		t.Fatalf("SaveUIState: %v", err)
	}
	if err := db.SaveUIState("gallery", "inst-1", map[string]any{"search": "dog"}); err != nil {
		t.Fatalf("SaveUIState: %v", err)
	}

	got, err := db.LoadUIState("gallery", "inst-1")
	if err != nil {
		t.Fatalf("LoadUIState: %v", err)
	}
	if got["search"] != "dog" {
		t.Fatalf("search = %v, want dog (later write wins)", got["search"])
	}
	if got["preview_size"] != float64(110) {
		t.Fatalf("preview_size = %v, want 110 (absent key survives merge)", got["preview_size"])
	}
}

func TestLoadUIStateUnknownInstance(t *testing.T) {
	db, _ := openTestDB(t)
	got, err := db.LoadUIState("gallery", "never-saved")
	if err != nil {
		t.Fatalf("LoadUIState: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty state, got %v", got)
	}
}

func TestUIStateKeyedPerInstance(t *testing.T) {
	db, _ := openTestDB(t)

	if err := db.SaveUIState("gallery", "a", map[string]any{"search": "one"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveUIState("gallery", "b", map[string]any{"search": "two"}); err != nil {
		t.Fatal(err)
	}

	a, _ := db.LoadUIState("gallery", "a")
	b, _ := db.LoadUIState("gallery", "b")
	if a["search"] != "one" || b["search"] != "two" {
		t.Fatalf("instances must not share state: a=%v b=%v", a, b)
	}
}

func TestDefaultFolderAlwaysFirst(t *testing.T) {
	db, dir := openTestDB(t)

	extra := filepath.Join(dir, "extra")
	if err := os.MkdirAll(extra, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := db.AddFolder(extra, "extra"); err != nil {
		t.Fatalf("AddFolder: %v", err)
	}

	folders, err := db.Folders()
	if err != nil {
		t.Fatalf("Folders: %v", err)
	}
	if len(folders) != 2 {
		t.Fatalf("len(folders) = %d, want 2", len(folders))
	}
	if !folders[0].IsDefault || folders[0].Name != "input" {
		t.Fatalf("first folder must be the default, got %+v", folders[0])
	}
	if folders[1].Name != "extra" {
		t.Fatalf("second folder = %+v, want extra", folders[1])
	}
}

func TestAddFolderRejectsDuplicate(t *testing.T) {
	db, dir := openTestDB(t)

	extra := filepath.Join(dir, "extra")
	if err := os.MkdirAll(extra, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := db.AddFolder(extra, "extra"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := db.AddFolder(extra, "other-name"); err == nil {
		t.Fatal("adding the same path twice must fail")
	}
}

func TestAddFolderRejectsMissingPath(t *testing.T) {
	db, dir := openTestDB(t)
	if err := db.AddFolder(filepath.Join(dir, "nope"), "nope"); err == nil {
		t.Fatal("missing path must be rejected")
	}
}

func TestRemoveFolderProtectsDefault(t *testing.T) {
	db, dir := openTestDB(t)
	if err := db.RemoveFolder(filepath.Join(dir, "input")); err == nil {
		t.Fatal("removing the default folder must fail")
	}
}

func TestRemoveFolder(t *testing.T) {
	db, dir := openTestDB(t)

	extra := filepath.Join(dir, "extra")
	if err := os.MkdirAll(extra, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := db.AddFolder(extra, "extra"); err != nil {
		t.Fatal(err)
	}
	if err := db.RemoveFolder(extra); err != nil {
		t.Fatalf("RemoveFolder: %v", err)
	}
	folders, _ := db.Folders()
	if len(folders) != 1 {
		t.Fatalf("len(folders) = %d, want 1 after removal", len(folders))
	}
}

func TestFolderByName(t *testing.T) {
	db, _ := openTestDB(t)

	f, ok, err := db.FolderByName("input")
	if err != nil || !ok {
		t.Fatalf("FolderByName(input): ok=%v err=%v", ok, err)
	}
	if !f.IsDefault {
		t.Fatal("input must be the default folder")
	}
	if _, ok, _ := db.FolderByName("missing"); ok {
		t.Fatal("unknown name must miss")
	}
}
