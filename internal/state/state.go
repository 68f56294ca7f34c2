// Package state persists panel UI state and the registered source folders in
// a sqlite database under the data root.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/sqlite"

	"imagegallery/internal/config"
	ferrors "imagegallery/internal/errors"
)

type DB struct {
	SQL  *sql.DB
	Path string
}

// Open creates or opens the state database and ensures the schema and the
// default source folder exist.
func Open(cfg *config.Config) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if cfg.General.DataRoot == "" {
		return nil, errors.New("general.data_root required")
	}
	if err := os.MkdirAll(cfg.General.DataRoot, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.General.DataRoot, "state.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout=5000&_pragma=journal_mode(WAL)&_fk=1", path)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := initSchema(sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	db := &DB{SQL: sqldb, Path: path}
	if cfg.General.InputRoot != "" {
		if err := db.EnsureDefaultFolder(cfg.General.InputRoot, "input"); err != nil {
			_ = sqldb.Close()
			return nil, err
		}
	}
	return db, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ui_state (
			panel_key TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS source_folders (
			path TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) Close() error { return db.SQL.Close() }

// panelKey builds the storage key for one panel instance.
func panelKey(panelID, instanceID string) string {
	return panelID + "_" + instanceID
}

// SaveUIState merges partial into the stored state for a panel instance.
// Keys present in partial overwrite stored values; absent keys survive.
func (db *DB) SaveUIState(panelID, instanceID string, partial map[string]any) error {
	if len(partial) == 0 {
		return nil
	}
	key := panelKey(panelID, instanceID)
	merged := map[string]any{}
	var raw string
	err := db.SQL.QueryRow(`SELECT state FROM ui_state WHERE panel_key=?`, key).Scan(&raw)
	switch {
	case err == nil:
		if uerr := json.Unmarshal([]byte(raw), &merged); uerr != nil {
			merged = map[string]any{}
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return ferrors.DatabaseError(err)
	}
	for k, v := range partial {
		merged[k] = v
	}
	buf, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	_, err = db.SQL.Exec(`INSERT INTO ui_state(panel_key, state, updated_at) VALUES(?,?,?)
		ON CONFLICT(panel_key) DO UPDATE SET state=excluded.state, updated_at=excluded.updated_at`,
		key, string(buf), time.Now().Unix())
	if err != nil {
		return ferrors.DatabaseError(err)
	}
	return nil
}

// LoadUIState returns the stored state for a panel instance, or an empty map
// when nothing was saved yet.
func (db *DB) LoadUIState(panelID, instanceID string) (map[string]any, error) {
	var raw string
	err := db.SQL.QueryRow(`SELECT state FROM ui_state WHERE panel_key=?`, panelKey(panelID, instanceID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, ferrors.DatabaseError(err)
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}, nil
	}
	return out, nil
}

// Folder is one registered image source.
type Folder struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// EnsureDefaultFolder registers the default source, replacing any previous
// default row whose path changed.
func (db *DB) EnsureDefaultFolder(path, name string) error {
	_, err := db.SQL.Exec(`DELETE FROM source_folders WHERE is_default=1 AND path<>?`, path)
	if err != nil {
		return ferrors.DatabaseError(err)
	}
	_, err = db.SQL.Exec(`INSERT INTO source_folders(path, name, is_default, created_at) VALUES(?,?,1,?)
		ON CONFLICT(path) DO UPDATE SET name=excluded.name, is_default=1`,
		path, name, time.Now().Unix())
	if err != nil {
		return ferrors.DatabaseError(err)
	}
	return nil
}

// AddFolder registers an extra source folder. The path must exist, be a
// directory, and not already be registered.
func (db *DB) AddFolder(path, name string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return ferrors.FolderError(path, errors.New("not a directory"))
	}
	if name == "" {
		name = filepath.Base(path)
	}
	res, err := db.SQL.Exec(`INSERT INTO source_folders(path, name, is_default, created_at) VALUES(?,?,0,?)
		ON CONFLICT(path) DO NOTHING`, path, name, time.Now().Unix())
	if err != nil {
		return ferrors.DatabaseError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ferrors.FolderError(path, errors.New("already registered"))
	}
	return nil
}

// RemoveFolder unregisters a source folder. The default folder cannot be
// removed.
func (db *DB) RemoveFolder(path string) error {
	var isDefault int
	err := db.SQL.QueryRow(`SELECT is_default FROM source_folders WHERE path=?`, path).Scan(&isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return ferrors.FolderError(path, errors.New("not registered"))
	}
	if err != nil {
		return ferrors.DatabaseError(err)
	}
	if isDefault == 1 {
		return ferrors.FolderError(path, errors.New("default folder cannot be removed"))
	}
	if _, err := db.SQL.Exec(`DELETE FROM source_folders WHERE path=?`, path); err != nil {
		return ferrors.DatabaseError(err)
	}
	return nil
}

// Folders returns all registered sources, the default first, the rest in
// registration order.
func (db *DB) Folders() ([]Folder, error) {
	rows, err := db.SQL.Query(`SELECT path, name, is_default FROM source_folders
		ORDER BY is_default DESC, created_at ASC, path ASC`)
	if err != nil {
		return nil, ferrors.DatabaseError(err)
	}
	defer rows.Close()
	var out []Folder
	for rows.Next() {
		var f Folder
		var def int
		if err := rows.Scan(&f.Path, &f.Name, &def); err != nil {
			return nil, err
		}
		f.IsDefault = def == 1
		out = append(out, f)
	}
	return out, rows.Err()
}

// FolderByName resolves a registered source by its display name.
func (db *DB) FolderByName(name string) (Folder, bool, error) {
	var f Folder
	var def int
	err := db.SQL.QueryRow(`SELECT path, name, is_default FROM source_folders WHERE name=?`, name).Scan(&f.Path, &f.Name, &def)
	if errors.Is(err, sql.ErrNoRows) {
		return Folder{}, false, nil
	}
	if err != nil {
		return Folder{}, false, ferrors.DatabaseError(err)
	}
	f.IsDefault = def == 1
	return f, true, nil
}
