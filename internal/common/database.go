package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// A database is a single JSON file on disk.
// Every component keeps its state in memory and writes the whole
// state back after each change. An empty filename keeps everything in memory
type Database struct {
	Filename string
}

func NewDatabase(filename string) Database {
	return Database{Filename: filename}
}

// Load the content of the file into v.
// A file that does not exist yet leaves v untouched
func (db *Database) Load(v any) error {
	if db.Filename == "" {
		return nil
	}
	data, err := os.ReadFile(db.Filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not read database %s: %w", db.Filename, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("database %s is not correctly formatted: %w", db.Filename, err)
	}
	return nil
}

// Save v into the file. The content goes to a temporary file first
// and is renamed over the old one, so a crash never leaves half a file behind
func (db *Database) Save(v any) error {
	if db.Filename == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode database %s: %w", db.Filename, err)
	}
	dir := filepath.Dir(db.Filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(db.Filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file for %s: %w", db.Filename, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write database %s: %w", db.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not write database %s: %w", db.Filename, err)
	}
	if err := os.Rename(tmp.Name(), db.Filename); err != nil {
		return fmt.Errorf("could not replace database %s: %w", db.Filename, err)
	}
	return nil
}
