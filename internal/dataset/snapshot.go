package dataset

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"retail-dashboard/internal/models"
)

const snapshotVersion = "v1"

type snapshot struct {
	Rows      []models.Transaction
	CreatedAt time.Time
}

func (l *Loader) snapshotFilename() string {
	name := strings.ReplaceAll(filepath.Clean(l.path), string(filepath.Separator), "_")
	return filepath.Join(l.cacheDir, fmt.Sprintf("%s_%s.gob", name, snapshotVersion))
}

// loadSnapshot returns the parsed rows when a snapshot newer than the source file exists.
func (l *Loader) loadSnapshot() ([]models.Transaction, error) {
	file, err := os.Open(l.snapshotFilename())
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}

	info, err := os.Stat(l.path)
	if err != nil {
		return nil, err
	}
	if !info.ModTime().Before(snap.CreatedAt) {
		return nil, errors.New("snapshot is stale")
	}
	if len(snap.Rows) == 0 {
		return nil, errors.New("snapshot is empty")
	}
	return snap.Rows, nil
}

func (l *Loader) saveSnapshot(rows []models.Transaction) error {
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(l.snapshotFilename())
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snapshot{Rows: rows, CreatedAt: time.Now()})
}
