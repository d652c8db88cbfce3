package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/nolossgames/savings-pool-server/pool"
)

// FileStore appends pool events to data/pool_events.json.
type FileStore struct {
	mu      sync.Mutex
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	if dataDir == "" {
		dataDir = "data"
	}
	return &FileStore{dataDir: dataDir}
}

func (fs *FileStore) path() string {
	return filepath.Join(fs.dataDir, "pool_events.json")
}

func (fs *FileStore) ensureDir() error {
	return os.MkdirAll(fs.dataDir, 0755)
}

// Append adds an event to the JSON file (append to array).
func (fs *FileStore) Append(e pool.Event) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.ensureDir(); err != nil {
		return err
	}
	path := fs.path()
	var list []pool.Event
	data, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(data, &list)
	}
	if list == nil {
		list = []pool.Event{}
	}
	list = append(list, e)
	data, err = json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Events returns all journaled events, oldest first.
func (fs *FileStore) Events() ([]pool.Event, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, err := os.ReadFile(fs.path())
	if os.IsNotExist(err) {
		return []pool.Event{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list []pool.Event
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}
