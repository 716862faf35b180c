package main

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mnehpets/jsonrpc11base/jsonrpc"
)

// EntryNotFound is returned by get for unknown ids.
const EntryNotFound = 100

// Database is an in-memory store of text entries keyed by sequential ids.
type Database struct {
	mu      sync.RWMutex
	entries map[int]string
	lastID  int
}

func NewDatabase() *Database {
	return &Database{entries: make(map[int]string)}
}

// Add stores params[0] and returns its id.
func (db *Database) Add(ctx context.Context, params []string) (int, error) {
	if len(params) != 1 {
		return 0, jsonrpc.NewInvalidParams("expected a single entry")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.lastID++
	db.entries[db.lastID] = params[0]
	return db.lastID, nil
}

// Get returns the entry with id params[0].
func (db *Database) Get(ctx context.Context, params []int) (string, error) {
	if len(params) != 1 {
		return "", jsonrpc.NewInvalidParams("expected a single id")
	}
	id := params[0]
	db.mu.RLock()
	defer db.mu.RUnlock()
	entry, ok := db.entries[id]
	if !ok {
		return "", jsonrpc.NewAPIError(EntryNotFound, "Entry not found").WithData(map[string]any{"id": id})
	}
	return entry, nil
}

// Search returns the [id, entry] pairs whose entry contains params[0],
// ordered by id.
func (db *Database) Search(ctx context.Context, params []string) ([][]any, error) {
	if len(params) != 1 {
		return nil, jsonrpc.NewInvalidParams("expected a single query")
	}
	query := params[0]
	db.mu.RLock()
	defer db.mu.RUnlock()
	ids := make([]int, 0, len(db.entries))
	for id, entry := range db.entries {
		if strings.Contains(entry, query) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	result := make([][]any, 0, len(ids))
	for _, id := range ids {
		result = append(result, []any{id, db.entries[id]})
	}
	return result, nil
}
