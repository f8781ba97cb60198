package delegation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tendant/simple-delegation/pkg/asset"
)

const delegationsFile = "delegations.json"

// FileDelegationRepository keeps records in memory and persists every change
// to a JSON file in dataDir.
type FileDelegationRepository struct {
	dataDir string
	records map[asset.ID]Record
	mutex   sync.RWMutex
}

// fileRecord is the on-disk form of one entry. Token ids are decimal strings
// since they do not fit a JSON number.
type fileRecord struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Delegate   string `json:"delegate"`
	Expiry     uint64 `json:"expiry"`
}

type delegationData struct {
	Delegations []fileRecord `json:"delegations"`
}

// NewFileDelegationRepository creates a file-based repository, loading any existing data
func NewFileDelegationRepository(dataDir string) (*FileDelegationRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileDelegationRepository{
		dataDir: dataDir,
		records: make(map[asset.ID]Record),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileDelegationRepository) Load(ctx context.Context, id asset.ID) (Record, bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, ok := r.records[id]
	return record, ok, nil
}

func (r *FileDelegationRepository) Update(ctx context.Context, id asset.ID, fn UpdateFunc) (Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, found := r.records[id]
	next, err := fn(current, found)
	if err != nil {
		return Record{}, err
	}

	r.records[id] = next
	if err := r.save(); err != nil {
		// Roll back in-memory state
		if found {
			r.records[id] = current
		} else {
			delete(r.records, id)
		}
		return Record{}, fmt.Errorf("failed to save: %w", err)
	}

	return next, nil
}

func (r *FileDelegationRepository) List(ctx context.Context) ([]Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]Entry, 0, len(r.records))
	for id, record := range r.records {
		entries = append(entries, Entry{Asset: id, Record: record})
	}
	sortEntries(entries)
	return entries, nil
}

// load reads delegation data from file
func (r *FileDelegationRepository) load() error {
	filePath := filepath.Join(r.dataDir, delegationsFile)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// If file is empty, start with an empty map
	if len(data) == 0 {
		return nil
	}

	var stored delegationData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	for _, fr := range stored.Delegations {
		id, err := asset.Parse(fr.Collection, fr.TokenID)
		if err != nil {
			return fmt.Errorf("invalid stored asset %s/%s: %w", fr.Collection, fr.TokenID, err)
		}
		delegate, err := asset.ParseAccount(fr.Delegate)
		if err != nil {
			return fmt.Errorf("invalid stored delegate for %s: %w", id, err)
		}
		r.records[id] = Record{Delegate: delegate, Expiry: fr.Expiry}
	}

	return nil
}

// save writes delegation data to file atomically
func (r *FileDelegationRepository) save() error {
	entries := make([]Entry, 0, len(r.records))
	for id, record := range r.records {
		entries = append(entries, Entry{Asset: id, Record: record})
	}
	sortEntries(entries)

	stored := delegationData{Delegations: make([]fileRecord, 0, len(entries))}
	for _, e := range entries {
		stored.Delegations = append(stored.Delegations, fileRecord{
			Collection: e.Asset.Collection.Hex(),
			TokenID:    e.Asset.TokenIDString(),
			Delegate:   e.Record.Delegate.Hex(),
			Expiry:     e.Record.Expiry,
		})
	}

	jsonData, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first
	tempFile := filepath.Join(r.dataDir, delegationsFile+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	finalFile := filepath.Join(r.dataDir, delegationsFile)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
