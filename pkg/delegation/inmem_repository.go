package delegation

import (
	"bytes"
	"context"
	"sync"

	"github.com/tendant/simple-delegation/pkg/asset"
	"golang.org/x/exp/slices"
)

// InMemoryDelegationRepository keeps records in a map. Contents are lost on restart.
type InMemoryDelegationRepository struct {
	records map[asset.ID]Record
	mutex   sync.RWMutex
}

func NewInMemoryDelegationRepository() *InMemoryDelegationRepository {
	return &InMemoryDelegationRepository{
		records: make(map[asset.ID]Record),
	}
}

func (r *InMemoryDelegationRepository) Load(ctx context.Context, id asset.ID) (Record, bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, ok := r.records[id]
	return record, ok, nil
}

func (r *InMemoryDelegationRepository) Update(ctx context.Context, id asset.ID, fn UpdateFunc) (Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, found := r.records[id]
	next, err := fn(current, found)
	if err != nil {
		return Record{}, err
	}
	r.records[id] = next
	return next, nil
}

func (r *InMemoryDelegationRepository) List(ctx context.Context) ([]Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]Entry, 0, len(r.records))
	for id, record := range r.records {
		entries = append(entries, Entry{Asset: id, Record: record})
	}
	sortEntries(entries)
	return entries, nil
}

func compareAssets(a, b asset.ID) int {
	if c := bytes.Compare(a.Collection[:], b.Collection[:]); c != 0 {
		return c
	}
	return a.TokenID.Cmp(&b.TokenID)
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return compareAssets(a.Asset, b.Asset)
	})
}
