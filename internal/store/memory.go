package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/bognix/dymek-api/pkg/util"
)

// MemoryStore is an in-memory RecordStore used by tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, key Key, item []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), item...)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.records[key]
	if !ok {
		return Record{}, util.NewNotFound("record", map[string]any{
			"partition": key.Partition, "range": key.Range,
		})
	}
	return Record{Key: key, Item: append([]byte(nil), item...)}, nil
}

func (s *MemoryStore) UpdateAttribute(ctx context.Context, key Key, name string, value any, expectedVersion *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[key]
	if !ok {
		return util.NewNotFound("record", map[string]any{
			"partition": key.Partition, "range": key.Range,
		})
	}

	var doc map[string]any
	if err := json.Unmarshal(item, &doc); err != nil {
		return util.NewStoreUnavailable(err)
	}

	version := int64(0)
	if v, ok := doc["version"].(float64); ok {
		version = int64(v)
	}
	if expectedVersion != nil && version != *expectedVersion {
		return util.NewConflict("record version changed since read", map[string]any{
			"expectedVersion": *expectedVersion,
		})
	}

	doc[name] = value
	doc["version"] = version + 1

	updated, err := json.Marshal(doc)
	if err != nil {
		return util.NewStoreUnavailable(err)
	}
	s.records[key] = updated
	return nil
}

func (s *MemoryStore) QueryByPartition(ctx context.Context, partition string, f Filters) ([]Record, error) {
	return s.collect(func(key Key, doc map[string]any) bool {
		return key.Partition == partition && matches(doc, f)
	})
}

func (s *MemoryStore) QueryByAttribute(ctx context.Context, name, value string, f Filters) ([]Record, error) {
	return s.collect(func(key Key, doc map[string]any) bool {
		return attrString(doc, name) == value && matches(doc, f)
	})
}

func (s *MemoryStore) ScanAll(ctx context.Context, f Filters) ([]Record, error) {
	return s.collect(func(key Key, doc map[string]any) bool {
		return matches(doc, f)
	})
}

func (s *MemoryStore) collect(keep func(Key, map[string]any) bool) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Record
	for key, item := range s.records {
		var doc map[string]any
		if err := json.Unmarshal(item, &doc); err != nil {
			return nil, util.NewStoreUnavailable(err)
		}
		if keep(key, doc) {
			result = append(result, Record{Key: key, Item: append([]byte(nil), item...)})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Key.Partition != result[j].Key.Partition {
			return result[i].Key.Partition < result[j].Key.Partition
		}
		return result[i].Key.Range < result[j].Key.Range
	})
	return result, nil
}

func matches(doc map[string]any, f Filters) bool {
	for name, value := range f.Equals {
		if attrString(doc, name) != value {
			return false
		}
	}
	return true
}

func attrString(doc map[string]any, name string) string {
	v, ok := doc[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
