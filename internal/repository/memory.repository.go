package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// MemoryTableStore is an in-process TableStore used by tests and local dry
// runs. It honors create/upsert/read semantics but cannot execute SQL
// projections; Select callers need the Postgres store.
type MemoryTableStore struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
}

type memoryTable struct {
	schema domain.Schema
	// rows keyed by the concatenated primary key values; insertion order
	// preserved for deterministic reads.
	rows  map[string]domain.Record
	order []string
}

func NewMemoryTableStore() *MemoryTableStore {
	return &MemoryTableStore{tables: map[string]*memoryTable{}}
}

func (s *MemoryTableStore) CreateTable(_ context.Context, name string, schema domain.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return nil
	}
	s.tables[name] = &memoryTable{
		schema: schema,
		rows:   map[string]domain.Record{},
	}
	return nil
}

func (s *MemoryTableStore) DropTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, name)
	return nil
}

func (s *MemoryTableStore) Upsert(_ context.Context, name string, rows []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.tables[name]
	if !ok {
		return domain.StorageError{Op: "upsert into " + name, Err: errors.New("table does not exist")}
	}

	for _, row := range rows {
		key := ""
		for _, col := range table.schema.PrimaryKey {
			key += fmt.Sprintf("%v|", row[col])
		}
		if existing, ok := table.rows[key]; ok {
			for col, v := range row {
				existing[col] = v
			}
			continue
		}
		copied := domain.Record{}
		for col, v := range row {
			copied[col] = v
		}
		table.rows[key] = copied
		table.order = append(table.order, key)
	}
	return nil
}

func (s *MemoryTableStore) ReadAll(_ context.Context, name string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.tables[name]
	if !ok {
		return nil, domain.StorageError{Op: "read " + name, Err: errors.New("table does not exist")}
	}

	out := make([]domain.Record, 0, len(table.order))
	for _, key := range table.order {
		record := domain.Record{}
		for col, v := range table.rows[key] {
			record[col] = v
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *MemoryTableStore) Select(context.Context, string) (*domain.Frame, error) {
	return nil, domain.StorageError{
		Op:  "projection query",
		Err: errors.New("memory store does not support projection queries"),
	}
}
