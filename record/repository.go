package record

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kjk/dumpbuf/filedb"
)

var (
	_ Repository = &FileRepository{}
	_ Repository = &MemoryRepository{}
)

// FileRepository stores records in filedb.DB.
// Caller owns the DB and must Close() it to persist changes.
type FileRepository struct {
	db *filedb.DB
}

func NewFileRepository(db *filedb.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Add(rec Record) error {
	return r.db.Add(rec.Key, rec.Value)
}

func (r *FileRepository) Get(key string) (Record, error) {
	v, err := r.db.Get(key)
	if err != nil {
		return Record{}, err
	}
	return New(key, v), nil
}

func (r *FileRepository) Remove(key string) error {
	return r.db.Remove(key)
}

func (r *FileRepository) All() ([]Record, error) {
	pairs, err := r.db.All()
	if err != nil {
		return nil, err
	}
	res := make([]Record, len(pairs))
	for i, p := range pairs {
		res[i] = New(p.Key, p.Value)
	}
	return res, nil
}

func (r *FileRepository) Clear() error {
	return r.db.Clear()
}

// MemoryRepository keeps records in memory, for tests.
// Data is lost when the process exits.
type MemoryRepository struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		data: map[string]string{},
	}
}

func (r *MemoryRepository) Add(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[rec.Key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, rec.Key)
	}
	r.data[rec.Key] = rec.Value
	return nil
}

func (r *MemoryRepository) Get(key string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return New(key, v), nil
}

func (r *MemoryRepository) Remove(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[key]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	delete(r.data, key)
	return nil
}

func (r *MemoryRepository) All() ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Record, 0, len(r.data))
	for k, v := range r.data {
		res = append(res, New(k, v))
	}
	slices.SortFunc(res, func(a, b Record) int {
		return strings.Compare(a.Key, b.Key)
	})
	return res, nil
}

func (r *MemoryRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.data)
	return nil
}
