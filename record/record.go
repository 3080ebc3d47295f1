// Package record defines Record and Repository, the storage interface
// used by the service layer, with a file-backed and in-memory implementation.
package record

import (
	"fmt"

	"github.com/kjk/dumpbuf/filedb"
)

// errors returned by both implementations of Repository,
// check with errors.Is()
var (
	ErrNotFound     = filedb.ErrNotFound
	ErrDuplicateKey = filedb.ErrDuplicateKey
)

// Record is a snippet stored under a key
type Record struct {
	Key   string `json:"key" yaml:"key" toon:"key"`
	Value string `json:"value" yaml:"value" toon:"value"`
}

func New(key, value string) Record {
	return Record{Key: key, Value: value}
}

func (r Record) String() string {
	return fmt.Sprintf("{ key: %s, value: %s }", r.Key, r.Value)
}

// Keys returns keys of records, in the same order
func Keys(records []Record) []string {
	res := make([]string, len(records))
	for i, r := range records {
		res[i] = r.Key
	}
	return res
}

// Repository stores records. Add never over-writes an existing record.
type Repository interface {
	Add(r Record) error
	Get(key string) (Record, error)
	Remove(key string) error
	All() ([]Record, error)
	Clear() error
}
