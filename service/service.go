package service

import (
	"fmt"

	"github.com/kjk/dumpbuf/filedb"
	"github.com/kjk/dumpbuf/record"
)

// InvalidQueryError is returned for queries with a wrong combination of arguments
type InvalidQueryError struct {
	Query  any
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query %+v: %s", e.Query, e.Reason)
}

type AddQuery struct {
	Key   string
	Value string
}

// Add stores a new record. Key and value can't contain delimiters
// used by the database file format.
func Add(repo record.Repository, q AddQuery) error {
	if err := filedb.ValidateKey(q.Key); err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	if err := filedb.ValidateText(q.Value); err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	return repo.Add(record.New(q.Key, q.Value))
}

type GetQuery struct {
	Key string
}

func Get(repo record.Repository, q GetQuery) (record.Record, error) {
	return repo.Get(q.Key)
}

type ListQuery struct {
	KeysOnly bool
}

// ListResult has Keys if KeysOnly was requested, Records otherwise
type ListResult struct {
	KeysOnly bool
	Keys     []string
	Records  []record.Record
}

func List(repo record.Repository, q ListQuery) (*ListResult, error) {
	records, err := repo.All()
	if err != nil {
		return nil, err
	}
	if q.KeysOnly {
		return &ListResult{KeysOnly: true, Keys: record.Keys(records)}, nil
	}
	return &ListResult{Records: records}, nil
}

// DeleteQuery must have exactly one of Key or All
type DeleteQuery struct {
	Key string
	All bool
}

// Delete removes one record or all of them.
// Returns a message describing what was done.
func Delete(repo record.Repository, q DeleteQuery) (string, error) {
	if q.All && q.Key != "" {
		return "", &InvalidQueryError{Query: q, Reason: "key and all are mutually exclusive"}
	}
	if q.All {
		if err := repo.Clear(); err != nil {
			return "", err
		}
		return "All records were removed!", nil
	}
	if q.Key == "" {
		return "", &InvalidQueryError{Query: q, Reason: "query should have key or all specified"}
	}
	if err := repo.Remove(q.Key); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed record with key %q", q.Key), nil
}
