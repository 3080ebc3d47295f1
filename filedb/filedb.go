package filedb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/kjk/dumpbuf/atomicfile"
	"github.com/kjk/dumpbuf/log"
)

// Pair is a key / value stored in the database
type Pair struct {
	Key   string
	Value string
}

// DB is a key / value database backed by a single file.
// It's read in Open and written in Close.
type DB struct {
	path string
	// path with symlinks resolved, the file we write to
	realPath string

	mu       sync.Mutex
	data     map[string]string
	closed   bool
	closeErr error
}

// readOrCreate returns content of the file at path.
// If the file doesn't exist, it creates an empty file.
func readOrCreate(path string) ([]byte, error) {
	st, err := os.Stat(path)
	if err == nil {
		if !st.Mode().IsRegular() {
			return nil, &IOError{Op: "open", Path: path, Err: ErrNotRegularFile}
		}
		d, err := os.ReadFile(path)
		if err != nil {
			return nil, &IOError{Op: "read", Path: path, Err: err}
		}
		return d, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}

	log.Logf("Creating database file at %s\n", path)
	if err = os.MkdirAll(filepath.Dir(path), 0755); err == nil {
		err = os.WriteFile(path, nil, 0600)
	}
	if err != nil {
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}
	return nil, nil
}

// Open loads the database from path
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, &IOError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	d, err := readOrCreate(path)
	if err != nil {
		return nil, err
	}
	// Close replaces the file with rename, which would replace a symlink
	// instead of writing to its target
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	if realPath != path {
		log.Verbosef("filedb: %s is a link to %s\n", path, realPath)
	}
	data, err := Parse(d)
	if err != nil {
		return nil, fmt.Errorf("failed to load '%s': %w", path, err)
	}
	log.Verbosef("filedb: loaded %d records from %s\n", len(data), path)
	return &DB{
		path:     path,
		realPath: realPath,
		data:     data,
	}, nil
}

// Path returns path of the database file
func (db *DB) Path() string {
	return db.path
}

// Add adds a new record. It never over-writes existing value.
func (db *DB) Add(key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if _, ok := db.data[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	db.data[key] = value
	return nil
}

func (db *DB) Get(key string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return "", ErrClosed
	}
	v, ok := db.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return v, nil
}

func (db *DB) Remove(key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if _, ok := db.data[key]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	delete(db.data, key)
	return nil
}

// All returns a copy of all records, sorted by key
func (db *DB) All() ([]Pair, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}
	res := make([]Pair, 0, len(db.data))
	for k, v := range db.data {
		res = append(res, Pair{Key: k, Value: v})
	}
	slices.SortFunc(res, func(a, b Pair) int {
		return strings.Compare(a.Key, b.Key)
	})
	return res, nil
}

// Clear removes all records
func (db *DB) Clear() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	clear(db.data)
	return nil
}

func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.data)
}

// Close writes all records to the file, over-writing it.
// The file is always written, even if nothing changed.
// Can be called multiple times to make it easier to use via defer,
// subsequent calls return the result of the first call.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return db.closeErr
	}
	db.closed = true

	d := Serialize(db.data)
	if err := atomicfile.WriteFile(db.realPath, d); err != nil {
		db.closeErr = &IOError{Op: "write", Path: db.realPath, Err: err}
		return db.closeErr
	}
	log.Verbosef("filedb: wrote %d records to %s\n", len(db.data), db.realPath)
	return nil
}
