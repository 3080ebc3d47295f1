// Package snapshot exports records to a portable archive and imports
// them back, from a local file or an http(s) url.
//
// Archive is a sequence of siser records named "record", each with
// "key" and "value" entries. Files ending in .zst or .br are compressed.
// Import also accepts a plain database file in filedb format.
package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/kjk/dumpbuf/atomicfile"
	"github.com/kjk/dumpbuf/filedb"
	"github.com/kjk/dumpbuf/record"
	"github.com/kjk/dumpbuf/siser"

	"github.com/carlmjohnson/requests"
)

const recordName = "record"

// Write writes records to w in archive format
func Write(w io.Writer, records []record.Record, t time.Time) error {
	sw := siser.NewWriter(w)
	for _, r := range records {
		rec := &siser.Record{Name: recordName, Timestamp: t}
		if err := rec.Append("key", r.Key, "value", r.Value); err != nil {
			return err
		}
		if _, err := sw.WriteRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

// Read reads records written with Write
func Read(r io.Reader) ([]record.Record, error) {
	sr := siser.NewReader(bufio.NewReader(r))
	var res []record.Record
	for sr.ReadNextRecord() {
		rec := sr.Record
		if rec.Name != recordName {
			return nil, fmt.Errorf("unexpected record '%s'", rec.Name)
		}
		k, ok := rec.Get("key")
		if !ok {
			return nil, fmt.Errorf("record without a key")
		}
		v, _ := rec.Get("value")
		res = append(res, record.New(k, v))
	}
	if err := sr.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Decode decodes uncompressed archive or database file.
// Content with KVSep is a database file, unless it doesn't parse as one
// and looks like an archive. A database file can start with "--- "
// if that's how its first key starts.
func Decode(d []byte) ([]record.Record, error) {
	if len(d) == 0 {
		return nil, nil
	}
	isArchive := bytes.HasPrefix(d, []byte("--- "))
	if !bytes.Contains(d, []byte(filedb.KVSep)) {
		if isArchive {
			return Read(bytes.NewReader(d))
		}
		return nil, fmt.Errorf("not an archive or database file")
	}
	m, err := filedb.Parse(d)
	if err != nil {
		if isArchive {
			return Read(bytes.NewReader(d))
		}
		return nil, err
	}
	res := make([]record.Record, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		res = append(res, record.New(k, m[k]))
	}
	return res, nil
}

// Encode returns records in archive format, compressed with c
func Encode(records []record.Record, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, records, time.Now()); err != nil {
		return nil, err
	}
	return Compress(c, buf.Bytes())
}

// ExportFile writes records to path. Compression is based on file extension.
func ExportFile(path string, records []record.Record) error {
	d, err := Encode(records, CompressionFromName(path))
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, d)
}

// ImportFile reads records from archive or database file at path
func ImportFile(path string) ([]record.Record, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err = Decompress(CompressionFromName(path), d)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress '%s': %w", path, err)
	}
	return Decode(d)
}

// Fetch downloads archive or database file from http(s) url.
// If client is nil, http.DefaultClient is used.
func Fetch(ctx context.Context, client *http.Client, uri string) ([]record.Record, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	rb := requests.URL(uri).ToBytesBuffer(&buf)
	if client != nil {
		rb = rb.Client(client)
	}
	err = rb.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	d, err := Decompress(CompressionFromName(u.Path), buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to decompress '%s': %w", uri, err)
	}
	return Decode(d)
}

// IsURL returns true if s should be downloaded with Fetch
func IsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
