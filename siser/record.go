package siser

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

/*
A Record is a list of key/value pairs serialized in a human-readable,
line-oriented format: "key: value\n"

When value is long (> 120 chars), empty or has bytes that are not printable
ascii (e.g. '\n'), we serialize it as:
key:+$len\n
value\n
*/

type Entry struct {
	Key   string
	Value string
}

// Record is a named list of key/value pairs
type Record struct {
	Name string
	// when writing, if not provided we use current time
	Timestamp time.Time
	Entries   []Entry
}

// Append adds key/value pairs. Keys can't be empty or contain ':' or '\n'.
func (r *Record) Append(kv ...string) error {
	n := len(kv)
	if n == 0 || n%2 != 0 {
		return fmt.Errorf("invalid number of args: %d. Should be multiple of 2", n)
	}
	for i := 0; i < n; i += 2 {
		k := kv[i]
		if k == "" || bytes.ContainsAny([]byte(k), ":\n") {
			return fmt.Errorf("invalid key '%s'", k)
		}
		r.Entries = append(r.Entries, Entry{Key: k, Value: kv[i+1]})
	}
	return nil
}

// Get returns a value for a given key
func (r *Record) Get(key string) (string, bool) {
	for _, e := range r.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func serializableOnLine(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b < 32 || b > 127 {
			return false
		}
	}
	return true
}

func needsLongFormat(s string) bool {
	return len(s) == 0 || len(s) > 120 || !serializableOnLine(s)
}

func appendKeyVal(d []byte, key, val string) []byte {
	d = append(d, key...)
	if !needsLongFormat(val) {
		d = append(d, ": "...)
		d = append(d, val...)
		return append(d, '\n')
	}
	d = append(d, ":+"...)
	d = strconv.AppendInt(d, int64(len(val)), 10)
	d = append(d, '\n')
	d = append(d, val...)
	// for readability, next key always starts on a new line
	if len(val) == 0 || val[len(val)-1] != '\n' {
		d = append(d, '\n')
	}
	return d
}

// Marshal returns serialized entries
func (r *Record) Marshal() []byte {
	var d []byte
	for _, e := range r.Entries {
		d = appendKeyVal(d, e.Key, e.Value)
	}
	return d
}

// UnmarshalEntries parses data serialized with Record.Marshal
func UnmarshalEntries(d []byte) ([]Entry, error) {
	var res []Entry
	for len(d) > 0 {
		idx := bytes.IndexByte(d, '\n')
		if idx == -1 {
			return nil, fmt.Errorf("missing '\\n' at the end of '%s'", string(d))
		}
		line := d[:idx]
		d = d[idx+1:]
		key, val, ok := bytes.Cut(line, []byte{':'})
		if !ok || len(val) < 1 {
			return nil, fmt.Errorf("line in unrecognized format: '%s'", line)
		}
		kind := val[0]
		val = val[1:]
		if kind == ' ' {
			res = append(res, Entry{Key: string(key), Value: string(val)})
			continue
		}
		if kind != '+' {
			return nil, fmt.Errorf("line in unrecognized format: '%s'", line)
		}

		n, err := strconv.Atoi(string(val))
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("negative length %d of data", n)
		}
		if n > len(d) {
			return nil, fmt.Errorf("length of value %d greater than remaining data of size %d", n, len(d))
		}
		res = append(res, Entry{Key: string(key), Value: string(d[:n])})
		d = d[n:]
		// optional newline added for readability
		if len(d) > 0 && d[0] == '\n' {
			d = d[1:]
		}
	}
	return res, nil
}
