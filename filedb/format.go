package filedb

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// KVSep separates key from value within a record
	KVSep = "|>!<|"
	// LineSentinel marks the end of a record. It's always followed by '\n'
	LineSentinel = "|<!>|"
	// LineTerm is what ends every record in the file
	LineTerm = LineSentinel + "\n"
)

// ValidateText returns ErrReservedSequence if s can't be stored
// without corrupting the file
func ValidateText(s string) error {
	if strings.Contains(s, KVSep) {
		return fmt.Errorf("%q %w %q", s, ErrReservedSequence, KVSep)
	}
	if strings.Contains(s, LineSentinel) {
		return fmt.Errorf("%q %w %q", s, ErrReservedSequence, LineSentinel)
	}
	return nil
}

// ValidateKey is like ValidateText but also rejects empty keys and keys
// that end with "|>!<". Followed by KVSep, such key would be split
// at the wrong place.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ValidateText(key); err != nil {
		return err
	}
	if strings.HasSuffix(key, KVSep[:len(KVSep)-1]) {
		return fmt.Errorf("%q %w %q", key, ErrReservedSequence, KVSep)
	}
	return nil
}

func parseLine(line string) (string, string, string) {
	n := strings.Count(line, KVSep)
	if n == 0 {
		return "", "", "missing key/value separator"
	}
	if n > 1 {
		return "", "", fmt.Sprintf("%d key/value separators, expected 1", n)
	}
	k, v, _ := strings.Cut(line, KVSep)
	return k, v, ""
}

// Parse parses the content of database file.
// It's all or nothing: the first malformed record fails the parse.
func Parse(d []byte) (map[string]string, error) {
	res := map[string]string{}
	s := string(d)
	lineNo := 0
	for len(s) > 0 {
		lineNo++
		idx := strings.Index(s, LineTerm)
		if idx < 0 {
			return nil, &ParseError{Line: lineNo, Text: s, Reason: "missing line terminator"}
		}
		line := s[:idx]
		s = s[idx+len(LineTerm):]

		k, v, reason := parseLine(line)
		if reason != "" {
			return nil, &ParseError{Line: lineNo, Text: line, Reason: reason}
		}
		// repeated key is not an error, the last value wins
		res[k] = v
	}
	return res, nil
}

// AppendRecord appends serialized key / value to d
func AppendRecord(d []byte, key, value string) []byte {
	d = append(d, key...)
	d = append(d, KVSep...)
	d = append(d, value...)
	return append(d, LineTerm...)
}

// Serialize returns content of database file for m.
// Records are sorted by key so that the output is deterministic.
func Serialize(m map[string]string) []byte {
	keys := make([]string, 0, len(m))
	size := 0
	for k, v := range m {
		keys = append(keys, k)
		size += len(k) + len(v) + len(KVSep) + len(LineTerm)
	}
	slices.Sort(keys)
	d := make([]byte, 0, size)
	for _, k := range keys {
		d = AppendRecord(d, k, m[k])
	}
	return d
}
