package siser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Reader reads blocks written by Writer
type Reader struct {
	r *bufio.Reader

	// hints that the data was written without a timestamp
	// (see Writer.NoTimestamp)
	NoTimestamp bool

	// Data / Name / Timestamp are available after ReadNextData.
	// They are over-written in next ReadNextData.
	Data      []byte
	Name      string
	Timestamp time.Time

	// Record is available after ReadNextRecord()
	Record *Record

	err  error
	done bool
}

func NewReader(r *bufio.Reader) *Reader {
	return &Reader{
		r: r,
	}
}

// Done returns true if we're finished reading from the reader
func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

func (r *Reader) parseHeader(hdr []byte) error {
	orig := hdr
	hdr = bytes.TrimPrefix(hdr, hdrPrefix)
	hdr = hdr[:len(hdr)-1] // remove '\n'

	var tsStr []byte
	sizeStr, rest, _ := bytes.Cut(hdr, []byte{' '})
	if r.NoTimestamp {
		r.Name = string(rest)
	} else {
		var name []byte
		tsStr, name, _ = bytes.Cut(rest, []byte{' '})
		r.Name = string(name)
	}

	size, err := strconv.ParseInt(string(sizeStr), 10, 64)
	if err != nil || size < 0 {
		return fmt.Errorf("unexpected header '%s'", string(orig))
	}
	r.Timestamp = time.Time{}
	if len(tsStr) > 0 {
		ms, err := strconv.ParseInt(string(tsStr), 10, 64)
		if err != nil {
			return fmt.Errorf("unexpected header '%s'", string(orig))
		}
		r.Timestamp = TimeFromUnixMillisecond(ms)
	}
	r.Data = make([]byte, size)
	return nil
}

// ReadNextData reads next block, returns false when there are no more
// blocks. If returns false, check Err() to see if there were errors.
func (r *Reader) ReadNextData() bool {
	if r.Done() {
		return false
	}
	hdr, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(hdr) == 0 {
			r.done = true
		} else if err == io.EOF {
			r.err = fmt.Errorf("truncated header '%s'", string(hdr))
		} else {
			r.err = err
		}
		return false
	}
	if r.err = r.parseHeader(hdr); r.err != nil {
		return false
	}
	if _, r.err = io.ReadFull(r.r, r.Data); r.err != nil {
		return false
	}
	// writer pads data with '\n' for readability
	n := len(r.Data)
	if n > 0 && r.Data[n-1] != '\n' {
		if _, r.err = r.r.Discard(1); r.err != nil {
			return false
		}
	}
	return true
}

// ReadNextRecord reads next block and decodes it as a Record
func (r *Reader) ReadNextRecord() bool {
	if !r.ReadNextData() {
		return false
	}
	entries, err := UnmarshalEntries(r.Data)
	if err != nil {
		r.err = err
		return false
	}
	r.Record = &Record{
		Name:      r.Name,
		Timestamp: r.Timestamp,
		Entries:   entries,
	}
	return true
}

// Err returns error from last Read. io.EOF is not an error.
func (r *Reader) Err() error {
	return r.err
}
