package siser

import (
	"io"
	"strconv"
	"sync"
	"time"
)

var hdrPrefix = []byte("--- ")

// Writer writes framed blocks of data
type Writer struct {
	w io.Writer
	// NoTimestamp disables writing timestamp, which
	// makes serialized data not depend on when they were written
	NoTimestamp bool

	mu sync.Mutex
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w: w,
	}
}

// WriteRecord writes a record. Returns number of bytes written.
func (w *Writer) WriteRecord(r *Record) (int, error) {
	return w.Write(r.Marshal(), r.Timestamp, r.Name)
}

// Write writes a block of data with optional timestamp and name.
// If t is zero, current time is used (unless NoTimestamp is set).
func (w *Writer) Write(d []byte, t time.Time, name string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.NoTimestamp {
		t = time.Time{}
	} else if t.IsZero() {
		t = time.Now()
	}
	return w.w.Write(MarshalLine(name, t, d))
}

// MarshalLine frames d as:
// "--- ${len} ${timestamp_in_unix_epoch_ms} ${name}\n${d}\n"
// If t is zero, timestamp is not written. Name is optional.
// The trailing '\n' is only added if d doesn't end with one.
func MarshalLine(name string, t time.Time, d []byte) []byte {
	// it's ok to estimate more, estimating less will require an alloc
	res := make([]byte, 0, len(hdrPrefix)+len(name)+len(d)+32)
	res = append(res, hdrPrefix...)
	res = strconv.AppendInt(res, int64(len(d)), 10)
	if !t.IsZero() {
		res = append(res, ' ')
		res = strconv.AppendInt(res, TimeToUnixMillisecond(t), 10)
	}
	if name != "" {
		res = append(res, ' ')
		res = append(res, name...)
	}
	res = append(res, '\n')
	if n := len(d); n > 0 {
		res = append(res, d...)
		if d[n-1] != '\n' {
			res = append(res, '\n')
		}
	}
	return res
}
