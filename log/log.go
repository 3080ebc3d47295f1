package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/dumpbuf/siser"

	"github.com/toon-format/toon-go"
)

var (
	log       *WriteDaily
	eventsLog *WriteDaily

	// Output is where Logf() prints. Results of commands go to stdout
	// so logs go to stderr by default.
	Output io.Writer = os.Stderr

	// if true, Verbosef() will log messages
	Verbose bool
)

type WriteDaily struct {
	Dir         string
	currentDate int // YYYYMMDD format
	file        *os.File
	mu          sync.Mutex
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

// WriteString writes a string to the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) WriteString(s string) error {
	return w.Write([]byte(s))
}

func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Writer returns an io.Writer for today's log file
// it creates a new file if needed
func (w *WriteDaily) Writer() (io.Writer, error) {
	if w == nil {
		return nil, fmt.Errorf("w is nil")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	today := dayFromTime(now)

	if w.file != nil && w.currentDate != today {
		if err := w.close(); err != nil {
			return nil, err
		}
	}

	if w.file == nil {
		name := now.Format("2006-01-02") + ".txt"
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filepath.Join(w.Dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w.file = f
		w.currentDate = today
	}
	return w.file, nil
}

// Write writes data to the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	wr, err := w.Writer()
	if err != nil {
		return err
	}
	_, err = wr.Write(d)
	return err
}

func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.currentDate = 0
	return err
}

// Close closes the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.close()
}

// Sync flushes the daily log file to disk
// it's safe to call on nil receiver
func (w *WriteDaily) Sync() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Sync()
	}
	return nil
}

type Config struct {
	// directory where log files are stored, each log type
	// (regular, event) has its own subdirectory.
	// If empty, we only log to Output
	Dir     string
	Verbose bool
}

// Init initializes the logging system
func Init(config *Config) {
	Verbose = config.Verbose
	if config.Dir == "" {
		return
	}
	log = NewWriteDaily(filepath.Join(config.Dir, "log"))
	// files are created lazily so if we don't log events, it's a no-op
	eventsLog = NewWriteDaily(filepath.Join(config.Dir, "events"))
}

// CloseWriteDaily closes the WriteDaily and sets its pointer to nil
// it's safe to call with nil pointer
func CloseWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	(*wd).Sync()
	(*wd).Close()
	*wd = nil
}

func Close() {
	CloseWriteDaily(&log)
	CloseWriteDaily(&eventsLog)
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if Output != nil {
		fmt.Fprint(Output, s)
	}
	log.WriteString(s)
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(1)
	Logf("%s\n%s\n", s, cs)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf(err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf(s)
	return true
}

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	rt := reflect.TypeOf(v)
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// MarshalEvent returns event encoded as toon payload inside siser frame
func MarshalEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("odd number of values: %d", n)
	}
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			k := simpleTypeToStr(vals[i])
			m[k] = vals[i+1]
		}
		var err error
		d, err = toon.Marshal(m)
		if err != nil {
			return nil, err
		}
	}
	return siser.MarshalLine(name, t, d), nil
}

// Event logs event to events log
func Event(name string, vals ...any) {
	if eventsLog == nil {
		return
	}
	d, err := MarshalEvent(name, time.Now().UTC(), vals...)
	if IfErrf(err) {
		return
	}
	IfErrf(eventsLog.Write(d))
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
