package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrCancelled is returned by calls subsequent to RemoveIfNotClosed()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

// File writes to a temporary file in the destination directory
// and renames it over the destination in Close().
// If anything fails, the destination is left untouched.
type File struct {
	dstPath string
	dir     string
	tmpFile *os.File
	tmpPath string
	err     error
}

// New creates new File. If dstPath already exists, the new file
// will have the same permissions, otherwise it's 0600.
func New(dstPath string) (*File, error) {
	dir, fName := filepath.Split(dstPath)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: dstPath, Err: os.ErrInvalid}
	}

	tmpFile, err := os.CreateTemp(dir, fName+".tmp*")
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(dstPath); err == nil {
		// best effort
		_ = tmpFile.Chmod(st.Mode().Perm())
	}

	return &File{
		dstPath: dstPath,
		dir:     dir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
	}, nil
}

// WriteFile is like os.WriteFile but atomic
func WriteFile(path string, d []byte) error {
	f, err := New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
}

func (f *File) handleError(err error) error {
	if err == nil {
		return nil
	}
	// remember the first error
	if f.err == nil {
		f.err = err
	}
	// delete temporary file
	_ = f.Close()
	return err
}

func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.handleError(err)
}

func (f *File) WriteString(s string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.WriteString(s)
	return n, f.handleError(err)
}

// ReadFrom makes io.Copy(f, r) write directly to the temp file
func (f *File) ReadFrom(r io.Reader) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := io.Copy(f.tmpFile, r)
	return n, f.handleError(err)
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if we didn't Close
// the file yet. Destination file will not be created.
// Use it with defer to cleanup on early returns and panics.
// RemoveIfNotClosed after Close is a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.alreadyClosed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs and closes the temp file and renames it to destination.
// Can be called multiple times, returns the first error.
func (f *File) Close() error {
	if f.alreadyClosed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}

	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = (err == nil)
		// sync directory so that rename survives a crash
		if fdir, _ := os.Open(f.dir); fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}
	f.err = err
	return err
}
