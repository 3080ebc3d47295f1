package snapshot

import (
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression is picked based on file extension
type Compression int

const (
	None Compression = iota
	Zstd
	Brotli
)

func (c Compression) String() string {
	switch c {
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	}
	return "none"
}

// CompressionFromName returns compression for file name or url path
func CompressionFromName(name string) Compression {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".zst", ".zstd":
		return Zstd
	case ".br":
		return Brotli
	}
	return None
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func zstdCompress(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	// zstd.SpeedBestCompression is much slower and not much better
	w, err := zstd.NewWriter(&dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	_, err = w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func zstdDecompress(d []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(d))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func brCompress(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	w := brotli.NewWriterLevel(&dst, brotli.BestCompression)
	_, err := w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func Compress(c Compression, d []byte) ([]byte, error) {
	switch c {
	case Zstd:
		return zstdCompress(d)
	case Brotli:
		return brCompress(d)
	}
	return d, nil
}

func Decompress(c Compression, d []byte) ([]byte, error) {
	switch c {
	case Zstd:
		return zstdDecompress(d)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(d)))
	}
	return d, nil
}
