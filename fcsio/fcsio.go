// Package fcsio adapts the fcs package's ByteSource/io.Writer contracts to
// on-disk files, including the transparent-archival convenience of
// decompressing/compressing gzip and LZ4 sidecar formats so callers don't
// have to stage a decompressed copy themselves.
package fcsio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

// Open opens path as a plain, uncompressed FCS file. The returned
// *os.File satisfies fcs.ByteSource directly; the caller is responsible
// for closing it.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fcsio: opening %s: %w", path, err)
	}
	return f, nil
}

// OpenAuto opens path, transparently decompressing it first if its name
// ends in ".gz" or ".lz4". Because fcs.Read/ReadMultiple need to seek
// (TEXT, DATA, and ANALYSIS are read out of line order), a compressed
// source is decompressed fully into memory and wrapped in a
// *bytes.Reader; a plain file is likewise read fully into memory.
//
// The file is already closed when OpenAuto returns, so the returned
// io.Closer is a no-op.
func OpenAuto(path string) (*bytes.Reader, io.Closer, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return openCompressed(path, func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) })
	case strings.HasSuffix(path, ".lz4"):
		return openCompressed(path, func(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil })
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("fcsio: opening %s: %w", path, err)
		}
		data, err := io.ReadAll(f)
		closeErr := f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("fcsio: reading %s: %w", path, err)
		}
		if closeErr != nil {
			return nil, nil, closeErr
		}
		return bytes.NewReader(data), io.NopCloser(nil), nil
	}
}

func openCompressed(path string, wrap func(io.Reader) (io.Reader, error)) (*bytes.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("fcsio: opening %s: %w", path, err)
	}
	defer f.Close()

	zr, err := wrap(f)
	if err != nil {
		return nil, nil, fmt.Errorf("fcsio: decompressing %s: %w", path, err)
	}
	if closer, ok := zr.(io.Closer); ok {
		defer closer.Close()
	}

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, nil, fmt.Errorf("fcsio: decompressing %s: %w", path, err)
	}
	return bytes.NewReader(data), io.NopCloser(nil), nil
}

// Create creates (or truncates) path and returns it for an uncompressed
// fcs.Write.
func Create(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("fcsio: creating %s: %w", path, err)
	}
	return f, nil
}

// gzipWriteCloser closes the gzip writer before the underlying file so
// the trailer is flushed.
type gzipWriteCloser struct {
	zw *gzip.Writer
	f  *os.File
}

func (g *gzipWriteCloser) Write(p []byte) (int, error) { return g.zw.Write(p) }

func (g *gzipWriteCloser) Close() error {
	if err := g.zw.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

// CreateGzip creates path and returns a writer that gzip-compresses
// everything written to it. The caller must Close it to flush the gzip
// trailer.
func CreateGzip(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("fcsio: creating %s: %w", path, err)
	}
	return &gzipWriteCloser{zw: gzip.NewWriter(f), f: f}, nil
}

type lz4WriteCloser struct {
	zw *lz4.Writer
	f  *os.File
}

func (l *lz4WriteCloser) Write(p []byte) (int, error) { return l.zw.Write(p) }

func (l *lz4WriteCloser) Close() error {
	if err := l.zw.Close(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

// CreateLZ4 creates path and returns a writer that LZ4-compresses
// everything written to it. The caller must Close it to flush the final
// frame.
func CreateLZ4(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("fcsio: creating %s: %w", path, err)
	}
	return &lz4WriteCloser{zw: lz4.NewWriter(f), f: f}, nil
}
