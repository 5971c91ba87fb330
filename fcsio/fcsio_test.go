package fcsio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowstd/fcs"
	"github.com/flowstd/fcs/fcsio"
)

func sampleFile(t *testing.T) []byte {
	t.Helper()
	var buf []byte
	w := &sliceWriter{buf: &buf}
	channels := []fcs.Parameter{{ShortName: "A", Range: 1024}, {ShortName: "B", Range: 1024}}
	require.NoError(t, fcs.Write(w, []float64{1, 2, 3, 4}, channels))
	return buf
}

type sliceWriter struct{ buf *[]byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

func TestOpenPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.fcs")
	require.NoError(t, os.WriteFile(path, sampleFile(t), 0o644))

	f, err := fcsio.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := fcs.Read(f)
	require.NoError(t, err)
	require.Equal(t, 2, ds.EventCount)
}

func TestCreateAndOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fcs")

	f, err := fcsio.Create(path)
	require.NoError(t, err)
	channels := []fcs.Parameter{{ShortName: "A", Range: 1024}}
	require.NoError(t, fcs.Write(f, []float64{1, 2, 3}, channels))
	require.NoError(t, f.Close())

	src, closer, err := fcsio.OpenAuto(path)
	require.NoError(t, err)
	defer closer.Close()

	ds, err := fcs.Read(src)
	require.NoError(t, err)
	require.Equal(t, 3, ds.EventCount)
}

func TestCreateGzipAndOpenAutoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fcs.gz")

	w, err := fcsio.CreateGzip(path)
	require.NoError(t, err)
	channels := []fcs.Parameter{{ShortName: "A", Range: 1024}}
	require.NoError(t, fcs.Write(w, []float64{1, 2, 3, 4, 5}, channels))
	require.NoError(t, w.Close())

	src, closer, err := fcsio.OpenAuto(path)
	require.NoError(t, err)
	defer closer.Close()

	ds, err := fcs.Read(src)
	require.NoError(t, err)
	require.Equal(t, 5, ds.EventCount)
}

func TestCreateLZ4AndOpenAutoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fcs.lz4")

	w, err := fcsio.CreateLZ4(path)
	require.NoError(t, err)
	channels := []fcs.Parameter{{ShortName: "A", Range: 1024}}
	require.NoError(t, fcs.Write(w, []float64{1, 2, 3}, channels))
	require.NoError(t, w.Close())

	src, closer, err := fcsio.OpenAuto(path)
	require.NoError(t, err)
	defer closer.Close()

	ds, err := fcs.Read(src)
	require.NoError(t, err)
	require.Equal(t, 3, ds.EventCount)
}
