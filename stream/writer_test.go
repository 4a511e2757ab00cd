package stream_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZ-NIC/go-cdns/stream"
)

func TestPlainWriterPartSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")

	w, err := stream.NewWriter(stream.Plain, stream.FileTarget(path))
	require.NoError(t, err)
	require.FileExists(t, path+".part")

	_, err = w.Write([]byte("test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoFileExists(t, path+".part")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "test", string(data))
}

func TestPlainWriterRotate(t *testing.T) {
	path1 := filepath.Join(t.TempDir(), "out1")
	path2 := filepath.Join(t.TempDir(), "out2")

	w, err := stream.NewWriter(stream.Plain, stream.FileTarget(path1))
	require.NoError(t, err)

	_, err = w.Write([]byte("test"))
	require.NoError(t, err)
	require.NoError(t, w.Rotate(stream.FileTarget(path2)))

	_, err = w.Write([]byte("test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoFileExists(t, path1+".part")
	require.NoFileExists(t, path2+".part")

	data1, err := os.ReadFile(path1)
	require.NoError(t, err)
	require.Equal(t, "test", string(data1))

	data2, err := os.ReadFile(path2)
	require.NoError(t, err)
	require.Equal(t, "test", string(data2))
}

func TestGzipWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")

	w, err := stream.NewWriter(stream.Gzip, stream.FileTarget(path))
	require.NoError(t, err)
	require.FileExists(t, path+".gz.part")

	_, err = w.Write([]byte("test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoFileExists(t, path+".gz.part")

	r, err := stream.NewReader(stream.Gzip, stream.FileReadTarget(path+".gz"))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "test", string(got))
}

func TestXzWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")

	w, err := stream.NewWriter(stream.Xz, stream.FileTarget(path))
	require.NoError(t, err)
	require.FileExists(t, path+".xz.part")

	_, err = w.Write([]byte("test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoFileExists(t, path+".xz.part")

	r, err := stream.NewReader(stream.Xz, stream.FileReadTarget(path+".xz"))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "test", string(got))
}

func TestFDWriterNoRenameNoClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	w, err := stream.NewWriter(stream.Plain, stream.FDTarget(f))
	require.NoError(t, err)

	_, err = w.Write([]byte("test"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.FileExists(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "test", string(data))
}
