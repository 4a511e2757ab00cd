package exporter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/exporter"
	"github.com/CZ-NIC/go-cdns/reader"
	"github.com/CZ-NIC/go-cdns/stream"
	"github.com/CZ-NIC/go-cdns/timestamp"
)

func TestExporterWritesPreambleAndFlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.cdns")

	preamble := block.NewFilePreamble()

	exp, err := exporter.New(stream.Plain, stream.FileTarget(path), preamble)
	require.NoError(t, err)

	_, err = exp.BufferQR(block.QueryResponse{
		Time: timestamp.New(1_700_000_000, 0),
	})
	require.NoError(t, err)

	require.NoError(t, exp.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestExporterAutoFlushesFullBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.cdns")

	preamble := block.NewFilePreamble()

	exp, err := exporter.New(stream.Plain, stream.FileTarget(path), preamble, exporter.WithMaxBlockItems(2))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := exp.BufferQR(block.QueryResponse{
			Time: timestamp.New(uint64(1_700_000_000+i), 0),
		})
		require.NoError(t, err)
	}

	require.NoError(t, exp.Close())

	r, err := reader.New(stream.Plain, stream.FileReadTarget(path))
	require.NoError(t, err)

	total := 0

	for {
		blk, eof, err := r.ReadBlock()
		require.NoError(t, err)

		if eof {
			break
		}

		for {
			_, end := blk.ReadGenericQR()
			if end {
				break
			}

			total++
		}
	}

	require.Equal(t, 5, total)
}

func TestExporterRotateOutput(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "seg1.cdns")
	path2 := filepath.Join(dir, "seg2.cdns")

	preamble := block.NewFilePreamble()

	exp, err := exporter.New(stream.Plain, stream.FileTarget(path1), preamble)
	require.NoError(t, err)

	_, err = exp.BufferQR(block.QueryResponse{Time: timestamp.New(1_700_000_000, 0)})
	require.NoError(t, err)

	n, err := exp.RotateOutput(stream.Plain, stream.FileTarget(path2), true)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	_, err = exp.BufferQR(block.QueryResponse{Time: timestamp.New(1_700_000_010, 0)})
	require.NoError(t, err)
	require.NoError(t, exp.Close())

	for _, p := range []string{path1, path2} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		require.NotEmpty(t, data)
	}
}
