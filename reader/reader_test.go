package reader_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/exporter"
	"github.com/CZ-NIC/go-cdns/reader"
	"github.com/CZ-NIC/go-cdns/stream"
	"github.com/CZ-NIC/go-cdns/timestamp"
)

func writeSample(t *testing.T, path string) {
	t.Helper()

	preamble := block.NewFilePreamble()

	exp, err := exporter.New(stream.Gzip, stream.FileTarget(path), preamble)
	require.NoError(t, err)

	addrIdx := 0

	_, err = exp.BufferQR(block.QueryResponse{
		Time:               timestamp.New(1_700_000_000, 500_000),
		ClientAddressIndex: addrIdx,
		HasClientAddress:   true,
	})
	require.NoError(t, err)

	_, err = exp.BufferAEC(0, 1, 0, false, 2)
	require.NoError(t, err)
	require.NoError(t, exp.Close())
}

func TestReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cdns")
	writeSample(t, path)

	r, err := reader.New(stream.Gzip, stream.FileReadTarget(path+".gz"))
	require.NoError(t, err)
	require.EqualValues(t, 1, r.Preamble.MajorVersion)

	blk, eof, err := r.ReadBlock()
	require.NoError(t, err)
	require.False(t, eof)

	qr, end := blk.ReadGenericQR()
	require.False(t, end)
	require.True(t, qr.HasClientAddress)

	aec, end := blk.ReadGenericAEC()
	require.False(t, end)
	require.EqualValues(t, 2, aec.Count)

	_, eof, err = r.ReadBlock()
	require.NoError(t, err)
	require.True(t, eof)
}

func TestReaderRejectsWrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cdns")

	preamble := block.NewFilePreamble()
	preamble.MajorVersion = 99

	exp, err := exporter.New(stream.Plain, stream.FileTarget(path), preamble)
	require.NoError(t, err)
	require.NoError(t, exp.Close())

	_, err = reader.New(stream.Plain, stream.FileReadTarget(path))
	require.Error(t, err)
}
