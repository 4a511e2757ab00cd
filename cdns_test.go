package cdns_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	cdns "github.com/CZ-NIC/go-cdns"
	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/stream"
	"github.com/CZ-NIC/go-cdns/timestamp"
)

func TestNewExporterAndReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cdns")

	exp, err := cdns.NewExporter(stream.Plain, stream.FileTarget(path))
	require.NoError(t, err)

	_, err = exp.BufferQR(block.QueryResponse{
		Time:               timestamp.New(1_700_000_000, 0),
		ClientAddressIndex: 0,
		HasClientAddress:   true,
	})
	require.NoError(t, err)
	require.NoError(t, exp.Close())

	r, err := cdns.NewReader(stream.Plain, stream.FileReadTarget(path))
	require.NoError(t, err)
	require.EqualValues(t, 1, r.Preamble.MajorVersion)

	blk, eof, err := r.ReadBlock()
	require.NoError(t, err)
	require.False(t, eof)

	qr, end := blk.ReadGenericQR()
	require.False(t, end)
	require.True(t, qr.HasClientAddress)
}
