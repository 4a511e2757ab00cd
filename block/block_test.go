package block_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/cbor"
	"github.com/CZ-NIC/go-cdns/timestamp"
)

func TestInternTableDedup(t *testing.T) {
	table := block.NewInternTable(func(s string) string { return s })

	idx1 := table.Add("example.com")
	idx2 := table.Add("example.net")
	idx3 := table.Add("example.com")

	require.Equal(t, 0, idx1)
	require.Equal(t, 1, idx2)
	require.Equal(t, idx1, idx3)
	require.Equal(t, 2, table.Len())

	found, ok := table.Find("example.com")
	require.True(t, ok)
	require.Equal(t, 0, found)

	_, ok = table.Find("example.org")
	require.False(t, ok)
}

func TestInternTableWireIndex(t *testing.T) {
	require.EqualValues(t, 1, block.WireIndex(0))
	require.EqualValues(t, 0, block.WireIndexOptional(0, false))
	require.EqualValues(t, 5, block.WireIndexOptional(4, true))

	idx, ok := block.FromWireIndex(0)
	require.False(t, ok)
	require.Equal(t, 0, idx)

	idx, ok = block.FromWireIndex(3)
	require.True(t, ok)
	require.Equal(t, 2, idx)
}

func TestBlockAddressEventCountCoalescing(t *testing.T) {
	b := block.NewBlock(0, 0, 1_000_000)

	b.AddAddressEventCount(0, 1, 5, true, 1)
	b.AddAddressEventCount(0, 1, 5, true, 1)
	b.AddAddressEventCount(0, 1, 6, true, 1)

	require.Equal(t, 2, b.GetItemCount())
}

func TestBlockWriteReadRoundTrip(t *testing.T) {
	b := block.NewBlock(0, 0, 1_000_000)

	base := timestamp.New(1_600_000_000, 0)
	addrIdx := b.AddIPAddress([]byte{192, 0, 2, 1})
	nameIdx := b.AddNameOrRdata([]byte("\x07example\x03com\x00"))
	ctIdx := b.AddClassType(block.ClassType{Type: 1, Class: 1})

	sigIdx := b.AddQuerySignature(block.QuerySignature{
		QRTransportFlags: 0,
		QRType:           0,
		QRSigFlags:       0,
		QRDNSFlags:       0,
	})

	b.AddQueryResponse(block.QueryResponse{
		Time:               base.AddTimeOffset(2_000_000, 1_000_000),
		ClientAddressIndex: addrIdx,
		HasClientAddress:   true,
		QueryNameIndex:     nameIdx,
		HasQueryName:       true,
		QRSignatureIndex:   sigIdx,
		HasQRSignature:     true,
	})
	_ = ctIdx

	b.AddAddressEventCount(0, 1, addrIdx, true, 3)

	var buf bytes.Buffer

	enc := cbor.NewEncoder(&buf)
	n, err := b.Write(enc)
	require.NoError(t, err)
	require.NoError(t, enc.Err())
	require.Equal(t, buf.Len(), n)

	dec := cbor.NewDecoder(&buf)
	r, err := block.ReadBlock(dec)
	require.NoError(t, err)
	r.SetTicksPerSecond(1_000_000)

	require.Equal(t, 0, r.BlockParametersIndex)
	require.Len(t, r.IPAddress, 1)
	require.Equal(t, []byte{192, 0, 2, 1}, r.IPAddress[0])
	require.Len(t, r.QuerySig, 1)

	qr, end := r.ReadGenericQR()
	require.False(t, end)
	require.True(t, qr.HasClientAddress)
	require.Equal(t, addrIdx, qr.ClientAddressIndex)

	_, end = r.ReadGenericQR()
	require.True(t, end)

	aec, end := r.ReadGenericAEC()
	require.False(t, end)
	require.EqualValues(t, 3, aec.Count)

	addr, err := r.ResolveIPAddress(qr.ClientAddressIndex)
	require.NoError(t, err)
	require.Equal(t, []byte{192, 0, 2, 1}, addr)

	_, err = r.ResolveIPAddress(99)
	require.Error(t, err)
}
