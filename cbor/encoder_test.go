package cbor_test

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZ-NIC/go-cdns/cbor"
)

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)

	return b
}

func TestEncoderPrimitives(t *testing.T) {
	var buf bytes.Buffer

	e := cbor.NewEncoder(&buf)
	require.NoError(t, e.WriteIndefArrayStart())
	require.NoError(t, e.WriteUint8(64))
	require.NoError(t, e.WriteUint16(65128))
	require.NoError(t, e.WriteUint32(512256))
	require.NoError(t, e.WriteUint64(6512365425))
	require.NoError(t, e.WriteInt8(-64))
	require.NoError(t, e.WriteInt16(-24512))
	require.NoError(t, e.WriteInt32(-128652))
	require.NoError(t, e.WriteInt64(-6512365425))
	require.NoError(t, e.WriteBreak())
	require.NoError(t, e.Err())

	want := decodeHex(t, "9F 18 40 19 FE 68 1A 00 07 D1 00 1B 00 00 00 01 84 2A CF 71 38 3F 39 5F BF 3A 00 01 F6 8B 3B 00 00 00 01 84 2A CF 70 FF")
	require.Equal(t, want, buf.Bytes())
}

func TestEncoderMapStart(t *testing.T) {
	var buf bytes.Buffer

	e := cbor.NewEncoder(&buf)
	require.NoError(t, e.WriteMapStart(0))
	require.NoError(t, e.WriteIndefMapStart())
	require.NoError(t, e.WriteBreak())

	want := decodeHex(t, "A0 BF FF")
	require.Equal(t, want, buf.Bytes())
}

func TestEncoderArrayStart(t *testing.T) {
	var buf bytes.Buffer

	e := cbor.NewEncoder(&buf)
	require.NoError(t, e.WriteArrayStart(1))
	require.NoError(t, e.WriteIndefArrayStart())
	require.NoError(t, e.WriteBreak())

	want := decodeHex(t, "81 9F FF")
	require.Equal(t, want, buf.Bytes())
}

func TestEncoderPoisonsOnFirstError(t *testing.T) {
	e := cbor.NewEncoder(&failingWriter{})

	err := e.WriteUint8(1)
	require.Error(t, err)
	require.Equal(t, err, e.Err())

	err2 := e.WriteUint8(2)
	require.Equal(t, err, err2)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, bytes.ErrTooLarge
}

func TestEncoderBytestringAndTextstring(t *testing.T) {
	var buf bytes.Buffer

	e := cbor.NewEncoder(&buf)
	require.NoError(t, e.WriteBytestring([]byte("test")))
	require.NoError(t, e.WriteTextstring("test"))

	want := decodeHex(t, "44 74 65 73 74 64 74 65 73 74")
	require.Equal(t, want, buf.Bytes())
}

func TestEncoderTag(t *testing.T) {
	var buf bytes.Buffer

	e := cbor.NewEncoder(&buf)
	require.NoError(t, e.WriteTag(55799))

	want := decodeHex(t, "D9 D9 F7")
	require.Equal(t, want, buf.Bytes())
}
