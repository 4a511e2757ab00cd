package cbor_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZ-NIC/go-cdns/cbor"
)

func TestDecoderPeekTypeFixtures(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want cbor.Type
	}{
		{"unsigned", "18 2A", cbor.Unsigned},
		{"negative", "39 10 91", cbor.Negative},
		{"bytestring", "44 74 65 73 74", cbor.ByteString},
		{"textstring", "64 74 65 73 74", cbor.TextString},
		{"array", "82 01 02", cbor.Array},
		{"indef_array", "9F 01 FF", cbor.Array},
		{"map", "B9 01 A4", cbor.Map},
		{"indef_map", "BF FF", cbor.Map},
		{"tag", "C0 00", cbor.Tag},
		{"stop_code", "FF", cbor.Break},
		{"simple", "E0", cbor.Simple},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, c.in)))

			got, err := d.PeekType()
			require.NoError(t, err)
			require.Equal(t, c.want, got)
		})
	}
}

func TestDecoderPrimitivesRoundTrip(t *testing.T) {
	in := decodeHex(t, "9F 18 40 19 FE 68 1A 00 07 D1 00 1B 00 00 00 01 84 2A CF 71 38 3F 39 5F BF 3A 00 01 F6 8B 3B 00 00 00 01 84 2A CF 70 FF")
	d := cbor.NewDecoder(bytes.NewReader(in))

	length, indef, err := d.ReadArrayStart()
	require.NoError(t, err)
	require.True(t, indef)
	require.Equal(t, 0, length)

	u8, err := d.ReadUnsigned()
	require.NoError(t, err)
	require.EqualValues(t, 64, u8)

	u16, err := d.ReadUnsigned()
	require.NoError(t, err)
	require.EqualValues(t, 65128, u16)

	u32, err := d.ReadUnsigned()
	require.NoError(t, err)
	require.EqualValues(t, 512256, u32)

	u64, err := d.ReadUnsigned()
	require.NoError(t, err)
	require.EqualValues(t, 6512365425, u64)

	i8, err := d.ReadNegative()
	require.NoError(t, err)
	require.EqualValues(t, -64, i8)

	i16, err := d.ReadNegative()
	require.NoError(t, err)
	require.EqualValues(t, -24512, i16)

	i32, err := d.ReadNegative()
	require.NoError(t, err)
	require.EqualValues(t, -128652, i32)

	i64, err := d.ReadNegative()
	require.NoError(t, err)
	require.EqualValues(t, -6512365425, i64)

	require.NoError(t, d.ReadBreak())
}

func TestDecoderMapStartRoundTrip(t *testing.T) {
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "A0 BF FF")))

	length, indef, err := d.ReadMapStart()
	require.NoError(t, err)
	require.False(t, indef)
	require.Equal(t, 0, length)

	_, indef, err = d.ReadMapStart()
	require.NoError(t, err)
	require.True(t, indef)

	require.NoError(t, d.ReadBreak())
}

func TestDecoderArrayStartRoundTrip(t *testing.T) {
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "81 9F FF")))

	length, indef, err := d.ReadArrayStart()
	require.NoError(t, err)
	require.False(t, indef)
	require.Equal(t, 1, length)

	_, indef, err = d.ReadArrayStart()
	require.NoError(t, err)
	require.True(t, indef)

	require.NoError(t, d.ReadBreak())
}

func TestDecoderReadArrayDefinite(t *testing.T) {
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "83 01 02 03")))

	var got []uint64
	err := d.ReadArray(func(int) error {
		v, err := d.ReadUnsigned()
		got = append(got, v)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, got)
}

func TestDecoderReadArrayIndefinite(t *testing.T) {
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "9F 01 02 FF")))

	var got []uint64
	err := d.ReadArray(func(int) error {
		v, err := d.ReadUnsigned()
		got = append(got, v)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, got)
}

func TestDecoderSkipItemScalars(t *testing.T) {
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "18 2A 00")))

	require.NoError(t, d.SkipItem())

	v, err := d.ReadUnsigned()
	require.NoError(t, err)
	require.EqualValues(t, 0, v)
}

func TestDecoderSkipItemNestedMap(t *testing.T) {
	// {1: [2, 3], 4: "x"} followed by a trailing 0x05 marker.
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "A2 01 82 02 03 04 61 78 05")))

	require.NoError(t, d.SkipItem())

	v, err := d.ReadUnsigned()
	require.NoError(t, err)
	require.EqualValues(t, 5, v)
}

func TestDecoderSkipItemIndefiniteMap(t *testing.T) {
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "BF 01 02 FF 05")))

	require.NoError(t, d.SkipItem())

	v, err := d.ReadUnsigned()
	require.NoError(t, err)
	require.EqualValues(t, 5, v)
}

func TestDecoderTruncatedInput(t *testing.T) {
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "19")))

	_, err := d.ReadUnsigned()
	require.Error(t, err)
}

func TestDecoderUnexpectedType(t *testing.T) {
	d := cbor.NewDecoder(bytes.NewReader(decodeHex(t, "44 74 65 73 74")))

	_, err := d.ReadUnsigned()
	require.Error(t, err)
}
