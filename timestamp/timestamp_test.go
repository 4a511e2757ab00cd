package timestamp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZ-NIC/go-cdns/timestamp"
)

func TestCompare(t *testing.T) {
	ts := timestamp.New(42, 170)
	ts2 := timestamp.New(56, 50)

	require.True(t, ts.Less(ts2))
	require.True(t, ts.LessOrEqual(ts2))
	require.False(t, ts2.Less(ts))
	require.False(t, ts2.LessOrEqual(ts))

	ts2 = timestamp.New(42, 170)
	require.True(t, ts.LessOrEqual(ts2))
	require.True(t, ts2.LessOrEqual(ts))
}

func TestGetTimeOffset(t *testing.T) {
	ts := timestamp.New(2, 700)
	ts2 := timestamp.New(5, 300)

	require.Equal(t, int64(2600), ts2.GetTimeOffset(ts, 1000))
	require.Equal(t, int64(-2600), ts.GetTimeOffset(ts2, 1000))
}

func TestGetTimeOffsetBorrow(t *testing.T) {
	ts := timestamp.New(2, 100)
	ts2 := timestamp.New(5, 400)

	require.Equal(t, int64(3300), ts2.GetTimeOffset(ts, 1000))
	require.Equal(t, int64(-3300), ts.GetTimeOffset(ts2, 1000))
}

func TestAddTimeOffset(t *testing.T) {
	ts := timestamp.New(2, 700)
	require.Equal(t, timestamp.New(5, 300), ts.AddTimeOffset(2600, 1000))

	ts2 := timestamp.New(5, 300)
	require.Equal(t, timestamp.New(2, 700), ts2.AddTimeOffset(-2600, 1000))
}

func TestOffsetRoundTrip(t *testing.T) {
	t1 := timestamp.New(1636068056, 971687)
	t2 := timestamp.New(1636070675, 31614)
	const tps = 1_000_000

	require.Equal(t, t1, t2.AddTimeOffset(t1.GetTimeOffset(t2, tps), tps))
	require.Equal(t, t1.GetTimeOffset(t2, tps), -t2.GetTimeOffset(t1, tps))
}
