package iso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapSetAndPresentFields(t *testing.T) {
	bm := newBitmap()
	require.NoError(t, bm.set(2))
	require.NoError(t, bm.set(4))
	require.NoError(t, bm.set(70))

	assert.True(t, bm.isSet(2))
	assert.True(t, bm.isSet(4))
	assert.True(t, bm.isSet(70))
	assert.False(t, bm.isSet(3))
	assert.True(t, bm.hasSecond, "field 70 requires a secondary bitmap")
	assert.Equal(t, []int{2, 4, 70}, bm.presentFields())
}

func TestBitmapRoundTripBinary(t *testing.T) {
	bm := newBitmap()
	require.NoError(t, bm.set(2))
	require.NoError(t, bm.set(11))
	require.NoError(t, bm.set(100))

	packed, err := bm.pack(BitmapBinary)
	require.NoError(t, err)
	assert.Len(t, packed, 16, "secondary bitmap present => 16 bytes")

	out := newBitmap()
	consumed, err := out.unpack(packed, BitmapBinary)
	require.NoError(t, err)
	assert.Equal(t, 16, consumed)
	assert.Equal(t, bm.presentFields(), out.presentFields())
}

func TestBitmapRoundTripHex(t *testing.T) {
	bm := newBitmap()
	require.NoError(t, bm.set(3))
	require.NoError(t, bm.set(49))

	packed, err := bm.pack(BitmapHex)
	require.NoError(t, err)
	assert.Len(t, packed, 16, "no secondary bitmap => 16 hex chars")

	out := newBitmap()
	consumed, err := out.unpack(packed, BitmapHex)
	require.NoError(t, err)
	assert.Equal(t, 16, consumed)
	assert.Equal(t, bm.presentFields(), out.presentFields())
}

func TestBitmapUnpackTruncated(t *testing.T) {
	out := newBitmap()
	_, err := out.unpack([]byte{0x00, 0x01}, BitmapBinary)
	assert.ErrorIs(t, err, ErrBitmapTruncated)
}
