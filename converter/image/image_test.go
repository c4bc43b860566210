package image

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func encodeTestImage(t *testing.T, width, height int, f imaging.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(width, height, color.NRGBA{R: 200, A: 255}), f))
	return buf.Bytes()
}

func TestMakeFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    Type
		wantExt string
		wantErr bool
	}{
		{input: "jpg", want: JPEG, wantExt: ".jpg"},
		{input: "jpeg", want: JPEG, wantExt: ".jpg"},
		{input: "png", want: PNG, wantExt: ".png"},
		{input: "gif", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := MakeFromString(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantExt, got.Extension())
		})
	}

	assert.Equal(t, "image/jpeg", JPEG.ContentType())
	assert.Equal(t, "image/png", PNG.ContentType())
}

func TestCustomImageRoundTrip(t *testing.T) {
	strategy := MustStrategy(zap.NewNop())

	for _, typ := range []Type{JPEG, PNG} {
		t.Run(typ.String(), func(t *testing.T) {
			ci := NewCustomImage(strategy.Apply(typ))
			require.NoError(t, ci.Decode(bytes.NewReader(encodeTestImage(t, 400, 200, imaging.PNG))))

			require.NoError(t, ci.Transform(WithScale(Scale{Width: 0.25, Height: 0.25}, 0)))
			w, h := ci.Size()
			assert.Equal(t, 100, w)
			assert.Equal(t, 50, h)

			reader, size, err := ci.Encode(testContext(t), 80)
			require.NoError(t, err)
			assert.Positive(t, size)

			data, err := io.ReadAll(reader)
			require.NoError(t, err)

			w, h, err = DecodeSize(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, 100, w)
			assert.Equal(t, 50, h)
		})
	}
}

func TestCustomImageNotDecoded(t *testing.T) {
	ci := NewCustomImage(MustStrategy(zap.NewNop()).Apply(PNG))

	assert.ErrorIs(t, ci.Transform(), ErrNotDecoded)
	_, _, err := ci.Encode(testContext(t), 10)
	assert.ErrorIs(t, err, ErrNotDecoded)
}

func TestDecodeGarbage(t *testing.T) {
	ci := NewCustomImage(nil)
	assert.Error(t, ci.Decode(bytes.NewReader([]byte("not an image"))))

	_, _, err := DecodeSize(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestStrategyUnknownType(t *testing.T) {
	assert.Nil(t, MustStrategy(zap.NewNop()).Apply(Type{"webp"}))
}

// withDeclaredSize rewrites the IHDR dimensions of a PNG without touching the
// pixel data.
func withDeclaredSize(t *testing.T, data []byte, width, height uint32) []byte {
	t.Helper()
	out := bytes.Clone(data)
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestCheckPixels(t *testing.T) {
	small := encodeTestImage(t, 4, 4, imaging.PNG)

	require.NoError(t, CheckPixels(bytes.NewReader(small), 16))
	assert.ErrorIs(t, CheckPixels(bytes.NewReader(small), 15), ErrTooLarge)

	bomb := withDeclaredSize(t, small, 100000, 100000)
	w, h, err := DecodeSize(bytes.NewReader(bomb))
	require.NoError(t, err)
	assert.Equal(t, 100000, w)
	assert.Equal(t, 100000, h)
	assert.ErrorIs(t, CheckPixels(bytes.NewReader(bomb), 50_000_000), ErrTooLarge)

	assert.ErrorContains(t, CheckPixels(bytes.NewReader([]byte("nope")), 16), "the image file could not be opened")
}
