package media

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func alphaAt(img image.Image, x, y int) uint32 {
	_, _, _, a := img.At(x, y).RGBA()
	return a
}

func TestNormalizeStillLandscape(t *testing.T) {
	out, err := NormalizeStill(encodePNG(t, 800, 600, color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)

	img := decodePNG(t, out)
	require.Equal(t, 512, img.Bounds().Dx())
	require.Equal(t, 512, img.Bounds().Dy())

	// 800x600 fits as 512x384, vertically centered: 64px transparent
	// bars top and bottom, full width covered.
	assert.Zero(t, alphaAt(img, 256, 10))
	assert.Zero(t, alphaAt(img, 256, 501))
	assert.NotZero(t, alphaAt(img, 256, 256))
	assert.NotZero(t, alphaAt(img, 1, 256))
	assert.NotZero(t, alphaAt(img, 510, 256))
}

func TestNormalizeStillPortrait(t *testing.T) {
	out, err := NormalizeStill(encodePNG(t, 600, 800, color.RGBA{G: 255, A: 255}))
	require.NoError(t, err)

	img := decodePNG(t, out)
	require.Equal(t, 512, img.Bounds().Dx())
	require.Equal(t, 512, img.Bounds().Dy())

	// 600x800 fits as 384x512: transparent pillars left and right.
	assert.Zero(t, alphaAt(img, 10, 256))
	assert.Zero(t, alphaAt(img, 501, 256))
	assert.NotZero(t, alphaAt(img, 256, 256))
	assert.NotZero(t, alphaAt(img, 256, 1))
}

func TestNormalizeStillUpscalesSmallInput(t *testing.T) {
	out, err := NormalizeStill(encodePNG(t, 100, 50, color.RGBA{B: 255, A: 255}))
	require.NoError(t, err)

	img := decodePNG(t, out)
	require.Equal(t, 512, img.Bounds().Dx())
	require.Equal(t, 512, img.Bounds().Dy())

	// Long side grows to 512, so content spans the full width.
	assert.NotZero(t, alphaAt(img, 5, 256))
	assert.NotZero(t, alphaAt(img, 506, 256))
	assert.Zero(t, alphaAt(img, 256, 10))
	assert.Zero(t, alphaAt(img, 256, 501))
}

func TestNormalizeStillSquareFillsCanvas(t *testing.T) {
	out, err := NormalizeStill(encodePNG(t, 500, 500, color.RGBA{R: 10, G: 20, B: 30, A: 255}))
	require.NoError(t, err)

	img := decodePNG(t, out)
	for _, pt := range []image.Point{{0, 0}, {511, 0}, {0, 511}, {511, 511}, {256, 256}} {
		assert.NotZero(t, alphaAt(img, pt.X, pt.Y), "pixel %v should be opaque", pt)
	}
}

func TestNormalizeStillRejectsGarbage(t *testing.T) {
	_, err := NormalizeStill([]byte("definitely not an image"))
	require.ErrorIs(t, err, ErrDecodeFailure)
}

func TestNormalizeStillRejectsEmptyRaster(t *testing.T) {
	// A decoder can hand back a raster with no pixels; that is an
	// unsupported input, not a broken one.
	image.RegisterFormat("hollow", "HOLLOW",
		func(io.Reader) (image.Image, error) {
			return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil
		},
		func(io.Reader) (image.Config, error) {
			return image.Config{}, nil
		})

	_, err := NormalizeStill([]byte("HOLLOW"))
	require.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{800, 600, 512, 384},
		{600, 800, 384, 512},
		{500, 500, 512, 512},
		{1000, 200, 512, 102},
		{200, 1000, 102, 512},
		{10000, 1, 512, 1},
	}
	for _, tt := range tests {
		gotW, gotH := fitDimensions(tt.w, tt.h, 512)
		assert.Equal(t, tt.wantW, gotW, "%dx%d width", tt.w, tt.h)
		assert.Equal(t, tt.wantH, gotH, "%dx%d height", tt.w, tt.h)
	}
}
