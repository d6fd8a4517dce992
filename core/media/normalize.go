package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// StickerSide is the canvas edge length required for static stickers.
const StickerSide = 512

// NormalizeStill decodes a still image and renders it onto a transparent
// square canvas of StickerSide pixels. The source is resampled so its
// longer side lands exactly on StickerSide, growing small inputs as well
// as shrinking large ones, and the result is centered on the canvas.
// Output is always PNG regardless of the source format.
func NormalizeStill(src []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecodeFailure, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		// A raster with no pixels is not an image we can sticker, even
		// when its container decoded cleanly.
		return nil, fmt.Errorf("%w: empty %s image", ErrUnsupportedMedia, format)
	}

	fitW, fitH := fitDimensions(w, h, StickerSide)
	canvas := image.NewRGBA(image.Rect(0, 0, StickerSide, StickerSide))
	offset := image.Pt((StickerSide-fitW)/2, (StickerSide-fitH)/2)
	target := image.Rectangle{Min: offset, Max: offset.Add(image.Pt(fitW, fitH))}
	draw.CatmullRom.Scale(canvas, target, img, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("%w: png encode: %s", ErrEncodingFailure, err)
	}
	return out.Bytes(), nil
}

// fitDimensions scales (w, h) so the longer side equals side, keeping
// the aspect ratio. Either result can round down but never below 1.
func fitDimensions(w, h, side int) (int, int) {
	if w >= h {
		scaled := h * side / w
		if scaled < 1 {
			scaled = 1
		}
		return side, scaled
	}
	scaled := w * side / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, side
}
