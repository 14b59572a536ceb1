// Package render holds the drawing surface QR symbols are rasterized onto and
// the encoder backends that paint them.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// dataURLPrefix is prepended to base64 PNG bytes to form an embeddable image source.
const dataURLPrefix = "data:image/png;base64,"

// Surface is an in-memory raster canvas. An Encoder paints a symbol onto it,
// after which it can be serialized to PNG or a data URL.
type Surface struct {
	img *image.NRGBA
}

// NewSurface returns an empty surface. It has no pixels until something is painted.
func NewSurface() *Surface {
	return &Surface{}
}

// Empty reports whether nothing has been painted yet.
func (s *Surface) Empty() bool {
	return s.img == nil
}

// Image returns the painted raster, or nil if the surface is empty.
func (s *Surface) Image() image.Image {
	if s.img == nil {
		return nil
	}
	return s.img
}

// Paint rasterizes a square module matrix onto the surface. modules[y][x] is
// true for a dark module and must not include a quiet zone; opts.Margin adds
// one. The module grid is stretched to opts.Width pixels when it fits,
// otherwise each module is drawn as one pixel.
func (s *Surface) Paint(modules [][]bool, opts Options) error {
	n := len(modules)
	if n == 0 {
		return fmt.Errorf("paint: empty module matrix")
	}
	for y, row := range modules {
		if len(row) != n {
			return fmt.Errorf("paint: row %d has %d modules, want %d", y, len(row), n)
		}
	}

	margin := opts.Margin
	if margin < 0 {
		margin = 0
	}
	total := n + 2*margin

	scale := 1.0
	if opts.Width >= total {
		scale = float64(opts.Width) / float64(total)
	}
	size := int(float64(total) * scale)
	offset := int(float64(margin) * scale)

	light := opts.light()

	// One pixel per module; index 0 is light, 1 is dark.
	grid := image.NewPaletted(image.Rect(0, 0, n, n), color.Palette{light, opts.dark()})
	for y, row := range modules {
		for x, dark := range row {
			if dark {
				grid.SetColorIndex(x, y, 1)
			}
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(light), image.Point{}, xdraw.Src)
	symbol := image.Rect(offset, offset, size-offset, size-offset)
	xdraw.NearestNeighbor.Scale(img, symbol, grid, grid.Bounds(), xdraw.Src, nil)

	s.img = img
	return nil
}

// PNG encodes the surface as PNG bytes.
func (s *Surface) PNG() ([]byte, error) {
	if s.img == nil {
		return nil, fmt.Errorf("encode png: surface is empty")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL returns the surface as a data:image/png;base64 string suitable for
// an <img> src attribute.
func (s *Surface) DataURL() (string, error) {
	b, err := s.PNG()
	if err != nil {
		return "", err
	}
	return DataURL(b), nil
}

// DataURL wraps PNG bytes in a data URL.
func DataURL(pngBytes []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(pngBytes)
}

// DecodeDataURL is the inverse of DataURL.
func DecodeDataURL(s string) ([]byte, error) {
	if len(s) < len(dataURLPrefix) || s[:len(dataURLPrefix)] != dataURLPrefix {
		return nil, fmt.Errorf("decode data url: missing %q prefix", dataURLPrefix)
	}
	b, err := base64.StdEncoding.DecodeString(s[len(dataURLPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return b, nil
}

var (
	defaultDark  = color.NRGBA{R: 0x2b, G: 0x2c, B: 0x34, A: 0xff}
	defaultLight = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)
