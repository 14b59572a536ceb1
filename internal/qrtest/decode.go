// Package qrtest decodes rendered QR images back to text for tests.
package qrtest

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// DecodeImage reads the symbol in img and returns its text, failing t if no
// symbol can be found.
func DecodeImage(t testing.TB, img image.Image) string {
	t.Helper()

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		t.Fatalf("failed to process image for QR reading: %v", err)
	}

	// Rendered images contain only the symbol and its margin.
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_PURE_BARCODE: true,
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		t.Fatalf("failed to decode QR code: %v", err)
	}
	return result.GetText()
}

// DecodePNG is DecodeImage for PNG bytes.
func DecodePNG(t testing.TB, b []byte) string {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	return DecodeImage(t, img)
}
