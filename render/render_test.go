package render

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/openqr/qrcode-generator/internal/qrtest"
)

func TestEncodersRoundTrip(t *testing.T) {
	inputs := []string{
		"hello",
		"https://lovable.dev",
		"Grüße aus Köln",
		strings.Repeat("0123456789", 20),
	}

	for _, enc := range []Encoder{SkipEncoder{}, RSCEncoder{}} {
		for _, in := range inputs {
			t.Run(enc.Name()+"/"+in[:min(len(in), 12)], func(t *testing.T) {
				s := NewSurface()
				if err := enc.Encode(context.Background(), s, in, DefaultOptions()); err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				if got := qrtest.DecodeImage(t, s.Image()); got != in {
					t.Errorf("decoded %q, want %q", got, in)
				}
			})
		}
	}
}

func TestEncodeSizeAndColors(t *testing.T) {
	s := NewSurface()
	opts := DefaultOptions()
	if err := (SkipEncoder{}).Encode(context.Background(), s, "hello", opts); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	b := s.Image().Bounds()
	// "hello" fits version 1: 21 modules + 2 margin = 23, 280/23 scale.
	if b.Dx() != b.Dy() || b.Dx() < 270 || b.Dx() > 280 {
		t.Fatalf("image is %dx%d, want a square close to 280", b.Dx(), b.Dy())
	}

	// Margin pixels are light, the top-left finder corner is dark.
	if got := color.NRGBAModel.Convert(s.Image().At(0, 0)); got != defaultLight {
		t.Errorf("margin pixel = %v, want %v", got, defaultLight)
	}
	inner := b.Dx() / 23
	if got := color.NRGBAModel.Convert(s.Image().At(inner+1, inner+1)); got != defaultDark {
		t.Errorf("finder pixel = %v, want %v", got, defaultDark)
	}
}

func TestEncodeTooLong(t *testing.T) {
	long := strings.Repeat("x", 8000)
	for _, enc := range []Encoder{SkipEncoder{}, RSCEncoder{}} {
		s := NewSurface()
		if err := enc.Encode(context.Background(), s, long, DefaultOptions()); err == nil {
			t.Errorf("%s: expected error for oversized input", enc.Name())
		}
		if !s.Empty() {
			t.Errorf("%s: surface painted despite error", enc.Name())
		}
	}
}

func TestEncodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSurface()
	err := (SkipEncoder{}).Encode(ctx, s, "hello", DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Encode() error = %v, want context.Canceled", err)
	}
	if !s.Empty() {
		t.Error("surface painted after cancellation")
	}
}

func TestPaintSmallWidth(t *testing.T) {
	modules := [][]bool{
		{true, false},
		{false, true},
	}
	s := NewSurface()
	if err := s.Paint(modules, Options{Width: 1, Margin: 1}); err != nil {
		t.Fatalf("Paint() error = %v", err)
	}
	if got := s.Image().Bounds().Dx(); got != 4 {
		t.Fatalf("width = %d, want 4", got)
	}
	if got := color.NRGBAModel.Convert(s.Image().At(1, 1)); got != defaultDark {
		t.Errorf("module (0,0) = %v, want dark", got)
	}
	if got := color.NRGBAModel.Convert(s.Image().At(2, 1)); got != defaultLight {
		t.Errorf("module (1,0) = %v, want light", got)
	}
}

func TestPNGKeepsTranslucentColors(t *testing.T) {
	tests := map[string]struct {
		light string
		dark  string
	}{
		"blue quarter alpha": {light: "#3366ff40", dark: "#000000"},
		"white half alpha":   {light: "#ffffff80", dark: "#2b2c3480"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			light, err := ParseHexColor(tt.light)
			if err != nil {
				t.Fatal(err)
			}
			dark, err := ParseHexColor(tt.dark)
			if err != nil {
				t.Fatal(err)
			}

			s := NewSurface()
			modules := [][]bool{{true, false}, {false, true}}
			if err := s.Paint(modules, Options{Width: 40, Margin: 1, Dark: dark, Light: light}); err != nil {
				t.Fatalf("Paint() error = %v", err)
			}
			b, err := s.PNG()
			if err != nil {
				t.Fatalf("PNG() error = %v", err)
			}
			img, err := png.Decode(bytes.NewReader(b))
			if err != nil {
				t.Fatalf("png.Decode() error = %v", err)
			}

			if got := color.NRGBAModel.Convert(img.At(0, 0)); got != light {
				t.Errorf("margin pixel = %v, want %v", got, light)
			}
			// 40px / 4 modules: the first symbol module spans 10..19.
			if got := color.NRGBAModel.Convert(img.At(15, 15)); got != dark {
				t.Errorf("dark module pixel = %v, want %v", got, dark)
			}
			if got := color.NRGBAModel.Convert(img.At(25, 15)); got != light {
				t.Errorf("light module pixel = %v, want %v", got, light)
			}
		})
	}
}

func TestPaintRejectsRagged(t *testing.T) {
	s := NewSurface()
	if err := s.Paint([][]bool{{true, false}, {true}}, DefaultOptions()); err == nil {
		t.Fatal("expected error for ragged matrix")
	}
	if err := s.Paint(nil, DefaultOptions()); err == nil {
		t.Fatal("expected error for empty matrix")
	}
}

func TestDataURL(t *testing.T) {
	s := NewSurface()
	if _, err := s.DataURL(); err == nil {
		t.Fatal("expected error for empty surface")
	}

	if err := (SkipEncoder{}).Encode(context.Background(), s, "hello", DefaultOptions()); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	u, err := s.DataURL()
	if err != nil {
		t.Fatalf("DataURL() error = %v", err)
	}
	if !strings.HasPrefix(u, "data:image/png;base64,") {
		t.Fatalf("DataURL() = %.40q..., missing prefix", u)
	}

	b, err := DecodeDataURL(u)
	if err != nil {
		t.Fatalf("DecodeDataURL() error = %v", err)
	}
	if got := qrtest.DecodePNG(t, b); got != "hello" {
		t.Errorf("decoded %q, want hello", got)
	}

	if _, err := DecodeDataURL("data:text/plain,hi"); err == nil {
		t.Error("expected error for non-png data url")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		"six digits":   {in: "#2b2c34", want: color.NRGBA{0x2b, 0x2c, 0x34, 0xff}},
		"no hash":      {in: "ffffff", want: color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		"short form":   {in: "#0f0", want: color.NRGBA{0x00, 0xff, 0x00, 0xff}},
		"with alpha":   {in: "#00000080", want: color.NRGBA{0, 0, 0, 0x80}},
		"bad length":   {in: "#12345", wantErr: true},
		"not hex":      {in: "#zzzzzz", wantErr: true},
		"empty string": {in: "", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseHexColor(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseHexColor(%q) expected error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexColor(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseHexColor(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseLevelAndNewEncoder(t *testing.T) {
	for in, want := range map[string]Level{"": LevelMedium, "LOW": LevelLow, "high": LevelHigh, "h": LevelHighest} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("ultra"); err == nil {
		t.Error("ParseLevel(ultra) expected error")
	}

	for in, want := range map[string]string{"": "skip2", "skip2": "skip2", "RSC": "rsc"} {
		enc, err := NewEncoder(in)
		if err != nil {
			t.Fatalf("NewEncoder(%q) error = %v", in, err)
		}
		if enc.Name() != want {
			t.Errorf("NewEncoder(%q).Name() = %s, want %s", in, enc.Name(), want)
		}
	}
	if _, err := NewEncoder("zxing"); err == nil {
		t.Error("NewEncoder(zxing) expected error")
	}
}
