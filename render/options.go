package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Level is the error correction level of the encoded symbol.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelHighest
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelHigh:
		return "high"
	case LevelHighest:
		return "highest"
	default:
		return "medium"
	}
}

// ParseLevel maps a config string to a Level. Empty means medium.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return LevelLow, nil
	case "", "medium", "m":
		return LevelMedium, nil
	case "high", "q":
		return LevelHigh, nil
	case "highest", "h":
		return LevelHighest, nil
	}
	return LevelMedium, fmt.Errorf("unknown recovery level %q", s)
}

// Options controls how a symbol is rasterized onto a Surface.
type Options struct {
	Width  int // target pixel width of the square image
	Margin int // quiet zone, in modules
	Dark   color.Color
	Light  color.Color
	Level  Level
}

// DefaultOptions is a 280px square with a one-module margin, dark #2b2c34 on white.
func DefaultOptions() Options {
	return Options{
		Width:  280,
		Margin: 1,
		Dark:   defaultDark,
		Light:  defaultLight,
		Level:  LevelMedium,
	}
}

func (o Options) dark() color.Color {
	if o.Dark == nil {
		return defaultDark
	}
	return o.Dark
}

func (o Options) light() color.Color {
	if o.Light == nil {
		return defaultLight
	}
	return o.Light
}

// ParseHexColor parses "#rgb", "#rrggbb" or "#rrggbbaa". The alpha channel
// is straight, not premultiplied.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
