package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
	"rsc.io/qr"
)

// Encoder paints the QR symbol for text onto a surface. On error the surface
// is left as it was.
type Encoder interface {
	Encode(ctx context.Context, s *Surface, text string, opts Options) error
	Name() string
}

// NewEncoder returns the backend registered under name ("skip2" or "rsc").
func NewEncoder(name string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "skip2":
		return SkipEncoder{}, nil
	case "rsc":
		return RSCEncoder{}, nil
	}
	return nil, fmt.Errorf("unknown encoder %q", name)
}

// SkipEncoder encodes with github.com/skip2/go-qrcode.
type SkipEncoder struct{}

func (SkipEncoder) Name() string { return "skip2" }

func (SkipEncoder) Encode(ctx context.Context, s *Surface, text string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q, err := qrcode.New(text, skipLevel(opts.Level))
	if err != nil {
		return fmt.Errorf("skip2 encode: %w", err)
	}
	// Quiet zone is added by Paint from opts.Margin.
	q.DisableBorder = true

	return s.Paint(q.Bitmap(), opts)
}

func skipLevel(l Level) qrcode.RecoveryLevel {
	switch l {
	case LevelLow:
		return qrcode.Low
	case LevelHigh:
		return qrcode.High
	case LevelHighest:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// RSCEncoder encodes with rsc.io/qr.
type RSCEncoder struct{}

func (RSCEncoder) Name() string { return "rsc" }

func (RSCEncoder) Encode(ctx context.Context, s *Surface, text string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	code, err := qr.Encode(text, rscLevel(opts.Level))
	if err != nil {
		return fmt.Errorf("rsc encode: %w", err)
	}
	if code.Size == 0 {
		return fmt.Errorf("rsc encode: empty QR code")
	}

	modules := make([][]bool, code.Size)
	for y := range modules {
		row := make([]bool, code.Size)
		for x := range row {
			row[x] = code.Black(x, y)
		}
		modules[y] = row
	}
	return s.Paint(modules, opts)
}

func rscLevel(l Level) qr.Level {
	switch l {
	case LevelLow:
		return qr.L
	case LevelHigh:
		return qr.Q
	case LevelHighest:
		return qr.H
	default:
		return qr.M
	}
}
