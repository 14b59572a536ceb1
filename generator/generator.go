// Package generator implements the interactive QR code form: it owns the
// current input text and the last rendered image, drives the encoder, and
// reports every outcome as a notification.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/openqr/qrcode-generator/notify"
	"github.com/openqr/qrcode-generator/render"
)

// DefaultValue is encoded on mount so the display is never empty.
const DefaultValue = "https://lovable.dev"

// DefaultFileName is the name downloads are saved under.
const DefaultFileName = "qrcode.png"

// Notification texts shown to the user.
var (
	noticeEmptyInput = notify.Notification{
		Title:       "Empty Input",
		Description: "Please enter some text or a URL first.",
		Variant:     notify.VariantDestructive,
	}
	noticeEncodeFailed = notify.Notification{
		Title:       "Error",
		Description: "Failed to generate QR code. Please try again.",
		Variant:     notify.VariantDestructive,
	}
	noticeNoImage = notify.Notification{
		Title:       "No QR Code",
		Description: "Generate a QR code first before downloading.",
		Variant:     notify.VariantDestructive,
	}
	noticeDownloaded = notify.Notification{
		Title:       "Success",
		Description: "QR code downloaded successfully!",
		Variant:     notify.VariantDefault,
	}
	noticeSaveFailed = notify.Notification{
		Title:       "Error",
		Description: "Failed to download QR code. Please try again.",
		Variant:     notify.VariantDestructive,
	}
)

// Image is a rendered QR code together with the text it encodes.
type Image struct {
	Text    string
	PNG     []byte
	DataURL string
}

// Saver stores a rendered image under a file name.
type Saver interface {
	Save(name string, img Image) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(name string, img Image) error

func (f SaverFunc) Save(name string, img Image) error { return f(name, img) }

// Recorder is told about every generation attempt that reached the encoder.
// genErr is nil on success.
type Recorder interface {
	RecordGeneration(ctx context.Context, text, backend string, genErr error) error
}

// Config holds the fixed parameters of a generator.
type Config struct {
	DefaultValue   string
	FileName       string
	MaxInputLength int // in runes; 0 disables the check
	Options        render.Options
}

// DefaultConfig matches the stock form: https://lovable.dev, qrcode.png, 280px.
func DefaultConfig() Config {
	return Config{
		DefaultValue: DefaultValue,
		FileName:     DefaultFileName,
		Options:      render.DefaultOptions(),
	}
}

// Snapshot is a point-in-time copy of the generator state for rendering.
type Snapshot struct {
	Text  string
	Image *Image
}

// HasImage reports whether an image is available for display and download.
func (s Snapshot) HasImage() bool {
	return s.Image != nil
}

// Generator is the state behind one QR code form.
type Generator struct {
	cfg      Config
	enc      render.Encoder
	notifier notify.Notifier
	recorder Recorder
	log      *slog.Logger

	// genMu serializes encodes; waiting calls run in no particular order.
	genMu sync.Mutex

	mu    sync.Mutex
	text  string
	image *Image
}

// Option customises a Generator.
type Option func(*Generator)

// WithRecorder reports generation attempts to r.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// New creates a generator with no text and no image. Call Mount to render
// the default value.
func New(cfg Config, enc render.Encoder, notifier notify.Notifier, log *slog.Logger, opts ...Option) *Generator {
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}
	if notifier == nil {
		notifier = notify.Func(func(notify.Notification) {})
	}
	if log == nil {
		log = slog.Default()
	}
	g := &Generator{
		cfg:      cfg,
		enc:      enc,
		notifier: notifier,
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount renders the configured default value. The input text stays empty.
// An empty default value leaves the display empty without complaint.
func (g *Generator) Mount(ctx context.Context) error {
	if g.cfg.DefaultValue == "" {
		return nil
	}
	return g.generate(ctx, g.cfg.DefaultValue, g.notifier)
}

// Restore replaces the generator state with a snapshot, typically one taken
// from another generator right after Mount. Nothing is encoded.
func (g *Generator) Restore(snap Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.text = snap.Text
	g.image = nil
	if snap.Image != nil {
		img := *snap.Image
		g.image = &img
	}
}

// SetText replaces the input text verbatim. The displayed image is not
// touched until Generate is called.
func (g *Generator) SetText(text string) {
	g.mu.Lock()
	g.text = text
	g.mu.Unlock()
}

// Text returns the current input text.
func (g *Generator) Text() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text
}

// Snapshot returns the current text and image.
func (g *Generator) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{Text: g.text}
	if g.image != nil {
		img := *g.image
		s.Image = &img
	}
	return s
}

// Generate renders the current input text. On any failure the previously
// displayed image is kept.
func (g *Generator) Generate(ctx context.Context) error {
	return g.GenerateTo(ctx, g.notifier)
}

// GenerateTo is Generate with this call's notifications sent to n instead of
// the generator's notifier.
func (g *Generator) GenerateTo(ctx context.Context, n notify.Notifier) error {
	text := g.Text()
	if text == "" {
		n.Notify(noticeEmptyInput)
		return ErrEmptyInput
	}
	if limit := g.cfg.MaxInputLength; limit > 0 && utf8.RuneCountInString(text) > limit {
		n.Notify(notify.Notification{
			Title:       "Input Too Long",
			Description: fmt.Sprintf("Please keep the text under %d characters.", limit),
			Variant:     notify.VariantDestructive,
		})
		return ErrInputTooLong
	}
	return g.generate(ctx, text, n)
}

func (g *Generator) generate(ctx context.Context, text string, n notify.Notifier) error {
	g.genMu.Lock()
	defer g.genMu.Unlock()

	img, err := g.render(ctx, text)
	g.record(ctx, text, err)
	if err != nil {
		g.log.Error("error generating QR code", "error", err, "backend", g.enc.Name(), "length", len(text))
		n.Notify(noticeEncodeFailed)
		return err
	}

	g.mu.Lock()
	g.image = img
	g.mu.Unlock()

	g.log.Debug("generated QR code", "backend", g.enc.Name(), "length", len(text), "bytes", len(img.PNG))
	return nil
}

func (g *Generator) render(ctx context.Context, text string) (*Image, error) {
	surface := render.NewSurface()
	if err := g.enc.Encode(ctx, surface, text, g.cfg.Options); err != nil {
		return nil, &EncodeError{Backend: g.enc.Name(), Err: err}
	}
	b, err := surface.PNG()
	if err != nil {
		return nil, &EncodeError{Backend: g.enc.Name(), Err: err}
	}
	return &Image{
		Text:    text,
		PNG:     b,
		DataURL: render.DataURL(b),
	}, nil
}

func (g *Generator) record(ctx context.Context, text string, genErr error) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.RecordGeneration(ctx, text, g.enc.Name(), genErr); err != nil {
		g.log.Warn("failed to record generation", "error", err)
	}
}

// Download hands the current image to s under the configured file name.
func (g *Generator) Download(s Saver) (*Image, error) {
	snap := g.Snapshot()
	if !snap.HasImage() {
		g.notifier.Notify(noticeNoImage)
		return nil, ErrNoImage
	}

	if err := s.Save(g.cfg.FileName, *snap.Image); err != nil {
		g.log.Error("error saving QR code", "error", err, "file", g.cfg.FileName)
		g.notifier.Notify(noticeSaveFailed)
		return nil, fmt.Errorf("save %s: %w", g.cfg.FileName, err)
	}

	g.notifier.Notify(noticeDownloaded)
	return snap.Image, nil
}

// FileName returns the name downloads are saved under.
func (g *Generator) FileName() string {
	return g.cfg.FileName
}
