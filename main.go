package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/openqr/qrcode-generator/api"
	"github.com/openqr/qrcode-generator/config"
	"github.com/openqr/qrcode-generator/generator"
	"github.com/openqr/qrcode-generator/notify"
	"github.com/openqr/qrcode-generator/render"
	"github.com/openqr/qrcode-generator/session"
	"github.com/openqr/qrcode-generator/store"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "qrcode-generator",
		Short: "Web form that turns text and URLs into downloadable QR codes",
	}

	var configPath string
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")

	// --- start command -------------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(configPath)
		},
	})

	// --- generate command ----------------------------------------------------
	var (
		output   string
		terminal bool
	)
	generateCmd := &cobra.Command{
		Use:   "generate [text]",
		Short: "Render a QR code to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), configPath, args[0], output, terminal)
		},
	}
	generateCmd.Flags().StringVarP(&output, "output", "o", generator.DefaultFileName, "Output PNG path")
	generateCmd.Flags().BoolVar(&terminal, "terminal", false, "Also print the QR code to the terminal")
	root.AddCommand(generateCmd)

	// --- status command ------------------------------------------------------
	var statusAddr string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(statusAddr)
		},
	}
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "Server HTTP address")
	root.AddCommand(statusCmd)

	// --- history command -----------------------------------------------------
	var historyLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), configPath, historyLimit)
		},
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of entries to show")
	root.AddCommand(historyCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrcode-generator %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger for a config log level.
func newLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// runStart is the main service entrypoint that wires all components together.
func runStart(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Setup logger
	log := newLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)

	log.Info("starting qrcode-generator", "version", version, "port", cfg.Port, "encoder", cfg.Encoder)

	// 3. Encoder and per-session generator settings
	enc, err := render.NewEncoder(cfg.Encoder)
	if err != nil {
		return err
	}
	genCfg, err := cfg.GeneratorConfig()
	if err != nil {
		return err
	}

	// 4. Optional generation history
	var history *store.HistoryStore
	var genOpts []generator.Option
	if cfg.History.Enabled {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("ensure data dir: %w", err)
		}
		history, err = store.NewHistoryStore(cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer history.Close()
		genOpts = append(genOpts, generator.WithRecorder(history))
		log.Info("generation history enabled", "path", cfg.HistoryPath())
	}

	// 5. Session store: one generator per visitor
	sessions := session.NewStore(cfg.SessionTTL.Duration, func(n notify.Notifier) *generator.Generator {
		return generator.New(genCfg, enc, n, log, genOpts...)
	}, log)

	// 6. HTTP server
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Sessions:       sessions,
			Encoder:        enc,
			Options:        genCfg.Options,
			MaxInputLength: cfg.MaxInputLength,
			History:        history,
			HistoryLimit:   cfg.History.Limit,
			Log:            log,
			Version:        version,
			StartTime:      time.Now(),
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Serve until a shutdown signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", srv.Addr, "url", fmt.Sprintf("http://localhost:%d/", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}

	log.Info("goodbye")
	return nil
}

// runGenerate renders text once and saves it to output, the same way the web
// form's download does.
func runGenerate(ctx context.Context, configPath, text, output string, terminal bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel, os.Stderr)

	enc, err := render.NewEncoder(cfg.Encoder)
	if err != nil {
		return err
	}
	genCfg, err := cfg.GeneratorConfig()
	if err != nil {
		return err
	}
	genCfg.FileName = filepath.Base(output)

	gen := generator.New(genCfg, enc, notify.Logger(log), log)
	gen.SetText(text)
	if err := gen.Generate(ctx); err != nil {
		return err
	}
	if _, err := gen.Download(generator.FileSaver{Dir: filepath.Dir(output)}); err != nil {
		return err
	}

	if terminal {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			log.Warn("stdout is not a terminal, skipping terminal output")
			return nil
		}
		qrterminal.GenerateHalfBlock(text, qrterminal.M, os.Stdout)
	}
	return nil
}

// runStatus queries the server's HTTP status endpoint.
func runStatus(addr string) error {
	resp, err := http.Get(addr + "/status")
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	fmt.Println(string(body))
	return nil
}

// runHistory prints recent generations from the local history database.
func runHistory(ctx context.Context, configPath string, limit int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := os.Stat(cfg.HistoryPath()); err != nil {
		return fmt.Errorf("no history at %s (enable history.enabled and start the server): %w", cfg.HistoryPath(), err)
	}

	history, err := store.NewHistoryStore(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer history.Close()

	gens, err := history.Recent(ctx, limit)
	if err != nil {
		return err
	}
	for _, g := range gens {
		status := "ok"
		if !g.OK {
			status = "error: " + g.Error
		}
		fmt.Printf("%s  %-5s  %5d chars  %s\n",
			time.Unix(g.CreatedAt, 0).Format(time.DateTime), g.Backend, g.TextLength, status)
	}
	return nil
}
