// Command docviet is the grading and narration server for the first-grade
// Vietnamese reading app.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/nmtri/docviet/internal/api"
	"github.com/nmtri/docviet/internal/chat"
	"github.com/nmtri/docviet/internal/creative"
	"github.com/nmtri/docviet/internal/config"
	"github.com/nmtri/docviet/internal/exercise"
	"github.com/nmtri/docviet/internal/grading"
	"github.com/nmtri/docviet/internal/health"
	"github.com/nmtri/docviet/internal/narrate"
	"github.com/nmtri/docviet/internal/observe"
	"github.com/nmtri/docviet/internal/progress"
	"github.com/nmtri/docviet/internal/progress/postgres"
	"github.com/nmtri/docviet/internal/resilience"
	"github.com/nmtri/docviet/pkg/provider/genmodel"
	"github.com/nmtri/docviet/pkg/provider/genmodel/gemini"
	"github.com/nmtri/docviet/pkg/provider/llm"
	"github.com/nmtri/docviet/pkg/provider/llm/anyllm"
	oallm "github.com/nmtri/docviet/pkg/provider/llm/openai"
	"github.com/nmtri/docviet/pkg/provider/speech"
	"github.com/nmtri/docviet/pkg/provider/speech/geminilive"
	localtts "github.com/nmtri/docviet/pkg/provider/speech/local"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "docviet: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "docviet: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("docviet starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Grading and narration providers ───────────────────────────────────────
	// A missing or placeholder API key is not fatal: grading answers with the
	// service-unavailable verdict and narration falls back to the local
	// engine, so a classroom without internet credentials still works.
	geminiKey := os.Getenv("GEMINI_API_KEY")
	keyUsable := config.KeyUsable(geminiKey)
	if !keyUsable {
		slog.Warn("GEMINI_API_KEY missing or placeholder, running in degraded mode")
	}

	var (
		audioClient       genmodel.Client
		handwritingClient genmodel.Client
		imageClient       genmodel.ImageClient
		generativeSpeech  speech.Synthesizer
	)
	if keyUsable {
		audioClient, err = gemini.New(ctx, geminiKey, gemini.WithModel(cfg.Grading.AudioModel))
		if err != nil {
			slog.Error("failed to create audio grading client", "err", err)
			return 1
		}
		handwritingClient, err = gemini.New(ctx, geminiKey, gemini.WithModel(cfg.Grading.HandwritingModel))
		if err != nil {
			slog.Error("failed to create handwriting grading client", "err", err)
			return 1
		}
		imageClient, err = gemini.New(ctx, geminiKey, gemini.WithModel(cfg.Creative.ImageModel))
		if err != nil {
			slog.Error("failed to create illustration client", "err", err)
			return 1
		}
		generativeSpeech = geminilive.New(geminiKey,
			geminilive.WithModel(cfg.Narration.LiveModel),
			geminilive.WithVoice(cfg.Narration.Voice),
		)
	}

	grader := grading.New(audioClient,
		grading.WithModelName(cfg.Grading.AudioModel),
		grading.WithHandwritingClient(handwritingClient, cfg.Grading.HandwritingModel),
		grading.WithMetrics(metrics),
	)

	illustrator := creative.New(imageClient,
		creative.WithModelName(cfg.Creative.ImageModel),
		creative.WithMetrics(metrics),
	)

	var localSpeech speech.Synthesizer
	var selector *narrate.VoiceSelector
	if cfg.Narration.LocalEngineURL != "" {
		engine, err := localtts.New(cfg.Narration.LocalEngineURL,
			localtts.WithLanguage(cfg.Narration.Language))
		if err != nil {
			slog.Error("failed to create local speech engine", "err", err)
			return 1
		}
		localSpeech = engine
		selector = narrate.NewVoiceSelector(engine, cfg.Narration.Language)
	}

	narrator := narrate.New(generativeSpeech, localSpeech, selector,
		narrate.WithMetrics(metrics))

	// ── Chat tutor ────────────────────────────────────────────────────────────
	chatProvider, err := buildChatProvider(cfg.Chat)
	if err != nil {
		slog.Error("failed to create chat provider", "err", err)
		return 1
	}
	assistant := chat.New(chatProvider, chat.WithMetrics(metrics))

	// ── Progress store ────────────────────────────────────────────────────────
	var store progress.Store
	var checkers []health.Checker
	if cfg.Progress.PostgresDSN != "" {
		pg, err := postgres.New(ctx, cfg.Progress.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to progress database", "err", err)
			return 1
		}
		defer pg.Close()
		store = pg
		checkers = append(checkers, health.Database(pg.Pool()))
		slog.Info("progress store: postgres")
	} else {
		store = progress.NewMemStore()
		slog.Info("progress store: in-memory, records are lost on restart")
	}

	// ── Health checks ─────────────────────────────────────────────────────────
	checkers = append(checkers, health.Credential("gemini", func() bool {
		return config.KeyUsable(os.Getenv("GEMINI_API_KEY"))
	}))
	if cfg.Narration.LocalEngineURL != "" {
		checkers = append(checkers,
			health.Endpoint("local-tts", cfg.Narration.LocalEngineURL, nil))
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	server := api.New(api.Deps{
		Grader:      grader,
		Narrator:    narrator,
		Assistant:   assistant,
		Illustrator: illustrator,
		Checker:     exercise.New(),
		Store:       store,
		Health:      health.New(checkers...),
		Metrics:     metrics,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupSummary(cfg, keyUsable)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		narrator.Stop()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Chat provider wiring ──────────────────────────────────────────────────────

// buildChatProvider constructs the tutor's model backend, wrapping the primary
// in a failover group when fallbacks are configured.
func buildChatProvider(cfg config.ChatConfig) (llm.Provider, error) {
	primary, err := newChatBackend(cfg.Primary)
	if err != nil {
		return nil, err
	}
	if len(cfg.Fallbacks) == 0 {
		return primary, nil
	}

	fb := resilience.NewChatFallback(primary, backendName(cfg.Primary), resilience.FallbackConfig{})
	for _, m := range cfg.Fallbacks {
		p, err := newChatBackend(m)
		if err != nil {
			return nil, err
		}
		fb.AddFallback(backendName(m), p)
	}
	return fb, nil
}

func newChatBackend(m config.ChatModel) (llm.Provider, error) {
	switch m.Backend {
	case config.ChatGemini:
		return anyllm.NewGemini(m.Model)
	case config.ChatOpenAI:
		return oallm.New(os.Getenv("OPENAI_API_KEY"), m.Model)
	case config.ChatOllama:
		return anyllm.NewOllama(m.Model)
	default:
		return nil, fmt.Errorf("unsupported chat backend %q; supported: gemini, openai, ollama", m.Backend)
	}
}

func backendName(m config.ChatModel) string {
	return string(m.Backend) + "/" + m.Model
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, keyUsable bool) {
	fmt.Println("╔════════════════════════════════════════════╗")
	fmt.Println("║          Docviet — startup summary         ║")
	fmt.Println("╠════════════════════════════════════════════╣")
	printRow("Audio grading", modelOrOff(cfg.Grading.AudioModel, keyUsable))
	printRow("Handwriting", modelOrOff(cfg.Grading.HandwritingModel, keyUsable))
	printRow("Narration (gen)", modelOrOff(cfg.Narration.LiveModel, keyUsable))
	if cfg.Narration.LocalEngineURL != "" {
		printRow("Narration (local)", cfg.Narration.LocalEngineURL)
	} else {
		printRow("Narration (local)", "(disabled)")
	}
	printRow("Chat tutor", backendName(cfg.Chat.Primary))
	if cfg.Progress.PostgresDSN != "" {
		printRow("Progress store", "postgres")
	} else {
		printRow("Progress store", "in-memory")
	}
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚════════════════════════════════════════════╝")
}

func printRow(label, value string) {
	fmt.Printf("║  %-17s: %-23s ║\n", label, value)
}

func modelOrOff(model string, keyUsable bool) string {
	if !keyUsable {
		return "(no credential)"
	}
	return model
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
