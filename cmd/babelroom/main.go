// Command babelroom is the main entry point for the Babelroom real-time
// speech-translation server.
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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/babelroom/babelroom/internal/config"
	"github.com/babelroom/babelroom/internal/health"
	"github.com/babelroom/babelroom/internal/history"
	"github.com/babelroom/babelroom/internal/observe"
	"github.com/babelroom/babelroom/internal/processor"
	"github.com/babelroom/babelroom/internal/resilience"
	"github.com/babelroom/babelroom/internal/roomcache"
	"github.com/babelroom/babelroom/internal/server"
	"github.com/babelroom/babelroom/internal/session"
	"github.com/babelroom/babelroom/pkg/provider/stt"
	"github.com/babelroom/babelroom/pkg/provider/stt/sherpa"
	"github.com/babelroom/babelroom/pkg/provider/stt/transcribe"
	"github.com/babelroom/babelroom/pkg/provider/stt/whisper"
	"github.com/babelroom/babelroom/pkg/provider/translate"
	"github.com/babelroom/babelroom/pkg/provider/translate/awstranslate"
	"github.com/babelroom/babelroom/pkg/provider/translate/llm"
	"github.com/babelroom/babelroom/pkg/provider/tts"
	"github.com/babelroom/babelroom/pkg/provider/tts/polly"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "babelroom: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "babelroom: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("babelroom starting",
		"version", version,
		"config", *configPath,
		"grpc_addr", cfg.Server.GRPCAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "babelroom",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	// Polly is the only TTS engine, so the shared AWS config is always loaded.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		slog.Error("failed to load AWS config", "err", err, "region", cfg.AWS.Region)
		return 1
	}

	sttBackend, err := buildTranscriber(ctx, cfg, awsCfg)
	if err != nil {
		slog.Error("failed to build stt backend", "err", err)
		return 1
	}
	transcriber := resilience.NewSTTFallback(sttBackend, string(cfg.Providers.STT.Backend), resilience.BreakerConfig{})
	defer closeQuiet("stt", transcriber.Close)

	translator, err := buildTranslator(cfg, awsCfg)
	if err != nil {
		slog.Error("failed to build translation backend", "err", err)
		return 1
	}
	defer closeQuiet("translation", translator.Close)

	var synthesizer tts.Synthesizer = resilience.NewTTSFallback(polly.New(awsCfg), "polly", resilience.BreakerConfig{})
	defer closeQuiet("tts", synthesizer.Close)

	// ── Transcript history ────────────────────────────────────────────────────
	var (
		store   history.Store
		checker []health.Checker
	)
	if dsn := cfg.History.PostgresDSN; dsn != "" {
		pg, err := history.NewPostgresStore(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect transcript archive", "err", err)
			return 1
		}
		store = pg
		checker = append(checker, health.Ping("history", pg))
		slog.Info("transcript archive connected", "backend", "postgres")
	} else {
		store = history.NewMemoryStore(0)
		slog.Info("transcript archive in memory only")
	}
	defer store.Close()

	// ── Pipeline wiring ───────────────────────────────────────────────────────
	cache := roomcache.New(cfg.Cache, roomcache.WithMetrics(metrics))
	go cache.Run(ctx)

	manager := processor.NewManager(processor.Deps{
		Pipeline:   cfg.Pipeline,
		Audio:      cfg.Audio,
		Cache:      cache,
		Pool:       processor.NewPool(cfg.Pipeline.ParallelWorkers),
		Filters:    processor.NewTextFilters(cfg.Filters.FillerWords, cfg.Filters.ArtifactPatterns),
		Transcribe: transcriber,
		Translate:  translator,
		Synthesize: synthesizer,
		Recorder:   store,
		Metrics:    metrics,
	})
	registry := session.NewRegistry(metrics)

	svc := server.NewService(cfg, registry, manager, cache)
	grpcServer := server.New(cfg.Server, svc)

	// ── Metrics / health listener ─────────────────────────────────────────────
	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		health.New(checker...).Register(mux)

		metricsServer = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           observe.Middleware(metrics)(mux),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("metrics listener started", "addr", cfg.Server.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics listener error", "err", err)
			}
		}()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// ── Serve ─────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.ListenAndServe()
	}()

	slog.Info("server ready — press Ctrl+C to shut down")

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("serve error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics listener shutdown error", "err", err)
		}
	}
	grpcServer.GracefulStop()

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildTranscriber assembles the STT routing layer for the configured backend.
// Languages naming the same local model share one loaded instance.
func buildTranscriber(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (stt.Transcriber, error) {
	sc := cfg.Providers.STT

	switch sc.Backend {
	case config.STTTranscribe:
		slog.Info("stt backend ready", "backend", "transcribe", "region", cfg.AWS.Region)
		return transcribe.New(awsCfg), nil

	case config.STTWhisper:
		t, err := whisper.New(sc.Fallback.Model)
		if err != nil {
			return nil, err
		}
		router := stt.NewRouter(nil, t)
		if sc.Warmup {
			if err := router.Warmup(ctx); err != nil {
				router.Close()
				return nil, err
			}
		}
		slog.Info("stt backend ready", "backend", "whisper", "model", sc.Fallback.Model)
		return router, nil

	case config.STTMulti:
		loaded := make(map[string]stt.Transcriber)
		byLang := make(map[string]stt.Transcriber, len(sc.Models))

		closeLoaded := func() {
			for _, t := range loaded {
				t.Close()
			}
		}
		for lang, entry := range sc.Models {
			t, err := loadModel(loaded, entry, lang)
			if err != nil {
				closeLoaded()
				return nil, err
			}
			byLang[lang] = t
		}
		fallback, err := loadModel(loaded, sc.Fallback, "")
		if err != nil {
			closeLoaded()
			return nil, err
		}

		router := stt.NewRouter(byLang, fallback)
		if sc.Warmup {
			start := time.Now()
			if err := router.Warmup(ctx); err != nil {
				router.Close()
				return nil, err
			}
			slog.Info("stt models warmed up", "models", len(loaded), "took", time.Since(start))
		}
		slog.Info("stt backend ready", "backend", "multi", "languages", len(byLang), "models", len(loaded))
		return router, nil
	}

	return nil, fmt.Errorf("unknown stt backend %q", sc.Backend)
}

// loadModel creates or reuses a local model instance. Whisper models are
// language-agnostic and shared by path; sherpa recognizers bake the language
// in, so the dedup key includes it.
func loadModel(loaded map[string]stt.Transcriber, entry config.STTModelEntry, language string) (stt.Transcriber, error) {
	var key string
	switch entry.Engine {
	case "whisper":
		key = "whisper\x00" + entry.Model
	case "sherpa":
		key = "sherpa\x00" + entry.Model + "\x00" + language
	default:
		return nil, fmt.Errorf("unknown stt engine %q", entry.Engine)
	}
	if t, ok := loaded[key]; ok {
		return t, nil
	}

	var (
		t   stt.Transcriber
		err error
	)
	switch entry.Engine {
	case "whisper":
		t, err = whisper.New(entry.Model)
	case "sherpa":
		t, err = sherpa.New(entry.Model, language)
	}
	if err != nil {
		return nil, err
	}
	loaded[key] = t
	slog.Info("stt model loaded", "engine", entry.Engine, "model", entry.Model, "language", language)
	return t, nil
}

// buildTranslator wraps the configured engine in a breaker-guarded fallback
// group. An LLM primary falls back to Amazon Translate when its endpoint is
// down.
func buildTranslator(cfg *config.Config, awsCfg aws.Config) (translate.Translator, error) {
	tc := cfg.Providers.Translation

	switch tc.Backend {
	case config.TranslateAWS:
		slog.Info("translation backend ready", "backend", "aws", "region", cfg.AWS.Region)
		return resilience.NewTranslateFallback(awstranslate.New(awsCfg), "aws", resilience.BreakerConfig{}), nil

	case config.TranslateLLM:
		var opts []llm.Option
		if tc.LLM.BaseURL != "" {
			opts = append(opts, llm.WithBaseURL(tc.LLM.BaseURL))
		}
		primary, err := llm.New(tc.LLM.APIKey, tc.LLM.Model, opts...)
		if err != nil {
			return nil, err
		}
		t := resilience.NewTranslateFallback(primary, "llm", resilience.BreakerConfig{})
		t.AddFallback("aws", awstranslate.New(awsCfg))
		slog.Info("translation backend ready", "backend", "llm", "model", tc.LLM.Model, "fallback", "aws")
		return t, nil
	}

	return nil, fmt.Errorf("unknown translation backend %q", tc.Backend)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	sttValue := string(cfg.Providers.STT.Backend)
	if cfg.Providers.STT.Backend == config.STTMulti {
		sttValue = fmt.Sprintf("multi (%d langs)", len(cfg.Providers.STT.Models))
	}
	translation := string(cfg.Providers.Translation.Backend)
	if cfg.Providers.Translation.Backend == config.TranslateLLM {
		translation = "llm / " + cfg.Providers.Translation.LLM.Model
	}
	historyValue := "in-memory"
	if cfg.History.PostgresDSN != "" {
		historyValue = "postgres"
	}

	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Babelroom — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("STT", sttValue)
	printRow("Translation", translation)
	printRow("TTS", cfg.Providers.TTS.Backend)
	printRow("History", historyValue)
	printRow("AWS region", cfg.AWS.Region)
	printRow("gRPC addr", cfg.Server.GRPCAddr)
	if cfg.Server.MetricsAddr != "" {
		printRow("Metrics addr", cfg.Server.MetricsAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(kind, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

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

// ── Helpers ───────────────────────────────────────────────────────────────────

func closeQuiet(kind string, fn func() error) {
	if err := fn(); err != nil {
		slog.Warn("provider close error", "kind", kind, "err", err)
	}
}
