// Command queryengine is the composition root: it loads configuration,
// opens the reference Postgres-backed storage layer, wires the C1-C10
// core packages together, and serves the HTTP/SSE and WebSocket
// transports. Grounded in the teacher's cmd/tarsy/main.go startup
// sequence (load config -> connect database -> construct services ->
// construct server -> serve), retargeted from TARSy's alert-investigation
// services to the query-orchestration core.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/riverfold/querymind/internal/config"
	"github.com/riverfold/querymind/internal/convstate"
	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/datasource/wiring"
	"github.com/riverfold/querymind/internal/orchestrator"
	"github.com/riverfold/querymind/internal/planexec"
	"github.com/riverfold/querymind/internal/prompt"
	"github.com/riverfold/querymind/internal/provider"
	"github.com/riverfold/querymind/internal/provider/claude"
	"github.com/riverfold/querymind/internal/provider/eren"
	"github.com/riverfold/querymind/internal/provider/gemini"
	"github.com/riverfold/querymind/internal/provider/openai"
	"github.com/riverfold/querymind/internal/storage"
	"github.com/riverfold/querymind/internal/transport/channel"
	"github.com/riverfold/querymind/internal/transport/httpapi"
	"github.com/riverfold/querymind/internal/transport/pgnotify"
	"github.com/riverfold/querymind/internal/transport/ws"
)

const providerCallTimeout = 120 * time.Second

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to the configuration directory")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load .env from the config directory the same way the teacher's
	// cmd/tarsy/main.go does; a missing file is not fatal, since
	// deployments may inject environment variables directly instead.
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Info("no .env file loaded, continuing with existing environment", "path", envPath)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := filepath.Join(*configDir, "queryengine.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	dbCfg, err := storage.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load storage configuration", "error", err)
		os.Exit(1)
	}
	dbClient, err := storage.NewClient(ctx, dbCfg)
	if err != nil {
		slog.Error("failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	slog.Info("connected to storage", "host", dbCfg.Host, "database", dbCfg.Database)

	connRepo := storage.NewConnectionRepository(dbClient)
	convRepo := storage.NewConversationRepository(dbClient)

	registry := datasource.NewRegistry(connRepo)
	wiring.RegisterDefaults(registry)

	convMgr := convstate.NewManager(convRepo)
	convMgr.StartEvictionSweep(ctx, cfg.System.EvictionInterval)
	defer convMgr.Stop()

	builder := prompt.NewBuilder(cfg.System.IncludeHistory)
	providers := buildProviderRegistry(cfg, builder)
	executor := planexec.NewExecutor(registry)

	hub := channel.NewHub(256)
	publisher := pgnotify.NewPublisher(dbClient.DB)

	listener, err := pgnotify.NewListener(dbCfg.DSN(), hub, slog.Default())
	if err != nil {
		slog.Error("failed to start progress-event listener", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("progress-event listener stopped", "error", err)
		}
	}()

	orch := orchestrator.New(registry, providers, builder, executor, convRepo, convMgr, publisher, cfg.System.EnableDashboard)

	server := httpapi.NewServer(hub, orch.Handle)
	wsHandler := ws.NewHandler(hub)
	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)

	go func() {
		slog.Info("serving websocket relay", "addr", cfg.System.WSAddr, "path", "/ws")
		wsServer := &http.Server{Addr: cfg.System.WSAddr, Handler: mux}
		go func() {
			<-ctx.Done()
			_ = wsServer.Close()
		}()
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("websocket listener stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		_ = server.Shutdown()
	}()

	slog.Info("starting query engine", "addr", cfg.System.HTTPAddr)
	if err := server.Start(cfg.System.HTTPAddr); err != nil && err != http.ErrServerClosed {
		slog.Error("http server stopped", "error", err)
		os.Exit(1)
	}
}

// buildProviderRegistry constructs one Provider per configured entry in
// cfg.Providers, dispatching on name the way spec.md §6 enumerates the
// four known AI provider identities.
func buildProviderRegistry(cfg *config.YAMLConfig, builder *prompt.Builder) *provider.Registry {
	var providers []provider.Provider
	for name, p := range cfg.Providers {
		pc := p.ToProviderConfig()
		var base provider.Provider
		switch name {
		case "gemini":
			base = gemini.New(pc, builder)
		case "claude":
			base = claude.New(pc, builder)
		case "openai":
			base = openai.New(pc, builder, providerCallTimeout)
		case "eren":
			base = eren.New(pc, builder, providerCallTimeout)
		default:
			slog.Warn("ignoring unknown ai provider in configuration", "name", name)
			continue
		}
		providers = append(providers, provider.NewRateLimited(base, p.RequestsPerMinute))
	}
	return provider.NewRegistry(providers...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
