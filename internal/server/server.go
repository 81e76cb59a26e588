// Package server orchestrates all components: registry, dispatcher, HTTP
// API, optional NATS events and PostgreSQL replay store.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restrpc/gateway/internal/api"
	"github.com/restrpc/gateway/internal/config"
	"github.com/restrpc/gateway/internal/services"
	"github.com/restrpc/gateway/pkg/auth"
	commsutil "github.com/restrpc/gateway/pkg/comms"
	"github.com/restrpc/gateway/pkg/dispatch"
	"github.com/restrpc/gateway/pkg/discovery"
	"github.com/restrpc/gateway/pkg/events"
	"github.com/restrpc/gateway/pkg/registry"
	"github.com/restrpc/gateway/pkg/store"
)

const logPrefix = "server:server"

// Server is the gateway orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	httpServer *http.Server
	reg        *registry.Registry
	store      store.Store
}

// Run starts the gateway, blocks until a shutdown signal, then cleans up.
// SIGHUP reloads the service definitions without restarting.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting gateway", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	// Step 1: Load and compile service definitions
	handlers := services.Handlers()
	defs, err := registry.LoadDefinitions(cfg.ServicesFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load service definitions: %w", logPrefix, err)
	}
	snap, err := registry.BuildSnapshot(defs, handlers, registry.BuildOptions{Coerce: cfg.CoerceTypes})
	if err != nil {
		return fmt.Errorf("%s - failed to build registry snapshot: %w", logPrefix, err)
	}
	reg := registry.New(snap)
	s.reg = reg
	slog.Info(fmt.Sprintf("%s - Registry snapshot %s loaded", logPrefix, snap.Version))

	// Step 2: Build the authentication policy
	verifier, err := buildVerifier(cfg)
	if err != nil {
		return err
	}
	policy := &auth.Policy{Verifier: verifier, VerboseDenials: cfg.AuthVerboseDenials}

	// Step 3: Connect to NATS for dispatch events (optional)
	var publisher events.Publisher = &events.NoOpPublisher{}
	if cfg.COMMSURL != "" {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
		}
		s.nc = nc
		slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))

		publisherOpts := &events.CommsPublisherOpts{}
		if cfg.DispatchEventSubject != "" {
			publisherOpts.GlobalSubject = cfg.DispatchEventSubject
		}
		publisher = events.NewCommsPublisher(nc, publisherOpts)
	}

	// Step 4: Open the idempotent replay store
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			s.closeComms()
			return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.Ensure(ctx); err != nil {
			pg.Close()
			s.closeComms()
			return err
		}
		s.store = pg
	} else {
		s.store = store.NewMemoryStore()
		slog.Info(fmt.Sprintf("%s - DATABASE_URL not set, replay store is in-memory", logPrefix))
	}

	// Step 5: Wire dispatcher, discovery and the HTTP API
	disp := dispatch.NewDispatcher(reg, policy, dispatch.Options{HandlerTimeout: cfg.HandlerTimeout})
	router := api.NewRouter(api.Options{
		BaseURL:    cfg.BaseURL,
		Dispatcher: disp,
		Responder:  discovery.NewResponder(reg),
		Store:      s.store,
		Publisher:  publisher,
	})
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": reg.Snapshot().Version,
		})
	})
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, cfg.HTTPAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Gateway is ready", logPrefix))

	// Wait for shutdown or reload signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for {
		sig := <-sigCh
		if sig == syscall.SIGHUP {
			s.reload(handlers)
			continue
		}
		slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
		break
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	s.httpServer.Shutdown(shutdownCtx)
	if s.nc != nil {
		s.nc.Drain()
	}
	s.store.Close()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// reload recompiles the definitions file and swaps the snapshot in. A
// reload that fails to parse, build or supersede the current version
// leaves the running snapshot untouched.
func (s *Server) reload(handlers map[string]registry.Handler) {
	slog.Info(fmt.Sprintf("%s - Reloading service definitions", logPrefix))

	defs, err := registry.LoadDefinitions(s.cfg.ServicesFile)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - reload: %v", logPrefix, err))
		return
	}
	snap, err := registry.BuildSnapshot(defs, handlers, registry.BuildOptions{Coerce: s.cfg.CoerceTypes})
	if err != nil {
		slog.Error(fmt.Sprintf("%s - reload: %v", logPrefix, err))
		return
	}
	if err := s.reg.Swap(snap); err != nil {
		slog.Error(fmt.Sprintf("%s - reload rejected: %v", logPrefix, err))
		return
	}
	slog.Info(fmt.Sprintf("%s - Registry snapshot %s active", logPrefix, snap.Version))
}

func (s *Server) closeComms() {
	if s.nc != nil {
		s.nc.Close()
	}
}

// buildVerifier constructs the credential verifier selected by AUTH_MODE.
func buildVerifier(cfg *config.Config) (auth.Verifier, error) {
	switch cfg.AuthMode {
	case "jwt":
		return auth.NewJWTVerifier([]byte(cfg.AuthJWTSecret), cfg.AuthJWTIssuer), nil
	default:
		tokens, err := auth.ParseStaticTokens(cfg.AuthStaticTokens)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to parse AUTH_STATIC_TOKENS: %w", logPrefix, err)
		}
		return auth.NewStaticVerifier(tokens), nil
	}
}
