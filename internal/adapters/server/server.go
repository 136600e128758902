// Package server mounts the deck's HTTP API and MCP tools on one listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/evanschultz/crave/internal/adapters/server/common"
	"github.com/evanschultz/crave/internal/adapters/server/httpapi"
	"github.com/evanschultz/crave/internal/adapters/server/mcpapi"
)

// Serve defaults.
const (
	defaultBindAddress     = "127.0.0.1:5437"
	defaultAPIEndpoint     = "/api/v1"
	defaultMCPEndpoint     = "/mcp"
	defaultShutdownTimeout = 5 * time.Second
)

// reservedPaths are owned by the health handlers and cannot host a transport.
var reservedPaths = []string{"/healthz", "/readyz"}

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
	// OnListen receives the bound address once the listener is open.
	OnListen func(addr string)
}

// Logger receives one access event per deck request.
type Logger interface {
	Info(msg string, keyvals ...any)
}

// Dependencies are the app-facing services the transports drive.
type Dependencies struct {
	Deck   common.DeckService
	Saved  common.SavedService
	Logger Logger
}

// NewHandler builds the root mux: health checks, the versioned API and the MCP endpoint.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Deck == nil {
		return nil, Config{}, errors.New("deck dependency is required")
	}

	mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    cfg.ServerName,
		ServerVersion: cfg.ServerVersion,
		EndpointPath:  cfg.MCPEndpoint,
	}, deps.Deck, deps.Saved)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	api := http.StripPrefix(cfg.APIEndpoint, httpapi.NewHandler(deps.Deck, deps.Saved))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, healthStatus{Status: "ok"})
	})
	mux.Handle("/readyz", readinessHandler(deps.Deck))
	mux.Handle(cfg.MCPEndpoint, logRequests(deps.Logger, "mcp", mcpHandler))
	mux.Handle(cfg.APIEndpoint, logRequests(deps.Logger, "api", api))
	mux.Handle(cfg.APIEndpoint+"/", logRequests(deps.Logger, "api", api))
	return mux, cfg, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// A bind failure is returned before any request is served.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, cfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPBind, err)
	}
	if cfg.OnListen != nil {
		cfg.OnListen(ln.Addr().String())
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve after shutdown: %w", err)
	}
	if shutdownErr != nil {
		return fmt.Errorf("shutdown server: %w", shutdownErr)
	}
	return nil
}

// normalizeConfig fills defaults and rejects endpoints that would shadow each other.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = strings.TrimSpace(cfg.HTTPBind)
	if cfg.HTTPBind == "" {
		cfg.HTTPBind = defaultBindAddress
	}
	cfg.APIEndpoint = normalizeEndpoint(cfg.APIEndpoint, defaultAPIEndpoint)
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, defaultMCPEndpoint)
	if overlaps(cfg.APIEndpoint, cfg.MCPEndpoint) {
		return Config{}, fmt.Errorf("api endpoint %q and mcp endpoint %q overlap", cfg.APIEndpoint, cfg.MCPEndpoint)
	}
	for _, reserved := range reservedPaths {
		if overlaps(cfg.APIEndpoint, reserved) || overlaps(cfg.MCPEndpoint, reserved) {
			return Config{}, fmt.Errorf("endpoint overlaps reserved path %q", reserved)
		}
	}

	cfg.ServerName = cmpOr(strings.TrimSpace(cfg.ServerName), "crave")
	cfg.ServerVersion = cmpOr(strings.TrimSpace(cfg.ServerVersion), "dev")
	return cfg, nil
}

// normalizeEndpoint trims slashes to one leading "/" and falls back when empty.
func normalizeEndpoint(path, fallback string) string {
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	if path == "/" {
		return fallback
	}
	return path
}

// overlaps reports whether one endpoint equals or nests under the other.
func overlaps(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

func cmpOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// healthStatus is the body of /healthz and /readyz.
type healthStatus struct {
	Status    string `json:"status"`
	Remaining *int   `json:"remaining,omitempty"`
	Exhausted *bool  `json:"exhausted,omitempty"`
}

func writeHealth(w http.ResponseWriter, code int, body healthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// readinessHandler is ready once the deck can produce a snapshot and reports
// how many cards are left. An exhausted deck is still ready.
func readinessHandler(deck common.DeckService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, err := deck.DeckState(r.Context())
		if err != nil {
			writeHealth(w, http.StatusServiceUnavailable, healthStatus{Status: "unavailable"})
			return
		}
		writeHealth(w, http.StatusOK, healthStatus{
			Status:    "ok",
			Remaining: &state.Remaining,
			Exhausted: &state.Exhausted,
		})
	})
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streamable MCP responses flushing through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// logRequests writes one access event per request when logger is set.
func logRequests(logger Logger, surface string, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("deck request",
			"surface", surface,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code,
			"took", time.Since(start).Round(time.Microsecond),
		)
	})
}
