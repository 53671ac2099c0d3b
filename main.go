// Command livechess starts the live chess match server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from an optional YAML file, CHESS_* environment variables
// (a .env file is loaded first) and finally command-line flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/livechess/api"
	"github.com/wricardo/livechess/game/config"
	"github.com/wricardo/livechess/game/service"
	"github.com/wricardo/livechess/game/session"
	"github.com/wricardo/livechess/internal/obslog"
	"github.com/wricardo/livechess/transport/mcp"
	"github.com/wricardo/livechess/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Live Chess Server"
)

// Command-line flags override the loaded configuration when set.
var (
	configPath   = flag.String("config", os.Getenv("CHESS_CONFIG"), "Path to a YAML configuration file")
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                        # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090             # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config chess.yaml     # Load settings from a file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp              # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, loads configuration and starts the selected mode.
func main() {
	if err := config.LoadEnvFiles(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath, explicitFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := obslog.Init(obslog.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Caller: *debug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer obslog.L().Sync()

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	log := obslog.L()
	log.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		err = runStdioMCPWithInternalServer(ctx, cfg)
	case "server", "http":
		err = runHTTPServer(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode %q, use 'server' (default) or 'stdio-mcp'", mode)
	}
	if err != nil {
		log.Error("exit", zap.Error(err))
		os.Exit(1)
	}
}

// explicitFlags returns the names of flags given on the command line.
func explicitFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig loads the configuration and applies flags that were set
// explicitly, then validates the result again.
func loadConfig(path string, set map[string]bool) (*config.Config, error) {
	cfg, err := config.NewManager(path).Load()
	if err != nil {
		return nil, err
	}

	if set["host"] {
		cfg.Server.Host = *host
	}
	if set["port"] {
		cfg.Server.Port = *port
	}
	if set["host"] || set["port"] {
		cfg.Server.APIURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *ngrokEnabled {
		cfg.Ngrok.Enabled = true
	}
	if *ngrokAuth != "" {
		cfg.Ngrok.AuthToken = *ngrokAuth
	}
	if *ngrokDomain != "" {
		cfg.Ngrok.Domain = *ngrokDomain
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// services groups what both modes need.
type services struct {
	matches *session.Manager
	game    service.GameService
	hub     *websocket.Hub
}

// initializeServices wires the match manager, the WebSocket hub and the game
// service, and starts the hub loop and the expired-match cleanup routine.
// Both stop when ctx is cancelled.
func initializeServices(ctx context.Context, cfg *config.Config) *services {
	matches := session.NewManager(cfg.SessionOptions())
	matches.SetMaxMatches(cfg.Match.MaxMatches)

	hub := websocket.NewHub(matches, cfg.Server.AllowedOrigins)
	matches.AttachNotifier(hub)
	go hub.Run(ctx)

	if cfg.Match.TTL > 0 && cfg.Match.CleanupInterval > 0 {
		go matchCleanupRoutine(ctx, matches, cfg.Match.CleanupInterval, cfg.Match.TTL)
	}

	return &services{
		matches: matches,
		game:    service.NewGameService(matches),
		hub:     hub,
	}
}

// matchCleanupRoutine periodically removes matches with no activity within
// ttl.
func matchCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpired(ttl)
		}
	}
}

// mcpHandler serves single JSON-RPC MCP messages over HTTP POST.
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API server and the /mcp endpoint.
func newRouter(svc *services, mcpBaseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svc.game, svc.hub))
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient(mcpBaseURL)))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an
// /mcp proxy endpoint. If ngrok is enabled it also provisions a public
// tunnel. It returns after ctx is cancelled and the server has shut down.
func runHTTPServer(ctx context.Context, cfg *config.Config) error {
	log := obslog.L()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc := initializeServices(ctx, cfg)

	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprintf("%d", cfg.Server.Port))
	router := newRouter(svc, fmt.Sprintf("http://%s", addr))

	// No WriteTimeout: WebSocket connections are long-lived.
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("http_listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?match=<match_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
			cancel()
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg.Ngrok, router)
		}()
	}

	<-ctx.Done()
	log.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_error", zap.Error(err))
	}

	wg.Wait()
	log.Info("server_stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx ends.
func runNgrokTunnel(ctx context.Context, cfg config.NgrokConfig, handler http.Handler) {
	log := obslog.L()

	if cfg.AuthToken == "" {
		log.Warn("ngrok_no_authtoken", zap.String("hint", "use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN"))
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info("ngrok_custom_domain", zap.String("domain", cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error("ngrok_listen_failed", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	log.Info("ngrok_tunnel_established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("websocket", ngrokURL+"/ws?match=<match_id>"),
		zap.String("mcp", ngrokURL+"/mcp"),
	)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("ngrok_close_failed", zap.Error(err))
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Warn("ngrok_serve_error", zap.Error(err))
	}
	log.Info("ngrok_tunnel_closed")
}

// externalAPIAvailable reports whether a server answers health checks at
// baseURL.
func externalAPIAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses the
// configured API URL when a server answers there; otherwise it starts an
// internal HTTP API on a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg *config.Config) error {
	log := obslog.L()

	baseURL := cfg.Server.APIURL
	log.Info("mcp_probe_external_api", zap.String("url", baseURL))

	if baseURL != "" && externalAPIAvailable(baseURL) {
		log.Info("mcp_using_external_api", zap.String("url", baseURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internalAddr := listener.Addr().String()
		baseURL = fmt.Sprintf("http://%s", internalAddr)

		svc := initializeServices(ctx, cfg)
		httpServer := &http.Server{Handler: newRouter(svc, baseURL)}

		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("internal_http_error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		log.Info("mcp_using_internal_api", zap.String("addr", internalAddr))
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
