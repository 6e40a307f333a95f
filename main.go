// Command huarongpass starts the Huarong Pass sliding-block puzzle server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// "layouts" lists the layouts sessions can be created from.
//
// Settings come from the environment (and an optional .env file); flags
// override them. Sessions are stored as JSON files or in SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/huarongpass/api"
	"github.com/wricardo/huarongpass/game/config"
	"github.com/wricardo/huarongpass/game/service"
	"github.com/wricardo/huarongpass/game/session"
	"github.com/wricardo/huarongpass/transport/mcp"
	"github.com/wricardo/huarongpass/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Huarong Pass Server"
)

// cleanupInterval is how often expired sessions are looked for
const cleanupInterval = time.Hour

var log = log15.New("module", "main")

func main() {
	loaded, err := config.LoadDotEnv()
	if err != nil {
		log.Warn("error loading .env file", "err", err)
	} else if loaded {
		log.Info("loaded environment variables from .env file")
	}

	settings, err := config.LoadSettings()
	if err != nil {
		log.Crit("invalid environment", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(settings).Run(ctx, os.Args); err != nil {
		log.Crit("exiting", "err", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Flag defaults come from settings and parsed
// flags are written back into it.
func newCommand(settings *config.Settings) *cli.Command {
	serve := func(ctx context.Context, cmd *cli.Command) error {
		return runHTTPServer(ctx, settings)
	}

	return &cli.Command{
		Name:    "huarongpass",
		Usage:   "Huarong Pass sliding-block puzzle server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: settings.Host, Usage: "HTTP server host", Destination: &settings.Host},
			&cli.IntFlag{Name: "port", Value: settings.Port, Usage: "HTTP server port", Destination: &settings.Port},
			&cli.StringFlag{Name: "config-dir", Value: settings.ConfigDir, Usage: "Directory containing layout files", Destination: &settings.ConfigDir},
			&cli.BoolFlag{Name: "debug", Value: settings.Debug, Usage: "Enable debug logging", Destination: &settings.Debug},
			&cli.StringFlag{Name: "session-store", Value: settings.SessionStore, Usage: "Session store: file or sqlite", Destination: &settings.SessionStore},
			&cli.StringFlag{Name: "sessions-dir", Value: settings.SessionsDir, Usage: "Directory for the file session store", Destination: &settings.SessionsDir},
			&cli.StringFlag{Name: "sqlite-path", Value: settings.SQLitePath, Usage: "Database file for the sqlite session store", Destination: &settings.SQLitePath},
			&cli.DurationFlag{Name: "session-ttl", Value: settings.SessionTTL, Usage: "Idle time after which a session is removed", Destination: &settings.SessionTTL},
			&cli.BoolFlag{Name: "ngrok", Value: settings.NgrokEnabled, Usage: "Enable ngrok tunnel", Destination: &settings.NgrokEnabled},
			&cli.StringFlag{Name: "ngrok-auth", Value: settings.NgrokAuthToken, Usage: "Ngrok auth token", Destination: &settings.NgrokAuthToken},
			&cli.StringFlag{Name: "ngrok-domain", Value: settings.NgrokDomain, Usage: "Custom ngrok domain (optional)", Destination: &settings.NgrokDomain},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := settings.Validate(); err != nil {
				return ctx, err
			}
			setupLogging(settings.Debug)
			return ctx, nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serve,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCPWithInternalServer(ctx, settings)
				},
			},
			{
				Name:  "layouts",
				Usage: "List the layouts in the config directory",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return listLayouts(cmd.Root().Writer, settings.ConfigDir)
				},
			},
		},
	}
}

// listLayouts prints one line per layout a session can be created from
func listLayouts(w io.Writer, configDir string) error {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}
	layouts, err := configManager.ListConfigs()
	if err != nil {
		return err
	}
	if len(layouts) == 0 {
		fmt.Fprintln(w, "No layouts found, sessions use the built-in classic layout")
		return nil
	}
	for _, l := range layouts {
		fmt.Fprintf(w, "%-20s %dx%d %2d pieces  %s\n", l.ConfigID, l.Columns, l.Rows, l.Pieces, l.Description)
	}
	return nil
}

// setupLogging sends logfmt records to stderr so stdout stays free for MCP stdio
func setupLogging(debug bool) {
	lvl := log15.LvlInfo
	if debug {
		lvl = log15.LvlDebug
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))
}

// services is everything the transports share
type services struct {
	game     service.GameService
	sessions *session.Manager
	sqlite   *session.SQLitePersistence
}

// initializeServices wires layout, session and game services for the
// configured session store.
func initializeServices(settings *config.Settings) (*services, error) {
	configManager, err := config.NewManager(settings.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	svc := &services{}

	var persistence session.SessionPersistence
	switch settings.SessionStore {
	case config.StoreSQLite:
		svc.sqlite, err = session.NewSQLitePersistence(settings.SQLitePath, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		persistence = svc.sqlite
	default:
		persistence, err = session.NewFilePersistence(settings.SessionsDir, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
	}

	svc.sessions = session.NewManagerWithPersistence(persistence)
	if err := svc.sessions.LoadPersistedSessions(); err != nil {
		log.Warn("failed to load persisted sessions", "err", err)
	}
	log.Info("sessions loaded", "store", settings.SessionStore, "count", svc.sessions.Count())

	svc.game = service.NewGameService(svc.sessions, configManager)
	return svc, nil
}

// startBackground runs session maintenance until ctx is done
func (s *services) startBackground(ctx context.Context, wg *sync.WaitGroup, settings *config.Settings) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, s.sessions, cleanupInterval, settings.SessionTTL)
	}()
	go func() {
		defer wg.Done()
		storeSyncRoutine(ctx, s.sessions, settings.SyncInterval)
	}()
}

// Close flushes sessions and releases the store
func (s *services) Close() error {
	var errs []error
	if err := s.sessions.SaveAllSessions(); err != nil {
		errs = append(errs, fmt.Errorf("save sessions: %w", err))
	}
	if err := s.sqlite.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session database: %w", err))
	}
	return errors.Join(errs...)
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Info("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// storeSyncRoutine drops in-memory sessions whose stored copy was deleted
// behind the server's back.
func storeSyncRoutine(ctx context.Context, manager *session.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := manager.PruneOrphaned(); pruned > 0 {
				log.Info("store sync pruned orphaned sessions", "count", pruned)
			}
		}
	}
}

// localURL returns a URL the process can reach its own server on
func localURL(host string, port int) string {
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(strings.Trim(host, "[]"), fmt.Sprint(port))
}

// newHandler combines the REST API, WebSocket and MCP endpoint
func newHandler(gameService service.GameService, hub *websocket.Hub, mcpBaseURL string) http.Handler {
	apiServer := api.NewServer(gameService, hub)
	mcpClient := mcp.NewClient(mcpBaseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", server.NewStreamableHTTPServer(mcpClient.GetMCPServer()))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, settings *config.Settings) error {
	log.Info("starting", "app", AppName, "version", Version, "mode", "server")

	svc, err := initializeServices(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	svc.startBackground(ctx, &wg, settings)

	hub := websocket.NewHub(svc.game)
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	addr := settings.Addr()
	handler := newHandler(svc.game, hub, localURL(settings.Host, settings.Port))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", addr,
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if settings.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings, handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()
	log.Info("server stopped")
	return nil
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, settings *config.Settings, handler http.Handler) {
	if settings.NgrokAuthToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		log.Info("using custom ngrok domain", "domain", settings.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokAuthToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "err", err)
		return
	}

	ngrokURL := tun.URL()
	log.Info("ngrok tunnel established", "url", ngrokURL,
		"api", ngrokURL+"/api",
		"ws", ngrokURL+"/ws?session=<session_id>",
		"mcp", ngrokURL+"/mcp")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error("ngrok server error", "err", err)
	}
	log.Info("ngrok tunnel closed")
}

// externalAPIAvailable reports whether a server answers /health at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API first; if unavailable, it starts an
// internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, settings *config.Settings) error {
	log.Info("starting", "app", AppName, "version", Version, "mode", "stdio-mcp")

	baseURL := settings.ExternalAPI
	log.Info("checking for external API server", "url", baseURL)

	if externalAPIAvailable(ctx, baseURL) {
		log.Info("MCP stdio server ready (using external HTTP server)", "url", baseURL)
		return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
	}

	log.Info("no external API server found, starting internal HTTP server")

	svc, err := initializeServices(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()
	svc.startBackground(ctx, &wg, settings)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}

	hub := websocket.NewHub(svc.game)
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	internalServer := &http.Server{Handler: api.NewServer(svc.game, hub)}
	go func() {
		if err := internalServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("internal HTTP server error", "err", err)
		}
	}()
	defer internalServer.Close()

	baseURL = "http://" + listener.Addr().String()
	log.Info("MCP stdio server ready (using internal HTTP server)", "url", baseURL)

	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}
