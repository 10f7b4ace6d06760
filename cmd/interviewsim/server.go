package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/api"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/config"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/interview"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the interview server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running interview server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and backend status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the interview tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "interviewsim.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "interviewsim version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, os.Stderr)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		printWarning("interviewsim is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing index store: %v\n", err)
		}
	}()
	if err := a.ensureReady(ctx); err != nil {
		return err
	}

	sessions := interview.NewSessions(cfg.Session.TTL)
	defer sessions.Close()

	if cfg.Server.APIToken != "" {
		slog.Info("API bearer token required on /api routes")
	}
	handler := api.NewHandler(api.Deps{
		Service:        a.service,
		Sessions:       sessions,
		Token:          cfg.Server.APIToken,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConnections)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "interviewsim listening on %s\n", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol.
	setupLogging(cfg.Log.Level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.ensureReady(ctx); err != nil {
		return err
	}

	session := interview.NewSession(uuid.NewString())
	defer session.Close(context.Background())

	mcpSrv := api.NewMCPServer(api.MCPDeps{Service: a.service, Session: session})
	slog.Info("MCP server started (stdio transport)", "session", session.ID())
	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("interviewsim is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop interviewsim (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to interviewsim (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	running := false
	if resp, err := client.get(checkCtx, "/health"); err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		running = resp.StatusCode == http.StatusOK
		if running {
			printStatus("Server", "running at %s", client.baseURL)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Probe the backends only. Opening an on-disk index here would clear
	// the running server's passages.
	probeCfg := cfg
	probeCfg.Retrieval.Backend = config.BackendMemory
	a, err := newApp(ctx, probeCfg)
	if err != nil {
		printStatus("LLM backend", "misconfigured: %v", err)
	} else {
		defer a.Close()
		printStatus("LLM backend", "%s at %s (%s)", cfg.LLM.Provider, cfg.LLM.BaseURL, reachable(checkCtx, a.chat.IsRunning))
		if a.embed != a.chat {
			printStatus("Embed backend", "%s at %s (%s)", cfg.Embedding.Provider, cfg.Embedding.BaseURL, reachable(checkCtx, a.embed.IsRunning))
		}
	}
	printStatus("Chat model", "%s", cfg.LLM.Model)
	printStatus("Embed model", "%s", cfg.Embedding.Model)
	printStatus("Index backend", "%s", cfg.Retrieval.Backend)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)

	if running {
		if resp, err := client.get(ctx, "/api/session"); err == nil {
			var snap interview.Snapshot
			if decodeJSON(resp, &snap) == nil {
				printSnapshot(snap)
			}
		}
	}
	return nil
}

func reachable(ctx context.Context, check func(context.Context) bool) string {
	if check(ctx) {
		return "reachable"
	}
	return "not reachable"
}
