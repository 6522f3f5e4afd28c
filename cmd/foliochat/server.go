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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lionelhu/foliochat/internal/api"
	"github.com/lionelhu/foliochat/internal/chat"
	"github.com/lionelhu/foliochat/internal/completion"
	"github.com/lionelhu/foliochat/internal/config"
	"github.com/lionelhu/foliochat/internal/history"
	"github.com/lionelhu/foliochat/internal/profile"
	"github.com/lionelhu/foliochat/internal/repos"
	"github.com/lionelhu/foliochat/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the foliochat server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running foliochat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show foliochat status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "foliochat.pid")
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

// sources are the read-only inputs every answer is built from.
type sources struct {
	profile *profile.Profile
	catalog *repos.Catalog
}

// loadSources reads the profile and the catalog concurrently. Both must
// succeed before anything is served.
func loadSources(ctx context.Context, cfg config.Config) (sources, error) {
	var src sources
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := profile.Load(cfg.Data.ProfilePath, cfg.Data.ResumePDF)
		if err != nil {
			return err
		}
		src.profile = p
		return nil
	})
	g.Go(func() error {
		c, err := loadCatalog(gctx, cfg)
		if err != nil {
			return err
		}
		src.catalog = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return sources{}, err
	}
	return src, nil
}

func loadCatalog(ctx context.Context, cfg config.Config) (*repos.Catalog, error) {
	if cfg.Data.CatalogSource != config.CatalogFromSQLite {
		return repos.LoadFile(cfg.Data.CatalogPath)
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()
	return store.LoadCatalog(ctx)
}

// buildService wires the completion client and the loaded sources into the
// answer pipeline.
func buildService(ctx context.Context, cfg config.Config, src sources) (*chat.Service, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	completer, err := completion.New(ctx, cfg.Completion)
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}
	return chat.NewService(completer, src.profile, src.catalog, history.Limits{
		MaxMessages: cfg.Chat.MaxMessages,
		MaxChars:    cfg.Chat.MaxChars,
	})
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "foliochat version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	base := serverURL(cfg.Server)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(base + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("foliochat is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("foliochat is already running at %s", base)
		return fmt.Errorf("server already running at %s", base)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := loadSources(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("sources loaded", "profile", src.profile.Name, "repos", src.catalog.Len(), "catalog_source", cfg.Data.CatalogSource)

	svc, err := buildService(ctx, cfg, src)
	if err != nil {
		return err
	}
	slog.Info("completion client ready", "provider", cfg.Completion.Provider, "model", cfg.Completion.Model)

	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(svc),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "foliochat listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
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
		printError("foliochat is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop foliochat (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to foliochat (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	base := serverURL(cfg.Server)
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running at %s", base)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Provider", "%s", cfg.Completion.Provider)
	printStatus("Model", "%s", cfg.Completion.Model)
	if cfg.RequireAPIKey() != nil {
		printStatus("API key", "missing")
	} else {
		printStatus("API key", "set")
	}
	printStatus("Profile", "%s", cfg.Data.ProfilePath)
	if cfg.Data.CatalogSource == config.CatalogFromSQLite {
		printStatus("Catalog", "sqlite (%s)", cfg.Storage.DataDir)
	} else {
		printStatus("Catalog", "%s", cfg.Data.CatalogPath)
	}
	printStatus("Config file", "%s", config.FilePath())
	return nil
}
