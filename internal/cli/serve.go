package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"corpusdash/internal/config"
	"corpusdash/internal/files"
	api "corpusdash/internal/http"
	"corpusdash/internal/http/handlers"
	"corpusdash/internal/services"
	"corpusdash/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Connect to the data store and serve the table, file, download and
report endpoints until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			if cfg == nil {
				return errors.New("configuration not loaded")
			}
			return runServe(cmd.Context(), cfg, loggerFrom(cmd.Context()))
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "listen address (default :5000)")
	f.String("gin-mode", "", "gin mode (debug|release|test)")
	f.String("store-driver", "", "data store driver (mongo|mysql|postgres|sqlite|memory)")
	f.String("store-uri", "", "data store connection string")
	f.String("files-backend", "", "file backend (local|minio)")
	f.String("files-root", "", "directory served by /api/file and /download")
	f.Int("max-page-size", 0, "largest accepted page size")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.App.GinMode != "" {
		gin.SetMode(cfg.App.GinMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := config.ConnectStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Warn("close data store", zap.Error(err))
		}
	}()

	src, closeFiles, err := config.OpenFiles(cfg.Files, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeFiles() }()

	return listenAndServe(ctx, NewServer(cfg, st, src, log), log)
}

// NewServer assembles services, handlers and router behind an http.Server.
func NewServer(cfg *config.Config, st store.Store, src files.Source, log *zap.Logger) *http.Server {
	tables := services.TableService{
		Store:       st,
		Datasets:    services.DatasetService{Files: src},
		MaxPageSize: cfg.Query.MaxPageSize,
		Log:         log,
	}
	hd := &handlers.Handler{
		Views:   cfg.Views,
		Tables:  tables,
		Reports: services.ReportService{Tables: tables},
		Files:   src,
		Store:   st,
		Log:     log,
	}

	return &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           api.NewRouter(cfg, hd, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// listenAndServe blocks until ctx is done, then drains the server.
func listenAndServe(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	log.Info("server stopped")
	return nil
}
