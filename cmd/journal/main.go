package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"journal/internal/app"
	"journal/internal/cache"
	"journal/internal/db"
	"journal/internal/httpx"
	"journal/internal/journal"
	"journal/internal/ratelimit"
	"journal/internal/storage"
	"journal/internal/store"
)

var schemaPath string

func main() {
	root := &cobra.Command{
		Use:           "journal",
		Short:         "journal is a small journaling and friends service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&schemaPath, "schema", "schema.sql", "path to the schema file")

	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the schema to the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.LoadConfig()
			database, err := db.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := db.Migrate(database, schemaPath); err != nil {
				return err
			}
			log.Printf("schema applied to %s", cfg.DatabaseURL)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.LoadConfig()

			database, err := db.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := db.Migrate(database, schemaPath); err != nil {
				return err
			}

			limiter := ratelimit.NewSQL(database, cfg.AnonCommentLimit, cfg.AnonCommentWindow)
			svc := journal.New(store.New(database), limiter, cache.New(cfg.StatsTTL))
			pics := storage.NewLocal(cfg.UserpicDir)
			srv := httpx.NewServer(database, cfg, svc, pics)

			httpServer := &http.Server{
				Addr:         cfg.Addr,
				Handler:      httpx.WithAccessLog(srv),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go cleanupLoop(ctx, limiter, cfg.AnonCommentWindow)

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Println("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// cleanupLoop prunes expired rate limit rows so the table does not grow
// with one row per origin forever.
func cleanupLoop(ctx context.Context, limiter *ratelimit.SQL, window time.Duration) {
	t := time.NewTicker(window)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := limiter.Cleanup(ctx); err != nil {
				log.Printf("rate limit cleanup: %v", err)
			}
		}
	}
}
