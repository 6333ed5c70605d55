package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/randyrektor/obs-gameshow-overlay/internal/app"
	"github.com/randyrektor/obs-gameshow-overlay/internal/config"
	filesink "github.com/randyrektor/obs-gameshow-overlay/internal/infra/file"
	"github.com/randyrektor/obs-gameshow-overlay/internal/infra/memory"
	pgarchive "github.com/randyrektor/obs-gameshow-overlay/internal/infra/postgres"
	redissink "github.com/randyrektor/obs-gameshow-overlay/internal/infra/redis"
	transport "github.com/randyrektor/obs-gameshow-overlay/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game-show control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	logDir := cfg.Session.Dir
	if logDir == "" {
		logDir = "sessions"
	}
	sink, err := filesink.NewSink(logDir)
	if err != nil {
		return err
	}
	sinks := []app.EventSink{sink}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)
		sinks = append(sinks, redissink.NewEventSink(redisClient, redisTTL))
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, 4*time.Hour)
	recorder := app.NewRecorder(sessionTTL, sinks...)
	game := app.NewGameService(recorder)

	wsHandler := transport.NewWSHandler(game)
	exportHandler := transport.NewExportHandler(recorder, cfg.Export.DefaultFPS)

	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bundb := bun.NewDB(sqldb, pgdialect.New())
		defer bundb.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		loader := pgarchive.NewSessionLoader(pool)
		cacheTTL := config.TTLDuration(cfg.Export.CacheTTL, 10*time.Minute)
		exportHandler.WithArchive(
			pgarchive.NewArchiver(bundb),
			memory.NewSessionCache(loader, cacheTTL),
			loader,
		)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	exportHandler.Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket connections outlive any sane value.
	}

	go func() {
		log.Printf("starting game-show server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	// A live session is worth closing cleanly so the file sink holds a
	// complete log with its session-end event.
	if _, err := recorder.EndSession(); err == nil {
		log.Println("recording session closed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
