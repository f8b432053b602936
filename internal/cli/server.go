package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archui-experiment-service/internal/app"
	"archui-experiment-service/internal/config"
	"archui-experiment-service/internal/infra/httpapi"
	"archui-experiment-service/internal/infra/memory"
	pgstore "archui-experiment-service/internal/infra/postgres"
	redisstore "archui-experiment-service/internal/infra/redis"
	transport "archui-experiment-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the experiment session server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 0)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	httpClient := &http.Client{Timeout: config.TTLDuration(cfg.Backends.Timeout, 30*time.Second)}
	assignmentTTL := config.TTLDuration(cfg.Assignment.TTL, 10*time.Minute)

	// Hosted mode serves assignments and archives submissions from Postgres;
	// otherwise the remote task and submission endpoints are used.
	var tasks app.TaskSource
	var sink app.SubmissionSink
	if pool != nil {
		source := pgstore.NewAssignmentSource(pool)
		if redisClient != nil {
			tasks = redisstore.NewAssignmentCache(redisClient, source, assignmentTTL)
		} else {
			tasks = memory.NewAssignmentCache(source, assignmentTTL)
		}
		sink = pgstore.NewSubmissionArchive(pool)
	} else {
		tasks = httpapi.NewTaskClient(cfg.Backends.TasksURL, httpClient)
		sink = httpapi.NewSubmissionClient(cfg.Backends.SubmitURL, httpClient)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}

	service := app.NewExperimentService(
		store,
		tasks,
		httpapi.NewRewriteClient(cfg.Backends.RewriteURL, httpClient),
		httpapi.NewSearchClient(cfg.Backends.SearchURL, httpClient),
		sink,
		httpapi.NewAuditLogger(cfg.Backends.LogURL, httpClient),
		app.SearchSettings{
			DatabaseURL:      cfg.Search.DatabaseURL,
			ModelID:          cfg.Search.ModelID,
			VersionID:        cfg.Search.VersionID,
			NumResults:       cfg.Search.NumResults,
			ReposAndProjects: cfg.Search.ReposAndProjects,
		},
	)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting experiment service on :%s", finalPort)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
