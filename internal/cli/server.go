package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/app"
	"github.com/EfrenHaskell/Cosi166Project/internal/config"
	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"github.com/EfrenHaskell/Cosi166Project/internal/infra/memory"
	"github.com/EfrenHaskell/Cosi166Project/internal/infra/openai"
	pgstore "github.com/EfrenHaskell/Cosi166Project/internal/infra/postgres"
	redisqueue "github.com/EfrenHaskell/Cosi166Project/internal/infra/redis"
	"github.com/EfrenHaskell/Cosi166Project/internal/runner"
	transport "github.com/EfrenHaskell/Cosi166Project/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the classroom question server",
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
		finalPort = "8000"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var grader app.GradingPipeline
	if apiKey := os.Getenv("OPEN_AI_API_KEY"); apiKey != "" {
		grader = openai.NewGrader(
			apiKey,
			cfg.Grading.BaseURL,
			cfg.Grading.Model,
			cfg.Grading.Context,
			config.Duration(cfg.Grading.Timeout, 30*time.Second),
		)
	} else {
		log.Printf("OPEN_AI_API_KEY not set; submissions will be recorded ungraded")
	}

	controller := app.NewSessionController(grader)
	controller.SetStabilization(config.Duration(cfg.Session.Stabilization, app.DefaultStabilization))
	if pool != nil {
		controller.SetArchiver(pgstore.NewAnswerArchive(pool))
	}

	var remote app.QueueBackend
	if redisClient != nil {
		remote = redisqueue.NewQueue(redisClient)
	}
	queue := app.NewFailoverQueue(remote, memory.NewQueue())

	problemTTL := config.Duration(cfg.Problems.TTL, 10*time.Minute)
	var loader memory.ProblemLoader = memory.NewStaticProblemLoader(sampleProblems())
	if pool != nil {
		loader = pgstore.NewProblemLoader(pool)
	}
	var problems app.ProblemRepository
	if redisClient != nil {
		problems = redisqueue.NewProblemRepository(redisClient, loader, problemTTL)
	} else {
		problems = memory.NewProblemRepository(loader, problemTTL)
	}

	codeRunner := runner.New(cfg.Runner.Dir, config.Duration(cfg.Runner.Timeout, 10*time.Second))

	handler := transport.NewHandler(controller, queue, problems, codeRunner)
	statusStream := transport.NewStatusStream(controller)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/status", statusStream.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting classroom api on :%s", finalPort)
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

// sampleProblems seeds the bank when no Postgres is configured; swap for real
// content in production.
func sampleProblems() map[string]domain.Problem {
	return map[string]domain.Problem{
		"warmup-1": {
			ID:       "warmup-1",
			Prompt:   "Write a function that returns the sum of two integers.",
			Language: "python",
		},
		"warmup-2": {
			ID:       "warmup-2",
			Prompt:   "Print the numbers 1 through 10, one per line.",
			Language: "python",
		},
	}
}
