package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"winequiz-service/internal/app"
	"winequiz-service/internal/config"
	"winequiz-service/internal/domain"
	"winequiz-service/internal/infra/memory"
	pgstore "winequiz-service/internal/infra/postgres"
	redisstore "winequiz-service/internal/infra/redis"
	transport "winequiz-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.ContentLoader = memory.NewStaticContentLoader(sampleContent())
	if pool != nil {
		loader = pgstore.NewContentStore(pool)
	}
	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	contentRepo := memory.NewContentRepository(loader, contentTTL)

	var scores app.ScoreStore = memory.NewScoreStore()
	var states app.StateStore = memory.NewStateStore()
	if redisClient != nil {
		scores = redisstore.NewScoreStore(redisClient)
		stateTTL := config.TTLDuration(cfg.Redis.StateTTL, 4*time.Hour)
		states = redisstore.NewStateStore(redisClient, stateTTL)
	}

	service := app.NewGameService(memory.NewSessionStore(), contentRepo, scores, states)
	issuer := transport.NewTokenIssuer(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour))
	handler := transport.Router(service, issuer, cfg.Auth.AdminKey)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting winequiz service on :%s", finalPort)
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

// sampleContent seeds a demo session for redis/postgres-less runs.
func sampleContent() map[string]domain.GameContent {
	return map[string]domain.GameContent{
		"demo": {
			SessionID:       "demo",
			Name:            "Harvest Night",
			Mode:            domain.ModeIndividual,
			QuestionSeconds: 60,
			Teams: []domain.Team{
				{ID: "t1", Name: "Malbec", Color: "#722f37", MaxMembers: 6},
				{ID: "t2", Name: "Chardonnay", Color: "#e8d8a0", MaxMembers: 6},
			},
			Rounds: []domain.Round{
				{
					ID:       "r1",
					Number:   1,
					Name:     "Reds",
					WineType: "red",
					Questions: []domain.Question{
						{
							ID:     "q1",
							Type:   domain.QuestionMultipleChoice,
							Prompt: "Which grape is Barolo made from?",
							Options: []domain.Option{
								{ID: "a", Text: "Sangiovese"},
								{ID: "b", Text: "Nebbiolo"},
								{ID: "c", Text: "Barbera"},
							},
							Answer: "b",
							Weight: 2,
						},
						{
							ID:         "q2",
							Type:       domain.QuestionAutocomplete,
							Prompt:     "Name the region of Châteauneuf-du-Pape.",
							Candidates: []string{"Rhône", "Bordeaux", "Loire"},
							Answer:     "Rhône",
							Weight:     1,
						},
					},
				},
			},
		},
	}
}
