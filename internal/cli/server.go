package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codium-engine/internal/app"
	"codium-engine/internal/config"
	"codium-engine/internal/domain"
	"codium-engine/internal/infra/memory"
	pgloader "codium-engine/internal/infra/postgres"
	redisinfra "codium-engine/internal/infra/redis"
	transport "codium-engine/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the battle engine server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.SetLoader = memory.NewStaticSetLoader(sampleSets())
	if pool != nil {
		loader = pgloader.NewSetLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var sets app.SetRepository
	if redisClient != nil {
		sets = redisinfra.NewSetRepository(redisClient, loader, contentTTL)
	} else {
		sets = memory.NewSetRepository(loader, contentTTL)
	}

	var sessions app.SessionRepository
	var progress app.ProgressStore
	var board app.LeaderboardClient
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
		progress = redisinfra.NewProgressStore(redisClient)
		board = redisinfra.NewLeaderboard(redisClient, cfg.Leaderboard.ID)
	} else {
		sessions = memory.NewSessionStore()
		progress = memory.NewProgressStore()
		board = memory.NewLeaderboard()
	}

	spawnCfg := app.DefaultSpawnConfig()
	if cfg.Spawn.CorrectPickChance > 0 {
		spawnCfg.CorrectPickChance = cfg.Spawn.CorrectPickChance
	}
	if cfg.Spawn.ForceEvery > 0 {
		spawnCfg.ForceEvery = cfg.Spawn.ForceEvery
	}
	if cfg.Spawn.NoRepeatWindow > 0 {
		spawnCfg.NoRepeatWindow = cfg.Spawn.NoRepeatWindow
	}
	spawnInterval := config.TTLDuration(cfg.Spawn.Interval, time.Second)

	ledger := app.NewLedgerWithStartingThreshold(progress, cfg.Progress.StartingNextXP)
	service := app.NewEngineService(sessions, sets, ledger, board, spawnCfg, cfg.Leaderboard.TopN)
	wsHandler := transport.NewWSHandler(service, spawnInterval)

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
		log.Printf("starting battle engine on :%s", finalPort)
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

// sampleSets seeds demo content for runs without Postgres.
func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"shrine-strings": {
			ID:            "shrine-strings",
			Title:         "String Shrine",
			RewardXP:      50,
			StartingLives: 3,
			Questions: []domain.Question{
				{
					ID:            "q1",
					Prompt:        "Catch the answer that prints hello on screen.",
					ContextLine:   `print(___)`,
					Mode:          domain.ModeExactKind,
					ExpectedKind:  domain.KindStringLiteral,
					CorrectAnswer: `"hello"`,
					Distractors:   []string{"hello", "5", "print"},
					WrongHints:    []string{"Text needs quotes around it.", "Look for the quoted value."},
				},
				{
					ID:             "q2",
					Prompt:         "Catch a number to feed the counter.",
					ContextLine:    `count = ___`,
					Mode:           domain.ModeExactKind,
					ExpectedKind:   domain.KindNumber,
					CorrectAnswer:  "7",
					AcceptedValues: []string{"7"},
					Distractors:    []string{`"7"`, "seven", "count"},
					WrongHints:     []string{"Numbers are written without quotes."},
				},
				{
					ID:           "q3",
					Prompt:       "Assemble the greeting in order.",
					Mode:         domain.ModeSequence,
					CorrectOrder: []string{`name = "Ada"`, `print("hi", name)`},
					IgnoreCase:   true,
					WrongHints:   []string{"Set the name before printing it."},
				},
			},
		},
		"shrine-math": {
			ID:            "shrine-math",
			Title:         "Math Shrine",
			RewardXP:      60,
			StartingLives: 3,
			Questions: []domain.Question{
				{
					ID:          "q1",
					Prompt:      "Fill the slots so the expression equals 14.",
					ContextLine: `___ + ___ * ___`,
					Mode:        domain.ModeEvaluate,
					TargetValue: 14,
					Distractors: []string{"2", "3", "4", "5", `"2"`},
					WrongHints:  []string{"Multiplication binds before addition."},
				},
				{
					ID:              "q2",
					Prompt:          "Name the operator that multiplies.",
					Mode:            domain.ModeFreeText,
					AcceptedAnswers: []string{"*", "asterisk"},
					WrongHints:      []string{"It is the star symbol."},
				},
			},
		},
	}
}
