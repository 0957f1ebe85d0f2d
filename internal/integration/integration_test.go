package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"codium-engine/internal/app"
	"codium-engine/internal/domain"
	pgloader "codium-engine/internal/infra/postgres"
	pgmigrations "codium-engine/internal/infra/postgres/migrations"
	infraredis "codium-engine/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestBattleRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedSet(t, ctx, pgURL, sampleSet())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	sets := infraredis.NewSetRepository(redisClient, pgloader.NewSetLoader(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	ledger := app.NewLedger(infraredis.NewProgressStore(redisClient))
	board := infraredis.NewLeaderboard(redisClient, "it_board")
	service := app.NewEngineService(sessions, sets, ledger, board, app.DefaultSpawnConfig(), 10)

	snap, err := service.Start(ctx, "p1", "Alice", "shrine-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.MaxLives != 2 {
		t.Fatalf("expected 2 lives for a 2-question set, got %d", snap.MaxLives)
	}

	out, err := service.Submit(ctx, snap.SessionID, domain.Submission{Values: []string{`"hello"`}})
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if !out.Result.Verdict.Accepted || out.Result.Finished {
		t.Fatalf("expected accepted mid-run answer, got %+v", out.Result)
	}

	out, err = service.Submit(ctx, snap.SessionID, domain.Submission{Values: []string{"7"}})
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if !out.Result.Finished || out.Result.State != "won" {
		t.Fatalf("expected won run, got %+v", out.Result)
	}
	if !out.Saved || out.Progress == nil {
		t.Fatalf("expected saved progress, got %+v", out)
	}

	// Full-lives win: 2 stars, 1000 score, 60 coins, 50 XP. The 50 XP fills
	// the first level threshold, so the run also grants a 100-coin bonus.
	if out.Progress.TotalScore != 1000 {
		t.Fatalf("expected total score 1000, got %d", out.Progress.TotalScore)
	}
	if out.Progress.Level != 2 || out.Progress.BonusCoins != 100 {
		t.Fatalf("expected level 2 with 100 bonus coins, got %+v", out.Progress)
	}
	if out.Progress.TotalCoins != 160 {
		t.Fatalf("expected 160 total coins, got %d", out.Progress.TotalCoins)
	}

	// Durable record reloads from Redis, not from the run in memory.
	rec, err := service.Profile(ctx, "p1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if rec.Level != 2 || rec.TotalScore != 1000 || !rec.LevelUpPending {
		t.Fatalf("unexpected durable record: %+v", rec)
	}

	self, err := board.GetSelf(ctx, "p1")
	if err != nil {
		t.Fatalf("get self: %v", err)
	}
	if self == nil || self.Score != 1000 || self.DisplayName != "Alice" {
		t.Fatalf("unexpected leaderboard entry: %+v", self)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "engine", "POSTGRES_PASSWORD": "enginepass", "POSTGRES_DB": "enginedb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://engine:enginepass@%s:%s/enginedb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedSet(t *testing.T, ctx context.Context, dsn string, set domain.QuestionSet) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_sets (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set.ID, string(data)); err != nil {
		t.Fatalf("insert set: %v", err)
	}
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID:       "shrine-1",
		Title:    "String Shrine",
		RewardXP: 50,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "Catch the answer that prints hello.",
				Mode:          domain.ModeExactKind,
				ExpectedKind:  domain.KindStringLiteral,
				CorrectAnswer: `"hello"`,
				Distractors:   []string{"hello", "5"},
			},
			{
				ID:            "q2",
				Prompt:        "Catch a number for the counter.",
				Mode:          domain.ModeExactKind,
				ExpectedKind:  domain.KindNumber,
				CorrectAnswer: "7",
				Distractors:   []string{`"7"`, "seven"},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
