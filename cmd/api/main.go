package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genart-works/genart-backend/config"
	"github.com/genart-works/genart-backend/internal/artifacts"
	"github.com/genart-works/genart-backend/internal/auth"
	"github.com/genart-works/genart-backend/internal/bootstrap"
	"github.com/genart-works/genart-backend/internal/maintenance"
	"github.com/genart-works/genart-backend/internal/projects/repository"
	"github.com/genart-works/genart-backend/internal/projects/service"
	"github.com/genart-works/genart-backend/internal/render"
	storagepg "github.com/genart-works/genart-backend/internal/storage/postgres"
	"github.com/genart-works/genart-backend/internal/users"
)

const sweepSchedule = "@hourly"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	store, err := artifacts.NewStore(cfg.Storage.ArtifactDir)
	if err != nil {
		log.Fatalf("artifact store: %v", err)
	}

	projectRepo, userRepo, pool := openStores(ctx, cfg)

	engine := render.NewEngine(
		cfg.Render.LauncherArgs(),
		cfg.Render.Timeout,
		cfg.Render.MaxDimension,
		cfg.Render.TempDir,
	)

	projects := service.NewProjectService(projectRepo, store, engine)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)

	sweeper := maintenance.NewSweeper(projectRepo, store, 10*time.Minute)
	cronRunner, err := sweeper.Start(sweepSchedule)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer cronRunner.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "genart-backend",
		Version:     cfg.App.Version,
		Projects:    projects,
		Users:       userRepo,
		Issuer:      issuer,
		Render:      &cfg.Render,
		DB:          pool,
	})

	log.Printf("[info] operation=serve message=listening on :%s backend=%s", cfg.Server.Port, cfg.Storage.Backend)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// openStores wires the configured backend. Users live in Postgres only when
// the project store does; the redis and memory backends keep users in memory.
func openStores(ctx context.Context, cfg *config.Config) (repository.ProjectRepository, users.UserRepository, *pgxpool.Pool) {
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := bootstrap.OpenDB(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}

		projectRepo := repository.NewPostgresRepository(pool)
		if err := projectRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres: %v", err)
		}

		db, err := storagepg.NewConnection(&cfg.Database)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		userRepo := users.NewPostgresRepository(db)
		if err := userRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres: %v", err)
		}

		return projectRepo, userRepo, pool

	case "redis":
		client, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		log.Println("[warn] operation=startup message=redis backend keeps users in memory")
		return repository.NewRedisRepository(client), users.NewMemoryRepository(), nil

	default:
		log.Println("[warn] operation=startup message=memory backend loses all data on restart")
		return repository.NewMemoryRepository(), users.NewMemoryRepository(), nil
	}
}
