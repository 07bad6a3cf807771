package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"filmforge-api/core"
)

func main() {
	// Optional .env for local development; real deployments use process env.
	_ = godotenv.Load()

	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if cfg.JWTSecret == "" {
		log.Fatalf("JWT_SECRET must be set")
	}

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	userRepo := core.NewPgUserRepository(db)
	movieRepo := core.NewPgMovieRepository(db)
	cache := core.NewCatalogCache(redisClient, cfg.MovieCacheTTL)
	metrics := core.NewMetricsService(redisClient)

	codec, err := core.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to build token codec: %v", err)
	}
	creds := core.NewCredentialAuthenticator(userRepo)
	loginService := core.NewLoginService(creds, codec)
	tokenAuth := core.NewTokenAuthenticator(userRepo, codec)

	if err := core.BootstrapAdmin(ctx, userRepo, cfg); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}

	if cfg.SeedPath != "" {
		n, err := core.SeedMovies(ctx, movieRepo, cache, cfg.SeedPath)
		if err != nil {
			log.Fatalf("movie seed failed: %v", err)
		}
		log.Printf("movie seed complete: %d inserted", n)
	}

	router := core.NewRouter(cfg, userRepo, movieRepo, loginService, tokenAuth, cache, metrics, db)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
