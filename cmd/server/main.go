package main

import (
	"context"
	"log"
	"net/http"

	webAdapter "budget-service/internal/adapters/web"
	"budget-service/internal/app"
	"budget-service/internal/config"
	"budget-service/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	svc := app.NewAppService(pool)
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret, cfg.ServiceAPIKey)

	log.Printf("server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
