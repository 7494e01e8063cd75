package main

import (
	"context"
	"fmt"
	"log"

	"boardflow/backend/internal/config"
	"boardflow/backend/internal/logging"
	"boardflow/backend/internal/registry"
	"boardflow/backend/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()
	defer logger.Sync()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DB.Host == "" {
		log.Fatal("Seeding requires a configured database (db.host)")
	}

	// Connect to DB
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	// 1. Apply schema
	if _, err := pool.Exec(ctx, repository.Schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("Schema applied")

	store := repository.NewPostgresStore(pool)
	templates := store.TemplateView()

	// 2. Check existing templates to prevent duplicates
	existing, err := templates.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list existing templates: %v", err)
	}
	existingMap := make(map[string]bool)
	for _, t := range existing {
		existingMap[t.ID] = true
	}

	// 3. Upsert the builtin template catalog
	created := 0
	for _, template := range registry.Builtin() {
		if existingMap[template.ID] {
			logger.Info("Template already exists, skipping", "id", template.ID)
			continue
		}
		if err := template.Validate(); err != nil {
			log.Fatalf("Builtin template %s is invalid: %v", template.ID, err)
		}
		if err := templates.Put(ctx, template); err != nil {
			log.Fatalf("Failed to seed template %s: %v", template.ID, err)
		}
		logger.Info("Seeded template", "id", template.ID, "name", template.Name)
		created++
	}

	logger.Info("Seeding complete", "created", created, "skipped", len(existing))
}
