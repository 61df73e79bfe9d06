// Command migrate applies or rolls back the embedded schema migrations.
//
// Usage: migrate -direction=up|down
package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/prohmpiriya/tenant-auth/migrations"
	"github.com/prohmpiriya/tenant-auth/pkg/config"
	"github.com/prohmpiriya/tenant-auth/pkg/database"
	"github.com/prohmpiriya/tenant-auth/pkg/logger"
)

func main() {
	direction := flag.String("direction", database.MigrateUp, "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name + "-migrate",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	migrateLog := logger.Get()

	dbCfg := &database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	}
	if err := database.RunMigrations(dbCfg, migrations.FS, *direction); err != nil {
		migrateLog.Fatal("Migration failed", zap.String("direction", *direction), zap.Error(err))
	}
	migrateLog.Info("Migration complete", zap.String("direction", *direction))
}
