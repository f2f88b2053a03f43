package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/farellandr/rollcall/config"
	"github.com/farellandr/rollcall/internal/logger"
	"github.com/farellandr/rollcall/internal/server"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	if err := server.Start(cfg, zl); err != nil {
		zl.Fatal("server failed to start", zap.Error(err))
	}
}
