package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/stockroom-ims/stockroom/internal/app"
	"github.com/stockroom-ims/stockroom/internal/platform/db"
)

// Applies every .sql file in migrations/ in lexical order.
func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	files, err := filepath.Glob("migrations/*.sql")
	if err != nil {
		logger.Error("list migrations", slog.Any("error", err))
		os.Exit(1)
	}
	sort.Strings(files)

	for _, file := range files {
		sqlText, err := os.ReadFile(file)
		if err != nil {
			logger.Error("read migration", slog.String("file", file), slog.Any("error", err))
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(sqlText)); err != nil {
			logger.Error("apply migration", slog.String("file", file), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migration applied", slog.String("file", file))
	}
}
