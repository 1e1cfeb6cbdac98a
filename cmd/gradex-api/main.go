package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gradex/internal/bootstrap"
	"gradex/internal/browser"
	"gradex/internal/captcha"
	"gradex/internal/config"
	gradexhttp "gradex/internal/http"
	"gradex/internal/jobs"
	"gradex/internal/migrate"
	"gradex/internal/scraper"
	"gradex/internal/services"
	"gradex/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api, worker, or all")
	flag.Parse()

	cfg := config.Load(*configPath)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := migrate.Run(cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	defer db.Close()

	st := store.New(db)

	if err := bootstrap.Run(context.Background(), cfg, st); err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	driver := browser.NewDriver(cfg.Browser, logger)
	solver := captcha.New(cfg.Captcha)
	sc := scraper.New(solver, driver, cfg.Scraper, logger)

	reconciler := services.NewReconciler(st, logger)
	subjects := services.NewSubjectService(st, driver, sc, logger)
	extractions := services.NewExtractionService(st, cfg.Robots, logger)

	coordinator := jobs.NewCoordinator(st, driver, sc, reconciler, cfg, logger)
	runner := jobs.NewRunner(cfg, st, coordinator, logger)

	server := gradexhttp.NewServer(cfg, st, gradexhttp.Deps{
		Subjects:    subjects,
		Extractions: extractions,
	}, logger)

	switch *role {
	case "api":
		logger.Info("starting api", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := server.Listen(); err != nil {
			log.Fatalf("server exited: %v", err)
		}
	case "worker":
		logger.Info("starting worker")
		runner.Start(context.Background())
	case "all":
		logger.Info("starting api and worker", "host", cfg.Server.Host, "port", cfg.Server.Port)
		go runner.Start(context.Background())
		if err := server.Listen(); err != nil {
			log.Fatalf("server exited: %v", err)
		}
	default:
		log.Fatalf("unknown role %q (want api, worker, or all)", *role)
	}
}
