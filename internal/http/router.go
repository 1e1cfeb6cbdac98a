package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gradex/internal/config"
	"gradex/internal/metrics"
	"gradex/internal/services"
	"gradex/internal/store"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	store  *store.Store
	logger *slog.Logger
}

// Deps carries the engine-side services the gateway dispatches to.
type Deps struct {
	Subjects    services.SubjectService
	Extractions services.ExtractionService
}

func NewServer(cfg *config.Config, st *store.Store, deps Deps, logger *slog.Logger) *Server {
	app := fiber.New()

	// Inject config, store, and services into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		c.Locals("subjectService", deps.Subjects)
		c.Locals("extractionService", deps.Extractions)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		}
	}

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check DB and Redis connectivity and browser config.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := st.DB.PingContext(ctx); err != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		browserStatus := "launcher"
		if cfg.Browser.ControlURL != "" {
			browserStatus = "remote"
		}

		status := "ok"
		if dbStatus != "ok" || redisStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status":  status,
			"db":      dbStatus,
			"redis":   redisStatus,
			"browser": browserStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	v1 := app.Group("/v1", rateMw)
	registerExtractionRoutes(v1)
	registerCollectionRoutes(v1)

	return &Server{
		app:    app,
		config: cfg,
		store:  st,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func registerExtractionRoutes(group fiber.Router) {
	group.Post("/extractions/identify_subjects/:batch_id", identifySubjectsHandler)
	group.Post("/extractions/add_subjects/:batch_id", addSubjectsHandler)
	group.Post("/extractions/scraper/:section_id", startScraperHandler)
	group.Get("/extractions/:id", getExtractionHandler)
	group.Get("/extractions/:id/invalids", getExtractionInvalidHandler)
	group.Get("/sections/:section_id/extractions", listExtractionsHandler)
}

func registerCollectionRoutes(group fiber.Router) {
	group.Post("/departments", createDepartmentHandler)
	group.Get("/departments", listDepartmentsHandler)
	group.Get("/departments/:id", getDepartmentHandler)
	group.Delete("/departments/:id", deleteDepartmentHandler)
	group.Post("/departments/login", departmentLoginHandler)

	group.Post("/batches", createBatchHandler)
	group.Get("/batches", listBatchesHandler)
	group.Get("/batches/:id", getBatchHandler)
	group.Delete("/batches/:id", deleteBatchHandler)

	group.Post("/batches/:batch_id/semesters", createSemesterHandler)
	group.Get("/batches/:batch_id/semesters", listSemestersHandler)
	group.Put("/batches/:batch_id/semesters/:id/current", setCurrentSemesterHandler)
	group.Delete("/semesters/:id", deleteSemesterHandler)
	group.Get("/semesters/:sem_id/subjects", listSubjectsHandler)

	group.Post("/sections", createSectionHandler)
	group.Get("/batches/:batch_id/sections", listSectionsHandler)
	group.Get("/sections/:id", getSectionHandler)
	group.Delete("/sections/:id", deleteSectionHandler)

	group.Post("/students", createStudentHandler)
	group.Get("/sections/:section_id/students", listStudentsHandler)
	group.Get("/students/:id", getStudentHandler)
	group.Put("/students/:id", updateStudentHandler)
	group.Delete("/students/:id", deleteStudentHandler)

	group.Put("/subjects/:id", updateSubjectHandler)
	group.Delete("/subjects/:id", deleteSubjectHandler)

	group.Get("/students/:id/marks", listMarksHandler)
	group.Delete("/marks/:id", deleteMarkHandler)

	group.Post("/students/:id/performances/:sem_id", computePerformanceHandler)
	group.Get("/students/:id/performances", listPerformancesHandler)
}
