package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	redisclient "github.com/opencampus-io/registrar-backend/internal/clients/redis"
	"github.com/opencampus-io/registrar-backend/internal/config"
	"github.com/opencampus-io/registrar-backend/internal/db"
	"github.com/opencampus-io/registrar-backend/internal/handlers"
	"github.com/opencampus-io/registrar-backend/internal/jobs"
	"github.com/opencampus-io/registrar-backend/internal/ledger"
	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/middleware"
	"github.com/opencampus-io/registrar-backend/internal/observability"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/server"
	"github.com/opencampus-io/registrar-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "registrar-backend",
		Environment: os.Getenv("ENVIRONMENT"),
		Version:     os.Getenv("SERVICE_VERSION"),
	})
	if otelShutdown != nil {
		defer func() { _ = otelShutdown(context.Background()) }()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	enrollmentRepo := repos.NewEnrollmentRepo(thePG, log)
	assignmentRepo := repos.NewAssignmentRepo(thePG, log)
	submissionRepo := repos.NewSubmissionRepo(thePG, log)
	gradeRepo := repos.NewGradeRepo(thePG, log)
	anchorJobRepo := repos.NewAnchorJobRepo(thePG, log)

	// Ledger
	var ledgerClient ledger.Client
	anchoringEnabled := cfg.AnchoringEnabled
	if anchoringEnabled {
		ledgerClient, err = ledger.NewAlgorandClient(log, cfg.Ledger)
		if err != nil {
			log.Warn("Ledger client init failed, anchoring disabled", "error", err)
			anchoringEnabled = false
		}
	}

	// Verification proof cache
	var proofCache redisclient.Cache
	if cfg.RedisAddr != "" {
		proofCache, err = redisclient.NewCache(log, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("Redis init failed, verification cache disabled", "error", err)
			proofCache = nil
		} else {
			defer proofCache.Close()
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(thePG, log, userRepo, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	courseService := services.NewCourseService(thePG, log, courseRepo, enrollmentRepo, assignmentRepo, userRepo, anchorJobRepo, anchoringEnabled)
	enrollmentService := services.NewEnrollmentService(thePG, log, courseRepo, enrollmentRepo, anchorJobRepo, anchoringEnabled)
	gradingService := services.NewGradingService(thePG, log, courseRepo, enrollmentRepo, assignmentRepo, submissionRepo, gradeRepo)
	directoryService := services.NewDirectoryService(thePG, log, userRepo, courseRepo, enrollmentRepo)
	dashboardService := services.NewDashboardService(thePG, log, userRepo, courseRepo, enrollmentRepo, assignmentRepo, gradeRepo)
	verificationService := services.NewVerificationService(thePG, log, enrollmentRepo, courseRepo, ledgerClient, proofCache)
	certificateService := services.NewCertificateService(thePG, log, courseRepo, enrollmentRepo, userRepo, ledgerClient)

	// Anchoring worker
	if anchoringEnabled {
		worker := jobs.NewAnchorWorker(thePG, log, anchorJobRepo, courseRepo, enrollmentRepo, ledgerClient)
		worker.Start(ctx)
	}

	// Handlers
	log.Info("Setting up Handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	courseHandler := handlers.NewCourseHandler(courseService, enrollmentService, gradingService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	studentHandler := handlers.NewStudentHandler(directoryService, enrollmentService, gradingService)
	professorHandler := handlers.NewProfessorHandler(directoryService, gradingService)
	blockchainHandler := handlers.NewBlockchainHandler(verificationService, certificateService)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		CourseHandler:     courseHandler,
		DashboardHandler:  dashboardHandler,
		StudentHandler:    studentHandler,
		ProfessorHandler:  professorHandler,
		BlockchainHandler: blockchainHandler,
	})

	log.Info("Starting server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
