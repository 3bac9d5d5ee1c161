package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/controllers"
	"github.com/devrantukan/spinning-tenant-be-sub001/app/repository"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/cache"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/database"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/hcaptcha"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/identity"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/mail"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/receipt"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/redemption"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/router"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/scheduler"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/storage"
)

const bodyLimit = 12 << 20

func main() {
	app, jobs := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		fiberlog.Info("[Main] shutting down")
		if err := jobs.Shutdown(); err != nil {
			fiberlog.Warnf("[Main] scheduler shutdown: %v", err)
		}
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *scheduler.Scheduler) {
	env.SetupEnvFile()
	if err := database.SetupDatabase(); err != nil {
		log.Fatalf("database: %v", err)
	}
	cache.SetupCache()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	uploader, err := storage.NewUploaderFromEnv(ctx)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	mailer, err := mail.NewSenderFromEnv()
	if err != nil {
		log.Fatalf("mail: %v", err)
	}
	renderer, err := receipt.NewRenderer()
	if err != nil {
		log.Fatalf("receipt templates: %v", err)
	}

	friendPassSecret := env.GetEnv("FRIEND_PASS_SECRET", "")
	ids := identity.NewClientFromEnv()
	core := backend.NewClientFromEnv()
	repos := repository.NewFactory(database.GetDB())
	receipts := receipt.NewService(repos.GetReceiptRepository(), mailer, uploader, renderer, friendPassSecret)
	redemptions := redemption.NewService(core, receipts, time.Now)

	fiberlog.Infof("[Main] tenant %s, storage %s, mail %s", core.OrganizationID, uploader.Name(), mailer.Name())

	app := fiber.New(fiber.Config{
		AppName:   "Spin8 Tenant BFF",
		BodyLimit: bodyLimit,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	docsFile := env.GetEnv("OPENAPI_FILE", "public/docs/v1/openapi.yml")
	if _, err := os.Stat(docsFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: docsFile,
			Path:     "v1",
			Title:    "Spin8 BFF API",
		}))
	} else {
		fiberlog.Warnf("[Main] %s not found, API docs disabled", docsFile)
	}

	router.InstallRouter(app, router.Deps{
		Identity:         ids,
		Backend:          core,
		Redemptions:      redemptions,
		Receipts:         receipts,
		Storage:          uploader,
		Health:           healthChecks(core, uploader),
		Captcha:          hcaptcha.NewVerifierFromEnv(),
		OrganizationID:   core.OrganizationID,
		ServiceAPIKey:    env.GetEnv("SERVICE_API_KEY", ""),
		FriendPassSecret: friendPassSecret,
		PhotoMaxSize:     env.GetEnvInt("PHOTO_MAX_SIZE", storage.DefaultPhotoSize),
		RecoveryRedirect: env.GetEnv("PASSWORD_RECOVERY_REDIRECT", ""),
		DashboardURL:     env.GetEnv("DASHBOARD_URL", "/"),
		AllowedOrigins:   env.GetEnv("CORS_ALLOWED_ORIGINS", ""),
		RateLimit:        env.GetEnvInt("API_RATE_LIMIT", 0),
		MetricsUser:      env.GetEnv("METRICS_USER", ""),
		MetricsPassword:  env.GetEnv("METRICS_PASSWORD", ""),
	})

	jobs, err := scheduler.New(scheduler.LoadConfig(), core, receipts)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	jobs.Start()

	return app, jobs
}

func healthChecks(core *backend.Client, uploader storage.Uploader) []controllers.HealthCheck {
	checks := []controllers.HealthCheck{
		{Name: "database", Required: true, Check: func(ctx context.Context) error {
			sqlDB, err := database.GetDB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "cache", Check: func(ctx context.Context) error {
			return cache.GetClient().Ping(ctx).Err()
		}},
		{Name: "backend", Check: func(context.Context) error {
			if strings.TrimSpace(core.BaseURL) == "" {
				return backend.ErrNotConfigured
			}
			return nil
		}},
	}
	if p, ok := uploader.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, controllers.HealthCheck{Name: "storage", Check: p.Ping})
	}
	return checks
}
