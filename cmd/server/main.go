package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/config"
	"github.com/VRCarlos21/QrSanfer/internal/database"
	"github.com/VRCarlos21/QrSanfer/internal/handler"
	"github.com/VRCarlos21/QrSanfer/internal/queue"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
	"github.com/VRCarlos21/QrSanfer/internal/router"
	"github.com/VRCarlos21/QrSanfer/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if cfg.MigrationsFile != "" {
		if err := database.ApplyMigrationFile(db, cfg.MigrationsFile); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting, caching and counters disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	offices := repository.NewOfficeRepo(db)
	permits := repository.NewPermitRepo(db)
	externals := repository.NewExternalRepo(db)
	readings := repository.NewReadingRepo(db)
	counters := repository.NewCounterRepo(rdb)
	audit := repository.NewAuditRepo(db)
	changes := repository.NewOfficeChangeRepo(db)

	photos, err := service.NewPhotoStore(cfg.PhotoDir, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("photo store: %v", err)
	}
	scanner := service.NewScanner(permits, externals, readings, counters, photos)

	go func() {
		if err := queue.StartNotificationConsumer(queue.NewProvider(cfg.NotifProvider)); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Cfg:    cfg,
		RDB:    rdb,
		Users:  users,
		Auth:   handler.NewAuthHandler(cfg, users, tokens),
		Permit: handler.NewPermitHandler(cfg, permits),
		Admin:  handler.NewAdminPermitHandler(permits, audit),
		Guard:  handler.NewVigilanteHandler(scanner, permits, externals, readings, counters, photos),
		Office: handler.NewOfficeHandler(offices, audit),
		Change: handler.NewOfficeChangeHandler(changes, offices, audit),
		Acct:   handler.NewAccountHandler(users, tokens, audit),
		Audit:  handler.NewAuditHandler(audit),
		Photo:  handler.NewPhotoHandler(photos),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
