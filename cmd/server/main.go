package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/gatewatch/internal/config"
	"github.com/example/gatewatch/internal/database"
	"github.com/example/gatewatch/internal/recognition"
	"github.com/example/gatewatch/internal/routes"
	"github.com/example/gatewatch/internal/services"
	"github.com/example/gatewatch/internal/worker"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	app := fiber.New(fiber.Config{
		AppName: "Gatewatch Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	alerts := services.NewAlertService(cfg.TelegramBotToken, cfg.TelegramChatID)
	faceGate := services.NewFaceGateService(cfg.FaceGateBaseURL, cfg.FaceGateAPIKey)
	attendance := services.NewAttendanceService(db, faceGate, cfg.CooldownWindow)

	routes.Register(app, db, cfg, attendance, alerts)

	ctx := context.Background()

	pruner := worker.NewNotificationWorker(db, cfg.PruneInterval, cfg.NotificationRetention)
	go pruner.Start(ctx)

	if cfg.CameraSnapshotURL != "" {
		startKiosk(cfg, attendance)
	}

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}

// startKiosk runs the in-process recognition loop against the
// configured snapshot camera.
func startKiosk(cfg *config.Config, attendance *services.AttendanceService) {
	engine := recognition.NewEngine(func() (recognition.FrameSource, error) {
		return recognition.OpenSnapshotCamera(cfg.CameraSnapshotURL)
	}, attendance, cfg.RecognitionTick)

	if err := engine.StartCamera(); err != nil {
		log.Printf("[Kiosk] camera unavailable: %v", err)
		return
	}
	if err := engine.StartRecognition(cfg.CameraAction); err != nil {
		log.Printf("[Kiosk] recognition start failed: %v", err)
		if stopErr := engine.Stop(); stopErr != nil {
			log.Printf("[Kiosk] camera release failed: %v", stopErr)
		}
		return
	}
	log.Printf("[Kiosk] recognition loop running (%s, tick %s)", cfg.CameraAction, cfg.RecognitionTick)
}
