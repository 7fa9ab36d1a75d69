package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/gatewatch/internal/config"
	"github.com/example/gatewatch/internal/handlers"
	"github.com/example/gatewatch/internal/middleware"
	"github.com/example/gatewatch/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, attendance *services.AttendanceService, alerts *services.AlertService) {
	dispatchSvc := services.NewDispatchService(db)
	watchmanSvc := services.NewWatchmanService(db, alerts, cfg.OverridePasscodeHash)
	guestSvc := services.NewGuestService(db)

	dispatchHandler := handlers.NewDispatchHandler(dispatchSvc, cfg.NotificationRetention)
	watchmanHandler := handlers.NewWatchmanHandler(watchmanSvc)
	guestHandler := handlers.NewGuestHandler(guestSvc)
	gateEntryHandler := handlers.NewGateEntryHandler(attendance)

	api := app.Group("/api", middleware.AuthMiddleware(cfg))

	// Dispatch desk
	dispatch := api.Group("/dispatch")
	dispatch.Get("/all", dispatchHandler.ListAll)
	dispatch.Get("/summary", dispatchHandler.Summary)
	dispatch.Get("/notifications", dispatchHandler.Notifications)
	dispatch.Post("/process/:orderId", dispatchHandler.Process)
	dispatch.Put("/customer-details/:orderId", dispatchHandler.UpdateCustomerDetails)
	dispatch.Post("/self/loaded/:orderId", dispatchHandler.SelfLoaded)
	dispatch.Post("/part-load/loaded/:orderId", dispatchHandler.PartLoadLoaded)
	dispatch.Post("/transit/:orderId", dispatchHandler.Transit)
	dispatch.Post("/delivered/:orderId", dispatchHandler.Delivered)

	// Security desk: gate passes
	watchman := api.Group("/watchman")
	watchman.Get("/pending-pickups", watchmanHandler.PendingPickups)
	watchman.Get("/gate-passes", watchmanHandler.GatePasses)
	watchman.Get("/summary", watchmanHandler.Summary)
	watchman.Post("/verify/:gatePassId", watchmanHandler.Verify)
	watchman.Post("/reject/:gatePassId", watchmanHandler.Reject)
	watchman.Post("/override/:gatePassId", watchmanHandler.Override)

	// Security desk: guests
	guests := watchman.Group("/guests")
	guests.Get("/", guestHandler.List)
	guests.Get("/summary", guestHandler.Summary)
	guests.Post("/", guestHandler.Create)
	guests.Put("/:id", guestHandler.Update)
	guests.Delete("/:id", guestHandler.Delete)
	guests.Post("/:id/check-in", guestHandler.CheckIn)
	guests.Post("/:id/check-out", guestHandler.CheckOut)
	guests.Post("/:id/cancel", guestHandler.Cancel)

	// Attendance gate
	gateEntry := api.Group("/gate-entry")
	gateEntry.Get("/users", gateEntryHandler.Users)
	gateEntry.Get("/users/:id", gateEntryHandler.GetUser)
	gateEntry.Delete("/users/:id", gateEntryHandler.DeactivateUser)
	gateEntry.Post("/register", gateEntryHandler.Register)
	gateEntry.Post("/recognize-face", gateEntryHandler.RecognizeFace)
	gateEntry.Post("/manual-entry", gateEntryHandler.ManualEntry)
	gateEntry.Post("/manual-exit", gateEntryHandler.ManualExit)
	gateEntry.Post("/going-out", gateEntryHandler.GoingOut)
	gateEntry.Post("/coming-back", gateEntryHandler.ComingBack)
	gateEntry.Get("/logs", gateEntryHandler.Logs)
	gateEntry.Get("/going-out-logs", gateEntryHandler.GoingOutLogs)
	gateEntry.Get("/today-logs", gateEntryHandler.TodayLogs)
	gateEntry.Get("/export-logs", gateEntryHandler.ExportLogs)
}
