package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/example/gatewatch/internal/models"
)

// NotificationWorker prunes gate notifications that were already
// delivered and have aged out of the feed's retention window.
type NotificationWorker struct {
	db        *gorm.DB
	interval  time.Duration
	retention time.Duration
}

// NewNotificationWorker constructs NotificationWorker.
func NewNotificationWorker(db *gorm.DB, interval, retention time.Duration) *NotificationWorker {
	return &NotificationWorker{db: db, interval: interval, retention: retention}
}

// Start runs the prune loop until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	log.Printf("[Notifications] prune worker started (every %s, retention %s)", w.interval, w.retention)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Notifications] prune worker stopped")
			return
		case <-ticker.C:
			if err := w.prune(); err != nil {
				log.Printf("[Notifications] prune failed: %v", err)
			}
		}
	}
}

func (w *NotificationWorker) prune() error {
	cutoff := time.Now().Add(-w.retention)
	result := w.db.Where("delivered_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.GateNotification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("[Notifications] pruned %d delivered notifications", result.RowsAffected)
	}
	return nil
}
