package services

import (
	"errors"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/gatewatch/internal/dispatch"
	"github.com/example/gatewatch/internal/models"
)

// newTestDB opens the Postgres database named by TEST_DATABASE_URL and
// skips the test when none is configured. These tests cover the
// conditional status writes, which only a real database can exercise.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	for _, m := range []any{&models.Order{}, &models.DispatchRecord{}, &models.GatePass{}, &models.GateNotification{}} {
		if err := db.AutoMigrate(m); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM gate_notifications")
		db.Exec("DELETE FROM gate_passes")
		db.Exec("DELETE FROM dispatch_records")
		db.Exec("DELETE FROM orders")
	})
	return db
}

func seedSelfOrder(t *testing.T, db *gorm.DB, orderNumber, status string) *models.Order {
	t.Helper()

	order := models.Order{
		OrderNumber:     orderNumber,
		ProductName:     "cement",
		Quantity:        10,
		DeliveryType:    models.DeliverySelf,
		CustomerName:    "Aziz Karimov",
		CustomerContact: "998901112233",
		CustomerAddress: "Chilonzor 5",
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	record := models.DispatchRecord{OrderID: order.ID, Status: status}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed dispatch record: %v", err)
	}

	pass := models.GatePass{OrderID: order.ID, Status: models.PassPending, CustomerVehicle: "01A123BC"}
	if err := db.Create(&pass).Error; err != nil {
		t.Fatalf("seed gate pass: %v", err)
	}
	return &order
}

// A status write conditioned on the status the caller read must match
// zero rows once that status has moved on.
func TestUpdateGuardedRefusesStaleStatus(t *testing.T) {
	db := newTestDB(t)
	order := seedSelfOrder(t, db, "ORD-GUARD-1", dispatch.StatusEnteredForPickup)

	var record models.DispatchRecord
	if err := db.First(&record, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}

	if err := updateGuarded(db, &record, dispatch.StatusEnteredForPickup,
		map[string]any{"status": dispatch.StatusLoaded}); err != nil {
		t.Fatalf("first guarded write: %v", err)
	}

	// Same expectation again: the row is loaded now, so this is stale.
	err := updateGuarded(db, &record, dispatch.StatusEnteredForPickup,
		map[string]any{"status": dispatch.StatusLoaded})
	if !errors.Is(err, errStaleStatus) {
		t.Errorf("stale guarded write error = %v, want errStaleStatus", err)
	}
}

// Two operators clicking "mark loaded" at once: exactly one request
// applies the transition, the other reports invalid_state.
func TestMarkLoadedConcurrentClicks(t *testing.T) {
	db := newTestDB(t)
	order := seedSelfOrder(t, db, "ORD-GUARD-2", dispatch.StatusEnteredForPickup)
	svc := NewDispatchService(db)

	results := make(chan OpResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.MarkLoaded(order.ID, models.DeliverySelf, "")
			if err != nil {
				t.Errorf("MarkLoaded: %v", err)
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	loaded, refused := 0, 0
	for res := range results {
		switch res.Status {
		case dispatch.StatusLoaded:
			loaded++
		case ResultInvalidState:
			refused++
		default:
			t.Errorf("unexpected result status %q", res.Status)
		}
	}
	if loaded != 1 || refused != 1 {
		t.Errorf("got %d loaded, %d refused; want exactly one of each", loaded, refused)
	}

	var record models.DispatchRecord
	if err := db.First(&record, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if record.Status != dispatch.StatusLoaded {
		t.Errorf("final status = %q, want loaded", record.Status)
	}
}

// Two concurrent send-ins for one pass: one enters, one is refused, and
// only one vehicle-entered notification is written.
func TestVerifyAndSendInConcurrent(t *testing.T) {
	db := newTestDB(t)
	order := seedSelfOrder(t, db, "ORD-GUARD-3", dispatch.StatusReadyForLoad)
	svc := NewWatchmanService(db, NewAlertService("", 0), "")

	var pass models.GatePass
	if err := db.First(&pass, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load pass: %v", err)
	}

	in := VerifyInput{CustomerName: "Aziz Karimov", VehicleNo: "01A123BC"}
	results := make(chan OpResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.VerifyAndSendIn(pass.ID, in)
			if err != nil {
				t.Errorf("VerifyAndSendIn: %v", err)
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	entered, refused := 0, 0
	for res := range results {
		switch res.Status {
		case dispatch.StatusEnteredForPickup:
			entered++
		case ResultInvalidState:
			refused++
		default:
			t.Errorf("unexpected result status %q", res.Status)
		}
	}
	if entered != 1 || refused != 1 {
		t.Errorf("got %d entered, %d refused; want exactly one of each", entered, refused)
	}

	var notifications int64
	if err := db.Model(&models.GateNotification{}).
		Where("order_number = ?", order.OrderNumber).
		Count(&notifications).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if notifications != 1 {
		t.Errorf("got %d notifications, want 1", notifications)
	}
}
