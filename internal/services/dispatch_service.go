package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/gatewatch/internal/dispatch"
	"github.com/example/gatewatch/internal/models"
)

// ErrOrderNotFound is returned when the referenced order does not exist.
var ErrOrderNotFound = errors.New("order not found")

// errStaleStatus signals that a guarded status write matched zero rows:
// the status read before the transaction no longer holds, typically
// because a concurrent operator applied the same transition first.
var errStaleStatus = errors.New("status changed since read")

// updateGuarded applies a status transition conditionally on the status
// the caller read. Zero matched rows means another writer got there
// first; the in-memory guard checks alone cannot rule that out.
func updateGuarded(tx *gorm.DB, model any, fromStatus string, updates map[string]any) error {
	result := tx.Model(model).Where("status = ?", fromStatus).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errStaleStatus
	}
	return nil
}

// DispatchService owns the order lifecycle from pending through the
// delivery-type branches to completion. Every status write is preceded
// by a guard check from the dispatch package.
type DispatchService struct {
	db *gorm.DB
}

// NewDispatchService constructs DispatchService.
func NewDispatchService(db *gorm.DB) *DispatchService {
	return &DispatchService{db: db}
}

// ProcessInput carries the operator's dispatch details. The vehicle
// fields used depend on the order's delivery type.
type ProcessInput struct {
	Notes             string `json:"notes"`
	CustomerVehicleNo string `json:"customer_vehicle_no"`
	DriverName        string `json:"driver_name"`
	DriverContact     string `json:"driver_contact"`
	TransporterName   string `json:"transporter_name"`
	VehicleNo         string `json:"vehicle_no"`
}

// CustomerDetailsInput updates the customer fields that gate processing.
type CustomerDetailsInput struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

func (s *DispatchService) loadOrder(orderID uuid.UUID) (*models.Order, *models.DispatchRecord, error) {
	var order models.Order
	if err := s.db.Preload("Dispatch").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	return &order, order.Dispatch, nil
}

// ProcessOrder begins dispatch for an order. Missing customer details
// on self/part-load orders produce a customer_details_required result
// instead of an error so the desk can redirect to the details form.
func (s *DispatchService) ProcessOrder(orderID uuid.UUID, in ProcessInput) (OpResult, error) {
	order, record, err := s.loadOrder(orderID)
	if err != nil {
		return OpResult{}, err
	}

	status := ""
	if record != nil {
		status = record.Status
	}
	if !dispatch.CanProcess(status) {
		return resultOf(ResultInvalidState, fmt.Sprintf("order is already %s", status)), nil
	}

	if !dispatch.CustomerDetailsComplete(order) {
		if err := s.upsertRecord(order, record, dispatch.StatusCustomerDetailsRequired, in, nil); err != nil {
			return OpResult{}, err
		}
		return resultOf(ResultCustomerDetailsRequired, "customer contact and address are required before dispatch"), nil
	}

	next := dispatch.NextAfterProcess(order.DeliveryType)
	now := time.Now()
	if err := s.upsertRecord(order, record, next, in, &now); err != nil {
		return OpResult{}, err
	}

	if next == dispatch.StatusReadyForLoad || next == dispatch.StatusReadyForPickup {
		if err := s.ensureGatePass(order, in); err != nil {
			return OpResult{}, err
		}
	}

	return resultOf(next, "order processed"), nil
}

func (s *DispatchService) upsertRecord(order *models.Order, record *models.DispatchRecord, status string, in ProcessInput, processedAt *time.Time) error {
	if record == nil {
		record = &models.DispatchRecord{OrderID: order.ID}
	}
	record.Status = status
	if in.Notes != "" {
		record.Notes = in.Notes
	}
	record.ProcessedAt = processedAt

	switch order.DeliveryType {
	case models.DeliverySelf, models.DeliveryPartLoad:
		record.CustomerVehicleNo = in.CustomerVehicleNo
		record.DriverName = in.DriverName
	default:
		record.TransporterName = in.TransporterName
		record.VehicleNo = in.VehicleNo
	}

	return s.db.Save(record).Error
}

// ensureGatePass creates the pass exactly once per order.
func (s *DispatchService) ensureGatePass(order *models.Order, in ProcessInput) error {
	var existing models.GatePass
	err := s.db.First(&existing, "order_id = ?", order.ID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	pass := models.GatePass{
		OrderID:         order.ID,
		Status:          models.PassPending,
		CustomerVehicle: in.CustomerVehicleNo,
		DriverName:      in.DriverName,
		DriverContact:   in.DriverContact,
		IssuedAt:        time.Now(),
	}
	return s.db.Create(&pass).Error
}

// UpdateCustomerDetails supplies the missing customer fields and clears
// the customer_details_required gate back to pending.
func (s *DispatchService) UpdateCustomerDetails(orderID uuid.UUID, in CustomerDetailsInput) (OpResult, error) {
	order, record, err := s.loadOrder(orderID)
	if err != nil {
		return OpResult{}, err
	}

	updates := map[string]any{}
	if strings.TrimSpace(in.Name) != "" {
		updates["customer_name"] = strings.TrimSpace(in.Name)
	}
	if strings.TrimSpace(in.Contact) != "" {
		updates["customer_contact"] = strings.TrimSpace(in.Contact)
	}
	if strings.TrimSpace(in.Address) != "" {
		updates["customer_address"] = strings.TrimSpace(in.Address)
	}
	if strings.TrimSpace(in.Email) != "" {
		updates["customer_email"] = strings.TrimSpace(in.Email)
	}
	if len(updates) == 0 {
		return resultOf(ResultInvalidState, "no customer details supplied"), nil
	}

	if err := s.db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		return OpResult{}, err
	}

	if record != nil && record.Status == dispatch.StatusCustomerDetailsRequired {
		if err := s.db.Model(record).Update("status", dispatch.StatusPending).Error; err != nil {
			return OpResult{}, err
		}
	}

	return resultOf("updated", "customer details saved"), nil
}

// MarkLoaded confirms the physical load. expectedType pins the endpoint
// to its delivery branch; the conditional status write is what makes a
// second concurrent call fail instead of double-applying.
func (s *DispatchService) MarkLoaded(orderID uuid.UUID, expectedType, notes string) (OpResult, error) {
	order, record, err := s.loadOrder(orderID)
	if err != nil {
		return OpResult{}, err
	}
	if order.DeliveryType != expectedType {
		return resultOf(ResultInvalidState, fmt.Sprintf("order is %s delivery, not %s", order.DeliveryType, expectedType)), nil
	}
	if record == nil || !dispatch.CanMarkLoaded(order.DeliveryType, record.Status) {
		current := ""
		if record != nil {
			current = record.Status
		}
		return resultOf(ResultInvalidState, fmt.Sprintf("cannot mark loaded from status %q", current)), nil
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": dispatch.StatusLoaded, "loaded_at": &now}
		if notes != "" {
			updates["notes"] = notes
		}
		if err := updateGuarded(tx, record, record.Status, updates); err != nil {
			return err
		}
		return tx.Model(&models.GatePass{}).
			Where("order_id = ?", order.ID).
			Update("status", models.PassLoaded).Error
	})
	if errors.Is(err, errStaleStatus) {
		return resultOf(ResultInvalidState, "order status changed since it was read; reload and retry"), nil
	}
	if err != nil {
		return OpResult{}, err
	}

	return resultOf(dispatch.StatusLoaded, "load confirmed"), nil
}

// AdvanceTransit moves a company/free delivery from assigned transport
// to in transit.
func (s *DispatchService) AdvanceTransit(orderID uuid.UUID) (OpResult, error) {
	_, record, err := s.loadOrder(orderID)
	if err != nil {
		return OpResult{}, err
	}
	if record == nil || !dispatch.CanAdvanceTransit(record.Status) {
		return resultOf(ResultInvalidState, "order is not awaiting transport"), nil
	}
	err = updateGuarded(s.db, record, dispatch.StatusAssignedTransport,
		map[string]any{"status": dispatch.StatusInTransit})
	if errors.Is(err, errStaleStatus) {
		return resultOf(ResultInvalidState, "order is not awaiting transport"), nil
	}
	if err != nil {
		return OpResult{}, err
	}
	return resultOf(dispatch.StatusInTransit, "transport departed"), nil
}

// MarkDelivered completes a company/free delivery.
func (s *DispatchService) MarkDelivered(orderID uuid.UUID) (OpResult, error) {
	_, record, err := s.loadOrder(orderID)
	if err != nil {
		return OpResult{}, err
	}
	if record == nil || !dispatch.CanMarkDelivered(record.Status) {
		return resultOf(ResultInvalidState, "order is not in transit"), nil
	}
	now := time.Now()
	err = updateGuarded(s.db, record, dispatch.StatusInTransit, map[string]any{
		"status":       dispatch.StatusCompleted,
		"completed_at": &now,
	})
	if errors.Is(err, errStaleStatus) {
		return resultOf(ResultInvalidState, "order is not in transit"), nil
	}
	if err != nil {
		return OpResult{}, err
	}
	return resultOf(dispatch.StatusCompleted, "delivery confirmed"), nil
}

// ListOrders returns orders with their dispatch records, optionally
// filtered by status or delivery type. The pending view excludes orders
// already past the gate because the filter mirrors the status field.
func (s *DispatchService) ListOrders(status, deliveryType string, limit, offset int) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{}).
		Joins("LEFT JOIN dispatch_records ON dispatch_records.order_id = orders.id")

	if status != "" {
		if status == dispatch.StatusPending {
			query = query.Where(
				"dispatch_records.id IS NULL OR dispatch_records.status IN ?",
				[]string{dispatch.StatusPending, dispatch.StatusCustomerDetailsRequired},
			)
		} else {
			query = query.Where("dispatch_records.status = ?", status)
		}
	}
	if deliveryType != "" {
		query = query.Where("orders.delivery_type = ?", deliveryType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Dispatch").
		Order("orders.created_at desc").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Summary counts dispatch records by status and orders by delivery type.
func (s *DispatchService) Summary() (map[string]int64, map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}

	byStatus := map[string]int64{}
	var statusRows []row
	if err := s.db.Model(&models.DispatchRecord{}).
		Select("status as key, count(*) as count").
		Group("status").Scan(&statusRows).Error; err != nil {
		return nil, nil, err
	}
	for _, r := range statusRows {
		byStatus[r.Key] = r.Count
	}

	byType := map[string]int64{}
	var typeRows []row
	if err := s.db.Model(&models.Order{}).
		Select("delivery_type as key, count(*) as count").
		Group("delivery_type").Scan(&typeRows).Error; err != nil {
		return nil, nil, err
	}
	for _, r := range typeRows {
		byType[r.Key] = r.Count
	}

	return byStatus, byType, nil
}

// NotificationView adds the consume-once is_new flag to a stored
// notification.
type NotificationView struct {
	models.GateNotification
	IsNew bool `json:"is_new"`
}

// Notifications returns the recent gate event feed. Undelivered rows
// come back with is_new=true and are stamped delivered in the same
// transaction, so a later poll returns them without the flag.
func (s *DispatchService) Notifications(retention time.Duration, limit int) ([]NotificationView, error) {
	if limit <= 0 {
		limit = 20
	}
	cutoff := time.Now().Add(-retention)

	var views []NotificationView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rows []models.GateNotification
		if err := tx.Where("created_at > ?", cutoff).
			Order("created_at desc").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}

		now := time.Now()
		var freshIDs []uuid.UUID
		for _, n := range rows {
			fresh := n.DeliveredAt == nil
			if fresh {
				freshIDs = append(freshIDs, n.ID)
			}
			views = append(views, NotificationView{GateNotification: n, IsNew: fresh})
		}

		if len(freshIDs) == 0 {
			return nil
		}
		return tx.Model(&models.GateNotification{}).
			Where("id IN ?", freshIDs).
			Update("delivered_at", &now).Error
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
