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
	"github.com/example/gatewatch/internal/utils"
)

// ErrGatePassNotFound is returned when the referenced pass does not exist.
var ErrGatePassNotFound = errors.New("gate pass not found")

// ErrBadPasscode is returned when the supervisor passcode does not match.
var ErrBadPasscode = errors.New("invalid supervisor passcode")

// WatchmanService is the security-desk side of the gate: identity
// verification, entry and release transitions, rejection, and the
// supervisor override for flagged passes.
type WatchmanService struct {
	db           *gorm.DB
	alerts       *AlertService
	overrideHash string
}

// NewWatchmanService constructs WatchmanService. overrideHash is the
// bcrypt hash of the supervisor passcode.
func NewWatchmanService(db *gorm.DB, alerts *AlertService, overrideHash string) *WatchmanService {
	return &WatchmanService{db: db, alerts: alerts, overrideHash: overrideHash}
}

// VerifyInput carries the identity details supplied at the gate.
type VerifyInput struct {
	CustomerName string `json:"customer_name"`
	VehicleNo    string `json:"vehicle_no"`
	DriverName   string `json:"driver_name"`
	Note         string `json:"note"`
}

func (s *WatchmanService) loadPass(gatePassID uuid.UUID) (*models.GatePass, *models.Order, *models.DispatchRecord, error) {
	var pass models.GatePass
	if err := s.db.Preload("Order").Preload("Order.Dispatch").First(&pass, "id = ?", gatePassID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrGatePassNotFound
		}
		return nil, nil, nil, err
	}
	if pass.Order == nil || pass.Order.Dispatch == nil {
		return nil, nil, nil, fmt.Errorf("gate pass %s has no dispatch record", gatePassID)
	}
	return &pass, pass.Order, pass.Order.Dispatch, nil
}

// VerifyAndSendIn checks the supplied identity against the order and,
// on a match, lets the vehicle into the loading area. A mismatch leaves
// all state unchanged apart from the mismatch counter; the operator may
// retry until the pass gets flagged.
func (s *WatchmanService) VerifyAndSendIn(gatePassID uuid.UUID, in VerifyInput) (OpResult, error) {
	pass, order, record, err := s.loadPass(gatePassID)
	if err != nil {
		return OpResult{}, err
	}

	if !dispatch.CanSendIn(record.Status) {
		return resultOf(ResultInvalidState, fmt.Sprintf("cannot send in from status %q", record.Status)), nil
	}
	if pass.Flagged() {
		return resultOf(ResultOverrideRequired, "pass is flagged after repeated identity mismatches; supervisor override required"), nil
	}

	if !dispatch.NamesMatch(in.CustomerName, order.CustomerName) {
		if err := s.db.Model(pass).Update("mismatch_count", pass.MismatchCount+1).Error; err != nil {
			return OpResult{}, err
		}
		return resultOf(ResultIdentityMismatch, "supplied customer name does not match the order"), nil
	}

	if err := s.sendIn(pass, order, record, in, false); err != nil {
		if errors.Is(err, errStaleStatus) {
			return resultOf(ResultInvalidState, "pass status changed since it was read; reload and retry"), nil
		}
		return OpResult{}, err
	}
	return resultOf(dispatch.StatusEnteredForPickup, "vehicle sent in"), nil
}

// sendIn applies the entry transition. The record write is conditional
// on the status the caller read so two concurrent send-ins cannot both
// apply.
func (s *WatchmanService) sendIn(pass *models.GatePass, order *models.Order, record *models.DispatchRecord, in VerifyInput, overridden bool) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := updateGuarded(tx, record, record.Status,
			map[string]any{"status": dispatch.StatusEnteredForPickup}); err != nil {
			return err
		}

		passUpdates := map[string]any{
			"status":         models.PassEntered,
			"mismatch_count": 0,
			"overridden":     overridden,
		}
		if in.VehicleNo != "" {
			passUpdates["customer_vehicle"] = in.VehicleNo
		}
		if in.DriverName != "" {
			passUpdates["driver_name"] = in.DriverName
		}
		if err := tx.Model(pass).Updates(passUpdates).Error; err != nil {
			return err
		}

		vehicle := in.VehicleNo
		if vehicle == "" {
			vehicle = pass.CustomerVehicle
		}
		notification := models.GateNotification{
			Type:          models.NotificationVehicleEntered,
			OrderNumber:   order.OrderNumber,
			VehicleNumber: vehicle,
			Message:       fmt.Sprintf("Vehicle %s entered for order %s", vehicle, order.OrderNumber),
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return err
	}

	go s.alerts.NotifyVehicleEntered(order.OrderNumber, in.VehicleNo, in.DriverName)
	return nil
}

// VerifyAndRelease verifies the loaded goods against the pass and
// completes the order. Valid only while the dispatch record is loaded.
func (s *WatchmanService) VerifyAndRelease(gatePassID uuid.UUID, in VerifyInput) (OpResult, error) {
	pass, order, record, err := s.loadPass(gatePassID)
	if err != nil {
		return OpResult{}, err
	}

	if !dispatch.CanRelease(record.Status) {
		return resultOf(ResultInvalidState, fmt.Sprintf("cannot release from status %q", record.Status)), nil
	}
	if in.CustomerName != "" && !dispatch.NamesMatch(in.CustomerName, order.CustomerName) {
		return resultOf(ResultIdentityMismatch, "supplied customer name does not match the order"), nil
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := updateGuarded(tx, record, dispatch.StatusLoaded, map[string]any{
			"status":       dispatch.StatusCompleted,
			"completed_at": &now,
		}); err != nil {
			return err
		}
		return tx.Model(pass).Updates(map[string]any{
			"status":      models.PassVerified,
			"verified_at": &now,
		}).Error
	})
	if errors.Is(err, errStaleStatus) {
		return resultOf(ResultInvalidState, "pass status changed since it was read; reload and retry"), nil
	}
	if err != nil {
		return OpResult{}, err
	}

	return resultOf(dispatch.StatusCompleted, "goods released"), nil
}

// Reject terminates a pending pass with a mandatory reason. No further
// transition on the pass or its dispatch record succeeds afterwards.
func (s *WatchmanService) Reject(gatePassID uuid.UUID, reason string) (OpResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return OpResult{}, errors.New("rejection reason is required")
	}

	pass, order, record, err := s.loadPass(gatePassID)
	if err != nil {
		return OpResult{}, err
	}

	if pass.Status != models.PassPending || !dispatch.CanReject(record.Status) {
		return resultOf(ResultInvalidState, fmt.Sprintf("cannot reject pass in status %q", pass.Status)), nil
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := updateGuarded(tx, pass, models.PassPending, map[string]any{
			"status":           models.PassRejected,
			"rejection_reason": reason,
		}); err != nil {
			return err
		}
		if err := updateGuarded(tx, record, record.Status, map[string]any{
			"status":           dispatch.StatusRejected,
			"rejected_at":      &now,
			"rejection_reason": reason,
		}); err != nil {
			return err
		}

		notification := models.GateNotification{
			Type:          models.NotificationGateRejected,
			OrderNumber:   order.OrderNumber,
			VehicleNumber: pass.CustomerVehicle,
			Message:       fmt.Sprintf("Gate pass for order %s rejected: %s", order.OrderNumber, reason),
		}
		return tx.Create(&notification).Error
	})
	if errors.Is(err, errStaleStatus) {
		return resultOf(ResultInvalidState, "pass status changed since it was read; reload and retry"), nil
	}
	if err != nil {
		return OpResult{}, err
	}

	go s.alerts.NotifyGateRejected(order.OrderNumber, reason)
	return resultOf(models.PassRejected, "gate pass rejected"), nil
}

// EmergencyOverride lets a supervisor force a flagged pass through the
// gate. The passcode is checked against the configured bcrypt hash and
// the action is alerted to the admin chat.
func (s *WatchmanService) EmergencyOverride(gatePassID uuid.UUID, passcode, reason string, in VerifyInput) (OpResult, error) {
	if strings.TrimSpace(reason) == "" {
		return OpResult{}, errors.New("override reason is required")
	}
	if s.overrideHash == "" {
		return OpResult{}, errors.New("supervisor override is not configured")
	}
	if !utils.CheckPassword(s.overrideHash, passcode) {
		return OpResult{}, ErrBadPasscode
	}

	pass, order, record, err := s.loadPass(gatePassID)
	if err != nil {
		return OpResult{}, err
	}
	if !dispatch.CanSendIn(record.Status) {
		return resultOf(ResultInvalidState, fmt.Sprintf("cannot send in from status %q", record.Status)), nil
	}

	if err := s.sendIn(pass, order, record, in, true); err != nil {
		if errors.Is(err, errStaleStatus) {
			return resultOf(ResultInvalidState, "pass status changed since it was read; reload and retry"), nil
		}
		return OpResult{}, err
	}

	go s.alerts.NotifyEmergencyOverride(order.OrderNumber, reason)
	return resultOf(dispatch.StatusEnteredForPickup, "vehicle sent in by supervisor override"), nil
}

// PendingPickups returns non-terminal passes joined with their orders
// and dispatch records, the security desk's working list.
func (s *WatchmanService) PendingPickups() ([]models.GatePass, error) {
	var passes []models.GatePass
	err := s.db.Preload("Order").Preload("Order.Dispatch").
		Where("status IN ?", []string{models.PassPending, models.PassEntered, models.PassLoaded}).
		Order("issued_at asc").
		Find(&passes).Error
	return passes, err
}

// GatePasses returns all passes, newest first.
func (s *WatchmanService) GatePasses(limit, offset int) ([]models.GatePass, int64, error) {
	var total int64
	if err := s.db.Model(&models.GatePass{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var passes []models.GatePass
	err := s.db.Preload("Order").Preload("Order.Dispatch").
		Order("issued_at desc").
		Limit(limit).Offset(offset).
		Find(&passes).Error
	return passes, total, err
}

// Summary counts passes by status.
func (s *WatchmanService) Summary() (map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}
	var rows []row
	if err := s.db.Model(&models.GatePass{}).
		Select("status as key, count(*) as count").
		Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	summary := map[string]int64{}
	for _, r := range rows {
		summary[r.Key] = r.Count
	}
	return summary, nil
}
