package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/gatewatch/internal/models"
	"github.com/example/gatewatch/internal/recognition"
	"github.com/example/gatewatch/internal/utils"
)

// ErrAttendanceUserNotFound is returned when the referenced user does
// not exist or is inactive.
var ErrAttendanceUserNotFound = errors.New("attendance user not found")

// FaceMatcher is the slice of the face-gate client the attendance
// service needs. *FaceGateService implements it.
type FaceMatcher interface {
	RegisterTemplate(ctx context.Context, name, phone string, photos [][]byte) (string, error)
	Recognize(ctx context.Context, frame []byte, action string) (recognition.MatchResult, error)
}

// AttendanceService runs the attendance side of the premises gate:
// biometric registration, the recognize-and-log path shared by the REST
// surface and the kiosk engine, manual overrides, and the going-out
// sub-lifecycle. It implements recognition.Recognizer.
type AttendanceService struct {
	db       *gorm.DB
	face     FaceMatcher
	cooldown *recognition.Cooldown
}

// NewAttendanceService constructs AttendanceService with the given
// cooldown window.
func NewAttendanceService(db *gorm.DB, face FaceMatcher, cooldownWindow time.Duration) *AttendanceService {
	return &AttendanceService{
		db:       db,
		face:     face,
		cooldown: recognition.NewCooldown(cooldownWindow),
	}
}

// RegisterUser builds a biometric template from the photo burst and
// creates the user. Phone is the natural key: an active user with the
// same phone is rejected as a duplicate; a deactivated one is revived
// with the fresh template.
func (s *AttendanceService) RegisterUser(ctx context.Context, name, phone string, photos [][]byte) (OpResult, *models.AttendanceUser, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return OpResult{}, nil, errors.New("name and phone are required")
	}
	if len(photos) == 0 {
		return OpResult{}, nil, errors.New("at least one photo is required")
	}

	var existing models.AttendanceUser
	err := s.db.First(&existing, "phone = ?", phone).Error
	switch {
	case err == nil && existing.Status == models.UserActive:
		return resultOf(ResultDuplicatePhone, "an active user with this phone is already registered"), nil, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return OpResult{}, nil, err
	}

	templateRef, err := s.face.RegisterTemplate(ctx, name, phone, photos)
	if err != nil {
		return OpResult{}, nil, fmt.Errorf("register template: %w", err)
	}

	if existing.ID != uuid.Nil {
		// Deactivated user re-registering: revive with the new template.
		updates := map[string]any{
			"name":         name,
			"status":       models.UserActive,
			"template_ref": templateRef,
			"photo_count":  len(photos),
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return OpResult{}, nil, err
		}
		existing.Name = name
		existing.Status = models.UserActive
		return resultOf("registered", "user re-registered"), &existing, nil
	}

	user := models.AttendanceUser{
		Name:        name,
		Phone:       phone,
		Status:      models.UserActive,
		TemplateRef: templateRef,
		PhotoCount:  len(photos),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return OpResult{}, nil, err
	}
	return resultOf("registered", "user registered"), &user, nil
}

// Recognize submits one frame to the matcher and applies the attendance
// rules. Satisfies recognition.Recognizer for the kiosk engine; the
// REST recognize endpoint goes through the same path so the cooldown is
// shared between both channels.
func (s *AttendanceService) Recognize(ctx context.Context, frame []byte, action string) (recognition.Outcome, error) {
	if action != models.ActionEntry && action != models.ActionExit {
		return recognition.Outcome{}, fmt.Errorf("unknown action %q", action)
	}

	match, err := s.face.Recognize(ctx, frame, action)
	if err != nil {
		return recognition.Outcome{}, err
	}
	if match.Recognized && match.UserKey == "" {
		// Malformed matcher response; logging it would attribute the
		// action to nobody.
		return recognition.Outcome{}, errors.New("matcher reported a recognized face without a user")
	}

	var user models.AttendanceUser
	lastAction := ""
	if match.Recognized {
		err := s.db.First(&user, "phone = ? AND status = ?", match.UserKey, models.UserActive).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Template exists remotely but the local record is gone;
			// treat as unrecognized rather than logging an orphan.
			match.Recognized = false
		} else if err != nil {
			return recognition.Outcome{}, err
		} else {
			lastAction, err = s.lastAction(user.ID)
			if err != nil {
				return recognition.Outcome{}, err
			}
		}
	}

	out := recognition.Evaluate(match, action, lastAction, s.cooldown)
	if out.Status != recognition.OutcomeLogged {
		return out, nil
	}

	entry := models.AttendanceLog{
		UserID:     user.ID,
		Action:     action,
		Method:     models.MethodRecognized,
		Confidence: match.Confidence,
		Timestamp:  time.Now(),
		Status:     "ok",
	}
	if err := s.db.Create(&entry).Error; err != nil {
		s.cooldown.Cancel(match.UserKey)
		return recognition.Outcome{}, err
	}
	s.cooldown.Mark(match.UserKey)
	return out, nil
}

func (s *AttendanceService) lastAction(userID uuid.UUID) (string, error) {
	var last models.AttendanceLog
	err := s.db.Where("user_id = ?", userID).
		Order("timestamp desc").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return last.Action, nil
}

// ManualAction writes an entry/exit log on the operator's authority,
// bypassing recognition and its cooldown entirely.
func (s *AttendanceService) ManualAction(phone, action, note string) (OpResult, error) {
	if action != models.ActionEntry && action != models.ActionExit {
		return OpResult{}, fmt.Errorf("unknown action %q", action)
	}

	var user models.AttendanceUser
	err := s.db.First(&user, "phone = ? AND status = ?", strings.TrimSpace(phone), models.UserActive).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return resultOf(ResultUserNotFound, "no active user with this phone"), nil
	}
	if err != nil {
		return OpResult{}, err
	}

	entry := models.AttendanceLog{
		UserID:    user.ID,
		Action:    action,
		Method:    models.MethodManual,
		Timestamp: time.Now(),
		Status:    "ok",
		Note:      note,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return OpResult{}, err
	}
	return resultOf("logged", fmt.Sprintf("manual %s recorded for %s", action, user.Name)), nil
}

// GoingOut opens a temporary absence. At most one may be open per user.
func (s *AttendanceService) GoingOut(userID uuid.UUID, reasonType, details string) (OpResult, error) {
	if strings.TrimSpace(reasonType) == "" {
		return OpResult{}, errors.New("reason type is required")
	}

	var user models.AttendanceUser
	if err := s.db.First(&user, "id = ? AND status = ?", userID, models.UserActive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OpResult{}, ErrAttendanceUserNotFound
		}
		return OpResult{}, err
	}

	var open models.GoingOutLog
	err := s.db.Where("user_id = ? AND coming_back_time IS NULL", userID).First(&open).Error
	if err == nil {
		return resultOf(ResultAlreadyOut, "an open going-out record already exists for this user"), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return OpResult{}, err
	}

	entry := models.GoingOutLog{
		UserID:        userID,
		ReasonType:    reasonType,
		ReasonDetails: details,
		GoingOutTime:  time.Now(),
		Status:        models.GoingOutOut,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return OpResult{}, err
	}
	return resultOf(models.GoingOutOut, fmt.Sprintf("%s marked out", user.Name)), nil
}

// ComingBack closes the user's open absence.
func (s *AttendanceService) ComingBack(userID uuid.UUID) (OpResult, error) {
	var open models.GoingOutLog
	err := s.db.Where("user_id = ? AND coming_back_time IS NULL", userID).First(&open).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return resultOf(ResultNotOut, "no open going-out record for this user"), nil
	}
	if err != nil {
		return OpResult{}, err
	}

	now := time.Now()
	if err := s.db.Model(&open).Updates(map[string]any{
		"coming_back_time": &now,
		"status":           models.GoingOutReturned,
	}).Error; err != nil {
		return OpResult{}, err
	}
	return resultOf(models.GoingOutReturned, "marked back"), nil
}

// Users lists registered users, active first.
func (s *AttendanceService) Users() ([]models.AttendanceUser, error) {
	var users []models.AttendanceUser
	err := s.db.Order("status asc, name asc").Find(&users).Error
	return users, err
}

// GetUser returns one user by id.
func (s *AttendanceService) GetUser(id uuid.UUID) (*models.AttendanceUser, error) {
	var user models.AttendanceUser
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// DeactivateUser marks the user inactive. The phone becomes free for a
// fresh registration; history is kept.
func (s *AttendanceService) DeactivateUser(id uuid.UUID) error {
	result := s.db.Model(&models.AttendanceUser{}).
		Where("id = ?", id).
		Update("status", models.UserInactive)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAttendanceUserNotFound
	}
	return nil
}

// Logs returns attendance logs, newest first.
func (s *AttendanceService) Logs(limit, offset int) ([]models.AttendanceLog, int64, error) {
	var total int64
	if err := s.db.Model(&models.AttendanceLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.AttendanceLog
	err := s.db.Preload("User").
		Order("timestamp desc").
		Limit(limit).Offset(offset).
		Find(&logs).Error
	return logs, total, err
}

// GoingOutLogs returns going-out records, newest first.
func (s *AttendanceService) GoingOutLogs(limit, offset int) ([]models.GoingOutLog, int64, error) {
	var total int64
	if err := s.db.Model(&models.GoingOutLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.GoingOutLog
	err := s.db.Preload("User").
		Order("going_out_time desc").
		Limit(limit).Offset(offset).
		Find(&logs).Error
	return logs, total, err
}

// TodayLogs returns today's attendance logs in submission order.
func (s *AttendanceService) TodayLogs() ([]models.AttendanceLog, error) {
	start := utils.StartOfDay(time.Now())
	var logs []models.AttendanceLog
	err := s.db.Preload("User").
		Where("timestamp >= ?", start).
		Order("timestamp asc").
		Find(&logs).Error
	return logs, err
}
