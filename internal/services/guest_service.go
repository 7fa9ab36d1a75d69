package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/gatewatch/internal/models"
	"github.com/example/gatewatch/internal/utils"
)

// ErrGuestNotFound is returned when the referenced visit does not exist.
var ErrGuestNotFound = errors.New("guest visit not found")

// GuestService runs the visitor state machine operated from the
// security desk.
type GuestService struct {
	db *gorm.DB
}

// NewGuestService constructs GuestService.
func NewGuestService(db *gorm.DB) *GuestService {
	return &GuestService{db: db}
}

// GuestInput carries the visit details for create and update.
type GuestInput struct {
	GuestName     string    `json:"guest_name"`
	Contact       string    `json:"contact"`
	Company       string    `json:"company"`
	MeetingPerson string    `json:"meeting_person"`
	Department    string    `json:"department"`
	VisitDate     time.Time `json:"visit_date"`
	Purpose       string    `json:"purpose"`
	IDProof       string    `json:"id_proof"`
}

func (in GuestInput) validate() error {
	if strings.TrimSpace(in.GuestName) == "" {
		return errors.New("guest name is required")
	}
	if strings.TrimSpace(in.Contact) == "" {
		return errors.New("guest contact is required")
	}
	if strings.TrimSpace(in.MeetingPerson) == "" {
		return errors.New("meeting person is required")
	}
	return nil
}

func (s *GuestService) load(id uuid.UUID) (*models.GuestVisit, error) {
	var visit models.GuestVisit
	if err := s.db.First(&visit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &visit, nil
}

// Create schedules a new visit.
func (s *GuestService) Create(in GuestInput) (*models.GuestVisit, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	visit := models.GuestVisit{
		GuestName:     strings.TrimSpace(in.GuestName),
		Contact:       strings.TrimSpace(in.Contact),
		Company:       in.Company,
		MeetingPerson: strings.TrimSpace(in.MeetingPerson),
		Department:    in.Department,
		VisitDate:     in.VisitDate,
		Purpose:       in.Purpose,
		IDProof:       in.IDProof,
		Status:        models.GuestScheduled,
	}
	if visit.VisitDate.IsZero() {
		visit.VisitDate = time.Now()
	}
	if err := s.db.Create(&visit).Error; err != nil {
		return nil, err
	}
	return &visit, nil
}

// Update edits a visit while it is still editable.
func (s *GuestService) Update(id uuid.UUID, in GuestInput) (OpResult, *models.GuestVisit, error) {
	visit, err := s.load(id)
	if err != nil {
		return OpResult{}, nil, err
	}
	if !visit.CanEdit() {
		return resultOf(ResultInvalidState, fmt.Sprintf("visit in status %q cannot be edited", visit.Status)), nil, nil
	}
	if err := in.validate(); err != nil {
		return OpResult{}, nil, err
	}

	visit.GuestName = strings.TrimSpace(in.GuestName)
	visit.Contact = strings.TrimSpace(in.Contact)
	visit.Company = in.Company
	visit.MeetingPerson = strings.TrimSpace(in.MeetingPerson)
	visit.Department = in.Department
	if !in.VisitDate.IsZero() {
		visit.VisitDate = in.VisitDate
	}
	visit.Purpose = in.Purpose
	visit.IDProof = in.IDProof

	if err := s.db.Save(visit).Error; err != nil {
		return OpResult{}, nil, err
	}
	return resultOf("updated", "visit updated"), visit, nil
}

// Delete removes the visit outright. Permitted in any status.
func (s *GuestService) Delete(id uuid.UUID) error {
	result := s.db.Delete(&models.GuestVisit{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGuestNotFound
	}
	return nil
}

// CheckIn moves a scheduled visit to checked_in.
func (s *GuestService) CheckIn(id uuid.UUID) (OpResult, error) {
	visit, err := s.load(id)
	if err != nil {
		return OpResult{}, err
	}
	if !visit.CanCheckIn() {
		return resultOf(ResultInvalidState, fmt.Sprintf("cannot check in from status %q", visit.Status)), nil
	}

	now := time.Now()
	if err := s.db.Model(visit).Updates(map[string]any{
		"status":  models.GuestCheckedIn,
		"in_time": &now,
	}).Error; err != nil {
		return OpResult{}, err
	}
	return resultOf(models.GuestCheckedIn, "guest checked in"), nil
}

// CheckOut moves a checked-in visit to checked_out.
func (s *GuestService) CheckOut(id uuid.UUID) (OpResult, error) {
	visit, err := s.load(id)
	if err != nil {
		return OpResult{}, err
	}
	if !visit.CanCheckOut() {
		return resultOf(ResultInvalidState, fmt.Sprintf("cannot check out from status %q", visit.Status)), nil
	}

	now := time.Now()
	if err := s.db.Model(visit).Updates(map[string]any{
		"status":   models.GuestCheckedOut,
		"out_time": &now,
	}).Error; err != nil {
		return OpResult{}, err
	}
	return resultOf(models.GuestCheckedOut, "guest checked out"), nil
}

// Cancel cancels a visit that has not checked in yet.
func (s *GuestService) Cancel(id uuid.UUID) (OpResult, error) {
	visit, err := s.load(id)
	if err != nil {
		return OpResult{}, err
	}
	if !visit.CanCancel() {
		return resultOf(ResultInvalidState, fmt.Sprintf("cannot cancel from status %q", visit.Status)), nil
	}

	if err := s.db.Model(visit).Update("status", models.GuestCancelled).Error; err != nil {
		return OpResult{}, err
	}
	return resultOf(models.GuestCancelled, "visit cancelled"), nil
}

// List returns visits, optionally filtered by status, newest first.
func (s *GuestService) List(status string, limit, offset int) ([]models.GuestVisit, int64, error) {
	query := s.db.Model(&models.GuestVisit{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var visits []models.GuestVisit
	err := query.Order("visit_date desc").
		Limit(limit).Offset(offset).
		Find(&visits).Error
	return visits, total, err
}

// Summary counts visits by status plus today's expected arrivals.
func (s *GuestService) Summary() (map[string]int64, int64, error) {
	type row struct {
		Key   string
		Count int64
	}
	var rows []row
	if err := s.db.Model(&models.GuestVisit{}).
		Select("status as key, count(*) as count").
		Group("status").Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	summary := map[string]int64{}
	for _, r := range rows {
		summary[r.Key] = r.Count
	}

	start := utils.StartOfDay(time.Now())
	var today int64
	if err := s.db.Model(&models.GuestVisit{}).
		Where("visit_date >= ? AND visit_date < ?", start, start.Add(24*time.Hour)).
		Count(&today).Error; err != nil {
		return nil, 0, err
	}
	return summary, today, nil
}
