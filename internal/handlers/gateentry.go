package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/gatewatch/internal/models"
	"github.com/example/gatewatch/internal/recognition"
	"github.com/example/gatewatch/internal/services"
	"github.com/example/gatewatch/internal/utils"
)

const exportLimit = 100000

// GateEntryHandler manages the face-recognition attendance endpoints.
type GateEntryHandler struct {
	svc *services.AttendanceService
}

// NewGateEntryHandler constructs GateEntryHandler.
func NewGateEntryHandler(svc *services.AttendanceService) *GateEntryHandler {
	return &GateEntryHandler{svc: svc}
}

// Users lists registered attendance users.
func (h *GateEntryHandler) Users(c *fiber.Ctx) error {
	users, err := h.svc.Users()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": users})
}

// GetUser returns one user.
func (h *GateEntryHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(id)
	if err != nil {
		if errors.Is(err, services.ErrAttendanceUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

// DeactivateUser marks the user inactive, freeing the phone for a
// fresh registration.
func (h *GateEntryHandler) DeactivateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateUser(id); err != nil {
		if errors.Is(err, services.ErrAttendanceUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

type registerRequest struct {
	Name   string   `json:"name"`
	Phone  string   `json:"phone"`
	Photo  string   `json:"photo"`
	Photos []string `json:"photos"`
}

// Register builds a biometric template from the photo burst and creates
// the user.
func (h *GateEntryHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and phone are required")
	}

	encoded := req.Photos
	if len(encoded) == 0 && req.Photo != "" {
		encoded = []string{req.Photo}
	}
	photos, err := decodePhotos(encoded)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, user, err := h.svc.RegisterUser(c.Context(), req.Name, req.Phone, photos)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if res.Failed() {
		return respondResult(c, res)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"status":  res.Status,
		"data":    user,
	})
}

func decodePhotos(encoded []string) ([][]byte, error) {
	if len(encoded) == 0 {
		return nil, errors.New("at least one photo is required")
	}
	photos := make([][]byte, 0, len(encoded))
	for i, p := range encoded {
		raw, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("photo %d is not valid base64", i+1)
		}
		photos = append(photos, raw)
	}
	return photos, nil
}

type recognizeRequest struct {
	Photo  string `json:"photo"`
	Action string `json:"action"`
}

// RecognizeFace submits one frame. Cooldown and blocked are expected
// steady-state outcomes, delivered as status fields so the caller's
// loop keeps running.
func (h *GateEntryHandler) RecognizeFace(c *fiber.Ctx) error {
	var req recognizeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Photo == "" {
		return fiber.NewError(fiber.StatusBadRequest, "photo is required")
	}

	frame, err := base64.StdEncoding.DecodeString(req.Photo)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "photo is not valid base64")
	}

	out, err := h.svc.Recognize(c.Context(), frame, req.Action)
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"recognized": out.Status != recognition.OutcomeNoFace && out.Status != recognition.OutcomeUnrecognized,
		"success":    out.Status == recognition.OutcomeLogged,
		"status":     out.Status,
		"confidence": out.Confidence,
		"message":    out.Message,
	}
	if out.UserName != "" {
		resp["user"] = fiber.Map{"name": out.UserName, "phone": out.UserKey}
	}
	if out.Status == recognition.OutcomeCooldown {
		resp["remaining_seconds"] = int(out.Remaining.Round(time.Second) / time.Second)
	}
	return c.JSON(resp)
}

type manualRequest struct {
	Phone string `json:"phone"`
	Note  string `json:"note"`
}

func (h *GateEntryHandler) manual(c *fiber.Ctx, action string) error {
	var req manualRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}

	res, err := h.svc.ManualAction(req.Phone, action, req.Note)
	if err != nil {
		return err
	}
	return respondResult(c, res)
}

// ManualEntry records an entry on the operator's authority.
func (h *GateEntryHandler) ManualEntry(c *fiber.Ctx) error {
	return h.manual(c, models.ActionEntry)
}

// ManualExit records an exit on the operator's authority.
func (h *GateEntryHandler) ManualExit(c *fiber.Ctx) error {
	return h.manual(c, models.ActionExit)
}

type goingOutRequest struct {
	UserID        string `json:"user_id"`
	ReasonType    string `json:"reason_type"`
	ReasonDetails string `json:"reason_details"`
}

// GoingOut opens a temporary absence for a user.
func (h *GateEntryHandler) GoingOut(c *fiber.Ctx) error {
	var req goingOutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	userID, err := parseUserID(req.UserID)
	if err != nil {
		return err
	}
	if req.ReasonType == "" {
		return fiber.NewError(fiber.StatusBadRequest, "reason type is required")
	}

	res, err := h.svc.GoingOut(userID, req.ReasonType, req.ReasonDetails)
	if err != nil {
		if errors.Is(err, services.ErrAttendanceUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}
	return respondResult(c, res)
}

type comingBackRequest struct {
	UserID string `json:"user_id"`
}

// ComingBack closes the user's open absence.
func (h *GateEntryHandler) ComingBack(c *fiber.Ctx) error {
	var req comingBackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	userID, err := parseUserID(req.UserID)
	if err != nil {
		return err
	}

	res, err := h.svc.ComingBack(userID)
	if err != nil {
		return err
	}
	return respondResult(c, res)
}

// Logs returns attendance logs, newest first.
func (h *GateEntryHandler) Logs(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	logs, total, err := h.svc.Logs(pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    logs,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GoingOutLogs returns going-out records, newest first.
func (h *GateEntryHandler) GoingOutLogs(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	logs, total, err := h.svc.GoingOutLogs(pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    logs,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// TodayLogs returns today's attendance logs in submission order.
func (h *GateEntryHandler) TodayLogs(c *fiber.Ctx) error {
	logs, err := h.svc.TodayLogs()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": logs})
}

// ExportLogs streams the selected logs as CSV.
func (h *GateEntryHandler) ExportLogs(c *fiber.Ctx) error {
	kind := c.Query("type", "all")
	if kind != "all" && kind != "entry" && kind != "going_out" {
		return fiber.NewError(fiber.StatusBadRequest, "type must be all, entry or going_out")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"kind", "name", "phone", "action", "method", "time", "details"})

	if kind == "all" || kind == "entry" {
		logs, _, err := h.svc.Logs(exportLimit, 0)
		if err != nil {
			return err
		}
		for _, l := range logs {
			name, phone := "", ""
			if l.User != nil {
				name, phone = l.User.Name, l.User.Phone
			}
			_ = w.Write([]string{
				"attendance", name, phone, l.Action, l.Method,
				l.Timestamp.Format(time.RFC3339), l.Note,
			})
		}
	}

	if kind == "all" || kind == "going_out" {
		logs, _, err := h.svc.GoingOutLogs(exportLimit, 0)
		if err != nil {
			return err
		}
		for _, l := range logs {
			name, phone := "", ""
			if l.User != nil {
				name, phone = l.User.Name, l.User.Phone
			}
			details := l.ReasonType
			if l.ReasonDetails != "" {
				details += ": " + l.ReasonDetails
			}
			_ = w.Write([]string{
				"going_out", name, phone, l.Status, "",
				l.GoingOutTime.Format(time.RFC3339), details,
			})
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="gate-logs-%s.csv"`, kind))
	return c.Send(buf.Bytes())
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
	}
	return id, nil
}
