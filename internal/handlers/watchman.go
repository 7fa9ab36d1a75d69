package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/gatewatch/internal/services"
	"github.com/example/gatewatch/internal/utils"
)

// WatchmanHandler manages the security desk endpoints for gate passes.
type WatchmanHandler struct {
	svc *services.WatchmanService
}

// NewWatchmanHandler constructs WatchmanHandler.
func NewWatchmanHandler(svc *services.WatchmanService) *WatchmanHandler {
	return &WatchmanHandler{svc: svc}
}

// PendingPickups returns the desk's working list of open passes.
func (h *WatchmanHandler) PendingPickups(c *fiber.Ctx) error {
	passes, err := h.svc.PendingPickups()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": passes})
}

// GatePasses returns all passes, newest first.
func (h *WatchmanHandler) GatePasses(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	passes, total, err := h.svc.GatePasses(pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    passes,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Summary returns pass counts by status.
func (h *WatchmanHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.svc.Summary()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": summary})
}

type verifyRequest struct {
	Action       string `json:"action"`
	CustomerName string `json:"customer_name"`
	VehicleNo    string `json:"vehicle_no"`
	DriverName   string `json:"driver_name"`
	Note         string `json:"note"`
}

// Verify runs the identity check for either stage. send_in and release
// are separate guarded operations: conflating them would let an
// operator skip the load step.
func (h *WatchmanHandler) Verify(c *fiber.Ctx) error {
	passID, err := paramID(c, "gatePassId")
	if err != nil {
		return err
	}

	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	in := services.VerifyInput{
		CustomerName: req.CustomerName,
		VehicleNo:    req.VehicleNo,
		DriverName:   req.DriverName,
		Note:         req.Note,
	}

	var res services.OpResult
	switch req.Action {
	case "send_in":
		res, err = h.svc.VerifyAndSendIn(passID, in)
	case "release":
		res, err = h.svc.VerifyAndRelease(passID, in)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "action must be send_in or release")
	}
	if err != nil {
		if errors.Is(err, services.ErrGatePassNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "gate pass not found")
		}
		return err
	}
	return respondResult(c, res)
}

type rejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

// Reject terminates a pending pass.
func (h *WatchmanHandler) Reject(c *fiber.Ctx) error {
	passID, err := paramID(c, "gatePassId")
	if err != nil {
		return err
	}

	var req rejectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.RejectionReason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "rejection reason is required")
	}

	res, err := h.svc.Reject(passID, req.RejectionReason)
	if err != nil {
		if errors.Is(err, services.ErrGatePassNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "gate pass not found")
		}
		return err
	}
	return respondResult(c, res)
}

type overrideRequest struct {
	Passcode   string `json:"passcode"`
	Reason     string `json:"reason"`
	VehicleNo  string `json:"vehicle_no"`
	DriverName string `json:"driver_name"`
}

// Override forces a flagged pass through the gate with the supervisor
// passcode.
func (h *WatchmanHandler) Override(c *fiber.Ctx) error {
	passID, err := paramID(c, "gatePassId")
	if err != nil {
		return err
	}

	var req overrideRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Reason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "override reason is required")
	}

	res, err := h.svc.EmergencyOverride(passID, req.Passcode, req.Reason, services.VerifyInput{
		VehicleNo:  req.VehicleNo,
		DriverName: req.DriverName,
	})
	if err != nil {
		if errors.Is(err, services.ErrGatePassNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "gate pass not found")
		}
		if errors.Is(err, services.ErrBadPasscode) {
			return fiber.NewError(fiber.StatusForbidden, "invalid supervisor passcode")
		}
		return err
	}
	return respondResult(c, res)
}
