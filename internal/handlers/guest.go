package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/gatewatch/internal/services"
	"github.com/example/gatewatch/internal/utils"
)

// GuestHandler manages visitor endpoints on the security desk.
type GuestHandler struct {
	svc *services.GuestService
}

// NewGuestHandler constructs GuestHandler.
func NewGuestHandler(svc *services.GuestService) *GuestHandler {
	return &GuestHandler{svc: svc}
}

// List returns visits, optionally filtered by status.
func (h *GuestHandler) List(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	visits, total, err := h.svc.List(c.Query("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    visits,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Summary returns visit counts by status and today's expected arrivals.
func (h *GuestHandler) Summary(c *fiber.Ctx) error {
	byStatus, today, err := h.svc.Summary()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"by_status": byStatus,
			"today":     today,
		},
	})
}

// Create schedules a visit.
func (h *GuestHandler) Create(c *fiber.Ctx) error {
	var req services.GuestInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	visit, err := h.svc.Create(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": visit})
}

// Update edits a visit while it is still editable.
func (h *GuestHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req services.GuestInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, visit, err := h.svc.Update(id, req)
	if err != nil {
		if errors.Is(err, services.ErrGuestNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "guest visit not found")
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if res.Failed() {
		return respondResult(c, res)
	}
	return c.JSON(fiber.Map{"success": true, "data": visit})
}

// Delete removes a visit outright.
func (h *GuestHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(id); err != nil {
		if errors.Is(err, services.ErrGuestNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "guest visit not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// CheckIn moves a scheduled visit to checked_in.
func (h *GuestHandler) CheckIn(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.CheckIn(id)
	if err != nil {
		if errors.Is(err, services.ErrGuestNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "guest visit not found")
		}
		return err
	}
	return respondResult(c, res)
}

// CheckOut moves a checked-in visit to checked_out.
func (h *GuestHandler) CheckOut(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.CheckOut(id)
	if err != nil {
		if errors.Is(err, services.ErrGuestNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "guest visit not found")
		}
		return err
	}
	return respondResult(c, res)
}

// Cancel cancels a visit that has not checked in yet.
func (h *GuestHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.Cancel(id)
	if err != nil {
		if errors.Is(err, services.ErrGuestNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "guest visit not found")
		}
		return err
	}
	return respondResult(c, res)
}
