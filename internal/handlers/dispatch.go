package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/gatewatch/internal/models"
	"github.com/example/gatewatch/internal/services"
	"github.com/example/gatewatch/internal/utils"
)

// DispatchHandler manages the dispatch desk endpoints.
type DispatchHandler struct {
	svc       *services.DispatchService
	retention time.Duration
}

// NewDispatchHandler constructs DispatchHandler.
func NewDispatchHandler(svc *services.DispatchService, retention time.Duration) *DispatchHandler {
	return &DispatchHandler{svc: svc, retention: retention}
}

// ListAll returns orders joined with their dispatch records.
func (h *DispatchHandler) ListAll(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	orders, total, err := h.svc.ListOrders(c.Query("status"), c.Query("delivery_type"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Summary returns counts by status and delivery type.
func (h *DispatchHandler) Summary(c *fiber.Ctx) error {
	byStatus, byType, err := h.svc.Summary()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"by_status":        byStatus,
			"by_delivery_type": byType,
		},
	})
}

// Notifications returns the gate event feed. New events carry is_new
// exactly once.
func (h *DispatchHandler) Notifications(c *fiber.Ctx) error {
	views, err := h.svc.Notifications(h.retention, utils.ParsePagination(c).Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": views})
}

// Process begins dispatch for an order.
func (h *DispatchHandler) Process(c *fiber.Ctx) error {
	orderID, err := paramID(c, "orderId")
	if err != nil {
		return err
	}

	var req services.ProcessInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.ProcessOrder(orderID, req)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	return respondResult(c, res)
}

// UpdateCustomerDetails supplies the customer fields that gate
// processing for self/part-load orders.
func (h *DispatchHandler) UpdateCustomerDetails(c *fiber.Ctx) error {
	orderID, err := paramID(c, "orderId")
	if err != nil {
		return err
	}

	var req services.CustomerDetailsInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.UpdateCustomerDetails(orderID, req)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	return respondResult(c, res)
}

type loadedRequest struct {
	Notes string `json:"notes"`
}

func (h *DispatchHandler) markLoaded(c *fiber.Ctx, deliveryType string) error {
	orderID, err := paramID(c, "orderId")
	if err != nil {
		return err
	}

	var req loadedRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.MarkLoaded(orderID, deliveryType, req.Notes)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	return respondResult(c, res)
}

// SelfLoaded confirms the physical load of a self-pickup order.
func (h *DispatchHandler) SelfLoaded(c *fiber.Ctx) error {
	return h.markLoaded(c, models.DeliverySelf)
}

// PartLoadLoaded confirms the physical load of a part-load order.
func (h *DispatchHandler) PartLoadLoaded(c *fiber.Ctx) error {
	return h.markLoaded(c, models.DeliveryPartLoad)
}

// Transit marks a company/free delivery as departed.
func (h *DispatchHandler) Transit(c *fiber.Ctx) error {
	orderID, err := paramID(c, "orderId")
	if err != nil {
		return err
	}
	res, err := h.svc.AdvanceTransit(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	return respondResult(c, res)
}

// Delivered completes a company/free delivery.
func (h *DispatchHandler) Delivered(c *fiber.Ctx) error {
	orderID, err := paramID(c, "orderId")
	if err != nil {
		return err
	}
	res, err := h.svc.MarkDelivered(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	return respondResult(c, res)
}
