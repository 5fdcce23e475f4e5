package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/services"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

type listOrdersRequest struct {
	Status string `json:"status"`
	Search string `json:"search" validate:"max=100"`
	Page   int    `json:"page" validate:"gte=0"`
	Limit  int    `json:"limit" validate:"gte=0"`
}

func (h *AdminHandler) listOrders(c *fiber.Ctx, data json.RawMessage) error {
	var req listOrdersRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	filter := orders.ListFilter{Search: req.Search}
	if req.Status != "" {
		status, err := orders.ParseStatus(req.Status)
		if err != nil {
			return err
		}
		filter.Status = status
	}
	pg := utils.NewPagination(req.Page, req.Limit)
	filter.Page, filter.Limit = pg.Page, pg.Limit

	rows, total, err := h.orders.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       rows,
		"pagination": pg.Meta(total),
	})
}

type idRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

func (h *AdminHandler) getOrder(c *fiber.Ctx, data json.RawMessage) error {
	var req idRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

type updateStatusRequest struct {
	ID     string `json:"id" validate:"required,uuid"`
	Status string `json:"status" validate:"required"`
}

func (h *AdminHandler) updateOrderStatus(c *fiber.Ctx, data json.RawMessage) error {
	var req updateStatusRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return err
	}
	status, err := orders.ParseStatus(req.Status)
	if err != nil {
		return err
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), id, status)
	if err != nil {
		return err
	}
	h.log.Info(h.log.WithOrder(c.UserContext(), order.OrderNumber), "order status changed to "+string(order.Status))
	return c.JSON(fiber.Map{"success": true, "data": order})
}

type updateTrackingRequest struct {
	ID           string `json:"id" validate:"required,uuid"`
	TrackingCode string `json:"tracking_code" validate:"required,max=64"`
}

// updateTracking stores the carrier code; paid orders ship and the customer is emailed.
func (h *AdminHandler) updateTracking(c *fiber.Ctx, data json.RawMessage) error {
	var req updateTrackingRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return err
	}

	order, shipped, err := h.orders.SetTracking(c.UserContext(), id, req.TrackingCode)
	if err != nil {
		return err
	}
	if shipped && h.checkout != nil {
		h.checkout.Notify(c.UserContext(), services.EmailShipped, order)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    order,
		"shipped": shipped,
	})
}

func (h *AdminHandler) deleteOrder(c *fiber.Ctx, data json.RawMessage) error {
	var req idRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return err
	}

	if err := h.orders.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": id}})
}

type sendEmailRequest struct {
	Type    string `json:"type" validate:"required"`
	OrderID string `json:"order_id" validate:"required,uuid"`
}

// sendEmail resends one of the transactional emails and reports delivery.
func (h *AdminHandler) sendEmail(c *fiber.Ctx, data json.RawMessage) error {
	var req sendEmailRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	kind, err := services.ParseEmailType(req.Type)
	if err != nil {
		return err
	}
	id, err := parseID(req.OrderID, "order_id")
	if err != nil {
		return err
	}

	order, err := h.orders.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if h.mailer == nil {
		return services.ErrNotConfigured
	}
	if err := h.mailer.Send(c.UserContext(), kind, order); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"type":         kind,
			"order_number": order.OrderNumber,
			"to":           order.CustomerEmail,
		},
	})
}
