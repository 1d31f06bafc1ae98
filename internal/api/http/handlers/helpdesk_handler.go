package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fleet-helpdesk/internal/api/dto"
	"github.com/spec-kit/fleet-helpdesk/internal/service"
	apperrors "github.com/spec-kit/fleet-helpdesk/pkg/util/errorutil"
)

// HelpdeskHandler exposes ticket and message endpoints.
type HelpdeskHandler struct {
	tickets  *service.HelpdeskService
	messages *service.MessageService
}

// NewHelpdeskHandler constructs handler.
func NewHelpdeskHandler(tickets *service.HelpdeskService, messages *service.MessageService) *HelpdeskHandler {
	return &HelpdeskHandler{tickets: tickets, messages: messages}
}

// Create handles POST /helpdesk.
func (h *HelpdeskHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateHelpdeskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewHelpdeskResponse(ticket)})
}

// List handles GET /helpdesk.
func (h *HelpdeskHandler) List(c *fiber.Ctx) error {
	var req dto.ListHelpdeskRequest
	if err := c.QueryParser(&req); err != nil {
		return apperrors.NewValidationError("invalid query parameters", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	page, err := h.tickets.ListTickets(c.UserContext(), req.ToQuery())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewHelpdeskListResponse(page))
}

// Get handles GET /helpdesk/:id.
func (h *HelpdeskHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHelpdeskResponse(ticket)})
}

// Update handles PUT /helpdesk/:id.
func (h *HelpdeskHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateHelpdeskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHelpdeskResponse(ticket)})
}

// Delete handles DELETE /helpdesk/:id.
func (h *HelpdeskHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.tickets.DeleteTicket(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true, "id": id}})
}

// PostMessage handles POST /helpdesk/:id/messages.
func (h *HelpdeskHandler) PostMessage(c *fiber.Ctx) error {
	var req dto.PostMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.messages.PostMessage(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": result})
}

// ListMessages handles GET /helpdesk/:id/messages.
func (h *HelpdeskHandler) ListMessages(c *fiber.Ctx) error {
	thread, err := h.messages.ListMessages(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": thread})
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(out)
}
