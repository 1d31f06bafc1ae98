package dto

import (
	"time"

	"github.com/spec-kit/fleet-helpdesk/internal/domain"
	"github.com/spec-kit/fleet-helpdesk/internal/service"
)

// CreateHelpdeskRequest payload.
type CreateHelpdeskRequest struct {
	ClientID    string   `json:"clientId" validate:"required"`
	UserID      *string  `json:"userId" validate:"omitempty,min=1"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category" validate:"required,oneof=BUG DUVIDA SUGESTAO SOLICITACAO OUTRO"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=BAIXA MEDIA ALTA URGENTE"`
	Module      *string  `json:"module" validate:"omitempty,oneof=VEICULOS ABASTECIMENTOS OCORRENCIAS DOCUMENTOS IMAGENS USUARIOS DASHBOARD OUTRO"`
	Environment string   `json:"environment" validate:"omitempty,oneof=WEB MOBILE"`
	Attachments []string `json:"attachments" validate:"omitempty,max=20"`
}

// ToInput converts the request into the service input. Attachment URLs are checked by the
// service so they report INVALID_ATTACHMENT_URL.
func (r CreateHelpdeskRequest) ToInput() service.CreateHelpdeskInput {
	input := service.CreateHelpdeskInput{
		ClientID:    r.ClientID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Category:    domain.HelpdeskCategory(r.Category),
		Priority:    domain.HelpdeskPriority(r.Priority),
		Environment: domain.HelpdeskEnvironment(r.Environment),
		Attachments: r.Attachments,
	}
	if r.Module != nil {
		module := domain.HelpdeskModule(*r.Module)
		input.Module = &module
	}
	return input
}

// UpdateHelpdeskRequest payload.
type UpdateHelpdeskRequest struct {
	AssignedUserID *string `json:"assignedUserId" validate:"omitempty,min=1"`
	Status         *string `json:"status" validate:"omitempty,oneof=ABERTO EM_ANALISE EM_ANDAMENTO AGUARDANDO_USUARIO RESOLVIDO ENCERRADO"`
	Priority       *string `json:"priority" validate:"omitempty,oneof=BAIXA MEDIA ALTA URGENTE"`
}

// ToInput converts the request into the service input.
func (r UpdateHelpdeskRequest) ToInput() service.UpdateHelpdeskInput {
	input := service.UpdateHelpdeskInput{AssignedUserID: r.AssignedUserID}
	if r.Status != nil {
		status := domain.HelpdeskStatus(*r.Status)
		input.Status = &status
	}
	if r.Priority != nil {
		priority := domain.HelpdeskPriority(*r.Priority)
		input.Priority = &priority
	}
	return input
}

// ListHelpdeskRequest captures query parameters for GET /helpdesk.
type ListHelpdeskRequest struct {
	Page           int    `query:"page" json:"page" validate:"gte=0"`
	Limit          int    `query:"limit" json:"limit" validate:"gte=0"`
	SortBy         string `query:"sortBy" json:"sortBy"`
	SortOrder      string `query:"sortOrder" json:"sortOrder"`
	Status         string `query:"status" json:"status"`
	Priority       string `query:"priority" json:"priority"`
	Category       string `query:"category" json:"category"`
	ClientID       string `query:"clientId" json:"clientId"`
	AssignedUserID string `query:"assignedUserId" json:"assignedUserId"`
}

// ToQuery converts the request into the service query; empty filters are dropped.
func (r ListHelpdeskRequest) ToQuery() service.ListHelpdeskQuery {
	query := service.ListHelpdeskQuery{
		Page:      r.Page,
		Limit:     r.Limit,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
	}
	if r.Status != "" {
		status := domain.HelpdeskStatus(r.Status)
		query.Status = &status
	}
	if r.Priority != "" {
		priority := domain.HelpdeskPriority(r.Priority)
		query.Priority = &priority
	}
	if r.Category != "" {
		category := domain.HelpdeskCategory(r.Category)
		query.Category = &category
	}
	if r.ClientID != "" {
		query.ClientID = &r.ClientID
	}
	if r.AssignedUserID != "" {
		query.AssignedUserID = &r.AssignedUserID
	}
	return query
}

// PostMessageRequest payload.
type PostMessageRequest struct {
	AuthorID    string   `json:"authorId" validate:"required"`
	AuthorType  string   `json:"authorType" validate:"required,oneof=user support"`
	Message     string   `json:"message" validate:"required,max=10000"`
	Attachments []string `json:"attachments" validate:"omitempty,max=20"`
}

// ToInput converts the request into the service input.
func (r PostMessageRequest) ToInput() service.PostMessageInput {
	return service.PostMessageInput{
		AuthorID:    r.AuthorID,
		AuthorType:  domain.MessageAuthorType(r.AuthorType),
		Message:     r.Message,
		Attachments: r.Attachments,
	}
}

// HelpdeskResponse is the ticket representation returned by the API.
type HelpdeskResponse struct {
	ID             string                     `json:"id"`
	TicketNumber   string                     `json:"ticketNumber"`
	ClientID       string                     `json:"clientId"`
	UserID         *string                    `json:"userId"`
	AssignedUserID *string                    `json:"assignedUserId"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	Category       domain.HelpdeskCategory    `json:"category"`
	Priority       domain.HelpdeskPriority    `json:"priority"`
	Status         domain.HelpdeskStatus      `json:"status"`
	Module         *domain.HelpdeskModule     `json:"module"`
	Environment    domain.HelpdeskEnvironment `json:"environment"`
	BucketPath     string                     `json:"bucketPath"`
	LastMessageAt  time.Time                  `json:"lastMessageAt"`
	CreatedAt      time.Time                  `json:"createdAt"`
	UpdatedAt      time.Time                  `json:"updatedAt"`
	ClosedAt       *time.Time                 `json:"closedAt"`
}

// NewHelpdeskResponse maps the domain model.
func NewHelpdeskResponse(h *domain.Helpdesk) HelpdeskResponse {
	return HelpdeskResponse{
		ID:             h.ID,
		TicketNumber:   h.TicketNumber,
		ClientID:       h.ClientID,
		UserID:         h.UserID,
		AssignedUserID: h.AssignedUserID,
		Title:          h.Title,
		Description:    h.Description,
		Category:       h.Category,
		Priority:       h.Priority,
		Status:         h.Status,
		Module:         h.Module,
		Environment:    h.Environment,
		BucketPath:     h.BucketPath,
		LastMessageAt:  h.LastMessageAt,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
		ClosedAt:       h.ClosedAt,
	}
}

// HelpdeskListResponse is the paginated envelope for GET /helpdesk.
type HelpdeskListResponse struct {
	Data       []HelpdeskResponse `json:"data"`
	Pagination service.Pagination `json:"pagination"`
}

// NewHelpdeskListResponse maps a service page.
func NewHelpdeskListResponse(page *service.HelpdeskPage) HelpdeskListResponse {
	items := make([]HelpdeskResponse, 0, len(page.Data))
	for i := range page.Data {
		items = append(items, NewHelpdeskResponse(&page.Data[i]))
	}
	return HelpdeskListResponse{Data: items, Pagination: page.Pagination}
}
