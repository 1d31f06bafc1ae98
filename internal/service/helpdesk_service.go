package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/fleet-helpdesk/internal/domain"
	"github.com/spec-kit/fleet-helpdesk/internal/events"
	"github.com/spec-kit/fleet-helpdesk/internal/notify"
	"github.com/spec-kit/fleet-helpdesk/internal/repository"
	"github.com/spec-kit/fleet-helpdesk/internal/storage"
	apperrors "github.com/spec-kit/fleet-helpdesk/pkg/util/errorutil"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	jsonContentType  = "application/json"
)

// HelpdeskService coordinates the ticket lifecycle across the relational store and the bucket.
type HelpdeskService struct {
	helpdesks    repository.HelpdeskRepository
	users        repository.UserRepository
	bucket       storage.Bucket
	bucketName   string
	supportTopic string
	publisher    *publisher
	logger       *zap.Logger
	validate     *validator.Validate
	now          func() time.Time
	newID        func() string
}

// HelpdeskDependencies bundles collaborators for the helpdesk and message services.
type HelpdeskDependencies struct {
	HelpdeskRepo repository.HelpdeskRepository
	UserRepo     repository.UserRepository
	Bucket       storage.Bucket
	BucketName   string
	Sink         notify.Sink
	SupportTopic string
	Drops        DropRecorder
	Logger       *zap.Logger
	Clock        func() time.Time
}

// CreateHelpdeskInput describes ticket creation payload.
type CreateHelpdeskInput struct {
	ClientID    string                     `json:"clientId"`
	UserID      *string                    `json:"userId,omitempty"`
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	Category    domain.HelpdeskCategory    `json:"category"`
	Priority    domain.HelpdeskPriority    `json:"priority"`
	Module      *domain.HelpdeskModule     `json:"module,omitempty"`
	Environment domain.HelpdeskEnvironment `json:"environment"`
	Attachments []string                   `json:"attachments,omitempty"`
}

// UpdateHelpdeskInput carries the mutable fields; nil leaves a field untouched.
type UpdateHelpdeskInput struct {
	AssignedUserID *string
	Status         *domain.HelpdeskStatus
	Priority       *domain.HelpdeskPriority
}

// ListHelpdeskQuery describes listing parameters as received from the caller.
type ListHelpdeskQuery struct {
	Page           int
	Limit          int
	SortBy         string
	SortOrder      string
	Status         *domain.HelpdeskStatus
	Priority       *domain.HelpdeskPriority
	Category       *domain.HelpdeskCategory
	ClientID       *string
	AssignedUserID *string
}

// Pagination is the page metadata returned with listings.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HelpdeskPage is one page of tickets.
type HelpdeskPage struct {
	Data       []domain.Helpdesk
	Pagination Pagination
}

// ticketSnapshot is the ticket.json document written next to the messages folder.
type ticketSnapshot struct {
	CreateHelpdeskInput
	ID           string `json:"id"`
	TicketNumber string `json:"ticketNumber"`
	CreatedAt    string `json:"createdAt"`
}

// NewHelpdeskService constructs the service.
func NewHelpdeskService(deps HelpdeskDependencies) *HelpdeskService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &HelpdeskService{
		helpdesks:    deps.HelpdeskRepo,
		users:        deps.UserRepo,
		bucket:       deps.Bucket,
		bucketName:   deps.BucketName,
		supportTopic: deps.SupportTopic,
		publisher:    newPublisher(deps.Sink, deps.Drops, logger),
		logger:       logger,
		validate:     validator.New(),
		now:          func() time.Time { return clock().UTC() },
		newID:        uuid.NewString,
	}
}

// CreateTicket opens a ticket for a client. The bucket snapshot is written before the row is
// inserted; an insert failure leaves the snapshot behind.
func (s *HelpdeskService) CreateTicket(ctx context.Context, input CreateHelpdeskInput) (*domain.Helpdesk, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Priority == "" {
		input.Priority = domain.HelpdeskPriorityLow
	}
	if input.Environment == "" {
		input.Environment = domain.HelpdeskEnvironmentWeb
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	client, err := s.users.GetByID(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeClientNotFound, "client not found",
				map[string]any{"clientId": input.ClientID})
		}
		return nil, apperrors.NewInternal(apperrors.CodeHelpdeskCreationFailed, "failed to load client", err)
	}
	if client.Role != domain.UserRoleClient {
		return nil, apperrors.New(apperrors.KindValidation, apperrors.CodeInvalidClientRole,
			"only users with role CLIENT can open tickets",
			map[string]any{"clientId": client.ID, "role": client.Role})
	}

	if input.UserID != nil {
		if _, err := s.users.GetByID(ctx, *input.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound(apperrors.CodeUserNotFound, "user not found",
					map[string]any{"userId": *input.UserID})
			}
			return nil, apperrors.NewInternal(apperrors.CodeHelpdeskCreationFailed, "failed to load user", err)
		}
	}

	if err := s.ensureNoOpenTicket(ctx, input.ClientID); err != nil {
		return nil, err
	}
	if err := checkAttachmentURLs(s.validate, input.Attachments); err != nil {
		return nil, err
	}
	if err := s.bucket.EnsureBucket(ctx, s.bucketName); err != nil {
		return nil, storageUnavailable(s.bucketName, err)
	}

	now := s.now()
	number, err := NextTicketNumber(ctx, s.helpdesks, now.Year())
	if err != nil {
		return nil, apperrors.NewInternal(apperrors.CodeHelpdeskCreationFailed, "failed to generate ticket number", err)
	}

	id := s.newID()
	helpdesk := &domain.Helpdesk{
		ID:            id,
		TicketNumber:  number,
		ClientID:      input.ClientID,
		UserID:        input.UserID,
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		Priority:      input.Priority,
		Status:        domain.HelpdeskStatusOpen,
		Module:        input.Module,
		Environment:   input.Environment,
		BucketPath:    domain.BucketPath(input.ClientID, id),
		LastMessageAt: now,
		CreatedAt:     now,
	}

	snapshot, err := json.Marshal(ticketSnapshot{
		CreateHelpdeskInput: input,
		ID:                  id,
		TicketNumber:        number,
		CreatedAt:           domain.FormatMessageTime(now),
	})
	if err != nil {
		return nil, apperrors.NewInternal(apperrors.CodeBucketError, "failed to encode ticket snapshot", err)
	}
	snapshotKey := helpdesk.BucketPath + "/ticket.json"
	if err := s.bucket.Put(ctx, s.bucketName, snapshotKey, snapshot, jsonContentType); err != nil {
		return nil, bucketWriteError(s.bucketName, snapshotKey, err)
	}
	s.logger.Info("bucket snapshot written",
		zap.String("helpdesk_id", id),
		zap.String("ticket_number", number),
		zap.String("key", snapshotKey))

	if err := s.helpdesks.Create(ctx, helpdesk); err != nil {
		s.logger.Warn("orphaned bucket snapshot",
			zap.String("helpdesk_id", id),
			zap.String("key", snapshotKey),
			zap.Error(err))
		switch {
		case errors.Is(err, repository.ErrUniqueViolation):
			return nil, apperrors.NewConflict(apperrors.CodeTicketNumberConflict,
				"ticket number already taken, retry the request",
				map[string]any{"ticketNumber": number}).WithCause(err)
		case errors.Is(err, repository.ErrOpenTicketExists):
			if openErr := s.ensureNoOpenTicket(ctx, input.ClientID); openErr != nil {
				return nil, openErr
			}
			return nil, apperrors.NewConflict(apperrors.CodeTicketAlreadyOpen, "client already has an open ticket",
				map[string]any{"clientId": input.ClientID}).WithCause(err)
		default:
			return nil, apperrors.NewInternal(apperrors.CodeHelpdeskCreationFailed, "failed to create ticket", err)
		}
	}
	s.logger.Info("helpdesk row inserted",
		zap.String("helpdesk_id", id),
		zap.String("ticket_number", number),
		zap.String("client_id", input.ClientID))

	s.publisher.publish(ctx, s.supportTopic, events.EventHelpdeskCreated, events.HelpdeskCreatedPayload{
		HelpdeskID:   helpdesk.ID,
		TicketNumber: helpdesk.TicketNumber,
		ClientID:     helpdesk.ClientID,
		Title:        helpdesk.Title,
		Category:     helpdesk.Category,
		Priority:     helpdesk.Priority,
	})
	return helpdesk, nil
}

func (s *HelpdeskService) ensureNoOpenTicket(ctx context.Context, clientID string) error {
	open, err := s.helpdesks.FindOpenByClient(ctx, clientID)
	switch {
	case err == nil:
		return apperrors.NewConflict(apperrors.CodeTicketAlreadyOpen, "client already has an open ticket",
			map[string]any{"ticketId": open.ID, "ticketNumber": open.TicketNumber})
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return apperrors.NewInternal(apperrors.CodeHelpdeskCreationFailed, "failed to check open tickets", err)
	}
}

// UpdateTicket merges assignee, status and priority. Entering ENCERRADO stamps closedAt; any
// status may follow any other.
func (s *HelpdeskService) UpdateTicket(ctx context.Context, id string, input UpdateHelpdeskInput) (*domain.Helpdesk, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}

	helpdesk, err := s.getHelpdesk(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.AssignedUserID != nil {
		assignee, err := s.users.GetByID(ctx, *input.AssignedUserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound(apperrors.CodeAssignedUserNotFound, "assigned user not found",
					map[string]any{"assignedUserId": *input.AssignedUserID})
			}
			return nil, apperrors.NewInternal(apperrors.CodeHelpdeskUpdateFailed, "failed to load assignee", err)
		}
		if !assignee.Role.IsSupport() {
			return nil, apperrors.New(apperrors.KindValidation, apperrors.CodeInvalidAssigneeRole,
				"tickets can only be assigned to support users",
				map[string]any{"assignedUserId": assignee.ID, "role": assignee.Role})
		}
		helpdesk.AssignedUserID = input.AssignedUserID
	}
	if input.Priority != nil {
		helpdesk.Priority = *input.Priority
	}
	if input.Status != nil {
		if *input.Status == domain.HelpdeskStatusClosed && !helpdesk.IsClosed() {
			closedAt := s.now()
			helpdesk.ClosedAt = &closedAt
		}
		helpdesk.Status = *input.Status
	}

	if err := s.helpdesks.Update(ctx, helpdesk); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, helpdeskNotFound(id)
		case errors.Is(err, repository.ErrOpenTicketExists):
			return nil, apperrors.NewConflict(apperrors.CodeTicketAlreadyOpen,
				"client already has another open ticket",
				map[string]any{"ticketId": id, "clientId": helpdesk.ClientID}).WithCause(err)
		default:
			return nil, apperrors.NewInternal(apperrors.CodeHelpdeskUpdateFailed, "failed to update ticket", err)
		}
	}

	s.publisher.publish(ctx, notify.TicketRoom(helpdesk.ID), events.EventHelpdeskUpdated, events.HelpdeskUpdatedPayload{
		HelpdeskID:     helpdesk.ID,
		Status:         helpdesk.Status,
		Priority:       helpdesk.Priority,
		AssignedUserID: helpdesk.AssignedUserID,
	})
	return helpdesk, nil
}

// DeleteTicket removes a closed ticket's row. Bucket contents are kept.
func (s *HelpdeskService) DeleteTicket(ctx context.Context, id string) error {
	helpdesk, err := s.getHelpdesk(ctx, id)
	if err != nil {
		return err
	}
	if !helpdesk.IsClosed() {
		return apperrors.New(apperrors.KindValidation, apperrors.CodeCannotDeleteOpenTicket,
			"only ENCERRADO tickets can be deleted",
			map[string]any{"ticketId": id, "status": helpdesk.Status})
	}
	if err := s.helpdesks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return helpdeskNotFound(id)
		}
		return apperrors.NewInternal(apperrors.CodeHelpdeskDeleteFailed, "failed to delete ticket", err)
	}
	s.logger.Info("helpdesk deleted, bucket contents retained",
		zap.String("helpdesk_id", id),
		zap.String("bucket_path", helpdesk.BucketPath))
	return nil
}

// GetTicket fetches one ticket.
func (s *HelpdeskService) GetTicket(ctx context.Context, id string) (*domain.Helpdesk, error) {
	return s.getHelpdesk(ctx, id)
}

// ListTickets returns one page of tickets. The count and the page are read concurrently.
func (s *HelpdeskService) ListTickets(ctx context.Context, query ListHelpdeskQuery) (*HelpdeskPage, error) {
	filter, page, err := buildHelpdeskFilter(query)
	if err != nil {
		return nil, err
	}

	var (
		items []domain.Helpdesk
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.helpdesks.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.helpdesks.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + filter.Limit - 1) / filter.Limit
	}
	return &HelpdeskPage{
		Data: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func buildHelpdeskFilter(query ListHelpdeskQuery) (repository.HelpdeskFilter, int, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page-1 > math.MaxInt/limit {
		return repository.HelpdeskFilter{}, 0, apperrors.NewValidationError("page out of range",
			map[string]any{"page": query.Page})
	}

	sortBy := query.SortBy
	switch sortBy {
	case "":
		sortBy = repository.SortByCreatedAt
	case repository.SortByCreatedAt, repository.SortByUpdatedAt, repository.SortByLastMessageAt, repository.SortByPriority:
	default:
		return repository.HelpdeskFilter{}, 0, apperrors.NewValidationError("invalid sortBy",
			map[string]any{"sortBy": query.SortBy})
	}

	desc := true
	switch strings.ToLower(query.SortOrder) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return repository.HelpdeskFilter{}, 0, apperrors.NewValidationError("invalid sortOrder",
			map[string]any{"sortOrder": query.SortOrder})
	}

	if query.Status != nil && !query.Status.Valid() {
		return repository.HelpdeskFilter{}, 0, apperrors.NewValidationError("invalid status filter",
			map[string]any{"status": *query.Status})
	}
	if query.Priority != nil && !query.Priority.Valid() {
		return repository.HelpdeskFilter{}, 0, apperrors.NewValidationError("invalid priority filter",
			map[string]any{"priority": *query.Priority})
	}
	if query.Category != nil && !query.Category.Valid() {
		return repository.HelpdeskFilter{}, 0, apperrors.NewValidationError("invalid category filter",
			map[string]any{"category": *query.Category})
	}

	return repository.HelpdeskFilter{
		Status:         query.Status,
		Priority:       query.Priority,
		Category:       query.Category,
		ClientID:       query.ClientID,
		AssignedUserID: query.AssignedUserID,
		SortBy:         sortBy,
		SortDesc:       desc,
		Limit:          limit,
		Offset:         (page - 1) * limit,
	}, page, nil
}

func (s *HelpdeskService) getHelpdesk(ctx context.Context, id string) (*domain.Helpdesk, error) {
	helpdesk, err := s.helpdesks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, helpdeskNotFound(id)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return helpdesk, nil
}

func validateCreateInput(input CreateHelpdeskInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.ClientID) == "" {
		details["clientId"] = "required"
	}
	if input.Title == "" {
		details["title"] = "required"
	}
	if input.Description == "" {
		details["description"] = "required"
	}
	if !input.Category.Valid() {
		details["category"] = "invalid"
	}
	if !input.Priority.Valid() {
		details["priority"] = "invalid"
	}
	if input.Module != nil && !input.Module.Valid() {
		details["module"] = "invalid"
	}
	if !input.Environment.Valid() {
		details["environment"] = "invalid"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket payload", details)
	}
	return nil
}

func checkAttachmentURLs(v *validator.Validate, attachments []string) error {
	for i, raw := range attachments {
		if err := v.Var(raw, "required,url"); err != nil {
			return apperrors.New(apperrors.KindValidation, apperrors.CodeInvalidAttachmentURL,
				"attachment is not a well-formed URL",
				map[string]any{"index": i, "url": raw})
		}
	}
	return nil
}

func helpdeskNotFound(id string) *apperrors.DomainError {
	return apperrors.NewNotFound(apperrors.CodeHelpdeskNotFound, "ticket not found", map[string]any{"ticketId": id})
}

func storageUnavailable(bucket string, err error) *apperrors.DomainError {
	return apperrors.NewUnavailable(apperrors.CodeStorageUnavailable, "object storage is unavailable",
		map[string]any{"bucket": bucket}).WithCause(err)
}

func bucketWriteError(bucket, key string, err error) *apperrors.DomainError {
	if errors.Is(err, storage.ErrUnavailable) {
		return storageUnavailable(bucket, err)
	}
	de := apperrors.NewInternal(apperrors.CodeBucketError, "failed to write to object storage", err)
	de.Details = map[string]any{"bucket": bucket, "key": key}
	return de
}
