package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spec-kit/fleet-helpdesk/internal/domain"
	"github.com/spec-kit/fleet-helpdesk/internal/events"
	"github.com/spec-kit/fleet-helpdesk/internal/notify"
	"github.com/spec-kit/fleet-helpdesk/internal/repository"
	"github.com/spec-kit/fleet-helpdesk/internal/storage"
	apperrors "github.com/spec-kit/fleet-helpdesk/pkg/util/errorutil"
)

const (
	messagesFolder = "messages"
	previewLength  = 140
)

// MessageService appends messages to a ticket's bucket folder and reads the thread back.
type MessageService struct {
	helpdesks  repository.HelpdeskRepository
	users      repository.UserRepository
	bucket     storage.Bucket
	bucketName string
	publisher  *publisher
	logger     *zap.Logger
	validate   *validator.Validate
	now        func() time.Time
}

// PostMessageInput describes a new thread entry.
type PostMessageInput struct {
	AuthorID    string
	AuthorType  domain.MessageAuthorType
	Message     string
	Attachments []string
}

// PostMessageResult confirms a stored message.
type PostMessageResult struct {
	Message  domain.HelpdeskMessage `json:"message"`
	FileName string                 `json:"fileName"`
}

// NewMessageService constructs the service.
func NewMessageService(deps HelpdeskDependencies) *MessageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &MessageService{
		helpdesks:  deps.HelpdeskRepo,
		users:      deps.UserRepo,
		bucket:     deps.Bucket,
		bucketName: deps.BucketName,
		publisher:  newPublisher(deps.Sink, deps.Drops, logger),
		logger:     logger,
		validate:   validator.New(),
		now:        func() time.Time { return clock().UTC() },
	}
}

// PostMessage stores the message in the bucket, then bumps the ticket's lastMessageAt. When the
// second step fails the message stays stored and UPDATE_TIMESTAMP_FAILED is returned.
func (s *MessageService) PostMessage(ctx context.Context, helpdeskID string, input PostMessageInput) (*PostMessageResult, error) {
	input.Message = strings.TrimSpace(input.Message)
	if input.Message == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"message": "required"})
	}
	if !input.AuthorType.Valid() {
		return nil, apperrors.NewValidationError("invalid authorType", map[string]any{"authorType": input.AuthorType})
	}

	helpdesk, err := s.helpdesks.GetByID(ctx, helpdeskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, helpdeskNotFound(helpdeskID)
		}
		return nil, apperrors.NewInternalError(err)
	}

	author, err := s.users.GetByID(ctx, input.AuthorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeAuthorNotFound, "author not found",
				map[string]any{"authorId": input.AuthorID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	required, _ := input.AuthorType.RequiredRole()
	if author.Role != required {
		return nil, apperrors.New(apperrors.KindValidation, apperrors.CodeAuthorRoleMismatch,
			"author role does not match authorType",
			map[string]any{"authorId": author.ID, "authorType": input.AuthorType, "role": author.Role, "expectedRole": required})
	}

	if err := checkAttachmentURLs(s.validate, input.Attachments); err != nil {
		return nil, err
	}
	if err := s.bucket.EnsureBucket(ctx, s.bucketName); err != nil {
		return nil, storageUnavailable(s.bucketName, err)
	}

	prefix, _, err := s.threadKeys(ctx, helpdesk.BucketPath)
	if err != nil {
		return nil, err
	}

	now := s.now()
	msg := domain.HelpdeskMessage{
		AuthorID:    author.ID,
		AuthorType:  input.AuthorType,
		Message:     input.Message,
		Attachments: input.Attachments,
		CreatedAt:   domain.FormatMessageTime(now),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, apperrors.NewInternal(apperrors.CodeBucketError, "failed to encode message", err)
	}
	fileName := domain.MessageFileName(now, input.AuthorType, author.ID)
	key := prefix + fileName
	if err := s.bucket.Put(ctx, s.bucketName, key, body, jsonContentType); err != nil {
		return nil, bucketWriteError(s.bucketName, key, err)
	}
	s.logger.Info("message stored",
		zap.String("helpdesk_id", helpdesk.ID),
		zap.String("key", key))

	s.publisher.publish(ctx, notify.TicketRoom(helpdesk.ID), events.EventHelpdeskMessageReceived, events.HelpdeskMessageReceivedPayload{
		HelpdeskID:  helpdesk.ID,
		FileName:    fileName,
		AuthorID:    msg.AuthorID,
		AuthorType:  msg.AuthorType,
		BodyPreview: preview(msg.Message),
		CreatedAt:   msg.CreatedAt,
	})

	if err := s.helpdesks.TouchLastMessage(ctx, helpdesk.ID, now); err != nil {
		s.logger.Error("message stored but timestamp update failed",
			zap.String("helpdesk_id", helpdesk.ID),
			zap.String("key", key),
			zap.Error(err))
		de := apperrors.NewInternal(apperrors.CodeUpdateTimestampFailed,
			"message stored but the ticket timestamp could not be updated", err)
		de.Details = map[string]any{"helpdeskId": helpdesk.ID, "fileName": fileName}
		return nil, de
	}

	return &PostMessageResult{Message: msg, FileName: fileName}, nil
}

// ListMessages returns the ticket's thread oldest first. Objects that cannot be read or parsed
// are skipped.
func (s *MessageService) ListMessages(ctx context.Context, helpdeskID string) ([]domain.HelpdeskMessage, error) {
	helpdesk, err := s.helpdesks.GetByID(ctx, helpdeskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, helpdeskNotFound(helpdeskID)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.bucket.EnsureBucket(ctx, s.bucketName); err != nil {
		return nil, storageUnavailable(s.bucketName, err)
	}

	_, keys, err := s.threadKeys(ctx, helpdesk.BucketPath)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.HelpdeskMessage, 0, len(keys))
	for _, key := range keys {
		body, err := s.bucket.Get(ctx, s.bucketName, key)
		if err != nil {
			s.logger.Debug("skipping unreadable message", zap.String("key", key), zap.Error(err))
			continue
		}
		var msg domain.HelpdeskMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			s.logger.Debug("skipping malformed message", zap.String("key", key), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// threadKeys locates a ticket's thread: the first prefix candidate holding message objects, with
// its keys sorted. New messages are written to the same prefix so reads always see them. When no
// candidate holds messages yet the slash-less prefix is returned with no keys.
func (s *MessageService) threadKeys(ctx context.Context, bucketPath string) (string, []string, error) {
	for _, prefix := range messagePrefixCandidates(bucketPath) {
		objects, err := s.bucket.ListByPrefix(ctx, s.bucketName, prefix)
		if err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				return "", nil, storageUnavailable(s.bucketName, err)
			}
			return "", nil, apperrors.NewInternal(apperrors.CodeBucketError, "failed to list messages", err)
		}
		var keys []string
		for _, obj := range objects {
			if strings.HasSuffix(obj.Key, ".json") {
				keys = append(keys, obj.Key)
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			return prefix, keys, nil
		}
	}
	return messagesPrefix(bucketPath), nil, nil
}

func messagesPrefix(bucketPath string) string {
	return strings.TrimPrefix(bucketPath, "/") + "/" + messagesFolder + "/"
}

// messagePrefixCandidates lists where a ticket's messages may live, in lookup order. Rows written
// by older builds stored bucketPath with a leading slash; the second candidate covers objects
// written under the slash-less key for those rows.
func messagePrefixCandidates(bucketPath string) []string {
	current := bucketPath + "/" + messagesFolder + "/"
	legacy := strings.TrimPrefix(current, "/")
	if legacy == current {
		return []string{current}
	}
	return []string{current, legacy}
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "…"
}
