package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fleet-helpdesk/internal/domain"
)

// Sortable helpdesk fields.
const (
	SortByCreatedAt     = "createdAt"
	SortByUpdatedAt     = "updatedAt"
	SortByLastMessageAt = "lastMessageAt"
	SortByPriority      = "priority"
)

// HelpdeskFilter captures listing parameters.
type HelpdeskFilter struct {
	Status         *domain.HelpdeskStatus
	Priority       *domain.HelpdeskPriority
	Category       *domain.HelpdeskCategory
	ClientID       *string
	AssignedUserID *string
	SortBy         string
	SortDesc       bool
	Limit          int
	Offset         int
}

// HelpdeskRepository encapsulates ticket persistence.
type HelpdeskRepository interface {
	Create(ctx context.Context, helpdesk *domain.Helpdesk) error
	Update(ctx context.Context, helpdesk *domain.Helpdesk) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Helpdesk, error)
	// FindOpenByClient returns the client's ticket whose status is not ENCERRADO.
	FindOpenByClient(ctx context.Context, clientID string) (*domain.Helpdesk, error)
	// LastTicketNumber returns the greatest ticket number starting with prefix, or "" when none exists.
	LastTicketNumber(ctx context.Context, prefix string) (string, error)
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, filter HelpdeskFilter) ([]domain.Helpdesk, error)
	Count(ctx context.Context, filter HelpdeskFilter) (int, error)
}

type helpdeskRepository struct {
	pool *pgxpool.Pool
}

// NewHelpdeskRepository instantiates repository.
func NewHelpdeskRepository(pool *pgxpool.Pool) HelpdeskRepository {
	return &helpdeskRepository{pool: pool}
}

const helpdeskColumns = `id, ticket_number, client_id, user_id, assigned_user_id, title, description,
               category, priority, status, module, environment, bucket_path, last_message_at,
               created_at, updated_at, closed_at`

func (r *helpdeskRepository) Create(ctx context.Context, h *domain.Helpdesk) error {
	const query = `
        INSERT INTO helpdesks (id, ticket_number, client_id, user_id, assigned_user_id, title, description,
            category, priority, status, module, environment, bucket_path, last_message_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		h.ID,
		h.TicketNumber,
		h.ClientID,
		h.UserID,
		h.AssignedUserID,
		h.Title,
		h.Description,
		h.Category,
		h.Priority,
		h.Status,
		h.Module,
		h.Environment,
		h.BucketPath,
		h.LastMessageAt,
		h.CreatedAt,
	).Scan(&h.UpdatedAt)
	return mapError(err)
}

func (r *helpdeskRepository) Update(ctx context.Context, h *domain.Helpdesk) error {
	const query = `
        UPDATE helpdesks SET assigned_user_id=$1, status=$2, priority=$3, closed_at=$4, updated_at=NOW()
        WHERE id::text=$5
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		h.AssignedUserID,
		h.Status,
		h.Priority,
		h.ClosedAt,
		h.ID,
	).Scan(&h.UpdatedAt)
	return mapError(err)
}

func (r *helpdeskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM helpdesks WHERE id::text=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *helpdeskRepository) GetByID(ctx context.Context, id string) (*domain.Helpdesk, error) {
	query := `SELECT ` + helpdeskColumns + ` FROM helpdesks WHERE id::text=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *helpdeskRepository) FindOpenByClient(ctx context.Context, clientID string) (*domain.Helpdesk, error) {
	query := `SELECT ` + helpdeskColumns + `
        FROM helpdesks WHERE client_id::text=$1 AND status <> $2
        ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, clientID, domain.HelpdeskStatusClosed)
}

func (r *helpdeskRepository) LastTicketNumber(ctx context.Context, prefix string) (string, error) {
	const query = `
        SELECT ticket_number FROM helpdesks
        WHERE ticket_number LIKE $1
        ORDER BY length(ticket_number) DESC, ticket_number DESC
        LIMIT 1`
	var number string
	err := r.pool.QueryRow(ctx, query, prefix+"%").Scan(&number)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", mapError(err)
	}
	return number, nil
}

func (r *helpdeskRepository) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE helpdesks SET last_message_at=$1, updated_at=NOW() WHERE id::text=$2`, at, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *helpdeskRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Helpdesk, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	result, err := scanHelpdesks(rows)
	if err != nil {
		return nil, mapError(err)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return &result[0], nil
}

func buildHelpdeskWhere(filter HelpdeskFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id::text=$%d", len(args)))
	}
	if filter.AssignedUserID != nil {
		args = append(args, *filter.AssignedUserID)
		clauses = append(clauses, fmt.Sprintf("assigned_user_id::text=$%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func orderByClause(filter HelpdeskFilter) string {
	column := "created_at"
	switch filter.SortBy {
	case SortByUpdatedAt:
		column = "updated_at"
	case SortByLastMessageAt:
		column = "last_message_at"
	case SortByPriority:
		column = "array_position(ARRAY['BAIXA','MEDIA','ALTA','URGENTE']::text[], priority)"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}

func (r *helpdeskRepository) List(ctx context.Context, filter HelpdeskFilter) ([]domain.Helpdesk, error) {
	where, args := buildHelpdeskWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM helpdesks WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		helpdeskColumns, where, orderByClause(filter), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanHelpdesks(rows)
}

func (r *helpdeskRepository) Count(ctx context.Context, filter HelpdeskFilter) (int, error) {
	where, args := buildHelpdeskWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM helpdesks WHERE `+where, args...).Scan(&total); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

func scanHelpdesks(rows pgx.Rows) ([]domain.Helpdesk, error) {
	result := []domain.Helpdesk{}
	for rows.Next() {
		var h domain.Helpdesk
		if err := rows.Scan(
			&h.ID,
			&h.TicketNumber,
			&h.ClientID,
			&h.UserID,
			&h.AssignedUserID,
			&h.Title,
			&h.Description,
			&h.Category,
			&h.Priority,
			&h.Status,
			&h.Module,
			&h.Environment,
			&h.BucketPath,
			&h.LastMessageAt,
			&h.CreatedAt,
			&h.UpdatedAt,
			&h.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}
