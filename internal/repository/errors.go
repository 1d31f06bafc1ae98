package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrUniqueViolation is returned when an insert or update breaks a unique constraint.
	ErrUniqueViolation = errors.New("unique constraint violated")
	// ErrOpenTicketExists is returned when a client already owns a ticket that is not ENCERRADO.
	ErrOpenTicketExists = errors.New("client already has an open ticket")
)

const (
	uniqueViolationCode  = "23505"
	openTicketConstraint = "helpdesks_one_open_per_client"
)

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		if pgErr.ConstraintName == openTicketConstraint {
			return fmt.Errorf("%w: %s", ErrOpenTicketExists, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}
