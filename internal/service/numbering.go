package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/fleet-helpdesk/internal/repository"
)

// TicketNumberPrefix returns the per-year prefix shared by every ticket number of year.
func TicketNumberPrefix(year int) string {
	return fmt.Sprintf("TKT-%d-", year)
}

// FormatTicketNumber renders TKT-<year>-<seq> with seq zero-padded to three digits.
func FormatTicketNumber(year, seq int) string {
	return fmt.Sprintf("%s%03d", TicketNumberPrefix(year), seq)
}

// NextTicketNumber derives the next number for year from the greatest one already stored.
// Two concurrent callers can compute the same value; the store's unique index rejects the
// second insert.
func NextTicketNumber(ctx context.Context, helpdesks repository.HelpdeskRepository, year int) (string, error) {
	prefix := TicketNumberPrefix(year)
	last, err := helpdesks.LastTicketNumber(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("read last ticket number: %w", err)
	}
	if last == "" {
		return FormatTicketNumber(year, 1), nil
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
	if err != nil {
		return "", fmt.Errorf("parse ticket number %q: %w", last, err)
	}
	return FormatTicketNumber(year, seq+1), nil
}
