package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/fleet-helpdesk/internal/domain"
	"github.com/spec-kit/fleet-helpdesk/internal/repository"
)

func seedNumber(t *testing.T, repo *repository.MemoryHelpdeskRepository, number string) {
	t.Helper()
	h := &domain.Helpdesk{
		ID:           number,
		TicketNumber: number,
		ClientID:     "c-" + number,
		Status:       domain.HelpdeskStatusClosed,
		CreatedAt:    time.Now(),
	}
	if err := repo.Create(context.Background(), h); err != nil {
		t.Fatalf("seed %s: %v", number, err)
	}
}

func TestNextTicketNumber(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryHelpdeskRepository()

	got, err := NextTicketNumber(ctx, repo, 2026)
	if err != nil {
		t.Fatalf("NextTicketNumber returned error: %v", err)
	}
	if got != "TKT-2026-001" {
		t.Fatalf("expected first number TKT-2026-001, got %s", got)
	}

	seedNumber(t, repo, "TKT-2026-001")
	seedNumber(t, repo, "TKT-2026-041")
	seedNumber(t, repo, "TKT-2027-900")
	got, _ = NextTicketNumber(ctx, repo, 2026)
	if got != "TKT-2026-042" {
		t.Fatalf("expected TKT-2026-042, got %s", got)
	}

	got, _ = NextTicketNumber(ctx, repo, 2028)
	if got != "TKT-2028-001" {
		t.Fatalf("new year should restart the sequence, got %s", got)
	}
}

func TestNextTicketNumberPastThreeDigits(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryHelpdeskRepository()
	seedNumber(t, repo, "TKT-2026-999")
	got, _ := NextTicketNumber(ctx, repo, 2026)
	if got != "TKT-2026-1000" {
		t.Fatalf("expected TKT-2026-1000, got %s", got)
	}
	seedNumber(t, repo, got)
	got, _ = NextTicketNumber(ctx, repo, 2026)
	if got != "TKT-2026-1001" {
		t.Fatalf("expected TKT-2026-1001, got %s", got)
	}
}

func TestNextTicketNumberRejectsGarbage(t *testing.T) {
	repo := repository.NewMemoryHelpdeskRepository()
	seedNumber(t, repo, "TKT-2026-abc")
	if _, err := NextTicketNumber(context.Background(), repo, 2026); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTicketNumbersIncreaseAcrossYearBoundary(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC))
	var numbers []string
	for i := 0; i < 3; i++ {
		client := f.user(t, domain.UserRoleClient)
		numbers = append(numbers, f.openTicket(t, client.ID).TicketNumber)
	}
	f.clock.Set(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	client := f.user(t, domain.UserRoleClient)
	numbers = append(numbers, f.openTicket(t, client.ID).TicketNumber)

	want := []string{"TKT-2025-001", "TKT-2025-002", "TKT-2025-003", "TKT-2026-001"}
	for i := range want {
		if numbers[i] != want[i] {
			t.Fatalf("ticket %d: expected %s, got %s", i, want[i], numbers[i])
		}
	}
}
