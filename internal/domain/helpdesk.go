package domain

import (
	"fmt"
	"time"
)

// HelpdeskStatus enumerates lifecycle states for tickets.
type HelpdeskStatus string

const (
	HelpdeskStatusOpen        HelpdeskStatus = "ABERTO"
	HelpdeskStatusInAnalysis  HelpdeskStatus = "EM_ANALISE"
	HelpdeskStatusInProgress  HelpdeskStatus = "EM_ANDAMENTO"
	HelpdeskStatusWaitingUser HelpdeskStatus = "AGUARDANDO_USUARIO"
	HelpdeskStatusResolved    HelpdeskStatus = "RESOLVIDO"
	HelpdeskStatusClosed      HelpdeskStatus = "ENCERRADO"
)

// HelpdeskPriority enumerates urgency.
type HelpdeskPriority string

const (
	HelpdeskPriorityLow    HelpdeskPriority = "BAIXA"
	HelpdeskPriorityMedium HelpdeskPriority = "MEDIA"
	HelpdeskPriorityHigh   HelpdeskPriority = "ALTA"
	HelpdeskPriorityUrgent HelpdeskPriority = "URGENTE"
)

// Rank orders priorities from lowest to highest.
func (p HelpdeskPriority) Rank() int {
	switch p {
	case HelpdeskPriorityLow:
		return 1
	case HelpdeskPriorityMedium:
		return 2
	case HelpdeskPriorityHigh:
		return 3
	case HelpdeskPriorityUrgent:
		return 4
	}
	return 0
}

// HelpdeskCategory classifies what the client is asking for.
type HelpdeskCategory string

const (
	HelpdeskCategoryBug        HelpdeskCategory = "BUG"
	HelpdeskCategoryQuestion   HelpdeskCategory = "DUVIDA"
	HelpdeskCategorySuggestion HelpdeskCategory = "SUGESTAO"
	HelpdeskCategoryRequest    HelpdeskCategory = "SOLICITACAO"
	HelpdeskCategoryOther      HelpdeskCategory = "OUTRO"
)

// HelpdeskModule points at the area of the fleet application the ticket is about.
type HelpdeskModule string

const (
	HelpdeskModuleVehicles  HelpdeskModule = "VEICULOS"
	HelpdeskModuleFuelings  HelpdeskModule = "ABASTECIMENTOS"
	HelpdeskModuleIncidents HelpdeskModule = "OCORRENCIAS"
	HelpdeskModuleDocuments HelpdeskModule = "DOCUMENTOS"
	HelpdeskModuleImages    HelpdeskModule = "IMAGENS"
	HelpdeskModuleUsers     HelpdeskModule = "USUARIOS"
	HelpdeskModuleDashboard HelpdeskModule = "DASHBOARD"
	HelpdeskModuleOther     HelpdeskModule = "OUTRO"
)

// HelpdeskEnvironment is where the client hit the problem.
type HelpdeskEnvironment string

const (
	HelpdeskEnvironmentWeb    HelpdeskEnvironment = "WEB"
	HelpdeskEnvironmentMobile HelpdeskEnvironment = "MOBILE"
)

// Helpdesk is the aggregate for one client support case. Message bodies live in the bucket
// under BucketPath; the row only tracks LastMessageAt.
type Helpdesk struct {
	ID             string
	TicketNumber   string
	ClientID       string
	UserID         *string
	AssignedUserID *string
	Title          string
	Description    string
	Category       HelpdeskCategory
	Priority       HelpdeskPriority
	Status         HelpdeskStatus
	Module         *HelpdeskModule
	Environment    HelpdeskEnvironment
	BucketPath     string
	LastMessageAt  time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

// IsClosed reports whether the ticket reached ENCERRADO.
func (h *Helpdesk) IsClosed() bool {
	return h.Status == HelpdeskStatusClosed
}

// BucketPath returns the storage folder for a ticket. It never changes after creation.
func BucketPath(clientID, ticketID string) string {
	return fmt.Sprintf("helpdesk/client_%s/ticket_%s", clientID, ticketID)
}

// Valid reports whether s is a known status.
func (s HelpdeskStatus) Valid() bool {
	switch s {
	case HelpdeskStatusOpen, HelpdeskStatusInAnalysis, HelpdeskStatusInProgress,
		HelpdeskStatusWaitingUser, HelpdeskStatusResolved, HelpdeskStatusClosed:
		return true
	}
	return false
}

// Valid reports whether p is a known priority.
func (p HelpdeskPriority) Valid() bool {
	return p.Rank() > 0
}

// Valid reports whether c is a known category.
func (c HelpdeskCategory) Valid() bool {
	switch c {
	case HelpdeskCategoryBug, HelpdeskCategoryQuestion, HelpdeskCategorySuggestion,
		HelpdeskCategoryRequest, HelpdeskCategoryOther:
		return true
	}
	return false
}

// Valid reports whether m is a known module.
func (m HelpdeskModule) Valid() bool {
	switch m {
	case HelpdeskModuleVehicles, HelpdeskModuleFuelings, HelpdeskModuleIncidents, HelpdeskModuleDocuments,
		HelpdeskModuleImages, HelpdeskModuleUsers, HelpdeskModuleDashboard, HelpdeskModuleOther:
		return true
	}
	return false
}

// Valid reports whether e is a known environment.
func (e HelpdeskEnvironment) Valid() bool {
	return e == HelpdeskEnvironmentWeb || e == HelpdeskEnvironmentMobile
}
