// Package storage declares the persistence contracts of the ticket engine.
// Implementations live in the memory and postgres subpackages.
package storage

import (
	"context"
	"time"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

// TicketTypeStore persists ticket types. CreateTicketType must reject a type
// whose range intersects any existing type with models.ErrTicketTypeOverlap,
// atomically with the insert.
type TicketTypeStore interface {
	CreateTicketType(ctx context.Context, tt models.TicketType) (models.TicketType, error)
	GetTicketType(ctx context.Context, id string) (models.TicketType, error)
	ListTicketTypes(ctx context.Context) ([]models.TicketType, error)
}

// AllocationStore persists allocations together with their inventory.
type AllocationStore interface {
	// CreateAllocation inserts alloc and tickets as one unit. An interval that
	// intersects an active allocation of the same ticket type fails with
	// models.ErrRangeConflict; a colliding ticket number fails with
	// models.ErrDuplicateTicket. Nothing is persisted on failure.
	CreateAllocation(ctx context.Context, alloc models.TicketAllocation, tickets []models.Ticket) (models.TicketAllocation, error)
	GetAllocation(ctx context.Context, id string) (models.TicketAllocation, error)
	ListAllocationsByShop(ctx context.Context, shopID string) ([]models.TicketAllocation, error)
	// InsertTickets adds inventory all-or-nothing.
	InsertTickets(ctx context.Context, tickets []models.Ticket) error
	CountTicketsInRange(ctx context.Context, ticketTypeID string, start, end int64) (int64, error)
}

// TicketStore reads tickets and applies lifecycle transitions.
type TicketStore interface {
	// GetTicket returns the ticket with its TicketType populated.
	GetTicket(ctx context.Context, id string) (models.Ticket, error)
	ListTickets(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error)
	// TransitionTicket applies tr as a single check-and-set. It returns the
	// ticket as stored after the call and whether the update was applied.
	TransitionTicket(ctx context.Context, tr models.TicketTransition) (models.Ticket, bool, error)
	// ExpireDue moves every available or sold ticket whose expiry is before
	// now to expired and returns how many changed.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// ReportStore answers the grouped queries behind the weekly report.
type ReportStore interface {
	AggregateActivity(ctx context.Context, shopIDs []string, w models.ReportWindow) ([]models.ActivityGroup, error)
	ClaimedTotals(ctx context.Context, shopIDs []string, w models.ReportWindow) ([]models.ClaimedTotal, error)
	// ListClaimed returns at most limit claimed tickets, newest claim first.
	ListClaimed(ctx context.Context, shopIDs []string, w models.ReportWindow, limit int) ([]models.ClaimedTicket, error)
}

// ShopStore persists shops. RegistrationID is unique.
type ShopStore interface {
	CreateShop(ctx context.Context, shop models.Shop) (models.Shop, error)
	GetShop(ctx context.Context, id string) (models.Shop, error)
	GetShopByRegistration(ctx context.Context, registrationID string) (models.Shop, error)
	ListShops(ctx context.Context) ([]models.Shop, error)
	ListShopsByOwner(ctx context.Context, ownerID string) ([]models.Shop, error)
}

// Store is the full persistence surface used by the service layer.
type Store interface {
	TicketTypeStore
	AllocationStore
	TicketStore
	ReportStore
	ShopStore
}
