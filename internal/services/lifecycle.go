package services

import (
	"context"
	"time"

	"github.com/google/logger"

	"github.com/Prince-Singh-05/Lottery-POS/internal/clock"
	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
)

// ClaimPolicy decides who may claim a ticket and from which status.
type ClaimPolicy string

const (
	// ClaimStrict requires a sold ticket claimed by its buyer.
	ClaimStrict ClaimPolicy = "strict"
	// ClaimLenient lets anyone claim an available or sold ticket.
	ClaimLenient ClaimPolicy = "lenient"
)

var (
	sellable  = []models.TicketStatus{models.StatusAvailable}
	expirable = []models.TicketStatus{models.StatusAvailable, models.StatusSold}
)

// Lifecycle moves tickets through available -> sold -> claimed and expires
// them lazily whenever they are touched after their expiry date.
type Lifecycle struct {
	store  storage.TicketStore
	clock  clock.Clock
	policy ClaimPolicy
	events Events
}

// NewLifecycle creates a Lifecycle. An empty policy means ClaimStrict.
func NewLifecycle(store storage.TicketStore, clk clock.Clock, policy ClaimPolicy, events Events) *Lifecycle {
	if policy == "" {
		policy = ClaimStrict
	}
	return &Lifecycle{
		store:  store,
		clock:  clk,
		policy: policy,
		events: eventsOrNop(events),
	}
}

// Purchase sells an available ticket to buyerID.
func (l *Lifecycle) Purchase(ctx context.Context, ticketID, buyerID string) (models.Ticket, error) {
	if ticketID == "" {
		return models.Ticket{}, models.ErrMissingFields.WithMessage("please provide ticketId")
	}
	now := l.clock.Now()

	t, err := l.store.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}
	if err := l.checkExpiry(ctx, t, now); err != nil {
		return models.Ticket{}, err
	}
	if t.Status != models.StatusAvailable {
		return models.Ticket{}, models.ErrInvalidState.WithMessage("ticket is not available (status %s)", t.Status)
	}
	if tt := t.TicketType; tt != nil {
		p := tt.NumberPattern
		if !p.Contains(t.TicketNumber) || models.DigitWidth(t.TicketNumber) != p.Digits {
			return models.Ticket{}, models.ErrInvalidTicketNumber.WithMessage(
				"ticket number %d does not match pattern %d-%d (%d digits)", t.TicketNumber, p.StartRange, p.EndRange, p.Digits)
		}
	}

	sold, err := l.transition(ctx, models.TicketTransition{
		TicketID: t.ID,
		From:     sellable,
		To:       models.StatusSold,
		At:       now,
		UserID:   buyerID,
		NotAfter: now,
	})
	if err != nil {
		return models.Ticket{}, err
	}

	l.events.TicketSold(sold.Price)
	logger.Infof("Ticket %s (#%d) sold to %s", sold.ID, sold.TicketNumber, buyerID)
	return sold, nil
}

// Claim records that claimantID collected the ticket's winnings.
func (l *Lifecycle) Claim(ctx context.Context, ticketID, claimantID string) (models.Ticket, error) {
	if ticketID == "" {
		return models.Ticket{}, models.ErrMissingFields.WithMessage("please provide ticketId")
	}
	now := l.clock.Now()

	t, err := l.store.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}
	if err := l.checkExpiry(ctx, t, now); err != nil {
		return models.Ticket{}, err
	}

	from := expirable
	switch l.policy {
	case ClaimLenient:
		if t.Status != models.StatusAvailable && t.Status != models.StatusSold {
			return models.Ticket{}, models.ErrInvalidState.WithMessage("ticket cannot be claimed (status %s)", t.Status)
		}
	default:
		if t.Status != models.StatusSold {
			return models.Ticket{}, models.ErrInvalidState.WithMessage("ticket cannot be claimed (status %s)", t.Status)
		}
		if t.SoldTo == nil || *t.SoldTo != claimantID {
			return models.Ticket{}, models.ErrNotTicketHolder
		}
		from = []models.TicketStatus{models.StatusSold}
	}

	claimed, err := l.transition(ctx, models.TicketTransition{
		TicketID: t.ID,
		From:     from,
		To:       models.StatusClaimed,
		At:       now,
		UserID:   claimantID,
		NotAfter: now,
	})
	if err != nil {
		return models.Ticket{}, err
	}

	l.events.TicketClaimed(claimed.WinningAmount)
	logger.Infof("Ticket %s (#%d) claimed by %s, winning amount %s", claimed.ID, claimed.TicketNumber, claimantID, claimed.WinningAmount)
	return claimed, nil
}

// transition applies tr and converts a lost check-and-set into the error the
// caller would have seen had it arrived second.
func (l *Lifecycle) transition(ctx context.Context, tr models.TicketTransition) (models.Ticket, error) {
	t, applied, err := l.store.TransitionTicket(ctx, tr)
	if err != nil {
		return models.Ticket{}, err
	}
	if applied {
		return t, nil
	}
	if err := l.checkExpiry(ctx, t, tr.At); err != nil {
		return models.Ticket{}, err
	}
	return models.Ticket{}, models.ErrInvalidState.WithMessage("ticket changed concurrently (status %s)", t.Status)
}

// checkExpiry fails with ErrExpired when t is expired or past its expiry
// date, persisting the expired status in the latter case.
func (l *Lifecycle) checkExpiry(ctx context.Context, t models.Ticket, now time.Time) error {
	if t.Status == models.StatusExpired {
		return models.ErrExpired
	}
	if t.Status.Terminal() || !t.ExpiredAt(now) {
		return nil
	}

	_, applied, err := l.store.TransitionTicket(ctx, models.TicketTransition{
		TicketID: t.ID,
		From:     expirable,
		To:       models.StatusExpired,
		At:       now,
	})
	if err != nil {
		return err
	}
	if applied {
		l.events.TicketsExpired(1)
		logger.Infof("Ticket %s (#%d) expired on access", t.ID, t.TicketNumber)
	}
	return models.ErrExpired.WithMessage("ticket expired at %s", t.ExpiryDate.Format(time.RFC3339))
}

// Get returns one ticket with its type.
func (l *Lifecycle) Get(ctx context.Context, id string) (models.Ticket, error) {
	return l.store.GetTicket(ctx, id)
}

// List returns tickets matching filter with their types.
func (l *Lifecycle) List(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	return l.store.ListTickets(ctx, filter)
}

// CustomerTickets returns the tickets sold to or claimed by userID.
func (l *Lifecycle) CustomerTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	if userID == "" {
		return nil, models.ErrUnauthorized
	}
	return l.store.ListTickets(ctx, models.TicketFilter{Holder: userID})
}
