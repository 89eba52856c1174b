package services

import (
	"context"
	"math"
	"strings"

	"github.com/google/logger"

	"github.com/Prince-Singh-05/Lottery-POS/internal/clock"
	"github.com/Prince-Singh-05/Lottery-POS/internal/config"
	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
)

// CreateTicketTypeInput is the admin request to define a new product.
type CreateTicketTypeInput struct {
	Name           string       `json:"name"`
	Price          models.Money `json:"price"`
	StartRange     int64        `json:"startRange"`
	EndRange       int64        `json:"endRange"`
	Digits         int          `json:"digits"`
	ExpiryDuration int          `json:"expiryDuration"`
}

// Registry defines ticket types.
type Registry struct {
	store   storage.TicketTypeStore
	catalog config.Catalog
	clock   clock.Clock
	events  Events
}

// NewRegistry creates a Registry restricted to the names in catalog.
func NewRegistry(store storage.TicketTypeStore, catalog config.Catalog, clk clock.Clock, events Events) *Registry {
	return &Registry{
		store:   store,
		catalog: catalog,
		clock:   clk,
		events:  eventsOrNop(events),
	}
}

// Create validates in and stores a new active ticket type. The range must not
// intersect any existing type.
func (r *Registry) Create(ctx context.Context, in CreateTicketTypeInput) (models.TicketType, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := r.validate(in); err != nil {
		return models.TicketType{}, err
	}

	tt, err := r.store.CreateTicketType(ctx, models.TicketType{
		Name: in.Name,
		NumberPattern: models.NumberPattern{
			StartRange: in.StartRange,
			EndRange:   in.EndRange,
			Digits:     in.Digits,
		},
		Price:          in.Price,
		ExpiryDuration: in.ExpiryDuration,
		Active:         true,
		CreatedAt:      r.clock.Now(),
	})
	if err != nil {
		return models.TicketType{}, err
	}

	r.events.TicketTypeCreated(tt.Name)
	logger.Infof("Created ticket type %s (%s) range %d-%d price %s", tt.ID, tt.Name, in.StartRange, in.EndRange, tt.Price)
	return tt, nil
}

func (r *Registry) validate(in CreateTicketTypeInput) error {
	if in.Name == "" {
		return models.ErrMissingFields
	}
	if !r.catalog.Has(in.Name) {
		return models.ErrUnknownTicketName.WithMessage("unknown ticket type name %q, expected one of %s",
			in.Name, strings.Join(r.catalog.Names(), ", "))
	}
	if in.Price <= 0 || in.Price > models.MaxTicketPrice {
		return models.ErrInvalidPrice
	}
	if in.ExpiryDuration < 1 {
		return models.ErrInvalidExpiry
	}
	// Inclusive ranges are stored as int8range, whose exclusive upper bound
	// must still fit in int64.
	if in.StartRange < 0 || in.StartRange > in.EndRange || in.EndRange == math.MaxInt64 {
		return models.ErrInvalidRange.WithMessage("invalid number range %d-%d", in.StartRange, in.EndRange)
	}
	if in.Digits != models.DigitWidth(in.StartRange) || in.Digits != models.DigitWidth(in.EndRange) {
		return models.ErrInvalidDigits.WithMessage("digits %d do not match range %d-%d", in.Digits, in.StartRange, in.EndRange)
	}
	return nil
}

// Get returns one ticket type.
func (r *Registry) Get(ctx context.Context, id string) (models.TicketType, error) {
	return r.store.GetTicketType(ctx, id)
}

// List returns every ticket type ordered by range.
func (r *Registry) List(ctx context.Context) ([]models.TicketType, error) {
	return r.store.ListTicketTypes(ctx)
}
