package services

import (
	"context"
	"strings"

	"github.com/google/logger"

	"github.com/Prince-Singh-05/Lottery-POS/internal/clock"
	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
)

// RegisterShopInput is a shop owner's request to register a point of sale.
type RegisterShopInput struct {
	Name           string `json:"name"`
	RegistrationID string `json:"registrationId"`
	Address        string `json:"address"`
}

// Shops is the shop directory.
type Shops struct {
	store   storage.ShopStore
	tickets storage.TicketStore
	clock   clock.Clock
}

// NewShops creates a Shops directory.
func NewShops(store storage.ShopStore, tickets storage.TicketStore, clk clock.Clock) *Shops {
	return &Shops{store: store, tickets: tickets, clock: clk}
}

// Register creates a shop owned by ownerID. Registration ids are unique.
func (s *Shops) Register(ctx context.Context, ownerID string, in RegisterShopInput) (models.Shop, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.RegistrationID = strings.TrimSpace(in.RegistrationID)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" || in.RegistrationID == "" || in.Address == "" {
		return models.Shop{}, models.ErrMissingFields
	}

	shop, err := s.store.CreateShop(ctx, models.Shop{
		Name:           in.Name,
		RegistrationID: in.RegistrationID,
		Address:        in.Address,
		OwnerID:        ownerID,
		Active:         true,
		CreatedAt:      s.clock.Now(),
	})
	if err != nil {
		return models.Shop{}, err
	}
	logger.Infof("Registered shop %s (%s) for owner %s", shop.ID, shop.RegistrationID, ownerID)
	return shop, nil
}

// Get returns one shop by id.
func (s *Shops) Get(ctx context.Context, id string) (models.Shop, error) {
	return s.store.GetShop(ctx, id)
}

// Details looks a shop up by its registration id.
func (s *Shops) Details(ctx context.Context, registrationID string) (models.Shop, error) {
	if registrationID == "" {
		return models.Shop{}, models.ErrMissingFields.WithMessage("please provide shopId")
	}
	return s.store.GetShopByRegistration(ctx, registrationID)
}

// List returns every shop.
func (s *Shops) List(ctx context.Context) ([]models.Shop, error) {
	return s.store.ListShops(ctx)
}

// ByOwner returns the shops owned by ownerID.
func (s *Shops) ByOwner(ctx context.Context, ownerID string) ([]models.Shop, error) {
	return s.store.ListShopsByOwner(ctx, ownerID)
}

// OwnedIDs returns the ids of the shops owned by ownerID.
func (s *Shops) OwnedIDs(ctx context.Context, ownerID string) ([]string, error) {
	shops, err := s.store.ListShopsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(shops))
	for _, shop := range shops {
		ids = append(ids, shop.ID)
	}
	return ids, nil
}

// Authorize checks that caller may act on shopID: admins always, shop owners
// only for their own shops.
func (s *Shops) Authorize(ctx context.Context, caller models.Caller, shopID string) error {
	shop, err := s.store.GetShop(ctx, shopID)
	if err != nil {
		return err
	}
	if caller.Role == models.RoleAdmin || shop.OwnerID == caller.UserID {
		return nil
	}
	return models.ErrForbidden.WithMessage("shop %s does not belong to you", shopID)
}

// Tickets lists the inventory of one shop.
func (s *Shops) Tickets(ctx context.Context, shopID string) ([]models.Ticket, error) {
	if _, err := s.store.GetShop(ctx, shopID); err != nil {
		return nil, err
	}
	return s.tickets.ListTickets(ctx, models.TicketFilter{ShopID: shopID})
}
