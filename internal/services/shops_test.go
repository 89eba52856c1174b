package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

func TestShops(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ClaimStrict)
	shop := f.shop(t, "owner-1", "REG-1")

	t.Run("Test duplicate registration id", func(t *testing.T) {
		_, err := f.shops.Register(ctx, "owner-2", RegisterShopInput{Name: "Other", RegistrationID: "REG-1", Address: "2 High St"})
		if !errors.Is(err, models.ErrShopExists) {
			t.Fatalf("Expected shop exists, but got %v", err)
		}
	})

	t.Run("Test missing fields", func(t *testing.T) {
		_, err := f.shops.Register(ctx, "owner-1", RegisterShopInput{Name: "No address", RegistrationID: "REG-9"})
		if !errors.Is(err, models.ErrMissingFields) {
			t.Fatalf("Expected missing fields, but got %v", err)
		}
	})

	t.Run("Test details by registration id", func(t *testing.T) {
		got, err := f.shops.Details(ctx, "REG-1")
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if got.ID != shop.ID || got.OwnerID != "owner-1" {
			t.Errorf("Unexpected shop %+v", got)
		}
		if _, err := f.shops.Details(ctx, "REG-404"); !errors.Is(err, models.ErrShopNotFound) {
			t.Errorf("Expected not found, but got %v", err)
		}
	})

	t.Run("Test owned shops", func(t *testing.T) {
		f.shop(t, "owner-2", "REG-2")
		ids, err := f.shops.OwnedIDs(ctx, "owner-1")
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(ids) != 1 || ids[0] != shop.ID {
			t.Errorf("Expected only %s, got %v", shop.ID, ids)
		}
		all, _ := f.shops.List(ctx)
		if len(all) != 2 {
			t.Errorf("Expected 2 shops, got %d", len(all))
		}
	})

	t.Run("Test authorize", func(t *testing.T) {
		if err := f.shops.Authorize(ctx, models.Caller{UserID: "owner-1", Role: models.RoleShopOwner}, shop.ID); err != nil {
			t.Errorf("Expected owner to be authorized, but got %v", err)
		}
		if err := f.shops.Authorize(ctx, models.Caller{UserID: "root", Role: models.RoleAdmin}, shop.ID); err != nil {
			t.Errorf("Expected admin to be authorized, but got %v", err)
		}
		err := f.shops.Authorize(ctx, models.Caller{UserID: "owner-2", Role: models.RoleShopOwner}, shop.ID)
		if !errors.Is(err, models.ErrForbidden) {
			t.Errorf("Expected forbidden, but got %v", err)
		}
	})

	t.Run("Test shop tickets", func(t *testing.T) {
		tt := f.dailyType(t, 1, 5, 1)
		f.allocate(t, tt, shop.ID, 2, 4)
		tickets, err := f.shops.Tickets(ctx, shop.ID)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(tickets) != 3 {
			t.Errorf("Expected 3 tickets, got %d", len(tickets))
		}
		if _, err := f.shops.Tickets(ctx, "missing"); !errors.Is(err, models.ErrShopNotFound) {
			t.Errorf("Expected not found, but got %v", err)
		}
	})
}
