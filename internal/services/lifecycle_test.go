package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

func TestLifecycle_PurchaseAndClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ClaimStrict)
	shop := f.shop(t, "owner-1", "REG-1")
	tt := f.dailyType(t, 1, 5, 1)
	f.allocate(t, tt, shop.ID, 1, 5)
	ticket := f.ticketByNumber(t, shop.ID, 3)

	t.Run("Test purchase", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		sold, err := f.lifecycle.Purchase(ctx, ticket.ID, "cust-1")
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if sold.Status != models.StatusSold {
			t.Errorf("Expected status sold, but got %s", sold.Status)
		}
		if sold.SoldTo == nil || *sold.SoldTo != "cust-1" {
			t.Errorf("Expected soldTo cust-1, got %v", sold.SoldTo)
		}
		if sold.SoldAt == nil || !sold.SoldAt.Equal(f.clock.Now()) {
			t.Errorf("Expected soldAt %s, got %v", f.clock.Now(), sold.SoldAt)
		}
	})

	t.Run("Test second purchase fails", func(t *testing.T) {
		_, err := f.lifecycle.Purchase(ctx, ticket.ID, "cust-2")
		if !errors.Is(err, models.ErrInvalidState) {
			t.Fatalf("Expected invalid state, but got %v", err)
		}
	})

	t.Run("Test claim by another customer", func(t *testing.T) {
		_, err := f.lifecycle.Claim(ctx, ticket.ID, "cust-2")
		if !errors.Is(err, models.ErrNotTicketHolder) {
			t.Fatalf("Expected not ticket holder, but got %v", err)
		}
	})

	t.Run("Test claim by the buyer", func(t *testing.T) {
		claimed, err := f.lifecycle.Claim(ctx, ticket.ID, "cust-1")
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if claimed.Status != models.StatusClaimed {
			t.Errorf("Expected status claimed, but got %s", claimed.Status)
		}
		if claimed.ClaimedBy == nil || *claimed.ClaimedBy != "cust-1" {
			t.Errorf("Expected claimedBy cust-1, got %v", claimed.ClaimedBy)
		}
	})

	t.Run("Test claimed is terminal", func(t *testing.T) {
		if _, err := f.lifecycle.Claim(ctx, ticket.ID, "cust-1"); !errors.Is(err, models.ErrInvalidState) {
			t.Errorf("Expected invalid state on second claim, but got %v", err)
		}
		if _, err := f.lifecycle.Purchase(ctx, ticket.ID, "cust-1"); !errors.Is(err, models.ErrInvalidState) {
			t.Errorf("Expected invalid state on purchase, but got %v", err)
		}
	})

	t.Run("Test strict policy rejects claim of unsold ticket", func(t *testing.T) {
		other := f.ticketByNumber(t, shop.ID, 4)
		if _, err := f.lifecycle.Claim(ctx, other.ID, "cust-1"); !errors.Is(err, models.ErrInvalidState) {
			t.Errorf("Expected invalid state, but got %v", err)
		}
	})

	t.Run("Test unknown ticket", func(t *testing.T) {
		if _, err := f.lifecycle.Purchase(ctx, "missing", "cust-1"); !errors.Is(err, models.ErrTicketNotFound) {
			t.Errorf("Expected not found, but got %v", err)
		}
		if _, err := f.lifecycle.Purchase(ctx, "", "cust-1"); !errors.Is(err, models.ErrMissingFields) {
			t.Errorf("Expected missing fields, but got %v", err)
		}
	})

	t.Run("Test customer tickets", func(t *testing.T) {
		mine, err := f.lifecycle.CustomerTickets(ctx, "cust-1")
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(mine) != 1 || mine[0].ID != ticket.ID {
			t.Errorf("Expected exactly ticket #3, got %d tickets", len(mine))
		}
	})
}

func TestLifecycle_LenientClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ClaimLenient)
	shop := f.shop(t, "owner-1", "REG-1")
	tt := f.dailyType(t, 1, 5, 1)
	f.allocate(t, tt, shop.ID, 1, 5)

	unsold := f.ticketByNumber(t, shop.ID, 1)
	claimed, err := f.lifecycle.Claim(ctx, unsold.ID, "walk-in")
	if err != nil {
		t.Fatalf("Expected lenient claim of an available ticket, but got %v", err)
	}
	if claimed.Status != models.StatusClaimed {
		t.Errorf("Expected claimed, but got %s", claimed.Status)
	}

	sold := f.ticketByNumber(t, shop.ID, 2)
	if _, err := f.lifecycle.Purchase(ctx, sold.ID, "cust-1"); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if _, err := f.lifecycle.Claim(ctx, sold.ID, "someone-else"); err != nil {
		t.Errorf("Expected lenient claim by another user, but got %v", err)
	}
}

func TestLifecycle_ConcurrentPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ClaimStrict)
	shop := f.shop(t, "owner-1", "REG-1")
	tt := f.dailyType(t, 1, 5, 1)
	f.allocate(t, tt, shop.ID, 1, 5)
	ticket := f.ticketByNumber(t, shop.ID, 2)

	const buyers = 50
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.lifecycle.Purchase(ctx, ticket.ID, "cust")
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case !errors.Is(err, models.ErrInvalidState):
			t.Errorf("Expected invalid state for losing buyers, but got %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("Expected exactly one successful purchase, but got %d", success)
	}
}

func TestLifecycle_Expiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ClaimStrict)
	shop := f.shop(t, "owner-1", "REG-1")
	tt := f.dailyType(t, 1, 5, 1)
	f.allocate(t, tt, shop.ID, 1, 5)

	available := f.ticketByNumber(t, shop.ID, 1)
	sold := f.ticketByNumber(t, shop.ID, 2)
	if _, err := f.lifecycle.Purchase(ctx, sold.ID, "cust-1"); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	t.Run("Test expiry instant itself is still valid", func(t *testing.T) {
		f.clock.Set(available.ExpiryDate)
		edge := f.ticketByNumber(t, shop.ID, 5)
		if _, err := f.lifecycle.Purchase(ctx, edge.ID, "cust-3"); err != nil {
			t.Fatalf("Expected purchase at the expiry instant to succeed, but got %v", err)
		}
	})

	f.clock.Set(available.ExpiryDate.Add(time.Second))

	t.Run("Test purchase after expiry", func(t *testing.T) {
		_, err := f.lifecycle.Purchase(ctx, available.ID, "cust-2")
		if !errors.Is(err, models.ErrExpired) {
			t.Fatalf("Expected expired, but got %v", err)
		}
		got, _ := f.lifecycle.Get(ctx, available.ID)
		if got.Status != models.StatusExpired {
			t.Errorf("Expected status expired to be persisted, but got %s", got.Status)
		}
		if _, err := f.lifecycle.Purchase(ctx, available.ID, "cust-2"); !errors.Is(err, models.ErrExpired) {
			t.Errorf("Expected expired on retry, but got %v", err)
		}
	})

	t.Run("Test claim after expiry", func(t *testing.T) {
		_, err := f.lifecycle.Claim(ctx, sold.ID, "cust-1")
		if !errors.Is(err, models.ErrExpired) {
			t.Fatalf("Expected expired, but got %v", err)
		}
		got, _ := f.lifecycle.Get(ctx, sold.ID)
		if got.Status != models.StatusExpired {
			t.Errorf("Expected status expired to be persisted, but got %s", got.Status)
		}
	})
}

func TestLifecycle_InvalidTicketNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ClaimStrict)
	shop := f.shop(t, "owner-1", "REG-1")
	tt := f.dailyType(t, 10, 99, 2)

	// Inventory inserted behind the planner's back, outside the type range.
	stray := models.Ticket{
		TicketNumber: 7, TicketTypeID: tt.ID, ShopID: shop.ID, Status: models.StatusAvailable,
		Price: tt.Price, ExpiryDate: testStart.Add(time.Hour),
	}
	tickets := []models.Ticket{stray}
	if err := f.store.InsertTickets(ctx, tickets); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	_, err := f.lifecycle.Purchase(ctx, tickets[0].ID, "cust-1")
	if !errors.Is(err, models.ErrInvalidTicketNumber) {
		t.Fatalf("Expected invalid ticket number, but got %v", err)
	}
}
