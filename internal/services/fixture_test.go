package services

import (
	"context"
	"testing"
	"time"

	"github.com/Prince-Singh-05/Lottery-POS/internal/clock"
	"github.com/Prince-Singh-05/Lottery-POS/internal/config"
	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage/memory"
)

var testStart = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

// seqSource replays a fixed sequence of draws, cycling when exhausted.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

type fixture struct {
	store     *memory.Store
	clock     *clock.Manual
	registry  *Registry
	planner   *Planner
	lifecycle *Lifecycle
	reporter  *Reporter
	shops     *Shops
}

func newFixture(t *testing.T, policy ClaimPolicy) *fixture {
	t.Helper()
	store := memory.New()
	clk := clock.NewManual(testStart)
	catalog := config.DefaultCatalog()
	gen := NewGenerator(catalog, &seqSource{vals: []float64{0.99, 0.5}})
	return &fixture{
		store:     store,
		clock:     clk,
		registry:  NewRegistry(store, catalog, clk, nil),
		planner:   NewPlanner(store, gen, clk, nil),
		lifecycle: NewLifecycle(store, clk, policy, nil),
		reporter:  NewReporter(store, clk, 100, nil),
		shops:     NewShops(store, store, clk),
	}
}

func (f *fixture) shop(t *testing.T, owner, regID string) models.Shop {
	t.Helper()
	shop, err := f.shops.Register(context.Background(), owner, RegisterShopInput{
		Name: "Shop " + regID, RegistrationID: regID, Address: "1 Main St",
	})
	if err != nil {
		t.Fatalf("Expected no error registering shop, but got %v", err)
	}
	return shop
}

func (f *fixture) dailyType(t *testing.T, start, end int64, digits int) models.TicketType {
	t.Helper()
	tt, err := f.registry.Create(context.Background(), CreateTicketTypeInput{
		Name:           "Daily Draws",
		Price:          models.MoneyFromUnits(10),
		StartRange:     start,
		EndRange:       end,
		Digits:         digits,
		ExpiryDuration: 1,
	})
	if err != nil {
		t.Fatalf("Expected no error creating ticket type, but got %v", err)
	}
	return tt
}

func (f *fixture) allocate(t *testing.T, tt models.TicketType, shopID string, start, end int64) models.TicketAllocation {
	t.Helper()
	alloc, _, err := f.planner.Plan(context.Background(), AllocateInput{
		TicketTypeID: tt.ID, ShopID: shopID, StartRange: start, EndRange: end,
	})
	if err != nil {
		t.Fatalf("Expected no error allocating %d-%d, but got %v", start, end, err)
	}
	return alloc
}

func (f *fixture) ticketByNumber(t *testing.T, shopID string, n int64) models.Ticket {
	t.Helper()
	tickets, err := f.lifecycle.List(context.Background(), models.TicketFilter{ShopID: shopID})
	if err != nil {
		t.Fatalf("Expected no error listing tickets, but got %v", err)
	}
	for _, tk := range tickets {
		if tk.TicketNumber == n {
			return tk
		}
	}
	t.Fatalf("ticket #%d not found for shop %s", n, shopID)
	return models.Ticket{}
}
