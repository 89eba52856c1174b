package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

func seedType(t *testing.T, s *Store, start, end int64) models.TicketType {
	t.Helper()
	tt, err := s.CreateTicketType(context.Background(), models.TicketType{
		Name:           "Daily",
		NumberPattern:  models.NumberPattern{StartRange: start, EndRange: end, Digits: models.DigitWidth(end)},
		Price:          models.MoneyFromUnits(10),
		ExpiryDuration: 7,
		Active:         true,
	})
	require.NoError(t, err)
	return tt
}

func ticketsFor(tt models.TicketType, shopID string, start, end int64, expiry time.Time) []models.Ticket {
	var out []models.Ticket
	for n := start; n <= end; n++ {
		out = append(out, models.Ticket{
			TicketNumber: n,
			TicketTypeID: tt.ID,
			ShopID:       shopID,
			Status:       models.StatusAvailable,
			Price:        tt.Price,
			ExpiryDate:   expiry,
		})
	}
	return out
}

func TestTicketTypeOverlap(t *testing.T) {
	s := New()
	seedType(t, s, 1000, 1999)

	for _, tc := range []struct {
		name       string
		start, end int64
		wantErr    bool
	}{
		{"inside", 1500, 1600, true},
		{"touching end", 1999, 2999, true},
		{"touching start", 100, 1000, true},
		{"disjoint", 2000, 2999, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateTicketType(context.Background(), models.TicketType{
				Name:          "Weekly",
				NumberPattern: models.NumberPattern{StartRange: tc.start, EndRange: tc.end, Digits: 4},
			})
			if tc.wantErr {
				assert.ErrorIs(t, err, models.ErrTicketTypeOverlap)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateAllocationIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	tt := seedType(t, s, 1000, 1999)
	expiry := time.Now().Add(time.Hour)

	alloc, err := s.CreateAllocation(ctx, models.TicketAllocation{
		TicketTypeID: tt.ID, ShopID: "shop-a", StartRange: 1000, EndRange: 1009, Active: true,
	}, ticketsFor(tt, "shop-a", 1000, 1009, expiry))
	require.NoError(t, err)

	n, err := s.CountTicketsInRange(ctx, tt.ID, 1000, 1009)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	_, err = s.CreateAllocation(ctx, models.TicketAllocation{
		TicketTypeID: tt.ID, ShopID: "shop-b", StartRange: 1005, EndRange: 1020, Active: true,
	}, ticketsFor(tt, "shop-b", 1005, 1020, expiry))
	assert.ErrorIs(t, err, models.ErrRangeConflict)

	// A batch colliding on one number must leave nothing behind.
	dup := ticketsFor(tt, "shop-a", 1100, 1105, expiry)
	dup = append(dup, dup[0])
	_, err = s.CreateAllocation(ctx, models.TicketAllocation{
		TicketTypeID: tt.ID, ShopID: "shop-a", StartRange: 1100, EndRange: 1105, Active: true,
	}, dup)
	assert.ErrorIs(t, err, models.ErrDuplicateTicket)

	n, err = s.CountTicketsInRange(ctx, tt.ID, 1100, 1105)
	require.NoError(t, err)
	assert.Zero(t, n)

	allocs, err := s.ListAllocationsByShop(ctx, "shop-a")
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, alloc.ID, allocs[0].ID)
	require.NotNil(t, allocs[0].TicketType)
	assert.Equal(t, "Daily", allocs[0].TicketType.Name)
}

func TestTransitionTicketConcurrentPurchase(t *testing.T) {
	ctx := context.Background()
	s := New()
	tt := seedType(t, s, 1000, 1999)
	tickets := ticketsFor(tt, "shop-a", 1000, 1000, time.Now().Add(time.Hour))
	_, err := s.CreateAllocation(ctx, models.TicketAllocation{
		TicketTypeID: tt.ID, ShopID: "shop-a", StartRange: 1000, EndRange: 1000, Active: true,
	}, tickets)
	require.NoError(t, err)
	id := tickets[0].ID
	require.NotEmpty(t, id)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, applied, err := s.TransitionTicket(ctx, models.TicketTransition{
				TicketID: id,
				From:     []models.TicketStatus{models.StatusAvailable},
				To:       models.StatusSold,
				At:       time.Now(),
				UserID:   "cust",
			})
			if err == nil && applied {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	got, err := s.GetTicket(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSold, got.Status)
	require.NotNil(t, got.TicketType)
}

func TestTransitionTicketRespectsNotAfter(t *testing.T) {
	ctx := context.Background()
	s := New()
	tt := seedType(t, s, 1000, 1999)
	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tickets := ticketsFor(tt, "shop-a", 1000, 1000, expiry)
	_, err := s.CreateAllocation(ctx, models.TicketAllocation{
		TicketTypeID: tt.ID, ShopID: "shop-a", StartRange: 1000, EndRange: 1000, Active: true,
	}, tickets)
	require.NoError(t, err)

	got, applied, err := s.TransitionTicket(ctx, models.TicketTransition{
		TicketID: tickets[0].ID,
		From:     []models.TicketStatus{models.StatusAvailable},
		To:       models.StatusSold,
		At:       expiry.Add(time.Second),
		UserID:   "cust",
		NotAfter: expiry.Add(time.Second),
	})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, models.StatusAvailable, got.Status)

	_, _, err = s.TransitionTicket(ctx, models.TicketTransition{TicketID: "nope"})
	assert.ErrorIs(t, err, models.ErrTicketNotFound)
}

func TestExpireDue(t *testing.T) {
	ctx := context.Background()
	s := New()
	tt := seedType(t, s, 1000, 1999)
	past := time.Now().Add(-time.Hour)
	tickets := ticketsFor(tt, "shop-a", 1000, 1002, past)
	_, err := s.CreateAllocation(ctx, models.TicketAllocation{
		TicketTypeID: tt.ID, ShopID: "shop-a", StartRange: 1000, EndRange: 1002, Active: true,
	}, tickets)
	require.NoError(t, err)

	_, applied, err := s.TransitionTicket(ctx, models.TicketTransition{
		TicketID: tickets[2].ID,
		From:     []models.TicketStatus{models.StatusAvailable},
		To:       models.StatusClaimed,
		At:       time.Now(),
		UserID:   "cust",
	})
	require.NoError(t, err)
	require.True(t, applied)

	n, err := s.ExpireDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	claimed, err := s.GetTicket(ctx, tickets[2].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClaimed, claimed.Status)

	n, err = s.ExpireDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReportAggregation(t *testing.T) {
	ctx := context.Background()
	s := New()
	tt := seedType(t, s, 1000, 1999)
	expiry := time.Now().Add(24 * time.Hour)
	tickets := ticketsFor(tt, "shop-a", 1000, 1003, expiry)
	tickets[0].WinningAmount = models.MoneyFromUnits(5)
	tickets[1].WinningAmount = models.MoneyFromUnits(25)
	_, err := s.CreateAllocation(ctx, models.TicketAllocation{
		TicketTypeID: tt.ID, ShopID: "shop-a", StartRange: 1000, EndRange: 1003, Active: true,
	}, tickets)
	require.NoError(t, err)

	now := time.Now()
	for i, to := range []models.TicketStatus{models.StatusSold, models.StatusClaimed} {
		_, applied, err := s.TransitionTicket(ctx, models.TicketTransition{
			TicketID: tickets[i].ID,
			From:     []models.TicketStatus{models.StatusAvailable},
			To:       to,
			At:       now,
			UserID:   "cust",
		})
		require.NoError(t, err)
		require.True(t, applied)
	}

	w := models.ReportWindow{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}
	groups, err := s.AggregateActivity(ctx, []string{"shop-a", "shop-b"}, w)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, models.StatusClaimed, groups[0].Status)
	assert.Equal(t, models.MoneyFromUnits(25), groups[0].WinningTotal)
	assert.Equal(t, models.StatusSold, groups[1].Status)
	assert.Equal(t, models.MoneyFromUnits(10), groups[1].PriceTotal)

	totals, err := s.ClaimedTotals(ctx, []string{"shop-a"}, w)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(1), totals[0].Count)

	claimed, err := s.ListClaimed(ctx, []string{"shop-a"}, w, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, int64(1001), claimed[0].TicketNumber)
	assert.Equal(t, "cust", claimed[0].ClaimedBy)

	outside := models.ReportWindow{Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)}
	groups, err = s.AggregateActivity(ctx, []string{"shop-a"}, outside)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestShops(t *testing.T) {
	ctx := context.Background()
	s := New()

	shop, err := s.CreateShop(ctx, models.Shop{Name: "Corner", RegistrationID: "REG-1", OwnerID: "o1", Active: true})
	require.NoError(t, err)

	_, err = s.CreateShop(ctx, models.Shop{Name: "Copy", RegistrationID: "REG-1", OwnerID: "o2"})
	assert.ErrorIs(t, err, models.ErrShopExists)

	got, err := s.GetShopByRegistration(ctx, "REG-1")
	require.NoError(t, err)
	assert.Equal(t, shop.ID, got.ID)

	owned, err := s.ListShopsByOwner(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	_, err = s.GetShop(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrShopNotFound)
}
