// Package memory is an in-memory implementation of storage.Store. It is safe
// for concurrent use and backs tests and single-process deployments.
package memory

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
)

// Store keeps every record in maps guarded by one RWMutex. Every write that
// must be atomic with a check (range overlap, ticket uniqueness, status
// check-and-set) happens inside a single critical section.
type Store struct {
	mu          sync.RWMutex
	ticketTypes map[string]models.TicketType
	allocations map[string]models.TicketAllocation
	tickets     map[string]models.Ticket
	shops       map[string]models.Shop

	// uniqueness indexes: ticket type + number, shop + number
	byTypeNumber map[string]string
	byShopNumber map[string]string
	// allocation ids per ticket type, for overlap checks
	allocsByType map[string][]string
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		ticketTypes:  make(map[string]models.TicketType),
		allocations:  make(map[string]models.TicketAllocation),
		tickets:      make(map[string]models.Ticket),
		shops:        make(map[string]models.Shop),
		byTypeNumber: make(map[string]string),
		byShopNumber: make(map[string]string),
		allocsByType: make(map[string][]string),
	}
}

func numberKey(owner string, n int64) string {
	return owner + "#" + strconv.FormatInt(n, 10)
}

// --- TicketTypeStore ---------------------------------------------------------

func (s *Store) CreateTicketType(_ context.Context, tt models.TicketType) (models.TicketType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.ticketTypes {
		p, q := existing.NumberPattern, tt.NumberPattern
		if models.Overlaps(p.StartRange, p.EndRange, q.StartRange, q.EndRange) {
			return models.TicketType{}, models.ErrTicketTypeOverlap.WithMessage(
				"ticket ranges %d-%d overlap with existing type %s (%d-%d)",
				q.StartRange, q.EndRange, existing.Name, p.StartRange, p.EndRange)
		}
	}
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = time.Now().UTC()
	}
	s.ticketTypes[tt.ID] = tt
	return tt, nil
}

func (s *Store) GetTicketType(_ context.Context, id string) (models.TicketType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tt, ok := s.ticketTypes[id]
	if !ok {
		return models.TicketType{}, models.ErrTicketTypeNotFound
	}
	return tt, nil
}

func (s *Store) ListTicketTypes(_ context.Context) ([]models.TicketType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TicketType, 0, len(s.ticketTypes))
	for _, tt := range s.ticketTypes {
		out = append(out, tt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NumberPattern.StartRange < out[j].NumberPattern.StartRange
	})
	return out, nil
}

// --- AllocationStore ---------------------------------------------------------

func (s *Store) CreateAllocation(_ context.Context, alloc models.TicketAllocation, tickets []models.Ticket) (models.TicketAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.allocsByType[alloc.TicketTypeID] {
		existing := s.allocations[id]
		if existing.Active && models.Overlaps(existing.StartRange, existing.EndRange, alloc.StartRange, alloc.EndRange) {
			return models.TicketAllocation{}, models.ErrRangeConflict.WithMessage(
				"ticket ranges %d-%d overlap with existing allocation %d-%d",
				alloc.StartRange, alloc.EndRange, existing.StartRange, existing.EndRange)
		}
	}
	if alloc.ID == "" {
		alloc.ID = uuid.NewString()
	}
	if alloc.CreatedAt.IsZero() {
		alloc.CreatedAt = time.Now().UTC()
	}
	for i := range tickets {
		tickets[i].AllocationID = alloc.ID
	}
	if err := s.insertTicketsLocked(tickets); err != nil {
		return models.TicketAllocation{}, err
	}

	s.allocations[alloc.ID] = alloc
	s.allocsByType[alloc.TicketTypeID] = append(s.allocsByType[alloc.TicketTypeID], alloc.ID)
	return alloc, nil
}

func (s *Store) GetAllocation(_ context.Context, id string) (models.TicketAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alloc, ok := s.allocations[id]
	if !ok {
		return models.TicketAllocation{}, models.ErrAllocationNotFound
	}
	return s.withAllocType(alloc), nil
}

func (s *Store) ListAllocationsByShop(_ context.Context, shopID string) ([]models.TicketAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.TicketAllocation
	for _, alloc := range s.allocations {
		if alloc.ShopID == shopID {
			out = append(out, s.withAllocType(alloc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertTickets(_ context.Context, tickets []models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTicketsLocked(tickets)
}

// insertTicketsLocked validates the whole batch before writing anything.
func (s *Store) insertTicketsLocked(tickets []models.Ticket) error {
	batchType := make(map[string]bool, len(tickets))
	batchShop := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		tk, sk := numberKey(t.TicketTypeID, t.TicketNumber), numberKey(t.ShopID, t.TicketNumber)
		if _, dup := s.byTypeNumber[tk]; dup || batchType[tk] {
			return models.ErrDuplicateTicket.WithMessage("ticket number %d already exists for this ticket type", t.TicketNumber)
		}
		if _, dup := s.byShopNumber[sk]; dup || batchShop[sk] {
			return models.ErrDuplicateTicket.WithMessage("ticket number %d already exists for this shop", t.TicketNumber)
		}
		batchType[tk] = true
		batchShop[sk] = true
	}

	now := time.Now().UTC()
	for i := range tickets {
		if tickets[i].ID == "" {
			tickets[i].ID = uuid.NewString()
		}
		if tickets[i].CreatedAt.IsZero() {
			tickets[i].CreatedAt = now
		}
		tickets[i].UpdatedAt = tickets[i].CreatedAt
		t := tickets[i]
		t.TicketType = nil
		s.tickets[t.ID] = t
		s.byTypeNumber[numberKey(t.TicketTypeID, t.TicketNumber)] = t.ID
		s.byShopNumber[numberKey(t.ShopID, t.TicketNumber)] = t.ID
	}
	return nil
}

func (s *Store) CountTicketsInRange(_ context.Context, ticketTypeID string, start, end int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.tickets {
		if t.TicketTypeID == ticketTypeID && t.TicketNumber >= start && t.TicketNumber <= end {
			n++
		}
	}
	return n, nil
}

// --- TicketStore -------------------------------------------------------------

func (s *Store) GetTicket(_ context.Context, id string) (models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return models.Ticket{}, models.ErrTicketNotFound
	}
	return s.withTicketType(t), nil
}

func (s *Store) ListTickets(_ context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Ticket
	for _, t := range s.tickets {
		if filter.ShopID != "" && t.ShopID != filter.ShopID {
			continue
		}
		if filter.Holder != "" && !heldBy(t, filter.Holder) {
			continue
		}
		out = append(out, s.withTicketType(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TicketTypeID != out[j].TicketTypeID {
			return out[i].TicketTypeID < out[j].TicketTypeID
		}
		return out[i].TicketNumber < out[j].TicketNumber
	})
	return out, nil
}

func heldBy(t models.Ticket, userID string) bool {
	return (t.SoldTo != nil && *t.SoldTo == userID) || (t.ClaimedBy != nil && *t.ClaimedBy == userID)
}

func (s *Store) TransitionTicket(_ context.Context, tr models.TicketTransition) (models.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[tr.TicketID]
	if !ok {
		return models.Ticket{}, false, models.ErrTicketNotFound
	}
	if !slices.Contains(tr.From, t.Status) || (!tr.NotAfter.IsZero() && t.ExpiryDate.Before(tr.NotAfter)) {
		return s.withTicketType(t), false, nil
	}

	at := tr.At
	user := tr.UserID
	t.Status = tr.To
	t.UpdatedAt = at
	switch tr.To {
	case models.StatusSold:
		t.SoldTo, t.SoldAt = &user, &at
	case models.StatusClaimed:
		t.ClaimedBy, t.ClaimedAt = &user, &at
	}
	s.tickets[t.ID] = t
	return s.withTicketType(t), true, nil
}

func (s *Store) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tickets {
		if (t.Status == models.StatusAvailable || t.Status == models.StatusSold) && t.ExpiryDate.Before(now) {
			t.Status = models.StatusExpired
			t.UpdatedAt = now
			s.tickets[id] = t
			n++
		}
	}
	return n, nil
}

// --- ReportStore -------------------------------------------------------------

func (s *Store) AggregateActivity(_ context.Context, shopIDs []string, w models.ReportWindow) ([]models.ActivityGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type groupKey struct {
		shop   string
		status models.TicketStatus
	}
	shops := shopSet(shopIDs)
	groups := make(map[groupKey]*models.ActivityGroup)
	for _, t := range s.tickets {
		if !shops[t.ShopID] || !(w.Contains(t.SoldAt) || w.Contains(t.ClaimedAt)) {
			continue
		}
		k := groupKey{t.ShopID, t.Status}
		g, ok := groups[k]
		if !ok {
			g = &models.ActivityGroup{ShopID: t.ShopID, Status: t.Status}
			groups[k] = g
		}
		g.Count++
		g.PriceTotal += t.Price
		g.WinningTotal += t.WinningAmount
	}

	out := make([]models.ActivityGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].ShopID < out[j].ShopID
	})
	return out, nil
}

func (s *Store) ClaimedTotals(_ context.Context, shopIDs []string, w models.ReportWindow) ([]models.ClaimedTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shops := shopSet(shopIDs)
	totals := make(map[string]*models.ClaimedTotal)
	for _, t := range s.tickets {
		if !shops[t.ShopID] || t.Status != models.StatusClaimed || !w.Contains(t.ClaimedAt) {
			continue
		}
		ct, ok := totals[t.ShopID]
		if !ok {
			ct = &models.ClaimedTotal{ShopID: t.ShopID}
			totals[t.ShopID] = ct
		}
		ct.Count++
		ct.WinningTotal += t.WinningAmount
	}

	out := make([]models.ClaimedTotal, 0, len(totals))
	for _, ct := range totals {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out, nil
}

func (s *Store) ListClaimed(_ context.Context, shopIDs []string, w models.ReportWindow, limit int) ([]models.ClaimedTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shops := shopSet(shopIDs)
	var out []models.ClaimedTicket
	for _, t := range s.tickets {
		if !shops[t.ShopID] || t.Status != models.StatusClaimed || !w.Contains(t.ClaimedAt) {
			continue
		}
		ct := models.ClaimedTicket{
			ShopID:        t.ShopID,
			TicketNumber:  t.TicketNumber,
			WinningAmount: t.WinningAmount,
			ClaimedAt:     *t.ClaimedAt,
		}
		if t.ClaimedBy != nil {
			ct.ClaimedBy = *t.ClaimedBy
		}
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClaimedAt.Equal(out[j].ClaimedAt) {
			return out[i].ClaimedAt.After(out[j].ClaimedAt)
		}
		return out[i].TicketNumber < out[j].TicketNumber
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func shopSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// --- ShopStore ---------------------------------------------------------------

func (s *Store) CreateShop(_ context.Context, shop models.Shop) (models.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.shops {
		if existing.RegistrationID == shop.RegistrationID {
			return models.Shop{}, models.ErrShopExists
		}
	}
	if shop.ID == "" {
		shop.ID = uuid.NewString()
	}
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = time.Now().UTC()
	}
	s.shops[shop.ID] = shop
	return shop, nil
}

func (s *Store) GetShop(_ context.Context, id string) (models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shop, ok := s.shops[id]
	if !ok {
		return models.Shop{}, models.ErrShopNotFound
	}
	return shop, nil
}

func (s *Store) GetShopByRegistration(_ context.Context, registrationID string) (models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, shop := range s.shops {
		if shop.RegistrationID == registrationID {
			return shop, nil
		}
	}
	return models.Shop{}, models.ErrShopNotFound
}

func (s *Store) ListShops(_ context.Context) ([]models.Shop, error) {
	return s.filterShops(func(models.Shop) bool { return true }), nil
}

func (s *Store) ListShopsByOwner(_ context.Context, ownerID string) ([]models.Shop, error) {
	return s.filterShops(func(shop models.Shop) bool { return shop.OwnerID == ownerID }), nil
}

func (s *Store) filterShops(keep func(models.Shop) bool) []models.Shop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Shop
	for _, shop := range s.shops {
		if keep(shop) {
			out = append(out, shop)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// --- joins -------------------------------------------------------------------

func (s *Store) withTicketType(t models.Ticket) models.Ticket {
	if tt, ok := s.ticketTypes[t.TicketTypeID]; ok {
		t.TicketType = &tt
	}
	return t
}

func (s *Store) withAllocType(a models.TicketAllocation) models.TicketAllocation {
	if tt, ok := s.ticketTypes[a.TicketTypeID]; ok {
		a.TicketType = &tt
	}
	return a
}
