package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/logger"

	"github.com/Prince-Singh-05/Lottery-POS/internal/clock"
	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
)

// AllocateInput requests a sub-range of a ticket type for one shop.
type AllocateInput struct {
	TicketTypeID string `json:"ticketTypeId"`
	ShopID       string `json:"shopId"`
	StartRange   int64  `json:"startRange"`
	EndRange     int64  `json:"endRange"`
}

// BulkResult is the outcome of one CSV row of BulkPlan.
type BulkResult struct {
	Row          int           `json:"row"`
	Input        AllocateInput `json:"input"`
	AllocationID string        `json:"allocationId,omitempty"`
	TicketCount  int           `json:"ticketCount,omitempty"`
	Code         string        `json:"code,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// PlannerStore is the persistence the Planner needs.
type PlannerStore interface {
	storage.TicketTypeStore
	storage.AllocationStore
	storage.ShopStore
}

// Planner carves ticket type ranges into shop allocations and materializes
// their inventory.
type Planner struct {
	store         PlannerStore
	gen           *Generator
	clock         clock.Clock
	events        Events
	maxAllocation int64
}

// DefaultMaxAllocation caps the number of tickets one allocation may generate.
const DefaultMaxAllocation int64 = 1_000_000

// NewPlanner creates a Planner.
func NewPlanner(store PlannerStore, gen *Generator, clk clock.Clock, events Events) *Planner {
	return &Planner{
		store:         store,
		gen:           gen,
		clock:         clk,
		events:        eventsOrNop(events),
		maxAllocation: DefaultMaxAllocation,
	}
}

// WithMaxAllocation sets the largest allocation, in tickets, Plan and Repair
// accept. Values below one keep the current limit.
func (p *Planner) WithMaxAllocation(n int64) *Planner {
	if n > 0 {
		p.maxAllocation = n
	}
	return p
}

func (p *Planner) checkSize(start, end int64) error {
	// end >= start >= 0 here, so the difference cannot overflow.
	if end-start >= p.maxAllocation {
		return models.ErrInvalidRange.WithMessage(
			"allocation %d-%d exceeds the maximum of %d tickets", start, end, p.maxAllocation)
	}
	return nil
}

// Plan validates the requested range and stores the allocation together with
// its generated tickets. It returns the allocation and the number of tickets.
func (p *Planner) Plan(ctx context.Context, in AllocateInput) (models.TicketAllocation, int, error) {
	if in.TicketTypeID == "" || in.ShopID == "" {
		return models.TicketAllocation{}, 0, models.ErrMissingFields
	}

	tt, err := p.store.GetTicketType(ctx, in.TicketTypeID)
	if err != nil {
		return models.TicketAllocation{}, 0, err
	}
	if _, err := p.store.GetShop(ctx, in.ShopID); err != nil {
		return models.TicketAllocation{}, 0, err
	}

	if in.StartRange > in.EndRange || !tt.NumberPattern.Contains(in.StartRange) || !tt.NumberPattern.Contains(in.EndRange) {
		return models.TicketAllocation{}, 0, models.ErrInvalidRange.WithMessage(
			"invalid ticket ranges %d-%d for type range %d-%d",
			in.StartRange, in.EndRange, tt.NumberPattern.StartRange, tt.NumberPattern.EndRange)
	}
	if err := p.checkSize(in.StartRange, in.EndRange); err != nil {
		return models.TicketAllocation{}, 0, err
	}

	now := p.clock.Now()
	alloc := models.TicketAllocation{
		TicketTypeID: tt.ID,
		ShopID:       in.ShopID,
		StartRange:   in.StartRange,
		EndRange:     in.EndRange,
		Active:       true,
		CreatedAt:    now,
	}
	tickets := p.gen.Build(alloc, tt, now)

	alloc, err = p.store.CreateAllocation(ctx, alloc, tickets)
	if err != nil {
		return models.TicketAllocation{}, 0, err
	}
	alloc.TicketType = &tt

	p.events.TicketsGenerated(tt.Name, len(tickets))
	logger.Infof("Allocated %s %d-%d to shop %s (%d tickets)", tt.Name, alloc.StartRange, alloc.EndRange, alloc.ShopID, len(tickets))
	return alloc, len(tickets), nil
}

// Repair regenerates inventory for an allocation that has none. It fails with
// a conflict when any ticket already exists inside the allocation's range.
func (p *Planner) Repair(ctx context.Context, allocationID string) (models.TicketAllocation, int, error) {
	alloc, err := p.store.GetAllocation(ctx, allocationID)
	if err != nil {
		return models.TicketAllocation{}, 0, err
	}
	if !alloc.Active {
		return models.TicketAllocation{}, 0, models.ErrInvalidState.WithMessage("allocation %s is not active", alloc.ID)
	}
	if err := p.checkSize(alloc.StartRange, alloc.EndRange); err != nil {
		return models.TicketAllocation{}, 0, err
	}
	tt, err := p.store.GetTicketType(ctx, alloc.TicketTypeID)
	if err != nil {
		return models.TicketAllocation{}, 0, err
	}

	n, err := p.store.CountTicketsInRange(ctx, alloc.TicketTypeID, alloc.StartRange, alloc.EndRange)
	if err != nil {
		return models.TicketAllocation{}, 0, err
	}
	if n > 0 {
		return models.TicketAllocation{}, 0, models.ErrConflict.WithMessage(
			"allocation %s already has %d tickets", alloc.ID, n)
	}

	tickets := p.gen.Build(alloc, tt, p.clock.Now())
	if err := p.store.InsertTickets(ctx, tickets); err != nil {
		return models.TicketAllocation{}, 0, err
	}
	alloc.TicketType = &tt

	p.events.TicketsGenerated(tt.Name, len(tickets))
	logger.Warningf("Repaired allocation %s: regenerated %d tickets", alloc.ID, len(tickets))
	return alloc, len(tickets), nil
}

// ListByShop returns the shop's allocations, newest first.
func (p *Planner) ListByShop(ctx context.Context, shopID string) ([]models.TicketAllocation, error) {
	if shopID == "" {
		return nil, models.ErrMissingFields.WithMessage("please provide shopId")
	}
	if _, err := p.store.GetShop(ctx, shopID); err != nil {
		return nil, err
	}
	return p.store.ListAllocationsByShop(ctx, shopID)
}

// BulkPlan plans one allocation per CSV row of ticketTypeId,shopId,start,end.
// An optional header row is skipped. Malformed rows are logged and skipped;
// every other row reports its own outcome. A read error aborts the upload
// but allocations already made stay in place.
func (p *Planner) BulkPlan(ctx context.Context, r io.Reader) ([]BulkResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var results []BulkResult
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return results, models.ErrValidation.WithMessage("error reading CSV: %v", err)
		}
		row++

		if row == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "ticketTypeId") {
			continue
		}
		in, err := parseAllocationRecord(record)
		if err != nil {
			logger.Infof("Skipping malformed allocation CSV record %d: %v (%v)", row, record, err)
			continue
		}

		res := BulkResult{Row: row, Input: in}
		alloc, n, err := p.Plan(ctx, in)
		if err != nil {
			res.Error = err.Error()
			var e *models.Error
			if errors.As(err, &e) {
				res.Code = e.Code
			}
		} else {
			res.AllocationID = alloc.ID
			res.TicketCount = n
		}
		results = append(results, res)
	}
	return results, nil
}

func parseAllocationRecord(record []string) (AllocateInput, error) {
	if len(record) != 4 {
		return AllocateInput{}, fmt.Errorf("expected 4 fields, got %d", len(record))
	}
	start, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
	if err != nil {
		return AllocateInput{}, fmt.Errorf("start: %w", err)
	}
	end, err := strconv.ParseInt(strings.TrimSpace(record[3]), 10, 64)
	if err != nil {
		return AllocateInput{}, fmt.Errorf("end: %w", err)
	}
	return AllocateInput{
		TicketTypeID: strings.TrimSpace(record[0]),
		ShopID:       strings.TrimSpace(record[1]),
		StartRange:   start,
		EndRange:     end,
	}, nil
}
