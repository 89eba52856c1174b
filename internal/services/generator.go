package services

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Prince-Singh-05/Lottery-POS/internal/config"
	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

// RandomSource yields uniform values in [0,1). *rand.Rand from math/rand/v2
// satisfies it.
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

var (
	ten = decimal.NewFromInt(10)
	two = decimal.NewFromInt(2)
)

// Generator materializes the inventory of an allocation.
type Generator struct {
	catalog config.Catalog

	// seeded sources are not safe for concurrent use
	mu  sync.Mutex
	rng RandomSource
}

// NewGenerator creates a Generator. A nil rng uses the process-wide source.
func NewGenerator(catalog config.Catalog, rng RandomSource) *Generator {
	if rng == nil {
		rng = globalSource{}
	}
	return &Generator{catalog: catalog, rng: rng}
}

// Build returns one available ticket per number of alloc. All tickets share
// the same expiry instant, now plus the type's expiry duration.
func (g *Generator) Build(alloc models.TicketAllocation, tt models.TicketType, now time.Time) []models.Ticket {
	expiry := now.Add(time.Duration(tt.ExpiryDuration) * 24 * time.Hour)
	bias := g.catalog.Bias(tt.Name)

	g.mu.Lock()
	defer g.mu.Unlock()

	size := alloc.Size()
	if size < 0 {
		size = 0
	}
	tickets := make([]models.Ticket, 0, size)
	if alloc.StartRange > alloc.EndRange {
		return tickets
	}
	// The loop exits on equality so a range ending at MaxInt64 cannot wrap.
	for n := alloc.StartRange; ; n++ {
		tickets = append(tickets, models.Ticket{
			TicketNumber:  n,
			TicketTypeID:  tt.ID,
			ShopID:        alloc.ShopID,
			AllocationID:  alloc.ID,
			Status:        models.StatusAvailable,
			Price:         tt.Price,
			WinningAmount: g.payoutLocked(tt.Price, bias),
			ExpiryDate:    expiry,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if n == alloc.EndRange {
			break
		}
	}
	return tickets
}

// payoutLocked draws a winning amount. With probability bias the ticket lands
// in the loss tier [0, price/10), otherwise in [price/10, price/10 + 2*price).
// Amounts are floored to whole currency units.
func (g *Generator) payoutLocked(price models.Money, bias float64) models.Money {
	p := price.Decimal()
	tenth := p.Div(ten)

	var amount decimal.Decimal
	if g.rng.Float64() < bias {
		amount = decimal.NewFromFloat(g.rng.Float64()).Mul(tenth)
	} else {
		amount = decimal.NewFromFloat(g.rng.Float64()).Mul(p.Mul(two)).Add(tenth)
	}
	return models.MoneyFromUnits(amount.Floor().IntPart())
}
