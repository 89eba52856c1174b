package services

import "github.com/Prince-Singh-05/Lottery-POS/internal/models"

// Events receives notifications about inventory and lifecycle activity.
// The metrics package implements it; NopEvents discards everything.
type Events interface {
	TicketTypeCreated(name string)
	TicketsGenerated(ticketType string, n int)
	TicketSold(price models.Money)
	TicketClaimed(amount models.Money)
	TicketsExpired(n int64)
}

// NopEvents is an Events that does nothing.
type NopEvents struct{}

func (NopEvents) TicketTypeCreated(string)    {}
func (NopEvents) TicketsGenerated(string, int) {}
func (NopEvents) TicketSold(models.Money)      {}
func (NopEvents) TicketClaimed(models.Money)   {}
func (NopEvents) TicketsExpired(int64)         {}

func eventsOrNop(e Events) Events {
	if e == nil {
		return NopEvents{}
	}
	return e
}
