package models

import "time"

// ActivityGroup is one row of the store-side weekly aggregation: the tickets
// of one shop in one status whose sale or claim fell inside the window.
type ActivityGroup struct {
	ShopID       string       `db:"shop_id"`
	Status       TicketStatus `db:"status"`
	Count        int64        `db:"ticket_count"`
	PriceTotal   Money        `db:"price_total"`
	WinningTotal Money        `db:"winning_total"`
}

// ClaimedTotal is the per-shop count and payout of tickets claimed in the window.
type ClaimedTotal struct {
	ShopID       string `db:"shop_id"`
	Count        int64  `db:"claimed_count"`
	WinningTotal Money  `db:"winning_total"`
}

// ClaimedTicket is one row of the claimed-ticket detail list.
type ClaimedTicket struct {
	ShopID        string    `json:"-" db:"shop_id"`
	TicketNumber  int64     `json:"ticketNumber" db:"ticket_number"`
	WinningAmount Money     `json:"winningAmount" db:"winning_amount_minor"`
	ClaimedAt     time.Time `json:"claimedAt" db:"claimed_at"`
	ClaimedBy     string    `json:"claimedBy" db:"claimed_by"`
}

// ReportWindow is the closed interval a report covers.
type ReportWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the window.
func (w ReportWindow) Contains(t *time.Time) bool {
	return t != nil && !t.Before(w.Start) && !t.After(w.End)
}

// WeeklyReport is the aggregate financial view over a set of shops.
type WeeklyReport struct {
	Period         ReportWindow  `json:"period"`
	Summary        ReportSummary `json:"summary"`
	TicketStats    []StatusStat  `json:"ticketStats"`
	ClaimedTickets ClaimedReport `json:"claimedTickets"`
	ShopStats      []ShopStat    `json:"shopStats"`
}

// ReportSummary totals shopStats across all shops.
type ReportSummary struct {
	TotalRevenue Money `json:"totalRevenue"`
	TotalPayouts Money `json:"totalPayouts"`
	NetProfit    Money `json:"netProfit"`
}

// StatusStat groups window activity by ticket status.
type StatusStat struct {
	Status      TicketStatus     `json:"_id"`
	TotalCount  int64            `json:"totalCount"`
	TotalAmount Money            `json:"totalAmount"`
	Shops       []StatusShopStat `json:"shops"`
}

// StatusShopStat is the per-shop slice of a StatusStat.
type StatusShopStat struct {
	ShopID      string `json:"shop"`
	Count       int64  `json:"count"`
	TotalAmount Money  `json:"totalAmount"`
}

// ClaimedReport summarizes tickets claimed inside the window.
type ClaimedReport struct {
	Total       int64             `json:"total"`
	TotalAmount Money             `json:"totalAmount"`
	ByShop      []ShopClaimReport `json:"byShop"`
	// Truncated is set when the detail lists were cut at the configured limit.
	// Totals are always complete.
	Truncated bool `json:"truncated"`
}

// ShopClaimReport lists one shop's claims.
type ShopClaimReport struct {
	ShopID             string          `json:"shop"`
	TotalClaimed       int64           `json:"totalClaimed"`
	TotalWinningAmount Money           `json:"totalWinningAmount"`
	ClaimedTickets     []ClaimedTicket `json:"claimedTickets"`
}

// ShopStat is one shop's revenue, payouts and profit for the window.
type ShopStat struct {
	ShopID       string `json:"shopId"`
	TotalTickets int64  `json:"totalTickets"`
	Revenue      Money  `json:"revenue"`
	Payouts      Money  `json:"payouts"`
	NetProfit    Money  `json:"netProfit"`
}
