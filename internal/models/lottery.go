package models

import (
	"strconv"
	"time"
)

// TicketStatus is the lifecycle state of a single ticket.
type TicketStatus string

const (
	StatusAvailable TicketStatus = "available"
	StatusSold      TicketStatus = "sold"
	StatusWinning   TicketStatus = "winning" // declared for compatibility; no flow produces it
	StatusClaimed   TicketStatus = "claimed"
	StatusExpired   TicketStatus = "expired"
)

// Terminal reports whether no further transition is allowed out of the status.
func (s TicketStatus) Terminal() bool {
	return s == StatusClaimed || s == StatusExpired
}

// Valid reports whether s is one of the declared statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusSold, StatusWinning, StatusClaimed, StatusExpired:
		return true
	}
	return false
}

// Role is the caller role resolved by the auth layer.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleShopOwner Role = "shop_owner"
	RoleCustomer  Role = "customer"
)

// NumberPattern is the numeric range covered by a ticket type.
type NumberPattern struct {
	StartRange int64 `json:"startRange" yaml:"startRange"`
	EndRange   int64 `json:"endRange" yaml:"endRange"`
	Digits     int   `json:"digits" yaml:"digits"`
}

// Contains reports whether n lies inside the pattern's inclusive range.
func (p NumberPattern) Contains(n int64) bool {
	return n >= p.StartRange && n <= p.EndRange
}

// Overlaps reports whether the inclusive ranges [a,b] and [c,d] intersect.
func Overlaps(a, b, c, d int64) bool {
	return a <= d && c <= b
}

// DigitWidth returns the number of decimal digits of a non-negative n.
func DigitWidth(n int64) int {
	if n < 0 {
		n = -n
	}
	return len(strconv.FormatInt(n, 10))
}

// TicketType defines a product: a draw name, a number range, a price and an expiry rule.
type TicketType struct {
	ID             string        `json:"id" db:"id"`
	Name           string        `json:"name" db:"name"`
	NumberPattern  NumberPattern `json:"numberPattern" db:"-"`
	Price          Money         `json:"price" db:"price_minor"`
	ExpiryDuration int           `json:"expiryDuration" db:"expiry_days"` // days
	Active         bool          `json:"active" db:"active"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
}

// TicketAllocation is a sub-range of a ticket type reserved for one shop.
type TicketAllocation struct {
	ID           string    `json:"id" db:"id"`
	TicketTypeID string    `json:"ticketTypeId" db:"ticket_type_id"`
	ShopID       string    `json:"shopId" db:"shop_id"`
	StartRange   int64     `json:"startRange" db:"start_range"`
	EndRange     int64     `json:"endRange" db:"end_range"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`

	TicketType *TicketType `json:"ticketType,omitempty" db:"-"`
}

// Size returns the number of ticket numbers covered by the allocation.
func (a TicketAllocation) Size() int64 {
	return a.EndRange - a.StartRange + 1
}

// Ticket is one purchasable unit of inventory.
type Ticket struct {
	ID            string       `json:"id" db:"id"`
	TicketNumber  int64        `json:"ticketNumber" db:"ticket_number"`
	TicketTypeID  string       `json:"ticketTypeId" db:"ticket_type_id"`
	ShopID        string       `json:"shopId" db:"shop_id"`
	AllocationID  string       `json:"allocationId" db:"allocation_id"`
	Status        TicketStatus `json:"status" db:"status"`
	Price         Money        `json:"price" db:"price_minor"`
	WinningAmount Money        `json:"winningAmount" db:"winning_amount_minor"`
	ExpiryDate    time.Time    `json:"expiryDate" db:"expiry_date"`
	SoldTo        *string      `json:"soldTo,omitempty" db:"sold_to"`
	SoldAt        *time.Time   `json:"soldAt,omitempty" db:"sold_at"`
	ClaimedBy     *string      `json:"claimedBy,omitempty" db:"claimed_by"`
	ClaimedAt     *time.Time   `json:"claimedAt,omitempty" db:"claimed_at"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" db:"updated_at"`

	TicketType *TicketType `json:"ticketType,omitempty" db:"-"`
}

// ExpiredAt reports whether the ticket's expiry instant has passed at now.
func (t Ticket) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiryDate)
}

// Shop is a point of sale owned by a shop_owner user.
type Shop struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	RegistrationID string    `json:"registrationId" db:"registration_id"`
	Address        string    `json:"address" db:"address"`
	OwnerID        string    `json:"ownerId" db:"owner_id"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Caller is the authenticated principal behind a request.
type Caller struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// TicketFilter narrows ticket listings. Empty fields match everything.
type TicketFilter struct {
	ShopID string
	// Holder matches tickets sold to or claimed by this user.
	Holder string
}

// TicketTransition is a check-and-set request against one ticket: the store
// applies To only if the ticket's current status is one of From.
type TicketTransition struct {
	TicketID string
	From     []TicketStatus
	To       TicketStatus
	At       time.Time
	// UserID is written to sold_to or claimed_by depending on To.
	UserID string
	// NotAfter, when non-zero, additionally requires expiry_date >= NotAfter
	// for the update to apply.
	NotAfter time.Time
}
