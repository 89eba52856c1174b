// Package postgres implements storage.Store on PostgreSQL through sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
)

const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
	codeForeignKey         = "23503"
	codeInvalidText        = "22P02"
)

// insertChunk bounds the rows per multi-row INSERT so a statement stays well
// under the 65535 bind parameter limit.
const insertChunk = 500

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- TicketTypeStore ---------------------------------------------------------

type ticketTypeRow struct {
	ID         string       `db:"id"`
	Name       string       `db:"name"`
	StartRange int64        `db:"start_range"`
	EndRange   int64        `db:"end_range"`
	Digits     int          `db:"digits"`
	Price      models.Money `db:"price_minor"`
	ExpiryDays int          `db:"expiry_days"`
	Active     bool         `db:"active"`
	CreatedAt  time.Time    `db:"created_at"`
}

func (r ticketTypeRow) model() models.TicketType {
	return models.TicketType{
		ID:   r.ID,
		Name: r.Name,
		NumberPattern: models.NumberPattern{
			StartRange: r.StartRange,
			EndRange:   r.EndRange,
			Digits:     r.Digits,
		},
		Price:          r.Price,
		ExpiryDuration: r.ExpiryDays,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
	}
}

const ticketTypeColumns = `id, name, start_range, end_range, digits, price_minor, expiry_days, active, created_at`

func (s *Store) CreateTicketType(ctx context.Context, tt models.TicketType) (models.TicketType, error) {
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ticket_types (`+ticketTypeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, tt.ID, tt.Name, tt.NumberPattern.StartRange, tt.NumberPattern.EndRange, tt.NumberPattern.Digits,
		tt.Price, tt.ExpiryDuration, tt.Active, tt.CreatedAt)
	if err != nil {
		if pqCode(err) == codeExclusionViolation {
			return models.TicketType{}, models.ErrTicketTypeOverlap.Wrap(err)
		}
		return models.TicketType{}, fmt.Errorf("insert ticket type: %w", err)
	}
	return tt, nil
}

func (s *Store) GetTicketType(ctx context.Context, id string) (models.TicketType, error) {
	var row ticketTypeRow
	err := s.db.GetContext(ctx, &row, `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqCode(err) == codeInvalidText {
			return models.TicketType{}, models.ErrTicketTypeNotFound
		}
		return models.TicketType{}, fmt.Errorf("get ticket type: %w", err)
	}
	return row.model(), nil
}

func (s *Store) ListTicketTypes(ctx context.Context) ([]models.TicketType, error) {
	var rows []ticketTypeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+ticketTypeColumns+` FROM ticket_types ORDER BY start_range`); err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	out := make([]models.TicketType, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// --- AllocationStore ---------------------------------------------------------

const allocationColumns = `id, ticket_type_id, shop_id, start_range, end_range, active, created_at`

func (s *Store) CreateAllocation(ctx context.Context, alloc models.TicketAllocation, tickets []models.Ticket) (models.TicketAllocation, error) {
	if alloc.ID == "" {
		alloc.ID = uuid.NewString()
	}
	if alloc.CreatedAt.IsZero() {
		alloc.CreatedAt = time.Now().UTC()
	}
	for i := range tickets {
		tickets[i].AllocationID = alloc.ID
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ticket_allocations (`+allocationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, alloc.ID, alloc.TicketTypeID, alloc.ShopID, alloc.StartRange, alloc.EndRange, alloc.Active, alloc.CreatedAt)
		if err != nil {
			switch pqCode(err) {
			case codeExclusionViolation:
				return models.ErrRangeConflict.Wrap(err)
			case codeForeignKey:
				return models.ErrNotFound.WithMessage("ticket type or shop not found").Wrap(err)
			}
			return fmt.Errorf("insert allocation: %w", err)
		}
		return insertTickets(ctx, tx, tickets)
	})
	if err != nil {
		return models.TicketAllocation{}, err
	}
	return alloc, nil
}

const insertTicketSQL = `
	INSERT INTO tickets (id, ticket_number, ticket_type_id, shop_id, allocation_id, status,
		price_minor, winning_amount_minor, expiry_date, created_at, updated_at)
	VALUES (:id, :ticket_number, :ticket_type_id, :shop_id, :allocation_id, :status,
		:price_minor, :winning_amount_minor, :expiry_date, :created_at, :updated_at)`

func insertTickets(ctx context.Context, tx *sqlx.Tx, tickets []models.Ticket) error {
	now := time.Now().UTC()
	for i := range tickets {
		if tickets[i].ID == "" {
			tickets[i].ID = uuid.NewString()
		}
		if tickets[i].CreatedAt.IsZero() {
			tickets[i].CreatedAt = now
		}
		tickets[i].UpdatedAt = tickets[i].CreatedAt
	}

	for start := 0; start < len(tickets); start += insertChunk {
		end := min(start+insertChunk, len(tickets))
		if _, err := tx.NamedExecContext(ctx, insertTicketSQL, tickets[start:end]); err != nil {
			if pqCode(err) == codeUniqueViolation {
				return models.ErrDuplicateTicket.Wrap(err)
			}
			return fmt.Errorf("insert tickets: %w", err)
		}
	}
	return nil
}

func (s *Store) GetAllocation(ctx context.Context, id string) (models.TicketAllocation, error) {
	var alloc models.TicketAllocation
	err := s.db.GetContext(ctx, &alloc, `SELECT `+allocationColumns+` FROM ticket_allocations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqCode(err) == codeInvalidText {
			return models.TicketAllocation{}, models.ErrAllocationNotFound
		}
		return models.TicketAllocation{}, fmt.Errorf("get allocation: %w", err)
	}
	tt, err := s.GetTicketType(ctx, alloc.TicketTypeID)
	if err != nil {
		return models.TicketAllocation{}, err
	}
	alloc.TicketType = &tt
	return alloc, nil
}

func (s *Store) ListAllocationsByShop(ctx context.Context, shopID string) ([]models.TicketAllocation, error) {
	var out []models.TicketAllocation
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+allocationColumns+`
		FROM ticket_allocations
		WHERE shop_id = $1
		ORDER BY created_at DESC
	`, shopID)
	if err != nil {
		if pqCode(err) == codeInvalidText {
			return nil, models.ErrShopNotFound
		}
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	types, err := s.ListTicketTypes(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.TicketType, len(types))
	for _, tt := range types {
		byID[tt.ID] = tt
	}
	for i := range out {
		if tt, ok := byID[out[i].TicketTypeID]; ok {
			out[i].TicketType = &tt
		}
	}
	return out, nil
}

func (s *Store) InsertTickets(ctx context.Context, tickets []models.Ticket) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return insertTickets(ctx, tx, tickets)
	})
}

func (s *Store) CountTicketsInRange(ctx context.Context, ticketTypeID string, start, end int64) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM tickets
		WHERE ticket_type_id = $1 AND ticket_number BETWEEN $2 AND $3
	`, ticketTypeID, start, end)
	if err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}

// --- TicketStore -------------------------------------------------------------

type ticketRow struct {
	models.Ticket
	TypeName       string       `db:"tt_name"`
	TypeStart      int64        `db:"tt_start_range"`
	TypeEnd        int64        `db:"tt_end_range"`
	TypeDigits     int          `db:"tt_digits"`
	TypePrice      models.Money `db:"tt_price_minor"`
	TypeExpiryDays int          `db:"tt_expiry_days"`
	TypeActive     bool         `db:"tt_active"`
	TypeCreatedAt  time.Time    `db:"tt_created_at"`
}

func (r ticketRow) model() models.Ticket {
	t := r.Ticket
	t.TicketType = &models.TicketType{
		ID:   t.TicketTypeID,
		Name: r.TypeName,
		NumberPattern: models.NumberPattern{
			StartRange: r.TypeStart,
			EndRange:   r.TypeEnd,
			Digits:     r.TypeDigits,
		},
		Price:          r.TypePrice,
		ExpiryDuration: r.TypeExpiryDays,
		Active:         r.TypeActive,
		CreatedAt:      r.TypeCreatedAt,
	}
	return t
}

const selectTicketSQL = `
	SELECT t.id, t.ticket_number, t.ticket_type_id, t.shop_id, t.allocation_id, t.status,
		t.price_minor, t.winning_amount_minor, t.expiry_date, t.sold_to, t.sold_at,
		t.claimed_by, t.claimed_at, t.created_at, t.updated_at,
		tt.name AS tt_name, tt.start_range AS tt_start_range, tt.end_range AS tt_end_range,
		tt.digits AS tt_digits, tt.price_minor AS tt_price_minor, tt.expiry_days AS tt_expiry_days,
		tt.active AS tt_active, tt.created_at AS tt_created_at
	FROM tickets t
	JOIN ticket_types tt ON tt.id = t.ticket_type_id`

func (s *Store) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	var row ticketRow
	if err := s.db.GetContext(ctx, &row, selectTicketSQL+` WHERE t.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqCode(err) == codeInvalidText {
			return models.Ticket{}, models.ErrTicketNotFound
		}
		return models.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return row.model(), nil
}

func (s *Store) ListTickets(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	var rows []ticketRow
	err := s.db.SelectContext(ctx, &rows, selectTicketSQL+`
		WHERE ($1 = '' OR t.shop_id::text = $1)
		  AND ($2 = '' OR t.sold_to = $2 OR t.claimed_by = $2)
		ORDER BY t.ticket_type_id, t.ticket_number
	`, filter.ShopID, filter.Holder)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	out := make([]models.Ticket, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// TransitionTicket issues a single conditional UPDATE so two concurrent
// callers can never both move a ticket across the same boundary.
func (s *Store) TransitionTicket(ctx context.Context, tr models.TicketTransition) (models.Ticket, bool, error) {
	from := make([]string, 0, len(tr.From))
	for _, st := range tr.From {
		from = append(from, string(st))
	}

	holder := ""
	args := []any{tr.TicketID, string(tr.To), tr.At, pq.Array(from), tr.NotAfter}
	switch tr.To {
	case models.StatusSold:
		holder = "sold_to = $6, sold_at = $3,"
		args = append(args, tr.UserID)
	case models.StatusClaimed:
		holder = "claimed_by = $6, claimed_at = $3,"
		args = append(args, tr.UserID)
	}

	query := fmt.Sprintf(`
		UPDATE tickets
		SET status = $2, %s updated_at = $3
		WHERE id = $1 AND status = ANY($4) AND expiry_date >= $5
		RETURNING id`, holder)

	var id string
	err := s.db.GetContext(ctx, &id, query, args...)
	applied := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		applied = false
	case pqCode(err) == codeInvalidText:
		return models.Ticket{}, false, models.ErrTicketNotFound
	case err != nil:
		return models.Ticket{}, false, fmt.Errorf("transition ticket: %w", err)
	}

	t, err := s.GetTicket(ctx, tr.TicketID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	return t, applied, nil
}

func (s *Store) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = 'expired', updated_at = $1
		WHERE status IN ('available', 'sold') AND expiry_date < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire tickets: %w", err)
	}
	return res.RowsAffected()
}

// --- ReportStore -------------------------------------------------------------

func (s *Store) AggregateActivity(ctx context.Context, shopIDs []string, w models.ReportWindow) ([]models.ActivityGroup, error) {
	var out []models.ActivityGroup
	err := s.db.SelectContext(ctx, &out, `
		SELECT shop_id, status,
			COUNT(*) AS ticket_count,
			COALESCE(SUM(price_minor), 0) AS price_total,
			COALESCE(SUM(winning_amount_minor), 0) AS winning_total
		FROM tickets
		WHERE shop_id = ANY($1::uuid[])
		  AND (sold_at BETWEEN $2 AND $3 OR claimed_at BETWEEN $2 AND $3)
		GROUP BY shop_id, status
		ORDER BY status, shop_id
	`, pq.Array(shopIDs), w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("aggregate activity: %w", err)
	}
	return out, nil
}

func (s *Store) ClaimedTotals(ctx context.Context, shopIDs []string, w models.ReportWindow) ([]models.ClaimedTotal, error) {
	var out []models.ClaimedTotal
	err := s.db.SelectContext(ctx, &out, `
		SELECT shop_id,
			COUNT(*) AS claimed_count,
			COALESCE(SUM(winning_amount_minor), 0) AS winning_total
		FROM tickets
		WHERE shop_id = ANY($1::uuid[])
		  AND status = 'claimed'
		  AND claimed_at BETWEEN $2 AND $3
		GROUP BY shop_id
		ORDER BY shop_id
	`, pq.Array(shopIDs), w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("claimed totals: %w", err)
	}
	return out, nil
}

func (s *Store) ListClaimed(ctx context.Context, shopIDs []string, w models.ReportWindow, limit int) ([]models.ClaimedTicket, error) {
	var out []models.ClaimedTicket
	err := s.db.SelectContext(ctx, &out, `
		SELECT shop_id, ticket_number, winning_amount_minor, claimed_at, COALESCE(claimed_by, '') AS claimed_by
		FROM tickets
		WHERE shop_id = ANY($1::uuid[])
		  AND status = 'claimed'
		  AND claimed_at BETWEEN $2 AND $3
		ORDER BY claimed_at DESC, ticket_number
		LIMIT $4
	`, pq.Array(shopIDs), w.Start, w.End, limit)
	if err != nil {
		return nil, fmt.Errorf("list claimed: %w", err)
	}
	return out, nil
}

// --- ShopStore ---------------------------------------------------------------

const shopColumns = `id, name, registration_id, address, owner_id, active, created_at`

func (s *Store) CreateShop(ctx context.Context, shop models.Shop) (models.Shop, error) {
	if shop.ID == "" {
		shop.ID = uuid.NewString()
	}
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO shops (`+shopColumns+`)
		VALUES (:id, :name, :registration_id, :address, :owner_id, :active, :created_at)
	`, shop)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return models.Shop{}, models.ErrShopExists.Wrap(err)
		}
		return models.Shop{}, fmt.Errorf("insert shop: %w", err)
	}
	return shop, nil
}

func (s *Store) GetShop(ctx context.Context, id string) (models.Shop, error) {
	return s.getShop(ctx, `id = $1`, id)
}

func (s *Store) GetShopByRegistration(ctx context.Context, registrationID string) (models.Shop, error) {
	return s.getShop(ctx, `registration_id = $1`, registrationID)
}

func (s *Store) getShop(ctx context.Context, where string, arg string) (models.Shop, error) {
	var shop models.Shop
	if err := s.db.GetContext(ctx, &shop, `SELECT `+shopColumns+` FROM shops WHERE `+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqCode(err) == codeInvalidText {
			return models.Shop{}, models.ErrShopNotFound
		}
		return models.Shop{}, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

func (s *Store) ListShops(ctx context.Context) ([]models.Shop, error) {
	var out []models.Shop
	if err := s.db.SelectContext(ctx, &out, `SELECT `+shopColumns+` FROM shops ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	return out, nil
}

func (s *Store) ListShopsByOwner(ctx context.Context, ownerID string) ([]models.Shop, error) {
	var out []models.Shop
	err := s.db.SelectContext(ctx, &out, `SELECT `+shopColumns+` FROM shops WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list shops by owner: %w", err)
	}
	return out, nil
}
