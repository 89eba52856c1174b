package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/robfig/cron/v3"

	"github.com/Prince-Singh-05/Lottery-POS/internal/clock"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
)

// Sweeper periodically expires tickets past their expiry date. Lazy expiry in
// Lifecycle stays authoritative; the sweep only keeps reports and listings
// current for tickets nobody touches.
type Sweeper struct {
	store   storage.TicketStore
	clock   clock.Clock
	events  Events
	timeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper creates a Sweeper.
func NewSweeper(store storage.TicketStore, clk clock.Clock, events Events) *Sweeper {
	return &Sweeper{
		store:   store,
		clock:   clk,
		events:  eventsOrNop(events),
		timeout: time.Minute,
	}
}

// Sweep expires every available or sold ticket whose expiry date has passed.
// It is idempotent.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireDue(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.events.TicketsExpired(n)
	}
	return n, nil
}

// Start runs Sweep on schedule, a cron spec such as "@every 10m". An empty
// schedule leaves the sweeper disabled.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		logger.Infof("Expiry sweeper disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	logger.Infof("Expiry sweeper scheduled %q", schedule)
	return nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.Sweep(ctx)
	if err != nil {
		logger.Errorf("Expiry sweep failed: %v", err)
		return
	}
	logger.Infof("Performed expiry sweep, %d tickets expired.", n)
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}
