package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/logger"

	"github.com/Prince-Singh-05/Lottery-POS/internal/clock"
	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/storage"
)

// ReportWindow is how far back a weekly report looks.
const ReportWindow = 7 * 24 * time.Hour

// ReportCache stores computed reports. Implementations must treat a miss as
// (zero, false, nil).
type ReportCache interface {
	GetReport(ctx context.Context, key string) (models.WeeklyReport, bool, error)
	SetReport(ctx context.Context, key string, report models.WeeklyReport) error
}

// Reporter builds the weekly financial report from store-side aggregates.
type Reporter struct {
	store      storage.ReportStore
	clock      clock.Clock
	claimLimit int
	cache      ReportCache
}

// NewReporter creates a Reporter. claimLimit bounds the claimed-ticket detail
// list; cache may be nil.
func NewReporter(store storage.ReportStore, clk clock.Clock, claimLimit int, cache ReportCache) *Reporter {
	if claimLimit <= 0 {
		claimLimit = 1000
	}
	return &Reporter{
		store:      store,
		clock:      clk,
		claimLimit: claimLimit,
		cache:      cache,
	}
}

// Weekly reports activity over the last seven days for shopIDs. Every
// requested shop appears in shopStats, with zeros when it had no activity.
func (r *Reporter) Weekly(ctx context.Context, shopIDs []string) (models.WeeklyReport, error) {
	shops := uniqueShops(shopIDs)
	now := r.clock.Now()

	key := cacheKey(shops, now)
	if r.cache != nil {
		report, ok, err := r.cache.GetReport(ctx, key)
		if err != nil {
			logger.Warningf("Report cache read failed: %v", err)
		} else if ok {
			return report, nil
		}
	}

	report, err := r.build(ctx, shops, models.ReportWindow{Start: now.Add(-ReportWindow), End: now})
	if err != nil {
		return models.WeeklyReport{}, err
	}

	if r.cache != nil {
		if err := r.cache.SetReport(ctx, key, report); err != nil {
			logger.Warningf("Report cache write failed: %v", err)
		}
	}
	return report, nil
}

func (r *Reporter) build(ctx context.Context, shops []string, w models.ReportWindow) (models.WeeklyReport, error) {
	report := models.WeeklyReport{
		Period:      w,
		TicketStats: []models.StatusStat{},
		ShopStats:   make([]models.ShopStat, 0, len(shops)),
		ClaimedTickets: models.ClaimedReport{
			ByShop: []models.ShopClaimReport{},
		},
	}
	if len(shops) == 0 {
		return report, nil
	}

	groups, err := r.store.AggregateActivity(ctx, shops, w)
	if err != nil {
		return models.WeeklyReport{}, fmt.Errorf("aggregate activity: %w", err)
	}
	totals, err := r.store.ClaimedTotals(ctx, shops, w)
	if err != nil {
		return models.WeeklyReport{}, fmt.Errorf("claimed totals: %w", err)
	}
	claimed, err := r.store.ListClaimed(ctx, shops, w, r.claimLimit+1)
	if err != nil {
		return models.WeeklyReport{}, fmt.Errorf("list claimed: %w", err)
	}

	report.TicketStats = statusStats(groups)
	report.ShopStats = shopStats(shops, groups)
	for _, s := range report.ShopStats {
		report.Summary.TotalRevenue += s.Revenue
		report.Summary.TotalPayouts += s.Payouts
	}
	report.Summary.NetProfit = report.Summary.TotalRevenue - report.Summary.TotalPayouts

	if len(claimed) > r.claimLimit {
		claimed = claimed[:r.claimLimit]
		report.ClaimedTickets.Truncated = true
	}
	report.ClaimedTickets.ByShop = claimReports(totals, claimed)
	for _, t := range totals {
		report.ClaimedTickets.Total += t.Count
		report.ClaimedTickets.TotalAmount += t.WinningTotal
	}
	return report, nil
}

// statusStats folds groups into one entry per status. Claimed tickets are
// valued by their winning amount, everything else by price.
func statusStats(groups []models.ActivityGroup) []models.StatusStat {
	stats := []models.StatusStat{}
	index := make(map[models.TicketStatus]int)
	for _, g := range groups {
		amount := g.PriceTotal
		if g.Status == models.StatusClaimed {
			amount = g.WinningTotal
		}
		i, ok := index[g.Status]
		if !ok {
			i = len(stats)
			index[g.Status] = i
			stats = append(stats, models.StatusStat{Status: g.Status, Shops: []models.StatusShopStat{}})
		}
		stats[i].TotalCount += g.Count
		stats[i].TotalAmount += amount
		stats[i].Shops = append(stats[i].Shops, models.StatusShopStat{ShopID: g.ShopID, Count: g.Count, TotalAmount: amount})
	}
	return stats
}

func shopStats(shops []string, groups []models.ActivityGroup) []models.ShopStat {
	byShop := make(map[string]*models.ShopStat, len(shops))
	out := make([]models.ShopStat, len(shops))
	for i, id := range shops {
		out[i].ShopID = id
		byShop[id] = &out[i]
	}
	for _, g := range groups {
		s, ok := byShop[g.ShopID]
		if !ok {
			continue
		}
		s.TotalTickets += g.Count
		switch g.Status {
		case models.StatusSold:
			s.Revenue += g.PriceTotal
		case models.StatusClaimed:
			s.Revenue += g.PriceTotal
			s.Payouts += g.WinningTotal
		}
	}
	for i := range out {
		out[i].NetProfit = out[i].Revenue - out[i].Payouts
	}
	return out
}

func claimReports(totals []models.ClaimedTotal, claimed []models.ClaimedTicket) []models.ShopClaimReport {
	out := make([]models.ShopClaimReport, 0, len(totals))
	index := make(map[string]int, len(totals))
	for _, t := range totals {
		index[t.ShopID] = len(out)
		out = append(out, models.ShopClaimReport{
			ShopID:             t.ShopID,
			TotalClaimed:       t.Count,
			TotalWinningAmount: t.WinningTotal,
			ClaimedTickets:     []models.ClaimedTicket{},
		})
	}
	for _, c := range claimed {
		if i, ok := index[c.ShopID]; ok {
			out[i].ClaimedTickets = append(out[i].ClaimedTickets, c)
		}
	}
	return out
}

func uniqueShops(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// cacheKey identifies a report by shop set and minute.
func cacheKey(shops []string, now time.Time) string {
	sorted := slices.Clone(shops)
	slices.Sort(sorted)
	return "weekly:" + strings.Join(sorted, ",") + ":" + strconv.FormatInt(now.Truncate(time.Minute).Unix(), 10)
}

// WeeklyCSV writes the claimed tickets of the weekly report as CSV, prefixed
// with a UTF-8 BOM so spreadsheet tools detect the encoding.
func (r *Reporter) WeeklyCSV(ctx context.Context, w io.Writer, shopIDs []string) error {
	report, err := r.Weekly(ctx, shopIDs)
	if err != nil {
		return err
	}

	if _, err := w.Write([]byte("\xef\xbb\xbf")); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"shopId", "ticketNumber", "winningAmount", "claimedAt", "claimedBy"}); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, shop := range report.ClaimedTickets.ByShop {
		for _, c := range shop.ClaimedTickets {
			row := []string{
				shop.ShopID,
				strconv.FormatInt(c.TicketNumber, 10),
				c.WinningAmount.String(),
				c.ClaimedAt.UTC().Format(time.RFC3339),
				c.ClaimedBy,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write CSV row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
