package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/services"
)

var _ services.ReportCache = (*ReportCache)(nil)

func TestReportCacheIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}
	ctx := context.Background()

	c, err := Dial(ctx, addr, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	key := "test:" + uuid.NewString()
	_, ok, err := c.GetReport(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	report := models.WeeklyReport{
		Summary: models.ReportSummary{
			TotalRevenue: models.MoneyFromUnits(20),
			TotalPayouts: models.MoneyFromUnits(11),
			NetProfit:    models.MoneyFromUnits(9),
		},
		ShopStats: []models.ShopStat{{ShopID: "s-1", TotalTickets: 2, Revenue: models.MoneyFromUnits(20)}},
	}
	require.NoError(t, c.SetReport(ctx, key, report))

	got, ok, err := c.GetReport(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.Summary, got.Summary)
	assert.Equal(t, report.ShopStats, got.ShopStats)
}

func TestDialFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := Dial(ctx, "127.0.0.1:1", time.Minute)
	assert.Error(t, err)
}
