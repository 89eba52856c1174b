// Package cache keeps computed weekly reports in Redis for a short time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

const keyPrefix = "lottery-pos:report:"

// ReportCache is a Redis-backed read-through cache for weekly reports.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache wraps an existing client.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// Dial connects to addr and verifies the server answers.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*ReportCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewReportCache(client, ttl), nil
}

func (c *ReportCache) GetReport(ctx context.Context, key string) (models.WeeklyReport, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.WeeklyReport{}, false, nil
	}
	if err != nil {
		return models.WeeklyReport{}, false, err
	}

	var report models.WeeklyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return models.WeeklyReport{}, false, fmt.Errorf("decode cached report: %w", err)
	}
	return report, true, nil
}

func (c *ReportCache) SetReport(ctx context.Context, key string, report models.WeeklyReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

// Close releases the underlying connection pool.
func (c *ReportCache) Close() error {
	return c.client.Close()
}
