package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/restock/internal/config"
	"github.com/andresuchdata/restock/internal/replenishment"
	"github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix     = "restock:report"
	reportScanBatchSize = 100
)

// ReportCache stores built reports keyed by payload and options.
type ReportCache interface {
	GetReport(ctx context.Context, key string) (*replenishment.Report, bool, error)
	SetReport(ctx context.Context, key string, report *replenishment.Report) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetReport(ctx context.Context, key string) (*replenishment.Report, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report replenishment.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisReportCache) SetReport(ctx context.Context, key string, report *replenishment.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix, reportScanBatchSize)
}

func (n *noopReportCache) GetReport(ctx context.Context, key string) (*replenishment.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetReport(ctx context.Context, key string, report *replenishment.Report) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// ReportKey derives the cache key of a report built from payload with opts.
// Options are hashed in a fixed order so equal settings share an entry.
func ReportKey(payload []byte, opts replenishment.ReportOptions) string {
	return fmt.Sprintf("%s:%s", reportKeyPrefix, reportHash(payload, opts))
}

func reportHash(payload []byte, opts replenishment.ReportOptions) string {
	parts := []string{fmt.Sprintf("top_n=%d", opts.TopN)}

	fb := opts.Classifier.Fallback
	parts = append(parts, fmt.Sprintf("fallback=%g/%g/%g", fb.CriticalBelow, fb.WarningBelow, fb.RiskCutoffDays))
	for flow, t := range opts.Classifier.PerFlow {
		parts = append(parts, fmt.Sprintf("flow:%s=%g/%g/%g",
			strings.ToLower(string(flow)), t.CriticalBelow, t.WarningBelow, t.RiskCutoffDays))
	}
	sort.Strings(parts)

	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "|")))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
