package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/restock/internal/config"
	"github.com/andresuchdata/restock/internal/replenishment"
)

func TestReportKey(t *testing.T) {
	payload := []byte(`{"supplier":{"items":[]}}`)
	base := replenishment.DefaultReportOptions()

	key := ReportKey(payload, base)
	if !strings.HasPrefix(key, reportKeyPrefix+":") {
		t.Fatalf("key %q lacks prefix", key)
	}
	if again := ReportKey(payload, replenishment.DefaultReportOptions()); again != key {
		t.Errorf("equal inputs gave different keys: %q vs %q", key, again)
	}

	changedTopN := base
	changedTopN.TopN = 25

	changedThresholds := replenishment.DefaultReportOptions()
	changedThresholds.Classifier.PerFlow[replenishment.FlowTransfer] = replenishment.Thresholds{CriticalBelow: 2, WarningBelow: 5}

	tests := []struct {
		name    string
		payload []byte
		opts    replenishment.ReportOptions
	}{
		{"Payload", []byte(`{"supplier":{"items":[{}]}}`), base},
		{"TopN", payload, changedTopN},
		{"Thresholds", payload, changedThresholds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReportKey(tt.payload, tt.opts); got == key {
				t.Errorf("ReportKey() did not change for a different %s", tt.name)
			}
		})
	}
}

func TestNewReportCache_DisabledIsNoop(t *testing.T) {
	c, err := NewReportCache(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewReportCache() error = %v", err)
	}

	ctx := context.Background()
	if err := c.SetReport(ctx, "k", &replenishment.Report{}); err != nil {
		t.Errorf("SetReport() error = %v", err)
	}
	if _, ok, err := c.GetReport(ctx, "k"); ok || err != nil {
		t.Errorf("GetReport() = (_, %v, %v), want a miss", ok, err)
	}
}

func TestBuildRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.CacheConfig
		wantAddr string
		wantErr  bool
	}{
		{"Defaults", config.CacheConfig{}, "127.0.0.1:6379", false},
		{"HostPort", config.CacheConfig{RedisHost: "redis", RedisPort: "6380"}, "redis:6380", false},
		{"URL", config.CacheConfig{RedisURL: "redis://cache:6390/2"}, "cache:6390", false},
		{"BadURL", config.CacheConfig{RedisURL: "http://nope"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := buildRedisOptions(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildRedisOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && opts.Addr != tt.wantAddr {
				t.Errorf("Addr = %q, want %q", opts.Addr, tt.wantAddr)
			}
		})
	}
}

func TestCacheTTL(t *testing.T) {
	if got := cacheTTL(config.CacheConfig{}); got != defaultCacheTTL {
		t.Errorf("cacheTTL(0) = %v, want %v", got, defaultCacheTTL)
	}
	if got := cacheTTL(config.CacheConfig{ReportTTLSeconds: 30}); got != 30*time.Second {
		t.Errorf("cacheTTL(30) = %v, want 30s", got)
	}
}
