package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestLRUCacheSetGet(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("Get = %q, want %q", val, "value1")
	}
}

func TestLRUCacheMissReturnsNil(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	val, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Errorf("Get miss = %q, want nil", val)
	}
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Errorf("Get after expiry = %q, want nil", val)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key%d", i)
		if err := c.Set(ctx, key, []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	size, capacity := c.Stats()
	if size != 3 {
		t.Errorf("size = %d, want 3", size)
	}
	if capacity != 3 {
		t.Errorf("capacity = %d, want 3", capacity)
	}

	// Oldest entries evicted, newest retained
	val, _ := c.Get(ctx, "key0")
	if val != nil {
		t.Error("key0 should have been evicted")
	}
	val, _ = c.Get(ctx, "key4")
	if val == nil {
		t.Error("key4 should still be cached")
	}
}

func TestLRUCacheRecentUseProtectsFromEviction(t *testing.T) {
	c := NewLRUCache(2)
	defer c.Close()

	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)

	// Touch "a" so "b" becomes the eviction candidate
	if _, err := c.Get(ctx, "a"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	_ = c.Set(ctx, "c", []byte("3"), time.Minute)

	if val, _ := c.Get(ctx, "a"); val == nil {
		t.Error("a should survive eviction after recent use")
	}
	if val, _ := c.Get(ctx, "b"); val != nil {
		t.Error("b should have been evicted")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	ctx := context.Background()

	_ = c.Set(ctx, "key1", []byte("value1"), time.Minute)
	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	val, _ := c.Get(ctx, "key1")
	if val != nil {
		t.Error("value should be gone after delete")
	}
}

func TestLRUCacheLatestCaseRoundTrip(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	ctx := context.Background()

	fc := &domain.FraudCase{
		ID:                 "case-1",
		ClientID:           "client-77",
		Country:            "Malaysia",
		AccountType:        "Individual",
		DepositAmount:      60000,
		WithdrawalAmount:   45000,
		NumTrades:          3,
		AvgTradeAmount:     1200,
		TradeDuration:      1,
		TotalProfit:        -300,
		FeesPaid:           125.50,
		PaymentMethod:      "card",
		RiskLevel:          domain.RiskHigh,
		DetectionTimestamp: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
	}

	if err := c.SetLatestCase(ctx, fc.ClientID, fc, time.Minute); err != nil {
		t.Fatalf("SetLatestCase failed: %v", err)
	}

	got, err := c.GetLatestCase(ctx, fc.ClientID)
	if err != nil {
		t.Fatalf("GetLatestCase failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetLatestCase returned nil")
	}
	if got.ID != fc.ID || got.RiskLevel != fc.RiskLevel || got.DepositAmount != fc.DepositAmount {
		t.Errorf("GetLatestCase = %+v, want %+v", got, fc)
	}
	if !got.DetectionTimestamp.Equal(fc.DetectionTimestamp) {
		t.Errorf("DetectionTimestamp = %v, want %v", got.DetectionTimestamp, fc.DetectionTimestamp)
	}
}

func TestLRUCacheLatestCaseMiss(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	got, err := c.GetLatestCase(context.Background(), "unknown-client")
	if err != nil {
		t.Fatalf("GetLatestCase failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetLatestCase = %+v, want nil", got)
	}
}

func TestLRUCaseKeysIsolatedPerClient(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	ctx := context.Background()

	a := &domain.FraudCase{ID: "a", ClientID: "client-a", RiskLevel: domain.RiskLow}
	b := &domain.FraudCase{ID: "b", ClientID: "client-b", RiskLevel: domain.RiskHigh}

	_ = c.SetLatestCase(ctx, a.ClientID, a, time.Minute)
	_ = c.SetLatestCase(ctx, b.ClientID, b, time.Minute)

	got, err := c.GetLatestCase(ctx, "client-a")
	if err != nil {
		t.Fatalf("GetLatestCase failed: %v", err)
	}
	if got == nil || got.ID != "a" {
		t.Errorf("GetLatestCase(client-a) = %+v, want case a", got)
	}
}

func TestNewMemoryCache(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("New returned %T, want *LRUCache", c)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
