package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "kestrel_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func storedCase(id, clientID string, level domain.RiskLevel, ts time.Time) *domain.FraudCase {
	return &domain.FraudCase{
		ID:                 id,
		ClientID:           clientID,
		Country:            "MY",
		AccountType:        "standard",
		DepositAmount:      1000,
		WithdrawalAmount:   250,
		NumTrades:          12,
		AvgTradeAmount:     80,
		TradeDuration:      30,
		TotalProfit:        150,
		FeesPaid:           9.75,
		PaymentMethod:      "card",
		RiskLevel:          level,
		DetectionTimestamp: ts,
	}
}

func TestSaveAndGetCase(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ts := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	want := storedCase("case-001", "client-1", domain.RiskHigh, ts)

	if err := repo.SaveCase(ctx, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.GetCase(ctx, "case-001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ClientID != want.ClientID || got.RiskLevel != want.RiskLevel {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.DepositAmount != 1000 || got.FeesPaid != 9.75 {
		t.Errorf("financial fields did not survive the round trip: %+v", got)
	}
	if !got.DetectionTimestamp.Equal(ts) {
		t.Errorf("timestamp %v, want %v", got.DetectionTimestamp, ts)
	}
}

func TestGetCaseNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetCase(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestCaseByClient(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		c := storedCase(fmt.Sprintf("case-%d", i), "client-7", domain.RiskNone, base.Add(time.Duration(i)*time.Hour))
		if i == 2 {
			c.RiskLevel = domain.RiskMedium
		}
		if err := repo.SaveCase(ctx, c); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	// Another client's newer case must not shadow client-7's latest.
	other := storedCase("case-other", "client-8", domain.RiskHigh, base.Add(24*time.Hour))
	if err := repo.SaveCase(ctx, other); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	latest, err := repo.LatestCaseByClient(ctx, "client-7")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest.ID != "case-2" || latest.RiskLevel != domain.RiskMedium {
		t.Errorf("unexpected latest case: %+v", latest)
	}

	_, err = repo.LatestCaseByClient(ctx, "client-unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown client, got %v", err)
	}
}

func TestCasesInWindowBounds(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	window := domain.Window{Start: start, End: start.AddDate(0, 0, 1)}

	cases := []*domain.FraudCase{
		storedCase("before", "c", domain.RiskNone, start.Add(-time.Second)),
		storedCase("at-start", "c", domain.RiskNone, start),
		storedCase("inside", "c", domain.RiskNone, start.Add(12*time.Hour)),
		storedCase("at-end", "c", domain.RiskNone, window.End),
	}
	for _, c := range cases {
		if err := repo.SaveCase(ctx, c); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	got, err := repo.CasesInWindow(ctx, window)
	if err != nil {
		t.Fatalf("window query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cases (start inclusive, end exclusive), got %d", len(got))
	}
	// Newest first.
	if got[0].ID != "inside" || got[1].ID != "at-start" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestCasesInWindowMixedZoneTimestamps(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	loc := time.FixedZone("UTC+8", 8*60*60)
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	window := domain.Window{Start: start, End: start.AddDate(0, 0, 1)}

	// Rows stamped in UTC fall in the first hours of the local day.
	// They must come back the same as rows stamped in the local zone.
	cases := []*domain.FraudCase{
		storedCase("at-start", "c", domain.RiskNone, start.UTC()),
		storedCase("early", "c", domain.RiskNone, start.Add(7*time.Hour).UTC()),
		storedCase("noon", "c", domain.RiskNone, start.Add(12*time.Hour)),
		storedCase("next-day", "c", domain.RiskNone, window.End.UTC()),
	}
	for _, c := range cases {
		if err := repo.SaveCase(ctx, c); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	got, err := repo.CasesInWindow(ctx, window)
	if err != nil {
		t.Fatalf("window query failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 cases regardless of stamp zone, got %d", len(got))
	}
	byID := make(map[string]bool, len(got))
	for _, c := range got {
		byID[c.ID] = true
	}
	for _, id := range []string{"at-start", "early", "noon"} {
		if !byID[id] {
			t.Errorf("case %s missing from window result", id)
		}
	}
}

func TestListCases(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		c := storedCase(fmt.Sprintf("case-%d", i), fmt.Sprintf("client-%d", i%2), domain.RiskLow, base.Add(time.Duration(i)*time.Minute))
		if err := repo.SaveCase(ctx, c); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	all, err := repo.ListCases(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 cases, got %d", len(all))
	}
	if all[0].ID != "case-4" {
		t.Errorf("expected newest first, got %s", all[0].ID)
	}
}

func TestSaveCaseValidation(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SaveCase(context.Background(), &domain.FraudCase{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for a case without id, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver   string
		input    string
		expected string
	}{
		{"sqlite", "SELECT * FROM fraud_cases WHERE id = ?", "SELECT * FROM fraud_cases WHERE id = ?"},
		{"postgres", "SELECT * FROM fraud_cases WHERE id = ?", "SELECT * FROM fraud_cases WHERE id = $1"},
		{"postgres", "INSERT INTO t VALUES (?, ?, ?)", "INSERT INTO t VALUES ($1, $2, $3)"},
	}

	for _, tt := range tests {
		repo := &SQLRepository{driver: tt.driver}
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
