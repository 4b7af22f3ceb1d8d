package report

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func statsFixture() *domain.ReportStatistics {
	return &domain.ReportStatistics{
		TotalCases: 2,
		RiskCounts: map[domain.RiskLevel]int64{
			domain.RiskHigh: 1, domain.RiskMedium: 0, domain.RiskLow: 0, domain.RiskNone: 1,
		},
		RiskPercentages: map[domain.RiskLevel]float64{
			domain.RiskHigh: 50, domain.RiskMedium: 0, domain.RiskLow: 0, domain.RiskNone: 50,
		},
		TotalDeposits:    1500,
		TotalWithdrawals: 700,
		TotalFeesPaid:    20,
		PerRiskFinancials: map[domain.RiskLevel]domain.RiskFinancials{
			domain.RiskHigh:   {Deposits: 1000, Withdrawals: 200},
			domain.RiskMedium: {},
			domain.RiskLow:    {},
			domain.RiskNone:   {Deposits: 500, Withdrawals: 500},
		},
		PaymentUsage: map[string]float64{"card": 50, "bank": 50},
		Countries: []domain.CountryBreakdown{
			{Country: "MY", TotalCases: 2, HighRisk: 1, NoRisk: 1},
		},
	}
}

func TestAssembleBlockSequence(t *testing.T) {
	narrative := "First paragraph.\n\n\nSecond <b>bold</b> paragraph.\n"
	blocks := Assemble(narrative, statsFixture())

	var paragraphs, tables, spacers int
	for _, b := range blocks {
		switch b.Kind {
		case BlockParagraph:
			paragraphs++
		case BlockTable:
			tables++
		case BlockSpacer:
			spacers++
		}
	}

	if paragraphs != 2 {
		t.Errorf("expected 2 paragraphs (blank lines dropped), got %d", paragraphs)
	}
	if tables != 4 {
		t.Errorf("expected 4 statistics tables, got %d", tables)
	}
	// One spacer follows every paragraph and every table.
	if spacers != paragraphs+tables {
		t.Errorf("expected %d spacers, got %d", paragraphs+tables, spacers)
	}

	if blocks[0].Kind != BlockParagraph || blocks[0].Text != "First paragraph." {
		t.Errorf("unexpected first block: %+v", blocks[0])
	}
	if blocks[1].Kind != BlockSpacer {
		t.Errorf("expected spacer after first paragraph, got %+v", blocks[1])
	}
}

func TestAssembleTableHeaders(t *testing.T) {
	blocks := Assemble("", statsFixture())

	var tables []Block
	for _, b := range blocks {
		if b.Kind == BlockTable {
			tables = append(tables, b)
		}
	}
	if len(tables) != 4 {
		t.Fatalf("expected 4 tables, got %d", len(tables))
	}

	wantHeaders := [][]string{
		{"risk_level", "total_cases", "percentage"},
		{"risk_level", "deposit_amount", "withdrawal_amount"},
		{"payment_method", "usage_percentage"},
		{"country", "total_cases", "high_risk", "medium_risk", "low_risk", "no_risk"},
	}
	for i, want := range wantHeaders {
		got := tables[i].Headers
		if len(got) != len(want) {
			t.Errorf("table %d: headers %v, want %v", i, got, want)
			continue
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("table %d: headers %v, want %v", i, got, want)
				break
			}
		}
	}

	// Risk table always carries all four levels.
	if len(tables[0].Rows) != 4 {
		t.Errorf("risk table must list all four levels, got %d rows", len(tables[0].Rows))
	}
	// Payment table only carries observed methods, sorted.
	if len(tables[2].Rows) != 2 || tables[2].Rows[0][0] != "bank" || tables[2].Rows[1][0] != "card" {
		t.Errorf("unexpected payment rows: %v", tables[2].Rows)
	}
}

// fakeRenderer writes a fixed payload so Build's stat and naming logic can
// be tested without a PDF backend.
type fakeRenderer struct {
	payload []byte
	blocks  []Block
}

func (f *fakeRenderer) Render(path string, blocks []Block) error {
	f.blocks = blocks
	return os.WriteFile(path, f.payload, 0o644)
}

func TestAssemblerBuild(t *testing.T) {
	dir := t.TempDir()
	renderer := &fakeRenderer{payload: make([]byte, 2048)}
	a := NewAssembler(renderer, domain.ReportConfig{OutputDir: dir, MinArtifactSize: 1000})
	a.now = func() time.Time { return time.Date(2025, 3, 10, 14, 30, 5, 0, time.UTC) }

	artifact, err := a.Build("A line of narrative.", statsFixture())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if artifact.Filename != "fraud_report_20250310_143005.pdf" {
		t.Errorf("unexpected artifact name %q", artifact.Filename)
	}
	if artifact.Size != 2048 {
		t.Errorf("unexpected artifact size %d", artifact.Size)
	}
	if filepath.Dir(artifact.Path) != dir {
		t.Errorf("artifact written outside output dir: %s", artifact.Path)
	}
	if len(renderer.blocks) == 0 {
		t.Error("renderer received no blocks")
	}
}

func TestAssemblerBuildSmallArtifactStillReturned(t *testing.T) {
	dir := t.TempDir()
	renderer := &fakeRenderer{payload: []byte("tiny")}
	a := NewAssembler(renderer, domain.ReportConfig{OutputDir: dir, MinArtifactSize: 1000})

	// Below the size threshold logs a warning but must not fail.
	artifact, err := a.Build("Narrative.", statsFixture())
	if err != nil {
		t.Fatalf("build failed on small artifact: %v", err)
	}
	if artifact.Size != 4 {
		t.Errorf("unexpected size %d", artifact.Size)
	}
}

func TestArtifactNamePattern(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(&fakeRenderer{payload: make([]byte, 1500)}, domain.ReportConfig{OutputDir: dir})

	artifact, err := a.Build("x", statsFixture())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	pattern := regexp.MustCompile(`^fraud_report_\d{8}_\d{6}\.pdf$`)
	if !pattern.MatchString(artifact.Filename) {
		t.Errorf("artifact name %q does not match the timestamp pattern", artifact.Filename)
	}
}
