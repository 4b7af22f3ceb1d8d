package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Artifact describes one rendered report document.
type Artifact struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Assembler turns narrative text plus statistics into a rendered
// artifact. Stateless given its inputs; each invocation produces a new
// timestamp-named file and never overwrites prior reports.
type Assembler struct {
	renderer Renderer
	cfg      domain.ReportConfig

	// now is replaceable in tests.
	now func() time.Time
}

// NewAssembler creates an assembler over a renderer.
func NewAssembler(renderer Renderer, cfg domain.ReportConfig) *Assembler {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./reports"
	}
	if cfg.MinArtifactSize <= 0 {
		cfg.MinArtifactSize = 1000
	}
	return &Assembler{renderer: renderer, cfg: cfg, now: time.Now}
}

// Build assembles the blocks and renders them to a new artifact.
func (a *Assembler) Build(narrativeText string, stats *domain.ReportStatistics) (*Artifact, error) {
	blocks := Assemble(narrativeText, stats)

	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("fraud_report_%s.pdf", a.now().Format("20060102_150405"))
	path := filepath.Join(a.cfg.OutputDir, filename)

	if err := a.renderer.Render(path, blocks); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat rendered report: %w", err)
	}

	// Size below the threshold is a weak integrity signal only. The
	// artifact is still returned.
	if info.Size() < a.cfg.MinArtifactSize {
		slog.Warn("report artifact suspiciously small, may be corrupted",
			"path", path,
			"size", info.Size(),
			"min_size", a.cfg.MinArtifactSize,
		)
	}

	return &Artifact{Path: path, Filename: filename, Size: info.Size()}, nil
}

// Assemble converts narrative text plus statistics into the ordered block
// sequence. Every non-empty narrative line becomes one paragraph followed
// by a spacer; blank lines are dropped. The statistics tables follow the
// narrative.
func Assemble(narrativeText string, stats *domain.ReportStatistics) []Block {
	var blocks []Block

	for _, line := range strings.Split(narrativeText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, Paragraph(line), Spacer())
	}

	blocks = append(blocks, riskTable(stats), Spacer())
	blocks = append(blocks, financialTable(stats), Spacer())
	blocks = append(blocks, paymentTable(stats), Spacer())
	blocks = append(blocks, countryTable(stats), Spacer())

	return blocks
}

func riskTable(stats *domain.ReportStatistics) Block {
	rows := make([][]string, 0, len(domain.RiskLevels))
	for _, level := range domain.RiskLevels {
		rows = append(rows, []string{
			string(level),
			strconv.FormatInt(stats.RiskCounts[level], 10),
			fmt.Sprintf("%.2f", stats.RiskPercentages[level]),
		})
	}
	return Table([]string{"risk_level", "total_cases", "percentage"}, rows)
}

func financialTable(stats *domain.ReportStatistics) Block {
	rows := make([][]string, 0, len(domain.RiskLevels)+1)
	for _, level := range domain.RiskLevels {
		fin := stats.PerRiskFinancials[level]
		rows = append(rows, []string{
			string(level),
			strconv.FormatInt(fin.Deposits, 10),
			strconv.FormatInt(fin.Withdrawals, 10),
		})
	}
	rows = append(rows, []string{
		"Total",
		strconv.FormatInt(stats.TotalDeposits, 10),
		strconv.FormatInt(stats.TotalWithdrawals, 10),
	})
	return Table([]string{"risk_level", "deposit_amount", "withdrawal_amount"}, rows)
}

func paymentTable(stats *domain.ReportStatistics) Block {
	methods := make([]string, 0, len(stats.PaymentUsage))
	for m := range stats.PaymentUsage {
		methods = append(methods, m)
	}
	sort.Strings(methods)

	rows := make([][]string, 0, len(methods))
	for _, m := range methods {
		rows = append(rows, []string{m, fmt.Sprintf("%.2f", stats.PaymentUsage[m])})
	}
	return Table([]string{"payment_method", "usage_percentage"}, rows)
}

func countryTable(stats *domain.ReportStatistics) Block {
	rows := make([][]string, 0, len(stats.Countries))
	for _, cb := range stats.Countries {
		rows = append(rows, []string{
			cb.Country,
			strconv.FormatInt(cb.TotalCases, 10),
			strconv.FormatInt(cb.HighRisk, 10),
			strconv.FormatInt(cb.MediumRisk, 10),
			strconv.FormatInt(cb.LowRisk, 10),
			strconv.FormatInt(cb.NoRisk, 10),
		})
	}
	return Table([]string{"country", "total_cases", "high_risk", "medium_risk", "low_risk", "no_risk"}, rows)
}
