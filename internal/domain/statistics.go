package domain

import (
	"fmt"
	"time"
)

// Window is the half-open reporting interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow widens user-supplied calendar dates into the half-open
// interval covering both days in full: end = endDate + 1 day.
func NewWindow(startDate, endDate time.Time) Window {
	return Window{
		Start: startDate,
		End:   endDate.AddDate(0, 0, 1),
	}
}

// Contains reports whether t falls inside the window.
// Start is inclusive, End is exclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// RiskFinancials holds the deposit and withdrawal sums for one risk level.
type RiskFinancials struct {
	Deposits    int64 `json:"deposits"`
	Withdrawals int64 `json:"withdrawals"`
}

// CountryBreakdown holds per-country case counts split by risk level.
// Countries are grouped by the exact stored string; no case or whitespace
// normalization is applied.
type CountryBreakdown struct {
	Country    string `json:"country"`
	TotalCases int64  `json:"total_cases"`
	HighRisk   int64  `json:"high_risk"`
	MediumRisk int64  `json:"medium_risk"`
	LowRisk    int64  `json:"low_risk"`
	NoRisk     int64  `json:"no_risk"`
}

// ReportStatistics is the derived digest over a reporting window.
// It is rebuilt from the record set on every report request and never
// persisted.
type ReportStatistics struct {
	Window     Window `json:"window"`
	TotalCases int64  `json:"total_cases"`

	// RiskCounts and RiskPercentages always carry all four levels,
	// zero-filled when a bucket is empty.
	RiskCounts      map[RiskLevel]int64   `json:"risk_counts"`
	RiskPercentages map[RiskLevel]float64 `json:"risk_percentages"`

	TotalDeposits    int64   `json:"total_deposits"`
	TotalWithdrawals int64   `json:"total_withdrawals"`
	TotalFeesPaid    float64 `json:"total_fees_paid"`

	PerRiskFinancials map[RiskLevel]RiskFinancials `json:"per_risk_financials"`

	// PaymentUsage is keyed only by the payment methods actually observed.
	PaymentUsage map[string]float64 `json:"payment_usage"`

	Countries []CountryBreakdown `json:"country_breakdown"`

	// Earliest and latest detection instants, already converted to the
	// reporting time zone.
	EarliestDetection time.Time `json:"earliest_detection"`
	LatestDetection   time.Time `json:"latest_detection"`
}
