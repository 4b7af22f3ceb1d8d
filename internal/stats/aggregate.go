// Package stats derives report statistics from fraud-case records.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Aggregate computes the statistics digest for the cases falling inside
// the half-open window. It is a pure function of its inputs: the same
// record set and window always produce the same digest.
//
// Cases outside the window are ignored. An empty window yields
// EmptyWindowError; a case with a risk level outside the enumeration
// yields DataIntegrityError rather than being bucketed or dropped.
func Aggregate(cases []*domain.FraudCase, window domain.Window, loc *time.Location) (*domain.ReportStatistics, error) {
	if loc == nil {
		loc = time.UTC
	}

	var selected []*domain.FraudCase
	for _, c := range cases {
		if window.Contains(c.DetectionTimestamp) {
			selected = append(selected, c)
		}
	}

	if len(selected) == 0 {
		return nil, &domain.EmptyWindowError{Window: window}
	}

	stats := &domain.ReportStatistics{
		Window:            window,
		TotalCases:        int64(len(selected)),
		RiskCounts:        make(map[domain.RiskLevel]int64, len(domain.RiskLevels)),
		RiskPercentages:   make(map[domain.RiskLevel]float64, len(domain.RiskLevels)),
		PerRiskFinancials: make(map[domain.RiskLevel]domain.RiskFinancials, len(domain.RiskLevels)),
		PaymentUsage:      make(map[string]float64),
	}

	// Zero-fill the four buckets so every level appears even when empty.
	for _, level := range domain.RiskLevels {
		stats.RiskCounts[level] = 0
		stats.PerRiskFinancials[level] = domain.RiskFinancials{}
	}

	paymentCounts := make(map[string]int64)
	countryIndex := make(map[string]*domain.CountryBreakdown)

	var earliest, latest time.Time
	for i, c := range selected {
		if !c.RiskLevel.Valid() {
			return nil, &domain.DataIntegrityError{CaseID: c.ID, Value: string(c.RiskLevel)}
		}

		stats.RiskCounts[c.RiskLevel]++
		stats.TotalDeposits += c.DepositAmount
		stats.TotalWithdrawals += c.WithdrawalAmount
		stats.TotalFeesPaid += c.FeesPaid

		fin := stats.PerRiskFinancials[c.RiskLevel]
		fin.Deposits += c.DepositAmount
		fin.Withdrawals += c.WithdrawalAmount
		stats.PerRiskFinancials[c.RiskLevel] = fin

		paymentCounts[c.PaymentMethod]++

		// Countries group on the exact stored string. "USA" and "usa"
		// land in separate buckets; matching the stored data is the
		// contract here, not normalizing it.
		cb, ok := countryIndex[c.Country]
		if !ok {
			cb = &domain.CountryBreakdown{Country: c.Country}
			countryIndex[c.Country] = cb
		}
		cb.TotalCases++
		switch c.RiskLevel {
		case domain.RiskHigh:
			cb.HighRisk++
		case domain.RiskMedium:
			cb.MediumRisk++
		case domain.RiskLow:
			cb.LowRisk++
		case domain.RiskNone:
			cb.NoRisk++
		}

		// Min/max compare on the converted reporting-time-zone instant so
		// ordering holds across storage-zone boundaries.
		converted := c.DetectionTimestamp.In(loc)
		if i == 0 || converted.Before(earliest) {
			earliest = converted
		}
		if i == 0 || converted.After(latest) {
			latest = converted
		}
	}

	for _, level := range domain.RiskLevels {
		stats.RiskPercentages[level] = percentage(stats.RiskCounts[level], stats.TotalCases)
	}
	for method, count := range paymentCounts {
		stats.PaymentUsage[method] = percentage(count, stats.TotalCases)
	}

	// Sorted for deterministic output across calls.
	countries := make([]domain.CountryBreakdown, 0, len(countryIndex))
	for _, cb := range countryIndex {
		countries = append(countries, *cb)
	}
	sort.Slice(countries, func(i, j int) bool {
		return countries[i].Country < countries[j].Country
	})
	stats.Countries = countries

	stats.EarliestDetection = earliest
	stats.LatestDetection = latest

	return stats, nil
}

// percentage returns count/total*100 rounded to two decimals, and 0 when
// total is zero.
func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*100*100) / 100
}
