// Package domain defines the core types and interfaces for Kestrel.
package domain

import (
	"time"
)

// RiskLevel is the severity bucket assigned to a fraud case.
// The set is closed: any other literal in storage is a data-integrity fault.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High Risk"
	RiskMedium RiskLevel = "Medium Risk"
	RiskLow    RiskLevel = "Low Risk"
	RiskNone   RiskLevel = "No Risk"
)

// RiskLevels lists all valid levels in descending severity order.
// Percentage tables and zero-filled counters iterate this slice so the
// four buckets always appear, even when empty.
var RiskLevels = []RiskLevel{RiskHigh, RiskMedium, RiskLow, RiskNone}

// Valid reports whether the level is one of the four enumerated buckets.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskHigh, RiskMedium, RiskLow, RiskNone:
		return true
	}
	return false
}

// FraudCase is one classified transaction event: the input features the
// classifier saw plus the risk level it assigned.
type FraudCase struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"client_id"`
	Country          string    `json:"country"`
	AccountType      string    `json:"account_type"`
	DepositAmount    int64     `json:"deposit_amount"`
	WithdrawalAmount int64     `json:"withdrawal_amount"`
	NumTrades        int64     `json:"num_trades"`
	AvgTradeAmount   int64     `json:"avg_trade_amount"`
	TradeDuration    int64     `json:"trade_duration"`
	TotalProfit      int64     `json:"total_profit"`
	FeesPaid         float64   `json:"fees_paid"`
	PaymentMethod    string    `json:"payment_method"`
	RiskLevel        RiskLevel `json:"risk_level"`

	// DetectionTimestamp carries the instant the classification was made,
	// stamped in the reporting time zone.
	DetectionTimestamp time.Time `json:"detection_timestamp"`
}

// CaseFeatures is the classifier input: a fraud case minus its client
// identity and assigned risk level.
type CaseFeatures struct {
	Country          string  `json:"country"`
	AccountType      string  `json:"account_type"`
	DepositAmount    int64   `json:"deposit_amount"`
	WithdrawalAmount int64   `json:"withdrawal_amount"`
	NumTrades        int64   `json:"num_trades"`
	AvgTradeAmount   int64   `json:"avg_trade_amount"`
	TradeDuration    int64   `json:"trade_duration"`
	TotalProfit      int64   `json:"total_profit"`
	FeesPaid         float64 `json:"fees_paid"`
	PaymentMethod    string  `json:"payment_method"`
}

// Features extracts the classifier input from a case.
func (c *FraudCase) Features() *CaseFeatures {
	return &CaseFeatures{
		Country:          c.Country,
		AccountType:      c.AccountType,
		DepositAmount:    c.DepositAmount,
		WithdrawalAmount: c.WithdrawalAmount,
		NumTrades:        c.NumTrades,
		AvgTradeAmount:   c.AvgTradeAmount,
		TradeDuration:    c.TradeDuration,
		TotalProfit:      c.TotalProfit,
		FeesPaid:         c.FeesPaid,
		PaymentMethod:    c.PaymentMethod,
	}
}
