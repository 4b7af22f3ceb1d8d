// Benchmark tool for testing Kestrel against labeled fraud case data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/cases.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled case data (features plus expected risk level)
//   2. Sends each case to Kestrel for classification
//   3. Compares Kestrel's risk level with the expected label
//   4. Calculates per-level accuracy and High Risk precision/recall
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledCase represents a row from the benchmark dataset.
type LabeledCase struct {
	ClientID         string
	Country          string
	AccountType      string
	DepositAmount    int64
	WithdrawalAmount int64
	NumTrades        int64
	AvgTradeAmount   int64
	TradeDuration    int64
	TotalProfit      int64
	FeesPaid         float64
	PaymentMethod    string
	ExpectedLevel    string
}

// PredictRequest is the Kestrel API request format.
type PredictRequest struct {
	ClientID         string  `json:"client_id"`
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

// PredictResponse is the Kestrel API response format.
type PredictResponse struct {
	CaseID    string `json:"case_id"`
	RiskLevel string `json:"risk_level"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	ExactMatches int64

	// High Risk confusion matrix
	TruePositives  int64 // labeled High Risk, classified High Risk
	FalsePositives int64 // labeled other, classified High Risk
	TrueNegatives  int64 // labeled other, classified other
	FalseNegatives int64 // labeled High Risk, classified other

	TotalProcessed int64
	TotalHighRisk  int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled case CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	limit := flag.Int("limit", 10000, "Maximum cases to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each case result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/cases.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("KESTREL BENCHMARK - Fraud Case Classification")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Kestrel URL: %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("Kestrel is healthy")

	// Read labeled data
	fmt.Printf("\nReading cases from %s...\n", *csvPath)
	cases, err := readCaseCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d cases\n", len(cases))

	highRisk := 0
	for _, c := range cases {
		if c.ExpectedLevel == "High Risk" {
			highRisk++
		}
	}
	fmt.Printf("  - High Risk: %d (%.2f%%)\n", highRisk, 100*float64(highRisk)/float64(len(cases)))
	fmt.Printf("  - Other:     %d (%.2f%%)\n", len(cases)-highRisk, 100*float64(len(cases)-highRisk)/float64(len(cases)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(cases, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readCaseCSV(path string, limit int) ([]LabeledCase, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var cases []LabeledCase

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		intCol := func(name string) int64 {
			v, _ := strconv.ParseInt(record[colIndex[name]], 10, 64)
			return v
		}
		floatCol := func(name string) float64 {
			v, _ := strconv.ParseFloat(record[colIndex[name]], 64)
			return v
		}

		c := LabeledCase{
			ClientID:         record[colIndex["client_id"]],
			Country:          record[colIndex["country"]],
			AccountType:      record[colIndex["account_type"]],
			DepositAmount:    intCol("deposit_amount"),
			WithdrawalAmount: intCol("withdrawal_amount"),
			NumTrades:        intCol("num_trades"),
			AvgTradeAmount:   intCol("avg_trade_amount"),
			TradeDuration:    intCol("trade_duration"),
			TotalProfit:      intCol("total_profit"),
			FeesPaid:         floatCol("fees_paid"),
			PaymentMethod:    record[colIndex["payment_method"]],
			ExpectedLevel:    record[colIndex["risk_level"]],
		}

		cases = append(cases, c)

		if limit > 0 && len(cases) >= limit {
			break
		}
	}

	return cases, nil
}

func runBenchmark(cases []LabeledCase, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan LabeledCase, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for c := range work {
				start := time.Now()
				result, err := predictCase(client, baseURL, c)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", c.ClientID, err)
					}
					continue
				}

				expected := c.ExpectedLevel == "High Risk"
				predicted := result.RiskLevel == "High Risk"

				if expected {
					atomic.AddInt64(&metrics.TotalHighRisk, 1)
				}
				if result.RiskLevel == c.ExpectedLevel {
					atomic.AddInt64(&metrics.ExactMatches, 1)
				}

				if predicted && expected {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !expected {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !expected {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else {
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "ok"
					if result.RiskLevel != c.ExpectedLevel {
						status = "MISS"
					}
					fmt.Printf("%-4s %-12s | expected: %-11s | got: %-11s | deposit: %d\n",
						status, c.ClientID, c.ExpectedLevel, result.RiskLevel, c.DepositAmount)
				}
			}
		}()
	}

	for _, c := range cases {
		work <- c
	}
	close(work)

	wg.Wait()

	return metrics
}

func predictCase(client *http.Client, baseURL string, c LabeledCase) (*PredictResponse, error) {
	req := PredictRequest{
		ClientID:         c.ClientID,
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

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")

	fmt.Printf("\nDATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total High Risk:  %d\n", m.TotalHighRisk)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nHIGH RISK CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    High       Other")
	fmt.Printf("   Actual  High  %8d   %8d   (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Printf("          Other  %8d   %8d   (FP, TN)\n", m.FalsePositives, m.TrueNegatives)

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	exactAccuracy := float64(0)
	graded := m.TotalProcessed - m.TotalErrors
	if graded > 0 {
		exactAccuracy = float64(m.ExactMatches) / float64(graded)
	}

	fmt.Printf("\nDETECTION METRICS\n")
	fmt.Printf("   Precision:       %.4f  (of High Risk predictions, how many were labeled High Risk)\n", precision)
	fmt.Printf("   Recall:          %.4f  (of labeled High Risk, how many were caught)\n", recall)
	fmt.Printf("   F1-Score:        %.4f\n", f1)
	fmt.Printf("   Exact Accuracy:  %.4f  (all four levels matched exactly)\n", exactAccuracy)

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f cases/sec\n", tps)
	}

	fmt.Println()
}
