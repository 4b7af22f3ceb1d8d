// Package narrative builds prompts for the external text-generation
// collaborator and post-processes what comes back.
package narrative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05"

// summaryInstructions precede the transaction details in every
// single-case summary prompt. The generator must keep the assigned risk
// level untouched and stay within roughly thirty words; these are
// instructions to the collaborator, not constraints the engine verifies.
const summaryInstructions = `You are a trading fraud analyst. Your task is to summarize the rationale behind the assigned fraud risk level based on the provided transaction details.

### Instructions:
- Do not alter the assigned Risk Level. Use the exact value in Risk Level.
- Do not introduce new risk assessments.
- The summary must be clear, professional, and limited to 30 words.
- Avoid "I" statements. Ensure neutrality and factual accuracy.
`

const summaryGuidelines = `### Fraud Risk Summary Guidelines:
- High Risk: Large deposits with minimal trading, rapid withdrawals, or unusual patterns suggest potential illicit activity, requiring immediate account restrictions.
- Medium Risk: Irregular trading patterns, inconsistent withdrawals, or high-risk payment methods indicate moderate risk, necessitating further review.
- Low Risk: Minor anomalies in deposit or withdrawal behavior suggest low fraud likelihood, though periodic monitoring is advised.
- No Risk: Transaction patterns are consistent with normal trading behavior, showing no anomalies or risks, requiring no further action.
`

// SummaryPrompt renders the single-transaction summary prompt.
// Identical cases always yield identical prompt text.
func SummaryPrompt(c *domain.FraudCase) string {
	var b strings.Builder
	b.WriteString(summaryInstructions)
	b.WriteString("\n### Transaction Details:\n")
	fmt.Fprintf(&b, "- Country: %s\n", c.Country)
	fmt.Fprintf(&b, "- Account Type: %s\n", c.AccountType)
	fmt.Fprintf(&b, "- Deposit Amount: %d\n", c.DepositAmount)
	fmt.Fprintf(&b, "- Withdrawal Amount: %d\n", c.WithdrawalAmount)
	fmt.Fprintf(&b, "- Number of Trades: %d\n", c.NumTrades)
	fmt.Fprintf(&b, "- Average Trade Amount: %d\n", c.AvgTradeAmount)
	fmt.Fprintf(&b, "- Trade Duration: %d\n", c.TradeDuration)
	fmt.Fprintf(&b, "- Total Profit: %d\n", c.TotalProfit)
	fmt.Fprintf(&b, "- Fees Paid: %.2f\n", c.FeesPaid)
	fmt.Fprintf(&b, "- Payment Method: %s\n", c.PaymentMethod)
	fmt.Fprintf(&b, "- Risk Level: %s\n", c.RiskLevel)
	b.WriteString("\n")
	b.WriteString(summaryGuidelines)
	return b.String()
}

// ReportPrompt renders the full-window report prompt embedding every
// derived metric plus the six narrative sections the generator is
// instructed to produce in order.
func ReportPrompt(stats *domain.ReportStatistics, window domain.Window) string {
	var b strings.Builder

	b.WriteString("You are a fraud detection analyst. Your task is to generate a detailed fraud report strictly based on the provided database records. The report should focus on presenting recorded data accurately without assumptions.\n\n")

	// The window end is exclusive, so the header shows the last covered day.
	fmt.Fprintf(&b, "## Trading Fraud Report: %s - %s\n", window.Start.Format("2006-01-02"), window.End.AddDate(0, 0, -1).Format("2006-01-02"))
	b.WriteString("This section provides an overview of the transactions analyzed during the specified period.\n\n")
	fmt.Fprintf(&b, "- Total Transactions: %d\n", stats.TotalCases)
	fmt.Fprintf(&b, "- Earliest Recorded Detection: %s\n", stats.EarliestDetection.Format(timestampLayout))
	fmt.Fprintf(&b, "- Latest Recorded Detection: %s\n\n", stats.LatestDetection.Format(timestampLayout))
	b.WriteString("Describe the volume of transactions observed and any notable patterns in the detection timestamps.\n\n")

	b.WriteString("## 1. Risk Level Breakdown\n")
	b.WriteString("Provide a detailed breakdown of fraud risk levels.\n\n")
	b.WriteString("| Risk Level | Number of Cases |\n|---|---|\n")
	for _, level := range domain.RiskLevels {
		fmt.Fprintf(&b, "| %s | %d |\n", level, stats.RiskCounts[level])
	}
	b.WriteString("\nDiscuss trends in fraud risk levels, whether certain levels were more prevalent than others, and any patterns for high or medium-risk cases.\n\n")

	b.WriteString("## 2. Financial Transactions Breakdown\n")
	b.WriteString("Provide a detailed financial impact report for the transactions recorded.\n\n")
	b.WriteString("| Category | Total Amount (USD) |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total Deposits | $%s |\n", formatUSD(float64(stats.TotalDeposits)))
	fmt.Fprintf(&b, "| Total Withdrawals | $%s |\n", formatUSD(float64(stats.TotalWithdrawals)))
	fmt.Fprintf(&b, "| Total Fees Paid | $%s |\n\n", formatUSD(stats.TotalFeesPaid))
	b.WriteString("For each risk level, analyze the total financial amounts:\n\n")
	b.WriteString("| Risk Level | Total Deposits (USD) | Total Withdrawals (USD) |\n|---|---|---|\n")
	for _, level := range domain.RiskLevels {
		fin := stats.PerRiskFinancials[level]
		fmt.Fprintf(&b, "| %s | $%s | $%s |\n", level, formatUSD(float64(fin.Deposits)), formatUSD(float64(fin.Withdrawals)))
	}
	b.WriteString("\nDiscuss the financial trends across risk levels, any discrepancies between deposits and withdrawals, and whether high-risk transactions had unusual financial patterns.\n\n")

	b.WriteString("## 3. Payment Method Usage Analysis\n")
	b.WriteString("Detail how different payment methods were utilized.\n\n")
	b.WriteString("| Payment Method | Usage Percentage (%) |\n|---|---|\n")
	for _, method := range sortedKeys(stats.PaymentUsage) {
		fmt.Fprintf(&b, "| %s | %.2f |\n", method, stats.PaymentUsage[method])
	}
	b.WriteString("\nDiscuss which payment methods were most commonly used, whether high-risk transactions were associated with specific methods, and any anomalies in the distribution.\n\n")

	b.WriteString("## 4. Country-Wise Fraud Distribution\n")
	b.WriteString("Analyze fraud cases across different countries.\n\n")
	b.WriteString("| Country | Total Cases | High-Risk | Medium-Risk | Low-Risk | No-Risk |\n|---|---|---|---|---|---|\n")
	for _, cb := range stats.Countries {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d |\n", cb.Country, cb.TotalCases, cb.HighRisk, cb.MediumRisk, cb.LowRisk, cb.NoRisk)
	}
	b.WriteString("\nDiscuss which countries had the highest fraud cases, whether any regions exhibited higher fraud risk, and any geographic patterns.\n\n")

	b.WriteString("## 5. Detailed Fraudulent Transaction Patterns\n")
	b.WriteString("Examine transaction behaviors observed in fraudulent cases.\n\n")
	b.WriteString("High-Risk Transactions\n- Were large deposits followed by immediate withdrawals?\n- Did multiple accounts share the same payment method?\n- Were trading volumes abnormally low compared to deposits?\n\n")
	b.WriteString("Medium-Risk Transactions\n- Were irregular withdrawal patterns observed?\n- Did transactions involve high-risk payment methods?\n\n")
	b.WriteString("Low-Risk Transactions\n- Did any inconsistencies appear in deposit-to-withdrawal ratios?\n- Were small anomalies detected in trading behaviors?\n\n")
	b.WriteString("No-Risk Transactions\n- Were deposits and withdrawals stable?\n- Did these transactions align with normal trading activity?\n\n")
	b.WriteString("Ensure all details are strictly derived from recorded transactions.\n\n")

	b.WriteString("## 6. Key Findings and Transactional Insights\n")
	b.WriteString("Provide a comprehensive breakdown of key fraud trends. Example:\n")
	fmt.Fprintf(&b, "- High-Risk Transactions: %.2f%% of transactions were high risk.\n", stats.RiskPercentages[domain.RiskHigh])
	b.WriteString("- Common Fraud Patterns: Discuss trends from observed transactions.\n")
	b.WriteString("- Frequently Used Payment Methods in Fraudulent Cases: Identify which payment methods were commonly involved in fraud.\n")
	b.WriteString("- Fraud Distribution by Country: Highlight key countries with elevated fraud cases.\n\n")
	b.WriteString("Write this in formal business language, ensuring accuracy without speculation.\n")

	return b.String()
}

// formatUSD renders an amount with thousands separators and two decimals.
func formatUSD(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteString(fracPart)
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
