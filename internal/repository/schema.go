package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaFraudCases = `
CREATE TABLE IF NOT EXISTS fraud_cases (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    country TEXT NOT NULL,
    account_type TEXT NOT NULL,
    deposit_amount BIGINT NOT NULL,
    withdrawal_amount BIGINT NOT NULL,
    num_trades BIGINT NOT NULL,
    avg_trade_amount BIGINT NOT NULL,
    trade_duration BIGINT NOT NULL,
    total_profit BIGINT NOT NULL,
    fees_paid DOUBLE PRECISION NOT NULL,
    payment_method TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    detection_timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fraud_cases_client ON fraud_cases(client_id, detection_timestamp);
CREATE INDEX IF NOT EXISTS idx_fraud_cases_timestamp ON fraud_cases(detection_timestamp);
CREATE INDEX IF NOT EXISTS idx_fraud_cases_risk ON fraud_cases(risk_level);
`

// AllSchemas returns every schema statement in creation order.
func AllSchemas() []string {
	return []string{
		schemaFraudCases,
	}
}
