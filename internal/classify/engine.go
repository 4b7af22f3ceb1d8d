// Package classify provides the CEL-Go based risk classifier.
//
// The trained model behind the /predict endpoint is an external
// collaborator; this engine is the shipped implementation of that seam: a
// severity ladder of CEL expressions evaluated against the case features,
// first match wins, no match is No Risk.
package classify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine is the CEL-based classifier.
type Engine struct {
	mu    sync.RWMutex
	env   *cel.Env
	rules []compiledRule
}

type compiledRule struct {
	level      domain.RiskLevel
	expression string
	program    cel.Program
}

// NewEngine creates a classifier and loads the configured rule ladder.
func NewEngine(cfg domain.ClassifierConfig) (*Engine, error) {
	// CEL environment exposing the case features. client_id is
	// deliberately absent: identity must not influence classification.
	env, err := cel.NewEnv(
		cel.Variable("country", cel.StringType),
		cel.Variable("account_type", cel.StringType),
		cel.Variable("payment_method", cel.StringType),
		cel.Variable("deposit_amount", cel.IntType),
		cel.Variable("withdrawal_amount", cel.IntType),
		cel.Variable("num_trades", cel.IntType),
		cel.Variable("avg_trade_amount", cel.IntType),
		cel.Variable("trade_duration", cel.IntType),
		cel.Variable("total_profit", cel.IntType),
		cel.Variable("fees_paid", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{env: env}

	rules := cfg.Rules
	if len(rules) == 0 {
		rules = domain.DefaultClassifierRules()
	}
	if err := e.LoadRules(rules); err != nil {
		return nil, err
	}

	return e, nil
}

// LoadRules compiles and installs a new rule ladder, replacing the
// current one. Order is significant: rules are evaluated top to bottom.
func (e *Engine) LoadRules(rules []domain.ClassifierRule) error {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		cr, err := e.compile(rule)
		if err != nil {
			return err
		}
		compiled = append(compiled, cr)
	}

	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	return nil
}

func (e *Engine) compile(rule domain.ClassifierRule) (compiledRule, error) {
	if !rule.Level.Valid() {
		return compiledRule{}, fmt.Errorf("classifier rule assigns invalid level %q", rule.Level)
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return compiledRule{}, fmt.Errorf("failed to compile expression %q: %w", rule.Expression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return compiledRule{}, fmt.Errorf("expression %q must produce bool, got %s", rule.Expression, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return compiledRule{}, fmt.Errorf("failed to build program for %q: %w", rule.Expression, err)
	}

	return compiledRule{level: rule.Level, expression: rule.Expression, program: program}, nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Classify evaluates the ladder against the features and returns the
// level of the first matching rule, or No Risk when nothing matches.
func (e *Engine) Classify(ctx context.Context, f *domain.CaseFeatures) (domain.RiskLevel, error) {
	if f == nil {
		return "", fmt.Errorf("case features are required")
	}

	activation := map[string]any{
		"country":           f.Country,
		"account_type":      f.AccountType,
		"payment_method":    f.PaymentMethod,
		"deposit_amount":    f.DepositAmount,
		"withdrawal_amount": f.WithdrawalAmount,
		"num_trades":        f.NumTrades,
		"avg_trade_amount":  f.AvgTradeAmount,
		"trade_duration":    f.TradeDuration,
		"total_profit":      f.TotalProfit,
		"fees_paid":         f.FeesPaid,
	}

	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	for _, rule := range rules {
		out, _, err := rule.program.ContextEval(ctx, activation)
		if err != nil {
			return "", fmt.Errorf("rule evaluation failed for %q: %w", rule.expression, err)
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return "", fmt.Errorf("rule %q produced non-bool result", rule.expression)
		}
		if matched {
			return rule.level, nil
		}
	}

	return domain.RiskNone, nil
}
