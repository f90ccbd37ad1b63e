package console

import (
	"context"
	"fmt"

	"github.com/chazu/qconsole/query"
)

// SplitStatements splits the editor text into the statements to run.
func SplitStatements(text string) ([]query.Statement, error) {
	return query.Split(text)
}

// Evaluator runs one statement against a backend.
type Evaluator interface {
	Evaluate(ctx context.Context, stmt query.Statement) (any, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, stmt query.Statement) (any, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, stmt query.Statement) (any, error) {
	return f(ctx, stmt)
}

// StatementResult is the outcome of one statement.
type StatementResult struct {
	Statement query.Statement
	Value     any
	Err       error
}

// EvaluateEach splits text and evaluates the statements in order, stopping
// at the first one that fails. The failing statement is the last result. A
// split error is returned before anything runs.
func EvaluateEach(ctx context.Context, text string, ev Evaluator) ([]StatementResult, error) {
	stmts, err := SplitStatements(text)
	if err != nil {
		return nil, err
	}

	results := make([]StatementResult, 0, len(stmts))
	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		value, err := evaluate(ctx, ev, stmt)
		results = append(results, StatementResult{Statement: stmt, Value: value, Err: err})
		if err != nil {
			log.Infof("statement %d of %d failed at line %d: %s", i+1, len(stmts), stmt.Line, err)
			return results, fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return results, nil
}

func evaluate(ctx context.Context, ev Evaluator, stmt query.Statement) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panic: %v", r)
		}
	}()
	return ev.Evaluate(ctx, stmt)
}
