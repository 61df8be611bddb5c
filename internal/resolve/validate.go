package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/schema"
)

// RejectionError means the validator refused a candidate. The reason is
// fed back into the single regeneration attempt.
type RejectionError struct {
	SQL    string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("sql rejected: %s", e.Reason)
}

// Validator performs a model-assisted check of a generated candidate
// against the described schema. It returns the accepted statement,
// which may be a corrected version of the input.
type Validator struct {
	completer llm.Completer
}

func NewValidator(completer llm.Completer) *Validator {
	return &Validator{completer: completer}
}

const validateSystemPrompt = "You review a DuckDB SQL query against a schema. " +
	"If the query is valid, reply with exactly OK. " +
	"If it has a fixable mistake (wrong column name, missing qualifier, type mismatch), reply with the corrected SQL only. " +
	"If it cannot be fixed, reply with REJECT: followed by a short reason. " +
	"No markdown, no explanation beyond these forms."

// Validate returns the statement to execute, or a *RejectionError.
func (v *Validator) Validate(ctx context.Context, candidate string, tables []schema.TableHandle) (string, error) {
	tablesJSON, err := json.Marshal(tables)
	if err != nil {
		return "", fmt.Errorf("marshal schema context: %w", err)
	}
	prompt := fmt.Sprintf("Schema (JSON):\n%s\n\nQuery:\n%s", tablesJSON, candidate)

	raw, err := v.completer.Complete(ctx, validateSystemPrompt, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("validate sql: %w", err)
	}

	verdict := strings.TrimSpace(llm.StripCodeFence(raw))
	switch {
	case verdict == "OK":
		return candidate, nil
	case strings.HasPrefix(verdict, "REJECT:"):
		observability.IncrementValidatorRejection()
		reason := strings.TrimSpace(strings.TrimPrefix(verdict, "REJECT:"))
		if reason == "" {
			reason = "no reason given"
		}
		return "", &RejectionError{SQL: candidate, Reason: reason}
	case verdict == "":
		observability.IncrementValidatorRejection()
		return "", &RejectionError{SQL: candidate, Reason: "validator returned empty verdict"}
	default:
		// Corrected statement.
		return strings.TrimSuffix(verdict, ";"), nil
	}
}

// BlockedStatementError means the static read-only gate refused to
// execute a validated candidate.
type BlockedStatementError struct {
	SQL    string
	Reason string
}

func (e *BlockedStatementError) Error() string {
	return fmt.Sprintf("statement blocked: %s", e.Reason)
}

// EnsureReadOnly is the static gate in front of the executor: only
// SELECT or WITH statements pass, and every table referenced after FROM
// or JOIN must be in the introspected allow-list. It runs after the
// model-assisted validator, which is advisory rather than a guarantee.
func EnsureReadOnly(sql string, allowedTables []string) error {
	trimmed := strings.TrimSpace(sql)
	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) == 0 {
		return &BlockedStatementError{SQL: sql, Reason: "empty statement"}
	}
	if fields[0] != "select" && fields[0] != "with" {
		return &BlockedStatementError{SQL: sql, Reason: fmt.Sprintf("only read statements are executed, got %q", fields[0])}
	}

	allowed := make(map[string]struct{}, len(allowedTables))
	for _, name := range allowedTables {
		allowed[strings.ToLower(name)] = struct{}{}
	}
	// CTE names introduced by WITH are legitimate FROM targets. Any
	// token preceding AS is treated as such a name; table aliases
	// picked up this way are harmless extras.
	for i, field := range fields {
		if field == "as" && i > 0 {
			allowed[strings.Trim(fields[i-1], `"(),`)] = struct{}{}
		}
	}

	for i, field := range fields {
		switch field {
		case "join":
			if i+1 < len(fields) {
				if err := checkGateTarget(sql, fields[i+1], allowed); err != nil {
					return err
				}
			}
		case "from":
			// A FROM clause may name several comma-separated tables,
			// each optionally aliased. Every name in the list is
			// checked, not just the first.
			expect := true
			for j := i + 1; j < len(fields); j++ {
				token := fields[j]
				if token == "," {
					expect = true
					continue
				}
				if _, stop := fromClauseEnd[token]; stop {
					break
				}
				if expect {
					if err := checkGateTarget(sql, token, allowed); err != nil {
						return err
					}
					expect = false
				}
				if strings.HasSuffix(token, ",") {
					expect = true
				}
			}
		}
	}
	return nil
}

// fromClauseEnd holds keywords that terminate a FROM table list.
var fromClauseEnd = map[string]struct{}{
	"where": {}, "join": {}, "left": {}, "right": {}, "inner": {},
	"outer": {}, "full": {}, "cross": {}, "natural": {}, "group": {},
	"order": {}, "limit": {}, "having": {}, "union": {}, "intersect": {},
	"except": {}, "qualify": {}, "window": {},
}

func checkGateTarget(sql, token string, allowed map[string]struct{}) error {
	if strings.HasPrefix(token, "(") {
		return nil // subquery
	}
	target := strings.Trim(token, `"(),;`)
	if target == "" {
		return nil
	}
	if _, ok := allowed[target]; !ok {
		return &BlockedStatementError{SQL: sql, Reason: fmt.Sprintf("table %q is not in the introspected schema", target)}
	}
	return nil
}
