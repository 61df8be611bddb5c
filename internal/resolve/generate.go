package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/schema"
)

// MalformedGenerationError reports oracle output that could not be read
// as a single SQL statement. The pipeline never tries partial recovery.
type MalformedGenerationError struct {
	Output string
	Reason string
}

func (e *MalformedGenerationError) Error() string {
	return fmt.Sprintf("malformed generation: %s", e.Reason)
}

// Generator asks the oracle for a SQL statement answering the question
// against the described tables.
type Generator struct {
	completer llm.Completer
}

func NewGenerator(completer llm.Completer) *Generator {
	return &Generator{completer: completer}
}

const generateSystemPrompt = "You convert natural language analytics questions into a single DuckDB SQL query. " +
	"DuckDB uses PostgreSQL-like SQL syntax. " +
	"Use only the tables and columns in the provided schema context. " +
	"Return ONLY SQL. No markdown, no explanation."

// Generate produces a SQL candidate. History turns give the oracle
// conversational context; feedback, when non-empty, carries a validator
// rejection reason for the single bounded retry.
func (g *Generator) Generate(ctx context.Context, question string, history []Turn, tables []schema.TableHandle, feedback string) (string, error) {
	tablesJSON, err := json.Marshal(tables)
	if err != nil {
		return "", fmt.Errorf("marshal schema context: %w", err)
	}

	var messages []llm.Message
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: "user", Content: turn.Question},
			llm.Message{Role: "assistant", Content: turn.Answer},
		)
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Schema and sample context (JSON):\n%s\n\nQuestion:\n%s\n", tablesJSON, question)
	prompt.WriteString("\nRules:\n- Use only listed tables and columns.\n- Prefer explicit column lists over SELECT *.\n- Output a single SQL query only.\n")
	if feedback != "" {
		fmt.Fprintf(&prompt, "\nA previous attempt was rejected: %s\nProduce a corrected query.\n", feedback)
	}
	messages = append(messages, llm.Message{Role: "user", Content: prompt.String()})

	raw, err := g.completer.Complete(ctx, generateSystemPrompt, messages)
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	return parseCandidate(raw)
}

// parseCandidate normalizes oracle output into one SQL statement.
func parseCandidate(raw string) (string, error) {
	candidate := strings.TrimSpace(llm.StripCodeFence(raw))
	candidate = strings.TrimSuffix(candidate, ";")
	if candidate == "" {
		return "", &MalformedGenerationError{Output: raw, Reason: "empty output"}
	}
	if strings.Contains(candidate, ";") {
		return "", &MalformedGenerationError{Output: raw, Reason: "multiple statements"}
	}
	return candidate, nil
}
