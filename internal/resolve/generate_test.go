package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/schema"
)

// scriptedCompleter returns canned responses in order and records every
// prompt it was given.
type scriptedCompleter struct {
	responses []string
	err       error
	calls     int
	systems   []string
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, system string, messages []llm.Message) (string, error) {
	s.calls++
	s.systems = append(s.systems, system)
	if len(messages) > 0 {
		s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	}
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

var ordersHandle = schema.TableHandle{
	Name: "orders",
	Columns: []schema.Column{
		{Name: "region", Type: "VARCHAR"},
		{Name: "amount", Type: "INTEGER"},
	},
	SampleRows: [][]any{{"north", 10}},
}

func TestGenerateStripsFenceAndTrailingSemicolon(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"```sql\nSELECT region FROM orders;\n```"}}
	generator := NewGenerator(completer)

	got, err := generator.Generate(context.Background(), "regions?", nil, []schema.TableHandle{ordersHandle}, "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "SELECT region FROM orders" {
		t.Fatalf("Generate() = %q", got)
	}
}

func TestGenerateIncludesSchemaAndFeedback(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"SELECT 1"}}
	generator := NewGenerator(completer)

	_, err := generator.Generate(context.Background(), "regions?", nil, []schema.TableHandle{ordersHandle}, "column amont does not exist")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	prompt := completer.prompts[0]
	if !strings.Contains(prompt, `"orders"`) {
		t.Fatalf("prompt missing schema context: %q", prompt)
	}
	if !strings.Contains(prompt, "column amont does not exist") {
		t.Fatalf("prompt missing rejection feedback: %q", prompt)
	}
}

func TestGenerateCarriesHistoryAsMessages(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"SELECT 1"}}
	generator := NewGenerator(completer)
	history := []Turn{{Question: "first question", Answer: "first answer"}}

	if _, err := generator.Generate(context.Background(), "follow-up", history, nil, ""); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGenerateRejectsEmptyOutput(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"   "}}
	generator := NewGenerator(completer)

	_, err := generator.Generate(context.Background(), "q", nil, nil, "")
	var malformed *MalformedGenerationError
	if !errors.As(err, &malformed) {
		t.Fatalf("error type = %T", err)
	}
}

func TestGenerateRejectsMultipleStatements(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"SELECT 1; DROP TABLE orders"}}
	generator := NewGenerator(completer)

	_, err := generator.Generate(context.Background(), "q", nil, nil, "")
	var malformed *MalformedGenerationError
	if !errors.As(err, &malformed) {
		t.Fatalf("error type = %T", err)
	}
	if malformed.Reason != "multiple statements" {
		t.Fatalf("Reason = %q", malformed.Reason)
	}
}

func TestGenerateSurfacesOracleFailure(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("model offline")}
	generator := NewGenerator(completer)

	if _, err := generator.Generate(context.Background(), "q", nil, nil, ""); err == nil {
		t.Fatal("expected oracle error")
	}
}
