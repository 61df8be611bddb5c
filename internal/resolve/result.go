// Package resolve turns a natural-language question into an answer: it
// routes the question, drives SQL generation and validation, executes
// against the analytical engine, and optionally attaches a chart.
package resolve

import (
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/viz"
)

// Kind tags the variant a PipelineResult carries.
type Kind string

const (
	KindPlainText Kind = "plain_text"
	KindTable     Kind = "table"
	KindChart     Kind = "chart"
	KindError     Kind = "error"
)

// PipelineResult is the single output of one resolution turn. Exactly
// one variant applies: plain text, query plus table, query plus table
// plus chart, or an error message. Raw always holds the protocol text
// the result was composed from, so callers can re-parse or display it.
type PipelineResult struct {
	Kind  Kind             `json:"kind"`
	Text  string           `json:"text,omitempty"`
	SQL   string           `json:"sql,omitempty"`
	Table *query.ResultSet `json:"table,omitempty"`
	Chart *viz.Figure      `json:"chart,omitempty"`
	Raw   string           `json:"raw,omitempty"`
}

// IsError reports whether the turn failed.
func (r PipelineResult) IsError() bool {
	return r.Kind == KindError
}

func plainText(text string) PipelineResult {
	return PipelineResult{Kind: KindPlainText, Text: text, Raw: text}
}

func errorResult(message string) PipelineResult {
	return PipelineResult{Kind: KindError, Text: message, Raw: message}
}
