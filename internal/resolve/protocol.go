package resolve

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/viz"
)

// The pipeline and its callers exchange results as marker-tagged text:
//
//	QUERY: <single SQL statement>
//	RESULTS: <rows, one per line, fields separated by ';'>
//
// and, for chart-bearing turns, an analysis block:
//
//	ANALYSIS: <free text>
//	VISUALIZATION:
//	TYPE: <chart type>
//	X_AXIS: <column>
//	Y_AXIS: <column>      (optional)
//	TITLE: <title>
//	QUERY: <SQL used for the chart>
//
// The pipeline composes this text itself from structured values, so a
// well-formed turn always parses back. ParseResult stays total anyway:
// text without both QUERY: and RESULTS: markers is plain text.

const (
	markerQuery         = "QUERY:"
	markerResults       = "RESULTS:"
	markerAnalysis      = "ANALYSIS:"
	markerVisualization = "VISUALIZATION:"
	markerType          = "TYPE:"
	markerXAxis         = "X_AXIS:"
	markerYAxis         = "Y_AXIS:"
	markerTitle         = "TITLE:"
)

// ComposeQueryResults serializes an executed query and its rows into
// protocol text. Fields are ';'-separated because values may contain
// commas.
func ComposeQueryResults(sql string, rs *query.ResultSet) string {
	var b strings.Builder
	b.WriteString(markerQuery)
	b.WriteString(" ")
	b.WriteString(sql)
	b.WriteString("\n")
	b.WriteString(markerResults)
	b.WriteString(" ")
	for i, row := range rs.Rows {
		if i > 0 {
			b.WriteString("\n")
		}
		for j, value := range row {
			if j > 0 {
				b.WriteString(";")
			}
			b.WriteString(fmt.Sprint(value))
		}
	}
	return b.String()
}

// ComposeAnalysis serializes the analysis text and chart directive.
func ComposeAnalysis(analysis string, spec viz.Spec) string {
	var b strings.Builder
	b.WriteString(markerAnalysis)
	b.WriteString(" ")
	b.WriteString(analysis)
	b.WriteString("\n")
	b.WriteString(markerVisualization)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", markerType, spec.Type)
	fmt.Fprintf(&b, "%s %s\n", markerXAxis, spec.X)
	if spec.Y != "" {
		fmt.Fprintf(&b, "%s %s\n", markerYAxis, spec.Y)
	}
	fmt.Fprintf(&b, "%s %s\n", markerTitle, spec.Title)
	fmt.Fprintf(&b, "%s %s", markerQuery, spec.SQL)
	return b.String()
}

// ParseResult turns protocol text into a PipelineResult. It is total:
// absence of the QUERY:/RESULTS: marker pair degrades the whole text to
// a plain-text result rather than an error.
func ParseResult(raw string) PipelineResult {
	queryIdx := strings.Index(raw, markerQuery)
	resultsIdx := strings.Index(raw, markerResults)
	if queryIdx < 0 || resultsIdx < 0 || resultsIdx < queryIdx {
		return PipelineResult{Kind: KindPlainText, Text: raw, Raw: raw}
	}

	sqlPart := raw[queryIdx+len(markerQuery) : resultsIdx]
	rowsPart := raw[resultsIdx+len(markerResults):]

	rs := &query.ResultSet{}
	for _, line := range strings.Split(strings.TrimSpace(rowsPart), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ";")
		row := make([]any, len(fields))
		for i, field := range fields {
			row[i] = field
		}
		rs.Rows = append(rs.Rows, row)
	}

	return PipelineResult{
		Kind:  KindTable,
		SQL:   strings.TrimSpace(sqlPart),
		Table: rs,
		Raw:   raw,
	}
}

// ParseChartDirective extracts the VISUALIZATION block from analysis
// text. The second return is false when no block is present or the
// mandatory fields are missing. A missing Y_AXIS: means "no y column",
// not an error.
func ParseChartDirective(raw string) (viz.Spec, bool) {
	idx := strings.Index(raw, markerVisualization)
	if idx < 0 {
		return viz.Spec{}, false
	}
	block := raw[idx+len(markerVisualization):]

	spec := viz.Spec{
		Type:  viz.ChartType(fieldUntilNewline(block, markerType)),
		X:     fieldUntilNewline(block, markerXAxis),
		Y:     fieldUntilNewline(block, markerYAxis),
		Title: fieldUntilNewline(block, markerTitle),
	}
	// QUERY is the last field and runs to end-of-string.
	if qIdx := strings.Index(block, markerQuery); qIdx >= 0 {
		spec.SQL = strings.TrimSpace(block[qIdx+len(markerQuery):])
	}
	if spec.Type == "" || spec.X == "" {
		return viz.Spec{}, false
	}
	return spec, true
}

// AnalysisText returns the free text following ANALYSIS: up to the
// visualization block, or the empty string when the marker is absent.
func AnalysisText(raw string) string {
	idx := strings.Index(raw, markerAnalysis)
	if idx < 0 {
		return ""
	}
	text := raw[idx+len(markerAnalysis):]
	if vIdx := strings.Index(text, markerVisualization); vIdx >= 0 {
		text = text[:vIdx]
	}
	return strings.TrimSpace(text)
}

func fieldUntilNewline(block, marker string) string {
	idx := strings.Index(block, marker)
	if idx < 0 {
		return ""
	}
	value := block[idx+len(marker):]
	if nl := strings.Index(value, "\n"); nl >= 0 {
		value = value[:nl]
	}
	return strings.TrimSpace(value)
}
