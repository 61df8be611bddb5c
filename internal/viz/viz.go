// Package viz chooses a chart for an executed result set and renders it
// as a plotly-style figure document.
package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/query"
)

// ChartType enumerates the supported chart families. The set is closed;
// Validate rejects anything outside it.
type ChartType string

const (
	ChartBar            ChartType = "bar"
	ChartScatter        ChartType = "scatter"
	ChartLine           ChartType = "line"
	ChartBox            ChartType = "box"
	ChartHistogram      ChartType = "histogram"
	ChartViolin         ChartType = "violin"
	ChartDensityContour ChartType = "density_contour"
	ChartDensityHeatmap ChartType = "density_heatmap"
	ChartPie            ChartType = "pie"
)

// chartRule describes how a chart type consumes columns and how it is
// rendered. Every member of the closed set has exactly one entry.
type chartRule struct {
	requiresY bool
	render    func(spec Spec, rs *query.ResultSet) map[string]any
}

var chartRules = map[ChartType]chartRule{
	ChartBar:            {requiresY: true, render: renderXY("bar", "")},
	ChartScatter:        {requiresY: true, render: renderXY("scatter", "markers")},
	ChartLine:           {requiresY: true, render: renderXY("scatter", "lines")},
	ChartBox:            {requiresY: false, render: renderDistribution("box")},
	ChartHistogram:      {requiresY: false, render: renderDistribution("histogram")},
	ChartViolin:         {requiresY: false, render: renderDistribution("violin")},
	ChartDensityContour: {requiresY: true, render: renderXY("histogram2dcontour", "")},
	ChartDensityHeatmap: {requiresY: true, render: renderXY("histogram2d", "")},
	ChartPie:            {requiresY: false, render: renderPie},
}

// KnownChartType reports whether name is a member of the closed set.
func KnownChartType(name string) bool {
	_, ok := chartRules[ChartType(name)]
	return ok
}

// Spec is a validated chart request: the type, the axis columns, the
// title, and the SQL that produced (or can reproduce) the data.
type Spec struct {
	Type  ChartType
	Title string
	X     string
	Y     string
	SQL   string
}

// SpecError reports a spec that cannot be rendered against the given
// result set. It names the available columns so the caller can repair
// the request.
type SpecError struct {
	Reason    string
	Available []string
}

func (e *SpecError) Error() string {
	if len(e.Available) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s (available columns: %s)", e.Reason, strings.Join(e.Available, ", "))
}

// Validate checks the spec against the result set before any rendering
// happens: known type, present x column, and a y column whenever the
// chart type demands one.
func Validate(spec Spec, rs *query.ResultSet) error {
	rule, ok := chartRules[spec.Type]
	if !ok {
		return &SpecError{Reason: fmt.Sprintf("unknown chart type %q", spec.Type)}
	}
	if spec.X == "" {
		return &SpecError{Reason: "chart has no x column", Available: rs.Columns}
	}
	if !rs.HasColumn(spec.X) {
		return &SpecError{Reason: fmt.Sprintf("x column %q not in result set", spec.X), Available: rs.Columns}
	}
	if spec.Y == "" && rule.requiresY {
		return &SpecError{Reason: fmt.Sprintf("chart type %q requires a y column", spec.Type), Available: rs.Columns}
	}
	if spec.Y != "" && !rs.HasColumn(spec.Y) {
		return &SpecError{Reason: fmt.Sprintf("y column %q not in result set", spec.Y), Available: rs.Columns}
	}
	return nil
}

func columnValues(rs *query.ResultSet, name string) []any {
	idx := -1
	for i, col := range rs.Columns {
		if col == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	values := make([]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		values = append(values, row[idx])
	}
	return values
}

func renderXY(traceType, mode string) func(Spec, *query.ResultSet) map[string]any {
	return func(spec Spec, rs *query.ResultSet) map[string]any {
		trace := map[string]any{
			"type": traceType,
			"x":    columnValues(rs, spec.X),
			"y":    columnValues(rs, spec.Y),
		}
		if mode != "" {
			trace["mode"] = mode
		}
		return trace
	}
}

// renderDistribution plots a single column; when a second column is
// supplied it becomes the value axis and x groups the values.
func renderDistribution(traceType string) func(Spec, *query.ResultSet) map[string]any {
	return func(spec Spec, rs *query.ResultSet) map[string]any {
		trace := map[string]any{"type": traceType}
		if spec.Y == "" {
			trace["x"] = columnValues(rs, spec.X)
			return trace
		}
		trace["x"] = columnValues(rs, spec.X)
		trace["y"] = columnValues(rs, spec.Y)
		return trace
	}
}

// renderPie uses the y column as values when present. Without a y it
// derives the values by counting occurrences of each x label.
func renderPie(spec Spec, rs *query.ResultSet) map[string]any {
	if spec.Y != "" {
		return map[string]any{
			"type":   "pie",
			"labels": columnValues(rs, spec.X),
			"values": columnValues(rs, spec.Y),
		}
	}
	counts := map[string]int{}
	for _, v := range columnValues(rs, spec.X) {
		counts[fmt.Sprint(v)]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	values := make([]int, 0, len(labels))
	for _, label := range labels {
		values = append(values, counts[label])
	}
	return map[string]any{"type": "pie", "labels": labels, "values": values}
}
